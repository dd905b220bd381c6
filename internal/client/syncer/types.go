package syncer

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/loansync/internal/client/models"
)

// ConflictResolution names which side wins a conflict.
type ConflictResolution string

const (
	ResolutionLocal  ConflictResolution = "local"
	ResolutionRemote ConflictResolution = "remote"
	ResolutionManual ConflictResolution = "manual"
)

func ParseConflictResolution(s string) (ConflictResolution, error) {
	switch r := ConflictResolution(s); r {
	case ResolutionLocal, ResolutionRemote, ResolutionManual:
		return r, nil
	}
	return "", fmt.Errorf("unknown conflict resolution %q", s)
}

// SyncOptions tunes one reconciliation run.
//
// With ResolveConflicts set no conflicts are recorded during the run; only
// ResolutionRemote applies anything, local-wins happens solely through
// Service.ResolveConflict.
type SyncOptions struct {
	ForceSync          bool
	ResolveConflicts   bool
	ConflictResolution ConflictResolution
}

// SyncConflict describes one record whose local and remote versions
// diverge on significant fields.
type SyncConflict struct {
	ID             string            `json:"id"`
	EntityType     models.EntityType `json:"entityType"`
	EntityID       string            `json:"entityId"`
	LocalData      json.RawMessage   `json:"localData"`
	RemoteData     json.RawMessage   `json:"remoteData"`
	ConflictFields []string          `json:"conflictFields"`
	Timestamp      time.Time         `json:"timestamp"`
}

// SyncResult summarises a run. Success means no errors; conflicts may
// still be pending.
type SyncResult struct {
	Success       bool           `json:"success"`
	SyncedCount   int            `json:"syncedCount"`
	ConflictCount int            `json:"conflictCount"`
	ErrorCount    int            `json:"errorCount"`
	Errors        []string       `json:"errors"`
	Conflicts     []SyncConflict `json:"conflicts"`

	errs []error
}

func (r *SyncResult) addError(err error) {
	r.errs = append(r.errs, err)
	r.Errors = append(r.Errors, err.Error())
	r.ErrorCount++
}

func (r *SyncResult) addConflict(c SyncConflict) {
	r.Conflicts = append(r.Conflicts, c)
	r.ConflictCount++
}

// Err joins every error collected during the run, or returns nil.
func (r *SyncResult) Err() error {
	return errors.Join(r.errs...)
}

// RemoteFetchError reports a failed remote snapshot read for a whole pass.
type RemoteFetchError struct {
	Entity models.EntityType
	Err    error
}

func (e *RemoteFetchError) Error() string {
	return fmt.Sprintf("fetch remote %s: %v", e.Entity, e.Err)
}

func (e *RemoteFetchError) Unwrap() error { return e.Err }

// RemoteWriteError reports a failed insert or upsert of a single record.
type RemoteWriteError struct {
	Entity models.EntityType
	ID     string
	Err    error
}

func (e *RemoteWriteError) Error() string {
	return fmt.Sprintf("write remote %s %s: %v", e.Entity, e.ID, e.Err)
}

func (e *RemoteWriteError) Unwrap() error { return e.Err }

// ListenerID identifies a registered sync listener.
type ListenerID uint64

// Listener receives the result of every completed run.
type Listener func(result *SyncResult)
