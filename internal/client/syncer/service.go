// Package syncer reconciles the local replica with the remote store.
//
// A run walks the entity types in dependency order (users, clients, loans,
// payments, monthly payments). Each pass downloads rows missing locally,
// compares rows present on both sides and uploads rows missing remotely.
// Diverging records are either recorded as conflicts or, when asked for,
// overwritten with the remote version. Passes are isolated: their errors
// are collected in the SyncResult instead of aborting the run.
package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/loansync/internal/client/models"
	"github.com/dmitrijs2005/loansync/internal/client/remote"
	"github.com/dmitrijs2005/loansync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/loansync/internal/common"
	"github.com/dmitrijs2005/loansync/internal/logging"
)

// LocalStore is the part of the local replica the synchronizer needs.
// *localstore.Store implements it.
type LocalStore interface {
	InsertUser(ctx context.Context, u *models.User) error
	InsertClient(ctx context.Context, c *models.Client) error
	InsertLoan(ctx context.Context, l *models.Loan) error
	InsertPayment(ctx context.Context, p *models.Payment) error
	InsertMonthlyPayment(ctx context.Context, m *models.MonthlyPayment) error

	GetUsers(ctx context.Context) ([]models.User, error)
	GetClients(ctx context.Context) ([]models.Client, error)
	GetLoans(ctx context.Context) ([]models.Loan, error)
	GetPayments(ctx context.Context) ([]models.Payment, error)
	GetMonthlyPayments(ctx context.Context, month, year int) ([]models.MonthlyPayment, error)

	UpdateSyncStatus(ctx context.Context, et models.EntityType, entityID string, status models.SyncStatus, local, remote json.RawMessage) error
	UpdateConflict(ctx context.Context, et models.EntityType, entityID string, local, remote json.RawMessage, fields []string) error
	GetSyncRecord(ctx context.Context, id string) (*models.SyncRecord, error)
	GetPendingSyncItems(ctx context.Context) ([]models.SyncRecord, error)

	Metadata() (metadata.Repository, error)
}

// Connectivity reports whether the remote store can be reached right now.
type Connectivity interface {
	IsConnected(ctx context.Context) bool
}

type listener struct {
	id ListenerID
	fn Listener
}

type Service struct {
	local        LocalStore
	remote       remote.Client
	connectivity Connectivity
	log          logging.Logger
	now          func() time.Time

	entities []entity
	byType   map[models.EntityType]entity

	syncing atomic.Bool

	mu        sync.Mutex
	listeners []listener
	nextID    ListenerID
	lastSync  time.Time
}

type Option func(*Service)

// WithClock overrides the time source used for conflict timestamps, the
// monthly window and the last sync date.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(local LocalStore, rc remote.Client, conn Connectivity, log logging.Logger, opts ...Option) *Service {
	s := &Service{
		local:        local,
		remote:       rc,
		connectivity: conn,
		log:          log.With("component", "syncer"),
		now:          time.Now,
	}
	for _, o := range opts {
		o(s)
	}

	s.entities = buildEntities(s)
	s.byType = make(map[models.EntityType]entity, len(s.entities))
	for _, e := range s.entities {
		s.byType[e.kind()] = e
	}
	return s
}

// IsSyncing reports whether a run is in progress.
func (s *Service) IsSyncing() bool {
	return s.syncing.Load()
}

// AddSyncListener registers fn for every completed run. Listeners are
// called synchronously in registration order.
func (s *Service) AddSyncListener(fn Listener) ListenerID {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	s.listeners = append(s.listeners, listener{id: s.nextID, fn: fn})
	return s.nextID
}

// RemoveSyncListener unregisters a listener. Unknown ids are ignored.
func (s *Service) RemoveSyncListener(id ListenerID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, l := range s.listeners {
		if l.id == id {
			s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
			return
		}
	}
}

func (s *Service) notify(res *SyncResult) {
	s.mu.Lock()
	snapshot := make([]listener, len(s.listeners))
	copy(snapshot, s.listeners)
	s.mu.Unlock()

	for _, l := range snapshot {
		l.fn(res)
	}
}

// LastSyncDate returns when a run last executed its passes. The value
// survives restarts through the local metadata.
func (s *Service) LastSyncDate(ctx context.Context) (time.Time, bool, error) {
	s.mu.Lock()
	last := s.lastSync
	s.mu.Unlock()
	if !last.IsZero() {
		return last, true, nil
	}

	md, err := s.local.Metadata()
	if err != nil {
		return time.Time{}, false, err
	}
	return md.GetTime(ctx, metadata.KeyLastSyncAt)
}

func (s *Service) markSynced(ctx context.Context) {
	at := s.now().UTC()

	s.mu.Lock()
	s.lastSync = at
	s.mu.Unlock()

	md, err := s.local.Metadata()
	if err == nil {
		err = md.SetTime(ctx, metadata.KeyLastSyncAt, at)
	}
	if err != nil {
		s.log.Warn(ctx, "failed to persist last sync date", "error", err)
	}
}

// SyncAll runs every reconciliation pass. It only returns an error when
// another run is already active; every other failure is reported in the
// result.
func (s *Service) SyncAll(ctx context.Context, opts SyncOptions) (*SyncResult, error) {
	if !s.syncing.CompareAndSwap(false, true) {
		return nil, common.ErrSyncInProgress
	}
	defer s.syncing.Store(false)

	res := &SyncResult{}

	if !s.connectivity.IsConnected(ctx) {
		res.addError(common.ErrNoConnectivity)
		s.log.Warn(ctx, "sync skipped", "reason", common.ErrNoConnectivity.Error())
		s.notify(res)
		return res, nil
	}

	started := s.now()
	for _, e := range s.entities {
		s.runPass(ctx, e, opts, res)
	}
	s.markSynced(ctx)

	res.Success = res.ErrorCount == 0
	s.log.Info(ctx, "sync finished",
		"success", res.Success,
		"synced", res.SyncedCount,
		"conflicts", res.ConflictCount,
		"errors", res.ErrorCount,
		"elapsed", s.now().Sub(started).String(),
	)

	s.notify(res)
	return res, nil
}

func (s *Service) runPass(ctx context.Context, e entity, opts SyncOptions, res *SyncResult) {
	defer func() {
		if r := recover(); r != nil {
			res.addError(fmt.Errorf("%s sync error: panic: %v", passLabel(e.kind()), r))
			s.log.Error(ctx, "pass panicked", "entity", string(e.kind()), "panic", r)
		}
	}()
	e.run(ctx, s, opts, res)
}

// SyncPendingChanges runs a forced sync when local changes wait for
// reconciliation and returns an empty successful result otherwise, without
// touching the network.
func (s *Service) SyncPendingChanges(ctx context.Context) (*SyncResult, error) {
	items, err := s.local.GetPendingSyncItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending sync items: %w", err)
	}
	if len(items) == 0 {
		return &SyncResult{Success: true}, nil
	}
	return s.SyncAll(ctx, SyncOptions{ForceSync: true})
}

// ResolveConflict settles a pending or conflicting record. ResolutionRemote
// writes the captured remote version locally; ResolutionLocal upserts the
// captured local version remotely. The record ends up synced.
func (s *Service) ResolveConflict(ctx context.Context, conflictID string, resolution ConflictResolution) error {
	if resolution != ResolutionLocal && resolution != ResolutionRemote {
		return fmt.Errorf("%w: %q", common.ErrInvalidResolution, resolution)
	}

	et, entityID, err := models.ParseSyncRecordID(conflictID)
	if err != nil {
		return fmt.Errorf("%w: %s", common.ErrConflictNotFound, conflictID)
	}

	rec, err := s.local.GetSyncRecord(ctx, conflictID)
	if errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("%w: %s", common.ErrConflictNotFound, conflictID)
	}
	if err != nil {
		return err
	}
	if rec.Status != models.SyncStatusPending && rec.Status != models.SyncStatusConflict {
		return fmt.Errorf("%w: %s", common.ErrConflictNotFound, conflictID)
	}

	e := s.byType[et]
	switch {
	case resolution == ResolutionRemote && len(rec.RemoteData) > 0:
		if err := e.applyRemote(ctx, rec.RemoteData); err != nil {
			return err
		}
	case resolution == ResolutionLocal && len(rec.LocalData) > 0:
		if err := e.pushLocal(ctx, rec.LocalData); err != nil {
			return err
		}
	}

	if err := s.local.UpdateSyncStatus(ctx, et, entityID, models.SyncStatusSynced, nil, nil); err != nil {
		return err
	}
	s.log.Info(ctx, "conflict resolved", "id", conflictID, "resolution", string(resolution))
	return nil
}
