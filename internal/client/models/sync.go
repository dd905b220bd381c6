package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dmitrijs2005/loansync/internal/common"
)

// EntityType tags the kind of record a SyncRecord refers to.
type EntityType string

const (
	EntityUser           EntityType = "user"
	EntityClient         EntityType = "client"
	EntityLoan           EntityType = "loan"
	EntityPayment        EntityType = "payment"
	EntityMonthlyPayment EntityType = "monthly_payment"
)

// EntityTypes lists every entity type in reconciliation order.
var EntityTypes = []EntityType{
	EntityUser,
	EntityClient,
	EntityLoan,
	EntityPayment,
	EntityMonthlyPayment,
}

func ParseEntityType(s string) (EntityType, error) {
	for _, t := range EntityTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", common.ErrUnknownEntityType, s)
}

// SyncStatus is the reconciliation state of a single record.
type SyncStatus string

const (
	SyncStatusSynced   SyncStatus = "synced"
	SyncStatusPending  SyncStatus = "pending"
	SyncStatusConflict SyncStatus = "conflict"
)

func (s SyncStatus) Valid() bool {
	switch s {
	case SyncStatusSynced, SyncStatusPending, SyncStatusConflict:
		return true
	}
	return false
}

// SyncRecord is the persisted sync state of one (entity type, id) pair.
type SyncRecord struct {
	ID             string
	EntityType     EntityType
	EntityID       string
	Status         SyncStatus
	LastModified   time.Time
	LocalData      json.RawMessage
	RemoteData     json.RawMessage
	ConflictFields []string
}

// SyncRecordID builds the "{entityType}_{entityId}" key.
func SyncRecordID(t EntityType, entityID string) string {
	return string(t) + "_" + entityID
}

// ParseSyncRecordID splits a SyncRecordID. Entity types may contain '_', so
// the longest matching type prefix wins.
func ParseSyncRecordID(id string) (EntityType, string, error) {
	candidates := make([]EntityType, len(EntityTypes))
	copy(candidates, EntityTypes)
	sort.Slice(candidates, func(i, j int) bool { return len(candidates[i]) > len(candidates[j]) })

	for _, t := range candidates {
		prefix := string(t) + "_"
		if rest, ok := strings.CutPrefix(id, prefix); ok && rest != "" {
			return t, rest, nil
		}
	}
	return "", "", fmt.Errorf("%w: %q", common.ErrUnknownEntityType, id)
}
