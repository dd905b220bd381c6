// Package common defines sentinel errors shared by the local store, the
// remote client and the synchronizer. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound        = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
	ErrNotInitialized    = errors.New("database not initialized")
	ErrInvalidSyncStatus = errors.New("invalid sync status")
	ErrUnknownEntityType = errors.New("unknown entity type")

	// Transport errors.
	ErrUnavailable = errors.New("remote store unavailable")

	// Synchronization errors.
	ErrSyncInProgress    = errors.New("sync already in progress")
	ErrNoConnectivity    = errors.New("No network connection available")
	ErrConflictNotFound  = errors.New("conflict not found")
	ErrInvalidResolution = errors.New("invalid conflict resolution")

	// Validation errors returned by domain services.
	ErrValidation = errors.New("validation error")
)
