// Package metadata stores small key/value facts about the local replica,
// such as the time of the last reconciliation run.
package metadata

import (
	"context"
	"time"
)

// KeyLastSyncAt holds the RFC3339 time of the last completed sync run.
const KeyLastSyncAt = "last_sync_at"

type Repository interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value string) error
	GetTime(ctx context.Context, key string) (time.Time, bool, error)
	SetTime(ctx context.Context, key string, t time.Time) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string]string, error)
}
