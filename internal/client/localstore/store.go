// Package localstore is the embedded SQLite replica the application works
// against while offline. Every entity write marks the row and its sync
// record as pending so the next reconciliation run picks it up.
package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/loansync/internal/client/migrations"
	"github.com/dmitrijs2005/loansync/internal/client/models"
	"github.com/dmitrijs2005/loansync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/loansync/internal/common"
	"github.com/dmitrijs2005/loansync/internal/dbx"
	"github.com/dmitrijs2005/loansync/internal/filex"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// timeLayout keeps fixed-width UTC timestamps so that text comparison in
// SQL orders them chronologically.
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

var entityTables = map[models.EntityType]string{
	models.EntityUser:           "users",
	models.EntityClient:         "clients",
	models.EntityLoan:           "loans",
	models.EntityPayment:        "payments",
	models.EntityMonthlyPayment: "monthly_payments",
}

type Store struct {
	dsn string
	now func() time.Time

	mu sync.RWMutex
	db *sql.DB
}

type Option func(*Store)

// WithClock overrides the time source used for last_modified stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open returns a store handle for dsn. Nothing touches the disk until
// Initialize is called.
func Open(dsn string, opts ...Option) *Store {
	s := &Store{dsn: dsn, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// gooseUp is a seam for testing migration failures.
var gooseUp = func(ctx context.Context, db *sql.DB, dir string) error {
	return goose.UpContext(ctx, db, dir)
}

// RunMigrations applies the embedded local schema. It is idempotent.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return gooseUp(ctx, db, ".")
}

// Initialize opens the database and creates the schema. Calling it again on
// an initialized store is a no-op.
func (s *Store) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return nil
	}

	if err := filex.EnsureParentDir(s.dsn); err != nil {
		return fmt.Errorf("failed to prepare database path: %w", err)
	}

	db, err := sql.Open("sqlite", s.dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	// one connection: in-memory databases are per connection and SQLite
	// serialises writers anyway
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = OFF",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to open database: %w", err)
		}
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	s.db = db
	return nil
}

// Close releases the database. The store must be initialized again before
// further use.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) conn() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, common.ErrNotInitialized
	}
	return s.db, nil
}

// Metadata returns the key/value repository of the replica.
func (s *Store) Metadata() (metadata.Repository, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	return metadata.NewSQLiteRepository(db), nil
}

// entityWrite is one row write followed by its pending sync record.
type entityWrite struct {
	entityType models.EntityType
	id         string
	exec       func(ctx context.Context, tx dbx.DBTX, stamp string) error
}

// writeEntity runs fn in a transaction and marks the entity pending.
func (s *Store) writeEntity(ctx context.Context, et models.EntityType, id string, fn func(ctx context.Context, tx dbx.DBTX, stamp string) error) error {
	return s.writeEntities(ctx, entityWrite{entityType: et, id: id, exec: fn})
}

// writeEntities applies every write and its sync record in one transaction,
// so either all entities become pending or none change.
func (s *Store) writeEntities(ctx context.Context, writes ...entityWrite) error {
	db, err := s.conn()
	if err != nil {
		return err
	}

	stamp := s.stamp()
	return dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, w := range writes {
			if err := w.exec(ctx, tx, stamp); err != nil {
				return err
			}
			err := upsertSyncRecord(ctx, tx, syncRecordRow{
				entityType: w.entityType,
				entityID:   w.id,
				status:     models.SyncStatusPending,
				stamp:      stamp,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// ClearAllData removes every entity row and sync record. Metadata is kept.
func (s *Store) ClearAllData(ctx context.Context) error {
	db, err := s.conn()
	if err != nil {
		return err
	}

	return dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, table := range []string{"monthly_payments", "payments", "loans", "clients", "users", "sync_status"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}
		return nil
	})
}

func (s *Store) stamp() string {
	return formatTime(s.now())
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Parse(time.RFC3339Nano, s)
	}
	return t, nil
}

func formatNullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func marshalColumn(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}
