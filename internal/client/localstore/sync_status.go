package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/loansync/internal/client/models"
	"github.com/dmitrijs2005/loansync/internal/common"
	"github.com/dmitrijs2005/loansync/internal/dbx"
)

const syncRecordColumns = `id, entity_type, entity_id, status, last_modified, local_data, remote_data, conflict_fields`

type syncRecordRow struct {
	entityType     models.EntityType
	entityID       string
	status         models.SyncStatus
	stamp          string
	local          json.RawMessage
	remote         json.RawMessage
	conflictFields []string
}

func nullJSON(b json.RawMessage) sql.NullString {
	if len(b) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}

// upsertSyncRecord replaces the sync record of an entity and mirrors the
// status onto the entity row, if that row exists.
func upsertSyncRecord(ctx context.Context, tx dbx.DBTX, r syncRecordRow) error {
	table, ok := entityTables[r.entityType]
	if !ok {
		return fmt.Errorf("%w: %q", common.ErrUnknownEntityType, r.entityType)
	}
	if !r.status.Valid() {
		return fmt.Errorf("%w: %q", common.ErrInvalidSyncStatus, r.status)
	}

	var fields sql.NullString
	if len(r.conflictFields) > 0 {
		b, err := json.Marshal(r.conflictFields)
		if err != nil {
			return fmt.Errorf("failed to encode conflict fields: %w", err)
		}
		fields = sql.NullString{String: string(b), Valid: true}
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO sync_status (`+syncRecordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			last_modified = excluded.last_modified,
			local_data = excluded.local_data,
			remote_data = excluded.remote_data,
			conflict_fields = excluded.conflict_fields`,
		models.SyncRecordID(r.entityType, r.entityID), string(r.entityType), r.entityID,
		string(r.status), r.stamp, nullJSON(r.local), nullJSON(r.remote), fields)
	if err != nil {
		return fmt.Errorf("failed to upsert sync record: %w", err)
	}

	_, err = tx.ExecContext(ctx, `UPDATE `+table+` SET sync_status = ? WHERE id = ?`, string(r.status), r.entityID)
	if err != nil {
		return fmt.Errorf("failed to update %s sync status: %w", table, err)
	}
	return nil
}

// UpdateSyncStatus records the sync state of an entity. Snapshots are
// optional and replace whatever was stored before.
func (s *Store) UpdateSyncStatus(ctx context.Context, et models.EntityType, entityID string, status models.SyncStatus, local, remote json.RawMessage) error {
	return s.saveSyncRecord(ctx, syncRecordRow{
		entityType: et,
		entityID:   entityID,
		status:     status,
		local:      local,
		remote:     remote,
	})
}

// UpdateConflict marks an entity as conflicting and keeps both snapshots
// along with the names of the differing fields.
func (s *Store) UpdateConflict(ctx context.Context, et models.EntityType, entityID string, local, remote json.RawMessage, fields []string) error {
	return s.saveSyncRecord(ctx, syncRecordRow{
		entityType:     et,
		entityID:       entityID,
		status:         models.SyncStatusConflict,
		local:          local,
		remote:         remote,
		conflictFields: fields,
	})
}

func (s *Store) saveSyncRecord(ctx context.Context, r syncRecordRow) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	r.stamp = s.stamp()

	return dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return upsertSyncRecord(ctx, tx, r)
	})
}

// GetSyncRecord returns the record with the given "{type}_{id}" key or
// common.ErrorNotFound.
func (s *Store) GetSyncRecord(ctx context.Context, id string) (*models.SyncRecord, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	row := db.QueryRowContext(ctx, `SELECT `+syncRecordColumns+` FROM sync_status WHERE id = ?`, id)
	rec, err := scanSyncRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sync record %s: %w", id, common.ErrorNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync record %s: %w", id, err)
	}
	return &rec, nil
}

// GetPendingSyncItems lists pending and conflicting records, oldest first.
func (s *Store) GetPendingSyncItems(ctx context.Context) ([]models.SyncRecord, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT `+syncRecordColumns+` FROM sync_status
		WHERE status IN ('pending', 'conflict')
		ORDER BY last_modified ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to select pending sync items: %w", err)
	}

	items, err := dbx.CollectRows(rows, func(r *sql.Rows) (models.SyncRecord, error) { return scanSyncRecord(r) })
	if err != nil {
		return nil, fmt.Errorf("failed to read pending sync items: %w", err)
	}
	return items, nil
}

func (s *Store) CountPendingSyncItems(ctx context.Context) (int, error) {
	db, err := s.conn()
	if err != nil {
		return 0, err
	}

	var n int
	err = db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sync_status WHERE status IN ('pending', 'conflict')`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending sync items: %w", err)
	}
	return n, nil
}

func scanSyncRecord(r rowScanner) (models.SyncRecord, error) {
	var (
		rec          models.SyncRecord
		entityType   string
		status       string
		lastModified string
		local        sql.NullString
		remote       sql.NullString
		fields       sql.NullString
	)
	if err := r.Scan(&rec.ID, &entityType, &rec.EntityID, &status, &lastModified, &local, &remote, &fields); err != nil {
		return rec, err
	}

	rec.EntityType = models.EntityType(entityType)
	rec.Status = models.SyncStatus(status)
	if local.Valid {
		rec.LocalData = json.RawMessage(local.String)
	}
	if remote.Valid {
		rec.RemoteData = json.RawMessage(remote.String)
	}
	if fields.Valid {
		if err := json.Unmarshal([]byte(fields.String), &rec.ConflictFields); err != nil {
			return rec, fmt.Errorf("sync record %s conflict fields: %w", rec.ID, err)
		}
	}

	var err error
	rec.LastModified, err = parseTime(lastModified)
	return rec, err
}
