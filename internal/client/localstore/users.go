package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/loansync/internal/client/models"
	"github.com/dmitrijs2005/loansync/internal/dbx"
)

// InsertUser upserts u and marks it pending.
func (s *Store) InsertUser(ctx context.Context, u *models.User) error {
	return s.writeEntity(ctx, models.EntityUser, u.ID, func(ctx context.Context, tx dbx.DBTX, stamp string) error {
		perms, err := marshalColumn(u.Permissions)
		if err != nil {
			return fmt.Errorf("failed to encode user permissions: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO users
				(id, name, email, user_type, permissions, created_at, last_login, last_modified, sync_status)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, 'pending')`,
			u.ID, u.Name, u.Email, string(u.UserType), perms,
			formatTime(u.CreatedAt), formatNullTime(u.LastLogin), stamp)
		if err != nil {
			return fmt.Errorf("failed to upsert user: %w", err)
		}
		return nil
	})
}

// GetUsers lists users ordered by name.
func (s *Store) GetUsers(ctx context.Context) ([]models.User, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, name, email, user_type, permissions, created_at, last_login
		FROM users ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to select users: %w", err)
	}

	users, err := dbx.CollectRows(rows, func(r *sql.Rows) (models.User, error) { return scanUser(r) })
	if err != nil {
		return nil, fmt.Errorf("failed to read users: %w", err)
	}
	return users, nil
}

func scanUser(r rowScanner) (models.User, error) {
	var (
		u         models.User
		userType  string
		perms     string
		createdAt string
		lastLogin sql.NullString
	)
	if err := r.Scan(&u.ID, &u.Name, &u.Email, &userType, &perms, &createdAt, &lastLogin); err != nil {
		return u, err
	}

	u.UserType = models.UserType(userType)
	if err := json.Unmarshal([]byte(perms), &u.Permissions); err != nil {
		return u, fmt.Errorf("user %s permissions: %w", u.ID, err)
	}

	var err error
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return u, err
	}
	if u.LastLogin, err = parseNullTime(lastLogin); err != nil {
		return u, err
	}
	return u, nil
}
