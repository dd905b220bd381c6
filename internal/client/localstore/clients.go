package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/loansync/internal/client/models"
	"github.com/dmitrijs2005/loansync/internal/dbx"
)

const clientColumns = `id, name, document, phone, address, client_references, created_at`

// InsertClient upserts c and marks it pending. Nested loans are not written.
func (s *Store) InsertClient(ctx context.Context, c *models.Client) error {
	return s.writeEntity(ctx, models.EntityClient, c.ID, func(ctx context.Context, tx dbx.DBTX, stamp string) error {
		address, err := marshalColumn(c.Address)
		if err != nil {
			return fmt.Errorf("failed to encode client address: %w", err)
		}
		refs, err := marshalColumn(c.References)
		if err != nil {
			return fmt.Errorf("failed to encode client references: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO clients
				(`+clientColumns+`, last_modified, sync_status)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, 'pending')`,
			c.ID, c.Name, c.Document, c.Phone, address, refs, formatTime(c.CreatedAt), stamp)
		if err != nil {
			return fmt.Errorf("failed to upsert client: %w", err)
		}
		return nil
	})
}

// GetClients lists clients ordered by name. Loans are left empty.
func (s *Store) GetClients(ctx context.Context) ([]models.Client, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT `+clientColumns+` FROM clients ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to select clients: %w", err)
	}

	clients, err := dbx.CollectRows(rows, func(r *sql.Rows) (models.Client, error) { return scanClient(r) })
	if err != nil {
		return nil, fmt.Errorf("failed to read clients: %w", err)
	}
	return clients, nil
}

// GetClientByID returns the client with its loans and their payments, or
// nil when no such client exists.
func (s *Store) GetClientByID(ctx context.Context, id string) (*models.Client, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	row := db.QueryRowContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = ?`, id)
	c, err := scanClient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get client %s: %w", id, err)
	}

	loans, err := s.GetLoansByClientID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Loans = loans

	return &c, nil
}

func scanClient(r rowScanner) (models.Client, error) {
	var (
		c         models.Client
		address   string
		refs      string
		createdAt string
	)
	if err := r.Scan(&c.ID, &c.Name, &c.Document, &c.Phone, &address, &refs, &createdAt); err != nil {
		return c, err
	}

	if err := json.Unmarshal([]byte(address), &c.Address); err != nil {
		return c, fmt.Errorf("client %s address: %w", c.ID, err)
	}
	if err := json.Unmarshal([]byte(refs), &c.References); err != nil {
		return c, fmt.Errorf("client %s references: %w", c.ID, err)
	}

	var err error
	c.CreatedAt, err = parseTime(createdAt)
	return c, err
}
