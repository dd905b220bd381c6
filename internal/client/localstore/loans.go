package localstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/loansync/internal/client/models"
	"github.com/dmitrijs2005/loansync/internal/common"
	"github.com/dmitrijs2005/loansync/internal/dbx"
)

const loanColumns = `id, client_id, amount, interest_rate, start_date, source, status, remaining_balance`

// InsertLoan upserts l and marks it pending. Nested payments are not written.
func (s *Store) InsertLoan(ctx context.Context, l *models.Loan) error {
	return s.writeEntities(ctx, loanWrite(l))
}

func loanWrite(l *models.Loan) entityWrite {
	return entityWrite{
		entityType: models.EntityLoan,
		id:         l.ID,
		exec: func(ctx context.Context, tx dbx.DBTX, stamp string) error {
			_, err := tx.ExecContext(ctx, `
				INSERT OR REPLACE INTO loans
					(`+loanColumns+`, last_modified, sync_status)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 'pending')`,
				l.ID, l.ClientID, l.Amount, l.InterestRate, formatTime(l.StartDate),
				string(l.Source), string(l.Status), l.RemainingBalance, stamp)
			if err != nil {
				return fmt.Errorf("failed to upsert loan: %w", err)
			}
			return nil
		},
	}
}

// GetLoans lists every loan, newest first. Payments are left empty.
func (s *Store) GetLoans(ctx context.Context) ([]models.Loan, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT `+loanColumns+` FROM loans ORDER BY start_date DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to select loans: %w", err)
	}

	loans, err := dbx.CollectRows(rows, scanLoan)
	if err != nil {
		return nil, fmt.Errorf("failed to read loans: %w", err)
	}
	return loans, nil
}

// GetLoansByClientID lists the loans of one client with their payments.
func (s *Store) GetLoansByClientID(ctx context.Context, clientID string) ([]models.Loan, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT `+loanColumns+` FROM loans WHERE client_id = ?
		ORDER BY start_date DESC, id`, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to select loans of client %s: %w", clientID, err)
	}

	loans, err := dbx.CollectRows(rows, scanLoan)
	if err != nil {
		return nil, fmt.Errorf("failed to read loans of client %s: %w", clientID, err)
	}

	for i := range loans {
		payments, err := s.GetPaymentsByLoanID(ctx, loans[i].ID)
		if err != nil {
			return nil, err
		}
		loans[i].Payments = payments
	}
	return loans, nil
}

// GetLoanByID returns one loan without payments or common.ErrorNotFound.
func (s *Store) GetLoanByID(ctx context.Context, id string) (*models.Loan, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT `+loanColumns+` FROM loans WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to select loan %s: %w", id, err)
	}
	loans, err := dbx.CollectRows(rows, scanLoan)
	if err != nil {
		return nil, fmt.Errorf("failed to read loan %s: %w", id, err)
	}
	if len(loans) == 0 {
		return nil, fmt.Errorf("loan %s: %w", id, common.ErrorNotFound)
	}
	return &loans[0], nil
}

func scanLoan(r *sql.Rows) (models.Loan, error) {
	var (
		l         models.Loan
		startDate string
		source    string
		status    string
	)
	if err := r.Scan(&l.ID, &l.ClientID, &l.Amount, &l.InterestRate, &startDate, &source, &status, &l.RemainingBalance); err != nil {
		return l, err
	}
	l.Source = models.LoanSource(source)
	l.Status = models.LoanStatus(status)

	var err error
	l.StartDate, err = parseTime(startDate)
	return l, err
}
