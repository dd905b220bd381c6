package localstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/loansync/internal/client/models"
	"github.com/dmitrijs2005/loansync/internal/common"
	"github.com/dmitrijs2005/loansync/internal/dbx"
)

const monthlyPaymentColumns = `id, loan_id, client_name, due_date, interest_amount, principal_amount, is_paid, paid_date, days_overdue`

// InsertMonthlyPayment upserts m and marks it pending.
func (s *Store) InsertMonthlyPayment(ctx context.Context, m *models.MonthlyPayment) error {
	return s.writeEntity(ctx, models.EntityMonthlyPayment, m.ID, func(ctx context.Context, tx dbx.DBTX, stamp string) error {
		_, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO monthly_payments
				(`+monthlyPaymentColumns+`, last_modified, sync_status)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 'pending')`,
			m.ID, m.LoanID, m.ClientName, formatTime(m.DueDate), m.InterestAmount,
			nullFloat(m.PrincipalAmount), m.IsPaid, formatNullTime(m.PaidDate), m.DaysOverdue, stamp)
		if err != nil {
			return fmt.Errorf("failed to upsert monthly payment: %w", err)
		}
		return nil
	})
}

// MonthRange returns the first and last instant of a calendar month in UTC.
// month is 1-indexed.
func MonthRange(month, year int) (time.Time, time.Time) {
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, 0).Add(-time.Millisecond)
	return first, last
}

// GetMonthlyPayments lists installments due in the given month, earliest
// first. The range is inclusive on both ends.
func (s *Store) GetMonthlyPayments(ctx context.Context, month, year int) ([]models.MonthlyPayment, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("invalid month %d", month)
	}

	first, last := MonthRange(month, year)
	rows, err := db.QueryContext(ctx, `
		SELECT `+monthlyPaymentColumns+` FROM monthly_payments
		WHERE due_date >= ? AND due_date <= ?
		ORDER BY due_date, id`, formatTime(first), formatTime(last))
	if err != nil {
		return nil, fmt.Errorf("failed to select monthly payments: %w", err)
	}

	result, err := dbx.CollectRows(rows, scanMonthlyPayment)
	if err != nil {
		return nil, fmt.Errorf("failed to read monthly payments: %w", err)
	}
	return result, nil
}

// GetMonthlyPaymentByID returns one installment or common.ErrorNotFound.
func (s *Store) GetMonthlyPaymentByID(ctx context.Context, id string) (*models.MonthlyPayment, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT `+monthlyPaymentColumns+` FROM monthly_payments WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to select monthly payment %s: %w", id, err)
	}
	result, err := dbx.CollectRows(rows, scanMonthlyPayment)
	if err != nil {
		return nil, fmt.Errorf("failed to read monthly payment %s: %w", id, err)
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("monthly payment %s: %w", id, common.ErrorNotFound)
	}
	return &result[0], nil
}

func scanMonthlyPayment(r *sql.Rows) (models.MonthlyPayment, error) {
	var (
		m         models.MonthlyPayment
		dueDate   string
		principal sql.NullFloat64
		paidDate  sql.NullString
	)
	if err := r.Scan(&m.ID, &m.LoanID, &m.ClientName, &dueDate, &m.InterestAmount,
		&principal, &m.IsPaid, &paidDate, &m.DaysOverdue); err != nil {
		return m, err
	}
	if principal.Valid {
		v := principal.Float64
		m.PrincipalAmount = &v
	}

	var err error
	if m.DueDate, err = parseTime(dueDate); err != nil {
		return m, err
	}
	m.PaidDate, err = parseNullTime(paidDate)
	return m, err
}
