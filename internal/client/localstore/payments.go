package localstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/loansync/internal/client/models"
	"github.com/dmitrijs2005/loansync/internal/dbx"
)

const paymentColumns = `id, loan_id, payment_date, interest_amount, principal_amount, total_amount, payment_type`

// InsertPayment upserts p and marks it pending.
func (s *Store) InsertPayment(ctx context.Context, p *models.Payment) error {
	return s.writeEntities(ctx, paymentWrite(p))
}

// InsertPaymentWithLoan records p together with the updated state of its
// loan. Both rows and both sync records commit or roll back together. A nil
// loan writes the payment alone.
func (s *Store) InsertPaymentWithLoan(ctx context.Context, p *models.Payment, l *models.Loan) error {
	writes := []entityWrite{paymentWrite(p)}
	if l != nil {
		writes = append(writes, loanWrite(l))
	}
	return s.writeEntities(ctx, writes...)
}

func paymentWrite(p *models.Payment) entityWrite {
	return entityWrite{
		entityType: models.EntityPayment,
		id:         p.ID,
		exec: func(ctx context.Context, tx dbx.DBTX, stamp string) error {
			_, err := tx.ExecContext(ctx, `
				INSERT OR REPLACE INTO payments
					(`+paymentColumns+`, last_modified, sync_status)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, 'pending')`,
				p.ID, p.LoanID, formatTime(p.Date), p.InterestAmount, p.PrincipalAmount,
				p.TotalAmount, string(p.PaymentType), stamp)
			if err != nil {
				return fmt.Errorf("failed to upsert payment: %w", err)
			}
			return nil
		},
	}
}

// GetPayments lists every payment, most recent first.
func (s *Store) GetPayments(ctx context.Context) ([]models.Payment, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT `+paymentColumns+` FROM payments ORDER BY payment_date DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to select payments: %w", err)
	}

	payments, err := dbx.CollectRows(rows, scanPayment)
	if err != nil {
		return nil, fmt.Errorf("failed to read payments: %w", err)
	}
	return payments, nil
}

func (s *Store) GetPaymentsByLoanID(ctx context.Context, loanID string) ([]models.Payment, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT `+paymentColumns+` FROM payments WHERE loan_id = ?
		ORDER BY payment_date DESC, id`, loanID)
	if err != nil {
		return nil, fmt.Errorf("failed to select payments of loan %s: %w", loanID, err)
	}

	payments, err := dbx.CollectRows(rows, scanPayment)
	if err != nil {
		return nil, fmt.Errorf("failed to read payments of loan %s: %w", loanID, err)
	}
	return payments, nil
}

func scanPayment(r *sql.Rows) (models.Payment, error) {
	var (
		p           models.Payment
		date        string
		paymentType string
	)
	if err := r.Scan(&p.ID, &p.LoanID, &date, &p.InterestAmount, &p.PrincipalAmount, &p.TotalAmount, &paymentType); err != nil {
		return p, err
	}
	p.PaymentType = models.PaymentType(paymentType)

	var err error
	p.Date, err = parseTime(date)
	return p, err
}
