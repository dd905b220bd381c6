// Package services holds the application operations that create and update
// loan records. Every write lands in the local store first and is picked up
// by the next reconciliation run.
package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dmitrijs2005/loansync/internal/client/models"
	"github.com/dmitrijs2005/loansync/internal/common"
	"github.com/dmitrijs2005/loansync/internal/logging"
	"github.com/google/uuid"
)

// Validator accepts or rejects a domain record before it is stored.
type Validator interface {
	Validate(record any) error
}

// AcceptAll is a Validator that accepts every record.
type AcceptAll struct{}

func (AcceptAll) Validate(any) error { return nil }

// Store is the subset of the local store the ledger writes through.
type Store interface {
	InsertClient(ctx context.Context, c *models.Client) error
	InsertLoan(ctx context.Context, l *models.Loan) error
	InsertPaymentWithLoan(ctx context.Context, p *models.Payment, l *models.Loan) error
	InsertMonthlyPayment(ctx context.Context, m *models.MonthlyPayment) error
	GetLoanByID(ctx context.Context, id string) (*models.Loan, error)
	GetMonthlyPaymentByID(ctx context.Context, id string) (*models.MonthlyPayment, error)
}

type Ledger struct {
	store     Store
	validator Validator
	log       logging.Logger
	now       func() time.Time
	newID     func() string
}

type Option func(*Ledger)

func WithValidator(v Validator) Option {
	return func(l *Ledger) { l.validator = v }
}

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func NewLedger(store Store, log logging.Logger, opts ...Option) *Ledger {
	l := &Ledger{
		store:     store,
		validator: AcceptAll{},
		log:       log.With("component", "ledger"),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

func (l *Ledger) validate(record any) error {
	if err := l.validator.Validate(record); err != nil {
		if errors.Is(err, common.ErrValidation) {
			return err
		}
		return fmt.Errorf("%w: %w", common.ErrValidation, err)
	}
	return nil
}

// AddClient stores a new client. ID and CreatedAt are filled in when empty.
func (l *Ledger) AddClient(ctx context.Context, c models.Client) (*models.Client, error) {
	if c.ID == "" {
		c.ID = l.newID()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = l.now().UTC()
	}
	c.Name = strings.TrimSpace(c.Name)
	c.Loans = nil

	if err := l.validate(&c); err != nil {
		return nil, err
	}
	if err := l.store.InsertClient(ctx, &c); err != nil {
		return nil, fmt.Errorf("failed to add client: %w", err)
	}

	l.log.Info(ctx, "client added", "client_id", c.ID)
	return &c, nil
}

// AddLoan opens an active loan whose remaining balance equals the amount.
func (l *Ledger) AddLoan(ctx context.Context, loan models.Loan) (*models.Loan, error) {
	if loan.ID == "" {
		loan.ID = l.newID()
	}
	if loan.StartDate.IsZero() {
		loan.StartDate = l.now().UTC()
	}
	if loan.Amount <= 0 {
		return nil, fmt.Errorf("%w: loan amount must be positive", common.ErrValidation)
	}
	loan.Status = models.LoanStatusAtivo
	loan.RemainingBalance = loan.Amount
	loan.Payments = nil

	if err := l.validate(&loan); err != nil {
		return nil, err
	}
	if err := l.store.InsertLoan(ctx, &loan); err != nil {
		return nil, fmt.Errorf("failed to add loan: %w", err)
	}

	l.log.Info(ctx, "loan added", "loan_id", loan.ID, "client_id", loan.ClientID, "amount", loan.Amount)
	return &loan, nil
}

// RecordPayment stores p and lowers the loan's remaining balance by the
// principal part in the same transaction. A loan whose balance reaches zero
// becomes QUITADO.
func (l *Ledger) RecordPayment(ctx context.Context, p models.Payment) (*models.Payment, *models.Loan, error) {
	if p.InterestAmount < 0 || p.PrincipalAmount < 0 {
		return nil, nil, fmt.Errorf("%w: payment amounts must not be negative", common.ErrValidation)
	}

	loan, err := l.store.GetLoanByID(ctx, p.LoanID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load loan: %w", err)
	}

	if p.ID == "" {
		p.ID = l.newID()
	}
	if p.Date.IsZero() {
		p.Date = l.now().UTC()
	}
	if p.TotalAmount == 0 {
		p.TotalAmount = p.InterestAmount + p.PrincipalAmount
	}
	if p.PaymentType == "" {
		p.PaymentType = models.PaymentTypeJuros
		if p.PrincipalAmount > 0 {
			p.PaymentType = models.PaymentTypeJurosPrincipal
		}
	}

	if err := l.validate(&p); err != nil {
		return nil, nil, err
	}

	var updated *models.Loan
	if p.PrincipalAmount > 0 {
		next := *loan
		next.RemainingBalance = math.Max(0, loan.RemainingBalance-p.PrincipalAmount)
		if next.RemainingBalance == 0 {
			next.Status = models.LoanStatusQuitado
		}
		updated = &next
	}
	if err := l.store.InsertPaymentWithLoan(ctx, &p, updated); err != nil {
		return nil, nil, fmt.Errorf("failed to record payment: %w", err)
	}
	if updated != nil {
		loan = updated
	}

	l.log.Info(ctx, "payment recorded",
		"payment_id", p.ID, "loan_id", loan.ID, "remaining_balance", loan.RemainingBalance)
	return &p, loan, nil
}

// MarkMonthlyPaid flags an installment as paid at paidAt and records how
// many whole days past due it was settled.
func (l *Ledger) MarkMonthlyPaid(ctx context.Context, id string, paidAt time.Time) (*models.MonthlyPayment, error) {
	m, err := l.store.GetMonthlyPaymentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load monthly payment: %w", err)
	}
	if paidAt.IsZero() {
		paidAt = l.now()
	}
	paidAt = paidAt.UTC()

	m.IsPaid = true
	m.PaidDate = &paidAt
	m.DaysOverdue = daysOverdue(m.DueDate, paidAt)

	if err := l.validate(m); err != nil {
		return nil, err
	}
	if err := l.store.InsertMonthlyPayment(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to mark monthly payment paid: %w", err)
	}

	l.log.Info(ctx, "monthly payment paid", "monthly_payment_id", m.ID, "days_overdue", m.DaysOverdue)
	return m, nil
}

func daysOverdue(due, at time.Time) int {
	d := int(at.Sub(due) / (24 * time.Hour))
	if d < 0 {
		return 0
	}
	return d
}
