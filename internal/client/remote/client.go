// Package remote talks to the authoritative relational store. Each table is
// exposed through select, insert and upsert calls on explicit row types.
package remote

import (
	"context"
	"time"
)

// Client is the remote table API used by the synchronizer.
type Client interface {
	SelectUsers(ctx context.Context) ([]UserRow, error)
	InsertUser(ctx context.Context, row UserRow) error
	UpsertUser(ctx context.Context, row UserRow) error

	SelectClients(ctx context.Context) ([]ClientRow, error)
	InsertClient(ctx context.Context, row ClientRow) error
	UpsertClient(ctx context.Context, row ClientRow) error

	SelectLoans(ctx context.Context) ([]LoanRow, error)
	InsertLoan(ctx context.Context, row LoanRow) error
	UpsertLoan(ctx context.Context, row LoanRow) error

	SelectPayments(ctx context.Context) ([]PaymentRow, error)
	InsertPayment(ctx context.Context, row PaymentRow) error
	UpsertPayment(ctx context.Context, row PaymentRow) error

	// SelectMonthlyPayments returns rows with from <= due_date < to.
	SelectMonthlyPayments(ctx context.Context, from, to time.Time) ([]MonthlyPaymentRow, error)
	InsertMonthlyPayment(ctx context.Context, row MonthlyPaymentRow) error
	UpsertMonthlyPayment(ctx context.Context, row MonthlyPaymentRow) error

	Ping(ctx context.Context) error
	Close() error
}
