package syncer

import (
	"context"
	"strings"
	"time"

	"github.com/dmitrijs2005/loansync/internal/client/localstore"
	"github.com/dmitrijs2005/loansync/internal/client/models"
	"github.com/dmitrijs2005/loansync/internal/client/remote"
)

// passLabel turns "monthly_payment" into "Monthly payment" for error text.
func passLabel(et models.EntityType) string {
	s := strings.ReplaceAll(string(et), "_", " ")
	return strings.ToUpper(s[:1]) + s[1:]
}

// currentMonth returns the UTC calendar month containing now as a
// half-open range [from, to).
func currentMonth(now time.Time) (month, year int, from, to time.Time) {
	now = now.UTC()
	from, _ = localstore.MonthRange(int(now.Month()), now.Year())
	return int(now.Month()), now.Year(), from, from.AddDate(0, 1, 0)
}

// monthlyWindow binds the local and remote monthly queries to the same
// calendar month.
func monthlyWindow(s *Service) func(now time.Time) (fetcher[models.MonthlyPayment], fetcher[remote.MonthlyPaymentRow]) {
	return func(now time.Time) (fetcher[models.MonthlyPayment], fetcher[remote.MonthlyPaymentRow]) {
		month, year, from, to := currentMonth(now)
		fetchLocal := func(ctx context.Context) ([]models.MonthlyPayment, error) {
			return s.local.GetMonthlyPayments(ctx, month, year)
		}
		fetchRemote := func(ctx context.Context) ([]remote.MonthlyPaymentRow, error) {
			return s.remote.SelectMonthlyPayments(ctx, from, to)
		}
		return fetchLocal, fetchRemote
	}
}

func ptr[T any](v T) *T { return &v }

// buildEntities wires one pass per entity type in reconciliation order.
func buildEntities(s *Service) []entity {
	return []entity{
		&pass[models.User, remote.UserRow]{
			entityType:   models.EntityUser,
			label:        passLabel(models.EntityUser),
			fetchLocal:   s.local.GetUsers,
			fetchRemote:  s.remote.SelectUsers,
			localID:      func(u models.User) string { return u.ID },
			remoteID:     func(r remote.UserRow) string { return r.ID },
			toLocal:      userFromRemote,
			toRemote:     userToRemote,
			saveLocal:    func(ctx context.Context, u models.User) error { return s.local.InsertUser(ctx, ptr(u)) },
			insertRemote: s.remote.InsertUser,
			upsertRemote: s.remote.UpsertUser,
			conflicts:    userConflicts,
		},
		&pass[models.Client, remote.ClientRow]{
			entityType:   models.EntityClient,
			label:        passLabel(models.EntityClient),
			fetchLocal:   s.local.GetClients,
			fetchRemote:  s.remote.SelectClients,
			localID:      func(c models.Client) string { return c.ID },
			remoteID:     func(r remote.ClientRow) string { return r.ID },
			toLocal:      clientFromRemote,
			toRemote:     clientToRemote,
			saveLocal:    func(ctx context.Context, c models.Client) error { return s.local.InsertClient(ctx, ptr(c)) },
			insertRemote: s.remote.InsertClient,
			upsertRemote: s.remote.UpsertClient,
			conflicts:    clientConflicts,
		},
		&pass[models.Loan, remote.LoanRow]{
			entityType:   models.EntityLoan,
			label:        passLabel(models.EntityLoan),
			fetchLocal:   s.local.GetLoans,
			fetchRemote:  s.remote.SelectLoans,
			localID:      func(l models.Loan) string { return l.ID },
			remoteID:     func(r remote.LoanRow) string { return r.ID },
			toLocal:      loanFromRemote,
			toRemote:     loanToRemote,
			saveLocal:    func(ctx context.Context, l models.Loan) error { return s.local.InsertLoan(ctx, ptr(l)) },
			insertRemote: s.remote.InsertLoan,
			upsertRemote: s.remote.UpsertLoan,
			conflicts:    loanConflicts,
		},
		&pass[models.Payment, remote.PaymentRow]{
			entityType:   models.EntityPayment,
			label:        passLabel(models.EntityPayment),
			fetchLocal:   s.local.GetPayments,
			fetchRemote:  s.remote.SelectPayments,
			localID:      func(p models.Payment) string { return p.ID },
			remoteID:     func(r remote.PaymentRow) string { return r.ID },
			toLocal:      paymentFromRemote,
			toRemote:     paymentToRemote,
			saveLocal:    func(ctx context.Context, p models.Payment) error { return s.local.InsertPayment(ctx, ptr(p)) },
			insertRemote: s.remote.InsertPayment,
			upsertRemote: s.remote.UpsertPayment,
			conflicts:    paymentConflicts,
		},
		&pass[models.MonthlyPayment, remote.MonthlyPaymentRow]{
			entityType: models.EntityMonthlyPayment,
			label:      passLabel(models.EntityMonthlyPayment),
			scoped:     monthlyWindow(s),
			localID:    func(m models.MonthlyPayment) string { return m.ID },
			remoteID:   func(r remote.MonthlyPaymentRow) string { return r.ID },
			toLocal:    monthlyPaymentFromRemote,
			toRemote:   monthlyPaymentToRemote,
			saveLocal: func(ctx context.Context, m models.MonthlyPayment) error {
				return s.local.InsertMonthlyPayment(ctx, ptr(m))
			},
			insertRemote: s.remote.InsertMonthlyPayment,
			upsertRemote: s.remote.UpsertMonthlyPayment,
			conflicts:    monthlyPaymentConflicts,
		},
	}
}
