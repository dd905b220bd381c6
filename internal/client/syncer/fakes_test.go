package syncer

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/loansync/internal/client/remote"
)

// fakeRemote is an in-memory remote store that records every call.
type fakeRemote struct {
	mu sync.Mutex

	users    map[string]remote.UserRow
	clients  map[string]remote.ClientRow
	loans    map[string]remote.LoanRow
	payments map[string]remote.PaymentRow
	monthly  map[string]remote.MonthlyPaymentRow

	calls       []string
	selectErr   map[string]error
	writeErr    map[string]error
	selectHook  map[string]func()
	monthlyFrom time.Time
	monthlyTo   time.Time
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		users:      map[string]remote.UserRow{},
		clients:    map[string]remote.ClientRow{},
		loans:      map[string]remote.LoanRow{},
		payments:   map[string]remote.PaymentRow{},
		monthly:    map[string]remote.MonthlyPaymentRow{},
		selectErr:  map[string]error{},
		writeErr:   map[string]error{},
		selectHook: map[string]func(){},
	}
}

func (f *fakeRemote) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeRemote) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeRemote) beforeSelect(table string) error {
	f.record("select " + table)
	f.mu.Lock()
	hook := f.selectHook[table]
	err := f.selectErr[table]
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return err
}

func (f *fakeRemote) beforeWrite(op, table, id string) error {
	f.record(op + " " + table + " " + id)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writeErr[id]
}

func sortedValues[T any](m map[string]T) []T {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]T, 0, len(m))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}

var errDuplicate = errors.New("duplicate key")

func insertRow[T any](f *fakeRemote, m map[string]T, table, id string, row T) error {
	if err := f.beforeWrite("insert", table, id); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := m[id]; ok {
		return errDuplicate
	}
	m[id] = row
	return nil
}

func upsertRow[T any](f *fakeRemote, m map[string]T, table, id string, row T) error {
	if err := f.beforeWrite("upsert", table, id); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	m[id] = row
	return nil
}

func (f *fakeRemote) SelectUsers(ctx context.Context) ([]remote.UserRow, error) {
	if err := f.beforeSelect("users"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return sortedValues(f.users), nil
}

func (f *fakeRemote) InsertUser(ctx context.Context, row remote.UserRow) error {
	return insertRow(f, f.users, "users", row.ID, row)
}

func (f *fakeRemote) UpsertUser(ctx context.Context, row remote.UserRow) error {
	return upsertRow(f, f.users, "users", row.ID, row)
}

func (f *fakeRemote) SelectClients(ctx context.Context) ([]remote.ClientRow, error) {
	if err := f.beforeSelect("clients"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return sortedValues(f.clients), nil
}

func (f *fakeRemote) InsertClient(ctx context.Context, row remote.ClientRow) error {
	return insertRow(f, f.clients, "clients", row.ID, row)
}

func (f *fakeRemote) UpsertClient(ctx context.Context, row remote.ClientRow) error {
	return upsertRow(f, f.clients, "clients", row.ID, row)
}

func (f *fakeRemote) SelectLoans(ctx context.Context) ([]remote.LoanRow, error) {
	if err := f.beforeSelect("loans"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return sortedValues(f.loans), nil
}

func (f *fakeRemote) InsertLoan(ctx context.Context, row remote.LoanRow) error {
	return insertRow(f, f.loans, "loans", row.ID, row)
}

func (f *fakeRemote) UpsertLoan(ctx context.Context, row remote.LoanRow) error {
	return upsertRow(f, f.loans, "loans", row.ID, row)
}

func (f *fakeRemote) SelectPayments(ctx context.Context) ([]remote.PaymentRow, error) {
	if err := f.beforeSelect("payments"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return sortedValues(f.payments), nil
}

func (f *fakeRemote) InsertPayment(ctx context.Context, row remote.PaymentRow) error {
	return insertRow(f, f.payments, "payments", row.ID, row)
}

func (f *fakeRemote) UpsertPayment(ctx context.Context, row remote.PaymentRow) error {
	return upsertRow(f, f.payments, "payments", row.ID, row)
}

func (f *fakeRemote) SelectMonthlyPayments(ctx context.Context, from, to time.Time) ([]remote.MonthlyPaymentRow, error) {
	if err := f.beforeSelect("monthly_payments"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.monthlyFrom, f.monthlyTo = from, to

	var out []remote.MonthlyPaymentRow
	for _, r := range sortedValues(f.monthly) {
		if !r.DueDate.Before(from) && r.DueDate.Before(to) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRemote) InsertMonthlyPayment(ctx context.Context, row remote.MonthlyPaymentRow) error {
	return insertRow(f, f.monthly, "monthly_payments", row.ID, row)
}

func (f *fakeRemote) UpsertMonthlyPayment(ctx context.Context, row remote.MonthlyPaymentRow) error {
	return upsertRow(f, f.monthly, "monthly_payments", row.ID, row)
}

func (f *fakeRemote) Ping(ctx context.Context) error { return nil }
func (f *fakeRemote) Close() error                   { return nil }

type fakeConnectivity struct {
	connected bool
	checks    int
}

func (c *fakeConnectivity) IsConnected(ctx context.Context) bool {
	c.checks++
	return c.connected
}
