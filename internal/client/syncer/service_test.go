package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/loansync/internal/client/localstore"
	"github.com/dmitrijs2005/loansync/internal/client/models"
	"github.com/dmitrijs2005/loansync/internal/client/remote"
	"github.com/dmitrijs2005/loansync/internal/common"
	"github.com/dmitrijs2005/loansync/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, time.May, 15, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

type harness struct {
	local  *localstore.Store
	remote *fakeRemote
	conn   *fakeConnectivity
	svc    *Service
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	local := localstore.Open(":memory:", localstore.WithClock(clock))
	require.NoError(t, local.Initialize(context.Background()))
	t.Cleanup(func() { _ = local.Close() })

	h := &harness{local: local, remote: newFakeRemote(), conn: &fakeConnectivity{connected: true}}
	h.svc = New(local, h.remote, h.conn, logging.Nop(), WithClock(clock))
	return h
}

func (h *harness) record(t *testing.T, id string) *models.SyncRecord {
	t.Helper()
	rec, err := h.local.GetSyncRecord(context.Background(), id)
	require.NoError(t, err)
	return rec
}

func anaRemote() remote.UserRow {
	return remote.UserRow{
		ID: "u1", Name: "Ana", Email: "ana@x.com", UserType: "CEO",
		Permissions: json.RawMessage(`[]`), CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestSyncAll_DownloadsRemoteUserIntoEmptyStore(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.remote.users["u1"] = anaRemote()

	res, err := h.svc.SyncAll(ctx, SyncOptions{})
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, 1, res.SyncedCount)
	assert.Zero(t, res.ConflictCount)
	assert.Zero(t, res.ErrorCount)

	users, err := h.local.GetUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "u1", users[0].ID)
	assert.Equal(t, models.UserTypeCEO, users[0].UserType)

	assert.Equal(t, models.SyncStatusSynced, h.record(t, "user_u1").Status)
}

func TestSyncAll_RejectsConcurrentRun(t *testing.T) {
	h := newHarness(t)
	h.remote.users["u1"] = anaRemote()

	entered := make(chan struct{})
	release := make(chan struct{})
	h.remote.selectHook["users"] = func() {
		close(entered)
		<-release
	}

	type outcome struct {
		res *SyncResult
		err error
	}
	first := make(chan outcome, 1)
	go func() {
		res, err := h.svc.SyncAll(context.Background(), SyncOptions{})
		first <- outcome{res, err}
	}()

	<-entered
	assert.True(t, h.svc.IsSyncing())

	res, err := h.svc.SyncAll(context.Background(), SyncOptions{})
	require.ErrorIs(t, err, common.ErrSyncInProgress)
	assert.Nil(t, res)

	close(release)
	got := <-first
	require.NoError(t, got.err)
	assert.Equal(t, 1, got.res.SyncedCount)
	assert.Zero(t, got.res.ConflictCount)
	assert.False(t, h.svc.IsSyncing())
}

func TestSyncPendingChanges_NoPendingSkipsNetwork(t *testing.T) {
	h := newHarness(t)

	res, err := h.svc.SyncPendingChanges(context.Background())
	require.NoError(t, err)

	assert.Equal(t, &SyncResult{Success: true}, res)
	assert.Empty(t, h.remote.Calls())
	assert.Zero(t, h.conn.checks)
}

func TestSyncPendingChanges_RunsWhenWorkIsWaiting(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.local.InsertUser(ctx, &models.User{ID: "u9", Name: "Zed", Email: "z@x.com", UserType: models.UserTypeGerente}))

	res, err := h.svc.SyncPendingChanges(ctx)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.SyncedCount)
	assert.Contains(t, h.remote.users, "u9")

	res, err = h.svc.SyncPendingChanges(ctx)
	require.NoError(t, err)
	assert.Equal(t, &SyncResult{Success: true}, res)
}

func TestSyncAll_IsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.remote.users["u1"] = anaRemote()
	h.remote.loans["l1"] = remote.LoanRow{
		ID: "l1", ClientID: "c1", Amount: 1000, InterestRate: 0.05,
		StartDate: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), Source: "CAIXA", Status: "ATIVO", RemainingBalance: 1000,
	}
	require.NoError(t, h.local.InsertClient(ctx, &models.Client{ID: "c1", Name: "Joao", Document: "1", Phone: "2"}))

	first, err := h.svc.SyncAll(ctx, SyncOptions{})
	require.NoError(t, err)
	assert.True(t, first.Success)
	assert.Equal(t, 3, first.SyncedCount)

	second, err := h.svc.SyncAll(ctx, SyncOptions{})
	require.NoError(t, err)
	assert.True(t, second.Success)
	assert.Zero(t, second.SyncedCount)
	assert.Zero(t, second.ConflictCount)
	assert.Empty(t, second.Conflicts)
}

func seedNameConflict(t *testing.T, h *harness) {
	t.Helper()
	require.NoError(t, h.local.InsertUser(context.Background(), &models.User{
		ID: "u1", Name: "A", Email: "ana@x.com", UserType: models.UserTypeCEO,
	}))
	row := anaRemote()
	row.Name = "B"
	h.remote.users["u1"] = row
}

func TestSyncAll_RecordsConflictOnDivergingFields(t *testing.T) {
	h := newHarness(t)
	seedNameConflict(t, h)

	res, err := h.svc.SyncAll(context.Background(), SyncOptions{ResolveConflicts: false})
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, 1, res.ConflictCount)
	assert.Zero(t, res.SyncedCount)
	require.Len(t, res.Conflicts, 1)

	c := res.Conflicts[0]
	assert.Equal(t, "user_u1", c.ID)
	assert.Equal(t, models.EntityUser, c.EntityType)
	assert.Equal(t, "u1", c.EntityID)
	assert.Equal(t, []string{"name"}, c.ConflictFields)
	assert.Equal(t, fixedNow, c.Timestamp)
	assert.Contains(t, string(c.LocalData), `"userType":"CEO"`)
	assert.Contains(t, string(c.RemoteData), `"user_type":"CEO"`)

	rec := h.record(t, "user_u1")
	assert.Equal(t, models.SyncStatusConflict, rec.Status)
	assert.Equal(t, []string{"name"}, rec.ConflictFields)
	assert.JSONEq(t, string(c.LocalData), string(rec.LocalData))
	assert.JSONEq(t, string(c.RemoteData), string(rec.RemoteData))

	assert.Equal(t, "B", h.remote.users["u1"].Name)
}

func TestSyncAll_RemoteWinsWhenRequested(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	seedNameConflict(t, h)

	res, err := h.svc.SyncAll(ctx, SyncOptions{ResolveConflicts: true, ConflictResolution: ResolutionRemote})
	require.NoError(t, err)

	assert.Zero(t, res.ConflictCount)
	assert.Equal(t, 1, res.SyncedCount)

	users, err := h.local.GetUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, "B", users[0].Name)
	assert.Equal(t, models.SyncStatusSynced, h.record(t, "user_u1").Status)
}

func TestSyncAll_LocalAndManualTakeNoAutomaticAction(t *testing.T) {
	for _, r := range []ConflictResolution{ResolutionLocal, ResolutionManual} {
		t.Run(string(r), func(t *testing.T) {
			h := newHarness(t)
			ctx := context.Background()
			seedNameConflict(t, h)

			res, err := h.svc.SyncAll(ctx, SyncOptions{ResolveConflicts: true, ConflictResolution: r})
			require.NoError(t, err)
			assert.Zero(t, res.ConflictCount)
			assert.Zero(t, res.SyncedCount)

			users, err := h.local.GetUsers(ctx)
			require.NoError(t, err)
			assert.Equal(t, "A", users[0].Name)
			assert.Equal(t, "B", h.remote.users["u1"].Name)
			assert.Equal(t, models.SyncStatusPending, h.record(t, "user_u1").Status)
			assert.NotContains(t, h.remote.Calls(), "upsert users u1")
		})
	}
}

func TestResolveConflict_LocalUploadsSnapshot(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	seedNameConflict(t, h)

	_, err := h.svc.SyncAll(ctx, SyncOptions{})
	require.NoError(t, err)

	require.NoError(t, h.svc.ResolveConflict(ctx, "user_u1", ResolutionLocal))

	assert.Equal(t, "A", h.remote.users["u1"].Name)
	assert.Contains(t, h.remote.Calls(), "upsert users u1")

	rec := h.record(t, "user_u1")
	assert.Equal(t, models.SyncStatusSynced, rec.Status)
	assert.Nil(t, rec.LocalData)
	assert.Nil(t, rec.ConflictFields)

	res, err := h.svc.SyncAll(ctx, SyncOptions{})
	require.NoError(t, err)
	assert.Zero(t, res.ConflictCount)
}

func TestResolveConflict_RemoteWritesLocally(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	seedNameConflict(t, h)

	_, err := h.svc.SyncAll(ctx, SyncOptions{})
	require.NoError(t, err)

	require.NoError(t, h.svc.ResolveConflict(ctx, "user_u1", ResolutionRemote))

	users, err := h.local.GetUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, "B", users[0].Name)
	assert.Equal(t, models.SyncStatusSynced, h.record(t, "user_u1").Status)
	assert.NotContains(t, h.remote.Calls(), "upsert users u1")
}

func TestResolveConflict_UnknownIDs(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for _, id := range []string{"user_nobody", "invoice_1", "garbage"} {
		err := h.svc.ResolveConflict(ctx, id, ResolutionLocal)
		require.ErrorIs(t, err, common.ErrConflictNotFound, id)
	}

	require.NoError(t, h.local.InsertUser(ctx, &models.User{ID: "u1", Name: "A", UserType: models.UserTypeCEO}))
	require.NoError(t, h.local.UpdateSyncStatus(ctx, models.EntityUser, "u1", models.SyncStatusSynced, nil, nil))
	require.ErrorIs(t, h.svc.ResolveConflict(ctx, "user_u1", ResolutionRemote), common.ErrConflictNotFound)

	require.ErrorIs(t, h.svc.ResolveConflict(ctx, "user_u1", ResolutionManual), common.ErrInvalidResolution)
	assert.Empty(t, h.remote.Calls())
}

func TestResolveConflict_RemoteWriteFailureKeepsConflict(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	seedNameConflict(t, h)

	_, err := h.svc.SyncAll(ctx, SyncOptions{})
	require.NoError(t, err)

	boom := errors.New("connection reset")
	h.remote.writeErr["u1"] = boom

	err = h.svc.ResolveConflict(ctx, "user_u1", ResolutionLocal)
	require.ErrorIs(t, err, boom)
	var writeErr *RemoteWriteError
	require.ErrorAs(t, err, &writeErr)
	assert.Equal(t, models.EntityUser, writeErr.Entity)
	assert.Equal(t, "u1", writeErr.ID)

	assert.Equal(t, models.SyncStatusConflict, h.record(t, "user_u1").Status)
}

func TestResolveConflict_MonthlyPaymentIDWithUnderscore(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	due := time.Date(2026, time.May, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, h.local.InsertMonthlyPayment(ctx, &models.MonthlyPayment{
		ID: "mp_7", LoanID: "l1", ClientName: "Joao", DueDate: due, InterestAmount: 50,
	}))
	h.remote.monthly["mp_7"] = remote.MonthlyPaymentRow{
		ID: "mp_7", LoanID: "l1", ClientName: "Joao", DueDate: due, InterestAmount: 50, IsPaid: true,
	}

	res, err := h.svc.SyncAll(ctx, SyncOptions{})
	require.NoError(t, err)
	require.Len(t, res.Conflicts, 1)
	assert.Equal(t, "monthly_payment_mp_7", res.Conflicts[0].ID)
	assert.Equal(t, []string{"isPaid"}, res.Conflicts[0].ConflictFields)

	require.NoError(t, h.svc.ResolveConflict(ctx, "monthly_payment_mp_7", ResolutionRemote))

	got, err := h.local.GetMonthlyPayments(ctx, 5, 2026)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].IsPaid)
}

func TestSyncAll_PassesAreIsolated(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.remote.users["u1"] = anaRemote()
	h.remote.selectErr["loans"] = errors.New("boom")
	h.remote.payments["p1"] = remote.PaymentRow{
		ID: "p1", LoanID: "l1", PaymentDate: fixedNow, InterestAmount: 10, TotalAmount: 10, PaymentType: "JUROS",
	}

	res, err := h.svc.SyncAll(ctx, SyncOptions{})
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.Equal(t, 1, res.ErrorCount)
	assert.Equal(t, []string{"Loan sync error: fetch remote loan: boom"}, res.Errors)
	assert.Equal(t, 2, res.SyncedCount)

	var fetchErr *RemoteFetchError
	require.ErrorAs(t, res.Err(), &fetchErr)
	assert.Equal(t, models.EntityLoan, fetchErr.Entity)

	payments, err := h.local.GetPayments(ctx)
	require.NoError(t, err)
	assert.Len(t, payments, 1)
	users, err := h.local.GetUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	assert.Equal(t, []string{
		"select users", "select clients", "select loans", "select payments", "select monthly_payments",
	}, h.remote.Calls())
}

func TestSyncAll_UploadFailureDoesNotStopSiblings(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for _, id := range []string{"l1", "l2", "l3"} {
		require.NoError(t, h.local.InsertLoan(ctx, &models.Loan{
			ID: id, ClientID: "c1", Amount: 100, Source: models.LoanSourceCaixa,
			Status: models.LoanStatusAtivo, RemainingBalance: 100,
		}))
	}
	h.remote.writeErr["l2"] = errors.New("timeout")

	res, err := h.svc.SyncAll(ctx, SyncOptions{})
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.Equal(t, 2, res.SyncedCount)
	assert.Equal(t, 1, res.ErrorCount)
	assert.Equal(t, "Loan sync error: write remote loan l2: timeout", res.Errors[0])

	assert.Contains(t, h.remote.loans, "l1")
	assert.Contains(t, h.remote.loans, "l3")
	assert.Equal(t, models.SyncStatusPending, h.record(t, "loan_l2").Status)
	assert.Equal(t, models.SyncStatusSynced, h.record(t, "loan_l3").Status)
}

func TestSyncAll_NoConnectivity(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.conn.connected = false
	h.remote.users["u1"] = anaRemote()
	require.NoError(t, h.local.InsertUser(ctx, &models.User{ID: "u2", Name: "Bia", UserType: models.UserTypeCEO}))

	var notified *SyncResult
	h.svc.AddSyncListener(func(r *SyncResult) { notified = r })

	res, err := h.svc.SyncAll(ctx, SyncOptions{})
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.Equal(t, 1, res.ErrorCount)
	assert.Equal(t, []string{"No network connection available"}, res.Errors)
	assert.ErrorIs(t, res.Err(), common.ErrNoConnectivity)
	assert.Same(t, res, notified)

	assert.Empty(t, h.remote.Calls())
	assert.Equal(t, models.SyncStatusPending, h.record(t, "user_u2").Status)
	users, err := h.local.GetUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	_, ok, err := h.svc.LastSyncDate(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListeners_OrderAndRemoval(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	var order []string
	h.svc.AddSyncListener(func(*SyncResult) { order = append(order, "a") })
	idB := h.svc.AddSyncListener(func(*SyncResult) { order = append(order, "b") })
	h.svc.AddSyncListener(func(*SyncResult) { order = append(order, "c") })

	_, err := h.svc.SyncAll(ctx, SyncOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, order)

	h.svc.RemoveSyncListener(idB)
	h.svc.RemoveSyncListener(idB)
	h.svc.RemoveSyncListener(ListenerID(999))

	order = nil
	_, err = h.svc.SyncAll(ctx, SyncOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, order)
}

func TestSyncAll_ListenerSeesRunningFlag(t *testing.T) {
	h := newHarness(t)

	var during bool
	h.svc.AddSyncListener(func(*SyncResult) { during = h.svc.IsSyncing() })

	_, err := h.svc.SyncAll(context.Background(), SyncOptions{})
	require.NoError(t, err)
	assert.True(t, during)
	assert.False(t, h.svc.IsSyncing())
}

func TestSyncAll_PanicInPassIsRecovered(t *testing.T) {
	h := newHarness(t)
	h.remote.selectHook["clients"] = func() { panic("nil map") }
	h.remote.users["u1"] = anaRemote()

	res, err := h.svc.SyncAll(context.Background(), SyncOptions{})
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.Equal(t, []string{"Client sync error: panic: nil map"}, res.Errors)
	assert.Equal(t, 1, res.SyncedCount)
	assert.False(t, h.svc.IsSyncing())

	_, err = h.svc.SyncAll(context.Background(), SyncOptions{})
	require.NoError(t, err)
}

func TestSyncAll_MonthlyPaymentsUseCurrentMonth(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	inMonth := time.Date(2026, time.May, 31, 23, 0, 0, 0, time.UTC)
	nextMonth := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	h.remote.monthly["m1"] = remote.MonthlyPaymentRow{ID: "m1", LoanID: "l1", ClientName: "Joao", DueDate: inMonth, InterestAmount: 10}
	h.remote.monthly["m2"] = remote.MonthlyPaymentRow{ID: "m2", LoanID: "l1", ClientName: "Joao", DueDate: nextMonth, InterestAmount: 10}
	require.NoError(t, h.local.InsertMonthlyPayment(ctx, &models.MonthlyPayment{
		ID: "m-old", LoanID: "l1", ClientName: "Joao", DueDate: time.Date(2026, time.April, 30, 0, 0, 0, 0, time.UTC),
	}))

	res, err := h.svc.SyncAll(ctx, SyncOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.SyncedCount)

	assert.Equal(t, time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC), h.remote.monthlyFrom)
	assert.Equal(t, nextMonth, h.remote.monthlyTo)
	assert.Len(t, h.remote.monthly, 2)
}

// monthRollover advances the shared clock right after the local monthly
// query returns.
type monthRollover struct {
	*localstore.Store
	at *time.Time
}

func (m monthRollover) GetMonthlyPayments(ctx context.Context, month, year int) ([]models.MonthlyPayment, error) {
	out, err := m.Store.GetMonthlyPayments(ctx, month, year)
	*m.at = time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)
	return out, err
}

func TestSyncAll_MonthlyWindowFixedAcrossMonthBoundary(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	at := time.Date(2026, time.January, 31, 23, 59, 59, 999e6, time.UTC)
	svc := New(monthRollover{Store: h.local, at: &at}, h.remote, h.conn, logging.Nop(),
		WithClock(func() time.Time { return at }))

	due := time.Date(2026, time.January, 31, 0, 0, 0, 0, time.UTC)
	require.NoError(t, h.local.InsertMonthlyPayment(ctx, &models.MonthlyPayment{
		ID: "m1", LoanID: "l1", ClientName: "Joao", DueDate: due, InterestAmount: 10,
	}))
	h.remote.monthly["m1"] = remote.MonthlyPaymentRow{ID: "m1", LoanID: "l1", ClientName: "Joao", DueDate: due, InterestAmount: 10}

	res, err := svc.SyncAll(ctx, SyncOptions{})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Zero(t, res.ErrorCount)
	assert.Zero(t, res.ConflictCount)

	assert.Equal(t, time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC), h.remote.monthlyFrom)
	assert.Equal(t, time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC), h.remote.monthlyTo)
	assert.NotContains(t, h.remote.Calls(), "insert monthly_payments m1")
}

func TestSyncAll_PersistsLastSyncDate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.remote.selectErr["users"] = errors.New("boom")

	res, err := h.svc.SyncAll(ctx, SyncOptions{})
	require.NoError(t, err)
	assert.False(t, res.Success)

	got, ok, err := h.svc.LastSyncDate(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, fixedNow, got)

	fresh := New(h.local, h.remote, h.conn, logging.Nop())
	got, ok, err = fresh.LastSyncDate(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, fixedNow.Equal(got))
}

func TestSyncPendingChanges_LocalStoreFailure(t *testing.T) {
	local := localstore.Open(":memory:")
	svc := New(local, newFakeRemote(), &fakeConnectivity{connected: true}, logging.Nop())

	_, err := svc.SyncPendingChanges(context.Background())
	require.ErrorIs(t, err, common.ErrNotInitialized)
}
