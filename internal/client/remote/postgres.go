package remote

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/loansync/internal/client/remote/migrations"
	"github.com/dmitrijs2005/loansync/internal/dbx"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// table describes one remote table; id is always the first column.
type table struct {
	name    string
	columns []string
}

var (
	usersTable = table{"users", []string{
		"id", "name", "email", "user_type", "permissions", "created_at", "last_login"}}
	clientsTable = table{"clients", []string{
		"id", "name", "document", "phone", "address", "client_references", "created_at"}}
	loansTable = table{"loans", []string{
		"id", "client_id", "amount", "interest_rate", "start_date", "source", "status", "remaining_balance"}}
	paymentsTable = table{"payments", []string{
		"id", "loan_id", "payment_date", "interest_amount", "principal_amount", "total_amount", "payment_type"}}
	monthlyPaymentsTable = table{"monthly_payments", []string{
		"id", "loan_id", "client_name", "due_date", "interest_amount", "principal_amount", "is_paid", "paid_date", "days_overdue"}}
)

func (t table) selectSQL() string {
	return "SELECT " + strings.Join(t.columns, ", ") + " FROM " + t.name
}

func (t table) insertSQL() string {
	placeholders := make([]string, len(t.columns))
	for i := range t.columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return "INSERT INTO " + t.name + " (" + strings.Join(t.columns, ", ") + ") VALUES (" + strings.Join(placeholders, ", ") + ")"
}

func (t table) upsertSQL() string {
	sets := make([]string, 0, len(t.columns)-1)
	for _, c := range t.columns[1:] {
		sets = append(sets, c+" = EXCLUDED."+c)
	}
	return t.insertSQL() + " ON CONFLICT (id) DO UPDATE SET " + strings.Join(sets, ", ")
}

// PostgresClient implements Client on top of database/sql with the pgx
// driver.
type PostgresClient struct {
	db *sql.DB
}

// NewPostgresClient opens a lazily connected pool. No round trip is made,
// so it succeeds while the backend is unreachable.
func NewPostgresClient(dsn string) (*PostgresClient, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open remote store: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &PostgresClient{db: db}, nil
}

func NewPostgresClientFromDB(db *sql.DB) *PostgresClient {
	return &PostgresClient{db: db}
}

func (c *PostgresClient) Ping(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping remote store: %w", MapError(err))
	}
	return nil
}

func (c *PostgresClient) Close() error {
	return c.db.Close()
}

// gooseUp is a seam for testing goose.UpContext.
var gooseUp = func(ctx context.Context, db *sql.DB, dir string) error {
	return goose.UpContext(ctx, db, dir)
}

// Migrate provisions the remote schema.
func (c *PostgresClient) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := gooseUp(ctx, c.db, "."); err != nil {
		return fmt.Errorf("failed to migrate remote store: %w", err)
	}
	return nil
}

func (c *PostgresClient) exec(ctx context.Context, op string, t table, query string, args ...any) error {
	if _, err := c.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%s %s: %w", op, t.name, MapError(err))
	}
	return nil
}

func selectRows[T any](ctx context.Context, db dbx.DBTX, t table, query string, scan func(*sql.Rows) (T, error), args ...any) ([]T, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", t.name, MapError(err))
	}
	result, err := dbx.CollectRows(rows, scan)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", t.name, MapError(err))
	}
	return result, nil
}

func jsonArg(b json.RawMessage, empty string) string {
	if len(b) == 0 || string(b) == "null" {
		return empty
	}
	return string(b)
}

// users

func userArgs(r UserRow) []any {
	return []any{r.ID, r.Name, r.Email, r.UserType, jsonArg(r.Permissions, "[]"), r.CreatedAt, r.LastLogin}
}

func scanUserRow(rows *sql.Rows) (UserRow, error) {
	var (
		r     UserRow
		perms []byte
		last  sql.NullTime
	)
	if err := rows.Scan(&r.ID, &r.Name, &r.Email, &r.UserType, &perms, &r.CreatedAt, &last); err != nil {
		return r, err
	}
	r.Permissions = json.RawMessage(perms)
	if last.Valid {
		t := last.Time
		r.LastLogin = &t
	}
	return r, nil
}

func (c *PostgresClient) SelectUsers(ctx context.Context) ([]UserRow, error) {
	return selectRows(ctx, c.db, usersTable, usersTable.selectSQL()+" ORDER BY name", scanUserRow)
}

func (c *PostgresClient) InsertUser(ctx context.Context, row UserRow) error {
	return c.exec(ctx, "insert", usersTable, usersTable.insertSQL(), userArgs(row)...)
}

func (c *PostgresClient) UpsertUser(ctx context.Context, row UserRow) error {
	return c.exec(ctx, "upsert", usersTable, usersTable.upsertSQL(), userArgs(row)...)
}

// clients

func clientArgs(r ClientRow) []any {
	return []any{r.ID, r.Name, r.Document, r.Phone, jsonArg(r.Address, "{}"), jsonArg(r.References, "[]"), r.CreatedAt}
}

func scanClientRow(rows *sql.Rows) (ClientRow, error) {
	var (
		r       ClientRow
		address []byte
		refs    []byte
	)
	if err := rows.Scan(&r.ID, &r.Name, &r.Document, &r.Phone, &address, &refs, &r.CreatedAt); err != nil {
		return r, err
	}
	r.Address = json.RawMessage(address)
	r.References = json.RawMessage(refs)
	return r, nil
}

func (c *PostgresClient) SelectClients(ctx context.Context) ([]ClientRow, error) {
	return selectRows(ctx, c.db, clientsTable, clientsTable.selectSQL()+" ORDER BY name", scanClientRow)
}

func (c *PostgresClient) InsertClient(ctx context.Context, row ClientRow) error {
	return c.exec(ctx, "insert", clientsTable, clientsTable.insertSQL(), clientArgs(row)...)
}

func (c *PostgresClient) UpsertClient(ctx context.Context, row ClientRow) error {
	return c.exec(ctx, "upsert", clientsTable, clientsTable.upsertSQL(), clientArgs(row)...)
}

// loans

func loanArgs(r LoanRow) []any {
	return []any{r.ID, r.ClientID, r.Amount, r.InterestRate, r.StartDate, r.Source, r.Status, r.RemainingBalance}
}

func scanLoanRow(rows *sql.Rows) (LoanRow, error) {
	var r LoanRow
	err := rows.Scan(&r.ID, &r.ClientID, &r.Amount, &r.InterestRate, &r.StartDate, &r.Source, &r.Status, &r.RemainingBalance)
	return r, err
}

func (c *PostgresClient) SelectLoans(ctx context.Context) ([]LoanRow, error) {
	return selectRows(ctx, c.db, loansTable, loansTable.selectSQL()+" ORDER BY start_date DESC", scanLoanRow)
}

func (c *PostgresClient) InsertLoan(ctx context.Context, row LoanRow) error {
	return c.exec(ctx, "insert", loansTable, loansTable.insertSQL(), loanArgs(row)...)
}

func (c *PostgresClient) UpsertLoan(ctx context.Context, row LoanRow) error {
	return c.exec(ctx, "upsert", loansTable, loansTable.upsertSQL(), loanArgs(row)...)
}

// payments

func paymentArgs(r PaymentRow) []any {
	return []any{r.ID, r.LoanID, r.PaymentDate, r.InterestAmount, r.PrincipalAmount, r.TotalAmount, r.PaymentType}
}

func scanPaymentRow(rows *sql.Rows) (PaymentRow, error) {
	var r PaymentRow
	err := rows.Scan(&r.ID, &r.LoanID, &r.PaymentDate, &r.InterestAmount, &r.PrincipalAmount, &r.TotalAmount, &r.PaymentType)
	return r, err
}

func (c *PostgresClient) SelectPayments(ctx context.Context) ([]PaymentRow, error) {
	return selectRows(ctx, c.db, paymentsTable, paymentsTable.selectSQL()+" ORDER BY payment_date DESC", scanPaymentRow)
}

func (c *PostgresClient) InsertPayment(ctx context.Context, row PaymentRow) error {
	return c.exec(ctx, "insert", paymentsTable, paymentsTable.insertSQL(), paymentArgs(row)...)
}

func (c *PostgresClient) UpsertPayment(ctx context.Context, row PaymentRow) error {
	return c.exec(ctx, "upsert", paymentsTable, paymentsTable.upsertSQL(), paymentArgs(row)...)
}

// monthly payments

func monthlyPaymentArgs(r MonthlyPaymentRow) []any {
	return []any{r.ID, r.LoanID, r.ClientName, r.DueDate, r.InterestAmount, r.PrincipalAmount, r.IsPaid, r.PaidDate, r.DaysOverdue}
}

func scanMonthlyPaymentRow(rows *sql.Rows) (MonthlyPaymentRow, error) {
	var (
		r         MonthlyPaymentRow
		principal sql.NullFloat64
		paid      sql.NullTime
	)
	if err := rows.Scan(&r.ID, &r.LoanID, &r.ClientName, &r.DueDate, &r.InterestAmount, &principal, &r.IsPaid, &paid, &r.DaysOverdue); err != nil {
		return r, err
	}
	if principal.Valid {
		v := principal.Float64
		r.PrincipalAmount = &v
	}
	if paid.Valid {
		t := paid.Time
		r.PaidDate = &t
	}
	return r, nil
}

func (c *PostgresClient) SelectMonthlyPayments(ctx context.Context, from, to time.Time) ([]MonthlyPaymentRow, error) {
	query := monthlyPaymentsTable.selectSQL() + " WHERE due_date >= $1 AND due_date < $2 ORDER BY due_date"
	return selectRows(ctx, c.db, monthlyPaymentsTable, query, scanMonthlyPaymentRow, from, to)
}

func (c *PostgresClient) InsertMonthlyPayment(ctx context.Context, row MonthlyPaymentRow) error {
	return c.exec(ctx, "insert", monthlyPaymentsTable, monthlyPaymentsTable.insertSQL(), monthlyPaymentArgs(row)...)
}

func (c *PostgresClient) UpsertMonthlyPayment(ctx context.Context, row MonthlyPaymentRow) error {
	return c.exec(ctx, "upsert", monthlyPaymentsTable, monthlyPaymentsTable.upsertSQL(), monthlyPaymentArgs(row)...)
}

var _ Client = (*PostgresClient)(nil)
