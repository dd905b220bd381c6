package remote

import (
	"encoding/json"
	"time"
)

// Row types mirror the remote tables column for column. JSON tags use the
// remote snake_case names so that captured snapshots can be decoded back.

type UserRow struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Email       string          `json:"email"`
	UserType    string          `json:"user_type"`
	Permissions json.RawMessage `json:"permissions"`
	CreatedAt   time.Time       `json:"created_at"`
	LastLogin   *time.Time      `json:"last_login"`
}

type ClientRow struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Document   string          `json:"document"`
	Phone      string          `json:"phone"`
	Address    json.RawMessage `json:"address"`
	References json.RawMessage `json:"client_references"`
	CreatedAt  time.Time       `json:"created_at"`
}

type LoanRow struct {
	ID               string    `json:"id"`
	ClientID         string    `json:"client_id"`
	Amount           float64   `json:"amount"`
	InterestRate     float64   `json:"interest_rate"`
	StartDate        time.Time `json:"start_date"`
	Source           string    `json:"source"`
	Status           string    `json:"status"`
	RemainingBalance float64   `json:"remaining_balance"`
}

type PaymentRow struct {
	ID              string    `json:"id"`
	LoanID          string    `json:"loan_id"`
	PaymentDate     time.Time `json:"payment_date"`
	InterestAmount  float64   `json:"interest_amount"`
	PrincipalAmount float64   `json:"principal_amount"`
	TotalAmount     float64   `json:"total_amount"`
	PaymentType     string    `json:"payment_type"`
}

type MonthlyPaymentRow struct {
	ID              string     `json:"id"`
	LoanID          string     `json:"loan_id"`
	ClientName      string     `json:"client_name"`
	DueDate         time.Time  `json:"due_date"`
	InterestAmount  float64    `json:"interest_amount"`
	PrincipalAmount *float64   `json:"principal_amount"`
	IsPaid          bool       `json:"is_paid"`
	PaidDate        *time.Time `json:"paid_date"`
	DaysOverdue     int        `json:"days_overdue"`
}
