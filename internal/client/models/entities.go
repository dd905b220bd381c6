// Package models defines the loan-management domain records kept in the
// local store and reconciled with the remote store.
package models

import "time"

type UserType string

const (
	UserTypeCEO        UserType = "CEO"
	UserTypeGerente    UserType = "GERENTE"
	UserTypeFinanceiro UserType = "FINANCEIRO"
)

type LoanSource string

const (
	LoanSourceInvestimento LoanSource = "INVESTIMENTO"
	LoanSourceCaixa        LoanSource = "CAIXA"
)

type LoanStatus string

const (
	LoanStatusAtivo        LoanStatus = "ATIVO"
	LoanStatusQuitado      LoanStatus = "QUITADO"
	LoanStatusInadimplente LoanStatus = "INADIMPLENTE"
)

type PaymentType string

const (
	PaymentTypeJuros          PaymentType = "JUROS"
	PaymentTypeJurosPrincipal PaymentType = "JUROS_PRINCIPAL"
)

// Permission grants a set of actions on a named resource.
type Permission struct {
	Resource string   `json:"resource"`
	Actions  []string `json:"actions"`
}

type User struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Email       string       `json:"email"`
	UserType    UserType     `json:"userType"`
	Permissions []Permission `json:"permissions"`
	CreatedAt   time.Time    `json:"createdAt"`
	LastLogin   *time.Time   `json:"lastLogin,omitempty"`
}

type Address struct {
	Street  string `json:"street"`
	Number  string `json:"number"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`
}

type Reference struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Relationship string `json:"relationship"`
}

// Client is a borrower. Loans is filled only by by-id lookups.
type Client struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Document   string      `json:"document"`
	Phone      string      `json:"phone"`
	Address    Address     `json:"address"`
	References []Reference `json:"references"`
	CreatedAt  time.Time   `json:"createdAt"`
	Loans      []Loan      `json:"loans"`
}

// Loan is money lent to a client. Payments is filled only by per-client
// lookups.
type Loan struct {
	ID               string     `json:"id"`
	ClientID         string     `json:"clientId"`
	Amount           float64    `json:"amount"`
	InterestRate     float64    `json:"interestRate"`
	StartDate        time.Time  `json:"startDate"`
	Source           LoanSource `json:"source"`
	Status           LoanStatus `json:"status"`
	RemainingBalance float64    `json:"remainingBalance"`
	Payments         []Payment  `json:"payments"`
}

type Payment struct {
	ID              string      `json:"id"`
	LoanID          string      `json:"loanId"`
	Date            time.Time   `json:"date"`
	InterestAmount  float64     `json:"interestAmount"`
	PrincipalAmount float64     `json:"principalAmount"`
	TotalAmount     float64     `json:"totalAmount"`
	PaymentType     PaymentType `json:"paymentType"`
}

// MonthlyPayment is one scheduled installment of a loan.
type MonthlyPayment struct {
	ID              string     `json:"id"`
	LoanID          string     `json:"loanId"`
	ClientName      string     `json:"clientName"`
	DueDate         time.Time  `json:"dueDate"`
	InterestAmount  float64    `json:"interestAmount"`
	PrincipalAmount *float64   `json:"principalAmount,omitempty"`
	IsPaid          bool       `json:"isPaid"`
	PaidDate        *time.Time `json:"paidDate,omitempty"`
	DaysOverdue     int        `json:"daysOverdue"`
}
