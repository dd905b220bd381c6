package syncer

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/loansync/internal/client/models"
	"github.com/dmitrijs2005/loansync/internal/client/remote"
)

func utc(t time.Time) time.Time { return t.UTC() }

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

func encodeColumn(v any) (json.RawMessage, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func decodeColumn(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}

func userToRemote(u models.User) (remote.UserRow, error) {
	perms, err := encodeColumn(u.Permissions)
	if err != nil {
		return remote.UserRow{}, fmt.Errorf("encode permissions of user %s: %w", u.ID, err)
	}
	return remote.UserRow{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		UserType:    string(u.UserType),
		Permissions: perms,
		CreatedAt:   utc(u.CreatedAt),
		LastLogin:   utcPtr(u.LastLogin),
	}, nil
}

func userFromRemote(r remote.UserRow) (models.User, error) {
	u := models.User{
		ID:        r.ID,
		Name:      r.Name,
		Email:     r.Email,
		UserType:  models.UserType(r.UserType),
		CreatedAt: utc(r.CreatedAt),
		LastLogin: utcPtr(r.LastLogin),
	}
	if err := decodeColumn(r.Permissions, &u.Permissions); err != nil {
		return models.User{}, fmt.Errorf("decode permissions of user %s: %w", r.ID, err)
	}
	return u, nil
}

func clientToRemote(c models.Client) (remote.ClientRow, error) {
	address, err := encodeColumn(c.Address)
	if err != nil {
		return remote.ClientRow{}, fmt.Errorf("encode address of client %s: %w", c.ID, err)
	}
	refs, err := encodeColumn(c.References)
	if err != nil {
		return remote.ClientRow{}, fmt.Errorf("encode references of client %s: %w", c.ID, err)
	}
	return remote.ClientRow{
		ID:         c.ID,
		Name:       c.Name,
		Document:   c.Document,
		Phone:      c.Phone,
		Address:    address,
		References: refs,
		CreatedAt:  utc(c.CreatedAt),
	}, nil
}

func clientFromRemote(r remote.ClientRow) (models.Client, error) {
	c := models.Client{
		ID:        r.ID,
		Name:      r.Name,
		Document:  r.Document,
		Phone:     r.Phone,
		CreatedAt: utc(r.CreatedAt),
	}
	if err := decodeColumn(r.Address, &c.Address); err != nil {
		return models.Client{}, fmt.Errorf("decode address of client %s: %w", r.ID, err)
	}
	if err := decodeColumn(r.References, &c.References); err != nil {
		return models.Client{}, fmt.Errorf("decode references of client %s: %w", r.ID, err)
	}
	return c, nil
}

func loanToRemote(l models.Loan) (remote.LoanRow, error) {
	return remote.LoanRow{
		ID:               l.ID,
		ClientID:         l.ClientID,
		Amount:           l.Amount,
		InterestRate:     l.InterestRate,
		StartDate:        utc(l.StartDate),
		Source:           string(l.Source),
		Status:           string(l.Status),
		RemainingBalance: l.RemainingBalance,
	}, nil
}

func loanFromRemote(r remote.LoanRow) (models.Loan, error) {
	return models.Loan{
		ID:               r.ID,
		ClientID:         r.ClientID,
		Amount:           r.Amount,
		InterestRate:     r.InterestRate,
		StartDate:        utc(r.StartDate),
		Source:           models.LoanSource(r.Source),
		Status:           models.LoanStatus(r.Status),
		RemainingBalance: r.RemainingBalance,
	}, nil
}

func paymentToRemote(p models.Payment) (remote.PaymentRow, error) {
	return remote.PaymentRow{
		ID:              p.ID,
		LoanID:          p.LoanID,
		PaymentDate:     utc(p.Date),
		InterestAmount:  p.InterestAmount,
		PrincipalAmount: p.PrincipalAmount,
		TotalAmount:     p.TotalAmount,
		PaymentType:     string(p.PaymentType),
	}, nil
}

func paymentFromRemote(r remote.PaymentRow) (models.Payment, error) {
	return models.Payment{
		ID:              r.ID,
		LoanID:          r.LoanID,
		Date:            utc(r.PaymentDate),
		InterestAmount:  r.InterestAmount,
		PrincipalAmount: r.PrincipalAmount,
		TotalAmount:     r.TotalAmount,
		PaymentType:     models.PaymentType(r.PaymentType),
	}, nil
}

func monthlyPaymentToRemote(m models.MonthlyPayment) (remote.MonthlyPaymentRow, error) {
	return remote.MonthlyPaymentRow{
		ID:              m.ID,
		LoanID:          m.LoanID,
		ClientName:      m.ClientName,
		DueDate:         utc(m.DueDate),
		InterestAmount:  m.InterestAmount,
		PrincipalAmount: m.PrincipalAmount,
		IsPaid:          m.IsPaid,
		PaidDate:        utcPtr(m.PaidDate),
		DaysOverdue:     m.DaysOverdue,
	}, nil
}

func monthlyPaymentFromRemote(r remote.MonthlyPaymentRow) (models.MonthlyPayment, error) {
	return models.MonthlyPayment{
		ID:              r.ID,
		LoanID:          r.LoanID,
		ClientName:      r.ClientName,
		DueDate:         utc(r.DueDate),
		InterestAmount:  r.InterestAmount,
		PrincipalAmount: r.PrincipalAmount,
		IsPaid:          r.IsPaid,
		PaidDate:        utcPtr(r.PaidDate),
		DaysOverdue:     r.DaysOverdue,
	}, nil
}
