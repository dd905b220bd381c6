package syncer

import (
	"bytes"
	"encoding/json"

	"github.com/dmitrijs2005/loansync/internal/client/models"
)

// Conflict detectors compare only the fields that matter for each entity.
// Field names are reported in their domain (camelCase) form.

type fieldDiff []string

func (d *fieldDiff) check(name string, equal bool) {
	if !equal {
		*d = append(*d, name)
	}
}

// canonicalEqual compares two values by their JSON encoding.
func canonicalEqual(a, b any) bool {
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(ja, jb)
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func userConflicts(local, remote models.User) []string {
	var d fieldDiff
	d.check("name", local.Name == remote.Name)
	d.check("email", local.Email == remote.Email)
	d.check("userType", local.UserType == remote.UserType)
	return d
}

func clientConflicts(local, remote models.Client) []string {
	var d fieldDiff
	d.check("name", local.Name == remote.Name)
	d.check("document", local.Document == remote.Document)
	d.check("phone", local.Phone == remote.Phone)
	d.check("address", canonicalEqual(local.Address, remote.Address))
	return d
}

func loanConflicts(local, remote models.Loan) []string {
	var d fieldDiff
	d.check("amount", local.Amount == remote.Amount)
	d.check("interestRate", local.InterestRate == remote.InterestRate)
	d.check("status", local.Status == remote.Status)
	d.check("remainingBalance", local.RemainingBalance == remote.RemainingBalance)
	return d
}

func paymentConflicts(local, remote models.Payment) []string {
	var d fieldDiff
	d.check("interestAmount", local.InterestAmount == remote.InterestAmount)
	d.check("principalAmount", local.PrincipalAmount == remote.PrincipalAmount)
	d.check("totalAmount", local.TotalAmount == remote.TotalAmount)
	return d
}

func monthlyPaymentConflicts(local, remote models.MonthlyPayment) []string {
	var d fieldDiff
	d.check("isPaid", local.IsPaid == remote.IsPaid)
	d.check("interestAmount", local.InterestAmount == remote.InterestAmount)
	d.check("principalAmount", floatPtrEqual(local.PrincipalAmount, remote.PrincipalAmount))
	return d
}
