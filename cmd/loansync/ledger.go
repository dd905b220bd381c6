package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/loansync/internal/client/models"
	"github.com/dmitrijs2005/loansync/internal/common"
	"github.com/spf13/cobra"
)

const dateLayout = "2006-01-02"

// ledgerOps is the part of services.Ledger the ledger commands call.
type ledgerOps interface {
	AddClient(ctx context.Context, c models.Client) (*models.Client, error)
	AddLoan(ctx context.Context, loan models.Loan) (*models.Loan, error)
	RecordPayment(ctx context.Context, p models.Payment) (*models.Payment, *models.Loan, error)
	MarkMonthlyPaid(ctx context.Context, id string, paidAt time.Time) (*models.MonthlyPayment, error)
}

// parseDate reads a YYYY-MM-DD flag value as UTC midnight. An empty value
// yields the zero time so the ledger falls back to its clock.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q, want YYYY-MM-DD", common.ErrValidation, s)
	}
	return t, nil
}

func parseLoanSource(s string) (models.LoanSource, error) {
	switch src := models.LoanSource(strings.ToUpper(s)); src {
	case models.LoanSourceCaixa, models.LoanSourceInvestimento:
		return src, nil
	}
	return "", fmt.Errorf("%w: unknown loan source %q", common.ErrValidation, s)
}

func newLedgerCmd(ledger func() ledgerOps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Record clients, loans and payments in the local store",
		Long: `Write loan records into the local store. Every change is marked pending
and uploaded by the next sync.

Example usage:
  loansync ledger add-client "Joao Silva" --document 123.456.789-00
  loansync ledger add-loan 3f2a... --amount 1000 --rate 0.05 --source caixa
  loansync ledger pay 9c1d... --interest 50 --principal 200
  loansync ledger mark-paid 42 --date 2026-05-10`,
	}

	addClient := &cobra.Command{
		Use:   "add-client <name>",
		Short: "Add a client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			document, _ := cmd.Flags().GetString("document")
			phone, _ := cmd.Flags().GetString("phone")

			c, err := ledger().AddClient(cmd.Context(), models.Client{Name: args[0], Document: document, Phone: phone})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "client %s added\n", c.ID)
			return nil
		},
	}
	addClient.Flags().String("document", "", "client document number")
	addClient.Flags().String("phone", "", "client phone")

	addLoan := &cobra.Command{
		Use:   "add-loan <client-id>",
		Short: "Open a loan for a client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, _ := cmd.Flags().GetFloat64("amount")
			rate, _ := cmd.Flags().GetFloat64("rate")
			sourceFlag, _ := cmd.Flags().GetString("source")
			startFlag, _ := cmd.Flags().GetString("start")

			source, err := parseLoanSource(sourceFlag)
			if err != nil {
				return err
			}
			start, err := parseDate(startFlag)
			if err != nil {
				return err
			}

			l, err := ledger().AddLoan(cmd.Context(), models.Loan{
				ClientID: args[0], Amount: amount, InterestRate: rate, Source: source, StartDate: start,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "loan %s added: balance %.2f\n", l.ID, l.RemainingBalance)
			return nil
		},
	}
	addLoan.Flags().Float64("amount", 0, "loan amount")
	addLoan.Flags().Float64("rate", 0, "monthly interest rate")
	addLoan.Flags().String("source", string(models.LoanSourceCaixa), "funding source: caixa or investimento")
	addLoan.Flags().String("start", "", "start date (YYYY-MM-DD), defaults to today")

	pay := &cobra.Command{
		Use:   "pay <loan-id>",
		Short: "Record a payment against a loan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			interest, _ := cmd.Flags().GetFloat64("interest")
			principal, _ := cmd.Flags().GetFloat64("principal")
			dateFlag, _ := cmd.Flags().GetString("date")

			date, err := parseDate(dateFlag)
			if err != nil {
				return err
			}

			p, l, err := ledger().RecordPayment(cmd.Context(), models.Payment{
				LoanID: args[0], InterestAmount: interest, PrincipalAmount: principal, Date: date,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "payment %s recorded: %s %.2f, loan %s balance %.2f (%s)\n",
				p.ID, p.PaymentType, p.TotalAmount, l.ID, l.RemainingBalance, l.Status)
			return nil
		},
	}
	pay.Flags().Float64("interest", 0, "interest part")
	pay.Flags().Float64("principal", 0, "principal part")
	pay.Flags().String("date", "", "payment date (YYYY-MM-DD), defaults to now")

	markPaid := &cobra.Command{
		Use:   "mark-paid <monthly-payment-id>",
		Short: "Flag a monthly installment as paid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dateFlag, _ := cmd.Flags().GetString("date")
			paidAt, err := parseDate(dateFlag)
			if err != nil {
				return err
			}

			m, err := ledger().MarkMonthlyPaid(cmd.Context(), args[0], paidAt)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "monthly payment %s paid, %d days overdue\n", m.ID, m.DaysOverdue)
			return nil
		},
	}
	markPaid.Flags().String("date", "", "paid date (YYYY-MM-DD), defaults to now")

	cmd.AddCommand(addClient, addLoan, pay, markPaid)
	return cmd
}

func init() {
	rootCmd.AddCommand(newLedgerCmd(func() ledgerOps { return current.app.Ledger() }))
}
