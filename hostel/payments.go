/*
payments.go - Balance reconstruction from the payment ledger

PURPOSE:
  The student row carries mutable amount_paid/amount_due columns for
  display, but the payment ledger is the audit truth. RunningBalance
  replays the ledger so a balance can always be reconstructed
  independently of the mutable columns. Read-side only; never part of
  the transactional path.
*/
package hostel

import "github.com/shopspring/decimal"

// PaymentSummary is a student's totals by entry kind, replayed from
// the ledger.
type PaymentSummary struct {
	TotalPaid    decimal.Decimal
	TotalCharges decimal.Decimal
	TotalRefunds decimal.Decimal

	// Net is the student's position: money in (payments + refunds owed
	// back to them) minus charges levied. Positive means the ledger has
	// the student ahead of their charges.
	Net decimal.Decimal
}

// RunningBalance folds ledger entries into a summary. Amounts are
// stored positive; kind carries direction.
func RunningBalance(entries []PaymentEntry) PaymentSummary {
	summary := PaymentSummary{
		TotalPaid:    decimal.Zero,
		TotalCharges: decimal.Zero,
		TotalRefunds: decimal.Zero,
		Net:          decimal.Zero,
	}
	for _, e := range entries {
		switch e.Kind {
		case PaymentKindPayment:
			summary.TotalPaid = summary.TotalPaid.Add(e.Amount)
		case PaymentKindCharge:
			summary.TotalCharges = summary.TotalCharges.Add(e.Amount)
		case PaymentKindRefund:
			summary.TotalRefunds = summary.TotalRefunds.Add(e.Amount)
		}
	}
	summary.Net = summary.TotalPaid.Add(summary.TotalRefunds).Sub(summary.TotalCharges)
	return summary
}
