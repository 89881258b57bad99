/*
ledger.go - Year ledger reconciliation

PURPOSE:
  ComputeYearLedger folds a year's payment records left-to-right into 12
  reconciled MonthEntries. This is the single source of truth for balances;
  nothing stores a balance column that could drift out of sync.

SEQUENTIAL DEPENDENCY:
  Month m's TotalRequired includes month m-1's Balance, so the fold always
  starts at January. Whenever any month's payments change, the whole year is
  recomputed.

PURITY:
  No I/O, no clock reads. "Today" is injected so overdue flags are
  deterministic under test.

SEE ALSO:
  - delinquency.go: Consumes the ledger produced here
  - service.go: Loads records from a PaymentStore and calls this
*/
package dues

import (
	"fmt"
	"time"

	"github.com/verdant/community-engine/engine"
)

// ComputeYearLedger reconciles a resident's year from raw per-month records.
//
// Records for months with no payments may be omitted; they are treated as
// TotalPaid = 0. Records outside the requested year are ignored. Duplicate
// records for the same month are summed.
//
// monthlyDue is the fixed base due per month and must be positive. It is a
// policy value owned by the caller, not a package constant, so a dues change
// never requires recompiling the engine.
//
// Returns InvalidAmountError for a negative TotalPaid.
func ComputeYearLedger(
	records []MonthlyDueRecord,
	residentID engine.ResidentID,
	year int,
	monthlyDue engine.Amount,
	today engine.TimePoint,
) (*YearLedger, error) {
	if !monthlyDue.IsPositive() {
		return nil, &engine.InvalidAmountError{Field: "monthlyDue", Value: monthlyDue}
	}

	// Aggregate raw records into one paid total per month.
	paid := [12]engine.Amount{}
	for i := range paid {
		paid[i] = engine.ZeroAmount()
	}
	for _, r := range records {
		if r.Year != year {
			continue
		}
		if r.Month < time.January || r.Month > time.December {
			return nil, fmt.Errorf("record for %s/%d: month out of range: %d", residentID, year, r.Month)
		}
		if r.TotalPaid.IsNegative() {
			return nil, &engine.InvalidAmountError{Field: "totalPaid", Value: r.TotalPaid}
		}
		paid[int(r.Month)-1] = paid[int(r.Month)-1].Add(r.TotalPaid)
	}

	ledger := &YearLedger{ResidentID: residentID, Year: year}

	previousBalance := engine.ZeroAmount()
	for m := 0; m < 12; m++ {
		month := time.Month(m + 1)
		totalRequired := monthlyDue.Add(previousBalance)
		totalPaid := paid[m]

		balance := totalRequired.Sub(totalPaid).Max(engine.ZeroAmount())
		advance := totalPaid.Sub(totalRequired).Max(engine.ZeroAmount())

		ledger.Months[m] = MonthEntry{
			Month:           month,
			RequiredAmount:  monthlyDue,
			PreviousBalance: previousBalance,
			TotalRequired:   totalRequired,
			TotalPaid:       totalPaid,
			Balance:         balance,
			AdvancePayment:  advance,
			IsPaid:          balance.IsZero(),
			IsOverdue:       isOverdue(balance, year, month, today),
		}

		previousBalance = balance
	}

	return ledger, nil
}

// isOverdue: a month is overdue when it carries a balance and lies in the
// past. Future years are never overdue; in past years every month is.
func isOverdue(balance engine.Amount, year int, month time.Month, today engine.TimePoint) bool {
	if !balance.IsPositive() {
		return false
	}
	switch {
	case year > today.Year():
		return false
	case year < today.Year():
		return true
	default:
		return month < today.Month()
	}
}
