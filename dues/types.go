/*
Package dues implements monthly-dues ledger reconciliation.

PURPOSE:
  Computes a resident's per-month balance for a year using carry-forward:
  unpaid balance from one month is added to the required amount of the next.
  The resulting ledger feeds a delinquency verdict that gates amenity access.

KEY CONCEPTS:
  - MonthlyDueRecord: raw input, payments posted against one (year, month)
  - YearLedger: 12 reconciled entries, January through December
  - DelinquencyVerdict: consecutive-unpaid scan result used for restriction

CARRY-FORWARD:
  Month m's required total = base due + month m-1's balance. The whole year
  is recomputed from January on every query: every later month depends on
  every earlier month's outcome, so no partial recomputation is valid.

SEE ALSO:
  - ledger.go: ComputeYearLedger
  - delinquency.go: ComputeDelinquency
  - service.go: Payment posting over a PaymentStore
*/
package dues

import (
	"time"

	"github.com/verdant/community-engine/engine"
)

// =============================================================================
// RAW INPUT - Payments aggregated per month
// =============================================================================

// MonthlyDueRecord is the raw per-month input: the sum of all payments posted
// against one (resident, year, month). Months with no record are treated as
// unpaid. Multiple records for the same month are summed.
type MonthlyDueRecord struct {
	ResidentID engine.ResidentID
	Year       int
	Month      time.Month
	TotalPaid  engine.Amount
}

// Payment is a single posted payment. The store aggregates payments into
// MonthlyDueRecords; the ledger computation never sees individual payments.
type Payment struct {
	ID             engine.PaymentID
	ResidentID     engine.ResidentID
	Year           int
	Month          time.Month
	Amount         engine.Amount
	Reference      string // receipt number, transfer reference
	IdempotencyKey string
	PostedAt       time.Time
}

// =============================================================================
// YEAR LEDGER - Reconciled output
// =============================================================================

// MonthEntry is one reconciled month in a YearLedger.
//
// INVARIANT: Balance and AdvancePayment are never both positive.
type MonthEntry struct {
	Month time.Month

	// RequiredAmount is the fixed base due for the month.
	RequiredAmount engine.Amount

	// PreviousBalance is the balance carried in from the prior month
	// (zero for January).
	PreviousBalance engine.Amount

	// TotalRequired = RequiredAmount + PreviousBalance.
	TotalRequired engine.Amount

	TotalPaid engine.Amount

	// Balance = max(0, TotalRequired - TotalPaid). Carried into next month.
	Balance engine.Amount

	// AdvancePayment = max(0, TotalPaid - TotalRequired). Credit beyond what
	// was owed; it reduces next month's effective shortfall because next
	// month's PreviousBalance is zero.
	AdvancePayment engine.Amount

	// IsPaid is true when the month's carried-in total is fully covered.
	IsPaid bool

	// IsOverdue is true when the month still carries a balance and the month
	// is in the past relative to the injected "today".
	IsOverdue bool
}

// YearLedger is the reconciled sequence of 12 MonthEntries for one
// resident/year, chronological, carry-forward strictly sequential. Year
// boundaries are independent: January's previous balance is always zero.
type YearLedger struct {
	ResidentID engine.ResidentID
	Year       int
	Months     [12]MonthEntry // index 0 = January
}

// Entry returns the entry for a 1-indexed month.
func (l *YearLedger) Entry(month time.Month) MonthEntry {
	return l.Months[int(month)-1]
}

// ClosingBalance returns December's carried balance.
func (l *YearLedger) ClosingBalance() engine.Amount {
	return l.Months[11].Balance
}

// =============================================================================
// DELINQUENCY VERDICT - Restriction gate
// =============================================================================

// MonthDue is the incremental amount attributable to a single unpaid month:
// the month's balance minus the balance carried into it. Summed over the
// unpaid chain, MonthDue amounts equal the balance carried into the current
// month, so a partial payment can be attributed oldest-month-first.
type MonthDue struct {
	Month  time.Month
	Amount engine.Amount
}

// DelinquencyVerdict is derived, never stored.
type DelinquencyVerdict struct {
	// MustRestrict is true when the consecutive-unpaid count reaches the
	// configured threshold.
	MustRestrict bool

	// ConsecutiveUnpaid counts unpaid months scanning backward from the
	// month before the current one, stopping at the first paid month.
	ConsecutiveUnpaid int

	// UnpaidMonths lists every month before the current one with a positive
	// balance, ascending. The current month is excluded: it is still
	// accruing.
	UnpaidMonths []time.Month

	// MonthsDue carries the incremental amount for each unpaid month.
	MonthsDue []MonthDue
}

// DefaultRestrictAfter is the product default for the consecutive-unpaid
// threshold.
const DefaultRestrictAfter = 5
