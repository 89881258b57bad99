/*
delinquency.go - Consecutive-unpaid scan and restriction verdict

PURPOSE:
  Determines whether a resident should be restricted from amenity use.
  The rule: N consecutive unpaid months immediately before the current
  month trigger restriction (product default N=5).

SCAN DIRECTION:
  Backward from the month before the current month toward January. The scan
  breaks at the first paid month: an older unpaid stretch that was since
  cleared does not count.

FAIL-OPEN:
  A nil ledger, a ledger for another year, or a ledger with no activity
  yields MustRestrict=false. Missing data never locks a resident out.

YEAR BOUNDARY:
  The lookback is limited to the ledger's own year. In January there are no
  prior months to scan, so the verdict is never restrictive; prior-year
  balances do not carry in.

SEE ALSO:
  - ledger.go: Produces the YearLedger consumed here
  - booking/service.go: Uses the verdict to gate reservation creation
*/
package dues

import (
	"time"

	"github.com/verdant/community-engine/engine"
)

// ComputeDelinquency derives the restriction verdict from a reconciled
// ledger. restrictAfter is the consecutive-unpaid threshold; values < 1 fall
// back to DefaultRestrictAfter.
//
// Only the ledger for the current year is meaningful; anything else fails
// open.
func ComputeDelinquency(ledger *YearLedger, today engine.TimePoint, restrictAfter int) DelinquencyVerdict {
	if restrictAfter < 1 {
		restrictAfter = DefaultRestrictAfter
	}

	verdict := DelinquencyVerdict{}
	if ledger == nil || ledger.Year != today.Year() {
		return verdict
	}

	currentMonth := int(today.Month())

	// Backward scan: month before current, down to January. Break at the
	// first paid month.
	for m := currentMonth - 1; m >= 1; m-- {
		entry := ledger.Entry(time.Month(m))
		if entry.Balance.IsPositive() {
			verdict.ConsecutiveUnpaid++
			continue
		}
		break
	}
	verdict.MustRestrict = verdict.ConsecutiveUnpaid >= restrictAfter

	// Forward pass: every unpaid month strictly before the current one, with
	// the incremental amount each contributes to the carried balance. The
	// current month is still accruing and is not yet owed.
	for m := 1; m < currentMonth; m++ {
		entry := ledger.Entry(time.Month(m))
		if !entry.Balance.IsPositive() {
			continue
		}
		verdict.UnpaidMonths = append(verdict.UnpaidMonths, entry.Month)
		verdict.MonthsDue = append(verdict.MonthsDue, MonthDue{
			Month:  entry.Month,
			Amount: entry.Balance.Sub(entry.PreviousBalance),
		})
	}

	return verdict
}
