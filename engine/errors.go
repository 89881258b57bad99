/*
errors.go - Centralized error types for the community engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages wrap these errors with additional context.

ERROR CATEGORIES:
  1. Validation errors - Malformed input (intervals, amounts)
  2. Conflict errors   - Slot already taken, duplicate payment
  3. Not-found errors  - Missing resident/reservation/rate

FAIL-OPEN NOTE:
  A resident with no ledger data is NOT an error. Delinquency checks fail
  open (no restriction) so missing data never locks a resident out.

USAGE:
  Domain packages wrap the sentinels:

    if errors.Is(err, engine.ErrSlotConflict) {
        // render as a form validation message
    }

SEE ALSO:
  - booking/conflict.go: Returns SlotConflictError
  - dues/ledger.go: Returns InvalidAmountError
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidInterval is returned when a reservation's end time is not
	// strictly after its start time.
	ErrInvalidInterval = errors.New("invalid interval: end must be after start")

	// ErrInvalidAmount is returned for negative payments, non-positive dues,
	// or malformed pricing inputs.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrSlotConflict is returned when a candidate slot overlaps an existing
	// pending or approved reservation.
	ErrSlotConflict = errors.New("slot conflict")

	// ErrInvalidTransition is returned for a disallowed reservation status
	// change (e.g. approving a cancelled reservation).
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrRateNotFound is returned when the rate table has no entry for an
	// amenity. Pricing never silently defaults to zero.
	ErrRateNotFound = errors.New("rate not found for amenity")

	// ErrResidentNotFound is returned when a referenced resident doesn't exist.
	ErrResidentNotFound = errors.New("resident not found")

	// ErrReservationNotFound is returned when a referenced reservation doesn't exist.
	ErrReservationNotFound = errors.New("reservation not found")

	// ErrDuplicateIdempotencyKey is returned when a payment with the same
	// idempotency key already exists. Expected behavior for retries.
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")

	// ErrResidentRestricted is returned when a delinquent resident attempts
	// to create a reservation.
	ErrResidentRestricted = errors.New("resident restricted for unpaid dues")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidIntervalError reports a malformed [Start, End) slot.
type InvalidIntervalError struct {
	Start TimeOfDay
	End   TimeOfDay
}

func (e *InvalidIntervalError) Error() string {
	return fmt.Sprintf("invalid interval [%s, %s): end must be after start", e.Start, e.End)
}

func (e *InvalidIntervalError) Unwrap() error { return ErrInvalidInterval }

// InvalidAmountError reports a rejected currency value.
type InvalidAmountError struct {
	Field string
	Value Amount
}

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("invalid amount for %s: %s", e.Field, e.Value)
}

func (e *InvalidAmountError) Unwrap() error { return ErrInvalidAmount }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInterval) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidTransition)
}

// IsConflict returns true if the error indicates a slot, duplicate, or
// restriction conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrSlotConflict) ||
		errors.Is(err, ErrResidentRestricted) ||
		errors.Is(err, ErrDuplicateIdempotencyKey)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrResidentNotFound) ||
		errors.Is(err, ErrReservationNotFound) ||
		errors.Is(err, ErrRateNotFound)
}
