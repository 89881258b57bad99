/*
Package booking implements amenity reservation validation and lifecycle.

PURPOSE:
  Guards amenity time slots: two reservations for the same amenity and date
  with overlapping [start, end) ranges cannot both be pending or approved.
  Also prices reservations from a caller-supplied rate table and drives the
  status state machine.

KEY CONCEPTS:
  - Reservation: one amenity booking with a status and payment state
  - Candidate:   a proposed slot to validate before a reservation exists
  - RateTable:   amenity -> hourly rate + guest surcharge policy

SEE ALSO:
  - conflict.go: CheckConflict
  - pricing.go: ComputeAmountDue
  - service.go: Create/Approve/Reject/Cancel over a ReservationStore
*/
package booking

import (
	"time"

	"github.com/verdant/community-engine/engine"
)

// =============================================================================
// AMENITY
// =============================================================================

// Amenity identifies a bookable community resource. The set is open; these
// are the amenities of the reference community.
type Amenity string

const (
	AmenityCourt       Amenity = "court"
	AmenityGazebo      Amenity = "gazebo"
	AmenityParkingArea Amenity = "parking_area"
	AmenityClubhouse   Amenity = "clubhouse"
)

// =============================================================================
// STATUS STATE MACHINES
// =============================================================================

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

// CanTransitionTo enforces the reservation lifecycle:
// pending -> approved | rejected | cancelled; approved -> cancelled;
// rejected and cancelled are terminal.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusApproved || next == StatusRejected || next == StatusCancelled
	case StatusApproved:
		return next == StatusCancelled
	default:
		return false
	}
}

// BlocksSlot reports whether a reservation in this status participates in
// conflict checks. Rejected and cancelled reservations free their slot
// immediately.
func (s Status) BlocksSlot() bool {
	return s == StatusPending || s == StatusApproved
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

// =============================================================================
// RESERVATION
// =============================================================================

// Reservation is one amenity booking. Start/End form a half-open interval
// [Start, End) on Date; back-to-back bookings at the exact boundary do not
// conflict.
type Reservation struct {
	ID         engine.ReservationID
	ResidentID engine.ResidentID
	Amenity    Amenity
	Date       engine.TimePoint
	Start      engine.TimeOfDay
	End        engine.TimeOfDay
	GuestCount int

	Status Status

	AmountToPay   engine.Amount
	AmountPaid    engine.Amount
	PaymentStatus PaymentStatus

	Purpose         string
	ApprovedBy      *string
	RejectionReason *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DurationMinutes returns the slot length in minutes.
func (r *Reservation) DurationMinutes() int {
	return r.Start.MinutesUntil(r.End)
}

// Candidate is a proposed slot, validated before any Reservation exists.
type Candidate struct {
	Amenity Amenity
	Date    engine.TimePoint
	Start   engine.TimeOfDay
	End     engine.TimeOfDay
}
