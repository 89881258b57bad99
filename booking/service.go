/*
service.go - Reservation lifecycle over a store

PURPOSE:
  Drives reservations through their lifecycle:
  1. Create:  validate slot, check conflicts, optionally gate on dues
  2. Approve: recheck the slot, compute the payment obligation
  3. Reject / Cancel: release the slot

RESERVATION FLOW:
  requester submits -> pending -> staff approves -> approved
                               -> staff rejects  -> rejected
        requester/staff cancels before the date  -> cancelled

  Only pending and approved reservations hold their slot.

DELINQUENCY GATE:
  When a Restrictor is configured, residents with a restrictive dues verdict
  cannot create reservations. This is the account-restriction behavior of
  the community portal expressed as a service dependency.

SERIALIZATION:
  "Check conflict, then create" must not interleave for the same (amenity,
  date). Creation goes through the store's CreateIfFree, which runs the
  conflict check and the insert under one lock, so two concurrent requests
  cannot both observe a free slot. This assumes a single engine process per
  store.

SEE ALSO:
  - conflict.go: The pure conflict check
  - pricing.go: The payment quote applied on approval
  - dues/service.go: The Restrictor implementation
*/
package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/verdant/community-engine/engine"
)

// =============================================================================
// STORE INTERFACE
// =============================================================================

// ReservationStore persists reservations.
type ReservationStore interface {
	// CreateIfFree atomically checks the reservation's slot and inserts it
	// when no pending or approved reservation overlaps. The returned slice
	// names the blocking reservations; the insert happens only when it is
	// empty. Check and insert run under one lock.
	CreateIfFree(ctx context.Context, r Reservation) ([]Reservation, error)

	// SaveReservation inserts a reservation without checking its slot.
	SaveReservation(ctx context.Context, r Reservation) error

	// UpdateReservation replaces an existing reservation by ID.
	// Returns ErrReservationNotFound for an unknown ID.
	UpdateReservation(ctx context.Context, r Reservation) error

	// GetReservation returns a reservation by ID, or ErrReservationNotFound.
	GetReservation(ctx context.Context, id engine.ReservationID) (Reservation, error)

	// ReservationsForSlot returns all reservations for an amenity on a date,
	// any status.
	ReservationsForSlot(ctx context.Context, amenity Amenity, date engine.TimePoint) ([]Reservation, error)

	// ReservationsByResident returns a resident's reservations, newest first.
	ReservationsByResident(ctx context.Context, residentID engine.ResidentID) ([]Reservation, error)
}

// Restrictor answers whether a resident is gated from amenity use.
// dues.Service implements this.
type Restrictor interface {
	MustRestrict(ctx context.Context, residentID engine.ResidentID) (bool, error)
}

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// SlotConflictError reports which reservations block a candidate slot.
type SlotConflictError struct {
	Candidate       Candidate
	ConflictingWith []Reservation
}

func (e *SlotConflictError) Error() string {
	return fmt.Sprintf("slot conflict: %s on %s [%s, %s) overlaps %d reservation(s)",
		e.Candidate.Amenity, e.Candidate.Date, e.Candidate.Start, e.Candidate.End,
		len(e.ConflictingWith))
}

func (e *SlotConflictError) Unwrap() error { return engine.ErrSlotConflict }

// =============================================================================
// SERVICE
// =============================================================================

// Service orchestrates the reservation lifecycle.
type Service struct {
	Store      ReservationStore
	Rates      RateTable
	Restrictor Restrictor // nil disables the dues gate
	Clock      engine.Clock
}

func NewService(store ReservationStore, rates RateTable, restrictor Restrictor, clock engine.Clock) *Service {
	if clock == nil {
		clock = engine.SystemClock{}
	}
	return &Service{Store: store, Rates: rates, Restrictor: restrictor, Clock: clock}
}

// CheckAvailability runs the conflict check for a candidate slot against the
// store, without creating anything.
func (s *Service) CheckAvailability(ctx context.Context, candidate Candidate) (ConflictResult, error) {
	existing, err := s.Store.ReservationsForSlot(ctx, candidate.Amenity, candidate.Date)
	if err != nil {
		return ConflictResult{}, fmt.Errorf("failed to load reservations: %w", err)
	}
	return CheckConflict(candidate, existing)
}

// Quote returns the amount a reservation of the given shape would owe.
func (s *Service) Quote(ctx context.Context, amenity Amenity, durationMinutes, guestCount int) (engine.Amount, error) {
	return ComputeAmountDue(amenity, durationMinutes, guestCount, s.Rates)
}

// Create validates and persists a pending reservation.
//
// Validation order: resident restriction first (the requester learns about
// their dues before slot haggling), then interval, then conflicts. The quoted
// amount is computed up front so the requester sees the obligation, but
// payment is only owed once approved.
func (s *Service) Create(ctx context.Context, r Reservation) (Reservation, error) {
	if r.ResidentID == "" {
		return Reservation{}, engine.ErrResidentNotFound
	}

	if s.Restrictor != nil {
		restricted, err := s.Restrictor.MustRestrict(ctx, r.ResidentID)
		if err != nil {
			return Reservation{}, fmt.Errorf("failed to check dues restriction: %w", err)
		}
		if restricted {
			return Reservation{}, engine.ErrResidentRestricted
		}
	}

	if !r.Start.Before(r.End) {
		return Reservation{}, &engine.InvalidIntervalError{Start: r.Start, End: r.End}
	}

	amount, err := ComputeAmountDue(r.Amenity, r.DurationMinutes(), r.GuestCount, s.Rates)
	if err != nil {
		return Reservation{}, err
	}

	now := time.Now().UTC()
	if r.ID == "" {
		r.ID = engine.ReservationID(uuid.NewString())
	}
	r.Status = StatusPending
	r.AmountToPay = amount
	r.AmountPaid = engine.ZeroAmount()
	r.PaymentStatus = PaymentPending
	r.CreatedAt = now
	r.UpdatedAt = now

	// Check-and-insert is a single store operation so a concurrent request
	// for an overlapping slot cannot slip between the two.
	conflicting, err := s.Store.CreateIfFree(ctx, r)
	if err != nil {
		return Reservation{}, fmt.Errorf("failed to save reservation: %w", err)
	}
	if len(conflicting) > 0 {
		candidate := Candidate{Amenity: r.Amenity, Date: r.Date, Start: r.Start, End: r.End}
		return Reservation{}, &SlotConflictError{Candidate: candidate, ConflictingWith: conflicting}
	}
	return r, nil
}

// Approve transitions a pending reservation to approved. The slot is
// rechecked: a second pending request for an overlapping slot may have been
// created before this one was decided, and only one of them may be approved.
// The payment obligation is recomputed from the current rate table.
func (s *Service) Approve(ctx context.Context, id engine.ReservationID, approverID string) (Reservation, error) {
	r, err := s.Store.GetReservation(ctx, id)
	if err != nil {
		return Reservation{}, err
	}
	if !r.Status.CanTransitionTo(StatusApproved) {
		return Reservation{}, fmt.Errorf("%w: %s -> %s", engine.ErrInvalidTransition, r.Status, StatusApproved)
	}

	existing, err := s.Store.ReservationsForSlot(ctx, r.Amenity, r.Date)
	if err != nil {
		return Reservation{}, fmt.Errorf("failed to load reservations: %w", err)
	}
	candidate := Candidate{Amenity: r.Amenity, Date: r.Date, Start: r.Start, End: r.End}
	others := make([]Reservation, 0, len(existing))
	for _, o := range existing {
		if o.ID != r.ID && o.Status == StatusApproved {
			others = append(others, o)
		}
	}
	result, err := CheckConflict(candidate, others)
	if err != nil {
		return Reservation{}, err
	}
	if result.Conflict {
		return Reservation{}, &SlotConflictError{Candidate: candidate, ConflictingWith: result.ConflictingWith}
	}

	amount, err := ComputeAmountDue(r.Amenity, r.DurationMinutes(), r.GuestCount, s.Rates)
	if err != nil {
		return Reservation{}, err
	}

	r.Status = StatusApproved
	r.AmountToPay = amount
	r.ApprovedBy = &approverID
	r.UpdatedAt = time.Now().UTC()

	if err := s.Store.UpdateReservation(ctx, r); err != nil {
		return Reservation{}, err
	}
	return r, nil
}

// Reject transitions a pending reservation to rejected, freeing its slot.
func (s *Service) Reject(ctx context.Context, id engine.ReservationID, reason string) (Reservation, error) {
	r, err := s.Store.GetReservation(ctx, id)
	if err != nil {
		return Reservation{}, err
	}
	if !r.Status.CanTransitionTo(StatusRejected) {
		return Reservation{}, fmt.Errorf("%w: %s -> %s", engine.ErrInvalidTransition, r.Status, StatusRejected)
	}

	r.Status = StatusRejected
	r.RejectionReason = &reason
	r.UpdatedAt = time.Now().UTC()

	if err := s.Store.UpdateReservation(ctx, r); err != nil {
		return Reservation{}, err
	}
	return r, nil
}

// Cancel transitions a pending or approved reservation to cancelled. A paid
// reservation is marked refunded; actually moving money back is owed by the
// payment collaborator, not this engine.
func (s *Service) Cancel(ctx context.Context, id engine.ReservationID) (Reservation, error) {
	r, err := s.Store.GetReservation(ctx, id)
	if err != nil {
		return Reservation{}, err
	}
	if !r.Status.CanTransitionTo(StatusCancelled) {
		return Reservation{}, fmt.Errorf("%w: %s -> %s", engine.ErrInvalidTransition, r.Status, StatusCancelled)
	}
	if !s.Clock.Today().Before(r.Date) {
		return Reservation{}, fmt.Errorf("%w: cancellation is only allowed before the reservation date", engine.ErrInvalidTransition)
	}

	r.Status = StatusCancelled
	if r.PaymentStatus == PaymentPaid {
		r.PaymentStatus = PaymentRefunded
	}
	r.UpdatedAt = time.Now().UTC()

	if err := s.Store.UpdateReservation(ctx, r); err != nil {
		return Reservation{}, err
	}
	return r, nil
}

// RecordPayment marks an approved reservation paid.
func (s *Service) RecordPayment(ctx context.Context, id engine.ReservationID, amount engine.Amount) (Reservation, error) {
	if !amount.IsPositive() {
		return Reservation{}, &engine.InvalidAmountError{Field: "amount", Value: amount}
	}

	r, err := s.Store.GetReservation(ctx, id)
	if err != nil {
		return Reservation{}, err
	}
	if r.Status != StatusApproved {
		return Reservation{}, fmt.Errorf("%w: payment requires an approved reservation", engine.ErrInvalidTransition)
	}

	r.AmountPaid = r.AmountPaid.Add(amount)
	if !r.AmountPaid.LessThan(r.AmountToPay) {
		r.PaymentStatus = PaymentPaid
	}
	r.UpdatedAt = time.Now().UTC()

	if err := s.Store.UpdateReservation(ctx, r); err != nil {
		return Reservation{}, err
	}
	return r, nil
}
