// Package memory provides in-memory store implementations (for testing/dev).
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/verdant/community-engine/booking"
	"github.com/verdant/community-engine/dues"
	"github.com/verdant/community-engine/engine"
)

// =============================================================================
// MEMORY STORE - Implements dues.PaymentStore and booking.ReservationStore
// =============================================================================

type Store struct {
	mu           sync.RWMutex
	payments     map[paymentKey][]dues.Payment
	idempotency  map[string]bool
	reservations map[engine.ReservationID]booking.Reservation
}

type paymentKey struct {
	ResidentID engine.ResidentID
	Year       int
}

func New() *Store {
	return &Store{
		payments:     make(map[paymentKey][]dues.Payment),
		idempotency:  make(map[string]bool),
		reservations: make(map[engine.ReservationID]booking.Reservation),
	}
}

// =============================================================================
// PAYMENTS
// =============================================================================

// AppendPayment records a payment. Append-only.
func (s *Store) AppendPayment(_ context.Context, p dues.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.IdempotencyKey != "" && s.idempotency[p.IdempotencyKey] {
		return engine.ErrDuplicateIdempotencyKey
	}

	k := paymentKey{ResidentID: p.ResidentID, Year: p.Year}
	s.payments[k] = append(s.payments[k], p)
	if p.IdempotencyKey != "" {
		s.idempotency[p.IdempotencyKey] = true
	}
	return nil
}

// RecordsForYear aggregates payments into per-month records, month ascending.
func (s *Store) RecordsForYear(_ context.Context, residentID engine.ResidentID, year int) ([]dues.MonthlyDueRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	totals := make(map[time.Month]engine.Amount)
	for _, p := range s.payments[paymentKey{ResidentID: residentID, Year: year}] {
		total, ok := totals[p.Month]
		if !ok {
			total = engine.ZeroAmount()
		}
		totals[p.Month] = total.Add(p.Amount)
	}

	var records []dues.MonthlyDueRecord
	for month, total := range totals {
		records = append(records, dues.MonthlyDueRecord{
			ResidentID: residentID,
			Year:       year,
			Month:      month,
			TotalPaid:  total,
		})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Month < records[j].Month })
	return records, nil
}

// =============================================================================
// RESERVATIONS
// =============================================================================

// CreateIfFree checks the slot and inserts under one lock: a concurrent
// create for an overlapping slot sees either this reservation or its own
// conflict, never a free slot twice.
func (s *Store) CreateIfFree(_ context.Context, r booking.Reservation) ([]booking.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var existing []booking.Reservation
	for _, o := range s.reservations {
		if o.Amenity == r.Amenity && o.Date.Equal(r.Date) {
			existing = append(existing, o)
		}
	}
	result, err := booking.CheckConflict(booking.Candidate{
		Amenity: r.Amenity, Date: r.Date, Start: r.Start, End: r.End,
	}, existing)
	if err != nil {
		return nil, err
	}
	if result.Conflict {
		return result.ConflictingWith, nil
	}

	s.reservations[r.ID] = r
	return nil, nil
}

func (s *Store) SaveReservation(_ context.Context, r booking.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reservations[r.ID] = r
	return nil
}

func (s *Store) UpdateReservation(_ context.Context, r booking.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reservations[r.ID]; !ok {
		return engine.ErrReservationNotFound
	}
	s.reservations[r.ID] = r
	return nil
}

func (s *Store) GetReservation(_ context.Context, id engine.ReservationID) (booking.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reservations[id]
	if !ok {
		return booking.Reservation{}, engine.ErrReservationNotFound
	}
	return r, nil
}

func (s *Store) ReservationsForSlot(_ context.Context, amenity booking.Amenity, date engine.TimePoint) ([]booking.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []booking.Reservation
	for _, r := range s.reservations {
		if r.Amenity == amenity && r.Date.Equal(date) {
			result = append(result, r)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Start < result[j].Start })
	return result, nil
}

func (s *Store) ReservationsByResident(_ context.Context, residentID engine.ResidentID) ([]booking.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []booking.Reservation
	for _, r := range s.reservations {
		if r.ResidentID == residentID {
			result = append(result, r)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}
