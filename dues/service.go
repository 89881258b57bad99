/*
service.go - Payment posting and ledger queries over a store

PURPOSE:
  Orchestrates the dues lifecycle: record payments, load a year's records,
  reconcile, and answer delinquency checks. The computation itself lives in
  ledger.go / delinquency.go; this layer adds persistence and policy.

SERIALIZATION:
  Idempotency-key checks must not interleave with payment inserts. Both
  store implementations serialize their write paths with an internal lock;
  this service assumes a single engine process per store.

SEE ALSO:
  - store/memory: In-memory PaymentStore
  - store/sqlite: SQLite PaymentStore
*/
package dues

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

// PaymentStore persists payments and serves per-month aggregates.
// Payments are append-only; a posted payment is never edited.
type PaymentStore interface {
	// AppendPayment persists a payment. Fails with ErrDuplicateIdempotencyKey
	// if the key was already used.
	AppendPayment(ctx context.Context, p Payment) error

	// RecordsForYear returns per-month aggregates for a resident's year,
	// month ascending. Months without payments are omitted.
	RecordsForYear(ctx context.Context, residentID engine.ResidentID, year int) ([]MonthlyDueRecord, error)
}

// =============================================================================
// CONFIG
// =============================================================================

// Config carries the dues policy values. Both are deployment configuration,
// not code constants.
type Config struct {
	// MonthlyDue is the fixed base due per month.
	MonthlyDue engine.Amount

	// RestrictAfter is the consecutive-unpaid threshold for restriction.
	RestrictAfter int
}

// =============================================================================
// SERVICE
// =============================================================================

// Service answers ledger and delinquency queries and posts payments.
type Service struct {
	Store  PaymentStore
	Config Config
	Clock  engine.Clock
}

func NewService(store PaymentStore, cfg Config, clock engine.Clock) *Service {
	if clock == nil {
		clock = engine.SystemClock{}
	}
	return &Service{Store: store, Config: cfg, Clock: clock}
}

// PostPayment validates and records a payment against a (resident, year,
// month). A zero ID is assigned; a zero PostedAt is stamped.
func (s *Service) PostPayment(ctx context.Context, p Payment) (Payment, error) {
	if !p.Amount.IsPositive() {
		return Payment{}, &engine.InvalidAmountError{Field: "amount", Value: p.Amount}
	}
	if p.Month < time.January || p.Month > time.December {
		return Payment{}, fmt.Errorf("month out of range: %d", p.Month)
	}
	if p.ResidentID == "" {
		return Payment{}, engine.ErrResidentNotFound
	}

	if p.ID == "" {
		p.ID = engine.PaymentID(uuid.NewString())
	}
	if p.PostedAt.IsZero() {
		p.PostedAt = time.Now().UTC()
	}

	if err := s.Store.AppendPayment(ctx, p); err != nil {
		return Payment{}, fmt.Errorf("failed to record payment: %w", err)
	}
	return p, nil
}

// YearLedger loads and reconciles a resident's year.
func (s *Service) YearLedger(ctx context.Context, residentID engine.ResidentID, year int) (*YearLedger, error) {
	records, err := s.Store.RecordsForYear(ctx, residentID, year)
	if err != nil {
		return nil, fmt.Errorf("failed to load payment records: %w", err)
	}
	return ComputeYearLedger(records, residentID, year, s.Config.MonthlyDue, s.Clock.Today())
}

// Delinquency reconciles the current year and derives the verdict.
func (s *Service) Delinquency(ctx context.Context, residentID engine.ResidentID) (DelinquencyVerdict, error) {
	today := s.Clock.Today()
	ledger, err := s.YearLedger(ctx, residentID, today.Year())
	if err != nil {
		return DelinquencyVerdict{}, err
	}
	return ComputeDelinquency(ledger, today, s.Config.RestrictAfter), nil
}

// MustRestrict reports whether the resident is currently gated from amenity
// use. Implements booking.Restrictor.
func (s *Service) MustRestrict(ctx context.Context, residentID engine.ResidentID) (bool, error) {
	verdict, err := s.Delinquency(ctx, residentID)
	if err != nil {
		return false, err
	}
	return verdict.MustRestrict, nil
}
