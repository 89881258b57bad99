/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements persistence for payments, reservations, and the resident
  registry. In production the same patterns apply to PostgreSQL - only minor
  SQL dialect differences.

INTERFACES IMPLEMENTED:
  dues.PaymentStore:        Append-only payment records
  booking.ReservationStore: Reservation rows with status transitions

APPEND-ONLY PAYMENTS:
  The payments table has no UPDATE or DELETE path. A mistaken payment is
  corrected by posting a compensating entry at the application level, so the
  ledger history stays auditable.

KEY TABLES:
  residents:    Registry rows (id, name, block/lot, email)
  payments:     Immutable dues payments, keyed by (resident, year, month)
  reservations: Amenity bookings with status and payment state

INDEXES:
  idx_payments_resident_year:     Ledger reconciliation (hot path)
  idx_reservations_amenity_date:  Slot conflict checks (hot path)
  idx_reservations_resident:      Per-resident listings

CONCURRENCY:
  Uses sync.Mutex around check-then-write sequences plus SQLite WAL mode.
  CreateIfFree holds the mutex across the conflict check and the insert;
  AppendPayment holds it across the idempotency check and the insert. Two
  concurrent requests cannot both observe a free slot or an unused key.

USAGE:
  store, err := sqlite.New("./data/community.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - dues/service.go: PaymentStore consumer
  - booking/service.go: ReservationStore consumer
  - store/memory: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/verdant/community-engine/booking"
	"github.com/verdant/community-engine/dues"
	"github.com/verdant/community-engine/engine"
)

// Store implements the storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Residents (registry)
	CREATE TABLE IF NOT EXISTS residents (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		block_lot TEXT NOT NULL,
		email TEXT,
		created_at TEXT NOT NULL
	);

	-- Payments (append-only)
	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		resident_id TEXT NOT NULL,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL CHECK (month BETWEEN 1 AND 12),
		amount TEXT NOT NULL,
		reference TEXT,
		idempotency_key TEXT UNIQUE,
		posted_at TEXT NOT NULL
	);

	-- Ledger reconciliation loads a whole (resident, year) at once (hot path)
	CREATE INDEX IF NOT EXISTS idx_payments_resident_year
		ON payments(resident_id, year, month);
	CREATE INDEX IF NOT EXISTS idx_payments_idempotency
		ON payments(idempotency_key) WHERE idempotency_key IS NOT NULL;

	-- Reservations
	CREATE TABLE IF NOT EXISTS reservations (
		id TEXT PRIMARY KEY,
		resident_id TEXT NOT NULL,
		amenity TEXT NOT NULL,
		date TEXT NOT NULL,
		start_minute INTEGER NOT NULL,
		end_minute INTEGER NOT NULL CHECK (end_minute > start_minute),
		guest_count INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		amount_to_pay TEXT NOT NULL,
		amount_paid TEXT NOT NULL,
		payment_status TEXT NOT NULL,
		purpose TEXT,
		approved_by TEXT,
		rejection_reason TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Slot conflict checks load one (amenity, date) at once (hot path)
	CREATE INDEX IF NOT EXISTS idx_reservations_amenity_date
		ON reservations(amenity, date);
	CREATE INDEX IF NOT EXISTS idx_reservations_resident
		ON reservations(resident_id, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_reservations_status
		ON reservations(status);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// RESIDENTS
// =============================================================================

// Resident is a registry row. The full resident/vehicle registry belongs to
// the surrounding application; this store keeps just enough to key payments
// and reservations.
type Resident struct {
	ID        engine.ResidentID
	Name      string
	BlockLot  string
	Email     string
	CreatedAt time.Time
}

func (s *Store) SaveResident(ctx context.Context, r Resident) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO residents (id, name, block_lot, email, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name=excluded.name, block_lot=excluded.block_lot, email=excluded.email`,
		string(r.ID), r.Name, r.BlockLot, r.Email, r.CreatedAt.Format(time.RFC3339))
	return err
}

func (s *Store) GetResident(ctx context.Context, id engine.ResidentID) (Resident, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, block_lot, COALESCE(email, ''), created_at
		FROM residents WHERE id = ?`, string(id))

	var r Resident
	var createdAt string
	if err := row.Scan(&r.ID, &r.Name, &r.BlockLot, &r.Email, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return Resident{}, engine.ErrResidentNotFound
		}
		return Resident{}, err
	}
	r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return r, nil
}

func (s *Store) ListResidents(ctx context.Context) ([]Resident, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, block_lot, COALESCE(email, ''), created_at
		FROM residents ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var residents []Resident
	for rows.Next() {
		var r Resident
		var createdAt string
		if err := rows.Scan(&r.ID, &r.Name, &r.BlockLot, &r.Email, &createdAt); err != nil {
			return nil, err
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		residents = append(residents, r)
	}
	return residents, rows.Err()
}

// =============================================================================
// PAYMENTS - dues.PaymentStore
// =============================================================================

// AppendPayment persists a payment. Append-only: the table has no update path.
func (s *Store) AppendPayment(ctx context.Context, p dues.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.IdempotencyKey != "" {
		var n int
		err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM payments WHERE idempotency_key = ?`, p.IdempotencyKey).Scan(&n)
		if err != nil {
			return err
		}
		if n > 0 {
			return engine.ErrDuplicateIdempotencyKey
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payments (id, resident_id, year, month, amount, reference, idempotency_key, posted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		string(p.ID), string(p.ResidentID), p.Year, int(p.Month), p.Amount.String(),
		p.Reference, nullable(p.IdempotencyKey), p.PostedAt.Format(time.RFC3339))
	return err
}

// RecordsForYear aggregates payments into per-month records, month ascending.
func (s *Store) RecordsForYear(ctx context.Context, residentID engine.ResidentID, year int) ([]dues.MonthlyDueRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT month, amount FROM payments
		WHERE resident_id = ? AND year = ?
		ORDER BY month`, string(residentID), year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := make(map[time.Month]engine.Amount)
	for rows.Next() {
		var month int
		var amount string
		if err := rows.Scan(&month, &amount); err != nil {
			return nil, err
		}
		m := time.Month(month)
		total, ok := totals[m]
		if !ok {
			total = engine.ZeroAmount()
		}
		totals[m] = total.Add(engine.MustParseAmount(amount))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var records []dues.MonthlyDueRecord
	for m := time.January; m <= time.December; m++ {
		if total, ok := totals[m]; ok {
			records = append(records, dues.MonthlyDueRecord{
				ResidentID: residentID,
				Year:       year,
				Month:      m,
				TotalPaid:  total,
			})
		}
	}
	return records, nil
}

// =============================================================================
// RESERVATIONS - booking.ReservationStore
// =============================================================================

// CreateIfFree holds the store lock across the conflict check and the insert
// so two concurrent creates cannot both observe a free slot.
func (s *Store) CreateIfFree(ctx context.Context, r booking.Reservation) ([]booking.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, selectReservation+`
		WHERE amenity = ? AND date = ?`, string(r.Amenity), r.Date.String())
	if err != nil {
		return nil, err
	}
	existing, err := scanReservations(rows)
	rows.Close()
	if err != nil {
		return nil, err
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

	if err := s.insertReservation(ctx, r); err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *Store) SaveReservation(ctx context.Context, r booking.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertReservation(ctx, r)
}

func (s *Store) insertReservation(ctx context.Context, r booking.Reservation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reservations (id, resident_id, amenity, date, start_minute, end_minute,
			guest_count, status, amount_to_pay, amount_paid, payment_status, purpose,
			approved_by, rejection_reason, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(r.ID), string(r.ResidentID), string(r.Amenity), r.Date.String(),
		int(r.Start), int(r.End), r.GuestCount, string(r.Status),
		r.AmountToPay.String(), r.AmountPaid.String(), string(r.PaymentStatus),
		r.Purpose, nullableStringPtr(r.ApprovedBy), nullableStringPtr(r.RejectionReason),
		r.CreatedAt.Format(time.RFC3339), r.UpdatedAt.Format(time.RFC3339))
	return err
}

func (s *Store) UpdateReservation(ctx context.Context, r booking.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE reservations SET status = ?, amount_to_pay = ?, amount_paid = ?,
			payment_status = ?, approved_by = ?, rejection_reason = ?, updated_at = ?
		WHERE id = ?`,
		string(r.Status), r.AmountToPay.String(), r.AmountPaid.String(),
		string(r.PaymentStatus), nullableStringPtr(r.ApprovedBy),
		nullableStringPtr(r.RejectionReason), r.UpdatedAt.Format(time.RFC3339),
		string(r.ID))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return engine.ErrReservationNotFound
	}
	return nil
}

func (s *Store) GetReservation(ctx context.Context, id engine.ReservationID) (booking.Reservation, error) {
	row := s.db.QueryRowContext(ctx, selectReservation+` WHERE id = ?`, string(id))
	r, err := scanReservation(row)
	if err == sql.ErrNoRows {
		return booking.Reservation{}, engine.ErrReservationNotFound
	}
	return r, err
}

func (s *Store) ReservationsForSlot(ctx context.Context, amenity booking.Amenity, date engine.TimePoint) ([]booking.Reservation, error) {
	rows, err := s.db.QueryContext(ctx, selectReservation+`
		WHERE amenity = ? AND date = ? ORDER BY start_minute`,
		string(amenity), date.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReservations(rows)
}

func (s *Store) ReservationsByResident(ctx context.Context, residentID engine.ResidentID) ([]booking.Reservation, error) {
	rows, err := s.db.QueryContext(ctx, selectReservation+`
		WHERE resident_id = ? ORDER BY created_at DESC`, string(residentID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReservations(rows)
}

// =============================================================================
// SCAN HELPERS
// =============================================================================

const selectReservation = `
	SELECT id, resident_id, amenity, date, start_minute, end_minute, guest_count,
		status, amount_to_pay, amount_paid, payment_status, COALESCE(purpose, ''),
		approved_by, rejection_reason, created_at, updated_at
	FROM reservations`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row rowScanner) (booking.Reservation, error) {
	var r booking.Reservation
	var date, amountToPay, amountPaid, createdAt, updatedAt string
	var startMinute, endMinute int
	var approvedBy, rejectionReason sql.NullString

	err := row.Scan(&r.ID, &r.ResidentID, &r.Amenity, &date, &startMinute, &endMinute,
		&r.GuestCount, &r.Status, &amountToPay, &amountPaid, &r.PaymentStatus,
		&r.Purpose, &approvedBy, &rejectionReason, &createdAt, &updatedAt)
	if err != nil {
		return booking.Reservation{}, err
	}

	r.Date, err = engine.ParseDate(date)
	if err != nil {
		return booking.Reservation{}, err
	}
	r.Start = engine.TimeOfDay(startMinute)
	r.End = engine.TimeOfDay(endMinute)
	r.AmountToPay = engine.MustParseAmount(amountToPay)
	r.AmountPaid = engine.MustParseAmount(amountPaid)
	if approvedBy.Valid {
		r.ApprovedBy = &approvedBy.String
	}
	if rejectionReason.Valid {
		r.RejectionReason = &rejectionReason.String
	}
	r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	r.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return r, nil
}

func scanReservations(rows *sql.Rows) ([]booking.Reservation, error) {
	var result []booking.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableStringPtr(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
