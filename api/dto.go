/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers and domain services, not in DTOs.
  DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/verdant/community-engine/booking"
	"github.com/verdant/community-engine/dues"
	"github.com/verdant/community-engine/store/sqlite"
)

// =============================================================================
// RESIDENTS
// =============================================================================

// ResidentDTO represents a resident in API responses.
type ResidentDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	BlockLot  string `json:"block_lot"`
	Email     string `json:"email,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// CreateResidentRequest is the request to register a resident.
type CreateResidentRequest struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	BlockLot string `json:"block_lot"`
	Email    string `json:"email"`
}

// =============================================================================
// DUES
// =============================================================================

// PostPaymentRequest is the request to record a dues payment.
type PostPaymentRequest struct {
	Year           int     `json:"year"`
	Month          int     `json:"month"`
	Amount         float64 `json:"amount"`
	Reference      string  `json:"reference,omitempty"`
	IdempotencyKey string  `json:"idempotency_key,omitempty"`
}

// PaymentDTO represents a recorded payment.
type PaymentDTO struct {
	ID         string  `json:"id"`
	ResidentID string  `json:"resident_id"`
	Year       int     `json:"year"`
	Month      int     `json:"month"`
	Amount     float64 `json:"amount"`
	Reference  string  `json:"reference,omitempty"`
	PostedAt   string  `json:"posted_at"`
}

// MonthEntryDTO represents one reconciled month.
type MonthEntryDTO struct {
	Month           int     `json:"month"`
	RequiredAmount  float64 `json:"required_amount"`
	PreviousBalance float64 `json:"previous_balance"`
	TotalRequired   float64 `json:"total_required"`
	TotalPaid       float64 `json:"total_paid"`
	Balance         float64 `json:"balance"`
	AdvancePayment  float64 `json:"advance_payment"`
	IsPaid          bool    `json:"is_paid"`
	IsOverdue       bool    `json:"is_overdue"`
}

// YearLedgerDTO represents a resident's reconciled year.
type YearLedgerDTO struct {
	ResidentID string          `json:"resident_id"`
	Year       int             `json:"year"`
	Months     []MonthEntryDTO `json:"months"`
}

// MonthDueDTO is one unpaid month's incremental amount.
type MonthDueDTO struct {
	Month  int     `json:"month"`
	Amount float64 `json:"amount"`
}

// DelinquencyDTO represents the restriction verdict.
type DelinquencyDTO struct {
	MustRestrict      bool          `json:"must_restrict"`
	ConsecutiveUnpaid int           `json:"consecutive_unpaid"`
	UnpaidMonths      []int         `json:"unpaid_months"`
	MonthsDue         []MonthDueDTO `json:"months_due"`
}

// =============================================================================
// RESERVATIONS
// =============================================================================

// CreateReservationRequest is the request to book an amenity slot.
type CreateReservationRequest struct {
	ResidentID string `json:"resident_id"`
	Amenity    string `json:"amenity"`
	Date       string `json:"date"`       // YYYY-MM-DD
	StartTime  string `json:"start_time"` // HH:MM
	EndTime    string `json:"end_time"`   // HH:MM
	GuestCount int    `json:"guest_count"`
	Purpose    string `json:"purpose,omitempty"`
}

// ReservationDTO represents a reservation in API responses.
type ReservationDTO struct {
	ID              string  `json:"id"`
	ResidentID      string  `json:"resident_id"`
	Amenity         string  `json:"amenity"`
	Date            string  `json:"date"`
	StartTime       string  `json:"start_time"`
	EndTime         string  `json:"end_time"`
	GuestCount      int     `json:"guest_count"`
	Status          string  `json:"status"`
	AmountToPay     float64 `json:"amount_to_pay"`
	AmountPaid      float64 `json:"amount_paid"`
	PaymentStatus   string  `json:"payment_status"`
	Purpose         string  `json:"purpose,omitempty"`
	ApprovedBy      *string `json:"approved_by,omitempty"`
	RejectionReason *string `json:"rejection_reason,omitempty"`
	CreatedAt       string  `json:"created_at,omitempty"`
}

// AvailabilityResponse reports the conflict check for a candidate slot.
type AvailabilityResponse struct {
	Available       bool             `json:"available"`
	ConflictingWith []ReservationDTO `json:"conflicting_with,omitempty"`
}

// RejectRequest carries the staff rejection reason.
type RejectRequest struct {
	Reason string `json:"reason"`
}

// ApproveRequest identifies the approving staff member.
type ApproveRequest struct {
	ApproverID string `json:"approver_id"`
}

// ReservationPaymentRequest records a payment against an approved reservation.
type ReservationPaymentRequest struct {
	Amount float64 `json:"amount"`
}

// QuoteResponse is the computed amount due for a candidate reservation.
type QuoteResponse struct {
	Amenity         string  `json:"amenity"`
	DurationMinutes int     `json:"duration_minutes"`
	GuestCount      int     `json:"guest_count"`
	AmountDue       float64 `json:"amount_due"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toResidentDTO(r sqlite.Resident) ResidentDTO {
	return ResidentDTO{
		ID:        string(r.ID),
		Name:      r.Name,
		BlockLot:  r.BlockLot,
		Email:     r.Email,
		CreatedAt: r.CreatedAt.Format(time.RFC3339),
	}
}

func toPaymentDTO(p dues.Payment) PaymentDTO {
	return PaymentDTO{
		ID:         string(p.ID),
		ResidentID: string(p.ResidentID),
		Year:       p.Year,
		Month:      int(p.Month),
		Amount:     p.Amount.Float64(),
		Reference:  p.Reference,
		PostedAt:   p.PostedAt.Format(time.RFC3339),
	}
}

func toYearLedgerDTO(l *dues.YearLedger) YearLedgerDTO {
	dto := YearLedgerDTO{
		ResidentID: string(l.ResidentID),
		Year:       l.Year,
		Months:     make([]MonthEntryDTO, 0, 12),
	}
	for _, e := range l.Months {
		dto.Months = append(dto.Months, MonthEntryDTO{
			Month:           int(e.Month),
			RequiredAmount:  e.RequiredAmount.Float64(),
			PreviousBalance: e.PreviousBalance.Float64(),
			TotalRequired:   e.TotalRequired.Float64(),
			TotalPaid:       e.TotalPaid.Float64(),
			Balance:         e.Balance.Float64(),
			AdvancePayment:  e.AdvancePayment.Float64(),
			IsPaid:          e.IsPaid,
			IsOverdue:       e.IsOverdue,
		})
	}
	return dto
}

func toDelinquencyDTO(v dues.DelinquencyVerdict) DelinquencyDTO {
	dto := DelinquencyDTO{
		MustRestrict:      v.MustRestrict,
		ConsecutiveUnpaid: v.ConsecutiveUnpaid,
		UnpaidMonths:      make([]int, 0, len(v.UnpaidMonths)),
		MonthsDue:         make([]MonthDueDTO, 0, len(v.MonthsDue)),
	}
	for _, m := range v.UnpaidMonths {
		dto.UnpaidMonths = append(dto.UnpaidMonths, int(m))
	}
	for _, d := range v.MonthsDue {
		dto.MonthsDue = append(dto.MonthsDue, MonthDueDTO{Month: int(d.Month), Amount: d.Amount.Float64()})
	}
	return dto
}

func toReservationDTO(r booking.Reservation) ReservationDTO {
	return ReservationDTO{
		ID:              string(r.ID),
		ResidentID:      string(r.ResidentID),
		Amenity:         string(r.Amenity),
		Date:            r.Date.String(),
		StartTime:       r.Start.String(),
		EndTime:         r.End.String(),
		GuestCount:      r.GuestCount,
		Status:          string(r.Status),
		AmountToPay:     r.AmountToPay.Float64(),
		AmountPaid:      r.AmountPaid.Float64(),
		PaymentStatus:   string(r.PaymentStatus),
		Purpose:         r.Purpose,
		ApprovedBy:      r.ApprovedBy,
		RejectionReason: r.RejectionReason,
		CreatedAt:       r.CreatedAt.Format(time.RFC3339),
	}
}

func toReservationDTOs(rs []booking.Reservation) []ReservationDTO {
	dtos := make([]ReservationDTO, len(rs))
	for i, r := range rs {
		dtos[i] = toReservationDTO(r)
	}
	return dtos
}
