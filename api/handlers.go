/*
handlers.go - HTTP API handlers for the community engine

PURPOSE:
  Exposes the dues ledger and reservation validator via REST. Handles HTTP
  request/response, JSON serialization, and delegates to domain services.

ENDPOINTS:
  Residents:
    GET    /api/residents                     List residents
    POST   /api/residents                     Register resident
    GET    /api/residents/{id}                Get resident
    POST   /api/residents/{id}/payments      Post a dues payment
    GET    /api/residents/{id}/ledger        Reconciled year ledger
    GET    /api/residents/{id}/delinquency   Restriction verdict
    GET    /api/residents/{id}/reservations  Resident's reservations

  Reservations:
    POST   /api/reservations                  Create (pending)
    GET    /api/reservations/{id}             Get one
    POST   /api/reservations/{id}/approve     Staff approval
    POST   /api/reservations/{id}/reject      Staff rejection
    POST   /api/reservations/{id}/cancel      Cancellation
    POST   /api/reservations/{id}/payments   Record payment
    GET    /api/availability                  Conflict check for a slot
    GET    /api/quote                         Amount due for a candidate

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, invalid transitions
  - 404: Resident/reservation not found
  - 409: Slot conflict, duplicate payment, restricted resident
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/verdant/community-engine/booking"
	"github.com/verdant/community-engine/dues"
	"github.com/verdant/community-engine/engine"
	"github.com/verdant/community-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store        *sqlite.Store
	Dues         *dues.Service
	Reservations *booking.Service
	Clock        engine.Clock
}

// NewHandler wires the services over a shared store.
func NewHandler(store *sqlite.Store, duesCfg dues.Config, rates booking.RateTable, clock engine.Clock) *Handler {
	if clock == nil {
		clock = engine.SystemClock{}
	}
	duesSvc := dues.NewService(store, duesCfg, clock)
	return &Handler{
		Store:        store,
		Dues:         duesSvc,
		Reservations: booking.NewService(store, rates, duesSvc, clock),
		Clock:        clock,
	}
}

// =============================================================================
// RESIDENT HANDLERS
// =============================================================================

// ListResidents returns all residents.
func (h *Handler) ListResidents(w http.ResponseWriter, r *http.Request) {
	residents, err := h.Store.ListResidents(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list residents", err)
		return
	}

	dtos := make([]ResidentDTO, len(residents))
	for i, res := range residents {
		dtos[i] = toResidentDTO(res)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetResident returns a single resident.
func (h *Handler) GetResident(w http.ResponseWriter, r *http.Request) {
	id := engine.ResidentID(chi.URLParam(r, "id"))

	res, err := h.Store.GetResident(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get resident", err)
		return
	}
	writeJSON(w, http.StatusOK, toResidentDTO(res))
}

// CreateResident registers a resident.
func (h *Handler) CreateResident(w http.ResponseWriter, r *http.Request) {
	var req CreateResidentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.Name == "" || req.BlockLot == "" {
		writeError(w, http.StatusBadRequest, "id, name and block_lot are required", nil)
		return
	}

	res := sqlite.Resident{
		ID:       engine.ResidentID(req.ID),
		Name:     req.Name,
		BlockLot: req.BlockLot,
		Email:    req.Email,
	}
	if err := h.Store.SaveResident(r.Context(), res); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save resident", err)
		return
	}
	writeJSON(w, http.StatusCreated, toResidentDTO(res))
}

// =============================================================================
// DUES HANDLERS
// =============================================================================

// PostPayment records a dues payment for a resident.
func (h *Handler) PostPayment(w http.ResponseWriter, r *http.Request) {
	residentID := engine.ResidentID(chi.URLParam(r, "id"))

	var req PostPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	payment, err := h.Dues.PostPayment(r.Context(), dues.Payment{
		ResidentID:     residentID,
		Year:           req.Year,
		Month:          time.Month(req.Month),
		Amount:         engine.NewAmount(req.Amount),
		Reference:      req.Reference,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		writeDomainError(w, "Failed to post payment", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentDTO(payment))
}

// GetLedger returns the reconciled year ledger.
// Query param: year (defaults to the current year).
func (h *Handler) GetLedger(w http.ResponseWriter, r *http.Request) {
	residentID := engine.ResidentID(chi.URLParam(r, "id"))

	year := h.Clock.Today().Year()
	if y := r.URL.Query().Get("year"); y != "" {
		parsed, err := strconv.Atoi(y)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid year", err)
			return
		}
		year = parsed
	}

	ledger, err := h.Dues.YearLedger(r.Context(), residentID, year)
	if err != nil {
		writeDomainError(w, "Failed to compute ledger", err)
		return
	}
	writeJSON(w, http.StatusOK, toYearLedgerDTO(ledger))
}

// GetDelinquency returns the restriction verdict for the current year.
func (h *Handler) GetDelinquency(w http.ResponseWriter, r *http.Request) {
	residentID := engine.ResidentID(chi.URLParam(r, "id"))

	verdict, err := h.Dues.Delinquency(r.Context(), residentID)
	if err != nil {
		writeDomainError(w, "Failed to compute delinquency", err)
		return
	}
	writeJSON(w, http.StatusOK, toDelinquencyDTO(verdict))
}

// =============================================================================
// RESERVATION HANDLERS
// =============================================================================

// CreateReservation books an amenity slot (pending staff approval).
func (h *Handler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	var req CreateReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	res, err := parseReservation(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid reservation", err)
		return
	}

	created, err := h.Reservations.Create(r.Context(), res)
	if err != nil {
		writeDomainError(w, "Failed to create reservation", err)
		return
	}
	writeJSON(w, http.StatusCreated, toReservationDTO(created))
}

// GetReservation returns one reservation.
func (h *Handler) GetReservation(w http.ResponseWriter, r *http.Request) {
	id := engine.ReservationID(chi.URLParam(r, "id"))

	res, err := h.Reservations.Store.GetReservation(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get reservation", err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationDTO(res))
}

// ListResidentReservations returns a resident's reservations, newest first.
func (h *Handler) ListResidentReservations(w http.ResponseWriter, r *http.Request) {
	residentID := engine.ResidentID(chi.URLParam(r, "id"))

	rs, err := h.Reservations.Store.ReservationsByResident(r.Context(), residentID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list reservations", err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationDTOs(rs))
}

// ApproveReservation transitions a pending reservation to approved.
func (h *Handler) ApproveReservation(w http.ResponseWriter, r *http.Request) {
	id := engine.ReservationID(chi.URLParam(r, "id"))

	var req ApproveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	res, err := h.Reservations.Approve(r.Context(), id, req.ApproverID)
	if err != nil {
		writeDomainError(w, "Failed to approve reservation", err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationDTO(res))
}

// RejectReservation transitions a pending reservation to rejected.
func (h *Handler) RejectReservation(w http.ResponseWriter, r *http.Request) {
	id := engine.ReservationID(chi.URLParam(r, "id"))

	var req RejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	res, err := h.Reservations.Reject(r.Context(), id, req.Reason)
	if err != nil {
		writeDomainError(w, "Failed to reject reservation", err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationDTO(res))
}

// CancelReservation cancels a pending or approved reservation.
func (h *Handler) CancelReservation(w http.ResponseWriter, r *http.Request) {
	id := engine.ReservationID(chi.URLParam(r, "id"))

	res, err := h.Reservations.Cancel(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to cancel reservation", err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationDTO(res))
}

// RecordReservationPayment marks payment against an approved reservation.
func (h *Handler) RecordReservationPayment(w http.ResponseWriter, r *http.Request) {
	id := engine.ReservationID(chi.URLParam(r, "id"))

	var req ReservationPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	res, err := h.Reservations.RecordPayment(r.Context(), id, engine.NewAmount(req.Amount))
	if err != nil {
		writeDomainError(w, "Failed to record payment", err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationDTO(res))
}

// CheckAvailability runs the conflict check without creating anything.
// Query params: amenity, date, start_time, end_time.
func (h *Handler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	date, err := engine.ParseDate(q.Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}
	start, err := engine.ParseTimeOfDay(q.Get("start_time"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_time", err)
		return
	}
	end, err := engine.ParseTimeOfDay(q.Get("end_time"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end_time", err)
		return
	}

	result, err := h.Reservations.CheckAvailability(r.Context(), booking.Candidate{
		Amenity: booking.Amenity(q.Get("amenity")),
		Date:    date,
		Start:   start,
		End:     end,
	})
	if err != nil {
		writeDomainError(w, "Failed to check availability", err)
		return
	}
	writeJSON(w, http.StatusOK, AvailabilityResponse{
		Available:       !result.Conflict,
		ConflictingWith: toReservationDTOs(result.ConflictingWith),
	})
}

// GetQuote returns the amount a candidate reservation would owe.
// Query params: amenity, duration_minutes, guest_count.
func (h *Handler) GetQuote(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	duration, err := strconv.Atoi(q.Get("duration_minutes"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid duration_minutes", err)
		return
	}
	guests := 0
	if g := q.Get("guest_count"); g != "" {
		guests, err = strconv.Atoi(g)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid guest_count", err)
			return
		}
	}

	amenity := booking.Amenity(q.Get("amenity"))
	amount, err := h.Reservations.Quote(r.Context(), amenity, duration, guests)
	if err != nil {
		writeDomainError(w, "Failed to compute quote", err)
		return
	}
	writeJSON(w, http.StatusOK, QuoteResponse{
		Amenity:         string(amenity),
		DurationMinutes: duration,
		GuestCount:      guests,
		AmountDue:       amount.Float64(),
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func parseReservation(req CreateReservationRequest) (booking.Reservation, error) {
	date, err := engine.ParseDate(req.Date)
	if err != nil {
		return booking.Reservation{}, err
	}
	start, err := engine.ParseTimeOfDay(req.StartTime)
	if err != nil {
		return booking.Reservation{}, err
	}
	end, err := engine.ParseTimeOfDay(req.EndTime)
	if err != nil {
		return booking.Reservation{}, err
	}

	return booking.Reservation{
		ResidentID: engine.ResidentID(req.ResidentID),
		Amenity:    booking.Amenity(req.Amenity),
		Date:       date,
		Start:      start,
		End:        end,
		GuestCount: req.GuestCount,
		Purpose:    req.Purpose,
	}, nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps domain errors to HTTP status codes.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case engine.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case engine.IsConflict(err):
		writeError(w, http.StatusConflict, message, err)
	case engine.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
