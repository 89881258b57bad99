package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdant/community-engine/api"
	"github.com/verdant/community-engine/booking"
	"github.com/verdant/community-engine/dues"
	"github.com/verdant/community-engine/engine"
	"github.com/verdant/community-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// newTestRouter builds the full API over a fresh sqlite store.
// The clock is pinned to June 15, 2025.
func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "engine.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg := dues.Config{
		MonthlyDue:    engine.NewAmountFromInt(750),
		RestrictAfter: dues.DefaultRestrictAfter,
	}
	rates := booking.RateTable{
		booking.AmenityCourt: {
			HourlyRate:        engine.NewAmountFromInt(150),
			GuestThreshold:    10,
			PerGuestSurcharge: engine.NewAmountFromInt(10),
		},
		booking.AmenityClubhouse: {
			HourlyRate: engine.NewAmountFromInt(300),
		},
	}
	clock := engine.FixedClock{Day: engine.NewTimePoint(2025, time.June, 15)}

	return api.NewRouter(api.NewHandler(store, cfg, rates, clock))
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

func createResident(t *testing.T, router http.Handler, id string) {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/api/residents", map[string]string{
		"id":        id,
		"name":      "Maria Santos",
		"block_lot": "B3 L12",
		"email":     "maria@example.com",
	})
	require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())
}

// payDuesThrough posts full monthly payments January..last so the resident is
// in good standing under the June clock.
func payDuesThrough(t *testing.T, router http.Handler, id string, last time.Month) {
	t.Helper()
	for m := time.January; m <= last; m++ {
		rec := doJSON(t, router, http.MethodPost, "/api/residents/"+id+"/payments", map[string]any{
			"year":   2025,
			"month":  int(m),
			"amount": 750,
		})
		require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())
	}
}

// =============================================================================
// RESIDENTS
// =============================================================================

func TestAPI_CreateAndGetResident(t *testing.T) {
	router := newTestRouter(t)

	createResident(t, router, "res-1")

	rec := doJSON(t, router, http.MethodGet, "/api/residents/res-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[api.ResidentDTO](t, rec)
	assert.Equal(t, "res-1", got.ID)
	assert.Equal(t, "Maria Santos", got.Name)
	assert.Equal(t, "B3 L12", got.BlockLot)
}

func TestAPI_GetUnknownResidentIs404(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/residents/ghost", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_CreateResidentRequiresFields(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/residents", map[string]string{"id": "res-1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// DUES
// =============================================================================

func TestAPI_LedgerReflectsCarryForward(t *testing.T) {
	// GIVEN: res-1 pays January in full and nothing else, today June 15
	// WHEN: Fetching the 2025 ledger
	// THEN: January paid, February onward accumulate the carried balance

	router := newTestRouter(t)
	createResident(t, router, "res-1")
	payDuesThrough(t, router, "res-1", time.January)

	rec := doJSON(t, router, http.MethodGet, "/api/residents/res-1/ledger?year=2025", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	ledger := decode[api.YearLedgerDTO](t, rec)
	require.Len(t, ledger.Months, 12)

	jan, feb, mar := ledger.Months[0], ledger.Months[1], ledger.Months[2]
	assert.True(t, jan.IsPaid)
	assert.InDelta(t, 0, jan.Balance, 0.001)
	assert.InDelta(t, 750, feb.Balance, 0.001)
	assert.InDelta(t, 750, mar.PreviousBalance, 0.001)
	assert.InDelta(t, 1500, mar.TotalRequired, 0.001)
	assert.True(t, feb.IsOverdue)
	assert.False(t, ledger.Months[5].IsOverdue, "June is not overdue on June 15")
}

func TestAPI_DelinquencyVerdict(t *testing.T) {
	// No payments at all: January-May unpaid, restriction applies.
	router := newTestRouter(t)
	createResident(t, router, "res-1")

	rec := doJSON(t, router, http.MethodGet, "/api/residents/res-1/delinquency", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	verdict := decode[api.DelinquencyDTO](t, rec)
	assert.True(t, verdict.MustRestrict)
	assert.Equal(t, 5, verdict.ConsecutiveUnpaid)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, verdict.UnpaidMonths)
}

func TestAPI_DuplicateIdempotencyKeyIs409(t *testing.T) {
	router := newTestRouter(t)
	createResident(t, router, "res-1")

	body := map[string]any{
		"year":            2025,
		"month":           1,
		"amount":          750,
		"idempotency_key": "or-receipt-77",
	}
	rec := doJSON(t, router, http.MethodPost, "/api/residents/res-1/payments", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/residents/res-1/payments", body)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAPI_NegativePaymentIs400(t *testing.T) {
	router := newTestRouter(t)
	createResident(t, router, "res-1")

	rec := doJSON(t, router, http.MethodPost, "/api/residents/res-1/payments", map[string]any{
		"year":   2025,
		"month":  1,
		"amount": -100,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// RESERVATIONS
// =============================================================================

func reservationBody(residentID, start, end string) map[string]any {
	return map[string]any{
		"resident_id": residentID,
		"amenity":     "court",
		"date":        "2025-06-20",
		"start_time":  start,
		"end_time":    end,
		"guest_count": 4,
		"purpose":     "badminton",
	}
}

func TestAPI_ReservationLifecycle(t *testing.T) {
	router := newTestRouter(t)
	createResident(t, router, "res-1")
	payDuesThrough(t, router, "res-1", time.May)

	// Create
	rec := doJSON(t, router, http.MethodPost, "/api/reservations", reservationBody("res-1", "15:00", "17:00"))
	require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())

	created := decode[api.ReservationDTO](t, rec)
	assert.Equal(t, "pending", created.Status)
	assert.InDelta(t, 300, created.AmountToPay, 0.001)

	// Approve
	rec = doJSON(t, router, http.MethodPost, "/api/reservations/"+created.ID+"/approve",
		map[string]string{"approver_id": "staff-7"})
	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())

	approved := decode[api.ReservationDTO](t, rec)
	assert.Equal(t, "approved", approved.Status)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, "staff-7", *approved.ApprovedBy)

	// Pay
	rec = doJSON(t, router, http.MethodPost, "/api/reservations/"+created.ID+"/payments",
		map[string]float64{"amount": 300})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "paid", decode[api.ReservationDTO](t, rec).PaymentStatus)

	// Cancel (June 15 is before June 20): paid becomes refunded
	rec = doJSON(t, router, http.MethodPost, "/api/reservations/"+created.ID+"/cancel", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	cancelled := decode[api.ReservationDTO](t, rec)
	assert.Equal(t, "cancelled", cancelled.Status)
	assert.Equal(t, "refunded", cancelled.PaymentStatus)
}

func TestAPI_OverlappingReservationIs409(t *testing.T) {
	router := newTestRouter(t)
	for _, id := range []string{"res-1", "res-2"} {
		createResident(t, router, id)
		payDuesThrough(t, router, id, time.May)
	}

	rec := doJSON(t, router, http.MethodPost, "/api/reservations", reservationBody("res-1", "15:00", "17:00"))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/reservations", reservationBody("res-2", "16:00", "18:00"))
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Touching intervals do not conflict
	rec = doJSON(t, router, http.MethodPost, "/api/reservations", reservationBody("res-2", "17:00", "19:00"))
	assert.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())
}

func TestAPI_DelinquentResidentCannotReserve(t *testing.T) {
	// res-1 has paid nothing by June 15: five consecutive unpaid months.
	router := newTestRouter(t)
	createResident(t, router, "res-1")

	rec := doJSON(t, router, http.MethodPost, "/api/reservations", reservationBody("res-1", "15:00", "17:00"))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAPI_InvalidIntervalIs400(t *testing.T) {
	router := newTestRouter(t)
	createResident(t, router, "res-1")
	payDuesThrough(t, router, "res-1", time.May)

	rec := doJSON(t, router, http.MethodPost, "/api/reservations", reservationBody("res-1", "17:00", "15:00"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// AVAILABILITY AND QUOTE
// =============================================================================

func TestAPI_Availability(t *testing.T) {
	router := newTestRouter(t)
	createResident(t, router, "res-1")
	payDuesThrough(t, router, "res-1", time.May)

	rec := doJSON(t, router, http.MethodPost, "/api/reservations", reservationBody("res-1", "15:00", "17:00"))
	require.Equal(t, http.StatusCreated, rec.Code)

	query := "/api/availability?amenity=court&date=2025-06-20&start_time=%s&end_time=%s"

	rec = doJSON(t, router, http.MethodGet, fmt.Sprintf(query, "16:00", "18:00"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	taken := decode[api.AvailabilityResponse](t, rec)
	assert.False(t, taken.Available)
	assert.Len(t, taken.ConflictingWith, 1)

	rec = doJSON(t, router, http.MethodGet, fmt.Sprintf(query, "17:00", "19:00"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[api.AvailabilityResponse](t, rec).Available)
}

func TestAPI_Quote(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/quote?amenity=court&duration_minutes=60&guest_count=15", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	quote := decode[api.QuoteResponse](t, rec)
	assert.InDelta(t, 200, quote.AmountDue, 0.001, "1h at 150 plus 5 surcharged guests at 10")

	rec = doJSON(t, router, http.MethodGet, "/api/quote?amenity=swimming_pool&duration_minutes=60", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
