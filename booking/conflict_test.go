package booking_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdant/community-engine/booking"
	"github.com/verdant/community-engine/engine"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var june10 = engine.NewTimePoint(2025, time.June, 10)

func slot(amenity booking.Amenity, date engine.TimePoint, start, end string, status booking.Status) booking.Reservation {
	s, err := engine.ParseTimeOfDay(start)
	if err != nil {
		panic(err)
	}
	e, err := engine.ParseTimeOfDay(end)
	if err != nil {
		panic(err)
	}
	return booking.Reservation{
		ID:         engine.ReservationID("rsv-" + start + "-" + end),
		ResidentID: "res-1",
		Amenity:    amenity,
		Date:       date,
		Start:      s,
		End:        e,
		Status:     status,
	}
}

func candidate(amenity booking.Amenity, date engine.TimePoint, start, end string) booking.Candidate {
	s, _ := engine.ParseTimeOfDay(start)
	e, _ := engine.ParseTimeOfDay(end)
	return booking.Candidate{Amenity: amenity, Date: date, Start: s, End: e}
}

// =============================================================================
// OVERLAP DETECTION
// =============================================================================

func TestCheckConflict_OverlappingSlotsConflict(t *testing.T) {
	// GIVEN: A pending court reservation 15:00-17:00 on June 10
	// WHEN: A candidate requests 16:00-18:00 on the same court and date
	// THEN: Conflict, naming the existing reservation

	existing := []booking.Reservation{
		slot(booking.AmenityCourt, june10, "15:00", "17:00", booking.StatusPending),
	}

	result, err := booking.CheckConflict(candidate(booking.AmenityCourt, june10, "16:00", "18:00"), existing)

	require.NoError(t, err)
	assert.True(t, result.Conflict)
	require.Len(t, result.ConflictingWith, 1)
	assert.Equal(t, existing[0].ID, result.ConflictingWith[0].ID)
}

func TestCheckConflict_BackToBackSlotsDoNotConflict(t *testing.T) {
	// GIVEN: An approved reservation ending at 17:00
	// WHEN: A candidate starts exactly at 17:00
	// THEN: No conflict - intervals are half-open

	existing := []booking.Reservation{
		slot(booking.AmenityCourt, june10, "15:00", "17:00", booking.StatusApproved),
	}

	result, err := booking.CheckConflict(candidate(booking.AmenityCourt, june10, "17:00", "19:00"), existing)

	require.NoError(t, err)
	assert.False(t, result.Conflict)
}

func TestCheckConflict_OverlapIsSymmetric(t *testing.T) {
	// checkConflict(A, [B]) reports conflict iff checkConflict(B, [A]) does.
	cases := []struct {
		name         string
		aStart, aEnd string
		bStart, bEnd string
	}{
		{"nested", "10:00", "14:00", "11:00", "12:00"},
		{"partial", "10:00", "12:00", "11:00", "13:00"},
		{"identical", "10:00", "12:00", "10:00", "12:00"},
		{"touching", "10:00", "12:00", "12:00", "14:00"},
		{"disjoint", "08:00", "09:00", "12:00", "14:00"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := slot(booking.AmenityGazebo, june10, tc.aStart, tc.aEnd, booking.StatusPending)
			b := slot(booking.AmenityGazebo, june10, tc.bStart, tc.bEnd, booking.StatusPending)

			resultAB, err := booking.CheckConflict(
				candidate(booking.AmenityGazebo, june10, tc.aStart, tc.aEnd), []booking.Reservation{b})
			require.NoError(t, err)
			resultBA, err := booking.CheckConflict(
				candidate(booking.AmenityGazebo, june10, tc.bStart, tc.bEnd), []booking.Reservation{a})
			require.NoError(t, err)

			assert.Equal(t, resultAB.Conflict, resultBA.Conflict)
		})
	}
}

// =============================================================================
// FILTERING
// =============================================================================

func TestCheckConflict_OnlyBlockingStatusesCount(t *testing.T) {
	// Rejected and cancelled reservations free their slot immediately.
	existing := []booking.Reservation{
		slot(booking.AmenityCourt, june10, "15:00", "17:00", booking.StatusRejected),
		slot(booking.AmenityCourt, june10, "15:00", "17:00", booking.StatusCancelled),
	}

	result, err := booking.CheckConflict(candidate(booking.AmenityCourt, june10, "15:00", "17:00"), existing)

	require.NoError(t, err)
	assert.False(t, result.Conflict)
}

func TestCheckConflict_OtherAmenityOrDateIgnored(t *testing.T) {
	june11 := june10.AddDays(1)
	existing := []booking.Reservation{
		slot(booking.AmenityGazebo, june10, "15:00", "17:00", booking.StatusApproved),
		slot(booking.AmenityCourt, june11, "15:00", "17:00", booking.StatusApproved),
	}

	result, err := booking.CheckConflict(candidate(booking.AmenityCourt, june10, "15:00", "17:00"), existing)

	require.NoError(t, err)
	assert.False(t, result.Conflict)
}

func TestCheckConflict_MultipleConflictsReported(t *testing.T) {
	existing := []booking.Reservation{
		slot(booking.AmenityClubhouse, june10, "09:00", "11:00", booking.StatusApproved),
		slot(booking.AmenityClubhouse, june10, "12:00", "14:00", booking.StatusPending),
		slot(booking.AmenityClubhouse, june10, "15:00", "17:00", booking.StatusApproved),
	}

	result, err := booking.CheckConflict(candidate(booking.AmenityClubhouse, june10, "10:00", "13:00"), existing)

	require.NoError(t, err)
	assert.True(t, result.Conflict)
	assert.Len(t, result.ConflictingWith, 2)
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestCheckConflict_InvalidIntervalRejected(t *testing.T) {
	// An interval with end <= start is never silently accepted.
	for _, tc := range []struct{ start, end string }{
		{"17:00", "15:00"},
		{"15:00", "15:00"},
	} {
		_, err := booking.CheckConflict(candidate(booking.AmenityCourt, june10, tc.start, tc.end), nil)

		require.Error(t, err)
		assert.ErrorIs(t, err, engine.ErrInvalidInterval)

		var intervalErr *engine.InvalidIntervalError
		assert.ErrorAs(t, err, &intervalErr)
	}
}
