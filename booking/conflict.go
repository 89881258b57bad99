/*
conflict.go - Slot conflict detection

PURPOSE:
  Enforces the slot invariant: two reservations for the same amenity and
  date with overlapping [start, end) intervals cannot both be pending or
  approved.

OVERLAP RULE:
  Half-open intervals [s1,e1) and [s2,e2) overlap iff s1 < e2 && s2 < e1.
  A reservation ending at 15:00 and another starting at 15:00 share a
  boundary, not a slot.

PURITY:
  CheckConflict is a pure function over the candidate and the supplied
  reservations. The caller is responsible for loading the relevant
  reservations and for serializing check-then-create (see service.go).

SEE ALSO:
  - service.go: Runs the check inside reservation creation/approval
*/
package booking

import "github.com/verdant/community-engine/engine"

// ConflictResult reports whether a candidate slot is taken and by which
// reservations.
type ConflictResult struct {
	Conflict        bool
	ConflictingWith []Reservation
}

// CheckConflict validates a candidate slot against existing reservations.
// Only reservations for the same amenity and date in a slot-blocking status
// are considered; the rest of the input may safely include other amenities,
// dates, and statuses.
//
// Returns InvalidIntervalError when the candidate's end is not after its
// start. An invalid interval is never silently accepted.
func CheckConflict(candidate Candidate, existing []Reservation) (ConflictResult, error) {
	if !candidate.Start.Before(candidate.End) {
		return ConflictResult{}, &engine.InvalidIntervalError{Start: candidate.Start, End: candidate.End}
	}

	var result ConflictResult
	for _, r := range existing {
		if r.Amenity != candidate.Amenity {
			continue
		}
		if !r.Date.Equal(candidate.Date) {
			continue
		}
		if !r.Status.BlocksSlot() {
			continue
		}
		if overlaps(candidate.Start, candidate.End, r.Start, r.End) {
			result.ConflictingWith = append(result.ConflictingWith, r)
		}
	}
	result.Conflict = len(result.ConflictingWith) > 0
	return result, nil
}

func overlaps(s1, e1, s2, e2 engine.TimeOfDay) bool {
	return s1.Before(e2) && s2.Before(e1)
}
