/*
pricing.go - Rate-table payment quotes

PURPOSE:
  Computes the amount due for a reservation so approval can set the payment
  obligation without the caller re-deriving pricing. Pricing policy itself
  (the rates) is owned by the deployment; this file only applies it.

FORMULA:
  amount = hourlyRate * (durationMinutes / 60)
         + perGuestSurcharge * max(0, guestCount - guestThreshold)

  Minutes pro-rate the hourly rate; all arithmetic stays on decimals.

SEE ALSO:
  - service.go: Calls ComputeAmountDue on approval
*/
package booking

import (
	"github.com/shopspring/decimal"

	"github.com/verdant/community-engine/engine"
)

// Rate is the pricing policy for one amenity.
type Rate struct {
	// HourlyRate is charged per hour, pro-rated by the minute.
	HourlyRate engine.Amount

	// GuestThreshold is the number of guests included in the base rate.
	GuestThreshold int

	// PerGuestSurcharge is charged for each guest over the threshold.
	PerGuestSurcharge engine.Amount
}

// RateTable maps each amenity to its rate. Missing amenities are an error,
// never a free booking.
type RateTable map[Amenity]Rate

// ComputeAmountDue quotes a reservation. Returns ErrRateNotFound for an
// amenity absent from the table, InvalidAmountError for a non-positive
// duration, negative guest count, or negative configured rates.
func ComputeAmountDue(amenity Amenity, durationMinutes, guestCount int, rates RateTable) (engine.Amount, error) {
	rate, ok := rates[amenity]
	if !ok {
		return engine.Amount{}, engine.ErrRateNotFound
	}
	if durationMinutes <= 0 {
		return engine.Amount{}, &engine.InvalidAmountError{Field: "durationMinutes", Value: engine.NewAmountFromInt(durationMinutes)}
	}
	if guestCount < 0 {
		return engine.Amount{}, &engine.InvalidAmountError{Field: "guestCount", Value: engine.NewAmountFromInt(guestCount)}
	}
	if rate.HourlyRate.IsNegative() || rate.PerGuestSurcharge.IsNegative() {
		return engine.Amount{}, &engine.InvalidAmountError{Field: "rate", Value: rate.HourlyRate}
	}

	hours := decimal.NewFromInt(int64(durationMinutes)).Div(decimal.NewFromInt(60))
	amount := rate.HourlyRate.Mul(hours)

	if extra := guestCount - rate.GuestThreshold; extra > 0 {
		amount = amount.Add(rate.PerGuestSurcharge.Mul(decimal.NewFromInt(int64(extra))))
	}

	return amount, nil
}
