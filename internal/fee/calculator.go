// Package fee prices a parking stay from its check-in and check-out instants.
//
// Pricing is tiered and flat: exactly one bracket's price applies to stays of up to 24 hours.
// Longer stays pay the 24-hour price per whole day and a pro-rated share of it for the
// remaining hours.
package fee

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// MaxDuration is the longest stay the calculator will price.
	MaxDuration = 365 * 24 * time.Hour

	minimumChargeHours = 1.0 / 60
)

// Tier names reported in Result.Tier.
const (
	TierMinimum     = "minimum"
	TierUpTo2Hours  = FieldUpTo2Hours
	TierUpTo6Hours  = FieldUpTo6Hours
	TierUpTo12Hours = FieldUpTo12Hours
	TierUpTo24Hours = FieldUpTo24Hours
	TierMultiDay    = "multiDay"
)

// Result is the outcome of one calculation.
type Result struct {
	CheckIn   time.Time `json:"check_in_time"`
	CheckOut  time.Time `json:"check_out_time"`
	Duration  Duration  `json:"duration"`
	Amount    float64   `json:"amount"`
	Tier      string    `json:"tier"`
	Breakdown string    `json:"breakdown"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// ParseTimestamp parses an ISO-8601 literal. Literals without an offset are read as UTC.
// field is used in the error to say which input was bad.
func ParseTimestamp(field, literal string) (time.Time, error) {
	s := strings.TrimSpace(literal)
	if s != "" {
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
	}
	return time.Time{}, newError(InvalidTimestamp, field, "invalid %s: %q is not a valid timestamp", field, literal)
}

// CalculateRaw validates string inputs in the same order as Calculate and prices the stay.
func CalculateRaw(checkIn, checkOut, vehicleClass string, rates RateTier) (*Result, error) {
	class, err := ParseVehicleClass(vehicleClass)
	if err != nil {
		return nil, err
	}
	if err := rates.Validate(); err != nil {
		return nil, err
	}
	in, err := ParseTimestamp("check_in_time", checkIn)
	if err != nil {
		return nil, err
	}
	out, err := ParseTimestamp("check_out_time", checkOut)
	if err != nil {
		return nil, err
	}
	return Calculate(in, out, class, rates)
}

// Calculate prices a stay. It never returns a partial result: any invalid input or
// non-finite outcome is reported as an *Error.
func Calculate(checkIn, checkOut time.Time, class VehicleClass, rates RateTier) (*Result, error) {
	if class != TwoWheeler && class != FourWheeler {
		return nil, newError(InvalidVehicleClass, "vehicle_type",
			"invalid vehicle type %q: expected %q or %q", class, TwoWheeler, FourWheeler)
	}
	if err := rates.Validate(); err != nil {
		return nil, err
	}
	if checkIn.IsZero() {
		return nil, newError(InvalidTimestamp, "check_in_time", "invalid check_in_time: timestamp is missing")
	}
	if checkOut.IsZero() {
		return nil, newError(InvalidTimestamp, "check_out_time", "invalid check_out_time: timestamp is missing")
	}

	elapsed := checkOut.Sub(checkIn)
	if elapsed < 0 {
		return nil, newError(InvalidDuration, "", "invalid duration: checkout time %s is before checkin time %s",
			checkOut.UTC().Format(time.RFC3339), checkIn.UTC().Format(time.RFC3339))
	}
	if elapsed > MaxDuration {
		return nil, newError(InvalidDuration, "", "invalid duration: suspicious duration of %.0f hours exceeds one year",
			elapsed.Hours())
	}

	d := decompose(elapsed)
	amount, tier, breakdown := price(d.TotalHours, rates)

	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		return nil, newError(CalculationFailed, "", "calculation failed: computed amount %v is not a valid charge", amount)
	}
	rounded := roundAmount(amount)
	if math.IsNaN(rounded) || math.IsInf(rounded, 0) || rounded < 0 {
		return nil, newError(CalculationFailed, "", "calculation failed: rounded amount %v is not a valid charge", rounded)
	}

	return &Result{
		CheckIn:   checkIn,
		CheckOut:  checkOut,
		Duration:  d,
		Amount:    rounded,
		Tier:      tier,
		Breakdown: breakdown,
	}, nil
}

func price(totalHours float64, r RateTier) (float64, string, string) {
	switch {
	case totalHours < minimumChargeHours:
		return r.UpTo2Hours, TierMinimum, fmt.Sprintf("Minimum charge (under 1 minute): %.2f", r.UpTo2Hours)
	case totalHours <= 2:
		return r.UpTo2Hours, TierUpTo2Hours, fmt.Sprintf("Up to 2 hours: %.2f", r.UpTo2Hours)
	case totalHours <= 6:
		return r.UpTo6Hours, TierUpTo6Hours, fmt.Sprintf("Up to 6 hours: %.2f", r.UpTo6Hours)
	case totalHours <= 12:
		return r.UpTo12Hours, TierUpTo12Hours, fmt.Sprintf("Up to 12 hours: %.2f", r.UpTo12Hours)
	case totalHours <= 24:
		return r.UpTo24Hours, TierUpTo24Hours, fmt.Sprintf("Up to 24 hours: %.2f", r.UpTo24Hours)
	}

	days := math.Floor(totalHours / 24)
	remainder := math.Mod(totalHours, 24)
	hourly := r.UpTo24Hours / 24
	amount := days*r.UpTo24Hours + remainder*hourly
	breakdown := fmt.Sprintf("%d day(s) x %.2f + %.2f hour(s) x %.2f/hour",
		int64(days), r.UpTo24Hours, remainder, hourly)
	return amount, TierMultiDay, breakdown
}

func roundAmount(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
