package fee

import (
	"math"
	"strings"
)

// VehicleClass is the pricing class of a vehicle.
type VehicleClass string

const (
	TwoWheeler  VehicleClass = "two-wheeler"
	FourWheeler VehicleClass = "four-wheeler"
)

// ParseVehicleClass accepts the calculator literals and the backend's "2-wheeler"/"4-wheeler".
func ParseVehicleClass(s string) (VehicleClass, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(TwoWheeler), "2-wheeler":
		return TwoWheeler, nil
	case string(FourWheeler), "4-wheeler":
		return FourWheeler, nil
	}
	return "", newError(InvalidVehicleClass, "vehicle_type",
		"invalid vehicle type %q: expected %q or %q", s, TwoWheeler, FourWheeler)
}

// Rate field names as they appear on the wire.
const (
	FieldUpTo2Hours  = "upTo2Hours"
	FieldUpTo6Hours  = "upTo6Hours"
	FieldUpTo12Hours = "upTo12Hours"
	FieldUpTo24Hours = "upTo24Hours"
)

// RateTier holds one flat price per duration bracket.
type RateTier struct {
	UpTo2Hours  float64 `json:"upTo2Hours"`
	UpTo6Hours  float64 `json:"upTo6Hours"`
	UpTo12Hours float64 `json:"upTo12Hours"`
	UpTo24Hours float64 `json:"upTo24Hours"`
}

// NewRateTier builds a validated tier.
func NewRateTier(upTo2, upTo6, upTo12, upTo24 float64) (RateTier, error) {
	t := RateTier{UpTo2Hours: upTo2, UpTo6Hours: upTo6, UpTo12Hours: upTo12, UpTo24Hours: upTo24}
	if err := t.Validate(); err != nil {
		return RateTier{}, err
	}
	return t, nil
}

func (t RateTier) fields() []struct {
	name  string
	value float64
} {
	return []struct {
		name  string
		value float64
	}{
		{FieldUpTo2Hours, t.UpTo2Hours},
		{FieldUpTo6Hours, t.UpTo6Hours},
		{FieldUpTo12Hours, t.UpTo12Hours},
		{FieldUpTo24Hours, t.UpTo24Hours},
	}
}

// Validate checks every bracket is finite and non-negative.
func (t RateTier) Validate() error {
	for _, f := range t.fields() {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return newError(InvalidRateTable, f.name, "invalid rate table: %s must be a finite number", f.name)
		}
		if f.value < 0 {
			return newError(InvalidRateTable, f.name, "invalid rate table: %s must not be negative (got %v)", f.name, f.value)
		}
	}
	return nil
}

// IsAscending reports whether longer brackets never cost less than shorter ones.
func (t RateTier) IsAscending() bool {
	return t.UpTo2Hours <= t.UpTo6Hours && t.UpTo6Hours <= t.UpTo12Hours && t.UpTo12Hours <= t.UpTo24Hours
}

// IsZero reports whether every bracket is free.
func (t RateTier) IsZero() bool {
	return t.UpTo2Hours == 0 && t.UpTo6Hours == 0 && t.UpTo12Hours == 0 && t.UpTo24Hours == 0
}

// RateTable is a contractor's pair of tiers.
type RateTable struct {
	TwoWheeler  RateTier `json:"rates_2wheeler"`
	FourWheeler RateTier `json:"rates_4wheeler"`
}

// ForClass picks the tier for a vehicle class.
func (r RateTable) ForClass(class VehicleClass) (RateTier, error) {
	switch class {
	case TwoWheeler:
		return r.TwoWheeler, nil
	case FourWheeler:
		return r.FourWheeler, nil
	}
	return RateTier{}, newError(InvalidVehicleClass, "vehicle_type",
		"invalid vehicle type %q: expected %q or %q", class, TwoWheeler, FourWheeler)
}
