package domain

import (
	"fmt"

	"parkflow/internal/fee"
)

// Vehicle is the backend's record of a parked vehicle.
type Vehicle struct {
	ID           string `json:"id"`
	PlateNumber  string `json:"plate_number"`
	VehicleType  string `json:"vehicle_type"` // "2-wheeler" | "4-wheeler"
	CheckInTime  string `json:"check_in_time"`
	CheckOutTime string `json:"check_out_time,omitempty"`
	LocationID   string `json:"location_id,omitempty"`
	Status       string `json:"status,omitempty"`
}

// RawRateTier mirrors the wire shape of a tier. Pointers let a missing field be told apart from zero.
type RawRateTier struct {
	UpTo2Hours  *float64 `json:"upTo2Hours"`
	UpTo6Hours  *float64 `json:"upTo6Hours"`
	UpTo12Hours *float64 `json:"upTo12Hours"`
	UpTo24Hours *float64 `json:"upTo24Hours"`
}

// Tier validates the raw tier. prefix is prepended to field names in errors.
func (r *RawRateTier) Tier(prefix string) (fee.RateTier, error) {
	if r == nil {
		return fee.RateTier{}, &fee.Error{
			Kind:    fee.InvalidRateTable,
			Field:   prefix,
			Message: fmt.Sprintf("invalid rate table: %s is missing", prefix),
		}
	}
	fields := []struct {
		name string
		v    *float64
	}{
		{fee.FieldUpTo2Hours, r.UpTo2Hours},
		{fee.FieldUpTo6Hours, r.UpTo6Hours},
		{fee.FieldUpTo12Hours, r.UpTo12Hours},
		{fee.FieldUpTo24Hours, r.UpTo24Hours},
	}
	for _, f := range fields {
		if f.v == nil {
			return fee.RateTier{}, &fee.Error{
				Kind:    fee.InvalidRateTable,
				Field:   f.name,
				Message: fmt.Sprintf("invalid rate table: %s.%s is missing", prefix, f.name),
			}
		}
	}
	return fee.NewRateTier(*r.UpTo2Hours, *r.UpTo6Hours, *r.UpTo12Hours, *r.UpTo24Hours)
}

// RateLookup is the backend's per-contractor rate response.
type RateLookup struct {
	Rates2Wheeler *RawRateTier `json:"rates_2wheeler"`
	Rates4Wheeler *RawRateTier `json:"rates_4wheeler"`
}

// Configured reports whether the contractor has any rates at all.
func (l *RateLookup) Configured() bool {
	return l != nil && (l.Rates2Wheeler != nil || l.Rates4Wheeler != nil)
}

// Table validates both tiers.
func (l *RateLookup) Table() (*fee.RateTable, error) {
	two, err := l.Rates2Wheeler.Tier("rates_2wheeler")
	if err != nil {
		return nil, err
	}
	four, err := l.Rates4Wheeler.Tier("rates_4wheeler")
	if err != nil {
		return nil, err
	}
	return &fee.RateTable{TwoWheeler: two, FourWheeler: four}, nil
}

// RateLookupFromTable is the inverse of Table, used when caching.
func RateLookupFromTable(t fee.RateTable) RateLookup {
	tier := func(r fee.RateTier) *RawRateTier {
		return &RawRateTier{
			UpTo2Hours:  &r.UpTo2Hours,
			UpTo6Hours:  &r.UpTo6Hours,
			UpTo12Hours: &r.UpTo12Hours,
			UpTo24Hours: &r.UpTo24Hours,
		}
	}
	return RateLookup{Rates2Wheeler: tier(t.TwoWheeler), Rates4Wheeler: tier(t.FourWheeler)}
}

// Actor is the attendant on whose behalf a checkout runs. It is passed explicitly
// from the authenticated request down to every backend call.
type Actor struct {
	AttendantID  string
	ContractorID string
	Role         string
	Token        string
}
