package checkout

import (
	"context"
	"time"

	"parkflow/internal/domain"
	"parkflow/internal/fee"
)

//go:generate mockgen -source=ports.go -destination=mocks/mock_ports.go -package=mocks

// RateProvider looks up a contractor's rate table. A nil table with a nil error means the
// contractor has not configured rates.
type RateProvider interface {
	GetRates(ctx context.Context, actor domain.Actor, contractorID string) (*fee.RateTable, error)
}

// Persister closes a vehicle's stay on the backend.
type Persister interface {
	Checkout(ctx context.Context, actor domain.Actor, vehicleID string, req domain.CheckoutRequest) (*domain.CheckoutResponse, error)
}

const DefaultRefreshInterval = 30 * time.Second

// Options tune a session. Zero values fall back to defaults.
type Options struct {
	// RefreshInterval is both the refresher period and the staleness threshold.
	RefreshInterval time.Duration
	// AllowZeroAmount lets a zero fee be confirmed with a paying method.
	AllowZeroAmount bool
	Now             func() time.Time
	// OnChange receives a snapshot after every state change. It runs outside the session lock.
	OnChange func(Snapshot)
}

func (o Options) withDefaults() Options {
	if o.RefreshInterval <= 0 {
		o.RefreshInterval = DefaultRefreshInterval
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}
