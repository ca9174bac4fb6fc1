package checkout

import (
	"time"

	"parkflow/internal/domain"
	"parkflow/internal/fee"
)

type State string

const (
	StateIdle               State = "idle"
	StateResolvingRates     State = "resolving_rates"
	StateCalculating        State = "calculating"
	StateReady              State = "ready"
	StateCalculationError   State = "calculation_error"
	StateRatesNotConfigured State = "rates_not_configured"
	StateConfirming         State = "confirming"
	StateClosed             State = "closed"
)

// Event is a message delivered to a session.
type Event interface {
	eventName() string
}

// RecalculateRequested forces a fresh calculation, re-resolving rates if none were loaded.
type RecalculateRequested struct{}

// PaymentMethodSelected changes the payment method without recalculating.
type PaymentMethodSelected struct {
	Method string
}

// ConfirmRequested validates the current result and persists the checkout.
type ConfirmRequested struct{}

// CancelRequested closes the session and discards its working state.
type CancelRequested struct{}

type refreshTick struct{}

func (RecalculateRequested) eventName() string  { return "recalculate_requested" }
func (PaymentMethodSelected) eventName() string { return "payment_method_selected" }
func (ConfirmRequested) eventName() string      { return "confirm_requested" }
func (CancelRequested) eventName() string       { return "cancel_requested" }
func (refreshTick) eventName() string           { return "refresh_tick" }

// Snapshot is a read-only copy of a session.
type Snapshot struct {
	ID            string               `json:"id"`
	ContractorID  string               `json:"contractor_id"`
	AttendantID   string               `json:"attendant_id,omitempty"`
	Vehicle       domain.Vehicle       `json:"vehicle"`
	State         State                `json:"state"`
	PaymentMethod domain.PaymentMethod `json:"payment_method"`
	Calculation   *fee.Result          `json:"calculation,omitempty"`
	CalculatedAt  *time.Time           `json:"calculated_at,omitempty"`
	// PayableAmount is what confirming would charge; the calculated amount stays in Calculation.
	PayableAmount float64         `json:"payable_amount"`
	Error         string          `json:"error,omitempty"`
	ErrorKind     string          `json:"error_kind,omitempty"`
	ConfirmError  string          `json:"confirm_error,omitempty"`
	CanRetry      bool            `json:"can_retry"`
	CanConfirm    bool            `json:"can_confirm"`
	CanCancel     bool            `json:"can_cancel"`
	Receipt       *domain.Receipt `json:"receipt,omitempty"`
	OpenedAt      time.Time       `json:"opened_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
