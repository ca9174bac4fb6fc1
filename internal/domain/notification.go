package domain

import "time"

type CheckoutEventType string

const (
	CheckoutEventUpdated    CheckoutEventType = "checkout_updated"
	CheckoutEventClosed     CheckoutEventType = "checkout_closed"
	CheckoutEventCheckedOut CheckoutEventType = "vehicle_checked_out"
)

// CheckoutNotification is pushed to WebSocket clients and the checkout event queue.
type CheckoutNotification struct {
	EventType    CheckoutEventType `json:"event_type"`
	SessionID    string            `json:"session_id"`
	ContractorID string            `json:"contractor_id"`
	VehicleID    string            `json:"vehicle_id"`
	PlateNumber  string            `json:"plate_number,omitempty"`
	Timestamp    time.Time         `json:"timestamp"`
	Payload      any               `json:"payload,omitempty"`
}
