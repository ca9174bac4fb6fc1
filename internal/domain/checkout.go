package domain

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/guregu/null.v4"
)

type PaymentMethod string

const (
	PaymentCash    PaymentMethod = "cash"
	PaymentCard    PaymentMethod = "card"
	PaymentDigital PaymentMethod = "digital"
	PaymentFree    PaymentMethod = "free"
)

// PaymentMethods lists the accepted methods in display order.
var PaymentMethods = []PaymentMethod{PaymentCash, PaymentCard, PaymentDigital, PaymentFree}

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	m := PaymentMethod(strings.ToLower(strings.TrimSpace(s)))
	for _, valid := range PaymentMethods {
		if m == valid {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown payment method %q: expected one of cash, card, digital, free", s)
}

// CheckoutRequest is sent to the backend to close a vehicle's stay.
type CheckoutRequest struct {
	CheckOutTime  string        `json:"check_out_time"`
	PaymentAmount float64       `json:"payment_amount"`
	PaymentMethod PaymentMethod `json:"payment_method"`
}

// CheckoutResponse is the backend's answer to a checkout.
type CheckoutResponse struct {
	Vehicle   Vehicle `json:"vehicle"`
	ReceiptID string  `json:"receipt_id,omitempty"`
}

// Receipt is what the attendant prints after a successful checkout.
type Receipt struct {
	ReceiptID        string        `json:"receipt_id"`
	PlateNumber      string        `json:"plate_number"`
	VehicleType      string        `json:"vehicle_type"`
	CheckInTime      time.Time     `json:"check_in_time"`
	CheckOutTime     time.Time     `json:"check_out_time"`
	Duration         string        `json:"duration"`
	PaymentMethod    PaymentMethod `json:"payment_method"`
	PaymentAmount    float64       `json:"payment_amount"`
	CalculatedAmount float64       `json:"calculated_amount"`
	Breakdown        string        `json:"breakdown,omitempty"`
	// ServerIssued is false when ReceiptID is a local fallback number.
	ServerIssued bool `json:"server_issued"`
}

// ReceiptRecord is a journaled receipt.
type ReceiptRecord struct {
	ID           int         `json:"id"`
	Receipt      Receipt     `json:"receipt"`
	VehicleID    string      `json:"vehicle_id"`
	ContractorID string      `json:"contractor_id"`
	AttendantID  null.String `json:"attendant_id"`
	ServerIssued bool        `json:"server_issued"`
	CreatedAt    time.Time   `json:"created_at"`
}

// OpenCheckoutDTO is the body of POST /checkouts.
type OpenCheckoutDTO struct {
	VehicleID string `json:"vehicle_id" binding:"required"`
}

// SelectPaymentMethodDTO is the body of PUT /checkouts/:id/payment-method.
type SelectPaymentMethodDTO struct {
	PaymentMethod string `json:"payment_method" binding:"required"`
}

// FeeQuoteDTO is the body of POST /fees/quote.
type FeeQuoteDTO struct {
	CheckInTime  string      `json:"check_in_time" binding:"required"`
	CheckOutTime string      `json:"check_out_time,omitempty"`
	VehicleType  string      `json:"vehicle_type" binding:"required"`
	Rates        RawRateTier `json:"rates"`
}
