package checkout

import "errors"

var (
	ErrRatesNotConfigured   = errors.New("parking rates are not configured for this contractor; ask the contractor to set two-wheeler and four-wheeler rates, then reopen the checkout")
	ErrPersistenceFailed    = errors.New("checkout could not be saved")
	ErrNoCalculation        = errors.New("unable to calculate the parking fee; retry the calculation before confirming")
	ErrZeroAmountNotFree    = errors.New("calculated amount is 0.00, which usually means the rates are misconfigured; fix the rates or choose the free payment method")
	ErrNegativeAmount       = errors.New("calculated amount is negative; retry the calculation")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrConfirmInFlight      = errors.New("checkout confirmation is in progress")
	ErrSessionClosed        = errors.New("checkout session is closed")
	ErrSessionNotFound      = errors.New("checkout session not found")
)
