package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"parkflow/internal/checkout"
	"parkflow/internal/client/backend"
	"parkflow/internal/fee"
	"parkflow/internal/repository"
	"parkflow/internal/service"

	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"fee error", &fee.Error{Kind: fee.InvalidTimestamp, Field: "check_in_time"}, http.StatusUnprocessableEntity},
		{"unknown session", checkout.ErrSessionNotFound, http.StatusNotFound},
		{"missing receipt", fmt.Errorf("lookup: %w", repository.ErrNotFound), http.StatusNotFound},
		{"missing vehicle", fmt.Errorf("CheckoutService.OpenCheckout: %w", backend.ErrVehicleNotFound), http.StatusNotFound},
		{"bad method", fmt.Errorf("%w: cheque", checkout.ErrInvalidPaymentMethod), http.StatusBadRequest},
		{"zero guard", checkout.ErrZeroAmountNotFree, http.StatusConflict},
		{"confirm in flight", checkout.ErrConfirmInFlight, http.StatusConflict},
		{"already checked out", service.ErrVehicleAlreadyCheckedOut, http.StatusConflict},
		{"persist failed", fmt.Errorf("%w: boom", checkout.ErrPersistenceFailed), http.StatusBadGateway},
		{"backend status", &backend.HTTPError{StatusCode: 500}, http.StatusBadGateway},
		{"journal off", service.ErrJournalDisabled, http.StatusServiceUnavailable},
		{"anything else", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}
