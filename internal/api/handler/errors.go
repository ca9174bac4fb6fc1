package handler

import (
	"errors"
	"net/http"

	"parkflow/internal/checkout"
	"parkflow/internal/client/backend"
	"parkflow/internal/fee"
	"parkflow/internal/logger"
	"parkflow/internal/repository"
	"parkflow/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var feeErr *fee.Error
	var httpErr *backend.HTTPError
	switch {
	case errors.As(err, &feeErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, checkout.ErrSessionNotFound),
		errors.Is(err, repository.ErrNotFound),
		errors.Is(err, backend.ErrVehicleNotFound):
		return http.StatusNotFound
	case errors.Is(err, checkout.ErrInvalidPaymentMethod):
		return http.StatusBadRequest
	case errors.Is(err, checkout.ErrZeroAmountNotFree),
		errors.Is(err, checkout.ErrNoCalculation),
		errors.Is(err, checkout.ErrNegativeAmount),
		errors.Is(err, checkout.ErrConfirmInFlight),
		errors.Is(err, checkout.ErrSessionClosed),
		errors.Is(err, checkout.ErrRatesNotConfigured),
		errors.Is(err, service.ErrVehicleAlreadyCheckedOut):
		return http.StatusConflict
	case errors.Is(err, checkout.ErrPersistenceFailed), errors.As(err, &httpErr):
		return http.StatusBadGateway
	case errors.Is(err, service.ErrJournalDisabled):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error, extra gin.H) {
	status := statusFor(err)
	body := gin.H{"error": err.Error()}

	var feeErr *fee.Error
	if errors.As(err, &feeErr) {
		body["kind"] = feeErr.Kind
		if feeErr.Field != "" {
			body["field"] = feeErr.Field
		}
	}
	for k, v := range extra {
		body[k] = v
	}

	if status >= http.StatusInternalServerError {
		logger.Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.Error(err))
	}
	c.JSON(status, body)
}
