package handler

import (
	"net/http"

	"parkflow/internal/api/middleware"
	"parkflow/internal/service"

	"github.com/gin-gonic/gin"
)

type ReceiptHandler struct {
	checkoutService *service.CheckoutService
}

func NewReceiptHandler(cs *service.CheckoutService) *ReceiptHandler {
	return &ReceiptHandler{checkoutService: cs}
}

// GET /receipts/:receipt_id
func (h *ReceiptHandler) GetReceipt(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	rec, err := h.checkoutService.GetReceipt(c.Request.Context(), actor, c.Param("receipt_id"))
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// GET /receipts?vehicle_id=
func (h *ReceiptHandler) ListReceipts(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	vehicleID := c.Query("vehicle_id")
	if vehicleID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "vehicle_id query parameter is required"})
		return
	}
	records, err := h.checkoutService.ListReceipts(c.Request.Context(), actor, vehicleID)
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, records)
}
