package handler

import (
	"net/http"

	"parkflow/internal/domain"
	"parkflow/internal/service"

	"github.com/gin-gonic/gin"
)

type FeeHandler struct {
	checkoutService *service.CheckoutService
}

func NewFeeHandler(cs *service.CheckoutService) *FeeHandler {
	return &FeeHandler{checkoutService: cs}
}

// POST /fees/quote
func (h *FeeHandler) Quote(c *gin.Context) {
	var dto domain.FeeQuoteDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	result, err := h.checkoutService.Quote(dto)
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, result)
}
