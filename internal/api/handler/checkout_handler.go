package handler

import (
	"net/http"

	"parkflow/internal/api/middleware"
	"parkflow/internal/checkout"
	"parkflow/internal/domain"
	"parkflow/internal/service"

	"github.com/gin-gonic/gin"
)

type CheckoutHandler struct {
	checkoutService *service.CheckoutService
}

func NewCheckoutHandler(cs *service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkoutService: cs}
}

// POST /checkouts
func (h *CheckoutHandler) OpenCheckout(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	var dto domain.OpenCheckoutDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	snap, created, err := h.checkoutService.OpenCheckout(c.Request.Context(), actor, dto.VehicleID)
	if err != nil {
		respondError(c, err, nil)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, snap)
}

// GET /checkouts/:id
func (h *CheckoutHandler) GetCheckout(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	snap, err := h.checkoutService.GetCheckout(actor, c.Param("id"))
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// POST /checkouts/:id/recalculate
func (h *CheckoutHandler) Recalculate(c *gin.Context) {
	h.dispatch(c, func(actor domain.Actor, id string) (checkout.Snapshot, error) {
		return h.checkoutService.Recalculate(c.Request.Context(), actor, id)
	})
}

// PUT /checkouts/:id/payment-method
func (h *CheckoutHandler) SelectPaymentMethod(c *gin.Context) {
	var dto domain.SelectPaymentMethodDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	h.dispatch(c, func(actor domain.Actor, id string) (checkout.Snapshot, error) {
		return h.checkoutService.SelectPaymentMethod(c.Request.Context(), actor, id, dto.PaymentMethod)
	})
}

// POST /checkouts/:id/confirm
func (h *CheckoutHandler) Confirm(c *gin.Context) {
	h.dispatch(c, func(actor domain.Actor, id string) (checkout.Snapshot, error) {
		return h.checkoutService.Confirm(c.Request.Context(), actor, id)
	})
}

// DELETE /checkouts/:id
func (h *CheckoutHandler) Cancel(c *gin.Context) {
	h.dispatch(c, func(actor domain.Actor, id string) (checkout.Snapshot, error) {
		return h.checkoutService.Cancel(c.Request.Context(), actor, id)
	})
}

// dispatch runs a session event and replies with the resulting snapshot. Rejected events
// still carry the snapshot so the client can render the inline message.
func (h *CheckoutHandler) dispatch(c *gin.Context, fn func(domain.Actor, string) (checkout.Snapshot, error)) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	snap, err := fn(actor, c.Param("id"))
	if err != nil {
		var extra gin.H
		if snap.ID != "" {
			extra = gin.H{"checkout": snap}
		}
		respondError(c, err, extra)
		return
	}
	c.JSON(http.StatusOK, snap)
}
