package api

import (
	"net/http"
	"time"

	"parkflow/internal/api/handler"
	"parkflow/internal/api/middleware"
	"parkflow/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Roles allowed to drive a checkout. Tokens with any other role are rejected.
var checkoutRoles = []string{"attendant", "supervisor", "admin"}

type RouterDeps struct {
	AuthService     *service.AuthService
	CheckoutService *service.CheckoutService
	WSManager       *handler.WebSocketManager
	RateLimiter     *middleware.RateLimiter
	AllowedOrigins  []string
}

func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(configureCORS(deps.AllowedOrigins))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":        "ok",
			"open_sessions": deps.CheckoutService.OpenSessions(),
		})
	})

	wsHandler := handler.NewWebSocketHandler(deps.WSManager, deps.AuthService, deps.AllowedOrigins)
	r.GET("/ws", wsHandler.HandleWebSocket)

	authMw := middleware.NewAuthMiddleware(deps.AuthService)

	v1 := r.Group("/api/v1")
	v1.Use(authMw.Authenticate())
	if deps.RateLimiter != nil {
		v1.Use(deps.RateLimiter.Middleware())
	}
	v1.Use(authMw.AuthorizeRole(checkoutRoles...))
	{
		feeH := handler.NewFeeHandler(deps.CheckoutService)
		v1.POST("/fees/quote", feeH.Quote)

		checkoutH := handler.NewCheckoutHandler(deps.CheckoutService)
		checkoutRoutes := v1.Group("/checkouts")
		{
			checkoutRoutes.POST("", checkoutH.OpenCheckout)
			checkoutRoutes.GET("/:id", checkoutH.GetCheckout)
			checkoutRoutes.POST("/:id/recalculate", checkoutH.Recalculate)
			checkoutRoutes.PUT("/:id/payment-method", checkoutH.SelectPaymentMethod)
			checkoutRoutes.POST("/:id/confirm", checkoutH.Confirm)
			checkoutRoutes.DELETE("/:id", checkoutH.Cancel)
		}

		receiptH := handler.NewReceiptHandler(deps.CheckoutService)
		receiptRoutes := v1.Group("/receipts")
		{
			receiptRoutes.GET("", receiptH.ListReceipts)
			receiptRoutes.GET("/:receipt_id", receiptH.GetReceipt)
		}
	}

	return r
}

func configureCORS(origins []string) gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"}
	corsConfig.MaxAge = 12 * time.Hour

	allowAll := len(origins) == 0
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
	}
	if allowAll {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = origins
		corsConfig.AllowCredentials = true
	}

	return cors.New(corsConfig)
}
