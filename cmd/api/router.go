package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"cashfree-gateway/internal/shared/middleware"
	"cashfree-gateway/pkg/container"
)

func SetupRouter(c *container.Container) *gin.Engine {
	router := gin.New()

	// Global middlewares
	router.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.CORS(),
	)

	v1 := router.Group("/api/v1")
	{
		// Health check
		v1.GET("/health", healthCheckHandler(c))

		setupPaymentRoutes(v1, c)
		setupWebhookRoutes(v1, c)
	}

	return router
}

// ========================================
// PAYMENT ROUTES
// ========================================
func setupPaymentRoutes(v1 *gin.RouterGroup, c *container.Container) {
	payments := v1.Group("/payments")
	{
		// Identity is optional: a logged-in customer enriches the contact
		// details Cashfree sees, an anonymous one gets placeholders.
		payments.POST("/initiate", middleware.OptionalAuth(c.JWTManager), c.PaymentHandler.InitiatePayment)

		// Browser lands here after the Cashfree checkout page.
		payments.GET("/return", c.PaymentHandler.PaymentReturn)

		payments.GET("/:payment_id", c.PaymentHandler.GetPaymentStatus)
	}
}

// ========================================
// WEBHOOK ROUTES
// ========================================
func setupWebhookRoutes(v1 *gin.RouterGroup, c *container.Container) {
	webhooks := v1.Group("/webhooks")
	{
		// Server-to-server, authenticated by HMAC signature, never by JWT.
		webhooks.POST("/cashfree", c.PaymentHandler.CashfreeWebhook)
	}
}

// ========================================
// HEALTH CHECK
// ========================================
func healthCheckHandler(c *container.Container) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		checkCtx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
		defer cancel()

		dbStatus := "up"
		if err := c.DB.HealthCheck(checkCtx); err != nil {
			dbStatus = "down"
		}

		cacheStatus := "up"
		if err := c.Cache.Ping(checkCtx); err != nil {
			cacheStatus = "down"
		}

		status := http.StatusOK
		if dbStatus == "down" {
			status = http.StatusServiceUnavailable
		}

		ctx.JSON(status, gin.H{
			"service":     c.Config.App.Name,
			"version":     c.Config.App.Version,
			"environment": c.Config.App.Environment,
			"database":    dbStatus,
			"cache":       cacheStatus,
		})
	}
}
