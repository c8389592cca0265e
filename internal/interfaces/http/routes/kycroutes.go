// Package routes provides HTTP route configurations.
package routes

import (
	"github.com/gin-gonic/gin"

	"verity/internal/interfaces/http/handlers"
	"verity/internal/interfaces/http/middleware"
)

// KYCRouteConfig contains dependencies for verification routes.
type KYCRouteConfig struct {
	KYCHandler         *handlers.KYCHandler
	WebhookRateLimiter *middleware.RateLimiter
}

// SetupKYCRoutes configures identity verification routes.
// Routes: /api/kyc/* including the provider webhook.
func SetupKYCRoutes(engine *gin.Engine, cfg *KYCRouteConfig) {
	kyc := engine.Group("/api/kyc")
	{
		kyc.POST("/start", cfg.KYCHandler.StartVerification)
		kyc.POST("/check", cfg.KYCHandler.CreateCheck)
		kyc.GET("/status/:wallet", cfg.KYCHandler.GetStatus)
		kyc.GET("/sdk-token/:id", cfg.KYCHandler.GetSDKToken)
		kyc.GET("/verifications", cfg.KYCHandler.ListVerifications)

		kyc.POST("/webhook", cfg.WebhookRateLimiter.Limit(), cfg.KYCHandler.HandleWebhook)
	}
}
