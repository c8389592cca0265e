package routes

import (
	"github.com/gin-gonic/gin"

	"verity/internal/interfaces/http/handlers"
	"verity/internal/interfaces/http/middleware"
)

// BillingRouteConfig contains dependencies for billing routes.
type BillingRouteConfig struct {
	BillingHandler     *handlers.BillingHandler
	WebhookRateLimiter *middleware.RateLimiter
}

// SetupBillingRoutes configures subscription billing routes.
// Routes: /api/billing/* including the payment webhook.
func SetupBillingRoutes(engine *gin.Engine, cfg *BillingRouteConfig) {
	billing := engine.Group("/api/billing")
	{
		billing.GET("/plans", cfg.BillingHandler.GetPlans)
		billing.GET("/subscription", cfg.BillingHandler.GetSubscription)
		billing.POST("/checkout", cfg.BillingHandler.CreateCheckout)
		billing.POST("/cancel", cfg.BillingHandler.CancelSubscription)
		billing.GET("/invoices", cfg.BillingHandler.ListInvoices)
		billing.GET("/usage", cfg.BillingHandler.GetUsage)
		billing.POST("/consume", cfg.BillingHandler.ConsumeToken)

		billing.POST("/webhook", cfg.WebhookRateLimiter.Limit(), cfg.BillingHandler.HandleWebhook)
	}
}
