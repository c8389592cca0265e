// Package http wires the HTTP surface: handlers, middleware and routes.
package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	billingUsecases "verity/internal/application/billing/usecases"
	verificationUsecases "verity/internal/application/verification/usecases"
	"verity/internal/infrastructure/billing"
	"verity/internal/infrastructure/config"
	"verity/internal/infrastructure/kyc"
	"verity/internal/infrastructure/queue"
	"verity/internal/infrastructure/repository"
	"verity/internal/interfaces/http/handlers"
	"verity/internal/interfaces/http/middleware"
	"verity/internal/interfaces/http/routes"
	sharedDB "verity/internal/shared/db"
	"verity/internal/shared/logger"
)

// Router represents the HTTP router configuration
type Router struct {
	engine             *gin.Engine
	kycHandler         *handlers.KYCHandler
	billingHandler     *handlers.BillingHandler
	webhookRateLimiter *middleware.RateLimiter
	logger             logger.Interface
}

// NewRouter creates a new HTTP router with all dependencies
func NewRouter(db *gorm.DB, redisClient *redis.Client, cfg *config.Config, log logger.Interface) *Router {
	engine := gin.New()

	verificationRepo := repository.NewVerificationRepository(db, log)
	subscriptionRepo := repository.NewSubscriptionRepository(db, log)
	historyRepo := repository.NewBillingHistoryRepository(db, log)
	userRepo := repository.NewUserRepository(db, log)

	kycProvider := kyc.NewOnfidoProvider(&cfg.Onfido, log)
	billingProvider := billing.NewStripeProvider(&cfg.Stripe, log)

	enqueuer := queue.NewClient(redisClient, log)

	startUC := verificationUsecases.NewStartVerificationUseCase(verificationRepo, kycProvider, enqueuer, log)
	createCheckUC := verificationUsecases.NewCreateCheckUseCase(verificationRepo, kycProvider, log)
	getStatusUC := verificationUsecases.NewGetStatusUseCase(verificationRepo, log)
	listUC := verificationUsecases.NewListVerificationsUseCase(verificationRepo, log)
	sdkTokenUC := verificationUsecases.NewGetSDKTokenUseCase(verificationRepo, kycProvider, log)

	txMgr := sharedDB.NewTransactionManager(db)
	createCheckoutUC := billingUsecases.NewCreateCheckoutUseCase(subscriptionRepo, userRepo, billingProvider, txMgr, cfg.Server.DashboardURL, log)
	cancelUC := billingUsecases.NewCancelSubscriptionUseCase(subscriptionRepo, billingProvider, log)
	getSubUC := billingUsecases.NewGetSubscriptionUseCase(subscriptionRepo, log)
	listInvoicesUC := billingUsecases.NewListInvoicesUseCase(subscriptionRepo, historyRepo, log)
	getUsageUC := billingUsecases.NewGetUsageUseCase(subscriptionRepo, log)
	consumeTokenUC := billingUsecases.NewConsumeTokenUseCase(subscriptionRepo, log)
	getPlansUC := billingUsecases.NewGetPlansUseCase()

	kycHandler := handlers.NewKYCHandler(
		startUC, createCheckUC, getStatusUC, listUC, sdkTokenUC,
		kycProvider, enqueuer, log,
	)
	billingHandler := handlers.NewBillingHandler(
		createCheckoutUC, cancelUC, getSubUC, listInvoicesUC, getUsageUC, consumeTokenUC, getPlansUC,
		billingProvider, enqueuer, log,
	)

	webhookRateLimiter := middleware.NewRateLimiter(redisClient, 300, time.Minute)

	return &Router{
		engine:             engine,
		kycHandler:         kycHandler,
		billingHandler:     billingHandler,
		webhookRateLimiter: webhookRateLimiter,
		logger:             log,
	}
}

// SetupRoutes registers middleware and all route groups
func (r *Router) SetupRoutes() {
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.Logger(r.logger))

	r.engine.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	routes.SetupKYCRoutes(r.engine, &routes.KYCRouteConfig{
		KYCHandler:         r.kycHandler,
		WebhookRateLimiter: r.webhookRateLimiter,
	})
	routes.SetupBillingRoutes(r.engine, &routes.BillingRouteConfig{
		BillingHandler:     r.billingHandler,
		WebhookRateLimiter: r.webhookRateLimiter,
	})
}

// GetEngine returns the underlying gin engine
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
