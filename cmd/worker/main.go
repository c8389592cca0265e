package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	billingUsecases "verity/internal/application/billing/usecases"
	verificationUsecases "verity/internal/application/verification/usecases"
	"verity/internal/infrastructure/billing"
	"verity/internal/infrastructure/config"
	"verity/internal/infrastructure/database"
	"verity/internal/infrastructure/email"
	"verity/internal/infrastructure/kyc"
	"verity/internal/infrastructure/queue"
	"verity/internal/infrastructure/ratelimit"
	"verity/internal/infrastructure/repository"
	"verity/internal/infrastructure/scheduler"
	"verity/internal/shared/logger"
	"verity/internal/tasks/handlers"
)

func main() {
	env := "development"
	if len(os.Args) > 1 {
		env = os.Args[1]
	}
	if envVar := os.Getenv("ENV"); envVar != "" {
		env = envVar
	}

	cfg, err := config.Load(env)
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(&cfg.Logger, cfg.Server.Mode); err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	log := logger.NewLogger()
	log.Infow("starting reconciliation worker", "environment", env)

	if err := database.Init(&cfg.Database); err != nil {
		log.Errorw("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.GetAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Errorw("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	log.Infow("redis connection established", "address", cfg.Redis.GetAddr())

	db := database.Get()
	verificationRepo := repository.NewVerificationRepository(db, log)
	subscriptionRepo := repository.NewSubscriptionRepository(db, log)
	historyRepo := repository.NewBillingHistoryRepository(db, log)
	userRepo := repository.NewUserRepository(db, log)

	kycProvider := kyc.NewOnfidoProvider(&cfg.Onfido, log)
	_ = billing.NewStripeProvider(&cfg.Stripe, log)
	emailSender := email.NewSMTPSender(&cfg.Email, log)

	queueClient := queue.NewClient(redisClient, log)
	limiter := ratelimit.NewRedisRateLimiter(redisClient)

	reconcileUC := verificationUsecases.NewReconcileResultUseCase(verificationRepo, queueClient, log)
	pollUC := verificationUsecases.NewPollStatusUseCase(kycProvider, reconcileUC, log)
	syncRegistryUC := verificationUsecases.NewSyncRegistryUseCase(verificationRepo, log)
	applyEventUC := billingUsecases.NewApplyEventUseCase(subscriptionRepo, historyRepo, userRepo, queueClient, log)

	worker := queue.NewWorker(queueClient, redisClient, limiter, &cfg.Queue, log)
	handlers.NewHandlers(reconcileUC, pollUC, syncRegistryUC, applyEventUC, emailSender, log).RegisterAll(worker)
	worker.Start()

	expireUC := verificationUsecases.NewExpireVerificationsUseCase(verificationRepo, log)
	stalePollsUC := verificationUsecases.NewEnqueueStalePollsUseCase(
		verificationRepo,
		queueClient,
		time.Duration(cfg.Scheduler.PollStaleAfterMin)*time.Minute,
		log,
	)

	schedulerMgr, err := scheduler.NewSchedulerManager(log)
	if err != nil {
		log.Errorw("failed to create scheduler", "error", err)
		os.Exit(1)
	}
	if err := schedulerMgr.RegisterExpiryJob(expireUC, time.Duration(cfg.Scheduler.ExpirySweepHours)*time.Hour); err != nil {
		log.Errorw("failed to register expiry job", "error", err)
		os.Exit(1)
	}
	if err := schedulerMgr.RegisterPollJob(stalePollsUC, time.Duration(cfg.Scheduler.PollSweepMinutes)*time.Minute); err != nil {
		log.Errorw("failed to register poll job", "error", err)
		os.Exit(1)
	}
	schedulerMgr.Start()

	log.Infow("worker started",
		"concurrency", cfg.Queue.Concurrency,
		"expiry_sweep", fmt.Sprintf("%dh", cfg.Scheduler.ExpirySweepHours),
		"poll_sweep", fmt.Sprintf("%dm", cfg.Scheduler.PollSweepMinutes),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down worker")

	if err := schedulerMgr.Stop(); err != nil {
		log.Errorw("scheduler shutdown failed", "error", err)
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := worker.Stop(stopCtx); err != nil {
		log.Errorw("worker shutdown failed", "error", err)
	}

	log.Infow("worker stopped")
}
