package usecases

import (
	"context"
	"fmt"
	"time"

	"verity/internal/domain/verification"
	"verity/internal/infrastructure/queue"
	"verity/internal/shared/biztime"
	"verity/internal/shared/logger"
	"verity/internal/tasks"
)

// EnqueueStalePollsUseCase schedules a provider poll for every in_progress
// verification that has not moved recently. It catches checks whose webhook
// never arrived.
type EnqueueStalePollsUseCase struct {
	verificationRepo verification.Repository
	enqueuer         queue.Enqueuer
	staleAfter       time.Duration
	logger           logger.Interface
}

func NewEnqueueStalePollsUseCase(
	verificationRepo verification.Repository,
	enqueuer queue.Enqueuer,
	staleAfter time.Duration,
	logger logger.Interface,
) *EnqueueStalePollsUseCase {
	return &EnqueueStalePollsUseCase{
		verificationRepo: verificationRepo,
		enqueuer:         enqueuer,
		staleAfter:       staleAfter,
		logger:           logger,
	}
}

func (uc *EnqueueStalePollsUseCase) Execute(ctx context.Context) (int, error) {
	olderThan := biztime.NowUTC().Add(-uc.staleAfter)

	stale, err := uc.verificationRepo.FindStaleInProgress(ctx, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to find stale verifications: %w", err)
	}

	enqueued := 0
	for _, v := range stale {
		if err := uc.enqueuer.Enqueue(ctx, tasks.KYCPoll, tasks.KYCPollPayload{
			CheckID: v.CheckID(),
		}); err != nil {
			uc.logger.Warnw("failed to enqueue status poll",
				"verification_sid", v.SID(),
				"check_id", v.CheckID(),
				"error", err,
			)
			continue
		}
		enqueued++
	}

	if enqueued > 0 {
		uc.logger.Infow("scheduled status polls for stale verifications", "count", enqueued)
	}
	return enqueued, nil
}
