package usecases

import (
	"context"
	"fmt"

	"verity/internal/domain/verification"
	"verity/internal/shared/biztime"
	"verity/internal/shared/logger"
)

// ExpireVerificationsUseCase sweeps approved records whose validity window
// has passed. Each record commits on its own so one failure cannot stall
// the sweep.
type ExpireVerificationsUseCase struct {
	verificationRepo verification.Repository
	logger           logger.Interface
}

func NewExpireVerificationsUseCase(
	verificationRepo verification.Repository,
	logger logger.Interface,
) *ExpireVerificationsUseCase {
	return &ExpireVerificationsUseCase{
		verificationRepo: verificationRepo,
		logger:           logger,
	}
}

func (uc *ExpireVerificationsUseCase) Execute(ctx context.Context) (int, error) {
	now := biztime.NowUTC()

	expired, err := uc.verificationRepo.FindExpiredApproved(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to find expired verifications: %w", err)
	}

	processed := 0
	for _, v := range expired {
		if err := v.MarkExpired(now); err != nil {
			uc.logger.Warnw("failed to mark verification expired", "error", err, "sid", v.SID())
			continue
		}
		if err := uc.verificationRepo.Update(ctx, v); err != nil {
			uc.logger.Warnw("failed to persist expired verification", "error", err, "sid", v.SID())
			continue
		}
		processed++
	}

	if processed > 0 {
		uc.logger.Infow("expired verifications swept", "count", processed)
	}
	return processed, nil
}
