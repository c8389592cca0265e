package usecases

import (
	"context"
	"fmt"

	"verity/internal/domain/verification"
	"verity/internal/shared/logger"
)

// SyncRegistryUseCase hands an approved verification to the on-chain
// identity registry. The chain client is not wired yet, so the hand-off is
// recorded as a pending-sync marker for the registry operator.
//
// TODO: call the registry contract once the chain client lands.
type SyncRegistryUseCase struct {
	verificationRepo verification.Repository
	logger           logger.Interface
}

func NewSyncRegistryUseCase(
	verificationRepo verification.Repository,
	logger logger.Interface,
) *SyncRegistryUseCase {
	return &SyncRegistryUseCase{
		verificationRepo: verificationRepo,
		logger:           logger,
	}
}

func (uc *SyncRegistryUseCase) Execute(ctx context.Context, verificationID uint) error {
	v, err := uc.verificationRepo.GetByID(ctx, verificationID)
	if err != nil {
		return fmt.Errorf("failed to get verification: %w", err)
	}
	if v == nil {
		uc.logger.Warnw("registry sync for missing verification", "verification_id", verificationID)
		return nil
	}

	// the record may have moved on between approval and this task running
	if v.Status() != verification.StatusApproved {
		uc.logger.Warnw("skipping registry sync, verification no longer approved",
			"sid", v.SID(), "status", v.Status())
		return nil
	}

	uc.logger.Infow("registry sync pending",
		"sid", v.SID(),
		"wallet_address", v.WalletAddress(),
		"verification_level", v.VerificationLevel(),
	)
	return nil
}
