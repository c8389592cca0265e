package usecases

import (
	"context"
	"fmt"

	"verity/internal/application/verification/kycprovider"
	"verity/internal/shared/logger"
)

type PollStatusCommand struct {
	CheckID string
}

// PollStatusUseCase is the pull-based fallback for lost webhooks. It fetches
// the provider's current view of a check and runs it through the same
// reconciliation as the webhook path.
type PollStatusUseCase struct {
	provider  kycprovider.Provider
	reconcile *ReconcileResultUseCase
	logger    logger.Interface
}

func NewPollStatusUseCase(
	provider kycprovider.Provider,
	reconcile *ReconcileResultUseCase,
	logger logger.Interface,
) *PollStatusUseCase {
	return &PollStatusUseCase{
		provider:  provider,
		reconcile: reconcile,
		logger:    logger,
	}
}

func (uc *PollStatusUseCase) Execute(ctx context.Context, cmd PollStatusCommand) error {
	if cmd.CheckID == "" {
		uc.logger.Warnw("poll requested without check ID")
		return nil
	}

	result, err := uc.provider.GetCheckStatus(ctx, cmd.CheckID)
	if err != nil {
		// provider outages are retried by the task policy
		return fmt.Errorf("failed to poll check status: %w", err)
	}

	return uc.reconcile.Execute(ctx, result)
}
