package usecases

import (
	"context"
	"fmt"

	"verity/internal/application/billing/billingprovider"
	"verity/internal/domain/billing"
	"verity/internal/shared/errors"
	"verity/internal/shared/logger"
)

type CancelSubscriptionCommand struct {
	SID         string
	Immediately bool
}

type CancelSubscriptionUseCase struct {
	subscriptionRepo billing.SubscriptionRepository
	provider         billingprovider.Provider
	logger           logger.Interface
}

func NewCancelSubscriptionUseCase(
	subscriptionRepo billing.SubscriptionRepository,
	provider billingprovider.Provider,
	logger logger.Interface,
) *CancelSubscriptionUseCase {
	return &CancelSubscriptionUseCase{
		subscriptionRepo: subscriptionRepo,
		provider:         provider,
		logger:           logger,
	}
}

// Execute requests cancellation at the provider. The local record is not
// touched here; the subscription webhook carries the resulting state back.
func (uc *CancelSubscriptionUseCase) Execute(ctx context.Context, cmd CancelSubscriptionCommand) error {
	sub, err := uc.subscriptionRepo.GetBySID(ctx, cmd.SID)
	if err != nil {
		return fmt.Errorf("failed to look up subscription: %w", err)
	}
	if sub == nil {
		return errors.NewNotFoundError("subscription not found")
	}
	if sub.Status().IsTerminal() {
		return errors.NewConflictError("subscription is already canceled")
	}
	if sub.StripeSubscriptionID() == "" {
		return errors.NewConflictError("subscription has not completed checkout")
	}

	if err := uc.provider.CancelSubscription(ctx, sub.StripeSubscriptionID(), !cmd.Immediately); err != nil {
		return fmt.Errorf("failed to cancel subscription: %w", err)
	}

	uc.logger.Infow("subscription cancellation requested",
		"subscription_sid", sub.SID(),
		"immediately", cmd.Immediately,
	)
	return nil
}
