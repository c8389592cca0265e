package usecases

import (
	"context"
	"fmt"

	"verity/internal/application/billing/dto"
	"verity/internal/domain/billing"
	"verity/internal/shared/errors"
	"verity/internal/shared/logger"
)

type GetUsageQuery struct {
	SubscriptionSID string
}

type GetUsageUseCase struct {
	subscriptionRepo billing.SubscriptionRepository
	logger           logger.Interface
}

func NewGetUsageUseCase(subscriptionRepo billing.SubscriptionRepository, logger logger.Interface) *GetUsageUseCase {
	return &GetUsageUseCase{subscriptionRepo: subscriptionRepo, logger: logger}
}

func (uc *GetUsageUseCase) Execute(ctx context.Context, query GetUsageQuery) (*dto.UsageDTO, error) {
	sub, err := uc.subscriptionRepo.GetBySID(ctx, query.SubscriptionSID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up subscription: %w", err)
	}
	if sub == nil {
		return nil, errors.NewNotFoundError("subscription not found")
	}

	remaining := sub.TokensLimit() - sub.TokensUsed()
	if remaining < 0 {
		remaining = 0
	}
	return &dto.UsageDTO{
		Plan:        string(sub.Plan()),
		TokensLimit: sub.TokensLimit(),
		TokensUsed:  sub.TokensUsed(),
		Remaining:   remaining,
	}, nil
}

// ConsumeTokenUseCase spends one token from the subscription quota.
type ConsumeTokenUseCase struct {
	subscriptionRepo billing.SubscriptionRepository
	logger           logger.Interface
}

func NewConsumeTokenUseCase(subscriptionRepo billing.SubscriptionRepository, logger logger.Interface) *ConsumeTokenUseCase {
	return &ConsumeTokenUseCase{subscriptionRepo: subscriptionRepo, logger: logger}
}

func (uc *ConsumeTokenUseCase) Execute(ctx context.Context, subscriptionSID string) (*dto.UsageDTO, error) {
	sub, err := uc.subscriptionRepo.GetBySID(ctx, subscriptionSID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up subscription: %w", err)
	}
	if sub == nil {
		return nil, errors.NewNotFoundError("subscription not found")
	}
	if !sub.Status().CanUseService() {
		return nil, errors.NewConflictError("subscription is not active")
	}
	if err := sub.ConsumeToken(); err != nil {
		return nil, errors.NewConflictError(err.Error())
	}
	if err := uc.subscriptionRepo.Update(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to persist subscription: %w", err)
	}

	remaining := sub.TokensLimit() - sub.TokensUsed()
	if remaining < 0 {
		remaining = 0
	}
	return &dto.UsageDTO{
		Plan:        string(sub.Plan()),
		TokensLimit: sub.TokensLimit(),
		TokensUsed:  sub.TokensUsed(),
		Remaining:   remaining,
	}, nil
}
