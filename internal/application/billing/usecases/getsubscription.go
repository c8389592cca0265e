package usecases

import (
	"context"
	"fmt"

	"verity/internal/application/billing/dto"
	"verity/internal/domain/billing"
	"verity/internal/shared/errors"
	"verity/internal/shared/logger"
)

type GetSubscriptionQuery struct {
	SID string
}

type GetSubscriptionUseCase struct {
	subscriptionRepo billing.SubscriptionRepository
	logger           logger.Interface
}

func NewGetSubscriptionUseCase(subscriptionRepo billing.SubscriptionRepository, logger logger.Interface) *GetSubscriptionUseCase {
	return &GetSubscriptionUseCase{subscriptionRepo: subscriptionRepo, logger: logger}
}

func (uc *GetSubscriptionUseCase) Execute(ctx context.Context, query GetSubscriptionQuery) (*dto.SubscriptionDTO, error) {
	sub, err := uc.subscriptionRepo.GetBySID(ctx, query.SID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up subscription: %w", err)
	}
	if sub == nil {
		return nil, errors.NewNotFoundError("subscription not found")
	}
	return dto.SubscriptionFromEntity(sub), nil
}
