package usecases

import (
	"context"
	"fmt"

	"verity/internal/application/billing/dto"
	"verity/internal/domain/billing"
	"verity/internal/shared/errors"
	"verity/internal/shared/logger"
)

type ListInvoicesQuery struct {
	SubscriptionSID string
	Page            int
	PageSize        int
}

type ListInvoicesUseCase struct {
	subscriptionRepo billing.SubscriptionRepository
	historyRepo      billing.BillingHistoryRepository
	logger           logger.Interface
}

func NewListInvoicesUseCase(
	subscriptionRepo billing.SubscriptionRepository,
	historyRepo billing.BillingHistoryRepository,
	logger logger.Interface,
) *ListInvoicesUseCase {
	return &ListInvoicesUseCase{
		subscriptionRepo: subscriptionRepo,
		historyRepo:      historyRepo,
		logger:           logger,
	}
}

func (uc *ListInvoicesUseCase) Execute(ctx context.Context, query ListInvoicesQuery) ([]*dto.InvoiceDTO, int64, error) {
	sub, err := uc.subscriptionRepo.GetBySID(ctx, query.SubscriptionSID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to look up subscription: %w", err)
	}
	if sub == nil {
		return nil, 0, errors.NewNotFoundError("subscription not found")
	}

	rows, total, err := uc.historyRepo.ListBySubscriptionID(ctx, sub.ID(), query.Page, query.PageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list invoices: %w", err)
	}
	return dto.InvoicesFromEntities(rows), total, nil
}
