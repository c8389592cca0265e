package usecases

import (
	"context"
	"fmt"

	"verity/internal/application/verification/dto"
	"verity/internal/domain/verification"
	"verity/internal/shared/errors"
	"verity/internal/shared/logger"
)

type ListVerificationsQuery struct {
	Status   string
	Page     int
	PageSize int
}

type ListVerificationsUseCase struct {
	verificationRepo verification.Repository
	logger           logger.Interface
}

func NewListVerificationsUseCase(
	verificationRepo verification.Repository,
	logger logger.Interface,
) *ListVerificationsUseCase {
	return &ListVerificationsUseCase{
		verificationRepo: verificationRepo,
		logger:           logger,
	}
}

func (uc *ListVerificationsUseCase) Execute(ctx context.Context, query ListVerificationsQuery) ([]*dto.VerificationDTO, int64, error) {
	filter := verification.Filter{
		Page:     query.Page,
		PageSize: query.PageSize,
		SortDesc: true,
	}

	if query.Status != "" {
		status := verification.Status(query.Status)
		if !verification.ValidStatuses[status] {
			return nil, 0, errors.NewValidationError(fmt.Sprintf("invalid status: %s", query.Status))
		}
		filter.Status = &status
	}

	items, total, err := uc.verificationRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list verifications: %w", err)
	}

	return dto.FromEntities(items), total, nil
}
