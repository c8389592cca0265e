package usecases

import (
	"context"
	"fmt"

	"verity/internal/application/verification/dto"
	"verity/internal/domain/verification"
	"verity/internal/shared/errors"
	"verity/internal/shared/logger"
)

type GetStatusQuery struct {
	WalletAddress string
}

type GetStatusUseCase struct {
	verificationRepo verification.Repository
	logger           logger.Interface
}

func NewGetStatusUseCase(
	verificationRepo verification.Repository,
	logger logger.Interface,
) *GetStatusUseCase {
	return &GetStatusUseCase{
		verificationRepo: verificationRepo,
		logger:           logger,
	}
}

func (uc *GetStatusUseCase) Execute(ctx context.Context, query GetStatusQuery) (*dto.VerificationDTO, error) {
	if query.WalletAddress == "" {
		return nil, errors.NewValidationError("wallet address is required")
	}

	v, err := uc.verificationRepo.GetByWalletAddress(ctx, query.WalletAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to get verification: %w", err)
	}
	if v == nil {
		return nil, errors.NewNotFoundError("no verification for this wallet")
	}

	return dto.FromEntity(v), nil
}
