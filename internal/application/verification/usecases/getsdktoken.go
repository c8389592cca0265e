package usecases

import (
	"context"
	"fmt"

	"verity/internal/application/verification/kycprovider"
	"verity/internal/domain/verification"
	"verity/internal/shared/errors"
	"verity/internal/shared/logger"
)

type GetSDKTokenQuery struct {
	SID      string
	Referrer string
}

// GetSDKTokenUseCase issues a short-lived provider token the frontend SDK
// uses to capture documents directly
type GetSDKTokenUseCase struct {
	verificationRepo verification.Repository
	provider         kycprovider.Provider
	logger           logger.Interface
}

func NewGetSDKTokenUseCase(
	verificationRepo verification.Repository,
	provider kycprovider.Provider,
	logger logger.Interface,
) *GetSDKTokenUseCase {
	return &GetSDKTokenUseCase{
		verificationRepo: verificationRepo,
		provider:         provider,
		logger:           logger,
	}
}

func (uc *GetSDKTokenUseCase) Execute(ctx context.Context, query GetSDKTokenQuery) (string, error) {
	v, err := uc.verificationRepo.GetBySID(ctx, query.SID)
	if err != nil {
		return "", fmt.Errorf("failed to get verification: %w", err)
	}
	if v == nil {
		return "", errors.NewNotFoundError("verification not found")
	}
	if v.ApplicantID() == "" {
		return "", errors.NewConflictError("verification has no applicant")
	}

	token, err := uc.provider.GenerateSDKToken(ctx, v.ApplicantID(), query.Referrer)
	if err != nil {
		uc.logger.Errorw("failed to generate sdk token", "error", err, "sid", v.SID())
		return "", fmt.Errorf("failed to generate sdk token: %w", err)
	}

	return token, nil
}
