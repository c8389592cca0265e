package usecases

import (
	"context"
	"fmt"

	"verity/internal/application/verification/dto"
	"verity/internal/application/verification/kycprovider"
	"verity/internal/domain/verification"
	"verity/internal/shared/errors"
	"verity/internal/shared/logger"
)

type CreateCheckCommand struct {
	SID         string
	ReportNames []string
}

type CreateCheckUseCase struct {
	verificationRepo verification.Repository
	provider         kycprovider.Provider
	logger           logger.Interface
}

func NewCreateCheckUseCase(
	verificationRepo verification.Repository,
	provider kycprovider.Provider,
	logger logger.Interface,
) *CreateCheckUseCase {
	return &CreateCheckUseCase{
		verificationRepo: verificationRepo,
		provider:         provider,
		logger:           logger,
	}
}

func (uc *CreateCheckUseCase) Execute(ctx context.Context, cmd CreateCheckCommand) (*dto.VerificationDTO, error) {
	v, err := uc.verificationRepo.GetBySID(ctx, cmd.SID)
	if err != nil {
		return nil, fmt.Errorf("failed to get verification: %w", err)
	}
	if v == nil {
		return nil, errors.NewNotFoundError("verification not found")
	}
	if v.Status() != verification.StatusPending {
		return nil, errors.NewConflictError(fmt.Sprintf("verification is %s", v.Status()))
	}
	if v.ApplicantID() == "" {
		return nil, errors.NewConflictError("verification has no applicant")
	}

	check, err := uc.provider.CreateCheck(ctx, v.ApplicantID(), cmd.ReportNames)
	if err != nil {
		uc.logger.Errorw("failed to create check", "error", err, "sid", v.SID())
		return nil, fmt.Errorf("failed to create check: %w", err)
	}

	if err := v.AttachCheck(check.CheckID); err != nil {
		return nil, fmt.Errorf("failed to attach check: %w", err)
	}

	if err := uc.verificationRepo.Update(ctx, v); err != nil {
		return nil, fmt.Errorf("failed to update verification: %w", err)
	}

	uc.logger.Infow("check created",
		"sid", v.SID(),
		"check_id", check.CheckID,
	)

	return dto.FromEntity(v), nil
}
