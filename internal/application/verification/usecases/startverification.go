package usecases

import (
	"context"
	"fmt"
	"strings"

	"verity/internal/application/verification/dto"
	"verity/internal/application/verification/kycprovider"
	"verity/internal/domain/verification"
	"verity/internal/infrastructure/email"
	"verity/internal/infrastructure/queue"
	"verity/internal/shared/biztime"
	"verity/internal/shared/errors"
	"verity/internal/shared/id"
	"verity/internal/shared/logger"
	"verity/internal/tasks"
)

type StartVerificationCommand struct {
	FirstName     string
	LastName      string
	Email         string
	WalletAddress string
}

type StartVerificationUseCase struct {
	verificationRepo verification.Repository
	provider         kycprovider.Provider
	enqueuer         queue.Enqueuer
	logger           logger.Interface
}

func NewStartVerificationUseCase(
	verificationRepo verification.Repository,
	provider kycprovider.Provider,
	enqueuer queue.Enqueuer,
	logger logger.Interface,
) *StartVerificationUseCase {
	return &StartVerificationUseCase{
		verificationRepo: verificationRepo,
		provider:         provider,
		enqueuer:         enqueuer,
		logger:           logger,
	}
}

func (uc *StartVerificationUseCase) Execute(ctx context.Context, cmd StartVerificationCommand) (*dto.VerificationDTO, error) {
	if cmd.Email == "" || cmd.WalletAddress == "" {
		return nil, errors.NewValidationError("email and wallet address are required")
	}

	wallet := strings.ToLower(cmd.WalletAddress)

	active, err := uc.verificationRepo.GetActiveByWalletAddress(ctx, wallet)
	if err != nil {
		return nil, fmt.Errorf("failed to check active verification: %w", err)
	}
	if active != nil {
		return nil, errors.NewConflictError("a verification is already in progress for this wallet")
	}

	existing, err := uc.verificationRepo.GetByWalletAddress(ctx, wallet)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing verification: %w", err)
	}
	if existing != nil && existing.Status() == verification.StatusApproved {
		if existing.ExpiresAt() == nil || existing.ExpiresAt().After(biztime.NowUTC()) {
			return nil, errors.NewConflictError("wallet is already verified")
		}
	}

	applicantID, err := uc.provider.CreateApplicant(ctx, kycprovider.ApplicantData{
		FirstName: cmd.FirstName,
		LastName:  cmd.LastName,
		Email:     cmd.Email,
	})
	if err != nil {
		uc.logger.Errorw("failed to create applicant", "error", err, "wallet_address", wallet)
		return nil, fmt.Errorf("failed to create applicant: %w", err)
	}

	sid, err := id.GenerateWithPrefix(id.PrefixVerification, id.DefaultLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate verification ID: %w", err)
	}

	v, err := verification.NewVerification(sid, cmd.FirstName, cmd.LastName, cmd.Email, wallet)
	if err != nil {
		return nil, errors.NewValidationError(err.Error())
	}
	if err := v.AttachApplicant(applicantID); err != nil {
		return nil, fmt.Errorf("failed to attach applicant: %w", err)
	}

	if err := uc.verificationRepo.Create(ctx, v); err != nil {
		return nil, fmt.Errorf("failed to create verification: %w", err)
	}

	// notification failures never block the verification itself
	if err := uc.enqueuer.Enqueue(ctx, tasks.EmailSend, tasks.EmailSendPayload{
		Template: email.TemplateKYCStarted,
		To:       v.Email(),
		Name:     v.FullName(),
	}); err != nil {
		uc.logger.Errorw("failed to enqueue started email", "error", err, "sid", v.SID())
	}

	uc.logger.Infow("verification started",
		"sid", v.SID(),
		"wallet_address", wallet,
		"applicant_id", applicantID,
	)

	return dto.FromEntity(v), nil
}
