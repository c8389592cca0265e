package usecases

import (
	"context"
	"fmt"
	"strings"
	"time"

	"verity/internal/domain/verification"
	"verity/internal/infrastructure/email"
	"verity/internal/infrastructure/queue"
	"verity/internal/shared/biztime"
	"verity/internal/shared/logger"
	"verity/internal/tasks"
)

// ReconcileResultUseCase is the single state machine both the webhook path
// and the polling path feed into. Replays and out-of-order deliveries are
// absorbed by the forward-only rule; side effects fire only when an actual
// transition edge is taken.
type ReconcileResultUseCase struct {
	verificationRepo verification.Repository
	enqueuer         queue.Enqueuer
	logger           logger.Interface
}

func NewReconcileResultUseCase(
	verificationRepo verification.Repository,
	enqueuer queue.Enqueuer,
	logger logger.Interface,
) *ReconcileResultUseCase {
	return &ReconcileResultUseCase{
		verificationRepo: verificationRepo,
		enqueuer:         enqueuer,
		logger:           logger,
	}
}

func (uc *ReconcileResultUseCase) Execute(ctx context.Context, res verification.Result) error {
	if res.CheckID == "" {
		uc.logger.Warnw("dropping result without check ID", "status", res.Status)
		return nil
	}

	v, err := uc.verificationRepo.GetByCheckID(ctx, res.CheckID)
	if err != nil {
		return fmt.Errorf("failed to get verification: %w", err)
	}
	if v == nil {
		// a check we never created, or a record deleted out of band
		uc.logger.Warnw("dropping orphaned result", "check_id", res.CheckID, "status", res.Status)
		return nil
	}

	if !v.ApplyResult(res, biztime.NowUTC()) {
		uc.logger.Debugw("result did not advance verification",
			"check_id", res.CheckID,
			"current_status", v.Status(),
			"incoming_status", res.Status,
		)
		return nil
	}

	// a conflict here is another writer racing us; the retry re-reads and
	// the forward-only rule decides again
	if err := uc.verificationRepo.Update(ctx, v); err != nil {
		return fmt.Errorf("failed to persist verification: %w", err)
	}

	uc.logger.Infow("verification reconciled",
		"sid", v.SID(),
		"check_id", res.CheckID,
		"status", v.Status(),
		"level", v.VerificationLevel(),
	)

	uc.dispatchSideEffects(ctx, v)
	return nil
}

func (uc *ReconcileResultUseCase) dispatchSideEffects(ctx context.Context, v *verification.Verification) {
	switch v.Status() {
	case verification.StatusApproved:
		expiresAt := ""
		if v.ExpiresAt() != nil {
			expiresAt = v.ExpiresAt().Format(time.DateOnly)
		}
		uc.enqueueEmail(ctx, v, email.TemplateKYCApproved, map[string]string{
			"ExpiresAt": expiresAt,
		})

		if err := uc.enqueuer.Enqueue(ctx, tasks.KYCSyncRegistry, tasks.KYCSyncRegistryPayload{
			VerificationID: v.ID(),
		}); err != nil {
			uc.logger.Errorw("failed to enqueue registry sync", "error", err, "sid", v.SID())
		}

	case verification.StatusRejected:
		uc.enqueueEmail(ctx, v, email.TemplateKYCRejected, map[string]string{
			"Reasons": strings.Join(v.RejectionReasons(), ", "),
		})

	case verification.StatusRequiresReview:
		// manual review queue, applicant is not notified
	}
}

func (uc *ReconcileResultUseCase) enqueueEmail(ctx context.Context, v *verification.Verification, template string, data map[string]string) {
	err := uc.enqueuer.Enqueue(ctx, tasks.EmailSend, tasks.EmailSendPayload{
		Template: template,
		To:       v.Email(),
		Name:     v.FullName(),
		Data:     data,
	})
	if err != nil {
		uc.logger.Errorw("failed to enqueue email", "error", err, "template", template, "sid", v.SID())
	}
}
