package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	billingusecases "verity/internal/application/billing/usecases"
	verificationusecases "verity/internal/application/verification/usecases"
	"verity/internal/infrastructure/email"
	"verity/internal/infrastructure/queue"
	"verity/internal/shared/logger"
	"verity/internal/tasks"
)

// Handlers binds queue task names to their use cases
type Handlers struct {
	reconcileResult *verificationusecases.ReconcileResultUseCase
	pollStatus      *verificationusecases.PollStatusUseCase
	syncRegistry    *verificationusecases.SyncRegistryUseCase
	applyEvent      *billingusecases.ApplyEventUseCase
	emailSender     email.Sender
	logger          logger.Interface
}

func NewHandlers(
	reconcileResult *verificationusecases.ReconcileResultUseCase,
	pollStatus *verificationusecases.PollStatusUseCase,
	syncRegistry *verificationusecases.SyncRegistryUseCase,
	applyEvent *billingusecases.ApplyEventUseCase,
	emailSender email.Sender,
	logger logger.Interface,
) *Handlers {
	return &Handlers{
		reconcileResult: reconcileResult,
		pollStatus:      pollStatus,
		syncRegistry:    syncRegistry,
		applyEvent:      applyEvent,
		emailSender:     emailSender,
		logger:          logger,
	}
}

// RegisterAll wires every task handler into the worker with its retry and
// rate limit policy
func (h *Handlers) RegisterAll(w *queue.Worker) {
	w.Register(tasks.KYCReconcile, h.handleKYCReconcile, queue.Policy{
		MaxRetries:   3,
		BackoffBase:  time.Minute,
		RateCategory: queue.RateCategoryKYC,
	})
	w.Register(tasks.KYCPoll, h.handleKYCPoll, queue.Policy{
		MaxRetries:   3,
		BackoffBase:  5 * time.Minute,
		RateCategory: queue.RateCategoryKYC,
	})
	w.Register(tasks.KYCSyncRegistry, h.handleKYCSyncRegistry, queue.Policy{
		MaxRetries:  5,
		BackoffBase: 2 * time.Minute,
	})
	w.Register(tasks.BillingReconcile, h.handleBillingReconcile, queue.Policy{
		MaxRetries:  3,
		BackoffBase: time.Minute,
	})
	w.Register(tasks.EmailSend, h.handleEmailSend, queue.Policy{
		MaxRetries:   3,
		BackoffBase:  time.Minute,
		RateCategory: queue.RateCategoryEmail,
	})
}

func (h *Handlers) handleKYCReconcile(ctx context.Context, raw json.RawMessage) error {
	var payload tasks.KYCReconcilePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return queue.Fatal(fmt.Errorf("malformed kyc:reconcile payload: %w", err))
	}
	return h.reconcileResult.Execute(ctx, payload.Result)
}

func (h *Handlers) handleKYCPoll(ctx context.Context, raw json.RawMessage) error {
	var payload tasks.KYCPollPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return queue.Fatal(fmt.Errorf("malformed kyc:poll payload: %w", err))
	}
	return h.pollStatus.Execute(ctx, verificationusecases.PollStatusCommand{CheckID: payload.CheckID})
}

func (h *Handlers) handleKYCSyncRegistry(ctx context.Context, raw json.RawMessage) error {
	var payload tasks.KYCSyncRegistryPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return queue.Fatal(fmt.Errorf("malformed kyc:sync_registry payload: %w", err))
	}
	return h.syncRegistry.Execute(ctx, payload.VerificationID)
}

func (h *Handlers) handleBillingReconcile(ctx context.Context, raw json.RawMessage) error {
	var payload tasks.BillingReconcilePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return queue.Fatal(fmt.Errorf("malformed billing:reconcile payload: %w", err))
	}
	return h.applyEvent.Execute(ctx, payload.Event)
}

func (h *Handlers) handleEmailSend(ctx context.Context, raw json.RawMessage) error {
	var payload tasks.EmailSendPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return queue.Fatal(fmt.Errorf("malformed email:send payload: %w", err))
	}
	if !email.HasTemplate(payload.Template) {
		return queue.Fatal(fmt.Errorf("unknown email template: %s", payload.Template))
	}

	data := payload.Data
	if data == nil {
		data = map[string]string{}
	}
	if _, ok := data["Name"]; !ok {
		data["Name"] = payload.Name
	}

	if err := h.emailSender.Send(payload.Template, payload.To, data); err != nil {
		return fmt.Errorf("failed to send %s email: %w", payload.Template, err)
	}

	h.logger.Debugw("email delivered", "template", payload.Template, "to", payload.To)
	return nil
}
