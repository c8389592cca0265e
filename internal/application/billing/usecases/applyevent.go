package usecases

import (
	"context"
	"fmt"

	"verity/internal/domain/billing"
	"verity/internal/domain/user"
	"verity/internal/infrastructure/email"
	"verity/internal/infrastructure/queue"
	"verity/internal/shared/errors"
	"verity/internal/shared/logger"
	"verity/internal/tasks"
)

// ApplyEventUseCase folds normalized provider billing events into the local
// subscription state. Deliveries may arrive duplicated or out of order, so
// every mutation goes through the aggregate's ordering guard and a rejected
// event is acknowledged, not retried.
type ApplyEventUseCase struct {
	subscriptionRepo billing.SubscriptionRepository
	historyRepo      billing.BillingHistoryRepository
	userRepo         user.Repository
	enqueuer         queue.Enqueuer
	logger           logger.Interface
}

func NewApplyEventUseCase(
	subscriptionRepo billing.SubscriptionRepository,
	historyRepo billing.BillingHistoryRepository,
	userRepo user.Repository,
	enqueuer queue.Enqueuer,
	logger logger.Interface,
) *ApplyEventUseCase {
	return &ApplyEventUseCase{
		subscriptionRepo: subscriptionRepo,
		historyRepo:      historyRepo,
		userRepo:         userRepo,
		enqueuer:         enqueuer,
		logger:           logger,
	}
}

func (uc *ApplyEventUseCase) Execute(ctx context.Context, event billing.Event) error {
	switch event.Type {
	case billing.EventCheckoutCompleted:
		return uc.applyCheckout(ctx, event)
	case billing.EventSubscriptionCreated, billing.EventSubscriptionUpdated:
		return uc.applyState(ctx, event)
	case billing.EventSubscriptionDeleted:
		return uc.applyDeleted(ctx, event)
	case billing.EventInvoicePaid:
		return uc.applyInvoice(ctx, event)
	case billing.EventInvoiceFailed:
		return uc.applyInvoiceFailed(ctx, event)
	case billing.EventIgnored:
		return nil
	default:
		uc.logger.Debugw("unhandled billing event type", "type", event.Type)
		return nil
	}
}

func (uc *ApplyEventUseCase) applyCheckout(ctx context.Context, event billing.Event) error {
	data := event.Checkout
	if data == nil || data.CustomerID == "" {
		uc.logger.Warnw("checkout event missing customer, dropping")
		return nil
	}

	sub, err := uc.subscriptionRepo.GetByStripeCustomerID(ctx, data.CustomerID)
	if err != nil {
		return fmt.Errorf("failed to look up subscription: %w", err)
	}
	if sub == nil {
		uc.logger.Warnw("dropping checkout for unknown customer", "customer_id", data.CustomerID)
		return nil
	}

	if !sub.ActivateFromCheckout(data.SubscriptionID, data.Plan, event.CreatedAt) {
		uc.logger.Debugw("checkout event is stale or invalid, skipping",
			"subscription_sid", sub.SID(),
			"event_at", event.CreatedAt,
		)
		return nil
	}

	if err := uc.subscriptionRepo.Update(ctx, sub); err != nil {
		return fmt.Errorf("failed to persist subscription: %w", err)
	}

	uc.logger.Infow("subscription activated from checkout",
		"subscription_sid", sub.SID(),
		"plan", sub.Plan(),
	)

	uc.notify(ctx, sub, email.TemplateSubscriptionCreated, map[string]string{
		"Plan":        string(sub.Plan()),
		"TokensLimit": fmt.Sprintf("%d", sub.TokensLimit()),
	})
	return nil
}

func (uc *ApplyEventUseCase) applyState(ctx context.Context, event billing.Event) error {
	state := event.State
	if state == nil || state.SubscriptionID == "" {
		uc.logger.Warnw("subscription event missing state, dropping")
		return nil
	}

	sub, err := uc.subscriptionRepo.GetByStripeSubscriptionID(ctx, state.SubscriptionID)
	if err != nil {
		return fmt.Errorf("failed to look up subscription: %w", err)
	}
	if sub == nil && state.CustomerID != "" {
		// subscription.created can land before checkout.session.completed
		// attaches the provider subscription ID
		sub, err = uc.subscriptionRepo.GetByStripeCustomerID(ctx, state.CustomerID)
		if err != nil {
			return fmt.Errorf("failed to look up subscription: %w", err)
		}
	}
	if sub == nil {
		uc.logger.Warnw("dropping event for unknown subscription",
			"stripe_subscription_id", state.SubscriptionID,
			"type", event.Type,
		)
		return nil
	}

	if !sub.ApplyProviderState(*state, event.CreatedAt) {
		uc.logger.Debugw("subscription event is stale, skipping",
			"subscription_sid", sub.SID(),
			"event_at", event.CreatedAt,
		)
		return nil
	}

	if err := uc.subscriptionRepo.Update(ctx, sub); err != nil {
		return fmt.Errorf("failed to persist subscription: %w", err)
	}

	uc.logger.Infow("subscription state applied",
		"subscription_sid", sub.SID(),
		"status", sub.Status(),
		"type", event.Type,
	)
	return nil
}

func (uc *ApplyEventUseCase) applyDeleted(ctx context.Context, event billing.Event) error {
	state := event.State
	if state == nil || state.SubscriptionID == "" {
		uc.logger.Warnw("deletion event missing state, dropping")
		return nil
	}

	sub, err := uc.subscriptionRepo.GetByStripeSubscriptionID(ctx, state.SubscriptionID)
	if err != nil {
		return fmt.Errorf("failed to look up subscription: %w", err)
	}
	if sub == nil {
		uc.logger.Warnw("dropping deletion for unknown subscription",
			"stripe_subscription_id", state.SubscriptionID,
		)
		return nil
	}

	if !sub.MarkCanceled(event.CreatedAt) {
		uc.logger.Debugw("subscription already canceled, skipping",
			"subscription_sid", sub.SID(),
		)
		return nil
	}

	if err := uc.subscriptionRepo.Update(ctx, sub); err != nil {
		return fmt.Errorf("failed to persist subscription: %w", err)
	}

	uc.logger.Infow("subscription canceled", "subscription_sid", sub.SID())

	uc.notify(ctx, sub, email.TemplateSubscriptionCanceled, map[string]string{
		"Plan": string(sub.Plan()),
	})
	return nil
}

func (uc *ApplyEventUseCase) applyInvoice(ctx context.Context, event billing.Event) error {
	inv := event.Invoice
	if inv == nil || inv.InvoiceID == "" {
		uc.logger.Warnw("invoice event missing data, dropping")
		return nil
	}

	sub, err := uc.findForInvoice(ctx, inv)
	if err != nil {
		return err
	}
	if sub == nil {
		uc.logger.Warnw("dropping invoice for unknown subscription",
			"invoice_id", inv.InvoiceID,
		)
		return nil
	}

	row, err := billing.NewBillingHistory(sub.ID(), *inv)
	if err != nil {
		uc.logger.Warnw("invalid invoice data, dropping", "invoice_id", inv.InvoiceID, "error", err)
		return nil
	}
	if err := uc.historyRepo.Create(ctx, row); err != nil {
		// unique invoice index turns redelivery into a duplicate error
		if errors.IsDuplicateError(err) {
			uc.logger.Debugw("invoice already recorded, skipping", "invoice_id", inv.InvoiceID)
			return nil
		}
		return fmt.Errorf("failed to record invoice: %w", err)
	}

	uc.logger.Infow("invoice recorded",
		"subscription_sid", sub.SID(),
		"invoice_id", inv.InvoiceID,
		"amount_cents", inv.AmountCents,
	)
	return nil
}

func (uc *ApplyEventUseCase) applyInvoiceFailed(ctx context.Context, event billing.Event) error {
	inv := event.Invoice
	if inv == nil {
		uc.logger.Warnw("invoice failure event missing data, dropping")
		return nil
	}

	sub, err := uc.findForInvoice(ctx, inv)
	if err != nil {
		return err
	}
	if sub == nil {
		uc.logger.Warnw("dropping payment failure for unknown subscription",
			"invoice_id", inv.InvoiceID,
		)
		return nil
	}

	if !sub.MarkPastDue(event.CreatedAt) {
		uc.logger.Debugw("payment failure already applied, skipping",
			"subscription_sid", sub.SID(),
		)
		return nil
	}

	if err := uc.subscriptionRepo.Update(ctx, sub); err != nil {
		return fmt.Errorf("failed to persist subscription: %w", err)
	}

	uc.logger.Warnw("subscription past due",
		"subscription_sid", sub.SID(),
		"invoice_id", inv.InvoiceID,
	)

	uc.notify(ctx, sub, email.TemplatePaymentFailed, map[string]string{
		"InvoiceURL": inv.HostedURL,
	})
	return nil
}

func (uc *ApplyEventUseCase) findForInvoice(ctx context.Context, inv *billing.InvoiceData) (*billing.Subscription, error) {
	if inv.SubscriptionID != "" {
		sub, err := uc.subscriptionRepo.GetByStripeSubscriptionID(ctx, inv.SubscriptionID)
		if err != nil {
			return nil, fmt.Errorf("failed to look up subscription: %w", err)
		}
		if sub != nil {
			return sub, nil
		}
	}
	if inv.CustomerID == "" {
		return nil, nil
	}
	sub, err := uc.subscriptionRepo.GetByStripeCustomerID(ctx, inv.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up subscription: %w", err)
	}
	return sub, nil
}

func (uc *ApplyEventUseCase) notify(ctx context.Context, sub *billing.Subscription, template string, data map[string]string) {
	u, err := uc.userRepo.GetByID(ctx, sub.UserID())
	if err != nil || u == nil {
		uc.logger.Warnw("failed to load user for notification",
			"subscription_sid", sub.SID(),
			"error", err,
		)
		return
	}

	if err := uc.enqueuer.Enqueue(ctx, tasks.EmailSend, tasks.EmailSendPayload{
		Template: template,
		To:       u.Email(),
		Name:     u.Name(),
		Data:     data,
	}); err != nil {
		uc.logger.Errorw("failed to enqueue notification email",
			"template", template,
			"to", u.Email(),
			"error", err,
		)
	}
}
