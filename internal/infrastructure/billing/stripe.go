package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	stripelib "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/customer"
	"github.com/stripe/stripe-go/v82/subscription"
	"github.com/stripe/stripe-go/v82/webhook"

	"verity/internal/application/billing/billingprovider"
	domain "verity/internal/domain/billing"
	sharedConfig "verity/internal/shared/config"
	"verity/internal/shared/logger"
)

type StripeProvider struct {
	cfg    *sharedConfig.StripeConfig
	logger logger.Interface
}

func NewStripeProvider(cfg *sharedConfig.StripeConfig, logger logger.Interface) billingprovider.Provider {
	stripelib.Key = cfg.SecretKey
	return &StripeProvider{
		cfg:    cfg,
		logger: logger.Named("stripe"),
	}
}

func (p *StripeProvider) CreateCustomer(ctx context.Context, email, name string, metadata map[string]string) (string, error) {
	params := &stripelib.CustomerParams{
		Email: stripelib.String(email),
		Name:  stripelib.String(name),
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	cust, err := customer.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create customer: %w", err)
	}

	p.logger.Infow("customer created", "customer_id", cust.ID)
	return cust.ID, nil
}

func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, customerID string, plan domain.Plan, successURL, cancelURL string) (billingprovider.Session, error) {
	priceID := p.priceForPlan(plan)
	if priceID == "" {
		return billingprovider.Session{}, fmt.Errorf("no price configured for plan %s", plan)
	}

	params := &stripelib.CheckoutSessionParams{
		Mode:       stripelib.String(string(stripelib.CheckoutSessionModeSubscription)),
		Customer:   stripelib.String(customerID),
		SuccessURL: stripelib.String(successURL),
		CancelURL:  stripelib.String(cancelURL),
		LineItems: []*stripelib.CheckoutSessionLineItemParams{
			{
				Price:    stripelib.String(priceID),
				Quantity: stripelib.Int64(1),
			},
		},
	}
	params.Context = ctx
	params.AddMetadata("plan", plan.String())

	sess, err := session.New(params)
	if err != nil {
		return billingprovider.Session{}, fmt.Errorf("failed to create checkout session: %w", err)
	}

	p.logger.Infow("checkout session created", "session_id", sess.ID, "customer_id", customerID, "plan", plan)
	return billingprovider.Session{ID: sess.ID, URL: sess.URL}, nil
}

func (p *StripeProvider) CancelSubscription(ctx context.Context, subscriptionID string, atPeriodEnd bool) error {
	if atPeriodEnd {
		params := &stripelib.SubscriptionParams{
			CancelAtPeriodEnd: stripelib.Bool(true),
		}
		params.Context = ctx
		if _, err := subscription.Update(subscriptionID, params); err != nil {
			return fmt.Errorf("failed to schedule cancellation: %w", err)
		}
		return nil
	}

	params := &stripelib.SubscriptionCancelParams{}
	params.Context = ctx
	if _, err := subscription.Cancel(subscriptionID, params); err != nil {
		return fmt.Errorf("failed to cancel subscription: %w", err)
	}
	return nil
}

// GetSubscription is the poll fallback when webhook delivery is in doubt
func (p *StripeProvider) GetSubscription(ctx context.Context, subscriptionID string) (domain.SubscriptionState, error) {
	params := &stripelib.SubscriptionParams{}
	params.Context = ctx

	sub, err := subscription.Get(subscriptionID, params)
	if err != nil {
		return domain.SubscriptionState{}, fmt.Errorf("failed to get subscription: %w", err)
	}

	state := domain.SubscriptionState{
		SubscriptionID:    sub.ID,
		Status:            mapSubscriptionStatus(string(sub.Status)),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
	}
	if sub.Customer != nil {
		state.CustomerID = sub.Customer.ID
	}
	if sub.CanceledAt > 0 {
		canceledAt := time.Unix(sub.CanceledAt, 0).UTC()
		state.CanceledAt = &canceledAt
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 {
		item := sub.Items.Data[0]
		state.CurrentPeriodStart = time.Unix(item.CurrentPeriodStart, 0).UTC()
		state.CurrentPeriodEnd = time.Unix(item.CurrentPeriodEnd, 0).UTC()
		if item.Price != nil {
			state.Plan = p.planForPrice(item.Price.ID)
		}
	}

	return state, nil
}

// VerifyWebhook validates the Stripe-Signature header over the exact raw
// body bytes. Must run before any decoding.
func (p *StripeProvider) VerifyWebhook(rawBody []byte, signatureHeader string) bool {
	if p.cfg.WebhookSecret == "" || signatureHeader == "" {
		return false
	}

	_, err := webhook.ConstructEventWithOptions(rawBody, signatureHeader, p.cfg.WebhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	return err == nil
}

// Minimal event shapes decoded from data.object, following the fields the
// reconciliation actually uses.
type stripeEvent struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

type checkoutSessionObject struct {
	ID           string            `json:"id"`
	Mode         string            `json:"mode"`
	Customer     string            `json:"customer"`
	Subscription string            `json:"subscription"`
	Metadata     map[string]string `json:"metadata"`
}

type subscriptionObject struct {
	ID                 string `json:"id"`
	Customer           string `json:"customer"`
	Status             string `json:"status"`
	CancelAtPeriodEnd  bool   `json:"cancel_at_period_end"`
	CanceledAt         int64  `json:"canceled_at"`
	CurrentPeriodStart int64  `json:"current_period_start"`
	CurrentPeriodEnd   int64  `json:"current_period_end"`
	Items              struct {
		Data []struct {
			CurrentPeriodStart int64 `json:"current_period_start"`
			CurrentPeriodEnd   int64 `json:"current_period_end"`
			Price              struct {
				ID string `json:"id"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
}

type invoiceObject struct {
	ID                string `json:"id"`
	Customer          string `json:"customer"`
	Subscription      string `json:"subscription"`
	PaymentIntent     string `json:"payment_intent"`
	AmountPaid        int64  `json:"amount_paid"`
	AmountDue         int64  `json:"amount_due"`
	Currency          string `json:"currency"`
	Status            string `json:"status"`
	HostedInvoiceURL  string `json:"hosted_invoice_url"`
	InvoicePDF        string `json:"invoice_pdf"`
	Created           int64  `json:"created"`
	StatusTransitions struct {
		PaidAt int64 `json:"paid_at"`
	} `json:"status_transitions"`
}

// ParseWebhook normalizes a Stripe event envelope. Unhandled event types
// yield EventIgnored so callers can ack them without side effects.
func (p *StripeProvider) ParseWebhook(rawBody []byte) (domain.Event, error) {
	var evt stripeEvent
	if err := json.Unmarshal(rawBody, &evt); err != nil {
		return domain.Event{}, fmt.Errorf("failed to decode event: %w", err)
	}

	event := domain.Event{
		Type:      domain.EventType(evt.Type),
		CreatedAt: time.Unix(evt.Created, 0).UTC(),
	}

	switch domain.EventType(evt.Type) {
	case domain.EventCheckoutCompleted:
		var obj checkoutSessionObject
		if err := json.Unmarshal(evt.Data.Object, &obj); err != nil {
			return domain.Event{}, fmt.Errorf("failed to decode checkout session: %w", err)
		}
		event.Checkout = &domain.CheckoutData{
			CustomerID:     obj.Customer,
			SubscriptionID: obj.Subscription,
			Plan:           domain.Plan(obj.Metadata["plan"]),
		}

	case domain.EventSubscriptionCreated, domain.EventSubscriptionUpdated, domain.EventSubscriptionDeleted:
		var obj subscriptionObject
		if err := json.Unmarshal(evt.Data.Object, &obj); err != nil {
			return domain.Event{}, fmt.Errorf("failed to decode subscription: %w", err)
		}
		event.State = p.subscriptionState(obj)

	case domain.EventInvoicePaid, domain.EventInvoiceFailed:
		var obj invoiceObject
		if err := json.Unmarshal(evt.Data.Object, &obj); err != nil {
			return domain.Event{}, fmt.Errorf("failed to decode invoice: %w", err)
		}
		event.Invoice = p.invoiceData(obj)

	default:
		p.logger.Debugw("ignoring webhook event", "type", evt.Type, "event_id", evt.ID)
		event.Type = domain.EventIgnored
	}

	return event, nil
}

func (p *StripeProvider) subscriptionState(obj subscriptionObject) *domain.SubscriptionState {
	state := &domain.SubscriptionState{
		SubscriptionID:    obj.ID,
		CustomerID:        obj.Customer,
		Status:            mapSubscriptionStatus(obj.Status),
		CancelAtPeriodEnd: obj.CancelAtPeriodEnd,
	}

	periodStart, periodEnd := obj.CurrentPeriodStart, obj.CurrentPeriodEnd
	if len(obj.Items.Data) > 0 {
		item := obj.Items.Data[0]
		if item.CurrentPeriodStart > 0 {
			periodStart = item.CurrentPeriodStart
		}
		if item.CurrentPeriodEnd > 0 {
			periodEnd = item.CurrentPeriodEnd
		}
		state.Plan = p.planForPrice(item.Price.ID)
	}
	if periodStart > 0 {
		state.CurrentPeriodStart = time.Unix(periodStart, 0).UTC()
	}
	if periodEnd > 0 {
		state.CurrentPeriodEnd = time.Unix(periodEnd, 0).UTC()
	}
	if obj.CanceledAt > 0 {
		canceledAt := time.Unix(obj.CanceledAt, 0).UTC()
		state.CanceledAt = &canceledAt
	}

	return state
}

func (p *StripeProvider) invoiceData(obj invoiceObject) *domain.InvoiceData {
	amount := obj.AmountPaid
	if amount == 0 {
		amount = obj.AmountDue
	}

	inv := &domain.InvoiceData{
		InvoiceID:       obj.ID,
		PaymentIntentID: obj.PaymentIntent,
		CustomerID:      obj.Customer,
		SubscriptionID:  obj.Subscription,
		AmountCents:     amount,
		Currency:        obj.Currency,
		Status:          obj.Status,
		HostedURL:       obj.HostedInvoiceURL,
		PDFURL:          obj.InvoicePDF,
		InvoiceDate:     time.Unix(obj.Created, 0).UTC(),
	}
	if obj.StatusTransitions.PaidAt > 0 {
		paidAt := time.Unix(obj.StatusTransitions.PaidAt, 0).UTC()
		inv.PaidAt = &paidAt
	}

	return inv
}

func (p *StripeProvider) priceForPlan(plan domain.Plan) string {
	switch plan {
	case domain.PlanStarter:
		return p.cfg.PriceStarter
	case domain.PlanProfessional:
		return p.cfg.PriceProfessional
	case domain.PlanEnterprise:
		return p.cfg.PriceEnterprise
	default:
		return ""
	}
}

func (p *StripeProvider) planForPrice(priceID string) domain.Plan {
	switch priceID {
	case p.cfg.PriceStarter:
		return domain.PlanStarter
	case p.cfg.PriceProfessional:
		return domain.PlanProfessional
	case p.cfg.PriceEnterprise:
		return domain.PlanEnterprise
	default:
		return ""
	}
}

func mapSubscriptionStatus(status string) domain.SubscriptionStatus {
	switch status {
	case "active":
		return domain.StatusActive
	case "trialing":
		return domain.StatusTrialing
	case "past_due", "unpaid":
		return domain.StatusPastDue
	case "canceled":
		return domain.StatusCanceled
	case "paused":
		return domain.StatusPaused
	default:
		return domain.StatusIncomplete
	}
}
