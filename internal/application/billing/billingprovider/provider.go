package billingprovider

import (
	"context"

	"verity/internal/domain/billing"
)

// Session describes a hosted checkout session the frontend redirects to
type Session struct {
	ID  string
	URL string
}

// Provider abstracts the payment vendor. Webhook events are normalized to
// billing.Event before they leave the adapter.
type Provider interface {
	CreateCustomer(ctx context.Context, email, name string, metadata map[string]string) (string, error)
	CreateCheckoutSession(ctx context.Context, customerID string, plan billing.Plan, successURL, cancelURL string) (Session, error)
	CancelSubscription(ctx context.Context, subscriptionID string, atPeriodEnd bool) error
	GetSubscription(ctx context.Context, subscriptionID string) (billing.SubscriptionState, error)
	VerifyWebhook(rawBody []byte, signatureHeader string) bool
	ParseWebhook(rawBody []byte) (billing.Event, error)
}
