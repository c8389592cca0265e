package billing

import "time"

type EventType string

const (
	EventCheckoutCompleted   EventType = "checkout.session.completed"
	EventSubscriptionCreated EventType = "customer.subscription.created"
	EventSubscriptionUpdated EventType = "customer.subscription.updated"
	EventSubscriptionDeleted EventType = "customer.subscription.deleted"
	EventInvoicePaid         EventType = "invoice.paid"
	EventInvoiceFailed       EventType = "invoice.payment_failed"
	EventIgnored             EventType = "ignored"
)

// Event is a provider billing event normalized at the adapter boundary.
// Exactly one of the data pointers is set, matching Type.
type Event struct {
	Type      EventType          `json:"type"`
	CreatedAt time.Time          `json:"created_at"`
	Checkout  *CheckoutData      `json:"checkout,omitempty"`
	State     *SubscriptionState `json:"state,omitempty"`
	Invoice   *InvoiceData       `json:"invoice,omitempty"`
}

// CheckoutData carries the outcome of a completed checkout session
type CheckoutData struct {
	CustomerID     string `json:"customer_id"`
	SubscriptionID string `json:"subscription_id"`
	Plan           Plan   `json:"plan"`
}

// SubscriptionState is the provider's snapshot of a subscription
type SubscriptionState struct {
	SubscriptionID     string             `json:"subscription_id"`
	CustomerID         string             `json:"customer_id"`
	Status             SubscriptionStatus `json:"status"`
	Plan               Plan               `json:"plan,omitempty"`
	CurrentPeriodStart time.Time          `json:"current_period_start"`
	CurrentPeriodEnd   time.Time          `json:"current_period_end"`
	CancelAtPeriodEnd  bool               `json:"cancel_at_period_end"`
	CanceledAt         *time.Time         `json:"canceled_at,omitempty"`
}

// InvoiceData carries an invoice outcome for the billing history
type InvoiceData struct {
	InvoiceID       string     `json:"invoice_id"`
	PaymentIntentID string     `json:"payment_intent_id,omitempty"`
	CustomerID      string     `json:"customer_id"`
	SubscriptionID  string     `json:"subscription_id,omitempty"`
	AmountCents     int64      `json:"amount_cents"`
	Currency        string     `json:"currency"`
	Status          string     `json:"status"`
	HostedURL       string     `json:"hosted_url,omitempty"`
	PDFURL          string     `json:"pdf_url,omitempty"`
	InvoiceDate     time.Time  `json:"invoice_date"`
	PaidAt          *time.Time `json:"paid_at,omitempty"`
}
