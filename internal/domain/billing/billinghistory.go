package billing

import (
	"fmt"
	"time"
)

// BillingHistory is an append-only invoice audit record. Rows are created
// from invoice events and never mutated afterwards.
type BillingHistory struct {
	id                    uint
	subscriptionID        uint
	stripeInvoiceID       string
	stripePaymentIntentID string
	amountCents           int64
	currency              string
	status                string
	hostedURL             string
	pdfURL                string
	invoiceDate           time.Time
	paidAt                *time.Time
	createdAt             time.Time
}

// NewBillingHistory creates a billing history row from an invoice event
func NewBillingHistory(subscriptionID uint, inv InvoiceData) (*BillingHistory, error) {
	if subscriptionID == 0 {
		return nil, fmt.Errorf("subscription ID is required")
	}
	if inv.InvoiceID == "" {
		return nil, fmt.Errorf("invoice ID is required")
	}

	return &BillingHistory{
		subscriptionID:        subscriptionID,
		stripeInvoiceID:       inv.InvoiceID,
		stripePaymentIntentID: inv.PaymentIntentID,
		amountCents:           inv.AmountCents,
		currency:              inv.Currency,
		status:                inv.Status,
		hostedURL:             inv.HostedURL,
		pdfURL:                inv.PDFURL,
		invoiceDate:           inv.InvoiceDate,
		paidAt:                inv.PaidAt,
		createdAt:             time.Now(),
	}, nil
}

// ReconstructBillingHistory reconstructs a row from persistence
func ReconstructBillingHistory(
	id, subscriptionID uint,
	stripeInvoiceID, stripePaymentIntentID string,
	amountCents int64,
	currency, status, hostedURL, pdfURL string,
	invoiceDate time.Time,
	paidAt *time.Time,
	createdAt time.Time,
) (*BillingHistory, error) {
	if id == 0 {
		return nil, fmt.Errorf("billing history ID cannot be zero")
	}

	return &BillingHistory{
		id:                    id,
		subscriptionID:        subscriptionID,
		stripeInvoiceID:       stripeInvoiceID,
		stripePaymentIntentID: stripePaymentIntentID,
		amountCents:           amountCents,
		currency:              currency,
		status:                status,
		hostedURL:             hostedURL,
		pdfURL:                pdfURL,
		invoiceDate:           invoiceDate,
		paidAt:                paidAt,
		createdAt:             createdAt,
	}, nil
}

func (h *BillingHistory) ID() uint                      { return h.id }
func (h *BillingHistory) SubscriptionID() uint          { return h.subscriptionID }
func (h *BillingHistory) StripeInvoiceID() string       { return h.stripeInvoiceID }
func (h *BillingHistory) StripePaymentIntentID() string { return h.stripePaymentIntentID }
func (h *BillingHistory) AmountCents() int64            { return h.amountCents }
func (h *BillingHistory) Currency() string              { return h.currency }
func (h *BillingHistory) Status() string                { return h.status }
func (h *BillingHistory) HostedURL() string             { return h.hostedURL }
func (h *BillingHistory) PDFURL() string                { return h.pdfURL }
func (h *BillingHistory) InvoiceDate() time.Time        { return h.invoiceDate }
func (h *BillingHistory) PaidAt() *time.Time            { return h.paidAt }
func (h *BillingHistory) CreatedAt() time.Time          { return h.createdAt }

// SetID sets the row ID (only for persistence layer use)
func (h *BillingHistory) SetID(id uint) error {
	if h.id != 0 {
		return fmt.Errorf("billing history ID is already set")
	}
	if id == 0 {
		return fmt.Errorf("billing history ID cannot be zero")
	}
	h.id = id
	return nil
}
