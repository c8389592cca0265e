package dto

import (
	"time"

	"verity/internal/domain/billing"
)

// SubscriptionDTO is the external representation of a subscription
type SubscriptionDTO struct {
	ID                 string     `json:"id"`
	Plan               string     `json:"plan,omitempty"`
	Status             string     `json:"status"`
	CurrentPeriodStart *time.Time `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd  bool       `json:"cancel_at_period_end"`
	CanceledAt         *time.Time `json:"canceled_at,omitempty"`
	TokensLimit        int        `json:"tokens_limit"`
	TokensUsed         int        `json:"tokens_used"`
	CreatedAt          time.Time  `json:"created_at"`
}

func SubscriptionFromEntity(s *billing.Subscription) *SubscriptionDTO {
	return &SubscriptionDTO{
		ID:                 s.SID(),
		Plan:               string(s.Plan()),
		Status:             string(s.Status()),
		CurrentPeriodStart: s.CurrentPeriodStart(),
		CurrentPeriodEnd:   s.CurrentPeriodEnd(),
		CancelAtPeriodEnd:  s.CancelAtPeriodEnd(),
		CanceledAt:         s.CanceledAt(),
		TokensLimit:        s.TokensLimit(),
		TokensUsed:         s.TokensUsed(),
		CreatedAt:          s.CreatedAt(),
	}
}

// InvoiceDTO is the external representation of a billing history row
type InvoiceDTO struct {
	InvoiceID   string     `json:"invoice_id"`
	AmountCents int64      `json:"amount_cents"`
	Currency    string     `json:"currency"`
	Status      string     `json:"status"`
	HostedURL   string     `json:"hosted_url,omitempty"`
	PDFURL      string     `json:"pdf_url,omitempty"`
	InvoiceDate time.Time  `json:"invoice_date"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
}

func InvoiceFromEntity(h *billing.BillingHistory) *InvoiceDTO {
	return &InvoiceDTO{
		InvoiceID:   h.StripeInvoiceID(),
		AmountCents: h.AmountCents(),
		Currency:    h.Currency(),
		Status:      h.Status(),
		HostedURL:   h.HostedURL(),
		PDFURL:      h.PDFURL(),
		InvoiceDate: h.InvoiceDate(),
		PaidAt:      h.PaidAt(),
	}
}

func InvoicesFromEntities(rows []*billing.BillingHistory) []*InvoiceDTO {
	out := make([]*InvoiceDTO, len(rows))
	for i, h := range rows {
		out[i] = InvoiceFromEntity(h)
	}
	return out
}

// PlanDTO describes a purchasable plan
type PlanDTO struct {
	Name        string `json:"name"`
	TokensLimit int    `json:"tokens_limit"`
}

// CheckoutDTO carries the hosted checkout session the caller redirects to
type CheckoutDTO struct {
	SessionID   string `json:"session_id"`
	CheckoutURL string `json:"checkout_url"`
}

// UsageDTO reports token consumption against the plan limit
type UsageDTO struct {
	Plan        string `json:"plan"`
	TokensLimit int    `json:"tokens_limit"`
	TokensUsed  int    `json:"tokens_used"`
	Remaining   int    `json:"remaining"`
}
