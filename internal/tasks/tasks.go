package tasks

import (
	"verity/internal/domain/billing"
	"verity/internal/domain/verification"
)

// Task names routed through the queue
const (
	KYCReconcile     = "kyc:reconcile"
	KYCPoll          = "kyc:poll"
	KYCSyncRegistry  = "kyc:sync_registry"
	BillingReconcile = "billing:reconcile"
	EmailSend        = "email:send"
)

// KYCReconcilePayload carries a normalized provider result to the
// reconciliation state machine
type KYCReconcilePayload struct {
	Result verification.Result `json:"result"`
}

// KYCPollPayload asks the worker to pull the current check status from the
// provider and feed it through reconciliation
type KYCPollPayload struct {
	CheckID string `json:"check_id"`
}

// KYCSyncRegistryPayload hands an approved verification to the on-chain
// registry sync
type KYCSyncRegistryPayload struct {
	VerificationID uint `json:"verification_id"`
}

// BillingReconcilePayload carries a normalized billing event
type BillingReconcilePayload struct {
	Event billing.Event `json:"event"`
}

// EmailSendPayload renders and delivers one notification email
type EmailSendPayload struct {
	Template string            `json:"template"`
	To       string            `json:"to"`
	Name     string            `json:"name"`
	Data     map[string]string `json:"data,omitempty"`
}
