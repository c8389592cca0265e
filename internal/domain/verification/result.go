package verification

import "time"

// Result is the provider outcome normalized at the adapter boundary.
// Both the webhook path and the polling path produce the same shape, so
// reconciliation runs a single state machine regardless of source.
type Result struct {
	Status            Status                 `json:"status"`
	CheckID           string                 `json:"check_id"`
	ApplicantID       string                 `json:"applicant_id,omitempty"`
	VerificationLevel int                    `json:"verification_level,omitempty"`
	CountryCode       string                 `json:"country_code,omitempty"`
	RejectionReasons  []string               `json:"rejection_reasons,omitempty"`
	CompletedAt       time.Time              `json:"completed_at,omitempty"`
	Raw               map[string]interface{} `json:"raw,omitempty"`
}
