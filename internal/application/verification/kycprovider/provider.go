package kycprovider

import (
	"context"

	"verity/internal/domain/verification"
)

// ApplicantData is the minimum the provider needs to open an applicant
type ApplicantData struct {
	FirstName string
	LastName  string
	Email     string
}

// CheckResult describes a freshly created check
type CheckResult struct {
	CheckID string
	Status  string
}

// Provider abstracts the identity verification vendor. All webhook and
// polling results are normalized to verification.Result before they leave
// the adapter.
type Provider interface {
	CreateApplicant(ctx context.Context, data ApplicantData) (string, error)
	CreateCheck(ctx context.Context, applicantID string, reportNames []string) (CheckResult, error)
	GetCheckStatus(ctx context.Context, checkID string) (verification.Result, error)
	GenerateSDKToken(ctx context.Context, applicantID, referrer string) (string, error)
	VerifyWebhook(rawBody []byte, signatureHeader string) bool
	ParseWebhook(rawBody []byte) (verification.Result, error)
}
