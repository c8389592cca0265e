package kyc

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"verity/internal/application/verification/kycprovider"
	"verity/internal/domain/verification"
	sharedConfig "verity/internal/shared/config"
	"verity/internal/shared/logger"
)

// DefaultReportNames are the checks run for a standard KYC flow
var DefaultReportNames = []string{"document", "facial_similarity_photo", "watchlist_aml"}

type OnfidoProvider struct {
	cfg        *sharedConfig.OnfidoConfig
	httpClient *http.Client
	logger     logger.Interface
}

func NewOnfidoProvider(cfg *sharedConfig.OnfidoConfig, logger logger.Interface) kycprovider.Provider {
	return &OnfidoProvider{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger.Named("onfido"),
	}
}

type onfidoApplicant struct {
	ID string `json:"id"`
}

type onfidoCheck struct {
	ID          string   `json:"id"`
	Status      string   `json:"status"`
	Result      string   `json:"result"`
	ApplicantID string   `json:"applicant_id"`
	ReportIDs   []string `json:"report_ids"`
	CompletedAt string   `json:"completed_at_iso8601"`
}

type onfidoReport struct {
	Name       string `json:"name"`
	Result     string `json:"result"`
	SubResult  string `json:"sub_result"`
	Properties struct {
		IssuingCountry string `json:"issuing_country"`
	} `json:"properties"`
}

func (p *OnfidoProvider) CreateApplicant(ctx context.Context, data kycprovider.ApplicantData) (string, error) {
	body := map[string]string{
		"first_name": data.FirstName,
		"last_name":  data.LastName,
		"email":      data.Email,
	}

	var applicant onfidoApplicant
	if err := p.post(ctx, "/applicants", body, &applicant); err != nil {
		return "", fmt.Errorf("failed to create applicant: %w", err)
	}

	p.logger.Infow("applicant created", "applicant_id", applicant.ID)
	return applicant.ID, nil
}

func (p *OnfidoProvider) CreateCheck(ctx context.Context, applicantID string, reportNames []string) (kycprovider.CheckResult, error) {
	if len(reportNames) == 0 {
		reportNames = DefaultReportNames
	}

	body := map[string]interface{}{
		"applicant_id": applicantID,
		"report_names": reportNames,
	}

	var check onfidoCheck
	if err := p.post(ctx, "/checks", body, &check); err != nil {
		return kycprovider.CheckResult{}, fmt.Errorf("failed to create check: %w", err)
	}

	p.logger.Infow("check created", "check_id", check.ID, "applicant_id", applicantID)
	return kycprovider.CheckResult{CheckID: check.ID, Status: check.Status}, nil
}

func (p *OnfidoProvider) GetCheckStatus(ctx context.Context, checkID string) (verification.Result, error) {
	var check onfidoCheck
	if err := p.get(ctx, "/checks/"+checkID, &check); err != nil {
		return verification.Result{}, fmt.Errorf("failed to get check: %w", err)
	}

	result := verification.Result{
		Status:      MapCheckStatus(check.Status, check.Result),
		CheckID:     check.ID,
		ApplicantID: check.ApplicantID,
	}
	if check.CompletedAt != "" {
		if ts, err := time.Parse(time.RFC3339, check.CompletedAt); err == nil {
			result.CompletedAt = ts
		}
	}

	// report breakdowns drive the verification level and rejection detail
	if check.Status == "complete" {
		reports, err := p.fetchReports(ctx, checkID)
		if err != nil {
			p.logger.Warnw("failed to fetch reports, using check-level result only",
				"check_id", checkID, "error", err)
		} else {
			result.VerificationLevel = VerificationLevel(reports)
			result.RejectionReasons = rejectionReasons(reports)
			for _, rep := range reports {
				if rep.Properties.IssuingCountry != "" {
					result.CountryCode = rep.Properties.IssuingCountry
					break
				}
			}
		}
	}

	raw := map[string]interface{}{}
	rawBytes, _ := json.Marshal(check)
	_ = json.Unmarshal(rawBytes, &raw)
	result.Raw = raw

	return result, nil
}

func (p *OnfidoProvider) GenerateSDKToken(ctx context.Context, applicantID, referrer string) (string, error) {
	body := map[string]string{
		"applicant_id": applicantID,
		"referrer":     referrer,
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := p.post(ctx, "/sdk_token", body, &resp); err != nil {
		return "", fmt.Errorf("failed to generate sdk token: %w", err)
	}

	return resp.Token, nil
}

// VerifyWebhook checks the X-SHA2-Signature header against an HMAC-SHA256
// hex digest of the exact raw body bytes. Must run before any decoding.
func (p *OnfidoProvider) VerifyWebhook(rawBody []byte, signatureHeader string) bool {
	if p.cfg.WebhookSecret == "" || signatureHeader == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(p.cfg.WebhookSecret))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signatureHeader))
}

type webhookEnvelope struct {
	Payload struct {
		ResourceType string `json:"resource_type"`
		Action       string `json:"action"`
		Object       struct {
			ID          string `json:"id"`
			Status      string `json:"status"`
			Result      string `json:"result"`
			CompletedAt string `json:"completed_at_iso8601"`
		} `json:"object"`
	} `json:"payload"`
}

// ParseWebhook normalizes an Onfido webhook envelope. Non-check events
// yield a result with an empty CheckID, which reconciliation drops.
func (p *OnfidoProvider) ParseWebhook(rawBody []byte) (verification.Result, error) {
	var envelope webhookEnvelope
	if err := json.Unmarshal(rawBody, &envelope); err != nil {
		return verification.Result{}, fmt.Errorf("failed to decode webhook payload: %w", err)
	}

	payload := envelope.Payload
	if payload.ResourceType != "check" || payload.Action != "check.completed" {
		p.logger.Debugw("ignoring webhook event",
			"resource_type", payload.ResourceType, "action", payload.Action)
		return verification.Result{}, nil
	}

	result := verification.Result{
		Status:  MapCheckStatus(payload.Object.Status, payload.Object.Result),
		CheckID: payload.Object.ID,
	}
	if payload.Object.CompletedAt != "" {
		if ts, err := time.Parse(time.RFC3339, payload.Object.CompletedAt); err == nil {
			result.CompletedAt = ts
		}
	}

	raw := map[string]interface{}{}
	if err := json.Unmarshal(rawBody, &raw); err == nil {
		result.Raw = raw
	}

	return result, nil
}

// MapCheckStatus translates provider check status and result into the
// domain status enum
func MapCheckStatus(status, result string) verification.Status {
	switch status {
	case "complete":
		switch result {
		case "clear":
			return verification.StatusApproved
		case "consider":
			return verification.StatusRequiresReview
		default:
			return verification.StatusRejected
		}
	case "in_progress", "awaiting_applicant", "paused":
		return verification.StatusInProgress
	case "withdrawn":
		return verification.StatusExpired
	default:
		return verification.StatusPending
	}
}

// VerificationLevel derives the tier from report outcomes: two or more
// clear reports grant full verification, any report grants standard,
// otherwise basic.
func VerificationLevel(reports []onfidoReport) int {
	clear := 0
	for _, rep := range reports {
		if rep.Result == "clear" {
			clear++
		}
	}

	switch {
	case clear >= 2:
		return 3
	case len(reports) >= 1:
		return 2
	default:
		return 1
	}
}

func rejectionReasons(reports []onfidoReport) []string {
	var reasons []string
	for _, rep := range reports {
		if rep.Result != "" && rep.Result != "clear" {
			reason := rep.Name + ":" + rep.Result
			if rep.SubResult != "" {
				reason += ":" + rep.SubResult
			}
			reasons = append(reasons, reason)
		}
	}
	return reasons
}

func (p *OnfidoProvider) fetchReports(ctx context.Context, checkID string) ([]onfidoReport, error) {
	var resp struct {
		Reports []onfidoReport `json:"reports"`
	}
	if err := p.get(ctx, "/reports?check_id="+checkID, &resp); err != nil {
		return nil, err
	}
	return resp.Reports, nil
}

func (p *OnfidoProvider) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.APIURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return p.do(req, out)
}

func (p *OnfidoProvider) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.APIURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	return p.do(req, out)
}

func (p *OnfidoProvider) do(req *http.Request, out interface{}) error {
	req.Header.Set("Authorization", "Token token="+p.cfg.APIToken)
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("provider returned %d: %s", resp.StatusCode, string(body))
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
