package kyc

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verity/internal/domain/verification"
	sharedConfig "verity/internal/shared/config"
	"verity/internal/shared/logger"
)

func newTestProvider(t *testing.T, secret string) *OnfidoProvider {
	t.Helper()
	p := NewOnfidoProvider(&sharedConfig.OnfidoConfig{
		APIToken:      "test_token",
		WebhookSecret: secret,
		APIURL:        "https://api.test.local/v3.6",
	}, logger.NewLogger())
	return p.(*OnfidoProvider)
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhook(t *testing.T) {
	secret := "whsec_test"
	body := []byte(`{"payload":{"resource_type":"check"}}`)

	t.Run("valid signature", func(t *testing.T) {
		p := newTestProvider(t, secret)
		assert.True(t, p.VerifyWebhook(body, sign(secret, body)))
	})

	t.Run("wrong signature", func(t *testing.T) {
		p := newTestProvider(t, secret)
		assert.False(t, p.VerifyWebhook(body, sign("other_secret", body)))
	})

	t.Run("tampered body", func(t *testing.T) {
		p := newTestProvider(t, secret)
		sig := sign(secret, body)
		tampered := []byte(`{"payload":{"resource_type":"report"}}`)
		assert.False(t, p.VerifyWebhook(tampered, sig))
	})

	t.Run("missing signature", func(t *testing.T) {
		p := newTestProvider(t, secret)
		assert.False(t, p.VerifyWebhook(body, ""))
	})

	t.Run("missing secret rejects everything", func(t *testing.T) {
		p := newTestProvider(t, "")
		assert.False(t, p.VerifyWebhook(body, sign("", body)))
	})
}

func TestParseWebhook(t *testing.T) {
	p := newTestProvider(t, "whsec_test")

	t.Run("completed clear check", func(t *testing.T) {
		body := []byte(`{
			"payload": {
				"resource_type": "check",
				"action": "check.completed",
				"object": {
					"id": "chk_abc",
					"status": "complete",
					"result": "clear",
					"completed_at_iso8601": "2026-03-01T12:00:00Z"
				}
			}
		}`)

		result, err := p.ParseWebhook(body)
		require.NoError(t, err)
		assert.Equal(t, verification.StatusApproved, result.Status)
		assert.Equal(t, "chk_abc", result.CheckID)
		assert.Equal(t, 2026, result.CompletedAt.Year())
		assert.NotNil(t, result.Raw)
	})

	t.Run("completed consider check", func(t *testing.T) {
		body := []byte(`{
			"payload": {
				"resource_type": "check",
				"action": "check.completed",
				"object": {"id": "chk_def", "status": "complete", "result": "consider"}
			}
		}`)

		result, err := p.ParseWebhook(body)
		require.NoError(t, err)
		assert.Equal(t, verification.StatusRequiresReview, result.Status)
	})

	t.Run("non-check event is ignored", func(t *testing.T) {
		body := []byte(`{
			"payload": {
				"resource_type": "report",
				"action": "report.completed",
				"object": {"id": "rep_1"}
			}
		}`)

		result, err := p.ParseWebhook(body)
		require.NoError(t, err)
		assert.Empty(t, result.CheckID)
	})

	t.Run("malformed body errors", func(t *testing.T) {
		_, err := p.ParseWebhook([]byte(`not json`))
		assert.Error(t, err)
	})
}

func TestMapCheckStatus(t *testing.T) {
	tests := []struct {
		status string
		result string
		want   verification.Status
	}{
		{"complete", "clear", verification.StatusApproved},
		{"complete", "consider", verification.StatusRequiresReview},
		{"complete", "unidentified", verification.StatusRejected},
		{"in_progress", "", verification.StatusInProgress},
		{"awaiting_applicant", "", verification.StatusInProgress},
		{"withdrawn", "", verification.StatusExpired},
		{"created", "", verification.StatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.status+"/"+tt.result, func(t *testing.T) {
			assert.Equal(t, tt.want, MapCheckStatus(tt.status, tt.result))
		})
	}
}

func TestVerificationLevel(t *testing.T) {
	t.Run("two clear reports give full level", func(t *testing.T) {
		reports := []onfidoReport{
			{Name: "document", Result: "clear"},
			{Name: "facial_similarity_photo", Result: "clear"},
		}
		assert.Equal(t, 3, VerificationLevel(reports))
	})

	t.Run("mixed reports give standard level", func(t *testing.T) {
		reports := []onfidoReport{
			{Name: "document", Result: "clear"},
			{Name: "watchlist_aml", Result: "consider"},
		}
		assert.Equal(t, 2, VerificationLevel(reports))
	})

	t.Run("no reports give basic level", func(t *testing.T) {
		assert.Equal(t, 1, VerificationLevel(nil))
	})
}
