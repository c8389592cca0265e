package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verity/internal/application/verification/kycprovider"
	"verity/internal/domain/verification"
	"verity/internal/infrastructure/queue"
	"verity/internal/shared/logger"
	"verity/internal/tasks"
)

type fakeKYCProvider struct {
	validSignature bool
	parseResult    verification.Result
	parseErr       error
}

func (p *fakeKYCProvider) CreateApplicant(ctx context.Context, data kycprovider.ApplicantData) (string, error) {
	return "app_1", nil
}

func (p *fakeKYCProvider) CreateCheck(ctx context.Context, applicantID string, reportNames []string) (kycprovider.CheckResult, error) {
	return kycprovider.CheckResult{CheckID: "chk_1", Status: "in_progress"}, nil
}

func (p *fakeKYCProvider) GetCheckStatus(ctx context.Context, checkID string) (verification.Result, error) {
	return verification.Result{}, nil
}

func (p *fakeKYCProvider) GenerateSDKToken(ctx context.Context, applicantID, referrer string) (string, error) {
	return "sdk_token", nil
}

func (p *fakeKYCProvider) VerifyWebhook(rawBody []byte, signatureHeader string) bool {
	return p.validSignature
}

func (p *fakeKYCProvider) ParseWebhook(rawBody []byte) (verification.Result, error) {
	return p.parseResult, p.parseErr
}

type capturingEnqueuer struct {
	tasks []struct {
		name    string
		payload interface{}
	}
	err error
}

func (e *capturingEnqueuer) Enqueue(ctx context.Context, name string, payload interface{}, opts ...queue.Option) error {
	if e.err != nil {
		return e.err
	}
	e.tasks = append(e.tasks, struct {
		name    string
		payload interface{}
	}{name, payload})
	return nil
}

func newWebhookRouter(provider kycprovider.Provider, enqueuer queue.Enqueuer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewKYCHandler(nil, nil, nil, nil, nil, provider, enqueuer, logger.NewLogger())
	engine := gin.New()
	engine.POST("/api/kyc/webhook", handler.HandleWebhook)
	return engine
}

func postWebhook(t *testing.T, engine *gin.Engine, body []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/kyc/webhook", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set("X-SHA2-Signature", signature)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestKYCWebhook_InvalidSignatureRejected(t *testing.T) {
	provider := &fakeKYCProvider{validSignature: false}
	enq := &capturingEnqueuer{}
	engine := newWebhookRouter(provider, enq)

	w := postWebhook(t, engine, []byte(`{"payload":{}}`), "bad")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, enq.tasks)
}

func TestKYCWebhook_ValidSignatureEnqueues(t *testing.T) {
	provider := &fakeKYCProvider{
		validSignature: true,
		parseResult: verification.Result{
			Status:  verification.StatusApproved,
			CheckID: "chk_42",
		},
	}
	enq := &capturingEnqueuer{}
	engine := newWebhookRouter(provider, enq)

	w := postWebhook(t, engine, []byte(`{"payload":{}}`), "good")

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, enq.tasks, 1)
	assert.Equal(t, tasks.KYCReconcile, enq.tasks[0].name)

	payload := enq.tasks[0].payload.(tasks.KYCReconcilePayload)
	assert.Equal(t, "chk_42", payload.Result.CheckID)
	assert.Equal(t, verification.StatusApproved, payload.Result.Status)
}

func TestKYCWebhook_MalformedPayloadRejected(t *testing.T) {
	provider := &fakeKYCProvider{
		validSignature: true,
		parseErr:       errors.New("unexpected end of JSON input"),
	}
	enq := &capturingEnqueuer{}
	engine := newWebhookRouter(provider, enq)

	w := postWebhook(t, engine, []byte(`{`), "good")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, enq.tasks)
}

func TestKYCWebhook_EnqueueFailureReturns500(t *testing.T) {
	provider := &fakeKYCProvider{
		validSignature: true,
		parseResult:    verification.Result{CheckID: "chk_1"},
	}
	enq := &capturingEnqueuer{err: errors.New("redis unavailable")}
	engine := newWebhookRouter(provider, enq)

	w := postWebhook(t, engine, []byte(`{"payload":{}}`), "good")

	// the provider retries deliveries that are not acknowledged
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["success"])
}
