package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verity/internal/application/billing/billingprovider"
	"verity/internal/application/billing/usecases"
	"verity/internal/domain/billing"
	"verity/internal/infrastructure/queue"
	"verity/internal/shared/logger"
	"verity/internal/tasks"
)

type fakeBillingProvider struct {
	validSignature bool
	parseEvent     billing.Event
	parseErr       error
}

func (p *fakeBillingProvider) CreateCustomer(ctx context.Context, email, name string, metadata map[string]string) (string, error) {
	return "cus_1", nil
}

func (p *fakeBillingProvider) CreateCheckoutSession(ctx context.Context, customerID string, plan billing.Plan, successURL, cancelURL string) (billingprovider.Session, error) {
	return billingprovider.Session{ID: "cs_1", URL: "https://checkout.example.com/cs_1"}, nil
}

func (p *fakeBillingProvider) CancelSubscription(ctx context.Context, subscriptionID string, atPeriodEnd bool) error {
	return nil
}

func (p *fakeBillingProvider) GetSubscription(ctx context.Context, subscriptionID string) (billing.SubscriptionState, error) {
	return billing.SubscriptionState{}, nil
}

func (p *fakeBillingProvider) VerifyWebhook(rawBody []byte, signatureHeader string) bool {
	return p.validSignature
}

func (p *fakeBillingProvider) ParseWebhook(rawBody []byte) (billing.Event, error) {
	return p.parseEvent, p.parseErr
}

func newBillingWebhookRouter(provider billingprovider.Provider, enqueuer queue.Enqueuer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewBillingHandler(nil, nil, nil, nil, nil, nil, nil, provider, enqueuer, logger.NewLogger())
	engine := gin.New()
	engine.POST("/api/billing/webhook", handler.HandleWebhook)
	return engine
}

func postBillingWebhook(t *testing.T, engine *gin.Engine, body []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/billing/webhook", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestBillingWebhook_InvalidSignatureRejected(t *testing.T) {
	provider := &fakeBillingProvider{validSignature: false}
	enq := &capturingEnqueuer{}
	engine := newBillingWebhookRouter(provider, enq)

	w := postBillingWebhook(t, engine, []byte(`{"type":"invoice.paid"}`), "bad")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, enq.tasks)
}

func TestBillingWebhook_ValidSignatureEnqueues(t *testing.T) {
	provider := &fakeBillingProvider{
		validSignature: true,
		parseEvent: billing.Event{
			Type:      billing.EventInvoicePaid,
			CreatedAt: time.Now(),
			Invoice:   &billing.InvoiceData{InvoiceID: "in_1", CustomerID: "cus_1"},
		},
	}
	enq := &capturingEnqueuer{}
	engine := newBillingWebhookRouter(provider, enq)

	w := postBillingWebhook(t, engine, []byte(`{"type":"invoice.paid"}`), "good")

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, enq.tasks, 1)
	assert.Equal(t, tasks.BillingReconcile, enq.tasks[0].name)

	payload := enq.tasks[0].payload.(tasks.BillingReconcilePayload)
	assert.Equal(t, billing.EventInvoicePaid, payload.Event.Type)
	assert.Equal(t, "in_1", payload.Event.Invoice.InvoiceID)
}

func TestBillingWebhook_IgnoredEventStillAcknowledged(t *testing.T) {
	provider := &fakeBillingProvider{
		validSignature: true,
		parseEvent:     billing.Event{Type: billing.EventIgnored},
	}
	enq := &capturingEnqueuer{}
	engine := newBillingWebhookRouter(provider, enq)

	w := postBillingWebhook(t, engine, []byte(`{"type":"customer.created"}`), "good")

	// unhandled event types are still queued and dropped by the worker,
	// keeping the webhook endpoint a thin verify-and-enqueue surface
	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, enq.tasks, 1)
}

type stubSubscriptionRepo struct {
	subs map[string]*billing.Subscription
}

func (r *stubSubscriptionRepo) Create(_ context.Context, sub *billing.Subscription) error {
	r.subs[sub.SID()] = sub
	return nil
}

func (r *stubSubscriptionRepo) GetByID(context.Context, uint) (*billing.Subscription, error) {
	return nil, nil
}

func (r *stubSubscriptionRepo) GetBySID(_ context.Context, sid string) (*billing.Subscription, error) {
	return r.subs[sid], nil
}

func (r *stubSubscriptionRepo) GetByUserID(context.Context, uint) (*billing.Subscription, error) {
	return nil, nil
}

func (r *stubSubscriptionRepo) GetByStripeCustomerID(context.Context, string) (*billing.Subscription, error) {
	return nil, nil
}

func (r *stubSubscriptionRepo) GetByStripeSubscriptionID(context.Context, string) (*billing.Subscription, error) {
	return nil, nil
}

func (r *stubSubscriptionRepo) Update(context.Context, *billing.Subscription) error {
	return nil
}

func newConsumeRouter(t *testing.T, repo billing.SubscriptionRepository) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	consumeUC := usecases.NewConsumeTokenUseCase(repo, logger.NewLogger())
	handler := NewBillingHandler(nil, nil, nil, nil, nil, consumeUC, nil, nil, nil, logger.NewLogger())
	engine := gin.New()
	engine.POST("/api/billing/consume", handler.ConsumeToken)
	return engine
}

func postConsume(t *testing.T, engine *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/billing/consume", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func activeStarterSubscription(t *testing.T, sid string) *billing.Subscription {
	t.Helper()
	sub, err := billing.NewSubscription(sid, 1, "cus_consume_1")
	require.NoError(t, err)
	require.True(t, sub.ActivateFromCheckout("stripe_sub_consume", billing.PlanStarter, time.Now()))
	return sub
}

func TestConsumeToken_SpendsOneToken(t *testing.T) {
	repo := &stubSubscriptionRepo{subs: map[string]*billing.Subscription{}}
	repo.subs["sub_consume0001"] = activeStarterSubscription(t, "sub_consume0001")
	engine := newConsumeRouter(t, repo)

	w := postConsume(t, engine, `{"subscription_id":"sub_consume0001"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"tokens_used":1`)
	assert.Contains(t, w.Body.String(), `"remaining":2`)
}

func TestConsumeToken_ExhaustedQuotaConflicts(t *testing.T) {
	repo := &stubSubscriptionRepo{subs: map[string]*billing.Subscription{}}
	sub := activeStarterSubscription(t, "sub_consume0002")
	for i := 0; i < sub.TokensLimit(); i++ {
		require.NoError(t, sub.ConsumeToken())
	}
	repo.subs["sub_consume0002"] = sub
	engine := newConsumeRouter(t, repo)

	w := postConsume(t, engine, `{"subscription_id":"sub_consume0002"}`)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestConsumeToken_UnknownSubscription(t *testing.T) {
	repo := &stubSubscriptionRepo{subs: map[string]*billing.Subscription{}}
	engine := newConsumeRouter(t, repo)

	w := postConsume(t, engine, `{"subscription_id":"sub_missing00001"}`)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestConsumeToken_MissingIDRejected(t *testing.T) {
	repo := &stubSubscriptionRepo{subs: map[string]*billing.Subscription{}}
	engine := newConsumeRouter(t, repo)

	w := postConsume(t, engine, `{}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
