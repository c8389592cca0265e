package usecases

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verity/internal/domain/billing"
	"verity/internal/domain/user"
	"verity/internal/infrastructure/queue"
	"verity/internal/shared/errors"
	"verity/internal/shared/logger"
	"verity/internal/tasks"
)

// --- fakes ---

type fakeSubscriptionRepo struct {
	mu      sync.Mutex
	records map[uint]*billing.Subscription
	nextID  uint
}

func newFakeSubscriptionRepo() *fakeSubscriptionRepo {
	return &fakeSubscriptionRepo{records: make(map[uint]*billing.Subscription), nextID: 1}
}

func (r *fakeSubscriptionRepo) Create(ctx context.Context, s *billing.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := s.SetID(r.nextID); err != nil {
		return err
	}
	r.nextID++
	r.records[s.ID()] = s
	return nil
}

func (r *fakeSubscriptionRepo) GetByID(ctx context.Context, id uint) (*billing.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.records[id], nil
}

func (r *fakeSubscriptionRepo) GetBySID(ctx context.Context, sid string) (*billing.Subscription, error) {
	return r.find(func(s *billing.Subscription) bool { return s.SID() == sid })
}

func (r *fakeSubscriptionRepo) GetByUserID(ctx context.Context, userID uint) (*billing.Subscription, error) {
	return r.find(func(s *billing.Subscription) bool { return s.UserID() == userID })
}

func (r *fakeSubscriptionRepo) GetByStripeCustomerID(ctx context.Context, customerID string) (*billing.Subscription, error) {
	return r.find(func(s *billing.Subscription) bool { return s.StripeCustomerID() == customerID })
}

func (r *fakeSubscriptionRepo) GetByStripeSubscriptionID(ctx context.Context, subscriptionID string) (*billing.Subscription, error) {
	return r.find(func(s *billing.Subscription) bool { return s.StripeSubscriptionID() == subscriptionID })
}

func (r *fakeSubscriptionRepo) Update(ctx context.Context, s *billing.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[s.ID()] = s
	return nil
}

func (r *fakeSubscriptionRepo) find(match func(*billing.Subscription) bool) (*billing.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.records {
		if match(s) {
			return s, nil
		}
	}
	return nil, nil
}

type fakeHistoryRepo struct {
	mu   sync.Mutex
	rows map[string]*billing.BillingHistory
}

func newFakeHistoryRepo() *fakeHistoryRepo {
	return &fakeHistoryRepo{rows: make(map[string]*billing.BillingHistory)}
}

func (r *fakeHistoryRepo) Create(ctx context.Context, h *billing.BillingHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[h.StripeInvoiceID()]; ok {
		return errors.NewInternalError("Duplicate entry for key billing_history.stripe_invoice_id")
	}
	r.rows[h.StripeInvoiceID()] = h
	return nil
}

func (r *fakeHistoryRepo) GetByStripeInvoiceID(ctx context.Context, invoiceID string) (*billing.BillingHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows[invoiceID], nil
}

func (r *fakeHistoryRepo) ListBySubscriptionID(ctx context.Context, subscriptionID uint, page, pageSize int) ([]*billing.BillingHistory, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*billing.BillingHistory
	for _, h := range r.rows {
		if h.SubscriptionID() == subscriptionID {
			out = append(out, h)
		}
	}
	return out, int64(len(out)), nil
}

type fakeUserRepo struct {
	users map[uint]*user.User
}

func (r *fakeUserRepo) Create(ctx context.Context, u *user.User) error { return nil }
func (r *fakeUserRepo) GetByID(ctx context.Context, id uint) (*user.User, error) {
	return r.users[id], nil
}
func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	for _, u := range r.users {
		if u.Email() == email {
			return u, nil
		}
	}
	return nil, nil
}
func (r *fakeUserRepo) Update(ctx context.Context, u *user.User) error { return nil }

type enqueuedTask struct {
	name    string
	payload interface{}
}

type fakeEnqueuer struct {
	mu    sync.Mutex
	tasks []enqueuedTask
}

func (e *fakeEnqueuer) Enqueue(ctx context.Context, name string, payload interface{}, opts ...queue.Option) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tasks = append(e.tasks, enqueuedTask{name: name, payload: payload})
	return nil
}

func (e *fakeEnqueuer) emails() []tasks.EmailSendPayload {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []tasks.EmailSendPayload
	for _, task := range e.tasks {
		if task.name == tasks.EmailSend {
			out = append(out, task.payload.(tasks.EmailSendPayload))
		}
	}
	return out
}

// --- fixtures ---

func setupApplyEvent(t *testing.T) (*ApplyEventUseCase, *fakeSubscriptionRepo, *fakeHistoryRepo, *fakeEnqueuer, *billing.Subscription) {
	t.Helper()

	subRepo := newFakeSubscriptionRepo()
	histRepo := newFakeHistoryRepo()
	enq := &fakeEnqueuer{}

	u, err := user.ReconstructUser(7, "grace@example.com", "Grace", "0xabc", time.Now(), time.Now())
	require.NoError(t, err)
	userRepo := &fakeUserRepo{users: map[uint]*user.User{7: u}}

	sub, err := billing.NewSubscription("sub_uc00000001", 7, "cus_1")
	require.NoError(t, err)
	require.NoError(t, subRepo.Create(context.Background(), sub))

	uc := NewApplyEventUseCase(subRepo, histRepo, userRepo, enq, logger.NewLogger())
	return uc, subRepo, histRepo, enq, sub
}

func checkoutEvent(at time.Time) billing.Event {
	return billing.Event{
		Type:      billing.EventCheckoutCompleted,
		CreatedAt: at,
		Checkout: &billing.CheckoutData{
			CustomerID:     "cus_1",
			SubscriptionID: "stripesub_1",
			Plan:           billing.PlanProfessional,
		},
	}
}

func stateEvent(eventType billing.EventType, status billing.SubscriptionStatus, at time.Time) billing.Event {
	return billing.Event{
		Type:      eventType,
		CreatedAt: at,
		State: &billing.SubscriptionState{
			SubscriptionID:     "stripesub_1",
			CustomerID:         "cus_1",
			Status:             status,
			Plan:               billing.PlanProfessional,
			CurrentPeriodStart: at,
			CurrentPeriodEnd:   at.AddDate(0, 1, 0),
		},
	}
}

// --- tests ---

func TestApplyEvent_CheckoutActivates(t *testing.T) {
	uc, subRepo, _, enq, sub := setupApplyEvent(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, uc.Execute(ctx, checkoutEvent(now)))

	stored, err := subRepo.GetByID(ctx, sub.ID())
	require.NoError(t, err)
	assert.Equal(t, billing.StatusActive, stored.Status())
	assert.Equal(t, billing.PlanProfessional, stored.Plan())
	assert.Equal(t, "stripesub_1", stored.StripeSubscriptionID())

	emails := enq.emails()
	require.Len(t, emails, 1)
	assert.Equal(t, "subscription_created", emails[0].Template)
	assert.Equal(t, "grace@example.com", emails[0].To)
}

func TestApplyEvent_DuplicateCheckoutSendsOneEmail(t *testing.T) {
	uc, _, _, enq, _ := setupApplyEvent(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, uc.Execute(ctx, checkoutEvent(now)))
	require.NoError(t, uc.Execute(ctx, checkoutEvent(now)))

	assert.Len(t, enq.emails(), 1)
}

func TestApplyEvent_StaleUpdateIsDropped(t *testing.T) {
	uc, subRepo, _, _, sub := setupApplyEvent(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, uc.Execute(ctx, checkoutEvent(now)))
	require.NoError(t, uc.Execute(ctx, stateEvent(billing.EventSubscriptionUpdated, billing.StatusPastDue, now.Add(time.Minute))))

	// an older snapshot delivered after the newer one
	require.NoError(t, uc.Execute(ctx, stateEvent(billing.EventSubscriptionUpdated, billing.StatusActive, now.Add(30*time.Second))))

	stored, err := subRepo.GetByID(ctx, sub.ID())
	require.NoError(t, err)
	assert.Equal(t, billing.StatusPastDue, stored.Status())
}

func TestApplyEvent_CreatedSharingCheckoutTimestampLandsPeriods(t *testing.T) {
	uc, subRepo, _, _, sub := setupApplyEvent(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, uc.Execute(ctx, checkoutEvent(now)))
	// subscription.created often carries the same one-second created value
	// as the checkout completion; it must still land the period fields
	require.NoError(t, uc.Execute(ctx, stateEvent(billing.EventSubscriptionCreated, billing.StatusActive, now)))

	stored, err := subRepo.GetByID(ctx, sub.ID())
	require.NoError(t, err)
	assert.Equal(t, billing.StatusActive, stored.Status())
	require.NotNil(t, stored.CurrentPeriodEnd())
	assert.Equal(t, now.AddDate(0, 1, 0), *stored.CurrentPeriodEnd())
}

func TestApplyEvent_CanceledIsTerminal(t *testing.T) {
	uc, subRepo, _, enq, sub := setupApplyEvent(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, uc.Execute(ctx, checkoutEvent(now)))
	require.NoError(t, uc.Execute(ctx, stateEvent(billing.EventSubscriptionDeleted, billing.StatusCanceled, now.Add(time.Minute))))

	// anything after deletion must not resurrect the record
	require.NoError(t, uc.Execute(ctx, stateEvent(billing.EventSubscriptionUpdated, billing.StatusActive, now.Add(2*time.Minute))))

	stored, err := subRepo.GetByID(ctx, sub.ID())
	require.NoError(t, err)
	assert.Equal(t, billing.StatusCanceled, stored.Status())

	var canceled int
	for _, e := range enq.emails() {
		if e.Template == "subscription_canceled" {
			canceled++
		}
	}
	assert.Equal(t, 1, canceled)
}

func TestApplyEvent_CreatedBeforeCheckoutFallsBackToCustomer(t *testing.T) {
	uc, subRepo, _, _, sub := setupApplyEvent(t)
	ctx := context.Background()
	now := time.Now()

	// subscription.created lands before checkout attached the provider ID
	require.NoError(t, uc.Execute(ctx, stateEvent(billing.EventSubscriptionCreated, billing.StatusIncomplete, now)))

	stored, err := subRepo.GetByID(ctx, sub.ID())
	require.NoError(t, err)
	assert.Equal(t, "stripesub_1", stored.StripeSubscriptionID())
}

func TestApplyEvent_InvoicePaidIsIdempotent(t *testing.T) {
	uc, _, histRepo, _, sub := setupApplyEvent(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, uc.Execute(ctx, checkoutEvent(now)))

	invoice := billing.Event{
		Type:      billing.EventInvoicePaid,
		CreatedAt: now.Add(time.Minute),
		Invoice: &billing.InvoiceData{
			InvoiceID:      "in_1",
			CustomerID:     "cus_1",
			SubscriptionID: "stripesub_1",
			AmountCents:    4900,
			Currency:       "usd",
			Status:         "paid",
			InvoiceDate:    now,
		},
	}
	require.NoError(t, uc.Execute(ctx, invoice))
	require.NoError(t, uc.Execute(ctx, invoice))

	rows, total, err := histRepo.ListBySubscriptionID(ctx, sub.ID(), 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, rows, 1)
	assert.Equal(t, "in_1", rows[0].StripeInvoiceID())
}

func TestApplyEvent_PaymentFailedMarksPastDueOnce(t *testing.T) {
	uc, subRepo, _, enq, sub := setupApplyEvent(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, uc.Execute(ctx, checkoutEvent(now)))

	failed := billing.Event{
		Type:      billing.EventInvoiceFailed,
		CreatedAt: now.Add(time.Minute),
		Invoice: &billing.InvoiceData{
			InvoiceID:  "in_2",
			CustomerID: "cus_1",
			HostedURL:  "https://pay.example.com/in_2",
		},
	}
	require.NoError(t, uc.Execute(ctx, failed))
	require.NoError(t, uc.Execute(ctx, failed))

	stored, err := subRepo.GetByID(ctx, sub.ID())
	require.NoError(t, err)
	assert.Equal(t, billing.StatusPastDue, stored.Status())

	var failures int
	for _, e := range enq.emails() {
		if e.Template == "payment_failed" {
			failures++
		}
	}
	assert.Equal(t, 1, failures)
}

func TestApplyEvent_OrphansAreAcknowledged(t *testing.T) {
	uc, _, _, enq, _ := setupApplyEvent(t)
	ctx := context.Background()

	event := billing.Event{
		Type:      billing.EventSubscriptionUpdated,
		CreatedAt: time.Now(),
		State: &billing.SubscriptionState{
			SubscriptionID: "stripesub_unknown",
			CustomerID:     "cus_unknown",
			Status:         billing.StatusActive,
		},
	}
	require.NoError(t, uc.Execute(ctx, event))
	assert.Empty(t, enq.emails())
}

func TestApplyEvent_IgnoredEventIsNoOp(t *testing.T) {
	uc, _, _, enq, _ := setupApplyEvent(t)

	require.NoError(t, uc.Execute(context.Background(), billing.Event{Type: billing.EventIgnored}))
	assert.Empty(t, enq.tasks)
}
