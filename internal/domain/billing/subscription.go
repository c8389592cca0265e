package billing

import (
	"fmt"
	"time"
)

// Subscription represents the billing subscription aggregate root
type Subscription struct {
	id                   uint
	sid                  string
	userID               uint
	stripeCustomerID     string
	stripeSubscriptionID string
	plan                 Plan
	status               SubscriptionStatus
	currentPeriodStart   *time.Time
	currentPeriodEnd     *time.Time
	cancelAtPeriodEnd    bool
	canceledAt           *time.Time
	tokensLimit          int
	tokensUsed           int
	lastEventAt          *time.Time
	version              int
	createdAt            time.Time
	updatedAt            time.Time
}

// NewSubscription creates an incomplete subscription awaiting checkout
func NewSubscription(sid string, userID uint, stripeCustomerID string) (*Subscription, error) {
	if sid == "" {
		return nil, fmt.Errorf("sid is required")
	}
	if userID == 0 {
		return nil, fmt.Errorf("user ID is required")
	}
	if stripeCustomerID == "" {
		return nil, fmt.Errorf("stripe customer ID is required")
	}

	now := time.Now()
	return &Subscription{
		sid:              sid,
		userID:           userID,
		stripeCustomerID: stripeCustomerID,
		status:           StatusIncomplete,
		version:          1,
		createdAt:        now,
		updatedAt:        now,
	}, nil
}

// ReconstructSubscription reconstructs a subscription from persistence
func ReconstructSubscription(
	id uint,
	sid string,
	userID uint,
	stripeCustomerID, stripeSubscriptionID string,
	plan Plan,
	status SubscriptionStatus,
	currentPeriodStart, currentPeriodEnd *time.Time,
	cancelAtPeriodEnd bool,
	canceledAt *time.Time,
	tokensLimit, tokensUsed int,
	lastEventAt *time.Time,
	version int,
	createdAt, updatedAt time.Time,
) (*Subscription, error) {
	if id == 0 {
		return nil, fmt.Errorf("subscription ID cannot be zero")
	}
	if !ValidStatuses[status] {
		return nil, fmt.Errorf("invalid subscription status: %s", status)
	}

	return &Subscription{
		id:                   id,
		sid:                  sid,
		userID:               userID,
		stripeCustomerID:     stripeCustomerID,
		stripeSubscriptionID: stripeSubscriptionID,
		plan:                 plan,
		status:               status,
		currentPeriodStart:   currentPeriodStart,
		currentPeriodEnd:     currentPeriodEnd,
		cancelAtPeriodEnd:    cancelAtPeriodEnd,
		canceledAt:           canceledAt,
		tokensLimit:          tokensLimit,
		tokensUsed:           tokensUsed,
		lastEventAt:          lastEventAt,
		version:              version,
		createdAt:            createdAt,
		updatedAt:            updatedAt,
	}, nil
}

func (s *Subscription) ID() uint                       { return s.id }
func (s *Subscription) SID() string                    { return s.sid }
func (s *Subscription) UserID() uint                   { return s.userID }
func (s *Subscription) StripeCustomerID() string       { return s.stripeCustomerID }
func (s *Subscription) StripeSubscriptionID() string   { return s.stripeSubscriptionID }
func (s *Subscription) Plan() Plan                     { return s.plan }
func (s *Subscription) Status() SubscriptionStatus     { return s.status }
func (s *Subscription) CurrentPeriodStart() *time.Time { return s.currentPeriodStart }
func (s *Subscription) CurrentPeriodEnd() *time.Time   { return s.currentPeriodEnd }
func (s *Subscription) CancelAtPeriodEnd() bool        { return s.cancelAtPeriodEnd }
func (s *Subscription) CanceledAt() *time.Time         { return s.canceledAt }
func (s *Subscription) TokensLimit() int               { return s.tokensLimit }
func (s *Subscription) TokensUsed() int                { return s.tokensUsed }
func (s *Subscription) LastEventAt() *time.Time        { return s.lastEventAt }
func (s *Subscription) Version() int                   { return s.version }
func (s *Subscription) CreatedAt() time.Time           { return s.createdAt }
func (s *Subscription) UpdatedAt() time.Time           { return s.updatedAt }

// SetID sets the subscription ID (only for persistence layer use)
func (s *Subscription) SetID(id uint) error {
	if s.id != 0 {
		return fmt.Errorf("subscription ID is already set")
	}
	if id == 0 {
		return fmt.Errorf("subscription ID cannot be zero")
	}
	s.id = id
	return nil
}

// acceptsEvent applies the ordering guard shared by all provider events.
// Canceled is terminal, and events strictly before the last applied one are
// stale deliveries. Equal timestamps pass: distinct stripe events routinely
// share a one-second created value.
func (s *Subscription) acceptsEvent(eventAt time.Time) bool {
	if s.status.IsTerminal() {
		return false
	}
	if s.lastEventAt != nil && eventAt.Before(*s.lastEventAt) {
		return false
	}
	return true
}

// ActivateFromCheckout attaches the provider subscription created by a
// completed checkout session and activates the record. Returns false when
// the event is stale.
func (s *Subscription) ActivateFromCheckout(subscriptionID string, plan Plan, eventAt time.Time) bool {
	if subscriptionID == "" || !ValidPlans[plan] {
		return false
	}
	if s.status == StatusActive && s.stripeSubscriptionID == subscriptionID {
		// replayed checkout delivery
		return false
	}
	if !s.acceptsEvent(eventAt) {
		return false
	}

	s.stripeSubscriptionID = subscriptionID
	s.plan = plan
	s.tokensLimit = plan.TokensLimit()
	s.status = StatusActive
	s.lastEventAt = &eventAt
	s.updatedAt = time.Now()
	s.version++
	return true
}

// ApplyProviderState overwrites the record with the provider snapshot.
// Returns false when the event is stale or the record is canceled.
func (s *Subscription) ApplyProviderState(state SubscriptionState, eventAt time.Time) bool {
	if !ValidStatuses[state.Status] {
		return false
	}
	if !s.acceptsEvent(eventAt) {
		return false
	}

	if s.stripeSubscriptionID == "" {
		s.stripeSubscriptionID = state.SubscriptionID
	}
	s.status = state.Status
	if ValidPlans[state.Plan] {
		s.plan = state.Plan
		s.tokensLimit = state.Plan.TokensLimit()
	}
	if !state.CurrentPeriodStart.IsZero() {
		periodStart := state.CurrentPeriodStart
		s.currentPeriodStart = &periodStart
	}
	if !state.CurrentPeriodEnd.IsZero() {
		periodEnd := state.CurrentPeriodEnd
		s.currentPeriodEnd = &periodEnd
	}
	s.cancelAtPeriodEnd = state.CancelAtPeriodEnd
	s.canceledAt = state.CanceledAt
	s.lastEventAt = &eventAt
	s.updatedAt = time.Now()
	s.version++
	return true
}

// MarkCanceled terminates the subscription. Returns false if already canceled.
func (s *Subscription) MarkCanceled(eventAt time.Time) bool {
	if s.status.IsTerminal() {
		return false
	}

	s.status = StatusCanceled
	s.canceledAt = &eventAt
	s.lastEventAt = &eventAt
	s.updatedAt = time.Now()
	s.version++
	return true
}

// MarkPastDue flags a failed payment. Returns false on a canceled record.
func (s *Subscription) MarkPastDue(eventAt time.Time) bool {
	if s.status.IsTerminal() {
		return false
	}
	if s.status == StatusPastDue {
		return false
	}

	s.status = StatusPastDue
	s.lastEventAt = &eventAt
	s.updatedAt = time.Now()
	s.version++
	return true
}

// ConsumeToken uses one tokenization slot from the plan allowance
func (s *Subscription) ConsumeToken() error {
	if !s.status.CanUseService() {
		return fmt.Errorf("subscription is %s", s.status)
	}
	if s.tokensUsed >= s.tokensLimit {
		return fmt.Errorf("token limit reached (%d/%d)", s.tokensUsed, s.tokensLimit)
	}

	s.tokensUsed++
	s.updatedAt = time.Now()
	s.version++
	return nil
}
