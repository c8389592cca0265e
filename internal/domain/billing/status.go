package billing

type SubscriptionStatus string

const (
	StatusIncomplete SubscriptionStatus = "incomplete"
	StatusActive     SubscriptionStatus = "active"
	StatusTrialing   SubscriptionStatus = "trialing"
	StatusPastDue    SubscriptionStatus = "past_due"
	StatusCanceled   SubscriptionStatus = "canceled"
	StatusPaused     SubscriptionStatus = "paused"
)

func (s SubscriptionStatus) String() string {
	return string(s)
}

// CanUseService reports whether the subscription grants platform access
func (s SubscriptionStatus) CanUseService() bool {
	return s == StatusActive || s == StatusTrialing
}

// IsTerminal reports whether the subscription accepts no further state events
func (s SubscriptionStatus) IsTerminal() bool {
	return s == StatusCanceled
}

var ValidStatuses = map[SubscriptionStatus]bool{
	StatusIncomplete: true,
	StatusActive:     true,
	StatusTrialing:   true,
	StatusPastDue:    true,
	StatusCanceled:   true,
	StatusPaused:     true,
}
