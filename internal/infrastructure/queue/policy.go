package queue

import "time"

// Rate limit categories shared with the worker configuration
const (
	RateCategoryEmail = "email"
	RateCategoryKYC   = "kyc"
)

// Policy controls retry and throttling behavior for one task name
type Policy struct {
	MaxRetries   int
	BackoffBase  time.Duration
	RateCategory string
}

// Backoff returns the delay before the given attempt is retried. The delay
// grows linearly with the attempt number.
func (p Policy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return p.BackoffBase * time.Duration(attempt)
}

// DefaultPolicy applies to task names registered without an explicit policy
var DefaultPolicy = Policy{
	MaxRetries:  3,
	BackoffBase: 60 * time.Second,
}
