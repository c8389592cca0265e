package verification

type Status string

const (
	StatusPending        Status = "pending"
	StatusInProgress     Status = "in_progress"
	StatusApproved       Status = "approved"
	StatusRejected       Status = "rejected"
	StatusRequiresReview Status = "requires_review"
	StatusExpired        Status = "expired"
)

func (s Status) String() string {
	return string(s)
}

// Rank orders statuses along the verification lifecycle. Outcome statuses
// share a rank so a late consider result cannot overwrite an earlier clear.
func (s Status) Rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusInProgress:
		return 1
	case StatusApproved, StatusRejected, StatusRequiresReview:
		return 2
	case StatusExpired:
		return 3
	default:
		return -1
	}
}

// IsOutcome reports whether the status represents a provider decision.
func (s Status) IsOutcome() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusRequiresReview
}

// CanAdvanceTo permits forward movement only. Equal or lower ranks are
// replays or out-of-order deliveries and must not take an edge.
func (s Status) CanAdvanceTo(target Status) bool {
	return target.Rank() > s.Rank()
}

var ValidStatuses = map[Status]bool{
	StatusPending:        true,
	StatusInProgress:     true,
	StatusApproved:       true,
	StatusRejected:       true,
	StatusRequiresReview: true,
	StatusExpired:        true,
}
