package queue

import (
	"encoding/json"
	"time"
)

// Task is the wire envelope stored in redis. Attempt counts completed
// delivery attempts, so a freshly enqueued task carries 0.
type Task struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Payload    json.RawMessage `json:"payload"`
	Attempt    int             `json:"attempt"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// Redis keys shared by the client, worker loops, promoter and reaper.
const (
	readyKey      = "verity:queue:ready"
	scheduledKey  = "verity:queue:scheduled"
	processingKey = "verity:queue:processing"
	leaseKey      = "verity:queue:lease"
	deadKey       = "verity:queue:dead"
)
