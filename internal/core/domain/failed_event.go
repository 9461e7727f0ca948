package domain

import (
	"time"

	"github.com/google/uuid"
)

// FailedEventStatus is the lifecycle state of a failed-event record.
//
// State machine: pending -> processing -> {completed | pending | failed}.
// completed and failed are terminal; both can return to pending only via
// explicit administrative reset.
type FailedEventStatus string

const (
	FailedEventStatusPending    FailedEventStatus = "pending"
	FailedEventStatusProcessing FailedEventStatus = "processing"
	FailedEventStatusCompleted  FailedEventStatus = "completed"
	FailedEventStatusFailed     FailedEventStatus = "failed"
)

// IsTerminal reports whether no further automatic transition occurs.
func (s FailedEventStatus) IsTerminal() bool {
	return s == FailedEventStatusCompleted || s == FailedEventStatusFailed
}

// DefaultMaxRetries is the retry budget before a record goes terminal.
const DefaultMaxRetries = 5

// retryBackoff is the fixed backoff schedule indexed by retry count.
var retryBackoff = []time.Duration{
	60 * time.Second,
	300 * time.Second,
	900 * time.Second,
	3600 * time.Second,
	7200 * time.Second,
}

// BackoffFor returns the delay before the next retry attempt. The index is
// clamped to the table so retry counts past the schedule reuse the last entry.
func BackoffFor(retryCount int) time.Duration {
	if retryCount < 0 {
		retryCount = 0
	}
	if retryCount >= len(retryBackoff) {
		retryCount = len(retryBackoff) - 1
	}
	return retryBackoff[retryCount]
}

// FailedEvent is the durable record of a notification that could not be
// fully processed. At most one non-terminal record exists per payment id;
// repeated failures update the existing record rather than inserting.
type FailedEvent struct {
	ID              uuid.UUID         `json:"id"`
	PaymentID       string            `json:"payment_id"`
	RawNotification []byte            `json:"raw_notification"` // serialized Notification
	ErrorMessage    string            `json:"error_message"`
	ErrorTrace      *string           `json:"error_trace,omitempty"`
	RetryCount      int               `json:"retry_count"`
	MaxRetries      int               `json:"max_retries"`
	LastRetryAt     *time.Time        `json:"last_retry_at,omitempty"`
	NextRetryAt     *time.Time        `json:"next_retry_at,omitempty"` // nil once terminal
	Status          FailedEventStatus `json:"status"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// Exhausted reports whether the retry budget is spent.
func (e *FailedEvent) Exhausted() bool {
	return e.RetryCount >= e.MaxRetries
}
