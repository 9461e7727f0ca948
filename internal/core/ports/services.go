package ports

import (
	"context"
	"time"

	"payment-reconciler/internal/core/domain"
)

// GatewayClient fetches the authoritative payment record from the external
// gateway. The fetch must be bounded by the caller's context deadline.
type GatewayClient interface {
	GetPayment(ctx context.Context, paymentID string) (*domain.GatewayPayment, error)
}

// PaymentLock provides mutual exclusion per payment id. Acquisition must be
// atomic with respect to concurrent callers for the same key; held locks
// expire after a TTL so a crashed holder cannot starve a payment id.
type PaymentLock interface {
	// TryAcquire returns false when a live lock for the key exists.
	TryAcquire(ctx context.Context, paymentID string) (bool, error)
	Release(ctx context.Context, paymentID string) error
}

// EventProcessor is the core pipeline operation. ProcessEvent never lets an
// error escape: every path resolves to a tagged ProcessResult so the inbound
// transport can acknowledge receipt regardless of outcome.
type EventProcessor interface {
	ProcessEvent(ctx context.Context, n domain.Notification) domain.ProcessResult
	// ProcessManual re-drives a payment id directly, bypassing
	// notification-shape validation. Used for operator recovery.
	ProcessManual(ctx context.Context, paymentID string) domain.ProcessResult
}

// FailureRecorder persists a processing failure for later retry, merging
// into the existing non-terminal record for the payment id if one exists.
type FailureRecorder interface {
	RecordFailure(ctx context.Context, paymentID string, n domain.Notification, cause error) error
}

// RetryWorkerHealth reports whether the retry worker has executed since
// start, and its aggregate counters.
type RetryWorkerHealth struct {
	HasRun          bool          `json:"has_run"`
	LastRunAt       *time.Time    `json:"last_run_at,omitempty"`
	LastRunDuration time.Duration `json:"last_run_duration"`
	Processed       uint64        `json:"processed"`
	Succeeded       uint64        `json:"succeeded"`
	Failed          uint64        `json:"failed"`
}

// RetryService re-drives failed events until success or budget exhaustion.
type RetryService interface {
	// RunBatch processes one batch of due records. Overlapping invocations
	// are skipped, not queued.
	RunBatch(ctx context.Context)
	// ForceRetry resets a record's nextRetryAt to now and synchronously
	// re-invokes the processor. Returns the processing result.
	ForceRetry(ctx context.Context, paymentID string) (domain.ProcessResult, error)
	// Reset administratively returns a record to pending with a fresh retry
	// budget.
	Reset(ctx context.Context, paymentID string) error
	Health() RetryWorkerHealth
}

// PipelineStats aggregates pipeline state for the operator.
type PipelineStats struct {
	TotalPayments         int64                          `json:"total_payments"`
	PendingRetries        int64                          `json:"pending_retries"`
	PermanentlyFailed     int64                          `json:"permanently_failed"`
	CountsByGatewayStatus map[domain.GatewayStatus]int64 `json:"counts_by_gateway_status"`
}

// ReportingService exposes pipeline observability to the admin API.
type ReportingService interface {
	GetPipelineStats(ctx context.Context) (*PipelineStats, error)
	// ListFailedEvents filters by status; nil means pending + failed.
	ListFailedEvents(ctx context.Context, status *domain.FailedEventStatus) ([]domain.FailedEvent, error)
}

// --- Operator authentication ---

// TokenService handles JWT token operations for the admin API.
type TokenService interface {
	Generate(subject string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	Subject string
}

// HashService verifies the operator API key against its stored hash.
type HashService interface {
	Hash(secret string) (string, error)
	Verify(secret string, hash string) (bool, error)
}

// SignatureService handles HMAC-SHA256 signing and verification of webhook
// payloads.
type SignatureService interface {
	Sign(secretKey string, payload string) string
	Verify(secretKey string, payload string, signature string) bool
}

// AuthService exchanges the operator API key for a session token.
type AuthService interface {
	IssueToken(ctx context.Context, apiKey string) (string, time.Time, error)
}
