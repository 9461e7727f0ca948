package domain

// Outcome tags the result of processing one notification.
type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeUpdated Outcome = "updated"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// SkipReason explains a skipped outcome. Skips are never retried.
type SkipReason string

const (
	SkipNotPaymentEvent  SkipReason = "not_payment_event"
	SkipMissingPaymentID SkipReason = "missing_payment_id"
	SkipInFlight         SkipReason = "in_flight"
	SkipNoCorrelationRef SkipReason = "no_correlation_ref"
	SkipBadCorrelation   SkipReason = "bad_correlation_ref"
	SkipDuplicateStatus  SkipReason = "duplicate_status"
)

// ProcessResult is the tagged result every processing layer returns instead
// of throwing. Callers pattern-match on the outcome; errors never escape the
// processor's public boundary.
type ProcessResult struct {
	Outcome    Outcome    `json:"outcome"`
	SkipReason SkipReason `json:"skip_reason,omitempty"`
	Err        error      `json:"-"`
}

func ResultCreated() ProcessResult { return ProcessResult{Outcome: OutcomeCreated} }
func ResultUpdated() ProcessResult { return ProcessResult{Outcome: OutcomeUpdated} }

func ResultSkipped(reason SkipReason) ProcessResult {
	return ProcessResult{Outcome: OutcomeSkipped, SkipReason: reason}
}

func ResultFailed(err error) ProcessResult {
	return ProcessResult{Outcome: OutcomeFailed, Err: err}
}

// Resolved reports whether the notification needs no further delivery:
// a created/updated record, or a skip (duplicates and unprocessable
// notifications cannot succeed by retrying).
func (r ProcessResult) Resolved() bool {
	return r.Outcome != OutcomeFailed
}
