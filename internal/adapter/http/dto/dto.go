package dto

import (
	"encoding/json"
	"time"

	"payment-reconciler/internal/core/domain"
	"payment-reconciler/internal/core/ports"
)

// ---- Webhook ----

// FlexString decodes a field the gateway serializes either as a JSON number
// or a JSON string.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// WebhookNotification is the gateway's notification body. The gateway sends
// two shapes: a typed body {"type":"payment","data":{"id":"..."}} and a
// legacy query-parameter form (?topic=payment&id=...); both normalize into a
// domain.Notification carrying only the event kind and payment id.
type WebhookNotification struct {
	ID          FlexString `json:"id"`
	Type        string     `json:"type"`
	Action      string     `json:"action"`
	DateCreated string     `json:"date_created"`
	Data        struct {
		ID FlexString `json:"id"`
	} `json:"data"`
}

// ToDomain normalizes the notification, preferring body fields and falling
// back to the legacy query parameters.
func (w *WebhookNotification) ToDomain(topic, queryID string) domain.Notification {
	kind := w.Type
	if kind == "" {
		kind = topic
	}
	paymentID := string(w.Data.ID)
	if paymentID == "" {
		paymentID = queryID
	}
	return domain.Notification{
		EventKind:    kind,
		PaymentID:    paymentID,
		RawTimestamp: w.DateCreated,
	}
}

// WebhookAck is returned to the gateway immediately on receipt.
type WebhookAck struct {
	Received  bool   `json:"received"`
	PaymentID string `json:"payment_id,omitempty"`
}

// ---- Admin auth ----

// TokenRequest exchanges the operator API key for a session token.
type TokenRequest struct {
	APIKey string `json:"api_key" binding:"required"`
}

// TokenResponse carries the issued session token.
type TokenResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"`
}

// ---- Admin pipeline operations ----

// ProcessResultResponse reports the outcome of one processing attempt.
type ProcessResultResponse struct {
	PaymentID  string `json:"payment_id"`
	Outcome    string `json:"outcome"`
	SkipReason string `json:"skip_reason,omitempty"`
	Error      string `json:"error,omitempty"`
}

// NewProcessResultResponse maps a domain result onto the wire shape.
func NewProcessResultResponse(paymentID string, r domain.ProcessResult) ProcessResultResponse {
	resp := ProcessResultResponse{
		PaymentID:  paymentID,
		Outcome:    string(r.Outcome),
		SkipReason: string(r.SkipReason),
	}
	if r.Err != nil {
		resp.Error = r.Err.Error()
	}
	return resp
}

// FailedEventResponse is the admin view of a failed-event record.
type FailedEventResponse struct {
	ID           string     `json:"id"`
	PaymentID    string     `json:"payment_id"`
	ErrorMessage string     `json:"error_message"`
	RetryCount   int        `json:"retry_count"`
	MaxRetries   int        `json:"max_retries"`
	LastRetryAt  *time.Time `json:"last_retry_at,omitempty"`
	NextRetryAt  *time.Time `json:"next_retry_at,omitempty"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// NewFailedEventResponse maps a domain failed event onto the wire shape.
func NewFailedEventResponse(e *domain.FailedEvent) FailedEventResponse {
	return FailedEventResponse{
		ID:           e.ID.String(),
		PaymentID:    e.PaymentID,
		ErrorMessage: e.ErrorMessage,
		RetryCount:   e.RetryCount,
		MaxRetries:   e.MaxRetries,
		LastRetryAt:  e.LastRetryAt,
		NextRetryAt:  e.NextRetryAt,
		Status:       string(e.Status),
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
}

// WorkerHealthResponse is the admin view of the retry worker state.
type WorkerHealthResponse struct {
	HasRun            bool       `json:"has_run"`
	LastRunAt         *time.Time `json:"last_run_at,omitempty"`
	LastRunDurationMS int64      `json:"last_run_duration_ms"`
	Processed         uint64     `json:"processed"`
	Succeeded         uint64     `json:"succeeded"`
	Failed            uint64     `json:"failed"`
}

// NewWorkerHealthResponse maps worker health onto the wire shape.
func NewWorkerHealthResponse(h ports.RetryWorkerHealth) WorkerHealthResponse {
	return WorkerHealthResponse{
		HasRun:            h.HasRun,
		LastRunAt:         h.LastRunAt,
		LastRunDurationMS: h.LastRunDuration.Milliseconds(),
		Processed:         h.Processed,
		Succeeded:         h.Succeeded,
		Failed:            h.Failed,
	}
}
