package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"payment-reconciler/internal/core/domain"
	"payment-reconciler/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// FailureRecorderImpl implements ports.FailureRecorder. It enforces the
// single-non-terminal-record-per-payment invariant: a repeated failure
// merges into the existing record instead of inserting a new one.
type FailureRecorderImpl struct {
	repo       ports.FailedEventRepository
	maxRetries int
	log        zerolog.Logger
}

// NewFailureRecorder creates a new FailureRecorderImpl.
func NewFailureRecorder(repo ports.FailedEventRepository, maxRetries int, log zerolog.Logger) *FailureRecorderImpl {
	if maxRetries <= 0 {
		maxRetries = domain.DefaultMaxRetries
	}
	return &FailureRecorderImpl{repo: repo, maxRetries: maxRetries, log: log}
}

// RecordFailure persists one processing failure. The first failure for a
// payment id creates a pending record with the index-0 backoff; subsequent
// failures increment the retry count, reschedule via the backoff table, and
// go terminal once the budget is spent.
func (r *FailureRecorderImpl) RecordFailure(ctx context.Context, paymentID string, n domain.Notification, cause error) error {
	now := time.Now().UTC()

	existing, err := r.repo.GetActiveByPaymentID(ctx, paymentID)
	if err != nil {
		return fmt.Errorf("load active failed event for %s: %w", paymentID, err)
	}

	if existing == nil {
		raw, err := json.Marshal(n)
		if err != nil {
			return fmt.Errorf("serialize notification for %s: %w", paymentID, err)
		}
		next := now.Add(domain.BackoffFor(0))
		record := &domain.FailedEvent{
			ID:              uuid.New(),
			PaymentID:       paymentID,
			RawNotification: raw,
			ErrorMessage:    cause.Error(),
			RetryCount:      0,
			MaxRetries:      r.maxRetries,
			NextRetryAt:     &next,
			Status:          domain.FailedEventStatusPending,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := r.repo.Create(ctx, record); err != nil {
			return fmt.Errorf("create failed event for %s: %w", paymentID, err)
		}
		r.log.Info().
			Str("payment_id", paymentID).
			Time("next_retry_at", next).
			Msg("failed event recorded")
		return nil
	}

	existing.RetryCount++
	existing.LastRetryAt = &now
	existing.ErrorMessage = cause.Error()
	existing.UpdatedAt = now

	if existing.Exhausted() {
		existing.Status = domain.FailedEventStatusFailed
		existing.NextRetryAt = nil
		r.log.Error().
			Str("payment_id", paymentID).
			Int("retry_count", existing.RetryCount).
			Msg("retry budget exhausted, failed event is terminal")
	} else {
		next := now.Add(domain.BackoffFor(existing.RetryCount))
		existing.Status = domain.FailedEventStatusPending
		existing.NextRetryAt = &next
		r.log.Warn().
			Str("payment_id", paymentID).
			Int("retry_count", existing.RetryCount).
			Time("next_retry_at", next).
			Msg("failed event rescheduled")
	}

	if err := r.repo.Update(ctx, existing); err != nil {
		return fmt.Errorf("update failed event for %s: %w", paymentID, err)
	}
	return nil
}
