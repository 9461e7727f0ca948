package service

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"payment-reconciler/internal/core/domain"
	"payment-reconciler/internal/core/ports"
	"payment-reconciler/internal/metrics"
	"payment-reconciler/pkg/apperror"

	"github.com/rs/zerolog"
)

const (
	defaultRetryInterval = 60 * time.Second
	defaultBatchSize     = 10
)

// RetryServiceImpl implements ports.RetryService. It owns the background
// worker loop that periodically re-drives due failed events through the
// processor. A single instance runs at most one batch at a time; an overdue
// tick that fires while a batch is still running is skipped.
type RetryServiceImpl struct {
	repo      ports.FailedEventRepository
	processor ports.EventProcessor
	interval  time.Duration
	batchSize int
	metrics   *metrics.PipelineMetrics
	log       zerolog.Logger

	inFlight atomic.Bool

	mu     sync.Mutex
	health ports.RetryWorkerHealth

	stop chan struct{}
	done chan struct{}
}

// NewRetryService creates a new RetryServiceImpl. The worker does not run
// until Start is called.
func NewRetryService(
	repo ports.FailedEventRepository,
	processor ports.EventProcessor,
	interval time.Duration,
	batchSize int,
	m *metrics.PipelineMetrics,
	log zerolog.Logger,
) *RetryServiceImpl {
	if interval <= 0 {
		interval = defaultRetryInterval
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &RetryServiceImpl{
		repo:      repo,
		processor: processor,
		interval:  interval,
		batchSize: batchSize,
		metrics:   m,
		log:       log,
	}
}

// Start launches the background loop. The loop stops when Stop is called or
// the provided context is cancelled.
func (s *RetryServiceImpl) Start(ctx context.Context) {
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.log.Info().
			Dur("interval", s.interval).
			Int("batch_size", s.batchSize).
			Msg("retry worker started")

		for {
			select {
			case <-s.stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.RunBatch(ctx)
			}
		}
	}()
}

// Stop signals the loop to exit and waits for the current batch to finish.
func (s *RetryServiceImpl) Stop() {
	if s.stop == nil {
		return
	}
	close(s.stop)
	<-s.done
	s.log.Info().Msg("retry worker stopped")
}

// RunBatch processes one batch of due failed events. Overlapping invocations
// (a slow batch outliving the tick, or an admin-triggered run racing the
// ticker) are skipped.
func (s *RetryServiceImpl) RunBatch(ctx context.Context) {
	if !s.inFlight.CompareAndSwap(false, true) {
		s.log.Debug().Msg("retry batch already running, skipping tick")
		return
	}
	defer s.inFlight.Store(false)

	start := time.Now()
	due, err := s.repo.ListDue(ctx, start.UTC(), s.batchSize)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list due failed events")
		s.recordRun(start, 0, 0, 0)
		return
	}
	if len(due) == 0 {
		s.recordRun(start, 0, 0, 0)
		return
	}

	s.log.Info().Int("due", len(due)).Msg("retry batch started")

	var succeeded, failed uint64
	for i := range due {
		// One poisonous record must not sink the rest of the batch.
		if s.retryOne(ctx, &due[i]) {
			succeeded++
			s.metrics.IncRetryResult("succeeded")
		} else {
			failed++
			s.metrics.IncRetryResult("failed")
		}
	}

	s.recordRun(start, uint64(len(due)), succeeded, failed)
	s.log.Info().
		Int("processed", len(due)).
		Uint64("succeeded", succeeded).
		Uint64("failed", failed).
		Dur("duration", time.Since(start)).
		Msg("retry batch finished")
}

// retryOne re-drives a single failed event and reports whether it resolved.
func (s *RetryServiceImpl) retryOne(ctx context.Context, e *domain.FailedEvent) bool {
	e.Status = domain.FailedEventStatusProcessing
	e.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, e); err != nil {
		s.log.Error().
			Err(err).
			Str("payment_id", e.PaymentID).
			Msg("failed to mark failed event processing")
		return false
	}

	res := s.processor.ProcessEvent(ctx, s.notificationFor(e))

	switch {
	case res.Outcome == domain.OutcomeSkipped && res.SkipReason == domain.SkipInFlight:
		// Someone else holds the payment lock right now; put the record back
		// untouched and let the next tick pick it up.
		e.Status = domain.FailedEventStatusPending
		e.UpdatedAt = time.Now().UTC()
		if err := s.repo.Update(ctx, e); err != nil {
			s.log.Error().Err(err).Str("payment_id", e.PaymentID).Msg("failed to requeue failed event")
		}
		return false
	case res.Resolved():
		e.Status = domain.FailedEventStatusCompleted
		e.NextRetryAt = nil
		e.UpdatedAt = time.Now().UTC()
		if err := s.repo.Update(ctx, e); err != nil {
			s.log.Error().Err(err).Str("payment_id", e.PaymentID).Msg("failed to complete failed event")
			return false
		}
		s.log.Info().
			Str("payment_id", e.PaymentID).
			Str("outcome", string(res.Outcome)).
			Int("retry_count", e.RetryCount).
			Msg("failed event resolved")
		return true
	default:
		// The processor already merged this failure into the record via the
		// failure recorder: retry count bumped, rescheduled or gone terminal.
		return false
	}
}

// notificationFor reconstructs the stored notification, falling back to a
// synthetic payment event when the stored payload does not deserialize.
func (s *RetryServiceImpl) notificationFor(e *domain.FailedEvent) domain.Notification {
	var n domain.Notification
	if err := json.Unmarshal(e.RawNotification, &n); err != nil || n.PaymentID == "" {
		return domain.Notification{EventKind: domain.EventKindPayment, PaymentID: e.PaymentID}
	}
	return n
}

// ForceRetry re-drives a failed event immediately, bypassing the schedule.
// The retry budget is left untouched.
func (s *RetryServiceImpl) ForceRetry(ctx context.Context, paymentID string) (domain.ProcessResult, error) {
	e, err := s.repo.GetLatestByPaymentID(ctx, paymentID)
	if err != nil {
		return domain.ProcessResult{}, apperror.ErrDatabaseError(err)
	}
	if e == nil {
		return domain.ProcessResult{}, apperror.ErrFailedEventNotFound(paymentID)
	}

	now := time.Now().UTC()
	e.Status = domain.FailedEventStatusPending
	e.NextRetryAt = &now
	e.UpdatedAt = now
	if err := s.repo.Update(ctx, e); err != nil {
		return domain.ProcessResult{}, apperror.ErrDatabaseError(err)
	}

	s.log.Info().Str("payment_id", paymentID).Msg("force retry requested")

	res := s.processor.ProcessEvent(ctx, s.notificationFor(e))
	if res.Resolved() && !(res.Outcome == domain.OutcomeSkipped && res.SkipReason == domain.SkipInFlight) {
		e.Status = domain.FailedEventStatusCompleted
		e.NextRetryAt = nil
		e.UpdatedAt = time.Now().UTC()
		if err := s.repo.Update(ctx, e); err != nil {
			s.log.Error().Err(err).Str("payment_id", paymentID).Msg("failed to complete failed event")
		}
	}
	return res, nil
}

// Reset returns a record to pending with a fresh retry budget. Intended for
// terminal records after the underlying fault was fixed.
func (s *RetryServiceImpl) Reset(ctx context.Context, paymentID string) error {
	e, err := s.repo.GetLatestByPaymentID(ctx, paymentID)
	if err != nil {
		return apperror.ErrDatabaseError(err)
	}
	if e == nil {
		return apperror.ErrFailedEventNotFound(paymentID)
	}

	now := time.Now().UTC()
	e.Status = domain.FailedEventStatusPending
	e.RetryCount = 0
	e.NextRetryAt = &now
	e.LastRetryAt = nil
	e.UpdatedAt = now
	if err := s.repo.Update(ctx, e); err != nil {
		return apperror.ErrDatabaseError(err)
	}

	s.log.Info().Str("payment_id", paymentID).Msg("failed event reset")
	return nil
}

// Health reports the worker's aggregate run state.
func (s *RetryServiceImpl) Health() ports.RetryWorkerHealth {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.health
}

func (s *RetryServiceImpl) recordRun(start time.Time, processed, succeeded, failed uint64) {
	duration := time.Since(start)
	s.metrics.ObserveRetryRun(duration)

	now := time.Now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.health.HasRun = true
	s.health.LastRunAt = &now
	s.health.LastRunDuration = duration
	s.health.Processed += processed
	s.health.Succeeded += succeeded
	s.health.Failed += failed
}
