package service

import (
	"context"
	"fmt"
	"time"

	"payment-reconciler/internal/core/domain"
	"payment-reconciler/internal/core/ports"
	"payment-reconciler/internal/metrics"
	"payment-reconciler/pkg/apperror"

	"github.com/rs/zerolog"
)

const defaultFetchTimeout = 10 * time.Second

// ProcessorServiceImpl implements ports.EventProcessor.
//
// The pipeline is fetch-then-reconcile: the inbound notification contributes
// only the payment id, and every stored value comes from the gateway's
// authoritative record. Combined with the per-payment lock this makes the
// final state convergent regardless of delivery order.
type ProcessorServiceImpl struct {
	gateway      ports.GatewayClient
	orders       ports.OrderStore
	payments     ports.PaymentRepository
	lock         ports.PaymentLock
	recorder     ports.FailureRecorder
	fetchTimeout time.Duration
	metrics      *metrics.PipelineMetrics
	log          zerolog.Logger
}

// NewProcessorService creates a new ProcessorServiceImpl.
func NewProcessorService(
	gateway ports.GatewayClient,
	orders ports.OrderStore,
	payments ports.PaymentRepository,
	lock ports.PaymentLock,
	recorder ports.FailureRecorder,
	fetchTimeout time.Duration,
	m *metrics.PipelineMetrics,
	log zerolog.Logger,
) *ProcessorServiceImpl {
	if fetchTimeout <= 0 {
		fetchTimeout = defaultFetchTimeout
	}
	return &ProcessorServiceImpl{
		gateway:      gateway,
		orders:       orders,
		payments:     payments,
		lock:         lock,
		recorder:     recorder,
		fetchTimeout: fetchTimeout,
		metrics:      m,
		log:          log,
	}
}

// ProcessEvent processes one inbound notification. It never returns an error
// to the caller: unprocessable notifications resolve to skipped, transient
// failures are persisted for retry and resolve to failed.
func (s *ProcessorServiceImpl) ProcessEvent(ctx context.Context, n domain.Notification) domain.ProcessResult {
	if n.PaymentID == "" {
		s.log.Warn().Str("event_kind", n.EventKind).Msg("notification without payment id, skipping")
		return s.done(domain.ResultSkipped(domain.SkipMissingPaymentID))
	}
	if !n.IsPaymentEvent() {
		s.log.Debug().
			Str("event_kind", n.EventKind).
			Str("payment_id", n.PaymentID).
			Msg("non-payment event, skipping")
		return s.done(domain.ResultSkipped(domain.SkipNotPaymentEvent))
	}
	return s.process(ctx, n)
}

// ProcessManual re-drives a payment id directly, bypassing notification-shape
// validation. Used by the admin API for recovery and testing.
func (s *ProcessorServiceImpl) ProcessManual(ctx context.Context, paymentID string) domain.ProcessResult {
	if paymentID == "" {
		return s.done(domain.ResultSkipped(domain.SkipMissingPaymentID))
	}
	return s.process(ctx, domain.Notification{EventKind: domain.EventKindPayment, PaymentID: paymentID})
}

func (s *ProcessorServiceImpl) process(ctx context.Context, n domain.Notification) domain.ProcessResult {
	acquired, err := s.lock.TryAcquire(ctx, n.PaymentID)
	if err != nil {
		return s.fail(ctx, n, fmt.Errorf("acquire lock for payment %s: %w", n.PaymentID, err))
	}
	if !acquired {
		// Another in-flight attempt owns the outcome; the notification was
		// already acknowledged, so dropping it here is safe.
		s.log.Debug().Str("payment_id", n.PaymentID).Msg("payment already in flight, skipping")
		return s.done(domain.ResultSkipped(domain.SkipInFlight))
	}
	defer func() {
		if err := s.lock.Release(context.WithoutCancel(ctx), n.PaymentID); err != nil {
			s.log.Warn().Err(err).Str("payment_id", n.PaymentID).Msg("failed to release payment lock")
		}
	}()

	result, err := s.reconcile(ctx, n)
	if err != nil {
		return s.fail(ctx, n, err)
	}
	return s.done(result)
}

// reconcile runs the lock-guarded part of the algorithm. A returned error is
// a transient failure; an unprocessable notification resolves to a skip.
func (s *ProcessorServiceImpl) reconcile(ctx context.Context, n domain.Notification) (domain.ProcessResult, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	gw, err := s.gateway.GetPayment(fetchCtx, n.PaymentID)
	if err != nil {
		return domain.ProcessResult{}, fmt.Errorf("fetch payment %s from gateway: %w", n.PaymentID, err)
	}

	if gw.ExternalReference == "" {
		// Can never succeed without the correlation reference; not retried.
		s.log.Warn().Str("payment_id", gw.ID).Msg("gateway payment has no correlation reference, skipping")
		return domain.ResultSkipped(domain.SkipNoCorrelationRef), nil
	}

	orderID, err := domain.ParseCorrelationRef(gw.ExternalReference)
	if err != nil {
		s.log.Warn().
			Err(err).
			Str("payment_id", gw.ID).
			Str("correlation_ref", gw.ExternalReference).
			Msg("unparseable correlation reference, skipping")
		return domain.ResultSkipped(domain.SkipBadCorrelation), nil
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return domain.ProcessResult{}, fmt.Errorf("load order %d: %w", orderID, err)
	}
	if order == nil {
		// Orders are created before any payment can reference them, so a
		// miss is assumed to be a read-after-write race and retried.
		return domain.ProcessResult{}, apperror.ErrOrderNotFound(orderID)
	}

	existing, err := s.payments.GetByPaymentID(ctx, n.PaymentID)
	if err != nil {
		return domain.ProcessResult{}, fmt.Errorf("load payment record %s: %w", n.PaymentID, err)
	}
	if existing != nil && existing.GatewayStatus == gw.Status {
		// Duplicate delivery of an already-applied status.
		s.log.Debug().
			Str("payment_id", gw.ID).
			Str("gateway_status", string(gw.Status)).
			Msg("status already applied, skipping")
		return domain.ResultSkipped(domain.SkipDuplicateStatus), nil
	}

	payment := buildPayment(orderID, gw, existing)
	created, err := s.payments.Upsert(ctx, payment)
	if err != nil {
		return domain.ProcessResult{}, fmt.Errorf("upsert payment record %s: %w", n.PaymentID, err)
	}

	target := domain.OrderStatusFor(gw.Status)
	if target != order.Status {
		if err := s.orders.UpdateStatus(ctx, orderID, target); err != nil {
			return domain.ProcessResult{}, fmt.Errorf("update order %d to %s: %w", orderID, target, err)
		}
		s.log.Info().
			Str("payment_id", gw.ID).
			Int64("order_id", orderID).
			Str("gateway_status", string(gw.Status)).
			Str("order_status", string(target)).
			Msg("order status updated")
	}

	if created {
		return domain.ResultCreated(), nil
	}
	return domain.ResultUpdated(), nil
}

// fail records the failure for later retry and resolves to a failed result.
// Errors never escape past this boundary: the inbound transport must still
// acknowledge receipt to stop gateway redelivery storms.
func (s *ProcessorServiceImpl) fail(ctx context.Context, n domain.Notification, cause error) domain.ProcessResult {
	s.log.Error().
		Err(cause).
		Str("payment_id", n.PaymentID).
		Msg("payment event processing failed")

	if err := s.recorder.RecordFailure(context.WithoutCancel(ctx), n.PaymentID, n, cause); err != nil {
		s.log.Error().
			Err(err).
			Str("payment_id", n.PaymentID).
			Msg("failed to persist failed event record")
	}
	return s.done(domain.ResultFailed(cause))
}

func (s *ProcessorServiceImpl) done(r domain.ProcessResult) domain.ProcessResult {
	s.metrics.IncOutcome(string(r.Outcome))
	return r
}

// buildPayment maps the freshly fetched gateway record onto the canonical
// payment, preserving the original creation time on update.
func buildPayment(orderID int64, gw *domain.GatewayPayment, existing *domain.Payment) *domain.Payment {
	now := time.Now().UTC()
	createdAt := now
	if existing != nil {
		createdAt = existing.CreatedAt
	}
	return &domain.Payment{
		OrderID:            orderID,
		PaymentID:          gw.ID,
		CorrelationRef:     gw.ExternalReference,
		GatewayStatus:      gw.Status,
		StatusDetail:       gw.StatusDetail,
		DerivedOrderStatus: domain.OrderStatusFor(gw.Status),
		Amounts: domain.PaymentAmounts{
			Transaction: gw.TransactionAmount,
			Paid:        gw.PaidAmount,
			Net:         gw.NetAmount,
			Commission:  gw.Commission,
		},
		PaymentMethod: gw.PaymentMethodID,
		PaymentType:   gw.PaymentTypeID,
		CardLastFour:  gw.CardLastFour,
		PayerEmail:    gw.PayerEmail,
		CreatedAt:     createdAt,
		ApprovedAt:    gw.DateApproved,
		ProcessedAt:   now,
		UpdatedAt:     now,
	}
}
