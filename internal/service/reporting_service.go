package service

import (
	"context"

	"payment-reconciler/internal/core/domain"
	"payment-reconciler/internal/core/ports"
	"payment-reconciler/pkg/apperror"
)

// ReportingServiceImpl implements ports.ReportingService.
type ReportingServiceImpl struct {
	payments ports.PaymentRepository
	failed   ports.FailedEventRepository
}

// NewReportingService creates a new ReportingServiceImpl.
func NewReportingService(payments ports.PaymentRepository, failed ports.FailedEventRepository) *ReportingServiceImpl {
	return &ReportingServiceImpl{payments: payments, failed: failed}
}

// GetPipelineStats aggregates payment and failed-event counters.
func (s *ReportingServiceImpl) GetPipelineStats(ctx context.Context) (*ports.PipelineStats, error) {
	total, err := s.payments.Count(ctx)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	byStatus, err := s.payments.CountByGatewayStatus(ctx)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	pending, err := s.failed.CountByStatus(ctx, domain.FailedEventStatusPending)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	terminal, err := s.failed.CountByStatus(ctx, domain.FailedEventStatusFailed)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	return &ports.PipelineStats{
		TotalPayments:         total,
		PendingRetries:        pending,
		PermanentlyFailed:     terminal,
		CountsByGatewayStatus: byStatus,
	}, nil
}

// ListFailedEvents returns failed events filtered by status. A nil filter
// returns the records an operator acts on: pending and permanently failed.
func (s *ReportingServiceImpl) ListFailedEvents(ctx context.Context, status *domain.FailedEventStatus) ([]domain.FailedEvent, error) {
	var (
		events []domain.FailedEvent
		err    error
	)
	if status == nil {
		events, err = s.failed.ListByStatus(ctx, domain.FailedEventStatusPending, domain.FailedEventStatusFailed)
	} else {
		events, err = s.failed.ListByStatus(ctx, *status)
	}
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	return events, nil
}
