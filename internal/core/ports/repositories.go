package ports

import (
	"context"
	"time"

	"payment-reconciler/internal/core/domain"
)

// PaymentRepository defines persistence for canonical payment records.
// Records are keyed by the gateway payment id (unique).
type PaymentRepository interface {
	// GetByPaymentID returns nil, nil when no record exists.
	GetByPaymentID(ctx context.Context, paymentID string) (*domain.Payment, error)
	// Upsert creates the record if absent, else updates all mutable fields.
	// Returns true when a new record was created.
	Upsert(ctx context.Context, p *domain.Payment) (bool, error)
	Count(ctx context.Context) (int64, error)
	CountByGatewayStatus(ctx context.Context) (map[domain.GatewayStatus]int64, error)
}

// FailedEventRepository defines persistence for failed-event records and
// their retry bookkeeping.
type FailedEventRepository interface {
	// GetActiveByPaymentID returns the single non-terminal (pending/processing)
	// record for a payment id, or nil, nil.
	GetActiveByPaymentID(ctx context.Context, paymentID string) (*domain.FailedEvent, error)
	// GetLatestByPaymentID returns the most recent record regardless of
	// status, or nil, nil.
	GetLatestByPaymentID(ctx context.Context, paymentID string) (*domain.FailedEvent, error)
	Create(ctx context.Context, e *domain.FailedEvent) error
	Update(ctx context.Context, e *domain.FailedEvent) error
	// ListDue returns up to limit pending records with nextRetryAt <= now,
	// ordered by nextRetryAt ascending.
	ListDue(ctx context.Context, now time.Time, limit int) ([]domain.FailedEvent, error)
	ListByStatus(ctx context.Context, statuses ...domain.FailedEventStatus) ([]domain.FailedEvent, error)
	CountByStatus(ctx context.Context, status domain.FailedEventStatus) (int64, error)
}

// OrderStore is the boundary to the order aggregate. UpdateStatus is expected
// to be idempotent when invoked with a status the order already holds; for
// the confirmed target it also performs the downstream business transition
// (stock, shipment, customer notification) on the order side.
type OrderStore interface {
	// GetByID returns nil, nil when the order does not exist.
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) error
}
