package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"payment-reconciler/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// FailedEventRepo implements ports.FailedEventRepository.
type FailedEventRepo struct {
	pool Pool
}

// NewFailedEventRepo creates a new FailedEventRepo.
func NewFailedEventRepo(pool Pool) *FailedEventRepo {
	return &FailedEventRepo{pool: pool}
}

const failedEventColumns = `id, payment_id, raw_notification, error_message, error_trace,
		retry_count, max_retries, last_retry_at, next_retry_at, status, created_at, updated_at`

func scanFailedEvent(row pgx.Row) (*domain.FailedEvent, error) {
	e := &domain.FailedEvent{}
	err := row.Scan(
		&e.ID, &e.PaymentID, &e.RawNotification, &e.ErrorMessage, &e.ErrorTrace,
		&e.RetryCount, &e.MaxRetries, &e.LastRetryAt, &e.NextRetryAt, &e.Status,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// GetActiveByPaymentID fetches the single non-terminal record for a payment id.
func (r *FailedEventRepo) GetActiveByPaymentID(ctx context.Context, paymentID string) (*domain.FailedEvent, error) {
	query := `SELECT ` + failedEventColumns + ` FROM failed_events
		WHERE payment_id = $1 AND status IN ('pending', 'processing')
		ORDER BY created_at DESC LIMIT 1`

	e, err := scanFailedEvent(r.pool.QueryRow(ctx, query, paymentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get active failed event: %w", err)
	}
	return e, nil
}

// GetLatestByPaymentID fetches the most recent record regardless of status.
func (r *FailedEventRepo) GetLatestByPaymentID(ctx context.Context, paymentID string) (*domain.FailedEvent, error) {
	query := `SELECT ` + failedEventColumns + ` FROM failed_events
		WHERE payment_id = $1 ORDER BY created_at DESC LIMIT 1`

	e, err := scanFailedEvent(r.pool.QueryRow(ctx, query, paymentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get latest failed event: %w", err)
	}
	return e, nil
}

// Create inserts a new failed-event record.
func (r *FailedEventRepo) Create(ctx context.Context, e *domain.FailedEvent) error {
	query := `INSERT INTO failed_events (` + failedEventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.pool.Exec(ctx, query,
		e.ID, e.PaymentID, e.RawNotification, e.ErrorMessage, e.ErrorTrace,
		e.RetryCount, e.MaxRetries, e.LastRetryAt, e.NextRetryAt, e.Status,
		e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert failed event: %w", err)
	}
	return nil
}

// Update persists the mutable retry bookkeeping of a record.
func (r *FailedEventRepo) Update(ctx context.Context, e *domain.FailedEvent) error {
	query := `UPDATE failed_events
		SET error_message = $1, error_trace = $2, retry_count = $3,
			last_retry_at = $4, next_retry_at = $5, status = $6, updated_at = $7
		WHERE id = $8`

	tag, err := r.pool.Exec(ctx, query,
		e.ErrorMessage, e.ErrorTrace, e.RetryCount,
		e.LastRetryAt, e.NextRetryAt, e.Status, e.UpdatedAt, e.ID,
	)
	if err != nil {
		return fmt.Errorf("update failed event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update failed event: record %s not found", e.ID)
	}
	return nil
}

// ListDue returns up to limit pending records whose next retry is due,
// oldest first.
func (r *FailedEventRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]domain.FailedEvent, error) {
	query := `SELECT ` + failedEventColumns + ` FROM failed_events
		WHERE status = 'pending' AND next_retry_at IS NOT NULL AND next_retry_at <= $1
		ORDER BY next_retry_at ASC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list due failed events: %w", err)
	}
	defer rows.Close()

	return collectFailedEvents(rows)
}

// ListByStatus returns records in any of the given statuses, most recently
// updated first.
func (r *FailedEventRepo) ListByStatus(ctx context.Context, statuses ...domain.FailedEventStatus) ([]domain.FailedEvent, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	values := make([]string, len(statuses))
	for i, s := range statuses {
		values[i] = string(s)
	}

	query := `SELECT ` + failedEventColumns + ` FROM failed_events
		WHERE status = ANY($1) ORDER BY updated_at DESC`

	rows, err := r.pool.Query(ctx, query, values)
	if err != nil {
		return nil, fmt.Errorf("list failed events by status: %w", err)
	}
	defer rows.Close()

	return collectFailedEvents(rows)
}

// CountByStatus returns the number of records in the given status.
func (r *FailedEventRepo) CountByStatus(ctx context.Context, status domain.FailedEventStatus) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM failed_events WHERE status = $1`, status).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count failed events by status: %w", err)
	}
	return count, nil
}

func collectFailedEvents(rows pgx.Rows) ([]domain.FailedEvent, error) {
	var events []domain.FailedEvent
	for rows.Next() {
		e, err := scanFailedEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan failed event: %w", err)
		}
		events = append(events, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate failed events: %w", err)
	}
	return events, nil
}
