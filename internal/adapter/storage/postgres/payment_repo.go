package postgres

import (
	"context"
	"errors"
	"fmt"

	"payment-reconciler/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// PaymentRepo implements ports.PaymentRepository.
type PaymentRepo struct {
	pool Pool
}

// NewPaymentRepo creates a new PaymentRepo.
func NewPaymentRepo(pool Pool) *PaymentRepo {
	return &PaymentRepo{pool: pool}
}

const paymentColumns = `order_id, payment_id, correlation_ref, gateway_status, status_detail, derived_order_status,
		transaction_amount, paid_amount, net_amount, commission,
		payment_method, payment_type, card_last_four, payer_email,
		created_at, approved_at, processed_at, updated_at`

// GetByPaymentID fetches a payment by its gateway payment id.
func (r *PaymentRepo) GetByPaymentID(ctx context.Context, paymentID string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE payment_id = $1`

	p := &domain.Payment{}
	err := r.pool.QueryRow(ctx, query, paymentID).Scan(
		&p.OrderID, &p.PaymentID, &p.CorrelationRef, &p.GatewayStatus, &p.StatusDetail, &p.DerivedOrderStatus,
		&p.Amounts.Transaction, &p.Amounts.Paid, &p.Amounts.Net, &p.Amounts.Commission,
		&p.PaymentMethod, &p.PaymentType, &p.CardLastFour, &p.PayerEmail,
		&p.CreatedAt, &p.ApprovedAt, &p.ProcessedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get payment by payment_id: %w", err)
	}
	return p, nil
}

// Upsert inserts the payment or, when the payment id already exists, updates
// every gateway-derived field. Reports whether a new row was created.
func (r *PaymentRepo) Upsert(ctx context.Context, p *domain.Payment) (bool, error) {
	query := `INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (payment_id) DO UPDATE SET
			gateway_status = EXCLUDED.gateway_status,
			status_detail = EXCLUDED.status_detail,
			derived_order_status = EXCLUDED.derived_order_status,
			transaction_amount = EXCLUDED.transaction_amount,
			paid_amount = EXCLUDED.paid_amount,
			net_amount = EXCLUDED.net_amount,
			commission = EXCLUDED.commission,
			payment_method = EXCLUDED.payment_method,
			payment_type = EXCLUDED.payment_type,
			card_last_four = EXCLUDED.card_last_four,
			payer_email = EXCLUDED.payer_email,
			approved_at = EXCLUDED.approved_at,
			processed_at = EXCLUDED.processed_at,
			updated_at = EXCLUDED.updated_at
		RETURNING (xmax = 0)`

	var created bool
	err := r.pool.QueryRow(ctx, query,
		p.OrderID, p.PaymentID, p.CorrelationRef, p.GatewayStatus, p.StatusDetail, p.DerivedOrderStatus,
		p.Amounts.Transaction, p.Amounts.Paid, p.Amounts.Net, p.Amounts.Commission,
		p.PaymentMethod, p.PaymentType, p.CardLastFour, p.PayerEmail,
		p.CreatedAt, p.ApprovedAt, p.ProcessedAt, p.UpdatedAt,
	).Scan(&created)
	if err != nil {
		return false, fmt.Errorf("upsert payment: %w", err)
	}
	return created, nil
}

// Count returns the total number of payment records.
func (r *PaymentRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM payments`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count payments: %w", err)
	}
	return count, nil
}

// CountByGatewayStatus returns per-status payment counts.
func (r *PaymentRepo) CountByGatewayStatus(ctx context.Context) (map[domain.GatewayStatus]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT gateway_status, COUNT(*) FROM payments GROUP BY gateway_status`)
	if err != nil {
		return nil, fmt.Errorf("count payments by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.GatewayStatus]int64)
	for rows.Next() {
		var status domain.GatewayStatus
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan payment status count: %w", err)
		}
		counts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payment status counts: %w", err)
	}
	return counts, nil
}
