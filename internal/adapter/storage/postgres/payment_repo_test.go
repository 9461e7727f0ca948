package postgres

import (
	"context"
	"testing"
	"time"

	"payment-reconciler/internal/core/domain"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPayment() *domain.Payment {
	now := time.Now().UTC().Truncate(time.Microsecond)
	approved := now.Add(-time.Minute)
	return &domain.Payment{
		OrderID:            42,
		PaymentID:          "12345",
		CorrelationRef:     "ORDER-42",
		GatewayStatus:      domain.GatewayStatusApproved,
		StatusDetail:       "accredited",
		DerivedOrderStatus: domain.OrderStatusConfirmed,
		Amounts: domain.PaymentAmounts{
			Transaction: decimal.NewFromInt(1500),
			Paid:        decimal.NewFromInt(1500),
			Net:         decimal.NewFromFloat(1447.5),
			Commission:  decimal.NewFromFloat(52.5),
		},
		PaymentMethod: "visa",
		PaymentType:   "credit_card",
		CardLastFour:  strPtr("4242"),
		PayerEmail:    strPtr("buyer@example.com"),
		CreatedAt:     now.Add(-time.Hour),
		ApprovedAt:    &approved,
		ProcessedAt:   now,
		UpdatedAt:     now,
	}
}

func strPtr(s string) *string { return &s }

func paymentColumnNames() []string {
	return []string{
		"order_id", "payment_id", "correlation_ref", "gateway_status", "status_detail", "derived_order_status",
		"transaction_amount", "paid_amount", "net_amount", "commission",
		"payment_method", "payment_type", "card_last_four", "payer_email",
		"created_at", "approved_at", "processed_at", "updated_at",
	}
}

func paymentRow(p *domain.Payment) *pgxmock.Rows {
	return pgxmock.NewRows(paymentColumnNames()).AddRow(
		p.OrderID, p.PaymentID, p.CorrelationRef, p.GatewayStatus, p.StatusDetail, p.DerivedOrderStatus,
		p.Amounts.Transaction.String(), p.Amounts.Paid.String(), p.Amounts.Net.String(), p.Amounts.Commission.String(),
		p.PaymentMethod, p.PaymentType, p.CardLastFour, p.PayerEmail,
		p.CreatedAt, p.ApprovedAt, p.ProcessedAt, p.UpdatedAt,
	)
}

func TestPaymentRepo_GetByPaymentID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPaymentRepo(mock)
	p := newTestPayment()

	mock.ExpectQuery("SELECT .+ FROM payments WHERE payment_id").
		WithArgs(p.PaymentID).
		WillReturnRows(paymentRow(p))

	result, err := repo.GetByPaymentID(context.Background(), p.PaymentID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, p.PaymentID, result.PaymentID)
	assert.Equal(t, p.GatewayStatus, result.GatewayStatus)
	assert.True(t, result.Amounts.Transaction.Equal(p.Amounts.Transaction))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepo_GetByPaymentID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPaymentRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM payments WHERE payment_id").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows(paymentColumnNames()))

	result, err := repo.GetByPaymentID(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepo_Upsert_Insert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPaymentRepo(mock)
	p := newTestPayment()

	mock.ExpectQuery("INSERT INTO payments .+ ON CONFLICT").
		WithArgs(
			p.OrderID, p.PaymentID, p.CorrelationRef, p.GatewayStatus, p.StatusDetail, p.DerivedOrderStatus,
			p.Amounts.Transaction, p.Amounts.Paid, p.Amounts.Net, p.Amounts.Commission,
			p.PaymentMethod, p.PaymentType, p.CardLastFour, p.PayerEmail,
			p.CreatedAt, p.ApprovedAt, p.ProcessedAt, p.UpdatedAt,
		).
		WillReturnRows(pgxmock.NewRows([]string{"created"}).AddRow(true))

	created, err := repo.Upsert(context.Background(), p)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepo_Upsert_Update(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPaymentRepo(mock)
	p := newTestPayment()

	mock.ExpectQuery("INSERT INTO payments .+ ON CONFLICT").
		WithArgs(
			p.OrderID, p.PaymentID, p.CorrelationRef, p.GatewayStatus, p.StatusDetail, p.DerivedOrderStatus,
			p.Amounts.Transaction, p.Amounts.Paid, p.Amounts.Net, p.Amounts.Commission,
			p.PaymentMethod, p.PaymentType, p.CardLastFour, p.PayerEmail,
			p.CreatedAt, p.ApprovedAt, p.ProcessedAt, p.UpdatedAt,
		).
		WillReturnRows(pgxmock.NewRows([]string{"created"}).AddRow(false))

	created, err := repo.Upsert(context.Background(), p)
	require.NoError(t, err)
	assert.False(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepo_Count(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPaymentRepo(mock)

	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(7)))

	count, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), count)
}

func TestPaymentRepo_CountByGatewayStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPaymentRepo(mock)

	mock.ExpectQuery("SELECT gateway_status, COUNT").
		WillReturnRows(pgxmock.NewRows([]string{"gateway_status", "count"}).
			AddRow("approved", int64(10)).
			AddRow("rejected", int64(3)))

	counts, err := repo.CountByGatewayStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(10), counts[domain.GatewayStatusApproved])
	assert.Equal(t, int64(3), counts[domain.GatewayStatusRejected])
}
