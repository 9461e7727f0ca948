package postgres

import (
	"context"
	"testing"
	"time"

	"payment-reconciler/internal/core/domain"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderRepo_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOrderRepo(mock)
	now := time.Now().UTC().Truncate(time.Microsecond)

	mock.ExpectQuery("SELECT id, status, created_at, updated_at FROM orders WHERE id").
		WithArgs(int64(42)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "status", "created_at", "updated_at"}).
			AddRow(int64(42), domain.OrderStatusPending, now, now))

	o, err := repo.GetByID(context.Background(), 42)
	require.NoError(t, err)
	require.NotNil(t, o)
	assert.Equal(t, int64(42), o.ID)
	assert.Equal(t, domain.OrderStatusPending, o.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepo_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOrderRepo(mock)

	mock.ExpectQuery("SELECT id, status, created_at, updated_at FROM orders WHERE id").
		WithArgs(int64(99)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "status", "created_at", "updated_at"}))

	o, err := repo.GetByID(context.Background(), 99)
	require.NoError(t, err)
	assert.Nil(t, o)
}

func TestOrderRepo_UpdateStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOrderRepo(mock)

	mock.ExpectExec("UPDATE orders SET status").
		WithArgs(domain.OrderStatusConfirmed, int64(42)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = repo.UpdateStatus(context.Background(), 42, domain.OrderStatusConfirmed)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepo_UpdateStatus_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOrderRepo(mock)

	mock.ExpectExec("UPDATE orders SET status").
		WithArgs(domain.OrderStatusConfirmed, int64(99)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = repo.UpdateStatus(context.Background(), 99, domain.OrderStatusConfirmed)
	assert.Error(t, err)
}
