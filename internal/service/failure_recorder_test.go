package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"payment-reconciler/internal/core/domain"
	"payment-reconciler/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestFailureRecorder_FirstFailureCreatesPendingRecord(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockFailedEventRepository(ctrl)
	rec := NewFailureRecorder(repo, 5, zerolog.Nop())

	n := paymentNotification("12345")
	before := time.Now().UTC()

	repo.EXPECT().GetActiveByPaymentID(gomock.Any(), "12345").Return(nil, nil)
	repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, e *domain.FailedEvent) error {
			assert.Equal(t, "12345", e.PaymentID)
			assert.Equal(t, domain.FailedEventStatusPending, e.Status)
			assert.Equal(t, 0, e.RetryCount)
			assert.Equal(t, 5, e.MaxRetries)
			assert.Equal(t, "gateway 500", e.ErrorMessage)
			require.NotNil(t, e.NextRetryAt)
			// First retry is scheduled one backoff-table entry out.
			assert.WithinDuration(t, before.Add(60*time.Second), *e.NextRetryAt, 2*time.Second)

			var stored domain.Notification
			require.NoError(t, json.Unmarshal(e.RawNotification, &stored))
			assert.Equal(t, "12345", stored.PaymentID)
			return nil
		})

	err := rec.RecordFailure(context.Background(), "12345", n, errors.New("gateway 500"))
	require.NoError(t, err)
}

func TestFailureRecorder_RepeatFailureReschedulesExistingRecord(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockFailedEventRepository(ctrl)
	rec := NewFailureRecorder(repo, 5, zerolog.Nop())

	existing := &domain.FailedEvent{
		ID:         uuid.New(),
		PaymentID:  "12345",
		RetryCount: 0,
		MaxRetries: 5,
		Status:     domain.FailedEventStatusProcessing,
	}
	before := time.Now().UTC()

	repo.EXPECT().GetActiveByPaymentID(gomock.Any(), "12345").Return(existing, nil)
	repo.EXPECT().Update(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, e *domain.FailedEvent) error {
			assert.Equal(t, 1, e.RetryCount)
			assert.Equal(t, domain.FailedEventStatusPending, e.Status)
			assert.Equal(t, "still down", e.ErrorMessage)
			require.NotNil(t, e.LastRetryAt)
			require.NotNil(t, e.NextRetryAt)
			// Second entry of the backoff table.
			assert.WithinDuration(t, before.Add(300*time.Second), *e.NextRetryAt, 2*time.Second)
			return nil
		})

	err := rec.RecordFailure(context.Background(), "12345", paymentNotification("12345"), errors.New("still down"))
	require.NoError(t, err)
}

func TestFailureRecorder_BudgetExhaustionGoesTerminal(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockFailedEventRepository(ctrl)
	rec := NewFailureRecorder(repo, 5, zerolog.Nop())

	next := time.Now().UTC()
	existing := &domain.FailedEvent{
		ID:          uuid.New(),
		PaymentID:   "12345",
		RetryCount:  4,
		MaxRetries:  5,
		NextRetryAt: &next,
		Status:      domain.FailedEventStatusProcessing,
	}

	repo.EXPECT().GetActiveByPaymentID(gomock.Any(), "12345").Return(existing, nil)
	repo.EXPECT().Update(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, e *domain.FailedEvent) error {
			assert.Equal(t, 5, e.RetryCount)
			assert.Equal(t, domain.FailedEventStatusFailed, e.Status)
			assert.Nil(t, e.NextRetryAt, "terminal records are never picked up again")
			return nil
		})

	err := rec.RecordFailure(context.Background(), "12345", paymentNotification("12345"), errors.New("permanent fault"))
	require.NoError(t, err)
}

func TestFailureRecorder_RepoErrorPropagates(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockFailedEventRepository(ctrl)
	rec := NewFailureRecorder(repo, 0, zerolog.Nop())

	repo.EXPECT().GetActiveByPaymentID(gomock.Any(), "12345").Return(nil, errors.New("db down"))

	err := rec.RecordFailure(context.Background(), "12345", paymentNotification("12345"), errors.New("cause"))
	require.Error(t, err)
}
