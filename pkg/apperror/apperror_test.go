package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without wrapped error",
			appErr:   New("WH_002", "Payment 555 has no correlation reference", http.StatusUnprocessableEntity),
			expected: "[WH_002] Payment 555 has no correlation reference",
		},
		{
			name:     "with wrapped error",
			appErr:   Wrap("SYS_001", "DB error", http.StatusInternalServerError, fmt.Errorf("connection refused")),
			expected: "[SYS_001] DB error: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.appErr.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("inner error")
	appErr := Wrap("SYS_001", "wrapped", http.StatusInternalServerError, inner)

	assert.True(t, errors.Is(appErr, inner))
}

func TestAppError_IsNilUnwrap(t *testing.T) {
	appErr := New("WH_001", "test", http.StatusBadRequest)
	assert.Nil(t, appErr.Unwrap())
}

func TestWebhookErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"MalformedNotification", ErrMalformedNotification("missing payment id"), "WH_001", 400},
		{"MissingCorrelationReference", ErrMissingCorrelationReference("555"), "WH_002", 422},
		{"UnparseableCorrelationReference", ErrUnparseableCorrelationReference("garbage"), "WH_003", 422},
		{"GatewayFetch", ErrGatewayFetch(fmt.Errorf("timeout")), "WH_004", 502},
		{"InvalidSignature", ErrInvalidSignature(), "WH_005", 401},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestRetryErrors(t *testing.T) {
	notFound := ErrFailedEventNotFound("777")
	assert.Equal(t, "RETRY_001", notFound.Code)
	assert.Equal(t, 404, notFound.HTTPStatus)
	assert.Contains(t, notFound.Message, "777")

	exhausted := ErrRetryBudgetExhausted("777")
	assert.Equal(t, "RETRY_002", exhausted.Code)
	assert.Equal(t, 409, exhausted.HTTPStatus)
}

func TestAuthErrors(t *testing.T) {
	assert.Equal(t, "AUTH_001", ErrInvalidAPIKey().Code)
	assert.Equal(t, 401, ErrInvalidAPIKey().HTTPStatus)
	assert.Equal(t, "AUTH_002", ErrInvalidToken().Code)
	assert.Equal(t, 401, ErrInvalidToken().HTTPStatus)
}

func TestSystemErrors(t *testing.T) {
	inner := fmt.Errorf("pg: connection closed")
	dbErr := ErrDatabaseError(inner)
	assert.Equal(t, "SYS_001", dbErr.Code)
	assert.Equal(t, 500, dbErr.HTTPStatus)
	assert.True(t, errors.Is(dbErr, inner))
}

func TestOrderNotFound(t *testing.T) {
	err := ErrOrderNotFound(42)
	assert.Equal(t, "ORD_001", err.Code)
	assert.Contains(t, err.Message, "42")
}

func TestRateLimitError(t *testing.T) {
	err := ErrRateLimitExceeded()
	assert.Equal(t, "RATE_001", err.Code)
	assert.Equal(t, 429, err.HTTPStatus)
}
