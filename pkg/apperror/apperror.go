package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Webhook Processing (WH) ----

func ErrMalformedNotification(detail string) *AppError {
	return New("WH_001", fmt.Sprintf("Malformed notification: %s", detail), http.StatusBadRequest)
}

func ErrMissingCorrelationReference(paymentID string) *AppError {
	return New("WH_002", fmt.Sprintf("Payment %s has no correlation reference", paymentID), http.StatusUnprocessableEntity)
}

func ErrUnparseableCorrelationReference(ref string) *AppError {
	return New("WH_003", fmt.Sprintf("Cannot parse order id from correlation reference %q", ref), http.StatusUnprocessableEntity)
}

func ErrGatewayFetch(err error) *AppError {
	return Wrap("WH_004", "Gateway payment fetch failed", http.StatusBadGateway, err)
}

func ErrInvalidSignature() *AppError {
	return New("WH_005", "Invalid webhook signature", http.StatusUnauthorized)
}

// ---- Retry / Failed Events (RETRY) ----

func ErrFailedEventNotFound(paymentID string) *AppError {
	return New("RETRY_001", fmt.Sprintf("No failed event record for payment %s", paymentID), http.StatusNotFound)
}

func ErrRetryBudgetExhausted(paymentID string) *AppError {
	return New("RETRY_002", fmt.Sprintf("Retry budget exhausted for payment %s", paymentID), http.StatusConflict)
}

// ---- Orders (ORD) ----

func ErrOrderNotFound(orderID int64) *AppError {
	return New("ORD_001", fmt.Sprintf("Order %d not found", orderID), http.StatusNotFound)
}

// ---- Authentication (AUTH) ----

func ErrInvalidAPIKey() *AppError {
	return New("AUTH_001", "Invalid API key", http.StatusUnauthorized)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_002", "Invalid or expired token", http.StatusUnauthorized)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a WH_001-style validation error.
func Validation(message string) *AppError {
	return New("WH_001", message, http.StatusBadRequest)
}
