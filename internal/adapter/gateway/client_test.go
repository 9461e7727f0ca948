package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"payment-reconciler/internal/core/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const approvedPaymentJSON = `{
	"id": 12345,
	"status": "approved",
	"status_detail": "accredited",
	"external_reference": "ORDER-42",
	"transaction_amount": 1500.00,
	"date_created": "2026-08-01T10:00:00Z",
	"date_approved": "2026-08-01T10:00:05Z",
	"payment_method_id": "visa",
	"payment_type_id": "credit_card",
	"card": {"last_four_digits": "4242"},
	"payer": {"email": "buyer@example.com"},
	"transaction_details": {
		"total_paid_amount": 1500.00,
		"net_received_amount": 1447.50
	},
	"fee_details": [{"amount": 52.50}]
}`

func TestClient_GetPayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payments/12345", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(approvedPaymentJSON))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-token", 5*time.Second, zerolog.Nop())
	p, err := c.GetPayment(context.Background(), "12345")
	require.NoError(t, err)

	assert.Equal(t, "12345", p.ID)
	assert.Equal(t, domain.GatewayStatusApproved, p.Status)
	assert.Equal(t, "accredited", p.StatusDetail)
	assert.Equal(t, "ORDER-42", p.ExternalReference)
	assert.Equal(t, "1500", p.TransactionAmount.String())
	assert.Equal(t, "1447.5", p.NetAmount.String())
	assert.Equal(t, "52.5", p.Commission.String())
	require.NotNil(t, p.CardLastFour)
	assert.Equal(t, "4242", *p.CardLastFour)
	require.NotNil(t, p.PayerEmail)
	assert.Equal(t, "buyer@example.com", *p.PayerEmail)
	require.NotNil(t, p.DateApproved)
}

func TestClient_GetPayment_StringID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": "abc-123", "status": "pending", "external_reference": "ORDER-7"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "token", 5*time.Second, zerolog.Nop())
	p, err := c.GetPayment(context.Background(), "abc-123")
	require.NoError(t, err)
	assert.Equal(t, "abc-123", p.ID)
	assert.Equal(t, domain.GatewayStatusPending, p.Status)
	assert.True(t, p.TransactionAmount.IsZero())
	assert.Nil(t, p.CardLastFour)
}

func TestClient_GetPayment_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"payment not found"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "token", 5*time.Second, zerolog.Nop())
	_, err := c.GetPayment(context.Background(), "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestClient_GetPayment_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "token", 5*time.Second, zerolog.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.GetPayment(ctx, "12345")
	require.Error(t, err)
}

func TestClient_GetPayment_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "token", 5*time.Second, zerolog.Nop())
	_, err := c.GetPayment(context.Background(), "12345")
	require.Error(t, err)
}
