package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"payment-reconciler/internal/core/domain"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Client fetches authoritative payment records over the gateway's REST API.
// It implements ports.GatewayClient.
type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
	log         zerolog.Logger
}

// NewClient creates a gateway API client.
func NewClient(baseURL, accessToken string, timeout time.Duration, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:     baseURL,
		accessToken: accessToken,
		httpClient:  &http.Client{Timeout: timeout},
		log:         log,
	}
}

// flexID decodes the gateway payment id, which some endpoints serialize as a
// number and others as a string.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexID(n.String())
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("payment id is neither number nor string: %s", data)
	}
	*f = flexID(s)
	return nil
}

// paymentResponse is the gateway's wire representation of a payment.
type paymentResponse struct {
	ID                flexID      `json:"id"`
	Status            string      `json:"status"`
	StatusDetail      string      `json:"status_detail"`
	ExternalReference string      `json:"external_reference"`
	TransactionAmount json.Number `json:"transaction_amount"`
	DateCreated       time.Time   `json:"date_created"`
	DateApproved      *time.Time  `json:"date_approved"`
	PaymentMethodID   string      `json:"payment_method_id"`
	PaymentTypeID     string      `json:"payment_type_id"`
	Card              struct {
		LastFourDigits string `json:"last_four_digits"`
	} `json:"card"`
	Payer struct {
		Email string `json:"email"`
	} `json:"payer"`
	TransactionDetails struct {
		TotalPaidAmount   json.Number `json:"total_paid_amount"`
		NetReceivedAmount json.Number `json:"net_received_amount"`
	} `json:"transaction_details"`
	FeeDetails []struct {
		Amount json.Number `json:"amount"`
	} `json:"fee_details"`
}

// GetPayment fetches a payment by id from the gateway.
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*domain.GatewayPayment, error) {
	url := fmt.Sprintf("%s/v1/payments/%s", c.baseURL, paymentID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating gateway request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request for payment %s: %w", paymentID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading gateway response for payment %s: %w", paymentID, err)
	}

	if resp.StatusCode != http.StatusOK {
		c.log.Warn().
			Str("payment_id", paymentID).
			Int("status", resp.StatusCode).
			Msg("gateway returned non-200")
		return nil, fmt.Errorf("gateway returned %d for payment %s", resp.StatusCode, paymentID)
	}

	var wire paymentResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("decoding gateway response for payment %s: %w", paymentID, err)
	}

	return toDomain(&wire)
}

func toDomain(wire *paymentResponse) (*domain.GatewayPayment, error) {
	txAmount, err := decimalFrom(wire.TransactionAmount)
	if err != nil {
		return nil, fmt.Errorf("transaction_amount: %w", err)
	}
	paid, err := decimalFrom(wire.TransactionDetails.TotalPaidAmount)
	if err != nil {
		return nil, fmt.Errorf("total_paid_amount: %w", err)
	}
	net, err := decimalFrom(wire.TransactionDetails.NetReceivedAmount)
	if err != nil {
		return nil, fmt.Errorf("net_received_amount: %w", err)
	}

	commission := decimal.Zero
	for _, fee := range wire.FeeDetails {
		amount, err := decimalFrom(fee.Amount)
		if err != nil {
			return nil, fmt.Errorf("fee amount: %w", err)
		}
		commission = commission.Add(amount)
	}

	p := &domain.GatewayPayment{
		ID:                string(wire.ID),
		Status:            domain.GatewayStatus(wire.Status),
		StatusDetail:      wire.StatusDetail,
		ExternalReference: wire.ExternalReference,
		TransactionAmount: txAmount,
		PaidAmount:        paid,
		NetAmount:         net,
		Commission:        commission,
		PaymentMethodID:   wire.PaymentMethodID,
		PaymentTypeID:     wire.PaymentTypeID,
		DateCreated:       wire.DateCreated,
		DateApproved:      wire.DateApproved,
	}
	if wire.Card.LastFourDigits != "" {
		lastFour := wire.Card.LastFourDigits
		p.CardLastFour = &lastFour
	}
	if wire.Payer.Email != "" {
		email := wire.Payer.Email
		p.PayerEmail = &email
	}
	return p, nil
}

// decimalFrom parses a wire number; absent fields decode to zero.
func decimalFrom(n json.Number) (decimal.Decimal, error) {
	if n == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(n.String())
}
