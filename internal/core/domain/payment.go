package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// GatewayStatus is the payment status as reported by the gateway's own record.
// The canonical payment always reflects the last value fetched from the
// gateway, never a webhook payload's self-reported status.
type GatewayStatus string

const (
	GatewayStatusPending     GatewayStatus = "pending"
	GatewayStatusApproved    GatewayStatus = "approved"
	GatewayStatusAuthorized  GatewayStatus = "authorized"
	GatewayStatusInProcess   GatewayStatus = "in_process"
	GatewayStatusInMediation GatewayStatus = "in_mediation"
	GatewayStatusRejected    GatewayStatus = "rejected"
	GatewayStatusCancelled   GatewayStatus = "cancelled"
	GatewayStatusRefunded    GatewayStatus = "refunded"
	GatewayStatusChargedBack GatewayStatus = "charged_back"
)

// IsTerminal reports whether the gateway itself will not further transition
// this status. Updates past a terminal status are still accepted defensively.
func (s GatewayStatus) IsTerminal() bool {
	switch s {
	case GatewayStatusApproved, GatewayStatusRejected, GatewayStatusCancelled:
		return true
	}
	return false
}

// OrderStatus is the order-side status derived from a gateway status.
type OrderStatus string

const (
	OrderStatusPending       OrderStatus = "pending"
	OrderStatusConfirmed     OrderStatus = "confirmed"
	OrderStatusPaymentFailed OrderStatus = "payment_failed"
	OrderStatusCancelled     OrderStatus = "cancelled"
	OrderStatusRefunded      OrderStatus = "refunded"
	OrderStatusDisputed      OrderStatus = "disputed"
)

// orderStatusByGateway is the fixed, total lookup table from gateway status
// to target order status. Unknown statuses fall back to pending so new
// gateway sub-statuses never break the pipeline.
var orderStatusByGateway = map[GatewayStatus]OrderStatus{
	GatewayStatusPending:     OrderStatusPending,
	GatewayStatusAuthorized:  OrderStatusPending,
	GatewayStatusInProcess:   OrderStatusPending,
	GatewayStatusApproved:    OrderStatusConfirmed,
	GatewayStatusRejected:    OrderStatusPaymentFailed,
	GatewayStatusCancelled:   OrderStatusCancelled,
	GatewayStatusRefunded:    OrderStatusRefunded,
	GatewayStatusInMediation: OrderStatusDisputed,
	GatewayStatusChargedBack: OrderStatusDisputed,
}

// OrderStatusFor maps a gateway status to the order status it should drive.
func OrderStatusFor(s GatewayStatus) OrderStatus {
	if target, ok := orderStatusByGateway[s]; ok {
		return target
	}
	return OrderStatusPending
}

// CorrelationRefPrefix is the prefix this system embeds in the gateway-side
// external reference when initiating a payment.
const CorrelationRefPrefix = "ORDER-"

// ParseCorrelationRef recovers the local order id from a correlation
// reference of the stable form "ORDER-<id>".
func ParseCorrelationRef(ref string) (int64, error) {
	if !strings.HasPrefix(ref, CorrelationRefPrefix) {
		return 0, fmt.Errorf("correlation reference %q missing %q prefix", ref, CorrelationRefPrefix)
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(ref, CorrelationRefPrefix), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("correlation reference %q: %w", ref, err)
	}
	if id <= 0 {
		return 0, fmt.Errorf("correlation reference %q: non-positive order id", ref)
	}
	return id, nil
}

// BuildCorrelationRef encodes an order id into a correlation reference.
func BuildCorrelationRef(orderID int64) string {
	return CorrelationRefPrefix + strconv.FormatInt(orderID, 10)
}

// PaymentAmounts holds the money fields reconciled from the gateway record.
type PaymentAmounts struct {
	Transaction decimal.Decimal `json:"transaction"`
	Paid        decimal.Decimal `json:"paid"`
	Net         decimal.Decimal `json:"net"`
	Commission  decimal.Decimal `json:"commission"`
}

// Payment is the canonical, gateway-reconciled record of a payment.
// One row per gateway payment id; created on first successful processing,
// updated (never deleted) on every subsequent status change.
type Payment struct {
	OrderID            int64          `json:"order_id"`
	PaymentID          string         `json:"payment_id"` // unique
	CorrelationRef     string         `json:"correlation_ref"`
	GatewayStatus      GatewayStatus  `json:"gateway_status"`
	StatusDetail       string         `json:"status_detail"`
	DerivedOrderStatus OrderStatus    `json:"derived_order_status"`
	Amounts            PaymentAmounts `json:"amounts"`
	PaymentMethod      string         `json:"payment_method"`
	PaymentType        string         `json:"payment_type"`
	CardLastFour       *string        `json:"card_last_four,omitempty"`
	PayerEmail         *string        `json:"payer_email,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	ApprovedAt         *time.Time     `json:"approved_at,omitempty"`
	ProcessedAt        time.Time      `json:"processed_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// GatewayPayment is the authoritative payment record as fetched from the
// gateway. It is the only trusted source of payment state; the inbound
// notification contributes nothing but the payment id.
type GatewayPayment struct {
	ID                string          `json:"id"`
	Status            GatewayStatus   `json:"status"`
	StatusDetail      string          `json:"status_detail"`
	ExternalReference string          `json:"external_reference"`
	TransactionAmount decimal.Decimal `json:"transaction_amount"`
	PaidAmount        decimal.Decimal `json:"paid_amount"`
	NetAmount         decimal.Decimal `json:"net_amount"`
	Commission        decimal.Decimal `json:"commission"`
	PaymentMethodID   string          `json:"payment_method_id"`
	PaymentTypeID     string          `json:"payment_type_id"`
	CardLastFour      *string         `json:"card_last_four,omitempty"`
	PayerEmail        *string         `json:"payer_email,omitempty"`
	DateCreated       time.Time       `json:"date_created"`
	DateApproved      *time.Time      `json:"date_approved,omitempty"`
}
