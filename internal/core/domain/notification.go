package domain

// Event kinds the gateway delivers. Only payment events drive the pipeline;
// everything else is acknowledged and skipped.
const (
	EventKindPayment       = "payment"
	EventKindMerchantOrder = "merchant_order"
)

// Notification is the ephemeral inbound webhook message. It is never
// persisted as-is; only the payment id is trusted for lookups, and only the
// serialized form is stored when processing fails.
type Notification struct {
	EventKind    string            `json:"event_kind"`
	PaymentID    string            `json:"payment_id"`
	RawTimestamp string            `json:"raw_timestamp,omitempty"`
	RawMeta      map[string]string `json:"raw_meta,omitempty"`
}

// IsPaymentEvent reports whether this notification is a payment-kind event.
func (n Notification) IsPaymentEvent() bool {
	return n.EventKind == EventKindPayment
}
