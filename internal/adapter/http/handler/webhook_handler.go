package handler

import (
	"context"
	"encoding/json"
	"io"

	"payment-reconciler/internal/adapter/http/dto"
	"payment-reconciler/internal/core/ports"
	"payment-reconciler/pkg/apperror"
	"payment-reconciler/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// WebhookHandler receives gateway payment notifications.
type WebhookHandler struct {
	processor     ports.EventProcessor
	sigSvc        ports.SignatureService
	webhookSecret string // empty disables signature verification
	log           zerolog.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(processor ports.EventProcessor, sigSvc ports.SignatureService, webhookSecret string, log zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		processor:     processor,
		sigSvc:        sigSvc,
		webhookSecret: webhookSecret,
		log:           log,
	}
}

// Receive handles POST /webhooks/payments.
//
// The notification is acknowledged before processing: the gateway redelivers
// aggressively on slow or non-2xx responses, and every failure past this
// point is owned by the failed-event store, not by gateway redelivery.
func (h *WebhookHandler) Receive(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.Error(c, apperror.Validation("cannot read request body"))
		return
	}

	if h.webhookSecret != "" {
		signature := c.GetHeader("X-Signature")
		if signature == "" || !h.sigSvc.Verify(h.webhookSecret, string(body), signature) {
			h.log.Warn().Str("client_ip", c.ClientIP()).Msg("webhook signature verification failed")
			response.Error(c, apperror.ErrInvalidSignature())
			return
		}
	}

	var wire dto.WebhookNotification
	if len(body) > 0 {
		if err := json.Unmarshal(body, &wire); err != nil {
			h.log.Warn().Err(err).Msg("unparseable webhook body, falling back to query parameters")
		}
	}
	n := wire.ToDomain(c.Query("topic"), c.Query("id"))

	h.log.Info().
		Str("event_kind", n.EventKind).
		Str("payment_id", n.PaymentID).
		Msg("webhook notification received")

	// Ack first, process in the background. The processor resolves every
	// path internally (skip, persist-for-retry), so nothing is lost by
	// answering before the outcome is known.
	go h.processor.ProcessEvent(context.WithoutCancel(c.Request.Context()), n)

	response.OK(c, dto.WebhookAck{Received: true, PaymentID: n.PaymentID})
}
