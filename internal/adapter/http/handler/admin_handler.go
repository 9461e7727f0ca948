package handler

import (
	"payment-reconciler/internal/adapter/http/dto"
	"payment-reconciler/internal/core/domain"
	"payment-reconciler/internal/core/ports"
	"payment-reconciler/pkg/apperror"
	"payment-reconciler/pkg/response"

	"github.com/gin-gonic/gin"
)

// AdminHandler exposes pipeline observability and recovery operations.
type AdminHandler struct {
	processor ports.EventProcessor
	retrySvc  ports.RetryService
	reporting ports.ReportingService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(processor ports.EventProcessor, retrySvc ports.RetryService, reporting ports.ReportingService) *AdminHandler {
	return &AdminHandler{
		processor: processor,
		retrySvc:  retrySvc,
		reporting: reporting,
	}
}

// GetStats handles GET /api/v1/admin/stats.
func (h *AdminHandler) GetStats(c *gin.Context) {
	stats, err := h.reporting.GetPipelineStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, stats)
}

// ListFailedEvents handles GET /api/v1/admin/failed-events.
// An optional ?status= filter narrows the result to one record status.
func (h *AdminHandler) ListFailedEvents(c *gin.Context) {
	var filter *domain.FailedEventStatus
	if raw := c.Query("status"); raw != "" {
		status := domain.FailedEventStatus(raw)
		switch status {
		case domain.FailedEventStatusPending, domain.FailedEventStatusProcessing,
			domain.FailedEventStatusCompleted, domain.FailedEventStatusFailed:
			filter = &status
		default:
			response.Error(c, apperror.Validation("unknown status filter: "+raw))
			return
		}
	}

	events, err := h.reporting.ListFailedEvents(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]dto.FailedEventResponse, 0, len(events))
	for i := range events {
		out = append(out, dto.NewFailedEventResponse(&events[i]))
	}
	response.OK(c, out)
}

// ForceRetry handles POST /api/v1/admin/failed-events/:payment_id/retry.
// The retry runs synchronously and the processing result is returned.
func (h *AdminHandler) ForceRetry(c *gin.Context) {
	paymentID := c.Param("payment_id")

	result, err := h.retrySvc.ForceRetry(c.Request.Context(), paymentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewProcessResultResponse(paymentID, result))
}

// Reset handles POST /api/v1/admin/failed-events/:payment_id/reset.
func (h *AdminHandler) Reset(c *gin.Context) {
	paymentID := c.Param("payment_id")

	if err := h.retrySvc.Reset(c.Request.Context(), paymentID); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"payment_id": paymentID, "status": string(domain.FailedEventStatusPending)})
}

// ProcessPayment handles POST /api/v1/admin/payments/:payment_id/process.
// It re-drives a payment id through the pipeline regardless of failed-event
// bookkeeping, for recovery of notifications that were never received.
func (h *AdminHandler) ProcessPayment(c *gin.Context) {
	paymentID := c.Param("payment_id")

	result := h.processor.ProcessManual(c.Request.Context(), paymentID)
	response.OK(c, dto.NewProcessResultResponse(paymentID, result))
}

// GetWorkerHealth handles GET /api/v1/admin/worker.
func (h *AdminHandler) GetWorkerHealth(c *gin.Context) {
	response.OK(c, dto.NewWorkerHealthResponse(h.retrySvc.Health()))
}

// RunWorkerBatch handles POST /api/v1/admin/worker/run.
// Triggers one retry batch out of schedule; overlapping runs are skipped.
func (h *AdminHandler) RunWorkerBatch(c *gin.Context) {
	h.retrySvc.RunBatch(c.Request.Context())
	response.Accepted(c, dto.NewWorkerHealthResponse(h.retrySvc.Health()))
}
