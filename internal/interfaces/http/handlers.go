package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/lottery-onboarding/internal/application/executor"
	"github.com/garyjia/lottery-onboarding/internal/application/flow"
	"github.com/garyjia/lottery-onboarding/internal/application/service"
	"github.com/garyjia/lottery-onboarding/internal/domain/entity"
	"github.com/garyjia/lottery-onboarding/internal/domain/step"
	"github.com/garyjia/lottery-onboarding/internal/domain/workflow"
)

// FlowService is the part of flow.Service the handlers use
type FlowService interface {
	View() flow.View
	Refresh(ctx context.Context) (flow.View, error)
	InvokeAsync(ctx context.Context, id step.ID) error
}

// HistoryReader lists audit records
type HistoryReader interface {
	Recent(ctx context.Context, stepID string, limit int) ([]*entity.ExecutionRecord, error)
}

// Handlers contains all HTTP request handlers
type Handlers struct {
	flow    FlowService
	history HistoryReader
	logger  Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(flowSvc FlowService, history HistoryReader, logger Logger) *Handlers {
	return &Handlers{
		flow:    flowSvc,
		history: history,
		logger:  logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// InvokeResponse acknowledges a started step
type InvokeResponse struct {
	StepID step.ID `json:"step_id"`
	Status string  `json:"status"`
}

// ListHistoryRequest represents query parameters for listing history
type ListHistoryRequest struct {
	Step  string `form:"step"`
	Limit int    `form:"limit"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "1.0.0",
		},
	})
}

// GetFlow handles GET /api/flow
func (h *Handlers) GetFlow(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    h.flow.View(),
	})
}

// RefreshFlow handles POST /api/flow/refresh. A partial read still returns
// the view, with the read failure in the error field.
func (h *Handlers) RefreshFlow(c *gin.Context) {
	view, err := h.flow.Refresh(c.Request.Context())
	if err != nil {
		h.logger.Error("Refresh incomplete", "error", err)
		c.JSON(http.StatusOK, Response{
			Success: false,
			Data:    view,
			Error:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    view,
	})
}

// InvokeNext handles POST /api/flow/next
func (h *Handlers) InvokeNext(c *gin.Context) {
	view := h.flow.View()
	if view.Status != workflow.StatusActive || view.Active == nil {
		c.JSON(http.StatusConflict, Response{
			Success: false,
			Error:   flow.ErrNoActiveStep.Error() + ": workflow is " + view.Status.String(),
		})
		return
	}
	h.invoke(c, view.Active.ID)
}

// InvokeStep handles POST /api/flow/steps/:id/invoke
func (h *Handlers) InvokeStep(c *gin.Context) {
	h.invoke(c, step.ID(c.Param("id")))
}

func (h *Handlers) invoke(c *gin.Context, id step.ID) {
	err := h.flow.InvokeAsync(c.Request.Context(), id)
	if err != nil {
		status := invokeStatus(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("Failed to start step", "step_id", id, "error", err)
		}
		c.JSON(status, Response{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	h.logger.Info("Step started", "step_id", id)
	c.JSON(http.StatusAccepted, Response{
		Success: true,
		Data:    InvokeResponse{StepID: id, Status: "submitting"},
	})
}

func invokeStatus(err error) int {
	switch {
	case errors.Is(err, step.ErrStepNotFound):
		return http.StatusNotFound
	case errors.Is(err, executor.ErrBusy), errors.Is(err, workflow.ErrNotEligible):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// ListHistory handles GET /api/history
func (h *Handlers) ListHistory(c *gin.Context) {
	var req ListHistoryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid query parameters",
		})
		return
	}

	if req.Limit <= 0 || req.Limit > service.DefaultHistoryLimit*4 {
		req.Limit = service.DefaultHistoryLimit
	}

	records, err := h.history.Recent(c.Request.Context(), req.Step, req.Limit)
	if err != nil {
		h.logger.Error("Failed to list history", "error", err)
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "failed to retrieve history",
		})
		return
	}

	if records == nil {
		records = []*entity.ExecutionRecord{}
	}
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    records,
	})
}
