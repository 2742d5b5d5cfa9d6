package dashboard

import (
	"context"
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/aura-webinar/feedbackhub/internal/middleware"
	"github.com/aura-webinar/feedbackhub/internal/models"
	"github.com/aura-webinar/feedbackhub/pkg/response"
)

// FilterRequest is the body for PUT /api/dashboard/filter.
type FilterRequest struct {
	Mode models.FilterMode `json:"mode" binding:"required"`
}

// ExportRequest is the body for POST /api/dashboard/export.
type ExportRequest struct {
	Filter models.FilterMode `json:"filter"`
}

// Exporter hands an export of the store to the background worker.
type Exporter interface {
	EnqueueExport(ctx context.Context, filter models.FilterMode, requestedBy string) (jobID string, err error)
}

// Handler exposes the dashboard view.
type Handler struct {
	registry *Registry
	exporter Exporter
}

// NewHandler creates a dashboard handler. exporter may be nil when no worker queue is configured.
func NewHandler(registry *Registry, exporter Exporter) *Handler {
	return &Handler{registry: registry, exporter: exporter}
}

func (h *Handler) board(c *gin.Context) *Dashboard {
	return h.registry.Get(c.Request.Context(), c.GetString(middleware.ContextOwner))
}

// Get handles GET /api/dashboard.
func (h *Handler) Get(c *gin.Context) {
	response.OK(c, h.board(c).View())
}

// SetFilter handles PUT /api/dashboard/filter.
func (h *Handler) SetFilter(c *gin.Context) {
	var req FilterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	d := h.board(c)
	if err := d.SetFilter(req.Mode); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.OK(c, d.View())
}

// EnterPresentation handles POST /api/dashboard/presentation.
func (h *Handler) EnterPresentation(c *gin.Context) {
	response.OK(c, h.board(c).EnterPresentation())
}

// Current handles GET /api/dashboard/presentation.
func (h *Handler) Current(c *gin.Context) {
	slide, err := h.board(c).Current()
	h.slide(c, slide, err)
}

// Next handles POST /api/dashboard/presentation/next.
func (h *Handler) Next(c *gin.Context) {
	slide, err := h.board(c).Next()
	h.slide(c, slide, err)
}

// Previous handles POST /api/dashboard/presentation/previous.
func (h *Handler) Previous(c *gin.Context) {
	slide, err := h.board(c).Previous()
	h.slide(c, slide, err)
}

// ExitPresentation handles DELETE /api/dashboard/presentation.
func (h *Handler) ExitPresentation(c *gin.Context) {
	h.board(c).ExitPresentation()
	response.NoContent(c)
}

// Export handles POST /api/dashboard/export.
func (h *Handler) Export(c *gin.Context) {
	if h.exporter == nil {
		response.ServiceUnavailable(c, "export is not configured")
		return
	}
	var req ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.Filter == "" {
		req.Filter = models.FilterAll
	}
	if !req.Filter.Valid() {
		response.BadRequest(c, ErrInvalidFilter.Error())
		return
	}
	jobID, err := h.exporter.EnqueueExport(c.Request.Context(), req.Filter, c.GetString(middleware.ContextOwner))
	if err != nil {
		response.Internal(c, "failed to enqueue export")
		return
	}
	response.Accepted(c, gin.H{"job_id": jobID, "filter": req.Filter})
}

func (h *Handler) slide(c *gin.Context, slide Slide, err error) {
	if errors.Is(err, ErrNotPresenting) {
		response.Conflict(c, err.Error())
		return
	}
	response.OK(c, slide)
}
