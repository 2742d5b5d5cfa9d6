package collector

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/aura-webinar/feedbackhub/internal/models"
	"github.com/aura-webinar/feedbackhub/pkg/response"
)

// Handler exposes the submission view.
type Handler struct {
	collector *Collector
}

// NewHandler creates a submission handler.
func NewHandler(c *Collector) *Handler {
	return &Handler{collector: c}
}

// Topics handles GET /api/topics.
func (h *Handler) Topics(c *gin.Context) {
	response.OK(c, gin.H{"topics": models.Topics, "other": models.TopicOther})
}

// SubmitSurvey handles POST /api/feedback.
func (h *Handler) SubmitSurvey(c *gin.Context) {
	var form SurveyForm
	if err := c.ShouldBindJSON(&form); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	review, err := h.collector.SubmitSurvey(c.Request.Context(), form)
	h.respond(c, review, err)
}

// SubmitMessage handles POST /api/messages.
func (h *Handler) SubmitMessage(c *gin.Context) {
	var form MessageForm
	if err := c.ShouldBindJSON(&form); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	review, err := h.collector.SubmitMessage(c.Request.Context(), form)
	h.respond(c, review, err)
}

func (h *Handler) respond(c *gin.Context, review models.Review, err error) {
	if err != nil {
		var v *ValidationError
		if errors.As(err, &v) {
			response.ValidationFailed(c, v.Field, v.Message)
			return
		}
		response.Internal(c, "failed to store feedback")
		return
	}
	response.Created(c, review)
}
