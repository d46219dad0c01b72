package handler

import (
	"github.com/gin-gonic/gin"
	bookingapp "github.com/knjigovodja/backend/internal/application/booking"
	"github.com/knjigovodja/backend/internal/interfaces/http/dto"
)

// OverseerHandler exposes the safety overseer's free-text gate. Clients call
// it before acting on a request whose intent is unclear.
type OverseerHandler struct {
	BaseHandler
	pipeline *bookingapp.BookingPipeline
}

// NewOverseerHandler creates a new OverseerHandler
func NewOverseerHandler(pipeline *bookingapp.BookingPipeline) *OverseerHandler {
	return &OverseerHandler{pipeline: pipeline}
}

// RegisterRoutes registers overseer routes
func (h *OverseerHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/overseer/evaluate", h.Evaluate)
}

// Evaluate runs the free-text request through the boundary patterns and
// returns the verdict. A hard-boundary match is a refusal, not an error:
// the endpoint still answers 200 with the verdict payload.
func (h *OverseerHandler) Evaluate(c *gin.Context) {
	var req dto.EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	verdict := h.pipeline.EvaluateRequest(req.Text)
	h.Success(c, verdict)
}
