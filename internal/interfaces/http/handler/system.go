package handler

import (
	"github.com/gin-gonic/gin"
	bookingapp "github.com/knjigovodja/backend/internal/application/booking"
	"github.com/knjigovodja/backend/internal/infrastructure/persistence"
)

// SystemHandler serves health and pipeline statistics
type SystemHandler struct {
	BaseHandler
	pipeline *bookingapp.BookingPipeline
	db       *persistence.Database
	version  string
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(pipeline *bookingapp.BookingPipeline, db *persistence.Database, version string) *SystemHandler {
	return &SystemHandler{pipeline: pipeline, db: db, version: version}
}

// RegisterRoutes registers system routes
func (h *SystemHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/health", h.Health)
	rg.GET("/stats", h.Stats)
}

// Health reports liveness and database reachability
func (h *SystemHandler) Health(c *gin.Context) {
	dbStatus := "up"
	if err := h.db.Ping(); err != nil {
		dbStatus = "down"
	}
	h.Success(c, gin.H{
		"status":   "ok",
		"version":  h.version,
		"database": dbStatus,
		"driver":   h.db.Driver,
	})
}

// Stats returns pipeline counters merged with store-level statistics
func (h *SystemHandler) Stats(c *gin.Context) {
	stats, err := h.pipeline.GetStats(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stats)
}
