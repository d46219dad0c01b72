package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	bookingapp "github.com/knjigovodja/backend/internal/application/booking"
	"github.com/knjigovodja/backend/internal/domain/booking"
	"github.com/knjigovodja/backend/internal/domain/shared"
	"github.com/knjigovodja/backend/internal/interfaces/http/dto"
	"github.com/knjigovodja/backend/internal/interfaces/http/middleware"
)

// BookingHandler exposes the review pipeline over HTTP
type BookingHandler struct {
	BaseHandler
	pipeline *bookingapp.BookingPipeline
}

// NewBookingHandler creates a new BookingHandler
func NewBookingHandler(pipeline *bookingapp.BookingPipeline) *BookingHandler {
	return &BookingHandler{pipeline: pipeline}
}

// RegisterRoutes registers booking routes
func (h *BookingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	bookings := rg.Group("/bookings")
	{
		bookings.POST("", h.Submit)
		bookings.GET("", h.List)
		bookings.GET("/pending", h.ListPending)
		bookings.GET("/approved", h.ListApproved)
		bookings.GET("/:id", h.Get)
		bookings.POST("/:id/approve", h.Approve)
		bookings.POST("/:id/reject", h.Reject)
		bookings.POST("/:id/corrections", h.Correct)
	}
	rg.GET("/corrections/export", h.ExportCorrections)
	rg.GET("/hints", h.GetHint)
}

// Submit accepts a machine-proposed booking and queues it for review
func (h *BookingHandler) Submit(c *gin.Context) {
	var req dto.SubmitBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	params, err := req.ToParams()
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.pipeline.Submit(c.Request.Context(), params)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// Get returns a single booking
func (h *BookingHandler) Get(c *gin.Context) {
	id, ok := h.bindID(c)
	if !ok {
		return
	}
	proposal, err := h.pipeline.GetBooking(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, proposal)
}

// Approve transitions a pending booking to APPROVED
func (h *BookingHandler) Approve(c *gin.Context) {
	id, ok := h.bindID(c)
	if !ok {
		return
	}
	approver := middleware.GetApproverID(c)
	if approver == "" {
		h.MissingApprover(c)
		return
	}

	proposal, err := h.pipeline.Approve(c.Request.Context(), id, approver)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, proposal)
}

// Reject transitions a pending booking to REJECTED with a reason
func (h *BookingHandler) Reject(c *gin.Context) {
	id, ok := h.bindID(c)
	if !ok {
		return
	}
	approver := middleware.GetApproverID(c)
	if approver == "" {
		h.MissingApprover(c)
		return
	}

	var req dto.RejectBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	proposal, err := h.pipeline.Reject(c.Request.Context(), id, approver, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, proposal)
}

// Correct records a konto override against a booking
func (h *BookingHandler) Correct(c *gin.Context) {
	id, ok := h.bindID(c)
	if !ok {
		return
	}
	approver := middleware.GetApproverID(c)
	if approver == "" {
		h.MissingApprover(c)
		return
	}

	var req dto.CorrectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	correction, err := h.pipeline.Correct(c.Request.Context(), id, approver, bookingapp.CorrectionInput{
		OriginalKonto:  req.OriginalKonto,
		CorrectedKonto: req.CorrectedKonto,
		Supplier:       req.Supplier,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, correction)
}

// List pages through bookings with optional client, status, and document
// type filters
func (h *BookingHandler) List(c *gin.Context) {
	var q dto.BrowseQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter := booking.BookingFilter{
		Filter: shared.Filter{Page: q.Page, PageSize: q.PageSize},
	}
	if q.ClientID != "" {
		filter.ClientID = &q.ClientID
	}
	if q.Status != "" {
		status := booking.BookingStatus(q.Status)
		filter.Status = &status
	}
	if q.DocumentType != "" {
		docType := booking.DocumentType(q.DocumentType)
		filter.DocumentType = &docType
	}

	proposals, total, err := h.pipeline.ListBookings(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, proposals, total, q.Page, q.PageSize)
}

// ListPending lists a client's bookings awaiting disposition
func (h *BookingHandler) ListPending(c *gin.Context) {
	var q dto.ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	proposals, err := h.pipeline.GetPending(c.Request.Context(), q.ClientID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, proposals)
}

// ListApproved lists a client's approved bookings, human and auto alike
func (h *BookingHandler) ListApproved(c *gin.Context) {
	var q dto.ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	proposals, err := h.pipeline.GetApproved(c.Request.Context(), q.ClientID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, proposals)
}

// ExportCorrections returns the correction log as training data, narrowed
// to one client when client_id is given
func (h *BookingHandler) ExportCorrections(c *gin.Context) {
	corrections, err := h.pipeline.GetCorrectionsForDPO(c.Request.Context(), c.Query("client_id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, corrections)
}

// GetHint returns the remembered konto for a client/supplier pair, if any
func (h *BookingHandler) GetHint(c *gin.Context) {
	var q dto.HintQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	hint := h.pipeline.GetHint(q.ClientID, q.Supplier)
	h.Success(c, gin.H{"hint": hint})
}

func (h *BookingHandler) bindID(c *gin.Context) (uuid.UUID, bool) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "Invalid booking id")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(req.ID)
	if err != nil {
		h.BadRequest(c, "Invalid booking id")
		return uuid.Nil, false
	}
	return id, true
}
