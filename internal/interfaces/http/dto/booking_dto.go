package dto

import (
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/knjigovodja/backend/internal/domain/booking"
	"github.com/shopspring/decimal"
)

// RegisterValidators installs the custom binding validators on gin's
// validator engine. Call once at startup.
func RegisterValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("documenttype", validateDocumentType)
		_ = v.RegisterValidation("decimalstr", validateDecimalString)
	}
}

func validateDocumentType(fl validator.FieldLevel) bool {
	return booking.DocumentType(fl.Field().String()).IsValid()
}

func validateDecimalString(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}
	_, err := decimal.NewFromString(s)
	return err == nil
}

// BookingLineRequest is one debit or credit line of a proposed entry.
// Amounts travel as strings so no precision is lost in JSON float parsing.
type BookingLineRequest struct {
	Konto string `json:"konto" binding:"required"`
	Side  string `json:"side" binding:"required,oneof=debit credit"`
	Iznos string `json:"iznos" binding:"required,decimalstr"`
}

// SubmitBookingRequest is the payload for submitting a proposal
type SubmitBookingRequest struct {
	DocumentType string               `json:"document_type" binding:"required,documenttype"`
	ClientID     string               `json:"client_id" binding:"required"`
	ERPTarget    string               `json:"erp_target"`
	Counterparty string               `json:"counterparty"`
	DocumentDate *time.Time           `json:"document_date"`
	Lines        []BookingLineRequest `json:"lines" binding:"omitempty,dive"`
	UkupniIznos  string               `json:"ukupni_iznos" binding:"required,decimalstr"`
	Opis         string               `json:"opis"`
	Confidence   float64              `json:"confidence" binding:"min=0,max=1"`
	SourceModule string               `json:"source_module"`
	Kilometri    string               `json:"kilometri" binding:"omitempty,decimalstr"`
	KmNaknada    string               `json:"km_naknada" binding:"omitempty,decimalstr"`
}

// ToParams converts the request into domain constructor params. Binding has
// already validated the decimal strings.
func (r *SubmitBookingRequest) ToParams() (booking.NewBookingProposalParams, error) {
	total, err := decimal.NewFromString(r.UkupniIznos)
	if err != nil {
		return booking.NewBookingProposalParams{}, err
	}

	lines := make(booking.BookingLines, len(r.Lines))
	for i, l := range r.Lines {
		iznos, err := decimal.NewFromString(l.Iznos)
		if err != nil {
			return booking.NewBookingProposalParams{}, err
		}
		lines[i] = booking.BookingLine{
			Konto: l.Konto,
			Side:  booking.EntrySide(l.Side),
			Iznos: iznos,
		}
	}

	params := booking.NewBookingProposalParams{
		DocumentType: booking.DocumentType(r.DocumentType),
		ClientID:     r.ClientID,
		ERPTarget:    r.ERPTarget,
		Counterparty: r.Counterparty,
		DocumentDate: r.DocumentDate,
		Lines:        lines,
		UkupniIznos:  total,
		Opis:         r.Opis,
		Confidence:   r.Confidence,
		SourceModule: r.SourceModule,
	}

	if r.Kilometri != "" {
		if params.Kilometri, err = decimal.NewFromString(r.Kilometri); err != nil {
			return booking.NewBookingProposalParams{}, err
		}
	}
	if r.KmNaknada != "" {
		if params.KmNaknada, err = decimal.NewFromString(r.KmNaknada); err != nil {
			return booking.NewBookingProposalParams{}, err
		}
	}

	return params, nil
}

// RejectBookingRequest is the payload for rejecting a proposal
type RejectBookingRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// CorrectionRequest is the payload for recording a konto override
type CorrectionRequest struct {
	OriginalKonto  string `json:"original_konto" binding:"required"`
	CorrectedKonto string `json:"corrected_konto" binding:"required"`
	Supplier       string `json:"supplier"`
}

// EvaluateRequest is the payload for the overseer's free-text gate
type EvaluateRequest struct {
	Text string `json:"text" binding:"required"`
}

// HintQuery carries the correction-memory lookup key
type HintQuery struct {
	ClientID string `form:"client_id" binding:"required"`
	Supplier string `form:"supplier" binding:"required"`
}

// BrowseQuery carries the optional filters and pagination for the booking
// index endpoint
type BrowseQuery struct {
	ClientID     string `form:"client_id"`
	Status       string `form:"status" binding:"omitempty,oneof=PENDING APPROVED AUTO_APPROVED REJECTED"`
	DocumentType string `form:"document_type" binding:"omitempty,documenttype"`
	Page         int    `form:"page,default=1" binding:"min=1"`
	PageSize     int    `form:"page_size,default=20" binding:"min=1,max=100"`
}

// ListQuery carries the client filter for booking list endpoints
type ListQuery struct {
	ClientID string `form:"client_id" binding:"required"`
}
