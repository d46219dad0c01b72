package booking

import (
	"time"

	"github.com/google/uuid"
	"github.com/knjigovodja/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

const aggregateTypeBooking = "BookingProposal"

// BookingSubmittedEvent is raised when a proposal passes the overseer gate
// and enters the pending queue
type BookingSubmittedEvent struct {
	shared.BaseDomainEvent
	BookingID    uuid.UUID       `json:"booking_id"`
	ClientID     string          `json:"client_id"`
	DocumentType DocumentType    `json:"document_type"`
	UkupniIznos  decimal.Decimal `json:"ukupni_iznos"`
	Confidence   float64         `json:"confidence"`
	SourceModule string          `json:"source_module"`
}

// EventType returns the event type name
func (e *BookingSubmittedEvent) EventType() string {
	return "BookingSubmitted"
}

// NewBookingSubmittedEvent creates a new BookingSubmittedEvent
func NewBookingSubmittedEvent(bp *BookingProposal) *BookingSubmittedEvent {
	return &BookingSubmittedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("BookingSubmitted", bp.ID, aggregateTypeBooking),
		BookingID:       bp.ID,
		ClientID:        bp.ClientID,
		DocumentType:    bp.DocumentType,
		UkupniIznos:     bp.UkupniIznos,
		Confidence:      bp.Confidence,
		SourceModule:    bp.SourceModule,
	}
}

// BookingApprovedEvent is raised when a proposal is approved
type BookingApprovedEvent struct {
	shared.BaseDomainEvent
	BookingID   uuid.UUID       `json:"booking_id"`
	ClientID    string          `json:"client_id"`
	ApprovedBy  string          `json:"approved_by"`
	Auto        bool            `json:"auto"`
	UkupniIznos decimal.Decimal `json:"ukupni_iznos"`
}

// EventType returns the event type name
func (e *BookingApprovedEvent) EventType() string {
	return "BookingApproved"
}

// NewBookingApprovedEvent creates a new BookingApprovedEvent
func NewBookingApprovedEvent(bp *BookingProposal, auto bool) *BookingApprovedEvent {
	return &BookingApprovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("BookingApproved", bp.ID, aggregateTypeBooking),
		BookingID:       bp.ID,
		ClientID:        bp.ClientID,
		ApprovedBy:      bp.ApprovedBy,
		Auto:            auto,
		UkupniIznos:     bp.UkupniIznos,
	}
}

// BookingRejectedEvent is raised when a proposal is rejected
type BookingRejectedEvent struct {
	shared.BaseDomainEvent
	BookingID  uuid.UUID `json:"booking_id"`
	ClientID   string    `json:"client_id"`
	RejectedBy string    `json:"rejected_by"`
	Reason     string    `json:"reason"`
}

// EventType returns the event type name
func (e *BookingRejectedEvent) EventType() string {
	return "BookingRejected"
}

// NewBookingRejectedEvent creates a new BookingRejectedEvent
func NewBookingRejectedEvent(bp *BookingProposal) *BookingRejectedEvent {
	return &BookingRejectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("BookingRejected", bp.ID, aggregateTypeBooking),
		BookingID:       bp.ID,
		ClientID:        bp.ClientID,
		RejectedBy:      bp.RejectedBy,
		Reason:          bp.RejectionReason,
	}
}

// BookingCorrectedEvent is raised when a human override of the account
// coding is recorded against a booking
type BookingCorrectedEvent struct {
	shared.BaseDomainEvent
	BookingID      uuid.UUID    `json:"booking_id"`
	ClientID       string       `json:"client_id"`
	Supplier       string       `json:"supplier"`
	OriginalKonto  string       `json:"original_konto"`
	CorrectedKonto string       `json:"corrected_konto"`
	DocumentType   DocumentType `json:"document_type"`
	Approver       string       `json:"approver"`
	CorrectedAt    time.Time    `json:"corrected_at"`
}

// EventType returns the event type name
func (e *BookingCorrectedEvent) EventType() string {
	return "BookingCorrected"
}

// NewBookingCorrectedEvent creates a new BookingCorrectedEvent
func NewBookingCorrectedEvent(c *Correction) *BookingCorrectedEvent {
	return &BookingCorrectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("BookingCorrected", c.BookingID, aggregateTypeBooking),
		BookingID:       c.BookingID,
		ClientID:        c.ClientID,
		Supplier:        c.Supplier,
		OriginalKonto:   c.OriginalKonto,
		CorrectedKonto:  c.CorrectedKonto,
		DocumentType:    c.DocumentType,
		Approver:        c.Approver,
		CorrectedAt:     c.CreatedAt,
	}
}
