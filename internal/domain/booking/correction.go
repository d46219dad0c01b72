package booking

import (
	"time"

	"github.com/google/uuid"
	"github.com/knjigovodja/backend/internal/domain/shared"
)

// Correction is an append-only record of a human override of a proposal's
// account coding. It references the booking but never mutates its stored
// lines: the audit trail and the current decision are kept apart.
type Correction struct {
	ID             uuid.UUID    `json:"id"`
	BookingID      uuid.UUID    `json:"booking_id"`
	ClientID       string       `json:"client_id"`
	Supplier       string       `json:"supplier"`
	OriginalKonto  string       `json:"original_konto"`
	CorrectedKonto string       `json:"corrected_konto"`
	DocumentType   DocumentType `json:"document_type"`
	Approver       string       `json:"approver"`
	CreatedAt      time.Time    `json:"created_at"`
}

// NewCorrection creates a correction record for an existing booking
func NewCorrection(bookingID uuid.UUID, clientID, supplier, originalKonto, correctedKonto string, documentType DocumentType, approver string) (*Correction, error) {
	if bookingID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_BOOKING_ID", "Booking ID cannot be empty")
	}
	if clientID == "" {
		return nil, shared.NewDomainError("INVALID_CLIENT", "Client ID cannot be empty")
	}
	if originalKonto == "" {
		return nil, shared.NewDomainError("INVALID_KONTO", "Original konto cannot be empty")
	}
	if correctedKonto == "" {
		return nil, shared.NewDomainError("INVALID_KONTO", "Corrected konto cannot be empty")
	}
	if approver == "" {
		return nil, shared.NewDomainError("MISSING_APPROVER", "Approver identity is required")
	}
	return &Correction{
		ID:             uuid.New(),
		BookingID:      bookingID,
		ClientID:       clientID,
		Supplier:       supplier,
		OriginalKonto:  originalKonto,
		CorrectedKonto: correctedKonto,
		DocumentType:   documentType,
		Approver:       approver,
		CreatedAt:      time.Now(),
	}, nil
}
