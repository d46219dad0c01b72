package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/knjigovodja/backend/internal/domain/booking"
	"github.com/knjigovodja/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// BookingModel is the persistence model for the BookingProposal aggregate
// root
type BookingModel struct {
	ID              uuid.UUID            `gorm:"type:uuid;primary_key"`
	CreatedAt       time.Time            `gorm:"not null;index:idx_bookings_created"`
	UpdatedAt       time.Time            `gorm:"not null"`
	Version         int                  `gorm:"not null;default:1"`
	DocumentType    booking.DocumentType `gorm:"type:varchar(30);not null;index"`
	ClientID        string               `gorm:"type:varchar(100);not null;index"`
	ERPTarget       string               `gorm:"type:varchar(100)"`
	Counterparty    string               `gorm:"type:varchar(200)"`
	DocumentDate    *time.Time
	Lines           booking.BookingLines  `gorm:"type:json"`
	UkupniIznos     decimal.Decimal       `gorm:"type:decimal(18,2);not null"`
	Opis            string                `gorm:"type:text"`
	Confidence      float64               `gorm:"not null;default:0"`
	SourceModule    string                `gorm:"type:varchar(100)"`
	Kilometri       decimal.Decimal       `gorm:"type:decimal(10,2)"`
	KmNaknada       decimal.Decimal       `gorm:"type:decimal(8,3)"`
	Status          booking.BookingStatus `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	ApprovedBy      string                `gorm:"type:varchar(100)"`
	ApprovedAt      *time.Time
	RejectedBy      string `gorm:"type:varchar(100)"`
	RejectedAt      *time.Time
	RejectionReason string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (BookingModel) TableName() string {
	return "bookings"
}

// ToDomain converts the persistence model to a domain BookingProposal
func (m *BookingModel) ToDomain() *booking.BookingProposal {
	return &booking.BookingProposal{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{
				ID:        m.ID,
				CreatedAt: m.CreatedAt,
				UpdatedAt: m.UpdatedAt,
			},
			Version: m.Version,
		},
		DocumentType:    m.DocumentType,
		ClientID:        m.ClientID,
		ERPTarget:       m.ERPTarget,
		Counterparty:    m.Counterparty,
		DocumentDate:    m.DocumentDate,
		Lines:           m.Lines,
		UkupniIznos:     m.UkupniIznos,
		Opis:            m.Opis,
		Confidence:      m.Confidence,
		SourceModule:    m.SourceModule,
		Kilometri:       m.Kilometri,
		KmNaknada:       m.KmNaknada,
		Status:          m.Status,
		ApprovedBy:      m.ApprovedBy,
		ApprovedAt:      m.ApprovedAt,
		RejectedBy:      m.RejectedBy,
		RejectedAt:      m.RejectedAt,
		RejectionReason: m.RejectionReason,
	}
}

// FromDomain populates the persistence model from a domain BookingProposal
func (m *BookingModel) FromDomain(bp *booking.BookingProposal) {
	m.ID = bp.ID
	m.CreatedAt = bp.CreatedAt
	m.UpdatedAt = bp.UpdatedAt
	m.Version = bp.Version
	m.DocumentType = bp.DocumentType
	m.ClientID = bp.ClientID
	m.ERPTarget = bp.ERPTarget
	m.Counterparty = bp.Counterparty
	m.DocumentDate = bp.DocumentDate
	m.Lines = bp.Lines
	m.UkupniIznos = bp.UkupniIznos
	m.Opis = bp.Opis
	m.Confidence = bp.Confidence
	m.SourceModule = bp.SourceModule
	m.Kilometri = bp.Kilometri
	m.KmNaknada = bp.KmNaknada
	m.Status = bp.Status
	m.ApprovedBy = bp.ApprovedBy
	m.ApprovedAt = bp.ApprovedAt
	m.RejectedBy = bp.RejectedBy
	m.RejectedAt = bp.RejectedAt
	m.RejectionReason = bp.RejectionReason
}

// CorrectionModel is the persistence model for the append-only correction
// log. Seq gives the log a stable identity column independent of the
// correction's own UUID.
type CorrectionModel struct {
	Seq            int64                 `gorm:"primaryKey;autoIncrement"`
	ID             uuid.UUID             `gorm:"type:uuid;uniqueIndex;not null"`
	BookingID      uuid.UUID             `gorm:"type:uuid;not null;index"`
	ClientID       string                `gorm:"type:varchar(100);not null;index"`
	Supplier       string                `gorm:"type:varchar(200)"`
	OriginalKonto  string                `gorm:"type:varchar(20);not null"`
	CorrectedKonto string                `gorm:"type:varchar(20);not null"`
	DocumentType   booking.DocumentType  `gorm:"type:varchar(30);not null"`
	Approver       string                `gorm:"type:varchar(100);not null"`
	CreatedAt      time.Time             `gorm:"not null;index:idx_corrections_created"`
}

// TableName returns the table name for GORM
func (CorrectionModel) TableName() string {
	return "corrections"
}

// ToDomain converts the persistence model to a domain Correction
func (m *CorrectionModel) ToDomain() *booking.Correction {
	return &booking.Correction{
		ID:             m.ID,
		BookingID:      m.BookingID,
		ClientID:       m.ClientID,
		Supplier:       m.Supplier,
		OriginalKonto:  m.OriginalKonto,
		CorrectedKonto: m.CorrectedKonto,
		DocumentType:   m.DocumentType,
		Approver:       m.Approver,
		CreatedAt:      m.CreatedAt,
	}
}

// FromDomain populates the persistence model from a domain Correction
func (m *CorrectionModel) FromDomain(c *booking.Correction) {
	m.ID = c.ID
	m.BookingID = c.BookingID
	m.ClientID = c.ClientID
	m.Supplier = c.Supplier
	m.OriginalKonto = c.OriginalKonto
	m.CorrectedKonto = c.CorrectedKonto
	m.DocumentType = c.DocumentType
	m.Approver = c.Approver
	m.CreatedAt = c.CreatedAt
}
