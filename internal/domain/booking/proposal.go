package booking

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/knjigovodja/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// BookingStatus represents the lifecycle status of a booking proposal
type BookingStatus string

const (
	StatusPending      BookingStatus = "PENDING"       // Awaiting human disposition
	StatusApproved     BookingStatus = "APPROVED"      // Approved by a human reviewer
	StatusRejected     BookingStatus = "REJECTED"      // Rejected by a human reviewer
	StatusAutoApproved BookingStatus = "AUTO_APPROVED" // Approved by the configured auto-approval path
)

// IsValid checks if the status is a valid BookingStatus
func (s BookingStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusAutoApproved:
		return true
	}
	return false
}

// String returns the string representation of BookingStatus
func (s BookingStatus) String() string {
	return string(s)
}

// IsTerminal returns true once the proposal has been decided.
// A terminal status never reverts; only correction records may still be
// appended afterwards.
func (s BookingStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusAutoApproved
}

// DocumentType classifies the source document behind a proposal
type DocumentType string

const (
	DocumentTypeUlazniRacun  DocumentType = "ulazni_racun"  // Incoming (purchase) invoice
	DocumentTypeIzlazniRacun DocumentType = "izlazni_racun" // Outgoing (sales) invoice
	DocumentTypeIzvod        DocumentType = "izvod"         // Bank statement
	DocumentTypeBlagajna     DocumentType = "blagajna"      // Cash report
	DocumentTypePutniNalog   DocumentType = "putni_nalog"   // Travel order
	DocumentTypeIOSObrazac   DocumentType = "ios_obrazac"   // Open-items reconciliation form
	DocumentTypePDVObrazac   DocumentType = "pdv_obrazac"   // VAT/tax form
)

// IsValid checks if the document type belongs to the fixed set
func (d DocumentType) IsValid() bool {
	switch d {
	case DocumentTypeUlazniRacun, DocumentTypeIzlazniRacun, DocumentTypeIzvod,
		DocumentTypeBlagajna, DocumentTypePutniNalog, DocumentTypeIOSObrazac,
		DocumentTypePDVObrazac:
		return true
	}
	return false
}

// String returns the string representation of DocumentType
func (d DocumentType) String() string {
	return string(d)
}

// EntrySide is the posting side of a booking line
type EntrySide string

const (
	SideDebit  EntrySide = "debit"
	SideCredit EntrySide = "credit"
)

// IsValid checks if the side is debit or credit
func (s EntrySide) IsValid() bool {
	return s == SideDebit || s == SideCredit
}

// BookingLine is one posting of an amount to a ledger account (konto)
type BookingLine struct {
	Konto string          `json:"konto"`
	Side  EntrySide       `json:"side"`
	Iznos decimal.Decimal `json:"iznos"`
}

// BookingLines is an ordered sequence of booking lines, stored as JSON
type BookingLines []BookingLine

// Value implements driver.Valuer for JSON column storage
func (l BookingLines) Value() (driver.Value, error) {
	if l == nil {
		l = BookingLines{}
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner for JSON column storage
func (l *BookingLines) Scan(value interface{}) error {
	if value == nil {
		*l = BookingLines{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("unsupported type for BookingLines")
	}
	return json.Unmarshal(data, l)
}

// DebitTotal sums the debit-side lines
func (l BookingLines) DebitTotal() decimal.Decimal {
	total := decimal.Zero
	for _, line := range l {
		if line.Side == SideDebit {
			total = total.Add(line.Iznos)
		}
	}
	return total
}

// CreditTotal sums the credit-side lines
func (l BookingLines) CreditTotal() decimal.Decimal {
	total := decimal.Zero
	for _, line := range l {
		if line.Side == SideCredit {
			total = total.Add(line.Iznos)
		}
	}
	return total
}

// BookingProposal is a machine-suggested accounting entry awaiting human
// disposition. It is the aggregate root of the review pipeline.
type BookingProposal struct {
	shared.BaseAggregateRoot
	DocumentType    DocumentType    `json:"document_type"`
	ClientID        string          `json:"client_id"`
	ERPTarget       string          `json:"erp_target"`
	Counterparty    string          `json:"counterparty"`
	DocumentDate    *time.Time      `json:"document_date"`
	Lines           BookingLines    `json:"lines"`
	UkupniIznos     decimal.Decimal `json:"ukupni_iznos"`
	Opis            string          `json:"opis"`
	Confidence      float64         `json:"confidence"`
	SourceModule    string          `json:"source_module"`
	Kilometri       decimal.Decimal `json:"kilometri"`  // Travel orders only
	KmNaknada       decimal.Decimal `json:"km_naknada"` // Per-kilometer reimbursement rate
	Status          BookingStatus   `json:"status"`
	ApprovedBy      string          `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time      `json:"approved_at,omitempty"`
	RejectedBy      string          `json:"rejected_by,omitempty"`
	RejectedAt      *time.Time      `json:"rejected_at,omitempty"`
	RejectionReason string          `json:"rejection_reason,omitempty"`
}

// NewBookingProposalParams carries the inputs for a new proposal
type NewBookingProposalParams struct {
	DocumentType DocumentType
	ClientID     string
	ERPTarget    string
	Counterparty string
	DocumentDate *time.Time
	Lines        BookingLines
	UkupniIznos  decimal.Decimal
	Opis         string
	Confidence   float64
	SourceModule string
	Kilometri    decimal.Decimal
	KmNaknada    decimal.Decimal
}

// NewBookingProposal creates a PENDING proposal after enforcing the
// aggregate's own invariants. Domain-limit checks (cash ceiling, km rate)
// belong to the safety overseer, not here.
func NewBookingProposal(p NewBookingProposalParams) (*BookingProposal, error) {
	if p.ClientID == "" {
		return nil, shared.NewDomainError("INVALID_CLIENT", "Client ID cannot be empty")
	}
	if !p.DocumentType.IsValid() {
		return nil, shared.NewDomainError("INVALID_DOCUMENT_TYPE", fmt.Sprintf("Unknown document type %q", p.DocumentType))
	}
	if p.Confidence < 0 || p.Confidence > 1 {
		return nil, shared.NewDomainError("INVALID_CONFIDENCE", "Confidence must be within [0,1]")
	}
	if p.UkupniIznos.IsNegative() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Total amount cannot be negative")
	}
	for i, line := range p.Lines {
		if line.Konto == "" {
			return nil, shared.NewDomainError("INVALID_LINE", fmt.Sprintf("Line %d has no konto", i))
		}
		if !line.Side.IsValid() {
			return nil, shared.NewDomainError("INVALID_LINE", fmt.Sprintf("Line %d has invalid side %q", i, line.Side))
		}
		if line.Iznos.IsNegative() {
			return nil, shared.NewDomainError("INVALID_LINE", fmt.Sprintf("Line %d has a negative amount", i))
		}
	}
	if err := checkLinesTotal(p.Lines, p.UkupniIznos); err != nil {
		return nil, err
	}

	bp := &BookingProposal{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		DocumentType:      p.DocumentType,
		ClientID:          p.ClientID,
		ERPTarget:         p.ERPTarget,
		Counterparty:      p.Counterparty,
		DocumentDate:      p.DocumentDate,
		Lines:             p.Lines,
		UkupniIznos:       p.UkupniIznos,
		Opis:              p.Opis,
		Confidence:        p.Confidence,
		SourceModule:      p.SourceModule,
		Kilometri:         p.Kilometri,
		KmNaknada:         p.KmNaknada,
		Status:            StatusPending,
	}

	bp.AddDomainEvent(NewBookingSubmittedEvent(bp))

	return bp, nil
}

// checkLinesTotal verifies ukupni_iznos against the lines when lines are
// present: a two-sided entry must balance and each side must equal the total;
// a one-sided entry's single side must equal the total.
func checkLinesTotal(lines BookingLines, total decimal.Decimal) error {
	if len(lines) == 0 {
		return nil
	}
	debit := lines.DebitTotal()
	credit := lines.CreditTotal()
	if !debit.IsZero() && !credit.IsZero() {
		if !debit.Equal(credit) {
			return shared.NewDomainError("UNBALANCED_LINES",
				fmt.Sprintf("Debit total %s does not equal credit total %s", debit, credit))
		}
		if !debit.Equal(total) {
			return shared.NewDomainError("TOTAL_MISMATCH",
				fmt.Sprintf("Total amount %s does not equal line total %s", total, debit))
		}
		return nil
	}
	side := debit
	if side.IsZero() {
		side = credit
	}
	if !side.Equal(total) {
		return shared.NewDomainError("TOTAL_MISMATCH",
			fmt.Sprintf("Total amount %s does not equal line total %s", total, side))
	}
	return nil
}

// TransitionTo moves the proposal from PENDING to a terminal status.
// A second decision on the same proposal fails with INVALID_TRANSITION;
// that failure is the correctness mechanism for racing reviewers.
func (bp *BookingProposal) TransitionTo(status BookingStatus, actor, reason string) error {
	if !status.IsValid() || status == StatusPending {
		return shared.NewDomainError("INVALID_STATUS", fmt.Sprintf("Cannot transition to %q", status))
	}
	if bp.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_TRANSITION",
			fmt.Sprintf("Booking is already %s and cannot change", bp.Status))
	}
	now := time.Now()
	switch status {
	case StatusApproved, StatusAutoApproved:
		bp.ApprovedBy = actor
		bp.ApprovedAt = &now
		bp.AddDomainEvent(NewBookingApprovedEvent(bp, status == StatusAutoApproved))
	case StatusRejected:
		if reason == "" {
			return shared.NewDomainError("MISSING_REASON", "Rejection requires a reason")
		}
		bp.RejectedBy = actor
		bp.RejectedAt = &now
		bp.RejectionReason = reason
		bp.AddDomainEvent(NewBookingRejectedEvent(bp))
	}
	bp.Status = status
	bp.UpdatedAt = now
	return nil
}

// Approve records a human approval
func (bp *BookingProposal) Approve(approver string) error {
	if approver == "" {
		return shared.NewDomainError("MISSING_APPROVER", "Approver identity is required")
	}
	return bp.TransitionTo(StatusApproved, approver, "")
}

// Reject records a human rejection with a reason
func (bp *BookingProposal) Reject(approver, reason string) error {
	if approver == "" {
		return shared.NewDomainError("MISSING_APPROVER", "Approver identity is required")
	}
	return bp.TransitionTo(StatusRejected, approver, reason)
}

// AutoApprove records an automatic approval. Callers must gate this behind
// explicit configuration; the aggregate only records the outcome.
func (bp *BookingProposal) AutoApprove(actor string) error {
	if actor == "" {
		actor = "system:auto"
	}
	return bp.TransitionTo(StatusAutoApproved, actor, "")
}
