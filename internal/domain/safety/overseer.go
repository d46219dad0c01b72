package safety

import (
	"fmt"
	"strings"

	"github.com/knjigovodja/backend/internal/domain/booking"
	"github.com/shopspring/decimal"
)

// Boundary categories a free-text request can match
const (
	CategoryLegalAdvice        = "legal_advice"
	CategoryAutonomousPosting  = "autonomous_posting"
	CategoryExternalDataExport = "external_data_export"
	CategoryNeedsContext       = "needs_context"
)

// Verdict is the outcome of evaluating a free-text request
type Verdict struct {
	Approved     bool   `json:"approved"`
	HardBoundary bool   `json:"hard_boundary"`
	Category     string `json:"category,omitempty"`
	Matched      string `json:"matched,omitempty"`
}

// CheckResult is the outcome of validating a booking proposal
type CheckResult struct {
	Valid    bool     `json:"valid"`
	Warnings []string `json:"warnings"`
}

// ValidatorResult is the structured result of a pluggable per-document
// validator consumed from a collaborator
type ValidatorResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// DocumentValidator is the plug-in point for external document-specific
// checkers (e.g., a travel-order validator computing tax-recognized amounts)
type DocumentValidator interface {
	Validate(proposal *booking.BookingProposal) ValidatorResult
}

// Limits holds the configured numeric domain limits
type Limits struct {
	CashCeiling decimal.Decimal // Single cash transaction ceiling (blagajna)
	MaxKmRate   decimal.Decimal // Maximum tax-recognized per-kilometer rate
}

// DefaultLimits returns the standard limits
func DefaultLimits() Limits {
	return Limits{
		CashCeiling: decimal.NewFromInt(10000),
		MaxKmRate:   decimal.NewFromFloat(0.30),
	}
}

// hardBoundaryPatterns maps refuse-outright categories to lowercase
// substrings. Matching is deterministic and reproducible offline; no
// probabilistic judgment is involved.
var hardBoundaryPatterns = map[string][]string{
	CategoryLegalAdvice: {
		"tužb", "tuzb", "sudski spor", "parnic", "odvjetni",
		"ugovor o radu", "radni spor", "otkaz ugovora",
		"lawsuit", "litigation", "legal action",
	},
	CategoryAutonomousPosting: {
		"bez odobrenja", "bez provjere", "bez covjeka", "bez čovjeka",
		"automatski proknjiži", "automatski proknjizi", "sam proknjiži", "sam proknjizi",
		"without approval", "without review", "auto-post",
	},
	CategoryExternalDataExport: {
		"pošalji podatke", "posalji podatke", "vanjski server", "vanjski servis",
		"u oblak", "chatgpt", "openai", "google drive", "dropbox",
		"external server", "upload client data",
	},
}

// softPatterns flag requests that are not refused outright but need more
// context before the advisor may act
var softPatterns = []string{
	"izbjegavanje poreza", "smanji porez", "optimizacija poreza",
	"tax avoidance", "minimize tax",
}

// Overseer is the stateless safety gate vetting free-text requests and
// booking proposals against hard boundaries and numeric domain limits.
type Overseer struct {
	limits     Limits
	validators map[booking.DocumentType]DocumentValidator
}

// NewOverseer creates an overseer with the given limits
func NewOverseer(limits Limits) *Overseer {
	return &Overseer{
		limits:     limits,
		validators: make(map[booking.DocumentType]DocumentValidator),
	}
}

// RegisterValidator attaches a document-specific validator whose result is
// merged into ValidateBooking output for that document type
func (o *Overseer) RegisterValidator(documentType booking.DocumentType, v DocumentValidator) {
	o.validators[documentType] = v
}

// Evaluate classifies a free-text request against the fixed boundary set.
// Boundary matches refuse outright; soft matches withhold approval pending
// more context. Plain accounting questions pass.
func (o *Overseer) Evaluate(requestText string) Verdict {
	text := strings.ToLower(requestText)

	for category, patterns := range hardBoundaryPatterns {
		for _, pattern := range patterns {
			if strings.Contains(text, pattern) {
				return Verdict{
					Approved:     false,
					HardBoundary: true,
					Category:     category,
					Matched:      pattern,
				}
			}
		}
	}

	for _, pattern := range softPatterns {
		if strings.Contains(text, pattern) {
			return Verdict{
				Approved:     false,
				HardBoundary: false,
				Category:     CategoryNeedsContext,
				Matched:      pattern,
			}
		}
	}

	return Verdict{Approved: true}
}

// ValidateBooking applies structural checks and the numeric domain limits
// for the proposal's document type. Each rule inspects the proposal
// independently and appends to warnings; missing fields and hard-limit
// breaches invalidate, soft-limit excess only warns.
func (o *Overseer) ValidateBooking(proposal *booking.BookingProposal) CheckResult {
	result := CheckResult{Valid: true, Warnings: []string{}}

	o.checkRequiredFields(proposal, &result)
	o.checkCashCeiling(proposal, &result)
	o.checkKmRate(proposal, &result)
	o.applyDocumentValidator(proposal, &result)

	return result
}

// requiredFields lists the identifying fields each document type must carry.
// Document types outside this table get structural checks only.
var requiredFields = map[booking.DocumentType]struct {
	counterparty bool
	date         bool
}{
	booking.DocumentTypeUlazniRacun:  {counterparty: true, date: true},
	booking.DocumentTypeIzlazniRacun: {counterparty: true, date: true},
	booking.DocumentTypeIzvod:        {date: true},
	booking.DocumentTypeBlagajna:     {date: true},
	booking.DocumentTypePutniNalog:   {counterparty: true, date: true},
	booking.DocumentTypeIOSObrazac:   {counterparty: true},
	booking.DocumentTypePDVObrazac:   {date: true},
}

func (o *Overseer) checkRequiredFields(proposal *booking.BookingProposal, result *CheckResult) {
	req, ok := requiredFields[proposal.DocumentType]
	if !ok {
		return
	}
	if req.counterparty && proposal.Counterparty == "" {
		result.Valid = false
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("%s requires a counterparty", proposal.DocumentType))
	}
	if req.date && proposal.DocumentDate == nil {
		result.Valid = false
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("%s requires a document date", proposal.DocumentType))
	}
}

// checkCashCeiling rejects cash transactions above the configured ceiling.
// The ceiling is a legal limit on single cash transactions, so unlike the
// km rate it invalidates the proposal.
func (o *Overseer) checkCashCeiling(proposal *booking.BookingProposal, result *CheckResult) {
	if proposal.DocumentType != booking.DocumentTypeBlagajna {
		return
	}
	if proposal.UkupniIznos.GreaterThan(o.limits.CashCeiling) {
		result.Valid = false
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("cash transaction %s exceeds the ceiling of %s",
				proposal.UkupniIznos, o.limits.CashCeiling))
	}
	for i, line := range proposal.Lines {
		if line.Iznos.GreaterThan(o.limits.CashCeiling) {
			result.Valid = false
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("cash line %d amount %s exceeds the ceiling of %s",
					i, line.Iznos, o.limits.CashCeiling))
		}
	}
}

// checkKmRate flags travel-order per-kilometer rates above the recognized
// maximum. The excess portion is non-tax-recognized, not a hard error.
func (o *Overseer) checkKmRate(proposal *booking.BookingProposal, result *CheckResult) {
	if proposal.DocumentType != booking.DocumentTypePutniNalog {
		return
	}
	if proposal.KmNaknada.GreaterThan(o.limits.MaxKmRate) {
		excess := proposal.KmNaknada.Sub(o.limits.MaxKmRate)
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("per-kilometer rate %s exceeds the recognized maximum %s; the excess %s/km is not tax-recognized",
				proposal.KmNaknada, o.limits.MaxKmRate, excess))
	}
}

// applyDocumentValidator merges the result of a registered external
// validator, when one exists for the document type
func (o *Overseer) applyDocumentValidator(proposal *booking.BookingProposal, result *CheckResult) {
	v, ok := o.validators[proposal.DocumentType]
	if !ok {
		return
	}
	vr := v.Validate(proposal)
	if !vr.Valid {
		result.Valid = false
		result.Warnings = append(result.Warnings, vr.Errors...)
	}
	result.Warnings = append(result.Warnings, vr.Warnings...)
}
