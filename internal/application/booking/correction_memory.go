package booking

import (
	"fmt"
	"sync"
	"time"

	"github.com/knjigovodja/backend/internal/domain/booking"
	"go.uber.org/zap"
)

// MemoryHint is a derived suggestion keyed by client and counterparty,
// produced from past corrections. Read-only for consumers.
type MemoryHint struct {
	ClientID        string               `json:"client_id"`
	Supplier        string               `json:"supplier"`
	CorrectedKonto  string               `json:"corrected_konto"`
	DocumentType    booking.DocumentType `json:"document_type"`
	Justification   string               `json:"justification"`
	TimesCorrected  int                  `json:"times_corrected"`
	LastCorrectedBy string               `json:"last_corrected_by"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

type hintKey struct {
	clientID string
	supplier string
}

// CorrectionMemory is the keyed hint store recording human corrections and
// serving exact-match lookups by (client, supplier). It is a derived cache
// over the booking store's correction log and is rebuilt from it at startup;
// the log, not this map, is the source of truth.
type CorrectionMemory struct {
	mu     sync.RWMutex
	hints  map[hintKey]*MemoryHint
	logger *zap.Logger
}

// NewCorrectionMemory creates an empty correction memory
func NewCorrectionMemory(logger *zap.Logger) *CorrectionMemory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CorrectionMemory{
		hints:  make(map[hintKey]*MemoryHint),
		logger: logger,
	}
}

// RecordCorrection upserts the hint for (clientID, supplier). Recording the
// same corrected konto again only refreshes the timestamp; a different konto
// overwrites the hint and extends its justification from the history.
func (m *CorrectionMemory) RecordCorrection(userID, clientID, originalKonto, correctedKonto string, documentType booking.DocumentType, supplier string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := hintKey{clientID: clientID, supplier: supplier}
	now := time.Now()

	if existing, ok := m.hints[key]; ok {
		if existing.CorrectedKonto == correctedKonto {
			existing.UpdatedAt = now
			return
		}
		existing.CorrectedKonto = correctedKonto
		existing.DocumentType = documentType
		existing.TimesCorrected++
		existing.LastCorrectedBy = userID
		existing.UpdatedAt = now
		existing.Justification = buildJustification(existing, originalKonto)
		m.logger.Info("correction hint updated",
			zap.String("client_id", clientID),
			zap.String("supplier", supplier),
			zap.String("corrected_konto", correctedKonto),
		)
		return
	}

	hint := &MemoryHint{
		ClientID:        clientID,
		Supplier:        supplier,
		CorrectedKonto:  correctedKonto,
		DocumentType:    documentType,
		TimesCorrected:  1,
		LastCorrectedBy: userID,
		UpdatedAt:       now,
	}
	hint.Justification = buildJustification(hint, originalKonto)
	m.hints[key] = hint
	m.logger.Info("correction hint recorded",
		zap.String("client_id", clientID),
		zap.String("supplier", supplier),
		zap.String("corrected_konto", correctedKonto),
	)
}

// buildJustification produces a human-readable explanation that always
// contains the corrected konto literal, so downstream proposal generators
// can both display and numerically consume it.
func buildJustification(h *MemoryHint, originalKonto string) string {
	if h.Supplier == "" {
		return fmt.Sprintf("Za klijenta %s knjiži na konto %s (ranije predloženo %s, ispravljeno %d put(a), zadnji ispravak: %s)",
			h.ClientID, h.CorrectedKonto, originalKonto, h.TimesCorrected, h.LastCorrectedBy)
	}
	return fmt.Sprintf("Za klijenta %s i dobavljača %s knjiži na konto %s (ranije predloženo %s, ispravljeno %d put(a), zadnji ispravak: %s)",
		h.ClientID, h.Supplier, h.CorrectedKonto, originalKonto, h.TimesCorrected, h.LastCorrectedBy)
}

// GetKontiranjeHint returns the hint for an exact (clientID, supplier) key,
// or nil when no correction has been recorded for it. No fuzzy matching
// across suppliers.
func (m *CorrectionMemory) GetKontiranjeHint(clientID, supplier string) *MemoryHint {
	m.mu.RLock()
	defer m.mu.RUnlock()

	hint, ok := m.hints[hintKey{clientID: clientID, supplier: supplier}]
	if !ok {
		return nil
	}
	copied := *hint
	return &copied
}

// Rebuild replays the correction log in timestamp order and keeps the last
// value per key. This is the recovery path after memory loss.
func (m *CorrectionMemory) Rebuild(corrections []booking.Correction) {
	m.mu.Lock()
	m.hints = make(map[hintKey]*MemoryHint)
	m.mu.Unlock()

	for _, c := range corrections {
		m.RecordCorrection(c.Approver, c.ClientID, c.OriginalKonto, c.CorrectedKonto, c.DocumentType, c.Supplier)
	}
	m.logger.Info("correction memory rebuilt", zap.Int("hints", m.Size()))
}

// Size returns the number of stored hints
func (m *CorrectionMemory) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.hints)
}
