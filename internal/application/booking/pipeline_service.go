package booking

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/knjigovodja/backend/internal/domain/booking"
	"github.com/knjigovodja/backend/internal/domain/registry"
	"github.com/knjigovodja/backend/internal/domain/safety"
	"github.com/knjigovodja/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// PipelineConfig holds the pipeline's injected settings
type PipelineConfig struct {
	// AutoApproveEnabled gates the AUTO_APPROVED path. Disabled by default:
	// enabling it is an explicit operator decision, because it relaxes the
	// rule that every proposal is approved by a human.
	AutoApproveEnabled   bool
	AutoApproveThreshold float64
	// PersistenceDriver is reported by stats ("postgres", "sqlite")
	PersistenceDriver string
}

// SubmitResult is returned by Submit
type SubmitResult struct {
	ID        uuid.UUID `json:"id"`
	Status    string    `json:"status"`
	ERPTarget string    `json:"erp_target,omitempty"`
	Warnings  []string  `json:"warnings,omitempty"`
}

// PipelineStats merges pipeline-level counters with store-level stats
type PipelineStats struct {
	Submitted          int64               `json:"submitted"`
	Approved           int64               `json:"approved"`
	AutoApproved       int64               `json:"auto_approved"`
	Rejected           int64               `json:"rejected"`
	CorrectionsLogged  int64               `json:"corrections_logged"`
	ValidationFailures int64               `json:"validation_failures"`
	Hints              int                 `json:"hints"`
	Store              *booking.StoreStats `json:"store"`
	Persistence        string              `json:"persistence"`
	Driver             string              `json:"driver"`
	AutoApproveEnabled bool                `json:"auto_approve_enabled"`
}

// CorrectionInput carries a human override of a proposal's account coding
type CorrectionInput struct {
	OriginalKonto  string
	CorrectedKonto string
	Supplier       string
}

// BookingPipeline orchestrates submission, the overseer gate, persistence,
// state transitions, correction capture, and aggregate statistics. It is the
// only entry point other components use.
type BookingPipeline struct {
	overseer    *safety.Overseer
	bookings    booking.BookingRepository
	corrections booking.CorrectionRepository
	memory      *CorrectionMemory
	clients     registry.ClientRegistry
	events      shared.EventPublisher
	logger      *zap.Logger
	cfg         PipelineConfig

	submitted          atomic.Int64
	approved           atomic.Int64
	autoApproved       atomic.Int64
	rejected           atomic.Int64
	correctionsLogged  atomic.Int64
	validationFailures atomic.Int64
}

// NewBookingPipeline creates a pipeline with explicitly injected
// dependencies; there is no ambient global state
func NewBookingPipeline(
	overseer *safety.Overseer,
	bookings booking.BookingRepository,
	corrections booking.CorrectionRepository,
	memory *CorrectionMemory,
	clients registry.ClientRegistry,
	events shared.EventPublisher,
	logger *zap.Logger,
	cfg PipelineConfig,
) *BookingPipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingPipeline{
		overseer:    overseer,
		bookings:    bookings,
		corrections: corrections,
		memory:      memory,
		clients:     clients,
		events:      events,
		logger:      logger,
		cfg:         cfg,
	}
}

// Submit vets a proposal through the overseer and persists it as PENDING.
// An invalid proposal fails with a VALIDATION_FAILED domain error and
// nothing is persisted. When the auto-approval path is enabled and the
// confidence reaches the threshold, the stored proposal is immediately
// transitioned to AUTO_APPROVED through the same store boundary.
func (s *BookingPipeline) Submit(ctx context.Context, params booking.NewBookingProposalParams) (*SubmitResult, error) {
	if params.ERPTarget == "" && s.clients != nil {
		if client, err := s.clients.Resolve(params.ClientID); err == nil {
			params.ERPTarget = client.ERPTarget
		} else {
			s.logger.Debug("client not in registry, erp_target left empty",
				zap.String("client_id", params.ClientID))
		}
	}

	proposal, err := booking.NewBookingProposal(params)
	if err != nil {
		s.validationFailures.Add(1)
		return nil, err
	}

	check := s.overseer.ValidateBooking(proposal)
	if !check.Valid {
		s.validationFailures.Add(1)
		return nil, shared.NewDomainError("VALIDATION_FAILED",
			fmt.Sprintf("Proposal failed validation: %s", strings.Join(check.Warnings, "; ")))
	}

	if hint := s.memory.GetKontiranjeHint(proposal.ClientID, proposal.Counterparty); hint != nil {
		s.logger.Info("correction hint available for proposal",
			zap.String("booking_id", proposal.ID.String()),
			zap.String("client_id", proposal.ClientID),
			zap.String("supplier", proposal.Counterparty),
			zap.String("hint_konto", hint.CorrectedKonto),
		)
	}

	if err := s.bookings.Insert(ctx, proposal); err != nil {
		return nil, err
	}
	s.submitted.Add(1)
	s.publishEvents(ctx, proposal)

	result := &SubmitResult{
		ID:        proposal.ID,
		Status:    strings.ToLower(booking.StatusPending.String()),
		ERPTarget: proposal.ERPTarget,
		Warnings:  check.Warnings,
	}

	if s.cfg.AutoApproveEnabled && proposal.Confidence >= s.cfg.AutoApproveThreshold {
		updated, err := s.bookings.UpdateStatus(ctx, proposal.ID, booking.StatusAutoApproved, "system:auto", "")
		if err != nil {
			// The submission itself stands; surface the failed auto path as a warning
			s.logger.Error("auto-approval failed, booking stays pending",
				zap.String("booking_id", proposal.ID.String()), zap.Error(err))
			result.Warnings = append(result.Warnings, "auto-approval failed, booking stays pending")
			return result, nil
		}
		s.autoApproved.Add(1)
		s.publishEvents(ctx, updated)
		result.Status = strings.ToLower(booking.StatusAutoApproved.String())
	}

	return result, nil
}

// Approve transitions a PENDING proposal to APPROVED on behalf of a human
// reviewer. The losing side of an approval race receives INVALID_TRANSITION.
func (s *BookingPipeline) Approve(ctx context.Context, id uuid.UUID, approver string) (*booking.BookingProposal, error) {
	if approver == "" {
		return nil, shared.NewDomainError("MISSING_APPROVER", "Approver identity is required")
	}
	updated, err := s.bookings.UpdateStatus(ctx, id, booking.StatusApproved, approver, "")
	if err != nil {
		return nil, err
	}
	s.approved.Add(1)
	s.publishEvents(ctx, updated)
	s.logger.Info("booking approved",
		zap.String("booking_id", id.String()),
		zap.String("approver", approver),
	)
	return updated, nil
}

// Reject transitions a PENDING proposal to REJECTED with a recorded reason
func (s *BookingPipeline) Reject(ctx context.Context, id uuid.UUID, approver, reason string) (*booking.BookingProposal, error) {
	if approver == "" {
		return nil, shared.NewDomainError("MISSING_APPROVER", "Approver identity is required")
	}
	updated, err := s.bookings.UpdateStatus(ctx, id, booking.StatusRejected, approver, reason)
	if err != nil {
		return nil, err
	}
	s.rejected.Add(1)
	s.publishEvents(ctx, updated)
	s.logger.Info("booking rejected",
		zap.String("booking_id", id.String()),
		zap.String("approver", approver),
		zap.String("reason", reason),
	)
	return updated, nil
}

// Correct appends a correction record for a booking at any status and feeds
// the correction memory. This is the single bridge turning a human edit into
// both an audit record and a forward-looking hint.
func (s *BookingPipeline) Correct(ctx context.Context, id uuid.UUID, approver string, input CorrectionInput) (*booking.Correction, error) {
	proposal, err := s.bookings.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	supplier := input.Supplier
	if supplier == "" {
		supplier = proposal.Counterparty
	}

	correction, err := booking.NewCorrection(
		proposal.ID,
		proposal.ClientID,
		supplier,
		input.OriginalKonto,
		input.CorrectedKonto,
		proposal.DocumentType,
		approver,
	)
	if err != nil {
		return nil, err
	}

	if err := s.corrections.Append(ctx, correction); err != nil {
		return nil, err
	}
	s.correctionsLogged.Add(1)

	s.memory.RecordCorrection(approver, correction.ClientID, correction.OriginalKonto,
		correction.CorrectedKonto, correction.DocumentType, correction.Supplier)

	if s.events != nil {
		if err := s.events.Publish(ctx, booking.NewBookingCorrectedEvent(correction)); err != nil {
			s.logger.Warn("failed to publish correction event", zap.Error(err))
		}
	}

	s.logger.Info("correction recorded",
		zap.String("booking_id", id.String()),
		zap.String("original_konto", correction.OriginalKonto),
		zap.String("corrected_konto", correction.CorrectedKonto),
		zap.String("approver", approver),
	)
	return correction, nil
}

// GetBooking returns a single proposal by id
func (s *BookingPipeline) GetBooking(ctx context.Context, id uuid.UUID) (*booking.BookingProposal, error) {
	return s.bookings.FindByID(ctx, id)
}

// GetPending lists a client's proposals awaiting disposition
func (s *BookingPipeline) GetPending(ctx context.Context, clientID string) ([]booking.BookingProposal, error) {
	return s.bookings.FindPending(ctx, clientID)
}

// GetApproved lists a client's approved proposals, human and auto approvals
// alike, in creation order
func (s *BookingPipeline) GetApproved(ctx context.Context, clientID string) ([]booking.BookingProposal, error) {
	approved, err := s.bookings.FindByStatus(ctx, clientID, booking.StatusApproved)
	if err != nil {
		return nil, err
	}
	auto, err := s.bookings.FindByStatus(ctx, clientID, booking.StatusAutoApproved)
	if err != nil {
		return nil, err
	}
	merged := append(approved, auto...)
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].CreatedAt.Equal(merged[j].CreatedAt) {
			return merged[i].ID.String() < merged[j].ID.String()
		}
		return merged[i].CreatedAt.Before(merged[j].CreatedAt)
	})
	return merged, nil
}

// ListBookings pages through proposals matching the filter, returning the
// page plus the total match count
func (s *BookingPipeline) ListBookings(ctx context.Context, filter booking.BookingFilter) ([]booking.BookingProposal, int64, error) {
	return s.bookings.FindAll(ctx, filter)
}

// GetCorrectionsForDPO exports the correction log as a training signal,
// optionally narrowed to one client
func (s *BookingPipeline) GetCorrectionsForDPO(ctx context.Context, clientID string) ([]booking.Correction, error) {
	if clientID != "" {
		return s.corrections.FindByClient(ctx, clientID)
	}
	return s.corrections.FindAll(ctx)
}

// GetHint exposes the correction memory's exact-match lookup
func (s *BookingPipeline) GetHint(clientID, supplier string) *MemoryHint {
	return s.memory.GetKontiranjeHint(clientID, supplier)
}

// EvaluateRequest exposes the overseer's free-text gate
func (s *BookingPipeline) EvaluateRequest(requestText string) safety.Verdict {
	return s.overseer.Evaluate(requestText)
}

// RebuildMemory replays the durable correction log into the hint store.
// Called at startup so the derived cache never outlives its source of truth.
func (s *BookingPipeline) RebuildMemory(ctx context.Context) error {
	corrections, err := s.corrections.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load correction log: %w", err)
	}
	s.memory.Rebuild(corrections)
	return nil
}

// GetStats merges pipeline counters with store-level statistics
func (s *BookingPipeline) GetStats(ctx context.Context) (*PipelineStats, error) {
	storeStats, err := s.bookings.Stats(ctx)
	if err != nil {
		return nil, err
	}
	if storeStats.TotalCorrections, err = s.corrections.Count(ctx); err != nil {
		return nil, err
	}
	return &PipelineStats{
		Submitted:          s.submitted.Load(),
		Approved:           s.approved.Load(),
		AutoApproved:       s.autoApproved.Load(),
		Rejected:           s.rejected.Load(),
		CorrectionsLogged:  s.correctionsLogged.Load(),
		ValidationFailures: s.validationFailures.Load(),
		Hints:              s.memory.Size(),
		Store:              storeStats,
		Persistence:        "durable",
		Driver:             s.cfg.PersistenceDriver,
		AutoApproveEnabled: s.cfg.AutoApproveEnabled,
	}, nil
}

// publishEvents publishes and clears an aggregate's pending events after a
// successful commit. Publication failures are logged, never returned: the
// durable store is the source of truth, events are observability.
func (s *BookingPipeline) publishEvents(ctx context.Context, proposal *booking.BookingProposal) {
	if s.events == nil {
		return
	}
	events := proposal.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	if err := s.events.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish domain events",
			zap.String("booking_id", proposal.ID.String()), zap.Error(err))
	}
	proposal.ClearDomainEvents()
}
