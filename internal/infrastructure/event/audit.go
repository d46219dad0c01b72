package event

import (
	"context"

	"github.com/knjigovodja/backend/internal/domain/booking"
	"github.com/knjigovodja/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// AuditSubscriber writes every booking lifecycle event to the structured
// log. Reviewers reconstruct who approved what, and when, from this trail.
type AuditSubscriber struct {
	logger *zap.Logger
}

// NewAuditSubscriber creates a new AuditSubscriber
func NewAuditSubscriber(logger *zap.Logger) *AuditSubscriber {
	return &AuditSubscriber{logger: logger.Named("audit")}
}

// EventTypes returns the booking lifecycle event types
func (s *AuditSubscriber) EventTypes() []string {
	return []string{
		"BookingSubmitted",
		"BookingApproved",
		"BookingRejected",
		"BookingCorrected",
	}
}

// Handle logs the event with type-specific fields
func (s *AuditSubscriber) Handle(ctx context.Context, event shared.DomainEvent) error {
	fields := []zap.Field{
		zap.String("event_id", event.EventID().String()),
		zap.String("aggregate_id", event.AggregateID().String()),
		zap.Time("occurred_at", event.OccurredAt()),
	}

	switch e := event.(type) {
	case *booking.BookingSubmittedEvent:
		fields = append(fields,
			zap.String("client_id", e.ClientID),
			zap.String("document_type", string(e.DocumentType)),
			zap.String("ukupni_iznos", e.UkupniIznos.String()),
			zap.Float64("confidence", e.Confidence),
			zap.String("source_module", e.SourceModule),
		)
	case *booking.BookingApprovedEvent:
		fields = append(fields,
			zap.String("client_id", e.ClientID),
			zap.String("approved_by", e.ApprovedBy),
			zap.Bool("auto", e.Auto),
			zap.String("ukupni_iznos", e.UkupniIznos.String()),
		)
	case *booking.BookingRejectedEvent:
		fields = append(fields,
			zap.String("client_id", e.ClientID),
			zap.String("rejected_by", e.RejectedBy),
			zap.String("reason", e.Reason),
		)
	case *booking.BookingCorrectedEvent:
		fields = append(fields,
			zap.String("client_id", e.ClientID),
			zap.String("supplier", e.Supplier),
			zap.String("original_konto", e.OriginalKonto),
			zap.String("corrected_konto", e.CorrectedKonto),
			zap.String("approver", e.Approver),
		)
	}

	s.logger.Info(event.EventType(), fields...)
	return nil
}

var _ shared.EventHandler = (*AuditSubscriber)(nil)
