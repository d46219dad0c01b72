package booking

import (
	"context"

	"github.com/google/uuid"
	"github.com/knjigovodja/backend/internal/domain/shared"
)

// BookingFilter defines filtering options for booking queries
type BookingFilter struct {
	shared.Filter
	ClientID     *string
	Status       *BookingStatus
	DocumentType *DocumentType
}

// StoreStats summarizes the durable store's contents
type StoreStats struct {
	TotalBookings    int64                   `json:"total_bookings"`
	TotalCorrections int64                   `json:"total_corrections"`
	ByStatus         map[BookingStatus]int64 `json:"by_status"`
}

// BookingRepository defines the interface for booking proposal persistence.
// Every mutating call commits before returning; there is no in-memory-only
// success path.
type BookingRepository interface {
	// Insert persists a new PENDING proposal.
	// Returns shared.ErrDuplicateID when the id already exists.
	Insert(ctx context.Context, proposal *BookingProposal) error

	// FindByID finds a proposal by ID. Returns shared.ErrNotFound when absent.
	FindByID(ctx context.Context, id uuid.UUID) (*BookingProposal, error)

	// UpdateStatus atomically applies a lifecycle transition. The terminal
	// check runs inside the store's transaction boundary, so of two racing
	// reviewers exactly one succeeds; the loser receives a domain error with
	// code INVALID_TRANSITION. Returns the updated proposal.
	UpdateStatus(ctx context.Context, id uuid.UUID, status BookingStatus, actor, reason string) (*BookingProposal, error)

	// FindPending lists PENDING proposals for a client ordered by creation
	// time, ties broken by id
	FindPending(ctx context.Context, clientID string) ([]BookingProposal, error)

	// FindByStatus lists a client's proposals in the given status, same order
	FindByStatus(ctx context.Context, clientID string, status BookingStatus) ([]BookingProposal, error)

	// FindAll lists proposals matching the filter and returns the total
	// number of matches regardless of pagination
	FindAll(ctx context.Context, filter BookingFilter) ([]BookingProposal, int64, error)

	// Stats returns booking counts by status; TotalCorrections is filled
	// by the caller from the correction repository
	Stats(ctx context.Context) (*StoreStats, error)
}

// CorrectionRepository defines the interface for the append-only correction
// log
type CorrectionRepository interface {
	// Append persists a correction record. Returns shared.ErrNotFound when
	// the referenced booking does not exist.
	Append(ctx context.Context, correction *Correction) error

	// FindAll returns the full correction log ordered by creation time,
	// ties broken by id
	FindAll(ctx context.Context) ([]Correction, error)

	// FindByClient returns a client's corrections in log order
	FindByClient(ctx context.Context, clientID string) ([]Correction, error)

	// Count returns the number of recorded corrections
	Count(ctx context.Context) (int64, error)
}
