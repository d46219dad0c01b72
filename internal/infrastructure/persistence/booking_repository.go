package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/knjigovodja/backend/internal/domain/booking"
	"github.com/knjigovodja/backend/internal/domain/shared"
	"github.com/knjigovodja/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormBookingRepository implements booking.BookingRepository using GORM.
// Every mutating method commits before returning; the database is the sole
// source of truth and queries always read committed state.
type GormBookingRepository struct {
	db *gorm.DB
}

// NewGormBookingRepository creates a new GormBookingRepository
func NewGormBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: db}
}

// persistenceFailure wraps an unexpected storage error so callers can match
// it with errors.Is against shared.ErrPersistenceFailure
func persistenceFailure(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", shared.ErrPersistenceFailure, op, err)
}

// Insert persists a new proposal; an existing id fails with DUPLICATE_ID
func (r *GormBookingRepository) Insert(ctx context.Context, proposal *booking.BookingProposal) error {
	var model models.BookingModel
	model.FromDomain(proposal)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrDuplicateID
		}
		return persistenceFailure("insert booking", err)
	}
	return nil
}

// FindByID finds a proposal by its ID
func (r *GormBookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*booking.BookingProposal, error) {
	var model models.BookingModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, persistenceFailure("find booking", err)
	}
	return model.ToDomain(), nil
}

// UpdateStatus applies a lifecycle transition. The UPDATE is conditional on
// the row still being PENDING, so of two racing reviewers exactly one
// succeeds and the loser observes INVALID_TRANSITION.
func (r *GormBookingRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status booking.BookingStatus, actor, reason string) (*booking.BookingProposal, error) {
	proposal, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// Domain rules first: terminal check, required reason, event recording
	if err := proposal.TransitionTo(status, actor, reason); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"status":     proposal.Status,
		"updated_at": proposal.UpdatedAt,
		"version":    gorm.Expr("version + 1"),
	}
	switch status {
	case booking.StatusApproved, booking.StatusAutoApproved:
		updates["approved_by"] = proposal.ApprovedBy
		updates["approved_at"] = proposal.ApprovedAt
	case booking.StatusRejected:
		updates["rejected_by"] = proposal.RejectedBy
		updates["rejected_at"] = proposal.RejectedAt
		updates["rejection_reason"] = proposal.RejectionReason
	}

	res := r.db.WithContext(ctx).Model(&models.BookingModel{}).
		Where("id = ? AND status = ?", id, booking.StatusPending).
		Updates(updates)
	if res.Error != nil {
		return nil, persistenceFailure("update booking status", res.Error)
	}
	if res.RowsAffected == 0 {
		// Lost a race: the row left PENDING between our read and write
		return nil, shared.ErrInvalidTransition
	}
	proposal.IncrementVersion()
	return proposal, nil
}

// FindPending lists a client's PENDING proposals in creation order
func (r *GormBookingRepository) FindPending(ctx context.Context, clientID string) ([]booking.BookingProposal, error) {
	return r.FindByStatus(ctx, clientID, booking.StatusPending)
}

// FindByStatus lists a client's proposals in the given status, ordered by
// creation time with ties broken by id
func (r *GormBookingRepository) FindByStatus(ctx context.Context, clientID string, status booking.BookingStatus) ([]booking.BookingProposal, error) {
	var bookingModels []models.BookingModel
	if err := r.db.WithContext(ctx).
		Where("client_id = ? AND status = ?", clientID, status).
		Order("created_at, id").
		Find(&bookingModels).Error; err != nil {
		return nil, persistenceFailure("list bookings", err)
	}
	return toDomainSlice(bookingModels), nil
}

// FindAll lists proposals matching the filter. The returned total counts all
// matches so callers can build pagination metadata.
func (r *GormBookingRepository) FindAll(ctx context.Context, filter booking.BookingFilter) ([]booking.BookingProposal, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.BookingModel{})
	if filter.ClientID != nil {
		query = query.Where("client_id = ?", *filter.ClientID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.DocumentType != nil {
		query = query.Where("document_type = ?", *filter.DocumentType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, persistenceFailure("count bookings", err)
	}

	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var bookingModels []models.BookingModel
	if err := query.Order("created_at, id").Find(&bookingModels).Error; err != nil {
		return nil, 0, persistenceFailure("list bookings", err)
	}
	return toDomainSlice(bookingModels), total, nil
}

// Stats returns booking counts grouped by status. The correction total is
// filled in by the pipeline from the correction repository.
func (r *GormBookingRepository) Stats(ctx context.Context) (*booking.StoreStats, error) {
	type statusCount struct {
		Status booking.BookingStatus
		Count  int64
	}
	var counts []statusCount
	if err := r.db.WithContext(ctx).Model(&models.BookingModel{}).
		Select("status, count(*) as count").
		Group("status").
		Find(&counts).Error; err != nil {
		return nil, persistenceFailure("booking stats", err)
	}

	stats := &booking.StoreStats{
		ByStatus: make(map[booking.BookingStatus]int64),
	}
	for _, c := range counts {
		stats.ByStatus[c.Status] = c.Count
		stats.TotalBookings += c.Count
	}
	return stats, nil
}

func toDomainSlice(bookingModels []models.BookingModel) []booking.BookingProposal {
	proposals := make([]booking.BookingProposal, len(bookingModels))
	for i, model := range bookingModels {
		proposals[i] = *model.ToDomain()
	}
	return proposals
}
