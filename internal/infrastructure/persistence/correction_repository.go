package persistence

import (
	"context"
	"errors"

	"github.com/knjigovodja/backend/internal/domain/booking"
	"github.com/knjigovodja/backend/internal/domain/shared"
	"github.com/knjigovodja/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormCorrectionRepository implements booking.CorrectionRepository using
// GORM. The correction log is append-only: no update or delete path exists.
type GormCorrectionRepository struct {
	db *gorm.DB
}

// NewGormCorrectionRepository creates a new GormCorrectionRepository
func NewGormCorrectionRepository(db *gorm.DB) *GormCorrectionRepository {
	return &GormCorrectionRepository{db: db}
}

// Append persists a correction after verifying the referenced booking
// exists. Existence check and insert share one transaction.
func (r *GormCorrectionRepository) Append(ctx context.Context, correction *booking.Correction) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var exists int64
		if err := tx.Model(&models.BookingModel{}).
			Where("id = ?", correction.BookingID).
			Count(&exists).Error; err != nil {
			return persistenceFailure("check booking exists", err)
		}
		if exists == 0 {
			return shared.ErrNotFound
		}

		var model models.CorrectionModel
		model.FromDomain(correction)
		if err := tx.Create(&model).Error; err != nil {
			return persistenceFailure("append correction", err)
		}
		return nil
	})
	if err != nil {
		var domainErr *shared.DomainError
		if errors.As(err, &domainErr) || errors.Is(err, shared.ErrPersistenceFailure) {
			return err
		}
		return persistenceFailure("append correction", err)
	}
	return nil
}

// FindAll returns the full correction log in creation order, ties broken by
// id
func (r *GormCorrectionRepository) FindAll(ctx context.Context) ([]booking.Correction, error) {
	var correctionModels []models.CorrectionModel
	if err := r.db.WithContext(ctx).
		Order("created_at, id").
		Find(&correctionModels).Error; err != nil {
		return nil, persistenceFailure("list corrections", err)
	}
	return toCorrectionSlice(correctionModels), nil
}

// FindByClient returns a client's corrections in log order
func (r *GormCorrectionRepository) FindByClient(ctx context.Context, clientID string) ([]booking.Correction, error) {
	var correctionModels []models.CorrectionModel
	if err := r.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("created_at, id").
		Find(&correctionModels).Error; err != nil {
		return nil, persistenceFailure("list corrections", err)
	}
	return toCorrectionSlice(correctionModels), nil
}

// Count returns the number of recorded corrections
func (r *GormCorrectionRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.CorrectionModel{}).
		Count(&count).Error; err != nil {
		return 0, persistenceFailure("count corrections", err)
	}
	return count, nil
}

func toCorrectionSlice(correctionModels []models.CorrectionModel) []booking.Correction {
	corrections := make([]booking.Correction, len(correctionModels))
	for i, model := range correctionModels {
		corrections[i] = *model.ToDomain()
	}
	return corrections
}
