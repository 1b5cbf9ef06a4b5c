package repository

import (
	"context"
	"fmt"

	"github.com/hermesradio/hermes/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// rotationStateID is the fixed primary key of the single rotation row.
const rotationStateID = 1

// rotationRepo implements RotationRepository using GORM.
type rotationRepo struct {
	db *gorm.DB
}

// NewRotationRepository creates a new RotationRepository.
func NewRotationRepository(db *gorm.DB) *rotationRepo {
	return &rotationRepo{db: db}
}

// Current returns the rotation state. A missing row reads as break zero.
func (r *rotationRepo) Current(ctx context.Context) (*models.RotationState, error) {
	var state models.RotationState
	err := r.db.WithContext(ctx).Where("id = ?", rotationStateID).First(&state).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return &models.RotationState{ID: rotationStateID}, nil
		}
		return nil, fmt.Errorf("getting rotation state: %w", err)
	}
	return &state, nil
}

// Record upserts the rotation state after a host takes a break.
func (r *rotationRepo) Record(ctx context.Context, breakCount int, hostSlug string) error {
	state := models.RotationState{
		ID:           rotationStateID,
		BreakCount:   breakCount,
		LastHostSlug: hostSlug,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"break_count", "last_host_slug", "updated_at"}),
	}).Create(&state).Error
	if err != nil {
		return fmt.Errorf("recording rotation state: %w", err)
	}
	return nil
}

// Ensure rotationRepo implements RotationRepository at compile time.
var _ RotationRepository = (*rotationRepo)(nil)
