package repository

import (
	"context"
	"fmt"

	"github.com/hermesradio/hermes/internal/models"
	"gorm.io/gorm"
)

// feedSourceRepo implements FeedSourceRepository using GORM.
type feedSourceRepo struct {
	db *gorm.DB
}

// NewFeedSourceRepository creates a new FeedSourceRepository.
func NewFeedSourceRepository(db *gorm.DB) *feedSourceRepo {
	return &feedSourceRepo{db: db}
}

// Create creates a new feed source.
func (r *feedSourceRepo) Create(ctx context.Context, source *models.FeedSource) error {
	if err := r.db.WithContext(ctx).Create(source).Error; err != nil {
		return fmt.Errorf("creating feed source: %w", err)
	}
	return nil
}

// GetByID retrieves a feed source by ID.
func (r *feedSourceRepo) GetByID(ctx context.Context, id models.ULID) (*models.FeedSource, error) {
	var source models.FeedSource
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&source).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting feed source by ID: %w", err)
	}
	return &source, nil
}

// GetByName retrieves a feed source by name.
func (r *feedSourceRepo) GetByName(ctx context.Context, name string) (*models.FeedSource, error) {
	var source models.FeedSource
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&source).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting feed source by name: %w", err)
	}
	return &source, nil
}

// GetAll retrieves all feed sources ordered by name.
func (r *feedSourceRepo) GetAll(ctx context.Context) ([]*models.FeedSource, error) {
	var sources []*models.FeedSource
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&sources).Error; err != nil {
		return nil, fmt.Errorf("getting all feed sources: %w", err)
	}
	return sources, nil
}

// GetPollable retrieves the sources the collector should poll: active and
// not marked dead, ordered by name.
func (r *feedSourceRepo) GetPollable(ctx context.Context) ([]*models.FeedSource, error) {
	var sources []*models.FeedSource
	if err := r.db.WithContext(ctx).Where("active = ? AND healthy = ?", true, true).Order("name ASC").Find(&sources).Error; err != nil {
		return nil, fmt.Errorf("getting pollable feed sources: %w", err)
	}
	return sources, nil
}

// Update updates an existing feed source.
func (r *feedSourceRepo) Update(ctx context.Context, source *models.FeedSource) error {
	if err := r.db.WithContext(ctx).Save(source).Error; err != nil {
		return fmt.Errorf("updating feed source: %w", err)
	}
	return nil
}

// Delete deletes a feed source by ID.
func (r *feedSourceRepo) Delete(ctx context.Context, id models.ULID) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.FeedSource{}).Error; err != nil {
		return fmt.Errorf("deleting feed source: %w", err)
	}
	return nil
}

// HealthCounts returns how many active sources are healthy, and how many are
// active in total.
func (r *feedSourceRepo) HealthCounts(ctx context.Context) (healthy, total int64, err error) {
	if err = r.db.WithContext(ctx).Model(&models.FeedSource{}).
		Where("active = ?", true).Count(&total).Error; err != nil {
		return 0, 0, fmt.Errorf("counting active feed sources: %w", err)
	}
	if err = r.db.WithContext(ctx).Model(&models.FeedSource{}).
		Where("active = ? AND healthy = ?", true, true).Count(&healthy).Error; err != nil {
		return 0, 0, fmt.Errorf("counting healthy feed sources: %w", err)
	}
	return healthy, total, nil
}

// Ensure feedSourceRepo implements FeedSourceRepository at compile time.
var _ FeedSourceRepository = (*feedSourceRepo)(nil)
