package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/hermesradio/hermes/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// minTopScore is the floor for a scored headline to count as break-worthy.
// Below this the story only appears via backfill when fresher material runs
// short.
const minTopScore = 4

// headlineRepo implements HeadlineRepository using GORM.
type headlineRepo struct {
	db *gorm.DB
}

// NewHeadlineRepository creates a new HeadlineRepository.
func NewHeadlineRepository(db *gorm.DB) *headlineRepo {
	return &headlineRepo{db: db}
}

// Store inserts a headline unless its dedupe identity already exists.
func (r *headlineRepo) Store(ctx context.Context, headline *models.Headline) (bool, error) {
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "dedupe_id"}},
		DoNothing: true,
	}).Create(headline)
	if result.Error != nil {
		return false, fmt.Errorf("storing headline: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// GetByID retrieves a headline by ID.
func (r *headlineRepo) GetByID(ctx context.Context, id models.ULID) (*models.Headline, error) {
	var headline models.Headline
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&headline).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting headline by ID: %w", err)
	}
	return &headline, nil
}

// GetUnscored retrieves headlines awaiting LM scoring, newest first.
func (r *headlineRepo) GetUnscored(ctx context.Context, limit int) ([]*models.Headline, error) {
	var headlines []*models.Headline
	if err := r.db.WithContext(ctx).
		Where("score IS NULL").
		Order("fetched_at DESC").
		Limit(limit).
		Find(&headlines).Error; err != nil {
		return nil, fmt.Errorf("getting unscored headlines: %w", err)
	}
	return headlines, nil
}

// SetScore writes the LM newsworthiness score for a headline.
func (r *headlineRepo) SetScore(ctx context.Context, id models.ULID, score int) error {
	if err := r.db.WithContext(ctx).Model(&models.Headline{}).
		Where("id = ?", id).
		Update("score", score).Error; err != nil {
		return fmt.Errorf("setting headline score: %w", err)
	}
	return nil
}

// TopHeadlines retrieves up to n scored headlines fetched within the
// window, best-scored first. Stories in exclude (used by a recent break)
// are skipped, and unscored or low-scored items never qualify; a short
// list is the caller's signal to re-admit recently covered stories by
// dropping the exclusion.
func (r *headlineRepo) TopHeadlines(ctx context.Context, n int, window time.Duration, exclude []models.ULID) ([]*models.Headline, error) {
	cutoff := time.Now().Add(-window)

	q := r.db.WithContext(ctx).
		Where("score IS NOT NULL AND score >= ?", minTopScore).
		Where("fetched_at > ?", cutoff)
	if len(exclude) > 0 {
		q = q.Where("id NOT IN ?", exclude)
	}

	var headlines []*models.Headline
	if err := q.Order("score DESC, fetched_at DESC").Limit(n).Find(&headlines).Error; err != nil {
		return nil, fmt.Errorf("getting top headlines: %w", err)
	}
	return headlines, nil
}

// BreakingCandidates retrieves headlines within the window whose score meets
// the threshold and which have not yet triggered a breaking break.
func (r *headlineRepo) BreakingCandidates(ctx context.Context, threshold int, window time.Duration) ([]*models.Headline, error) {
	cutoff := time.Now().Add(-window)

	var headlines []*models.Headline
	if err := r.db.WithContext(ctx).
		Where("score IS NOT NULL AND score >= ?", threshold).
		Where("breaking = ?", false).
		Where("fetched_at > ?", cutoff).
		Order("score DESC, fetched_at DESC").
		Find(&headlines).Error; err != nil {
		return nil, fmt.Errorf("getting breaking candidates: %w", err)
	}
	return headlines, nil
}

// MarkBreaking flags a headline as having triggered a breaking break.
func (r *headlineRepo) MarkBreaking(ctx context.Context, id models.ULID) error {
	if err := r.db.WithContext(ctx).Model(&models.Headline{}).
		Where("id = ?", id).
		Update("breaking", true).Error; err != nil {
		return fmt.Errorf("marking headline breaking: %w", err)
	}
	return nil
}

// CountSince returns how many headlines were fetched since the given time.
func (r *headlineRepo) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Headline{}).
		Where("fetched_at >= ?", since).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("counting headlines: %w", err)
	}
	return count, nil
}

// DeleteOlderThan removes headlines fetched before the given time.
func (r *headlineRepo) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("fetched_at < ?", before).
		Delete(&models.Headline{})
	if result.Error != nil {
		return 0, fmt.Errorf("deleting old headlines: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// Ensure headlineRepo implements HeadlineRepository at compile time.
var _ HeadlineRepository = (*headlineRepo)(nil)
