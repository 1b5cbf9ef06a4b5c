package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/hermesradio/hermes/internal/models"
	"gorm.io/gorm"
)

// breakRepo implements BreakRepository using GORM.
type breakRepo struct {
	db *gorm.DB
}

// NewBreakRepository creates a new BreakRepository.
func NewBreakRepository(db *gorm.DB) *breakRepo {
	return &breakRepo{db: db}
}

// Create creates a new break.
func (r *breakRepo) Create(ctx context.Context, brk *models.Break) error {
	if err := r.db.WithContext(ctx).Create(brk).Error; err != nil {
		return fmt.Errorf("creating break: %w", err)
	}
	return nil
}

// GetByID retrieves a break by ID.
func (r *breakRepo) GetByID(ctx context.Context, id models.ULID) (*models.Break, error) {
	var brk models.Break
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&brk).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting break by ID: %w", err)
	}
	return &brk, nil
}

// Update persists the break's current state.
func (r *breakRepo) Update(ctx context.Context, brk *models.Break) error {
	if err := r.db.WithContext(ctx).Save(brk).Error; err != nil {
		return fmt.Errorf("updating break: %w", err)
	}
	return nil
}

// GetRecent retrieves the newest breaks, most recent first.
func (r *breakRepo) GetRecent(ctx context.Context, limit int) ([]*models.Break, error) {
	var breaks []*models.Break
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&breaks).Error; err != nil {
		return nil, fmt.Errorf("getting recent breaks: %w", err)
	}
	return breaks, nil
}

// GetByStatus retrieves breaks in a given status, oldest first.
func (r *breakRepo) GetByStatus(ctx context.Context, status models.BreakStatus) ([]*models.Break, error) {
	var breaks []*models.Break
	if err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at ASC").
		Find(&breaks).Error; err != nil {
		return nil, fmt.Errorf("getting breaks by status: %w", err)
	}
	return breaks, nil
}

// GetLatestByStatus retrieves the newest break in a given status.
func (r *breakRepo) GetLatestByStatus(ctx context.Context, status models.BreakStatus) (*models.Break, error) {
	var brk models.Break
	if err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at DESC").
		First(&brk).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting latest break by status: %w", err)
	}
	return &brk, nil
}

// GetLastByKind retrieves the most recently created break of a kind.
func (r *breakRepo) GetLastByKind(ctx context.Context, kind models.BreakKind) (*models.Break, error) {
	var brk models.Break
	if err := r.db.WithContext(ctx).
		Where("kind = ?", kind).
		Order("created_at DESC").
		First(&brk).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting last break by kind: %w", err)
	}
	return &brk, nil
}

// CountPreparingNonBreaking counts scheduled breaks currently PREPARING.
func (r *breakRepo) CountPreparingNonBreaking(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Break{}).
		Where("status = ? AND kind != ?", models.BreakStatusPreparing, models.BreakKindBreaking).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("counting preparing breaks: %w", err)
	}
	return count, nil
}

// GetPlayedWithVideo retrieves PLAYED breaks that have a rendered video.
func (r *breakRepo) GetPlayedWithVideo(ctx context.Context, limit int) ([]*models.Break, error) {
	var breaks []*models.Break
	if err := r.db.WithContext(ctx).
		Where("status = ? AND video_path != ''", models.BreakStatusPlayed).
		Order("played_at DESC").
		Limit(limit).
		Find(&breaks).Error; err != nil {
		return nil, fmt.Errorf("getting played breaks with video: %w", err)
	}
	return breaks, nil
}

// CountCreatedSince returns how many breaks were created since the given time.
func (r *breakRepo) CountCreatedSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Break{}).
		Where("created_at >= ?", since).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("counting breaks: %w", err)
	}
	return count, nil
}

// CountByStatusSince returns how many breaks created since the given time
// are in the given status.
func (r *breakRepo) CountByStatusSince(ctx context.Context, status models.BreakStatus, since time.Time) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Break{}).
		Where("status = ? AND created_at >= ?", status, since).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("counting %s breaks: %w", status, err)
	}
	return count, nil
}

// RecentHeadlineIDs collects the headline IDs from the meta of the last
// lookback breaks that reached READY or beyond. Breaks with unparseable
// meta are skipped.
func (r *breakRepo) RecentHeadlineIDs(ctx context.Context, lookback int) ([]models.ULID, error) {
	var breaks []*models.Break
	if err := r.db.WithContext(ctx).
		Where("status IN ? AND meta != ''", []models.BreakStatus{
			models.BreakStatusReady,
			models.BreakStatusPushed,
			models.BreakStatusPlayed,
		}).
		Order("created_at DESC").
		Limit(lookback).
		Find(&breaks).Error; err != nil {
		return nil, fmt.Errorf("getting recent break meta: %w", err)
	}

	var ids []models.ULID
	for _, brk := range breaks {
		meta, err := brk.ParseMeta()
		if err != nil {
			continue
		}
		ids = append(ids, meta.HeadlineIDs...)
	}
	return ids, nil
}

// FailStalePreparing marks every PREPARING break FAILED with the given
// reason. Runs as a bulk update so startup recovery is a single statement.
func (r *breakRepo) FailStalePreparing(ctx context.Context, reason string) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Break{}).
		Where("status = ?", models.BreakStatusPreparing).
		Updates(map[string]any{
			"status":      models.BreakStatusFailed,
			"fail_reason": reason,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failing stale preparing breaks: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// DeleteFailedOlderThan removes FAILED breaks created before the given time.
func (r *breakRepo) DeleteFailedOlderThan(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", models.BreakStatusFailed, before).
		Delete(&models.Break{})
	if result.Error != nil {
		return 0, fmt.Errorf("deleting old failed breaks: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// Ensure breakRepo implements BreakRepository at compile time.
var _ BreakRepository = (*breakRepo)(nil)
