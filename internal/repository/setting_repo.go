package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/hermesradio/hermes/internal/models"
	"github.com/hermesradio/hermes/pkg/duration"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// settingRepo implements SettingRepository using GORM.
type settingRepo struct {
	db *gorm.DB
}

// NewSettingRepository creates a new SettingRepository.
func NewSettingRepository(db *gorm.DB) *settingRepo {
	return &settingRepo{db: db}
}

// Get retrieves a setting by key.
func (r *settingRepo) Get(ctx context.Context, key string) (*models.Setting, error) {
	var setting models.Setting
	if err := r.db.WithContext(ctx).Where("key = ?", key).First(&setting).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting setting %q: %w", key, err)
	}
	return &setting, nil
}

// GetAll retrieves every setting ordered by key.
func (r *settingRepo) GetAll(ctx context.Context) ([]*models.Setting, error) {
	var settings []*models.Setting
	if err := r.db.WithContext(ctx).Order("key ASC").Find(&settings).Error; err != nil {
		return nil, fmt.Errorf("getting all settings: %w", err)
	}
	return settings, nil
}

// Set creates or updates a setting value.
func (r *settingRepo) Set(ctx context.Context, key, value string) error {
	setting := models.Setting{Key: key, Value: value}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&setting).Error
	if err != nil {
		return fmt.Errorf("setting %q: %w", key, err)
	}
	return nil
}

// String returns the setting value, or fallback when absent.
func (r *settingRepo) String(ctx context.Context, key, fallback string) (string, error) {
	setting, err := r.Get(ctx, key)
	if err != nil {
		return fallback, err
	}
	if setting == nil {
		return fallback, nil
	}
	return setting.Value, nil
}

// Int returns the setting parsed as int, or fallback when absent or unparseable.
func (r *settingRepo) Int(ctx context.Context, key string, fallback int) (int, error) {
	setting, err := r.Get(ctx, key)
	if err != nil {
		return fallback, err
	}
	if setting == nil {
		return fallback, nil
	}
	n, err := strconv.Atoi(setting.Value)
	if err != nil {
		return fallback, nil
	}
	return n, nil
}

// Bool returns the setting parsed as bool, or fallback when absent or unparseable.
func (r *settingRepo) Bool(ctx context.Context, key string, fallback bool) (bool, error) {
	setting, err := r.Get(ctx, key)
	if err != nil {
		return fallback, err
	}
	if setting == nil {
		return fallback, nil
	}
	b, err := strconv.ParseBool(setting.Value)
	if err != nil {
		return fallback, nil
	}
	return b, nil
}

// Duration returns the setting parsed as a human duration, or fallback when
// absent or unparseable.
func (r *settingRepo) Duration(ctx context.Context, key string, fallback time.Duration) (time.Duration, error) {
	setting, err := r.Get(ctx, key)
	if err != nil {
		return fallback, err
	}
	if setting == nil {
		return fallback, nil
	}
	d, err := duration.Parse(setting.Value)
	if err != nil {
		return fallback, nil
	}
	return d, nil
}

// Ensure settingRepo implements SettingRepository at compile time.
var _ SettingRepository = (*settingRepo)(nil)
