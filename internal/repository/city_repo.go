package repository

import (
	"context"
	"fmt"

	"github.com/hermesradio/hermes/internal/models"
	"gorm.io/gorm"
)

// cityRepo implements CityRepository using GORM.
type cityRepo struct {
	db *gorm.DB
}

// NewCityRepository creates a new CityRepository.
func NewCityRepository(db *gorm.DB) *cityRepo {
	return &cityRepo{db: db}
}

// Create creates a new city.
func (r *cityRepo) Create(ctx context.Context, city *models.City) error {
	if err := r.db.WithContext(ctx).Create(city).Error; err != nil {
		return fmt.Errorf("creating city: %w", err)
	}
	return nil
}

// GetByID retrieves a city by ID.
func (r *cityRepo) GetByID(ctx context.Context, id models.ULID) (*models.City, error) {
	var city models.City
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&city).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting city by ID: %w", err)
	}
	return &city, nil
}

// GetByName retrieves a city by name.
func (r *cityRepo) GetByName(ctx context.Context, name string) (*models.City, error) {
	var city models.City
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&city).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting city by name: %w", err)
	}
	return &city, nil
}

// GetAll retrieves all cities ordered by name.
func (r *cityRepo) GetAll(ctx context.Context) ([]*models.City, error) {
	var cities []*models.City
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&cities).Error; err != nil {
		return nil, fmt.Errorf("getting all cities: %w", err)
	}
	return cities, nil
}

// GetActive retrieves all active cities ordered by name.
func (r *cityRepo) GetActive(ctx context.Context) ([]*models.City, error) {
	var cities []*models.City
	if err := r.db.WithContext(ctx).Where("active = ?", true).Order("name ASC").Find(&cities).Error; err != nil {
		return nil, fmt.Errorf("getting active cities: %w", err)
	}
	return cities, nil
}

// Update updates an existing city.
func (r *cityRepo) Update(ctx context.Context, city *models.City) error {
	if err := r.db.WithContext(ctx).Save(city).Error; err != nil {
		return fmt.Errorf("updating city: %w", err)
	}
	return nil
}

// Delete deletes a city by ID.
func (r *cityRepo) Delete(ctx context.Context, id models.ULID) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.City{}).Error; err != nil {
		return fmt.Errorf("deleting city: %w", err)
	}
	return nil
}

// PickForRotation selects up to n active cities, least-used first with
// random tie-breaking, and bumps their use counts so the rotation moves on.
// RANDOM() is understood by SQLite and PostgreSQL, the supported drivers for
// rotation queries.
func (r *cityRepo) PickForRotation(ctx context.Context, n int) ([]*models.City, error) {
	var picked []*models.City
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("active = ?", true).
			Order("use_count ASC, RANDOM()").
			Limit(n).
			Find(&picked).Error; err != nil {
			return err
		}
		if len(picked) == 0 {
			return nil
		}

		ids := make([]models.ULID, len(picked))
		for i, city := range picked {
			ids[i] = city.ID
		}
		if err := tx.Model(&models.City{}).
			Where("id IN ?", ids).
			UpdateColumn("use_count", gorm.Expr("use_count + 1")).Error; err != nil {
			return err
		}
		for _, city := range picked {
			city.UseCount++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("picking cities for rotation: %w", err)
	}
	return picked, nil
}

// Ensure cityRepo implements CityRepository at compile time.
var _ CityRepository = (*cityRepo)(nil)
