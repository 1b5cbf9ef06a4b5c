package repository

import (
	"context"
	"fmt"

	"github.com/hermesradio/hermes/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// weatherCacheRepo implements WeatherCacheRepository using GORM.
type weatherCacheRepo struct {
	db *gorm.DB
}

// NewWeatherCacheRepository creates a new WeatherCacheRepository.
func NewWeatherCacheRepository(db *gorm.DB) *weatherCacheRepo {
	return &weatherCacheRepo{db: db}
}

// GetByCity retrieves the cached observation for a city.
func (r *weatherCacheRepo) GetByCity(ctx context.Context, city string) (*models.WeatherCache, error) {
	var obs models.WeatherCache
	if err := r.db.WithContext(ctx).Where("city_name = ?", city).First(&obs).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting weather cache for %q: %w", city, err)
	}
	return &obs, nil
}

// Upsert writes the observation for a city, replacing any previous row.
func (r *weatherCacheRepo) Upsert(ctx context.Context, obs *models.WeatherCache) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "city_name"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"temp_c", "condition", "wind_kph", "humidity", "fetched_at", "updated_at",
		}),
	}).Create(obs).Error
	if err != nil {
		return fmt.Errorf("upserting weather cache for %q: %w", obs.CityName, err)
	}
	return nil
}

// Ensure weatherCacheRepo implements WeatherCacheRepository at compile time.
var _ WeatherCacheRepository = (*weatherCacheRepo)(nil)

// marketCacheRepo implements MarketCacheRepository using GORM.
type marketCacheRepo struct {
	db *gorm.DB
}

// NewMarketCacheRepository creates a new MarketCacheRepository.
func NewMarketCacheRepository(db *gorm.DB) *marketCacheRepo {
	return &marketCacheRepo{db: db}
}

// GetBySymbol retrieves the cached quote for a symbol.
func (r *marketCacheRepo) GetBySymbol(ctx context.Context, symbol string) (*models.MarketCache, error) {
	var quote models.MarketCache
	if err := r.db.WithContext(ctx).Where("symbol = ?", symbol).First(&quote).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting market cache for %q: %w", symbol, err)
	}
	return &quote, nil
}

// Upsert writes the quote for a symbol, replacing any previous row.
func (r *marketCacheRepo) Upsert(ctx context.Context, quote *models.MarketCache) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "symbol"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"price_usd", "change_24h", "fetched_at", "updated_at",
		}),
	}).Create(quote).Error
	if err != nil {
		return fmt.Errorf("upserting market cache for %q: %w", quote.Symbol, err)
	}
	return nil
}

// Ensure marketCacheRepo implements MarketCacheRepository at compile time.
var _ MarketCacheRepository = (*marketCacheRepo)(nil)
