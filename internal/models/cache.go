package models

import "time"

// WeatherCache holds the last observation fetched for a city. Serving a
// stale row beats inventing weather, so rows survive fetch failures and
// carry their age with them.
type WeatherCache struct {
	BaseModel

	CityName  string  `gorm:"not null;uniqueIndex;size:100" json:"city_name"`
	TempC     float64 `json:"temp_c"`
	Condition string  `gorm:"size:100" json:"condition"`
	WindKph   float64 `json:"wind_kph"`
	Humidity  int     `json:"humidity"`

	FetchedAt Time `gorm:"not null" json:"fetched_at"`
}

// TableName returns the table name for WeatherCache.
func (WeatherCache) TableName() string {
	return "weather_cache"
}

// Fresh returns true while the row is within ttl of its fetch time.
func (w *WeatherCache) Fresh(ttl time.Duration, now time.Time) bool {
	return now.Sub(w.FetchedAt) < ttl
}

// MarketCache holds the last market quote. Single-row-per-symbol with the
// same stale-on-failure semantics as weather.
type MarketCache struct {
	BaseModel

	Symbol    string  `gorm:"not null;uniqueIndex;size:20" json:"symbol"`
	PriceUSD  float64 `json:"price_usd"`
	Change24h float64 `json:"change_24h"`

	FetchedAt Time `gorm:"not null" json:"fetched_at"`
}

// TableName returns the table name for MarketCache.
func (MarketCache) TableName() string {
	return "market_cache"
}

// Fresh returns true while the row is within ttl of its fetch time.
func (m *MarketCache) Fresh(ttl time.Duration, now time.Time) bool {
	return now.Sub(m.FetchedAt) < ttl
}
