// Package weather fetches current conditions from an open-meteo compatible
// API and caches them per city. Cached observations stay fresh for ten
// minutes; when a fetch fails and an expired row exists the row is served
// stale rather than dropping weather from the break entirely.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hermesradio/hermes/internal/config"
	"github.com/hermesradio/hermes/internal/models"
	"github.com/hermesradio/hermes/internal/observability"
	"github.com/hermesradio/hermes/internal/repository"
	"github.com/hermesradio/hermes/pkg/httpclient"
)

// cacheTTL is how long a cached observation counts as fresh.
const cacheTTL = 10 * time.Minute

// currentFields is the current-weather block requested from the API.
const currentFields = "temperature_2m,relative_humidity_2m,wind_speed_10m,weather_code"

// Observation is the weather for one city as it will be spoken in a break.
type Observation struct {
	City      string    `json:"city"`
	TempC     float64   `json:"temp_c"`
	Condition string    `json:"condition"`
	WindKph   float64   `json:"wind_kph"`
	Humidity  int       `json:"humidity"`
	FetchedAt time.Time `json:"fetched_at"`

	// Stale marks an observation served from an expired cache row after a
	// fetch failure. Stale data is real data; it is never invented.
	Stale bool `json:"stale,omitempty"`
}

// Provider fetches current weather with a per-city database cache.
type Provider struct {
	client *httpclient.Client
	cache  repository.WeatherCacheRepository
	cities repository.CityRepository
	logger *slog.Logger

	baseURL string
}

// NewProvider creates a weather provider from the deployment config and the
// cache/city repositories.
func NewProvider(cfg config.WeatherConfig, cache repository.WeatherCacheRepository, cities repository.CityRepository, logger *slog.Logger) *Provider {
	clientCfg := httpclient.DefaultConfig()
	if cfg.Timeout > 0 {
		clientCfg.Timeout = cfg.Timeout
	}
	// A dead upstream must not eat the whole gather window; one retry,
	// then the stale cache takes over.
	clientCfg.RetryAttempts = 1
	clientCfg.Logger = logger

	return &Provider{
		client:  httpclient.New(clientCfg),
		cache:   cache,
		cities:  cities,
		logger:  observability.WithComponent(logger, "weather"),
		baseURL: cfg.BaseURL,
	}
}

// PickCities selects the next n cities in rotation, least-used first. Use
// counts are incremented by the repository, so a city picked here counts as
// used even if its fetch later degrades to cache.
func (p *Provider) PickCities(ctx context.Context, n int) ([]*models.City, error) {
	return p.cities.PickForRotation(ctx, n)
}

// Current returns the current observation for a city. The flow is
// cache-first: a fresh row is served as-is, a stale or missing row triggers
// a fetch, and a failed fetch falls back to the stale row when one exists.
func (p *Provider) Current(ctx context.Context, city *models.City) (*Observation, error) {
	cached, err := p.cache.GetByCity(ctx, city.Name)
	if err != nil {
		return nil, fmt.Errorf("reading weather cache for %s: %w", city.Name, err)
	}

	now := time.Now().UTC()
	if cached != nil && cached.Fresh(cacheTTL, now) {
		return observationFromCache(cached, false), nil
	}

	obs, fetchErr := p.fetch(ctx, city)
	if fetchErr == nil {
		row := &models.WeatherCache{
			CityName:  city.Name,
			TempC:     obs.TempC,
			Condition: obs.Condition,
			WindKph:   obs.WindKph,
			Humidity:  obs.Humidity,
			FetchedAt: models.Time(obs.FetchedAt),
		}
		if err := p.cache.Upsert(ctx, row); err != nil {
			p.logger.Warn("failed to cache weather observation",
				slog.String("city", city.Name),
				slog.String("error", err.Error()))
		}
		return obs, nil
	}

	if cached != nil {
		p.logger.Warn("weather fetch failed, serving stale cache",
			slog.String("city", city.Name),
			slog.Time("fetched_at", time.Time(cached.FetchedAt)),
			slog.String("error", fetchErr.Error()))
		return observationFromCache(cached, true), nil
	}

	return nil, fmt.Errorf("fetching weather for %s: %w", city.Name, fetchErr)
}

// CurrentForCities fetches observations for a batch of cities in parallel.
// Individual failures are logged and skipped; the break degrades per city,
// not as a whole.
func (p *Provider) CurrentForCities(ctx context.Context, cities []*models.City) []*Observation {
	results := make([]*Observation, len(cities))

	var g errgroup.Group
	for i, city := range cities {
		g.Go(func() error {
			obs, err := p.Current(ctx, city)
			if err != nil {
				p.logger.Warn("skipping city after weather failure",
					slog.String("city", city.Name),
					slog.String("error", err.Error()))
				return nil
			}
			results[i] = obs
			return nil
		})
	}
	g.Wait()

	observations := make([]*Observation, 0, len(cities))
	for _, obs := range results {
		if obs != nil {
			observations = append(observations, obs)
		}
	}
	return observations
}

// currentResponse is the open-meteo current-weather payload shape.
type currentResponse struct {
	Current struct {
		Temperature float64 `json:"temperature_2m"`
		Humidity    int     `json:"relative_humidity_2m"`
		WindSpeed   float64 `json:"wind_speed_10m"`
		WeatherCode int     `json:"weather_code"`
	} `json:"current"`
}

func (p *Provider) fetch(ctx context.Context, city *models.City) (*Observation, error) {
	endpoint := fmt.Sprintf("%s/v1/forecast?%s", p.baseURL, url.Values{
		"latitude":  {strconv.FormatFloat(city.Latitude, 'f', 4, 64)},
		"longitude": {strconv.FormatFloat(city.Longitude, 'f', 4, 64)},
		"current":   {currentFields},
	}.Encode())

	resp, err := p.client.Get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("weather API returned status %d", resp.StatusCode)
	}

	var payload currentResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding weather response: %w", err)
	}

	return &Observation{
		City:      city.Name,
		TempC:     payload.Current.Temperature,
		Condition: ConditionFromCode(payload.Current.WeatherCode),
		WindKph:   payload.Current.WindSpeed,
		Humidity:  payload.Current.Humidity,
		FetchedAt: time.Now().UTC(),
	}, nil
}

func observationFromCache(row *models.WeatherCache, stale bool) *Observation {
	return &Observation{
		City:      row.CityName,
		TempC:     row.TempC,
		Condition: row.Condition,
		WindKph:   row.WindKph,
		Humidity:  row.Humidity,
		FetchedAt: time.Time(row.FetchedAt),
		Stale:     stale,
	}
}

// ConditionFromCode maps a WMO weather interpretation code to the phrase a
// host reads on air. Unknown codes come back as "unsettled" so a new code
// never breaks a script.
func ConditionFromCode(code int) string {
	switch {
	case code == 0:
		return "clear"
	case code >= 1 && code <= 3:
		return "partly cloudy"
	case code == 45 || code == 48:
		return "fog"
	case code >= 51 && code <= 57:
		return "drizzle"
	case code >= 61 && code <= 67:
		return "rain"
	case code >= 71 && code <= 77:
		return "snow"
	case code >= 80 && code <= 82:
		return "showers"
	case code == 85 || code == 86:
		return "snow showers"
	case code == 95:
		return "thunderstorm"
	case code == 96 || code == 99:
		return "thunderstorm with hail"
	default:
		return "unsettled"
	}
}
