// Package repository defines data access interfaces for hermes entities.
// All database access goes through these interfaces, enabling easy testing
// and database backend switching.
package repository

import (
	"context"
	"time"

	"github.com/hermesradio/hermes/internal/models"
)

// SettingRepository defines operations for the runtime settings registry.
// Settings are the knobs operators turn while the station runs; everything
// except process-level wiring (ports, paths, API keys) lives here.
type SettingRepository interface {
	// Get retrieves a setting by key. Returns nil when the key is absent.
	Get(ctx context.Context, key string) (*models.Setting, error)
	// GetAll retrieves every setting ordered by key.
	GetAll(ctx context.Context) ([]*models.Setting, error)
	// Set creates or updates a setting value.
	Set(ctx context.Context, key, value string) error
	// String returns the setting value, or fallback when absent.
	String(ctx context.Context, key, fallback string) (string, error)
	// Int returns the setting parsed as int, or fallback when absent or unparseable.
	Int(ctx context.Context, key string, fallback int) (int, error)
	// Bool returns the setting parsed as bool, or fallback when absent or unparseable.
	Bool(ctx context.Context, key string, fallback bool) (bool, error)
	// Duration returns the setting parsed as a human duration ("7d", "24h",
	// "90m"), or fallback when absent or unparseable.
	Duration(ctx context.Context, key string, fallback time.Duration) (time.Duration, error)
}

// CityRepository defines operations for weather city persistence.
type CityRepository interface {
	// Create creates a new city.
	Create(ctx context.Context, city *models.City) error
	// GetByID retrieves a city by ID.
	GetByID(ctx context.Context, id models.ULID) (*models.City, error)
	// GetByName retrieves a city by name.
	GetByName(ctx context.Context, name string) (*models.City, error)
	// GetAll retrieves all cities ordered by name.
	GetAll(ctx context.Context) ([]*models.City, error)
	// GetActive retrieves all active cities ordered by name.
	GetActive(ctx context.Context) ([]*models.City, error)
	// Update updates an existing city.
	Update(ctx context.Context, city *models.City) error
	// Delete deletes a city by ID.
	Delete(ctx context.Context, id models.ULID) error
	// PickForRotation selects up to n active cities, least-used first with
	// random tie-breaking, and increments their use counts in the same
	// transaction.
	PickForRotation(ctx context.Context, n int) ([]*models.City, error)
}

// FeedSourceRepository defines operations for RSS feed source persistence.
type FeedSourceRepository interface {
	// Create creates a new feed source.
	Create(ctx context.Context, source *models.FeedSource) error
	// GetByID retrieves a feed source by ID.
	GetByID(ctx context.Context, id models.ULID) (*models.FeedSource, error)
	// GetByName retrieves a feed source by name.
	GetByName(ctx context.Context, name string) (*models.FeedSource, error)
	// GetAll retrieves all feed sources ordered by name.
	GetAll(ctx context.Context) ([]*models.FeedSource, error)
	// GetPollable retrieves active sources that are not marked dead,
	// ordered by name. Dead sources sit out until re-enabled.
	GetPollable(ctx context.Context) ([]*models.FeedSource, error)
	// Update updates an existing feed source.
	Update(ctx context.Context, source *models.FeedSource) error
	// Delete deletes a feed source by ID.
	Delete(ctx context.Context, id models.ULID) error
	// HealthCounts returns how many active sources are healthy, and how many
	// are active in total.
	HealthCounts(ctx context.Context) (healthy, total int64, err error)
}

// HeadlineRepository defines operations for news headline persistence.
type HeadlineRepository interface {
	// Store inserts a headline unless its dedupe identity already exists.
	// Returns true when a new row was written.
	Store(ctx context.Context, headline *models.Headline) (bool, error)
	// GetByID retrieves a headline by ID.
	GetByID(ctx context.Context, id models.ULID) (*models.Headline, error)
	// GetUnscored retrieves headlines awaiting LM scoring, newest first.
	GetUnscored(ctx context.Context, limit int) ([]*models.Headline, error)
	// SetScore writes the LM newsworthiness score for a headline.
	SetScore(ctx context.Context, id models.ULID, score int) error
	// TopHeadlines retrieves up to n scored headlines fetched within the
	// window, best-scored first, excluding the given IDs (stories already
	// used in a recent break). Unscored and low-scored items never
	// qualify; the list may come back short.
	TopHeadlines(ctx context.Context, n int, window time.Duration, exclude []models.ULID) ([]*models.Headline, error)
	// BreakingCandidates retrieves headlines within the window whose score
	// meets the threshold and which have not yet triggered a breaking break.
	BreakingCandidates(ctx context.Context, threshold int, window time.Duration) ([]*models.Headline, error)
	// MarkBreaking flags a headline as having triggered a breaking break.
	MarkBreaking(ctx context.Context, id models.ULID) error
	// CountSince returns how many headlines were fetched since the given time.
	CountSince(ctx context.Context, since time.Time) (int64, error)
	// DeleteOlderThan removes headlines fetched before the given time.
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}

// WeatherCacheRepository defines operations for per-city weather cache rows.
type WeatherCacheRepository interface {
	// GetByCity retrieves the cached observation for a city. Returns nil
	// when the city has never been fetched.
	GetByCity(ctx context.Context, city string) (*models.WeatherCache, error)
	// Upsert writes the observation for a city, replacing any previous row.
	Upsert(ctx context.Context, obs *models.WeatherCache) error
}

// MarketCacheRepository defines operations for market quote cache rows.
type MarketCacheRepository interface {
	// GetBySymbol retrieves the cached quote for a symbol. Returns nil when
	// the symbol has never been fetched.
	GetBySymbol(ctx context.Context, symbol string) (*models.MarketCache, error)
	// Upsert writes the quote for a symbol, replacing any previous row.
	Upsert(ctx context.Context, quote *models.MarketCache) error
}

// HostRepository defines operations for host persona persistence.
type HostRepository interface {
	// Create creates a new host.
	Create(ctx context.Context, host *models.Host) error
	// GetBySlug retrieves a host by slug.
	GetBySlug(ctx context.Context, slug string) (*models.Host, error)
	// GetAll retrieves all hosts ordered by slug.
	GetAll(ctx context.Context) ([]*models.Host, error)
	// GetActive retrieves all active hosts ordered by slug.
	GetActive(ctx context.Context) ([]*models.Host, error)
	// GetBreakingHost retrieves the active host flagged for breaking news.
	GetBreakingHost(ctx context.Context) (*models.Host, error)
	// Update updates an existing host.
	Update(ctx context.Context, host *models.Host) error
}

// RotationRepository persists the break ordinal behind host rotation.
type RotationRepository interface {
	// Current returns the rotation state. A missing row reads as break zero.
	Current(ctx context.Context) (*models.RotationState, error)
	// Record upserts the rotation state after a host takes a break.
	Record(ctx context.Context, breakCount int, hostSlug string) error
}

// BreakRepository defines operations for break queue persistence.
type BreakRepository interface {
	// Create creates a new break.
	Create(ctx context.Context, brk *models.Break) error
	// GetByID retrieves a break by ID.
	GetByID(ctx context.Context, id models.ULID) (*models.Break, error)
	// Update persists the break's current state.
	Update(ctx context.Context, brk *models.Break) error
	// GetRecent retrieves the newest breaks, most recent first.
	GetRecent(ctx context.Context, limit int) ([]*models.Break, error)
	// GetByStatus retrieves breaks in a given status, oldest first.
	GetByStatus(ctx context.Context, status models.BreakStatus) ([]*models.Break, error)
	// GetLatestByStatus retrieves the newest break in a given status.
	GetLatestByStatus(ctx context.Context, status models.BreakStatus) (*models.Break, error)
	// GetLastByKind retrieves the most recently created break of a kind,
	// regardless of status. Used for the scheduled-build cooldown.
	GetLastByKind(ctx context.Context, kind models.BreakKind) (*models.Break, error)
	// CountPreparingNonBreaking counts scheduled breaks currently PREPARING.
	// The admission gate allows at most one.
	CountPreparingNonBreaking(ctx context.Context) (int64, error)
	// GetPlayedWithVideo retrieves PLAYED breaks that have a rendered video,
	// most recently played first.
	GetPlayedWithVideo(ctx context.Context, limit int) ([]*models.Break, error)
	// CountCreatedSince returns how many breaks were created since the given time.
	CountCreatedSince(ctx context.Context, since time.Time) (int64, error)
	// CountByStatusSince returns how many breaks created since the given
	// time are in the given status.
	CountByStatusSince(ctx context.Context, status models.BreakStatus, since time.Time) (int64, error)
	// RecentHeadlineIDs collects the headline IDs recorded in the meta of
	// the last lookback breaks that reached READY or beyond. The gather
	// stage excludes these so consecutive breaks do not repeat stories.
	RecentHeadlineIDs(ctx context.Context, lookback int) ([]models.ULID, error)
	// FailStalePreparing marks every PREPARING break FAILED with the given
	// reason. Returns the number of breaks abandoned.
	FailStalePreparing(ctx context.Context, reason string) (int64, error)
	// DeleteFailedOlderThan removes FAILED breaks created before the given time.
	DeleteFailedOlderThan(ctx context.Context, before time.Time) (int64, error)
}

// EventRepository defines operations for the operational event log.
type EventRepository interface {
	// Insert creates a new event.
	Insert(ctx context.Context, event *models.Event) error
	// Log creates an event from its parts. A non-nil detail is marshaled to
	// JSON. Logging failures are returned but callers typically only log them.
	Log(ctx context.Context, eventType, message string, detail any) error
	// LogLatency creates an event that also records an operation latency.
	LogLatency(ctx context.Context, eventType, message string, detail any, latency time.Duration) error
	// List retrieves events newest first. A non-empty typeFilter matches
	// event types by prefix. Returns the page and the total match count.
	List(ctx context.Context, typeFilter string, limit, offset int) ([]*models.Event, int64, error)
	// CountByTypeSince counts events of a type prefix since the given time.
	CountByTypeSince(ctx context.Context, typePrefix string, since time.Time) (int64, error)
	// DeleteOlderThan removes events created before the given time.
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}

// TemplateRepository defines operations for fallback script templates.
type TemplateRepository interface {
	// Create creates a new script template.
	Create(ctx context.Context, tmpl *models.ScriptTemplate) error
	// GetAll retrieves all templates ordered by name.
	GetAll(ctx context.Context) ([]*models.ScriptTemplate, error)
	// PickNext selects the least-used active template with random
	// tie-breaking and increments its use count. Returns nil when no active
	// template exists.
	PickNext(ctx context.Context) (*models.ScriptTemplate, error)
}
