// Package gather implements the material gathering pipeline stage.
package gather

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hermesradio/hermes/internal/models"
	"github.com/hermesradio/hermes/internal/pipeline/core"
	"github.com/hermesradio/hermes/internal/pipeline/shared"
	"github.com/hermesradio/hermes/internal/provider/llm"
	"github.com/hermesradio/hermes/internal/provider/market"
	"github.com/hermesradio/hermes/internal/provider/weather"
	"github.com/hermesradio/hermes/internal/repository"
)

const (
	// StageID is the unique identifier for this stage.
	StageID = "gather"
	// StageName is the human-readable name for this stage.
	StageName = "Gather Material"
)

const (
	// topHeadlineCount is how many stories one break covers.
	topHeadlineCount = 3

	// recentBreakLookback is how many recent breaks contribute their
	// headline IDs to the repeat-story exclusion.
	recentBreakLookback = 2

	// recentTrackContext is how many recent tracks the writer sees.
	recentTrackContext = 5

	defaultCitiesPerBreak  = 2
	defaultDedupeWindowMin = 240
	defaultBreakingScore   = 8
)

// Stage collects everything the writer needs: weather observations, scored
// headlines, the market quote, and the recent track history. Every fetch is
// best-effort; a provider failure leaves its slot empty and the build
// degrades instead of failing.
type Stage struct {
	shared.BaseStage
	weather   core.WeatherSource
	market    core.MarketSource
	feeds     core.FeedFetcher
	scorer    core.HeadlineScorer
	headlines repository.HeadlineRepository
	breaks    repository.BreakRepository
	settings  repository.SettingRepository
	tracks    core.TrackSource
	logger    *slog.Logger
}

// New creates a new gather stage.
func New(
	weatherSource core.WeatherSource,
	marketSource core.MarketSource,
	feeds core.FeedFetcher,
	scorer core.HeadlineScorer,
	headlines repository.HeadlineRepository,
	breaks repository.BreakRepository,
	settings repository.SettingRepository,
	tracks core.TrackSource,
) *Stage {
	return &Stage{
		BaseStage: shared.NewBaseStage(StageID, StageName),
		weather:   weatherSource,
		market:    marketSource,
		feeds:     feeds,
		scorer:    scorer,
		headlines: headlines,
		breaks:    breaks,
		settings:  settings,
		tracks:    tracks,
	}
}

// NewConstructor returns a stage constructor for use with the factory.
func NewConstructor() core.StageConstructor {
	return func(deps *core.Dependencies) core.Stage {
		s := New(deps.Weather, deps.Market, deps.Feeds, deps.Scorer,
			deps.Headlines, deps.Breaks, deps.Settings, deps.Tracks)
		if deps.Logger != nil {
			s.logger = deps.Logger.With("stage", StageID)
		}
		return s
	}
}

// Execute gathers weather, news, and market data concurrently. Results are
// applied to the state only after every fetch returns; the goroutines never
// touch shared slices.
func (s *Stage) Execute(ctx context.Context, state *core.State) (*core.StageResult, error) {
	result := shared.NewResult()

	s.log(ctx, slog.LevelInfo, "gathering material",
		slog.Bool("breaking", state.Breaking))

	var (
		observations []*weather.Observation
		stories      []llm.Story
		ids          []models.ULID
		quote        *market.Quote

		weatherErr, newsErr, marketErr error
	)

	var g errgroup.Group
	g.Go(func() error {
		observations, weatherErr = s.fetchWeather(ctx)
		return nil
	})
	g.Go(func() error {
		stories, ids, newsErr = s.fetchStories(ctx, state.Breaking)
		return nil
	})
	g.Go(func() error {
		quote, marketErr = s.fetchQuote(ctx)
		return nil
	})
	_ = g.Wait()

	for _, err := range []error{weatherErr, newsErr, marketErr} {
		if err != nil {
			state.AddError(err)
			s.log(ctx, slog.LevelWarn, "gather degraded",
				slog.String("error", err.Error()))
		}
	}

	state.Weather = observations
	state.Stories = stories
	state.HeadlineIDs = ids
	state.Quote = quote
	if s.tracks != nil {
		state.Tracks = s.tracks.Recent(recentTrackContext)
	}

	result.RecordsProcessed = len(state.Weather) + len(state.Stories)
	result.Message = fmt.Sprintf("%d cities, %d stories", len(state.Weather), len(state.Stories))

	s.log(ctx, slog.LevelInfo, "material gathered",
		slog.Int("cities", len(state.Weather)),
		slog.Int("stories", len(state.Stories)),
		slog.Bool("market", state.Quote != nil),
		slog.Int("tracks", len(state.Tracks)))

	return result, nil
}

// fetchWeather picks this break's cities and reads their observations.
// Per-city failures are already absorbed by the provider's cache layer.
func (s *Stage) fetchWeather(ctx context.Context) ([]*weather.Observation, error) {
	n, err := s.settings.Int(ctx, models.SettingWeatherCitiesPerBreak, defaultCitiesPerBreak)
	if err != nil {
		n = defaultCitiesPerBreak
	}

	cities, err := s.weather.PickCities(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("picking cities: %w", err)
	}
	return s.weather.CurrentForCities(ctx, cities), nil
}

// fetchStories refreshes the feeds, scores the backlog, and selects the
// break's headlines. Refresh and scoring failures only mean staler or
// unscored stories, so the selection still runs.
func (s *Stage) fetchStories(ctx context.Context, breaking bool) ([]llm.Story, []models.ULID, error) {
	if s.feeds != nil {
		if _, err := s.feeds.FetchAll(ctx); err != nil {
			s.log(ctx, slog.LevelWarn, "feed refresh failed",
				slog.String("error", err.Error()))
		}
	}
	if s.scorer != nil {
		if _, err := s.scorer.ScorePending(ctx); err != nil {
			s.log(ctx, slog.LevelWarn, "headline scoring failed",
				slog.String("error", err.Error()))
		}
	}

	windowMin, err := s.settings.Int(ctx, models.SettingNewsDedupeWindowMin, defaultDedupeWindowMin)
	if err != nil {
		windowMin = defaultDedupeWindowMin
	}
	window := time.Duration(windowMin) * time.Minute

	if breaking {
		if stories, ids := s.breakingStories(ctx, window); len(stories) > 0 {
			return stories, ids, nil
		}
		// No candidate above the threshold; a manual trigger still gets
		// the regular top stories.
	}

	exclude, err := s.breaks.RecentHeadlineIDs(ctx, recentBreakLookback)
	if err != nil {
		s.log(ctx, slog.LevelWarn, "recent headline lookup failed",
			slog.String("error", err.Error()))
		exclude = nil
	}

	headlines, err := s.headlines.TopHeadlines(ctx, topHeadlineCount, window, exclude)
	if err != nil {
		return nil, nil, fmt.Errorf("selecting headlines: %w", err)
	}

	// When the exclusion leaves the break short, backfill with stories
	// already covered recently and tag them so the writer refers back.
	reported := make(map[models.ULID]bool)
	if len(headlines) < topHeadlineCount && len(exclude) > 0 {
		headlines = s.backfillReported(ctx, headlines, exclude, window, reported)
	}

	return shared.Stories(headlines, reported), headlineIDs(headlines), nil
}

// breakingStories selects headlines at or above the breaking threshold and
// flags them consumed so the same story cannot trigger twice.
func (s *Stage) breakingStories(ctx context.Context, window time.Duration) ([]llm.Story, []models.ULID) {
	threshold, err := s.settings.Int(ctx, models.SettingBreakingScoreThreshold, defaultBreakingScore)
	if err != nil {
		threshold = defaultBreakingScore
	}

	candidates, err := s.headlines.BreakingCandidates(ctx, threshold, window)
	if err != nil {
		s.log(ctx, slog.LevelWarn, "breaking candidate lookup failed",
			slog.String("error", err.Error()))
		return nil, nil
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	if len(candidates) > topHeadlineCount {
		candidates = candidates[:topHeadlineCount]
	}

	for _, h := range candidates {
		if err := s.headlines.MarkBreaking(ctx, h.ID); err != nil {
			s.log(ctx, slog.LevelWarn, "marking breaking headline failed",
				slog.String("headline_id", h.ID.String()),
				slog.String("error", err.Error()))
		}
	}

	return shared.Stories(candidates, nil), headlineIDs(candidates)
}

// backfillReported re-runs the selection without the exclusion and tops the
// list up, marking re-admitted stories as previously reported.
func (s *Stage) backfillReported(
	ctx context.Context,
	headlines []*models.Headline,
	exclude []models.ULID,
	window time.Duration,
	reported map[models.ULID]bool,
) []*models.Headline {
	all, err := s.headlines.TopHeadlines(ctx, topHeadlineCount, window, nil)
	if err != nil {
		s.log(ctx, slog.LevelWarn, "headline backfill failed",
			slog.String("error", err.Error()))
		return headlines
	}

	seen := make(map[models.ULID]bool, len(headlines))
	for _, h := range headlines {
		seen[h.ID] = true
	}
	excluded := make(map[models.ULID]bool, len(exclude))
	for _, id := range exclude {
		excluded[id] = true
	}

	for _, h := range all {
		if len(headlines) >= topHeadlineCount {
			break
		}
		if seen[h.ID] {
			continue
		}
		headlines = append(headlines, h)
		if excluded[h.ID] {
			reported[h.ID] = true
		}
	}
	return headlines
}

// fetchQuote reads the market quote. Nil without error means the segment
// is disabled.
func (s *Stage) fetchQuote(ctx context.Context) (*market.Quote, error) {
	if s.market == nil {
		return nil, nil
	}
	quote, err := s.market.Quote(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching market quote: %w", err)
	}
	return quote, nil
}

// headlineIDs extracts the IDs for the break meta.
func headlineIDs(headlines []*models.Headline) []models.ULID {
	ids := make([]models.ULID, 0, len(headlines))
	for _, h := range headlines {
		ids = append(ids, h.ID)
	}
	return ids
}

// log logs a message if the logger is set.
func (s *Stage) log(ctx context.Context, level slog.Level, msg string, attrs ...any) {
	if s.logger != nil {
		s.logger.Log(ctx, level, msg, attrs...)
	}
}

// Ensure Stage implements core.Stage.
var _ core.Stage = (*Stage)(nil)
