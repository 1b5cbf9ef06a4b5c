package core

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hermesradio/hermes/internal/models"
	"github.com/hermesradio/hermes/internal/provider/llm"
	"github.com/hermesradio/hermes/internal/provider/market"
	"github.com/hermesradio/hermes/internal/provider/news"
	"github.com/hermesradio/hermes/internal/provider/speech"
	"github.com/hermesradio/hermes/internal/provider/weather"
	"github.com/hermesradio/hermes/internal/repository"
	"github.com/hermesradio/hermes/internal/service"
	"github.com/hermesradio/hermes/internal/storage"
)

// The stage-facing provider contracts. Stages depend on these slices of the
// provider surface rather than the concrete types, so tests can stand in
// for a whole provider with a few lines.

// WeatherSource is the slice of the weather provider the gather stage uses.
type WeatherSource interface {
	PickCities(ctx context.Context, n int) ([]*models.City, error)
	CurrentForCities(ctx context.Context, cities []*models.City) []*weather.Observation
}

// MarketSource yields the market quote. Quote returns (nil, nil) while the
// segment is disabled.
type MarketSource interface {
	Quote(ctx context.Context) (*market.Quote, error)
}

// FeedFetcher refreshes the RSS backlog. *news.Collector implements it.
type FeedFetcher interface {
	FetchAll(ctx context.Context) (*news.FetchResult, error)
}

// HeadlineScorer drains the unscored backlog. *news.Scorer implements it.
type HeadlineScorer interface {
	ScorePending(ctx context.Context) (int, error)
}

// ScriptWriter is the LM surface the script and validate stages use.
// *llm.Client implements it.
type ScriptWriter interface {
	WriteScript(ctx context.Context, req *llm.ScriptRequest) (string, error)
	WriteDialog(ctx context.Context, req *llm.DialogRequest) (json.RawMessage, error)
	RewriteScript(ctx context.Context, req *llm.ScriptRequest, script string, reasons []string) (string, error)
}

// Synthesizer produces normalized break audio. *speech.Router implements it.
type Synthesizer interface {
	Synthesize(ctx context.Context, req *speech.Request) (string, error)
}

// MediaRunner runs one ffmpeg command to completion. *ffmpeg.Runner
// implements it.
type MediaRunner interface {
	Run(ctx context.Context, args ...string) error
}

// HostPicker selects the persona fronting a break. *service.HostRotation
// implements it.
type HostPicker interface {
	NextHost(ctx context.Context, breaking bool) (*models.Host, error)
	DialogHosts(ctx context.Context) (*models.Host, *models.Host, error)
}

// Validator enforces the content rules and word budgets.
// *service.ContentFilter implements it.
type Validator interface {
	Budget(ctx context.Context, breaking bool) (service.WordBudget, error)
	Validate(ctx context.Context, script string, breaking bool) (*service.Verdict, error)
	CheckPhrases(ctx context.Context, script string, breaking bool) (*service.Verdict, error)
}

// FallbackSource walks the degradation ladder below the LM rungs.
// *service.Degradation implements it.
type FallbackSource interface {
	Fallback(ctx context.Context, observations []*weather.Observation) (*service.Fallback, error)
	StingPath(name string) string
}

// TrackSource mirrors the playout track history. *service.TrackLog
// implements it.
type TrackSource interface {
	Recent(n int) []llm.Track
	Reset()
}

// VideoRenderer renders the break video. Implementations write the MP4
// into job.WorkDir and return its path.
type VideoRenderer interface {
	Render(ctx context.Context, job *RenderJob) (string, error)
}

// RenderJob carries everything the visual pipeline needs for one break.
type RenderJob struct {
	BreakID    models.ULID
	Script     string
	DialogJSON json.RawMessage
	Host       *models.Host
	CoHost     *models.Host
	AudioPath  string
	Segments   []AudioSegment
	WorkDir    string
}

// Playout is the slice of the playout client the publish stage uses.
type Playout interface {
	PushBreak(ctx context.Context, path string) error
	ResetCounter(ctx context.Context) error
}

// PlayedWatcher is told when a break is pushed so the playout monitor can
// mark it PLAYED once it airs.
type PlayedWatcher interface {
	Watch(breakID models.ULID, audioPath string)
}

// Dependencies bundles all dependencies needed by pipeline stages.
// This reduces parameter count and makes dependency injection cleaner.
type Dependencies struct {
	Breaks    repository.BreakRepository
	Headlines repository.HeadlineRepository
	Settings  repository.SettingRepository
	Events    repository.EventRepository

	Weather WeatherSource
	Market  MarketSource
	Feeds   FeedFetcher
	Scorer  HeadlineScorer
	Writer  ScriptWriter
	Speech  Synthesizer

	Hosts     HostPicker
	Filter    Validator
	Fallbacks FallbackSource
	Tracks    TrackSource

	// FFmpeg concatenates dialog segments. Required only in dialog mode.
	FFmpeg MediaRunner

	// Video renders break MP4s. If nil, the video stage is skipped and
	// breaks publish audio-only.
	Video VideoRenderer

	// Playout pushes finished breaks to air. If nil, breaks stay READY.
	Playout Playout

	// Watcher schedules PLAYED monitoring for pushed breaks.
	// If nil, the monitor handoff is skipped.
	Watcher PlayedWatcher

	Sandbox *storage.Sandbox
	Logger  *slog.Logger
}

// Validate checks that every non-optional dependency is wired.
func (d *Dependencies) Validate() error {
	switch {
	case d.Breaks == nil:
		return NewConfigurationError("Breaks", "break repository is required")
	case d.Headlines == nil:
		return NewConfigurationError("Headlines", "headline repository is required")
	case d.Settings == nil:
		return NewConfigurationError("Settings", "setting repository is required")
	case d.Events == nil:
		return NewConfigurationError("Events", "event repository is required")
	case d.Weather == nil:
		return NewConfigurationError("Weather", "weather source is required")
	case d.Writer == nil:
		return NewConfigurationError("Writer", "script writer is required")
	case d.Speech == nil:
		return NewConfigurationError("Speech", "synthesizer is required")
	case d.Hosts == nil:
		return NewConfigurationError("Hosts", "host picker is required")
	case d.Filter == nil:
		return NewConfigurationError("Filter", "content filter is required")
	case d.Fallbacks == nil:
		return NewConfigurationError("Fallbacks", "fallback source is required")
	case d.Sandbox == nil:
		return NewConfigurationError("Sandbox", "storage sandbox is required")
	}
	return nil
}

// StageConstructor is a function that creates a stage given dependencies.
type StageConstructor func(deps *Dependencies) Stage

// Factory creates configured Orchestrator instances with all required stages.
type Factory struct {
	deps              *Dependencies
	stageConstructors []StageConstructor
}

// NewFactory creates a new pipeline Factory.
func NewFactory(deps *Dependencies) *Factory {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Factory{
		deps:              deps,
		stageConstructors: make([]StageConstructor, 0),
	}
}

// RegisterStage adds a stage constructor to the factory.
// Stages are executed in the order they are registered.
func (f *Factory) RegisterStage(constructor StageConstructor) {
	f.stageConstructors = append(f.stageConstructors, constructor)
}

// Create creates a new Orchestrator around a prepared build state.
// The returned orchestrator includes all registered stages.
func (f *Factory) Create(state *State) *Orchestrator {
	stages := make([]Stage, 0, len(f.stageConstructors))
	for _, constructor := range f.stageConstructors {
		stages = append(stages, constructor(f.deps))
	}
	return NewOrchestrator(state, stages, f.deps.Sandbox, f.deps.Logger)
}

// OrchestratorFactory defines the interface for creating orchestrators.
type OrchestratorFactory interface {
	Create(state *State) *Orchestrator
}

// Ensure Factory implements OrchestratorFactory.
var _ OrchestratorFactory = (*Factory)(nil)
