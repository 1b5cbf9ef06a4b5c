// Package publish implements the final pipeline stage: media publication,
// the READY transition, and the playout push.
package publish

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/hermesradio/hermes/internal/models"
	"github.com/hermesradio/hermes/internal/pipeline/core"
	"github.com/hermesradio/hermes/internal/pipeline/shared"
	"github.com/hermesradio/hermes/internal/repository"
	"github.com/hermesradio/hermes/internal/storage"
)

const (
	// StageID is the unique identifier for this stage.
	StageID = "publish"
	// StageName is the human-readable name for this stage.
	StageName = "Publish Break"
)

// Stage moves the finished media out of the build directory, marks the
// break READY, and offers it to playout. A failed push leaves the break
// READY for a later retry; the track counter is realigned either way so the
// next scheduled break keeps its spacing.
type Stage struct {
	shared.BaseStage
	breaks  repository.BreakRepository
	events  repository.EventRepository
	sandbox *storage.Sandbox
	playout core.Playout
	watcher core.PlayedWatcher
	tracks  core.TrackSource
	logger  *slog.Logger
}

// New creates a new publish stage.
func New(
	breaks repository.BreakRepository,
	events repository.EventRepository,
	sandbox *storage.Sandbox,
	playout core.Playout,
	watcher core.PlayedWatcher,
	tracks core.TrackSource,
) *Stage {
	return &Stage{
		BaseStage: shared.NewBaseStage(StageID, StageName),
		breaks:    breaks,
		events:    events,
		sandbox:   sandbox,
		playout:   playout,
		watcher:   watcher,
		tracks:    tracks,
	}
}

// NewConstructor returns a stage constructor for use with the factory.
func NewConstructor() core.StageConstructor {
	return func(deps *core.Dependencies) core.Stage {
		s := New(deps.Breaks, deps.Events, deps.Sandbox, deps.Playout, deps.Watcher, deps.Tracks)
		if deps.Logger != nil {
			s.logger = deps.Logger.With("stage", StageID)
		}
		return s
	}
}

// Execute publishes the break.
func (s *Stage) Execute(ctx context.Context, state *core.State) (*core.StageResult, error) {
	result := shared.NewResult()
	brk := state.Break

	if err := s.publishMedia(ctx, state, brk); err != nil {
		return nil, err
	}

	brk.Script = state.Script
	brk.DialogJSON = string(state.DialogJSON)
	brk.DegradationLevel = state.Rung
	if err := brk.SetMeta(buildMeta(state)); err != nil {
		state.AddError(fmt.Errorf("encoding break meta: %w", err))
	}
	if err := brk.MarkReady(); err != nil {
		return nil, fmt.Errorf("marking break ready: %w", err)
	}
	if err := s.breaks.Update(ctx, brk); err != nil {
		return nil, fmt.Errorf("persisting break: %w", err)
	}

	if err := s.events.LogLatency(ctx, models.EventBreakReady, "break ready",
		map[string]any{
			"break_id":          brk.ID.String(),
			"degradation_level": state.Rung,
		}, state.Duration()); err != nil {
		s.log(ctx, slog.LevelWarn, "event write failed",
			slog.String("event_type", models.EventBreakReady),
			slog.String("error", err.Error()))
	}
	if state.Rung >= models.DegradationTemplate {
		s.logEvent(ctx, models.EventBreakDegraded, "break degraded", map[string]any{
			"break_id": brk.ID.String(),
			"rung":     state.Rung,
		})
	}

	pushed := s.push(ctx, state, brk)

	// The counter realigns even after a failed push: the next scheduled
	// break is spaced from this attempt, not from the track count the
	// failure left behind.
	if s.playout != nil {
		if err := s.playout.ResetCounter(ctx); err != nil {
			s.log(ctx, slog.LevelWarn, "counter reset failed",
				slog.String("error", err.Error()))
		}
	}
	if s.tracks != nil {
		s.tracks.Reset()
	}

	if pushed && s.watcher != nil {
		s.watcher.Watch(brk.ID, brk.AudioPath)
	}

	result.RecordsProcessed = 1
	result.Message = string(brk.Status)
	result.Artifacts = append(result.Artifacts,
		core.NewArtifact(core.ArtifactTypeAudio, core.ProcessingStagePublished, StageID).
			WithFilePath(brk.AudioPath).
			WithRecordCount(1))

	s.log(ctx, slog.LevelInfo, "break published",
		slog.String("break_id", brk.ID.String()),
		slog.String("status", string(brk.Status)),
		slog.Int("rung", state.Rung),
		slog.Bool("video", brk.VideoPath != ""))

	return result, nil
}

// publishMedia moves the build artifacts into the breaks directory. Sting
// breaks play the shared asset in place; nothing is copied for them.
func (s *Stage) publishMedia(ctx context.Context, state *core.State, brk *models.Break) error {
	if state.Rung >= models.DegradationSting {
		brk.AudioPath = state.StingPath
		return nil
	}

	audioRel := filepath.Join(storage.BreaksDir, brk.ID.String()+".mp3")
	if err := s.sandbox.AtomicPublish(state.AudioPath, audioRel); err != nil {
		return fmt.Errorf("publishing audio: %w", err)
	}
	audioAbs, err := s.sandbox.ResolvePath(audioRel)
	if err != nil {
		return fmt.Errorf("resolving audio path: %w", err)
	}
	brk.AudioPath = audioAbs

	if state.VideoPath == "" {
		return nil
	}
	videoRel := filepath.Join(storage.BreaksDir, brk.ID.String()+".mp4")
	if err := s.sandbox.AtomicPublish(state.VideoPath, videoRel); err != nil {
		// Video is additive; losing it downgrades the break to audio-only.
		state.AddError(fmt.Errorf("publishing video: %w", err))
		s.log(ctx, slog.LevelWarn, "video publish failed, break stays audio-only",
			slog.String("error", err.Error()))
		return nil
	}
	videoAbs, err := s.sandbox.ResolvePath(videoRel)
	if err != nil {
		state.AddError(fmt.Errorf("resolving video path: %w", err))
		return nil
	}
	brk.VideoPath = videoAbs
	return nil
}

// push offers the break to playout. Returns true when playout accepted it
// and the row moved to PUSHED.
func (s *Stage) push(ctx context.Context, state *core.State, brk *models.Break) bool {
	if s.playout == nil {
		s.log(ctx, slog.LevelWarn, "no playout configured, break stays ready",
			slog.String("break_id", brk.ID.String()))
		return false
	}

	if err := s.playout.PushBreak(ctx, brk.AudioPath); err != nil {
		state.AddError(fmt.Errorf("pushing break: %w", err))
		s.log(ctx, slog.LevelError, "playout push failed, break stays ready",
			slog.String("break_id", brk.ID.String()),
			slog.String("error", err.Error()))
		s.logEvent(ctx, models.EventPlayoutError, "break push failed", map[string]any{
			"break_id": brk.ID.String(),
			"error":    err.Error(),
		})
		return false
	}

	if err := brk.MarkPushed(); err != nil {
		state.AddError(err)
		return false
	}
	if err := s.breaks.Update(ctx, brk); err != nil {
		// Playout has the break either way; the row catches up when the
		// monitor marks it played.
		state.AddError(fmt.Errorf("persisting push: %w", err))
	}
	s.logEvent(ctx, models.EventBreakPushed, "break pushed to playout", map[string]any{
		"break_id": brk.ID.String(),
	})
	return true
}

// buildMeta assembles the context stored on the break row.
func buildMeta(state *core.State) *models.BreakMeta {
	meta := &models.BreakMeta{
		HeadlineIDs:   state.HeadlineIDs,
		WeatherCities: shared.CityNames(state.Weather),
		Note:          state.Note,
	}
	if state.Quote != nil {
		meta.QuotePriceUSD = state.Quote.PriceUSD
		meta.QuoteChange = state.Quote.Change24h
	}
	return meta
}

// logEvent writes an operational event, downgrading write failures to a log
// line so publication never stalls on the event table.
func (s *Stage) logEvent(ctx context.Context, eventType, message string, detail any) {
	if err := s.events.Log(ctx, eventType, message, detail); err != nil {
		s.log(ctx, slog.LevelWarn, "event write failed",
			slog.String("event_type", eventType),
			slog.String("error", err.Error()))
	}
}

// log logs a message if the logger is set.
func (s *Stage) log(ctx context.Context, level slog.Level, msg string, attrs ...any) {
	if s.logger != nil {
		s.logger.Log(ctx, level, msg, attrs...)
	}
}

// Ensure Stage implements core.Stage.
var _ core.Stage = (*Stage)(nil)
