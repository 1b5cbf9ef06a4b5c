package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/hermesradio/hermes/internal/models"
	"github.com/hermesradio/hermes/internal/observability"
	"github.com/hermesradio/hermes/internal/pipeline"
	"github.com/hermesradio/hermes/internal/repository"
)

// defaultPrepareAtTrack matches the seeded prepare_at_track setting.
const defaultPrepareAtTrack = 3

// TrackTrigger requests a scheduled build when the playout track counter
// reaches the prepare-at threshold, so a break is ready before the slot the
// counter predicts. Builds run in the background; the caller is a webhook
// or poll handler that must not block on a full pipeline run.
type TrackTrigger struct {
	builder  BreakBuilder
	settings repository.SettingRepository
	quiet    func(ctx context.Context) (bool, string)
	logger   *slog.Logger

	mu       sync.Mutex
	building bool
}

// NewTrackTrigger creates a track trigger sharing the scheduler's quiet-hour
// rule.
func NewTrackTrigger(builder BreakBuilder, settings repository.SettingRepository, sched *Scheduler, logger *slog.Logger) *TrackTrigger {
	return &TrackTrigger{
		builder:  builder,
		settings: settings,
		quiet:    sched.quietNow,
		logger:   observability.WithComponent(logger, "track-trigger"),
	}
}

// TrackChanged handles one track-counter observation. It returns the action
// taken: "prepare_break" when a build was launched, "none" otherwise.
func (t *TrackTrigger) TrackChanged(ctx context.Context, count int) string {
	prepareAt, err := t.settings.Int(ctx, models.SettingPrepareAtTrack, defaultPrepareAtTrack)
	if err != nil || prepareAt < 1 {
		prepareAt = defaultPrepareAtTrack
	}
	if count != prepareAt {
		return "none"
	}

	if quiet, window := t.quiet(ctx); quiet {
		t.logger.InfoContext(ctx, "track trigger suppressed, quiet hours",
			slog.String("window", window))
		return "none"
	}

	t.mu.Lock()
	if t.building {
		t.mu.Unlock()
		return "none"
	}
	t.building = true
	t.mu.Unlock()

	t.logger.InfoContext(ctx, "track threshold reached, preparing break",
		slog.Int("track_count", count))

	// The build must survive the webhook request ending.
	bgCtx := context.WithoutCancel(ctx)
	go func() {
		defer func() {
			t.mu.Lock()
			t.building = false
			t.mu.Unlock()
		}()

		_, err := t.builder.BuildScheduled(bgCtx)
		switch {
		case errors.Is(err, pipeline.ErrAlreadyPreparing), errors.Is(err, pipeline.ErrCooldown):
		case err != nil:
			t.logger.Error("track-triggered build failed", slog.Any("error", err))
		}
	}()

	return "prepare_break"
}
