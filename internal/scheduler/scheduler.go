// Package scheduler drives break production: the drift-bounded cadence
// loop, the track-count trigger, and the cron-based maintenance jobs.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/hermesradio/hermes/internal/models"
	"github.com/hermesradio/hermes/internal/observability"
	"github.com/hermesradio/hermes/internal/pipeline"
	"github.com/hermesradio/hermes/internal/repository"
)

// defaultIntervalMinutes matches the seeded break_interval_minutes setting.
const defaultIntervalMinutes = 20

// BreakBuilder is the slice of the pipeline the scheduler drives.
type BreakBuilder interface {
	BuildScheduled(ctx context.Context) (*pipeline.Result, error)
}

// Scheduler fires scheduled break builds on a fixed cadence. The first fire
// is immediate; after that each fire is planned one interval after the
// previous PLANNED fire, so drift never exceeds one interval. Builds run
// detached from the loop: the next slot arms without waiting, the builder's
// admission gate refuses an overlapping fire, and stopping the scheduler
// leaves an in-flight build to finish on its own. The interval and
// quiet-hour settings are re-read on every arm, so operator changes take
// effect at the next fire without a restart.
type Scheduler struct {
	builder  BreakBuilder
	settings repository.SettingRepository
	events   repository.EventRepository
	clock    Clock
	logger   *slog.Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a scheduler. A nil clock gets the wall clock.
func New(builder BreakBuilder, settings repository.SettingRepository, events repository.EventRepository, clock Clock, logger *slog.Logger) *Scheduler {
	if clock == nil {
		clock = realClock{}
	}
	return &Scheduler{
		builder:  builder,
		settings: settings,
		events:   events,
		clock:    clock,
		logger:   observability.WithComponent(logger, "scheduler"),
	}
}

// Start launches the cadence loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx != nil {
		return fmt.Errorf("scheduler already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.loop()

	s.logger.Info("scheduler started")
	return nil
}

// Stop terminates the loop and waits for it to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	s.wg.Wait()

	s.mu.Lock()
	s.ctx = nil
	s.cancel = nil
	s.mu.Unlock()

	s.logger.Info("scheduler stopped")
}

// loop is the cadence loop: fire, plan the next slot, wait, repeat.
func (s *Scheduler) loop() {
	defer s.wg.Done()

	planned := s.clock.Now()
	for {
		s.fire(s.ctx)

		planned = planned.Add(s.interval(s.ctx))
		// A wait that overshot its whole slot realigns to now instead of
		// queueing makeup fires.
		if now := s.clock.Now(); planned.Before(now) {
			planned = now
		}

		select {
		case <-s.ctx.Done():
			return
		case <-s.clock.After(planned.Sub(s.clock.Now())):
		}
	}
}

// fire runs one slot: skip during quiet hours, otherwise build.
func (s *Scheduler) fire(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	if quiet, window := s.quietNow(ctx); quiet {
		s.logger.InfoContext(ctx, "scheduled break skipped, quiet hours",
			slog.String("window", window))
		if err := s.events.Log(ctx, models.EventBreakSkipped, "scheduled break skipped, quiet hours", map[string]string{
			"window": window,
		}); err != nil {
			s.logger.WarnContext(ctx, "recording skip event failed", slog.Any("error", err))
		}
		return
	}

	// The build runs detached from the loop's lifetime: stopping the
	// scheduler must not abort a break mid-assembly.
	buildCtx := context.WithoutCancel(ctx)
	go func() {
		result, err := s.builder.BuildScheduled(buildCtx)
		switch {
		case errors.Is(err, pipeline.ErrAlreadyPreparing), errors.Is(err, pipeline.ErrCooldown), errors.Is(err, pipeline.ErrBuildAlreadyRunning):
			// The builder logged the refusal; the slot just passes.
		case err != nil:
			s.logger.ErrorContext(buildCtx, "scheduled build failed", slog.Any("error", err))
		default:
			s.logger.InfoContext(buildCtx, "scheduled build finished",
				slog.String("break_id", result.BreakID.String()),
				slog.Bool("success", result.Success),
				slog.Int("rung", result.Rung))
		}
	}()
}

// Running reports whether the cadence loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx != nil
}

// QuietNow reports whether quiet hours currently suppress scheduled breaks,
// and the configured window.
func (s *Scheduler) QuietNow(ctx context.Context) (bool, string) {
	return s.quietNow(ctx)
}

// Interval returns the current cadence.
func (s *Scheduler) Interval(ctx context.Context) time.Duration {
	return s.interval(ctx)
}

// interval reads the cadence setting, clamped to at least a minute.
func (s *Scheduler) interval(ctx context.Context) time.Duration {
	minutes, err := s.settings.Int(ctx, models.SettingBreakIntervalMinutes, defaultIntervalMinutes)
	if err != nil || minutes < 1 {
		minutes = defaultIntervalMinutes
	}
	return time.Duration(minutes) * time.Minute
}

// quietNow reports whether the current time falls inside the configured
// quiet hours, and returns the window for logging.
func (s *Scheduler) quietNow(ctx context.Context) (bool, string) {
	enabled, err := s.settings.Bool(ctx, models.SettingQuietMode, false)
	if err != nil || !enabled {
		return false, ""
	}

	start, _ := s.settings.String(ctx, models.SettingQuietHoursStart, "00:00")
	end, _ := s.settings.String(ctx, models.SettingQuietHoursEnd, "06:00")
	window := start + "-" + end

	return inQuietWindow(s.clock.Now(), start, end), window
}

// inQuietWindow reports whether t falls inside [start, end), where both are
// HH:MM wall times and the window may wrap midnight. Malformed bounds
// disable the window rather than silencing the station.
func inQuietWindow(t time.Time, start, end string) bool {
	startMin, okS := parseWallMinutes(start)
	endMin, okE := parseWallMinutes(end)
	if !okS || !okE || startMin == endMin {
		return false
	}

	nowMin := t.Hour()*60 + t.Minute()
	if startMin < endMin {
		return nowMin >= startMin && nowMin < endMin
	}
	// Wraps midnight, e.g. 23:00-06:00.
	return nowMin >= startMin || nowMin < endMin
}

// parseWallMinutes parses "HH:MM" into minutes since midnight.
func parseWallMinutes(s string) (int, bool) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, false
	}
	var h, m int
	if _, err := fmt.Sscanf(parts[0], "%d", &h); err != nil {
		return 0, false
	}
	if _, err := fmt.Sscanf(parts[1], "%d", &m); err != nil {
		return 0, false
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}
