package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/hermesradio/hermes/internal/models"
	"github.com/hermesradio/hermes/internal/observability"
	"github.com/hermesradio/hermes/internal/repository"
	"github.com/hermesradio/hermes/internal/service"
	"github.com/hermesradio/hermes/internal/storage"
)

// Retention defaults, matching the seeded settings.
const (
	defaultEventsRetention       = 7 * 24 * time.Hour
	defaultNewsRetention         = 24 * time.Hour
	defaultFailedBreaksRetention = 7 * 24 * time.Hour

	// tempMaxAge is how long an orphaned build temp dir may linger before
	// the sweep removes it.
	tempMaxAge = 6 * time.Hour
)

// Maintenance runs the nightly housekeeping on a cron schedule: prune aged
// events, headlines, and FAILED breaks per the retention settings, sweep
// orphaned temp dirs, and write the daily stats rollup to the event log.
type Maintenance struct {
	events    repository.EventRepository
	headlines repository.HeadlineRepository
	breaks    repository.BreakRepository
	settings  repository.SettingRepository
	sandbox   *storage.Sandbox
	stats     *service.Stats
	logger    *slog.Logger

	cron *cron.Cron
}

// NewMaintenance creates the maintenance job. Call Start to schedule it.
func NewMaintenance(
	events repository.EventRepository,
	headlines repository.HeadlineRepository,
	breaks repository.BreakRepository,
	settings repository.SettingRepository,
	sandbox *storage.Sandbox,
	stats *service.Stats,
	logger *slog.Logger,
) *Maintenance {
	return &Maintenance{
		events:    events,
		headlines: headlines,
		breaks:    breaks,
		settings:  settings,
		sandbox:   sandbox,
		stats:     stats,
		logger:    observability.WithComponent(logger, "maintenance"),
	}
}

// Start schedules the job with a 6-field cron spec (seconds first).
func (m *Maintenance) Start(spec string) error {
	m.cron = cron.New(cron.WithSeconds())
	if _, err := m.cron.AddFunc(spec, func() { m.Run(context.Background()) }); err != nil {
		return fmt.Errorf("scheduling maintenance %q: %w", spec, err)
	}
	m.cron.Start()
	m.logger.Info("maintenance scheduled", slog.String("cron", spec))
	return nil
}

// Stop cancels the schedule and waits for a running job to finish.
func (m *Maintenance) Stop() {
	if m.cron == nil {
		return
	}
	<-m.cron.Stop().Done()
}

// Run executes one maintenance pass. It is also reachable on demand for
// operators; each sub-task failure is logged and the rest still run.
func (m *Maintenance) Run(ctx context.Context) {
	start := time.Now()
	now := time.Now()

	summary := map[string]any{}

	eventsRetention, _ := m.settings.Duration(ctx, models.SettingEventsRetention, defaultEventsRetention)
	if n, err := m.events.DeleteOlderThan(ctx, now.Add(-eventsRetention)); err != nil {
		m.logger.WarnContext(ctx, "pruning events failed", slog.Any("error", err))
	} else {
		summary["events_pruned"] = n
	}

	newsRetention, _ := m.settings.Duration(ctx, models.SettingNewsRetention, defaultNewsRetention)
	if n, err := m.headlines.DeleteOlderThan(ctx, now.Add(-newsRetention)); err != nil {
		m.logger.WarnContext(ctx, "pruning headlines failed", slog.Any("error", err))
	} else {
		summary["headlines_pruned"] = n
	}

	breaksRetention, _ := m.settings.Duration(ctx, models.SettingFailedBreaksRetention, defaultFailedBreaksRetention)
	if n, err := m.breaks.DeleteFailedOlderThan(ctx, now.Add(-breaksRetention)); err != nil {
		m.logger.WarnContext(ctx, "pruning failed breaks failed", slog.Any("error", err))
	} else {
		summary["failed_breaks_pruned"] = n
	}

	if m.sandbox != nil {
		if n, err := m.sandbox.SweepTemp(tempMaxAge); err != nil {
			m.logger.WarnContext(ctx, "sweeping temp dirs failed", slog.Any("error", err))
		} else {
			summary["temp_dirs_swept"] = n
		}
	}

	m.rollupStats(ctx)

	m.logger.InfoContext(ctx, "maintenance finished",
		slog.Any("summary", summary),
		slog.Duration("took", time.Since(start)))
	if err := m.events.LogLatency(ctx, models.EventMaintenance, "maintenance finished", summary, time.Since(start)); err != nil {
		m.logger.WarnContext(ctx, "recording maintenance event failed", slog.Any("error", err))
	}
}

// rollupStats writes yesterday's operating picture to the event log before
// the day's counters scroll out of retention.
func (m *Maintenance) rollupStats(ctx context.Context) {
	if m.stats == nil {
		return
	}
	snapshot, err := m.stats.Today(ctx)
	if err != nil {
		m.logger.WarnContext(ctx, "stats rollup failed", slog.Any("error", err))
		return
	}
	if err := m.events.Log(ctx, models.EventStatsDaily, "daily stats rollup", snapshot); err != nil {
		m.logger.WarnContext(ctx, "recording stats rollup failed", slog.Any("error", err))
	}
}
