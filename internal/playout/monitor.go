package playout

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hermesradio/hermes/internal/models"
	"github.com/hermesradio/hermes/internal/observability"
	"github.com/hermesradio/hermes/internal/pipeline/core"
	"github.com/hermesradio/hermes/internal/provider/llm"
	"github.com/hermesradio/hermes/internal/repository"
	"github.com/hermesradio/hermes/internal/service"
)

// Monitor watches pushed breaks until they go to air. The push path resets
// the playout track counter, so the counter climbing back above zero means
// the queued break played and music resumed; every watched break older than
// that observation is marked PLAYED.
//
// The monitor also keeps the track-counter mirror current and exposes the
// playout heartbeat age for health reporting.
type Monitor struct {
	client   *Client
	breaks   repository.BreakRepository
	events   repository.EventRepository
	tracks   *service.TrackLog
	interval time.Duration
	logger   *slog.Logger

	mu            sync.Mutex
	watched       map[models.ULID]watchedBreak
	lastHeartbeat time.Time
	lastCount     int
	wasHealthy    bool

	started  bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

type watchedBreak struct {
	audioPath string
	pushedAt  time.Time
}

// NewMonitor creates a monitor polling at the given interval.
func NewMonitor(client *Client, breaks repository.BreakRepository, events repository.EventRepository, tracks *service.TrackLog, interval time.Duration, logger *slog.Logger) *Monitor {
	return &Monitor{
		client:   client,
		breaks:   breaks,
		events:   events,
		tracks:   tracks,
		interval: interval,
		logger:   observability.WithComponent(logger, "playout-monitor"),
		watched:  make(map[models.ULID]watchedBreak),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Watch registers a pushed break for PLAYED detection.
func (m *Monitor) Watch(breakID models.ULID, audioPath string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.watched[breakID] = watchedBreak{audioPath: audioPath, pushedAt: time.Now()}
	// The push reset the counter; a stale mirror would read as "already
	// played" on the next poll.
	m.lastCount = 0
}

// Start launches the poll loop. It returns immediately.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.mu.Unlock()

	go m.run(ctx)
}

// Stop terminates the poll loop and waits for it to exit. Stopping a
// monitor that never started is a no-op.
func (m *Monitor) Stop() {
	m.mu.Lock()
	started := m.started
	m.mu.Unlock()

	m.stopOnce.Do(func() { close(m.stop) })
	if started {
		<-m.done
	}
}

func (m *Monitor) run(ctx context.Context) {
	defer close(m.done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stop:
			return
		case <-ticker.C:
			m.poll(ctx)
		}
	}
}

// poll queries the track counter, updates the heartbeat and mirror, and
// runs played detection.
func (m *Monitor) poll(ctx context.Context) {
	pollCtx, cancel := context.WithTimeout(ctx, m.interval)
	defer cancel()

	count, err := m.client.TrackCount(pollCtx)
	if err != nil {
		m.markUnhealthy(ctx, err)
		return
	}

	m.mu.Lock()
	m.lastHeartbeat = time.Now()
	recovered := !m.wasHealthy
	m.wasHealthy = true
	m.mu.Unlock()

	if recovered {
		m.logger.InfoContext(ctx, "playout responding", slog.Int("track_count", count))
	}

	m.tracks.TrackChange(count, llm.Track{})
	m.ObserveTrackCount(ctx, count)
}

// markUnhealthy records a poll failure. The event log gets one entry per
// outage, not one per failed poll.
func (m *Monitor) markUnhealthy(ctx context.Context, err error) {
	m.mu.Lock()
	firstFailure := m.wasHealthy
	m.wasHealthy = false
	m.mu.Unlock()

	if !firstFailure {
		return
	}
	m.logger.WarnContext(ctx, "playout not responding", slog.Any("error", err))
	if logErr := m.events.Log(ctx, models.EventPlayoutError, "playout not responding", map[string]string{
		"error": err.Error(),
	}); logErr != nil {
		m.logger.WarnContext(ctx, "recording playout outage failed", slog.Any("error", logErr))
	}
}

// ObserveTrackCount feeds one track-counter reading into played detection.
// The poll loop calls it every interval; the webhook handler calls it when
// playout reports track changes directly.
func (m *Monitor) ObserveTrackCount(ctx context.Context, count int) {
	m.mu.Lock()
	played := count > 0 && len(m.watched) > 0
	var ids []models.ULID
	if played {
		for id := range m.watched {
			ids = append(ids, id)
		}
		m.watched = make(map[models.ULID]watchedBreak)
	}
	m.lastCount = count
	m.mu.Unlock()

	for _, id := range ids {
		m.markPlayed(ctx, id)
	}
}

// markPlayed transitions one watched break to PLAYED.
func (m *Monitor) markPlayed(ctx context.Context, id models.ULID) {
	brk, err := m.breaks.GetByID(ctx, id)
	if err != nil {
		m.logger.WarnContext(ctx, "loading watched break failed",
			slog.String("break_id", id.String()),
			slog.Any("error", err))
		return
	}
	if brk == nil || brk.Status != models.BreakStatusPushed {
		// Already resolved elsewhere (manual intervention, startup recovery).
		return
	}

	if err := brk.MarkPlayed(); err != nil {
		m.logger.WarnContext(ctx, "break transition to PLAYED rejected",
			slog.String("break_id", id.String()),
			slog.Any("error", err))
		return
	}
	if err := m.breaks.Update(ctx, brk); err != nil {
		m.logger.WarnContext(ctx, "persisting PLAYED break failed",
			slog.String("break_id", id.String()),
			slog.Any("error", err))
		return
	}

	m.logger.InfoContext(ctx, "break went to air", slog.String("break_id", id.String()))
	if err := m.events.Log(ctx, models.EventBreakPlayed, "break went to air", map[string]string{
		"break_id": id.String(),
	}); err != nil {
		m.logger.WarnContext(ctx, "recording played event failed", slog.Any("error", err))
	}
}

// HeartbeatAge returns how long ago playout last answered a poll. Zero time
// means it has never answered.
func (m *Monitor) HeartbeatAge() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lastHeartbeat.IsZero() {
		return -1
	}
	return time.Since(m.lastHeartbeat)
}

// Healthy reports whether the last poll succeeded.
func (m *Monitor) Healthy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.wasHealthy
}

// Watching returns how many pushed breaks await PLAYED detection.
func (m *Monitor) Watching() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.watched)
}

// Ensure Monitor satisfies the pipeline contract.
var _ core.PlayedWatcher = (*Monitor)(nil)
