package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hermesradio/hermes/internal/pipeline/shared"
	"github.com/hermesradio/hermes/internal/provider/llm"
	"github.com/hermesradio/hermes/internal/service"
)

type stubScheduler struct {
	running  bool
	quiet    bool
	window   string
	interval time.Duration
}

func (s *stubScheduler) Running() bool { return s.running }

func (s *stubScheduler) QuietNow(ctx context.Context) (bool, string) {
	return s.quiet, s.window
}

func (s *stubScheduler) Interval(ctx context.Context) time.Duration { return s.interval }

func TestStatusHandler_EmptyStation(t *testing.T) {
	f := setupAPI(t)
	handler := NewStatusHandler(f.breaks, shared.NewBuildTracker(), service.NewTrackLog(), &stubScheduler{
		running:  true,
		interval: 20 * time.Minute,
	})

	out, err := handler.GetNow(context.Background(), &StatusNowInput{})
	require.NoError(t, err)

	assert.Nil(t, out.Body.OnAir)
	assert.Nil(t, out.Body.NextBreak)
	assert.Nil(t, out.Body.LastPlayed)
	assert.Empty(t, out.Body.Building)
	assert.True(t, out.Body.Scheduler.Running)
	assert.Equal(t, 20, out.Body.Scheduler.IntervalMinutes)
}

func TestStatusHandler_ReportsQueueAndTracks(t *testing.T) {
	f := setupAPI(t)
	tracker := shared.NewBuildTracker()
	tracks := service.NewTrackLog()
	handler := NewStatusHandler(f.breaks, tracker, tracks, &stubScheduler{
		running:  true,
		quiet:    true,
		window:   "00:00-06:00",
		interval: 20 * time.Minute,
	})
	ctx := context.Background()

	f.playedBreak(t, "")
	newest := f.playedBreak(t, "")
	tracks.TrackChange(2, llm.Track{Title: "Night Drive", Artist: "Neon"})
	tracker.StageStarted(newest.ID, "script")

	out, err := handler.GetNow(ctx, &StatusNowInput{})
	require.NoError(t, err)

	require.NotNil(t, out.Body.LastPlayed)
	assert.Equal(t, newest.ID, out.Body.LastPlayed.ID)

	require.Len(t, out.Body.Building, 1)
	assert.Equal(t, "script", out.Body.Building[0].Stage)

	assert.True(t, out.Body.Scheduler.Quiet)
	assert.Equal(t, "00:00-06:00", out.Body.Scheduler.QuietWindow)

	assert.Equal(t, 2, out.Body.TracksSinceLastPush)
	require.Len(t, out.Body.RecentTracks, 1)
	assert.Equal(t, "Night Drive", out.Body.RecentTracks[0].Title)
}
