package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hermesradio/hermes/internal/models"
)

func setupTrigger(t *testing.T, start time.Time) (*schedFixture, *TrackTrigger) {
	t.Helper()
	f := setupScheduler(t, start)
	trigger := NewTrackTrigger(f.builder, f.settings, f.sched, f.sched.logger)
	return f, trigger
}

func TestTrackTrigger_FiresAtThreshold(t *testing.T) {
	f, trigger := setupTrigger(t, noon())

	assert.Equal(t, "none", trigger.TrackChanged(context.Background(), 1))
	assert.Equal(t, "none", trigger.TrackChanged(context.Background(), 2))

	action := trigger.TrackChanged(context.Background(), 3)
	assert.Equal(t, "prepare_break", action)

	f.builder.waitFired(t)
	assert.Equal(t, 1, f.builder.count())
}

func TestTrackTrigger_ThresholdFromSettings(t *testing.T) {
	f, trigger := setupTrigger(t, noon())
	require.NoError(t, f.settings.Set(context.Background(), models.SettingPrepareAtTrack, "5"))

	assert.Equal(t, "none", trigger.TrackChanged(context.Background(), 3))
	assert.Equal(t, "prepare_break", trigger.TrackChanged(context.Background(), 5))
	f.builder.waitFired(t)
}

func TestTrackTrigger_PastThresholdDoesNotRefire(t *testing.T) {
	f, trigger := setupTrigger(t, noon())

	// Only the exact threshold fires; a counter that sailed past it means
	// the build already ran (or was refused) for this cycle.
	assert.Equal(t, "none", trigger.TrackChanged(context.Background(), 4))
	f.builder.assertQuietFor(t, 50*time.Millisecond)
}

func TestTrackTrigger_SuppressedDuringQuietHours(t *testing.T) {
	f, trigger := setupTrigger(t, time.Date(2026, 3, 10, 2, 0, 0, 0, time.UTC))
	require.NoError(t, f.settings.Set(context.Background(), models.SettingQuietMode, "true"))

	assert.Equal(t, "none", trigger.TrackChanged(context.Background(), 3))
	f.builder.assertQuietFor(t, 50*time.Millisecond)
}

func TestTrackTrigger_OneBuildAtATime(t *testing.T) {
	f, trigger := setupTrigger(t, noon())
	f.builder.block = make(chan struct{})

	assert.Equal(t, "prepare_break", trigger.TrackChanged(context.Background(), 3))
	// A second threshold hit while the first build runs is dropped.
	assert.Equal(t, "none", trigger.TrackChanged(context.Background(), 3))

	close(f.builder.block)
	f.builder.waitFired(t)
	assert.Equal(t, 1, f.builder.count())
}
