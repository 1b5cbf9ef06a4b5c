package startup

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hermesradio/hermes/internal/models"
	"github.com/hermesradio/hermes/internal/repository"
	"github.com/hermesradio/hermes/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fixture struct {
	breaks  repository.BreakRepository
	events  repository.EventRepository
	sandbox *storage.Sandbox
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Break{}, &models.Event{}))

	sandbox, err := storage.NewSandbox(t.TempDir())
	require.NoError(t, err)

	return &fixture{
		breaks:  repository.NewBreakRepository(db),
		events:  repository.NewEventRepository(db),
		sandbox: sandbox,
	}
}

func (f *fixture) createBreak(t *testing.T, status models.BreakStatus) *models.Break {
	t.Helper()
	brk := &models.Break{
		Kind:      models.BreakKindScheduled,
		Status:    models.BreakStatusPreparing,
		HostSlug:  "host_a",
		AudioPath: "/media/breaks/x.mp3",
	}
	require.NoError(t, f.breaks.Create(context.Background(), brk))

	switch status {
	case models.BreakStatusReady:
		require.NoError(t, brk.MarkReady())
	case models.BreakStatusPushed:
		require.NoError(t, brk.MarkReady())
		require.NoError(t, brk.MarkPushed())
	}
	if status != models.BreakStatusPreparing {
		require.NoError(t, f.breaks.Update(context.Background(), brk))
	}
	return brk
}

func TestRecover_AbandonsStalePreparing(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	stale := f.createBreak(t, models.BreakStatusPreparing)
	ready := f.createBreak(t, models.BreakStatusReady)
	pushed := f.createBreak(t, models.BreakStatusPushed)

	report, err := Recover(ctx, f.breaks, f.events, f.sandbox, testLogger())
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.BreaksAbandoned)

	got, err := f.breaks.GetByID(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BreakStatusFailed, got.Status)
	assert.Equal(t, models.FailReasonStale, got.FailReason)

	// Breaks past PREPARING are untouched.
	got, err = f.breaks.GetByID(ctx, ready.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BreakStatusReady, got.Status)
	got, err = f.breaks.GetByID(ctx, pushed.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BreakStatusPushed, got.Status)

	events, _, err := f.events.List(ctx, models.EventBreakFailed, 10, 0)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestRecover_NothingStale(t *testing.T) {
	f := setup(t)

	report, err := Recover(context.Background(), f.breaks, f.events, f.sandbox, testLogger())
	require.NoError(t, err)
	assert.Equal(t, int64(0), report.BreaksAbandoned)

	events, _, err := f.events.List(context.Background(), models.EventBreakFailed, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, events, "quiet boots stay quiet")
}

func TestRecover_SweepsOldTempDirs(t *testing.T) {
	f := setup(t)

	oldDir, err := f.sandbox.MkdirTemp("build_stale")
	require.NoError(t, err)
	past := time.Now().Add(-2 * TempMaxAge)
	require.NoError(t, os.Chtimes(oldDir, past, past))

	freshDir, err := f.sandbox.MkdirTemp("build_fresh")
	require.NoError(t, err)

	report, err := Recover(context.Background(), f.breaks, f.events, f.sandbox, testLogger())
	require.NoError(t, err)
	assert.Equal(t, 1, report.TempDirsRemoved)

	assert.NoDirExists(t, oldDir)
	assert.DirExists(t, freshDir)
}

func TestRecover_NilSandbox(t *testing.T) {
	f := setup(t)

	report, err := Recover(context.Background(), f.breaks, f.events, nil, testLogger())
	require.NoError(t, err)
	assert.Equal(t, 0, report.TempDirsRemoved)
}
