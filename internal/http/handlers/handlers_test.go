package handlers

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hermesradio/hermes/internal/models"
	"github.com/hermesradio/hermes/internal/repository"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// apiFixture wires real repositories over an in-memory database; handlers
// are thin enough that faking the repos would test the fakes.
type apiFixture struct {
	db        *gorm.DB
	settings  repository.SettingRepository
	cities    repository.CityRepository
	sources   repository.FeedSourceRepository
	hosts     repository.HostRepository
	breaks    repository.BreakRepository
	events    repository.EventRepository
	headlines repository.HeadlineRepository
}

func setupAPI(t *testing.T) *apiFixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Setting{}, &models.City{}, &models.FeedSource{},
		&models.Host{}, &models.Break{}, &models.Event{}, &models.Headline{},
	))

	return &apiFixture{
		db:        db,
		settings:  repository.NewSettingRepository(db),
		cities:    repository.NewCityRepository(db),
		sources:   repository.NewFeedSourceRepository(db),
		hosts:     repository.NewHostRepository(db),
		breaks:    repository.NewBreakRepository(db),
		events:    repository.NewEventRepository(db),
		headlines: repository.NewHeadlineRepository(db),
	}
}

// playedBreak walks a break through the full lifecycle.
func (f *apiFixture) playedBreak(t *testing.T, videoPath string) *models.Break {
	t.Helper()
	brk := &models.Break{
		Kind:      models.BreakKindScheduled,
		Status:    models.BreakStatusPreparing,
		HostSlug:  "host_a",
		AudioPath: "/media/breaks/a.mp3",
		VideoPath: videoPath,
	}
	require.NoError(t, f.breaks.Create(context.Background(), brk))
	require.NoError(t, brk.MarkReady())
	require.NoError(t, brk.MarkPushed())
	require.NoError(t, brk.MarkPlayed())
	require.NoError(t, f.breaks.Update(context.Background(), brk))
	return brk
}
