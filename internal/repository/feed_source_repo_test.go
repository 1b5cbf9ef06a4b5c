package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/hermesradio/hermes/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupFeedSourceTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.FeedSource{})
	require.NoError(t, err)

	return db
}

func TestFeedSourceRepo_CreateAndGet(t *testing.T) {
	db := setupFeedSourceTestDB(t)
	repo := NewFeedSourceRepository(db)
	ctx := context.Background()

	src := &models.FeedSource{Name: "bbc-world", URL: "https://feeds.bbci.co.uk/news/world/rss.xml", Active: true, Healthy: true}
	require.NoError(t, repo.Create(ctx, src))

	byName, err := repo.GetByName(ctx, "bbc-world")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, src.ID, byName.ID)

	missing, err := repo.GetByName(ctx, "nonexistent")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestFeedSourceRepo_Create_RejectsBadURL(t *testing.T) {
	db := setupFeedSourceTestDB(t)
	repo := NewFeedSourceRepository(db)

	err := repo.Create(context.Background(), &models.FeedSource{Name: "broken", URL: "not a url"})
	assert.Error(t, err)
}

func TestFeedSourceRepo_HealthCounts(t *testing.T) {
	db := setupFeedSourceTestDB(t)
	repo := NewFeedSourceRepository(db)
	ctx := context.Background()

	healthy := &models.FeedSource{Name: "bbc-world", URL: "https://feeds.bbci.co.uk/news/world/rss.xml", Active: true, Healthy: true}
	require.NoError(t, repo.Create(ctx, healthy))

	// Dead source: five consecutive failures flips Healthy off.
	dying := &models.FeedSource{Name: "npr-news", URL: "https://feeds.npr.org/1001/rss.xml", Active: true, Healthy: true}
	require.NoError(t, repo.Create(ctx, dying))
	var crossed bool
	for i := 0; i < 5; i++ {
		crossed = dying.RecordFailure(errors.New("connection refused"))
	}
	assert.True(t, crossed)
	require.NoError(t, repo.Update(ctx, dying))

	// Inactive sources are outside the health picture entirely.
	retired := &models.FeedSource{Name: "old-wire", URL: "https://example.com/rss.xml", Active: true, Healthy: true}
	require.NoError(t, repo.Create(ctx, retired))
	retired.Active = false
	require.NoError(t, repo.Update(ctx, retired))

	healthyCount, total, err := repo.HealthCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), healthyCount)
	assert.Equal(t, int64(2), total)
}

func TestFeedSourceRepo_GetPollable_ExcludesDeadSources(t *testing.T) {
	db := setupFeedSourceTestDB(t)
	repo := NewFeedSourceRepository(db)
	ctx := context.Background()

	alive := &models.FeedSource{Name: "bbc", URL: "https://feeds.bbci.co.uk/news/rss.xml", Active: true, Healthy: true}
	require.NoError(t, repo.Create(ctx, alive))

	dead := &models.FeedSource{Name: "flaky-feed", URL: "https://example.com/flaky.xml", Active: true, Healthy: true}
	require.NoError(t, repo.Create(ctx, dead))
	for i := 0; i < 6; i++ {
		dead.RecordFailure(errors.New("timeout"))
	}
	require.NoError(t, repo.Update(ctx, dead))

	// A dead source sits out of the poll set until it is re-enabled.
	pollable, err := repo.GetPollable(ctx)
	require.NoError(t, err)
	require.Len(t, pollable, 1)
	assert.Equal(t, "bbc", pollable[0].Name)

	dead.ConsecutiveFailures = 0
	dead.Healthy = true
	require.NoError(t, repo.Update(ctx, dead))

	pollable, err = repo.GetPollable(ctx)
	require.NoError(t, err)
	assert.Len(t, pollable, 2)
}

func TestFeedSourceRepo_RecoveryRoundTrip(t *testing.T) {
	db := setupFeedSourceTestDB(t)
	repo := NewFeedSourceRepository(db)
	ctx := context.Background()

	src := &models.FeedSource{Name: "aljazeera", URL: "https://www.aljazeera.com/xml/rss/all.xml", Active: true, Healthy: true}
	require.NoError(t, repo.Create(ctx, src))

	for i := 0; i < 5; i++ {
		src.RecordFailure(errors.New("HTTP 503"))
	}
	require.NoError(t, repo.Update(ctx, src))

	src.RecordSuccess()
	require.NoError(t, repo.Update(ctx, src))

	found, err := repo.GetByName(ctx, "aljazeera")
	require.NoError(t, err)
	assert.True(t, found.Healthy)
	assert.Zero(t, found.ConsecutiveFailures)
	assert.Empty(t, found.LastError)
	assert.NotNil(t, found.LastFetchedAt)
}

func TestFeedSourceRepo_Delete(t *testing.T) {
	db := setupFeedSourceTestDB(t)
	repo := NewFeedSourceRepository(db)
	ctx := context.Background()

	src := &models.FeedSource{Name: "temp-feed", URL: "https://example.com/rss.xml", Active: true, Healthy: true}
	require.NoError(t, repo.Create(ctx, src))
	require.NoError(t, repo.Delete(ctx, src.ID))

	found, err := repo.GetByID(ctx, src.ID)
	require.NoError(t, err)
	assert.Nil(t, found)
}
