package repository

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/hermesradio/hermes/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupBreakTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.Break{})
	require.NoError(t, err)

	return db
}

func seedBreak(t *testing.T, repo BreakRepository, kind models.BreakKind, status models.BreakStatus, createdAt time.Time) *models.Break {
	t.Helper()
	b := &models.Break{Kind: kind, Status: status, HostSlug: "host_a"}
	b.CreatedAt = createdAt
	require.NoError(t, repo.Create(context.Background(), b))
	return b
}

func TestBreakRepo_CreateAndGet(t *testing.T) {
	db := setupBreakTestDB(t)
	repo := NewBreakRepository(db)
	ctx := context.Background()

	b := &models.Break{Kind: models.BreakKindScheduled, Status: models.BreakStatusPreparing, HostSlug: "host_a"}
	require.NoError(t, repo.Create(ctx, b))
	assert.False(t, b.ID.IsZero())

	found, err := repo.GetByID(ctx, b.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, models.BreakStatusPreparing, found.Status)
	assert.Equal(t, "host_a", found.HostSlug)

	missing, err := repo.GetByID(ctx, models.NewULID())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestBreakRepo_Create_RejectsUnknownStatus(t *testing.T) {
	db := setupBreakTestDB(t)
	repo := NewBreakRepository(db)

	b := &models.Break{Kind: models.BreakKindScheduled, Status: "LIMBO"}
	err := repo.Create(context.Background(), b)
	assert.Error(t, err)
}

func TestBreakRepo_Update_PersistsLifecycle(t *testing.T) {
	db := setupBreakTestDB(t)
	repo := NewBreakRepository(db)
	ctx := context.Background()

	b := &models.Break{Kind: models.BreakKindScheduled, Status: models.BreakStatusPreparing, HostSlug: "host_b"}
	require.NoError(t, repo.Create(ctx, b))

	b.AudioPath = "media/breaks/b1.mp3"
	require.NoError(t, b.MarkReady())
	require.NoError(t, repo.Update(ctx, b))

	found, err := repo.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BreakStatusReady, found.Status)
	require.NotNil(t, found.ReadyAt)
	assert.Equal(t, "media/breaks/b1.mp3", found.AudioPath)
}

func TestBreakRepo_GetByStatus(t *testing.T) {
	db := setupBreakTestDB(t)
	repo := NewBreakRepository(db)
	ctx := context.Background()

	now := time.Now()
	older := seedBreak(t, repo, models.BreakKindScheduled, models.BreakStatusPreparing, now.Add(-2*time.Hour))
	newer := seedBreak(t, repo, models.BreakKindScheduled, models.BreakStatusPreparing, now.Add(-1*time.Hour))
	seedBreak(t, repo, models.BreakKindScheduled, models.BreakStatusReady, now)

	preparing, err := repo.GetByStatus(ctx, models.BreakStatusPreparing)
	require.NoError(t, err)
	require.Len(t, preparing, 2)
	assert.Equal(t, older.ID, preparing[0].ID)
	assert.Equal(t, newer.ID, preparing[1].ID)

	latest, err := repo.GetLatestByStatus(ctx, models.BreakStatusPreparing)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, newer.ID, latest.ID)

	none, err := repo.GetLatestByStatus(ctx, models.BreakStatusPlayed)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestBreakRepo_GetRecent(t *testing.T) {
	db := setupBreakTestDB(t)
	repo := NewBreakRepository(db)
	ctx := context.Background()

	now := time.Now()
	seedBreak(t, repo, models.BreakKindScheduled, models.BreakStatusPlayed, now.Add(-3*time.Hour))
	mid := seedBreak(t, repo, models.BreakKindScheduled, models.BreakStatusPlayed, now.Add(-2*time.Hour))
	newest := seedBreak(t, repo, models.BreakKindBreaking, models.BreakStatusReady, now.Add(-1*time.Hour))

	recent, err := repo.GetRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, newest.ID, recent[0].ID)
	assert.Equal(t, mid.ID, recent[1].ID)
}

func TestBreakRepo_GetLastByKind(t *testing.T) {
	db := setupBreakTestDB(t)
	repo := NewBreakRepository(db)
	ctx := context.Background()

	now := time.Now()
	seedBreak(t, repo, models.BreakKindScheduled, models.BreakStatusPlayed, now.Add(-3*time.Hour))
	urgent := seedBreak(t, repo, models.BreakKindBreaking, models.BreakStatusPlayed, now.Add(-2*time.Hour))
	latest := seedBreak(t, repo, models.BreakKindScheduled, models.BreakStatusReady, now.Add(-1*time.Hour))

	last, err := repo.GetLastByKind(ctx, models.BreakKindScheduled)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, latest.ID, last.ID)

	lastBreaking, err := repo.GetLastByKind(ctx, models.BreakKindBreaking)
	require.NoError(t, err)
	require.NotNil(t, lastBreaking)
	assert.Equal(t, urgent.ID, lastBreaking.ID)
}

func TestBreakRepo_GetLastByKind_Empty(t *testing.T) {
	db := setupBreakTestDB(t)
	repo := NewBreakRepository(db)

	last, err := repo.GetLastByKind(context.Background(), models.BreakKindBreaking)
	require.NoError(t, err)
	assert.Nil(t, last)
}

func TestBreakRepo_CountPreparingNonBreaking(t *testing.T) {
	db := setupBreakTestDB(t)
	repo := NewBreakRepository(db)
	ctx := context.Background()

	now := time.Now()
	seedBreak(t, repo, models.BreakKindScheduled, models.BreakStatusPreparing, now)
	seedBreak(t, repo, models.BreakKindScheduled, models.BreakStatusPreparing, now)
	// Breaking breaks bypass the admission gate, so they never count.
	seedBreak(t, repo, models.BreakKindBreaking, models.BreakStatusPreparing, now)
	seedBreak(t, repo, models.BreakKindScheduled, models.BreakStatusReady, now)

	count, err := repo.CountPreparingNonBreaking(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestBreakRepo_FailStalePreparing(t *testing.T) {
	db := setupBreakTestDB(t)
	repo := NewBreakRepository(db)
	ctx := context.Background()

	now := time.Now()
	stale1 := seedBreak(t, repo, models.BreakKindScheduled, models.BreakStatusPreparing, now.Add(-time.Hour))
	stale2 := seedBreak(t, repo, models.BreakKindBreaking, models.BreakStatusPreparing, now.Add(-30*time.Minute))
	ready := seedBreak(t, repo, models.BreakKindScheduled, models.BreakStatusReady, now)

	n, err := repo.FailStalePreparing(ctx, models.FailReasonStale)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	for _, id := range []models.ULID{stale1.ID, stale2.ID} {
		failed, err := repo.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.BreakStatusFailed, failed.Status)
		assert.Equal(t, models.FailReasonStale, failed.FailReason)
	}

	untouched, err := repo.GetByID(ctx, ready.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BreakStatusReady, untouched.Status)

	// Nothing left to recover on a second pass.
	n, err = repo.FailStalePreparing(ctx, models.FailReasonStale)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestBreakRepo_GetPlayedWithVideo(t *testing.T) {
	db := setupBreakTestDB(t)
	repo := NewBreakRepository(db)
	ctx := context.Background()

	now := time.Now()

	older := seedBreak(t, repo, models.BreakKindScheduled, models.BreakStatusPlayed, now.Add(-2*time.Hour))
	olderAt := now.Add(-2 * time.Hour)
	older.PlayedAt = &olderAt
	older.VideoPath = "media/breaks/older.mp4"
	require.NoError(t, repo.Update(ctx, older))

	newer := seedBreak(t, repo, models.BreakKindScheduled, models.BreakStatusPlayed, now.Add(-1*time.Hour))
	newerAt := now.Add(-1 * time.Hour)
	newer.PlayedAt = &newerAt
	newer.VideoPath = "media/breaks/newer.mp4"
	require.NoError(t, repo.Update(ctx, newer))

	// Played but audio only.
	seedBreak(t, repo, models.BreakKindScheduled, models.BreakStatusPlayed, now)
	// Has video but not played yet.
	pending := seedBreak(t, repo, models.BreakKindScheduled, models.BreakStatusReady, now)
	pending.VideoPath = "media/breaks/pending.mp4"
	require.NoError(t, repo.Update(ctx, pending))

	played, err := repo.GetPlayedWithVideo(ctx, 10)
	require.NoError(t, err)
	require.Len(t, played, 2)
	assert.Equal(t, newer.ID, played[0].ID)
	assert.Equal(t, older.ID, played[1].ID)
}

func TestBreakRepo_CountCreatedSince(t *testing.T) {
	db := setupBreakTestDB(t)
	repo := NewBreakRepository(db)
	ctx := context.Background()

	now := time.Now()
	seedBreak(t, repo, models.BreakKindScheduled, models.BreakStatusPlayed, now.Add(-20*time.Minute))
	seedBreak(t, repo, models.BreakKindScheduled, models.BreakStatusPlayed, now.Add(-40*time.Minute))
	seedBreak(t, repo, models.BreakKindScheduled, models.BreakStatusPlayed, now.Add(-26*time.Hour))

	count, err := repo.CountCreatedSince(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestBreakRepo_CountByStatusSince(t *testing.T) {
	db := setupBreakTestDB(t)
	repo := NewBreakRepository(db)
	ctx := context.Background()

	now := time.Now()
	seedBreak(t, repo, models.BreakKindScheduled, models.BreakStatusPlayed, now.Add(-1*time.Hour))
	seedBreak(t, repo, models.BreakKindBreaking, models.BreakStatusPlayed, now.Add(-2*time.Hour))
	seedBreak(t, repo, models.BreakKindScheduled, models.BreakStatusFailed, now.Add(-3*time.Hour))
	seedBreak(t, repo, models.BreakKindScheduled, models.BreakStatusPlayed, now.Add(-30*time.Hour))

	played, err := repo.CountByStatusSince(ctx, models.BreakStatusPlayed, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), played)

	failed, err := repo.CountByStatusSince(ctx, models.BreakStatusFailed, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), failed)
}

func TestBreakRepo_RecentHeadlineIDs(t *testing.T) {
	db := setupBreakTestDB(t)
	repo := NewBreakRepository(db)
	ctx := context.Background()

	now := time.Now()

	withMeta := func(b *models.Break, ids ...models.ULID) {
		t.Helper()
		require.NoError(t, b.SetMeta(&models.BreakMeta{HeadlineIDs: ids}))
		require.NoError(t, repo.Update(ctx, b))
	}

	h1, h2, h3, h4 := models.NewULID(), models.NewULID(), models.NewULID(), models.NewULID()

	oldest := seedBreak(t, repo, models.BreakKindScheduled, models.BreakStatusPlayed, now.Add(-3*time.Hour))
	withMeta(oldest, h1)
	mid := seedBreak(t, repo, models.BreakKindScheduled, models.BreakStatusPushed, now.Add(-2*time.Hour))
	withMeta(mid, h2, h3)
	newest := seedBreak(t, repo, models.BreakKindScheduled, models.BreakStatusReady, now.Add(-1*time.Hour))
	withMeta(newest, h4)

	// Failed builds and breaks without meta never contribute.
	failed := seedBreak(t, repo, models.BreakKindScheduled, models.BreakStatusFailed, now.Add(-30*time.Minute))
	withMeta(failed, models.NewULID())
	seedBreak(t, repo, models.BreakKindScheduled, models.BreakStatusPlayed, now.Add(-10*time.Minute))

	ids, err := repo.RecentHeadlineIDs(ctx, 2)
	require.NoError(t, err)
	assert.ElementsMatch(t, []models.ULID{h4, h2, h3}, ids)

	ids, err = repo.RecentHeadlineIDs(ctx, 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []models.ULID{h1, h2, h3, h4}, ids)
}

func TestBreakRepo_RecentHeadlineIDs_SkipsBadMeta(t *testing.T) {
	db := setupBreakTestDB(t)
	repo := NewBreakRepository(db)
	ctx := context.Background()

	now := time.Now()
	good := seedBreak(t, repo, models.BreakKindScheduled, models.BreakStatusPlayed, now.Add(-2*time.Hour))
	id := models.NewULID()
	require.NoError(t, good.SetMeta(&models.BreakMeta{HeadlineIDs: []models.ULID{id}}))
	require.NoError(t, repo.Update(ctx, good))

	bad := seedBreak(t, repo, models.BreakKindScheduled, models.BreakStatusPlayed, now.Add(-1*time.Hour))
	bad.Meta = "{not json"
	require.NoError(t, repo.Update(ctx, bad))

	ids, err := repo.RecentHeadlineIDs(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, []models.ULID{id}, ids)
}

func TestBreakRepo_DeleteFailedOlderThan(t *testing.T) {
	db := setupBreakTestDB(t)
	repo := NewBreakRepository(db)
	ctx := context.Background()

	now := time.Now()
	seedBreak(t, repo, models.BreakKindScheduled, models.BreakStatusFailed, now.Add(-10*24*time.Hour))
	recentFailed := seedBreak(t, repo, models.BreakKindScheduled, models.BreakStatusFailed, now.Add(-time.Hour))
	oldPlayed := seedBreak(t, repo, models.BreakKindScheduled, models.BreakStatusPlayed, now.Add(-10*24*time.Hour))

	deleted, err := repo.DeleteFailedOlderThan(ctx, now.Add(-7*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	stillThere, err := repo.GetByID(ctx, recentFailed.ID)
	require.NoError(t, err)
	assert.NotNil(t, stillThere)

	// Played breaks are never pruned by failure cleanup.
	kept, err := repo.GetByID(ctx, oldPlayed.ID)
	require.NoError(t, err)
	assert.NotNil(t, kept)
}
