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

func setupSettingTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.Setting{})
	require.NoError(t, err)

	return db
}

func TestSettingRepo_GetMissing(t *testing.T) {
	db := setupSettingTestDB(t)
	repo := NewSettingRepository(db)
	ctx := context.Background()

	setting, err := repo.Get(ctx, "no_such_key")
	require.NoError(t, err)
	assert.Nil(t, setting)
}

func TestSettingRepo_SetAndGet(t *testing.T) {
	db := setupSettingTestDB(t)
	repo := NewSettingRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "break_interval_minutes", "20"))

	setting, err := repo.Get(ctx, "break_interval_minutes")
	require.NoError(t, err)
	require.NotNil(t, setting)
	assert.Equal(t, "20", setting.Value)

	// Set again overwrites.
	require.NoError(t, repo.Set(ctx, "break_interval_minutes", "45"))

	setting, err = repo.Get(ctx, "break_interval_minutes")
	require.NoError(t, err)
	require.NotNil(t, setting)
	assert.Equal(t, "45", setting.Value)

	// Still exactly one row.
	var count int64
	require.NoError(t, db.Model(&models.Setting{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSettingRepo_GetAll(t *testing.T) {
	db := setupSettingTestDB(t)
	repo := NewSettingRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "quiet_mode", "true"))
	require.NoError(t, repo.Set(ctx, "break_interval_minutes", "20"))

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)

	// Ordered by key.
	assert.Equal(t, "break_interval_minutes", all[0].Key)
	assert.Equal(t, "quiet_mode", all[1].Key)
}

func TestSettingRepo_TypedAccessors(t *testing.T) {
	db := setupSettingTestDB(t)
	repo := NewSettingRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "prepare_at_track", "3"))
	require.NoError(t, repo.Set(ctx, "quiet_mode", "true"))
	require.NoError(t, repo.Set(ctx, "events_retention", "7d"))
	require.NoError(t, repo.Set(ctx, "garbage_int", "not-a-number"))

	t.Run("string", func(t *testing.T) {
		v, err := repo.String(ctx, "events_retention", "1d")
		require.NoError(t, err)
		assert.Equal(t, "7d", v)

		v, err = repo.String(ctx, "missing", "1d")
		require.NoError(t, err)
		assert.Equal(t, "1d", v)
	})

	t.Run("int", func(t *testing.T) {
		n, err := repo.Int(ctx, "prepare_at_track", 99)
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		n, err = repo.Int(ctx, "missing", 99)
		require.NoError(t, err)
		assert.Equal(t, 99, n)

		// Unparseable falls back, no error.
		n, err = repo.Int(ctx, "garbage_int", 99)
		require.NoError(t, err)
		assert.Equal(t, 99, n)
	})

	t.Run("bool", func(t *testing.T) {
		b, err := repo.Bool(ctx, "quiet_mode", false)
		require.NoError(t, err)
		assert.True(t, b)

		b, err = repo.Bool(ctx, "missing", true)
		require.NoError(t, err)
		assert.True(t, b)
	})

	t.Run("duration", func(t *testing.T) {
		d, err := repo.Duration(ctx, "events_retention", time.Hour)
		require.NoError(t, err)
		assert.Equal(t, 7*24*time.Hour, d)

		d, err = repo.Duration(ctx, "missing", time.Hour)
		require.NoError(t, err)
		assert.Equal(t, time.Hour, d)
	})
}
