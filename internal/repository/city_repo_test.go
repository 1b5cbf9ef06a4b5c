package repository

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/hermesradio/hermes/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupCityTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.City{})
	require.NoError(t, err)

	return db
}

func TestCityRepo_CreateAndGet(t *testing.T) {
	db := setupCityTestDB(t)
	repo := NewCityRepository(db)
	ctx := context.Background()

	city := &models.City{Name: "Lisbon", Latitude: 38.72, Longitude: -9.14, Active: true}
	require.NoError(t, repo.Create(ctx, city))
	assert.False(t, city.ID.IsZero())

	found, err := repo.GetByID(ctx, city.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Lisbon", found.Name)

	byName, err := repo.GetByName(ctx, "Lisbon")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, city.ID, byName.ID)

	missing, err := repo.GetByID(ctx, models.NewULID())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCityRepo_GetActive(t *testing.T) {
	db := setupCityTestDB(t)
	repo := NewCityRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.City{Name: "Berlin", Latitude: 52.52, Longitude: 13.40, Active: true}))

	retired := &models.City{Name: "Atlantis", Latitude: 10, Longitude: 10, Active: true}
	require.NoError(t, repo.Create(ctx, retired))
	retired.Active = false
	require.NoError(t, repo.Update(ctx, retired))

	active, err := repo.GetActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Berlin", active[0].Name)
}

func TestCityRepo_PickForRotation(t *testing.T) {
	db := setupCityTestDB(t)
	repo := NewCityRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.City{Name: "Lisbon", Latitude: 38.72, Longitude: -9.14, UseCount: 5, Active: true}))
	require.NoError(t, repo.Create(ctx, &models.City{Name: "Berlin", Latitude: 52.52, Longitude: 13.40, UseCount: 1, Active: true}))
	require.NoError(t, repo.Create(ctx, &models.City{Name: "Tokyo", Latitude: 35.68, Longitude: 139.65, UseCount: 2, Active: true}))

	benched := &models.City{Name: "Benched", Latitude: 1, Longitude: 1, UseCount: 0, Active: true}
	require.NoError(t, repo.Create(ctx, benched))
	benched.Active = false
	require.NoError(t, repo.Update(ctx, benched))

	picked, err := repo.PickForRotation(ctx, 2)
	require.NoError(t, err)
	require.Len(t, picked, 2)

	// Least-used active cities first: Berlin (1), Tokyo (2).
	names := []string{picked[0].Name, picked[1].Name}
	assert.Contains(t, names, "Berlin")
	assert.Contains(t, names, "Tokyo")
	assert.NotContains(t, names, "Benched")

	// Use counts bumped both in memory and in the database.
	for _, city := range picked {
		var stored models.City
		require.NoError(t, db.Where("id = ?", city.ID).First(&stored).Error)
		assert.Equal(t, city.UseCount, stored.UseCount)
	}

	var berlin models.City
	require.NoError(t, db.Where("name = ?", "Berlin").First(&berlin).Error)
	assert.Equal(t, 2, berlin.UseCount)

	// Lisbon untouched.
	var lisbon models.City
	require.NoError(t, db.Where("name = ?", "Lisbon").First(&lisbon).Error)
	assert.Equal(t, 5, lisbon.UseCount)
}

func TestCityRepo_PickForRotation_FewerThanRequested(t *testing.T) {
	db := setupCityTestDB(t)
	repo := NewCityRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.City{Name: "Lisbon", Latitude: 38.72, Longitude: -9.14, Active: true}))

	picked, err := repo.PickForRotation(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, picked, 1)
}

func TestCityRepo_PickForRotation_NoneActive(t *testing.T) {
	db := setupCityTestDB(t)
	repo := NewCityRepository(db)
	ctx := context.Background()

	picked, err := repo.PickForRotation(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, picked)
}

func TestCityRepo_Delete(t *testing.T) {
	db := setupCityTestDB(t)
	repo := NewCityRepository(db)
	ctx := context.Background()

	city := &models.City{Name: "Sydney", Latitude: -33.87, Longitude: 151.21, Active: true}
	require.NoError(t, repo.Create(ctx, city))
	require.NoError(t, repo.Delete(ctx, city.ID))

	found, err := repo.GetByID(ctx, city.ID)
	require.NoError(t, err)
	assert.Nil(t, found)
}
