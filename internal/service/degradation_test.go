package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hermesradio/hermes/internal/models"
	"github.com/hermesradio/hermes/internal/provider/weather"
	"github.com/hermesradio/hermes/internal/repository"
)

func setupDegradation(t *testing.T) (*Degradation, *gorm.DB, string) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.ScriptTemplate{}))

	stingsDir := t.TempDir()
	svc := NewDegradation(repository.NewTemplateRepository(db), stingsDir, testLogger())
	return svc, db, stingsDir
}

func seedTemplate(t *testing.T, db *gorm.DB, name, body string, active bool) *models.ScriptTemplate {
	t.Helper()
	tmpl := &models.ScriptTemplate{Name: name, Body: body, Active: true}
	require.NoError(t, db.Create(tmpl).Error)
	if !active {
		require.NoError(t, db.Model(tmpl).Update("active", false).Error)
	}
	return tmpl
}

func writeSting(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name+".mp3")
	require.NoError(t, os.WriteFile(path, []byte("ID3sting"), 0o644))
	return path
}

func twoCities() []*weather.Observation {
	return []*weather.Observation{
		{City: "Buenos Aires", TempC: 22.4, Condition: "partly cloudy"},
		{City: "Reykjavik", TempC: -1.6, Condition: "light snow"},
	}
}

func TestDegradation_TemplateRung(t *testing.T) {
	svc, db, _ := setupDegradation(t)
	ctx := context.Background()

	seedTemplate(t, db, "weather-two-cities",
		"Right now it is {temp1} degrees and {condition1} in {city1}, while {city2} sits at {temp2} with {condition2}. Back to the music.",
		true)

	fb, err := svc.Fallback(ctx, twoCities())
	require.NoError(t, err)
	assert.Equal(t, models.DegradationTemplate, fb.Level)
	assert.Equal(t,
		"Right now it is 22 degrees and partly cloudy in Buenos Aires, while Reykjavik sits at -2 with light snow. Back to the music.",
		fb.Script)
	assert.Empty(t, fb.StingPath)

	// Rendering consumed the template's turn.
	var got models.ScriptTemplate
	require.NoError(t, db.First(&got).Error)
	assert.Equal(t, 1, got.UseCount)
}

func TestDegradation_TemplateNeedsTwoCities(t *testing.T) {
	svc, db, dir := setupDegradation(t)
	ctx := context.Background()

	seedTemplate(t, db, "weather-two-cities", "{city1} {city2}", true)
	sting := writeSting(t, dir, "station_id")

	// One observation is not enough; the ladder falls to the sting.
	fb, err := svc.Fallback(ctx, twoCities()[:1])
	require.NoError(t, err)
	assert.Equal(t, models.DegradationSting, fb.Level)
	assert.Equal(t, sting, fb.StingPath)
	assert.Empty(t, fb.Script)
}

func TestDegradation_NoTemplatesFallsToSting(t *testing.T) {
	svc, _, dir := setupDegradation(t)
	sting := writeSting(t, dir, "station_id")

	fb, err := svc.Fallback(context.Background(), twoCities())
	require.NoError(t, err)
	assert.Equal(t, models.DegradationSting, fb.Level)
	assert.Equal(t, sting, fb.StingPath)
}

func TestDegradation_InactiveTemplateSkipped(t *testing.T) {
	svc, db, dir := setupDegradation(t)

	seedTemplate(t, db, "retired", "{city1}", false)
	writeSting(t, dir, "station_id")

	fb, err := svc.Fallback(context.Background(), twoCities())
	require.NoError(t, err)
	assert.Equal(t, models.DegradationSting, fb.Level)
}

func TestDegradation_NothingLeft(t *testing.T) {
	svc, _, _ := setupDegradation(t)

	fb, err := svc.Fallback(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, models.DegradationFailed, fb.Level)
	assert.Empty(t, fb.Script)
	assert.Empty(t, fb.StingPath)
}

func TestDegradation_StingPath(t *testing.T) {
	svc, _, dir := setupDegradation(t)

	assert.Empty(t, svc.StingPath("station_id"))

	path := writeSting(t, dir, "station_id")
	assert.Equal(t, path, svc.StingPath("station_id"))
	assert.Empty(t, svc.StingPath("other"))
}
