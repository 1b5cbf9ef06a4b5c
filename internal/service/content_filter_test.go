package service

import (
	"context"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hermesradio/hermes/internal/models"
	"github.com/hermesradio/hermes/internal/repository"
)

func setupFilter(t *testing.T) (*ContentFilter, repository.SettingRepository) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Setting{}))

	settings := repository.NewSettingRepository(db)
	return NewContentFilter(settings, testLogger()), settings
}

// filler builds an n-word script with no blocked content.
func filler(n int) string {
	return strings.TrimSpace(strings.Repeat("tonight ", n))
}

func TestContentFilter_ValidScript(t *testing.T) {
	filter, _ := setupFilter(t)

	verdict, err := filter.Validate(context.Background(),
		"Good evening, it is twenty two degrees in Buenos Aires with clear skies, and the music rolls on right after this quick look around.",
		false)
	require.NoError(t, err)
	assert.True(t, verdict.OK)
	assert.Empty(t, verdict.Reasons)
}

func TestContentFilter_EmptyScript(t *testing.T) {
	filter, _ := setupFilter(t)

	for _, script := range []string{"", "   ", "\n\t"} {
		verdict, err := filter.Validate(context.Background(), script, false)
		require.NoError(t, err)
		assert.False(t, verdict.OK)
		assert.Equal(t, []string{"empty script"}, verdict.Reasons)
	}
}

func TestContentFilter_WordBudget(t *testing.T) {
	filter, _ := setupFilter(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		script   string
		breaking bool
		reason   string
	}{
		{"too short", filler(5), false, "too short (5 words, min 15)"},
		{"too long", filler(101), false, "too long (101 words, max 100)"},
		{"breaking too short", filler(8), true, "too short (8 words, min 10)"},
		{"breaking too long", filler(60), true, "too long (60 words, max 50)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict, err := filter.Validate(ctx, tt.script, tt.breaking)
			require.NoError(t, err)
			assert.False(t, verdict.OK)
			assert.Contains(t, verdict.Reasons, tt.reason)
		})
	}
}

func TestContentFilter_CharBudget(t *testing.T) {
	filter, _ := setupFilter(t)

	// 50 words of 15 chars each stays inside the word window but blows the
	// 600 char ceiling.
	long := strings.TrimSpace(strings.Repeat("interminably so ", 50))
	verdict, err := filter.Validate(context.Background(), long, false)
	require.NoError(t, err)
	assert.False(t, verdict.OK)
	assert.Contains(t, verdict.Reasons, "exceeds 600 chars")
}

func TestContentFilter_BlockedPhrases(t *testing.T) {
	filter, _ := setupFilter(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		script string
		phrase string
	}{
		{"single word", filler(14) + " buy", "buy"},
		{"case insensitive", filler(14) + " BUY", "buy"},
		{"multi word", filler(13) + " check out", "check out"},
		{"mid sentence", filler(7) + " please subscribe " + filler(7), "subscribe"},
		// "investing" is its own list entry; word boundaries keep
		// \binvest\b from reaching it.
		{"gerund form", filler(12) + " start investing", "investing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict, err := filter.Validate(ctx, tt.script, false)
			require.NoError(t, err)
			assert.False(t, verdict.OK)
			assert.Equal(t, []string{`blocked phrase: "` + tt.phrase + `"`}, verdict.Reasons)
		})
	}
}

func TestContentFilter_PhrasesMatchWholeWordsOnly(t *testing.T) {
	filter, _ := setupFilter(t)
	ctx := context.Background()

	// "counsellor" contains "sell" and "buyer" contains "buy"; neither is
	// the blocked word.
	script := filler(12) + " the counsellor met a buyer"
	verdict, err := filter.Validate(ctx, script, false)
	require.NoError(t, err)
	assert.True(t, verdict.OK, verdict.Reason())
}

func TestContentFilter_BreakingNewsOnlyInBreaking(t *testing.T) {
	filter, _ := setupFilter(t)
	ctx := context.Background()

	script := filler(14) + " breaking news from the coast tonight"

	verdict, err := filter.Validate(ctx, script, false)
	require.NoError(t, err)
	assert.False(t, verdict.OK)
	assert.Contains(t, verdict.Reasons, `blocked phrase: "breaking news"`)

	verdict, err = filter.Validate(ctx, script, true)
	require.NoError(t, err)
	assert.True(t, verdict.OK, verdict.Reason())
}

func TestContentFilter_BlockedDomains(t *testing.T) {
	filter, _ := setupFilter(t)

	// A full URL trips three separate fragments.
	script := filler(14) + " find us at https://www.example.com"
	verdict, err := filter.Validate(context.Background(), script, false)
	require.NoError(t, err)
	assert.False(t, verdict.OK)
	assert.Contains(t, verdict.Reasons, `blocked term: "http"`)
	assert.Contains(t, verdict.Reasons, `blocked term: "www."`)
	assert.Contains(t, verdict.Reasons, `blocked term: ".com"`)
}

func TestContentFilter_CollectsAllViolations(t *testing.T) {
	filter, _ := setupFilter(t)

	verdict, err := filter.Validate(context.Background(), "go buy things now", false)
	require.NoError(t, err)
	assert.False(t, verdict.OK)
	assert.Contains(t, verdict.Reasons, "too short (4 words, min 15)")
	assert.Contains(t, verdict.Reasons, `blocked phrase: "buy"`)
	assert.Contains(t, verdict.Reason(), "; ")
}

func TestContentFilter_SettingsOverride(t *testing.T) {
	filter, settings := setupFilter(t)
	ctx := context.Background()

	require.NoError(t, settings.Set(ctx, models.SettingBreakMinWords, "3"))
	require.NoError(t, settings.Set(ctx, models.SettingBlockedPhrases, "synergy"))

	// The custom list replaces the default one entirely.
	verdict, err := filter.Validate(ctx, "now go buy things", false)
	require.NoError(t, err)
	assert.True(t, verdict.OK, verdict.Reason())

	verdict, err = filter.Validate(ctx, "pure synergy all day", false)
	require.NoError(t, err)
	assert.False(t, verdict.OK)
	assert.Equal(t, []string{`blocked phrase: "synergy"`}, verdict.Reasons)
}

func TestContentFilter_CheckPhrases(t *testing.T) {
	filter, _ := setupFilter(t)
	ctx := context.Background()

	// Long dialog text passes; there is no word budget here.
	verdict, err := filter.CheckPhrases(ctx, filler(400), false)
	require.NoError(t, err)
	assert.True(t, verdict.OK)

	verdict, err = filter.CheckPhrases(ctx, "you should buy some while it lasts", false)
	require.NoError(t, err)
	assert.False(t, verdict.OK)
	assert.Contains(t, verdict.Reasons, `blocked phrase: "buy"`)

	// "breaking news" stays reserved for breaking segments.
	verdict, err = filter.CheckPhrases(ctx, "we have breaking news tonight", false)
	require.NoError(t, err)
	assert.False(t, verdict.OK)

	verdict, err = filter.CheckPhrases(ctx, "we have breaking news tonight", true)
	require.NoError(t, err)
	assert.True(t, verdict.OK, verdict.Reason())
}

func TestContentFilter_Budget(t *testing.T) {
	filter, settings := setupFilter(t)
	ctx := context.Background()

	budget, err := filter.Budget(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, WordBudget{MinWords: 15, MaxWords: 100, MaxChars: 600}, budget)

	budget, err = filter.Budget(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, WordBudget{MinWords: 10, MaxWords: 50, MaxChars: 600}, budget)

	require.NoError(t, settings.Set(ctx, models.SettingBreakMaxWords, "80"))
	budget, err = filter.Budget(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 80, budget.MaxWords)
}
