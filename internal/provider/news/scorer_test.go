package news

import (
	"context"
	"errors"
	"fmt"
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
	"github.com/hermesradio/hermes/internal/provider/llm"
	"github.com/hermesradio/hermes/internal/repository"
)

// stubScorer scores stories by title and records each batch it is handed.
type stubScorer struct {
	scores map[string]int
	err    error
	// errAfter is how many calls succeed before err fires. Zero with err
	// set means the first call already fails.
	errAfter int
	// short drops the last score so the response length never matches.
	short bool
	calls [][]llm.Story
}

func (s *stubScorer) ScoreHeadlines(_ context.Context, stories []llm.Story) ([]int, error) {
	call := len(s.calls)
	s.calls = append(s.calls, stories)
	if s.err != nil && call >= s.errAfter {
		return nil, s.err
	}
	out := make([]int, len(stories))
	for i, story := range stories {
		out[i] = s.scores[story.Title]
	}
	if s.short && len(out) > 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

func setupScorerDB(t *testing.T) repository.HeadlineRepository {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Headline{}))
	return repository.NewHeadlineRepository(db)
}

func seedHeadline(t *testing.T, repo repository.HeadlineRepository, source, title string, fetchedAt time.Time) *models.Headline {
	t.Helper()
	h := &models.Headline{SourceName: source, Title: title, FetchedAt: fetchedAt}
	inserted, err := repo.Store(context.Background(), h)
	require.NoError(t, err)
	require.True(t, inserted)
	return h
}

func newScorer(repo repository.HeadlineRepository, model HeadlineScorer) *Scorer {
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewScorer(repo, model, log)
}

func TestScorer_ScorePending(t *testing.T) {
	repo := setupScorerDB(t)
	ctx := context.Background()

	now := time.Now()
	quake := seedHeadline(t, repo, "ap-wire", "Quake Hits Region", now)
	budget := seedHeadline(t, repo, "city-desk", "Council Approves Budget", now.Add(-time.Minute))
	bake := seedHeadline(t, repo, "city-desk", "Local Bake Sale Saturday", now.Add(-2*time.Minute))
	rated := seedHeadline(t, repo, "ap-wire", "Already Rated Story", now.Add(-3*time.Minute))
	require.NoError(t, repo.SetScore(ctx, rated.ID, 6))

	stub := &stubScorer{scores: map[string]int{
		"Quake Hits Region":        9,
		"Council Approves Budget":  4,
		"Local Bake Sale Saturday": 2,
	}}

	scored, err := newScorer(repo, stub).ScorePending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, scored)

	require.Len(t, stub.calls, 1)
	require.Len(t, stub.calls[0], 3)
	assert.Equal(t, llm.Story{Title: "Quake Hits Region", Source: "ap-wire"}, stub.calls[0][0])
	for _, story := range stub.calls[0] {
		assert.NotEqual(t, "Already Rated Story", story.Title)
	}

	for _, want := range []struct {
		h     *models.Headline
		score int
	}{{quake, 9}, {budget, 4}, {bake, 2}, {rated, 6}} {
		got, err := repo.GetByID(ctx, want.h.ID)
		require.NoError(t, err)
		require.NotNil(t, got.Score)
		assert.Equal(t, want.score, *got.Score, got.Title)
	}
}

func TestScorer_ScorePending_DrainsInBatches(t *testing.T) {
	repo := setupScorerDB(t)
	ctx := context.Background()

	scores := make(map[string]int, llm.MaxScoreBatch+3)
	now := time.Now()
	for i := 0; i < llm.MaxScoreBatch+3; i++ {
		title := fmt.Sprintf("Story %02d", i)
		seedHeadline(t, repo, "wire", title, now.Add(-time.Duration(i)*time.Minute))
		scores[title] = i%10 + 1
	}

	stub := &stubScorer{scores: scores}
	scored, err := newScorer(repo, stub).ScorePending(ctx)
	require.NoError(t, err)
	assert.Equal(t, llm.MaxScoreBatch+3, scored)

	// Newest first, so the second round picks up the three oldest.
	require.Len(t, stub.calls, 2)
	assert.Len(t, stub.calls[0], llm.MaxScoreBatch)
	require.Len(t, stub.calls[1], 3)
	assert.Equal(t, fmt.Sprintf("Story %02d", llm.MaxScoreBatch), stub.calls[1][0].Title)

	remaining, err := repo.GetUnscored(ctx, llm.MaxScoreBatch)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestScorer_ScorePending_ErrorStopsPass(t *testing.T) {
	repo := setupScorerDB(t)
	ctx := context.Background()

	scores := make(map[string]int, llm.MaxScoreBatch+3)
	now := time.Now()
	for i := 0; i < llm.MaxScoreBatch+3; i++ {
		title := fmt.Sprintf("Story %02d", i)
		seedHeadline(t, repo, "wire", title, now.Add(-time.Duration(i)*time.Minute))
		scores[title] = 5
	}

	stub := &stubScorer{scores: scores, err: errors.New("model exploded"), errAfter: 1}
	scored, err := newScorer(repo, stub).ScorePending(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scoring headline batch")
	assert.Equal(t, llm.MaxScoreBatch, scored)

	// The first batch keeps its scores; the rest wait for the next pass.
	remaining, err := repo.GetUnscored(ctx, llm.MaxScoreBatch)
	require.NoError(t, err)
	assert.Len(t, remaining, 3)
}

func TestScorer_ScorePending_UnavailablePropagates(t *testing.T) {
	repo := setupScorerDB(t)
	ctx := context.Background()
	seedHeadline(t, repo, "wire", "Only Story", time.Now())

	stub := &stubScorer{err: fmt.Errorf("scoring headlines: %w", llm.ErrUnavailable)}
	scored, err := newScorer(repo, stub).ScorePending(ctx)
	require.ErrorIs(t, err, llm.ErrUnavailable)
	assert.Zero(t, scored)
}

func TestScorer_ScorePending_LengthMismatch(t *testing.T) {
	repo := setupScorerDB(t)
	ctx := context.Background()

	now := time.Now()
	seedHeadline(t, repo, "wire", "First", now)
	seedHeadline(t, repo, "wire", "Second", now.Add(-time.Minute))
	seedHeadline(t, repo, "wire", "Third", now.Add(-2*time.Minute))

	stub := &stubScorer{scores: map[string]int{"First": 5, "Second": 5, "Third": 5}, short: true}
	scored, err := newScorer(repo, stub).ScorePending(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "got 2 scores for 3 headlines")
	assert.Zero(t, scored)

	// No partial writes on a misaligned response.
	remaining, err := repo.GetUnscored(ctx, llm.MaxScoreBatch)
	require.NoError(t, err)
	assert.Len(t, remaining, 3)
}

func TestScorer_ScorePending_EmptyBacklog(t *testing.T) {
	repo := setupScorerDB(t)

	stub := &stubScorer{}
	scored, err := newScorer(repo, stub).ScorePending(context.Background())
	require.NoError(t, err)
	assert.Zero(t, scored)
	assert.Empty(t, stub.calls)
}
