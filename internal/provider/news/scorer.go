package news

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hermesradio/hermes/internal/observability"
	"github.com/hermesradio/hermes/internal/provider/llm"
	"github.com/hermesradio/hermes/internal/repository"
)

// HeadlineScorer rates a batch of stories 1-10 for broadcast
// newsworthiness.
type HeadlineScorer interface {
	ScoreHeadlines(ctx context.Context, stories []llm.Story) ([]int, error)
}

var _ HeadlineScorer = (*llm.Client)(nil)

// Scorer drains the unscored headline backlog through the language model.
// Scoring happens during break assembly rather than at ingest so a noisy
// feed never burns model tokens on stories no break will ever consider.
type Scorer struct {
	headlines repository.HeadlineRepository
	model     HeadlineScorer
	logger    *slog.Logger
}

// NewScorer creates a Scorer over the given headline store and model.
func NewScorer(headlines repository.HeadlineRepository, model HeadlineScorer, logger *slog.Logger) *Scorer {
	return &Scorer{
		headlines: headlines,
		model:     model,
		logger:    observability.WithComponent(logger, "news"),
	}
}

// ScorePending scores unscored headlines in batches of llm.MaxScoreBatch,
// newest first, until the backlog is empty. It returns how many rows were
// scored. Any model or storage error stops the pass immediately; scores
// already written stay written, so the next pass resumes where this one
// stopped.
func (s *Scorer) ScorePending(ctx context.Context) (int, error) {
	scored := 0
	for {
		batch, err := s.headlines.GetUnscored(ctx, llm.MaxScoreBatch)
		if err != nil {
			return scored, err
		}
		if len(batch) == 0 {
			return scored, nil
		}

		stories := make([]llm.Story, len(batch))
		for i, h := range batch {
			stories[i] = llm.Story{Title: h.Title, Source: h.SourceName}
		}

		scores, err := s.model.ScoreHeadlines(ctx, stories)
		if err != nil {
			return scored, fmt.Errorf("scoring headline batch: %w", err)
		}
		if len(scores) != len(batch) {
			return scored, fmt.Errorf("scoring headline batch: got %d scores for %d headlines", len(scores), len(batch))
		}

		for i, h := range batch {
			if err := s.headlines.SetScore(ctx, h.ID, scores[i]); err != nil {
				return scored, err
			}
			scored++
		}

		s.logger.Debug("scored headlines", slog.Int("count", len(batch)))

		if len(batch) < llm.MaxScoreBatch {
			return scored, nil
		}
	}
}
