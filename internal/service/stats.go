package service

import (
	"context"
	"fmt"
	"time"

	"github.com/hermesradio/hermes/internal/models"
	"github.com/hermesradio/hermes/internal/repository"
)

// Snapshot is the operating picture since local midnight, served by the
// health endpoint and written to the event log by the nightly rollup.
type Snapshot struct {
	BreaksPlayedToday int64         `json:"breaks_played_today"`
	BreaksFailedToday int64         `json:"breaks_failed_today"`
	HeadlinesToday    int64         `json:"headlines_today"`
	FeedsHealthy      int64         `json:"feeds_healthy"`
	FeedsTotal        int64         `json:"feeds_total"`
	LastBreak         *models.Break `json:"last_break,omitempty"`
}

// Stats aggregates daily counters across the break queue, the headline
// store, and feed health.
type Stats struct {
	breaks    repository.BreakRepository
	headlines repository.HeadlineRepository
	sources   repository.FeedSourceRepository

	now func() time.Time
}

// NewStats creates a Stats service over the given repositories.
func NewStats(breaks repository.BreakRepository, headlines repository.HeadlineRepository, sources repository.FeedSourceRepository) *Stats {
	return &Stats{
		breaks:    breaks,
		headlines: headlines,
		sources:   sources,
		now:       time.Now,
	}
}

// Today returns the snapshot since local midnight.
func (s *Stats) Today(ctx context.Context) (*Snapshot, error) {
	now := s.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	played, err := s.breaks.CountByStatusSince(ctx, models.BreakStatusPlayed, midnight)
	if err != nil {
		return nil, fmt.Errorf("counting played breaks: %w", err)
	}
	failed, err := s.breaks.CountByStatusSince(ctx, models.BreakStatusFailed, midnight)
	if err != nil {
		return nil, fmt.Errorf("counting failed breaks: %w", err)
	}
	headlines, err := s.headlines.CountSince(ctx, midnight)
	if err != nil {
		return nil, fmt.Errorf("counting headlines: %w", err)
	}
	healthy, total, err := s.sources.HealthCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting feed health: %w", err)
	}
	last, err := s.breaks.GetLatestByStatus(ctx, models.BreakStatusPlayed)
	if err != nil {
		return nil, fmt.Errorf("getting last played break: %w", err)
	}

	return &Snapshot{
		BreaksPlayedToday: played,
		BreaksFailedToday: failed,
		HeadlinesToday:    headlines,
		FeedsHealthy:      healthy,
		FeedsTotal:        total,
		LastBreak:         last,
	}, nil
}
