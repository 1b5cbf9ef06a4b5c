// Package news polls RSS/Atom feed sources, sanitizes what comes back, and
// stores deduplicated headlines for scoring. Each source carries its own
// circuit breaker and a consecutive-failure count; five straight failures
// mark it dead and drop it from the poll set until an operator re-enables it.
package news

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hermesradio/hermes/internal/models"
	"github.com/hermesradio/hermes/internal/observability"
	"github.com/hermesradio/hermes/internal/repository"
	"github.com/hermesradio/hermes/pkg/httpclient"
	"github.com/hermesradio/hermes/pkg/rss"
)

const (
	// fetchTimeout bounds one feed request.
	fetchTimeout = 15 * time.Second

	// maxItemsPerFeed caps how deep into a feed one poll reads.
	maxItemsPerFeed = 20

	// maxTitleRunes and maxSummaryRunes clamp sanitized text before storage.
	maxTitleRunes   = 200
	maxSummaryRunes = 500

	// maxFeedBytes caps a decompressed feed body.
	maxFeedBytes = 10 << 20
)

// errFeedLimit aborts parsing once maxItemsPerFeed items have been seen.
var errFeedLimit = errors.New("feed item limit reached")

// FetchResult summarizes one polling pass over the active sources.
type FetchResult struct {
	Sources int `json:"sources"`
	Failed  int `json:"failed"`
	Items   int `json:"items"`
	Stored  int `json:"stored"`
}

// Collector polls the configured feed sources.
type Collector struct {
	sources   repository.FeedSourceRepository
	headlines repository.HeadlineRepository
	events    repository.EventRepository
	breakers  *httpclient.BreakerGroup
	logger    *slog.Logger
}

// NewCollector creates a feed collector. Every source gets its own circuit
// breaker from a shared group so one dead upstream cannot block the rest.
func NewCollector(sources repository.FeedSourceRepository, headlines repository.HeadlineRepository, events repository.EventRepository, logger *slog.Logger) *Collector {
	return &Collector{
		sources:   sources,
		headlines: headlines,
		events:    events,
		breakers:  httpclient.NewBreakerGroup(httpclient.DefaultCircuitThreshold, httpclient.DefaultCircuitTimeout, httpclient.DefaultCircuitHalfOpenMax),
		logger:    observability.WithComponent(logger, "news"),
	}
}

// FetchAll polls every active, non-dead source in turn. A dead source sits
// out until an operator re-enables it, which clears its streak. Per-source
// failures are recorded on the source row; only a repository error aborts
// the pass.
func (c *Collector) FetchAll(ctx context.Context) (*FetchResult, error) {
	sources, err := c.sources.GetPollable(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing feed sources: %w", err)
	}

	result := &FetchResult{Sources: len(sources)}
	for _, source := range sources {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		items, stored, fetchErr := c.fetchSource(ctx, source)
		result.Items += items
		result.Stored += stored

		if fetchErr != nil {
			result.Failed++
			c.recordFailure(ctx, source, fetchErr)
			continue
		}
		c.recordSuccess(ctx, source)
	}

	c.logger.Info("feed poll complete",
		slog.Int("sources", result.Sources),
		slog.Int("failed", result.Failed),
		slog.Int("items", result.Items),
		slog.Int("stored", result.Stored))

	return result, nil
}

// fetchSource fetches and parses one feed, storing sanitized headlines.
// Returns how many items the feed yielded and how many survived dedupe.
func (c *Collector) fetchSource(ctx context.Context, source *models.FeedSource) (items, stored int, err error) {
	cfg := httpclient.DefaultConfig()
	cfg.Timeout = fetchTimeout
	cfg.MaxResponseSize = maxFeedBytes
	// A poll is one attempt; the next scheduler pass is the retry.
	cfg.RetryAttempts = 0
	cfg.Logger = c.logger
	client := httpclient.NewWithBreaker(cfg, c.breakers.GetOrCreate(source.Name))

	resp, err := client.Get(ctx, source.URL)
	if err != nil {
		return 0, 0, fmt.Errorf("fetching feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	var storeErr error
	parser := &rss.Parser{
		OnItem: func(item *rss.Item) error {
			items++
			ok, err := c.storeItem(ctx, source, item)
			if err != nil {
				storeErr = err
				return err
			}
			if ok {
				stored++
			}
			if items >= maxItemsPerFeed {
				return errFeedLimit
			}
			return nil
		},
		OnError: func(parseErr error) {
			c.logger.Debug("skipping malformed feed item",
				slog.String("source", source.Name),
				slog.String("error", parseErr.Error()))
		},
	}

	if err := parser.ParseCompressed(resp.Body); err != nil {
		// Hitting the item cap is a full read, not a failure.
		if errors.Is(err, errFeedLimit) {
			return items, stored, nil
		}
		if storeErr != nil {
			return items, stored, fmt.Errorf("storing headline: %w", storeErr)
		}
		return items, stored, fmt.Errorf("parsing feed: %w", err)
	}

	// An empty feed, or one yielding only duplicates, is a success.
	return items, stored, nil
}

// storeItem sanitizes and stores one feed item. Returns false when the item
// was a duplicate or had no usable title.
func (c *Collector) storeItem(ctx context.Context, source *models.FeedSource, item *rss.Item) (bool, error) {
	title := sanitize(item.Title, maxTitleRunes)
	if title == "" {
		return false, nil
	}

	headline := &models.Headline{
		DedupeID:   models.NewDedupeID(source.Name, title),
		SourceName: source.Name,
		Title:      title,
		Summary:    sanitize(item.Summary, maxSummaryRunes),
		Link:       item.Link,
		FetchedAt:  models.Now(),
	}
	if !item.Published.IsZero() {
		published := models.Time(item.Published)
		headline.PublishedAt = &published
	}

	return c.headlines.Store(ctx, headline)
}

func (c *Collector) recordSuccess(ctx context.Context, source *models.FeedSource) {
	source.RecordSuccess()

	if err := c.sources.Update(ctx, source); err != nil {
		c.logger.Warn("failed to update feed health",
			slog.String("source", source.Name),
			slog.String("error", err.Error()))
	}
}

func (c *Collector) recordFailure(ctx context.Context, source *models.FeedSource, fetchErr error) {
	c.logger.Warn("feed fetch failed",
		slog.String("source", source.Name),
		slog.Int("consecutive_failures", source.ConsecutiveFailures+1),
		slog.String("error", fetchErr.Error()))

	wentDead := source.RecordFailure(fetchErr)

	if err := c.sources.Update(ctx, source); err != nil {
		c.logger.Warn("failed to update feed health",
			slog.String("source", source.Name),
			slog.String("error", err.Error()))
		return
	}

	if wentDead {
		c.logger.Error("feed source marked dead",
			slog.String("source", source.Name),
			slog.Int("consecutive_failures", source.ConsecutiveFailures))
		if err := c.events.Log(ctx, models.EventFeedDead,
			fmt.Sprintf("feed source %q marked dead after %d consecutive failures", source.Name, source.ConsecutiveFailures),
			map[string]string{"source": source.Name, "last_error": source.LastError}); err != nil {
			c.logger.Warn("failed to log feed death", slog.String("error", err.Error()))
		}
	}
}

// BreakerStates exposes per-source circuit state for the health endpoint.
func (c *Collector) BreakerStates() map[string]httpclient.CircuitState {
	return c.breakers.States()
}
