// Package market fetches the bitcoin spot price from a coingecko-style
// simple-price endpoint. The whole provider sits behind the
// `bitcoin_enabled` setting; stations that never mention markets keep it
// off and nothing here runs.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hermesradio/hermes/internal/config"
	"github.com/hermesradio/hermes/internal/models"
	"github.com/hermesradio/hermes/internal/observability"
	"github.com/hermesradio/hermes/internal/repository"
	"github.com/hermesradio/hermes/pkg/httpclient"
)

// Settings read at quote time. TTL and key are runtime-tunable so a key
// rotation never needs a restart.
const (
	settingEnabled  = "bitcoin_enabled"
	settingAPIKey   = "bitcoin_api_key"
	settingCacheTTL = "bitcoin_cache_ttl_seconds"
)

// defaultCacheTTLSeconds is used when the TTL setting is absent.
const defaultCacheTTLSeconds = 300

// symbolBitcoin keys the cache row. One symbol today; the schema allows more.
const symbolBitcoin = "bitcoin"

// apiKeyHeader is the coingecko-compatible key header.
const apiKeyHeader = "x-cg-demo-api-key"

// Quote is a market snapshot as used by the script writer.
type Quote struct {
	PriceUSD  float64   `json:"price_usd"`
	Change24h float64   `json:"change_24h"`
	FetchedAt time.Time `json:"fetched_at"`

	// Stale marks a quote served from an expired cache row after a fetch
	// failure.
	Stale bool `json:"stale,omitempty"`
}

// Provider fetches bitcoin quotes with a cached, stale-on-failure flow.
type Provider struct {
	client   *httpclient.Client
	cache    repository.MarketCacheRepository
	settings repository.SettingRepository
	logger   *slog.Logger

	baseURL string
}

// NewProvider creates a market provider from the deployment config and the
// cache/settings repositories.
func NewProvider(cfg config.MarketConfig, cache repository.MarketCacheRepository, settings repository.SettingRepository, logger *slog.Logger) *Provider {
	clientCfg := httpclient.DefaultConfig()
	if cfg.Timeout > 0 {
		clientCfg.Timeout = cfg.Timeout
	}
	clientCfg.RetryAttempts = 1
	clientCfg.Logger = logger

	return &Provider{
		client:   httpclient.New(clientCfg),
		cache:    cache,
		settings: settings,
		logger:   observability.WithComponent(logger, "market"),
		baseURL:  cfg.BaseURL,
	}
}

// Enabled reports whether the provider is switched on.
func (p *Provider) Enabled(ctx context.Context) (bool, error) {
	return p.settings.Bool(ctx, settingEnabled, false)
}

// Quote returns the current bitcoin quote, or (nil, nil) when the provider
// is disabled. Cache flow matches weather: fresh row served as-is, stale or
// missing row triggers a fetch, failed fetch falls back to the stale row.
func (p *Provider) Quote(ctx context.Context) (*Quote, error) {
	enabled, err := p.Enabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading market settings: %w", err)
	}
	if !enabled {
		return nil, nil
	}

	ttlSeconds, err := p.settings.Int(ctx, settingCacheTTL, defaultCacheTTLSeconds)
	if err != nil {
		return nil, fmt.Errorf("reading market settings: %w", err)
	}
	ttl := time.Duration(ttlSeconds) * time.Second

	cached, err := p.cache.GetBySymbol(ctx, symbolBitcoin)
	if err != nil {
		return nil, fmt.Errorf("reading market cache: %w", err)
	}

	now := time.Now().UTC()
	if cached != nil && cached.Fresh(ttl, now) {
		return quoteFromCache(cached, false), nil
	}

	quote, fetchErr := p.fetch(ctx)
	if fetchErr == nil {
		row := &models.MarketCache{
			Symbol:    symbolBitcoin,
			PriceUSD:  quote.PriceUSD,
			Change24h: quote.Change24h,
			FetchedAt: models.Time(quote.FetchedAt),
		}
		if err := p.cache.Upsert(ctx, row); err != nil {
			p.logger.Warn("failed to cache market quote", slog.String("error", err.Error()))
		}
		return quote, nil
	}

	if cached != nil {
		p.logger.Warn("market fetch failed, serving stale cache",
			slog.Time("fetched_at", time.Time(cached.FetchedAt)),
			slog.String("error", fetchErr.Error()))
		return quoteFromCache(cached, true), nil
	}

	return nil, fmt.Errorf("fetching bitcoin quote: %w", fetchErr)
}

// simplePriceResponse is the coingecko simple-price payload shape.
type simplePriceResponse struct {
	Bitcoin struct {
		USD       float64 `json:"usd"`
		Change24h float64 `json:"usd_24h_change"`
	} `json:"bitcoin"`
}

func (p *Provider) fetch(ctx context.Context) (*Quote, error) {
	endpoint := p.baseURL + "/api/v3/simple/price?ids=bitcoin&vs_currencies=usd&include_24hr_change=true"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	apiKey, err := p.settings.String(ctx, settingAPIKey, "")
	if err != nil {
		return nil, fmt.Errorf("reading market settings: %w", err)
	}
	if apiKey != "" {
		req.Header.Set(apiKeyHeader, apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("market API returned status %d", resp.StatusCode)
	}

	var payload simplePriceResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding market response: %w", err)
	}
	if payload.Bitcoin.USD == 0 {
		return nil, fmt.Errorf("market response missing bitcoin price")
	}

	return &Quote{
		PriceUSD:  payload.Bitcoin.USD,
		Change24h: payload.Bitcoin.Change24h,
		FetchedAt: time.Now().UTC(),
	}, nil
}

func quoteFromCache(row *models.MarketCache, stale bool) *Quote {
	return &Quote{
		PriceUSD:  row.PriceUSD,
		Change24h: row.Change24h,
		FetchedAt: time.Time(row.FetchedAt),
		Stale:     stale,
	}
}
