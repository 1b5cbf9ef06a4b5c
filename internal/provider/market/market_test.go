package market

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hermesradio/hermes/internal/config"
	"github.com/hermesradio/hermes/internal/models"
	"github.com/hermesradio/hermes/internal/repository"
)

func newTestProvider(t *testing.T, baseURL string) (*Provider, repository.MarketCacheRepository, repository.SettingRepository) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.MarketCache{}, &models.Setting{})
	require.NoError(t, err)

	cache := repository.NewMarketCacheRepository(db)
	settings := repository.NewSettingRepository(db)
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	p := NewProvider(config.MarketConfig{
		BaseURL: baseURL,
		Timeout: 5 * time.Second,
	}, cache, settings, log)

	return p, cache, settings
}

func TestProvider_Quote_DisabledReturnsNil(t *testing.T) {
	p, _, _ := newTestProvider(t, "http://unused.invalid")

	quote, err := p.Quote(context.Background())
	require.NoError(t, err)
	assert.Nil(t, quote)
}

func TestProvider_Quote_FetchAndCache(t *testing.T) {
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		assert.Equal(t, "bitcoin", r.URL.Query().Get("ids"))
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currencies"))
		fmt.Fprint(w, `{"bitcoin": {"usd": 64251.12, "usd_24h_change": -2.49}}`)
	}))
	defer srv.Close()

	p, cache, settings := newTestProvider(t, srv.URL)
	ctx := context.Background()
	require.NoError(t, settings.Set(ctx, "bitcoin_enabled", "true"))

	quote, err := p.Quote(ctx)
	require.NoError(t, err)
	require.NotNil(t, quote)
	assert.Equal(t, 64251.12, quote.PriceUSD)
	assert.Equal(t, -2.49, quote.Change24h)
	assert.False(t, quote.Stale)
	assert.Equal(t, int64(1), requests.Load())

	row, err := cache.GetBySymbol(ctx, "bitcoin")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, 64251.12, row.PriceUSD)

	// Fresh cache short-circuits the API.
	quote, err = p.Quote(ctx)
	require.NoError(t, err)
	assert.Equal(t, 64251.12, quote.PriceUSD)
	assert.Equal(t, int64(1), requests.Load())
}

func TestProvider_Quote_APIKeyHeaderSent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "cg-test-key", r.Header.Get("x-cg-demo-api-key"))
		fmt.Fprint(w, `{"bitcoin": {"usd": 50000, "usd_24h_change": 0.1}}`)
	}))
	defer srv.Close()

	p, _, settings := newTestProvider(t, srv.URL)
	ctx := context.Background()
	require.NoError(t, settings.Set(ctx, "bitcoin_enabled", "true"))
	require.NoError(t, settings.Set(ctx, "bitcoin_api_key", "cg-test-key"))

	_, err := p.Quote(ctx)
	require.NoError(t, err)
}

func TestProvider_Quote_CustomTTLRespected(t *testing.T) {
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		fmt.Fprint(w, `{"bitcoin": {"usd": 61000, "usd_24h_change": 1.2}}`)
	}))
	defer srv.Close()

	p, cache, settings := newTestProvider(t, srv.URL)
	ctx := context.Background()
	require.NoError(t, settings.Set(ctx, "bitcoin_enabled", "true"))
	require.NoError(t, settings.Set(ctx, "bitcoin_cache_ttl_seconds", "60"))

	// Seed a row 2 minutes old: stale under the 60s TTL, fresh under the
	// 300s default.
	require.NoError(t, cache.Upsert(ctx, &models.MarketCache{
		Symbol:    "bitcoin",
		PriceUSD:  59000,
		Change24h: -1,
		FetchedAt: time.Now().UTC().Add(-2 * time.Minute),
	}))

	quote, err := p.Quote(ctx)
	require.NoError(t, err)
	assert.Equal(t, 61000.0, quote.PriceUSD)
	assert.Equal(t, int64(1), requests.Load())
}

func TestProvider_Quote_StaleServedOnFetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p, cache, settings := newTestProvider(t, srv.URL)
	ctx := context.Background()
	require.NoError(t, settings.Set(ctx, "bitcoin_enabled", "true"))

	fetchedAt := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, cache.Upsert(ctx, &models.MarketCache{
		Symbol:    "bitcoin",
		PriceUSD:  58750.5,
		Change24h: 3.1,
		FetchedAt: fetchedAt,
	}))

	quote, err := p.Quote(ctx)
	require.NoError(t, err)
	require.NotNil(t, quote)
	assert.True(t, quote.Stale)
	assert.Equal(t, 58750.5, quote.PriceUSD)
	assert.WithinDuration(t, fetchedAt, quote.FetchedAt, time.Second)
}

func TestProvider_Quote_FailureWithoutCacheErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p, _, settings := newTestProvider(t, srv.URL)
	ctx := context.Background()
	require.NoError(t, settings.Set(ctx, "bitcoin_enabled", "true"))

	quote, err := p.Quote(ctx)
	require.Error(t, err)
	assert.Nil(t, quote)
}

func TestProvider_Quote_EmptyPayloadIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	p, _, settings := newTestProvider(t, srv.URL)
	ctx := context.Background()
	require.NoError(t, settings.Set(ctx, "bitcoin_enabled", "true"))

	quote, err := p.Quote(ctx)
	require.Error(t, err)
	assert.Nil(t, quote)
	assert.Contains(t, err.Error(), "missing bitcoin price")
}
