package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketPulse/internal/domain/models"
	"MarketPulse/internal/service/ratelimit"
	pkghttp "MarketPulse/pkg/http"
	"MarketPulse/pkg/logger"
)

func newTestBuilder(t *testing.T, primaryURL, newsURL string) *ContextBuilder {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)

	client := pkghttp.NewClient(pkghttp.WithTimeout(2 * time.Second))
	prices := NewPriceFeed(PriceFeedConfig{
		PrimaryURLs:     []string{primaryURL},
		SecondaryURL:    "http://127.0.0.1:1",
		QuoteAsset:      "USDT",
		Retries:         1,
		BackoffBase:     time.Millisecond,
		SecondaryBurst:  100,
		SecondaryRefill: 100,
	}, client, client, ratelimit.New(), log)
	news := NewNewsFeed(newsURL, 5, client, log)

	b := NewContextBuilder(prices, news, log)
	b.now = func() time.Time {
		return time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	}
	return b
}

func TestBuildFullContext(t *testing.T) {
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v3/ticker/24hr":
			json.NewEncoder(w).Encode(map[string]string{
				"lastPrice":          "50000.00",
				"priceChangePercent": "1.5",
			})
		case "/api/v3/klines":
			klines := make([][]interface{}, 30)
			for i := range klines {
				klines[i] = []interface{}{
					1700000000000 + int64(i)*3600000,
					"100.0", "110.0", "95.0",
					fmt.Sprintf("%.1f", 100.0+float64(i)), "1000.0",
				}
			}
			json.NewEncoder(w).Encode(klines)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer primary.Close()

	news := newsServer(t, []newsItem{
		{Title: "Bitcoin steady", URL: "u1", Source: "wire", PublishedOn: 1700000000},
	})

	builder := newTestBuilder(t, primary.URL, news.URL)
	mc := builder.Build(context.Background(), "btc")

	assert.Equal(t, "BTC", mc.Symbol)
	assert.Equal(t, "2026-08-31T12:00:00Z", mc.GeneratedAt)
	assert.Empty(t, mc.Price.Error)
	assert.Equal(t, 50000.0, mc.Price.Spot)
	assert.Empty(t, mc.Technical.Error)
	assert.Equal(t, models.SourceBinance, mc.Technical.Source)
	assert.Equal(t, 129.0, mc.Technical.CurrentPrice)
	require.Len(t, mc.Macro.Headlines, 1)
	assert.Nil(t, mc.Sentiment.FundingRate)
	assert.Equal(t, "Not configured", mc.Sentiment.FundingRateSource)
	assert.NotEmpty(t, mc.Notes)
}

func TestBuildDegradedContextStaysParseable(t *testing.T) {
	// Every upstream is unreachable: each block degrades independently and
	// the snapshot still serializes to valid JSON.
	builder := newTestBuilder(t, "http://127.0.0.1:1", "http://127.0.0.1:1")
	mc := builder.Build(context.Background(), "BTC")

	assert.NotEmpty(t, mc.Price.Error)
	assert.NotEmpty(t, mc.Technical.Error)
	assert.Empty(t, mc.Macro.Headlines)

	doc, err := mc.CanonicalJSON()
	require.NoError(t, err)
	require.True(t, json.Valid([]byte(doc)))

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(doc), &decoded))
	for _, key := range []string{"symbol", "generated_at", "price", "technical_indicators", "macro", "sentiment", "on_chain", "notes"} {
		assert.Contains(t, decoded, key)
	}

	// Degraded blocks carry only the error key.
	var price map[string]string
	require.NoError(t, json.Unmarshal(decoded["price"], &price))
	assert.Len(t, price, 1)
	assert.NotEmpty(t, price["error"])
}

func TestBuildIsDeterministicForFixedInputs(t *testing.T) {
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v3/ticker/24hr":
			json.NewEncoder(w).Encode(map[string]string{
				"lastPrice":          "250.5",
				"priceChangePercent": "0.5",
			})
		case "/api/v3/klines":
			w.Write([]byte(`[
				[1700000000000, "250.0", "251.0", "249.0", "250.0", "10.0"],
				[1700003600000, "250.0", "252.0", "249.5", "250.5", "12.0"]
			]`))
		}
	}))
	defer primary.Close()
	news := newsServer(t, nil)

	builder := newTestBuilder(t, primary.URL, news.URL)
	first, err := builder.Build(context.Background(), "SOL").CanonicalJSON()
	require.NoError(t, err)
	second, err := builder.Build(context.Background(), "SOL").CanonicalJSON()
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestCanonicalJSONIsMinified(t *testing.T) {
	mc := &models.MarketContext{Symbol: "BTC", GeneratedAt: "2026-08-31T12:00:00Z"}
	doc, err := mc.CanonicalJSON()
	require.NoError(t, err)
	assert.NotContains(t, doc, "\n")
	assert.NotContains(t, doc, ": ")
}
