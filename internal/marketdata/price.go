package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"MarketPulse/internal/domain/models"
	"MarketPulse/internal/service/ratelimit"
	pkghttp "MarketPulse/pkg/http"
	"MarketPulse/pkg/logger"
)

const secondaryLimitKey = "coingecko"

// PriceFeedConfig holds the upstream endpoints and retry policy.
type PriceFeedConfig struct {
	PrimaryURLs  []string
	SecondaryURL string
	QuoteAsset   string
	Retries      int
	BackoffBase  time.Duration
	// Token bucket applied to every secondary-API call.
	SecondaryBurst  float64
	SecondaryRefill float64
}

// PriceFeed resolves spot prices and OHLC candles. The primary source is a
// list of exchange mirrors tried in order; when all mirrors fail, a
// secondary aggregator API is queried with rate-limit-aware backoff.
type PriceFeed struct {
	cfg       PriceFeedConfig
	primary   *pkghttp.Client
	secondary *pkghttp.Client
	limiter   *ratelimit.Limiter
	log       *logger.Logger
}

// NewPriceFeed creates a PriceFeed backed by the given HTTP clients.
// primary and secondary carry different timeouts, so they stay separate.
func NewPriceFeed(cfg PriceFeedConfig, primary, secondary *pkghttp.Client, limiter *ratelimit.Limiter, log *logger.Logger) *PriceFeed {
	return &PriceFeed{
		cfg:       cfg,
		primary:   primary,
		secondary: secondary,
		limiter:   limiter,
		log:       log,
	}
}

// FetchPrice returns the spot-price block for a symbol. It never returns a
// Go error: when every source fails the block carries an error message and
// the context builder ships it as-is.
func (f *PriceFeed) FetchPrice(ctx context.Context, symbol string) models.PriceBlock {
	if block, ok := f.primaryPrice(ctx, symbol); ok {
		return block
	}
	return f.secondaryPrice(ctx, symbol)
}

// CurrentPrice resolves just the spot price, as the reconciler needs it.
func (f *PriceFeed) CurrentPrice(ctx context.Context, symbol string) (float64, string, error) {
	block := f.FetchPrice(ctx, symbol)
	if block.Error != "" {
		return 0, "", errors.New(block.Error)
	}
	return block.Spot, block.Source, nil
}

type tickerResponse struct {
	LastPrice          string `json:"lastPrice"`
	PriceChangePercent string `json:"priceChangePercent"`
}

func (f *PriceFeed) primaryPrice(ctx context.Context, symbol string) (models.PriceBlock, bool) {
	pair := ExchangeSymbol(symbol, f.cfg.QuoteAsset)

	for _, base := range f.cfg.PrimaryURLs {
		var ticker tickerResponse
		err := f.primary.SendAndParse(ctx, &pkghttp.RequestOptions{
			Method:      pkghttp.MethodGet,
			URL:         base + "/api/v3/ticker/24hr",
			QueryParams: map[string][]string{"symbol": {pair}},
		}, &ticker)
		if err != nil {
			// 400 means the pair does not exist on this mirror; anything
			// else is a mirror problem. Either way the next mirror gets
			// its chance.
			f.log.Debug("primary ticker failed",
				logger.String("symbol", symbol),
				logger.String("base", base),
				logger.Error(err))
			continue
		}

		spot, err1 := strconv.ParseFloat(ticker.LastPrice, 64)
		change, err2 := strconv.ParseFloat(ticker.PriceChangePercent, 64)
		if err1 != nil || err2 != nil {
			continue
		}
		return models.PriceBlock{Spot: spot, Change24h: change, Source: models.SourceBinance}, true
	}
	return models.PriceBlock{}, false
}

type simplePriceEntry struct {
	USD       *float64 `json:"usd"`
	Change24h *float64 `json:"usd_24h_change"`
}

func (f *PriceFeed) secondaryPrice(ctx context.Context, symbol string) models.PriceBlock {
	id := CoinID(symbol)

	var block models.PriceBlock
	err := f.withSecondaryBackoff(ctx, func() error {
		var payload map[string]simplePriceEntry
		err := f.secondary.SendAndParse(ctx, &pkghttp.RequestOptions{
			Method: pkghttp.MethodGet,
			URL:    f.cfg.SecondaryURL + "/simple/price",
			QueryParams: map[string][]string{
				"ids":                 {id},
				"vs_currencies":       {"usd"},
				"include_24hr_change": {"true"},
			},
		}, &payload)
		if err != nil {
			return err
		}
		entry, ok := payload[id]
		if !ok || entry.USD == nil {
			return fmt.Errorf("no price for coin id %q", id)
		}
		block = models.PriceBlock{Spot: *entry.USD, Source: models.SourceCoinGecko}
		if entry.Change24h != nil {
			block.Change24h = *entry.Change24h
		}
		return nil
	})
	if err != nil {
		return models.PriceBlock{Error: err.Error()}
	}
	return block
}

// FetchCandles returns hourly candles covering the given day span, tagged
// with the source that answered. Primary klines are tried across every
// mirror first; the secondary OHLC endpoint is the fallback.
func (f *PriceFeed) FetchCandles(ctx context.Context, symbol string, days int) ([]models.Candle, string, error) {
	if candles, ok := f.primaryCandles(ctx, symbol, days); ok {
		return candles, models.SourceBinance, nil
	}
	candles, err := f.secondaryCandles(ctx, symbol, days)
	if err != nil {
		return nil, "", err
	}
	return candles, models.SourceCoinGecko, nil
}

func (f *PriceFeed) primaryCandles(ctx context.Context, symbol string, days int) ([]models.Candle, bool) {
	pair := ExchangeSymbol(symbol, f.cfg.QuoteAsset)
	limit := days * 24
	if limit > 500 {
		limit = 500
	}

	for _, base := range f.cfg.PrimaryURLs {
		var klines [][]json.RawMessage
		err := f.primary.SendAndParse(ctx, &pkghttp.RequestOptions{
			Method: pkghttp.MethodGet,
			URL:    base + "/api/v3/klines",
			QueryParams: map[string][]string{
				"symbol":   {pair},
				"interval": {"1h"},
				"limit":    {strconv.Itoa(limit)},
			},
		}, &klines)
		if err != nil {
			continue
		}

		candles, err := parseKlines(klines)
		if err != nil {
			f.log.Debug("kline parse failed",
				logger.String("symbol", symbol),
				logger.Error(err))
			continue
		}
		// Fewer than two candles cannot produce indicators; let the
		// secondary source try.
		if len(candles) < 2 {
			continue
		}
		return candles, true
	}
	return nil, false
}

func (f *PriceFeed) secondaryCandles(ctx context.Context, symbol string, days int) ([]models.Candle, error) {
	id := CoinID(symbol)

	var candles []models.Candle
	err := f.withSecondaryBackoff(ctx, func() error {
		var rows [][]float64
		err := f.secondary.SendAndParse(ctx, &pkghttp.RequestOptions{
			Method: pkghttp.MethodGet,
			URL:    fmt.Sprintf("%s/coins/%s/ohlc", f.cfg.SecondaryURL, id),
			QueryParams: map[string][]string{
				"vs_currency": {"usd"},
				"days":        {strconv.Itoa(days)},
			},
		}, &rows)
		if err != nil {
			return err
		}
		candles = candles[:0]
		for _, row := range rows {
			if len(row) < 5 {
				continue
			}
			candles = append(candles, models.Candle{
				Timestamp: int64(row[0]),
				Open:      row[1],
				High:      row[2],
				Low:       row[3],
				Close:     row[4],
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return candles, nil
}

// withSecondaryBackoff runs fn under the secondary API's token bucket and
// retries it with exponential backoff, but only on HTTP 429. Any other
// failure is returned immediately.
func (f *PriceFeed) withSecondaryBackoff(ctx context.Context, fn func() error) error {
	for attempt := 0; attempt < f.cfg.Retries; attempt++ {
		if !f.limiter.Wait(secondaryLimitKey, f.cfg.SecondaryBurst, f.cfg.SecondaryRefill, 30*time.Second) {
			return errors.New("secondary API rate limiter saturated")
		}

		err := fn()
		if err == nil {
			return nil
		}

		var statusErr *pkghttp.StatusError
		if !errors.As(err, &statusErr) || statusErr.Status != 429 {
			return err
		}
		if attempt == f.cfg.Retries-1 {
			return errors.New("rate limit exceeded after retries")
		}

		wait := f.cfg.BackoffBase * (1 << attempt)
		f.log.Debug("secondary API rate limited, backing off",
			logger.Duration("wait", wait),
			logger.Int("attempt", attempt))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return errors.New("failed after retries")
}

func parseKlines(klines [][]json.RawMessage) ([]models.Candle, error) {
	candles := make([]models.Candle, 0, len(klines))
	for _, k := range klines {
		if len(k) < 6 {
			return nil, fmt.Errorf("kline row has %d fields", len(k))
		}
		var ts int64
		if err := json.Unmarshal(k[0], &ts); err != nil {
			return nil, fmt.Errorf("kline timestamp: %w", err)
		}
		fields := make([]float64, 5)
		for i := 1; i <= 5; i++ {
			v, err := parseNumericField(k[i])
			if err != nil {
				return nil, fmt.Errorf("kline field %d: %w", i, err)
			}
			fields[i-1] = v
		}
		candles = append(candles, models.Candle{
			Timestamp: ts,
			Open:      fields[0],
			High:      fields[1],
			Low:       fields[2],
			Close:     fields[3],
			Volume:    fields[4],
		})
	}
	return candles, nil
}

// parseNumericField accepts both string-encoded and plain JSON numbers.
func parseNumericField(raw json.RawMessage) (float64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strconv.ParseFloat(s, 64)
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, err
	}
	return v, nil
}
