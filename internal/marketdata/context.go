package marketdata

import (
	"context"
	"strings"
	"time"

	"MarketPulse/internal/domain/models"
	"MarketPulse/pkg/logger"
)

const (
	candleDays = 7

	contextNotes = "Context includes technical indicators (RSI, MACD, MA, Support/Resistance) and fundamental data (news, trends)"
)

// ContextBuilder assembles the per-symbol market snapshot out of the price,
// indicator, and news feeds. Each block degrades independently: a failed
// upstream turns into an error block, never into a failed build.
type ContextBuilder struct {
	prices *PriceFeed
	news   *NewsFeed
	log    *logger.Logger
	now    func() time.Time
}

// NewContextBuilder creates a ContextBuilder.
func NewContextBuilder(prices *PriceFeed, news *NewsFeed, log *logger.Logger) *ContextBuilder {
	return &ContextBuilder{
		prices: prices,
		news:   news,
		log:    log,
		now:    time.Now,
	}
}

// Build produces the market context for one symbol.
func (b *ContextBuilder) Build(ctx context.Context, symbol string) *models.MarketContext {
	sym := strings.ToUpper(symbol)

	price := b.prices.FetchPrice(ctx, sym)
	if price.Error != "" {
		b.log.Warn("price block degraded",
			logger.String("symbol", sym),
			logger.String("error", price.Error))
	}

	technical := b.buildIndicators(ctx, sym)
	if technical.Error != "" {
		b.log.Warn("indicator block degraded",
			logger.String("symbol", sym),
			logger.String("error", technical.Error))
	}

	return &models.MarketContext{
		Symbol:      sym,
		GeneratedAt: b.now().UTC().Format(time.RFC3339Nano),
		Price:       price,
		Technical:   technical,
		Macro:       b.news.FetchHeadlines(ctx, sym),
		Sentiment: models.SentimentBlock{
			FundingRateSource: "Not configured",
		},
		OnChain: models.OnChainBlock{},
		Notes:   contextNotes,
	}
}

func (b *ContextBuilder) buildIndicators(ctx context.Context, symbol string) models.IndicatorBlock {
	candles, source, err := b.prices.FetchCandles(ctx, symbol, candleDays)
	if err != nil {
		return models.IndicatorBlock{Error: err.Error()}
	}
	if len(candles) < 2 {
		return models.IndicatorBlock{Error: "not enough candles for indicators"}
	}
	return DeriveIndicators(candles, source)
}
