package models

import "encoding/json"

// Price source identifiers carried in context blocks.
const (
	SourceBinance   = "binance"
	SourceCoinGecko = "coingecko"
)

// Trend classifications.
const (
	TrendBullish = "bullish"
	TrendBearish = "bearish"
	TrendNeutral = "neutral"
)

// Candle is one OHLCV period, timestamp in epoch milliseconds.
type Candle struct {
	Timestamp int64
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// PriceBlock holds the spot price snapshot, or an error when every source
// failed. The two shapes are mutually exclusive on the wire.
type PriceBlock struct {
	Spot      float64
	Change24h float64
	Source    string
	Error     string
}

type priceBlockJSON struct {
	Spot      float64 `json:"spot"`
	Change24h float64 `json:"usd_24h_change"`
	Source    string  `json:"source"`
}

type errorJSON struct {
	Error string `json:"error"`
}

func (b PriceBlock) MarshalJSON() ([]byte, error) {
	if b.Error != "" {
		return json.Marshal(errorJSON{Error: b.Error})
	}
	return json.Marshal(priceBlockJSON{Spot: b.Spot, Change24h: b.Change24h, Source: b.Source})
}

func (b *PriceBlock) UnmarshalJSON(data []byte) error {
	var e errorJSON
	if err := json.Unmarshal(data, &e); err == nil && e.Error != "" {
		b.Error = e.Error
		return nil
	}
	var p priceBlockJSON
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	b.Spot, b.Change24h, b.Source = p.Spot, p.Change24h, p.Source
	return nil
}

// MovingAverages groups the short and long simple moving averages.
// MA20 is null when fewer than 20 candles were available.
type MovingAverages struct {
	MA7  float64  `json:"ma_7"`
	MA20 *float64 `json:"ma_20"`
}

// PricePosition describes the current price relative to support/resistance.
type PricePosition struct {
	DistanceFromSupportPct    *float64 `json:"distance_from_support_pct"`
	DistanceFromResistancePct *float64 `json:"distance_from_resistance_pct"`
}

// IndicatorBlock holds derived technical indicators, or an error when no
// candle source answered. All numeric values are rounded to 2 decimals.
type IndicatorBlock struct {
	CurrentPrice    float64
	Change24hPct    float64
	MovingAverages  MovingAverages
	RSI             *float64
	MACDSignal      *float64
	SupportLevel    float64
	ResistanceLevel float64
	PricePosition   PricePosition
	Trend           string
	PriceAboveMA7   bool
	PriceAboveMA20  *bool
	Source          string
	Error           string
}

type indicatorBlockJSON struct {
	CurrentPrice    float64        `json:"current_price"`
	Change24hPct    float64        `json:"price_change_24h_pct"`
	MovingAverages  MovingAverages `json:"moving_averages"`
	RSI             *float64       `json:"rsi"`
	MACDSignal      *float64       `json:"macd_signal"`
	SupportLevel    float64        `json:"support_level"`
	ResistanceLevel float64        `json:"resistance_level"`
	PricePosition   PricePosition  `json:"price_position"`
	Trend           string         `json:"trend"`
	PriceAboveMA7   bool           `json:"price_above_ma7"`
	PriceAboveMA20  *bool          `json:"price_above_ma20"`
	Source          string         `json:"source"`
}

func (b IndicatorBlock) MarshalJSON() ([]byte, error) {
	if b.Error != "" {
		return json.Marshal(errorJSON{Error: b.Error})
	}
	return json.Marshal(indicatorBlockJSON{
		CurrentPrice:    b.CurrentPrice,
		Change24hPct:    b.Change24hPct,
		MovingAverages:  b.MovingAverages,
		RSI:             b.RSI,
		MACDSignal:      b.MACDSignal,
		SupportLevel:    b.SupportLevel,
		ResistanceLevel: b.ResistanceLevel,
		PricePosition:   b.PricePosition,
		Trend:           b.Trend,
		PriceAboveMA7:   b.PriceAboveMA7,
		PriceAboveMA20:  b.PriceAboveMA20,
		Source:          b.Source,
	})
}

func (b *IndicatorBlock) UnmarshalJSON(data []byte) error {
	var e errorJSON
	if err := json.Unmarshal(data, &e); err == nil && e.Error != "" {
		b.Error = e.Error
		return nil
	}
	var p indicatorBlockJSON
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*b = IndicatorBlock{
		CurrentPrice:    p.CurrentPrice,
		Change24hPct:    p.Change24hPct,
		MovingAverages:  p.MovingAverages,
		RSI:             p.RSI,
		MACDSignal:      p.MACDSignal,
		SupportLevel:    p.SupportLevel,
		ResistanceLevel: p.ResistanceLevel,
		PricePosition:   p.PricePosition,
		Trend:           p.Trend,
		PriceAboveMA7:   p.PriceAboveMA7,
		PriceAboveMA20:  p.PriceAboveMA20,
		Source:          p.Source,
	}
	return nil
}

// Headline is one news item relevant to a symbol. PublishedAt is the
// upstream's epoch-seconds value, passed through unmodified.
type Headline struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	PublishedAt int64  `json:"published_at"`
	Source      string `json:"source"`
}

// NewsBlock wraps the headline list under the key the contract expects.
type NewsBlock struct {
	Headlines []Headline `json:"headlines"`
}

// SentimentBlock is a placeholder until a funding-rate source is wired.
type SentimentBlock struct {
	FundingRate       *float64 `json:"funding_rate"`
	FundingRateSource string   `json:"funding_rate_source"`
}

// OnChainBlock is a placeholder for on-chain activity signals.
type OnChainBlock struct {
	ExchangeInflows *float64 `json:"exchange_inflows"`
	WhaleActivity   *string  `json:"whale_activity"`
}

// MarketContext is the immutable per-symbol snapshot handed to the ledger.
// The canonical serialized form is the minified JSON of this struct; the
// contract stores it verbatim and the expiration check re-reads it later.
type MarketContext struct {
	Symbol      string         `json:"symbol"`
	GeneratedAt string         `json:"generated_at"`
	Price       PriceBlock     `json:"price"`
	Technical   IndicatorBlock `json:"technical_indicators"`
	Macro       NewsBlock      `json:"macro"`
	Sentiment   SentimentBlock `json:"sentiment"`
	OnChain     OnChainBlock   `json:"on_chain"`
	Notes       string         `json:"notes"`
}

// CanonicalJSON returns the minified serialized form of the context, the
// exact payload handed to the contract.
func (mc *MarketContext) CanonicalJSON() (string, error) {
	data, err := json.Marshal(mc)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
