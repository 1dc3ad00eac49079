package marketdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketPulse/internal/domain/models"
)

func candlesFromCloses(closes []float64) []models.Candle {
	candles := make([]models.Candle, len(closes))
	for i, c := range closes {
		candles[i] = models.Candle{
			Timestamp: int64(i) * 3600_000,
			Open:      c,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
			Volume:    100,
		}
	}
	return candles
}

func TestDeriveIndicatorsRisingSeries(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = float64(i + 1)
	}
	block := DeriveIndicators(candlesFromCloses(closes), models.SourceBinance)

	assert.Equal(t, 30.0, block.CurrentPrice)
	assert.InDelta(t, 3.45, block.Change24hPct, 0.001)
	assert.Equal(t, 27.0, block.MovingAverages.MA7)
	require.NotNil(t, block.MovingAverages.MA20)
	assert.Equal(t, 20.5, *block.MovingAverages.MA20)

	// A window with no down moves leaves the strength ratio undefined.
	assert.Nil(t, block.RSI)

	require.NotNil(t, block.MACDSignal)
	assert.Equal(t, 6.5, *block.MACDSignal)

	assert.Equal(t, 10.0, block.SupportLevel)
	assert.Equal(t, 31.0, block.ResistanceLevel)
	require.NotNil(t, block.PricePosition.DistanceFromSupportPct)
	assert.Equal(t, 200.0, *block.PricePosition.DistanceFromSupportPct)
	require.NotNil(t, block.PricePosition.DistanceFromResistancePct)
	assert.InDelta(t, 3.33, *block.PricePosition.DistanceFromResistancePct, 0.001)

	assert.Equal(t, models.TrendBullish, block.Trend)
	assert.True(t, block.PriceAboveMA7)
	require.NotNil(t, block.PriceAboveMA20)
	assert.True(t, *block.PriceAboveMA20)
	assert.Equal(t, models.SourceBinance, block.Source)
}

func TestDeriveIndicatorsFallingSeries(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = float64(30 - i)
	}
	block := DeriveIndicators(candlesFromCloses(closes), models.SourceBinance)

	assert.Equal(t, models.TrendBearish, block.Trend)
	assert.False(t, block.PriceAboveMA7)

	// All losses: average gain is zero, RSI pins to 0.
	require.NotNil(t, block.RSI)
	assert.Equal(t, 0.0, *block.RSI)
}

func TestDeriveIndicatorsShortSeries(t *testing.T) {
	block := DeriveIndicators(candlesFromCloses([]float64{1, 2, 3, 4, 5}), models.SourceCoinGecko)

	// Too short for the long MA and everything derived from it.
	assert.Nil(t, block.MovingAverages.MA20)
	assert.Nil(t, block.MACDSignal)
	assert.Nil(t, block.RSI)
	assert.Nil(t, block.PriceAboveMA20)

	// Short MA averages whatever is available.
	assert.Equal(t, 3.0, block.MovingAverages.MA7)
	assert.Equal(t, models.TrendBullish, block.Trend)
	assert.Equal(t, 0.0, block.SupportLevel)
	assert.Equal(t, 6.0, block.ResistanceLevel)
}

func TestDeriveIndicatorsMixedRSIBounds(t *testing.T) {
	// Alternating moves keep the RSI strictly inside (0, 100).
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100
		if i%2 == 1 {
			closes[i] = 103
		}
	}
	block := DeriveIndicators(candlesFromCloses(closes), models.SourceBinance)

	require.NotNil(t, block.RSI)
	assert.Greater(t, *block.RSI, 0.0)
	assert.Less(t, *block.RSI, 100.0)
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 3.45, round2(3.4482758))
	assert.Equal(t, -1.23, round2(-1.2349))
	assert.Equal(t, 0.0, round2(0))
}
