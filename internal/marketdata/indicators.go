package marketdata

import (
	"math"

	"MarketPulse/internal/domain/models"
)

const (
	rsiPeriod   = 14
	rangeWindow = 20
)

// DeriveIndicators computes the technical-indicator block from a candle
// series. The series must hold at least two candles; with fewer than 20
// the long moving average and its dependents are null. All values are
// rounded to two decimals.
func DeriveIndicators(candles []models.Candle, source string) models.IndicatorBlock {
	closes := make([]float64, len(candles))
	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
		highs[i] = c.High
		lows[i] = c.Low
	}

	n := len(closes)
	currentPrice := closes[n-1]
	prevPrice := closes[n-2]

	ma7 := mean(tail(closes, 7))
	var ma20 *float64
	if n >= rangeWindow {
		v := round2(mean(tail(closes, rangeWindow)))
		ma20 = &v
	}

	var change24h float64
	if prevPrice > 0 {
		change24h = (currentPrice - prevPrice) / prevPrice * 100
	}

	rsi := relativeStrength(closes)

	recentHigh := maxOf(tail(highs, rangeWindow))
	recentLow := minOf(tail(lows, rangeWindow))

	var macdSignal *float64
	if ma20 != nil {
		v := round2(ma7 - *ma20)
		macdSignal = &v
	}

	block := models.IndicatorBlock{
		CurrentPrice:    round2(currentPrice),
		Change24hPct:    round2(change24h),
		MovingAverages:  models.MovingAverages{MA7: round2(ma7), MA20: ma20},
		RSI:             rsi,
		MACDSignal:      macdSignal,
		SupportLevel:    round2(recentLow),
		ResistanceLevel: round2(recentHigh),
		Trend:           classifyTrend(currentPrice, ma7, ma20),
		PriceAboveMA7:   currentPrice > ma7,
		Source:          source,
	}

	if ma20 != nil {
		above := currentPrice > *ma20
		block.PriceAboveMA20 = &above
	}
	if recentLow > 0 {
		v := round2((currentPrice - recentLow) / recentLow * 100)
		block.PricePosition.DistanceFromSupportPct = &v
	}
	if currentPrice > 0 {
		v := round2((recentHigh - currentPrice) / currentPrice * 100)
		block.PricePosition.DistanceFromResistancePct = &v
	}

	return block
}

// relativeStrength computes a 14-period RSI over the most recent closes.
// Returns nil when the series is too short, or when no losses occurred in
// the window (the ratio is undefined there).
func relativeStrength(closes []float64) *float64 {
	n := len(closes)
	if n < rsiPeriod+1 {
		return nil
	}

	var gainSum, lossSum float64
	for i := 1; i <= rsiPeriod; i++ {
		change := closes[n-i] - closes[n-i-1]
		if change > 0 {
			gainSum += change
		} else {
			lossSum += -change
		}
	}

	avgGain := gainSum / rsiPeriod
	avgLoss := lossSum / rsiPeriod
	if avgLoss <= 0 {
		return nil
	}

	rs := avgGain / avgLoss
	v := round2(100 - 100/(1+rs))
	return &v
}

// classifyTrend labels the series bullish when price sits above both
// averages in order, bearish in the mirrored case, neutral otherwise.
// Without a long average, the short one alone decides.
func classifyTrend(price, ma7 float64, ma20 *float64) string {
	if ma20 != nil {
		switch {
		case price > ma7 && ma7 > *ma20:
			return models.TrendBullish
		case price < ma7 && ma7 < *ma20:
			return models.TrendBearish
		default:
			return models.TrendNeutral
		}
	}
	switch {
	case price > ma7:
		return models.TrendBullish
	case price < ma7:
		return models.TrendBearish
	default:
		return models.TrendNeutral
	}
}

func tail(values []float64, n int) []float64 {
	if len(values) <= n {
		return values
	}
	return values[len(values)-n:]
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func maxOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func minOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
