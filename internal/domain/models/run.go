package models

import "time"

// Timeframe is a forecast horizon identifier as stored on the contract.
type Timeframe string

const (
	Timeframe1H  Timeframe = "1h"
	Timeframe4H  Timeframe = "4h"
	Timeframe12H Timeframe = "12h"
	Timeframe24H Timeframe = "24h"
	Timeframe7D  Timeframe = "7d"
	Timeframe30D Timeframe = "30d"
)

// Timeframes lists every horizon in submission order.
var Timeframes = []Timeframe{
	Timeframe1H,
	Timeframe4H,
	Timeframe12H,
	Timeframe24H,
	Timeframe7D,
	Timeframe30D,
}

var timeframeDurations = map[Timeframe]time.Duration{
	Timeframe1H:  time.Hour,
	Timeframe4H:  4 * time.Hour,
	Timeframe12H: 12 * time.Hour,
	Timeframe24H: 24 * time.Hour,
	Timeframe7D:  7 * 24 * time.Hour,
	Timeframe30D: 30 * 24 * time.Hour,
}

// Duration returns the horizon length, or false for an unknown timeframe.
func (t Timeframe) Duration() (time.Duration, bool) {
	d, ok := timeframeDurations[t]
	return d, ok
}

func (t Timeframe) String() string { return string(t) }

// RunSummary aggregates the outcome of one orchestration cycle.
type RunSummary struct {
	StartedAt           time.Time `json:"started_at"`
	Elapsed             float64   `json:"elapsed_seconds"`
	SymbolsProcessed    int       `json:"symbols_processed"`
	SymbolsFailed       int       `json:"symbols_failed"`
	TotalChecked        int       `json:"timeframes_checked"`
	TimeframesSubmitted int       `json:"timeframes_submitted"`
	TimeframesSkipped   int       `json:"timeframes_skipped"`
	TimeframesFailed    int       `json:"timeframes_failed"`
}

// ExpiryRate is the fraction of checked timeframes that got an update
// submitted, in percent.
func (s RunSummary) ExpiryRate() float64 {
	if s.TotalChecked == 0 {
		return 0
	}
	return float64(s.TimeframesSubmitted) / float64(s.TotalChecked) * 100
}
