package models

// PredictionRecord is one forecast row as returned by the contract. The
// contract's field set is open-ended, so it is kept as a loose string map
// with accessors for the fields the engine reads.
type PredictionRecord map[string]string

func (p PredictionRecord) field(keys ...string) string {
	for _, k := range keys {
		if v, ok := p[k]; ok && v != "" {
			return v
		}
	}
	return ""
}

// ID returns the contract-side identifier for this prediction.
func (p PredictionRecord) ID() string { return p.field("id", "prediction_id") }

// Symbol returns the asset symbol, uppercased by the caller if needed.
func (p PredictionRecord) Symbol() string { return p.field("symbol", "asset") }

// Timeframe returns the forecast horizon string.
func (p PredictionRecord) Timeframe() Timeframe {
	return Timeframe(p.field("timeframe", "time_frame"))
}

// Timestamp returns the creation time field as stored by the contract.
func (p PredictionRecord) Timestamp() string {
	return p.field("timestamp", "created_at", "prediction_date")
}

// RawContext returns the market-context JSON the prediction was built from.
func (p PredictionRecord) RawContext() string {
	return p.field("raw_context", "market_context", "context")
}

// ActualPrice returns the recorded outcome price, empty while unresolved.
func (p PredictionRecord) ActualPrice() string { return p.field("actual_price") }

// Resolved reports whether an outcome price has already been recorded.
func (p PredictionRecord) Resolved() bool { return p.ActualPrice() != "" }

// SubmissionResult is the outcome of one update write. Confirmed is false
// when the transaction was sent but no receipt arrived within the wait
// window; such writes still count as submitted.
type SubmissionResult struct {
	TxHash    string
	Confirmed bool
}
