package repository

import (
	"context"

	"MarketPulse/internal/domain/models"
)

// Ledger is the contract gateway. Reads go through the read endpoint,
// writes return a transaction hash and wait for a receipt; an unconfirmed
// write is reported via SubmissionResult.Confirmed, not an error.
type Ledger interface {
	Health(ctx context.Context) error
	ListSymbols(ctx context.Context) ([]string, error)
	LatestPrediction(ctx context.Context, symbol string, tf models.Timeframe) (models.PredictionRecord, error)
	ExpiredPredictions(ctx context.Context, symbol string, tf models.Timeframe, limit int) ([]models.PredictionRecord, error)
	RequestUpdate(ctx context.Context, symbol string, tf models.Timeframe, marketContext string) (models.SubmissionResult, error)
	RecordActualPrice(ctx context.Context, predictionID, price string) (models.SubmissionResult, error)
	AddSymbol(ctx context.Context, symbol, description string) (models.SubmissionResult, error)
}

// ContextSource assembles the per-symbol market snapshot. It never fails:
// unavailable inputs degrade to error blocks inside the context.
type ContextSource interface {
	Build(ctx context.Context, symbol string) *models.MarketContext
}

// PriceSource resolves a current spot price for one symbol.
type PriceSource interface {
	CurrentPrice(ctx context.Context, symbol string) (float64, string, error)
}

// EventPublisher emits run and submission events to the message bus.
// Implementations must be safe to call from concurrent workers.
type EventPublisher interface {
	PublishRun(ctx context.Context, summary models.RunSummary) error
	PublishSubmission(ctx context.Context, symbol string, tf models.Timeframe, result models.SubmissionResult) error
	Close() error
}

type Metrics interface {
	RecordRun(outcome string)
	RecordRunDuration(seconds float64)
	RecordSubmission(symbol, result string)
	RecordSlotSkipped()
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordReconciled(result string)
}
