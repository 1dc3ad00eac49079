package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"MarketPulse/internal/domain/models"
)

type submissionCall struct {
	Symbol    string
	Timeframe models.Timeframe
	Doc       string
}

type recordCall struct {
	PredictionID string
	Price        string
}

// fakeLedger is an in-memory repository.Ledger for scheduler and
// reconciler tests.
type fakeLedger struct {
	mu sync.Mutex

	symbols    []string
	healthErr  error
	healthGate chan struct{}

	latest    map[string]models.PredictionRecord
	latestErr map[string]error
	expired   map[string][]models.PredictionRecord

	submitErr error

	calls       atomic.Int64
	submissions []submissionCall
	records     []recordCall
}

func slotKey(symbol string, tf models.Timeframe) string {
	return symbol + "/" + tf.String()
}

func (f *fakeLedger) Health(ctx context.Context) error {
	f.calls.Add(1)
	if f.healthGate != nil {
		<-f.healthGate
	}
	return f.healthErr
}

func (f *fakeLedger) ListSymbols(ctx context.Context) ([]string, error) {
	f.calls.Add(1)
	return f.symbols, nil
}

func (f *fakeLedger) LatestPrediction(ctx context.Context, symbol string, tf models.Timeframe) (models.PredictionRecord, error) {
	f.calls.Add(1)
	if err, ok := f.latestErr[slotKey(symbol, tf)]; ok {
		return nil, err
	}
	return f.latest[slotKey(symbol, tf)], nil
}

func (f *fakeLedger) ExpiredPredictions(ctx context.Context, symbol string, tf models.Timeframe, limit int) ([]models.PredictionRecord, error) {
	f.calls.Add(1)
	preds := f.expired[slotKey(symbol, tf)]
	if len(preds) > limit {
		preds = preds[:limit]
	}
	return preds, nil
}

func (f *fakeLedger) RequestUpdate(ctx context.Context, symbol string, tf models.Timeframe, marketContext string) (models.SubmissionResult, error) {
	f.calls.Add(1)
	if f.submitErr != nil {
		return models.SubmissionResult{}, f.submitErr
	}
	f.mu.Lock()
	f.submissions = append(f.submissions, submissionCall{Symbol: symbol, Timeframe: tf, Doc: marketContext})
	f.mu.Unlock()
	return models.SubmissionResult{TxHash: "0xtest", Confirmed: true}, nil
}

func (f *fakeLedger) RecordActualPrice(ctx context.Context, predictionID, price string) (models.SubmissionResult, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.records = append(f.records, recordCall{PredictionID: predictionID, Price: price})
	f.mu.Unlock()
	return models.SubmissionResult{TxHash: "0xrec"}, nil
}

func (f *fakeLedger) AddSymbol(ctx context.Context, symbol, description string) (models.SubmissionResult, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.symbols = append(f.symbols, symbol)
	f.mu.Unlock()
	return models.SubmissionResult{TxHash: "0xadd", Confirmed: true}, nil
}

func (f *fakeLedger) submissionList() []submissionCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]submissionCall(nil), f.submissions...)
}

func (f *fakeLedger) recordList() []recordCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordCall(nil), f.records...)
}

// fakeContextSource returns a canned context per symbol.
type fakeContextSource struct {
	builds atomic.Int64
}

func (f *fakeContextSource) Build(ctx context.Context, symbol string) *models.MarketContext {
	f.builds.Add(1)
	return &models.MarketContext{
		Symbol:      symbol,
		GeneratedAt: "2026-08-31T12:00:00Z",
		Price:       models.PriceBlock{Spot: 100, Source: models.SourceBinance},
		Macro:       models.NewsBlock{Headlines: []models.Headline{}},
	}
}

// fakePriceSource returns a fixed price, or an error.
type fakePriceSource struct {
	price float64
	err   error
	calls atomic.Int64
}

func (f *fakePriceSource) CurrentPrice(ctx context.Context, symbol string) (float64, string, error) {
	f.calls.Add(1)
	if f.err != nil {
		return 0, "", f.err
	}
	return f.price, models.SourceBinance, nil
}

type nopPublisher struct{}

func (nopPublisher) PublishRun(ctx context.Context, summary models.RunSummary) error {
	return nil
}

func (nopPublisher) PublishSubmission(ctx context.Context, symbol string, tf models.Timeframe, result models.SubmissionResult) error {
	return nil
}

func (nopPublisher) Close() error { return nil }

type nopMetrics struct{}

func (nopMetrics) RecordRun(outcome string)                     {}
func (nopMetrics) RecordRunDuration(seconds float64)            {}
func (nopMetrics) RecordSubmission(symbol, result string)       {}
func (nopMetrics) RecordSlotSkipped()                           {}
func (nopMetrics) RecordError(kind string)                      {}
func (nopMetrics) RecordLastPrice(symbol string, price float64) {}
func (nopMetrics) RecordReconciled(result string)               {}

func recordWithContext(generatedAt time.Time) models.PredictionRecord {
	return models.PredictionRecord{
		"prediction_id": "p-1",
		"raw_context":   `{"generated_at":"` + generatedAt.UTC().Format(time.RFC3339) + `"}`,
	}
}
