package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"MarketPulse/internal/domain/models"
	"MarketPulse/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

func newTestPolicy(t *testing.T, ledger *fakeLedger, now time.Time) *ExpirationPolicy {
	t.Helper()
	policy := NewExpirationPolicy(ledger, testLogger(t))
	policy.now = func() time.Time { return now }
	return policy
}

func TestIsExpiredScenario(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	ledger := &fakeLedger{
		latest: map[string]models.PredictionRecord{
			slotKey("BTC", models.Timeframe24H): recordWithContext(now.Add(-25 * time.Hour)),
			slotKey("BTC", models.Timeframe7D):  recordWithContext(now.Add(-2 * time.Hour)),
		},
	}
	policy := newTestPolicy(t, ledger, now)
	ctx := context.Background()

	assert.True(t, policy.IsExpired(ctx, "BTC", models.Timeframe24H))
	assert.False(t, policy.IsExpired(ctx, "BTC", models.Timeframe7D))
}

func TestIsExpiredExactBoundary(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	ledger := &fakeLedger{
		latest: map[string]models.PredictionRecord{
			slotKey("ETH", models.Timeframe1H): recordWithContext(now.Add(-time.Hour)),
		},
	}
	policy := newTestPolicy(t, ledger, now)

	// now == generatedAt + duration counts as expired.
	assert.True(t, policy.IsExpired(context.Background(), "ETH", models.Timeframe1H))
}

func TestIsExpiredFailsOpen(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	t.Run("no record", func(t *testing.T) {
		policy := newTestPolicy(t, &fakeLedger{}, now)
		assert.True(t, policy.IsExpired(ctx, "BTC", models.Timeframe1H))
	})

	t.Run("record without context", func(t *testing.T) {
		ledger := &fakeLedger{latest: map[string]models.PredictionRecord{
			slotKey("BTC", models.Timeframe1H): {"prediction_id": "p-1"},
		}}
		policy := newTestPolicy(t, ledger, now)
		assert.True(t, policy.IsExpired(ctx, "BTC", models.Timeframe1H))
	})

	t.Run("context without timestamp", func(t *testing.T) {
		ledger := &fakeLedger{latest: map[string]models.PredictionRecord{
			slotKey("BTC", models.Timeframe1H): {"raw_context": `{"symbol":"BTC"}`},
		}}
		policy := newTestPolicy(t, ledger, now)
		assert.True(t, policy.IsExpired(ctx, "BTC", models.Timeframe1H))
	})

	t.Run("unparseable timestamp", func(t *testing.T) {
		ledger := &fakeLedger{latest: map[string]models.PredictionRecord{
			slotKey("BTC", models.Timeframe1H): {"raw_context": `{"generated_at":"yesterday"}`},
		}}
		policy := newTestPolicy(t, ledger, now)
		assert.True(t, policy.IsExpired(ctx, "BTC", models.Timeframe1H))
	})

	t.Run("unknown timeframe", func(t *testing.T) {
		tf := models.Timeframe("2h")
		ledger := &fakeLedger{latest: map[string]models.PredictionRecord{
			slotKey("BTC", tf): recordWithContext(now.Add(-time.Minute)),
		}}
		policy := newTestPolicy(t, ledger, now)
		assert.True(t, policy.IsExpired(ctx, "BTC", tf))
	})

	t.Run("not-found read error", func(t *testing.T) {
		ledger := &fakeLedger{latestErr: map[string]error{
			slotKey("BTC", models.Timeframe1H): errors.New("no predictions recorded for slot"),
		}}
		policy := newTestPolicy(t, ledger, now)
		assert.True(t, policy.IsExpired(ctx, "BTC", models.Timeframe1H))
	})
}

func TestIsExpiredAcceptsOffsetTimestamps(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	ledger := &fakeLedger{latest: map[string]models.PredictionRecord{
		slotKey("BTC", models.Timeframe24H): {
			"raw_context": `{"generated_at":"2026-08-31T11:00:00+00:00"}`,
		},
	}}
	policy := newTestPolicy(t, ledger, now)

	assert.False(t, policy.IsExpired(context.Background(), "BTC", models.Timeframe24H))
}
