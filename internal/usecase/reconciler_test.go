package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketPulse/internal/domain/models"
	servicecache "MarketPulse/internal/service/cache"
)

func newTestReconciler(t *testing.T, ledger *fakeLedger, prices *fakePriceSource) *Reconciler {
	t.Helper()
	return NewReconciler(ReconcilerConfig{
		BatchLimit: 50,
		WriteDelay: time.Millisecond,
		PriceTTL:   time.Minute,
	}, ledger, prices, servicecache.NewAdapter(), nopMetrics{}, testLogger(t))
}

func TestReconcilerRecordsUnresolvedPredictions(t *testing.T) {
	ledger := &fakeLedger{
		symbols: []string{"BTC"},
		expired: map[string][]models.PredictionRecord{
			slotKey("BTC", models.Timeframe1H): {
				{"prediction_id": "p-1"},
				{"prediction_id": "p-2", "actual_price": "99.00 USD"},
				{"prediction_id": ""},
			},
		},
	}
	prices := &fakePriceSource{price: 104.254}

	require.NoError(t, newTestReconciler(t, ledger, prices).Run(context.Background()))

	records := ledger.recordList()
	require.Len(t, records, 1, "resolved and id-less predictions must be skipped")
	assert.Equal(t, "p-1", records[0].PredictionID)
	assert.Equal(t, "104.25 USD", records[0].Price)
}

func TestReconcilerSkipsSlotWhenPriceUnavailable(t *testing.T) {
	ledger := &fakeLedger{
		symbols: []string{"BTC"},
		expired: map[string][]models.PredictionRecord{
			slotKey("BTC", models.Timeframe1H): {{"prediction_id": "p-1"}},
		},
	}
	prices := &fakePriceSource{err: assert.AnError}

	require.NoError(t, newTestReconciler(t, ledger, prices).Run(context.Background()))
	assert.Empty(t, ledger.recordList())
}

func TestReconcilerCachesPricePerSymbol(t *testing.T) {
	ledger := &fakeLedger{
		symbols: []string{"BTC"},
		expired: map[string][]models.PredictionRecord{
			slotKey("BTC", models.Timeframe1H):  {{"prediction_id": "p-1"}},
			slotKey("BTC", models.Timeframe24H): {{"prediction_id": "p-2"}},
		},
	}
	prices := &fakePriceSource{price: 50000}

	require.NoError(t, newTestReconciler(t, ledger, prices).Run(context.Background()))

	assert.Len(t, ledger.recordList(), 2)
	assert.Equal(t, int64(1), prices.calls.Load(), "price must be fetched once per symbol per pass")
}

func TestReconcilerHonorsBatchLimit(t *testing.T) {
	preds := make([]models.PredictionRecord, 5)
	for i := range preds {
		preds[i] = models.PredictionRecord{"prediction_id": string(rune('a' + i))}
	}
	ledger := &fakeLedger{
		symbols: []string{"BTC"},
		expired: map[string][]models.PredictionRecord{
			slotKey("BTC", models.Timeframe1H): preds,
		},
	}
	prices := &fakePriceSource{price: 1}

	reconciler := NewReconciler(ReconcilerConfig{
		BatchLimit: 2,
		WriteDelay: time.Millisecond,
		PriceTTL:   time.Minute,
	}, ledger, prices, servicecache.NewAdapter(), nopMetrics{}, testLogger(t))

	require.NoError(t, reconciler.Run(context.Background()))
	assert.Len(t, ledger.recordList(), 2)
}

func TestReconcilerNoSymbolsIsNoop(t *testing.T) {
	ledger := &fakeLedger{}
	prices := &fakePriceSource{price: 1}

	require.NoError(t, newTestReconciler(t, ledger, prices).Run(context.Background()))
	assert.Equal(t, int64(1), ledger.calls.Load(), "only the symbol listing should run")
}
