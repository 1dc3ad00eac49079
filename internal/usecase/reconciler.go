package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"MarketPulse/internal/domain/models"
	"MarketPulse/internal/domain/repository"
	"MarketPulse/pkg/cache"
	"MarketPulse/pkg/logger"
)

// ReconcilerConfig holds the reconciliation pass tuning knobs.
type ReconcilerConfig struct {
	BatchLimit int
	WriteDelay time.Duration
	PriceTTL   time.Duration
}

// Reconciler scans the ledger for expired-but-unresolved predictions and
// records the currently observed price against them. Prices are cached per
// symbol for the duration of a pass so one slot scan costs one price fetch.
type Reconciler struct {
	cfg     ReconcilerConfig
	ledger  repository.Ledger
	prices  repository.PriceSource
	cache   cache.Service
	metrics repository.Metrics
	log     *logger.Logger
}

// NewReconciler creates a Reconciler.
func NewReconciler(cfg ReconcilerConfig, ledger repository.Ledger, prices repository.PriceSource, priceCache cache.Service, metrics repository.Metrics, log *logger.Logger) *Reconciler {
	if cfg.BatchLimit <= 0 {
		cfg.BatchLimit = 50
	}
	return &Reconciler{
		cfg:     cfg,
		ledger:  ledger,
		prices:  prices,
		cache:   priceCache,
		metrics: metrics,
		log:     log,
	}
}

// Run walks every registered symbol and timeframe once. Per-prediction
// write failures are counted, never escalated; only a failed symbol listing
// aborts the pass.
func (r *Reconciler) Run(ctx context.Context) error {
	symbols, err := r.ledger.ListSymbols(ctx)
	if err != nil {
		return fmt.Errorf("list symbols: %w", err)
	}
	if len(symbols) == 0 {
		r.log.Info("no symbols registered, nothing to reconcile")
		return nil
	}

	var recorded, failed int
	for _, symbol := range symbols {
		for _, tf := range models.Timeframes {
			rec, fail := r.reconcileSlot(ctx, symbol, tf)
			recorded += rec
			failed += fail
		}
	}

	if recorded > 0 {
		r.log.Info("recorded actual prices", logger.Int("count", recorded))
	}
	if failed > 0 {
		r.log.Warn("failed to record some predictions", logger.Int("count", failed))
	}
	return nil
}

func (r *Reconciler) reconcileSlot(ctx context.Context, symbol string, tf models.Timeframe) (recorded, failed int) {
	expired, err := r.ledger.ExpiredPredictions(ctx, symbol, tf, r.cfg.BatchLimit)
	if err != nil {
		r.log.Warn("expired-prediction scan failed",
			logger.String("symbol", symbol),
			logger.String("timeframe", tf.String()),
			logger.Error(err))
		return 0, 1
	}
	if len(expired) == 0 {
		return 0, 0
	}

	r.log.Info("found expired predictions",
		logger.String("symbol", symbol),
		logger.String("timeframe", tf.String()),
		logger.Int("count", len(expired)))

	price, err := r.currentPrice(ctx, symbol)
	if err != nil {
		// A stale or missing price must not resolve a prediction; the
		// whole slot waits for the next pass.
		r.log.Warn("could not fetch current price, skipping slot",
			logger.String("symbol", symbol),
			logger.String("timeframe", tf.String()),
			logger.Error(err))
		return 0, 0
	}
	actualPrice := price.StringFixed(2) + " USD"

	for _, pred := range expired {
		id := pred.ID()
		if id == "" {
			continue
		}
		if pred.Resolved() {
			r.log.Debug("prediction already resolved",
				logger.String("prediction_id", id))
			continue
		}

		res, err := r.ledger.RecordActualPrice(ctx, id, actualPrice)
		if err != nil {
			r.log.Warn("failed to record actual price",
				logger.String("prediction_id", id),
				logger.Error(err))
			r.metrics.RecordReconciled("failed")
			failed++
		} else {
			r.log.Info("recorded actual price",
				logger.String("prediction_id", id),
				logger.String("actual_price", actualPrice),
				logger.String("tx_hash", res.TxHash))
			r.metrics.RecordReconciled("recorded")
			recorded++
		}

		select {
		case <-ctx.Done():
			return recorded, failed
		case <-time.After(r.cfg.WriteDelay):
		}
	}
	return recorded, failed
}

// currentPrice resolves the spot price for a symbol, served from the price
// cache when a recent value exists.
func (r *Reconciler) currentPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	key := "price:" + symbol

	var cached string
	if err := r.cache.Get(ctx, key, &cached); err == nil {
		if d, err := decimal.NewFromString(cached); err == nil {
			return d, nil
		}
	}

	spot, source, err := r.prices.CurrentPrice(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}
	d := decimal.NewFromFloat(spot)

	if err := r.cache.Set(ctx, key, d.String(), r.cfg.PriceTTL); err != nil {
		r.log.Debug("price cache write failed", logger.Error(err))
	}
	r.metrics.RecordLastPrice(symbol, spot)
	r.log.Debug("fetched current price",
		logger.String("symbol", symbol),
		logger.String("source", source),
		logger.String("price", d.String()))
	return d, nil
}
