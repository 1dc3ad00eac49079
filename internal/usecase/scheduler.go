package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"MarketPulse/internal/domain/models"
	"MarketPulse/internal/domain/repository"
	"MarketPulse/pkg/logger"
)

// Run outcome labels, as recorded in metrics.
const (
	RunCompleted   = "completed"
	RunSkippedLock = "skipped_lock"
	RunAborted     = "aborted"
)

// SchedulerConfig holds the run-loop tuning knobs.
type SchedulerConfig struct {
	// Whitelist restricts the active symbol set. Empty means every
	// symbol registered on the contract.
	Whitelist     []string
	SymbolDelay   time.Duration
	SubmitWorkers int
}

/// Scheduler drives one orchestration run: lock, health check, symbol
// resolution, per-symbol context building and slot submission, then a
// reconciliation pass. At most one run executes at a time; overlapping
// triggers are skipped, not queued.
type Scheduler struct {
	cfg        SchedulerConfig
	ledger     repository.Ledger
	contexts   repository.ContextSource
	policy     *ExpirationPolicy
	reconciler *Reconciler
	publisher  repository.EventPublisher
	metrics    repository.Metrics
	log        *logger.Logger

	running atomic.Bool

	mu   sync.Mutex
	last *models.RunSummary
}

// NewScheduler creates a Scheduler.
func NewScheduler(cfg SchedulerConfig, ledger repository.Ledger, contexts repository.ContextSource, policy *ExpirationPolicy, reconciler *Reconciler, publisher repository.EventPublisher, metrics repository.Metrics, log *logger.Logger) *Scheduler {
	if cfg.SubmitWorkers <= 0 {
		cfg.SubmitWorkers = 3
	}
	return &Scheduler{
		cfg:        cfg,
		ledger:     ledger,
		contexts:   contexts,
		policy:     policy,
		reconciler: reconciler,
		publisher:  publisher,
		metrics:    metrics,
		log:        log,
	}
}

// LastSummary returns the most recent run's summary, or nil before the
// first completed run.
func (s *Scheduler) LastSummary() *models.RunSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// RunOnce executes one full run. When a previous run is still in flight it
// returns nil immediately without touching the ledger.
func (s *Scheduler) RunOnce(ctx context.Context) *models.RunSummary {
	if !s.running.CompareAndSwap(false, true) {
		s.log.Warn("previous run still in progress, skipping this run")
		s.metrics.RecordRun(RunSkippedLock)
		return nil
	}
	defer s.running.Store(false)

	start := time.Now()
	s.log.Info("starting scheduler run")

	summary, err := s.run(ctx, start)
	if err != nil {
		s.log.Error("run aborted", logger.Error(err))
		s.metrics.RecordRun(RunAborted)
		return nil
	}

	summary.Elapsed = time.Since(start).Seconds()
	s.metrics.RecordRun(RunCompleted)
	s.metrics.RecordRunDuration(summary.Elapsed)

	s.mu.Lock()
	s.last = summary
	s.mu.Unlock()

	if err := s.publisher.PublishRun(ctx, *summary); err != nil {
		s.log.Warn("failed to publish run summary", logger.Error(err))
	}

	s.log.Info("scheduler run completed",
		logger.Float64("elapsed_seconds", summary.Elapsed),
		logger.Int("symbols_processed", summary.SymbolsProcessed),
		logger.Int("symbols_failed", summary.SymbolsFailed),
		logger.Int("timeframes_checked", summary.TotalChecked),
		logger.Int("timeframes_submitted", summary.TimeframesSubmitted),
		logger.Int("timeframes_skipped", summary.TimeframesSkipped),
		logger.Int("timeframes_failed", summary.TimeframesFailed),
		logger.Float64("expiry_rate_pct", summary.ExpiryRate()))
	return summary
}

func (s *Scheduler) run(ctx context.Context, start time.Time) (*models.RunSummary, error) {
	if err := s.ledger.Health(ctx); err != nil {
		s.metrics.RecordError("health_check")
		return nil, fmt.Errorf("contract health check failed: %w", err)
	}

	registered, err := s.ledger.ListSymbols(ctx)
	if err != nil {
		s.metrics.RecordError("symbol_list")
		return nil, fmt.Errorf("unable to fetch symbols from contract: %w", err)
	}
	if len(registered) == 0 {
		return nil, fmt.Errorf("no symbols registered in contract")
	}

	symbols := applyWhitelist(registered, s.cfg.Whitelist)
	if len(symbols) == 0 {
		return nil, fmt.Errorf("no registered symbols match the whitelist")
	}
	s.log.Info("resolved active symbols",
		logger.Strings("symbols", symbols),
		logger.Int("registered", len(registered)))

	summary := &models.RunSummary{
		StartedAt:    start.UTC(),
		TotalChecked: len(symbols) * len(models.Timeframes),
	}

	for i, symbol := range symbols {
		s.processSymbol(ctx, symbol, summary)

		// Pacing between symbols keeps upstream rate limits happy; the
		// last symbol needs none.
		if i < len(symbols)-1 {
			select {
			case <-ctx.Done():
				return summary, nil
			case <-time.After(s.cfg.SymbolDelay):
			}
		}
	}

	if err := s.reconciler.Run(ctx); err != nil {
		s.log.Error("reconciliation pass failed", logger.Error(err))
	}

	return summary, nil
}

func (s *Scheduler) processSymbol(ctx context.Context, symbol string, summary *models.RunSummary) {
	mc := s.contexts.Build(ctx, symbol)
	doc, err := mc.CanonicalJSON()
	if err != nil {
		s.log.Error("context serialization failed",
			logger.String("symbol", symbol),
			logger.Error(err))
		summary.SymbolsFailed++
		return
	}

	var expired []models.Timeframe
	for _, tf := range models.Timeframes {
		if s.policy.IsExpired(ctx, symbol, tf) {
			expired = append(expired, tf)
		} else {
			summary.TimeframesSkipped++
			s.metrics.RecordSlotSkipped()
		}
	}

	if len(expired) == 0 {
		s.log.Info("all timeframes still valid, skipping",
			logger.String("symbol", symbol))
		summary.SymbolsProcessed++
		return
	}

	s.log.Info("submitting expired timeframes",
		logger.String("symbol", symbol),
		logger.Int("count", len(expired)))

	submitted, failed := s.submitSlots(ctx, symbol, doc, expired)
	summary.TimeframesSubmitted += submitted
	summary.TimeframesFailed += failed
	if failed > 0 {
		summary.SymbolsFailed++
	} else {
		summary.SymbolsProcessed++
	}
}

// submitSlots writes updates for the expired timeframes of one symbol with
// a bounded worker pool. A failed slot never cancels its siblings.
func (s *Scheduler) submitSlots(ctx context.Context, symbol, doc string, expired []models.Timeframe) (submitted, failed int) {
	workers := s.cfg.SubmitWorkers
	if len(expired) < workers {
		workers = len(expired)
	}

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		sem = make(chan struct{}, workers)
	)
	for _, tf := range expired {
		wg.Add(1)
		go func(tf models.Timeframe) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			res, err := s.ledger.RequestUpdate(ctx, symbol, tf, doc)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.log.Error("failed to submit prediction update",
					logger.String("symbol", symbol),
					logger.String("timeframe", tf.String()),
					logger.Error(err))
				s.metrics.RecordSubmission(symbol, "failed")
				failed++
				return
			}

			result := "confirmed"
			if !res.Confirmed {
				result = "unconfirmed"
			}
			s.metrics.RecordSubmission(symbol, result)
			submitted++
			s.log.Info("update submitted",
				logger.String("symbol", symbol),
				logger.String("timeframe", tf.String()),
				logger.String("tx_hash", res.TxHash),
				logger.Bool("confirmed", res.Confirmed))

			if err := s.publisher.PublishSubmission(ctx, symbol, tf, res); err != nil {
				s.log.Warn("failed to publish submission event", logger.Error(err))
			}
		}(tf)
	}
	wg.Wait()
	return submitted, failed
}

// applyWhitelist intersects the registered symbols with the whitelist,
// preserving contract order. An empty whitelist keeps everything.
func applyWhitelist(registered, whitelist []string) []string {
	if len(whitelist) == 0 {
		return registered
	}
	allowed := make(map[string]bool, len(whitelist))
	for _, s := range whitelist {
		allowed[strings.ToUpper(strings.TrimSpace(s))] = true
	}
	out := make([]string, 0, len(registered))
	for _, s := range registered {
		if allowed[s] {
			out = append(out, s)
		}
	}
	return out
}
