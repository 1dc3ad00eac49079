package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	runsTotal        *prometheus.CounterVec
	submissionsTotal *prometheus.CounterVec
	slotsSkipped     prometheus.Counter
	errorsTotal      *prometheus.CounterVec
	lastPrice        *prometheus.GaugeVec
	runDuration      prometheus.Histogram
	reconciled       *prometheus.CounterVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		runsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketpulse_runs_total",
				Help: "Total scheduler runs by outcome",
			},
			[]string{"outcome"}, // completed, skipped_lock, aborted
		),
		submissionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketpulse_submissions_total",
				Help: "Total update submissions by symbol and result",
			},
			[]string{"symbol", "result"}, // confirmed, unconfirmed, failed
		),
		slotsSkipped: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "marketpulse_slots_skipped_total",
				Help: "Timeframe slots skipped because still valid",
			},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketpulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "marketpulse_last_price",
				Help: "Last fetched spot price for a symbol",
			},
			[]string{"symbol"},
		),
		runDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "marketpulse_run_duration_seconds",
				Help:    "Duration of full scheduler runs in seconds",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
		),
		reconciled: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketpulse_reconciled_predictions_total",
				Help: "Expired predictions reconciled with an actual price",
			},
			[]string{"result"}, // recorded, failed
		),
	}
}

// RecordRun records the outcome of a scheduler run.
func (r *Recorder) RecordRun(outcome string) {
	r.runsTotal.WithLabelValues(outcome).Inc()
}

// RecordSubmission records an update submission result for a symbol.
func (r *Recorder) RecordSubmission(symbol, result string) {
	r.submissionsTotal.WithLabelValues(symbol, result).Inc()
}

// RecordSlotSkipped counts a still-valid timeframe slot.
func (r *Recorder) RecordSlotSkipped() {
	r.slotsSkipped.Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordRunDuration records full run elapsed time in seconds.
func (r *Recorder) RecordRunDuration(seconds float64) {
	r.runDuration.Observe(seconds)
}

// RecordReconciled records a reconciliation write result.
func (r *Recorder) RecordReconciled(result string) {
	r.reconciled.WithLabelValues(result).Inc()
}
