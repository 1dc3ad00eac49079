package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"

	"MarketPulse/internal/domain/repository"
	"MarketPulse/internal/usecase"
	"MarketPulse/pkg/cache"
	"MarketPulse/pkg/config"
	xhttp "MarketPulse/pkg/http"
	applogger "MarketPulse/pkg/logger"
)

// App encapsulates the entire application lifecycle: the timed run loop,
// the optional standalone reconciler loop, and the HTTP surface.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	scheduler  *usecase.Scheduler
	reconciler *usecase.Reconciler
	publisher  repository.EventPublisher
	cache      cache.Service
	handler    xhttp.Handler

	cron       *gocron.Scheduler
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	scheduler *usecase.Scheduler,
	reconciler *usecase.Reconciler,
	publisher repository.EventPublisher,
	priceCache cache.Service,
	handler xhttp.Handler,
) *App {
	return &App{
		cfg:        cfg,
		log:        log,
		scheduler:  scheduler,
		reconciler: reconciler,
		publisher:  publisher,
		cache:      priceCache,
		handler:    handler,
		cron:       gocron.NewScheduler(time.UTC),
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metricsPath := a.cfg.Metrics.Path
	if !a.cfg.Metrics.Enabled {
		metricsPath = ""
	}
	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(metricsPath),
	)
	if err := a.httpServer.Start(); err != nil {
		return err
	}

	// One run right away, then on the fixed interval. Overlap protection
	// lives inside the scheduler itself.
	interval := a.cfg.Scheduler.UpdateInterval
	if _, err := a.cron.Every(interval).StartImmediately().Do(func() {
		a.scheduler.RunOnce(ctx)
	}); err != nil {
		return err
	}

	// The reconciler already runs at the tail of every scheduler cycle;
	// a standalone loop is for deployments that want tighter resolution.
	if a.cfg.Reconciler.Standalone {
		if _, err := a.cron.Every(a.cfg.Reconciler.Interval).Do(func() {
			if err := a.reconciler.Run(ctx); err != nil {
				a.log.Error("reconciliation pass failed", applogger.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	a.cron.StartAsync()
	a.log.Info("scheduler started",
		applogger.Duration("interval", interval),
		applogger.Bool("standalone_reconciler", a.cfg.Reconciler.Standalone))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	a.cron.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if err := a.publisher.Close(); err != nil {
		a.log.Warn("event publisher close error", applogger.Error(err))
	}
	if err := a.cache.Close(); err != nil {
		a.log.Warn("cache close error", applogger.Error(err))
	}

	a.log.Info("shutdown complete")
	return nil
}
