package di

import (
	"fmt"

	"MarketPulse/internal/domain/repository"
	"MarketPulse/internal/handler/api"
	"MarketPulse/internal/ledger"
	"MarketPulse/internal/marketdata"
	internalrepo "MarketPulse/internal/repository"
	servicecache "MarketPulse/internal/service/cache"
	"MarketPulse/internal/service/ratelimit"
	"MarketPulse/internal/usecase"
	pkgcache "MarketPulse/pkg/cache"
	"MarketPulse/pkg/config"
	xhttp "MarketPulse/pkg/http"
	pkgkafka "MarketPulse/pkg/kafka"
	"MarketPulse/pkg/logger"
	"MarketPulse/pkg/metrics"
	"MarketPulse/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	log, err := logger.New(&logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return log, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideLedgerClient creates the JSON-RPC transport for the ledger node.
func ProvideLedgerClient(cfg *config.Config) *ledger.Client {
	return ledger.NewClient(cfg.Ledger.RPCURL,
		ledger.WithTimeout(cfg.Ledger.Timeout),
	)
}

// ProvideLedger creates the contract-facing ledger service.
func ProvideLedger(client *ledger.Client, cfg *config.Config, log *logger.Logger) repository.Ledger {
	return ledger.NewService(client, cfg.Ledger.ContractAddress, log,
		ledger.WithReceiptRetries(cfg.Ledger.ReceiptRetries),
		ledger.WithReceiptInterval(cfg.Ledger.ReceiptInterval),
	)
}

// ProvidePriceFeed creates the mirror-backed price source.
func ProvidePriceFeed(cfg *config.Config, log *logger.Logger) *marketdata.PriceFeed {
	urls := cfg.Market.BinanceURLs
	if len(urls) == 0 {
		urls = config.DefaultBinanceURLs
	}
	return marketdata.NewPriceFeed(
		marketdata.PriceFeedConfig{
			PrimaryURLs:     urls,
			SecondaryURL:    cfg.Market.CoinGeckoURL,
			QuoteAsset:      cfg.Market.QuoteAsset,
			Retries:         cfg.Market.Retries,
			BackoffBase:     cfg.Market.BackoffBase,
			SecondaryBurst:  cfg.Market.SecondaryBurst,
			SecondaryRefill: cfg.Market.SecondaryRefill,
		},
		xhttp.NewClient(xhttp.WithTimeout(cfg.Market.PrimaryTimeout)),
		xhttp.NewClient(xhttp.WithTimeout(cfg.Market.SecondaryTimeout)),
		ratelimit.New(),
		log,
	)
}

// ProvideNewsFeed creates the headline source.
func ProvideNewsFeed(cfg *config.Config, log *logger.Logger) *marketdata.NewsFeed {
	client := xhttp.NewClient(xhttp.WithTimeout(cfg.Market.SecondaryTimeout))
	return marketdata.NewNewsFeed(cfg.Market.NewsURL, 0, client, log)
}

// ProvideContextSource creates the market context builder.
func ProvideContextSource(prices *marketdata.PriceFeed, news *marketdata.NewsFeed, log *logger.Logger) repository.ContextSource {
	return marketdata.NewContextBuilder(prices, news, log)
}

// ProvidePriceCache creates the price cache used by the reconciler. Redis
// when configured, an in-process TTL cache otherwise.
func ProvidePriceCache(cfg *config.Config) (pkgcache.Service, error) {
	if !cfg.Redis.Enabled {
		return servicecache.NewAdapter(), nil
	}
	c, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(cfg.Redis.Host),
		pkgcache.WithRedisPort(cfg.Redis.Port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
		pkgcache.WithRedisPrefix("marketpulse"),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return c, nil
}

// ProvideEventPublisher creates the run-event publisher. No brokers means
// publishing is disabled.
func ProvideEventPublisher(cfg *config.Config) (repository.EventPublisher, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return internalrepo.NoopEventPublisher{}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithTimeouts(cfg.Kafka.WriteTimeout, cfg.Kafka.ReadTimeout),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return internalrepo.NewKafkaEventPublisher(producer, cfg.Kafka.Topic), nil
}

// ProvideExpirationPolicy creates the forecast staleness policy.
func ProvideExpirationPolicy(led repository.Ledger, log *logger.Logger) *usecase.ExpirationPolicy {
	return usecase.NewExpirationPolicy(led, log)
}

// ProvideReconciler creates the actual-price reconciler.
func ProvideReconciler(
	cfg *config.Config,
	led repository.Ledger,
	prices *marketdata.PriceFeed,
	priceCache pkgcache.Service,
	m repository.Metrics,
	log *logger.Logger,
) *usecase.Reconciler {
	return usecase.NewReconciler(
		usecase.ReconcilerConfig{
			BatchLimit: cfg.Reconciler.BatchLimit,
			WriteDelay: cfg.Reconciler.WriteDelay,
			PriceTTL:   cfg.Reconciler.PriceTTL,
		},
		led, prices, priceCache, m, log,
	)
}

// ProvideScheduler creates the orchestration scheduler.
func ProvideScheduler(
	cfg *config.Config,
	led repository.Ledger,
	contexts repository.ContextSource,
	policy *usecase.ExpirationPolicy,
	reconciler *usecase.Reconciler,
	publisher repository.EventPublisher,
	m repository.Metrics,
	log *logger.Logger,
) *usecase.Scheduler {
	return usecase.NewScheduler(
		usecase.SchedulerConfig{
			Whitelist:     cfg.Scheduler.Symbols,
			SymbolDelay:   cfg.Scheduler.SymbolDelay,
			SubmitWorkers: cfg.Scheduler.SubmitWorkers,
		},
		led, contexts, policy, reconciler, publisher, m, log,
	)
}

// ProvideHTTPHandler creates the status API handler.
func ProvideHTTPHandler(
	log *logger.Logger,
	led repository.Ledger,
	contexts repository.ContextSource,
	scheduler *usecase.Scheduler,
) xhttp.Handler {
	return api.NewStatusEchoHandler(log, led, contexts, scheduler)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	scheduler *usecase.Scheduler,
	reconciler *usecase.Reconciler,
	publisher repository.EventPublisher,
	priceCache pkgcache.Service,
	handler xhttp.Handler,
) *server.App {
	return server.New(cfg, log, scheduler, reconciler, publisher, priceCache, handler)
}
