package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"MarketPulse/pkg/util"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080" validate:"gt=0,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`
	Logging struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"logging"`
	Ledger struct {
		RPCURL          string        `yaml:"rpc_url" validate:"required,url"`
		ContractAddress string        `yaml:"contract_address" validate:"required"`
		Timeout         time.Duration `yaml:"timeout" default:"30s"`
		ReceiptRetries  int           `yaml:"receipt_retries" default:"20" validate:"gt=0"`
		ReceiptInterval time.Duration `yaml:"receipt_interval" default:"3s"`
	} `yaml:"ledger"`
	Scheduler struct {
		UpdateInterval time.Duration `yaml:"update_interval" default:"3600s" validate:"gte=1s"`
		Symbols        []string      `yaml:"symbols"` // optional whitelist; empty means all registered
		SymbolDelay    time.Duration `yaml:"symbol_delay" default:"3s"`
		SubmitWorkers  int           `yaml:"submit_workers" default:"3" validate:"gt=0"`
	} `yaml:"scheduler"`
	Reconciler struct {
		Standalone bool          `yaml:"standalone"` // run on its own interval in addition to post-run invocation
		Interval   time.Duration `yaml:"interval" default:"600s"`
		BatchLimit int           `yaml:"batch_limit" default:"50" validate:"gt=0"`
		WriteDelay time.Duration `yaml:"write_delay" default:"500ms"`
		PriceTTL   time.Duration `yaml:"price_ttl" default:"60s"`
	} `yaml:"reconciler"`
	Market struct {
		BinanceURLs      []string      `yaml:"binance_urls"`
		CoinGeckoURL     string        `yaml:"coingecko_url" default:"https://api.coingecko.com/api/v3"`
		NewsURL          string        `yaml:"news_url" default:"https://min-api.cryptocompare.com/data/v2/news/?categories=MARKET"`
		QuoteAsset       string        `yaml:"quote_asset" default:"USDT"`
		Retries          int           `yaml:"retries" default:"3" validate:"gt=0"`
		BackoffBase      time.Duration `yaml:"backoff_base" default:"2s"`
		PrimaryTimeout   time.Duration `yaml:"primary_timeout" default:"5s"`
		SecondaryTimeout time.Duration `yaml:"secondary_timeout" default:"10s"`
		// Token bucket in front of the secondary API (CoinGecko free tier).
		SecondaryBurst  float64 `yaml:"secondary_burst" default:"5"`
		SecondaryRefill float64 `yaml:"secondary_refill" default:"0.5"`
	} `yaml:"market"`
	Kafka struct {
		Brokers      []string      `yaml:"brokers"` // empty disables event publishing
		Topic        string        `yaml:"topic" default:"marketpulse.runs"`
		RequiredAcks int           `yaml:"required_acks" default:"-1"`
		Compression  string        `yaml:"compression" default:"gzip"`
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
	} `yaml:"kafka"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host" default:"localhost"`
		Port     int    `yaml:"port" default:"6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db" default:"0"`
	} `yaml:"redis"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
}

// DefaultBinanceURLs is the ordered mirror list tried by the primary price source.
var DefaultBinanceURLs = []string{
	"https://api.binance.com",
	"https://api-gcp.binance.com",
	"https://api1.binance.com",
	"https://api2.binance.com",
	"https://api3.binance.com",
	"https://api4.binance.com",
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if len(c.Market.BinanceURLs) == 0 {
		c.Market.BinanceURLs = DefaultBinanceURLs
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("LEDGER_RPC_URL"); v != "" {
		c.Ledger.RPCURL = v
	}
	if v := os.Getenv("LEDGER_ADDRESS"); v != "" {
		c.Ledger.ContractAddress = v
	}
	if v := os.Getenv("CONTRACT_ADDRESS"); v != "" {
		c.Ledger.ContractAddress = v
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Scheduler.Symbols = splitSymbols(v)
	}
	if v := os.Getenv("UPDATE_INTERVAL_SECONDS"); v != "" {
		secs := util.ParseIntDefault(v, int(c.Scheduler.UpdateInterval.Seconds()))
		c.Scheduler.UpdateInterval = time.Duration(secs) * time.Second
	}
	if v := os.Getenv("RECONCILER_INTERVAL_SECONDS"); v != "" {
		secs := util.ParseIntDefault(v, int(c.Reconciler.Interval.Seconds()))
		c.Reconciler.Interval = time.Duration(secs) * time.Second
	}
	if v := os.Getenv("NEWS_API_URL"); v != "" {
		c.Market.NewsURL = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Enabled = true
		host, port := v, 6379
		if i := strings.LastIndex(v, ":"); i > 0 {
			host = v[:i]
			fmt.Sscanf(v[i+1:], "%d", &port)
		}
		c.Redis.Host, c.Redis.Port = host, port
	}

	// Re-validate after overrides
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	for i, s := range c.Scheduler.Symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			return fmt.Errorf("scheduler.symbols[%d] is empty", i)
		}
		c.Scheduler.Symbols[i] = s
	}
	return nil
}

// splitSymbols parses a comma-separated whitelist, trimming and uppercasing entries.
func splitSymbols(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
