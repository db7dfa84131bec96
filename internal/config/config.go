package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full application configuration loaded from YAML. Every field
// has a working default; a missing file yields the default config. Durations
// are plain seconds in the file.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Cache    CacheConfig    `yaml:"cache"`
	Tracker  TrackerConfig  `yaml:"tracker"`
	Provider ProviderConfig `yaml:"provider"`
	Forecast ForecastConfig `yaml:"forecast"`
	Backtest BacktestConfig `yaml:"backtest"`
	Screener ScreenerConfig `yaml:"screener"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host              string `yaml:"host"`
	Port              int    `yaml:"port"`
	ReadTimeoutSec    int    `yaml:"read_timeout_seconds"`
	WriteTimeoutSec   int    `yaml:"write_timeout_seconds"`
	IdleTimeoutSec    int    `yaml:"idle_timeout_seconds"`
	RequestTimeoutSec int    `yaml:"request_timeout_seconds"`
}

func (s ServerConfig) ReadTimeout() time.Duration    { return secs(s.ReadTimeoutSec) }
func (s ServerConfig) WriteTimeout() time.Duration   { return secs(s.WriteTimeoutSec) }
func (s ServerConfig) IdleTimeout() time.Duration    { return secs(s.IdleTimeoutSec) }
func (s ServerConfig) RequestTimeout() time.Duration { return secs(s.RequestTimeoutSec) }

// CacheConfig selects and tunes the prediction cache backend
type CacheConfig struct {
	Backend    string `yaml:"backend"` // memory or redis
	TTLSeconds int    `yaml:"ttl_seconds"`
	MaxEntries int    `yaml:"max_entries"` // memory backend only
	RedisAddr  string `yaml:"redis_addr"`
	RedisPass  string `yaml:"redis_password"`
	RedisDB    int    `yaml:"redis_db"`
}

func (c CacheConfig) TTL() time.Duration { return secs(c.TTLSeconds) }

// TrackerConfig selects and tunes the prediction history store
type TrackerConfig struct {
	Backend     string `yaml:"backend"` // file or postgres
	Path        string `yaml:"path"`    // file backend only
	PostgresDSN string `yaml:"postgres_dsn"`
}

// ProviderConfig tunes the market data client
type ProviderConfig struct {
	BaseURL    string  `yaml:"base_url"`
	TimeoutSec int     `yaml:"timeout_seconds"`
	RequestsPS float64 `yaml:"requests_per_second"`
	Burst      int     `yaml:"burst"`
	// Best-effort provider endpoints; empty disables them.
	TABaseURL        string `yaml:"ta_base_url"`
	SentimentBaseURL string `yaml:"sentiment_base_url"`
}

func (p ProviderConfig) Timeout() time.Duration { return secs(p.TimeoutSec) }

// ForecastConfig tunes the price forecaster
type ForecastConfig struct {
	HorizonDays int      `yaml:"horizon_days"`
	Holidays    []string `yaml:"holidays"` // YYYY-MM-DD market closures
}

// BacktestConfig holds simulator defaults
type BacktestConfig struct {
	InitialCapital  float64 `yaml:"initial_capital"`
	StopLossRatio   float64 `yaml:"stop_loss_ratio"`
	TakeProfitRatio float64 `yaml:"take_profit_ratio"`
	Workers         int     `yaml:"workers"`
}

// ScreenerConfig holds the symbol universe and worker bound
type ScreenerConfig struct {
	Universe []string `yaml:"universe"`
	Workers  int      `yaml:"workers"`
}

func secs(n int) time.Duration { return time.Duration(n) * time.Second }

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "127.0.0.1",
			Port:              8000,
			ReadTimeoutSec:    10,
			WriteTimeoutSec:   30,
			IdleTimeoutSec:    60,
			RequestTimeoutSec: 25,
		},
		Cache: CacheConfig{
			Backend:    "memory",
			TTLSeconds: 4 * 60 * 60,
			MaxEntries: 1024,
			RedisAddr:  "localhost:6379",
		},
		Tracker: TrackerConfig{
			Backend: "file",
			Path:    "prediction_log.json",
		},
		Provider: ProviderConfig{
			BaseURL:    "https://query1.finance.yahoo.com",
			TimeoutSec: 15,
			RequestsPS: 2,
			Burst:      5,
		},
		Forecast: ForecastConfig{
			HorizonDays: 15,
		},
		Backtest: BacktestConfig{
			InitialCapital:  100000,
			StopLossRatio:   0.92,
			TakeProfitRatio: 1.10,
			Workers:         10,
		},
		Screener: ScreenerConfig{
			Universe: []string{},
			Workers:  10,
		},
	}
}

// Load reads the config file at path, layering it over the defaults. A
// missing file is not an error; a malformed one is.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the rest of the system cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d out of range", c.Server.Port)
	}
	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("config: unknown cache.backend %q", c.Cache.Backend)
	}
	switch c.Tracker.Backend {
	case "file", "postgres":
	default:
		return fmt.Errorf("config: unknown tracker.backend %q", c.Tracker.Backend)
	}
	if c.Tracker.Backend == "postgres" && c.Tracker.PostgresDSN == "" {
		return fmt.Errorf("config: tracker.postgres_dsn required for postgres backend")
	}
	if c.Cache.TTLSeconds <= 0 {
		return fmt.Errorf("config: cache.ttl_seconds must be positive")
	}
	if c.Backtest.StopLossRatio <= 0 || c.Backtest.StopLossRatio >= 1 {
		return fmt.Errorf("config: backtest.stop_loss_ratio %.2f must be in (0, 1)", c.Backtest.StopLossRatio)
	}
	if c.Backtest.TakeProfitRatio <= 1 {
		return fmt.Errorf("config: backtest.take_profit_ratio %.2f must exceed 1", c.Backtest.TakeProfitRatio)
	}
	if c.Forecast.HorizonDays <= 0 {
		return fmt.Errorf("config: forecast.horizon_days must be positive")
	}
	if c.Screener.Workers <= 0 {
		return fmt.Errorf("config: screener.workers must be positive")
	}
	if c.Backtest.Workers <= 0 {
		return fmt.Errorf("config: backtest.workers must be positive")
	}
	return nil
}
