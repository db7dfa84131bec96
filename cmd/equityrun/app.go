package main

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/equityrun/equityrun/internal/cache"
	"github.com/equityrun/equityrun/internal/config"
	"github.com/equityrun/equityrun/internal/data"
	"github.com/equityrun/equityrun/internal/forecast"
	"github.com/equityrun/equityrun/internal/metrics"
	"github.com/equityrun/equityrun/internal/pipeline"
	"github.com/equityrun/equityrun/internal/providers"
	"github.com/equityrun/equityrun/internal/tracker"
)

const providerTimeout = 10 * time.Second

// app bundles the wired collaborators every command starts from.
type app struct {
	cfg      *config.Config
	registry *prometheus.Registry
	metrics  *metrics.Registry
	provider data.Provider
	store    cache.Store
	tracker  *tracker.Tracker
	pipe     *pipeline.Pipeline
}

func (a *app) Close() {
	if a.store != nil {
		a.store.Close()
	}
	if a.tracker != nil {
		a.tracker.Close()
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}

// buildApp wires the pipeline and its backends from config and flags.
func buildApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	var provider data.Provider
	if offline, _ := cmd.Flags().GetBool("offline"); offline {
		provider = data.NewFakeProvider()
	} else {
		provider = data.NewHTTPProvider(data.HTTPConfig{
			BaseURL:    cfg.Provider.BaseURL,
			Timeout:    cfg.Provider.Timeout(),
			RequestsPS: cfg.Provider.RequestsPS,
			Burst:      cfg.Provider.Burst,
			UserAgent:  appName + "/" + version,
		})
	}

	var store cache.Store
	switch cfg.Cache.Backend {
	case "redis":
		store, err = cache.Dial(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPass, cfg.Cache.RedisDB)
		if err != nil {
			return nil, err
		}
	default:
		store = cache.NewMemory(cfg.Cache.MaxEntries)
	}

	var trackStore tracker.Store
	switch cfg.Tracker.Backend {
	case "postgres":
		trackStore, err = tracker.OpenPostgres(cfg.Tracker.PostgresDSN, providerTimeout)
		if err != nil {
			store.Close()
			return nil, err
		}
	default:
		trackStore = tracker.NewFileStore(cfg.Tracker.Path)
	}

	var ta providers.TAProvider = providers.DisabledTA{}
	if cfg.Provider.TABaseURL != "" {
		ta = providers.NewGuardedTA(providers.NewHTTPTA(cfg.Provider.TABaseURL, providerTimeout), providerTimeout)
	}
	var sentiment providers.SentimentProvider = providers.DisabledSentiment{}
	if cfg.Provider.SentimentBaseURL != "" {
		sentiment = providers.NewGuardedSentiment(providers.NewHTTPSentiment(cfg.Provider.SentimentBaseURL, providerTimeout), providerTimeout)
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	track := tracker.New(trackStore, provider)

	pcfg := pipeline.DefaultConfig()
	pcfg.HorizonDays = cfg.Forecast.HorizonDays
	pcfg.CacheTTL = cfg.Cache.TTL()
	pcfg.CacheBackend = cfg.Cache.Backend

	pipe := pipeline.New(pcfg, pipeline.Deps{
		Provider:   provider,
		Forecaster: forecast.NewTrendSeasonal(),
		Calendar:   forecast.NewCalendar(cfg.Forecast.Holidays),
		TA:         ta,
		Sentiment:  sentiment,
		Cache:      store,
		Tracker:    track,
		Metrics:    m,
	})

	return &app{
		cfg:      cfg,
		registry: registry,
		metrics:  m,
		provider: provider,
		store:    store,
		tracker:  track,
		pipe:     pipe,
	}, nil
}

// resolveSymbols prefers explicit arguments over the configured universe.
func resolveSymbols(args []string, cfg *config.Config) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	if len(cfg.Screener.Universe) > 0 {
		return cfg.Screener.Universe, nil
	}
	return nil, fmt.Errorf("no symbols given and no screener.universe configured")
}
