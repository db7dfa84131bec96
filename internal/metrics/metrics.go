package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

// Registry holds all Prometheus metrics for the prediction service.
type Registry struct {
	StageDuration *prometheus.HistogramVec

	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec

	ProviderFailures *prometheus.CounterVec

	Predictions *prometheus.CounterVec

	ScreenerDuration prometheus.Histogram
	ActiveScreens    prometheus.Gauge
}

// New creates the metric set and registers it with reg. Pass
// prometheus.DefaultRegisterer in production; tests use a fresh registry.
func New(reg prometheus.Registerer) *Registry {
	r := &Registry{
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "equityrun_stage_duration_seconds",
				Help:    "Duration of each pipeline stage in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
			[]string{"stage", "result"},
		),

		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "equityrun_cache_hits_total",
				Help: "Total prediction cache hits by backend",
			},
			[]string{"backend"},
		),

		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "equityrun_cache_misses_total",
				Help: "Total prediction cache misses by backend",
			},
			[]string{"backend"},
		),

		ProviderFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "equityrun_provider_failures_total",
				Help: "Total external provider failures by provider",
			},
			[]string{"provider"},
		),

		Predictions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "equityrun_predictions_total",
				Help: "Total predictions served by action signal",
			},
			[]string{"signal"},
		),

		ScreenerDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "equityrun_screener_duration_seconds",
				Help:    "Duration of full universe screens in seconds",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
			},
		),

		ActiveScreens: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "equityrun_active_screens",
				Help: "Number of screens currently running",
			},
		),
	}

	reg.MustRegister(
		r.StageDuration,
		r.CacheHits,
		r.CacheMisses,
		r.ProviderFailures,
		r.Predictions,
		r.ScreenerDuration,
		r.ActiveScreens,
	)
	return r
}

// StageTimer tracks execution time for pipeline stages
type StageTimer struct {
	registry *Registry
	stage    string
	start    time.Time
}

// StartStage begins timing a pipeline stage
func (r *Registry) StartStage(stage string) *StageTimer {
	return &StageTimer{registry: r, stage: stage, start: time.Now()}
}

// Stop completes the timing and records it with the given result label.
func (t *StageTimer) Stop(result string) {
	duration := time.Since(t.start)
	t.registry.StageDuration.WithLabelValues(t.stage, result).Observe(duration.Seconds())

	log.Debug().
		Str("stage", t.stage).
		Str("result", result).
		Dur("duration", duration).
		Msg("pipeline stage completed")
}

// RecordCacheHit records a hit on the named backend.
func (r *Registry) RecordCacheHit(backend string) {
	r.CacheHits.WithLabelValues(backend).Inc()
}

// RecordCacheMiss records a miss on the named backend.
func (r *Registry) RecordCacheMiss(backend string) {
	r.CacheMisses.WithLabelValues(backend).Inc()
}

// RecordProviderFailure counts a degraded external call.
func (r *Registry) RecordProviderFailure(provider string) {
	r.ProviderFailures.WithLabelValues(provider).Inc()
}

// RecordPrediction counts a served prediction by its action signal.
func (r *Registry) RecordPrediction(signal string) {
	r.Predictions.WithLabelValues(signal).Inc()
}
