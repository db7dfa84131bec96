package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/equityrun/equityrun/internal/cache"
	"github.com/equityrun/equityrun/internal/data"
	"github.com/equityrun/equityrun/internal/domain/clean"
	"github.com/equityrun/equityrun/internal/domain/features"
	"github.com/equityrun/equityrun/internal/domain/market"
	"github.com/equityrun/equityrun/internal/domain/regime"
	"github.com/equityrun/equityrun/internal/domain/signal"
	"github.com/equityrun/equityrun/internal/forecast"
	"github.com/equityrun/equityrun/internal/metrics"
	"github.com/equityrun/equityrun/internal/providers"
	"github.com/equityrun/equityrun/internal/tracker"
)

// Config tunes the end-to-end prediction run.
type Config struct {
	Period       data.Period
	HorizonDays  int // business days to forecast
	ChartHistory int // history points included in chart data
	TopFeatures  int // significant features reported
	CacheTTL     time.Duration
	CacheBackend string // label for metrics only
	Clean        clean.Config
	Features     features.Config
	Regime       regime.Config
	Thresholds   signal.Thresholds
}

func DefaultConfig() Config {
	return Config{
		Period:       data.Period5Years,
		HorizonDays:  15,
		ChartHistory: 90,
		TopFeatures:  3,
		CacheTTL:     cache.DefaultTTL,
		CacheBackend: "memory",
		Clean:        clean.DefaultConfig(),
		Features:     features.DefaultConfig(),
		Regime:       regime.DefaultConfig(),
		Thresholds:   signal.DefaultThresholds(),
	}
}

// ChartPoint is one chart sample: history carries rsi/macd, forecast points
// carry bounds and the isPrediction flag.
type ChartPoint struct {
	Date         string   `json:"date"`
	Price        float64  `json:"price"`
	IsPrediction bool     `json:"isPrediction"`
	RSI          *float64 `json:"rsi,omitempty"`
	MACD         *float64 `json:"macd,omitempty"`
	LowerBound   *float64 `json:"lowerBound,omitempty"`
	UpperBound   *float64 `json:"upperBound,omitempty"`
}

// Prediction is the assembled result for one symbol.
type Prediction struct {
	Symbol              string                   `json:"symbol"`
	CurrentPrice        float64                  `json:"current_price"`
	MarketPhase         string                   `json:"market_phase"`
	ActionSignal        string                   `json:"action_signal"`
	Rationale           string                   `json:"rationale"`
	TrendStrength       string                   `json:"trend_strength"`
	SignificantFeatures []string                 `json:"significant_features"`
	Sentiment           providers.SentimentScore `json:"sentiment"`
	TASummary           providers.TASummary      `json:"ta_summary"`
	RSI                 float64                  `json:"rsi"`
	MACDSignal          string                   `json:"macd_signal"`
	ExpectedReturnPct   float64                  `json:"expected_return_pct"`
	Accuracy            tracker.Stats            `json:"accuracy"`
	ChartData           []ChartPoint             `json:"chart_data"`
	GeneratedAt         time.Time                `json:"generated_at"`
	Cached              bool                     `json:"cached,omitempty"`
}

// Pipeline orchestrates fetch, clean, features, regime, forecast, signal and
// assembly. Stage failures degrade per stage: only data fetch and forecast
// errors abort a request.
type Pipeline struct {
	cfg        Config
	provider   data.Provider
	forecaster forecast.Forecaster
	calendar   *forecast.Calendar
	ta         providers.TAProvider
	sentiment  providers.SentimentProvider
	store      cache.Store
	tracker    *tracker.Tracker
	metrics    *metrics.Registry
}

// Deps bundles the pipeline collaborators.
type Deps struct {
	Provider   data.Provider
	Forecaster forecast.Forecaster
	Calendar   *forecast.Calendar
	TA         providers.TAProvider
	Sentiment  providers.SentimentProvider
	Cache      cache.Store
	Tracker    *tracker.Tracker
	Metrics    *metrics.Registry
}

func New(cfg Config, deps Deps) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		provider:   deps.Provider,
		forecaster: deps.Forecaster,
		calendar:   deps.Calendar,
		ta:         deps.TA,
		sentiment:  deps.Sentiment,
		store:      deps.Cache,
		tracker:    deps.Tracker,
		metrics:    deps.Metrics,
	}
}

// Predict runs the full pipeline for one symbol, serving from cache when a
// live entry exists.
func (p *Pipeline) Predict(ctx context.Context, symbol string) (*Prediction, error) {
	if symbol == "" {
		return nil, fmt.Errorf("predict: empty symbol")
	}

	if cached := p.fromCache(ctx, symbol); cached != nil {
		return cached, nil
	}

	rows, err := p.prepare(ctx, symbol)
	if err != nil {
		return nil, err
	}
	last := rows[len(rows)-1]

	points, expectedReturn, err := p.forecastPrices(rows, last.Close)
	if err != nil {
		return nil, fmt.Errorf("predict %s: %w", symbol, err)
	}

	sent := p.fetchSentiment(ctx, symbol)
	ta := p.fetchTA(ctx, symbol)

	decision := signal.Decide(signal.BuildInputs(last, expectedReturn, p.cfg.Thresholds))

	accuracy := p.trackAccuracy(ctx, symbol, points)

	pred := &Prediction{
		Symbol:              symbol,
		CurrentPrice:        last.Close,
		MarketPhase:         last.Regime.String(),
		ActionSignal:        string(decision.Action),
		Rationale:           decision.Rationale,
		TrendStrength:       trendStrength(last.ADX),
		SignificantFeatures: features.Rank(rows, p.cfg.TopFeatures),
		Sentiment:           sent,
		TASummary:           ta,
		RSI:                 last.RSI,
		MACDSignal:          macdSignal(last),
		ExpectedReturnPct:   expectedReturn,
		Accuracy:            accuracy,
		ChartData:           p.chartData(rows, points),
		GeneratedAt:         time.Now().UTC(),
	}

	p.toCache(ctx, symbol, pred)
	p.metrics.RecordPrediction(pred.ActionSignal)
	return pred, nil
}

// prepare runs fetch, clean, features and regime for a symbol. Cleaning and
// regime detection degrade instead of failing.
func (p *Pipeline) prepare(ctx context.Context, symbol string) ([]market.FeatureRow, error) {
	timer := p.metrics.StartStage("fetch")
	bars, err := p.provider.Fetch(ctx, symbol, p.cfg.Period)
	if err != nil {
		timer.Stop("error")
		return nil, fmt.Errorf("predict %s: %w", symbol, err)
	}
	timer.Stop("ok")

	timer = p.metrics.StartStage("clean")
	cleaned, err := clean.Filter(bars, p.cfg.Clean)
	if err != nil {
		timer.Stop("degraded")
		log.Warn().Err(err).Str("symbol", symbol).Msg("robust cleaning failed, using forward fill")
		bars = clean.ForwardFill(bars)
	} else {
		timer.Stop("ok")
		bars = cleaned.Bars
	}

	timer = p.metrics.StartStage("features")
	rows, err := features.Compute(bars, p.cfg.Features)
	if err != nil {
		timer.Stop("error")
		return nil, fmt.Errorf("predict %s: %w", symbol, err)
	}
	timer.Stop("ok")

	timer = p.metrics.StartStage("regime")
	if err := regime.Label(rows, p.cfg.Regime); err != nil {
		timer.Stop("degraded")
		log.Warn().Err(err).Str("symbol", symbol).Msg("regime detection failed, labels unknown")
	} else {
		timer.Stop("ok")
	}
	return rows, nil
}

// forecastPrices fits the model and returns the horizon forecast plus the
// expected percent return from the current price to the final forecast.
func (p *Pipeline) forecastPrices(rows []market.FeatureRow, currentPrice float64) ([]forecast.Point, float64, error) {
	timer := p.metrics.StartStage("forecast")
	bars := make([]market.Bar, len(rows))
	for i := range rows {
		bars[i] = rows[i].Bar
	}
	model, err := p.forecaster.Fit(bars)
	if err != nil {
		timer.Stop("error")
		return nil, 0, err
	}

	lastDate := bars[len(bars)-1].Date
	dates := p.calendar.NextBusinessDays(lastDate, p.cfg.HorizonDays)
	points := model.Predict(dates)
	timer.Stop("ok")

	if len(points) == 0 || currentPrice <= 0 {
		return nil, 0, fmt.Errorf("empty forecast")
	}
	final := points[len(points)-1].Yhat
	return points, (final - currentPrice) / currentPrice * 100, nil
}

func (p *Pipeline) fetchSentiment(ctx context.Context, symbol string) providers.SentimentScore {
	s, err := p.sentiment.Score(ctx, symbol)
	if err != nil {
		p.metrics.RecordProviderFailure("sentiment")
		return providers.NeutralSentiment()
	}
	return s
}

func (p *Pipeline) fetchTA(ctx context.Context, symbol string) providers.TASummary {
	s, err := p.ta.Fetch(ctx, symbol)
	if err != nil {
		p.metrics.RecordProviderFailure("ta_summary")
		return providers.TASummary{Indicators: map[string]float64{}}
	}
	return s
}

// trackAccuracy logs today's next-day forecast and reports current stats.
// Both are best effort; an unavailable tracker degrades to "N/A".
func (p *Pipeline) trackAccuracy(ctx context.Context, symbol string, points []forecast.Point) tracker.Stats {
	if p.tracker == nil {
		return tracker.Stats{Accuracy: "N/A"}
	}
	if err := p.tracker.Log(ctx, symbol, points[0].Yhat); err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("prediction logging failed")
	}
	stats, err := p.tracker.Stats(ctx, symbol)
	if err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("accuracy stats unavailable")
		return tracker.Stats{Accuracy: "N/A"}
	}
	return stats
}

func (p *Pipeline) chartData(rows []market.FeatureRow, points []forecast.Point) []ChartPoint {
	histStart := 0
	if len(rows) > p.cfg.ChartHistory {
		histStart = len(rows) - p.cfg.ChartHistory
	}
	out := make([]ChartPoint, 0, len(rows)-histStart+len(points))
	for _, row := range rows[histStart:] {
		rsi, macd := row.RSI, row.MACD
		out = append(out, ChartPoint{
			Date:  row.Date.Format("2006-01-02"),
			Price: row.Close,
			RSI:   &rsi,
			MACD:  &macd,
		})
	}
	for _, pt := range points {
		price := pt.Yhat
		if price < 0 {
			price = 0
		}
		lower, upper := pt.YhatLower, pt.YhatUpper
		out = append(out, ChartPoint{
			Date:         pt.Date.Format("2006-01-02"),
			Price:        price,
			IsPrediction: true,
			LowerBound:   &lower,
			UpperBound:   &upper,
		})
	}
	return out
}

func (p *Pipeline) fromCache(ctx context.Context, symbol string) *Prediction {
	raw, ok, err := p.store.Get(ctx, symbol)
	if err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("cache read failed")
		return nil
	}
	if !ok {
		p.metrics.RecordCacheMiss(p.cfg.CacheBackend)
		return nil
	}
	var pred Prediction
	if err := json.Unmarshal(raw, &pred); err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("cache entry corrupt, recomputing")
		return nil
	}
	p.metrics.RecordCacheHit(p.cfg.CacheBackend)
	pred.Cached = true
	return &pred
}

func (p *Pipeline) toCache(ctx context.Context, symbol string, pred *Prediction) {
	raw, err := json.Marshal(pred)
	if err != nil {
		return
	}
	if err := p.store.Set(ctx, symbol, raw, p.cfg.CacheTTL); err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("cache write failed")
	}
}

// trendStrength tags ADX per the usual bands.
func trendStrength(adx float64) string {
	switch {
	case adx > 50:
		return "Very Strong"
	case adx > 25:
		return "Strong"
	default:
		return "Weak"
	}
}

func macdSignal(row market.FeatureRow) string {
	if row.MACD > row.MACDSignal {
		return "Buy"
	}
	return "Sell"
}
