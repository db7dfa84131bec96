package screener

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/equityrun/equityrun/internal/domain/market"
	"github.com/equityrun/equityrun/internal/metrics"
	"github.com/equityrun/equityrun/internal/pipeline"
)

// Predictor produces a full prediction for one symbol.
type Predictor interface {
	Predict(ctx context.Context, symbol string) (*pipeline.Prediction, error)
}

// Config tunes a screening run.
type Config struct {
	Workers int // concurrent symbol predictions
}

func DefaultConfig() Config {
	return Config{Workers: 10}
}

// Item is one screened symbol, condensed from its full prediction.
type Item struct {
	Symbol            string  `json:"symbol"`
	ActionSignal      string  `json:"action_signal"`
	MarketPhase       string  `json:"market_phase"`
	CurrentPrice      float64 `json:"current_price"`
	ExpectedReturnPct float64 `json:"expected_return_pct"`
	RSI               float64 `json:"rsi"`
	TARecommendation  string  `json:"ta_recommendation,omitempty"`
	Rationale         string  `json:"rationale"`
}

// Report is the outcome of screening a universe. Failed maps symbols that
// could not be screened to their error text; they never abort the run.
type Report struct {
	Items       []Item            `json:"items"`
	Failed      map[string]string `json:"failed,omitempty"`
	Elapsed     time.Duration     `json:"elapsed_ns"`
	GeneratedAt time.Time         `json:"generated_at"`
}

// Screener fans a symbol universe across a bounded worker pool and ranks the
// surviving results by signal priority.
type Screener struct {
	predictor Predictor
	cfg       Config
	metrics   *metrics.Registry
}

func New(predictor Predictor, cfg Config, reg *metrics.Registry) *Screener {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultConfig().Workers
	}
	return &Screener{predictor: predictor, cfg: cfg, metrics: reg}
}

type outcome struct {
	symbol string
	item   Item
	err    error
}

// Run screens every symbol in the universe. One symbol's failure is isolated
// to that symbol; the rest of the run proceeds.
func (s *Screener) Run(ctx context.Context, symbols []string) (*Report, error) {
	start := time.Now()
	s.metrics.ActiveScreens.Inc()
	defer s.metrics.ActiveScreens.Dec()
	defer func() { s.metrics.ScreenerDuration.Observe(time.Since(start).Seconds()) }()

	sem := make(chan struct{}, s.cfg.Workers)
	out := make(chan outcome, len(symbols))
	var wg sync.WaitGroup

	for _, symbol := range symbols {
		if symbol == "" {
			continue
		}
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			pred, err := s.predictor.Predict(ctx, symbol)
			if err != nil {
				out <- outcome{symbol: symbol, err: err}
				return
			}
			out <- outcome{symbol: symbol, item: Item{
				Symbol:            pred.Symbol,
				ActionSignal:      pred.ActionSignal,
				MarketPhase:       pred.MarketPhase,
				CurrentPrice:      pred.CurrentPrice,
				ExpectedReturnPct: pred.ExpectedReturnPct,
				RSI:               pred.RSI,
				TARecommendation:  pred.TASummary.Recommendation,
				Rationale:         pred.Rationale,
			}}
		}(symbol)
	}
	wg.Wait()
	close(out)

	report := &Report{GeneratedAt: time.Now().UTC()}
	for o := range out {
		if o.err != nil {
			log.Warn().Err(o.err).Str("symbol", o.symbol).Msg("screen failed for symbol")
			if report.Failed == nil {
				report.Failed = map[string]string{}
			}
			report.Failed[o.symbol] = o.err.Error()
			continue
		}
		report.Items = append(report.Items, o.item)
	}
	sortItems(report.Items)
	report.Elapsed = time.Since(start)

	log.Info().
		Int("universe", len(symbols)).
		Int("screened", len(report.Items)).
		Int("failed", len(report.Failed)).
		Dur("elapsed", report.Elapsed).
		Msg("screen complete")
	return report, nil
}

// actionPriority ranks signals for display, actionable ones first. Entries
// and exits outrank the passive states; Buy and Hold fall to the bottom.
func actionPriority(action string) int {
	switch market.Action(action) {
	case market.ActionStrongBuy:
		return 0
	case market.ActionSell:
		return 1
	case market.ActionWait:
		return 2
	case market.ActionAvoid:
		return 3
	default:
		return 4
	}
}

func sortItems(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		pi, pj := actionPriority(items[i].ActionSignal), actionPriority(items[j].ActionSignal)
		if pi != pj {
			return pi < pj
		}
		if items[i].ExpectedReturnPct != items[j].ExpectedReturnPct {
			return items[i].ExpectedReturnPct > items[j].ExpectedReturnPct
		}
		return items[i].Symbol < items[j].Symbol
	})
}
