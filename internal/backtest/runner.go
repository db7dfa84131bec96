package backtest

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/equityrun/equityrun/internal/domain/market"
)

// Loader produces the fully prepared feature rows for one symbol. The runner
// stays decoupled from data fetching and feature computation; callers wire
// their pipeline in through this.
type Loader func(ctx context.Context, symbol string) ([]market.FeatureRow, error)

// RunnerConfig controls multi-symbol execution.
type RunnerConfig struct {
	Workers int // bounded concurrency, keeps the upstream data source happy
}

func DefaultRunnerConfig() *RunnerConfig {
	return &RunnerConfig{Workers: 10}
}

// Runner executes simulations across a symbol universe with bounded
// parallelism. Symbols are fully independent, so one failure never aborts
// the batch.
type Runner struct {
	load Loader
	cfg  *Config
	rcfg *RunnerConfig
}

func NewRunner(load Loader, cfg *Config, rcfg *RunnerConfig) *Runner {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if rcfg == nil {
		rcfg = DefaultRunnerConfig()
	}
	if rcfg.Workers <= 0 {
		rcfg.Workers = 1
	}
	return &Runner{load: load, cfg: cfg, rcfg: rcfg}
}

// symbolOutcome pairs a symbol's results with its terminal error.
type symbolOutcome struct {
	symbol  string
	results []*Result
	err     error
}

// Run simulates every strategy on every symbol. The returned results are
// grouped per symbol in universe order; failed symbols appear in errs only.
func (r *Runner) Run(ctx context.Context, symbols []string, strategies []Strategy) ([]*Result, map[string]error) {
	if len(strategies) == 0 {
		strategies = AllStrategies()
	}

	sem := make(chan struct{}, r.rcfg.Workers)
	out := make(chan symbolOutcome, len(symbols))
	var wg sync.WaitGroup

	for _, symbol := range symbols {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			out <- r.runSymbol(ctx, symbol, strategies)
		}(symbol)
	}
	wg.Wait()
	close(out)

	bySymbol := make(map[string]symbolOutcome, len(symbols))
	errs := make(map[string]error)
	for o := range out {
		bySymbol[o.symbol] = o
	}

	var results []*Result
	for _, symbol := range symbols {
		o := bySymbol[symbol]
		if o.err != nil {
			log.Warn().Err(o.err).Str("symbol", symbol).Msg("backtest skipped symbol")
			errs[symbol] = o.err
			continue
		}
		results = append(results, o.results...)
	}
	return results, errs
}

func (r *Runner) runSymbol(ctx context.Context, symbol string, strategies []Strategy) symbolOutcome {
	rows, err := r.load(ctx, symbol)
	if err != nil {
		return symbolOutcome{symbol: symbol, err: fmt.Errorf("load %s: %w", symbol, err)}
	}
	o := symbolOutcome{symbol: symbol}
	for _, strat := range strategies {
		res, err := Simulate(symbol, rows, strat, r.cfg)
		if err != nil {
			return symbolOutcome{symbol: symbol, err: err}
		}
		o.results = append(o.results, res)
	}
	return o
}

// Compare aggregates per-strategy means across symbols, sorted by mean
// return descending, for the which-factor-drives-alpha report.
func Compare(results []*Result) []CompareRow {
	type acc struct {
		n                    int
		retSum, winSum, aSum float64
	}
	byStrategy := make(map[string]*acc)
	for _, res := range results {
		a := byStrategy[res.Strategy]
		if a == nil {
			a = &acc{}
			byStrategy[res.Strategy] = a
		}
		a.n++
		a.retSum += res.TotalReturnPct
		a.winSum += res.WinRatePct
		a.aSum += res.AlphaPct
	}

	rows := make([]CompareRow, 0, len(byStrategy))
	for name, a := range byStrategy {
		rows = append(rows, CompareRow{
			Strategy:       name,
			Symbols:        a.n,
			MeanReturnPct:  a.retSum / float64(a.n),
			MeanWinRatePct: a.winSum / float64(a.n),
			MeanAlphaPct:   a.aSum / float64(a.n),
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].MeanReturnPct > rows[j].MeanReturnPct })
	return rows
}

// Portfolio sums a single strategy's results into a fixed-capital-per-symbol
// portfolio view against buy-and-hold on the same allocation.
func Portfolio(results []*Result, strategy string, capitalPerSymbol float64) PortfolioSummary {
	s := PortfolioSummary{CapitalPerSymbol: capitalPerSymbol}
	for _, res := range results {
		if res.Strategy != strategy {
			continue
		}
		s.Symbols++
		s.StrategyFinalValue += res.FinalEquity
		s.BuyHoldFinalValue += capitalPerSymbol * (1 + res.BuyHoldReturnPct/100)
	}
	invested := capitalPerSymbol * float64(s.Symbols)
	if invested > 0 {
		s.StrategyProfit = s.StrategyFinalValue - invested
		s.StrategyROIPct = s.StrategyProfit / invested * 100
		s.BuyHoldProfit = s.BuyHoldFinalValue - invested
		s.BuyHoldROIPct = s.BuyHoldProfit / invested * 100
	}
	return s
}
