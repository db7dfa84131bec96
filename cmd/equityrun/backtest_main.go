package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/equityrun/equityrun/internal/backtest"
	"github.com/equityrun/equityrun/internal/data"
	"github.com/equityrun/equityrun/internal/domain/clean"
	"github.com/equityrun/equityrun/internal/domain/features"
	"github.com/equityrun/equityrun/internal/domain/market"
)

// runBacktest simulates strategies over the requested universe.
func runBacktest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := buildApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	symbols, err := resolveSymbols(args, a.cfg)
	if err != nil {
		return err
	}

	compare, _ := cmd.Flags().GetBool("compare")
	strategyName, _ := cmd.Flags().GetString("strategy")

	var strategies []backtest.Strategy
	if compare {
		strategies = backtest.AllStrategies()
	} else {
		strat, ok := backtest.ByName(strategyName)
		if !ok {
			return fmt.Errorf("unknown strategy %q", strategyName)
		}
		strategies = []backtest.Strategy{strat}
	}

	btCfg := &backtest.Config{
		InitialCapital:  a.cfg.Backtest.InitialCapital,
		StopLossRatio:   a.cfg.Backtest.StopLossRatio,
		TakeProfitRatio: a.cfg.Backtest.TakeProfitRatio,
	}
	runner := backtest.NewRunner(newLoader(a.provider), btCfg, &backtest.RunnerConfig{Workers: a.cfg.Backtest.Workers})

	results, errs := runner.Run(ctx, symbols, strategies)
	for symbol, err := range errs {
		log.Warn().Err(err).Str("symbol", symbol).Msg("backtest skipped symbol")
	}
	if len(results) == 0 {
		return fmt.Errorf("no symbols produced results")
	}

	printResults(results)
	if compare {
		printComparison(backtest.Compare(results))
	} else {
		printPortfolio(backtest.Portfolio(results, strategies[0].Name(), btCfg.InitialCapital))
	}
	return nil
}

// newLoader adapts the market data provider into backtest feature rows.
func newLoader(provider data.Provider) backtest.Loader {
	return func(ctx context.Context, symbol string) ([]market.FeatureRow, error) {
		bars, err := provider.Fetch(ctx, symbol, data.Period5Years)
		if err != nil {
			return nil, err
		}
		cleaned, err := clean.Filter(bars, clean.DefaultConfig())
		if err != nil {
			bars = clean.ForwardFill(bars)
		} else {
			bars = cleaned.Bars
		}
		return features.Compute(bars, features.DefaultConfig())
	}
}

func printResults(results []*backtest.Result) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SYMBOL\tSTRATEGY\tRETURN%\tB&H%\tALPHA%\tWIN%\tSELLS\tMAXDD%")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%.2f\t%.2f\t%.1f\t%d\t%.2f\n",
			r.Symbol, r.Strategy, r.TotalReturnPct, r.BuyHoldReturnPct,
			r.AlphaPct, r.WinRatePct, r.SellCount, r.MaxDrawdownPct)
	}
	w.Flush()
}

func printComparison(rows []backtest.CompareRow) {
	fmt.Println("\nStrategy comparison (mean across symbols):")
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STRATEGY\tSYMBOLS\tRETURN%\tWIN%\tALPHA%")
	for _, row := range rows {
		fmt.Fprintf(w, "%s\t%d\t%.2f\t%.1f\t%.2f\n",
			row.Strategy, row.Symbols, row.MeanReturnPct, row.MeanWinRatePct, row.MeanAlphaPct)
	}
	w.Flush()
}

func printPortfolio(p backtest.PortfolioSummary) {
	fmt.Printf("\nPortfolio (%d symbols, %.0f each):\n", p.Symbols, p.CapitalPerSymbol)
	fmt.Printf("  strategy:     %.2f (%+.2f, %.2f%%)\n", p.StrategyFinalValue, p.StrategyProfit, p.StrategyROIPct)
	fmt.Printf("  buy-and-hold: %.2f (%+.2f, %.2f%%)\n", p.BuyHoldFinalValue, p.BuyHoldProfit, p.BuyHoldROIPct)
}
