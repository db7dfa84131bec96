package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/equityrun/equityrun/internal/screener"
)

// runScreen screens the universe and prints signals by actionability.
func runScreen(cmd *cobra.Command, args []string) error {
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

	screens := screener.New(a.pipe, screener.Config{Workers: a.cfg.Screener.Workers}, a.metrics)
	report, err := screens.Run(ctx, symbols)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SYMBOL\tACTION\tPHASE\tPRICE\tEXP%\tRSI\tTA")
	for _, item := range report.Items {
		ta := item.TARecommendation
		if ta == "" {
			ta = "N/A"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%+.1f\t%.1f\t%s\n",
			item.Symbol, item.ActionSignal, item.MarketPhase,
			item.CurrentPrice, item.ExpectedReturnPct, item.RSI, ta)
	}
	w.Flush()

	for symbol, msg := range report.Failed {
		fmt.Fprintf(os.Stderr, "skipped %s: %s\n", symbol, msg)
	}
	fmt.Printf("\n%d screened, %d failed in %s\n", len(report.Items), len(report.Failed), report.Elapsed.Round(time.Millisecond))
	return nil
}
