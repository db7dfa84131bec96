package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	appName = "equityrun"
	version = "v1.0.0"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	// Console output for interactive terminals, JSON for everything else
	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Regime-aware equity signal engine",
		Version: version,
		Long: `equityrun screens equities with a regime-gated signal engine:
robust outlier cleaning, a technical feature battery, GMM market regime
detection, trend-seasonal price forecasting and rule-based action signals,
with backtesting and prediction accuracy tracking.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			levelName, _ := cmd.Flags().GetString("log-level")
			level, err := zerolog.ParseLevel(levelName)
			if err != nil {
				return err
			}
			zerolog.SetGlobalLevel(level)
			return nil
		},
	}

	rootCmd.PersistentFlags().String("config", "", "Path to YAML config file")
	rootCmd.PersistentFlags().Bool("offline", false, "Use the deterministic offline data provider")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (trace|debug|info|warn|error)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long:  "Serves POST /predict, POST /screen, GET /health and GET /metrics",
		RunE:  runServe,
	}

	predictCmd := &cobra.Command{
		Use:   "predict <symbol>",
		Short: "Run the full prediction pipeline for one symbol",
		Args:  cobra.ExactArgs(1),
		RunE:  runPredict,
	}

	backtestCmd := &cobra.Command{
		Use:   "backtest [symbol...]",
		Short: "Simulate trading strategies over historical data",
		Long:  "Simulates the configured strategy per symbol; --compare isolates which rule drives alpha by running every strategy",
		RunE:  runBacktest,
	}
	backtestCmd.Flags().Bool("compare", false, "Run all strategies and aggregate per-strategy performance")
	backtestCmd.Flags().String("strategy", "Combined_V4", "Strategy to simulate (Pure_Trend|Pure_RSI|Combined_V4)")

	screenCmd := &cobra.Command{
		Use:   "screen [symbol...]",
		Short: "Screen a symbol universe for actionable signals",
		RunE:  runScreen,
	}

	rootCmd.AddCommand(serveCmd, predictCmd, backtestCmd, screenCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
