package backtest

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/equityrun/equityrun/internal/domain/market"
)

func fakeLoader() Loader {
	return func(_ context.Context, symbol string) ([]market.FeatureRow, error) {
		switch symbol {
		case "UP":
			return rowsFromCloses([]float64{100, 102, 104, 106, 108, 110}), nil
		case "DOWN":
			return rowsFromCloses([]float64{100, 98, 96, 94, 92, 90}), nil
		default:
			return nil, fmt.Errorf("no price history for %s", symbol)
		}
	}
}

func TestRunner_IsolatesFailedSymbols(t *testing.T) {
	r := NewRunner(fakeLoader(), DefaultConfig(), &RunnerConfig{Workers: 2})
	results, errs := r.Run(context.Background(), []string{"UP", "MISSING", "DOWN"}, []Strategy{alwaysIn{}})

	require.Len(t, errs, 1)
	assert.Error(t, errs["MISSING"])

	// Two surviving symbols, one strategy each, in universe order.
	require.Len(t, results, 2)
	assert.Equal(t, "UP", results[0].Symbol)
	assert.Equal(t, "DOWN", results[1].Symbol)
}

func TestRunner_AllStrategiesPerSymbol(t *testing.T) {
	r := NewRunner(fakeLoader(), DefaultConfig(), nil)
	results, errs := r.Run(context.Background(), []string{"UP"}, nil)

	assert.Empty(t, errs)
	require.Len(t, results, len(AllStrategies()))
	seen := map[string]bool{}
	for _, res := range results {
		seen[res.Strategy] = true
	}
	assert.Len(t, seen, len(AllStrategies()))
}

func TestCompare_AggregatesAndSorts(t *testing.T) {
	results := []*Result{
		{Strategy: "A", TotalReturnPct: 10, WinRatePct: 100, AlphaPct: 2},
		{Strategy: "A", TotalReturnPct: 20, WinRatePct: 50, AlphaPct: 4},
		{Strategy: "B", TotalReturnPct: 40, WinRatePct: 80, AlphaPct: 1},
	}
	rows := Compare(results)
	require.Len(t, rows, 2)

	assert.Equal(t, "B", rows[0].Strategy, "sorted by mean return descending")
	assert.Equal(t, "A", rows[1].Strategy)
	assert.Equal(t, 2, rows[1].Symbols)
	assert.InDelta(t, 15, rows[1].MeanReturnPct, 1e-9)
	assert.InDelta(t, 75, rows[1].MeanWinRatePct, 1e-9)
	assert.InDelta(t, 3, rows[1].MeanAlphaPct, 1e-9)
}

func TestPortfolio_FixedCapitalAggregation(t *testing.T) {
	results := []*Result{
		{Strategy: "Combined_V4", FinalEquity: 120000, BuyHoldReturnPct: 10},
		{Strategy: "Combined_V4", FinalEquity: 90000, BuyHoldReturnPct: -20},
		{Strategy: "Pure_RSI", FinalEquity: 500000, BuyHoldReturnPct: 100}, // ignored
	}
	s := Portfolio(results, "Combined_V4", 100000)

	assert.Equal(t, 2, s.Symbols)
	assert.InDelta(t, 210000, s.StrategyFinalValue, 1e-9)
	assert.InDelta(t, 10000, s.StrategyProfit, 1e-9)
	assert.InDelta(t, 5, s.StrategyROIPct, 1e-9)
	assert.InDelta(t, 110000+80000, s.BuyHoldFinalValue, 1e-9)
	assert.InDelta(t, -5, s.BuyHoldROIPct, 1e-9)
}

func TestPortfolio_EmptyUniverse(t *testing.T) {
	s := Portfolio(nil, "Combined_V4", 100000)
	assert.Equal(t, 0, s.Symbols)
	assert.Equal(t, 0.0, s.StrategyROIPct)
}
