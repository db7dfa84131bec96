package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/equityrun/equityrun/internal/domain/market"
)

func rowsFromCloses(closes []float64) []market.FeatureRow {
	start := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	rows := make([]market.FeatureRow, len(closes))
	for i, c := range closes {
		rows[i] = market.FeatureRow{
			Bar: market.Bar{Date: start.AddDate(0, 0, i), Close: c, Volume: 1000},
			// Keep every bar buyable and never sellable unless a test
			// overrides these.
			SMA200:      1,
			RSI:         50,
			VolumeSMA20: 1000,
		}
	}
	return rows
}

// alwaysIn buys on the first bar and never signals an exit, so with wide
// stop and target it behaves exactly like buy and hold.
type alwaysIn struct{}

func (alwaysIn) Name() string                      { return "always_in" }
func (alwaysIn) ShouldBuy(market.FeatureRow) bool  { return true }
func (alwaysIn) ShouldSell(market.FeatureRow) bool { return false }

func TestSimulate_RisingSeriesMatchesBuyAndHold(t *testing.T) {
	closes := []float64{100, 101, 102, 104, 107, 110}
	cfg := &Config{InitialCapital: 10000, StopLossRatio: 0.01, TakeProfitRatio: 100}

	res, err := Simulate("TEST", rowsFromCloses(closes), alwaysIn{}, cfg)
	require.NoError(t, err)

	assert.InDelta(t, 10000*110.0/100.0, res.FinalEquity, 1e-9)
	assert.InDelta(t, res.BuyHoldReturnPct, res.TotalReturnPct, 1e-9)
	assert.InDelta(t, 0, res.AlphaPct, 1e-9)
	assert.Equal(t, 0.0, res.MaxDrawdownPct, "monotone rise never draws down")
}

func TestSimulate_StopLossBeatsTakeProfitOnSameBar(t *testing.T) {
	// With the stop threshold at 92 and the target at 80 the drop to 80
	// breaches both on the same bar; the stop must win the tie.
	closes := []float64{100, 80, 80}
	cfg := &Config{InitialCapital: 10000, StopLossRatio: 0.92, TakeProfitRatio: 0.80}

	res, err := Simulate("TEST", rowsFromCloses(closes), alwaysIn{}, cfg)
	require.NoError(t, err)

	require.Len(t, res.Trades, 4, "buy, stop exit, re-entry, final liquidation")
	assert.Equal(t, "SELL", res.Trades[1].Type)
	assert.Equal(t, ReasonStopLoss, res.Trades[1].Reason)
}

func TestSimulate_StopLossExitPriceAndLoss(t *testing.T) {
	closes := []float64{100, 95, 90, 95, 95}
	cfg := &Config{InitialCapital: 10000, StopLossRatio: 0.92, TakeProfitRatio: 10}

	// Strategy buys once at 100 and never signals again.
	res, err := Simulate("TEST", rowsFromCloses(closes), buyOnce{limit: 100}, cfg)
	require.NoError(t, err)

	require.Len(t, res.Trades, 2)
	stop := res.Trades[1]
	assert.Equal(t, ReasonStopLoss, stop.Reason)
	assert.Equal(t, 90.0, stop.Price)
	assert.InDelta(t, -1000, stop.Profit, 1e-9)
	assert.InDelta(t, -10, res.TotalReturnPct, 1e-9)
}

// buyOnce enters only at exactly its limit price, so it never re-enters
// after an exit in these fixtures.
type buyOnce struct{ limit float64 }

func (buyOnce) Name() string { return "buy_once" }
func (b buyOnce) ShouldBuy(row market.FeatureRow) bool {
	return row.Close == b.limit
}
func (buyOnce) ShouldSell(market.FeatureRow) bool { return false }

func TestSimulate_TakeProfitFires(t *testing.T) {
	closes := []float64{100, 105, 111, 111}
	cfg := &Config{InitialCapital: 10000, StopLossRatio: 0.5, TakeProfitRatio: 1.10}

	res, err := Simulate("TEST", rowsFromCloses(closes), buyOnce{limit: 100}, cfg)
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(res.Trades), 2)
	assert.Equal(t, ReasonTakeProfit, res.Trades[1].Reason)
	assert.Equal(t, 111.0, res.Trades[1].Price)
	assert.Equal(t, 100.0, res.WinRatePct)
}

func TestSimulate_DrawdownBounds(t *testing.T) {
	closes := []float64{100, 60, 120, 30, 90}
	cfg := &Config{InitialCapital: 10000, StopLossRatio: 0.01, TakeProfitRatio: 100}

	res, err := Simulate("TEST", rowsFromCloses(closes), alwaysIn{}, cfg)
	require.NoError(t, err)
	assert.LessOrEqual(t, res.MaxDrawdownPct, 0.0)
	assert.GreaterOrEqual(t, res.MaxDrawdownPct, -100.0)
	assert.Less(t, res.MaxDrawdownPct, -50.0, "120 to 30 is a deep trough")
}

func TestSimulate_ForcedLiquidation(t *testing.T) {
	closes := []float64{100, 101, 102}
	cfg := &Config{InitialCapital: 10000, StopLossRatio: 0.5, TakeProfitRatio: 100}

	res, err := Simulate("TEST", rowsFromCloses(closes), alwaysIn{}, cfg)
	require.NoError(t, err)

	last := res.Trades[len(res.Trades)-1]
	assert.Equal(t, "SELL", last.Type)
	assert.Equal(t, ReasonLiquidation, last.Reason)
	assert.Equal(t, 102.0, last.Price)
}

func TestSimulate_EmptyInput(t *testing.T) {
	_, err := Simulate("TEST", nil, alwaysIn{}, DefaultConfig())
	assert.Error(t, err)
}

func TestCombinedV4_Predicates(t *testing.T) {
	row := market.FeatureRow{
		Bar:         market.Bar{Close: 110, Volume: 1000},
		SMA200:      100,
		RSI:         40,
		VolumeSMA20: 1000,
	}
	s := CombinedV4{}
	assert.True(t, s.ShouldBuy(row))

	row.Volume = 3000
	assert.False(t, s.ShouldBuy(row), "panic volume blocks the dip buy")

	row.Volume = 1000
	row.RSI = 75
	assert.False(t, s.ShouldBuy(row))
	assert.True(t, s.ShouldSell(row))
}

func TestByName(t *testing.T) {
	for _, s := range AllStrategies() {
		got, ok := ByName(s.Name())
		require.True(t, ok)
		assert.Equal(t, s.Name(), got.Name())
	}
	_, ok := ByName("nope")
	assert.False(t, ok)
}
