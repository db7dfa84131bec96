package backtest

import (
	"github.com/equityrun/equityrun/internal/domain/market"
)

// Strategy is a regime-free buy/sell predicate evaluated per bar. The
// variants deliberately isolate single factors so their aggregate results
// show which component drives returns.
type Strategy interface {
	Name() string
	ShouldBuy(row market.FeatureRow) bool
	ShouldSell(row market.FeatureRow) bool
}

// PureTrend holds whenever price is above its long-term average and exits
// the moment it drops below. Trend following with no timing at all.
type PureTrend struct{}

func (PureTrend) Name() string { return "Pure_Trend" }

func (PureTrend) ShouldBuy(row market.FeatureRow) bool {
	return row.SMA200 > 0 && row.Close > row.SMA200
}

func (PureTrend) ShouldSell(row market.FeatureRow) bool {
	return row.SMA200 > 0 && row.Close <= row.SMA200
}

// PureRSI is classic mean reversion: buy deeply oversold, sell overbought.
type PureRSI struct{}

func (PureRSI) Name() string { return "Pure_RSI" }

func (PureRSI) ShouldBuy(row market.FeatureRow) bool { return row.RSI < 30 }

func (PureRSI) ShouldSell(row market.FeatureRow) bool { return row.RSI > 70 }

// CombinedV4 buys dips inside an uptrend when volume stays orderly and
// sells into overbought rips. Panic-volume dips are not bought.
type CombinedV4 struct{}

func (CombinedV4) Name() string { return "Combined_V4" }

func (CombinedV4) ShouldBuy(row market.FeatureRow) bool {
	uptrend := row.SMA200 > 0 && row.Close > row.SMA200
	dip := row.RSI < 45
	safeVolume := row.VolumeSMA20 <= 0 || row.Volume < 2.5*row.VolumeSMA20
	return uptrend && dip && safeVolume
}

func (CombinedV4) ShouldSell(row market.FeatureRow) bool { return row.RSI > 70 }

// AllStrategies returns the comparison set in report order.
func AllStrategies() []Strategy {
	return []Strategy{PureTrend{}, PureRSI{}, CombinedV4{}}
}

// ByName resolves a strategy from its report name.
func ByName(name string) (Strategy, bool) {
	for _, s := range AllStrategies() {
		if s.Name() == name {
			return s, true
		}
	}
	return nil, false
}
