package backtest

import (
	"fmt"
	"math"

	"github.com/equityrun/equityrun/internal/domain/market"
)

// Simulate replays one symbol's feature rows bar by bar under a single
// strategy: one position at a time, full-cash sizing, no shorting. Per bar
// the stop-loss is checked before the take-profit, both against the close as
// an intrabar proxy, and a breach consumes the bar before the strategy sees
// it. Any open position is liquidated at the final close.
func Simulate(symbol string, rows []market.FeatureRow, strat Strategy, cfg *Config) (*Result, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("backtest %s: no rows", symbol)
	}
	if cfg.InitialCapital <= 0 {
		return nil, fmt.Errorf("backtest %s: initial capital must be positive", symbol)
	}

	res := &Result{Symbol: symbol, Strategy: strat.Name()}
	cash := cfg.InitialCapital
	shares, entry := 0.0, 0.0

	sell := func(row market.FeatureRow, reason string) {
		proceeds := shares * row.Close
		cash += proceeds
		res.Trades = append(res.Trades, Trade{
			Date:   row.Date,
			Type:   "SELL",
			Price:  row.Close,
			Shares: shares,
			Cash:   cash,
			Profit: proceeds - shares*entry,
			Reason: reason,
		})
		shares, entry = 0, 0
	}

	var firstClose, lastClose float64
	for i := range rows {
		row := rows[i]
		price := row.Close
		if price <= 0 || math.IsNaN(price) {
			continue
		}
		if firstClose == 0 {
			firstClose = price
		}
		lastClose = price

		if shares > 0 {
			switch {
			case price <= entry*cfg.StopLossRatio:
				sell(row, ReasonStopLoss)
				res.EquityCurve = append(res.EquityCurve, EquityPoint{Date: row.Date, Equity: cash})
				continue
			case price >= entry*cfg.TakeProfitRatio:
				sell(row, ReasonTakeProfit)
				res.EquityCurve = append(res.EquityCurve, EquityPoint{Date: row.Date, Equity: cash})
				continue
			}
		}

		if shares == 0 && strat.ShouldBuy(row) {
			shares = cash / price
			entry = price
			cash = 0
			res.Trades = append(res.Trades, Trade{
				Date:   row.Date,
				Type:   "BUY",
				Price:  price,
				Shares: shares,
				Cash:   cash,
			})
		} else if shares > 0 && strat.ShouldSell(row) {
			sell(row, ReasonSignal)
		}

		res.EquityCurve = append(res.EquityCurve, EquityPoint{Date: row.Date, Equity: cash + shares*price})
	}

	if firstClose == 0 {
		return nil, fmt.Errorf("backtest %s: no valid closes", symbol)
	}
	if shares > 0 {
		sell(rows[len(rows)-1], ReasonLiquidation)
	}

	res.FinalEquity = cash
	res.TotalReturnPct = (cash - cfg.InitialCapital) / cfg.InitialCapital * 100
	res.BuyHoldReturnPct = (lastClose - firstClose) / firstClose * 100
	res.AlphaPct = res.TotalReturnPct - res.BuyHoldReturnPct
	res.WinRatePct, res.SellCount = winRate(res.Trades)
	res.MaxDrawdownPct = maxDrawdown(res.EquityCurve)
	return res, nil
}

// winRate is the fraction of sell trades that realized a profit.
func winRate(trades []Trade) (float64, int) {
	sells, wins := 0, 0
	for _, t := range trades {
		if t.Type != "SELL" {
			continue
		}
		sells++
		if t.Profit > 0 {
			wins++
		}
	}
	if sells == 0 {
		return 0, 0
	}
	return float64(wins) / float64(sells) * 100, sells
}

// maxDrawdown is the worst peak-to-trough equity decline, in percent.
// It is 0 for a curve that never declines and bounded below by -100.
func maxDrawdown(curve []EquityPoint) float64 {
	peak, worst := 0.0, 0.0
	for _, p := range curve {
		if p.Equity > peak {
			peak = p.Equity
		}
		if peak > 0 {
			dd := (p.Equity - peak) / peak * 100
			if dd < worst {
				worst = dd
			}
		}
	}
	return worst
}
