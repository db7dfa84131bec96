package backtest

import (
	"time"
)

// Config represents backtest execution parameters shared by all strategies.
type Config struct {
	InitialCapital  float64 // starting cash per symbol
	StopLossRatio   float64 // exit when price <= entry * ratio
	TakeProfitRatio float64 // exit when price >= entry * ratio
}

// DefaultConfig returns the standard configuration: an 8% hard stop and a
// 10% profit target on full-cash positions.
func DefaultConfig() *Config {
	return &Config{
		InitialCapital:  100000,
		StopLossRatio:   0.92,
		TakeProfitRatio: 1.10,
	}
}

// Exit reasons recorded on sell trades.
const (
	ReasonStopLoss    = "stop_loss"
	ReasonTakeProfit  = "take_profit"
	ReasonSignal      = "signal"
	ReasonLiquidation = "end_of_data"
)

// Trade is one executed order in the ledger.
type Trade struct {
	Date   time.Time `json:"date"`
	Type   string    `json:"type"` // BUY or SELL
	Price  float64   `json:"price"`
	Shares float64   `json:"shares"`
	Cash   float64   `json:"cash"`             // cash balance after the trade
	Profit float64   `json:"profit,omitempty"` // realized, sells only
	Reason string    `json:"reason,omitempty"` // sells only
}

// EquityPoint is one mark-to-market sample of the equity curve.
type EquityPoint struct {
	Date   time.Time `json:"date"`
	Equity float64   `json:"equity"`
}

// Result represents one symbol/strategy simulation outcome.
type Result struct {
	Symbol           string        `json:"symbol"`
	Strategy         string        `json:"strategy"`
	Trades           []Trade       `json:"trades"`
	EquityCurve      []EquityPoint `json:"equity_curve"`
	FinalEquity      float64       `json:"final_equity"`
	TotalReturnPct   float64       `json:"total_return_pct"`
	BuyHoldReturnPct float64       `json:"buy_hold_return_pct"`
	AlphaPct         float64       `json:"alpha_pct"` // strategy minus buy-and-hold
	WinRatePct       float64       `json:"win_rate_pct"`
	SellCount        int           `json:"sell_count"`
	MaxDrawdownPct   float64       `json:"max_drawdown_pct"` // always <= 0
}

// CompareRow aggregates one strategy across a symbol universe for the
// factor-isolation report.
type CompareRow struct {
	Strategy       string  `json:"strategy"`
	Symbols        int     `json:"symbols"`
	MeanReturnPct  float64 `json:"mean_return_pct"`
	MeanWinRatePct float64 `json:"mean_win_rate_pct"`
	MeanAlphaPct   float64 `json:"mean_alpha_pct"`
}

// PortfolioSummary aggregates a multi-symbol run with fixed capital per
// symbol against the equivalent buy-and-hold allocation.
type PortfolioSummary struct {
	Symbols            int     `json:"symbols"`
	CapitalPerSymbol   float64 `json:"capital_per_symbol"`
	StrategyFinalValue float64 `json:"strategy_final_value"`
	StrategyProfit     float64 `json:"strategy_profit"`
	StrategyROIPct     float64 `json:"strategy_roi_pct"`
	BuyHoldFinalValue  float64 `json:"buy_hold_final_value"`
	BuyHoldProfit      float64 `json:"buy_hold_profit"`
	BuyHoldROIPct      float64 `json:"buy_hold_roi_pct"`
}
