// Package features derives the full indicator set from a cleaned bar
// sequence: trend, momentum, volatility and volume indicators, daily and log
// returns, volatility-adjusted interaction terms, adaptive RSI bounds, and a
// strided rolling Hurst exponent. Rows are never removed; warm-up gaps are
// back-filled then forward-filled in a final pass so every row carries a
// value.
package features

import (
	"fmt"
	"math"

	"github.com/equityrun/equityrun/internal/domain/market"
)

// Config carries the indicator periods. Defaults match the standard
// parameterizations used across the rest of the system.
type Config struct {
	EMAFast       int
	EMASlow       int
	MACDSignal    int
	SMAShort      int
	SMALong       int
	RSIPeriod     int
	StochPeriod   int
	WilliamsR     int
	BBWindow      int
	ATRPeriod     int
	ADXPeriod     int
	CCIWindow     int
	VolumeSMA     int
	QuantileSpan  int // adaptive RSI bound window (~1 quarter of bars)
	HurstWindow   int
}

// DefaultConfig returns the standard indicator periods.
func DefaultConfig() Config {
	return Config{
		EMAFast:      12,
		EMASlow:      26,
		MACDSignal:   9,
		SMAShort:     50,
		SMALong:      200,
		RSIPeriod:    14,
		StochPeriod:  14,
		WilliamsR:    14,
		BBWindow:     20,
		ATRPeriod:    14,
		ADXPeriod:    14,
		CCIWindow:    20,
		VolumeSMA:    20,
		QuantileSpan: 63,
		HurstWindow:  100,
	}
}

// Compute derives all feature columns from a cleaned bar sequence. The input
// is not mutated; the returned rows are a fresh sequence in the same order.
func Compute(bars []market.Bar, cfg Config) ([]market.FeatureRow, error) {
	if len(bars) == 0 {
		return nil, fmt.Errorf("features: empty bar sequence")
	}

	n := len(bars)
	closes := market.Closes(bars)
	volumes := make([]float64, n)
	for i, b := range bars {
		volumes[i] = b.Volume
	}

	ema12 := ema(closes, cfg.EMAFast)
	ema26 := ema(closes, cfg.EMASlow)
	sma50 := sma(closes, cfg.SMAShort)
	sma200 := sma(closes, cfg.SMALong)
	macdLine, macdSig := macd(closes, cfg.EMAFast, cfg.EMASlow, cfg.MACDSignal)
	adxVals := adx(bars, cfg.ADXPeriod)
	cciVals := cci(bars, cfg.CCIWindow)
	rsiVals := rsi(closes, cfg.RSIPeriod)
	stochVals := stochK(bars, cfg.StochPeriod)
	willVals := williamsR(bars, cfg.WilliamsR)
	atrVals := atr(bars, cfg.ATRPeriod)
	bbStd := rollingStd(closes, cfg.BBWindow)
	obvVals := obv(bars)
	volSMA := sma(volumes, cfg.VolumeSMA)

	ret1d := nanSlice(n)
	logRet := nanSlice(n)
	for i := 1; i < n; i++ {
		if closes[i-1] != 0 {
			ret1d[i] = (closes[i] - closes[i-1]) / closes[i-1]
		}
		if closes[i] > 0 && closes[i-1] > 0 {
			logRet[i] = math.Log(closes[i] / closes[i-1])
		}
	}

	normATR := nanSlice(n)
	rsiVolAdj := nanSlice(n)
	priceVolMom := nanSlice(n)
	for i := 0; i < n; i++ {
		if !math.IsNaN(atrVals[i]) && closes[i] > 0 {
			normATR[i] = atrVals[i] / closes[i]
		}
		// High RSI in a calm market is a stronger signal than the same
		// value amid turmoil; damp by normalized ATR.
		if !math.IsNaN(rsiVals[i]) && !math.IsNaN(normATR[i]) {
			rsiVolAdj[i] = rsiVals[i] / (normATR[i]*100 + 1)
		}
		if !math.IsNaN(ret1d[i]) && !math.IsNaN(volSMA[i]) && volSMA[i] > 0 {
			priceVolMom[i] = ret1d[i] * (volumes[i] / volSMA[i])
		}
	}

	rsiHigh := rollingQuantile(rsiVals, cfg.QuantileSpan, 0.95)
	rsiLow := rollingQuantile(rsiVals, cfg.QuantileSpan, 0.05)
	hurst := rollingHurst(closes, cfg.HurstWindow)

	rows := make([]market.FeatureRow, n)
	for i := 0; i < n; i++ {
		rows[i] = market.FeatureRow{
			Bar:         bars[i],
			EMA12:       ema12[i],
			EMA26:       ema26[i],
			SMA50:       sma50[i],
			SMA200:      sma200[i],
			MACD:        macdLine[i],
			MACDSignal:  macdSig[i],
			ADX:         adxVals[i],
			CCI:         cciVals[i],
			RSI:         rsiVals[i],
			StochK:      stochVals[i],
			WilliamsR:   willVals[i],
			BBWidth:     4 * bbStd[i], // upper - lower at 2 sigma
			ATR:         atrVals[i],
			NormATR:     normATR[i],
			OBV:         obvVals[i],
			VolumeSMA20: volSMA[i],
			Return1d:    ret1d[i],
			LogReturn:   logRet[i],
			RSIVolAdj:   rsiVolAdj[i],
			PriceVolMom: priceVolMom[i],
			RSIDynHigh:  rsiHigh[i],
			RSIDynLow:   rsiLow[i],
			Hurst:       hurst[i],
			Regime:      market.RegimeUnknown,
		}
	}

	fillWarmup(rows)
	return rows, nil
}

// fillWarmup back-fills then forward-fills NaN feature values. Gaps occur
// only in the initial warm-up window, never mid-series, so this is safe.
func fillWarmup(rows []market.FeatureRow) {
	for _, get := range featureAccessors {
		// Backward pass.
		next := math.NaN()
		for i := len(rows) - 1; i >= 0; i-- {
			p := get(&rows[i])
			if !math.IsNaN(*p) {
				next = *p
			} else if !math.IsNaN(next) {
				*p = next
			}
		}
		// Forward pass for anything still open at the tail.
		last := math.NaN()
		for i := range rows {
			p := get(&rows[i])
			if !math.IsNaN(*p) {
				last = *p
			} else if !math.IsNaN(last) {
				*p = last
			}
		}
	}
}

var featureAccessors = []func(*market.FeatureRow) *float64{
	func(r *market.FeatureRow) *float64 { return &r.EMA12 },
	func(r *market.FeatureRow) *float64 { return &r.EMA26 },
	func(r *market.FeatureRow) *float64 { return &r.SMA50 },
	func(r *market.FeatureRow) *float64 { return &r.SMA200 },
	func(r *market.FeatureRow) *float64 { return &r.MACD },
	func(r *market.FeatureRow) *float64 { return &r.MACDSignal },
	func(r *market.FeatureRow) *float64 { return &r.ADX },
	func(r *market.FeatureRow) *float64 { return &r.CCI },
	func(r *market.FeatureRow) *float64 { return &r.RSI },
	func(r *market.FeatureRow) *float64 { return &r.StochK },
	func(r *market.FeatureRow) *float64 { return &r.WilliamsR },
	func(r *market.FeatureRow) *float64 { return &r.BBWidth },
	func(r *market.FeatureRow) *float64 { return &r.ATR },
	func(r *market.FeatureRow) *float64 { return &r.NormATR },
	func(r *market.FeatureRow) *float64 { return &r.OBV },
	func(r *market.FeatureRow) *float64 { return &r.VolumeSMA20 },
	func(r *market.FeatureRow) *float64 { return &r.Return1d },
	func(r *market.FeatureRow) *float64 { return &r.LogReturn },
	func(r *market.FeatureRow) *float64 { return &r.RSIVolAdj },
	func(r *market.FeatureRow) *float64 { return &r.PriceVolMom },
	func(r *market.FeatureRow) *float64 { return &r.RSIDynHigh },
	func(r *market.FeatureRow) *float64 { return &r.RSIDynLow },
	func(r *market.FeatureRow) *float64 { return &r.Hurst },
}
