package features

import (
	"math"
	"sort"

	"github.com/equityrun/equityrun/internal/domain/market"
)

// Rolling indicator series. All functions return a slice the same length as
// the input with NaN in positions where the indicator has not warmed up yet;
// the engine back/forward-fills those at the very end.

func sma(xs []float64, window int) []float64 {
	out := nanSlice(len(xs))
	if window <= 0 || len(xs) < window {
		return out
	}
	sum := 0.0
	for i, v := range xs {
		sum += v
		if i >= window {
			sum -= xs[i-window]
		}
		if i >= window-1 {
			out[i] = sum / float64(window)
		}
	}
	return out
}

func ema(xs []float64, window int) []float64 {
	out := nanSlice(len(xs))
	if window <= 0 || len(xs) < window {
		return out
	}
	// Seed with the SMA of the first window, then standard recursion.
	seed := 0.0
	for i := 0; i < window; i++ {
		seed += xs[i]
	}
	seed /= float64(window)
	out[window-1] = seed

	alpha := 2.0 / (float64(window) + 1.0)
	prev := seed
	for i := window; i < len(xs); i++ {
		prev = xs[i]*alpha + prev*(1-alpha)
		out[i] = prev
	}
	return out
}

// wilder applies Wilder's smoothing (alpha = 1/period) seeded with the SMA
// of the first period values. Used by RSI, ATR and ADX.
func wilder(xs []float64, period int) []float64 {
	out := nanSlice(len(xs))
	if period <= 0 || len(xs) < period {
		return out
	}
	seed := 0.0
	for i := 0; i < period; i++ {
		seed += xs[i]
	}
	seed /= float64(period)
	out[period-1] = seed

	alpha := 1.0 / float64(period)
	prev := seed
	for i := period; i < len(xs); i++ {
		prev = prev*(1-alpha) + xs[i]*alpha
		out[i] = prev
	}
	return out
}

func rollingStd(xs []float64, window int) []float64 {
	out := nanSlice(len(xs))
	if window < 2 || len(xs) < window {
		return out
	}
	for i := window - 1; i < len(xs); i++ {
		win := xs[i-window+1 : i+1]
		mean := 0.0
		for _, v := range win {
			mean += v
		}
		mean /= float64(window)
		ss := 0.0
		for _, v := range win {
			ss += (v - mean) * (v - mean)
		}
		out[i] = math.Sqrt(ss / float64(window-1))
	}
	return out
}

// rollingQuantile computes the linear-interpolation quantile over a trailing
// window, requiring a full window of finite values.
func rollingQuantile(xs []float64, window int, q float64) []float64 {
	out := nanSlice(len(xs))
	if window <= 0 || len(xs) < window {
		return out
	}
	buf := make([]float64, 0, window)
	for i := window - 1; i < len(xs); i++ {
		buf = buf[:0]
		full := true
		for _, v := range xs[i-window+1 : i+1] {
			if math.IsNaN(v) {
				full = false
				break
			}
			buf = append(buf, v)
		}
		if !full {
			continue
		}
		sort.Float64s(buf)
		pos := q * float64(len(buf)-1)
		lo := int(math.Floor(pos))
		hi := int(math.Ceil(pos))
		if lo == hi {
			out[i] = buf[lo]
		} else {
			frac := pos - float64(lo)
			out[i] = buf[lo]*(1-frac) + buf[hi]*frac
		}
	}
	return out
}

// rsi computes the 14-period (or given period) RSI with Wilder smoothing.
// Values are always within [0, 100].
func rsi(closes []float64, period int) []float64 {
	out := nanSlice(len(closes))
	if len(closes) < period+1 {
		return out
	}
	gains := make([]float64, len(closes)-1)
	losses := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains[i-1] = change
		} else {
			losses[i-1] = -change
		}
	}

	avgGain := wilder(gains, period)
	avgLoss := wilder(losses, period)
	for i := period - 1; i < len(gains); i++ {
		g, l := avgGain[i], avgLoss[i]
		if l == 0 {
			if g == 0 {
				out[i+1] = 50
			} else {
				out[i+1] = 100
			}
			continue
		}
		rs := g / l
		out[i+1] = 100 - 100/(1+rs)
	}
	return out
}

func macd(closes []float64, fast, slow, signal int) (line, sig []float64) {
	emaFast := ema(closes, fast)
	emaSlow := ema(closes, slow)
	line = nanSlice(len(closes))
	for i := range closes {
		if !math.IsNaN(emaFast[i]) && !math.IsNaN(emaSlow[i]) {
			line[i] = emaFast[i] - emaSlow[i]
		}
	}
	// Signal line is an EMA over the valid MACD region.
	sig = nanSlice(len(closes))
	start := slow - 1
	if start < len(closes) {
		valid := ema(line[start:], signal)
		copy(sig[start:], valid)
	}
	return line, sig
}

func trueRanges(bars []market.Bar) []float64 {
	if len(bars) < 2 {
		return nil
	}
	trs := make([]float64, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		hl := bars[i].High - bars[i].Low
		hc := math.Abs(bars[i].High - bars[i-1].Close)
		lc := math.Abs(bars[i].Low - bars[i-1].Close)
		trs[i-1] = math.Max(hl, math.Max(hc, lc))
	}
	return trs
}

// atr computes the Wilder-smoothed Average True Range.
func atr(bars []market.Bar, period int) []float64 {
	out := nanSlice(len(bars))
	trs := trueRanges(bars)
	if len(trs) < period {
		return out
	}
	smoothed := wilder(trs, period)
	for i := period - 1; i < len(trs); i++ {
		out[i+1] = smoothed[i]
	}
	return out
}

// adx computes the Average Directional Index in [0, 100], Wilder smoothing
// on +DM/-DM/TR and again on DX.
func adx(bars []market.Bar, period int) []float64 {
	out := nanSlice(len(bars))
	if len(bars) < 2*period+1 {
		return out
	}
	trs := trueRanges(bars)
	plusDM := make([]float64, len(trs))
	minusDM := make([]float64, len(trs))
	for i := 1; i < len(bars); i++ {
		up := bars[i].High - bars[i-1].High
		down := bars[i-1].Low - bars[i].Low
		if up > down && up > 0 {
			plusDM[i-1] = up
		}
		if down > up && down > 0 {
			minusDM[i-1] = down
		}
	}

	smTR := wilder(trs, period)
	smPlus := wilder(plusDM, period)
	smMinus := wilder(minusDM, period)

	dx := nanSlice(len(trs))
	for i := period - 1; i < len(trs); i++ {
		if smTR[i] <= 0 {
			dx[i] = 0
			continue
		}
		pdi := 100 * smPlus[i] / smTR[i]
		mdi := 100 * smMinus[i] / smTR[i]
		if pdi+mdi == 0 {
			dx[i] = 0
			continue
		}
		dx[i] = 100 * math.Abs(pdi-mdi) / (pdi + mdi)
	}

	smoothedDX := wilder(dx[period-1:], period)
	for i, v := range smoothedDX {
		if !math.IsNaN(v) {
			out[period+i] = v
		}
	}
	return out
}

// cci computes the Commodity Channel Index with the standard 0.015 constant.
func cci(bars []market.Bar, window int) []float64 {
	out := nanSlice(len(bars))
	if len(bars) < window {
		return out
	}
	tp := make([]float64, len(bars))
	for i, b := range bars {
		tp[i] = (b.High + b.Low + b.Close) / 3
	}
	tpSMA := sma(tp, window)
	for i := window - 1; i < len(bars); i++ {
		meanDev := 0.0
		for _, v := range tp[i-window+1 : i+1] {
			meanDev += math.Abs(v - tpSMA[i])
		}
		meanDev /= float64(window)
		if meanDev == 0 {
			out[i] = 0
			continue
		}
		out[i] = (tp[i] - tpSMA[i]) / (0.015 * meanDev)
	}
	return out
}

// stochK computes the fast stochastic %K over the window.
func stochK(bars []market.Bar, window int) []float64 {
	out := nanSlice(len(bars))
	for i := window - 1; i < len(bars); i++ {
		hh, ll := highLow(bars[i-window+1 : i+1])
		if hh == ll {
			out[i] = 50
			continue
		}
		out[i] = 100 * (bars[i].Close - ll) / (hh - ll)
	}
	return out
}

// williamsR computes Williams %R over the window, in [-100, 0].
func williamsR(bars []market.Bar, window int) []float64 {
	out := nanSlice(len(bars))
	for i := window - 1; i < len(bars); i++ {
		hh, ll := highLow(bars[i-window+1 : i+1])
		if hh == ll {
			out[i] = -50
			continue
		}
		out[i] = -100 * (hh - bars[i].Close) / (hh - ll)
	}
	return out
}

// obv computes cumulative On-Balance Volume.
func obv(bars []market.Bar) []float64 {
	out := make([]float64, len(bars))
	if len(bars) == 0 {
		return out
	}
	out[0] = 0
	for i := 1; i < len(bars); i++ {
		switch {
		case bars[i].Close > bars[i-1].Close:
			out[i] = out[i-1] + bars[i].Volume
		case bars[i].Close < bars[i-1].Close:
			out[i] = out[i-1] - bars[i].Volume
		default:
			out[i] = out[i-1]
		}
	}
	return out
}

func highLow(bars []market.Bar) (hh, ll float64) {
	hh = math.Inf(-1)
	ll = math.Inf(1)
	for _, b := range bars {
		if b.High > hh {
			hh = b.High
		}
		if b.Low < ll {
			ll = b.Low
		}
	}
	return hh, ll
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
