package features

import "math"

// hurstLags is the fixed lag set for the simplified rescaled-variance
// estimator; lags that do not fit the window are skipped.
var hurstLags = []int{2, 5, 10, 20, 30}

const (
	hurstDefault = 0.5 // random walk, used before warm-up and on failure
	hurstStride  = 5   // the exponent changes slowly, recompute every 5th bar
)

// hurstEstimate estimates the Hurst exponent of a price window: for each lag
// the standard deviation of the lag-differenced series is computed, and the
// least-squares slope of log(std) against log(lag) is the estimate. Returns
// 0.5 when fewer than 3 usable lags exist or on any numerical failure.
func hurstEstimate(window []float64) float64 {
	var logLags, logTaus []float64
	for _, lag := range hurstLags {
		if lag >= len(window) {
			continue
		}
		diffs := make([]float64, len(window)-lag)
		for i := lag; i < len(window); i++ {
			diffs[i-lag] = window[i] - window[i-lag]
		}
		tau := stddev(diffs)
		if tau <= 0 || math.IsNaN(tau) {
			continue
		}
		logLags = append(logLags, math.Log(float64(lag)))
		logTaus = append(logTaus, math.Log(tau))
	}
	if len(logLags) < 3 {
		return hurstDefault
	}
	slope, ok := lsqSlope(logLags, logTaus)
	if !ok {
		return hurstDefault
	}
	return slope
}

// rollingHurst computes the strided rolling Hurst exponent: one estimate
// every hurstStride bars on the trailing window, linear interpolation across
// the skipped bars, 0.5 before the first full window. The stride and the
// interpolation method are a deliberate accuracy/cost trade-off and must be
// preserved exactly, since they affect which signals the backtests saw.
func rollingHurst(closes []float64, window int) []float64 {
	out := make([]float64, len(closes))
	for i := range out {
		out[i] = hurstDefault
	}
	if len(closes) <= window {
		return out
	}

	type point struct {
		idx int
		val float64
	}
	var computed []point
	for i := window; i < len(closes); i += hurstStride {
		h := hurstEstimate(closes[i-window : i])
		computed = append(computed, point{idx: i, val: h})
	}
	if len(computed) == 0 {
		return out
	}

	// Linear interpolation between computed points; the default holds
	// before the first point, the last value holds after it.
	for k := 0; k < len(computed); k++ {
		out[computed[k].idx] = computed[k].val
		if k == 0 {
			continue
		}
		prev, cur := computed[k-1], computed[k]
		span := cur.idx - prev.idx
		for j := prev.idx + 1; j < cur.idx; j++ {
			frac := float64(j-prev.idx) / float64(span)
			out[j] = prev.val*(1-frac) + cur.val*frac
		}
	}
	last := computed[len(computed)-1]
	for j := last.idx + 1; j < len(out); j++ {
		out[j] = last.val
	}
	return out
}

func stddev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	mean := 0.0
	for _, v := range xs {
		mean += v
	}
	mean /= float64(len(xs))
	ss := 0.0
	for _, v := range xs {
		ss += (v - mean) * (v - mean)
	}
	return math.Sqrt(ss / float64(len(xs)))
}

// lsqSlope returns the least-squares slope of y against x.
func lsqSlope(x, y []float64) (float64, bool) {
	n := float64(len(x))
	if len(x) != len(y) || len(x) < 2 {
		return 0, false
	}
	var sx, sy, sxx, sxy float64
	for i := range x {
		sx += x[i]
		sy += y[i]
		sxx += x[i] * x[i]
		sxy += x[i] * y[i]
	}
	denom := n*sxx - sx*sx
	if denom == 0 || math.IsNaN(denom) {
		return 0, false
	}
	slope := (n*sxy - sx*sy) / denom
	if math.IsNaN(slope) || math.IsInf(slope, 0) {
		return 0, false
	}
	return slope, true
}
