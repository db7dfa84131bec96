// Package clean implements the robust outlier filter that runs ahead of all
// indicator computation. It detects data-feed glitches in the close price
// using a rolling median plus rolling MAD (median absolute deviation) and
// replaces them with the local median, preserving date continuity for the
// downstream indicators.
package clean

import (
	"fmt"
	"math"
	"sort"

	"github.com/equityrun/equityrun/internal/domain/market"
)

// Config controls the MAD filter.
type Config struct {
	Window    int     // rolling window in bars
	Threshold float64 // MAD multiples outside which a close is an outlier
}

// DefaultConfig uses a deliberately high threshold so that only fat-tail
// glitches (>20% single-bar moves) are rejected while genuine crash days
// survive.
func DefaultConfig() Config {
	return Config{Window: 5, Threshold: 15}
}

// Result reports what the filter did to a series.
type Result struct {
	Bars     []market.Bar
	Replaced int // closes replaced by the local rolling median
	Dropped  int // rows removed because no usable close existed
}

// Filter returns a copy of bars with missing closes removed and anomalous
// closes replaced by the local rolling median. The input is never mutated.
func Filter(bars []market.Bar, cfg Config) (Result, error) {
	if cfg.Window < 2 {
		return Result{}, fmt.Errorf("clean: window must be >= 2, got %d", cfg.Window)
	}
	if cfg.Threshold <= 0 {
		return Result{}, fmt.Errorf("clean: threshold must be positive, got %f", cfg.Threshold)
	}

	filled := ForwardFill(bars)

	// Drop rows that still have no usable close after both fill passes.
	out := make([]market.Bar, 0, len(filled))
	dropped := 0
	for _, b := range filled {
		if !isFinite(b.Close) {
			dropped++
			continue
		}
		out = append(out, b)
	}

	closes := market.Closes(out)
	replaced := 0
	for i := range out {
		med, mad := rollingMedianMAD(closes, i, cfg.Window)
		// No full window yet: MAD defaults to 0 and the bound collapses to
		// the raw close, so the warm-up prefix is never filtered.
		lower := med - cfg.Threshold*mad
		upper := med + cfg.Threshold*mad
		if closes[i] < lower || closes[i] > upper {
			out[i].Close = med
			replaced++
		}
	}

	return Result{Bars: out, Replaced: replaced, Dropped: dropped}, nil
}

// ForwardFill propagates the last finite value forward, then the first
// finite value backward, across every numeric field. It is also the
// fallback when the MAD pass fails.
func ForwardFill(bars []market.Bar) []market.Bar {
	out := make([]market.Bar, len(bars))
	copy(out, bars)

	fill := func(get func(*market.Bar) *float64) {
		last := math.NaN()
		for i := range out {
			p := get(&out[i])
			if isFinite(*p) {
				last = *p
			} else if isFinite(last) {
				*p = last
			}
		}
		// Backward pass for a leading gap.
		next := math.NaN()
		for i := len(out) - 1; i >= 0; i-- {
			p := get(&out[i])
			if isFinite(*p) {
				next = *p
			} else if isFinite(next) {
				*p = next
			}
		}
	}

	fill(func(b *market.Bar) *float64 { return &b.Open })
	fill(func(b *market.Bar) *float64 { return &b.High })
	fill(func(b *market.Bar) *float64 { return &b.Low })
	fill(func(b *market.Bar) *float64 { return &b.Close })
	fill(func(b *market.Bar) *float64 { return &b.Volume })
	return out
}

// rollingMedianMAD computes the trailing-window median and MAD ending at
// index i. Before a full window exists it returns (close[i], 0).
func rollingMedianMAD(closes []float64, i, window int) (float64, float64) {
	if i < window-1 {
		return closes[i], 0
	}
	win := closes[i-window+1 : i+1]
	med := median(win)
	dev := make([]float64, len(win))
	for j, v := range win {
		dev[j] = math.Abs(v - med)
	}
	return med, median(dev)
}

func median(xs []float64) float64 {
	n := len(xs)
	if n == 0 {
		return math.NaN()
	}
	sorted := make([]float64, n)
	copy(sorted, xs)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
