package features

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/equityrun/equityrun/internal/domain/market"
)

func randomWalkBars(n int, seed int64) []market.Bar {
	rng := rand.New(rand.NewSource(seed))
	bars := make([]market.Bar, n)
	start := time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC)
	price := 100.0
	for i := 0; i < n; i++ {
		price *= 1 + rng.NormFloat64()*0.015
		high := price * (1 + rng.Float64()*0.01)
		low := price * (1 - rng.Float64()*0.01)
		bars[i] = market.Bar{
			Date:   start.AddDate(0, 0, i),
			Open:   price * (1 + rng.NormFloat64()*0.003),
			High:   high,
			Low:    low,
			Close:  price,
			Volume: 1e6 * (0.5 + rng.Float64()),
		}
	}
	return bars
}

func TestCompute_BoundedIndicators(t *testing.T) {
	rows, err := Compute(randomWalkBars(400, 7), DefaultConfig())
	require.NoError(t, err)
	require.Len(t, rows, 400)

	for i, r := range rows {
		assert.GreaterOrEqual(t, r.RSI, 0.0, "RSI below 0 at %d", i)
		assert.LessOrEqual(t, r.RSI, 100.0, "RSI above 100 at %d", i)
		assert.GreaterOrEqual(t, r.ADX, 0.0, "ADX below 0 at %d", i)
		assert.LessOrEqual(t, r.ADX, 100.0, "ADX above 100 at %d", i)
		assert.GreaterOrEqual(t, r.StochK, 0.0)
		assert.LessOrEqual(t, r.StochK, 100.0)
		assert.GreaterOrEqual(t, r.WilliamsR, -100.0)
		assert.LessOrEqual(t, r.WilliamsR, 0.0)
	}
}

func TestCompute_ReturnSignsAgree(t *testing.T) {
	rows, err := Compute(randomWalkBars(300, 11), DefaultConfig())
	require.NoError(t, err)

	// Skip the warm-up prefix where returns were back-filled.
	for i := 1; i < len(rows); i++ {
		simple, lg := rows[i].Return1d, rows[i].LogReturn
		if simple == 0 || lg == 0 {
			continue
		}
		assert.Equal(t, simple > 0, lg > 0, "sign mismatch at %d", i)
	}
}

func TestCompute_NoGapsAfterFill(t *testing.T) {
	rows, err := Compute(randomWalkBars(250, 3), DefaultConfig())
	require.NoError(t, err)

	for i := range rows {
		for f, get := range featureAccessors {
			assert.False(t, math.IsNaN(*get(&rows[i])), "NaN in feature %d at row %d", f, i)
		}
	}
}

func TestCompute_EmptyInput(t *testing.T) {
	_, err := Compute(nil, DefaultConfig())
	assert.Error(t, err)
}

func TestHurst_DefaultBeforeWarmup(t *testing.T) {
	// Fewer bars than the Hurst window: every value must be exactly 0.5.
	rows, err := Compute(randomWalkBars(80, 5), DefaultConfig())
	require.NoError(t, err)
	for i, r := range rows {
		assert.Equal(t, 0.5, r.Hurst, "row %d", i)
	}
}

func TestHurstEstimate_ShortWindowDefaults(t *testing.T) {
	assert.Equal(t, 0.5, hurstEstimate([]float64{1, 2, 3, 4}))
	assert.Equal(t, 0.5, hurstEstimate(nil))
}

func TestHurstEstimate_PersistentVsMeanReverting(t *testing.T) {
	// Cumulative sum of heavily smoothed noise: increments are positively
	// autocorrelated, so the walk is persistent and H sits well above 0.5.
	rng := rand.New(rand.NewSource(23))
	white := make([]float64, 130)
	for i := range white {
		white[i] = rng.NormFloat64()
	}
	persistent := make([]float64, 100)
	level := 0.0
	for i := range persistent {
		inc := 0.0
		for j := 0; j < 10; j++ {
			inc += white[i+j]
		}
		level += inc
		persistent[i] = level
	}

	// A fast oscillation is anti-persistent: H well below 0.5.
	osc := make([]float64, 100)
	for i := range osc {
		osc[i] = math.Sin(float64(i) * 2.5)
	}

	hp, ho := hurstEstimate(persistent), hurstEstimate(osc)
	assert.Greater(t, hp, 0.55)
	assert.Less(t, ho, 0.4)
	assert.Greater(t, hp, ho)
}

func TestRollingHurst_StrideInterpolation(t *testing.T) {
	closes := make([]float64, 120)
	for i := range closes {
		closes[i] = float64(i) + 100
	}
	h := rollingHurst(closes, 100)

	// Before the first full window: default.
	for i := 0; i < 100; i++ {
		assert.Equal(t, 0.5, h[i], "index %d", i)
	}
	// Between computed points the value is interpolated, so it stays within
	// the range of its neighbors.
	for i := 101; i < 105; i++ {
		lo := math.Min(h[100], h[105])
		hi := math.Max(h[100], h[105])
		assert.GreaterOrEqual(t, h[i], lo-1e-12)
		assert.LessOrEqual(t, h[i], hi+1e-12)
	}
}

func TestRank_ReturnsRequestedCount(t *testing.T) {
	rows, err := Compute(randomWalkBars(300, 17), DefaultConfig())
	require.NoError(t, err)

	top := Rank(rows, 3)
	assert.Len(t, top, 3)
	seen := map[string]bool{}
	for _, name := range top {
		assert.False(t, seen[name], "duplicate feature %s", name)
		seen[name] = true
	}
}

func TestRank_TinyInput(t *testing.T) {
	assert.Nil(t, Rank(nil, 3))
}
