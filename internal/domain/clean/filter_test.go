package clean

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/equityrun/equityrun/internal/domain/market"
)

func syntheticBars(closes []float64) []market.Bar {
	bars := make([]market.Bar, len(closes))
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		bars[i] = market.Bar{
			Date:   start.AddDate(0, 0, i),
			Open:   c,
			High:   c * 1.01,
			Low:    c * 0.99,
			Close:  c,
			Volume: 1000,
		}
	}
	return bars
}

func TestFilter_ReplacesSingleSpike(t *testing.T) {
	closes := []float64{100, 101, 100.5, 101.5, 100.8, 101.2, 100.9, 101.1, 100.7, 101.3}
	spikeIdx := 6
	closes[spikeIdx] = 1009 // 10x the local level, a feed glitch

	res, err := Filter(syntheticBars(closes), DefaultConfig())
	require.NoError(t, err)
	require.Len(t, res.Bars, len(closes))
	assert.Equal(t, 1, res.Replaced)

	// The spike bar is pulled back toward the local median.
	assert.Less(t, res.Bars[spikeIdx].Close, 110.0)
	assert.Greater(t, res.Bars[spikeIdx].Close, 95.0)

	// Every other close is untouched.
	for i := range closes {
		if i == spikeIdx {
			continue
		}
		assert.Equal(t, closes[i], res.Bars[i].Close, "bar %d changed", i)
	}
}

func TestFilter_Idempotent(t *testing.T) {
	closes := []float64{100, 101, 100.5, 1009, 100.8, 101.2, 100.9, 50, 100.7, 101.3}
	first, err := Filter(syntheticBars(closes), DefaultConfig())
	require.NoError(t, err)

	second, err := Filter(first.Bars, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Replaced, "re-running the filter must change nothing")
	for i := range first.Bars {
		assert.Equal(t, first.Bars[i].Close, second.Bars[i].Close)
	}
}

func TestFilter_PreservesGenuineCrash(t *testing.T) {
	// A real crash day (-12%) must survive the high threshold.
	closes := []float64{200, 204, 198, 205, 199, 176, 178, 180, 179, 181}
	res, err := Filter(syntheticBars(closes), DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Replaced)
	assert.Equal(t, 176.0, res.Bars[5].Close)
}

func TestFilter_DropsRowsWithNoClose(t *testing.T) {
	bars := syntheticBars([]float64{100, 101, 102})
	for i := range bars {
		bars[i].Close = math.NaN()
	}
	res, err := Filter(bars, DefaultConfig())
	require.NoError(t, err)
	assert.Empty(t, res.Bars)
	assert.Equal(t, 3, res.Dropped)
}

func TestForwardFill_HandlesGapsAndInf(t *testing.T) {
	bars := syntheticBars([]float64{100, 101, 102, 103})
	bars[1].Close = math.NaN()
	bars[2].Close = math.Inf(1)

	filled := ForwardFill(bars)
	assert.Equal(t, 100.0, filled[1].Close)
	assert.Equal(t, 100.0, filled[2].Close)
	assert.Equal(t, 103.0, filled[3].Close)
}

func TestFilter_RejectsBadConfig(t *testing.T) {
	_, err := Filter(nil, Config{Window: 1, Threshold: 15})
	assert.Error(t, err)
	_, err = Filter(nil, Config{Window: 5, Threshold: 0})
	assert.Error(t, err)
}
