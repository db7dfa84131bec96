package regime

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/equityrun/equityrun/internal/domain/market"
)

// clusteredRows builds three tight, well-separated clusters so the fit has
// an unambiguous answer: a crashing cluster, a flat one, and a rallying one.
func clusteredRows(perCluster int, seed int64) []market.FeatureRow {
	rng := rand.New(rand.NewSource(seed))
	centers := []struct {
		normATR, adx, rsi, ret float64
	}{
		{0.06, 40, 25, -0.03}, // high vol, trending down, oversold
		{0.01, 12, 50, 0.0},   // quiet and directionless
		{0.02, 35, 65, 0.02},  // trending up
	}
	var rows []market.FeatureRow
	for _, c := range centers {
		for i := 0; i < perCluster; i++ {
			rows = append(rows, market.FeatureRow{
				NormATR:  c.normATR + rng.NormFloat64()*0.002,
				ADX:      c.adx + rng.NormFloat64()*1.5,
				RSI:      c.rsi + rng.NormFloat64()*2,
				Return1d: c.ret + rng.NormFloat64()*0.002,
			})
		}
	}
	// Shuffle so cluster membership is not encoded in row order.
	rng.Shuffle(len(rows), func(i, j int) { rows[i], rows[j] = rows[j], rows[i] })
	return rows
}

func TestLabel_SeparatedClusters(t *testing.T) {
	rows := clusteredRows(60, 1)
	require.NoError(t, Label(rows, DefaultConfig()))

	// The lowest mean return cluster must carry the most bearish label and
	// the highest the most bullish, whatever order the fit found them in.
	for i := range rows {
		switch {
		case rows[i].Return1d < -0.02:
			assert.Equal(t, market.RegimeStrongBear, rows[i].Regime, "row %d", i)
		case rows[i].Return1d > 0.01:
			assert.Equal(t, market.RegimeStrongBull, rows[i].Regime, "row %d", i)
		default:
			assert.Equal(t, market.RegimeChoppy, rows[i].Regime, "row %d", i)
		}
	}
}

func TestLabel_Deterministic(t *testing.T) {
	a := clusteredRows(50, 9)
	b := make([]market.FeatureRow, len(a))
	copy(b, a)

	require.NoError(t, Label(a, DefaultConfig()))
	require.NoError(t, Label(b, DefaultConfig()))
	for i := range a {
		assert.Equal(t, a[i].Regime, b[i].Regime, "row %d", i)
	}
}

func TestLabel_ConstantColumnFails(t *testing.T) {
	rows := make([]market.FeatureRow, 50)
	for i := range rows {
		rows[i] = market.FeatureRow{NormATR: 0.02, ADX: 20, RSI: 50, Return1d: 0}
	}
	err := Label(rows, DefaultConfig())
	assert.Error(t, err)
	for i := range rows {
		assert.Equal(t, market.RegimeUnknown, rows[i].Regime, "row %d", i)
	}
}

func TestLabel_TooFewRows(t *testing.T) {
	rows := clusteredRows(2, 4)
	err := Label(rows, DefaultConfig())
	assert.Error(t, err)
	for i := range rows {
		assert.Equal(t, market.RegimeUnknown, rows[i].Regime)
	}
}

func TestLabel_BadConfig(t *testing.T) {
	rows := clusteredRows(20, 2)
	assert.Error(t, Label(rows, Config{Components: 1, MaxIter: 10, Tol: 1e-6}))
	assert.Error(t, Label(rows, Config{Components: 3, MaxIter: 0, Tol: 1e-6}))
}

func TestCurrent_ReturnsLatestRegime(t *testing.T) {
	rows := clusteredRows(60, 6)
	r, err := Current(rows, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, rows[len(rows)-1].Regime, r)
	assert.NotEqual(t, market.RegimeUnknown, r)
}
