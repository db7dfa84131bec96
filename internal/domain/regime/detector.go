package regime

import (
	"fmt"
	"math"

	"github.com/rs/zerolog/log"

	"github.com/equityrun/equityrun/internal/domain/market"
)

// Config controls the mixture fit behind regime detection.
type Config struct {
	Components int     // number of market regimes to separate
	MaxIter    int     // EM iteration cap
	Tol        float64 // mean log-likelihood convergence threshold
	Seed       int64   // deterministic initialization seed
}

func DefaultConfig() Config {
	return Config{
		Components: 3,
		MaxIter:    200,
		Tol:        1e-6,
		Seed:       42,
	}
}

func (c Config) validate() error {
	if c.Components < 2 || c.Components > 5 {
		return fmt.Errorf("regime: components must be in [2,5], got %d", c.Components)
	}
	if c.MaxIter <= 0 {
		return fmt.Errorf("regime: max iterations must be positive")
	}
	return nil
}

// regimeFeatures are the observation columns fed to the mixture, in order:
// normalized ATR, ADX, RSI, one-day return.
func regimeFeatures(r *market.FeatureRow) []float64 {
	return []float64{r.NormATR, r.ADX, r.RSI, r.Return1d}
}

const returnColumn = 3 // index of Return1d in regimeFeatures

// Label fits a Gaussian mixture over the full history and writes a regime
// into every row. Clusters are ordered by their mean one-day return, so the
// lowest-return cluster is always the most bearish label regardless of the
// arbitrary component order the fit produced. On any failure every row is
// labeled Unknown and the error is returned for the caller to log; downstream
// consumers treat Unknown as a cautious default rather than a hard stop.
func Label(rows []market.FeatureRow, cfg Config) error {
	for i := range rows {
		rows[i].Regime = market.RegimeUnknown
	}
	if err := cfg.validate(); err != nil {
		return err
	}

	x := make([][]float64, len(rows))
	for i := range rows {
		x[i] = regimeFeatures(&rows[i])
	}
	if err := standardize(x); err != nil {
		return fmt.Errorf("regime: %w", err)
	}

	m, err := fitMixture(x, cfg.Components, cfg.MaxIter, cfg.Tol, cfg.Seed)
	if err != nil {
		return fmt.Errorf("regime: %w", err)
	}
	assignments, err := m.assign(x)
	if err != nil {
		return fmt.Errorf("regime: %w", err)
	}

	labels := orderClusters(m, cfg.Components)
	for i := range rows {
		rows[i].Regime = labels[assignments[i]]
	}
	log.Debug().
		Int("components", cfg.Components).
		Int("observations", len(rows)).
		Msg("regime labels assigned")
	return nil
}

// Current labels the history and returns the regime of the latest row.
func Current(rows []market.FeatureRow, cfg Config) (market.Regime, error) {
	if len(rows) == 0 {
		return market.RegimeUnknown, fmt.Errorf("regime: no rows")
	}
	if err := Label(rows, cfg); err != nil {
		return market.RegimeUnknown, err
	}
	return rows[len(rows)-1].Regime, nil
}

// orderClusters maps raw component indices to regimes by sorting components
// on their mean standardized return, ascending.
func orderClusters(m *mixture, k int) map[int]market.Regime {
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	for i := 1; i < k; i++ {
		for j := i; j > 0 && m.means[idx[j]][returnColumn] < m.means[idx[j-1]][returnColumn]; j-- {
			idx[j], idx[j-1] = idx[j-1], idx[j]
		}
	}
	ordered := market.OrderedRegimes(k)
	out := make(map[int]market.Regime, k)
	for rank, component := range idx {
		out[component] = ordered[rank]
	}
	return out
}

// standardize rescales every column of x in place to zero mean and unit
// variance. A constant column cannot be standardized and fails the fit.
func standardize(x [][]float64) error {
	if len(x) == 0 {
		return fmt.Errorf("no observations")
	}
	d := len(x[0])
	for j := 0; j < d; j++ {
		mean, ss := 0.0, 0.0
		for i := range x {
			mean += x[i][j]
		}
		mean /= float64(len(x))
		for i := range x {
			ss += (x[i][j] - mean) * (x[i][j] - mean)
		}
		std := math.Sqrt(ss / float64(len(x)))
		if std == 0 || math.IsNaN(std) {
			return fmt.Errorf("feature column %d is constant", j)
		}
		for i := range x {
			x[i][j] = (x[i][j] - mean) / std
		}
	}
	return nil
}
