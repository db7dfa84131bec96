package features

import (
	"math"
	"sort"

	"github.com/equityrun/equityrun/internal/domain/market"
)

// rankedFeature pairs a feature name with its accessor for ranking.
type rankedFeature struct {
	name string
	get  func(*market.FeatureRow) float64
}

// Candidate features for ranking. Raw OHLCV columns, the regime label and
// the redundant log return / normalized ATR are excluded, matching the
// feature-selection exclusion list.
var rankable = []rankedFeature{
	{"EMA_12", func(r *market.FeatureRow) float64 { return r.EMA12 }},
	{"EMA_26", func(r *market.FeatureRow) float64 { return r.EMA26 }},
	{"SMA_50", func(r *market.FeatureRow) float64 { return r.SMA50 }},
	{"SMA_200", func(r *market.FeatureRow) float64 { return r.SMA200 }},
	{"MACD", func(r *market.FeatureRow) float64 { return r.MACD }},
	{"MACD_Signal", func(r *market.FeatureRow) float64 { return r.MACDSignal }},
	{"ADX", func(r *market.FeatureRow) float64 { return r.ADX }},
	{"CCI", func(r *market.FeatureRow) float64 { return r.CCI }},
	{"RSI", func(r *market.FeatureRow) float64 { return r.RSI }},
	{"Stoch_k", func(r *market.FeatureRow) float64 { return r.StochK }},
	{"Williams_R", func(r *market.FeatureRow) float64 { return r.WilliamsR }},
	{"BB_Width", func(r *market.FeatureRow) float64 { return r.BBWidth }},
	{"ATR", func(r *market.FeatureRow) float64 { return r.ATR }},
	{"OBV", func(r *market.FeatureRow) float64 { return r.OBV }},
	{"Volume_SMA_20", func(r *market.FeatureRow) float64 { return r.VolumeSMA20 }},
	{"RSI_Vol_Adj", func(r *market.FeatureRow) float64 { return r.RSIVolAdj }},
	{"Price_Vol_Mom", func(r *market.FeatureRow) float64 { return r.PriceVolMom }},
	{"RSI_Dynamic_High", func(r *market.FeatureRow) float64 { return r.RSIDynHigh }},
	{"RSI_Dynamic_Low", func(r *market.FeatureRow) float64 { return r.RSIDynLow }},
	{"Hurst", func(r *market.FeatureRow) float64 { return r.Hurst }},
}

// Rank orders features by their absolute correlation with the next day's
// return, after pruning near-duplicate features (pairwise |corr| > 0.95
// keeps the earlier of the pair). Returns the top n names. Used only for
// the significant_features display field.
func Rank(rows []market.FeatureRow, n int) []string {
	if len(rows) < 3 || n <= 0 {
		return nil
	}

	// Target: next-day return, so drop the last row.
	m := len(rows) - 1
	target := make([]float64, m)
	for i := 0; i < m; i++ {
		target[i] = rows[i+1].Return1d
	}

	cols := make([][]float64, len(rankable))
	for f, rf := range rankable {
		col := make([]float64, m)
		for i := 0; i < m; i++ {
			col[i] = rf.get(&rows[i])
		}
		cols[f] = col
	}

	// Correlation prune: later feature of a highly correlated pair drops.
	dropped := make([]bool, len(rankable))
	for a := 0; a < len(rankable); a++ {
		if dropped[a] {
			continue
		}
		for b := a + 1; b < len(rankable); b++ {
			if dropped[b] {
				continue
			}
			if math.Abs(pearson(cols[a], cols[b])) > 0.95 {
				dropped[b] = true
			}
		}
	}

	type scored struct {
		name  string
		score float64
	}
	var scores []scored
	for f, rf := range rankable {
		if dropped[f] {
			continue
		}
		c := pearson(cols[f], target)
		if math.IsNaN(c) {
			continue
		}
		scores = append(scores, scored{name: rf.name, score: math.Abs(c)})
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	if n > len(scores) {
		n = len(scores)
	}
	out := make([]string, 0, n)
	for _, s := range scores[:n] {
		out = append(out, s.name)
	}
	return out
}

func pearson(x, y []float64) float64 {
	n := len(x)
	if n != len(y) || n < 2 {
		return math.NaN()
	}
	var sx, sy float64
	for i := 0; i < n; i++ {
		sx += x[i]
		sy += y[i]
	}
	mx, my := sx/float64(n), sy/float64(n)
	var cov, vx, vy float64
	for i := 0; i < n; i++ {
		dx, dy := x[i]-mx, y[i]-my
		cov += dx * dy
		vx += dx * dx
		vy += dy * dy
	}
	if vx == 0 || vy == 0 {
		return math.NaN()
	}
	return cov / math.Sqrt(vx*vy)
}
