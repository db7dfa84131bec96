package forecast

import (
	"fmt"
	"math"
	"time"

	"github.com/equityrun/equityrun/internal/domain/market"
)

// Point is one forecast sample with its uncertainty band.
type Point struct {
	Date      time.Time `json:"date"`
	Yhat      float64   `json:"yhat"`
	YhatLower float64   `json:"yhat_lower"`
	YhatUpper float64   `json:"yhat_upper"`
}

// Model produces forecasts for explicit future dates.
type Model interface {
	Predict(dates []time.Time) []Point
}

// Forecaster fits a model to historical bars. A failed fit is fatal for the
// requesting symbol since the signal logic needs the expected-return delta.
type Forecaster interface {
	Fit(bars []market.Bar) (Model, error)
}

const minFitBars = 30

// TrendSeasonal fits closing prices with a linear trend plus day-of-week
// effects by ordinary least squares. Bounds are the 95% residual band.
type TrendSeasonal struct{}

func NewTrendSeasonal() *TrendSeasonal { return &TrendSeasonal{} }

// Design columns: intercept, time index, and dummies for Tuesday through
// Friday. Monday is the baseline so the matrix stays full rank.
const designCols = 6

func designRow(t float64, wd time.Weekday) []float64 {
	row := make([]float64, designCols)
	row[0] = 1
	row[1] = t
	if wd >= time.Tuesday && wd <= time.Friday {
		row[1+int(wd)-int(time.Monday)] = 1
	}
	return row
}

func (f *TrendSeasonal) Fit(bars []market.Bar) (Model, error) {
	if len(bars) < minFitBars {
		return nil, fmt.Errorf("forecast: need at least %d bars, got %d", minFitBars, len(bars))
	}

	n := len(bars)
	rowsX := make([][]float64, 0, n)
	y := make([]float64, 0, n)
	for i, b := range bars {
		if b.Close <= 0 || math.IsNaN(b.Close) {
			continue
		}
		rowsX = append(rowsX, designRow(float64(i), b.Date.Weekday()))
		y = append(y, b.Close)
	}
	if len(y) < minFitBars {
		return nil, fmt.Errorf("forecast: only %d usable closes", len(y))
	}

	beta, err := solveLeastSquares(rowsX, y)
	if err != nil {
		return nil, fmt.Errorf("forecast: %w", err)
	}

	// Residual standard deviation for the uncertainty band.
	ss := 0.0
	for i, row := range rowsX {
		pred := dot(row, beta)
		ss += (y[i] - pred) * (y[i] - pred)
	}
	sigma := math.Sqrt(ss / float64(len(y)))

	return &trendSeasonalModel{
		beta:    beta,
		sigma:   sigma,
		nextIdx: float64(n),
	}, nil
}

type trendSeasonalModel struct {
	beta    []float64
	sigma   float64
	nextIdx float64
}

// Predict extrapolates the trend one index step per requested date. Dates
// are assumed to be the calendar's business days in ascending order.
func (m *trendSeasonalModel) Predict(dates []time.Time) []Point {
	out := make([]Point, len(dates))
	band := 1.96 * m.sigma
	for i, d := range dates {
		row := designRow(m.nextIdx+float64(i), d.Weekday())
		yhat := dot(row, m.beta)
		out[i] = Point{
			Date:      d,
			Yhat:      yhat,
			YhatLower: yhat - band,
			YhatUpper: yhat + band,
		}
	}
	return out
}

func dot(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

// solveLeastSquares solves the normal equations X'X b = X'y by Gaussian
// elimination with partial pivoting.
func solveLeastSquares(x [][]float64, y []float64) ([]float64, error) {
	k := len(x[0])
	xtx := make([][]float64, k)
	xty := make([]float64, k)
	for i := range xtx {
		xtx[i] = make([]float64, k)
	}
	for r, row := range x {
		for i := 0; i < k; i++ {
			xty[i] += row[i] * y[r]
			for j := 0; j < k; j++ {
				xtx[i][j] += row[i] * row[j]
			}
		}
	}

	// Augment and eliminate.
	for i := 0; i < k; i++ {
		pivot := i
		for r := i + 1; r < k; r++ {
			if math.Abs(xtx[r][i]) > math.Abs(xtx[pivot][i]) {
				pivot = r
			}
		}
		xtx[i], xtx[pivot] = xtx[pivot], xtx[i]
		xty[i], xty[pivot] = xty[pivot], xty[i]
		if math.Abs(xtx[i][i]) < 1e-12 {
			return nil, fmt.Errorf("singular design matrix")
		}
		for r := i + 1; r < k; r++ {
			f := xtx[r][i] / xtx[i][i]
			for c := i; c < k; c++ {
				xtx[r][c] -= f * xtx[i][c]
			}
			xty[r] -= f * xty[i]
		}
	}
	beta := make([]float64, k)
	for i := k - 1; i >= 0; i-- {
		s := xty[i]
		for c := i + 1; c < k; c++ {
			s -= xtx[i][c] * beta[c]
		}
		beta[i] = s / xtx[i][i]
	}
	return beta, nil
}
