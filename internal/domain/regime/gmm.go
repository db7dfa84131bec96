package regime

import (
	"fmt"
	"math"
	"math/rand"
)

// mixture is a Gaussian mixture over d-dimensional observations with full
// covariance matrices, fitted by expectation-maximization.
type mixture struct {
	k, d    int
	weights []float64
	means   [][]float64
	// covs holds one flattened row-major d*d covariance matrix per component.
	covs [][]float64
}

const covRegularizer = 1e-6

// fitMixture runs EM on x (n rows, d columns each) until the mean
// log-likelihood improves by less than tol or maxIter passes. Initialization
// is seeded so repeat fits on the same data produce the same components.
func fitMixture(x [][]float64, k, maxIter int, tol float64, seed int64) (*mixture, error) {
	n := len(x)
	if n == 0 {
		return nil, fmt.Errorf("fit mixture: no observations")
	}
	d := len(x[0])
	if n < k*(d+1) {
		return nil, fmt.Errorf("fit mixture: %d observations too few for %d components", n, k)
	}

	m := &mixture{k: k, d: d}
	m.init(x, seed)

	resp := make([][]float64, n)
	for i := range resp {
		resp[i] = make([]float64, k)
	}

	prevLL := math.Inf(-1)
	for iter := 0; iter < maxIter; iter++ {
		ll, err := m.eStep(x, resp)
		if err != nil {
			return nil, err
		}
		m.mStep(x, resp)
		if iter > 0 && math.Abs(ll-prevLL) < tol {
			break
		}
		prevLL = ll
	}
	return m, nil
}

// init seeds the components kmeans++ style: the first mean is a random
// observation, each further mean is drawn with probability proportional to
// its squared distance from the nearest chosen mean. All components start
// with the global sample covariance and uniform weights.
func (m *mixture) init(x [][]float64, seed int64) {
	n, k := len(x), m.k
	rng := rand.New(rand.NewSource(seed))

	m.weights = make([]float64, k)
	m.means = make([][]float64, k)
	m.covs = make([][]float64, k)

	m.means[0] = append([]float64(nil), x[rng.Intn(n)]...)
	dist := make([]float64, n)
	for i := range dist {
		dist[i] = sqDist(x[i], m.means[0])
	}
	for c := 1; c < k; c++ {
		total := 0.0
		for _, d := range dist {
			total += d
		}
		pick := 0
		if total > 0 {
			r := rng.Float64() * total
			for i, d := range dist {
				r -= d
				if r <= 0 {
					pick = i
					break
				}
			}
		} else {
			pick = rng.Intn(n)
		}
		m.means[c] = append([]float64(nil), x[pick]...)
		for i := range dist {
			if d := sqDist(x[i], m.means[c]); d < dist[i] {
				dist[i] = d
			}
		}
	}

	global := sampleCovariance(x)
	for c := 0; c < k; c++ {
		m.weights[c] = 1 / float64(k)
		m.covs[c] = append([]float64(nil), global...)
	}
}

func sqDist(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}

// eStep fills resp with posterior component probabilities and returns the
// mean log-likelihood of the data under the current parameters.
func (m *mixture) eStep(x [][]float64, resp [][]float64) (float64, error) {
	chols := make([][]float64, m.k)
	logDets := make([]float64, m.k)
	for c := 0; c < m.k; c++ {
		chol, logDet, err := cholesky(m.covs[c], m.d)
		if err != nil {
			return 0, fmt.Errorf("component %d: %w", c, err)
		}
		chols[c], logDets[c] = chol, logDet
	}

	total := 0.0
	logProbs := make([]float64, m.k)
	for i, row := range x {
		for c := 0; c < m.k; c++ {
			lp := logGaussian(row, m.means[c], chols[c], logDets[c], m.d)
			logProbs[c] = math.Log(m.weights[c]) + lp
		}
		norm := logSumExp(logProbs)
		if math.IsNaN(norm) || math.IsInf(norm, 0) {
			return 0, fmt.Errorf("degenerate likelihood at observation %d", i)
		}
		for c := 0; c < m.k; c++ {
			resp[i][c] = math.Exp(logProbs[c] - norm)
		}
		total += norm
	}
	return total / float64(len(x)), nil
}

func (m *mixture) mStep(x [][]float64, resp [][]float64) {
	n, d := len(x), m.d
	for c := 0; c < m.k; c++ {
		nk := 0.0
		for i := 0; i < n; i++ {
			nk += resp[i][c]
		}
		if nk < 1e-12 {
			nk = 1e-12
		}
		m.weights[c] = nk / float64(n)

		mean := make([]float64, d)
		for i := 0; i < n; i++ {
			for j := 0; j < d; j++ {
				mean[j] += resp[i][c] * x[i][j]
			}
		}
		for j := 0; j < d; j++ {
			mean[j] /= nk
		}
		m.means[c] = mean

		cov := make([]float64, d*d)
		diff := make([]float64, d)
		for i := 0; i < n; i++ {
			for j := 0; j < d; j++ {
				diff[j] = x[i][j] - mean[j]
			}
			w := resp[i][c]
			for a := 0; a < d; a++ {
				for b := 0; b < d; b++ {
					cov[a*d+b] += w * diff[a] * diff[b]
				}
			}
		}
		for a := 0; a < d; a++ {
			for b := 0; b < d; b++ {
				cov[a*d+b] /= nk
			}
			cov[a*d+a] += covRegularizer
		}
		m.covs[c] = cov
	}
}

// assign returns the most likely component for each observation.
func (m *mixture) assign(x [][]float64) ([]int, error) {
	resp := make([][]float64, len(x))
	for i := range resp {
		resp[i] = make([]float64, m.k)
	}
	if _, err := m.eStep(x, resp); err != nil {
		return nil, err
	}
	out := make([]int, len(x))
	for i := range x {
		best, bestP := 0, resp[i][0]
		for c := 1; c < m.k; c++ {
			if resp[i][c] > bestP {
				best, bestP = c, resp[i][c]
			}
		}
		out[i] = best
	}
	return out, nil
}

// cholesky computes the lower-triangular factor of the flattened d*d matrix
// and the log-determinant of the matrix itself.
func cholesky(a []float64, d int) ([]float64, float64, error) {
	l := make([]float64, d*d)
	logDet := 0.0
	for i := 0; i < d; i++ {
		for j := 0; j <= i; j++ {
			sum := a[i*d+j]
			for k := 0; k < j; k++ {
				sum -= l[i*d+k] * l[j*d+k]
			}
			if i == j {
				if sum <= 0 {
					return nil, 0, fmt.Errorf("covariance not positive definite")
				}
				l[i*d+i] = math.Sqrt(sum)
				logDet += 2 * math.Log(l[i*d+i])
			} else {
				l[i*d+j] = sum / l[j*d+j]
			}
		}
	}
	return l, logDet, nil
}

// logGaussian evaluates the multivariate normal log-density using the
// precomputed Cholesky factor of the covariance.
func logGaussian(x, mean, chol []float64, logDet float64, d int) float64 {
	// Solve L*z = (x - mean) by forward substitution; the Mahalanobis
	// distance is then the squared norm of z.
	z := make([]float64, d)
	for i := 0; i < d; i++ {
		sum := x[i] - mean[i]
		for j := 0; j < i; j++ {
			sum -= chol[i*d+j] * z[j]
		}
		z[i] = sum / chol[i*d+i]
	}
	maha := 0.0
	for _, v := range z {
		maha += v * v
	}
	return -0.5 * (float64(d)*math.Log(2*math.Pi) + logDet + maha)
}

func logSumExp(xs []float64) float64 {
	max := math.Inf(-1)
	for _, v := range xs {
		if v > max {
			max = v
		}
	}
	if math.IsInf(max, -1) {
		return max
	}
	sum := 0.0
	for _, v := range xs {
		sum += math.Exp(v - max)
	}
	return max + math.Log(sum)
}

// sampleCovariance returns the flattened covariance matrix of x with the
// diagonal regularizer already applied.
func sampleCovariance(x [][]float64) []float64 {
	n, d := len(x), len(x[0])
	mean := make([]float64, d)
	for _, row := range x {
		for j, v := range row {
			mean[j] += v
		}
	}
	for j := range mean {
		mean[j] /= float64(n)
	}
	cov := make([]float64, d*d)
	for _, row := range x {
		for a := 0; a < d; a++ {
			for b := 0; b < d; b++ {
				cov[a*d+b] += (row[a] - mean[a]) * (row[b] - mean[b])
			}
		}
	}
	for a := 0; a < d; a++ {
		for b := 0; b < d; b++ {
			cov[a*d+b] /= float64(n)
		}
		cov[a*d+a] += covRegularizer
	}
	return cov
}
