package periodic

import (
	"errors"
	"math"

	"github.com/cwbudde/algo-specparam/internal/lsq"
	"gonum.org/v1/gonum/mat"
)

var (
	errNonPositive = errors.New("periodic: fitted amplitude is not positive")
	errWindow      = errors.New("periodic: too few points around candidate")
	errMissed      = errors.New("periodic: fitted gaussian misses the candidate maximum")
)

// fitGaussians fits a sum of len(guess) Gaussians to data over freqs with
// per-parameter box bounds laid out as (center, amplitude, bandwidth)
// triples.
func fitGaussians(freqs, data []float64, guess []Peak, lower, upper []float64, maxIter int) ([]Peak, error) {
	problem := lsq.Problem{
		M: len(freqs),
		Residuals: func(dst, x []float64) {
			for i := range dst {
				dst[i] = -data[i]
			}
			for k := 0; k < len(x); k += 3 {
				p := Peak{Center: x[k], Amplitude: x[k+1], Bandwidth: x[k+2]}
				for i, f := range freqs {
					dst[i] += p.At(f)
				}
			}
		},
		Jacobian: func(jac *mat.Dense, x []float64) {
			for k := 0; k < len(x); k += 3 {
				c, a, bw := x[k], x[k+1], x[k+2]
				s := bw / 2
				for i, f := range freqs {
					d := f - c
					e := math.Exp(-d * d / (2 * s * s))
					jac.Set(i, k, a*e*d/(s*s))
					jac.Set(i, k+1, e)
					// d/dbw = d/ds * ds/dbw with ds/dbw = 1/2.
					jac.Set(i, k+2, a*e*d*d/(s*s*s)/2)
				}
			}
		},
		Lower: lower,
		Upper: upper,
	}

	settings := lsq.DefaultSettings()
	if maxIter > 0 {
		settings.MaxIterations = maxIter
	}

	res, err := lsq.Solve(problem, Flatten(guess), settings)
	if err != nil {
		return nil, err
	}

	return Unflatten(res.X)
}
