package aperiodic

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/cwbudde/algo-specparam/internal/lsq"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Errors returned by the fitter.
var (
	ErrFit   = errors.New("aperiodic: fit did not converge")
	ErrInput = errors.New("aperiodic: freqs and log power must be equal length with enough points")
)

// DefaultPercentile is the percentile of the flattened spectrum below which
// points are kept for the robust fit.
const DefaultPercentile = 2.5

// FitError reports that the solver failed from both the data-driven and the
// flat starting point. It is fatal for a spectrum fit.
type FitError struct {
	Mode Mode
	Err  error
}

func (e *FitError) Error() string {
	return fmt.Sprintf("aperiodic: %s fit did not converge: %v", e.Mode, e.Err)
}

// Unwrap returns the last solver error.
func (e *FitError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrFit) hold.
func (e *FitError) Is(target error) bool { return target == ErrFit }

// Fitter fits aperiodic parameters to log power spectra.
//
// The zero value fits in fixed mode with default solver settings.
type Fitter struct {
	Mode Mode
	// MaxIterations bounds each solver run. Zero selects the solver default.
	MaxIterations int
	// Percentile selects the points used by FitRobust. Zero selects
	// DefaultPercentile.
	Percentile float64
}

// Fit fits the aperiodic form to logPower over freqs.
//
// The first attempt starts from a guess derived from the data: the exponent
// from a linear regression of log power on log frequency and the offset from
// the power at the lowest frequency. If the solver fails it is retried once
// from a flat guess (exponent 0, offset at the mean log power). A second
// failure is reported as *FitError.
func (f Fitter) Fit(freqs, logPower []float64) (Params, error) {
	if len(freqs) != len(logPower) || len(freqs) < f.Mode.NumParams() {
		return Params{}, ErrInput
	}

	if f.Mode != ModeFixed && f.Mode != ModeKnee {
		return Params{}, fmt.Errorf("%w: %d", ErrUnknownMode, int(f.Mode))
	}

	p, err := f.solve(freqs, logPower, f.initialGuess(freqs, logPower))
	if err == nil {
		return p, nil
	}

	p, err = f.solve(freqs, logPower, f.flatGuess(logPower))
	if err == nil {
		return p, nil
	}

	return Params{}, &FitError{Mode: f.Mode, Err: err}
}

// FitRobust fits in two stages so that peaks do not bias the background:
// an initial Fit, then a refit restricted to the points whose flattened power
// (clipped at zero) is at or below the configured percentile.
func (f Fitter) FitRobust(freqs, logPower []float64) (Params, error) {
	initial, err := f.Fit(freqs, logPower)
	if err != nil {
		return Params{}, err
	}

	flat := make([]float64, len(freqs))
	initial.EvalTo(flat, freqs)
	floats.SubTo(flat, logPower, flat)
	for i, v := range flat {
		if v < 0 {
			flat[i] = 0
		}
	}

	percentile := f.Percentile
	if percentile <= 0 {
		percentile = DefaultPercentile
	}

	sorted := append([]float64(nil), flat...)
	sort.Float64s(sorted)
	thresh := stat.Quantile(math.Min(percentile/100, 1), stat.Empirical, sorted, nil)

	var maskF, maskP []float64
	for i, v := range flat {
		if v <= thresh {
			maskF = append(maskF, freqs[i])
			maskP = append(maskP, logPower[i])
		}
	}

	if len(maskF) <= f.Mode.NumParams() {
		return initial, nil
	}

	robust, err := f.solve(maskF, maskP, initial)
	if err != nil {
		// The initial fit already converged on the full data.
		return initial, nil
	}
	return robust, nil
}

func (f Fitter) initialGuess(freqs, logPower []float64) Params {
	logF := make([]float64, len(freqs))
	for i, v := range freqs {
		logF[i] = math.Log10(v)
	}

	_, slope := stat.LinearRegression(logF, logPower, nil, false)

	exponent := math.Max(-slope, 0)
	if math.IsNaN(exponent) {
		exponent = 0
	}
	offset := logPower[0] + exponent*logF[0]

	if f.Mode == ModeKnee {
		return WithKnee(offset, 0, exponent)
	}
	return Fixed(offset, exponent)
}

func (f Fitter) flatGuess(logPower []float64) Params {
	offset := stat.Mean(logPower, nil)
	if f.Mode == ModeKnee {
		return WithKnee(offset, 0, 0)
	}
	return Fixed(offset, 0)
}

func (f Fitter) solve(freqs, logPower []float64, guess Params) (Params, error) {
	lower := []float64{math.Inf(-1), 0}
	upper := []float64{math.Inf(1), math.Inf(1)}
	if f.Mode == ModeKnee {
		lower = append(lower, 0)
		upper = append(upper, math.Inf(1))
	}

	problem := lsq.Problem{
		M: len(freqs),
		Residuals: func(dst, x []float64) {
			p := paramsFrom(f.Mode, x)
			for i, fr := range freqs {
				dst[i] = p.At(fr) - logPower[i]
			}
		},
		Jacobian: func(jac *mat.Dense, x []float64) {
			jacobian(jac, f.Mode, x, freqs)
		},
		Lower: lower,
		Upper: upper,
	}

	settings := lsq.DefaultSettings()
	if f.MaxIterations > 0 {
		settings.MaxIterations = f.MaxIterations
	}

	res, err := lsq.Solve(problem, guess.Values(), settings)
	if err != nil {
		return Params{}, err
	}

	p := paramsFrom(f.Mode, res.X)
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

func paramsFrom(mode Mode, x []float64) Params {
	if mode == ModeKnee {
		return WithKnee(x[0], x[1], x[2])
	}
	return Fixed(x[0], x[1])
}

// jacobian fills the partial derivatives of the model with respect to the
// flat parameter tuple.
func jacobian(jac *mat.Dense, mode Mode, x, freqs []float64) {
	switch mode {
	case ModeKnee:
		knee, exp := x[1], x[2]
		for i, f := range freqs {
			fe := math.Pow(f, exp)
			denom := (knee + fe) * math.Ln10
			jac.Set(i, 0, 1)
			jac.Set(i, 1, -1/denom)
			jac.Set(i, 2, -fe*math.Log(f)/denom)
		}
	default:
		for i, f := range freqs {
			jac.Set(i, 0, 1)
			jac.Set(i, 1, -math.Log10(f))
		}
	}
}
