package analysis

import (
	"errors"
	"math"

	"github.com/cwbudde/algo-specparam/fit"
	"github.com/cwbudde/algo-specparam/group"
	"gonum.org/v1/gonum/stat"
)

// ErrNoFits is returned when a batch holds no successful fit.
var ErrNoFits = errors.New("analysis: no successful fits")

// PointwiseError returns |model - log power| at every frequency of r.
func PointwiseError(r *fit.Result) []float64 {
	out := make([]float64, len(r.Freqs))
	for i := range out {
		out[i] = math.Abs(r.Model[i] - r.LogPower[i])
	}
	return out
}

// ErrorSummary is the mean and standard deviation of the per-frequency error
// across the successful fits of a batch.
type ErrorSummary struct {
	Freqs []float64
	Mean  []float64
	Std   []float64
	Fits  int
}

// GroupPointwiseError summarises PointwiseError across the successful fits
// of g. All fits of a batch share the trimmed frequency axis.
func GroupPointwiseError(g *group.Result) (ErrorSummary, error) {
	var errs [][]float64
	var freqs []float64
	for _, r := range g.Results() {
		if r == nil {
			continue
		}
		if freqs == nil {
			freqs = r.Freqs
		}
		errs = append(errs, PointwiseError(r))
	}
	if len(errs) == 0 {
		return ErrorSummary{}, ErrNoFits
	}

	s := ErrorSummary{
		Freqs: append([]float64(nil), freqs...),
		Mean:  make([]float64, len(freqs)),
		Std:   make([]float64, len(freqs)),
		Fits:  len(errs),
	}

	column := make([]float64, len(errs))
	for j := range freqs {
		for i, e := range errs {
			column[i] = e[j]
		}
		if len(column) == 1 {
			s.Mean[j] = column[0]
			continue
		}
		s.Mean[j], s.Std[j] = stat.MeanStdDev(column, nil)
	}
	return s, nil
}
