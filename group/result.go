package group

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-specparam/fit"
	"github.com/cwbudde/algo-specparam/periodic"
	"github.com/google/uuid"
)

// Result holds the outcome of one batch. Index i always refers to the i-th
// input spectrum.
type Result struct {
	RunID  uuid.UUID
	Config fit.Config
	Freqs  []float64

	results []*fit.Result
	errs    []error
}

// IndexedPeak is a peak together with the index of its spectrum.
type IndexedPeak struct {
	Index int
	periodic.Peak
}

// Len returns the number of spectra in the batch.
func (g *Result) Len() int { return len(g.results) }

// Get returns the fit of spectrum i, or nil and its error when the fit failed.
func (g *Result) Get(i int) (*fit.Result, error) {
	if i < 0 || i >= len(g.results) {
		return nil, fmt.Errorf("group: index %d out of range [0, %d)", i, len(g.results))
	}
	return g.results[i], g.errs[i]
}

// Results returns the per-spectrum fits with nil placeholders for failures.
func (g *Result) Results() []*fit.Result { return g.results }

// Errors returns the per-spectrum errors, nil for successful fits.
func (g *Result) Errors() []error { return g.errs }

// NumFailed returns the number of spectra without a fit.
func (g *Result) NumFailed() int {
	n := 0
	for _, r := range g.results {
		if r == nil {
			n++
		}
	}
	return n
}

// AperiodicParams returns the aperiodic tuple of every spectrum, nil for
// failed fits.
func (g *Result) AperiodicParams() [][]float64 {
	out := make([][]float64, len(g.results))
	for i, r := range g.results {
		if r != nil {
			out[i] = r.AperiodicParams()
		}
	}
	return out
}

// Peaks returns all peaks of all successful fits, in spectrum order.
func (g *Result) Peaks() []IndexedPeak {
	var out []IndexedPeak
	for i, r := range g.results {
		if r == nil {
			continue
		}
		for _, p := range r.Peaks {
			out = append(out, IndexedPeak{Index: i, Peak: p})
		}
	}
	return out
}

// RSquared returns the r-squared of every spectrum, NaN for failed fits.
func (g *Result) RSquared() []float64 {
	return g.metric(func(r *fit.Result) float64 { return r.RSquared })
}

// FitErrors returns the fit error of every spectrum, NaN for failed fits.
func (g *Result) FitErrors() []float64 {
	return g.metric(func(r *fit.Result) float64 { return r.Error })
}

func (g *Result) metric(get func(*fit.Result) float64) []float64 {
	out := make([]float64, len(g.results))
	for i, r := range g.results {
		if r == nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = get(r)
	}
	return out
}

// Records returns one flat record per spectrum. Failed fits yield a record
// with Failed set.
func (g *Result) Records() []fit.Record {
	out := make([]fit.Record, len(g.results))
	for i, r := range g.results {
		if r == nil {
			out[i] = fit.FailedRecord(g.Config)
		} else {
			out[i] = r.Record()
		}
		out[i].Index = i
	}
	return out
}
