package fit

import (
	"github.com/cwbudde/algo-specparam/aperiodic"
	"github.com/cwbudde/algo-specparam/periodic"
	"github.com/cwbudde/algo-specparam/spectrum"
	"gonum.org/v1/gonum/floats"
)

// Result is the outcome of a successful fit. All curves are aligned with
// Freqs, the trimmed frequency axis.
type Result struct {
	Aperiodic aperiodic.Params
	// Peaks are sorted by center frequency.
	Peaks []periodic.Peak

	Freqs    []float64
	LogPower []float64
	// Model is the full reconstruction: aperiodic curve plus all peaks.
	Model          []float64
	AperiodicCurve []float64
	// Flattened is LogPower minus the final aperiodic curve.
	Flattened []float64

	RSquared float64
	Error    float64

	FreqRange [2]float64
	FreqRes   float64

	// Warnings records non-fatal conditions met during the fit.
	Warnings []periodic.Diagnostic
	Config   Config
}

// Assemble reconstructs the model from final parameters and scores it against
// the spectrum.
func Assemble(s *spectrum.Spectrum, ap aperiodic.Params, peaks []periodic.Peak, metric Metric) *Result {
	n := s.Len()

	apCurve := ap.Eval(s.Freqs)

	model := make([]float64, n)
	copy(model, apCurve)
	periodic.AddTo(model, s.Freqs, peaks)

	flat := make([]float64, n)
	floats.SubTo(flat, s.LogPower, apCurve)

	return &Result{
		Aperiodic:      ap,
		Peaks:          append([]periodic.Peak(nil), peaks...),
		Freqs:          append([]float64(nil), s.Freqs...),
		LogPower:       append([]float64(nil), s.LogPower...),
		Model:          model,
		AperiodicCurve: apCurve,
		Flattened:      flat,
		RSquared:       RSquared(s.LogPower, model),
		Error:          ComputeError(s.LogPower, model, metric),
		FreqRange:      s.Range,
		FreqRes:        s.Resolution,
	}
}

// NumPeaks returns the number of fitted peaks.
func (r *Result) NumPeaks() int { return len(r.Peaks) }

// PeakParams returns the peaks as flat (center, amplitude, bandwidth) triples.
func (r *Result) PeakParams() []float64 { return periodic.Flatten(r.Peaks) }

// AperiodicParams returns the aperiodic parameters as a flat tuple matching
// the aperiodic mode.
func (r *Result) AperiodicParams() []float64 { return r.Aperiodic.Values() }

// PeakCurve returns peak i evaluated over Freqs.
func (r *Result) PeakCurve(i int) []float64 { return r.Peaks[i].Eval(r.Freqs) }

// PeakCurves returns every peak evaluated over Freqs.
func (r *Result) PeakCurves() [][]float64 {
	out := make([][]float64, len(r.Peaks))
	for i := range r.Peaks {
		out[i] = r.PeakCurve(i)
	}
	return out
}

// PeakHeights returns, for each peak, the model height above the aperiodic
// curve at the bin nearest the peak center.
func (r *Result) PeakHeights() []float64 {
	out := make([]float64, len(r.Peaks))
	for i, p := range r.Peaks {
		idx := nearestIndex(r.Freqs, p.Center)
		out[i] = r.Model[idx] - r.AperiodicCurve[idx]
	}
	return out
}

func nearestIndex(freqs []float64, f float64) int {
	best := 0
	for i, v := range freqs {
		if abs(v-f) < abs(freqs[best]-f) {
			best = i
		}
	}
	return best
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
