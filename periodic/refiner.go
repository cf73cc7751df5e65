package periodic

import (
	"fmt"
	"math"
)

// Refiner jointly re-fits candidate peaks and prunes the result.
type Refiner struct {
	// WidthLimits bounds the fitted bandwidth in Hz.
	WidthLimits [2]float64
	// MinHeight drops refined peaks with a smaller amplitude.
	MinHeight float64
	// MinSeparation is the smallest allowed distance between two centers.
	MinSeparation float64
	// OverlapThreshold additionally requires centers to be at least
	// OverlapThreshold*(std_i + std_j) apart. Zero disables the check.
	OverlapThreshold float64
	// EdgeThreshold drops candidates centered within EdgeThreshold standard
	// deviations of either end of the frequency range before the joint fit.
	// Zero disables the check.
	EdgeThreshold float64
	// CenterBound limits how far a center may move during the joint fit, in
	// units of twice the candidate's standard deviation. Zero leaves centers
	// bounded by the frequency range only.
	CenterBound float64
	// MaxIterations bounds the joint solve. Zero selects the solver default.
	MaxIterations int
}

// Refine fits all candidates at once against flat, which must be the
// flattened spectrum the candidates were detected in (not a depleted copy).
// When the joint fit fails the candidates are used unrefined and a
// RefinementFallback diagnostic is returned.
//
// The returned peaks are sorted by center, have amplitudes >= MinHeight and
// satisfy the separation rule.
func (r Refiner) Refine(freqs, flat []float64, candidates []Peak) ([]Peak, []Diagnostic) {
	if len(freqs) == 0 || len(flat) != len(freqs) {
		return nil, nil
	}

	kept := r.dropEdgePeaks(freqs, candidates)
	if len(kept) == 0 {
		return nil, nil
	}

	var diags []Diagnostic

	refined, err := r.jointFit(freqs, flat, kept)
	if err != nil {
		diags = append(diags, Diagnostic{Kind: RefinementFallback, Err: err})
		refined = kept
	}

	return r.prune(refined), diags
}

func (r Refiner) dropEdgePeaks(freqs []float64, candidates []Peak) []Peak {
	out := make([]Peak, 0, len(candidates))
	lo, hi := freqs[0], freqs[len(freqs)-1]

	for _, p := range candidates {
		edge := r.EdgeThreshold * p.Std()
		if r.EdgeThreshold > 0 && (p.Center-lo < edge || hi-p.Center < edge) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func (r Refiner) jointFit(freqs, flat []float64, guess []Peak) ([]Peak, error) {
	if len(freqs) < 3*len(guess) {
		return nil, fmt.Errorf("joint fit: %d points for %d peaks: %w", len(freqs), len(guess), errWindow)
	}

	fLo, fHi := freqs[0], freqs[len(freqs)-1]
	lower := make([]float64, 0, 3*len(guess))
	upper := make([]float64, 0, 3*len(guess))

	for _, p := range guess {
		cLo, cHi := fLo, fHi
		if r.CenterBound > 0 {
			shift := 2 * r.CenterBound * p.Std()
			cLo = math.Max(fLo, p.Center-shift)
			cHi = math.Min(fHi, p.Center+shift)
		}
		lower = append(lower, cLo, 0, r.WidthLimits[0])
		upper = append(upper, cHi, math.Inf(1), r.WidthLimits[1])
	}

	peaks, err := fitGaussians(freqs, flat, guess, lower, upper, r.MaxIterations)
	if err != nil {
		return nil, fmt.Errorf("joint fit: %w", err)
	}
	return peaks, nil
}

// prune drops short peaks, sorts by center and resolves separation
// violations by removing the lower of two neighbouring peaks until none
// remain.
func (r Refiner) prune(peaks []Peak) []Peak {
	out := make([]Peak, 0, len(peaks))
	for _, p := range peaks {
		if p.Amplitude > 0 && p.Amplitude >= r.MinHeight {
			out = append(out, p)
		}
	}

	SortByCenter(out)

	for {
		i := r.firstViolation(out)
		if i < 0 {
			break
		}
		drop := i
		if out[i].Amplitude >= out[i+1].Amplitude {
			drop = i + 1
		}
		out = append(out[:drop], out[drop+1:]...)
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

// firstViolation returns the index of the first neighbouring pair that is too
// close, or -1. Checking neighbours suffices for sorted peaks since the
// required distance is subadditive.
func (r Refiner) firstViolation(peaks []Peak) int {
	for i := 0; i+1 < len(peaks); i++ {
		if peaks[i+1].Center-peaks[i].Center < r.separation(peaks[i], peaks[i+1]) {
			return i
		}
	}
	return -1
}

func (r Refiner) separation(a, b Peak) float64 {
	return math.Max(r.MinSeparation, r.OverlapThreshold*(a.Std()+b.Std()))
}
