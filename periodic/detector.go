package periodic

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// NoPeakLimit disables the cap on the number of detected peaks.
const NoPeakLimit = -1

// fwhmToStd converts a full width at half maximum to a Gaussian standard
// deviation.
var fwhmToStd = 1 / (2 * math.Sqrt(2*math.Ln2))

const (
	windowStds      = 3
	minWindowPoints = 5
)

// Detector finds candidate peaks in a flattened spectrum.
//
// A Detector owns a working buffer that is reused across calls, so a single
// Detector must not be used concurrently.
type Detector struct {
	// WidthLimits bounds the fitted bandwidth in Hz.
	WidthLimits [2]float64
	// MaxPeaks caps the number of candidates; NoPeakLimit for no cap.
	MaxPeaks int
	// MinHeight is the absolute stop threshold in log10 power.
	MinHeight float64
	// Threshold is the relative stop threshold in standard deviations of
	// the working spectrum.
	Threshold float64
	// MaxIterations bounds each single-peak solve. Zero selects the solver
	// default.
	MaxIterations int

	work []float64
}

// Detect returns candidate peaks in detection order together with
// diagnostics for candidates that could not be fitted. flat is not modified.
//
// Each round computes the standard deviation of the working spectrum, takes
// its maximum and stops when the maximum is not positive, is below
// Threshold*std or below MinHeight, or when MaxPeaks candidates were found.
// Otherwise one Gaussian is fitted to a window around the maximum and
// subtracted from the working spectrum. A failed fit discards the candidate
// and zeroes the region around it so it is not detected again.
//
//nolint:cyclop
func (d *Detector) Detect(freqs, flat []float64) ([]Peak, []Diagnostic) {
	n := len(freqs)
	if n == 0 || len(flat) != n {
		return nil, nil
	}

	if cap(d.work) < n {
		d.work = make([]float64, n)
	}
	work := d.work[:n]
	copy(work, flat)

	var (
		peaks []Peak
		diags []Diagnostic
	)

	// A failed round zeroes at least one bin; the bin count bounds the rounds.
	for round := 0; round < n; round++ {
		if d.MaxPeaks >= 0 && len(peaks) >= d.MaxPeaks {
			break
		}

		std := math.Sqrt(stat.PopVariance(work, nil))
		idx := floats.MaxIdx(work)
		height := work[idx]

		if height <= 0 || height < d.Threshold*std || height < d.MinHeight {
			break
		}

		lo, hi, span := d.window(freqs, work, idx)

		peak, err := d.fitCandidate(freqs, work, idx, lo, hi)
		if err != nil {
			diags = append(diags, Diagnostic{Kind: PeakFitWarning, Freq: freqs[idx], Err: err})
			for i := span[0]; i <= span[1]; i++ {
				work[i] = 0
			}
			continue
		}

		for i, f := range freqs {
			work[i] -= peak.At(f)
		}
		peaks = append(peaks, peak)
	}

	return peaks, diags
}

// window returns the fit window [lo, hi) around idx and the inclusive
// half-height span of the candidate. The window extends windowStds standard
// deviations either side, with the deviation estimated from the shorter
// half-height side.
func (d *Detector) window(freqs, work []float64, idx int) (lo, hi int, span [2]int) {
	n := len(freqs)
	half := work[idx] / 2

	left := idx
	for left > 0 && work[left-1] > half {
		left--
	}
	right := idx
	for right < n-1 && work[right+1] > half {
		right++
	}
	span = [2]int{left, right}

	leftFound := left > 0
	rightFound := right < n-1

	var halfWidth float64
	switch {
	case leftFound && rightFound:
		halfWidth = math.Min(freqs[idx]-freqs[left-1], freqs[right+1]-freqs[idx])
	case leftFound:
		halfWidth = freqs[idx] - freqs[left-1]
	case rightFound:
		halfWidth = freqs[right+1] - freqs[idx]
	default:
		halfWidth = (d.WidthLimits[0] + d.WidthLimits[1]) / 2
	}

	std := 2 * halfWidth * fwhmToStd
	std = math.Max(std, d.WidthLimits[0]/2)
	std = math.Min(std, d.WidthLimits[1]/2)

	fLo := freqs[idx] - windowStds*std
	fHi := freqs[idx] + windowStds*std

	lo, hi = idx, idx+1
	for lo > 0 && freqs[lo-1] >= fLo {
		lo--
	}
	for hi < n && freqs[hi] <= fHi {
		hi++
	}

	for hi-lo < minWindowPoints && (lo > 0 || hi < n) {
		if lo > 0 {
			lo--
		}
		if hi < n && hi-lo < minWindowPoints {
			hi++
		}
	}

	return lo, hi, span
}

func (d *Detector) fitCandidate(freqs, work []float64, idx, lo, hi int) (Peak, error) {
	if hi-lo < 3 {
		return Peak{}, errWindow
	}

	guess := Peak{
		Center:    freqs[idx],
		Amplitude: work[idx],
		Bandwidth: (d.WidthLimits[0] + d.WidthLimits[1]) / 2,
	}

	lower := []float64{freqs[lo], 0, d.WidthLimits[0]}
	upper := []float64{freqs[hi-1], math.Inf(1), d.WidthLimits[1]}

	fitted, err := fitGaussians(freqs[lo:hi], work[lo:hi], []Peak{guess}, lower, upper, d.MaxIterations)
	if err != nil {
		return Peak{}, fmt.Errorf("single gaussian fit: %w", err)
	}

	p := fitted[0]
	if !(p.Amplitude > 0) || math.IsInf(p.Amplitude, 0) {
		return Peak{}, errNonPositive
	}
	// A fit that explains less than half of the maximum did not capture the
	// candidate; subtracting it would leave the maximum in place.
	if p.At(freqs[idx]) < work[idx]/2 {
		return Peak{}, errMissed
	}
	return p, nil
}
