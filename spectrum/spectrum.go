package spectrum

import (
	"math"
)

// MinPoints is the smallest number of frequency bins a prepared spectrum may
// hold.
const MinPoints = 3

const spacingTolerance = 1e-6

// Spectrum is a trimmed spectrum with power in log10 units.
type Spectrum struct {
	Freqs    []float64
	LogPower []float64

	// Range is the first and last frequency actually kept.
	Range [2]float64
	// Resolution is the spacing of the first two bins in Hz.
	Resolution float64
	// LogSpaced reports frequencies that are evenly spaced in log10(f)
	// rather than in f.
	LogSpaced bool
	// DroppedDC reports that a 0 Hz bin inside the requested range was removed.
	DroppedDC bool
}

// Len returns the number of bins.
func (s *Spectrum) Len() int { return len(s.Freqs) }

// Prepare trims freqs and power to freqRange (inclusive) and converts power to
// log10. A zero freqRange selects the full input. The inputs are not modified.
//
// Prepare fails with *InvalidRangeError when fewer than MinPoints bins remain,
// and with *InvalidPowerError when a kept power value is not finite and > 0.
//
//nolint:cyclop
func Prepare(freqs, power []float64, freqRange [2]float64) (*Spectrum, error) {
	if len(freqs) != len(power) {
		return nil, ErrLengthMismatch
	}

	for i, f := range freqs {
		if math.IsNaN(f) || math.IsInf(f, 0) || (i > 0 && f <= freqs[i-1]) {
			return nil, ErrNotIncreasing
		}
	}

	lo, hi := freqRange[0], freqRange[1]
	if lo == 0 && hi == 0 && len(freqs) > 0 {
		lo, hi = freqs[0], freqs[len(freqs)-1]
	}

	if math.IsNaN(lo) || math.IsNaN(hi) || lo > hi {
		return nil, &InvalidRangeError{Requested: freqRange, MinPoints: MinPoints}
	}

	start, end := len(freqs), 0
	droppedDC := false
	for i, f := range freqs {
		if f < lo || f > hi {
			continue
		}
		if f <= 0 {
			droppedDC = true
			continue
		}
		if i < start {
			start = i
		}
		end = i + 1
	}

	n := end - start
	if n < MinPoints {
		if n < 0 {
			n = 0
		}
		return nil, &InvalidRangeError{Requested: [2]float64{lo, hi}, Points: n, MinPoints: MinPoints}
	}

	s := &Spectrum{
		Freqs:     make([]float64, n),
		LogPower:  make([]float64, n),
		DroppedDC: droppedDC,
	}

	for i := 0; i < n; i++ {
		f := freqs[start+i]
		p := power[start+i]
		if !(p > 0) || math.IsInf(p, 1) {
			return nil, &InvalidPowerError{Index: start + i, Freq: f, Value: p}
		}

		s.Freqs[i] = f
		s.LogPower[i] = math.Log10(p)
	}

	s.Range = [2]float64{s.Freqs[0], s.Freqs[n-1]}
	s.Resolution = s.Freqs[1] - s.Freqs[0]
	s.LogSpaced = isLogSpaced(s.Freqs)

	return s, nil
}

// isLogSpaced reports whether freqs have a constant log10 step but not a
// constant linear step.
func isLogSpaced(freqs []float64) bool {
	if len(freqs) < 3 {
		return false
	}

	linStep := freqs[1] - freqs[0]
	logStep := math.Log10(freqs[1]) - math.Log10(freqs[0])
	linear, logarithmic := true, true

	for i := 2; i < len(freqs); i++ {
		if math.Abs(freqs[i]-freqs[i-1]-linStep) > spacingTolerance*math.Abs(linStep) {
			linear = false
		}
		d := math.Log10(freqs[i]) - math.Log10(freqs[i-1])
		if math.Abs(d-logStep) > spacingTolerance*math.Abs(logStep) {
			logarithmic = false
		}
	}

	return logarithmic && !linear
}
