package periodic

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrInvalidPeaks is returned when a flat parameter slice cannot be split
// into peaks.
var ErrInvalidPeaks = errors.New("periodic: peak values must be (center, amplitude, bandwidth) triples")

// Peak holds the parameters of one Gaussian peak.
type Peak struct {
	Center    float64 // Hz
	Amplitude float64 // log10 power above the aperiodic background
	Bandwidth float64 // Hz, two Gaussian standard deviations
}

// Std returns the Gaussian standard deviation.
func (p Peak) Std() float64 { return p.Bandwidth / 2 }

// At evaluates the peak at frequency f.
func (p Peak) At(f float64) float64 {
	s := p.Std()
	d := f - p.Center
	return p.Amplitude * math.Exp(-d*d/(2*s*s))
}

// Eval returns the peak curve over freqs.
func (p Peak) Eval(freqs []float64) []float64 {
	out := make([]float64, len(freqs))
	for i, f := range freqs {
		out[i] = p.At(f)
	}
	return out
}

func (p Peak) String() string {
	return fmt.Sprintf("peak(cf=%.2f, amp=%.3f, bw=%.2f)", p.Center, p.Amplitude, p.Bandwidth)
}

// Sum returns the sum of all peak curves over freqs.
func Sum(freqs []float64, peaks []Peak) []float64 {
	out := make([]float64, len(freqs))
	AddTo(out, freqs, peaks)
	return out
}

// AddTo adds every peak curve over freqs to dst.
func AddTo(dst, freqs []float64, peaks []Peak) {
	for _, p := range peaks {
		for i, f := range freqs {
			dst[i] += p.At(f)
		}
	}
}

// Flatten returns peaks as consecutive (center, amplitude, bandwidth) triples.
func Flatten(peaks []Peak) []float64 {
	out := make([]float64, 0, 3*len(peaks))
	for _, p := range peaks {
		out = append(out, p.Center, p.Amplitude, p.Bandwidth)
	}
	return out
}

// Unflatten is the inverse of Flatten.
func Unflatten(values []float64) ([]Peak, error) {
	if len(values)%3 != 0 {
		return nil, fmt.Errorf("%w: got %d values", ErrInvalidPeaks, len(values))
	}
	peaks := make([]Peak, len(values)/3)
	for i := range peaks {
		peaks[i] = Peak{Center: values[3*i], Amplitude: values[3*i+1], Bandwidth: values[3*i+2]}
	}
	return peaks, nil
}

// SortByCenter sorts peaks by ascending center frequency.
func SortByCenter(peaks []Peak) {
	sort.SliceStable(peaks, func(i, j int) bool { return peaks[i].Center < peaks[j].Center })
}
