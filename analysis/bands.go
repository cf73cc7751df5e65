package analysis

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-specparam/group"
	"github.com/cwbudde/algo-specparam/periodic"
)

// ErrInvalidBand is returned for band definitions that are not increasing
// finite ranges.
var ErrInvalidBand = errors.New("analysis: invalid band")

// Band is a named, inclusive frequency range.
type Band struct {
	Name  string
	Range [2]float64
}

// NewBand validates and returns a band.
func NewBand(name string, lo, hi float64) (Band, error) {
	b := Band{Name: name, Range: [2]float64{lo, hi}}
	return b, b.Validate()
}

// Validate checks that the band is a finite range with lo < hi.
func (b Band) Validate() error {
	lo, hi := b.Range[0], b.Range[1]
	if math.IsNaN(lo) || math.IsInf(hi, 0) || math.IsNaN(hi) || !(lo < hi) || lo < 0 {
		return fmt.Errorf("%w: %q %v", ErrInvalidBand, b.Name, b.Range)
	}
	return nil
}

// Contains reports whether f lies inside the band.
func (b Band) Contains(f float64) bool { return f >= b.Range[0] && f <= b.Range[1] }

// CanonicalBands returns the conventional electrophysiology bands.
func CanonicalBands() []Band {
	return []Band{
		{Name: "delta", Range: [2]float64{1, 4}},
		{Name: "theta", Range: [2]float64{4, 8}},
		{Name: "alpha", Range: [2]float64{8, 13}},
		{Name: "beta", Range: [2]float64{13, 30}},
		{Name: "gamma", Range: [2]float64{30, 80}},
	}
}

// PeaksInBand returns the peaks centered inside band, in input order.
func PeaksInBand(peaks []periodic.Peak, band Band) []periodic.Peak {
	var out []periodic.Peak
	for _, p := range peaks {
		if band.Contains(p.Center) {
			out = append(out, p)
		}
	}
	return out
}

// HighestInBand returns the highest-amplitude peak centered inside band.
func HighestInBand(peaks []periodic.Peak, band Band) (periodic.Peak, bool) {
	var (
		best  periodic.Peak
		found bool
	)
	for _, p := range peaks {
		if band.Contains(p.Center) && (!found || p.Amplitude > best.Amplitude) {
			best, found = p, true
		}
	}
	return best, found
}

// AboveAmplitude returns the peaks with amplitude >= minAmplitude.
func AboveAmplitude(peaks []periodic.Peak, minAmplitude float64) []periodic.Peak {
	var out []periodic.Peak
	for _, p := range peaks {
		if p.Amplitude >= minAmplitude {
			out = append(out, p)
		}
	}
	return out
}

// BandPeak is the band peak of one spectrum in a batch.
type BandPeak struct {
	Index int
	Peak  periodic.Peak
	// Found is false when the fit failed or has no peak in the band.
	Found bool
}

// GroupHighestInBand returns, for every spectrum of g, its highest peak in
// band.
func GroupHighestInBand(g *group.Result, band Band) []BandPeak {
	out := make([]BandPeak, g.Len())
	for i, r := range g.Results() {
		out[i].Index = i
		if r == nil {
			continue
		}
		out[i].Peak, out[i].Found = HighestInBand(r.Peaks, band)
	}
	return out
}
