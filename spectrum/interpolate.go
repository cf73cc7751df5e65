package spectrum

import (
	"math"
)

// Interpolate returns a copy of power in which every bin inside each of the
// given frequency ranges is replaced by a straight line in log10 power
// between the first and last bin of that range. It is used to remove line
// noise before fitting.
//
// Ranges holding fewer than two bins are left untouched.
func Interpolate(freqs, power []float64, ranges ...[2]float64) ([]float64, error) {
	if len(freqs) != len(power) {
		return nil, ErrLengthMismatch
	}

	out := append([]float64(nil), power...)

	for _, r := range ranges {
		if r[0] > r[1] {
			return nil, &InvalidRangeError{Requested: r, MinPoints: 2}
		}

		first, last := -1, -1
		for i, f := range freqs {
			if f >= r[0] && f <= r[1] {
				if first < 0 {
					first = i
				}
				last = i
			}
		}

		if first < 0 || first == last {
			continue
		}

		for _, i := range []int{first, last} {
			if !(out[i] > 0) {
				return nil, &InvalidPowerError{Index: i, Freq: freqs[i], Value: out[i]}
			}
		}

		logLo, logHi := math.Log10(out[first]), math.Log10(out[last])
		span := freqs[last] - freqs[first]
		for i := first + 1; i < last; i++ {
			t := (freqs[i] - freqs[first]) / span
			out[i] = math.Pow(10, logLo+t*(logHi-logLo))
		}
	}

	return out, nil
}
