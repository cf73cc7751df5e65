package psd

import (
	"fmt"
	"math"
	"strings"
)

// WindowType identifies a segment window.
type WindowType int

const (
	WindowHann WindowType = iota
	WindowHamming
	WindowBlackman
	WindowRectangular
	WindowKaiser
)

// kaiserBeta is the shape parameter used by WindowKaiser.
const kaiserBeta = 6.0

func (t WindowType) String() string {
	switch t {
	case WindowHann:
		return "hann"
	case WindowHamming:
		return "hamming"
	case WindowBlackman:
		return "blackman"
	case WindowRectangular:
		return "rectangular"
	case WindowKaiser:
		return "kaiser"
	default:
		return fmt.Sprintf("WindowType(%d)", int(t))
	}
}

// ParseWindow parses a window name.
func ParseWindow(s string) (WindowType, error) {
	for t := WindowHann; t <= WindowKaiser; t++ {
		if strings.EqualFold(strings.TrimSpace(s), t.String()) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown window %q", ErrInvalidConfig, s)
}

// Window returns the periodic (DFT-even) form of window t with length n,
// which is the form used for spectral estimation.
func Window(t WindowType, n int) []float64 {
	if n <= 0 {
		return nil
	}

	out := make([]float64, n)
	for i := range out {
		out[i] = evalWindow(t, float64(i)/float64(n))
	}
	return out
}

// evalWindow evaluates window t at normalized position x in [0, 1).
func evalWindow(t WindowType, x float64) float64 {
	phase := 2 * math.Pi * x

	switch t {
	case WindowHann:
		return 0.5 - 0.5*math.Cos(phase)
	case WindowHamming:
		return 0.54 - 0.46*math.Cos(phase)
	case WindowBlackman:
		return 0.42 - 0.5*math.Cos(phase) + 0.08*math.Cos(2*phase)
	case WindowKaiser:
		r := 2*x - 1
		return besselI0(kaiserBeta*math.Sqrt(math.Max(0, 1-r*r))) / besselI0(kaiserBeta)
	default:
		return 1
	}
}

// besselI0 approximates the modified Bessel function of the first kind,
// order zero (Abramowitz and Stegun 9.8.1, 9.8.2).
func besselI0(x float64) float64 {
	ax := math.Abs(x)
	if ax < 3.75 {
		y := x / 3.75
		y *= y

		return 1.0 + y*(3.5156229+y*(3.0899424+y*(1.2067492+y*(0.2659732+y*(0.0360768+y*0.0045813)))))
	}

	y := 3.75 / ax

	return (math.Exp(ax) / math.Sqrt(ax)) *
		(0.39894228 + y*(0.01328592+y*(0.00225319+y*(-0.00157565+y*(0.00916281+y*(-0.02057706+y*(0.02635537+y*(-0.01647633+y*0.00392377))))))))
}
