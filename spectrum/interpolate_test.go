package spectrum

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-specparam/internal/testutil"
)

func TestInterpolateLineNoise(t *testing.T) {
	freqs := testutil.FreqAxis(40, 70, 1)
	power := make([]float64, len(freqs))
	for i, f := range freqs {
		power[i] = math.Pow(10, -0.01*f)
	}
	clean := append([]float64(nil), power...)

	// 60 Hz line noise.
	for i, f := range freqs {
		if f >= 59 && f <= 61 {
			power[i] *= 100
		}
	}

	out, err := Interpolate(freqs, power, [2]float64{58, 62})
	if err != nil {
		t.Fatalf("Interpolate error: %v", err)
	}

	for i := range out {
		if math.Abs(math.Log10(out[i])-math.Log10(clean[i])) > 1e-9 {
			t.Fatalf("bin %v: got %v, want %v", freqs[i], out[i], clean[i])
		}
	}

	if power[20] == clean[20] {
		t.Fatal("input modified")
	}
}

func TestInterpolateErrors(t *testing.T) {
	freqs := testutil.FreqAxis(1, 10, 1)
	power := make([]float64, len(freqs))

	if _, err := Interpolate(freqs, power[:2]); !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("err = %v, want ErrLengthMismatch", err)
	}
	if _, err := Interpolate(freqs, power, [2]float64{5, 2}); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("err = %v, want ErrInvalidRange", err)
	}
	if _, err := Interpolate(freqs, power, [2]float64{2, 5}); !errors.Is(err, ErrInvalidPower) {
		t.Fatalf("err = %v, want ErrInvalidPower", err)
	}
}
