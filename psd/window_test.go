package psd

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-specparam/internal/testutil"
)

func TestWindowHannPeriodic(t *testing.T) {
	testutil.RequireSliceNearlyEqual(t, Window(WindowHann, 4), []float64{0, 0.5, 1, 0.5}, 1e-15)
}

func TestWindowShapes(t *testing.T) {
	for w := WindowHann; w <= WindowKaiser; w++ {
		t.Run(w.String(), func(t *testing.T) {
			c := Window(w, 64)
			if len(c) != 64 {
				t.Fatalf("len = %d", len(c))
			}
			testutil.RequireFinite(t, c)
			// Periodic windows are symmetric around n/2.
			for i := 1; i < 32; i++ {
				if math.Abs(c[i]-c[64-i]) > 1e-12 {
					t.Fatalf("w[%d]=%v != w[%d]=%v", i, c[i], 64-i, c[64-i])
				}
			}
			if c[32] < 0.99 || c[32] > 1+1e-12 {
				t.Fatalf("center = %v, want 1", c[32])
			}
		})
	}

	if Window(WindowHann, 0) != nil {
		t.Fatal("expected nil window for length 0")
	}
}

func TestParseWindow(t *testing.T) {
	w, err := ParseWindow(" Blackman ")
	if err != nil || w != WindowBlackman {
		t.Fatalf("ParseWindow() = %v, %v", w, err)
	}
	if _, err := ParseWindow("flattop"); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("err = %v, want ErrInvalidConfig", err)
	}
}
