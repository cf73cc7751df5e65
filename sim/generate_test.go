package sim

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-specparam/aperiodic"
	"github.com/cwbudde/algo-specparam/periodic"
)

func TestFreqAxis(t *testing.T) {
	freqs, err := FreqAxis([2]float64{3, 40}, 0.5)
	if err != nil {
		t.Fatalf("FreqAxis() error = %v", err)
	}
	if len(freqs) != 75 {
		t.Fatalf("len = %d, want 75", len(freqs))
	}
	if freqs[0] != 3 || freqs[len(freqs)-1] != 40 {
		t.Fatalf("axis = [%v, %v], want [3, 40]", freqs[0], freqs[len(freqs)-1])
	}

	for _, tc := range []struct {
		name string
		r    [2]float64
		res  float64
	}{
		{"zero res", [2]float64{1, 10}, 0},
		{"reversed", [2]float64{10, 1}, 1},
		{"negative", [2]float64{-1, 10}, 1},
	} {
		if _, err := FreqAxis(tc.r, tc.res); !errors.Is(err, ErrInvalidAxis) {
			t.Fatalf("%s: err = %v, want ErrInvalidAxis", tc.name, err)
		}
	}
}

func TestSpectrumNoiseless(t *testing.T) {
	freqs, _ := FreqAxis([2]float64{1, 50}, 1)
	ap := aperiodic.Fixed(1, 1.5)
	peaks := []periodic.Peak{{Center: 10, Amplitude: 0.5, Bandwidth: 2}}

	power, err := NewGenerator().Spectrum(freqs, ap, peaks)
	if err != nil {
		t.Fatalf("Spectrum() error = %v", err)
	}

	want := LogPower(freqs, ap, peaks)
	for i, p := range power {
		if d := math.Abs(math.Log10(p) - want[i]); d > 1e-12 {
			t.Fatalf("bin %d: log power %v, want %v", i, math.Log10(p), want[i])
		}
	}
}

func TestSpectrumDeterministic(t *testing.T) {
	freqs, _ := FreqAxis([2]float64{1, 50}, 0.5)
	ap := aperiodic.Fixed(0, 2)

	a, err := NewGenerator(WithSeed(7), WithNoise(0.05)).Spectrum(freqs, ap, nil)
	if err != nil {
		t.Fatalf("Spectrum() error = %v", err)
	}
	b, _ := NewGenerator(WithSeed(7), WithNoise(0.05)).Spectrum(freqs, ap, nil)
	c, _ := NewGenerator(WithSeed(8), WithNoise(0.05)).Spectrum(freqs, ap, nil)

	same := true
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("mismatch at %d: %v != %v", i, a[i], b[i])
		}
		if a[i] != c[i] {
			same = false
		}
	}
	if same {
		t.Fatal("different seeds produced identical spectra")
	}
}

func TestUniformNoiseBounded(t *testing.T) {
	freqs, _ := FreqAxis([2]float64{1, 100}, 0.25)
	ap := aperiodic.Fixed(0, 1)
	const level = 0.01

	power, err := NewGenerator(WithNoise(level), WithUniformNoise()).Spectrum(freqs, ap, nil)
	if err != nil {
		t.Fatalf("Spectrum() error = %v", err)
	}

	clean := ap.Eval(freqs)
	for i, p := range power {
		if d := math.Abs(math.Log10(p) - clean[i]); d > level+1e-12 {
			t.Fatalf("bin %d deviates by %v > %v", i, d, level)
		}
	}
}

func TestGroupSeeds(t *testing.T) {
	freqs, _ := FreqAxis([2]float64{1, 20}, 1)
	ap := aperiodic.Fixed(0, 1)
	g := NewGenerator(WithSeed(3), WithNoise(0.1))

	group, err := g.Group(3, freqs, ap, nil)
	if err != nil {
		t.Fatalf("Group() error = %v", err)
	}
	single, _ := g.Spectrum(freqs, ap, nil)

	for i := range single {
		if group[0][i] != single[i] {
			t.Fatalf("group[0] differs from Spectrum at %d", i)
		}
	}
	if group[1][0] == group[2][0] {
		t.Fatal("group members share noise")
	}

	if _, err := g.Group(0, freqs, ap, nil); err == nil {
		t.Fatal("expected error for empty group")
	}
}

func TestSpectrumRejectsZeroFrequency(t *testing.T) {
	_, err := NewGenerator().Spectrum([]float64{0, 1, 2}, aperiodic.Fixed(0, 1), nil)
	if !errors.Is(err, ErrInvalidAxis) {
		t.Fatalf("err = %v, want ErrInvalidAxis", err)
	}

	_, err = NewGenerator().Spectrum([]float64{1, 2, 3}, aperiodic.Fixed(0, -1), nil)
	if !errors.Is(err, aperiodic.ErrInvalidParams) {
		t.Fatalf("err = %v, want ErrInvalidParams", err)
	}
}
