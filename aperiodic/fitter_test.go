package aperiodic

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-specparam/internal/testutil"
	"gonum.org/v1/gonum/stat"
)

func synth(p Params, freqs []float64, noise []float64) []float64 {
	lp := p.Eval(freqs)
	for i := range lp {
		if noise != nil {
			lp[i] += noise[i]
		}
	}
	return lp
}

func TestFitFixedExact(t *testing.T) {
	freqs := testutil.FreqAxis(1, 50, 0.5)
	want := Fixed(1.5, 1.2)

	got, err := Fitter{}.Fit(freqs, synth(want, freqs, nil))
	if err != nil {
		t.Fatalf("Fit error: %v", err)
	}

	testutil.RequireNear(t, "offset", got.Offset, want.Offset, 1e-6)
	testutil.RequireNear(t, "exponent", got.Exponent, want.Exponent, 1e-6)
}

func TestFitFixedNoisy(t *testing.T) {
	freqs := testutil.FreqAxis(3, 40, 0.25)
	want := Fixed(-21, 2)
	noise := testutil.DeterministicNoise(3, 0.01, len(freqs))

	got, err := Fitter{}.Fit(freqs, synth(want, freqs, noise))
	if err != nil {
		t.Fatalf("Fit error: %v", err)
	}

	testutil.RequireNear(t, "offset", got.Offset, want.Offset, 0.05)
	testutil.RequireNear(t, "exponent", got.Exponent, want.Exponent, 0.05)
}

func TestFitKnee(t *testing.T) {
	freqs := testutil.FreqAxis(1, 100, 0.5)
	want := WithKnee(2, 50, 2)

	got, err := Fitter{Mode: ModeKnee}.Fit(freqs, synth(want, freqs, nil))
	if err != nil {
		t.Fatalf("Fit error: %v", err)
	}

	if got.Mode != ModeKnee {
		t.Fatalf("Mode = %v, want knee", got.Mode)
	}
	testutil.RequireNear(t, "offset", got.Offset, want.Offset, 1e-3)
	testutil.RequireRelative(t, "knee", got.Knee, want.Knee, 0.01)
	testutil.RequireNear(t, "exponent", got.Exponent, want.Exponent, 1e-3)
}

func TestFitExponentBoundedAtZero(t *testing.T) {
	freqs := testutil.FreqAxis(1, 20, 1)
	// Rising spectrum: the unconstrained exponent would be negative.
	lp := Fixed(0, 0).Eval(freqs)
	for i, f := range freqs {
		lp[i] = 0.5 * math.Log10(f)
	}

	got, err := Fitter{}.Fit(freqs, lp)
	if err != nil {
		t.Fatalf("Fit error: %v", err)
	}
	if got.Exponent != 0 {
		t.Fatalf("exponent = %v, want 0 (lower bound)", got.Exponent)
	}
	// With the exponent pinned the best offset is the mean log power.
	testutil.RequireNear(t, "offset", got.Offset, stat.Mean(lp, nil), 1e-8)
}

func TestFitFailure(t *testing.T) {
	freqs := testutil.FreqAxis(1, 10, 1)
	lp := Fixed(1, 1).Eval(freqs)
	lp[4] = math.NaN()

	_, err := Fitter{}.Fit(freqs, lp)
	if !errors.Is(err, ErrFit) {
		t.Fatalf("err = %v, want ErrFit", err)
	}

	var fe *FitError
	if !errors.As(err, &fe) || fe.Mode != ModeFixed {
		t.Fatalf("err = %v, want *FitError in fixed mode", err)
	}
}

func TestFitInput(t *testing.T) {
	if _, err := (Fitter{}).Fit([]float64{1}, []float64{1}); !errors.Is(err, ErrInput) {
		t.Fatalf("err = %v, want ErrInput", err)
	}
	if _, err := (Fitter{}).Fit([]float64{1, 2, 3}, []float64{1, 2}); !errors.Is(err, ErrInput) {
		t.Fatalf("err = %v, want ErrInput", err)
	}
	if _, err := (Fitter{Mode: 9}).Fit([]float64{1, 2, 3}, []float64{1, 2, 3}); !errors.Is(err, ErrUnknownMode) {
		t.Fatalf("err = %v, want ErrUnknownMode", err)
	}
}

func TestFitRobustIgnoresPeak(t *testing.T) {
	freqs := testutil.FreqAxis(2, 40, 0.5)
	want := Fixed(1, 1)
	lp := synth(want, freqs, testutil.DeterministicNoise(11, 0.005, len(freqs)))
	for i, f := range freqs {
		lp[i] += 0.8 * math.Exp(-(f-10)*(f-10)/2)
	}

	plain, err := Fitter{}.Fit(freqs, lp)
	if err != nil {
		t.Fatalf("Fit error: %v", err)
	}
	robust, err := Fitter{}.FitRobust(freqs, lp)
	if err != nil {
		t.Fatalf("FitRobust error: %v", err)
	}

	if math.Abs(robust.Offset-want.Offset) >= math.Abs(plain.Offset-want.Offset) {
		t.Fatalf("robust offset %v not closer to %v than plain %v", robust.Offset, want.Offset, plain.Offset)
	}
	testutil.RequireNear(t, "robust exponent", robust.Exponent, want.Exponent, 0.05)
}
