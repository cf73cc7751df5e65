package group

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/cwbudde/algo-specparam/aperiodic"
	"github.com/cwbudde/algo-specparam/fit"
	"github.com/cwbudde/algo-specparam/internal/testutil"
	"github.com/cwbudde/algo-specparam/periodic"
	"github.com/cwbudde/algo-specparam/sim"
	"github.com/cwbudde/algo-specparam/spectrum"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const badIndex = 3

// batch returns six noisy single-peak spectra; spectrum badIndex holds a
// non-positive power value.
func batch(t *testing.T) ([]float64, [][]float64) {
	t.Helper()

	freqs := testutil.FreqAxis(1, 40, 0.5)
	spectra, err := sim.NewGenerator(sim.WithSeed(5), sim.WithNoise(0.01), sim.WithUniformNoise()).
		Group(6, freqs, aperiodic.Fixed(1, 1.5), []periodic.Peak{{Center: 12, Amplitude: 0.5, Bandwidth: 2}})
	if err != nil {
		t.Fatalf("sim: %v", err)
	}
	spectra[badIndex][10] = -1
	return freqs, spectra
}

func newRunner(t *testing.T, opts ...Option) *Runner {
	t.Helper()
	r, err := New(fit.DefaultConfig(), opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return r
}

func TestRunnerFit(t *testing.T) {
	freqs, spectra := batch(t)

	res, err := newRunner(t, WithWorkers(3)).Fit(context.Background(), freqs, spectra)
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	if res.Len() != len(spectra) || res.NumFailed() != 1 {
		t.Fatalf("len %d failed %d, want %d and 1", res.Len(), res.NumFailed(), len(spectra))
	}
	if res.RunID.String() == "" {
		t.Fatal("missing run id")
	}

	for i := 0; i < res.Len(); i++ {
		r, err := res.Get(i)
		if i == badIndex {
			var pe *spectrum.InvalidPowerError
			if r != nil || !errors.As(err, &pe) || pe.Index != 10 {
				t.Fatalf("spectrum %d: got %v, %v; want nil and InvalidPowerError", i, r, err)
			}
			continue
		}
		if err != nil || r == nil {
			t.Fatalf("spectrum %d: %v", i, err)
		}
		if r.NumPeaks() != 1 {
			t.Fatalf("spectrum %d: %d peaks, want 1", i, r.NumPeaks())
		}
		testutil.RequireNear(t, "center", r.Peaks[0].Center, 12, 0.5)
	}

	if _, err := res.Get(len(spectra)); err == nil {
		t.Fatal("expected out of range error")
	}
}

func TestRunnerAccessors(t *testing.T) {
	freqs, spectra := batch(t)
	res, err := newRunner(t).Fit(context.Background(), freqs, spectra)
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	r2 := res.RSquared()
	errs := res.FitErrors()
	ap := res.AperiodicParams()
	for i := range r2 {
		failed := i == badIndex
		if math.IsNaN(r2[i]) != failed || math.IsNaN(errs[i]) != failed || (ap[i] == nil) != failed {
			t.Fatalf("spectrum %d: r2 %v error %v ap %v", i, r2[i], errs[i], ap[i])
		}
	}

	peaks := res.Peaks()
	if len(peaks) != len(spectra)-1 {
		t.Fatalf("got %d peaks, want %d", len(peaks), len(spectra)-1)
	}
	for _, p := range peaks {
		if p.Index == badIndex {
			t.Fatalf("peak attributed to failed spectrum: %+v", p)
		}
	}

	recs := res.Records()
	for i, rec := range recs {
		if rec.Index != i || rec.Failed != (i == badIndex) {
			t.Fatalf("record %d = %+v", i, rec)
		}
	}
}

func TestRunnerWorkerCountDoesNotChangeResults(t *testing.T) {
	freqs, spectra := batch(t)

	one, err := newRunner(t, WithWorkers(1)).Fit(context.Background(), freqs, spectra)
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	many, err := newRunner(t, WithWorkers(4)).Fit(context.Background(), freqs, spectra)
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	a, b := one.Records(), many.Records()
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("records differ between worker counts:\n%+v\n%+v", a, b)
	}
}

func TestRunnerCancelled(t *testing.T) {
	freqs, spectra := batch(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := newRunner(t).Fit(ctx, freqs, spectra)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if res == nil || res.NumFailed() != len(spectra) {
		t.Fatalf("expected all placeholders, got %v", res)
	}
	for i, e := range res.Errors() {
		if !errors.Is(e, context.Canceled) {
			t.Fatalf("spectrum %d err = %v, want context.Canceled", i, e)
		}
	}
}

func TestRunnerErrors(t *testing.T) {
	if _, err := newRunner(t).Fit(context.Background(), nil, nil); !errors.Is(err, ErrNoSpectra) {
		t.Fatalf("err = %v, want ErrNoSpectra", err)
	}

	cfg := fit.DefaultConfig()
	cfg.PeakWidthLimits = [2]float64{4, 1}
	if _, err := New(cfg); !errors.Is(err, fit.ErrInvalidConfig) {
		t.Fatalf("err = %v, want ErrInvalidConfig", err)
	}
}

func TestRunnerMetrics(t *testing.T) {
	freqs, spectra := batch(t)
	reg := prometheus.NewRegistry()

	r := newRunner(t, WithRegisterer(reg))
	if _, err := r.Fit(context.Background(), freqs, spectra); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	if got := promtest.ToFloat64(r.metrics.fits.WithLabelValues("ok")); got != 5 {
		t.Fatalf("ok fits = %v, want 5", got)
	}
	if got := promtest.ToFloat64(r.metrics.fits.WithLabelValues("failed")); got != 1 {
		t.Fatalf("failed fits = %v, want 1", got)
	}

	// A second runner on the same registry shares the collectors.
	r2 := newRunner(t, WithRegisterer(reg))
	if _, err := r2.Fit(context.Background(), freqs, spectra[:2]); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	if got := promtest.ToFloat64(r.metrics.fits.WithLabelValues("ok")); got != 7 {
		t.Fatalf("ok fits after second run = %v, want 7", got)
	}

	if n, err := promtest.GatherAndCount(reg, "specparam_fit_duration_seconds", "specparam_fit_peaks"); err != nil || n != 2 {
		t.Fatalf("gathered %d histograms (err %v), want 2", n, err)
	}
}

func TestRunnerLogsSummary(t *testing.T) {
	freqs, spectra := batch(t)
	core, logs := observer.New(zapcore.InfoLevel)

	res, err := newRunner(t, WithLogger(zap.New(core))).Fit(context.Background(), freqs, spectra)
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	entries := logs.FilterMessage("group fit finished").All()
	if len(entries) != 1 {
		t.Fatalf("got %d summary entries, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["run_id"] != res.RunID.String() || fields["failed"] != int64(1) {
		t.Fatalf("summary fields = %v", fields)
	}
}
