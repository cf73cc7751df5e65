package group

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/cwbudde/algo-specparam/fit"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// ErrNoSpectra is returned when a batch holds no spectra.
var ErrNoSpectra = errors.New("group: no spectra to fit")

// Option configures a Runner.
type Option func(*Runner)

// WithWorkers sets the number of concurrent fits. Values < 1 are ignored.
func WithWorkers(n int) Option {
	return func(r *Runner) {
		if n >= 1 {
			r.workers = n
		}
	}
}

// WithLogger sets the logger for batch progress and passes it on to every
// worker's Fitter.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.log = l
		}
	}
}

// WithRegisterer registers fit metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(r *Runner) {
		r.reg = reg
	}
}

// Runner fits batches of spectra under one configuration. A Runner is safe
// for concurrent use; each call to Fit uses its own Fitters.
type Runner struct {
	cfg     fit.Config
	workers int
	log     *zap.Logger
	reg     prometheus.Registerer
	metrics *metrics
}

// New validates cfg and returns a Runner. The default worker count is
// runtime.GOMAXPROCS(0).
func New(cfg fit.Config, opts ...Option) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r := &Runner{
		cfg:     cfg,
		workers: runtime.GOMAXPROCS(0),
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}

	if r.reg != nil {
		m, err := newMetrics(r.reg)
		if err != nil {
			return nil, err
		}
		r.metrics = m
	}
	return r, nil
}

// Config returns the fit configuration.
func (r *Runner) Config() fit.Config { return r.cfg }

// Fit fits every spectrum in spectra against the shared freqs.
//
// Per-spectrum failures are reported in the returned Result, not as err.
// If ctx is cancelled before all spectra were submitted, the partial Result
// is returned together with ctx.Err(); unsubmitted spectra carry ctx.Err()
// as their error.
func (r *Runner) Fit(ctx context.Context, freqs []float64, spectra [][]float64) (*Result, error) {
	n := len(spectra)
	if n == 0 {
		return nil, ErrNoSpectra
	}

	res := &Result{
		RunID:   uuid.New(),
		Config:  r.cfg,
		Freqs:   freqs,
		results: make([]*fit.Result, n),
		errs:    make([]error, n),
	}

	log := r.log.With(zap.String("run_id", res.RunID.String()))

	workers := min(r.workers, n)
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		f, err := fit.NewFitter(r.cfg, fit.WithLogger(log.With(zap.Int("worker", w))))
		if err != nil {
			close(jobs)
			wg.Wait()
			return nil, err
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				r.fitOne(f, res, i, freqs, spectra[i], log)
			}
		}()
	}

	submitted := 0
submit:
	for i := range spectra {
		if ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			break submit
		case jobs <- i:
			submitted++
		}
	}
	close(jobs)
	wg.Wait()

	log.Info("group fit finished",
		zap.Int("spectra", n),
		zap.Int("submitted", submitted),
		zap.Int("failed", res.NumFailed()),
	)

	if submitted < n {
		err := ctx.Err()
		for i := submitted; i < n; i++ {
			res.errs[i] = err
		}
		return res, err
	}
	return res, nil
}

func (r *Runner) fitOne(f *fit.Fitter, res *Result, i int, freqs, power []float64, log *zap.Logger) {
	start := time.Now()
	out, err := f.Fit(freqs, power)
	elapsed := time.Since(start)

	if err != nil {
		res.errs[i] = fmt.Errorf("spectrum %d: %w", i, err)
		log.Debug("spectrum fit failed", zap.Int("index", i), zap.Error(err))
		r.metrics.observe(elapsed, nil)
		return
	}

	res.results[i] = out
	r.metrics.observe(elapsed, out)
}
