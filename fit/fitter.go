package fit

import (
	"github.com/cwbudde/algo-specparam/periodic"
	"github.com/cwbudde/algo-specparam/spectrum"
	"go.uber.org/zap"
)

// FitterOption configures a Fitter.
type FitterOption func(*Fitter)

// WithLogger sets the logger used for state transitions (debug) and peak
// diagnostics (warn). A nil logger is ignored.
func WithLogger(l *zap.Logger) FitterOption {
	return func(f *Fitter) {
		if l != nil {
			f.log = l
		}
	}
}

// Fitter fits spectra under one validated Config.
type Fitter struct {
	cfg      Config
	log      *zap.Logger
	detector *periodic.Detector
	flat     []float64
}

// NewFitter validates cfg and returns a Fitter for it.
func NewFitter(cfg Config, opts ...FitterOption) (*Fitter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	f := &Fitter{
		cfg:      cfg,
		log:      zap.NewNop(),
		detector: cfg.detector(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f, nil
}

// Config returns the configuration of f.
func (f *Fitter) Config() Config { return f.cfg }

// Fit prepares freqs and power over the configured range and fits them.
// Preparation errors are returned unwrapped (*spectrum.InvalidRangeError,
// *spectrum.InvalidPowerError). Later fatal errors are wrapped in *StateError.
// A non-nil error always comes with a nil Result.
func (f *Fitter) Fit(freqs, power []float64) (*Result, error) {
	s, err := spectrum.Prepare(freqs, power, f.cfg.FreqRange)
	if err != nil {
		return nil, err
	}
	return f.FitSpectrum(s)
}

// FitSpectrum fits an already prepared spectrum. s is not modified.
func (f *Fitter) FitSpectrum(s *spectrum.Spectrum) (*Result, error) {
	m := f.newMachine(s)
	res, err := m.run()
	f.flat = m.flat

	if err != nil {
		f.log.Debug("fit failed", zap.Error(err))
		return nil, err
	}
	return res, nil
}

func (f *Fitter) newMachine(s *spectrum.Spectrum) *machine {
	return &machine{
		cfg:      f.cfg,
		detector: f.detector,
		refiner:  f.cfg.refiner(),
		apFitter: f.cfg.aperiodicFitter(),
		log:      f.log,
		spec:     s,
		flat:     f.flat,
	}
}

// Fit fits a single spectrum with a throwaway Fitter.
func Fit(freqs, power []float64, cfg Config) (*Result, error) {
	f, err := NewFitter(cfg)
	if err != nil {
		return nil, err
	}
	return f.Fit(freqs, power)
}
