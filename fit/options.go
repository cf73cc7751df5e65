package fit

import "github.com/cwbudde/algo-specparam/aperiodic"

// Option mutates a Config. Options ignore out-of-range values and keep the
// previous setting.
type Option func(*Config)

// WithFreqRange sets the fitted frequency range.
func WithFreqRange(lo, hi float64) Option {
	return func(cfg *Config) {
		if lo >= 0 && hi >= lo {
			cfg.FreqRange = [2]float64{lo, hi}
		}
	}
}

// WithPeakWidthLimits sets the allowed peak bandwidths in Hz.
func WithPeakWidthLimits(lo, hi float64) Option {
	return func(cfg *Config) {
		if lo > 0 && hi >= lo {
			cfg.PeakWidthLimits = [2]float64{lo, hi}
		}
	}
}

// WithMaxPeaks caps the number of peaks. Use NoPeakLimit to remove the cap.
func WithMaxPeaks(n int) Option {
	return func(cfg *Config) {
		if n >= NoPeakLimit {
			cfg.MaxPeaks = n
		}
	}
}

// WithMinPeakHeight sets the absolute amplitude threshold.
func WithMinPeakHeight(h float64) Option {
	return func(cfg *Config) {
		if h >= 0 {
			cfg.MinPeakHeight = h
		}
	}
}

// WithPeakThreshold sets the relative detection threshold.
func WithPeakThreshold(stds float64) Option {
	return func(cfg *Config) {
		if stds >= 0 {
			cfg.PeakThreshold = stds
		}
	}
}

// WithAperiodicMode selects the background form.
func WithAperiodicMode(mode aperiodic.Mode) Option {
	return func(cfg *Config) {
		if mode == aperiodic.ModeFixed || mode == aperiodic.ModeKnee {
			cfg.AperiodicMode = mode
		}
	}
}

// WithMinPeakSeparation sets the smallest distance between peak centers.
func WithMinPeakSeparation(hz float64) Option {
	return func(cfg *Config) {
		if hz >= 0 {
			cfg.MinPeakSeparation = hz
		}
	}
}

// WithErrorMetric selects the error metric.
func WithErrorMetric(m Metric) Option {
	return func(cfg *Config) {
		if m >= MetricMAE && m <= MetricRMSE {
			cfg.ErrorMetric = m
		}
	}
}

// WithRefitPasses sets the number of peak-removed aperiodic refits.
func WithRefitPasses(n int) Option {
	return func(cfg *Config) {
		if n >= 1 {
			cfg.RefitPasses = n
		}
	}
}

// WithMaxIterations bounds every nonlinear solve.
func WithMaxIterations(n int) Option {
	return func(cfg *Config) {
		if n > 0 {
			cfg.MaxIterations = n
		}
	}
}

// ApplyOptions applies zero or more options to the default config.
func ApplyOptions(opts ...Option) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}
