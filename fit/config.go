package fit

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/cwbudde/algo-specparam/aperiodic"
	"github.com/cwbudde/algo-specparam/periodic"
	"gopkg.in/yaml.v3"
)

// NoPeakLimit disables the cap on the number of peaks.
const NoPeakLimit = periodic.NoPeakLimit

// ErrInvalidConfig is wrapped by all configuration validation errors.
var ErrInvalidConfig = errors.New("fit: invalid configuration")

// Config holds the settings of one fit. It is treated as immutable once a
// fit starts.
type Config struct {
	// FreqRange trims the spectrum (inclusive). Zero fits the full range.
	FreqRange [2]float64 `yaml:"freq_range" json:"freq_range"`
	// PeakWidthLimits bounds peak bandwidths in Hz.
	PeakWidthLimits [2]float64 `yaml:"peak_width_limits" json:"peak_width_limits"`
	// MaxPeaks caps the number of peaks; NoPeakLimit for no cap.
	MaxPeaks int `yaml:"max_n_peaks" json:"max_n_peaks"`
	// MinPeakHeight is the absolute peak amplitude threshold in log10 power.
	MinPeakHeight float64 `yaml:"min_peak_height" json:"min_peak_height"`
	// PeakThreshold is the relative detection threshold in standard
	// deviations of the flattened spectrum.
	PeakThreshold float64 `yaml:"peak_threshold" json:"peak_threshold"`
	// AperiodicMode selects the background form.
	AperiodicMode aperiodic.Mode `yaml:"aperiodic_mode" json:"aperiodic_mode"`

	// MinPeakSeparation is the smallest distance in Hz between peak centers.
	MinPeakSeparation float64 `yaml:"min_peak_separation" json:"min_peak_separation"`
	// OverlapThreshold also separates peaks by this many summed standard
	// deviations.
	OverlapThreshold float64 `yaml:"overlap_threshold" json:"overlap_threshold"`
	// EdgeThreshold drops candidates within this many standard deviations of
	// the range edges.
	EdgeThreshold float64 `yaml:"edge_threshold" json:"edge_threshold"`
	// CenterBound limits center movement during refinement, in units of two
	// standard deviations.
	CenterBound float64 `yaml:"center_bound" json:"center_bound"`
	// APPercentile selects the points of the robust aperiodic fit.
	APPercentile float64 `yaml:"ap_percentile" json:"ap_percentile"`
	// MaxIterations bounds every nonlinear solve.
	MaxIterations int `yaml:"max_iterations" json:"max_iterations"`
	// ErrorMetric selects how Result.Error is computed.
	ErrorMetric Metric `yaml:"error_metric" json:"error_metric"`
	// RefitPasses is the number of peak-removed aperiodic refits.
	RefitPasses int `yaml:"refit_passes" json:"refit_passes"`
}

// DefaultConfig returns the default fit settings.
func DefaultConfig() Config {
	return Config{
		PeakWidthLimits:   [2]float64{0.5, 12},
		MaxPeaks:          NoPeakLimit,
		MinPeakHeight:     0.05,
		PeakThreshold:     2,
		AperiodicMode:     aperiodic.ModeFixed,
		MinPeakSeparation: 1,
		OverlapThreshold:  0.75,
		EdgeThreshold:     1,
		CenterBound:       1.5,
		APPercentile:      aperiodic.DefaultPercentile,
		MaxIterations:     5000,
		ErrorMetric:       MetricMAE,
		RefitPasses:       1,
	}
}

// Validate reports the first invalid setting.
//
//nolint:cyclop
func (c Config) Validate() error {
	switch {
	case math.IsNaN(c.FreqRange[0]) || math.IsNaN(c.FreqRange[1]) || c.FreqRange[0] > c.FreqRange[1]:
		return fmt.Errorf("%w: freq_range %v", ErrInvalidConfig, c.FreqRange)
	case !(c.PeakWidthLimits[0] > 0) || c.PeakWidthLimits[0] > c.PeakWidthLimits[1] || math.IsInf(c.PeakWidthLimits[1], 0):
		return fmt.Errorf("%w: peak_width_limits %v must satisfy 0 < min <= max", ErrInvalidConfig, c.PeakWidthLimits)
	case c.MaxPeaks < NoPeakLimit:
		return fmt.Errorf("%w: max_n_peaks %d", ErrInvalidConfig, c.MaxPeaks)
	case !(c.MinPeakHeight >= 0):
		return fmt.Errorf("%w: min_peak_height %g must be >= 0", ErrInvalidConfig, c.MinPeakHeight)
	case !(c.PeakThreshold >= 0):
		return fmt.Errorf("%w: peak_threshold %g must be >= 0", ErrInvalidConfig, c.PeakThreshold)
	case c.AperiodicMode != aperiodic.ModeFixed && c.AperiodicMode != aperiodic.ModeKnee:
		return fmt.Errorf("%w: %w", ErrInvalidConfig, aperiodic.ErrUnknownMode)
	case !(c.MinPeakSeparation >= 0) || !(c.OverlapThreshold >= 0) || !(c.EdgeThreshold >= 0) || !(c.CenterBound >= 0):
		return fmt.Errorf("%w: separation, overlap, edge and center bounds must be >= 0", ErrInvalidConfig)
	case !(c.APPercentile > 0) || c.APPercentile > 100:
		return fmt.Errorf("%w: ap_percentile %g must be in (0, 100]", ErrInvalidConfig, c.APPercentile)
	case c.MaxIterations < 0:
		return fmt.Errorf("%w: max_iterations %d", ErrInvalidConfig, c.MaxIterations)
	case c.ErrorMetric < MetricMAE || c.ErrorMetric > MetricRMSE:
		return fmt.Errorf("%w: %w", ErrInvalidConfig, ErrUnknownMetric)
	case c.RefitPasses < 1:
		return fmt.Errorf("%w: refit_passes %d must be >= 1", ErrInvalidConfig, c.RefitPasses)
	}
	return nil
}

// LoadConfig decodes a YAML document on top of DefaultConfig and validates
// the result. Unknown keys are rejected. An empty document yields the
// defaults.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("fit: decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// WriteYAML encodes c as YAML.
func (c Config) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return err
	}
	return enc.Close()
}

func (c Config) detector() *periodic.Detector {
	return &periodic.Detector{
		WidthLimits:   c.PeakWidthLimits,
		MaxPeaks:      c.MaxPeaks,
		MinHeight:     c.MinPeakHeight,
		Threshold:     c.PeakThreshold,
		MaxIterations: c.MaxIterations,
	}
}

func (c Config) refiner() periodic.Refiner {
	return periodic.Refiner{
		WidthLimits:      c.PeakWidthLimits,
		MinHeight:        c.MinPeakHeight,
		MinSeparation:    c.MinPeakSeparation,
		OverlapThreshold: c.OverlapThreshold,
		EdgeThreshold:    c.EdgeThreshold,
		CenterBound:      c.CenterBound,
		MaxIterations:    c.MaxIterations,
	}
}

func (c Config) aperiodicFitter() aperiodic.Fitter {
	return aperiodic.Fitter{
		Mode:          c.AperiodicMode,
		MaxIterations: c.MaxIterations,
		Percentile:    c.APPercentile,
	}
}
