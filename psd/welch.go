package psd

import (
	"errors"
	"fmt"
	"math"
	"sort"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"
	"gonum.org/v1/gonum/stat"
)

// Errors returned by the estimator.
var (
	ErrInvalidConfig = errors.New("psd: invalid configuration")
	ErrShortSignal   = errors.New("psd: signal shorter than one segment")
)

// Average selects how segment periodograms are combined.
type Average int

const (
	AverageMean Average = iota
	// AverageMedian is robust to transient artifacts. It is bias-corrected
	// to match the mean for Gaussian noise.
	AverageMedian
)

// Config controls a Welch estimate.
type Config struct {
	SampleRate float64
	// SegmentLength is the number of samples per segment. Segments are
	// zero-padded to the next power of two before the FFT.
	SegmentLength int
	// Overlap is the number of samples shared by consecutive segments.
	Overlap int
	Window  WindowType
	Average Average
}

// DefaultConfig returns 1 s Hann segments with 50% overlap at sampleRate.
func DefaultConfig(sampleRate float64) Config {
	n := int(math.Max(8, math.Round(sampleRate)))
	return Config{
		SampleRate:    sampleRate,
		SegmentLength: n,
		Overlap:       n / 2,
		Window:        WindowHann,
		Average:       AverageMean,
	}
}

// Option mutates a Config.
type Option func(*Config)

// WithSegmentLength sets the segment length and resets the overlap to half
// of it.
func WithSegmentLength(n int) Option {
	return func(c *Config) {
		if n >= 2 {
			c.SegmentLength = n
			c.Overlap = n / 2
		}
	}
}

// WithOverlap sets the overlap in samples.
func WithOverlap(n int) Option {
	return func(c *Config) {
		if n >= 0 {
			c.Overlap = n
		}
	}
}

// WithWindow selects the segment window.
func WithWindow(t WindowType) Option {
	return func(c *Config) {
		c.Window = t
	}
}

// WithMedian averages segments with the bias-corrected median.
func WithMedian() Option {
	return func(c *Config) {
		c.Average = AverageMedian
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch {
	case !(c.SampleRate > 0) || math.IsInf(c.SampleRate, 0):
		return fmt.Errorf("%w: sample rate %g", ErrInvalidConfig, c.SampleRate)
	case c.SegmentLength < 2:
		return fmt.Errorf("%w: segment length %d", ErrInvalidConfig, c.SegmentLength)
	case c.Overlap < 0 || c.Overlap >= c.SegmentLength:
		return fmt.Errorf("%w: overlap %d must be in [0, %d)", ErrInvalidConfig, c.Overlap, c.SegmentLength)
	case c.Window < WindowHann || c.Window > WindowKaiser:
		return fmt.Errorf("%w: window %v", ErrInvalidConfig, c.Window)
	case c.Average != AverageMean && c.Average != AverageMedian:
		return fmt.Errorf("%w: average %d", ErrInvalidConfig, int(c.Average))
	}
	return nil
}

// Estimator computes Welch estimates for one configuration. It owns its FFT
// plan and buffers and must not be used concurrently.
type Estimator struct {
	cfg    Config
	nfft   int
	plan   *algofft.Plan[complex128]
	window []float64
	scale  float64

	seg   []float64
	in    []complex128
	out   []complex128
	re    []float64
	im    []float64
	pgram []float64
}

// NewEstimator validates cfg and prepares the FFT plan.
func NewEstimator(cfg Config) (*Estimator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	n := cfg.SegmentLength
	nfft := nextPowerOf2(n)
	plan, err := algofft.NewPlan64(nfft)
	if err != nil {
		return nil, fmt.Errorf("psd: fft plan: %w", err)
	}

	win := Window(cfg.Window, n)
	sumSq := 0.0
	for _, w := range win {
		sumSq += w * w
	}

	bins := nfft/2 + 1
	return &Estimator{
		cfg:    cfg,
		nfft:   nfft,
		plan:   plan,
		window: win,
		scale:  1 / (cfg.SampleRate * sumSq),
		seg:    make([]float64, n),
		in:     make([]complex128, nfft),
		out:    make([]complex128, nfft),
		re:     make([]float64, bins),
		im:     make([]float64, bins),
		pgram:  make([]float64, bins),
	}, nil
}

// Config returns the estimator configuration.
func (e *Estimator) Config() Config { return e.cfg }

// FFTSize returns the padded transform length.
func (e *Estimator) FFTSize() int { return e.nfft }

// Freqs returns the frequency of every output bin.
func (e *Estimator) Freqs() []float64 {
	bins := e.nfft/2 + 1
	df := e.cfg.SampleRate / float64(e.nfft)
	out := make([]float64, bins)
	for i := range out {
		out[i] = float64(i) * df
	}
	return out
}

// Estimate returns the one-sided density spectrum of signal in units²/Hz.
// Each segment has its mean removed before windowing; trailing samples that
// do not fill a segment are ignored.
func (e *Estimator) Estimate(signal []float64) (freqs, power []float64, err error) {
	n := e.cfg.SegmentLength
	if len(signal) < n {
		return nil, nil, fmt.Errorf("%w: %d < %d", ErrShortSignal, len(signal), n)
	}

	step := n - e.cfg.Overlap
	segments := (len(signal)-n)/step + 1
	bins := e.nfft/2 + 1

	periodograms := make([][]float64, segments)
	for s := range periodograms {
		if err := e.periodogram(signal[s*step : s*step+n]); err != nil {
			return nil, nil, err
		}
		periodograms[s] = append([]float64(nil), e.pgram...)
	}

	power = make([]float64, bins)
	switch e.cfg.Average {
	case AverageMedian:
		column := make([]float64, segments)
		bias := medianBias(segments)
		for k := range power {
			for s, p := range periodograms {
				column[s] = p[k]
			}
			sort.Float64s(column)
			power[k] = stat.Quantile(0.5, stat.Empirical, column, nil) / bias
		}
	default:
		for _, p := range periodograms {
			for k, v := range p {
				power[k] += v
			}
		}
		for k := range power {
			power[k] /= float64(segments)
		}
	}

	return e.Freqs(), power, nil
}

// periodogram writes the scaled one-sided periodogram of seg into e.pgram.
func (e *Estimator) periodogram(seg []float64) error {
	copy(e.seg, seg)

	mean := stat.Mean(e.seg, nil)
	for i := range e.seg {
		e.seg[i] -= mean
	}
	vecmath.MulBlockInPlace(e.seg, e.window)

	for i := range e.in {
		e.in[i] = 0
	}
	for i, v := range e.seg {
		e.in[i] = complex(v, 0)
	}
	if err := e.plan.Forward(e.out, e.in); err != nil {
		return fmt.Errorf("psd: fft: %w", err)
	}

	for k := range e.re {
		e.re[k] = real(e.out[k])
		e.im[k] = imag(e.out[k])
	}
	vecmath.Power(e.pgram, e.re, e.im)

	// Fold negative frequencies onto the positive ones; DC and Nyquist have
	// no mirror.
	last := len(e.pgram) - 1
	for k := range e.pgram {
		e.pgram[k] *= e.scale
		if k > 0 && k < last {
			e.pgram[k] *= 2
		}
	}
	return nil
}

func nextPowerOf2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// medianBias returns the ratio of median to mean of n chi-squared(2)
// periodogram values.
func medianBias(n int) float64 {
	bias := 1.0
	for k := 1; k <= (n-1)/2; k++ {
		bias += 1/float64(2*k+1) - 1/float64(2*k)
	}
	return bias
}

// Welch estimates the density spectrum of signal sampled at sampleRate.
func Welch(signal []float64, sampleRate float64, opts ...Option) (freqs, power []float64, err error) {
	cfg := DefaultConfig(sampleRate)
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	e, err := NewEstimator(cfg)
	if err != nil {
		return nil, nil, err
	}
	return e.Estimate(signal)
}
