package sim

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/cwbudde/algo-specparam/aperiodic"
	"github.com/cwbudde/algo-specparam/periodic"
)

// ErrInvalidAxis is returned for frequency axes that cannot be built.
var ErrInvalidAxis = errors.New("sim: invalid frequency axis")

// Generator creates deterministic spectra from a shared noise configuration.
type Generator struct {
	seed    int64
	noise   float64
	uniform bool
}

// Option configures a Generator.
type Option func(*Generator)

// WithSeed sets the random seed for noise generation.
func WithSeed(seed int64) Option {
	return func(g *Generator) {
		g.seed = seed
	}
}

// WithNoise sets the noise level in log10 power. For normal noise it is the
// standard deviation; for uniform noise the half width.
func WithNoise(level float64) Option {
	return func(g *Generator) {
		if level >= 0 {
			g.noise = level
		}
	}
}

// WithUniformNoise draws noise uniformly from [-level, level) instead of a
// normal distribution, which bounds the largest excursion.
func WithUniformNoise() Option {
	return func(g *Generator) {
		g.uniform = true
	}
}

// NewGenerator creates a noiseless generator with seed 1.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{seed: 1}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// Seed returns the current seed.
func (g *Generator) Seed() int64 { return g.seed }

// FreqAxis returns frequencies from freqRange[0] to freqRange[1] inclusive in
// steps of res.
func FreqAxis(freqRange [2]float64, res float64) ([]float64, error) {
	if !(res > 0) || !(freqRange[1] >= freqRange[0]) || freqRange[0] < 0 || math.IsInf(freqRange[1], 0) {
		return nil, fmt.Errorf("%w: range %v, resolution %g", ErrInvalidAxis, freqRange, res)
	}

	n := int(math.Floor((freqRange[1]-freqRange[0])/res+1e-9)) + 1
	out := make([]float64, n)
	for i := range out {
		out[i] = freqRange[0] + float64(i)*res
	}
	return out, nil
}

// LogPower evaluates the noiseless model in log10 power.
func LogPower(freqs []float64, ap aperiodic.Params, peaks []periodic.Peak) []float64 {
	out := ap.Eval(freqs)
	periodic.AddTo(out, freqs, peaks)
	return out
}

// Spectrum returns linear power for the model over freqs with the generator's
// noise. Frequencies must be > 0.
func (g *Generator) Spectrum(freqs []float64, ap aperiodic.Params, peaks []periodic.Peak) ([]float64, error) {
	return g.spectrum(rand.New(rand.NewSource(g.seed)), freqs, ap, peaks)
}

// Group returns n spectra sharing the model, each with its own noise draw.
// Spectrum i uses seed Seed()+i, so Group(...)[0] equals Spectrum(...).
func (g *Generator) Group(n int, freqs []float64, ap aperiodic.Params, peaks []periodic.Peak) ([][]float64, error) {
	if n <= 0 {
		return nil, fmt.Errorf("sim: group size must be > 0: %d", n)
	}

	out := make([][]float64, n)
	for i := range out {
		p, err := g.spectrum(rand.New(rand.NewSource(g.seed+int64(i))), freqs, ap, peaks)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

func (g *Generator) spectrum(rng *rand.Rand, freqs []float64, ap aperiodic.Params, peaks []periodic.Peak) ([]float64, error) {
	if len(freqs) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrInvalidAxis)
	}
	for _, f := range freqs {
		if !(f > 0) {
			return nil, fmt.Errorf("%w: frequency %g must be > 0", ErrInvalidAxis, f)
		}
	}
	if err := ap.Validate(); err != nil {
		return nil, err
	}

	lp := LogPower(freqs, ap, peaks)
	for i := range lp {
		lp[i] = math.Pow(10, lp[i]+g.draw(rng))
	}
	return lp, nil
}

func (g *Generator) draw(rng *rand.Rand) float64 {
	if g.noise == 0 {
		return 0
	}
	if g.uniform {
		return (rng.Float64()*2 - 1) * g.noise
	}
	return rng.NormFloat64() * g.noise
}
