package aperiodic

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Errors returned for malformed parameters.
var (
	ErrUnknownMode   = errors.New("aperiodic: unknown mode")
	ErrInvalidParams = errors.New("aperiodic: invalid parameters")
)

// Mode selects the aperiodic functional form.
type Mode int

const (
	ModeFixed Mode = iota
	ModeKnee
)

// String returns the canonical lower-case name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeFixed:
		return "fixed"
	case ModeKnee:
		return "knee"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// NumParams returns the number of parameters of the form.
func (m Mode) NumParams() int {
	if m == ModeKnee {
		return 3
	}
	return 2
}

// ParseMode parses "fixed" or "knee" (case-insensitive).
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fixed", "":
		return ModeFixed, nil
	case "knee":
		return ModeKnee, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	if m != ModeFixed && m != ModeKnee {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMode, int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	v, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Params holds fitted aperiodic parameters. Knee is only meaningful in
// ModeKnee and is zero otherwise.
type Params struct {
	Mode     Mode
	Offset   float64
	Knee     float64
	Exponent float64
}

// Fixed returns fixed-mode parameters.
func Fixed(offset, exponent float64) Params {
	return Params{Mode: ModeFixed, Offset: offset, Exponent: exponent}
}

// WithKnee returns knee-mode parameters.
func WithKnee(offset, knee, exponent float64) Params {
	return Params{Mode: ModeKnee, Offset: offset, Knee: knee, Exponent: exponent}
}

// FromValues builds Params from a flat tuple as returned by [Params.Values].
func FromValues(mode Mode, values []float64) (Params, error) {
	if mode != ModeFixed && mode != ModeKnee {
		return Params{}, fmt.Errorf("%w: %d", ErrUnknownMode, int(mode))
	}
	if len(values) != mode.NumParams() {
		return Params{}, fmt.Errorf("%w: %s mode takes %d values, got %d",
			ErrInvalidParams, mode, mode.NumParams(), len(values))
	}
	if mode == ModeKnee {
		return WithKnee(values[0], values[1], values[2]), nil
	}
	return Fixed(values[0], values[1]), nil
}

// Values returns the parameters as a flat tuple: (offset, exponent) in fixed
// mode and (offset, knee, exponent) in knee mode.
func (p Params) Values() []float64 {
	if p.Mode == ModeKnee {
		return []float64{p.Offset, p.Knee, p.Exponent}
	}
	return []float64{p.Offset, p.Exponent}
}

// Validate checks the parameter invariants.
func (p Params) Validate() error {
	if p.Mode != ModeFixed && p.Mode != ModeKnee {
		return fmt.Errorf("%w: %d", ErrUnknownMode, int(p.Mode))
	}
	for _, v := range p.Values() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite value in %v", ErrInvalidParams, p.Values())
		}
	}
	if p.Exponent < 0 {
		return fmt.Errorf("%w: exponent %g < 0", ErrInvalidParams, p.Exponent)
	}
	if p.Knee < 0 {
		return fmt.Errorf("%w: knee %g < 0", ErrInvalidParams, p.Knee)
	}
	return nil
}

// At evaluates the aperiodic curve at a single frequency.
func (p Params) At(f float64) float64 {
	switch p.Mode {
	case ModeKnee:
		return p.Offset - math.Log10(p.Knee+math.Pow(f, p.Exponent))
	default:
		return p.Offset - p.Exponent*math.Log10(f)
	}
}

// Eval returns the aperiodic curve in log10 power over freqs.
func (p Params) Eval(freqs []float64) []float64 {
	out := make([]float64, len(freqs))
	p.EvalTo(out, freqs)
	return out
}

// EvalTo writes the aperiodic curve over freqs into dst, which must be at
// least len(freqs) long.
func (p Params) EvalTo(dst, freqs []float64) {
	for i, f := range freqs {
		dst[i] = p.At(f)
	}
}

// KneeFrequency returns the frequency at which the knee bends the curve,
// knee^(1/exponent). It is zero in fixed mode or when the exponent is zero.
func (p Params) KneeFrequency() float64 {
	if p.Mode != ModeKnee || p.Exponent == 0 || p.Knee <= 0 {
		return 0
	}
	return math.Pow(p.Knee, 1/p.Exponent)
}

func (p Params) String() string {
	if p.Mode == ModeKnee {
		return fmt.Sprintf("knee(offset=%.4f, knee=%.4f, exponent=%.4f)", p.Offset, p.Knee, p.Exponent)
	}
	return fmt.Sprintf("fixed(offset=%.4f, exponent=%.4f)", p.Offset, p.Exponent)
}
