package fit

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-specparam/aperiodic"
	"github.com/cwbudde/algo-specparam/periodic"
	"github.com/cwbudde/algo-specparam/spectrum"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
)

// State is a stage of a single fit.
type State int

const (
	StateInit State = iota
	StateAperiodicFit1
	StateFlatten
	StatePeakSearch
	StatePeakRefine
	StateAperiodicFit2
	StateConverged
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateAperiodicFit1:
		return "aperiodic_fit_1"
	case StateFlatten:
		return "flatten"
	case StatePeakSearch:
		return "peak_search"
	case StatePeakRefine:
		return "peak_refine"
	case StateAperiodicFit2:
		return "aperiodic_fit_2"
	case StateConverged:
		return "converged"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool { return s == StateConverged || s == StateFailed }

// StateError wraps the fatal error that moved a fit to StateFailed together
// with the state it happened in.
type StateError struct {
	State State
	Err   error
}

func (e *StateError) Error() string { return fmt.Sprintf("fit: %s: %v", e.State, e.Err) }

// Unwrap returns the underlying error.
func (e *StateError) Unwrap() error { return e.Err }

// machine carries one fit through its states. Every step reads only what the
// previous steps produced, so each transition can be exercised in isolation.
type machine struct {
	cfg      Config
	detector *periodic.Detector
	refiner  periodic.Refiner
	apFitter aperiodic.Fitter
	log      *zap.Logger

	state State
	// pass counts completed AperiodicFit2 steps.
	pass int

	spec       *spectrum.Spectrum
	ap         aperiodic.Params
	flat       []float64
	candidates []periodic.Peak
	peaks      []periodic.Peak
	diags      []periodic.Diagnostic

	result *Result
	err    error
}

// step performs the work of the current state and moves to the next one.
func (m *machine) step() {
	from := m.state

	var err error
	switch m.state {
	case StateInit:
		err = m.init()
		m.advance(err, StateAperiodicFit1)
	case StateAperiodicFit1:
		m.ap, err = m.apFitter.FitRobust(m.spec.Freqs, m.spec.LogPower)
		m.advance(err, StateFlatten)
	case StateFlatten:
		m.flatten()
		m.advance(nil, StatePeakSearch)
	case StatePeakSearch:
		var diags []periodic.Diagnostic
		m.candidates, diags = m.detector.Detect(m.spec.Freqs, m.flat)
		m.record(diags)
		m.advance(nil, StatePeakRefine)
	case StatePeakRefine:
		var diags []periodic.Diagnostic
		m.peaks, diags = m.refiner.Refine(m.spec.Freqs, m.flat, m.candidates)
		m.record(diags)
		m.advance(nil, StateAperiodicFit2)
	case StateAperiodicFit2:
		if err = m.refitAperiodic(); err != nil {
			m.advance(err, StateFailed)
			break
		}
		m.advance(nil, m.afterRefit())
	default:
		return
	}

	m.log.Debug("fit transition",
		zap.Stringer("from", from),
		zap.Stringer("to", m.state),
		zap.Int("peaks", len(m.peaks)),
	)
}

// run steps until a terminal state is reached. The state graph is acyclic
// apart from the refit loop bounded by Config.RefitPasses.
func (m *machine) run() (*Result, error) {
	for !m.state.Terminal() {
		m.step()
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *machine) advance(err error, next State) {
	if err != nil {
		m.err = &StateError{State: m.state, Err: err}
		m.state = StateFailed
		return
	}
	m.state = next
}

func (m *machine) init() error {
	if m.spec == nil {
		return spectrum.ErrLengthMismatch
	}
	if m.spec.Len() < spectrum.MinPoints {
		return &spectrum.InvalidRangeError{Requested: m.spec.Range, Points: m.spec.Len(), MinPoints: spectrum.MinPoints}
	}
	if len(m.spec.LogPower) != m.spec.Len() {
		return spectrum.ErrLengthMismatch
	}
	for i, v := range m.spec.LogPower {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &spectrum.InvalidPowerError{Index: i, Freq: m.spec.Freqs[i], Value: math.Pow(10, v)}
		}
	}
	if cap(m.flat) < m.spec.Len() {
		m.flat = make([]float64, m.spec.Len())
	}
	m.flat = m.flat[:m.spec.Len()]
	m.candidates, m.peaks, m.diags, m.pass = nil, nil, nil, 0
	return nil
}

func (m *machine) flatten() {
	m.ap.EvalTo(m.flat, m.spec.Freqs)
	floats.SubTo(m.flat, m.spec.LogPower, m.flat)
}

// refitAperiodic fits the background to the original log power with the
// refined peaks removed.
func (m *machine) refitAperiodic() error {
	residual := make([]float64, m.spec.Len())
	copy(residual, m.spec.LogPower)
	for i, f := range m.spec.Freqs {
		for _, p := range m.peaks {
			residual[i] -= p.At(f)
		}
	}

	ap, err := m.apFitter.Fit(m.spec.Freqs, residual)
	if err != nil {
		return err
	}
	m.ap = ap
	m.pass++
	return nil
}

// afterRefit returns the state following AperiodicFit2. Further passes
// re-flatten against the new background and refine the current peaks.
func (m *machine) afterRefit() State {
	if m.pass < m.cfg.RefitPasses {
		m.flatten()
		m.candidates = m.peaks
		return StatePeakRefine
	}

	m.result = Assemble(m.spec, m.ap, m.peaks, m.cfg.ErrorMetric)
	m.result.Warnings = m.diags
	m.result.Config = m.cfg
	return StateConverged
}

func (m *machine) record(diags []periodic.Diagnostic) {
	for _, d := range diags {
		m.log.Warn("peak diagnostic",
			zap.Stringer("kind", d.Kind),
			zap.Float64("freq", d.Freq),
			zap.Error(d.Err),
		)
	}
	m.diags = append(m.diags, diags...)
}
