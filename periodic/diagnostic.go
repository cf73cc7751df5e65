package periodic

import "fmt"

// DiagnosticKind classifies a non-fatal condition met while fitting peaks.
type DiagnosticKind int

const (
	// PeakFitWarning: a single candidate failed to fit and was discarded.
	PeakFitWarning DiagnosticKind = iota + 1
	// RefinementFallback: the joint fit failed and unrefined candidates
	// were kept.
	RefinementFallback
)

func (k DiagnosticKind) String() string {
	switch k {
	case PeakFitWarning:
		return "peak_fit_warning"
	case RefinementFallback:
		return "refinement_fallback"
	default:
		return fmt.Sprintf("DiagnosticKind(%d)", int(k))
	}
}

// Diagnostic records a non-fatal condition. Freq is the frequency the
// condition relates to, or zero when it concerns all peaks.
type Diagnostic struct {
	Kind DiagnosticKind
	Freq float64
	Err  error
}

func (d Diagnostic) String() string {
	if d.Freq != 0 {
		return fmt.Sprintf("%s at %.2f Hz: %v", d.Kind, d.Freq, d.Err)
	}
	return fmt.Sprintf("%s: %v", d.Kind, d.Err)
}
