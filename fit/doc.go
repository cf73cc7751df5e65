// Package fit parameterizes a power spectrum into an aperiodic background and
// Gaussian peaks.
//
// A fit runs as a small fixed-depth state machine:
//
//	Init → AperiodicFit1 → Flatten → PeakSearch → PeakRefine → AperiodicFit2 → Converged
//
// with any fatal error leading to Failed. The first aperiodic fit is robust
// to peaks; the second is made on the spectrum with the refined peaks removed,
// which corrects background bias from peaks overlapping it. With
// Config.RefitPasses > 1 the PeakRefine → AperiodicFit2 pair repeats.
//
// The result of a successful fit is published at once as a [Result]; a failed
// fit returns only the error. Non-fatal conditions (a candidate peak that
// could not be fitted, a joint peak fit that fell back to the candidates) are
// recorded in Result.Warnings and logged.
//
// A [Fitter] reuses working buffers between fits and must not be shared
// between goroutines; create one per worker instead.
package fit
