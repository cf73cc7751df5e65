// Package aperiodic models and fits the scale-free background of a power
// spectrum.
//
// Two forms are supported, selected by [Mode]:
//
//	fixed: log10(P) = offset - exponent*log10(f)
//	knee:  log10(P) = offset - log10(knee + f^exponent)
//
// [Params] carries the mode tag together with the parameters, and [Params.Eval]
// is the single dispatch point for evaluating either form. [Fitter] performs
// bounded nonlinear least-squares fits (exponent >= 0, knee >= 0) with one
// fallback attempt from a flat start before reporting a [FitError].
package aperiodic
