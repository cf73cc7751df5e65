// Package psd estimates one-sided power spectral densities of real time
// series with Welch's method of averaged, windowed periodograms.
//
// The resulting (freqs, power) pair is the input expected by the fit package.
package psd
