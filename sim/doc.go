// Package sim generates deterministic synthetic power spectra made of an
// aperiodic background and Gaussian peaks, with optional noise added in
// log10 power.
package sim
