// Package spectrum validates and prepares power spectra for parameterization.
//
// Raw spectra are given as parallel frequency and linear power slices. Prepare
// trims them to a frequency range, drops a 0 Hz bin (the aperiodic model is
// undefined there) and converts power to log10 units. The resulting
// [Spectrum] is the immutable working representation used by the aperiodic
// and periodic fitters.
package spectrum
