// Package periodic detects and refines the narrowband peaks of a flattened
// power spectrum.
//
// Each peak is a Gaussian in log10 power over frequency,
//
//	g(f) = amplitude * exp(-(f - center)^2 / (2 * (bandwidth/2)^2))
//
// so the bandwidth is twice the Gaussian standard deviation.
//
// [Detector] finds candidates greedily: take the maximum of a private working
// copy of the flattened spectrum, fit one Gaussian around it, subtract it and
// repeat. [Refiner] re-fits all candidates jointly against the untouched
// flattened spectrum and prunes the result so that every surviving peak is
// tall enough and well separated from its neighbours.
package periodic
