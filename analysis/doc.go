// Package analysis extracts summaries from fitted spectra: peaks inside
// frequency bands and the per-frequency error of the model.
package analysis
