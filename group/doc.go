// Package group fits many power spectra that share a frequency axis.
//
// Spectra are fitted independently by a pool of workers, each owning its own
// fit.Fitter. A spectrum that fails to fit leaves a nil placeholder and its
// error at the same index; the batch continues. Cancelling the context stops
// new fits from being submitted but lets running fits finish.
//
// Results can be exported as flat fit.Record rows in JSON or Parquet form.
package group
