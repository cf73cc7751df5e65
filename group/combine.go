package group

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"
)

// ErrIncompatible is returned by Combine when batches differ in settings or
// frequency axis.
var ErrIncompatible = errors.New("group: batches are not compatible")

// Combine concatenates batches fitted with identical settings over the same
// frequency axis. The combined Result gets a fresh RunID; per-spectrum fits
// and errors keep their order.
func Combine(batches ...*Result) (*Result, error) {
	var first *Result
	for _, b := range batches {
		if b != nil {
			first = b
			break
		}
	}
	if first == nil {
		return nil, ErrNoSpectra
	}

	out := &Result{
		RunID:  uuid.New(),
		Config: first.Config,
		Freqs:  append([]float64(nil), first.Freqs...),
	}

	for i, b := range batches {
		if b == nil {
			continue
		}
		if b.Config != first.Config {
			return nil, fmt.Errorf("%w: batch %d uses different settings", ErrIncompatible, i)
		}
		if !floats.Equal(b.Freqs, first.Freqs) {
			return nil, fmt.Errorf("%w: batch %d uses a different frequency axis", ErrIncompatible, i)
		}

		out.results = append(out.results, b.results...)
		out.errs = append(out.errs, b.errs...)
	}
	return out, nil
}

// Fit3D fits a stack of batches that share freqs, one Result per row of
// spectra. On cancellation the rows fitted so far are returned, including
// the partial row, together with ctx.Err().
func (r *Runner) Fit3D(ctx context.Context, freqs []float64, spectra [][][]float64) ([]*Result, error) {
	if len(spectra) == 0 {
		return nil, ErrNoSpectra
	}

	out := make([]*Result, 0, len(spectra))
	for i, row := range spectra {
		res, err := r.Fit(ctx, freqs, row)
		if res != nil {
			out = append(out, res)
		}
		if err != nil {
			return out, fmt.Errorf("row %d: %w", i, err)
		}
	}
	return out, nil
}
