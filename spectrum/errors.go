package spectrum

import (
	"errors"
	"fmt"
)

// Errors returned by spectrum preparation.
var (
	ErrInvalidRange   = errors.New("spectrum: invalid frequency range")
	ErrInvalidPower   = errors.New("spectrum: invalid power values")
	ErrLengthMismatch = errors.New("spectrum: freqs and power must have same length")
	ErrNotIncreasing  = errors.New("spectrum: frequencies must be finite and strictly increasing")
)

// InvalidRangeError reports a requested frequency range that leaves too few
// points to fit.
type InvalidRangeError struct {
	Requested [2]float64
	Points    int
	MinPoints int
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("spectrum: range [%g, %g] holds %d points, need at least %d",
		e.Requested[0], e.Requested[1], e.Points, e.MinPoints)
}

// Is makes errors.Is(err, ErrInvalidRange) hold.
func (e *InvalidRangeError) Is(target error) bool { return target == ErrInvalidRange }

// InvalidPowerError reports a non-positive or non-finite power value inside
// the fitted range. Index refers to the caller's input slices.
type InvalidPowerError struct {
	Index int
	Freq  float64
	Value float64
}

func (e *InvalidPowerError) Error() string {
	return fmt.Sprintf("spectrum: power %g at %g Hz (index %d) must be finite and > 0",
		e.Value, e.Freq, e.Index)
}

// Is makes errors.Is(err, ErrInvalidPower) hold.
func (e *InvalidPowerError) Is(target error) bool { return target == ErrInvalidPower }
