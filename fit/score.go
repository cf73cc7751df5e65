package fit

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// ErrUnknownMetric is returned for unsupported error metrics.
var ErrUnknownMetric = errors.New("fit: unknown error metric")

// Metric selects how the fit error is computed from the residuals between
// the model and the observed log power.
type Metric int

const (
	MetricMAE  Metric = iota // mean absolute error
	MetricMSE                // mean squared error
	MetricRMSE               // root mean squared error
)

func (m Metric) String() string {
	switch m {
	case MetricMAE:
		return "mae"
	case MetricMSE:
		return "mse"
	case MetricRMSE:
		return "rmse"
	default:
		return fmt.Sprintf("Metric(%d)", int(m))
	}
}

// ParseMetric parses "mae", "mse" or "rmse" (case-insensitive).
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mae", "":
		return MetricMAE, nil
	case "mse":
		return MetricMSE, nil
	case "rmse":
		return MetricRMSE, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMetric, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Metric) MarshalText() ([]byte, error) {
	if m < MetricMAE || m > MetricRMSE {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMetric, int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Metric) UnmarshalText(text []byte) error {
	v, err := ParseMetric(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// RSquared returns 1 - SS_res/SS_tot of model against observed. When observed
// is constant it returns 1 for an exact model and 0 otherwise.
func RSquared(observed, model []float64) float64 {
	mean := stat.Mean(observed, nil)

	var ssRes, ssTot float64
	for i, y := range observed {
		r := y - model[i]
		ssRes += r * r
		d := y - mean
		ssTot += d * d
	}

	if ssTot == 0 {
		if ssRes == 0 {
			return 1
		}
		return 0
	}
	return 1 - ssRes/ssTot
}

// ComputeError returns the fit error of model against observed under metric.
func ComputeError(observed, model []float64, metric Metric) float64 {
	if len(observed) == 0 {
		return 0
	}

	var sum float64
	for i, y := range observed {
		r := y - model[i]
		if metric == MetricMAE {
			sum += math.Abs(r)
		} else {
			sum += r * r
		}
	}

	mean := sum / float64(len(observed))
	if metric == MetricRMSE {
		return math.Sqrt(mean)
	}
	return mean
}
