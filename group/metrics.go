package group

import (
	"errors"
	"time"

	"github.com/cwbudde/algo-specparam/fit"
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	fits     *prometheus.CounterVec
	duration prometheus.Histogram
	peaks    prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		fits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "specparam",
				Name:      "fits_total",
				Help:      "Number of spectrum fits by outcome.",
			},
			[]string{"outcome"},
		),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "specparam",
			Name:      "fit_duration_seconds",
			Help:      "Duration of single spectrum fits.",
			Buckets:   prometheus.ExponentialBuckets(1e-4, 4, 8),
		}),
		peaks: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "specparam",
			Name:      "fit_peaks",
			Help:      "Number of peaks found per successful fit.",
			Buckets:   prometheus.LinearBuckets(0, 1, 9),
		}),
	}

	var err error
	if m.fits, err = register(reg, m.fits); err != nil {
		return nil, err
	}
	if m.duration, err = register(reg, m.duration); err != nil {
		return nil, err
	}
	if m.peaks, err = register(reg, m.peaks); err != nil {
		return nil, err
	}
	return m, nil
}

// register registers c, reusing an identical collector that is already
// registered so several Runners can share one registry.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// observe is a no-op on a nil receiver.
func (m *metrics) observe(elapsed time.Duration, res *fit.Result) {
	if m == nil {
		return
	}

	m.duration.Observe(elapsed.Seconds())
	if res == nil {
		m.fits.WithLabelValues("failed").Inc()
		return
	}
	m.fits.WithLabelValues("ok").Inc()
	m.peaks.Observe(float64(res.NumPeaks()))
}
