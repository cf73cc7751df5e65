package fit

import (
	"github.com/cwbudde/algo-specparam/aperiodic"
	"github.com/cwbudde/algo-specparam/periodic"
)

// Record is the flat, stable representation of one fit used for reporting
// and export. A failed fit is represented by a Record with Failed set and all
// parameter fields empty.
type Record struct {
	Index           int       `json:"index" yaml:"index" parquet:"index"`
	Failed          bool      `json:"failed" yaml:"failed" parquet:"failed"`
	AperiodicMode   string    `json:"aperiodic_mode" yaml:"aperiodic_mode" parquet:"aperiodic_mode"`
	AperiodicParams []float64 `json:"aperiodic_params" yaml:"aperiodic_params" parquet:"aperiodic_params"`
	NumPeaks        int       `json:"n_peaks" yaml:"n_peaks" parquet:"n_peaks"`
	PeakParams      []float64 `json:"peak_params" yaml:"peak_params" parquet:"peak_params"`
	RSquared        float64   `json:"r_squared" yaml:"r_squared" parquet:"r_squared"`
	Error           float64   `json:"error" yaml:"error" parquet:"error"`
	ErrorMetric     string    `json:"error_metric" yaml:"error_metric" parquet:"error_metric"`

	FreqMin float64 `json:"freq_min" yaml:"freq_min" parquet:"freq_min"`
	FreqMax float64 `json:"freq_max" yaml:"freq_max" parquet:"freq_max"`
	FreqRes float64 `json:"freq_res" yaml:"freq_res" parquet:"freq_res"`

	PeakWidthMin      float64 `json:"peak_width_min" yaml:"peak_width_min" parquet:"peak_width_min"`
	PeakWidthMax      float64 `json:"peak_width_max" yaml:"peak_width_max" parquet:"peak_width_max"`
	MaxPeaks          int     `json:"max_n_peaks" yaml:"max_n_peaks" parquet:"max_n_peaks"`
	MinPeakHeight     float64 `json:"min_peak_height" yaml:"min_peak_height" parquet:"min_peak_height"`
	PeakThreshold     float64 `json:"peak_threshold" yaml:"peak_threshold" parquet:"peak_threshold"`
	MinPeakSeparation float64 `json:"min_peak_separation" yaml:"min_peak_separation" parquet:"min_peak_separation"`
}

// Record returns the flat representation of r.
func (r *Result) Record() Record {
	rec := Record{
		AperiodicMode:   r.Aperiodic.Mode.String(),
		AperiodicParams: r.Aperiodic.Values(),
		NumPeaks:        len(r.Peaks),
		PeakParams:      periodic.Flatten(r.Peaks),
		RSquared:        r.RSquared,
		Error:           r.Error,
		ErrorMetric:     r.Config.ErrorMetric.String(),
		FreqMin:         r.FreqRange[0],
		FreqMax:         r.FreqRange[1],
		FreqRes:         r.FreqRes,
	}
	rec.setConfig(r.Config)
	return rec
}

// FailedRecord returns the placeholder record of a fit that failed under cfg.
func FailedRecord(cfg Config) Record {
	rec := Record{
		Failed:        true,
		AperiodicMode: cfg.AperiodicMode.String(),
		ErrorMetric:   cfg.ErrorMetric.String(),
		FreqMin:       cfg.FreqRange[0],
		FreqMax:       cfg.FreqRange[1],
	}
	rec.setConfig(cfg)
	return rec
}

func (rec *Record) setConfig(cfg Config) {
	rec.PeakWidthMin = cfg.PeakWidthLimits[0]
	rec.PeakWidthMax = cfg.PeakWidthLimits[1]
	rec.MaxPeaks = cfg.MaxPeaks
	rec.MinPeakHeight = cfg.MinPeakHeight
	rec.PeakThreshold = cfg.PeakThreshold
	rec.MinPeakSeparation = cfg.MinPeakSeparation
}

// Params rebuilds typed parameters from a successful record.
func (rec Record) Params() (aperiodic.Params, []periodic.Peak, error) {
	mode, err := aperiodic.ParseMode(rec.AperiodicMode)
	if err != nil {
		return aperiodic.Params{}, nil, err
	}
	ap, err := aperiodic.FromValues(mode, rec.AperiodicParams)
	if err != nil {
		return aperiodic.Params{}, nil, err
	}
	peaks, err := periodic.Unflatten(rec.PeakParams)
	if err != nil {
		return aperiodic.Params{}, nil, err
	}
	return ap, peaks, nil
}
