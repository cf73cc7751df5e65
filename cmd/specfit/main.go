// Command specfit parameterizes power spectra read from CSV files.
//
// Usage:
//
//	specfit [flags] file.csv
//
// In spectrum mode the first column holds frequencies in Hz and every further
// column one power spectrum. With -fs every column is a time series sampled
// at that rate; its Welch density estimate is fitted. A header row is
// skipped. Use "-" to read from standard input.
//
// Examples:
//
//	specfit spectra.csv
//	specfit -range 3,40 -mode knee -max-peaks 6 spectra.csv
//	specfit -fs 500 -nperseg 1000 -line-noise 48,52 eeg.csv
//	specfit -config fit.yaml -json -parquet out.parquet spectra.csv
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/cwbudde/algo-specparam/aperiodic"
	"github.com/cwbudde/algo-specparam/fit"
	"github.com/cwbudde/algo-specparam/group"
	"github.com/cwbudde/algo-specparam/psd"
	"github.com/cwbudde/algo-specparam/spectrum"
	"go.uber.org/zap"
)

type options struct {
	configPath  string
	freqRange   string
	mode        string
	maxPeaks    int
	maxPeaksSet bool
	workers     int
	jsonOut     bool
	parquetPath string
	verbose     bool
	sampleRate  float64
	segment     int
	window      string
	lineNoise   string
	input       string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options

	fs := flag.NewFlagSet("specfit", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.configPath, "config", "", "YAML fit configuration file")
	fs.StringVar(&o.freqRange, "range", "", "frequency range to fit as lo,hi (Hz)")
	fs.StringVar(&o.mode, "mode", "", "aperiodic mode: fixed or knee")
	fs.IntVar(&o.maxPeaks, "max-peaks", fit.NoPeakLimit, "maximum number of peaks (-1 for no limit)")
	fs.IntVar(&o.workers, "workers", 0, "number of concurrent fits (default GOMAXPROCS)")
	fs.BoolVar(&o.jsonOut, "json", false, "write records as JSON instead of a table")
	fs.StringVar(&o.parquetPath, "parquet", "", "also write records to this Parquet file")
	fs.BoolVar(&o.verbose, "v", false, "log fit progress to stderr")
	fs.Float64Var(&o.sampleRate, "fs", 0, "treat columns as time series at this sample rate (Hz)")
	fs.IntVar(&o.segment, "nperseg", 0, "Welch segment length in samples (default one second)")
	fs.StringVar(&o.window, "window", "hann", "Welch window: hann, hamming, blackman, rectangular, kaiser")
	fs.StringVar(&o.lineNoise, "line-noise", "", "interpolate power across lo,hi (Hz) before fitting")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: specfit [flags] file.csv\n\n")
		fmt.Fprintf(stderr, "Fits aperiodic and periodic components to power spectra.\n\n")
		fmt.Fprintf(stderr, "Flags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return o, errors.New("expected exactly one input file")
	}
	o.input = fs.Arg(0)
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "max-peaks" {
			o.maxPeaksSet = true
		}
	})
	return o, nil
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	logger := zap.NewNop()
	if o.verbose {
		if logger, err = zap.NewDevelopment(); err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()
	}

	cfg, err := buildConfig(o)
	if err != nil {
		return err
	}

	columns, err := readInput(o.input, stdin)
	if err != nil {
		return err
	}

	freqs, spectra, err := spectraFrom(o, columns)
	if err != nil {
		return err
	}
	logger.Debug("input read", zap.Int("spectra", len(spectra)), zap.Int("bins", len(freqs)))

	runner, err := group.New(cfg, group.WithWorkers(o.workers), group.WithLogger(logger))
	if err != nil {
		return err
	}

	res, err := runner.Fit(ctx, freqs, spectra)
	if err != nil {
		return err
	}

	if o.parquetPath != "" {
		if err := writeParquet(o.parquetPath, res); err != nil {
			return err
		}
	}

	if o.jsonOut {
		return res.WriteJSON(stdout)
	}
	return printTable(stdout, res)
}

func buildConfig(o options) (fit.Config, error) {
	cfg := fit.DefaultConfig()

	if o.configPath != "" {
		f, err := os.Open(o.configPath)
		if err != nil {
			return cfg, err
		}
		defer f.Close()

		if cfg, err = fit.LoadConfig(f); err != nil {
			return cfg, err
		}
	}

	var opts []fit.Option
	if o.freqRange != "" {
		r, err := parseRange(o.freqRange)
		if err != nil {
			return cfg, fmt.Errorf("-range: %w", err)
		}
		opts = append(opts, fit.WithFreqRange(r[0], r[1]))
	}
	if o.mode != "" {
		m, err := aperiodic.ParseMode(o.mode)
		if err != nil {
			return cfg, err
		}
		opts = append(opts, fit.WithAperiodicMode(m))
	}
	if o.maxPeaksSet {
		opts = append(opts, fit.WithMaxPeaks(o.maxPeaks))
	}

	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg, cfg.Validate()
}

func parseRange(s string) ([2]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return [2]float64{}, fmt.Errorf("want lo,hi, got %q", s)
	}

	var r [2]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return r, err
		}
		r[i] = v
	}
	if r[0] > r[1] {
		return r, fmt.Errorf("lo %g > hi %g", r[0], r[1])
	}
	return r, nil
}

// readInput returns the numeric columns of a CSV file, skipping a leading
// header row.
func readInput(path string, stdin io.Reader) ([][]float64, error) {
	in := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		in = f
	}

	r := csv.NewReader(in)
	r.TrimLeadingSpace = true
	r.Comment = '#'

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) > 0 {
		if _, err := strconv.ParseFloat(rows[0][0], 64); err != nil {
			rows = rows[1:]
		}
	}
	if len(rows) == 0 {
		return nil, errors.New("read csv: no data rows")
	}

	cols := make([][]float64, len(rows[0]))
	for i, row := range rows {
		for j, field := range row {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("read csv: row %d column %d: %w", i+1, j+1, err)
			}
			cols[j] = append(cols[j], v)
		}
	}
	return cols, nil
}

// spectraFrom turns input columns into a shared frequency axis and power
// spectra, estimating densities first when a sample rate is given.
func spectraFrom(o options, cols [][]float64) ([]float64, [][]float64, error) {
	var (
		freqs   []float64
		spectra [][]float64
	)

	if o.sampleRate > 0 {
		win, err := psd.ParseWindow(o.window)
		if err != nil {
			return nil, nil, err
		}

		cfg := psd.DefaultConfig(o.sampleRate)
		cfg.Window = win
		if o.segment > 0 {
			psd.WithSegmentLength(o.segment)(&cfg)
		}

		est, err := psd.NewEstimator(cfg)
		if err != nil {
			return nil, nil, err
		}
		for _, c := range cols {
			f, p, err := est.Estimate(c)
			if err != nil {
				return nil, nil, err
			}
			freqs = f
			spectra = append(spectra, p)
		}
	} else {
		if len(cols) < 2 {
			return nil, nil, errors.New("spectrum input needs a frequency column and at least one power column")
		}
		freqs, spectra = cols[0], cols[1:]
	}

	if o.lineNoise != "" {
		r, err := parseRange(o.lineNoise)
		if err != nil {
			return nil, nil, fmt.Errorf("-line-noise: %w", err)
		}
		for i, p := range spectra {
			if spectra[i], err = spectrum.Interpolate(freqs, p, r); err != nil {
				return nil, nil, err
			}
		}
	}
	return freqs, spectra, nil
}

func writeParquet(path string, res *group.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := res.WriteParquet(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func printTable(w io.Writer, res *group.Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "#\tAPERIODIC\tPEAKS\tR2\tERROR\tPEAK PARAMS (CF/PW/BW)\n")

	for i := 0; i < res.Len(); i++ {
		r, err := res.Get(i)
		if err != nil {
			fmt.Fprintf(tw, "%d\tfailed: %v\t\t\t\t\n", i, err)
			continue
		}

		peaks := make([]string, len(r.Peaks))
		for j, p := range r.Peaks {
			peaks[j] = fmt.Sprintf("%.2f/%.3f/%.2f", p.Center, p.Amplitude, p.Bandwidth)
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%.4f\t%.4f\t%s\n",
			i, r.Aperiodic, r.NumPeaks(), r.RSquared, r.Error, strings.Join(peaks, " "))
	}
	return tw.Flush()
}
