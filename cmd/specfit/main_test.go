package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cwbudde/algo-specparam/aperiodic"
	"github.com/cwbudde/algo-specparam/fit"
	"github.com/cwbudde/algo-specparam/group"
	"github.com/cwbudde/algo-specparam/internal/testutil"
	"github.com/cwbudde/algo-specparam/periodic"
	"github.com/cwbudde/algo-specparam/sim"
)

func spectrumCSV(t *testing.T, columns int) string {
	t.Helper()

	freqs := testutil.FreqAxis(1, 40, 0.5)
	spectra, err := sim.NewGenerator(sim.WithNoise(0.01), sim.WithUniformNoise()).
		Group(columns, freqs, aperiodic.Fixed(1, 1.5), []periodic.Peak{{Center: 10, Amplitude: 0.5, Bandwidth: 2}})
	if err != nil {
		t.Fatalf("sim: %v", err)
	}

	var b strings.Builder
	b.WriteString("freq")
	for c := range spectra {
		fmt.Fprintf(&b, ",p%d", c)
	}
	b.WriteString("\n")
	for i, f := range freqs {
		fmt.Fprintf(&b, "%g", f)
		for _, p := range spectra {
			fmt.Fprintf(&b, ",%g", p[i])
		}
		b.WriteString("\n")
	}
	return b.String()
}

func TestRunTable(t *testing.T) {
	var out, errOut bytes.Buffer
	err := run(context.Background(), []string{"-"}, strings.NewReader(spectrumCSV(t, 2)), &out, &errOut)
	if err != nil {
		t.Fatalf("run() error = %v (stderr %s)", err, errOut.String())
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header and 2 rows:\n%s", len(lines), out.String())
	}
	if !strings.Contains(lines[1], "fixed(") || !strings.Contains(lines[1], "10.") {
		t.Fatalf("unexpected row: %q", lines[1])
	}
}

func TestRunJSONAndParquet(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "spectra.csv")
	if err := os.WriteFile(in, []byte(spectrumCSV(t, 3)), 0o600); err != nil {
		t.Fatal(err)
	}
	cfgPath := filepath.Join(dir, "fit.yaml")
	if err := os.WriteFile(cfgPath, []byte("max_n_peaks: 3\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	pq := filepath.Join(dir, "out.parquet")

	var out, errOut bytes.Buffer
	args := []string{"-config", cfgPath, "-range", "2,35", "-json", "-parquet", pq, in}
	if err := run(context.Background(), args, nil, &out, &errOut); err != nil {
		t.Fatalf("run() error = %v (stderr %s)", err, errOut.String())
	}

	var doc struct {
		Config struct {
			MaxPeaks  int        `json:"max_n_peaks"`
			FreqRange [2]float64 `json:"freq_range"`
		} `json:"config"`
		Records []json.RawMessage `json:"records"`
	}
	if err := json.Unmarshal(out.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.Config.MaxPeaks != 3 || doc.Config.FreqRange != [2]float64{2, 35} || len(doc.Records) != 3 {
		t.Fatalf("doc = %+v", doc)
	}

	f, err := os.Open(pq)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	recs, err := group.ReadParquet(f)
	if err != nil {
		t.Fatalf("ReadParquet() error = %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("parquet rows = %d, want 3", len(recs))
	}
}

func TestRunTimeSeries(t *testing.T) {
	const fs = 200.0
	noise := testutil.GaussianNoise(9, 1, 20*int(fs))

	var b strings.Builder
	b.WriteString("x\n")
	for i, v := range noise {
		fmt.Fprintf(&b, "%g\n", v+2*math.Sin(2*math.Pi*20*float64(i)/fs))
	}

	var out, errOut bytes.Buffer
	args := []string{"-fs", "200", "-nperseg", "400", "-range", "2,60", "-json", "-"}
	if err := run(context.Background(), args, strings.NewReader(b.String()), &out, &errOut); err != nil {
		t.Fatalf("run() error = %v (stderr %s)", err, errOut.String())
	}

	var doc struct {
		Records []fit.Record `json:"records"`
	}
	if err := json.Unmarshal(out.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(doc.Records) != 1 || doc.Records[0].Failed {
		t.Fatalf("records = %+v", doc.Records)
	}

	peaks := doc.Records[0].PeakParams
	found := false
	for k := 0; k+2 < len(peaks); k += 3 {
		if math.Abs(peaks[k]-20) < 0.5 {
			found = true
		}
	}
	if !found {
		t.Fatalf("20 Hz peak not reported: %v", peaks)
	}
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		in   string
	}{
		{"no input", nil, ""},
		{"bad range", []string{"-range", "40,3", "-"}, "1,1\n2,1\n3,1\n"},
		{"bad mode", []string{"-mode", "lorentz", "-"}, "1,1\n2,1\n3,1\n"},
		{"single column", []string{"-"}, "1\n2\n3\n"},
		{"not numeric", []string{"-"}, "f,p\n1,x\n"},
		{"bad window", []string{"-fs", "100", "-window", "flattop", "-"}, "1\n2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out, errOut bytes.Buffer
			if err := run(context.Background(), tt.args, strings.NewReader(tt.in), &out, &errOut); err == nil {
				t.Fatalf("expected error, output:\n%s", out.String())
			}
		})
	}
}
