package group

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
)

func TestWriteJSON(t *testing.T) {
	freqs, spectra := batch(t)
	res, err := newRunner(t).Fit(context.Background(), freqs, spectra)
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	var buf bytes.Buffer
	if err := res.WriteJSON(&buf); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}

	var doc struct {
		RunID  string `json:"run_id"`
		Config struct {
			AperiodicMode string `json:"aperiodic_mode"`
		} `json:"config"`
		Records []struct {
			Index    int       `json:"index"`
			Failed   bool      `json:"failed"`
			NumPeaks int       `json:"n_peaks"`
			Params   []float64 `json:"aperiodic_params"`
		} `json:"records"`
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if doc.RunID != res.RunID.String() || doc.Config.AperiodicMode != "fixed" {
		t.Fatalf("header = %q %q", doc.RunID, doc.Config.AperiodicMode)
	}
	if len(doc.Records) != len(spectra) {
		t.Fatalf("got %d records, want %d", len(doc.Records), len(spectra))
	}
	if !doc.Records[badIndex].Failed || doc.Records[0].NumPeaks != 1 || len(doc.Records[0].Params) != 2 {
		t.Fatalf("records = %+v", doc.Records)
	}
}

func TestWriteParquet(t *testing.T) {
	freqs, spectra := batch(t)
	res, err := newRunner(t).Fit(context.Background(), freqs, spectra)
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	var buf bytes.Buffer
	if err := res.WriteParquet(&buf); err != nil {
		t.Fatalf("WriteParquet() error = %v", err)
	}

	recs, err := ReadParquet(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("ReadParquet() error = %v", err)
	}

	want := res.Records()
	if len(recs) != len(want) {
		t.Fatalf("got %d rows, want %d", len(recs), len(want))
	}
	for i, rec := range recs {
		if rec.Index != i || rec.Failed != want[i].Failed || rec.NumPeaks != want[i].NumPeaks {
			t.Fatalf("row %d = %+v, want %+v", i, rec, want[i])
		}
		if rec.RSquared != want[i].RSquared || len(rec.PeakParams) != len(want[i].PeakParams) {
			t.Fatalf("row %d metrics = %+v, want %+v", i, rec, want[i])
		}
		if rec.AperiodicMode != want[i].AperiodicMode {
			t.Fatalf("row %d mode = %q", i, rec.AperiodicMode)
		}
	}
}
