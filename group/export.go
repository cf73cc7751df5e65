package group

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/cwbudde/algo-specparam/fit"
	"github.com/parquet-go/parquet-go"
)

// WriteJSON writes the batch as a single JSON document holding the run ID,
// the configuration and one record per spectrum.
func (g *Result) WriteJSON(w io.Writer) error {
	doc := struct {
		RunID   string       `json:"run_id"`
		Config  fit.Config   `json:"config"`
		Records []fit.Record `json:"records"`
	}{
		RunID:   g.RunID.String(),
		Config:  g.Config,
		Records: g.Records(),
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("group: encode json: %w", err)
	}
	return nil
}

// WriteParquet writes one Snappy-compressed row per spectrum.
func (g *Result) WriteParquet(w io.Writer) error {
	pw := parquet.NewGenericWriter[fit.Record](w, parquet.Compression(&parquet.Snappy))

	if _, err := pw.Write(g.Records()); err != nil {
		_ = pw.Close()
		return fmt.Errorf("group: write parquet: %w", err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("group: close parquet: %w", err)
	}
	return nil
}

// ReadParquet reads records written by WriteParquet.
func ReadParquet(r io.ReaderAt) ([]fit.Record, error) {
	gr := parquet.NewGenericReader[fit.Record](r)
	defer gr.Close()

	out := make([]fit.Record, 0, int(gr.NumRows()))
	batch := make([]fit.Record, 256)
	for {
		n, err := gr.Read(batch)
		for _, rec := range batch[:n] {
			// Slices in batch are reused by the next Read.
			rec.AperiodicParams = append([]float64(nil), rec.AperiodicParams...)
			rec.PeakParams = append([]float64(nil), rec.PeakParams...)
			out = append(out, rec)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("group: read parquet: %w", err)
		}
	}
	return out, nil
}
