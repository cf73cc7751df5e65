package fit

import (
	"testing"

	"github.com/cwbudde/algo-specparam/internal/testutil"
	"github.com/cwbudde/algo-specparam/sim"
)

func BenchmarkFit(b *testing.B) {
	freqs := testutil.FreqAxis(1, 50, 0.25)
	power, err := sim.NewGenerator(sim.WithNoise(0.01), sim.WithUniformNoise()).
		Spectrum(freqs, background, fourPeaks)
	if err != nil {
		b.Fatal(err)
	}

	f, err := NewFitter(DefaultConfig())
	if err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := f.Fit(freqs, power); err != nil {
			b.Fatal(err)
		}
	}
}
