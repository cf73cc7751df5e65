package fit_test

import (
	"fmt"
	"strings"

	"github.com/cwbudde/algo-specparam/aperiodic"
	"github.com/cwbudde/algo-specparam/fit"
	"github.com/cwbudde/algo-specparam/periodic"
	"github.com/cwbudde/algo-specparam/sim"
)

func ExampleFit() {
	freqs, _ := sim.FreqAxis([2]float64{1, 40}, 0.5)
	power, _ := sim.NewGenerator().Spectrum(freqs, aperiodic.Fixed(1, 2),
		[]periodic.Peak{{Center: 10, Amplitude: 0.6, Bandwidth: 2}})

	res, err := fit.Fit(freqs, power, fit.DefaultConfig())
	if err != nil {
		fmt.Println(err)
		return
	}

	fmt.Printf("exponent: %.2f\n", res.Aperiodic.Exponent)
	for _, p := range res.Peaks {
		fmt.Printf("peak: %.1f Hz, amplitude %.2f\n", p.Center, p.Amplitude)
	}
	fmt.Printf("r2 > 0.99: %v\n", res.RSquared > 0.99)
	// Output:
	// exponent: 2.00
	// peak: 10.0 Hz, amplitude 0.60
	// r2 > 0.99: true
}

func ExampleLoadConfig() {
	cfg, err := fit.LoadConfig(strings.NewReader("max_n_peaks: 4\naperiodic_mode: knee\n"))
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(cfg.MaxPeaks, cfg.AperiodicMode, cfg.ErrorMetric)
	// Output:
	// 4 knee mae
}
