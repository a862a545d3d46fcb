package bandpower

import (
	"math"
	"testing"
)

// axis 0.5..50 Hz in 0.5 Hz steps, the default for a 100 Hz recording.
func testAxis() []float64 {
	out := make([]float64, 100)
	for i := range out {
		out[i] = float64(i+1) * 0.5
	}
	return out
}

func flatSpectrum(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestAggregateShape(t *testing.T) {
	freqs := testAxis()
	spectra := [][]float64{flatSpectrum(1, 100), flatSpectrum(2, 100), flatSpectrum(3, 100)}

	m, err := Aggregate(spectra, []int{1, 2, 3}, freqs, DefaultBands(), DecibelOff)
	if err != nil {
		t.Fatalf("Aggregate error: %v", err)
	}

	if len(m.ROIs()) != 3 {
		t.Fatalf("rows = %d, want one per roi", len(m.ROIs()))
	}

	bands := m.Bands()
	if len(bands) != 3 || bands[0].Name != "theta" || bands[1].Name != "alpha" || bands[2].Name != "beta" {
		t.Fatalf("bands out of order: %v", bands)
	}

	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if math.Abs(m.At(i, j)-float64(i+1)) > 1e-12 {
				t.Fatalf("At(%d,%d) = %v, want %d", i, j, m.At(i, j), i+1)
			}
		}
	}
}

func TestBandSelectionInclusive(t *testing.T) {
	freqs := testAxis()

	// mark exactly 8.0 and 12.0 Hz; a mean over [8,12] must include both
	spec := flatSpectrum(0, 100)
	count := 0
	for i, f := range freqs {
		if f == 8.0 || f == 12.0 {
			spec[i] = 1
		}
		if f >= 8.0 && f <= 12.0 {
			count++
		}
	}

	m, err := Aggregate([][]float64{spec}, []int{1}, freqs, []Band{{Name: "alpha", LowHz: 8, HighHz: 12}}, DecibelOff)
	if err != nil {
		t.Fatalf("Aggregate error: %v", err)
	}

	want := 2.0 / float64(count)
	if math.Abs(m.At(0, 0)-want) > 1e-12 {
		t.Fatalf("mean = %v, want %v (both endpoints included over %d bins)", m.At(0, 0), want, count)
	}
}

func TestEmptyBandYieldsNaN(t *testing.T) {
	freqs := testAxis()
	bands := []Band{
		{Name: "alpha", LowHz: 8, HighHz: 12},
		{Name: "ultra", LowHz: 80, HighHz: 90}, // above Nyquist for this axis
	}

	m, err := Aggregate([][]float64{flatSpectrum(1, 100)}, []int{1}, freqs, bands, DecibelOff)
	if err != nil {
		t.Fatalf("Aggregate error: %v", err)
	}

	if !math.IsNaN(m.At(0, 1)) {
		t.Fatalf("empty band value = %v, want NaN", m.At(0, 1))
	}

	empty := m.EmptyBands()
	if len(empty) != 1 || empty[0] != "ultra" {
		t.Fatalf("EmptyBands = %v, want [ultra]", empty)
	}
}

func TestLegacyDecibelDoubleSquaring(t *testing.T) {
	// The band mean is already a mean of squared magnitudes. The legacy
	// formula squares it again: feeding x^2 must yield 10*log10(x^4).
	x := 3.0
	got := Decibel(x*x, DecibelLegacy)
	want := 10 * math.Log10(math.Pow(x, 4))

	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("legacy dB = %v, want %v", got, want)
	}

	if got == Decibel(x*x, DecibelStandard) {
		t.Fatalf("legacy and standard modes must differ")
	}

	if Decibel(x*x, DecibelOff) != x*x {
		t.Fatalf("off mode must pass through")
	}
}

func TestDecibelZeroPower(t *testing.T) {
	if !math.IsInf(Decibel(0, DecibelLegacy), -1) {
		t.Fatalf("legacy dB of zero power must be -Inf")
	}

	if !math.IsInf(Decibel(0, DecibelStandard), -1) {
		t.Fatalf("standard dB of zero power must be -Inf")
	}
}

func TestAggregateValidation(t *testing.T) {
	freqs := testAxis()

	if _, err := Aggregate([][]float64{flatSpectrum(1, 100)}, []int{1, 2}, freqs, DefaultBands(), DecibelOff); err == nil {
		t.Fatalf("expected error for spectra/roi count mismatch")
	}

	if _, err := Aggregate([][]float64{flatSpectrum(1, 99)}, []int{1}, freqs, DefaultBands(), DecibelOff); err == nil {
		t.Fatalf("expected error for spectrum/axis mismatch")
	}

	if _, err := Aggregate(nil, nil, freqs, nil, DecibelOff); err == nil {
		t.Fatalf("expected error for missing bands")
	}

	if _, err := Aggregate(nil, nil, freqs, []Band{{Name: "x", LowHz: 10, HighHz: 5}}, DecibelOff); err == nil {
		t.Fatalf("expected error for inverted band")
	}
}

func TestDefaultReductionsExtractColumns(t *testing.T) {
	freqs := testAxis()
	spectra := [][]float64{flatSpectrum(2, 100), flatSpectrum(4, 100)}

	m, err := Aggregate(spectra, []int{10, 20}, freqs, DefaultBands(), DecibelOff)
	if err != nil {
		t.Fatalf("Aggregate error: %v", err)
	}

	reds := DefaultReductions()
	if len(reds) != 3 {
		t.Fatalf("default reductions = %d, want 3", len(reds))
	}

	alpha, err := reds["alpha"](m)
	if err != nil {
		t.Fatalf("alpha reduction error: %v", err)
	}

	if len(alpha) != 2 || alpha[0] != 2 || alpha[1] != 4 {
		t.Fatalf("alpha = %v, want [2 4]", alpha)
	}
}

func TestBandColumnOutOfRange(t *testing.T) {
	m, err := Aggregate([][]float64{flatSpectrum(1, 100)}, []int{1}, testAxis(), DefaultBands(), DecibelOff)
	if err != nil {
		t.Fatalf("Aggregate error: %v", err)
	}

	if _, err := BandColumn(5)(m); err == nil {
		t.Fatalf("expected error for out-of-range column")
	}
}
