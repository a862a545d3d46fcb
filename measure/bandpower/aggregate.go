package bandpower

import (
	"fmt"
	"math"
)

// DecibelMode selects the power-to-decibel conversion applied to band means.
type DecibelMode int

const (
	// DecibelLegacy applies 10*log10(x^2) to the band mean. The mean is
	// already a mean of squared magnitudes, so the magnitude ends up
	// squared twice. Kept as the default for output compatibility with
	// existing result sets.
	DecibelLegacy DecibelMode = iota

	// DecibelStandard applies the conventional 10*log10(x).
	DecibelStandard

	// DecibelOff leaves band means in linear power.
	DecibelOff
)

// Matrix is the band-power result: one row per ROI, one column per band, in
// the configured band order.
type Matrix struct {
	rois  []int
	bands []Band
	data  []float64
	empty []string
}

// ROIs returns the row identifiers in aggregation order.
func (m *Matrix) ROIs() []int {
	out := make([]int, len(m.rois))
	copy(out, m.rois)
	return out
}

// Bands returns the column definitions in order.
func (m *Matrix) Bands() []Band {
	out := make([]Band, len(m.bands))
	copy(out, m.bands)
	return out
}

// At returns the power of ROI row i in band column j.
func (m *Matrix) At(i, j int) float64 {
	return m.data[i*len(m.bands)+j]
}

// Column returns one band's values across all ROIs.
func (m *Matrix) Column(j int) ([]float64, error) {
	if j < 0 || j >= len(m.bands) {
		return nil, fmt.Errorf("bandpower: band column %d out of range [0,%d)", j, len(m.bands))
	}

	out := make([]float64, len(m.rois))
	for i := range out {
		out[i] = m.At(i, j)
	}
	return out, nil
}

// EmptyBands returns the names of bands that selected zero frequency bins.
// Their columns hold NaN.
func (m *Matrix) EmptyBands() []string {
	out := make([]string, len(m.empty))
	copy(out, m.empty)
	return out
}

// Aggregate integrates each ROI spectrum over each band: the mean of the
// spectral values at all bins with band.LowHz <= f <= band.HighHz, bounds
// inclusive. A band selecting no bins yields NaN for every ROI and is
// reported via EmptyBands.
//
// spectra holds one spectrum per entry of rois, each aligned with freqs.
func Aggregate(spectra [][]float64, rois []int, freqs []float64, bands []Band, mode DecibelMode) (*Matrix, error) {
	if err := ValidateBands(bands); err != nil {
		return nil, err
	}
	if len(spectra) != len(rois) {
		return nil, fmt.Errorf("bandpower: %d spectra for %d rois: %w", len(spectra), len(rois), errAxisMismatch)
	}
	for i, s := range spectra {
		if len(s) != len(freqs) {
			return nil, fmt.Errorf("bandpower: spectrum %d has %d bins, axis has %d: %w", i, len(s), len(freqs), errAxisMismatch)
		}
	}

	m := &Matrix{
		rois:  append([]int(nil), rois...),
		bands: append([]Band(nil), bands...),
		data:  make([]float64, len(rois)*len(bands)),
	}

	for j, band := range bands {
		lo, hi, ok := binRange(freqs, band)
		if !ok {
			m.empty = append(m.empty, band.Name)
			for i := range rois {
				m.data[i*len(bands)+j] = math.NaN()
			}
			continue
		}

		n := float64(hi - lo + 1)
		for i, spec := range spectra {
			sum := 0.0
			for k := lo; k <= hi; k++ {
				sum += spec[k]
			}
			m.data[i*len(bands)+j] = Decibel(sum/n, mode)
		}
	}

	return m, nil
}

// binRange returns the inclusive bin index range a band selects on an
// ascending frequency axis, or ok=false when no bin falls inside.
func binRange(freqs []float64, band Band) (lo, hi int, ok bool) {
	lo = -1
	for i, f := range freqs {
		if f < band.LowHz {
			continue
		}
		if f > band.HighHz {
			break
		}
		if lo < 0 {
			lo = i
		}
		hi = i
	}

	if lo < 0 {
		return 0, 0, false
	}
	return lo, hi, true
}

// Decibel converts a linear band power according to mode. Zero power maps
// to -Inf; NaN propagates.
func Decibel(v float64, mode DecibelMode) float64 {
	switch mode {
	case DecibelLegacy:
		if v == 0 {
			return math.Inf(-1)
		}
		return 10 * math.Log10(v*v)
	case DecibelStandard:
		if v == 0 {
			return math.Inf(-1)
		}
		return 10 * math.Log10(v)
	default:
		return v
	}
}
