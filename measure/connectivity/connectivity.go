// Package connectivity computes band-limited inter-ROI connectivity for
// named ROI networks.
//
// The metric is the absolute imaginary part of the coherency: the cross
// spectrum normalized by the geometric mean of the two auto spectra. Taking
// only the imaginary part suppresses zero-lag coupling, which in source
// space is dominated by leakage rather than genuine interaction.
package connectivity

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-neuro/dsp/welch"
	"github.com/cwbudde/algo-neuro/measure/bandpower"
	"github.com/cwbudde/algo-neuro/source"
)

// Stack is the per-network result: one symmetric ROI x ROI matrix per band,
// diagonal zeroed and excluded from reductions.
type Stack struct {
	network string
	rois    []int
	bands   []bandpower.Band
	mats    [][]float64 // one n*n row-major matrix per band
	empty   []string
	n       int
}

// Network returns the network name.
func (s *Stack) Network() string { return s.network }

// ROIs returns the member ROI identifiers in matrix order.
func (s *Stack) ROIs() []int {
	out := make([]int, len(s.rois))
	copy(out, s.rois)
	return out
}

// Bands returns the band definitions in order.
func (s *Stack) Bands() []bandpower.Band {
	out := make([]bandpower.Band, len(s.bands))
	copy(out, s.bands)
	return out
}

// N returns the network size.
func (s *Stack) N() int { return s.n }

// At returns the connectivity of ROI pair (i, j) in the given band.
func (s *Stack) At(band, i, j int) float64 {
	return s.mats[band][i*s.n+j]
}

// EmptyBands returns the names of bands that selected zero frequency bins.
func (s *Stack) EmptyBands() []string {
	out := make([]string, len(s.empty))
	copy(out, s.empty)
	return out
}

// Engine computes network connectivity with fixed Welch conventions. An
// Engine is safe for concurrent Analyze calls; each call builds its own
// estimator.
type Engine struct {
	cfg welch.Config
}

// NewEngine validates the Welch configuration once up front.
func NewEngine(cfg welch.Config) (*Engine, error) {
	if _, err := welch.NewEstimator(cfg); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg}, nil
}

// Analyze computes the banded connectivity stack for one network from the
// extracted ROI series.
//
// A network with fewer than two ROIs cannot define pairwise connectivity
// and fails with ErrDegenerate, as does a zero auto-power bin in the
// coherency normalization.
func (g *Engine) Analyze(net source.Network, rois *source.ROISeries, bands []bandpower.Band) (*Stack, error) {
	n := len(net.ROIs)
	if n <= 1 {
		return nil, fmt.Errorf("connectivity: network %q has %d rois, need at least 2: %w", net.Name, n, ErrDegenerate)
	}
	if err := bandpower.ValidateBands(bands); err != nil {
		return nil, err
	}

	rows := make([][]float64, n)
	for i, id := range net.ROIs {
		row, ok := rois.Row(id)
		if !ok {
			return nil, fmt.Errorf("connectivity: network %q: no series for roi %d: %w", net.Name, id, source.ErrUnknownROI)
		}
		rows[i] = row
	}

	est, err := welch.NewEstimator(g.cfg)
	if err != nil {
		return nil, err
	}

	auto := make([][]float64, n)
	for i := range rows {
		psd, _, err := est.PSD(rows[i])
		if err != nil {
			return nil, fmt.Errorf("connectivity: network %q roi %d: %w", net.Name, net.ROIs[i], err)
		}
		auto[i] = psd
	}

	freqs := est.Frequencies()

	// |Im(coherency)| per bin for each unordered pair, in (i,j) i<j order.
	pairCount := n * (n - 1) / 2
	pairSpectra := make([][]float64, 0, pairCount)
	pairIndex := make([]int, 0, pairCount)

	idx := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			csd, _, err := est.CSD(rows[i], rows[j])
			if err != nil {
				return nil, fmt.Errorf("connectivity: network %q pair (%d,%d): %w", net.Name, net.ROIs[i], net.ROIs[j], err)
			}

			coh := make([]float64, len(csd))
			for k := range csd {
				denom := math.Sqrt(auto[i][k] * auto[j][k])
				if denom == 0 || math.IsNaN(denom) {
					return nil, fmt.Errorf("connectivity: network %q pair (%d,%d): zero auto-power at %f Hz: %w",
						net.Name, net.ROIs[i], net.ROIs[j], freqs[k], ErrDegenerate)
				}
				coh[k] = math.Abs(imag(csd[k])) / denom
			}

			pairSpectra = append(pairSpectra, coh)
			pairIndex = append(pairIndex, idx)
			idx++
		}
	}

	// Band aggregation follows the band-power convention: inclusive bin
	// selection, plain mean, no decibel step.
	agg, err := bandpower.Aggregate(pairSpectra, pairIndex, freqs, bands, bandpower.DecibelOff)
	if err != nil {
		return nil, fmt.Errorf("connectivity: network %q: %w", net.Name, err)
	}

	out := &Stack{
		network: net.Name,
		rois:    append([]int(nil), net.ROIs...),
		bands:   append([]bandpower.Band(nil), bands...),
		mats:    make([][]float64, len(bands)),
		empty:   agg.EmptyBands(),
		n:       n,
	}

	for b := range bands {
		m := make([]float64, n*n)
		p := 0
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				v := agg.At(p, b)
				m[i*n+j] = v
				m[j*n+i] = v
				p++
			}
		}
		out.mats[b] = m
	}

	return out, nil
}
