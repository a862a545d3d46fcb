// Package source models sensor recordings, the leadfield projection into
// voxel space, and the region-of-interest atlas, and provides the linear
// projection and per-region extraction steps of the analysis pipeline.
package source

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// orientationAxes is the number of dipole orientation components per voxel.
const orientationAxes = 3

// Recording is an immutable multi-trial sensor recording. Samples are
// indexed trial, channel, time.
type Recording struct {
	data       [][][]float64
	sampleRate float64
	channels   int
	samples    int
}

// NewRecording validates the sample array and wraps it. The array must be
// rectangular: every trial carries the same channels, every channel the
// same number of samples.
func NewRecording(data [][][]float64, sampleRate float64) (*Recording, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("source: sample rate must be > 0: %f", sampleRate)
	}
	if len(data) == 0 || len(data[0]) == 0 || len(data[0][0]) == 0 {
		return nil, errEmptyRecording
	}

	channels := len(data[0])
	samples := len(data[0][0])
	for t, trial := range data {
		if len(trial) != channels {
			return nil, fmt.Errorf("source: trial %d has %d channels, want %d: %w", t, len(trial), channels, ErrShapeMismatch)
		}
		for c, ch := range trial {
			if len(ch) != samples {
				return nil, fmt.Errorf("source: trial %d channel %d has %d samples, want %d: %w", t, c, len(ch), samples, ErrShapeMismatch)
			}
		}
	}

	return &Recording{
		data:       data,
		sampleRate: sampleRate,
		channels:   channels,
		samples:    samples,
	}, nil
}

// SampleRate returns the sampling rate in Hz.
func (r *Recording) SampleRate() float64 { return r.sampleRate }

// Trials returns the trial (epoch) count.
func (r *Recording) Trials() int { return len(r.data) }

// Channels returns the sensor channel count.
func (r *Recording) Channels() int { return r.channels }

// SamplesPerTrial returns the time points per trial.
func (r *Recording) SamplesPerTrial() int { return r.samples }

// TotalSamples returns the concatenated length, trials times samples.
func (r *Recording) TotalSamples() int { return len(r.data) * r.samples }

// flatten concatenates trials along time into a (time*trials) x channels
// matrix, trial-major.
func (r *Recording) flatten() *mat.Dense {
	out := mat.NewDense(r.TotalSamples(), r.channels, nil)
	for t, trial := range r.data {
		base := t * r.samples
		for c, ch := range trial {
			for s, v := range ch {
				out.Set(base+s, c, v)
			}
		}
	}
	return out
}

// Operator is the leadfield: a fixed linear map from sensor channels to
// voxel space with three orientation components per voxel.
type Operator struct {
	m        *mat.Dense
	channels int
	voxels   int
}

// NewOperator wraps a channels x (voxels*3) matrix given as rows.
func NewOperator(rows [][]float64) (*Operator, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, errEmptyOperator
	}

	cols := len(rows[0])
	if cols%orientationAxes != 0 {
		return nil, fmt.Errorf("source: operator columns must be a multiple of %d: %d", orientationAxes, cols)
	}

	m := mat.NewDense(len(rows), cols, nil)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("source: operator row %d has %d columns, want %d: %w", i, len(row), cols, ErrShapeMismatch)
		}
		m.SetRow(i, row)
	}

	return &Operator{m: m, channels: len(rows), voxels: cols / orientationAxes}, nil
}

// Channels returns the sensor channel count the operator expects.
func (o *Operator) Channels() int { return o.channels }

// Voxels returns the source-space voxel count.
func (o *Operator) Voxels() int { return o.voxels }

// ROI is a region of interest: an identifier plus the voxel indices it
// covers.
type ROI struct {
	ID       int
	Vertices []int
}

// Atlas is an immutable set of ROI definitions keyed by identifier.
type Atlas struct {
	rois map[int]ROI
	ids  []int
}

// NewAtlas validates the ROI list and indexes it by identifier.
func NewAtlas(rois []ROI) (*Atlas, error) {
	if len(rois) == 0 {
		return nil, errEmptyAtlas
	}

	byID := make(map[int]ROI, len(rois))
	ids := make([]int, 0, len(rois))
	for _, roi := range rois {
		if _, dup := byID[roi.ID]; dup {
			return nil, fmt.Errorf("source: duplicate roi id %d", roi.ID)
		}
		if len(roi.Vertices) == 0 {
			return nil, fmt.Errorf("source: roi %d has no vertices", roi.ID)
		}
		for _, v := range roi.Vertices {
			if v < 0 {
				return nil, fmt.Errorf("source: roi %d has negative vertex %d", roi.ID, v)
			}
		}
		byID[roi.ID] = roi
		ids = append(ids, roi.ID)
	}
	sort.Ints(ids)

	return &Atlas{rois: byID, ids: ids}, nil
}

// ROI looks up a region by identifier.
func (a *Atlas) ROI(id int) (ROI, bool) {
	roi, ok := a.rois[id]
	return roi, ok
}

// IDs returns all ROI identifiers in ascending order.
func (a *Atlas) IDs() []int {
	out := make([]int, len(a.ids))
	copy(out, a.ids)
	return out
}

// Network names a group of ROIs whose pairwise connectivity is summarized
// together.
type Network struct {
	Name string
	ROIs []int
}
