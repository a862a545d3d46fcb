package source

import (
	"fmt"
	"sort"

	"github.com/cwbudde/algo-neuro/dsp/spatial"
)

// extractRank is the spatial-filter rank used for ROI collapse. The
// pipeline always keeps only the dominant component and leaves amplitude
// unnormalized so that band power stays comparable across ROIs.
const extractRank = 1

// ROISeries holds one representative time series per extracted ROI. Rows
// are allocated up front for the full ROI list and share one fixed width,
// the concatenated sample count.
type ROISeries struct {
	ids   []int
	rows  map[int][]float64
	width int
}

// NewROISeries pre-sizes the container for the given ROI identifiers and
// row width.
func NewROISeries(ids []int, width int) *ROISeries {
	sorted := make([]int, len(ids))
	copy(sorted, ids)
	sort.Ints(sorted)

	return &ROISeries{
		ids:   sorted,
		rows:  make(map[int][]float64, len(ids)),
		width: width,
	}
}

// IDs returns the ROI identifiers in ascending order.
func (r *ROISeries) IDs() []int {
	out := make([]int, len(r.ids))
	copy(out, r.ids)
	return out
}

// Width returns the fixed row width in samples.
func (r *ROISeries) Width() int { return r.width }

// Row returns the extracted series for a ROI, if present.
func (r *ROISeries) Row(id int) ([]float64, bool) {
	row, ok := r.rows[id]
	return row, ok
}

// SetRow stores a row, enforcing the shared-width invariant.
func (r *ROISeries) SetRow(id int, row []float64) error {
	if len(row) != r.width {
		return fmt.Errorf("source: roi %d row has %d samples, want %d: %w", id, len(row), r.width, ErrShapeMismatch)
	}
	r.rows[id] = row
	return nil
}

// ExtractROI collapses one ROI's voxel block to a single representative
// series using the given spatial filter.
func ExtractROI(vs *VoxelSeries, atlas *Atlas, id int, filter spatial.Filter) ([]float64, error) {
	roi, ok := atlas.ROI(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownROI, id)
	}

	block, err := vs.Block(roi.Vertices)
	if err != nil {
		return nil, fmt.Errorf("source: roi %d: %w", id, err)
	}

	series, err := filter.Reduce(block, extractRank, false)
	if err != nil {
		return nil, fmt.Errorf("source: roi %d spatial filter: %w", id, err)
	}

	return series, nil
}

// ExtractROIs collapses each requested ROI in turn; see ExtractROI.
func ExtractROIs(vs *VoxelSeries, atlas *Atlas, ids []int, filter spatial.Filter) (*ROISeries, error) {
	out := NewROISeries(ids, vs.Samples())

	for _, id := range ids {
		series, err := ExtractROI(vs, atlas, id, filter)
		if err != nil {
			return nil, err
		}
		if err := out.SetRow(id, series); err != nil {
			return nil, err
		}
	}

	return out, nil
}
