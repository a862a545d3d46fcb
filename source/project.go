package source

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// VoxelSeries is the source-projected time series: time samples by voxels
// by orientation axes, stored as a dense (time*trials) x (voxels*3) matrix.
type VoxelSeries struct {
	data    *mat.Dense
	samples int
	voxels  int
}

// Samples returns the concatenated time-sample count.
func (v *VoxelSeries) Samples() int { return v.samples }

// Voxels returns the voxel count.
func (v *VoxelSeries) Voxels() int { return v.voxels }

// Orientations returns the dipole orientation component count per voxel.
func (v *VoxelSeries) Orientations() int { return orientationAxes }

// Axis returns a copy of the time series of one orientation component of
// one voxel.
func (v *VoxelSeries) Axis(voxel, axis int) ([]float64, error) {
	if voxel < 0 || voxel >= v.voxels {
		return nil, fmt.Errorf("source: voxel %d out of range [0,%d): %w", voxel, v.voxels, ErrShapeMismatch)
	}
	if axis < 0 || axis >= orientationAxes {
		return nil, fmt.Errorf("source: orientation axis %d out of range [0,%d): %w", axis, orientationAxes, ErrShapeMismatch)
	}

	out := make([]float64, v.samples)
	mat.Col(out, voxel*orientationAxes+axis, v.data)
	return out, nil
}

// Block returns the samples x (len(vertices)*3) submatrix covering the
// given voxel indices, the input to a spatial filter.
func (v *VoxelSeries) Block(vertices []int) (*mat.Dense, error) {
	if len(vertices) == 0 {
		return nil, fmt.Errorf("source: empty vertex list: %w", ErrShapeMismatch)
	}

	out := mat.NewDense(v.samples, len(vertices)*orientationAxes, nil)
	col := make([]float64, v.samples)
	for j, vert := range vertices {
		if vert < 0 || vert >= v.voxels {
			return nil, fmt.Errorf("source: vertex %d out of range [0,%d): %w", vert, v.voxels, ErrShapeMismatch)
		}
		for axis := 0; axis < orientationAxes; axis++ {
			mat.Col(col, vert*orientationAxes+axis, v.data)
			out.SetCol(j*orientationAxes+axis, col)
		}
	}

	return out, nil
}

// Project applies the leadfield to the recording. Trials are concatenated
// along time before projection, so the result covers time*trials samples.
func Project(rec *Recording, op *Operator) (*VoxelSeries, error) {
	if rec.Channels() != op.Channels() {
		return nil, fmt.Errorf("source: recording has %d channels, operator expects %d: %w",
			rec.Channels(), op.Channels(), ErrShapeMismatch)
	}

	sensor := rec.flatten()

	var projected mat.Dense
	projected.Mul(sensor, op.m)

	return &VoxelSeries{
		data:    &projected,
		samples: rec.TotalSamples(),
		voxels:  op.Voxels(),
	}, nil
}
