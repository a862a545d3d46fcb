package source

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-neuro/dsp/spatial"
	"github.com/cwbudde/algo-neuro/internal/testutil"
)

func TestNewRecordingValidation(t *testing.T) {
	if _, err := NewRecording(nil, 100); err == nil {
		t.Fatalf("expected error for empty recording")
	}

	if _, err := NewRecording([][][]float64{{{1, 2}}}, 0); err == nil {
		t.Fatalf("expected error for zero sample rate")
	}

	// ragged channels
	_, err := NewRecording([][][]float64{
		{{1, 2}, {3, 4}},
		{{1, 2}},
	}, 100)
	if !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}

	// ragged samples
	_, err = NewRecording([][][]float64{{{1, 2}, {3}}}, 100)
	if !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
}

func TestRecordingDimensions(t *testing.T) {
	rec, err := NewRecording(testutil.NoiseRecording(1, 3, 2, 50), 100)
	if err != nil {
		t.Fatalf("NewRecording error: %v", err)
	}

	if rec.Trials() != 3 || rec.Channels() != 2 || rec.SamplesPerTrial() != 50 {
		t.Fatalf("dims = %d/%d/%d, want 3/2/50", rec.Trials(), rec.Channels(), rec.SamplesPerTrial())
	}

	if rec.TotalSamples() != 150 {
		t.Fatalf("TotalSamples = %d, want 150", rec.TotalSamples())
	}
}

func TestNewOperatorValidation(t *testing.T) {
	if _, err := NewOperator(nil); err == nil {
		t.Fatalf("expected error for empty operator")
	}

	if _, err := NewOperator([][]float64{{1, 2, 3, 4}}); err == nil {
		t.Fatalf("expected error for columns not a multiple of 3")
	}

	_, err := NewOperator([][]float64{{1, 2, 3}, {1, 2}})
	if !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}

	op, err := NewOperator([][]float64{{1, 0, 0, 0, 0, 0}})
	if err != nil {
		t.Fatalf("NewOperator error: %v", err)
	}

	if op.Channels() != 1 || op.Voxels() != 2 {
		t.Fatalf("dims = %d/%d, want 1/2", op.Channels(), op.Voxels())
	}
}

func TestProjectChannelMismatch(t *testing.T) {
	rec, _ := NewRecording(testutil.NoiseRecording(1, 1, 2, 10), 100)
	op, _ := NewOperator([][]float64{{1, 0, 0}})

	_, err := Project(rec, op)
	if !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
}

func TestProjectValuesAndConcatenation(t *testing.T) {
	// one channel, two trials; operator routes the sensor to voxel 0 axis 0
	// unscaled and voxel 1 axis 1 doubled.
	data := [][][]float64{
		{{1, 2, 3}},
		{{4, 5, 6}},
	}
	rec, err := NewRecording(data, 100)
	if err != nil {
		t.Fatalf("NewRecording error: %v", err)
	}

	op, err := NewOperator([][]float64{{1, 0, 0, 0, 2, 0}})
	if err != nil {
		t.Fatalf("NewOperator error: %v", err)
	}

	vs, err := Project(rec, op)
	if err != nil {
		t.Fatalf("Project error: %v", err)
	}

	if vs.Samples() != 6 || vs.Voxels() != 2 {
		t.Fatalf("dims = %d/%d, want 6/2", vs.Samples(), vs.Voxels())
	}

	// trial-major concatenation along time
	a0, err := vs.Axis(0, 0)
	if err != nil {
		t.Fatalf("Axis error: %v", err)
	}
	testutil.RequireSliceNearlyEqual(t, a0, []float64{1, 2, 3, 4, 5, 6}, 0)

	a11, err := vs.Axis(1, 1)
	if err != nil {
		t.Fatalf("Axis error: %v", err)
	}
	testutil.RequireSliceNearlyEqual(t, a11, []float64{2, 4, 6, 8, 10, 12}, 0)

	a12, err := vs.Axis(1, 2)
	if err != nil {
		t.Fatalf("Axis error: %v", err)
	}
	for i, v := range a12 {
		if v != 0 {
			t.Fatalf("unused axis sample %d = %v, want 0", i, v)
		}
	}
}

func TestVoxelSeriesRangeChecks(t *testing.T) {
	rec, _ := NewRecording(testutil.NoiseRecording(2, 1, 1, 20), 100)
	op, _ := NewOperator([][]float64{{1, 0, 0}})
	vs, _ := Project(rec, op)

	if _, err := vs.Axis(1, 0); !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch for voxel out of range")
	}

	if _, err := vs.Axis(0, 3); !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch for axis out of range")
	}

	if _, err := vs.Block([]int{0, 5}); !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch for vertex out of range")
	}
}

func TestNewAtlasValidation(t *testing.T) {
	if _, err := NewAtlas(nil); err == nil {
		t.Fatalf("expected error for empty atlas")
	}

	if _, err := NewAtlas([]ROI{{ID: 1, Vertices: []int{0}}, {ID: 1, Vertices: []int{1}}}); err == nil {
		t.Fatalf("expected error for duplicate roi id")
	}

	if _, err := NewAtlas([]ROI{{ID: 1}}); err == nil {
		t.Fatalf("expected error for roi without vertices")
	}

	if _, err := NewAtlas([]ROI{{ID: 1, Vertices: []int{-1}}}); err == nil {
		t.Fatalf("expected error for negative vertex")
	}

	atlas, err := NewAtlas([]ROI{
		{ID: 7, Vertices: []int{0}},
		{ID: 2, Vertices: []int{1}},
	})
	if err != nil {
		t.Fatalf("NewAtlas error: %v", err)
	}

	ids := atlas.IDs()
	if len(ids) != 2 || ids[0] != 2 || ids[1] != 7 {
		t.Fatalf("IDs = %v, want [2 7]", ids)
	}
}

func TestExtractROIs(t *testing.T) {
	sig := testutil.DeterministicSine(10, 100, 1.0, 300)
	data := [][][]float64{{append([]float64(nil), sig...)}}
	rec, _ := NewRecording(data, 100)

	// sensor drives both voxels on their first axis, second voxel at half gain
	op, _ := NewOperator([][]float64{{1, 0, 0, 0.5, 0, 0}})
	vs, _ := Project(rec, op)

	atlas, _ := NewAtlas([]ROI{{ID: 1, Vertices: []int{0, 1}}})

	rois, err := ExtractROIs(vs, atlas, []int{1}, spatial.PCA{})
	if err != nil {
		t.Fatalf("ExtractROIs error: %v", err)
	}

	if rois.Width() != 300 {
		t.Fatalf("Width = %d, want 300", rois.Width())
	}

	row, ok := rois.Row(1)
	if !ok {
		t.Fatalf("missing row for roi 1")
	}

	// the dominant component of a single driven source is the source itself,
	// up to a positive scale
	scale := 0.0
	for i := range sig {
		if math.Abs(sig[i]) > 0.5 {
			scale = row[i] / sig[i]
			break
		}
	}
	if scale <= 0 {
		t.Fatalf("expected positive scale, got %v", scale)
	}

	want := make([]float64, len(sig))
	for i := range want {
		want[i] = sig[i] * scale
	}
	testutil.RequireSliceNearlyEqual(t, row, want, 1e-9)
}

func TestExtractROIsUnknownID(t *testing.T) {
	rec, _ := NewRecording(testutil.NoiseRecording(4, 1, 1, 50), 100)
	op, _ := NewOperator([][]float64{{1, 0, 0}})
	vs, _ := Project(rec, op)
	atlas, _ := NewAtlas([]ROI{{ID: 1, Vertices: []int{0}}})

	_, err := ExtractROIs(vs, atlas, []int{1, 9}, spatial.PCA{})
	if !errors.Is(err, ErrUnknownROI) {
		t.Fatalf("expected ErrUnknownROI, got %v", err)
	}
}
