package source

import "errors"

var (
	// ErrShapeMismatch reports a dimension disagreement between sensor
	// data, the projection operator, or accumulated per-ROI rows.
	ErrShapeMismatch = errors.New("source: shape mismatch")

	// ErrUnknownROI reports a requested ROI identifier absent from the atlas.
	ErrUnknownROI = errors.New("source: roi not in atlas")

	errEmptyRecording = errors.New("source: recording must not be empty")
	errEmptyOperator  = errors.New("source: operator must not be empty")
	errEmptyAtlas     = errors.New("source: atlas must not be empty")
)
