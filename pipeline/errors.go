package pipeline

import "errors"

// ErrConfiguration reports an invalid analysis configuration, detected
// before any computation starts.
var ErrConfiguration = errors.New("pipeline: invalid configuration")
