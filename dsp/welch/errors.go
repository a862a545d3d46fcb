package welch

import "errors"

var (
	errEmptySeries    = errors.New("welch: series must not be empty")
	errLengthMismatch = errors.New("welch: series lengths must match")
)
