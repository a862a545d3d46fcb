package bandpower

import "errors"

var (
	errNoBands      = errors.New("bandpower: at least one band required")
	errAxisMismatch = errors.New("bandpower: spectra do not match frequency axis")
)
