// Package spectrum converts complex spectra into real-valued power and
// magnitude arrays and provides the cross-power product used by
// cross-spectral density estimation.
package spectrum
