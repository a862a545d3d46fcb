// Package bandpower integrates spectral estimates over frequency bands and
// reduces the resulting ROI x band power matrix into named outputs.
package bandpower

import "fmt"

// Band is a closed frequency interval in Hz.
type Band struct {
	Name   string
	LowHz  float64
	HighHz float64
}

// DefaultBands returns the canonical three-band configuration.
func DefaultBands() []Band {
	return []Band{
		{Name: "theta", LowHz: 4, HighHz: 6},
		{Name: "alpha", LowHz: 8, HighHz: 12},
		{Name: "beta", LowHz: 18, HighHz: 22},
	}
}

// ValidateBands checks band ordering and naming.
func ValidateBands(bands []Band) error {
	if len(bands) == 0 {
		return errNoBands
	}

	seen := make(map[string]bool, len(bands))
	for i, b := range bands {
		if b.Name == "" {
			return fmt.Errorf("bandpower: band %d has no name", i)
		}
		if seen[b.Name] {
			return fmt.Errorf("bandpower: duplicate band name %q", b.Name)
		}
		seen[b.Name] = true
		if b.HighHz < b.LowHz {
			return fmt.Errorf("bandpower: band %q bounds inverted: [%f, %f]", b.Name, b.LowHz, b.HighHz)
		}
	}

	return nil
}
