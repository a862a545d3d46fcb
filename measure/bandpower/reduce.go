package bandpower

// Reduction maps a band-power matrix to a named output vector. The engine
// makes no assumption about the output beyond it being storable under a
// name; the defaults extract one band column each.
type Reduction func(m *Matrix) ([]float64, error)

// BandColumn returns a Reduction extracting band column j across all ROIs.
func BandColumn(j int) Reduction {
	return func(m *Matrix) ([]float64, error) {
		return m.Column(j)
	}
}

// DefaultReductions maps the canonical band names to their column
// extractors, matching DefaultBands order.
func DefaultReductions() map[string]Reduction {
	return map[string]Reduction{
		"theta": BandColumn(0),
		"alpha": BandColumn(1),
		"beta":  BandColumn(2),
	}
}
