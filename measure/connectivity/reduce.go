package connectivity

import "fmt"

// Reduction maps a connectivity stack to one value per band.
type Reduction func(s *Stack) ([]float64, error)

// MeanPairwise sums all off-diagonal entries of each band matrix and
// divides by n^2-n, the off-diagonal count: the mean pairwise connectivity.
func MeanPairwise(s *Stack) ([]float64, error) {
	n := s.N()
	divisor := n*n - n
	if divisor == 0 {
		return nil, fmt.Errorf("connectivity: network %q size %d has no pairs: %w", s.Network(), n, ErrDegenerate)
	}

	out := make([]float64, len(s.bands))
	for b := range s.bands {
		sum := 0.0
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				if i == j {
					continue
				}
				sum += s.At(b, i, j)
			}
		}
		out[b] = sum / float64(divisor)
	}

	return out, nil
}

// DefaultReductions returns the default named reduction set.
func DefaultReductions() map[string]Reduction {
	return map[string]Reduction{
		"mean": MeanPairwise,
	}
}
