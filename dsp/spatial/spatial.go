// Package spatial collapses multi-signal blocks into one representative
// time series using rank-limited spatial filters.
package spatial

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

var (
	errEmptyBlock  = errors.New("spatial: block must not be empty")
	errInvalidRank = errors.New("spatial: rank must be >= 1")
)

// Filter reduces a block of samples x signals to one series of the same
// sample count. Implementations must be deterministic and, when normalize
// is false, must preserve relative scale across blocks so that absolute
// power comparisons between regions remain meaningful.
type Filter interface {
	Reduce(block mat.Matrix, rank int, normalize bool) ([]float64, error)
}

// PCA is the default Filter: a singular value decomposition of the block,
// truncated to the requested rank, collapsed to the summed component
// scores. Component signs are fixed by forcing the largest-magnitude
// loading of each component to be positive, which makes the result
// independent of the decomposition's inherent sign ambiguity.
type PCA struct{}

// Reduce computes the rank-limited representative series of block.
//
// With rank 1 the result is the dominant principal-component score series,
// scaled by its singular value. No mean removal or variance normalization
// is applied unless normalize is set, in which case the series is rescaled
// to unit RMS.
func (PCA) Reduce(block mat.Matrix, rank int, normalize bool) ([]float64, error) {
	r, c := block.Dims()
	if r == 0 || c == 0 {
		return nil, errEmptyBlock
	}
	if rank < 1 {
		return nil, fmt.Errorf("%w: %d", errInvalidRank, rank)
	}

	var svd mat.SVD
	if !svd.Factorize(block, mat.SVDThin) {
		return nil, fmt.Errorf("spatial: svd failed for %dx%d block", r, c)
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	values := svd.Values(nil)

	if rank > len(values) {
		rank = len(values)
	}

	out := make([]float64, r)
	for k := 0; k < rank; k++ {
		sign := componentSign(&v, k)
		w := sign * values[k]
		for i := 0; i < r; i++ {
			out[i] += w * u.At(i, k)
		}
	}

	if normalize {
		normalizeRMS(out)
	}

	return out, nil
}

// componentSign returns +-1 so that the loading with the largest magnitude
// in column k of v is positive.
func componentSign(v *mat.Dense, k int) float64 {
	rows, _ := v.Dims()

	best := 0.0
	sign := 1.0
	for i := 0; i < rows; i++ {
		a := v.At(i, k)
		if math.Abs(a) > best {
			best = math.Abs(a)
			if a < 0 {
				sign = -1
			} else {
				sign = 1
			}
		}
	}

	return sign
}

func normalizeRMS(series []float64) {
	sum := 0.0
	for _, v := range series {
		sum += v * v
	}

	rms := math.Sqrt(sum / float64(len(series)))
	if rms == 0 {
		return
	}

	inv := 1 / rms
	for i := range series {
		series[i] *= inv
	}
}
