package connectivity

import "errors"

// ErrDegenerate reports a numerical degeneracy: a network too small for
// pairwise connectivity or a zero auto-power in the coherency
// normalization.
var ErrDegenerate = errors.New("connectivity: numerical degeneracy")
