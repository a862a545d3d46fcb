package spectrum

import (
	"sync"

	"github.com/cwbudde/algo-vecmath"
)

// scratchBuf holds pooled scratch memory for complex-to-real unpacking.
type scratchBuf struct {
	data []float64
}

var scratchPool = sync.Pool{
	New: func() any { return &scratchBuf{} },
}

func getScratch(n int) (re, im []float64, buf *scratchBuf) {
	buf = scratchPool.Get().(*scratchBuf)
	need := 2 * n
	if cap(buf.data) < need {
		buf.data = make([]float64, need)
	} else {
		buf.data = buf.data[:need]
	}
	return buf.data[:n], buf.data[n:need], buf
}

func putScratch(buf *scratchBuf) {
	scratchPool.Put(buf)
}

// Magnitude returns |X[k]| for each complex spectrum bin.
//
// Scratch buffers are pooled internally, so in steady state this allocates
// only the output slice.
func Magnitude(in []complex128) []float64 {
	if len(in) == 0 {
		return nil
	}

	out := make([]float64, len(in))
	re, im, buf := getScratch(len(in))

	for i, c := range in {
		re[i] = real(c)
		im[i] = imag(c)
	}

	vecmath.Magnitude(out, re, im)
	putScratch(buf)
	return out
}

// Power returns |X[k]|^2 for each complex spectrum bin.
//
// Scratch buffers are pooled internally, so in steady state this allocates
// only the output slice.
func Power(in []complex128) []float64 {
	if len(in) == 0 {
		return nil
	}

	out := make([]float64, len(in))
	re, im, buf := getScratch(len(in))

	for i, c := range in {
		re[i] = real(c)
		im[i] = imag(c)
	}

	vecmath.Power(out, re, im)
	putScratch(buf)
	return out
}

// AccumulatePower adds |X[k]|^2 to dst for each bin. dst and in must have
// the same length. Used to average periodograms across segments without an
// intermediate allocation per segment.
func AccumulatePower(dst []float64, in []complex128) {
	for i, c := range in {
		re := real(c)
		im := imag(c)
		dst[i] += re*re + im*im
	}
}

// AccumulateCross adds conj(X[k])*Y[k] to dst for each bin. All slices must
// have the same length. This is the single-segment contribution to a Welch
// cross-spectral estimate.
func AccumulateCross(dst, x, y []complex128) {
	for i := range dst {
		xc := x[i]
		yc := y[i]
		// conj(x)*y expanded to avoid cmplx call overhead in the hot loop.
		re := real(xc)*real(yc) + imag(xc)*imag(yc)
		im := real(xc)*imag(yc) - imag(xc)*real(yc)
		dst[i] += complex(re, im)
	}
}

// PowerFromParts computes |X[k]|^2 = re[k]^2 + im[k]^2 into dst.
//
// This is the zero-allocation fast path for callers that already have real
// and imaginary parts in separate slices. All three slices must have the
// same length.
func PowerFromParts(dst, re, im []float64) {
	vecmath.Power(dst, re, im)
}
