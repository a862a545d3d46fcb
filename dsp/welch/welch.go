// Package welch estimates auto- and cross-spectral densities using Welch's
// method: overlapping windowed segments, periodogram per segment, averaged
// per frequency bin.
//
// All estimates are one-sided and returned without the DC bin, so the
// frequency axis starts at the first nonzero frequency and has exactly
// floor(nfft/2) entries up to and including Nyquist.
package welch

import (
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/cwbudde/algo-neuro/dsp/spectrum"
	"github.com/cwbudde/algo-neuro/dsp/window"
)

// Config holds Welch estimation parameters.
//
// Zero values select defaults: WindowLength = round(SampleRate) (a one
// second window), Overlap = WindowLength/2, NFFT = 2*round(SampleRate),
// WindowType = Hann.
type Config struct {
	SampleRate   float64
	WindowLength int
	Overlap      int
	NFFT         int
	WindowType   window.Type
}

// Estimator computes Welch spectral estimates for a fixed configuration.
//
// Power-of-two transform sizes go through the SIMD FFT plan; all other
// sizes use the mixed-radix real transform, which accepts any length.
//
// An Estimator reuses internal FFT buffers and is not safe for concurrent
// use; create one per goroutine.
type Estimator struct {
	cfg    Config
	coeffs []float64
	freqs  []float64

	plan *algofft.Plan[complex128]
	rfft *fourier.FFT

	// reusable buffers: complex pair for the plan path, real input for the
	// mixed-radix path, and the half+1 spectra handed to accumulation
	in     []complex128
	out    []complex128
	realIn []float64
	spec   []complex128
	spec2  []complex128
}

// NewEstimator validates cfg, fills defaults, and prepares the transform.
func NewEstimator(cfg Config) (*Estimator, error) {
	cfg, err := normalizeConfig(cfg)
	if err != nil {
		return nil, err
	}

	e := &Estimator{
		cfg:    cfg,
		coeffs: window.Generate(cfg.WindowType, cfg.WindowLength),
		spec:   make([]complex128, cfg.NFFT/2+1),
		spec2:  make([]complex128, cfg.NFFT/2+1),
	}

	if isPowerOfTwo(cfg.NFFT) {
		plan, err := algofft.NewPlan64(cfg.NFFT)
		if err != nil {
			return nil, fmt.Errorf("welch: fft plan for nfft=%d: %w", cfg.NFFT, err)
		}
		e.plan = plan
		e.in = make([]complex128, cfg.NFFT)
		e.out = make([]complex128, cfg.NFFT)
	} else {
		e.rfft = fourier.NewFFT(cfg.NFFT)
		e.realIn = make([]float64, cfg.NFFT)
	}

	half := cfg.NFFT / 2
	freqs := make([]float64, half)
	for i := range freqs {
		freqs[i] = float64(i+1) * cfg.SampleRate / float64(cfg.NFFT)
	}
	e.freqs = freqs

	return e, nil
}

// Config returns the normalized configuration in effect.
func (e *Estimator) Config() Config {
	return e.cfg
}

// BinCount returns the number of frequency bins per estimate, floor(nfft/2).
func (e *Estimator) BinCount() int {
	return e.cfg.NFFT / 2
}

// Frequencies returns the frequency axis in Hz. The DC bin is excluded, so
// the first entry is sampleRate/nfft and the last is the Nyquist frequency.
func (e *Estimator) Frequencies() []float64 {
	out := make([]float64, len(e.freqs))
	copy(out, e.freqs)
	return out
}

// PSD computes the one-sided power spectral density of series.
//
// The returned slices have BinCount entries each: the estimate and the
// matching frequency axis.
func (e *Estimator) PSD(series []float64) ([]float64, []float64, error) {
	if len(series) == 0 {
		return nil, nil, errEmptySeries
	}

	half := e.cfg.NFFT / 2
	acc := make([]float64, half+1)

	count, scale, err := e.forEachSegment(series, func(spec []complex128) {
		spectrum.AccumulatePower(acc, spec)
	})
	if err != nil {
		return nil, nil, err
	}

	norm := scale / float64(count)
	psd := acc[1:]
	for i := range psd {
		psd[i] *= norm
	}
	onesided(psd, e.cfg.NFFT)

	return psd, e.Frequencies(), nil
}

// CSD computes the one-sided cross-spectral density of x and y, averaging
// conj(X)*Y across segments. Both series must have the same length.
//
// CSD(x, x) equals PSD(x) with a zero imaginary part.
func (e *Estimator) CSD(x, y []float64) ([]complex128, []float64, error) {
	if len(x) == 0 || len(y) == 0 {
		return nil, nil, errEmptySeries
	}
	if len(x) != len(y) {
		return nil, nil, fmt.Errorf("welch: series length mismatch: %d != %d: %w", len(x), len(y), errLengthMismatch)
	}

	half := e.cfg.NFFT / 2
	acc := make([]complex128, half+1)

	count, scale, err := e.forEachSegmentPair(x, y, func(sx, sy []complex128) {
		spectrum.AccumulateCross(acc, sx, sy)
	})
	if err != nil {
		return nil, nil, err
	}

	norm := complex(scale/float64(count), 0)
	csd := acc[1:]
	for i := range csd {
		csd[i] *= norm
	}
	onesidedComplex(csd, e.cfg.NFFT)

	return csd, e.Frequencies(), nil
}

// MeanPSD computes the PSD of each series and averages them elementwise.
//
// Averaging happens in power, after estimation, which is the required order
// when collapsing orientation axes or ROI vertices into one spectrum.
func (e *Estimator) MeanPSD(series [][]float64) ([]float64, []float64, error) {
	if len(series) == 0 {
		return nil, nil, errEmptySeries
	}

	var mean []float64
	for _, s := range series {
		psd, _, err := e.PSD(s)
		if err != nil {
			return nil, nil, err
		}
		if mean == nil {
			mean = psd
			continue
		}
		if len(psd) != len(mean) {
			return nil, nil, errLengthMismatch
		}
		for i := range mean {
			mean[i] += psd[i]
		}
	}

	inv := 1 / float64(len(series))
	for i := range mean {
		mean[i] *= inv
	}

	return mean, e.Frequencies(), nil
}

// forEachSegment windows, zero-pads, and transforms each segment of series,
// invoking fn with the half+1 one-sided spectrum. It returns the segment
// count and the periodogram scale 1/(fs*sum(w^2)) for the window actually
// used.
func (e *Estimator) forEachSegment(series []float64, fn func(spec []complex128)) (int, float64, error) {
	offsets, coeffs := e.segmentPlan(len(series))

	for _, off := range offsets {
		if err := e.transform(e.spec, series[off:off+len(coeffs)], coeffs); err != nil {
			return 0, 0, err
		}
		fn(e.spec)
	}

	scale := 1 / (e.cfg.SampleRate * window.SquaredSum(coeffs))

	return len(offsets), scale, nil
}

func (e *Estimator) forEachSegmentPair(x, y []float64, fn func(sx, sy []complex128)) (int, float64, error) {
	offsets, coeffs := e.segmentPlan(len(x))

	for _, off := range offsets {
		if err := e.transform(e.spec, x[off:off+len(coeffs)], coeffs); err != nil {
			return 0, 0, err
		}
		if err := e.transform(e.spec2, y[off:off+len(coeffs)], coeffs); err != nil {
			return 0, 0, err
		}
		fn(e.spec, e.spec2)
	}

	scale := 1 / (e.cfg.SampleRate * window.SquaredSum(coeffs))

	return len(offsets), scale, nil
}

// transform fills dst (length nfft/2+1) with the one-sided spectrum of the
// windowed, zero-padded segment.
func (e *Estimator) transform(dst []complex128, seg, coeffs []float64) error {
	if e.plan != nil {
		for i := range seg {
			e.in[i] = complex(seg[i]*coeffs[i], 0)
		}
		for i := len(seg); i < len(e.in); i++ {
			e.in[i] = 0
		}
		if err := e.plan.Forward(e.out, e.in); err != nil {
			return fmt.Errorf("welch: forward fft: %w", err)
		}
		copy(dst, e.out[:len(dst)])
		return nil
	}

	for i := range seg {
		e.realIn[i] = seg[i] * coeffs[i]
	}
	for i := len(seg); i < len(e.realIn); i++ {
		e.realIn[i] = 0
	}
	e.rfft.Coefficients(dst, e.realIn)
	return nil
}

// segmentPlan returns the segment start offsets and the window coefficients
// for a series of length n. A series shorter than the configured window is
// estimated as a single full-length segment.
func (e *Estimator) segmentPlan(n int) ([]int, []float64) {
	segLen := e.cfg.WindowLength
	coeffs := e.coeffs
	if n < segLen {
		segLen = n
		coeffs = window.Generate(e.cfg.WindowType, segLen)
	}

	step := segLen - e.cfg.Overlap
	if step < 1 {
		step = 1
	}

	count := 1 + (n-segLen)/step
	offsets := make([]int, count)
	for i := range offsets {
		offsets[i] = i * step
	}

	return offsets, coeffs
}

// onesided doubles interior bins of a DC-less half spectrum in place. The
// last bin is the Nyquist bin only when nfft is even, in which case it is
// not doubled.
func onesided(bins []float64, nfft int) {
	last := len(bins)
	if nfft%2 == 0 {
		last--
	}
	for i := 0; i < last; i++ {
		bins[i] *= 2
	}
}

func onesidedComplex(bins []complex128, nfft int) {
	last := len(bins)
	if nfft%2 == 0 {
		last--
	}
	for i := 0; i < last; i++ {
		bins[i] *= 2
	}
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

func normalizeConfig(cfg Config) (Config, error) {
	if cfg.SampleRate <= 0 {
		return cfg, fmt.Errorf("welch: sample rate must be > 0: %f", cfg.SampleRate)
	}

	rate := int(math.Round(cfg.SampleRate))
	if rate < 1 {
		rate = 1
	}

	if cfg.WindowLength <= 0 {
		cfg.WindowLength = rate
	}

	if cfg.Overlap <= 0 {
		cfg.Overlap = cfg.WindowLength / 2
	}
	if cfg.Overlap >= cfg.WindowLength {
		return cfg, fmt.Errorf("welch: overlap must be < window length: %d >= %d", cfg.Overlap, cfg.WindowLength)
	}

	if cfg.NFFT <= 0 {
		cfg.NFFT = 2 * rate
	}
	if cfg.NFFT < cfg.WindowLength {
		return cfg, fmt.Errorf("welch: nfft must be >= window length: %d < %d", cfg.NFFT, cfg.WindowLength)
	}

	if cfg.WindowType == 0 {
		cfg.WindowType = window.TypeHann
	}

	return cfg, nil
}
