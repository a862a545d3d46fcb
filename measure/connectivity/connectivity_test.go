package connectivity

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-neuro/dsp/welch"
	"github.com/cwbudde/algo-neuro/internal/testutil"
	"github.com/cwbudde/algo-neuro/measure/bandpower"
	"github.com/cwbudde/algo-neuro/source"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	g, err := NewEngine(welch.Config{SampleRate: 100})
	if err != nil {
		t.Fatalf("NewEngine error: %v", err)
	}
	return g
}

func roiSeries(t *testing.T, rows map[int][]float64, width int) *source.ROISeries {
	t.Helper()

	ids := make([]int, 0, len(rows))
	for id := range rows {
		ids = append(ids, id)
	}

	rs := source.NewROISeries(ids, width)
	for id, row := range rows {
		if err := rs.SetRow(id, row); err != nil {
			t.Fatalf("SetRow error: %v", err)
		}
	}
	return rs
}

func TestSingleROINetworkIsDegenerate(t *testing.T) {
	g := newTestEngine(t)
	rs := roiSeries(t, map[int][]float64{1: testutil.DeterministicNoise(1, 1, 1000)}, 1000)

	_, err := g.Analyze(source.Network{Name: "solo", ROIs: []int{1}}, rs, bandpower.DefaultBands())
	if !errors.Is(err, ErrDegenerate) {
		t.Fatalf("expected ErrDegenerate, got %v", err)
	}
}

func TestZeroLagCouplingSuppressed(t *testing.T) {
	g := newTestEngine(t)

	// perfectly correlated, zero phase lag: y is a scaled copy of x
	x := testutil.DeterministicNoise(11, 1, 1000)
	y := make([]float64, len(x))
	for i := range y {
		y[i] = 2 * x[i]
	}

	rs := roiSeries(t, map[int][]float64{1: x, 2: y}, 1000)

	stack, err := g.Analyze(source.Network{Name: "pair", ROIs: []int{1, 2}}, rs, bandpower.DefaultBands())
	if err != nil {
		t.Fatalf("Analyze error: %v", err)
	}

	vals, err := MeanPairwise(stack)
	if err != nil {
		t.Fatalf("MeanPairwise error: %v", err)
	}

	for b, v := range vals {
		if math.Abs(v) > 1e-9 {
			t.Fatalf("band %d: zero-lag connectivity = %v, want ~0", b, v)
		}
	}
}

func TestQuarterCycleLagDetected(t *testing.T) {
	g := newTestEngine(t)

	// 10 Hz carriers a quarter cycle apart, plus independent noise so every
	// bin keeps nonzero auto-power
	n := 2000
	x := testutil.DeterministicSine(10, 100, 1.0, n)
	y := testutil.DeterministicSinePhase(10, 100, 1.0, -math.Pi/2, n)
	nx := testutil.DeterministicNoise(21, 0.05, n)
	ny := testutil.DeterministicNoise(22, 0.05, n)
	for i := range x {
		x[i] += nx[i]
		y[i] += ny[i]
	}

	rs := roiSeries(t, map[int][]float64{1: x, 2: y}, n)

	// a one-bin band isolating the carrier frequency
	bands := []bandpower.Band{{Name: "carrier", LowHz: 10, HighHz: 10}}

	stack, err := g.Analyze(source.Network{Name: "pair", ROIs: []int{1, 2}}, rs, bands)
	if err != nil {
		t.Fatalf("Analyze error: %v", err)
	}

	vals, err := MeanPairwise(stack)
	if err != nil {
		t.Fatalf("MeanPairwise error: %v", err)
	}

	if vals[0] < 0.9 {
		t.Fatalf("lagged carrier connectivity = %v, want near 1", vals[0])
	}
}

func TestStackSymmetricZeroDiagonal(t *testing.T) {
	g := newTestEngine(t)

	rows := map[int][]float64{
		1: testutil.DeterministicNoise(31, 1, 1000),
		2: testutil.DeterministicNoise(32, 1, 1000),
		3: testutil.DeterministicNoise(33, 1, 1000),
	}
	rs := roiSeries(t, rows, 1000)

	stack, err := g.Analyze(source.Network{Name: "trio", ROIs: []int{1, 2, 3}}, rs, bandpower.DefaultBands())
	if err != nil {
		t.Fatalf("Analyze error: %v", err)
	}

	for b := range stack.Bands() {
		for i := 0; i < stack.N(); i++ {
			if stack.At(b, i, i) != 0 {
				t.Fatalf("diagonal (%d,%d) band %d = %v, want 0", i, i, b, stack.At(b, i, i))
			}
			for j := 0; j < stack.N(); j++ {
				if stack.At(b, i, j) != stack.At(b, j, i) {
					t.Fatalf("asymmetric at (%d,%d) band %d", i, j, b)
				}
			}
		}
	}
}

func TestMeanPairwiseDivisor(t *testing.T) {
	g := newTestEngine(t)

	rows := map[int][]float64{
		1: testutil.DeterministicNoise(41, 1, 1000),
		2: testutil.DeterministicNoise(42, 1, 1000),
	}
	rs := roiSeries(t, rows, 1000)

	stack, err := g.Analyze(source.Network{Name: "pair", ROIs: []int{1, 2}}, rs, bandpower.DefaultBands())
	if err != nil {
		t.Fatalf("Analyze error: %v", err)
	}

	vals, err := MeanPairwise(stack)
	if err != nil {
		t.Fatalf("MeanPairwise error: %v", err)
	}

	// n=2: sum of both off-diagonal mirror entries divided by n^2-n = 2
	// equals the single pair value
	for b := range vals {
		if math.Abs(vals[b]-stack.At(b, 0, 1)) > 1e-12 {
			t.Fatalf("band %d: mean = %v, want pair value %v", b, vals[b], stack.At(b, 0, 1))
		}
	}
}

func TestZeroAutoPowerIsDegenerate(t *testing.T) {
	g := newTestEngine(t)

	rows := map[int][]float64{
		1: make([]float64, 1000),
		2: make([]float64, 1000),
	}
	rs := roiSeries(t, rows, 1000)

	_, err := g.Analyze(source.Network{Name: "dead", ROIs: []int{1, 2}}, rs, bandpower.DefaultBands())
	if !errors.Is(err, ErrDegenerate) {
		t.Fatalf("expected ErrDegenerate, got %v", err)
	}
}

func TestMissingROISeries(t *testing.T) {
	g := newTestEngine(t)
	rs := roiSeries(t, map[int][]float64{1: testutil.DeterministicNoise(5, 1, 500)}, 500)

	_, err := g.Analyze(source.Network{Name: "pair", ROIs: []int{1, 2}}, rs, bandpower.DefaultBands())
	if !errors.Is(err, source.ErrUnknownROI) {
		t.Fatalf("expected ErrUnknownROI, got %v", err)
	}
}

func TestEmptyBandReported(t *testing.T) {
	g := newTestEngine(t)

	rows := map[int][]float64{
		1: testutil.DeterministicNoise(51, 1, 1000),
		2: testutil.DeterministicNoise(52, 1, 1000),
	}
	rs := roiSeries(t, rows, 1000)

	bands := []bandpower.Band{
		{Name: "alpha", LowHz: 8, HighHz: 12},
		{Name: "hyper", LowHz: 200, HighHz: 300},
	}

	stack, err := g.Analyze(source.Network{Name: "pair", ROIs: []int{1, 2}}, rs, bands)
	if err != nil {
		t.Fatalf("Analyze error: %v", err)
	}

	empty := stack.EmptyBands()
	if len(empty) != 1 || empty[0] != "hyper" {
		t.Fatalf("EmptyBands = %v, want [hyper]", empty)
	}

	if !math.IsNaN(stack.At(1, 0, 1)) {
		t.Fatalf("empty band entry = %v, want NaN", stack.At(1, 0, 1))
	}
}
