package pipeline

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/cwbudde/algo-neuro/dsp/spatial"
	"github.com/cwbudde/algo-neuro/dsp/welch"
	"github.com/cwbudde/algo-neuro/dsp/window"
	"github.com/cwbudde/algo-neuro/measure/bandpower"
	"github.com/cwbudde/algo-neuro/measure/connectivity"
	"github.com/cwbudde/algo-neuro/source"
)

// Config holds every analysis option as a named, typed, defaulted field.
//
// Zero values select defaults: NFFT = 2x sample rate, WindowLength = one
// second, Overlap = half a window, Hann window, legacy decibel conversion,
// the canonical theta/alpha/beta bands, ROIs = the union of all network
// members, the default power and connectivity reductions, a PCA spatial
// filter, one worker, and a no-op logger.
type Config struct {
	// Welch conventions, shared by power and connectivity estimation.
	NFFT         int
	WindowLength int
	Overlap      int
	WindowType   window.Type

	// Decibels selects the power rescaling mode. The zero value is the
	// legacy 10*log10(x^2) conversion for output compatibility.
	Decibels bandpower.DecibelMode

	// Bands in canonical order; reduction column indices refer to it.
	Bands []bandpower.Band

	// ROIs to analyze for band power. Empty selects every ROI referenced
	// by any network.
	ROIs []int

	// PowerReductions maps output names to band-power reductions.
	PowerReductions map[string]bandpower.Reduction

	// ConnectivityReductions maps output-name suffixes to network
	// reductions; results are stored under "<network>_<name>".
	ConnectivityReductions map[string]connectivity.Reduction

	// WrapMean wraps every output value in a one-field "mean" record when
	// marshalled instead of returning it bare.
	WrapMean bool

	// Workers sizes the worker pool across ROIs and networks. The default
	// of 1 keeps execution strictly sequential.
	Workers int

	// Filter is the ROI spatial-reduction primitive.
	Filter spatial.Filter

	Logger *zap.Logger
}

// normalize fills defaults. It does not validate against the atlas; see
// validate.
func (c Config) normalize(networks []source.Network) Config {
	if len(c.Bands) == 0 {
		c.Bands = bandpower.DefaultBands()
	}

	if len(c.ROIs) == 0 {
		c.ROIs = networkUnion(networks)
	}

	if c.PowerReductions == nil {
		c.PowerReductions = bandpower.DefaultReductions()
	}

	if c.ConnectivityReductions == nil {
		c.ConnectivityReductions = connectivity.DefaultReductions()
	}

	if c.Workers < 1 {
		c.Workers = 1
	}

	if c.Filter == nil {
		c.Filter = spatial.PCA{}
	}

	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}

	return c
}

// validate rejects structurally invalid input before any computation.
func (c Config) validate(sampleRate float64, atlas *source.Atlas, networks []source.Network) error {
	if atlas == nil {
		return fmt.Errorf("%w: atlas reference is mandatory", ErrConfiguration)
	}

	if err := bandpower.ValidateBands(c.Bands); err != nil {
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	if _, err := welch.NewEstimator(c.welch(sampleRate)); err != nil {
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	for _, id := range c.ROIs {
		if _, ok := atlas.ROI(id); !ok {
			return fmt.Errorf("%w: roi %d not in atlas", ErrConfiguration, id)
		}
	}

	seenNet := make(map[string]bool, len(networks))
	for _, net := range networks {
		if net.Name == "" {
			return fmt.Errorf("%w: network without a name", ErrConfiguration)
		}
		if seenNet[net.Name] {
			return fmt.Errorf("%w: duplicate network name %q", ErrConfiguration, net.Name)
		}
		seenNet[net.Name] = true

		for _, id := range net.ROIs {
			if _, ok := atlas.ROI(id); !ok {
				return fmt.Errorf("%w: network %q references roi %d not in atlas", ErrConfiguration, net.Name, id)
			}
		}
	}

	// output keys must be disjoint by construction; no entry is ever
	// overwritten
	keys := make(map[string]bool, len(c.PowerReductions)+len(networks)*len(c.ConnectivityReductions))
	for name := range c.PowerReductions {
		keys[name] = true
	}
	for _, net := range networks {
		for name := range c.ConnectivityReductions {
			key := net.Name + "_" + name
			if keys[key] {
				return fmt.Errorf("%w: duplicate output key %q", ErrConfiguration, key)
			}
			keys[key] = true
		}
	}

	return nil
}

func (c Config) welch(sampleRate float64) welch.Config {
	return welch.Config{
		SampleRate:   sampleRate,
		WindowLength: c.WindowLength,
		Overlap:      c.Overlap,
		NFFT:         c.NFFT,
		WindowType:   c.WindowType,
	}
}

// networkUnion returns the sorted union of all ROI identifiers referenced
// by any network.
func networkUnion(networks []source.Network) []int {
	seen := make(map[int]bool)
	for _, net := range networks {
		for _, id := range net.ROIs {
			seen[id] = true
		}
	}

	out := make([]int, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

// sortedNames returns map keys in a stable order for deterministic
// processing and logging.
func sortedNames[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for name := range m {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
