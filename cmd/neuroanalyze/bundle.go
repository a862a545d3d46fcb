package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cwbudde/algo-neuro/dsp/window"
	"github.com/cwbudde/algo-neuro/measure/bandpower"
	"github.com/cwbudde/algo-neuro/pipeline"
	"github.com/cwbudde/algo-neuro/source"
)

// Bundle is the on-disk analysis input: the recording, the leadfield, the
// atlas, the networks, and the analysis options, in one YAML document.
type Bundle struct {
	// SampleRate in Hz.
	SampleRate float64 `yaml:"sample_rate"`

	// Recording samples indexed trial, channel, time.
	Recording [][][]float64 `yaml:"recording"`

	// Operator rows: channels x (voxels*3).
	Operator [][]float64 `yaml:"operator"`

	Atlas    []BundleROI     `yaml:"atlas"`
	Networks []BundleNetwork `yaml:"networks"`

	Analysis BundleAnalysis `yaml:"analysis"`
}

// BundleROI is one atlas entry.
type BundleROI struct {
	ID       int   `yaml:"id"`
	Vertices []int `yaml:"vertices"`
}

// BundleNetwork names a ROI group for connectivity analysis.
type BundleNetwork struct {
	Name string `yaml:"name"`
	ROIs []int  `yaml:"rois"`
}

// BundleBand is one frequency band, bounds inclusive.
type BundleBand struct {
	Name   string  `yaml:"name"`
	LowHz  float64 `yaml:"low_hz"`
	HighHz float64 `yaml:"high_hz"`
}

// BundleAnalysis mirrors pipeline.Config; empty fields keep the pipeline
// defaults.
type BundleAnalysis struct {
	NFFT         int    `yaml:"nfft"`
	WindowLength int    `yaml:"window_length"`
	Overlap      int    `yaml:"overlap"`
	Window       string `yaml:"window"`

	// Decibels: "legacy" (default), "standard", or "off".
	Decibels string `yaml:"decibels"`

	Bands []BundleBand `yaml:"bands"`
	ROIs  []int        `yaml:"rois"`

	WrapMean bool `yaml:"wrap_mean"`
	Workers  int  `yaml:"workers"`
}

// LoadBundle reads and decodes one YAML bundle.
func LoadBundle(path string) (*Bundle, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bundle: %w", err)
	}

	var b Bundle
	if err := yaml.Unmarshal(raw, &b); err != nil {
		return nil, fmt.Errorf("parse bundle %s: %w", path, err)
	}
	return &b, nil
}

// Build converts the decoded bundle into validated pipeline inputs.
func (b *Bundle) Build() (*source.Recording, *source.Operator, *source.Atlas, []source.Network, pipeline.Config, error) {
	var cfg pipeline.Config

	rec, err := source.NewRecording(b.Recording, b.SampleRate)
	if err != nil {
		return nil, nil, nil, nil, cfg, err
	}

	op, err := source.NewOperator(b.Operator)
	if err != nil {
		return nil, nil, nil, nil, cfg, err
	}

	rois := make([]source.ROI, len(b.Atlas))
	for i, r := range b.Atlas {
		rois[i] = source.ROI{ID: r.ID, Vertices: r.Vertices}
	}
	atlas, err := source.NewAtlas(rois)
	if err != nil {
		return nil, nil, nil, nil, cfg, err
	}

	networks := make([]source.Network, len(b.Networks))
	for i, n := range b.Networks {
		networks[i] = source.Network{Name: n.Name, ROIs: n.ROIs}
	}

	cfg, err = b.Analysis.config()
	return rec, op, atlas, networks, cfg, err
}

func (a BundleAnalysis) config() (pipeline.Config, error) {
	cfg := pipeline.Config{
		NFFT:         a.NFFT,
		WindowLength: a.WindowLength,
		Overlap:      a.Overlap,
		ROIs:         a.ROIs,
		WrapMean:     a.WrapMean,
		Workers:      a.Workers,
	}

	switch a.Window {
	case "", "hann":
		cfg.WindowType = window.TypeHann
	case "hamming":
		cfg.WindowType = window.TypeHamming
	case "blackman":
		cfg.WindowType = window.TypeBlackman
	case "flattop":
		cfg.WindowType = window.TypeFlatTop
	default:
		return cfg, fmt.Errorf("unknown window %q", a.Window)
	}

	switch a.Decibels {
	case "", "legacy":
		cfg.Decibels = bandpower.DecibelLegacy
	case "standard":
		cfg.Decibels = bandpower.DecibelStandard
	case "off":
		cfg.Decibels = bandpower.DecibelOff
	default:
		return cfg, fmt.Errorf("unknown decibel mode %q", a.Decibels)
	}

	if len(a.Bands) > 0 {
		cfg.Bands = make([]bandpower.Band, len(a.Bands))
		cfg.PowerReductions = make(map[string]bandpower.Reduction, len(a.Bands))
		for i, band := range a.Bands {
			cfg.Bands[i] = bandpower.Band{Name: band.Name, LowHz: band.LowHz, HighHz: band.HighHz}
			cfg.PowerReductions[band.Name] = bandpower.BandColumn(i)
		}
	}

	return cfg, nil
}
