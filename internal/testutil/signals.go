package testutil

import (
	"math"
	"math/rand"
)

// DeterministicSine generates a deterministic sine wave.
func DeterministicSine(freqHz, sampleRate, amplitude float64, length int) []float64 {
	return DeterministicSinePhase(freqHz, sampleRate, amplitude, 0, length)
}

// DeterministicSinePhase generates a deterministic sine wave with an initial
// phase in radians. Useful for constructing lagged signal pairs.
func DeterministicSinePhase(freqHz, sampleRate, amplitude, phase float64, length int) []float64 {
	out := make([]float64, length)
	step := 2 * math.Pi * freqHz / sampleRate
	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i)+phase)
	}
	return out
}

// DeterministicNoise generates white noise with a fixed seed for reproducibility.
func DeterministicNoise(seed int64, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewSource(seed))
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}
	return out
}

// SineRecording builds a trials x channels x samples array where every
// channel of every trial carries the same deterministic sine. The layout
// matches source.NewRecording input.
func SineRecording(freqHz, sampleRate float64, trials, channels, samples int) [][][]float64 {
	sig := DeterministicSine(freqHz, sampleRate, 1.0, samples)

	out := make([][][]float64, trials)
	for t := range out {
		out[t] = make([][]float64, channels)
		for c := range out[t] {
			row := make([]float64, samples)
			copy(row, sig)
			out[t][c] = row
		}
	}
	return out
}

// NoiseRecording builds a trials x channels x samples array of seeded white
// noise, with a distinct stream per trial and channel.
func NoiseRecording(seed int64, trials, channels, samples int) [][][]float64 {
	out := make([][][]float64, trials)
	for t := range out {
		out[t] = make([][]float64, channels)
		for c := range out[t] {
			out[t][c] = DeterministicNoise(seed+int64(t*channels+c), 1.0, samples)
		}
	}
	return out
}
