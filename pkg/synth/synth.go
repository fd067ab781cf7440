// SPDX-License-Identifier: MIT
/*
Package synth generates test signals: sine tones, impulse trains and
metronome click tracks. Samples are float64 in [-1, 1].
*/
package synth

import (
	"math"
	"math/rand/v2"
)

// Click track defaults.
const (
	DefaultClickFrequency = 1000.0 // Hz
	DefaultClickLength    = 0.02   // seconds
	DefaultClickAmplitude = 0.9
)

// SineWave returns size samples of a sine at frequency with the given
// amplitude.
func SineWave(size int, sampleRate, frequency, amplitude float64) []float64 {
	buffer := make([]float64, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = amplitude * math.Sin(2*math.Pi*frequency*t)
	}
	return buffer
}

// ImpulseTrain returns size samples of silence with an impulse of amplitude
// every period samples, starting at offset.
func ImpulseTrain(size, period, offset int, amplitude float64) []float64 {
	buffer := make([]float64, size)
	if period <= 0 {
		return buffer
	}
	for i := max(offset, 0); i < size; i += period {
		buffer[i] = amplitude
	}
	return buffer
}

// WhiteNoise returns size uniformly distributed samples in
// [-amplitude, amplitude]. The same seed always yields the same noise.
func WhiteNoise(size int, amplitude float64, seed uint64) []float64 {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	buffer := make([]float64, size)
	for i := range buffer {
		buffer[i] = amplitude * (2*rng.Float64() - 1)
	}
	return buffer
}

// BeatPeriod returns the number of samples between beats at bpm.
func BeatPeriod(bpm, sampleRate float64) int {
	if bpm <= 0 {
		return 0
	}
	return int(math.Round(60 * sampleRate / bpm))
}

// ClickTrack returns a metronome at bpm lasting seconds. Each click is a
// short decaying tone whose first sample is at full amplitude, so the onset
// lands exactly on the beat.
func ClickTrack(bpm, seconds, sampleRate float64) []float64 {
	size := int(seconds * sampleRate)
	if size <= 0 {
		return []float64{}
	}
	buffer := make([]float64, size)

	period := BeatPeriod(bpm, sampleRate)
	if period <= 0 {
		return buffer
	}

	clickLen := int(DefaultClickLength * sampleRate)
	decay := DefaultClickLength / 5
	for start := 0; start < size; start += period {
		for j := 0; j < clickLen && start+j < size; j++ {
			t := float64(j) / sampleRate
			envelope := math.Exp(-t / decay)
			buffer[start+j] = DefaultClickAmplitude * envelope * math.Cos(2*math.Pi*DefaultClickFrequency*t)
		}
	}
	return buffer
}

// FindPeakBin returns the index of the largest value in
// magnitudes[startBin:endBin+1], clamping the range to the slice.
func FindPeakBin(magnitudes []float64, startBin, endBin int) int {
	if len(magnitudes) == 0 {
		return 0
	}
	if startBin < 0 {
		startBin = 0
	}
	if endBin >= len(magnitudes) {
		endBin = len(magnitudes) - 1
	}

	peakBin := startBin
	peakValue := magnitudes[startBin]
	for bin := startBin + 1; bin <= endBin; bin++ {
		if magnitudes[bin] > peakValue {
			peakValue = magnitudes[bin]
			peakBin = bin
		}
	}
	return peakBin
}

// ToInt converts samples to signed integers at bitDepth, clipping to
// [-1, 1].
func ToInt(samples []float64, bitDepth int) []int {
	scale := float64(int(1)<<(bitDepth-1) - 1)
	out := make([]int, len(samples))
	for i, s := range samples {
		s = math.Max(-1, math.Min(1, s))
		out[i] = int(math.Round(s * scale))
	}
	return out
}
