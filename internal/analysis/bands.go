// SPDX-License-Identifier: MIT
package analysis

// BandLayout maps frame bins to frequencies.
type BandLayout struct {
	SampleRate float64
	FFTSize    int
}

// Frequency returns the centre frequency (Hz) of bin.
func (l BandLayout) Frequency(bin int) float64 {
	if l.FFTSize <= 0 || bin < 0 {
		return 0
	}
	return float64(bin) * l.SampleRate / float64(l.FFTSize)
}

// FrequencyBand is a named frequency range.
type FrequencyBand struct {
	Name   string
	LowHz  float64
	HighHz float64
}

// DefaultBands splits the spectrum into the usual mixing ranges.
var DefaultBands = []FrequencyBand{
	{Name: "sub", LowHz: 20, HighHz: 60},
	{Name: "bass", LowHz: 60, HighHz: 250},
	{Name: "lowMid", LowHz: 250, HighHz: 500},
	{Name: "mid", LowHz: 500, HighHz: 2000},
	{Name: "highMid", LowHz: 2000, HighHz: 4000},
	{Name: "treble", LowHz: 4000, HighHz: 24000},
}

// BandEnergy is the mean bin level within one band.
type BandEnergy struct {
	Name   string  `json:"name"`
	Energy float64 `json:"energy"`
}

// BandEnergies averages the bins of f that fall in each band. Bands that
// contain no bins report zero.
func (l BandLayout) BandEnergies(f Frame, bands []FrequencyBand) []BandEnergy {
	out := make([]BandEnergy, len(bands))
	counts := make([]int, len(bands))
	for i, band := range bands {
		out[i].Name = band.Name
	}

	for bin, level := range f {
		freq := l.Frequency(bin)
		for i, band := range bands {
			if freq >= band.LowHz && freq < band.HighHz {
				out[i].Energy += level
				counts[i]++
				break
			}
		}
	}

	for i := range out {
		if counts[i] > 0 {
			out[i].Energy /= float64(counts[i])
		}
	}
	return out
}
