// SPDX-License-Identifier: MIT
package synth

import (
	"math"
	"testing"
)

const testSampleRate = 44100

func TestSineWave(t *testing.T) {
	tests := []struct {
		name       string
		size       int
		sampleRate float64
		frequency  float64
	}{
		{"A4 Note", 1024, 44100, 440.0},
		{"Middle C", 1024, 44100, 261.63},
		{"Low Sample Rate", 1024, 8000, 440.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SineWave(tt.size, tt.sampleRate, tt.frequency, 0.9)
			if len(result) != tt.size {
				t.Fatalf("SineWave() size = %d, want %d", len(result), tt.size)
			}

			crossings := 0
			for i := 1; i < tt.size; i++ {
				if (result[i-1] < 0) != (result[i] < 0) {
					crossings++
				}
			}

			// Two zero crossings per cycle, with 20% tolerance for phase.
			expected := float64(tt.size) / (tt.sampleRate / tt.frequency / 2)
			if math.Abs(float64(crossings)-expected) > 0.2*expected {
				t.Errorf("zero crossings = %d, expected about %.1f", crossings, expected)
			}
		})
	}
}

func TestImpulseTrain(t *testing.T) {
	buf := ImpulseTrain(100, 30, 5, 1)
	for i, v := range buf {
		want := 0.0
		if i >= 5 && (i-5)%30 == 0 {
			want = 1
		}
		if v != want {
			t.Errorf("sample %d = %v, want %v", i, v, want)
		}
	}

	for _, v := range ImpulseTrain(10, 0, 0, 1) {
		if v != 0 {
			t.Fatal("zero period should produce silence")
		}
	}
}

func TestBeatPeriod(t *testing.T) {
	tests := []struct {
		bpm, rate float64
		want      int
	}{
		{120, 44100, 22050},
		{240, 44100, 11025},
		{128, 48000, 22500},
		{0, 44100, 0},
	}
	for _, tt := range tests {
		if got := BeatPeriod(tt.bpm, tt.rate); got != tt.want {
			t.Errorf("BeatPeriod(%v, %v) = %d, want %d", tt.bpm, tt.rate, got, tt.want)
		}
	}
}

func TestClickTrackOnsets(t *testing.T) {
	buf := ClickTrack(120, 2, testSampleRate)
	if len(buf) != 2*testSampleRate {
		t.Fatalf("length = %d, want %d", len(buf), 2*testSampleRate)
	}

	period := BeatPeriod(120, testSampleRate)
	for start := 0; start < len(buf); start += period {
		if buf[start] != DefaultClickAmplitude {
			t.Errorf("onset at %d = %v, want %v", start, buf[start], DefaultClickAmplitude)
		}
		if buf[start-1+period/2] != 0 {
			t.Errorf("expected silence between clicks at %d", start-1+period/2)
		}
	}

	if len(ClickTrack(120, 0, testSampleRate)) != 0 {
		t.Error("zero duration should produce an empty track")
	}
}

func TestFindPeakBin(t *testing.T) {
	mags := make([]float64, 256)
	for i := range mags {
		mags[i] = math.Exp(-0.01 * math.Pow(float64(i-64), 2))
	}

	tests := []struct {
		name       string
		mags       []float64
		start, end int
		expected   int
	}{
		{"Full Range", mags, 0, 255, 64},
		{"Negative Start", mags, -10, 255, 64},
		{"Out of Range End", mags, 0, 1000, 64},
		{"Excludes Peak", mags, 100, 255, 100},
		{"Empty Slice", []float64{}, 0, 10, 0},
		{"Single Value", []float64{1.0}, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FindPeakBin(tt.mags, tt.start, tt.end); got != tt.expected {
				t.Errorf("FindPeakBin() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestToInt(t *testing.T) {
	got := ToInt([]float64{0, 1, -1, 2, -2, 0.5}, 16)
	want := []int{0, 32767, -32767, 32767, -32767, 16384}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ToInt[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestWhiteNoise(t *testing.T) {
	a := WhiteNoise(1000, 0.5, 7)
	b := WhiteNoise(1000, 0.5, 7)
	for i := range a {
		if a[i] != b[i] {
			t.Fatal("same seed produced different noise")
		}
		if math.Abs(a[i]) > 0.5 {
			t.Fatalf("sample %d = %v exceeds amplitude", i, a[i])
		}
	}
}
