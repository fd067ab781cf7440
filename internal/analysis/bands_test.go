// SPDX-License-Identifier: MIT
package analysis

import "testing"

func TestBandLayoutFrequency(t *testing.T) {
	l := BandLayout{SampleRate: 44100, FFTSize: 256}
	tests := []struct {
		bin  int
		want float64
	}{
		{0, 0},
		{1, 44100.0 / 256},
		{128, 22050},
		{-1, 0},
	}
	for _, tt := range tests {
		if got := l.Frequency(tt.bin); got != tt.want {
			t.Errorf("Frequency(%d) = %v, want %v", tt.bin, got, tt.want)
		}
	}
	if (BandLayout{}).Frequency(3) != 0 {
		t.Error("zero layout should map every bin to 0 Hz")
	}
}

func TestBandEnergies(t *testing.T) {
	l := BandLayout{SampleRate: 1000, FFTSize: 1000} // 1 Hz per bin
	f := make(Frame, 500)
	for i := 60; i < 250; i++ {
		f[i] = 10
	}

	energies := l.BandEnergies(f, DefaultBands)
	if len(energies) != len(DefaultBands) {
		t.Fatalf("got %d bands, want %d", len(energies), len(DefaultBands))
	}
	for _, e := range energies {
		want := 0.0
		if e.Name == "bass" {
			want = 10
		}
		if e.Energy != want {
			t.Errorf("band %s energy = %v, want %v", e.Name, e.Energy, want)
		}
	}
}

func TestFrameMeanEnergy(t *testing.T) {
	tests := []struct {
		name  string
		frame Frame
		want  float64
	}{
		{"nil", nil, 0},
		{"empty", Frame{}, 0},
		{"uniform", Frame{4, 4, 4, 4}, 4},
		{"mixed", Frame{0, 10, 20}, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.frame.MeanEnergy(); got != tt.want {
				t.Errorf("MeanEnergy() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFrameClone(t *testing.T) {
	f := Frame{1, 2, 3}
	c := f.Clone()
	c[0] = 99
	if f[0] != 1 {
		t.Error("Clone shares storage with the original")
	}
	if Frame(nil).Clone() != nil {
		t.Error("Clone of nil should be nil")
	}
}
