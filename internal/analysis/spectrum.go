// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"math/cmplx"
	"sync"

	applog "tempo/internal/log"
	"tempo/pkg/bitint"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/dsp/fourier"
)

// Spectrum limits and defaults. The defaults reproduce a browser
// AnalyserNode with fftSize 256, which yields 128 byte-scaled bins.
const (
	MinFFTSize = 32
	MaxFFTSize = 32768

	DefaultFFTSize     = 256
	DefaultSmoothing   = 0.8
	DefaultMinDecibels = -100.0
	DefaultMaxDecibels = -30.0
)

// SpectrumOptions configures a Spectrum.
type SpectrumOptions struct {
	FFTSize     int        // Points per FFT, a power of two.
	SampleRate  float64    // Rate of the incoming samples (Hz).
	Smoothing   float64    // Weight of the previous frame, 0 <= s < 1.
	MinDecibels float64    // Level mapped to 0.
	MaxDecibels float64    // Level mapped to 255.
	Window      WindowFunc // Window applied before the FFT.
}

// DefaultSpectrumOptions returns AnalyserNode-compatible settings.
func DefaultSpectrumOptions(sampleRate float64) SpectrumOptions {
	return SpectrumOptions{
		FFTSize:     DefaultFFTSize,
		SampleRate:  sampleRate,
		Smoothing:   DefaultSmoothing,
		MinDecibels: DefaultMinDecibels,
		MaxDecibels: DefaultMaxDecibels,
		Window:      Blackman,
	}
}

// Validate reports out-of-range options as ErrConfiguration.
func (o SpectrumOptions) Validate() error {
	if !bitint.IsPowerOfTwo(o.FFTSize) || o.FFTSize < MinFFTSize || o.FFTSize > MaxFFTSize {
		return errors.Wrapf(ErrConfiguration, "fft size must be a power of 2 in [%d, %d], got %d", MinFFTSize, MaxFFTSize, o.FFTSize)
	}
	if !(o.SampleRate > 0) || math.IsInf(o.SampleRate, 0) {
		return errors.Wrapf(ErrConfiguration, "sample rate must be positive, got %v", o.SampleRate)
	}
	if !(o.Smoothing >= 0 && o.Smoothing < 1) {
		return errors.Wrapf(ErrConfiguration, "smoothing must be in [0, 1), got %v", o.Smoothing)
	}
	if !(o.MinDecibels < o.MaxDecibels) {
		return errors.Wrapf(ErrConfiguration, "min decibels (%v) must be below max decibels (%v)", o.MinDecibels, o.MaxDecibels)
	}
	return nil
}

// Spectrum turns a sliding window of PCM samples into byte-scaled frequency
// frames. Samples are pushed with Write and a frame of the most recent
// FFTSize samples is computed with Frame.
//
// Frame computation does not allocate when the caller supplies a
// destination of BinCount length.
type Spectrum struct {
	opts   SpectrumOptions
	fft    *fourier.FFT
	window []float64

	mu       sync.Mutex
	history  []float64    // Most recent FFTSize samples, oldest first.
	input    []float64    // Windowed copy of history.
	coeffs   []complex128 // FFT output, FFTSize/2+1 values.
	smoothed []float64    // Smoothed magnitudes, FFTSize/2 values.
}

// NewSpectrum validates opts and pre-allocates all buffers.
func NewSpectrum(opts SpectrumOptions) (*Spectrum, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	applog.Debugf("Analysis: spectrum (FFT %d, %.0f Hz, window %s, smoothing %.2f)",
		opts.FFTSize, opts.SampleRate, opts.Window, opts.Smoothing)

	return &Spectrum{
		opts:     opts,
		fft:      fourier.NewFFT(opts.FFTSize),
		window:   windowCoefficients(opts.FFTSize, opts.Window),
		history:  make([]float64, opts.FFTSize),
		input:    make([]float64, opts.FFTSize),
		coeffs:   make([]complex128, opts.FFTSize/2+1),
		smoothed: make([]float64, opts.FFTSize/2),
	}, nil
}

// BinCount returns the number of bins in each frame (FFTSize/2).
func (s *Spectrum) BinCount() int {
	return s.opts.FFTSize / 2
}

// Layout describes the frequency of each bin.
func (s *Spectrum) Layout() BandLayout {
	return BandLayout{SampleRate: s.opts.SampleRate, FFTSize: s.opts.FFTSize}
}

// Write appends samples to the sliding window, discarding the oldest.
func (s *Spectrum) Write(samples []float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.history)
	if len(samples) >= n {
		copy(s.history, samples[len(samples)-n:])
		return
	}
	copy(s.history, s.history[len(samples):])
	copy(s.history[n-len(samples):], samples)
}

// Frame computes the spectrum of the current window into dst, growing it
// when needed, and returns it. Each bin is a byte-scaled level in [0, 255].
func (s *Spectrum) Frame(dst Frame) Frame {
	bins := s.BinCount()
	if cap(dst) < bins {
		dst = make(Frame, bins)
	}
	dst = dst[:bins]

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, v := range s.history {
		s.input[i] = v * s.window[i]
	}
	s.fft.Coefficients(s.coeffs, s.input)

	tau := s.opts.Smoothing
	scale := 1.0 / float64(s.opts.FFTSize)
	dbRange := s.opts.MaxDecibels - s.opts.MinDecibels
	for i := range bins {
		mag := cmplx.Abs(s.coeffs[i]) * scale
		s.smoothed[i] = tau*s.smoothed[i] + (1-tau)*mag

		level := 0.0
		if s.smoothed[i] > 0 {
			db := 20 * math.Log10(s.smoothed[i])
			level = math.Floor(255 / dbRange * (db - s.opts.MinDecibels))
		}
		dst[i] = math.Max(0, math.Min(255, level))
	}
	return dst
}

// Process writes samples and returns a freshly allocated frame.
func (s *Spectrum) Process(samples []float64) Frame {
	s.Write(samples)
	return s.Frame(nil)
}

// Reset clears the sample window and smoothing history.
func (s *Spectrum) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.history)
	clear(s.smoothed)
}
