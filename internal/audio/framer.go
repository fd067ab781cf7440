// SPDX-License-Identifier: MIT
package audio

import (
	"math"

	"tempo/internal/analysis"
)

// framer slices a mono sample stream into hops and computes one spectrum
// frame per completed hop.
//
// Frames are written into a ring of pre-allocated slices, so a frame the
// consumer accepted stays valid until len(ring)-1 further frames have been
// accepted. The ring is sized to the consumer queue plus one frame being
// processed and one being written. A dropped frame's slot is reused.
type framer struct {
	spectrum *analysis.Spectrum
	hop      int
	pending  int

	ring []analysis.Frame
	next int
}

func newFramer(spectrum *analysis.Spectrum, sampleRate, frameRate float64, queue int) *framer {
	ring := make([]analysis.Frame, queue+2)
	for i := range ring {
		ring[i] = make(analysis.Frame, spectrum.BinCount())
	}
	return &framer{
		spectrum: spectrum,
		hop:      hopSize(sampleRate, frameRate),
		ring:     ring,
	}
}

// hopSize is the number of samples between frames, at least one.
func hopSize(sampleRate, frameRate float64) int {
	return max(1, int(math.Round(sampleRate/frameRate)))
}

// frameRate returns the effective rate after rounding the hop.
func (f *framer) frameRate(sampleRate float64) float64 {
	return sampleRate / float64(f.hop)
}

// emitResult reports what happened to a frame handed to emit.
type emitResult int

const (
	frameSent    emitResult = iota // the consumer owns the frame
	frameDropped                   // the slot may be overwritten
	emitStopped                    // the consumer is gone
)

// push feeds samples, calling emit for every completed hop. It returns
// false as soon as emit reports emitStopped.
func (f *framer) push(samples []float64, emit func(analysis.Frame) emitResult) bool {
	for len(samples) > 0 {
		n := min(f.hop-f.pending, len(samples))
		f.spectrum.Write(samples[:n])
		f.pending += n
		samples = samples[n:]

		if f.pending < f.hop {
			continue
		}
		f.pending = 0
		frame := f.spectrum.Frame(f.ring[f.next])
		f.ring[f.next] = frame
		switch emit(frame) {
		case frameSent:
			f.next = (f.next + 1) % len(f.ring)
		case emitStopped:
			return false
		}
	}
	return true
}

func (f *framer) reset() {
	f.pending = 0
	f.spectrum.Reset()
}
