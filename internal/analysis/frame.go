// SPDX-License-Identifier: MIT
package analysis

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Frame is one time slice of a stream in the frequency domain: one
// non-negative magnitude per analysis bin.
type Frame []float64

// MeanEnergy returns the average magnitude across all bins. Empty or
// malformed frames (NaN or infinite sums) count as silence.
func (f Frame) MeanEnergy() float64 {
	if len(f) == 0 {
		return 0
	}
	mean := floats.Sum(f) / float64(len(f))
	if math.IsNaN(mean) || math.IsInf(mean, 0) {
		return 0
	}
	return mean
}

// Clone returns a copy of f that does not share storage.
func (f Frame) Clone() Frame {
	if f == nil {
		return nil
	}
	c := make(Frame, len(f))
	copy(c, f)
	return c
}
