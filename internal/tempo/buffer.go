// SPDX-License-Identifier: MIT
package tempo

import "time"

// Buffer is a decoded mono PCM clip with samples normalised to [-1, 1].
type Buffer struct {
	Samples    []float64
	SampleRate float64
}

// Len returns the number of samples.
func (b Buffer) Len() int {
	return len(b.Samples)
}

// Duration returns the length of the clip, or zero when the sample rate is
// not positive.
func (b Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(b.Samples)) / b.SampleRate * float64(time.Second))
}
