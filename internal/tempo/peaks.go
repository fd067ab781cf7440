// SPDX-License-Identifier: MIT
package tempo

import (
	"math"
	"time"
)

// FindPeaks returns the indices of samples that exceed threshold. After each
// accepted peak the scan jumps refractory samples ahead so a single onset
// whose amplitude stays elevated is only reported once.
//
// The result is strictly increasing and consecutive entries differ by at
// least refractory. A refractory below 1 is treated as 1.
func FindPeaks(samples []float64, threshold float64, refractory int) []int {
	if refractory < 1 {
		refractory = 1
	}

	peaks := make([]int, 0, 16)
	for i := 0; i < len(samples); {
		if samples[i] > threshold {
			peaks = append(peaks, i)
			i += refractory
			continue
		}
		i++
	}
	return peaks
}

// RefractorySamples converts a refractory window into a whole number of
// samples at the given rate. It never returns less than 1.
func RefractorySamples(window time.Duration, sampleRate float64) int {
	n := int(math.Round(window.Seconds() * sampleRate))
	if n < 1 {
		return 1
	}
	return n
}
