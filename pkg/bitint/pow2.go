// SPDX-License-Identifier: MIT
/*
Package bitint holds the power-of-two helpers used to size FFT windows.

Both functions are branch-light, allocation free and safe to call from the
audio callback.
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of two >= size, and 1 for
// non-positive sizes. Subtracting one first keeps exact powers unchanged:
// for 8, bits.Len(7) is 3 and 1<<3 is 8 again.
//
//	Input  Output
//	4      4
//	5      8
//	0      1
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of two. A power of two
// has a single bit set, so n&(n-1) clears it to zero.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
