// SPDX-License-Identifier: MIT
package bitint

import (
	"fmt"
	"testing"
)

func TestNextPowerOfTwo(t *testing.T) {
	tests := []struct {
		n        int
		expected int
	}{
		{-10, 1},
		{0, 1},
		{1, 1},
		{3, 4},
		{8, 8},
		{10, 16},
		{200, 256},
		{735, 1024},
		{1 << 20, 1 << 20},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d→%d", tt.n, tt.expected), func(t *testing.T) {
			if got := NextPowerOfTwo(tt.n); got != tt.expected {
				t.Errorf("NextPowerOfTwo(%d) = %d, expected %d", tt.n, got, tt.expected)
			}
		})
	}
}

func TestIsPowerOfTwo(t *testing.T) {
	tests := []struct {
		n        int
		expected bool
	}{
		{-8, false},
		{0, false},
		{1, true},
		{2, true},
		{6, false},
		{256, true},
		{300, false},
		{32768, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.n), func(t *testing.T) {
			if got := IsPowerOfTwo(tt.n); got != tt.expected {
				t.Errorf("IsPowerOfTwo(%d) = %v, expected %v", tt.n, got, tt.expected)
			}
		})
	}
}

func TestPowerOfTwoZeroAllocs(t *testing.T) {
	allocs := testing.AllocsPerRun(100, func() {
		_ = NextPowerOfTwo(1000)
		_ = IsPowerOfTwo(1024)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations, got %.1f", allocs)
	}
}
