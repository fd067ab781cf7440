// SPDX-License-Identifier: MIT
package tempo

import (
	"fmt"
	"testing"
)

func TestHistogramAdd(t *testing.T) {
	h := NewHistogram()
	for _, iv := range []int{5, 3, 5, 5, 3, 9} {
		h.Add(iv)
	}

	if h.Len() != 3 {
		t.Errorf("Len() = %d, want 3", h.Len())
	}
	if h.Total() != 6 {
		t.Errorf("Total() = %d, want 6", h.Total())
	}
	if h.Count(5) != 3 || h.Count(3) != 2 || h.Count(9) != 1 || h.Count(42) != 0 {
		t.Errorf("unexpected counts: 5=%d 3=%d 9=%d 42=%d", h.Count(5), h.Count(3), h.Count(9), h.Count(42))
	}

	buckets := h.Buckets()
	want := []Bucket{{3, 2}, {5, 3}, {9, 1}}
	for i := range want {
		if buckets[i] != want[i] {
			t.Errorf("bucket %d = %+v, want %+v", i, buckets[i], want[i])
		}
	}
}

func TestHistogramDominantTieBreak(t *testing.T) {
	h := NewHistogram()
	h.Add(200)
	h.Add(100)
	h.Add(200)
	h.Add(100)

	b, ok := h.Dominant()
	if !ok {
		t.Fatal("Dominant() reported empty histogram")
	}
	if b.Interval != 100 || b.Count != 2 {
		t.Errorf("Dominant() = %+v, want {100 2}", b)
	}

	if _, ok := NewHistogram().Dominant(); ok {
		t.Error("Dominant() on empty histogram should report !ok")
	}
}

func TestBuildHistogramEmpty(t *testing.T) {
	h := BuildHistogram(nil, DefaultWindow)
	if h.Len() != 0 || h.Total() != 0 {
		t.Errorf("expected empty histogram, got len=%d total=%d", h.Len(), h.Total())
	}
}

func TestBuildHistogramImpulses(t *testing.T) {
	h := BuildHistogram([]int{0, 11025, 22050, 33075}, DefaultWindow)

	if h.Count(11025) != 3 || h.Count(22050) != 2 || h.Count(33075) != 1 {
		t.Errorf("unexpected buckets: %+v", h.Buckets())
	}
	b, _ := h.Dominant()
	if b.Interval != 11025 {
		t.Errorf("dominant interval = %d, want 11025", b.Interval)
	}
}

func TestBuildHistogramTotalCount(t *testing.T) {
	for _, n := range []int{0, 1, 2, 5, 9, 10, 11, 37} {
		for _, window := range []int{2, 4, DefaultWindow} {
			t.Run(fmt.Sprintf("peaks=%d/window=%d", n, window), func(t *testing.T) {
				peaks := make([]int, n)
				for i := range peaks {
					peaks[i] = i*1000 + (i*i)%17
				}

				want := 0
				for i := range peaks {
					want += min(window-1, n-1-i)
				}

				h := BuildHistogram(peaks, window)
				if h.Total() != want {
					t.Errorf("Total() = %d, want %d", h.Total(), want)
				}

				sum := 0
				for _, b := range h.Buckets() {
					if b.Count < 1 {
						t.Errorf("bucket %+v has count < 1", b)
					}
					if b.Interval <= 0 {
						t.Errorf("bucket %+v has non-positive interval", b)
					}
					sum += b.Count
				}
				if sum != want {
					t.Errorf("sum of bucket counts = %d, want %d", sum, want)
				}
			})
		}
	}
}

func TestBuildHistogramWindowFallback(t *testing.T) {
	peaks := []int{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100, 110}
	if got, want := BuildHistogram(peaks, 0).Total(), BuildHistogram(peaks, DefaultWindow).Total(); got != want {
		t.Errorf("window 0 total = %d, want default window total %d", got, want)
	}
}
