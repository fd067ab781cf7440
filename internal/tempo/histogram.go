// SPDX-License-Identifier: MIT
package tempo

import "sort"

// DefaultWindow is the number of peaks considered together when counting
// intervals: a peak and the nine that follow it.
const DefaultWindow = 10

// Bucket is a single interval (in samples) and how often it was seen.
type Bucket struct {
	Interval int `json:"interval"`
	Count    int `json:"count"`
}

// Histogram counts inter-peak intervals. Each distinct interval is stored
// once and counts only grow.
type Histogram struct {
	counts map[int]int
	order  []int // intervals in first-seen order
	total  int
}

// NewHistogram returns an empty histogram.
func NewHistogram() *Histogram {
	return &Histogram{counts: make(map[int]int)}
}

// Add increments the count for interval, inserting it with a count of one
// if it has not been seen before.
func (h *Histogram) Add(interval int) {
	if _, ok := h.counts[interval]; !ok {
		h.order = append(h.order, interval)
	}
	h.counts[interval]++
	h.total++
}

// Count returns how many times interval was added.
func (h *Histogram) Count(interval int) int {
	return h.counts[interval]
}

// Len returns the number of distinct intervals.
func (h *Histogram) Len() int {
	return len(h.order)
}

// Total returns the sum of all bucket counts.
func (h *Histogram) Total() int {
	return h.total
}

// Buckets returns a copy of the histogram sorted by ascending interval.
func (h *Histogram) Buckets() []Bucket {
	buckets := make([]Bucket, 0, len(h.order))
	for _, interval := range h.order {
		buckets = append(buckets, Bucket{Interval: interval, Count: h.counts[interval]})
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Interval < buckets[j].Interval
	})
	return buckets
}

// Dominant returns the most frequent bucket. Ties go to the shorter
// interval. ok is false for an empty histogram.
func (h *Histogram) Dominant() (b Bucket, ok bool) {
	for _, interval := range h.order {
		count := h.counts[interval]
		if !ok || count > b.Count || (count == b.Count && interval < b.Interval) {
			b = Bucket{Interval: interval, Count: count}
			ok = true
		}
	}
	return b, ok
}

// BuildHistogram counts the distances from every peak to each of the next
// window-1 peaks. Peaks near the end of the sequence simply contribute fewer
// intervals. window values below 2 fall back to DefaultWindow.
func BuildHistogram(peaks []int, window int) *Histogram {
	if window < 2 {
		window = DefaultWindow
	}

	h := NewHistogram()
	for i, peak := range peaks {
		for j := i + 1; j < i+window && j < len(peaks); j++ {
			h.Add(peaks[j] - peak)
		}
	}
	return h
}
