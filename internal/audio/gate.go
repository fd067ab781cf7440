// SPDX-License-Identifier: MIT
package audio

import (
	"math"
	"sync/atomic"
)

// Gate is a peak noise gate. A block passes when its largest absolute
// sample exceeds the threshold. Settings may be changed from any goroutine
// while the audio callback reads them.
type Gate struct {
	enabled   atomic.Bool
	threshold atomic.Uint64 // math.Float64bits of a value in [0, 1].
}

// NewGate returns a gate at threshold, enabled when threshold is above zero.
func NewGate(threshold float64) *Gate {
	g := &Gate{}
	g.SetThreshold(threshold)
	if g.Threshold() > 0 {
		g.Enable()
	}
	return g
}

func (g *Gate) Enable()  { g.enabled.Store(true) }
func (g *Gate) Disable() { g.enabled.Store(false) }

// Enabled reports whether the gate is active.
func (g *Gate) Enabled() bool { return g.enabled.Load() }

// SetThreshold sets the gate level, clamped to [0, 1] where 0 is always
// open and 1 is always closed.
func (g *Gate) SetThreshold(threshold float64) {
	if !(threshold > 0) {
		threshold = 0
	}
	if threshold > 1 {
		threshold = 1
	}
	g.threshold.Store(math.Float64bits(threshold))
}

// Threshold returns the current gate level.
func (g *Gate) Threshold() float64 {
	return math.Float64frombits(g.threshold.Load())
}

// Open reports whether buffer passes the gate. A disabled gate is always
// open.
func (g *Gate) Open(buffer []float64) bool {
	if !g.enabled.Load() {
		return true
	}
	threshold := g.Threshold()
	for _, s := range buffer {
		if math.Abs(s) > threshold {
			return true
		}
	}
	return false
}
