// SPDX-License-Identifier: MIT
package tempo

import (
	"fmt"
	"math"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
)

// Strategy selects how a histogram is reduced to a single beat period.
type Strategy int

const (
	// StrategyDominant uses the most frequent interval.
	StrategyDominant Strategy = iota
	// StrategyMean averages every distinct interval, ignoring counts.
	StrategyMean
	// StrategyWeightedMean averages intervals weighted by their counts.
	StrategyWeightedMean
)

// DefaultStrategy is used when no strategy is configured. It is the
// dominant interval rather than the unweighted mean: the mean treats every
// distinct interval equally, so multiples of the beat period pull it far
// from the true tempo (a 240 BPM impulse train estimates well below 240).
// StrategyMean keeps the unweighted behaviour for callers that want it.
const DefaultStrategy = StrategyDominant

func (s Strategy) String() string {
	switch s {
	case StrategyDominant:
		return "dominant"
	case StrategyMean:
		return "mean"
	case StrategyWeightedMean:
		return "weighted"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// ParseStrategy converts a name (case-insensitive) to a Strategy. Unknown
// names return DefaultStrategy and an error wrapping ErrConfiguration.
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "dominant", "mode":
		return StrategyDominant, nil
	case "mean", "unweighted":
		return StrategyMean, nil
	case "weighted", "weighted-mean", "weighted_mean":
		return StrategyWeightedMean, nil
	default:
		return DefaultStrategy, errors.Wrapf(ErrConfiguration, "unknown estimation strategy %q", name)
	}
}

// EstimateBPM converts an interval histogram into beats per minute, rounded
// to the nearest integer. ErrNoEstimate is returned for an empty histogram,
// an unusable sample rate, or a beat period that is zero, not finite, or so
// long that it rounds below 1 BPM.
func EstimateBPM(h *Histogram, sampleRate float64, strategy Strategy) (int, error) {
	if h == nil || h.Len() == 0 {
		return 0, errors.Wrap(ErrNoEstimate, "empty interval histogram")
	}
	if !(sampleRate > 0) || math.IsInf(sampleRate, 0) {
		return 0, errors.Wrapf(ErrNoEstimate, "unusable sample rate %v", sampleRate)
	}

	period, err := beatPeriod(h, sampleRate, strategy)
	if err != nil {
		return 0, err
	}
	if period <= 0 || math.IsNaN(period) || math.IsInf(period, 0) {
		return 0, errors.Wrapf(ErrNoEstimate, "beat period %v", period)
	}

	bpm := math.Round(60 / period)
	if bpm < 1 || math.IsInf(bpm, 0) || bpm > math.MaxInt32 {
		return 0, errors.Wrapf(ErrNoEstimate, "beat period %v", period)
	}
	return int(bpm), nil
}

// beatPeriod returns the representative beat period in seconds.
func beatPeriod(h *Histogram, sampleRate float64, strategy Strategy) (float64, error) {
	buckets := h.Buckets()
	switch strategy {
	case StrategyDominant:
		b, _ := h.Dominant()
		return float64(b.Interval) / sampleRate, nil
	case StrategyMean, StrategyWeightedMean:
		durations := make([]float64, len(buckets))
		var weights []float64
		if strategy == StrategyWeightedMean {
			weights = make([]float64, len(buckets))
		}
		for i, b := range buckets {
			durations[i] = float64(b.Interval) / sampleRate
			if weights != nil {
				weights[i] = float64(b.Count)
			}
		}
		return stat.Mean(durations, weights), nil
	default:
		return 0, errors.Wrapf(ErrConfiguration, "unknown estimation strategy %d", int(strategy))
	}
}
