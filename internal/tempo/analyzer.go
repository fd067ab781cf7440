// SPDX-License-Identifier: MIT
/*
Package tempo estimates the tempo of a finished recording.

The batch path has three stages, each a pure function:

	FindPeaks       samples above a threshold, one per refractory window
	BuildHistogram  distances between each peak and its near neighbours
	EstimateBPM     histogram + sample rate -> rounded beats per minute

Analyzer bundles validated options for the three stages. It holds no
mutable state, so one Analyzer may serve concurrent calls over distinct
buffers.
*/
package tempo

import (
	"math"
	"time"

	applog "tempo/internal/log"

	"github.com/pkg/errors"
)

// Defaults for Options.
const (
	DefaultThreshold  = 0.5
	DefaultRefractory = 250 * time.Millisecond
)

// Options configures an Analyzer.
type Options struct {
	Threshold  float64       // Amplitude a sample must exceed to count as a peak.
	Refractory time.Duration // Minimum spacing between accepted peaks.
	Window     int           // Peaks per interval window, including the first.
	Strategy   Strategy      // Histogram reduction.
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		Threshold:  DefaultThreshold,
		Refractory: DefaultRefractory,
		Window:     DefaultWindow,
		Strategy:   DefaultStrategy,
	}
}

// Validate reports out-of-range options as ErrConfiguration.
func (o Options) Validate() error {
	if math.IsNaN(o.Threshold) || math.IsInf(o.Threshold, 0) {
		return errors.Wrapf(ErrConfiguration, "peak threshold must be finite, got %v", o.Threshold)
	}
	if o.Refractory <= 0 {
		return errors.Wrapf(ErrConfiguration, "refractory window must be positive, got %s", o.Refractory)
	}
	if o.Window < 2 {
		return errors.Wrapf(ErrConfiguration, "interval window must be at least 2, got %d", o.Window)
	}
	switch o.Strategy {
	case StrategyDominant, StrategyMean, StrategyWeightedMean:
	default:
		return errors.Wrapf(ErrConfiguration, "unknown estimation strategy %d", int(o.Strategy))
	}
	return nil
}

// Result is the outcome of a single analysis.
type Result struct {
	BPM        int           `json:"bpm"`
	Peaks      []int         `json:"peaks"`
	Histogram  *Histogram    `json:"-"`
	SampleRate float64       `json:"sample_rate"`
	Duration   time.Duration `json:"duration"`
}

// Determined reports whether a tempo was found.
func (r Result) Determined() bool {
	return r.BPM > 0
}

// Analyzer runs the batch pipeline with a fixed set of options.
type Analyzer struct {
	opts Options
}

// NewAnalyzer validates opts and returns an Analyzer.
func NewAnalyzer(opts Options) (*Analyzer, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Analyzer{opts: opts}, nil
}

// Options returns the analyzer's configuration.
func (a *Analyzer) Options() Options {
	return a.opts
}

// Analyze estimates the tempo of buf. Peaks and histogram are always
// filled in; when no tempo can be derived the error wraps ErrNoEstimate and
// BPM is zero.
func (a *Analyzer) Analyze(buf Buffer) (Result, error) {
	res := Result{
		SampleRate: buf.SampleRate,
		Duration:   buf.Duration(),
	}

	refractory := 1
	if buf.SampleRate > 0 {
		refractory = RefractorySamples(a.opts.Refractory, buf.SampleRate)
	}

	res.Peaks = FindPeaks(buf.Samples, a.opts.Threshold, refractory)
	res.Histogram = BuildHistogram(res.Peaks, a.opts.Window)

	applog.Debugf("Tempo: %d samples, %d peaks (refractory %d), %d distinct intervals",
		buf.Len(), len(res.Peaks), refractory, res.Histogram.Len())

	bpm, err := EstimateBPM(res.Histogram, buf.SampleRate, a.opts.Strategy)
	if err != nil {
		return res, err
	}
	res.BPM = bpm
	return res, nil
}
