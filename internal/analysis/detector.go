// SPDX-License-Identifier: MIT
package analysis

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	applog "tempo/internal/log"

	"github.com/pkg/errors"
)

var (
	// ErrConfiguration is returned for out-of-range detector or spectrum
	// options.
	ErrConfiguration = errors.New("analysis: invalid configuration")

	// ErrAlreadyStreaming is returned by Start while a session is running.
	ErrAlreadyStreaming = errors.New("analysis: detector already streaming")
)

// Detector defaults. DefaultThreshold is on the byte scale produced by
// Spectrum.
const (
	DefaultThreshold  = 150.0
	DefaultMultiplier = 1.5
	DefaultAverage    = 0.8
	DefaultFrameRate  = 60.0
)

// Mode selects how the firing decision is made.
type Mode int

const (
	// ModeFixed fires when a frame's mean energy exceeds Threshold.
	ModeFixed Mode = iota
	// ModeRelative fires when a frame's mean energy exceeds Multiplier times
	// the running average and is also above Threshold.
	ModeRelative
)

func (m Mode) String() string {
	switch m {
	case ModeFixed:
		return "fixed"
	case ModeRelative:
		return "relative"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode converts a name (case-insensitive) to a Mode.
func ParseMode(name string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "fixed", "":
		return ModeFixed, nil
	case "relative", "adaptive":
		return ModeRelative, nil
	default:
		return ModeFixed, errors.Wrapf(ErrConfiguration, "unknown detection mode %q", name)
	}
}

// State is the detector's lifecycle state.
type State int32

const (
	Idle State = iota
	Streaming
)

func (s State) String() string {
	if s == Streaming {
		return "streaming"
	}
	return "idle"
}

// Beat is emitted when a frame's energy crosses the threshold.
type Beat struct {
	Frame   uint64        `json:"frame"`   // Index of the frame within the session.
	Offset  time.Duration `json:"offset"`  // Frame index converted with the nominal frame rate.
	Energy  float64       `json:"energy"`  // Mean energy of the triggering frame.
	Average float64       `json:"average"` // Running average after this frame.
	Bands   []BandEnergy  `json:"bands,omitempty"`
	At      time.Time     `json:"at"`
}

// Options configures a Detector.
type Options struct {
	Threshold  float64     // Mean energy a frame must exceed.
	Mode       Mode        // Firing rule.
	Multiplier float64     // Relative mode: required ratio over the running average.
	Smoothing  float64     // Weight of the previous average, 0 <= s < 1.
	FrameRate  float64     // Nominal frames per second, used for Beat.Offset.
	Layout     *BandLayout // When set, beats carry a band breakdown.
	OnBeat     func(Beat)  // Called on the consumer goroutine; must not block.
}

// DefaultOptions returns the documented defaults with no callback.
func DefaultOptions() Options {
	return Options{
		Threshold:  DefaultThreshold,
		Mode:       ModeFixed,
		Multiplier: DefaultMultiplier,
		Smoothing:  DefaultAverage,
		FrameRate:  DefaultFrameRate,
	}
}

// Validate reports out-of-range options as ErrConfiguration.
func (o Options) Validate() error {
	if math.IsNaN(o.Threshold) || math.IsInf(o.Threshold, 0) || o.Threshold < 0 {
		return errors.Wrapf(ErrConfiguration, "energy threshold must be finite and non-negative, got %v", o.Threshold)
	}
	switch o.Mode {
	case ModeFixed, ModeRelative:
	default:
		return errors.Wrapf(ErrConfiguration, "unknown detection mode %d", int(o.Mode))
	}
	if !(o.Multiplier > 0) || math.IsInf(o.Multiplier, 0) {
		return errors.Wrapf(ErrConfiguration, "multiplier must be positive, got %v", o.Multiplier)
	}
	if !(o.Smoothing >= 0 && o.Smoothing < 1) {
		return errors.Wrapf(ErrConfiguration, "smoothing must be in [0, 1), got %v", o.Smoothing)
	}
	if !(o.FrameRate > 0) || math.IsInf(o.FrameRate, 0) {
		return errors.Wrapf(ErrConfiguration, "frame rate must be positive, got %v", o.FrameRate)
	}
	return nil
}

// Detector flags beats in a stream of frequency frames.
//
// A session starts with Start, which consumes frames on its own goroutine
// until Stop is called, the context is cancelled or the frame channel is
// closed. The running average is reset for every session and is seeded with
// the first frame's mean energy.
//
// Process runs one detection step synchronously. It must not be called
// while a session is running, since the session goroutine owns the state.
type Detector struct {
	opts Options

	mu     sync.Mutex // Guards state, cancel and done.
	state  State
	cancel context.CancelFunc
	done   chan struct{}

	// Session state, owned by whoever is calling process.
	average float64
	primed  bool
	frame   uint64

	beats atomic.Uint64
}

// NewDetector validates opts and returns an idle Detector.
func NewDetector(opts Options) (*Detector, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	applog.Infof("Detector: threshold %.2f, mode %s, frame rate %.1f/s", opts.Threshold, opts.Mode, opts.FrameRate)
	return &Detector{opts: opts}, nil
}

// Start attaches the detector to frames and begins a new session.
func (d *Detector) Start(ctx context.Context, frames <-chan Frame) error {
	if frames == nil {
		return errors.Wrap(ErrConfiguration, "frame channel is nil")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state == Streaming {
		return ErrAlreadyStreaming
	}

	d.resetSession()
	sessionCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	d.state = Streaming
	d.cancel = cancel
	d.done = done

	go d.run(sessionCtx, frames, done)

	applog.Debugf("Detector: session started")
	return nil
}

// Stop ends the current session and waits for the consumer goroutine to
// exit. No beat is delivered after Stop returns, even for a frame that was
// already queued. Calling Stop while idle is a no-op.
//
// Stop must not be called from OnBeat.
func (d *Detector) Stop() {
	d.mu.Lock()
	if d.state != Streaming {
		d.mu.Unlock()
		return
	}
	cancel, done := d.cancel, d.done
	d.mu.Unlock()

	cancel()
	<-done
}

// Done returns a channel that is closed when the current session ends. It
// returns a closed channel while idle.
func (d *Detector) Done() <-chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.done == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return d.done
}

// State returns the current lifecycle state.
func (d *Detector) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Beats returns the number of beats emitted since the detector was created.
func (d *Detector) Beats() uint64 {
	return d.beats.Load()
}

// Process runs one detection step on f, invoking OnBeat if it fires.
func (d *Detector) Process(f Frame) (Beat, bool) {
	return d.process(context.Background(), f)
}

func (d *Detector) run(ctx context.Context, frames <-chan Frame, done chan struct{}) {
	defer func() {
		d.mu.Lock()
		applog.Debugf("Detector: session ended after %d frames", d.frame)
		d.state = Idle
		d.cancel()
		d.mu.Unlock()
		close(done)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-frames:
			if !ok {
				applog.Debugf("Detector: frame source closed")
				return
			}
			// A frame may be delivered in the same instant Stop is called.
			if ctx.Err() != nil {
				return
			}
			d.process(ctx, f)
		}
	}
}

func (d *Detector) process(ctx context.Context, f Frame) (Beat, bool) {
	energy := f.MeanEnergy()
	index := d.frame
	d.frame++

	if !d.primed {
		d.average = energy
		d.primed = true
	}
	previous := d.average
	d.average = d.opts.Smoothing*d.average + (1-d.opts.Smoothing)*energy

	if !d.fires(energy, previous) {
		return Beat{}, false
	}

	beat := Beat{
		Frame:   index,
		Offset:  time.Duration(float64(index) / d.opts.FrameRate * float64(time.Second)),
		Energy:  energy,
		Average: d.average,
		At:      time.Now(),
	}
	if d.opts.Layout != nil {
		beat.Bands = d.opts.Layout.BandEnergies(f, DefaultBands)
	}

	if ctx.Err() != nil {
		return Beat{}, false
	}
	d.beats.Add(1)
	if d.opts.OnBeat != nil {
		d.opts.OnBeat(beat)
	}
	return beat, true
}

// fires applies the configured rule. average is the running average before
// the current frame was folded in.
func (d *Detector) fires(energy, average float64) bool {
	if energy <= d.opts.Threshold {
		return false
	}
	if d.opts.Mode == ModeRelative {
		return energy > d.opts.Multiplier*average
	}
	return true
}

func (d *Detector) resetSession() {
	d.average = 0
	d.primed = false
	d.frame = 0
}
