// SPDX-License-Identifier: MIT
/*
Package audio produces streams of spectrum frames for beat detection.

Engine captures live input with PortAudio. BufferSource replays a decoded
file. Both slice their input into hops of sampleRate/frameRate samples and
compute one frame per hop, so the detector sees the same cadence from either.

Real-time constraints of the capture callback:
  - Pre-allocated buffers only, no allocation per callback
  - Frames are handed over with a non-blocking send and dropped when the
    consumer falls behind
  - Gate and counters use atomics so they can be read from other goroutines
*/
package audio

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"tempo/internal/analysis"
	"tempo/internal/config"
	applog "tempo/internal/log"

	"github.com/gordonklaus/portaudio"
	"github.com/pkg/errors"
)

// Engine captures mono audio from an input device and turns it into
// frames. An Engine runs once; create a new one to capture again.
type Engine struct {
	cfg *config.Config

	// Audio input handling.
	inputDevice  *portaudio.DeviceInfo
	inputLatency time.Duration
	inputStream  *portaudio.Stream
	channels     int
	sampleRate   float64

	// Signal path.
	gate   *Gate
	mono   []float64
	framer *framer
	layout analysis.BandLayout

	frames    chan analysis.Frame
	emit      func(analysis.Frame) emitResult
	emitted   atomic.Uint64
	dropped   atomic.Uint64
	closeOnce sync.Once

	mu      sync.Mutex
	started bool
	stopped chan struct{}
}

// NewEngine resolves the configured input device and prepares the signal
// path. PortAudio must be initialised.
func NewEngine(cfg *config.Config) (*Engine, error) {
	device, err := InputDevice(cfg.Audio.InputDevice)
	if err != nil {
		return nil, err
	}
	e, err := newEngine(cfg, device)
	if err != nil {
		return nil, err
	}

	if cfg.Audio.LowLatency {
		e.inputLatency = device.DefaultLowInputLatency
	} else {
		e.inputLatency = device.DefaultHighInputLatency
	}
	applog.Infof("Engine: input %q, %d channel(s) at %.0f Hz, latency %s",
		device.Name, e.channels, e.sampleRate, e.inputLatency)
	return e, nil
}

// newEngine builds everything except the PortAudio stream.
func newEngine(cfg *config.Config, device *portaudio.DeviceInfo) (*Engine, error) {
	channels := cfg.Audio.InputChannels
	if device != nil && device.MaxInputChannels > 0 && channels > device.MaxInputChannels {
		applog.Warnf("Engine: device supports %d input channel(s), capturing %d instead of %d",
			device.MaxInputChannels, device.MaxInputChannels, channels)
		channels = device.MaxInputChannels
	}

	specOpts, err := cfg.SpectrumOptions(cfg.Audio.SampleRate)
	if err != nil {
		return nil, err
	}
	spectrum, err := analysis.NewSpectrum(specOpts)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:         cfg,
		inputDevice: device,
		channels:    channels,
		sampleRate:  cfg.Audio.SampleRate,
		gate:        NewGate(cfg.Audio.GateThreshold),
		mono:        make([]float64, cfg.Audio.FramesPerBuffer),
		framer:      newFramer(spectrum, cfg.Audio.SampleRate, cfg.Stream.FrameRate, cfg.Stream.QueueSize),
		layout:      spectrum.Layout(),
		frames:      make(chan analysis.Frame, cfg.Stream.QueueSize),
		stopped:     make(chan struct{}),
	}
	e.emit = e.trySend
	return e, nil
}

// Start opens and starts the input stream. The stream is stopped when ctx
// is cancelled or Stop is called.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return ErrSourceStarted
	}
	select {
	case <-e.stopped:
		return ErrSourceStarted
	default:
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: e.channels,
			Device:   e.inputDevice,
			Latency:  e.inputLatency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0,
			Device:   nil,
		},
		FramesPerBuffer: e.cfg.Audio.FramesPerBuffer,
		SampleRate:      e.sampleRate,
	}

	stream, err := portaudio.OpenStream(params, e.processInputStream)
	if err != nil {
		return errors.Wrap(err, "failed to open input stream")
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return errors.Wrap(err, "failed to start input stream")
	}
	e.inputStream = stream
	e.started = true

	go func() {
		select {
		case <-ctx.Done():
			if err := e.Stop(); err != nil {
				applog.Errorf("Engine: stop after cancel: %v", err)
			}
		case <-e.stopped:
		}
	}()

	applog.Debugf("Engine: input stream started (hop %d, %.2f frames/s)", e.framer.hop, e.FrameRate())
	return nil
}

// Stop stops and closes the input stream, then closes the frame channel.
// It is safe to call more than once.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var err error
	if e.inputStream != nil {
		// Stop returns after the last callback has finished.
		if stopErr := e.inputStream.Stop(); stopErr != nil {
			err = errors.Wrap(stopErr, "failed to stop input stream")
		}
		if closeErr := e.inputStream.Close(); closeErr != nil && err == nil {
			err = errors.Wrap(closeErr, "failed to close input stream")
		}
		e.inputStream = nil
		applog.Infof("Engine: stopped, %d frames emitted, %d dropped", e.emitted.Load(), e.dropped.Load())
	}
	e.closeFrames()
	return err
}

// Close implements io.Closer.
func (e *Engine) Close() error {
	return e.Stop()
}

// Frames returns the output channel.
func (e *Engine) Frames() <-chan analysis.Frame {
	return e.frames
}

// FrameRate returns the effective frames per second.
func (e *Engine) FrameRate() float64 {
	return e.framer.frameRate(e.sampleRate)
}

// Layout describes the bins of the produced frames.
func (e *Engine) Layout() analysis.BandLayout {
	return e.layout
}

// Gate returns the engine's noise gate.
func (e *Engine) Gate() *Gate {
	return e.gate
}

// Dropped returns the number of frames discarded because the consumer was
// behind.
func (e *Engine) Dropped() uint64 {
	return e.dropped.Load()
}

func (e *Engine) closeFrames() {
	e.closeOnce.Do(func() {
		close(e.stopped)
		close(e.frames)
	})
}

// processInputStream is the PortAudio callback for interleaved float32
// input.
func (e *Engine) processInputStream(in []float32) {
	e.processBuffer(in)
}

// processBuffer mixes in down to mono, applies the gate and feeds the
// framer, in chunks of at most FramesPerBuffer frames. A closed gate feeds
// silence so frame timing is preserved.
func (e *Engine) processBuffer(in []float32) {
	channels := e.channels
	scale := 1.0 / float64(channels)

	for len(in) >= channels {
		n := min(len(in)/channels, len(e.mono))
		mono := e.mono[:n]
		for i := range mono {
			sum := 0.0
			for c := range channels {
				sum += float64(in[i*channels+c])
			}
			mono[i] = sum * scale
		}
		in = in[n*channels:]

		if !e.gate.Open(mono) {
			clear(mono)
		}
		e.framer.push(mono, e.emit)
	}
}

// trySend never blocks the audio callback.
func (e *Engine) trySend(f analysis.Frame) emitResult {
	select {
	case e.frames <- f:
		e.emitted.Add(1)
		return frameSent
	default:
		e.dropped.Add(1)
		return frameDropped
	}
}

var _ analysis.FrameSource = (*Engine)(nil)
