// SPDX-License-Identifier: MIT
package audio

import (
	"context"
	"sync"
	"time"

	"tempo/internal/analysis"
	applog "tempo/internal/log"
	"tempo/internal/tempo"

	"github.com/pkg/errors"
)

// ErrSourceStarted is returned by Start on a source that already ran.
var ErrSourceStarted = errors.New("audio: frame source already started")

// SourceOptions configures a BufferSource.
type SourceOptions struct {
	Spectrum  analysis.SpectrumOptions // SampleRate is taken from the buffer.
	FrameRate float64                  // Requested frames per second.
	Realtime  bool                     // Pace frames at FrameRate instead of as fast as possible.
	QueueSize int                      // Channel capacity.
}

// BufferSource replays a decoded buffer as a stream of spectrum frames, one
// per hop of sampleRate/FrameRate samples. In realtime mode the frames are
// paced by a ticker; otherwise they are delivered as fast as the consumer
// reads them. A source runs once.
type BufferSource struct {
	buf       tempo.Buffer
	framer    *framer
	frameRate float64
	realtime  bool
	layout    analysis.BandLayout

	frames chan analysis.Frame

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewBufferSource validates opts against buf and prepares the spectrum.
func NewBufferSource(buf tempo.Buffer, opts SourceOptions) (*BufferSource, error) {
	if !(opts.FrameRate > 0) {
		return nil, errors.Wrapf(analysis.ErrConfiguration, "frame rate must be positive, got %v", opts.FrameRate)
	}
	if opts.QueueSize < 1 {
		opts.QueueSize = 1
	}

	specOpts := opts.Spectrum
	specOpts.SampleRate = buf.SampleRate
	spectrum, err := analysis.NewSpectrum(specOpts)
	if err != nil {
		return nil, err
	}

	f := newFramer(spectrum, buf.SampleRate, opts.FrameRate, opts.QueueSize)
	s := &BufferSource{
		buf:       buf,
		framer:    f,
		frameRate: f.frameRate(buf.SampleRate),
		realtime:  opts.Realtime,
		layout:    spectrum.Layout(),
		frames:    make(chan analysis.Frame, opts.QueueSize),
		done:      make(chan struct{}),
	}
	applog.Debugf("Source: %d samples, hop %d, %.2f frames/s, realtime %v",
		buf.Len(), f.hop, s.frameRate, opts.Realtime)
	return s, nil
}

// Start begins producing frames on a new goroutine. The frame channel is
// closed when the buffer is exhausted, Stop is called or ctx is cancelled.
func (s *BufferSource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrSourceStarted
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)
	go s.run(ctx)
	return nil
}

// Frames returns the output channel.
func (s *BufferSource) Frames() <-chan analysis.Frame {
	return s.frames
}

// Stop cancels production and waits for the producer to exit.
func (s *BufferSource) Stop() error {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	<-s.done
	return nil
}

// Done is closed once the producer has exited.
func (s *BufferSource) Done() <-chan struct{} {
	return s.done
}

// FrameRate returns the effective frames per second.
func (s *BufferSource) FrameRate() float64 {
	return s.frameRate
}

// Layout describes the bins of the produced frames.
func (s *BufferSource) Layout() analysis.BandLayout {
	return s.layout
}

// Duration is the playback time of the whole buffer.
func (s *BufferSource) Duration() time.Duration {
	return s.buf.Duration()
}

func (s *BufferSource) run(ctx context.Context) {
	defer close(s.done)
	defer close(s.frames)

	emit := func(f analysis.Frame) emitResult {
		select {
		case s.frames <- f:
			return frameSent
		case <-ctx.Done():
			return emitStopped
		}
	}

	var tick <-chan time.Time
	if s.realtime {
		ticker := time.NewTicker(time.Duration(float64(time.Second) / s.frameRate))
		defer ticker.Stop()
		tick = ticker.C
	}

	hop := s.framer.hop
	samples := s.buf.Samples
	produced := 0
	for start := 0; start+hop <= len(samples); start += hop {
		if tick != nil {
			select {
			case <-tick:
			case <-ctx.Done():
				applog.Debugf("Source: cancelled after %d frames", produced)
				return
			}
		}
		if !s.framer.push(samples[start:start+hop], emit) {
			applog.Debugf("Source: cancelled after %d frames", produced)
			return
		}
		produced++
	}
	applog.Debugf("Source: exhausted after %d frames", produced)
}

var _ analysis.FrameSource = (*BufferSource)(nil)
