// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"sync"
	"time"

	"tempo/internal/analysis"
	applog "tempo/internal/log"
	"tempo/internal/transport"

	"github.com/pkg/errors"
)

// DefaultQueueSize is the number of beats buffered between Send and the
// publisher goroutine.
const DefaultQueueSize = 64

// BeatPublisher packs beats into binary datagrams and sends them with a
// Sender. It also emits a heartbeat packet every interval so receivers can
// tell a quiet stream from a dead one. Packets are built and sent on the
// publisher's own goroutine, managed by Start and Stop.
type BeatPublisher struct {
	sender   Sender
	interval time.Duration

	queue chan analysis.Beat

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex

	sequenceNum uint32

	// Reused by the publisher goroutine only.
	packetBuffer *bytes.Buffer
	bandBuffer   []float32
}

// NewBeatPublisher creates a publisher. An interval <= 0 defaults to one
// second.
func NewBeatPublisher(interval time.Duration, sender Sender) (*BeatPublisher, error) {
	if sender == nil {
		return nil, errors.New("BeatPublisher: UDP sender cannot be nil")
	}
	if interval <= 0 {
		interval = time.Second
		applog.Warnf("BeatPublisher: invalid heartbeat interval, defaulting to %s", interval)
	}

	applog.Infof("BeatPublisher: initializing (heartbeat %s)", interval)
	return &BeatPublisher{
		sender:       sender,
		interval:     interval,
		queue:        make(chan analysis.Beat, DefaultQueueSize),
		packetBuffer: new(bytes.Buffer),
		bandBuffer:   make([]float32, 0, len(analysis.DefaultBands)),
	}, nil
}

// Start launches the publisher goroutine. Calling Start while running is a
// no-op.
func (p *BeatPublisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		applog.Warnf("BeatPublisher: Start called but already running.")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			select {
			case beat := <-p.queue:
				p.buildAndSendPacket(KindBeat, beat)
			case <-ticker.C:
				p.buildAndSendPacket(KindHeartbeat, analysis.Beat{})
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop signals the publisher goroutine and waits for it to exit. Beats
// still queued are discarded. Calling Stop while stopped is a no-op.
func (p *BeatPublisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}
	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	applog.Debugf("BeatPublisher: stopped after %d packets", p.sequenceNum)
	return nil
}

// Send queues a beat for publishing without blocking. Beats are dropped
// when the queue is full. Data other than analysis.Beat is rejected.
func (p *BeatPublisher) Send(data any) error {
	var beat analysis.Beat
	switch v := data.(type) {
	case analysis.Beat:
		beat = v
	case *analysis.Beat:
		if v == nil {
			return errors.New("BeatPublisher: nil beat")
		}
		beat = *v
	default:
		return errors.Errorf("BeatPublisher: cannot publish %T", data)
	}

	select {
	case p.queue <- beat:
	default:
		applog.Debugf("BeatPublisher: queue full, dropping beat on frame %d", beat.Frame)
	}
	return nil
}

// Close stops the publisher and closes the sender.
func (p *BeatPublisher) Close() error {
	if err := p.Stop(); err != nil {
		return err
	}
	return p.sender.Close()
}

func (p *BeatPublisher) buildAndSendPacket(kind uint8, beat analysis.Beat) {
	p.bandBuffer = p.bandBuffer[:0]
	for _, band := range beat.Bands {
		p.bandBuffer = append(p.bandBuffer, float32(band.Energy))
	}

	p.sequenceNum++
	if err := appendPacket(p.packetBuffer, p.sequenceNum, time.Now(), kind, beat, p.bandBuffer); err != nil {
		applog.Errorf("BeatPublisher: error packing packet: %v", err)
		return
	}

	if err := p.sender.Send(p.packetBuffer.Bytes()); err != nil {
		return
	}
	applog.Debugf("BeatPublisher: sent packet %d (%d bytes)", p.sequenceNum, p.packetBuffer.Len())
}

var _ transport.Transport = (*BeatPublisher)(nil)
