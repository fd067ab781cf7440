// SPDX-License-Identifier: MIT
/*
Package transport delivers beat events out of the detector's consumer
goroutine. Every transport is one-way and must not block the caller for
long: implementations queue and drop rather than wait on slow peers.
*/
package transport

import (
	"sync"

	"github.com/pkg/errors"
)

// Transport defines a generic interface for sending events.
// Implementations must be safe for concurrent use.
type Transport interface {
	Send(data any) error
	Close() error
}

// Fanout sends every event to each of its transports.
type Fanout struct {
	mu         sync.RWMutex
	transports []Transport
}

// NewFanout returns a Fanout over transports, skipping nil entries.
func NewFanout(transports ...Transport) *Fanout {
	f := &Fanout{}
	for _, t := range transports {
		f.Add(t)
	}
	return f
}

// Add registers another transport.
func (f *Fanout) Add(t Transport) {
	if t == nil {
		return
	}
	f.mu.Lock()
	f.transports = append(f.transports, t)
	f.mu.Unlock()
}

// Len returns the number of transports.
func (f *Fanout) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.transports)
}

// Send delivers data to every transport. A failing transport does not stop
// delivery to the others; the first error is returned.
func (f *Fanout) Send(data any) error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	var first error
	for _, t := range f.transports {
		if err := t.Send(data); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Close closes every transport and returns the first error.
func (f *Fanout) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var first error
	for _, t := range f.transports {
		if err := t.Close(); err != nil && first == nil {
			first = errors.Wrapf(err, "closing %T", t)
		}
	}
	f.transports = nil
	return first
}

var _ Transport = (*Fanout)(nil)
