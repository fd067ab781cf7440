// SPDX-License-Identifier: MIT
package analysis

import "context"

// FrameSource produces frequency frames at the stream's natural cadence.
// The detector only consumes the channel; starting and stopping the source
// is the caller's job.
type FrameSource interface {
	// Start begins producing frames. The channel returned by Frames is
	// closed when the source is exhausted, stopped or ctx is cancelled.
	Start(ctx context.Context) error
	// Frames returns the output channel. It is valid after Start.
	Frames() <-chan Frame
	// Stop halts production and releases resources.
	Stop() error
	// FrameRate returns the nominal frames per second.
	FrameRate() float64
}
