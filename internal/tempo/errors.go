// SPDX-License-Identifier: MIT
package tempo

import "github.com/pkg/errors"

var (
	// ErrInvalidInput marks empty or malformed buffers. The batch path
	// degrades to empty results instead of returning it from the hot path.
	ErrInvalidInput = errors.New("tempo: invalid input")

	// ErrNoEstimate is returned when there is not enough peak data to
	// compute a tempo. Callers should treat it as "undetermined".
	ErrNoEstimate = errors.New("tempo: no estimate")

	// ErrConfiguration is returned by NewAnalyzer for out-of-range options.
	ErrConfiguration = errors.New("tempo: invalid configuration")
)
