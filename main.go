// SPDX-License-Identifier: MIT
package main

import (
	"os"

	"tempo/cmd"
	applog "tempo/internal/log"
	"tempo/pkg/build"
)

// main is the entry point for the tempo command.
//
// Batch analysis runs entirely on the calling goroutine. The play and listen
// commands run three stages concurrently:
//
//   - a frame source (file replay or PortAudio callback) turning samples
//     into spectrum frames,
//   - the beat detector consuming those frames,
//   - the transports (log, WebSocket, UDP, monitor) receiving beats.
func main() {
	// Build information is optional for development builds.
	if err := build.Initialize(); err != nil {
		applog.Debugf("Build: %v, using defaults", err)
	}

	if err := cmd.Execute(); err != nil {
		applog.Errorf("%v", err)
		os.Exit(1)
	}
}
