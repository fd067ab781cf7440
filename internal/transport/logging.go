// SPDX-License-Identifier: MIT
package transport

import (
	"tempo/internal/analysis"
	applog "tempo/internal/log"
)

// LoggingTransport writes each beat to the application log at info level.
type LoggingTransport struct{}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport() *LoggingTransport {
	applog.Debugf("Transport: using LoggingTransport")
	return &LoggingTransport{}
}

// Send logs the received data. It never fails.
func (lt *LoggingTransport) Send(data any) error {
	switch v := data.(type) {
	case analysis.Beat:
		logBeat(v)
	case *analysis.Beat:
		if v != nil {
			logBeat(*v)
		}
	default:
		applog.Infof("Transport: %T %+v", data, data)
	}
	return nil
}

func logBeat(b analysis.Beat) {
	applog.Infof("Beat: frame %d at %s, energy %.1f (average %.1f)", b.Frame, b.Offset, b.Energy, b.Average)
}

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	return nil
}

var _ Transport = (*LoggingTransport)(nil)
