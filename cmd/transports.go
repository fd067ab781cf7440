// SPDX-License-Identifier: MIT
package cmd

import (
	"tempo/internal/config"
	applog "tempo/internal/log"
	"tempo/internal/transport"
	"tempo/internal/transport/udp"

	"github.com/pkg/errors"
)

// newTransports builds the beat outputs enabled in cfg. The caller owns the
// returned Fanout and must Close it.
func newTransports(cfg config.TransportConfig) (*transport.Fanout, error) {
	fanout := transport.NewFanout()

	if cfg.LogBeats {
		fanout.Add(transport.NewLoggingTransport())
	}

	if cfg.WebSocketEnabled {
		ws := transport.NewWebSocketTransport(cfg.WebSocketAddress)
		ws.ListenAndServe()
		fanout.Add(ws)
	}

	if cfg.UDPEnabled {
		sender, err := udp.NewUDPSender(cfg.UDPTargetAddress)
		if err != nil {
			fanout.Close()
			return nil, errors.Wrap(err, "failed to create UDP sender")
		}
		publisher, err := udp.NewBeatPublisher(cfg.UDPSendInterval, sender)
		if err != nil {
			sender.Close()
			fanout.Close()
			return nil, err
		}
		publisher.Start()
		fanout.Add(publisher)
	}

	applog.Debugf("Transport: %d outputs enabled", fanout.Len())
	return fanout, nil
}
