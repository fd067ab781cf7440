// SPDX-License-Identifier: MIT
package udp

import (
	"net"
	"sync"

	applog "tempo/internal/log"

	"github.com/pkg/errors"
)

// Sender transmits datagrams.
type Sender interface {
	Send(data []byte) error
	Close() error
}

// UDPSender sends packets to a single target over a connected socket.
type UDPSender struct {
	conn   *net.UDPConn
	mu     sync.Mutex // Protects conn during Close.
	closed bool
}

// NewUDPSender connects to targetAddress ("host:port").
func NewUDPSender(targetAddress string) (*UDPSender, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", targetAddress)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve UDP target address '%s'", targetAddress)
	}

	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to dial UDP for target '%s'", targetAddress)
	}

	applog.Infof("UDPSender: sending to %s", conn.RemoteAddr())
	return &UDPSender{conn: conn}, nil
}

// Send transmits data as one datagram.
func (s *UDPSender) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("UDP sender is closed")
	}

	if _, err := s.conn.Write(data); err != nil {
		applog.Debugf("UDPSender: error sending packet: %v", err)
		return errors.Wrap(err, "failed to send UDP packet")
	}
	return nil
}

// Close closes the socket. Further sends fail.
func (s *UDPSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	applog.Debugf("UDPSender: closing connection to %s", s.conn.RemoteAddr())
	if err := s.conn.Close(); err != nil {
		return errors.Wrap(err, "failed to close UDP connection")
	}
	return nil
}

var _ Sender = (*UDPSender)(nil)
