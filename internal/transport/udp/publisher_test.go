// SPDX-License-Identifier: MIT
package udp

import (
	"net"
	"sync"
	"testing"
	"time"

	"tempo/internal/analysis"
)

// recordingSender keeps a copy of every packet.
type recordingSender struct {
	mu      sync.Mutex
	packets [][]byte
	closed  bool
}

func (s *recordingSender) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.packets = append(s.packets, append([]byte(nil), data...))
	return nil
}

func (s *recordingSender) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *recordingSender) snapshot() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.packets...)
}

func waitForPackets(t *testing.T, s *recordingSender, n int) [][]byte {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if got := s.snapshot(); len(got) >= n {
			return got
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d packets, got %d", n, len(s.snapshot()))
	return nil
}

var testBeat = analysis.Beat{
	Frame:   42,
	Offset:  700 * time.Millisecond,
	Energy:  180.5,
	Average: 90.25,
	Bands: []analysis.BandEnergy{
		{Name: "sub", Energy: 200},
		{Name: "bass", Energy: 150},
	},
}

func TestBeatPublisherSendsBeatPackets(t *testing.T) {
	sender := &recordingSender{}
	pub, err := NewBeatPublisher(time.Hour, sender)
	if err != nil {
		t.Fatal(err)
	}
	pub.Start()
	defer pub.Close()

	if err := pub.Send(testBeat); err != nil {
		t.Fatal(err)
	}
	if err := pub.Send(&testBeat); err != nil {
		t.Fatal(err)
	}

	packets := waitForPackets(t, sender, 2)
	for i, data := range packets[:2] {
		p, err := ParsePacket(data)
		if err != nil {
			t.Fatalf("ParsePacket() error: %v", err)
		}
		if p.Sequence != uint32(i+1) {
			t.Errorf("sequence = %d, want %d", p.Sequence, i+1)
		}
		if p.Kind != KindBeat || p.Frame != 42 || p.Offset != 700*time.Millisecond {
			t.Errorf("unexpected packet: %+v", p)
		}
		if p.Energy != 180.5 || p.Average != 90.25 {
			t.Errorf("energy = %v, average = %v", p.Energy, p.Average)
		}
		if len(p.Bands) != 2 || p.Bands[0] != 200 || p.Bands[1] != 150 {
			t.Errorf("bands = %v", p.Bands)
		}
		if len(data) != HeaderSize+8 {
			t.Errorf("packet length = %d, want %d", len(data), HeaderSize+8)
		}
	}
}

func TestBeatPublisherHeartbeat(t *testing.T) {
	sender := &recordingSender{}
	pub, err := NewBeatPublisher(5*time.Millisecond, sender)
	if err != nil {
		t.Fatal(err)
	}
	pub.Start()
	defer pub.Close()

	p, err := ParsePacket(waitForPackets(t, sender, 1)[0])
	if err != nil {
		t.Fatal(err)
	}
	if p.Kind != KindHeartbeat || p.Frame != 0 || len(p.Bands) != 0 {
		t.Errorf("unexpected heartbeat: %+v", p)
	}
}

func TestBeatPublisherRejectsOtherData(t *testing.T) {
	pub, err := NewBeatPublisher(time.Second, &recordingSender{})
	if err != nil {
		t.Fatal(err)
	}
	if err := pub.Send("hello"); err == nil {
		t.Error("expected error for a string")
	}
	var nilBeat *analysis.Beat
	if err := pub.Send(nilBeat); err == nil {
		t.Error("expected error for a nil beat")
	}
}

func TestBeatPublisherStartStop(t *testing.T) {
	sender := &recordingSender{}
	pub, err := NewBeatPublisher(time.Hour, sender)
	if err != nil {
		t.Fatal(err)
	}

	if err := pub.Stop(); err != nil {
		t.Errorf("Stop before Start: %v", err)
	}
	pub.Start()
	pub.Start()
	if err := pub.Stop(); err != nil {
		t.Fatal(err)
	}
	if err := pub.Stop(); err != nil {
		t.Fatal(err)
	}

	// Restart after stop.
	pub.Start()
	pub.Send(testBeat)
	waitForPackets(t, sender, 1)
	if err := pub.Close(); err != nil {
		t.Fatal(err)
	}
	if !sender.closed {
		t.Error("Close should close the sender")
	}
}

func TestNewBeatPublisherValidation(t *testing.T) {
	if _, err := NewBeatPublisher(time.Second, nil); err == nil {
		t.Error("expected error for nil sender")
	}
	pub, err := NewBeatPublisher(0, &recordingSender{})
	if err != nil {
		t.Fatal(err)
	}
	if pub.interval != time.Second {
		t.Errorf("interval = %s, want 1s default", pub.interval)
	}
}

func TestUDPSenderDeliversToListener(t *testing.T) {
	listener, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatal(err)
	}
	defer listener.Close()

	sender, err := NewUDPSender(listener.LocalAddr().String())
	if err != nil {
		t.Fatal(err)
	}
	pub, err := NewBeatPublisher(time.Hour, sender)
	if err != nil {
		t.Fatal(err)
	}
	pub.Start()
	defer pub.Close()

	pub.Send(testBeat)

	buf := make([]byte, 1500)
	listener.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, _, err := listener.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("ReadFromUDP() error: %v", err)
	}
	p, err := ParsePacket(buf[:n])
	if err != nil {
		t.Fatal(err)
	}
	if p.Kind != KindBeat || p.Frame != testBeat.Frame {
		t.Errorf("unexpected packet: %+v", p)
	}
}

func TestUDPSenderClosed(t *testing.T) {
	sender, err := NewUDPSender("127.0.0.1:9")
	if err != nil {
		t.Fatal(err)
	}
	if err := sender.Close(); err != nil {
		t.Fatal(err)
	}
	if err := sender.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if err := sender.Send([]byte{1}); err == nil {
		t.Error("expected error sending on a closed sender")
	}
}

func TestNewUDPSenderBadAddress(t *testing.T) {
	if _, err := NewUDPSender("not an address"); err == nil {
		t.Error("expected error for an unresolvable address")
	}
}

func TestParsePacketErrors(t *testing.T) {
	if _, err := ParsePacket(make([]byte, HeaderSize-1)); err == nil {
		t.Error("expected error for a short packet")
	}

	// Header claims one band but carries none.
	data := make([]byte, HeaderSize)
	data[HeaderSize-1] = 1
	if _, err := ParsePacket(data); err == nil {
		t.Error("expected error for a truncated band list")
	}
}
