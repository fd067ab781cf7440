// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"math"
	"time"

	"tempo/internal/analysis"

	"github.com/pkg/errors"
)

// Packet kinds.
const (
	KindHeartbeat uint8 = 0
	KindBeat      uint8 = 1
)

/*
Beat packet layout (BigEndian):

	+------------------+---------+------+--------------------------------+
	| Field            | Type    | Size | Description                    |
	+------------------+---------+------+--------------------------------+
	| Sequence Number  | uint32  | 4    | Monotonically increasing       |
	| Timestamp        | int64   | 8    | Nanoseconds since epoch        |
	| Kind             | uint8   | 1    | 0 heartbeat, 1 beat            |
	| Frame            | uint64  | 8    | Frame index within the session |
	| Offset           | int64   | 8    | Stream offset in nanoseconds   |
	| Energy           | float32 | 4    | Mean energy of the frame       |
	| Average          | float32 | 4    | Running average                |
	| Band Count       | uint16  | 2    | Number of band energies (N)    |
	| Bands            | float32 | N*4  | Band energies, low to high     |
	+------------------+---------+------+--------------------------------+

Heartbeats carry zero in every field after Kind.
*/

// HeaderSize is the length of a packet without band energies.
const HeaderSize = 4 + 8 + 1 + 8 + 8 + 4 + 4 + 2

// Packet is a decoded datagram.
type Packet struct {
	Sequence  uint32
	Timestamp time.Time
	Kind      uint8
	Frame     uint64
	Offset    time.Duration
	Energy    float32
	Average   float32
	Bands     []float32
}

// header is the fixed part of the wire format.
type header struct {
	Sequence  uint32
	Timestamp int64
	Kind      uint8
	Frame     uint64
	Offset    int64
	Energy    float32
	Average   float32
	BandCount uint16
}

// appendPacket encodes one packet into buf, which is reset first.
func appendPacket(buf *bytes.Buffer, seq uint32, now time.Time, kind uint8, b analysis.Beat, bands []float32) error {
	buf.Reset()
	h := header{
		Sequence:  seq,
		Timestamp: now.UnixNano(),
		Kind:      kind,
		Frame:     b.Frame,
		Offset:    int64(b.Offset),
		Energy:    float32(b.Energy),
		Average:   float32(b.Average),
		BandCount: uint16(min(len(bands), math.MaxUint16)),
	}
	if err := binary.Write(buf, binary.BigEndian, &h); err != nil {
		return err
	}
	return binary.Write(buf, binary.BigEndian, bands[:h.BandCount])
}

// ParsePacket decodes a datagram produced by BeatPublisher.
func ParsePacket(data []byte) (Packet, error) {
	if len(data) < HeaderSize {
		return Packet{}, errors.Errorf("packet too short: %d bytes", len(data))
	}

	var h header
	r := bytes.NewReader(data)
	if err := binary.Read(r, binary.BigEndian, &h); err != nil {
		return Packet{}, errors.Wrap(err, "failed to read packet header")
	}
	if want := HeaderSize + 4*int(h.BandCount); len(data) != want {
		return Packet{}, errors.Errorf("packet length %d, want %d for %d bands", len(data), want, h.BandCount)
	}

	p := Packet{
		Sequence:  h.Sequence,
		Timestamp: time.Unix(0, h.Timestamp),
		Kind:      h.Kind,
		Frame:     h.Frame,
		Offset:    time.Duration(h.Offset),
		Energy:    h.Energy,
		Average:   h.Average,
		Bands:     make([]float32, h.BandCount),
	}
	if err := binary.Read(r, binary.BigEndian, p.Bands); err != nil {
		return Packet{}, errors.Wrap(err, "failed to read band energies")
	}
	return p, nil
}
