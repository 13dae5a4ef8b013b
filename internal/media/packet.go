// ABOUTME: Media sink packet framing
// ABOUTME: Kind byte, timestamp, duration, and length header ahead of each PCM payload
package media

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/bits"
	"time"
)

// Packet kinds written to the sink
const (
	PacketFormat byte = 1
	PacketAudio  byte = 2
	PacketEOS    byte = 3
)

const (
	// PacketHeaderSize is kind + timestamp + duration + payload length
	PacketHeaderSize = 1 + 8 + 8 + 4

	formatPayloadSize = 4 + 2 + 2 + 8

	// maxPacketPayload bounds what ReadPacket will allocate
	maxPacketPayload = 16 << 20
)

// ErrBadPacket is returned for packets ReadPacket cannot parse
var ErrBadPacket = errors.New("media: bad packet")

// Packet is one unit on the sink connection
type Packet struct {
	Kind      byte
	Timestamp time.Duration
	Duration  time.Duration
	Payload   []byte
}

// StreamInfo is the payload of a format packet
type StreamInfo struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
	SizeHint      uint64
}

// AppendPacket appends the framed packet to b
func AppendPacket(b []byte, p Packet) []byte {
	b = append(b, p.Kind)
	b = binary.BigEndian.AppendUint64(b, uint64(p.Timestamp))
	b = binary.BigEndian.AppendUint64(b, uint64(p.Duration))
	b = binary.BigEndian.AppendUint32(b, uint32(len(p.Payload)))
	return append(b, p.Payload...)
}

// ReadPacket reads one framed packet from r
func ReadPacket(r io.Reader) (Packet, error) {
	var header [PacketHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Packet{}, err
	}

	p := Packet{
		Kind:      header[0],
		Timestamp: time.Duration(binary.BigEndian.Uint64(header[1:9])),
		Duration:  time.Duration(binary.BigEndian.Uint64(header[9:17])),
	}
	if p.Kind < PacketFormat || p.Kind > PacketEOS {
		return Packet{}, fmt.Errorf("%w: kind %d", ErrBadPacket, p.Kind)
	}

	size := binary.BigEndian.Uint32(header[17:21])
	if size > maxPacketPayload {
		return Packet{}, fmt.Errorf("%w: payload %d bytes", ErrBadPacket, size)
	}
	if size > 0 {
		p.Payload = make([]byte, size)
		if _, err := io.ReadFull(r, p.Payload); err != nil {
			return Packet{}, fmt.Errorf("read payload: %w", err)
		}
	}
	return p, nil
}

// FormatPacket builds the stream header packet
func FormatPacket(info StreamInfo) Packet {
	payload := make([]byte, 0, formatPayloadSize)
	payload = binary.BigEndian.AppendUint32(payload, uint32(info.SampleRate))
	payload = binary.BigEndian.AppendUint16(payload, uint16(info.Channels))
	payload = binary.BigEndian.AppendUint16(payload, uint16(info.BitsPerSample))
	payload = binary.BigEndian.AppendUint64(payload, info.SizeHint)
	return Packet{Kind: PacketFormat, Payload: payload}
}

// ParseStreamInfo decodes a format packet payload
func ParseStreamInfo(p Packet) (StreamInfo, error) {
	if p.Kind != PacketFormat || len(p.Payload) != formatPayloadSize {
		return StreamInfo{}, fmt.Errorf("%w: not a format packet", ErrBadPacket)
	}
	return StreamInfo{
		SampleRate:    int(binary.BigEndian.Uint32(p.Payload[0:4])),
		Channels:      int(binary.BigEndian.Uint16(p.Payload[4:6])),
		BitsPerSample: int(binary.BigEndian.Uint16(p.Payload[6:8])),
		SizeHint:      binary.BigEndian.Uint64(p.Payload[8:16]),
	}, nil
}

// bytesToDuration converts a byte count at byteRate into a rounded
// duration. The 128-bit intermediate keeps long streams from overflowing.
func bytesToDuration(n, byteRate int64) time.Duration {
	if byteRate <= 0 || n <= 0 {
		return 0
	}
	hi, lo := bits.Mul64(uint64(n), uint64(time.Second))
	var carry uint64
	lo, carry = bits.Add64(lo, uint64(byteRate)/2, 0)
	hi += carry
	q, _ := bits.Div64(hi, lo, uint64(byteRate))
	return time.Duration(q)
}
