// ABOUTME: Length-prefixed framing over a byte stream for control messages
// ABOUTME: Resumable receive accumulator, serialized sender, and socket read loop
package protocol

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"go.uber.org/zap"
)

const (
	// HeaderSize is the size of the big-endian length prefix
	HeaderSize = 4

	// MaxFrameSize bounds a single payload
	MaxFrameSize = 64 << 20
)

var (
	// ErrFrameTooLarge is returned when a length prefix exceeds MaxFrameSize
	ErrFrameTooLarge = errors.New("protocol: frame too large")

	// ErrTruncatedHeader is returned when the stream ends inside a length prefix
	ErrTruncatedHeader = errors.New("protocol: stream ended inside length prefix")

	// ErrClosed is returned when sending on a closed channel
	ErrClosed = errors.New("protocol: channel closed")
)

// AppendFrame appends the length prefix and payload to b
func AppendFrame(b, payload []byte) []byte {
	b = binary.BigEndian.AppendUint32(b, uint32(len(payload)))
	return append(b, payload...)
}

// EncodeFrame marshals m and wraps it in a frame
func EncodeFrame(m *Message) ([]byte, error) {
	payload, err := Marshal(m)
	if err != nil {
		return nil, err
	}
	if len(payload) > MaxFrameSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(payload))
	}
	return AppendFrame(make([]byte, 0, HeaderSize+len(payload)), payload), nil
}

// Accumulator reassembles frames from arbitrarily chunked input.
// It is not safe for concurrent use.
type Accumulator struct {
	header    [HeaderSize]byte
	headerLen int

	inMessage bool
	expected  int
	buf       []byte

	err error
}

// Feed consumes p, calling emit for every complete message in order.
// Any error is sticky: later calls return it without consuming input.
func (a *Accumulator) Feed(p []byte, emit func(*Message)) error {
	if a.err != nil {
		return a.err
	}

	for len(p) > 0 {
		if !a.inMessage {
			n := copy(a.header[a.headerLen:], p)
			a.headerLen += n
			p = p[n:]
			if a.headerLen < HeaderSize {
				return nil
			}

			size := binary.BigEndian.Uint32(a.header[:])
			a.headerLen = 0
			if size > MaxFrameSize {
				a.err = fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, size)
				return a.err
			}
			a.expected = int(size)
			a.buf = make([]byte, 0, a.expected)
			a.inMessage = true
		}

		take := min(a.expected-len(a.buf), len(p))
		a.buf = append(a.buf, p[:take]...)
		p = p[take:]

		if len(a.buf) < a.expected {
			return nil
		}

		msg, err := Unmarshal(a.buf)
		a.inMessage = false
		a.buf = nil
		if err != nil {
			a.err = err
			return err
		}
		emit(msg)
	}

	return nil
}

// Close reports whether the stream ended cleanly between frames
func (a *Accumulator) Close() error {
	if a.err != nil {
		return a.err
	}
	switch {
	case a.headerLen > 0:
		a.err = ErrTruncatedHeader
	case a.inMessage:
		a.err = fmt.Errorf("protocol: stream ended inside frame: %w", io.ErrUnexpectedEOF)
	default:
		return nil
	}
	return a.err
}

// Channel is a framed control connection
type Channel struct {
	conn net.Conn
	log  *zap.Logger

	writeMu sync.Mutex

	mu     sync.RWMutex
	closed bool
}

// Dial connects to a control endpoint
func Dial(ctx context.Context, addr string, log *zap.Logger) (*Channel, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return NewChannel(conn, log), nil
}

// NewChannel wraps an established connection
func NewChannel(conn net.Conn, log *zap.Logger) *Channel {
	if log == nil {
		log = zap.NewNop()
	}
	return &Channel{conn: conn, log: log.Named("channel")}
}

// Send writes one framed message. Concurrent sends never interleave.
func (c *Channel) Send(m *Message) error {
	frame, err := EncodeFrame(m)
	if err != nil {
		return err
	}

	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return ErrClosed
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if _, err := c.conn.Write(frame); err != nil {
		return fmt.Errorf("write %s: %w", m.Kind(), err)
	}
	c.log.Debug("sent", zap.String("kind", m.Kind()), zap.Int("bytes", len(frame)))
	return nil
}

// ReadLoop reads frames until the peer disconnects, ctx is cancelled,
// or the stream is malformed. A clean disconnect between frames returns
// nil; anything else is channel-fatal and closes the connection.
func (c *Channel) ReadLoop(ctx context.Context, handle func(*Message)) error {
	stop := context.AfterFunc(ctx, func() { c.Close() })
	defer stop()

	var acc Accumulator
	buf := make([]byte, 32*1024)
	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			if ferr := acc.Feed(buf[:n], handle); ferr != nil {
				c.log.Error("frame decode failed", zap.Error(ferr))
				c.Close()
				return ferr
			}
		}
		if err == nil {
			continue
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, io.EOF) {
			if cerr := acc.Close(); cerr != nil {
				c.log.Error("stream ended mid-frame", zap.Error(cerr))
				c.Close()
				return cerr
			}
			c.log.Info("control connection closed by peer")
			c.Close()
			return nil
		}
		c.Close()
		return fmt.Errorf("read: %w", err)
	}
}

// Close closes the underlying connection; it is safe to call more than once
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}
