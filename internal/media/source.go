// ABOUTME: Push-style source stage with a byte-bounded queue
// ABOUTME: Signals need-data and enough-data as the sink drains and the producer fills
package media

import (
	"errors"
	"sync"
)

var errSourceClosed = errors.New("media: source closed")

// source buffers packets between the delivery goroutine and the sink.
// need and enough are called with the lock held and must not block.
type source struct {
	mu   sync.Mutex
	cond *sync.Cond

	queue       []Packet
	queuedBytes int
	maxBytes    int
	minBytes    int

	need   func()
	enough func()

	full   bool
	pulled bool
	eos    bool
	closed bool
}

func newSource(maxBytes, minPercent int, need, enough func()) *source {
	s := &source{
		maxBytes: maxBytes,
		minBytes: maxBytes * minPercent / 100,
		need:     need,
		enough:   enough,
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// push queues p. Data is accepted even past the bound; the bound only
// drives the enough-data signal.
func (s *source) push(p Packet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.eos {
		return errSourceClosed
	}

	s.queue = append(s.queue, p)
	s.queuedBytes += len(p.Payload)
	if !s.full && s.queuedBytes >= s.maxBytes {
		s.full = true
		s.enough()
	}
	s.cond.Signal()
	return nil
}

func (s *source) endOfStream() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.eos = true
	s.cond.Broadcast()
}

// pull blocks until a packet is available. ok is false once the queue
// is drained after end of stream, or immediately after close.
func (s *source) pull() (p Packet, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.pulled {
		s.pulled = true
		s.need()
	}

	for len(s.queue) == 0 && !s.eos && !s.closed {
		s.cond.Wait()
	}
	if s.closed || len(s.queue) == 0 {
		return Packet{}, false
	}

	p = s.queue[0]
	s.queue[0] = Packet{}
	s.queue = s.queue[1:]
	s.queuedBytes -= len(p.Payload)

	if s.full && s.queuedBytes <= s.minBytes {
		s.full = false
		s.need()
	}
	return p, true
}

// close discards queued data and wakes the sink
func (s *source) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.queue = nil
	s.queuedBytes = 0
	s.cond.Broadcast()
}

// reachedEOS reports whether the queue drained after end of stream
func (s *source) reachedEOS() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eos && !s.closed && len(s.queue) == 0
}
