// ABOUTME: Recording protocol sender for tests
// ABOUTME: Collects outbound messages in order
package sdktest

import (
	"sync"

	"github.com/spotblob/spotblob/pkg/protocol"
)

// Sender records every message sent through it
type Sender struct {
	mu   sync.Mutex
	Sent []*protocol.Message
	Err  error
}

func (s *Sender) Send(m *protocol.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Sent = append(s.Sent, m)
	return s.Err
}

// Messages returns a snapshot of what was sent
func (s *Sender) Messages() []*protocol.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*protocol.Message(nil), s.Sent...)
}

// Reset forgets recorded messages
func (s *Sender) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Sent = nil
}
