// ABOUTME: Single-goroutine event loop for session and protocol work
// ABOUTME: Tasks posted from any goroutine run one at a time in order
package bridge

import (
	"context"
	"sync"
)

// Loop runs posted tasks one at a time on the goroutine that calls Run
type Loop struct {
	tasks    chan func()
	quit     chan struct{}
	stopOnce sync.Once
}

// NewLoop creates a loop with room for buffer queued tasks
func NewLoop(buffer int) *Loop {
	return &Loop{
		tasks: make(chan func(), buffer),
		quit:  make(chan struct{}),
	}
}

// Post queues fn, blocking while the queue is full. It must not be
// called from the loop goroutine. It reports false once the loop stopped.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.quit:
		return false
	default:
	}

	select {
	case l.tasks <- fn:
		return true
	case <-l.quit:
		return false
	}
}

// TryPost queues fn without blocking
func (l *Loop) TryPost(fn func()) bool {
	select {
	case <-l.quit:
		return false
	default:
	}

	select {
	case l.tasks <- fn:
		return true
	default:
		return false
	}
}

// Schedule queues fn without ever blocking the caller. When the queue
// is full a goroutine waits for room, so fn may run after tasks posted
// later.
func (l *Loop) Schedule(fn func()) {
	if !l.TryPost(fn) {
		go l.Post(fn)
	}
}

// Run executes tasks until Stop or ctx is done. After Stop, tasks
// already queued are still run.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case fn := <-l.tasks:
			fn()
		case <-l.quit:
			l.drain()
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (l *Loop) drain() {
	for {
		select {
		case fn := <-l.tasks:
			fn()
		default:
			return
		}
	}
}

// Stop ends Run
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.quit) })
}
