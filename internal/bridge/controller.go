// ABOUTME: Bridge controller owning the SDK session
// ABOUTME: Routes control messages to the tracker and playback machine and runs the event loop
// Package bridge connects the control channel to the streaming SDK.
//
// The Controller is the only owner of the session. Inbound messages and
// SDK callbacks all run on one event loop goroutine; the SDK's notify
// and audio callbacks are the only entry points from other goroutines.
package bridge

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spotblob/spotblob/internal/media"
	"github.com/spotblob/spotblob/internal/playback"
	"github.com/spotblob/spotblob/internal/sdk"
	"github.com/spotblob/spotblob/internal/tracker"
	"github.com/spotblob/spotblob/pkg/protocol"
)

const loopBuffer = 256

// Conn is the control connection
type Conn interface {
	protocol.Sender
	ReadLoop(ctx context.Context, handle func(*protocol.Message)) error
	Close() error
}

// Config holds controller configuration
type Config struct {
	NewSession sdk.NewSessionFunc

	// Session is passed to NewSession with Callbacks filled in
	Session sdk.Config

	// Media is the template for each track's pipeline
	Media media.Config

	// NewPipeline overrides pipeline construction
	NewPipeline playback.PipelineFactory

	Logger *zap.Logger
}

// Controller bridges the control channel and the SDK session
type Controller struct {
	config Config
	conn   Conn
	log    *zap.Logger
	loop   *Loop

	session  sdk.Session
	tracker  *tracker.Tracker
	playback atomic.Pointer[playback.Machine]

	username string
	relogin  bool

	notified atomic.Bool
	timer    *time.Timer
}

// New creates a controller reading from and replying on conn
func New(config Config, conn Conn) *Controller {
	log := config.Logger
	if log == nil {
		log = zap.NewNop()
	}
	c := &Controller{
		config: config,
		conn:   conn,
		log:    log.Named("bridge"),
		loop:   NewLoop(loopBuffer),
	}
	if c.config.NewPipeline == nil {
		c.config.NewPipeline = c.newMediaPipeline
	}
	return c
}

func (c *Controller) newMediaPipeline(port int, duration time.Duration) playback.Pipeline {
	cfg := c.config.Media
	cfg.Port = port
	cfg.ExpectedDuration = duration
	if cfg.Logger == nil {
		cfg.Logger = c.config.Logger
	}
	return media.New(cfg)
}

// Run serves the control connection until it closes or ctx ends, then
// tears down playback, pending requests, and the session in that order.
// A clean disconnect returns nil.
func (c *Controller) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer c.loop.Stop()
		return c.conn.ReadLoop(gctx, func(m *protocol.Message) {
			c.loop.Post(func() { c.HandleMessage(m) })
		})
	})
	g.Go(func() error {
		return c.loop.Run(gctx)
	})

	err := g.Wait()
	c.shutdown()

	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func (c *Controller) shutdown() {
	if c.timer != nil {
		c.timer.Stop()
	}
	if m := c.playback.Load(); m != nil {
		m.Close()
	}
	if c.tracker != nil {
		c.tracker.Close()
	}
	if c.session != nil {
		if err := c.session.Release(); err != nil {
			c.log.Warn("session release failed", zap.Error(err))
		}
		c.session = nil
	}
	c.conn.Close()
	c.log.Info("bridge stopped")
}

func (c *Controller) send(m *protocol.Message) {
	if err := c.conn.Send(m); err != nil {
		c.log.Error("failed to send", zap.String("kind", m.Kind()), zap.Error(err))
	}
}

// post schedules fn on the event loop from another goroutine. It never
// blocks, so the SDK audio goroutine can call it while the loop waits
// on that goroutine.
func (c *Controller) post(fn func()) {
	c.loop.Schedule(fn)
}

// processEvents lets the session run its queued callbacks and re-arms
// the timer for its next requested wakeup
func (c *Controller) processEvents() {
	c.notified.Store(false)
	if c.session == nil {
		return
	}

	next := max(c.session.ProcessEvents(), 0)
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(next, c.NotifyMainThread)
}

func (c *Controller) createSession() error {
	cfg := c.config.Session
	cfg.Callbacks = c

	session, err := c.config.NewSession(cfg)
	if err != nil {
		return err
	}

	c.session = session
	c.tracker = tracker.New(session, c.conn, c.config.Logger)
	c.playback.Store(playback.New(session, c.conn, c.config.NewPipeline, c.post, c.config.Logger))
	c.log.Info("session created", zap.String("cache", cfg.CacheLocation))

	c.processEvents()
	return nil
}
