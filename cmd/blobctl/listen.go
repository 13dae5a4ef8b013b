// ABOUTME: The listen command: accepts the bridge, logs in, and requests playback
// ABOUTME: Runs the control conversation and the media sink side by side
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spotblob/spotblob/internal/ui"
	"github.com/spotblob/spotblob/pkg/audio/output"
	"github.com/spotblob/spotblob/pkg/protocol"
)

const (
	listenHost   = "127.0.0.1"
	searchLimit  = 10
	searchAlbums = 3
)

type listenOptions struct {
	port      int
	mediaPort int
	user      string
	password  string
	play      string
	search    string

	// status receives progress for the TUI; pause carries its pause key
	status func(ui.StatusMsg)
	pause  <-chan bool
}

func (o listenOptions) report(m ui.StatusMsg) {
	if o.status != nil {
		o.status(m)
	}
}

func runListen(ctx context.Context, opts listenOptions, log *zap.Logger, out output.Output) error {
	ctrl, err := net.Listen("tcp", net.JoinHostPort(listenHost, strconv.Itoa(opts.port)))
	if err != nil {
		return fmt.Errorf("listen for control: %w", err)
	}
	defer ctrl.Close()

	var sink net.Listener
	if opts.play != "" {
		sink, err = net.Listen("tcp", net.JoinHostPort(listenHost, strconv.Itoa(opts.mediaPort)))
		if err != nil {
			return fmt.Errorf("listen for media: %w", err)
		}
		defer sink.Close()
	}
	return serve(ctx, ctrl, sink, opts, log, out)
}

// serve waits for the bridge on ctrl and, when playing, for its audio on
// sink. It returns once playback ends, the bridge disconnects, or ctx
// is cancelled.
func serve(ctx context.Context, ctrl, sink net.Listener, opts listenOptions, log *zap.Logger, out output.Output) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, func() {
		ctrl.Close()
		if sink != nil {
			sink.Close()
		}
	})
	defer stop()

	if sink != nil {
		opts.mediaPort = sink.Addr().(*net.TCPAddr).Port
	}

	log.Info("waiting for bridge", zap.String("addr", ctrl.Addr().String()))
	conn, err := ctrl.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("accept control: %w", err)
	}
	log.Info("bridge connected", zap.String("remote", conn.RemoteAddr().String()))
	connected := true
	opts.report(ui.StatusMsg{Connected: &connected, Remote: conn.RemoteAddr().String()})

	ch := protocol.NewChannel(conn, log)
	defer ch.Close()
	c := &client{opts: opts, ch: ch, log: log}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		err := ch.ReadLoop(gctx, c.handle)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		if err == nil {
			log.Info("bridge disconnected")
		}
		disconnected := false
		opts.report(ui.StatusMsg{Connected: &disconnected})
		return err
	})
	if opts.pause != nil {
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return nil
				case paused := <-opts.pause:
					c.send(&protocol.Message{PauseRequest: &protocol.PauseRequest{Paused: paused}})
				}
			}
		})
	}
	if sink != nil {
		g.Go(func() error {
			// playback ending ends the session
			defer cancel()
			mconn, err := sink.Accept()
			if err != nil {
				if gctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("accept media: %w", err)
			}
			defer mconn.Close()

			stats, err := playMedia(mconn, out, log, opts.report)
			log.Info("playback finished",
				zap.Int("packets", stats.packets),
				zap.Int("bytes", stats.bytes),
				zap.Duration("duration", stats.duration))
			return err
		})
	}

	if err := c.login(); err != nil {
		cancel()
		_ = g.Wait()
		return err
	}
	return g.Wait()
}

// client drives the control conversation
type client struct {
	opts listenOptions
	ch   *protocol.Channel
	log  *zap.Logger
}

func (c *client) login() error {
	c.opts.report(ui.StatusMsg{User: c.opts.user})
	return c.ch.Send(&protocol.Message{LoginRequest: &protocol.LoginRequest{
		Username: c.opts.user,
		Password: c.opts.password,
	}})
}

func (c *client) handle(m *protocol.Message) {
	c.log.Info("received", append([]zap.Field{zap.String("kind", m.Kind())}, describe(m)...)...)

	switch {
	case m.PlaylistsUpdated != nil:
		names := make([]string, 0, len(m.PlaylistsUpdated.Playlist))
		for _, p := range m.PlaylistsUpdated.Playlist {
			names = append(names, p.Name)
		}
		c.opts.report(ui.StatusMsg{Playlists: names})
	case m.PlaybackError != nil:
		c.opts.report(ui.StatusMsg{Error: m.PlaybackError.Error})
	}

	r := m.LoginResponse
	if r == nil {
		return
	}
	if !r.Success {
		c.log.Error("login failed", zap.String("error", r.Error), zap.Int32("code", int32(r.ErrorCode)))
		c.opts.report(ui.StatusMsg{LoginError: r.Error})
		c.ch.Close()
		return
	}
	ok := true
	c.opts.report(ui.StatusMsg{LoggedIn: &ok})
	if c.opts.search != "" {
		c.send(&protocol.Message{SearchRequest: &protocol.SearchRequest{
			Query:      c.opts.search,
			Limit:      searchLimit,
			LimitAlbum: searchAlbums,
		}})
	}
	if c.opts.play != "" {
		c.opts.report(ui.StatusMsg{Track: c.opts.play})
		c.send(&protocol.Message{PlaybackRequest: &protocol.PlaybackRequest{
			TrackURI:  c.opts.play,
			MediaPort: int32(c.opts.mediaPort),
		}})
	}
}

func (c *client) send(m *protocol.Message) {
	if err := c.ch.Send(m); err != nil {
		c.log.Warn("send failed", zap.String("kind", m.Kind()), zap.Error(err))
	}
}

// describe summarizes a message for the log line
func describe(m *protocol.Message) []zap.Field {
	switch {
	case m.LoginResponse != nil:
		return []zap.Field{zap.Bool("success", m.LoginResponse.Success), zap.String("error", m.LoginResponse.Error)}
	case m.PlaylistsUpdated != nil:
		names := make([]string, 0, len(m.PlaylistsUpdated.Playlist))
		for _, p := range m.PlaylistsUpdated.Playlist {
			names = append(names, p.Name)
		}
		return []zap.Field{zap.Strings("playlists", names)}
	case m.PlaybackError != nil:
		return []zap.Field{zap.String("error", m.PlaybackError.Error)}
	case m.SearchResponse != nil:
		r := m.SearchResponse
		titles := make([]string, 0, len(r.Result))
		for _, t := range r.Result {
			titles = append(titles, t.Title)
		}
		return []zap.Field{
			zap.Int32("total", r.TotalTracks),
			zap.Strings("tracks", titles),
			zap.Int("albums", len(r.Album)),
			zap.String("did_you_mean", r.DidYouMean),
		}
	case m.LoadPlaylistResponse != nil:
		return []zap.Field{zap.Int("tracks", len(m.LoadPlaylistResponse.Track))}
	case m.SyncPlaylistProgress != nil:
		return []zap.Field{zap.Int32("progress", m.SyncPlaylistProgress.SyncProgress)}
	case m.ImageResponse != nil:
		return []zap.Field{zap.String("id", m.ImageResponse.ID), zap.Int("bytes", len(m.ImageResponse.Data))}
	case m.BrowseAlbumResponse != nil:
		return []zap.Field{zap.String("uri", m.BrowseAlbumResponse.URI), zap.Int("tracks", len(m.BrowseAlbumResponse.Track))}
	case m.BrowseToplistResponse != nil:
		return []zap.Field{zap.Int("tracks", len(m.BrowseToplistResponse.Track)), zap.Int("albums", len(m.BrowseToplistResponse.Album))}
	}
	return nil
}
