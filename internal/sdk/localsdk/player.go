// ABOUTME: Audio delivery for the local session
// ABOUTME: A goroutine reads the loaded track in chunks and pushes them through MusicDelivery
package localsdk

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/spotblob/spotblob/internal/sdk"
	"github.com/spotblob/spotblob/pkg/audio"
	"github.com/spotblob/spotblob/pkg/audio/decode"
)

const (
	defaultToneHz = 440
	// normalizationGain is roughly -3dB
	normalizationGain = 0.7079
	retryDelay        = 10 * time.Millisecond
	pausePoll         = 20 * time.Millisecond
)

var toneFormat = audio.Format{SampleRate: 44100, Channels: 2}

type seeker interface {
	Seek(offset time.Duration) error
}

// player streams one loaded track. The stream is only touched by the
// delivery goroutine once it has started.
type player struct {
	s      *Session
	track  *track
	stream decode.Stream
	format audio.Format

	paused  atomic.Bool
	started bool
	seekTo  chan time.Duration
	cancel  context.CancelFunc
	done    chan struct{}
}

func (s *Session) PlayerLoad(t sdk.Track) error {
	lt, ok := t.(*track)
	if !ok || lt == nil {
		return sdk.ErrInvalidIndata
	}
	if !lt.loaded {
		return sdk.ErrIsLoading
	}
	if lt.err != nil || lt.entry.Unplayable {
		return sdk.ErrTrackNotPlayable
	}

	s.PlayerUnload()
	stream, err := s.openStream(lt)
	if err != nil {
		s.log.Warn("failed to open track audio", zap.String("uri", lt.entry.URI), zap.Error(err))
		return sdk.ErrNoStreamAvailable
	}
	p := &player{
		s:      s,
		track:  lt,
		stream: stream,
		format: stream.Format(),
		seekTo: make(chan time.Duration, 1),
	}
	p.paused.Store(true)
	s.player = p
	s.log.Debug("track loaded",
		zap.String("uri", lt.entry.URI),
		zap.Int("sample_rate", p.format.SampleRate),
		zap.Int("channels", p.format.Channels))
	return nil
}

func (s *Session) openStream(t *track) (decode.Stream, error) {
	if t.entry.File != "" {
		return decode.Open(s.catalog.path(t.entry.File))
	}
	hz := t.entry.ToneHz
	if hz <= 0 {
		hz = defaultToneHz
	}
	return decode.NewTone(hz, toneFormat, t.Duration()), nil
}

func (s *Session) PlayerPlay(play bool) error {
	p := s.player
	if p == nil {
		return nil
	}
	p.paused.Store(!play)
	if play && !p.started {
		p.start(s.ctx)
	}
	return nil
}

// PlayerSeek is supported for streams that can reposition
func (s *Session) PlayerSeek(offset time.Duration) error {
	p := s.player
	if p == nil {
		return sdk.ErrIsLoading
	}
	if _, ok := p.stream.(seeker); !ok {
		return sdk.ErrOtherPermanent
	}
	if offset < 0 {
		return sdk.ErrInvalidIndata
	}
	if !p.started {
		return p.stream.(seeker).Seek(offset)
	}
	select {
	case <-p.seekTo:
	default:
	}
	p.seekTo <- offset
	return nil
}

func (s *Session) PlayerUnload() {
	p := s.player
	if p == nil {
		return
	}
	s.player = nil
	p.stop()
}

func (p *player) start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.started = true

	p.s.wg.Add(1)
	go func() {
		defer p.s.wg.Done()
		defer close(p.done)
		p.run(ctx)
	}()
}

func (p *player) stop() {
	if p.started {
		p.cancel()
		<-p.done
	}
	if err := p.stream.Close(); err != nil {
		p.s.log.Debug("closing track audio", zap.Error(err))
	}
}

func (p *player) run(ctx context.Context) {
	s := p.s
	frameSize := p.format.FrameSize()
	buf := make([]byte, max(p.format.Bytes(s.opts.ChunkDuration), frameSize))
	next := time.Now()

	for ctx.Err() == nil {
		select {
		case offset := <-p.seekTo:
			if err := p.stream.(seeker).Seek(offset); err != nil {
				s.log.Warn("seek failed", zap.Duration("offset", offset), zap.Error(err))
			}
		default:
		}

		if p.paused.Load() {
			if !sleep(ctx, pausePoll) {
				return
			}
			next = time.Now()
			continue
		}

		n, err := io.ReadFull(p.stream, buf)
		n -= n % frameSize
		if n > 0 {
			data := buf[:n]
			if s.normalize.Load() {
				audio.Scale(data, normalizationGain)
			}
			if !p.deliver(ctx, data) {
				return
			}
			if !s.opts.Unpaced {
				next = next.Add(p.format.Duration(n))
				if !sleep(ctx, time.Until(next)) {
					return
				}
			}
		}

		switch {
		case err == nil:
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
			s.post(func() {
				if s.player == p {
					s.cb.EndOfTrack()
				}
			})
			return
		default:
			s.log.Warn("track audio read failed", zap.String("uri", p.track.entry.URI), zap.Error(err))
			s.post(func() {
				if s.player == p {
					s.cb.StreamingError(sdk.ErrOtherTransient)
				}
			})
			return
		}
	}
}

// deliver hands data to MusicDelivery until every frame is consumed,
// retrying while the consumer reports it is full
func (p *player) deliver(ctx context.Context, data []byte) bool {
	frameSize := p.format.FrameSize()
	format := sdk.AudioFormat{SampleRate: p.format.SampleRate, Channels: p.format.Channels}
	for len(data) > 0 {
		frames := len(data) / frameSize
		n := p.s.cb.MusicDelivery(format, data, frames)
		if n <= 0 {
			if !sleep(ctx, retryDelay) {
				return false
			}
			continue
		}
		data = data[min(n, frames)*frameSize:]
	}
	return true
}
