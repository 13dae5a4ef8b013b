// ABOUTME: Oto-based audio output implementation
// ABOUTME: Streams PCM through a pipe into one persistent oto player with software volume
package output

import (
	"fmt"
	"io"
	"sync/atomic"

	"github.com/ebitengine/oto/v3"
	"go.uber.org/zap"

	"github.com/spotblob/spotblob/pkg/audio"
)

// Oto output implementation using oto library
type Oto struct {
	log        *zap.Logger
	otoCtx     *oto.Context
	player     *oto.Player
	pipeReader *io.PipeReader
	pipeWriter *io.PipeWriter
	format     audio.Format
	volume     atomic.Int32
	muted      atomic.Bool
	ready      bool
}

// NewOto creates a new Oto output
func NewOto(log *zap.Logger) *Oto {
	if log == nil {
		log = zap.NewNop()
	}
	o := &Oto{log: log.Named("output")}
	o.volume.Store(100)
	return o
}

// Open initializes the output device. oto allows one context per
// process, so a later format change keeps the first one.
func (o *Oto) Open(format audio.Format) error {
	if !format.Valid() {
		return fmt.Errorf("invalid output format %+v", format)
	}

	if o.otoCtx != nil {
		if o.format != format {
			o.log.Warn("format change ignored, oto cannot reinitialize",
				zap.Int("rate", o.format.SampleRate), zap.Int("channels", o.format.Channels),
				zap.Int("new_rate", format.SampleRate), zap.Int("new_channels", format.Channels))
		}
		return nil
	}

	op := &oto.NewContextOptions{
		SampleRate:   format.SampleRate,
		ChannelCount: format.Channels,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return fmt.Errorf("failed to create oto context: %w", err)
	}
	<-readyChan

	o.otoCtx = ctx
	o.format = format

	// Create pipe for continuous streaming
	o.pipeReader, o.pipeWriter = io.Pipe()

	o.player = o.otoCtx.NewPlayer(o.pipeReader)
	o.player.Play()
	o.ready = true

	o.log.Info("audio output initialized",
		zap.Int("rate", format.SampleRate),
		zap.Int("channels", format.Channels))
	return nil
}

// Write outputs audio (blocks until written)
func (o *Oto) Write(pcm []byte) error {
	if !o.ready {
		return fmt.Errorf("output not initialized")
	}

	if gain := Gain(int(o.volume.Load()), o.muted.Load()); gain != 1 {
		scaled := make([]byte, len(pcm))
		copy(scaled, pcm)
		audio.Scale(scaled, gain)
		pcm = scaled
	}

	if _, err := o.pipeWriter.Write(pcm); err != nil {
		return fmt.Errorf("pipe write failed: %w", err)
	}
	return nil
}

func (o *Oto) SetPaused(paused bool) {
	if o.player == nil {
		return
	}
	if paused {
		o.player.Pause()
	} else {
		o.player.Play()
	}
}

// SetVolume sets the volume (0-100). Safe to call while writing.
func (o *Oto) SetVolume(volume int) {
	o.volume.Store(int32(min(max(volume, 0), 100)))
}

// SetMuted sets mute state
func (o *Oto) SetMuted(muted bool) {
	o.muted.Store(muted)
}

// Close releases output resources
func (o *Oto) Close() error {
	if o.pipeWriter != nil {
		o.pipeWriter.Close()
		o.pipeWriter = nil
	}
	if o.player != nil {
		o.player.Close()
		o.player = nil
	}
	if o.pipeReader != nil {
		o.pipeReader.Close()
		o.pipeReader = nil
	}
	if o.otoCtx != nil {
		o.otoCtx.Suspend()
		o.ready = false
	}
	return nil
}
