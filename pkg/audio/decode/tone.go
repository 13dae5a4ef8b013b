// ABOUTME: Generated sine tone stream
// ABOUTME: Stands in for a real recording when a catalog track has no file
package decode

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/spotblob/spotblob/pkg/audio"
)

const toneAmplitude = 0.3

// Tone is a sine wave of fixed length
type Tone struct {
	format audio.Format
	freq   float64
	frames int
	pos    int
}

// NewTone generates freq Hz for length in the given format
func NewTone(freq float64, format audio.Format, length time.Duration) *Tone {
	return &Tone{
		format: format,
		freq:   freq,
		frames: format.Bytes(length) / format.FrameSize(),
	}
}

func (t *Tone) Read(p []byte) (int, error) {
	if t.pos >= t.frames {
		return 0, io.EOF
	}
	size := t.format.FrameSize()
	n := min(len(p)/size, t.frames-t.pos)
	if n == 0 {
		return 0, io.ErrShortBuffer
	}

	step := 2 * math.Pi * t.freq / float64(t.format.SampleRate)
	for i := 0; i < n; i++ {
		v := int16(math.Sin(step*float64(t.pos+i)) * toneAmplitude * audio.MaxInt16)
		for c := 0; c < t.format.Channels; c++ {
			audio.PutSample(p, i*t.format.Channels+c, v)
		}
	}
	t.pos += n
	return n * size, nil
}

func (t *Tone) Format() audio.Format {
	return t.format
}

func (t *Tone) Length() time.Duration {
	return t.format.Duration(t.frames * t.format.FrameSize())
}

// Seek moves the read position, clamped to the tone's length
func (t *Tone) Seek(offset time.Duration) error {
	if offset < 0 {
		return fmt.Errorf("negative seek offset %v", offset)
	}
	t.pos = min(t.format.Bytes(offset)/t.format.FrameSize(), t.frames)
	return nil
}

func (t *Tone) Close() error {
	return nil
}
