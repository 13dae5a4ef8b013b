// ABOUTME: MP3 audio decoder
// ABOUTME: Streams go-mp3 output, which is always 16-bit stereo
package decode

import (
	"fmt"
	"io"
	"time"

	"github.com/hajimehoshi/go-mp3"

	"github.com/spotblob/spotblob/pkg/audio"
)

// MP3 decodes an MP3 stream
type MP3 struct {
	decoder *mp3.Decoder
	closer  io.Closer
	format  audio.Format
}

// NewMP3 starts decoding r; r is closed by Close when it is an io.Closer
func NewMP3(r io.Reader) (*MP3, error) {
	d, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create mp3 decoder: %w", err)
	}
	s := &MP3{
		decoder: d,
		format:  audio.Format{SampleRate: d.SampleRate(), Channels: 2},
	}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	return s, nil
}

func (s *MP3) Read(p []byte) (int, error) {
	return s.decoder.Read(p)
}

func (s *MP3) Format() audio.Format {
	return s.format
}

// Length is known only when the source is seekable
func (s *MP3) Length() time.Duration {
	n := s.decoder.Length()
	if n <= 0 {
		return 0
	}
	return s.format.Duration(int(n))
}

func (s *MP3) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
