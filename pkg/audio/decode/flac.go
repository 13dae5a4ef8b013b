// ABOUTME: FLAC audio decoder
// ABOUTME: Decodes frame by frame with mewkiz/flac and rescales to 16-bit
package decode

import (
	"fmt"
	"io"
	"time"

	"github.com/mewkiz/flac"

	"github.com/spotblob/spotblob/pkg/audio"
)

// FLAC decodes a FLAC stream
type FLAC struct {
	stream  *flac.Stream
	closer  io.Closer
	format  audio.Format
	bits    int
	samples uint64
	pending []byte
}

// NewFLAC starts decoding r; r is closed by Close when it is an io.Closer
func NewFLAC(r io.Reader) (*FLAC, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create flac decoder: %w", err)
	}
	info := stream.Info
	if info.NChannels == 0 || info.SampleRate == 0 {
		return nil, fmt.Errorf("flac stream has no audio")
	}
	s := &FLAC{
		stream:  stream,
		format:  audio.Format{SampleRate: int(info.SampleRate), Channels: int(info.NChannels)},
		bits:    int(info.BitsPerSample),
		samples: info.NSamples,
	}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	return s, nil
}

func (s *FLAC) Read(p []byte) (int, error) {
	for len(s.pending) == 0 {
		f, err := s.stream.ParseNext()
		if err != nil {
			if err == io.EOF {
				return 0, io.EOF
			}
			return 0, fmt.Errorf("flac decode error: %w", err)
		}
		if len(f.Subframes) == 0 {
			continue
		}

		n := len(f.Subframes[0].Samples)
		ch := len(f.Subframes)
		buf := make([]byte, n*ch*2)
		for i := 0; i < n; i++ {
			for c, sub := range f.Subframes {
				audio.PutSample(buf, i*ch+c, audio.SampleToInt16(sub.Samples[i], s.bits))
			}
		}
		s.pending = buf
	}

	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

func (s *FLAC) Format() audio.Format {
	return s.format
}

func (s *FLAC) Length() time.Duration {
	if s.samples == 0 {
		return 0
	}
	return time.Duration(s.samples * uint64(time.Second) / uint64(s.format.SampleRate))
}

func (s *FLAC) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
