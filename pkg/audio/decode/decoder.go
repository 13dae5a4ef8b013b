// ABOUTME: Stream interface and file opener
// ABOUTME: Picks a decoder by file extension
package decode

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spotblob/spotblob/pkg/audio"
)

// Stream yields s16le interleaved PCM. Read returns io.EOF after the
// last sample.
type Stream interface {
	io.Reader

	Format() audio.Format

	// Length is the total play time, or 0 when unknown
	Length() time.Duration

	Close() error
}

// Open decodes an audio file chosen by extension
func Open(path string) (Stream, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".mp3", ".flac":
	default:
		return nil, fmt.Errorf("unsupported audio file %q", filepath.Base(path))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audio: %w", err)
	}

	var s Stream
	if ext == ".mp3" {
		s, err = NewMP3(f)
	} else {
		s, err = NewFLAC(f)
	}
	if err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}
