// ABOUTME: Audio type definitions
// ABOUTME: PCM format, byte/duration conversion, and 16-bit sample helpers
package audio

import (
	"encoding/binary"
	"time"
)

const (
	// BitDepth of every PCM stream handled here
	BitDepth = 16

	MaxInt16 = 32767
	MinInt16 = -32768
)

// Format describes an s16le interleaved PCM stream
type Format struct {
	SampleRate int
	Channels   int
}

// FrameSize is the byte size of one sample per channel
func (f Format) FrameSize() int {
	return f.Channels * BitDepth / 8
}

// BytesPerSecond is the stream's byte rate
func (f Format) BytesPerSecond() int {
	return f.SampleRate * f.FrameSize()
}

// Valid reports whether the format can carry audio
func (f Format) Valid() bool {
	return f.SampleRate > 0 && f.Channels > 0
}

// Duration is the play time of n bytes, truncated to whole frames
func (f Format) Duration(n int) time.Duration {
	if !f.Valid() {
		return 0
	}
	frames := int64(n / f.FrameSize())
	return time.Duration(frames * int64(time.Second) / int64(f.SampleRate))
}

// Bytes is the frame-aligned byte count covering d
func (f Format) Bytes(d time.Duration) int {
	if !f.Valid() || d <= 0 {
		return 0
	}
	frames := int64(d) * int64(f.SampleRate) / int64(time.Second)
	return int(frames) * f.FrameSize()
}

// SampleToInt16 rescales a sample of the given bit depth to 16 bits
func SampleToInt16(sample int32, bits int) int16 {
	switch {
	case bits > 16:
		return int16(sample >> (bits - 16))
	case bits < 16:
		return int16(sample << (16 - bits))
	default:
		return int16(sample)
	}
}

// PutSample writes s at sample index i of an s16le buffer
func PutSample(buf []byte, i int, s int16) {
	binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
}

// Sample reads sample index i of an s16le buffer
func Sample(buf []byte, i int) int16 {
	return int16(binary.LittleEndian.Uint16(buf[i*2:]))
}

// Clamp16 saturates v to the int16 range
func Clamp16(v int64) int16 {
	if v > MaxInt16 {
		return MaxInt16
	}
	if v < MinInt16 {
		return MinInt16
	}
	return int16(v)
}

// Scale applies a gain to s16le PCM in place with clipping
func Scale(pcm []byte, gain float64) {
	if gain == 1 {
		return
	}
	for i := 0; i < len(pcm)/2; i++ {
		PutSample(pcm, i, Clamp16(int64(float64(Sample(pcm, i))*gain)))
	}
}
