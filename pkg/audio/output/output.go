// ABOUTME: Audio output interface definition
// ABOUTME: Common interface for audio playback backends
package output

import "github.com/spotblob/spotblob/pkg/audio"

// Output represents an audio output device
type Output interface {
	// Open initializes the output device
	Open(format audio.Format) error

	// Write queues s16le PCM, blocking until the device accepts it
	Write(pcm []byte) error

	// SetPaused stops or resumes playback without dropping queued audio
	SetPaused(paused bool)

	// Close releases output resources
	Close() error
}

// Gain maps a 0-100 volume to a linear multiplier
func Gain(volume int, muted bool) float64 {
	if muted {
		return 0
	}
	return float64(min(max(volume, 0), 100)) / 100
}
