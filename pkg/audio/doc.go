// ABOUTME: Audio fundamentals package providing PCM format types and sample helpers
// ABOUTME: Everything here is 16-bit signed little-endian interleaved PCM
// Package audio describes the raw PCM relayed by the bridge.
//
// Audio delivered by the streaming SDK and relayed to the media port is
// always signed 16-bit, native (little) endian, interleaved. Format
// carries the rate and channel count and converts between byte counts
// and durations.
//
// Example:
//
//	f := audio.Format{SampleRate: 44100, Channels: 2}
//	f.Duration(176400) // one second
//	f.Bytes(100 * time.Millisecond) // 17640
package audio
