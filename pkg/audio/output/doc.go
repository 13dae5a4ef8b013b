// ABOUTME: Audio output package for playing relayed PCM
// ABOUTME: Provides the Output interface and its oto implementation
// Package output plays s16le PCM on the local sound device.
//
// Example:
//
//	out := output.NewOto(log)
//	err := out.Open(audio.Format{SampleRate: 44100, Channels: 2})
//	err = out.Write(pcm)
package output
