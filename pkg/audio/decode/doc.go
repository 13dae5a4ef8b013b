// ABOUTME: Audio decoder package producing streaming 16-bit PCM
// ABOUTME: MP3 and FLAC files plus a generated sine tone behind one Stream interface
// Package decode turns audio sources into s16le interleaved PCM streams.
//
// Example:
//
//	s, err := decode.Open("track.flac")
//	if err != nil { ... }
//	defer s.Close()
//	buf := make([]byte, s.Format().Bytes(100*time.Millisecond))
//	n, err := s.Read(buf)
package decode
