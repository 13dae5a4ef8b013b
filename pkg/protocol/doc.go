// ABOUTME: Control protocol package for the spotifyblob bridge
// ABOUTME: Defines envelope messages, protobuf wire codec, and framed channel
// Package protocol implements the control protocol spoken between the
// bridge and its player process.
//
// Messages travel over a byte stream as a 4-byte big-endian length prefix
// followed by a protobuf-encoded Message envelope. Exactly one sub-message
// is set per envelope.
//
// Example:
//
//	ch, err := protocol.Dial(ctx, "127.0.0.1:5000", logger)
//	err = ch.Send(&protocol.Message{PlaybackError: &protocol.PlaybackError{Error: "boom"}})
package protocol
