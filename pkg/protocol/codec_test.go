// ABOUTME: Tests for the protobuf message codec
// ABOUTME: Sentinel values, oneof enforcement, and forward compatibility
package protocol

import (
	"errors"
	"reflect"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"
)

func TestMarshalPreservesNegativeSentinels(t *testing.T) {
	album := &Track{
		Album:        "Abbey Road",
		Year:         1969,
		DurationMsec: -1,
		Popularity:   -1,
		Disc:         -1,
		Track:        -1,
		Artist:       []string{"The Beatles"},
		URI:          "spotify:album:abc",
	}
	in := &Message{SearchResponse: &SearchResponse{
		Request: &SearchRequest{Query: "abbey"},
		Album:   []*Album{{Metadata: album, Track: []*Track{{Title: "Come Together", DurationMsec: 259000}}}},
	}}

	b, err := Marshal(in)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	out, err := Unmarshal(b)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	got := out.SearchResponse.Album[0].Metadata
	if got.DurationMsec != -1 || got.Popularity != -1 || got.Disc != -1 || got.Track != -1 {
		t.Errorf("sentinels lost: %+v", got)
	}
	if !reflect.DeepEqual(in, out) {
		t.Errorf("round trip mismatch\n got %+v\nwant %+v", out, in)
	}
}

func TestMarshalRejectsMultipleSubMessages(t *testing.T) {
	m := &Message{
		PauseRequest: &PauseRequest{Paused: true},
		SeekRequest:  &SeekRequest{OffsetNsec: 5},
	}
	if _, err := Marshal(m); !errors.Is(err, ErrMalformed) {
		t.Errorf("expected ErrMalformed, got %v", err)
	}
}

func TestUnmarshalRejectsMultipleSubMessages(t *testing.T) {
	var b []byte
	b = appendMessage(b, 20, &PauseRequest{Paused: true})
	b = appendMessage(b, 16, &SeekRequest{OffsetNsec: 5})

	if _, err := Unmarshal(b); !errors.Is(err, ErrMalformed) {
		t.Errorf("expected ErrMalformed, got %v", err)
	}
}

func TestUnmarshalSkipsUnknownFields(t *testing.T) {
	var inner []byte
	inner = appendString(inner, 1, "spotify:track:1")
	inner = appendVarintField(inner, 99, 7)
	inner = appendInt32(inner, 2, 4000)

	var b []byte
	b = protowire.AppendTag(b, 6, protowire.BytesType)
	b = protowire.AppendBytes(b, inner)
	b = appendString(b, 200, "future field")

	m, err := Unmarshal(b)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	want := &PlaybackRequest{TrackURI: "spotify:track:1", MediaPort: 4000}
	if !reflect.DeepEqual(m.PlaybackRequest, want) {
		t.Errorf("got %+v, want %+v", m.PlaybackRequest, want)
	}
}

func TestUnmarshalAcceptsPackedIndices(t *testing.T) {
	var packed []byte
	for _, v := range []uint64{3, 1, 4} {
		packed = protowire.AppendVarint(packed, v)
	}
	var inner []byte
	inner = appendInt32(inner, 1, int32(PlaylistStarred))
	inner = protowire.AppendTag(inner, 3, protowire.BytesType)
	inner = protowire.AppendBytes(inner, packed)

	var b []byte
	b = protowire.AppendTag(b, 22, protowire.BytesType)
	b = protowire.AppendBytes(b, inner)

	m, err := Unmarshal(b)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	got := m.RemoveTracksFromPlaylist
	if got.PlaylistType != PlaylistStarred {
		t.Errorf("PlaylistType = %v, want starred", got.PlaylistType)
	}
	if !reflect.DeepEqual(got.TrackIndex, []int64{3, 1, 4}) {
		t.Errorf("TrackIndex = %v, want [3 1 4]", got.TrackIndex)
	}
}

func TestEmptySubMessageSelectsSlot(t *testing.T) {
	b, err := Marshal(&Message{PauseRequest: &PauseRequest{Paused: false}})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	m, err := Unmarshal(b)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if m.PauseRequest == nil {
		t.Fatal("PauseRequest slot lost")
	}
	if m.Kind() != "pause_request" {
		t.Errorf("Kind() = %q", m.Kind())
	}
}
