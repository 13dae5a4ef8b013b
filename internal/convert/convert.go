// ABOUTME: Converts SDK tracks and albums into wire Track messages
// ABOUTME: Albums use -1 sentinels for the per-track fields
package convert

import (
	"encoding/base64"

	"github.com/spotblob/spotblob/internal/sdk"
	"github.com/spotblob/spotblob/pkg/protocol"
)

// Sentinel marks per-track fields that do not apply to an album
const Sentinel = -1

// Track converts a loaded track
func Track(t sdk.Track) *protocol.Track {
	pb := &protocol.Track{
		Starred:      t.IsStarred(),
		Title:        t.Name(),
		DurationMsec: int32(t.Duration().Milliseconds()),
		Popularity:   int32(t.Popularity()),
		Disc:         int32(t.Disc()),
		Track:        int32(t.Index()),
	}

	if album := t.Album(); album != nil {
		pb.Album = album.Name()
		pb.Year = int32(album.Year())
		pb.AlbumArtID = CoverID(album)
	}
	for _, artist := range t.Artists() {
		pb.Artist = append(pb.Artist, artist.Name())
	}
	pb.URI = linkString(t.Link())

	return pb
}

// Tracks converts every track
func Tracks(tracks []sdk.Track) []*protocol.Track {
	out := make([]*protocol.Track, 0, len(tracks))
	for _, t := range tracks {
		out = append(out, Track(t))
	}
	return out
}

// Album converts album metadata with no specific track
func Album(a sdk.Album) *protocol.Track {
	pb := &protocol.Track{
		Starred:      false,
		Title:        "",
		Album:        a.Name(),
		Year:         int32(a.Year()),
		DurationMsec: Sentinel,
		Popularity:   Sentinel,
		Disc:         Sentinel,
		Track:        Sentinel,
		AlbumArtID:   CoverID(a),
	}
	if artist := a.Artist(); artist != nil {
		pb.Artist = []string{artist.Name()}
	}
	pb.URI = linkString(a.Link())

	return pb
}

// CoverID returns the base64 cover id, or "" when the album has none
func CoverID(a sdk.Album) string {
	id, ok := a.Cover()
	if !ok {
		return ""
	}
	return base64.StdEncoding.EncodeToString(id[:])
}

// ParseImageID decodes a base64 image id
func ParseImageID(s string) (sdk.ImageID, bool) {
	var id sdk.ImageID
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil || len(raw) != len(id) {
		return id, false
	}
	copy(id[:], raw)
	return id, true
}

// linkString stringifies and releases an owned link
func linkString(l sdk.Link) string {
	if l == nil {
		return ""
	}
	defer l.Release()
	return l.String()
}
