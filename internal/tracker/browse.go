// ABOUTME: Album and toplist browse requests
// ABOUTME: Resolves browse completions into BrowseAlbum and BrowseToplist responses
package tracker

import (
	"go.uber.org/zap"

	"github.com/spotblob/spotblob/internal/convert"
	"github.com/spotblob/spotblob/internal/sdk"
	"github.com/spotblob/spotblob/pkg/protocol"
)

type pendingAlbumBrowse struct {
	request *protocol.BrowseAlbumRequest
	browse  *sdk.Ref[sdk.AlbumBrowse]
}

type pendingToplist struct {
	request *protocol.BrowseToplistRequest
	browse  *sdk.Ref[sdk.ToplistBrowse]
}

// BrowseAlbum dispatches an album browse by URI
func (t *Tracker) BrowseAlbum(req *protocol.BrowseAlbumRequest) {
	fail := func(msg string) {
		t.send(&protocol.Message{BrowseAlbumResponse: &protocol.BrowseAlbumResponse{
			URI:   req.URI,
			Error: msg,
		}})
	}

	link := t.session.LinkFromString(req.URI)
	if link == nil {
		fail("Invalid album URI")
		return
	}
	defer link.Release()

	album := link.AsAlbum()
	if album == nil {
		fail("URI is not an album")
		return
	}

	b := t.session.AlbumBrowseCreate(album)
	if b == nil {
		fail("Album browse could not be started")
		return
	}
	t.albumBrowses.put(b, &pendingAlbumBrowse{request: req, browse: sdk.Own(b)})
}

// AlbumBrowseComplete routes an album browse completion to the search
// that spawned it or to a standalone album browse
func (t *Tracker) AlbumBrowseComplete(b sdk.AlbumBrowse) {
	if t.searchAlbumComplete(b) {
		return
	}

	p, ok := t.albumBrowses.take(b)
	if !ok {
		t.unknownHandle("album browse")
		return
	}
	defer p.browse.Release()

	resp := &protocol.BrowseAlbumResponse{URI: p.request.URI}
	if err := b.Err(); err != nil {
		resp.Error = err.Error()
	} else {
		resp.Track = browseTracks(b)
	}
	t.send(&protocol.Message{BrowseAlbumResponse: resp})
}

// BrowseToplist dispatches a toplist browse
func (t *Tracker) BrowseToplist(req *protocol.BrowseToplistRequest) {
	b := t.session.ToplistBrowseCreate(toplistType(req.Type), toplistRegion(req.Region), req.Username)
	if b == nil {
		t.send(&protocol.Message{BrowseToplistResponse: &protocol.BrowseToplistResponse{
			Request: req,
			Error:   "Toplist browse could not be started",
		}})
		return
	}
	t.toplists.put(b, &pendingToplist{request: req, browse: sdk.Own(b)})
}

// ToplistBrowseComplete resolves a toplist browse
func (t *Tracker) ToplistBrowseComplete(b sdk.ToplistBrowse) {
	p, ok := t.toplists.take(b)
	if !ok {
		t.unknownHandle("toplist browse")
		return
	}
	defer p.browse.Release()

	resp := &protocol.BrowseToplistResponse{Request: p.request}
	if err := b.Err(); err != nil {
		resp.Error = err.Error()
		t.send(&protocol.Message{BrowseToplistResponse: resp})
		return
	}

	for i := 0; i < b.NumTracks(); i++ {
		resp.Track = append(resp.Track, convert.Track(b.Track(i)))
	}
	for i := 0; i < b.NumAlbums(); i++ {
		resp.Album = append(resp.Album, &protocol.Album{Metadata: convert.Album(b.Album(i))})
	}

	t.log.Debug("toplist loaded", zap.Int("tracks", len(resp.Track)), zap.Int("albums", len(resp.Album)))
	t.send(&protocol.Message{BrowseToplistResponse: resp})
}

func toplistType(t protocol.ToplistType) sdk.ToplistType {
	switch t {
	case protocol.ToplistAlbums:
		return sdk.ToplistAlbums
	case protocol.ToplistTracks:
		return sdk.ToplistTracks
	default:
		return sdk.ToplistArtists
	}
}

func toplistRegion(r protocol.ToplistRegion) sdk.ToplistRegion {
	if r == protocol.ToplistUser {
		return sdk.ToplistUser
	}
	return sdk.ToplistEverywhere
}
