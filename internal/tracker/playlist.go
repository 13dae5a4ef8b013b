// ABOUTME: Playlist loads that wait for the playlist and all its tracks
// ABOUTME: Re-checked on every metadata update; starred results are reversed
package tracker

import (
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/spotblob/spotblob/internal/convert"
	"github.com/spotblob/spotblob/internal/sdk"
	"github.com/spotblob/spotblob/pkg/protocol"
)

type pendingPlaylist struct {
	request  *protocol.LoadPlaylistRequest
	playlist *sdk.Ref[sdk.Playlist]

	// tracks is filled once the playlist itself has loaded
	tracks     []*sdk.Ref[sdk.Track]
	enumerated bool
}

func (p *pendingPlaylist) release() {
	sdk.ReleaseAll(p.tracks)
	p.playlist.Release()
}

// OpenPlaylist returns an owned reference to the requested playlist.
// Inbox and starred are created; user playlists are borrowed from the
// container and AddRef'd so every result is released the same way.
func OpenPlaylist(session sdk.Session, kind protocol.PlaylistType, index int) (sdk.Playlist, error) {
	switch kind {
	case protocol.PlaylistInbox:
		return session.InboxCreate(), nil
	case protocol.PlaylistStarred:
		return session.StarredCreate(), nil
	case protocol.PlaylistUser:
		container := session.PlaylistContainer()
		if container == nil || !container.IsLoaded() {
			return nil, fmt.Errorf("playlist container not loaded")
		}
		if index < 0 || index >= container.NumPlaylists() {
			return nil, fmt.Errorf("playlist index %d out of range", index)
		}
		if container.Kind(index) != sdk.KindPlaylist {
			return nil, fmt.Errorf("container entry %d is not a playlist", index)
		}
		pl := container.Playlist(index)
		if pl == nil {
			return nil, fmt.Errorf("playlist %d unavailable", index)
		}
		pl.AddRef()
		return pl, nil
	default:
		return nil, fmt.Errorf("unknown playlist type %d", kind)
	}
}

// LoadPlaylist dispatches a playlist load
func (t *Tracker) LoadPlaylist(req *protocol.LoadPlaylistRequest) {
	pl, err := OpenPlaylist(t.session, req.Type, int(req.UserPlaylistIndex))
	if err != nil || pl == nil {
		t.log.Warn("invalid playlist requested",
			zap.Stringer("type", req.Type),
			zap.Int32("index", req.UserPlaylistIndex),
			zap.Error(err))
		t.send(&protocol.Message{LoadPlaylistResponse: &protocol.LoadPlaylistResponse{Request: req}})
		return
	}

	p := &pendingPlaylist{request: req, playlist: sdk.Own(pl)}
	if t.tryLoadPlaylist(p) {
		return
	}
	t.playlistLoads = append(t.playlistLoads, p)
}

// PlaylistStateChanged re-checks pending loads; playlists report
// their own loading through this callback as well as metadata updates
func (t *Tracker) PlaylistStateChanged() {
	t.retryPlaylists()
}

func (t *Tracker) retryPlaylists() {
	t.playlistLoads = slices.DeleteFunc(t.playlistLoads, t.tryLoadPlaylist)
}

// tryLoadPlaylist sends the response and releases p once the playlist
// and every track in it have loaded. It reports whether p is finished.
func (t *Tracker) tryLoadPlaylist(p *pendingPlaylist) bool {
	pl := p.playlist.Get()
	if !pl.IsLoaded() {
		return false
	}

	if !p.enumerated {
		n := pl.NumTracks()
		p.tracks = make([]*sdk.Ref[sdk.Track], 0, n)
		for i := 0; i < n; i++ {
			tr := pl.Track(i)
			tr.AddRef()
			p.tracks = append(p.tracks, sdk.Own(tr))
		}
		p.enumerated = true
	}

	for _, tr := range p.tracks {
		if !tr.Get().IsLoaded() {
			return false
		}
	}

	loaded := make([]sdk.Track, 0, len(p.tracks))
	for _, tr := range p.tracks {
		loaded = append(loaded, tr.Get())
	}
	tracks := convert.Tracks(loaded)
	// starred is stored oldest first; present newest first
	if p.request.Type == protocol.PlaylistStarred {
		slices.Reverse(tracks)
	}

	t.log.Debug("playlist loaded",
		zap.Stringer("type", p.request.Type),
		zap.String("name", pl.Name()),
		zap.Int("tracks", len(tracks)))

	t.send(&protocol.Message{LoadPlaylistResponse: &protocol.LoadPlaylistResponse{
		Request: p.request,
		Track:   tracks,
	}})
	p.release()
	return true
}
