// ABOUTME: Catalog-backed SDK handles
// ABOUTME: Artists, albums, tracks, links, playlists, the container, and images
package localsdk

import (
	"slices"
	"strings"
	"time"

	"github.com/spotblob/spotblob/internal/sdk"
)

// refs counts references on a handle. Handles are only touched on the
// goroutine driving ProcessEvents.
type refs struct {
	n int
}

func (r *refs) AddRef()  { r.n++ }
func (r *refs) Release() { r.n-- }

// live reports whether anyone still holds the handle
func (r *refs) live() bool { return r.n > 0 }

type artist struct {
	name string
}

func (a *artist) Name() string { return a.name }

type album struct {
	refs
	entry    AlbumEntry
	artist   *artist
	loaded   bool
	cover    sdk.ImageID
	hasCover bool
}

func newAlbum(e AlbumEntry) *album {
	a := &album{}
	a.update(e)
	return a
}

func (a *album) update(e AlbumEntry) {
	a.entry = e
	a.artist = &artist{name: e.Artist}
	a.cover, a.hasCover = e.coverID()
}

func (a *album) IsLoaded() bool             { return a.loaded }
func (a *album) Name() string               { return a.entry.Name }
func (a *album) Year() int                  { return a.entry.Year }
func (a *album) Artist() sdk.Artist         { return a.artist }
func (a *album) Cover() (sdk.ImageID, bool) { return a.cover, a.hasCover }
func (a *album) Link() sdk.Link             { return newLink(a.entry.URI, sdk.LinkAlbum, nil, a) }

type track struct {
	refs
	entry   TrackEntry
	album   *album
	artists []sdk.Artist
	loaded  bool
	err     error
	starred bool
}

func newTrack(e TrackEntry, albums map[string]*album) *track {
	t := &track{}
	t.update(e, albums)
	t.starred = e.Starred
	return t
}

func (t *track) update(e TrackEntry, albums map[string]*album) {
	t.entry = e
	t.album = albums[e.Album]
	t.artists = nil
	for _, name := range e.Artists {
		t.artists = append(t.artists, &artist{name: name})
	}
}

// missingTrack stands in for a well-formed track URI the catalog does
// not know
func missingTrack(uri string) *track {
	return &track{
		entry:  TrackEntry{URI: uri},
		loaded: true,
		err:    sdk.ErrOtherPermanent,
	}
}

func (t *track) IsLoaded() bool          { return t.loaded }
func (t *track) Err() error              { return t.err }
func (t *track) Name() string            { return t.entry.Title }
func (t *track) Artists() []sdk.Artist   { return t.artists }
func (t *track) Duration() time.Duration { return time.Duration(t.entry.DurationMS) * time.Millisecond }
func (t *track) Popularity() int         { return t.entry.Popularity }
func (t *track) Disc() int               { return t.entry.Disc }
func (t *track) Index() int              { return t.entry.Index }
func (t *track) IsStarred() bool         { return t.starred }
func (t *track) Link() sdk.Link          { return newLink(t.entry.URI, sdk.LinkTrack, t, nil) }

func (t *track) Album() sdk.Album {
	if t.album == nil {
		return nil
	}
	return t.album
}

// matches reports whether every query term appears in the track's text
func (t *track) matches(terms []string) bool {
	text := strings.ToLower(t.entry.Title + " " + strings.Join(t.entry.Artists, " "))
	if t.album != nil {
		text += " " + strings.ToLower(t.album.entry.Name)
	}
	for _, term := range terms {
		if !strings.Contains(text, term) {
			return false
		}
	}
	return true
}

type link struct {
	refs
	uri   string
	kind  sdk.LinkType
	track *track
	album *album
}

// newLink returns a link owned by the caller
func newLink(uri string, kind sdk.LinkType, t *track, a *album) *link {
	return &link{refs: refs{n: 1}, uri: uri, kind: kind, track: t, album: a}
}

func (l *link) Type() sdk.LinkType { return l.kind }
func (l *link) String() string     { return l.uri }

func (l *link) AsTrack() sdk.Track {
	if l.track == nil {
		return nil
	}
	return l.track
}

func (l *link) AsAlbum() sdk.Album {
	if l.album == nil {
		return nil
	}
	return l.album
}

type playlist struct {
	refs
	session *Session
	name    string
	owner   string
	kind    sdk.PlaylistKind
	tracks  []*track
	loaded  bool

	offline   sdk.OfflineStatus
	completed int
	// syncGen invalidates progress from an earlier sync
	syncGen int
}

func (p *playlist) IsLoaded() bool                   { return p.loaded }
func (p *playlist) Name() string                     { return p.name }
func (p *playlist) NumTracks() int                   { return len(p.tracks) }
func (p *playlist) Track(i int) sdk.Track            { return p.tracks[i] }
func (p *playlist) OfflineStatus() sdk.OfflineStatus { return p.offline }
func (p *playlist) OfflineDownloadCompleted() int    { return p.completed }

// Owner defaults to the logged in user for playlists without one
func (p *playlist) Owner() string {
	if p.owner == "" {
		return p.session.user
	}
	return p.owner
}

func (p *playlist) SetOfflineMode(offline bool) error {
	p.session.setOffline(p, offline)
	return nil
}

func (p *playlist) AddTracks(tracks []sdk.Track, position int) error {
	if position < 0 || position > len(p.tracks) {
		return sdk.ErrIndexOutOfRange
	}
	added := make([]*track, 0, len(tracks))
	for _, t := range tracks {
		lt, ok := t.(*track)
		if !ok {
			return sdk.ErrInvalidIndata
		}
		added = append(added, lt)
	}
	p.tracks = slices.Insert(p.tracks, position, added...)
	p.session.playlistChanged(p)
	return nil
}

func (p *playlist) RemoveTracks(indices []int) error {
	for _, i := range indices {
		if i < 0 || i >= len(p.tracks) {
			return sdk.ErrIndexOutOfRange
		}
	}
	drop := make(map[int]bool, len(indices))
	for _, i := range indices {
		drop[i] = true
	}
	kept := p.tracks[:0:0]
	for i, t := range p.tracks {
		if !drop[i] {
			kept = append(kept, t)
		}
	}
	p.tracks = kept
	p.session.playlistChanged(p)
	return nil
}

type container struct {
	loaded    bool
	playlists []*playlist
}

func (c *container) IsLoaded() bool              { return c.loaded }
func (c *container) NumPlaylists() int           { return len(c.playlists) }
func (c *container) Kind(i int) sdk.PlaylistKind { return c.playlists[i].kind }

func (c *container) Playlist(i int) sdk.Playlist {
	if c.playlists[i].kind != sdk.KindPlaylist {
		return nil
	}
	return c.playlists[i]
}

type image struct {
	refs
	id        sdk.ImageID
	loading   bool
	loaded    bool
	err       error
	data      []byte
	callbacks int
}

func (i *image) IsLoaded() bool      { return i.loaded }
func (i *image) Err() error          { return i.err }
func (i *image) ID() sdk.ImageID     { return i.id }
func (i *image) Data() []byte        { return i.data }
func (i *image) AddLoadCallback()    { i.callbacks++ }
func (i *image) RemoveLoadCallback() { i.callbacks-- }
