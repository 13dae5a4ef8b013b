// ABOUTME: Scriptable in-memory streaming SDK for tests
// ABOUTME: Records every command and counts references on every handle
// Package sdktest provides a fake sdk.Session whose objects are plain
// structs. Tests set fields to script loading and failures, then fire
// callbacks on the code under test themselves.
package sdktest

import (
	"strings"
	"time"

	"github.com/spotblob/spotblob/internal/sdk"
)

// Handle counts references held on a fake object
type Handle struct {
	Refs     int
	Acquired int
	AddRefs  int
	Releases int
}

func (h *Handle) acquire() {
	h.Acquired++
	h.Refs++
}

func (h *Handle) AddRef() {
	h.AddRefs++
	h.Refs++
}

func (h *Handle) Release() {
	h.Releases++
	h.Refs--
}

// Balanced reports whether every reference taken was given back
func (h *Handle) Balanced() bool {
	return h.Refs == 0
}

type Artist struct {
	ArtistName string
}

func (a *Artist) Name() string { return a.ArtistName }

type Album struct {
	Handle
	Title      string
	ArtistName string
	YearNum    int
	CoverID    sdk.ImageID
	HasCover   bool
	URI        string
	Loaded     bool
	Links      []*Link
}

func (a *Album) IsLoaded() bool { return a.Loaded }
func (a *Album) Name() string   { return a.Title }
func (a *Album) Year() int      { return a.YearNum }

func (a *Album) Artist() sdk.Artist {
	if a.ArtistName == "" {
		return nil
	}
	return &Artist{ArtistName: a.ArtistName}
}

func (a *Album) Cover() (sdk.ImageID, bool) { return a.CoverID, a.HasCover }

func (a *Album) Link() sdk.Link {
	l := &Link{URI: a.URI, Kind: sdk.LinkAlbum, AlbumTarget: a}
	l.acquire()
	a.Links = append(a.Links, l)
	return l
}

type Track struct {
	Handle
	Title       string
	AlbumOf     *Album
	ArtistNames []string
	Length      time.Duration
	Popular     int
	DiscNum     int
	IndexNum    int
	Starred     bool
	URI         string
	Loaded      bool
	Fail        error
	Links       []*Link
}

func (t *Track) IsLoaded() bool          { return t.Loaded }
func (t *Track) Err() error              { return t.Fail }
func (t *Track) Name() string            { return t.Title }
func (t *Track) Duration() time.Duration { return t.Length }
func (t *Track) Popularity() int         { return t.Popular }
func (t *Track) Disc() int               { return t.DiscNum }
func (t *Track) Index() int              { return t.IndexNum }
func (t *Track) IsStarred() bool         { return t.Starred }

func (t *Track) Album() sdk.Album {
	if t.AlbumOf == nil {
		return nil
	}
	return t.AlbumOf
}

func (t *Track) Artists() []sdk.Artist {
	out := make([]sdk.Artist, 0, len(t.ArtistNames))
	for _, n := range t.ArtistNames {
		out = append(out, &Artist{ArtistName: n})
	}
	return out
}

func (t *Track) Link() sdk.Link {
	l := &Link{URI: t.URI, Kind: sdk.LinkTrack, TrackTarget: t}
	l.acquire()
	t.Links = append(t.Links, l)
	return l
}

type Link struct {
	Handle
	URI         string
	Kind        sdk.LinkType
	TrackTarget *Track
	AlbumTarget *Album
}

func (l *Link) Type() sdk.LinkType { return l.Kind }
func (l *Link) String() string     { return l.URI }

func (l *Link) AsTrack() sdk.Track {
	if l.TrackTarget == nil {
		return nil
	}
	return l.TrackTarget
}

func (l *Link) AsAlbum() sdk.Album {
	if l.AlbumTarget == nil {
		return nil
	}
	return l.AlbumTarget
}

type Playlist struct {
	Handle
	Title       string
	OwnerName   string
	Tracks      []*Track
	Loaded      bool
	Offline     sdk.OfflineStatus
	Completed   int
	OfflineMode bool
	Added       [][]sdk.Track
	Removed     [][]int
	Fail        error
}

func (p *Playlist) IsLoaded() bool     { return p.Loaded }
func (p *Playlist) Name() string       { return p.Title }
func (p *Playlist) Owner() string      { return p.OwnerName }
func (p *Playlist) NumTracks() int     { return len(p.Tracks) }
func (p *Playlist) Track(i int) sdk.Track { return p.Tracks[i] }

func (p *Playlist) OfflineStatus() sdk.OfflineStatus { return p.Offline }
func (p *Playlist) OfflineDownloadCompleted() int    { return p.Completed }

func (p *Playlist) SetOfflineMode(offline bool) error {
	p.OfflineMode = offline
	return p.Fail
}

func (p *Playlist) AddTracks(tracks []sdk.Track, position int) error {
	if p.Fail != nil {
		return p.Fail
	}
	p.Added = append(p.Added, tracks)
	for _, t := range tracks {
		if ft, ok := t.(*Track); ok {
			p.Tracks = append(p.Tracks, ft)
		}
	}
	return nil
}

func (p *Playlist) RemoveTracks(indices []int) error {
	if p.Fail != nil {
		return p.Fail
	}
	p.Removed = append(p.Removed, indices)
	return nil
}

type Container struct {
	Loaded  bool
	Entries []*Playlist
	Kinds   []sdk.PlaylistKind
}

func (c *Container) IsLoaded() bool    { return c.Loaded }
func (c *Container) NumPlaylists() int { return len(c.Entries) }

func (c *Container) Kind(i int) sdk.PlaylistKind {
	if i < len(c.Kinds) {
		return c.Kinds[i]
	}
	return sdk.KindPlaylist
}

func (c *Container) Playlist(i int) sdk.Playlist {
	if c.Entries[i] == nil {
		return nil
	}
	return c.Entries[i]
}

type Search struct {
	Handle
	Params  sdk.SearchParams
	Loaded  bool
	Fail    error
	Suggest string
	Total   int
	Tracks  []*Track
	Albums  []*Album
}

func (s *Search) IsLoaded() bool        { return s.Loaded }
func (s *Search) Err() error            { return s.Fail }
func (s *Search) Query() string         { return s.Params.Query }
func (s *Search) DidYouMean() string    { return s.Suggest }
func (s *Search) TotalTracks() int      { return s.Total }
func (s *Search) NumTracks() int        { return len(s.Tracks) }
func (s *Search) Track(i int) sdk.Track { return s.Tracks[i] }
func (s *Search) NumAlbums() int        { return len(s.Albums) }
func (s *Search) Album(i int) sdk.Album { return s.Albums[i] }

type AlbumBrowse struct {
	Handle
	AlbumOf *Album
	Tracks  []*Track
	Loaded  bool
	Fail    error
}

func (b *AlbumBrowse) IsLoaded() bool        { return b.Loaded }
func (b *AlbumBrowse) Err() error            { return b.Fail }
func (b *AlbumBrowse) Album() sdk.Album      { return b.AlbumOf }
func (b *AlbumBrowse) NumTracks() int        { return len(b.Tracks) }
func (b *AlbumBrowse) Track(i int) sdk.Track { return b.Tracks[i] }

type ToplistBrowse struct {
	Handle
	Kind   sdk.ToplistType
	Region sdk.ToplistRegion
	User   string
	Tracks []*Track
	Albums []*Album
	Loaded bool
	Fail   error
}

func (b *ToplistBrowse) IsLoaded() bool        { return b.Loaded }
func (b *ToplistBrowse) Err() error            { return b.Fail }
func (b *ToplistBrowse) NumTracks() int        { return len(b.Tracks) }
func (b *ToplistBrowse) Track(i int) sdk.Track { return b.Tracks[i] }
func (b *ToplistBrowse) NumAlbums() int        { return len(b.Albums) }
func (b *ToplistBrowse) Album(i int) sdk.Album { return b.Albums[i] }

type Image struct {
	Handle
	Key          sdk.ImageID
	Loaded       bool
	Fail         error
	Bytes        []byte
	Callbacks    int
	CallbackAdds int
}

func (i *Image) IsLoaded() bool    { return i.Loaded }
func (i *Image) Err() error        { return i.Fail }
func (i *Image) ID() sdk.ImageID   { return i.Key }
func (i *Image) Data() []byte      { return i.Bytes }
func (i *Image) AddLoadCallback()  { i.Callbacks++; i.CallbackAdds++ }
func (i *Image) RemoveLoadCallback() { i.Callbacks-- }

// StarCall records one SetTracksStarred command
type StarCall struct {
	Tracks  []sdk.Track
	Starred bool
}

// Session is a fake sdk.Session
type Session struct {
	Container *Container
	Inbox     *Playlist
	Starred   *Playlist

	// Catalog used to resolve links
	Tracks map[string]*Track
	Albums map[string]*Album

	// Scripted results
	NextSearch      *Search
	FailSearch      bool
	BrowseTracks    map[*Album][]*Track
	FailAlbumBrowse bool
	NextToplist     *ToplistBrowse
	Images          map[sdk.ImageID]*Image
	LoadErr         error
	PlayErr         error
	LoginErr        error
	ReloginErr      error
	NextTimeout     time.Duration

	// User is reported by UserName; Login sets it and Relogin restores
	// StoredUser
	User       string
	StoredUser string

	// Recorded commands
	Links         []*Link
	Searches      []*Search
	AlbumBrowses  []*AlbumBrowse
	Toplists      []*ToplistBrowse
	Logins        []string
	Relogins      int
	ProcessCalls  int
	PlayerLoads   []sdk.Track
	PlayCalls     []bool
	Seeks         []time.Duration
	Unloads       int
	Bitrate       sdk.Bitrate
	Normalization bool
	StarCalls     []StarCall
	Released      bool

	// OnProcess runs inside ProcessEvents, standing in for queued callbacks
	OnProcess func()
}

// NewSession returns a session with an empty loaded container
func NewSession() *Session {
	return &Session{
		Container:    &Container{Loaded: true},
		Inbox:        &Playlist{Title: "Inbox", Loaded: true},
		Starred:      &Playlist{Title: "Starred", Loaded: true},
		Tracks:       make(map[string]*Track),
		Albums:       make(map[string]*Album),
		BrowseTracks: make(map[*Album][]*Track),
		Images:       make(map[sdk.ImageID]*Image),
		NextTimeout:  time.Second,
	}
}

// AddTrack registers a track in the catalog
func (s *Session) AddTrack(uri, title string, loaded bool) *Track {
	t := &Track{URI: uri, Title: title, Loaded: loaded, Length: 3 * time.Minute}
	s.Tracks[uri] = t
	return t
}

// AddAlbum registers an album in the catalog
func (s *Session) AddAlbum(uri, name, artist string) *Album {
	a := &Album{URI: uri, Title: name, ArtistName: artist, Loaded: true}
	s.Albums[uri] = a
	return a
}

func (s *Session) Login(username, password string, remember bool) error {
	s.Logins = append(s.Logins, username)
	if s.LoginErr == nil {
		s.User = username
	}
	return s.LoginErr
}

func (s *Session) Relogin() error {
	s.Relogins++
	if s.ReloginErr == nil {
		s.User = s.StoredUser
	}
	return s.ReloginErr
}

func (s *Session) Logout() error    { return nil }
func (s *Session) UserName() string { return s.User }

func (s *Session) ProcessEvents() time.Duration {
	s.ProcessCalls++
	if s.OnProcess != nil {
		s.OnProcess()
	}
	return s.NextTimeout
}

func (s *Session) PlaylistContainer() sdk.PlaylistContainer {
	if s.Container == nil {
		return nil
	}
	return s.Container
}

func (s *Session) InboxCreate() sdk.Playlist {
	s.Inbox.acquire()
	return s.Inbox
}

func (s *Session) StarredCreate() sdk.Playlist {
	s.Starred.acquire()
	return s.Starred
}

// LinkFromString accepts any "spotify:" URI
func (s *Session) LinkFromString(uri string) sdk.Link {
	if !strings.HasPrefix(uri, "spotify:") {
		return nil
	}
	l := &Link{URI: uri}
	switch {
	case s.Tracks[uri] != nil:
		l.Kind = sdk.LinkTrack
		l.TrackTarget = s.Tracks[uri]
	case s.Albums[uri] != nil:
		l.Kind = sdk.LinkAlbum
		l.AlbumTarget = s.Albums[uri]
	case strings.HasPrefix(uri, "spotify:artist:"):
		l.Kind = sdk.LinkArtist
	default:
		l.Kind = sdk.LinkInvalid
	}
	l.acquire()
	s.Links = append(s.Links, l)
	return l
}

func (s *Session) SearchCreate(params sdk.SearchParams) sdk.Search {
	if s.FailSearch {
		return nil
	}
	srch := s.NextSearch
	s.NextSearch = nil
	if srch == nil {
		srch = &Search{Loaded: true}
	}
	srch.Params = params
	srch.acquire()
	s.Searches = append(s.Searches, srch)
	return srch
}

func (s *Session) AlbumBrowseCreate(album sdk.Album) sdk.AlbumBrowse {
	if s.FailAlbumBrowse || album == nil {
		return nil
	}
	fa, _ := album.(*Album)
	b := &AlbumBrowse{AlbumOf: fa, Tracks: s.BrowseTracks[fa], Loaded: true}
	b.acquire()
	s.AlbumBrowses = append(s.AlbumBrowses, b)
	return b
}

func (s *Session) ToplistBrowseCreate(kind sdk.ToplistType, region sdk.ToplistRegion, username string) sdk.ToplistBrowse {
	b := s.NextToplist
	s.NextToplist = nil
	if b == nil {
		b = &ToplistBrowse{Loaded: true}
	}
	b.Kind, b.Region, b.User = kind, region, username
	b.acquire()
	s.Toplists = append(s.Toplists, b)
	return b
}

// ImageCreate returns the same object for the same id, one reference per call
func (s *Session) ImageCreate(id sdk.ImageID) sdk.Image {
	img := s.Images[id]
	if img == nil {
		img = &Image{Key: id}
		s.Images[id] = img
	}
	img.acquire()
	return img
}

func (s *Session) PlayerLoad(track sdk.Track) error {
	s.PlayerLoads = append(s.PlayerLoads, track)
	return s.LoadErr
}

func (s *Session) PlayerPlay(play bool) error {
	s.PlayCalls = append(s.PlayCalls, play)
	return s.PlayErr
}

func (s *Session) PlayerSeek(offset time.Duration) error {
	s.Seeks = append(s.Seeks, offset)
	return nil
}

func (s *Session) PlayerUnload() { s.Unloads++ }

func (s *Session) SetPreferredBitrate(b sdk.Bitrate) error {
	s.Bitrate = b
	return nil
}

func (s *Session) SetVolumeNormalization(on bool) { s.Normalization = on }

func (s *Session) SetTracksStarred(tracks []sdk.Track, starred bool) error {
	s.StarCalls = append(s.StarCalls, StarCall{Tracks: tracks, Starred: starred})
	return nil
}

func (s *Session) Release() error {
	s.Released = true
	return nil
}
