// ABOUTME: Command and callback surface of the streaming SDK
// ABOUTME: Handle interfaces, session commands, and the callback table the bridge implements
// Package sdk describes the streaming SDK the bridge drives.
//
// Handles returned by "Create" style calls carry one reference owned by
// the caller and must be released exactly once. Handles reached through
// another handle (a playlist's tracks, a track's album) are borrowed and
// stay valid while their parent is referenced; AddRef turns a borrowed
// handle into an owned one.
//
// All callbacks except NotifyMainThread and MusicDelivery are invoked
// from inside Session.ProcessEvents, on the caller's goroutine.
package sdk

import "time"

// ImageID identifies an image
type ImageID [20]byte

// LinkType classifies a parsed URI
type LinkType int

const (
	LinkInvalid LinkType = iota
	LinkTrack
	LinkAlbum
	LinkArtist
	LinkSearch
	LinkPlaylist
	LinkImage
)

// OfflineStatus is a playlist's offline sync state
type OfflineStatus int

const (
	OfflineNo OfflineStatus = iota
	OfflineYes
	OfflineDownloading
	OfflineWaiting
)

// PlaylistKind classifies container entries
type PlaylistKind int

const (
	KindPlaylist PlaylistKind = iota
	KindStartFolder
	KindEndFolder
	KindPlaceholder
)

// Bitrate is the preferred streaming bitrate
type Bitrate int

const (
	Bitrate160k Bitrate = iota
	Bitrate320k
	Bitrate96k
)

// ToplistType selects what a toplist browse returns
type ToplistType int

const (
	ToplistArtists ToplistType = iota
	ToplistAlbums
	ToplistTracks
)

// ToplistRegion selects whose toplist is browsed
type ToplistRegion int

const (
	ToplistEverywhere ToplistRegion = iota
	ToplistUser
)

// AudioFormat describes delivered PCM; samples are interleaved int16
type AudioFormat struct {
	SampleRate int
	Channels   int
}

// FrameSize is the number of bytes in one interleaved frame
func (f AudioFormat) FrameSize() int {
	return f.Channels * 2
}

// SearchParams configures a search
type SearchParams struct {
	Query       string
	TrackOffset int
	TrackCount  int
	AlbumOffset int
	AlbumCount  int
}

type Link interface {
	Releaser
	Type() LinkType
	// AsTrack returns the borrowed track, or nil if the link is not a track
	AsTrack() Track
	// AsAlbum returns the borrowed album, or nil if the link is not an album
	AsAlbum() Album
	String() string
}

type Artist interface {
	Name() string
}

type Album interface {
	Releaser
	AddRef()
	IsLoaded() bool
	Name() string
	Year() int
	Artist() Artist
	// Cover reports the cover image id, if the album has one
	Cover() (ImageID, bool)
	// Link returns an owned link to the album
	Link() Link
}

type Track interface {
	Releaser
	AddRef()
	IsLoaded() bool
	Err() error
	Name() string
	Album() Album
	Artists() []Artist
	Duration() time.Duration
	Popularity() int
	Disc() int
	Index() int
	IsStarred() bool
	// Link returns an owned link to the track
	Link() Link
}

type Playlist interface {
	Releaser
	AddRef()
	IsLoaded() bool
	Name() string
	Owner() string
	NumTracks() int
	// Track returns the borrowed track at index i
	Track(i int) Track
	OfflineStatus() OfflineStatus
	OfflineDownloadCompleted() int
	SetOfflineMode(offline bool) error
	AddTracks(tracks []Track, position int) error
	RemoveTracks(indices []int) error
}

// PlaylistContainer is the user's playlist list; it is owned by the session
type PlaylistContainer interface {
	IsLoaded() bool
	NumPlaylists() int
	Kind(i int) PlaylistKind
	// Playlist returns the borrowed playlist at index i
	Playlist(i int) Playlist
}

type Search interface {
	Releaser
	IsLoaded() bool
	Err() error
	Query() string
	DidYouMean() string
	TotalTracks() int
	NumTracks() int
	Track(i int) Track
	NumAlbums() int
	Album(i int) Album
}

type AlbumBrowse interface {
	Releaser
	IsLoaded() bool
	Err() error
	Album() Album
	NumTracks() int
	Track(i int) Track
}

type ToplistBrowse interface {
	Releaser
	IsLoaded() bool
	Err() error
	NumTracks() int
	Track(i int) Track
	NumAlbums() int
	Album(i int) Album
}

type Image interface {
	Releaser
	AddRef()
	IsLoaded() bool
	Err() error
	ID() ImageID
	Data() []byte
	// AddLoadCallback arranges for Callbacks.ImageLoaded to fire for this image
	AddLoadCallback()
	RemoveLoadCallback()
}

// Session is the single logged-in context. It is not safe for
// concurrent use; every method is called from one goroutine.
type Session interface {
	Login(username, password string, remember bool) error
	Relogin() error
	Logout() error

	// UserName is the logged in user, "" before login completes
	UserName() string

	// ProcessEvents runs pending callbacks and returns when it wants to be
	// called again if no NotifyMainThread arrives first
	ProcessEvents() time.Duration

	// PlaylistContainer returns nil until logged in
	PlaylistContainer() PlaylistContainer
	InboxCreate() Playlist
	StarredCreate() Playlist

	// LinkFromString returns nil when uri does not parse
	LinkFromString(uri string) Link

	// Create calls return nil on immediate failure
	SearchCreate(params SearchParams) Search
	AlbumBrowseCreate(album Album) AlbumBrowse
	ToplistBrowseCreate(kind ToplistType, region ToplistRegion, username string) ToplistBrowse
	ImageCreate(id ImageID) Image

	PlayerLoad(track Track) error
	PlayerPlay(play bool) error
	PlayerSeek(offset time.Duration) error
	PlayerUnload()

	SetPreferredBitrate(b Bitrate) error
	SetVolumeNormalization(on bool)
	SetTracksStarred(tracks []Track, starred bool) error

	Release() error
}

// Callbacks is the event table a session reports to
type Callbacks interface {
	LoggedIn(err error)
	LoggedOut()
	// NotifyMainThread may be called from any goroutine
	NotifyMainThread()
	LogMessage(msg string)
	MetadataUpdated()
	// MusicDelivery may be called from any goroutine. It returns the number
	// of frames consumed; 0 asks the SDK to deliver the same data again.
	MusicDelivery(format AudioFormat, frames []byte, numFrames int) int
	EndOfTrack()
	StreamingError(err error)
	ConnectionError(err error)
	MessageToUser(msg string)
	OfflineStatusUpdated()

	ContainerLoaded()
	ContainerChanged()
	PlaylistStateChanged(p Playlist)

	SearchComplete(s Search)
	AlbumBrowseComplete(b AlbumBrowse)
	ToplistBrowseComplete(b ToplistBrowse)
	ImageLoaded(img Image)
}

// Config is passed to session creation
type Config struct {
	CacheLocation    string
	SettingsLocation string
	UserAgent        string
	DeviceID         string
	Callbacks        Callbacks
}

// NewSessionFunc creates a session
type NewSessionFunc func(cfg Config) (Session, error)
