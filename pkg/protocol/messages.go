// ABOUTME: Control protocol message type definitions
// ABOUTME: Envelope plus every request/response exchanged with the player process
package protocol

// PlaylistType selects which list a playlist request targets
type PlaylistType int32

const (
	PlaylistInbox PlaylistType = iota
	PlaylistStarred
	PlaylistUser
)

func (t PlaylistType) String() string {
	switch t {
	case PlaylistInbox:
		return "inbox"
	case PlaylistStarred:
		return "starred"
	case PlaylistUser:
		return "user"
	default:
		return "unknown"
	}
}

// LoginError is the reason code carried by a failed LoginResponse
type LoginError int32

const (
	LoginErrorOther LoginError = iota
	LoginErrorBadUsernameOrPassword
	LoginErrorUserBanned
	LoginErrorUserNeedsPremium
	LoginErrorReloginFailed
)

// Bitrate is the preferred streaming bitrate
type Bitrate int32

const (
	Bitrate160k Bitrate = iota
	Bitrate320k
	Bitrate96k
)

// ToplistType selects what a toplist browse returns
type ToplistType int32

const (
	ToplistArtists ToplistType = iota
	ToplistAlbums
	ToplistTracks
)

// ToplistRegion selects whose toplist is browsed
type ToplistRegion int32

const (
	ToplistEverywhere ToplistRegion = iota
	ToplistUser
)

// Message is the envelope for every control message.
// At most one field is set.
type Message struct {
	LoginRequest               *LoginRequest
	LoginResponse              *LoginResponse
	PlaylistsUpdated           *PlaylistsUpdated
	LoadPlaylistRequest        *LoadPlaylistRequest
	LoadPlaylistResponse       *LoadPlaylistResponse
	PlaybackRequest            *PlaybackRequest
	PlaybackError              *PlaybackError
	SearchRequest              *SearchRequest
	SearchResponse             *SearchResponse
	ImageRequest               *ImageRequest
	ImageResponse              *ImageResponse
	SyncPlaylistRequest        *SyncPlaylistRequest
	SyncPlaylistProgress       *SyncPlaylistProgress
	BrowseAlbumRequest         *BrowseAlbumRequest
	BrowseAlbumResponse        *BrowseAlbumResponse
	SeekRequest                *SeekRequest
	SetPlaybackSettingsRequest *SetPlaybackSettingsRequest
	BrowseToplistRequest       *BrowseToplistRequest
	BrowseToplistResponse      *BrowseToplistResponse
	PauseRequest               *PauseRequest
	AddTracksToPlaylist        *AddTracksToPlaylistRequest
	RemoveTracksFromPlaylist   *RemoveTracksFromPlaylistRequest
}

// Track is the wire form of a track, or of an album when the
// numeric fields carry the -1 sentinel
type Track struct {
	Starred      bool
	Title        string
	Album        string
	Year         int32
	DurationMsec int32
	Popularity   int32
	Disc         int32
	Track        int32
	AlbumArtID   string // base64 of the 20-byte cover id
	Artist       []string
	URI          string
}

// Album groups album metadata with its tracks
type Album struct {
	Metadata *Track
	Track    []*Track
}

// Playlist describes one entry of the user's playlist container
type Playlist struct {
	Index     int32
	Name      string
	NbTracks  int32
	IsMine    bool
	Owner     string
	IsOffline bool
}

// PlaybackSettings are session-wide streaming preferences
type PlaybackSettings struct {
	Bitrate             Bitrate
	VolumeNormalisation bool
}

// LoginRequest asks the bridge to log in; an empty password means relogin
type LoginRequest struct {
	Username         string
	Password         string
	PlaybackSettings *PlaybackSettings
}

// LoginResponse reports the outcome of a login
type LoginResponse struct {
	Success   bool
	Error     string
	ErrorCode LoginError
}

// PlaylistsUpdated lists the user's playlists after a container change
type PlaylistsUpdated struct {
	Playlist []*Playlist
}

// LoadPlaylistRequest names a playlist by type and container index
type LoadPlaylistRequest struct {
	Type              PlaylistType
	UserPlaylistIndex int32
}

// LoadPlaylistResponse echoes the request with the loaded tracks
type LoadPlaylistResponse struct {
	Request *LoadPlaylistRequest
	Track   []*Track
}

// PlaybackRequest starts streaming a track to the given local media port
type PlaybackRequest struct {
	TrackURI  string
	MediaPort int32
}

// PlaybackError reports a failed or aborted playback attempt
type PlaybackError struct {
	Error string
}

// SearchRequest runs a catalog search
type SearchRequest struct {
	Query      string
	Limit      int32
	LimitAlbum int32
}

// SearchResponse echoes the request with tracks and fully browsed albums
type SearchResponse struct {
	Request     *SearchRequest
	Result      []*Track
	TotalTracks int32
	DidYouMean  string
	Error       string
	Album       []*Album
}

// ImageRequest asks for image bytes by base64 id
type ImageRequest struct {
	ID string
}

// ImageResponse carries image bytes; Data is empty when loading failed
type ImageResponse struct {
	ID   string
	Data []byte
}

// SyncPlaylistRequest toggles offline sync for a playlist
type SyncPlaylistRequest struct {
	Request     *LoadPlaylistRequest
	OfflineSync bool
}

// SyncPlaylistProgress reports offline download percentage
type SyncPlaylistProgress struct {
	Request      *LoadPlaylistRequest
	SyncProgress int32
}

// BrowseAlbumRequest browses an album by URI
type BrowseAlbumRequest struct {
	URI string
}

// BrowseAlbumResponse carries the album's tracks
type BrowseAlbumResponse struct {
	URI   string
	Track []*Track
	Error string
}

// SeekRequest seeks the current track
type SeekRequest struct {
	OffsetNsec int64
}

// SetPlaybackSettingsRequest changes session-wide streaming preferences
type SetPlaybackSettingsRequest struct {
	Bitrate             Bitrate
	VolumeNormalisation bool
}

// BrowseToplistRequest browses a toplist
type BrowseToplistRequest struct {
	Type     ToplistType
	Region   ToplistRegion
	Username string
}

// BrowseToplistResponse echoes the request with toplist contents
type BrowseToplistResponse struct {
	Request *BrowseToplistRequest
	Track   []*Track
	Album   []*Album
	Error   string
}

// PauseRequest pauses or resumes the current track
type PauseRequest struct {
	Paused bool
}

// AddTracksToPlaylistRequest adds tracks by URI
type AddTracksToPlaylistRequest struct {
	PlaylistType  PlaylistType
	PlaylistIndex int32
	TrackURI      []string
}

// RemoveTracksFromPlaylistRequest removes tracks by position
type RemoveTracksFromPlaylistRequest struct {
	PlaylistType  PlaylistType
	PlaylistIndex int32
	TrackIndex    []int64
}

// Sender delivers outbound control messages
type Sender interface {
	Send(m *Message) error
}

// Kind names the sub-message that is set, for logging
func (m *Message) Kind() string {
	switch {
	case m.LoginRequest != nil:
		return "login_request"
	case m.LoginResponse != nil:
		return "login_response"
	case m.PlaylistsUpdated != nil:
		return "playlists_updated"
	case m.LoadPlaylistRequest != nil:
		return "load_playlist_request"
	case m.LoadPlaylistResponse != nil:
		return "load_playlist_response"
	case m.PlaybackRequest != nil:
		return "playback_request"
	case m.PlaybackError != nil:
		return "playback_error"
	case m.SearchRequest != nil:
		return "search_request"
	case m.SearchResponse != nil:
		return "search_response"
	case m.ImageRequest != nil:
		return "image_request"
	case m.ImageResponse != nil:
		return "image_response"
	case m.SyncPlaylistRequest != nil:
		return "sync_playlist_request"
	case m.SyncPlaylistProgress != nil:
		return "sync_playlist_progress"
	case m.BrowseAlbumRequest != nil:
		return "browse_album_request"
	case m.BrowseAlbumResponse != nil:
		return "browse_album_response"
	case m.SeekRequest != nil:
		return "seek_request"
	case m.SetPlaybackSettingsRequest != nil:
		return "set_playback_settings_request"
	case m.BrowseToplistRequest != nil:
		return "browse_toplist_request"
	case m.BrowseToplistResponse != nil:
		return "browse_toplist_response"
	case m.PauseRequest != nil:
		return "pause_request"
	case m.AddTracksToPlaylist != nil:
		return "add_tracks_to_playlist"
	case m.RemoveTracksFromPlaylist != nil:
		return "remove_tracks_from_playlist"
	default:
		return "empty"
	}
}
