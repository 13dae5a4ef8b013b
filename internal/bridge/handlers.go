// ABOUTME: Inbound control message handlers
// ABOUTME: Login, playlist editing, offline sync, settings, and dispatch to tracker/playback
package bridge

import (
	"go.uber.org/zap"

	"github.com/spotblob/spotblob/internal/sdk"
	"github.com/spotblob/spotblob/internal/tracker"
	"github.com/spotblob/spotblob/pkg/protocol"
)

const notLoggedIn = "Not logged in"

// HandleMessage processes one inbound message on the event loop
func (c *Controller) HandleMessage(m *protocol.Message) {
	c.log.Debug("received", zap.String("kind", m.Kind()))

	if m.LoginRequest != nil {
		c.login(m.LoginRequest)
		return
	}

	if c.session == nil {
		c.rejectWithoutSession(m)
		return
	}

	switch {
	case m.LoadPlaylistRequest != nil:
		c.tracker.LoadPlaylist(m.LoadPlaylistRequest)
	case m.PlaybackRequest != nil:
		c.playback.Load().Start(m.PlaybackRequest)
	case m.SeekRequest != nil:
		c.playback.Load().Seek(m.SeekRequest)
	case m.SearchRequest != nil:
		c.tracker.Search(m.SearchRequest)
	case m.ImageRequest != nil:
		c.tracker.LoadImage(m.ImageRequest)
	case m.SyncPlaylistRequest != nil:
		c.syncPlaylist(m.SyncPlaylistRequest)
	case m.BrowseAlbumRequest != nil:
		c.tracker.BrowseAlbum(m.BrowseAlbumRequest)
	case m.BrowseToplistRequest != nil:
		c.tracker.BrowseToplist(m.BrowseToplistRequest)
	case m.SetPlaybackSettingsRequest != nil:
		c.applySettings(m.SetPlaybackSettingsRequest.Bitrate, m.SetPlaybackSettingsRequest.VolumeNormalisation)
	case m.PauseRequest != nil:
		c.playback.Load().Pause(m.PauseRequest.Paused)
	case m.AddTracksToPlaylist != nil:
		c.addTracks(m.AddTracksToPlaylist)
	case m.RemoveTracksFromPlaylist != nil:
		c.removeTracks(m.RemoveTracksFromPlaylist)
	default:
		c.log.Warn("unhandled message", zap.String("kind", m.Kind()))
	}
}

// rejectWithoutSession answers requests that carry an error slot and
// drops the rest
func (c *Controller) rejectWithoutSession(m *protocol.Message) {
	switch {
	case m.PlaybackRequest != nil:
		c.send(&protocol.Message{PlaybackError: &protocol.PlaybackError{Error: notLoggedIn}})
	case m.SearchRequest != nil:
		c.send(&protocol.Message{SearchResponse: &protocol.SearchResponse{Request: m.SearchRequest, Error: notLoggedIn}})
	case m.BrowseAlbumRequest != nil:
		c.send(&protocol.Message{BrowseAlbumResponse: &protocol.BrowseAlbumResponse{URI: m.BrowseAlbumRequest.URI, Error: notLoggedIn}})
	case m.BrowseToplistRequest != nil:
		c.send(&protocol.Message{BrowseToplistResponse: &protocol.BrowseToplistResponse{Request: m.BrowseToplistRequest, Error: notLoggedIn}})
	default:
		c.log.Warn("dropping request before login", zap.String("kind", m.Kind()))
	}
}

func (c *Controller) sendLogin(success bool, msg string, code protocol.LoginError) {
	c.send(&protocol.Message{LoginResponse: &protocol.LoginResponse{
		Success:   success,
		Error:     msg,
		ErrorCode: code,
	}})
}

func (c *Controller) login(req *protocol.LoginRequest) {
	if c.session == nil {
		if err := c.createSession(); err != nil {
			c.log.Error("session creation failed", zap.Error(err))
			c.sendLogin(false, err.Error(), protocol.LoginErrorOther)
			return
		}
	}

	if s := req.PlaybackSettings; s != nil {
		c.applySettings(s.Bitrate, s.VolumeNormalisation)
	}

	if req.Password == "" {
		c.log.Info("logging in with stored credentials")
		c.relogin = true
		if err := c.session.Relogin(); err != nil {
			c.relogin = false
			c.sendLogin(false, err.Error(), protocol.LoginErrorReloginFailed)
		}
		return
	}

	c.log.Info("logging in", zap.String("user", req.Username))
	c.relogin = false
	c.username = req.Username
	if err := c.session.Login(req.Username, req.Password, true); err != nil {
		c.sendLogin(false, err.Error(), loginErrorCode(err))
	}
}

func loginErrorCode(err error) protocol.LoginError {
	switch sdk.Code(err) {
	case sdk.ErrBadUsernameOrPassword:
		return protocol.LoginErrorBadUsernameOrPassword
	case sdk.ErrUserBanned:
		return protocol.LoginErrorUserBanned
	case sdk.ErrUserNeedsPremium:
		return protocol.LoginErrorUserNeedsPremium
	default:
		return protocol.LoginErrorOther
	}
}

func (c *Controller) applySettings(bitrate protocol.Bitrate, normalise bool) {
	var b sdk.Bitrate
	switch bitrate {
	case protocol.Bitrate320k:
		b = sdk.Bitrate320k
	case protocol.Bitrate96k:
		b = sdk.Bitrate96k
	default:
		b = sdk.Bitrate160k
	}
	if err := c.session.SetPreferredBitrate(b); err != nil {
		c.log.Warn("failed to set bitrate", zap.Error(err))
	}
	c.session.SetVolumeNormalization(normalise)
}

func (c *Controller) syncPlaylist(req *protocol.SyncPlaylistRequest) {
	target := req.Request
	if target == nil {
		c.log.Warn("sync request without playlist")
		return
	}

	pl, err := tracker.OpenPlaylist(c.session, target.Type, int(target.UserPlaylistIndex))
	if err != nil {
		c.log.Warn("cannot sync playlist", zap.Stringer("type", target.Type), zap.Error(err))
		return
	}
	defer pl.Release()

	if err := pl.SetOfflineMode(req.OfflineSync); err != nil {
		c.log.Warn("failed to change offline mode", zap.Error(err))
		return
	}
	if req.OfflineSync {
		c.sendSyncProgress(target.Type, target.UserPlaylistIndex, 0)
	}
}

// resolveTracks turns URIs into tracks. The returned function releases
// the links backing them and must be called once the tracks are used.
func (c *Controller) resolveTracks(uris []string) ([]sdk.Track, func()) {
	var tracks []sdk.Track
	var links []*sdk.Ref[sdk.Link]

	for _, uri := range uris {
		link := c.session.LinkFromString(uri)
		if link == nil {
			c.log.Warn("skipping invalid track uri", zap.String("uri", uri))
			continue
		}
		track := link.AsTrack()
		if track == nil {
			c.log.Warn("skipping non-track uri", zap.String("uri", uri))
			link.Release()
			continue
		}
		tracks = append(tracks, track)
		links = append(links, sdk.Own(link))
	}
	return tracks, func() { sdk.ReleaseAll(links) }
}

func (c *Controller) addTracks(req *protocol.AddTracksToPlaylistRequest) {
	tracks, release := c.resolveTracks(req.TrackURI)
	defer release()
	if len(tracks) == 0 {
		return
	}

	if req.PlaylistType == protocol.PlaylistStarred {
		if err := c.session.SetTracksStarred(tracks, true); err != nil {
			c.log.Warn("failed to star tracks", zap.Error(err))
		}
		return
	}

	pl, err := tracker.OpenPlaylist(c.session, req.PlaylistType, int(req.PlaylistIndex))
	if err != nil {
		c.log.Warn("cannot add to playlist", zap.Error(err))
		return
	}
	defer pl.Release()

	if err := pl.AddTracks(tracks, pl.NumTracks()); err != nil {
		c.log.Warn("failed to add tracks", zap.Error(err))
	}
}

func (c *Controller) removeTracks(req *protocol.RemoveTracksFromPlaylistRequest) {
	pl, err := tracker.OpenPlaylist(c.session, req.PlaylistType, int(req.PlaylistIndex))
	if err != nil {
		c.log.Warn("cannot remove from playlist", zap.Error(err))
		return
	}
	defer pl.Release()

	n := pl.NumTracks()
	valid := func(i int) bool {
		if i < 0 || i >= n {
			c.log.Warn("track index out of range", zap.Int("index", i), zap.Int("tracks", n))
			return false
		}
		return true
	}

	// starred loads are presented newest first, so indices count from the end
	if req.PlaylistType == protocol.PlaylistStarred {
		var tracks []sdk.Track
		for _, idx := range req.TrackIndex {
			i := n - 1 - int(idx)
			if valid(i) {
				tracks = append(tracks, pl.Track(i))
			}
		}
		if len(tracks) == 0 {
			return
		}
		if err := c.session.SetTracksStarred(tracks, false); err != nil {
			c.log.Warn("failed to unstar tracks", zap.Error(err))
		}
		return
	}

	var indices []int
	for _, idx := range req.TrackIndex {
		if valid(int(idx)) {
			indices = append(indices, int(idx))
		}
	}
	if len(indices) == 0 {
		return
	}
	if err := pl.RemoveTracks(indices); err != nil {
		c.log.Warn("failed to remove tracks", zap.Error(err))
	}
}
