// ABOUTME: SDK callback table implemented by the controller
// ABOUTME: Session events become responses or tracker/playback transitions
package bridge

import (
	"strings"

	"go.uber.org/zap"

	"github.com/spotblob/spotblob/internal/sdk"
	"github.com/spotblob/spotblob/pkg/protocol"
)

var _ sdk.Callbacks = (*Controller)(nil)

func (c *Controller) LoggedIn(err error) {
	if err != nil {
		code := loginErrorCode(err)
		if c.relogin {
			code = protocol.LoginErrorReloginFailed
		}
		c.relogin = false
		c.log.Warn("login failed", zap.Error(err))
		c.sendLogin(false, err.Error(), code)
		return
	}

	c.relogin = false
	if c.session != nil {
		if name := c.session.UserName(); name != "" {
			c.username = name
		}
	}
	c.log.Info("logged in", zap.String("user", c.username))
	c.sendLogin(true, "", protocol.LoginErrorOther)
	c.sendPlaylists()
}

func (c *Controller) LoggedOut() {
	c.log.Info("logged out")
}

// NotifyMainThread schedules one ProcessEvents on the loop; repeated
// notifications before it runs coalesce
func (c *Controller) NotifyMainThread() {
	if !c.notified.CompareAndSwap(false, true) {
		return
	}
	c.loop.Schedule(c.processEvents)
}

func (c *Controller) LogMessage(msg string) {
	c.log.Debug("sdk", zap.String("message", strings.TrimSpace(msg)))
}

func (c *Controller) MessageToUser(msg string) {
	c.log.Info("message to user", zap.String("message", msg))
}

func (c *Controller) ConnectionError(err error) {
	c.log.Warn("connection error", zap.Error(err))
}

func (c *Controller) MetadataUpdated() {
	if c.tracker != nil {
		c.tracker.MetadataUpdated()
	}
	if m := c.playback.Load(); m != nil {
		m.MetadataUpdated()
	}
}

func (c *Controller) MusicDelivery(format sdk.AudioFormat, frames []byte, numFrames int) int {
	m := c.playback.Load()
	if m == nil {
		return 0
	}
	return m.MusicDelivery(format, frames, numFrames)
}

func (c *Controller) EndOfTrack() {
	if m := c.playback.Load(); m != nil {
		m.EndOfTrack()
	}
}

func (c *Controller) StreamingError(err error) {
	if m := c.playback.Load(); m != nil {
		m.StreamingError(err)
	}
}

func (c *Controller) ContainerLoaded() {
	c.sendPlaylists()
}

func (c *Controller) ContainerChanged() {
	c.sendPlaylists()
}

func (c *Controller) PlaylistStateChanged(sdk.Playlist) {
	if c.tracker != nil {
		c.tracker.PlaylistStateChanged()
	}
}

func (c *Controller) SearchComplete(s sdk.Search) {
	if c.tracker != nil {
		c.tracker.SearchComplete(s)
	}
}

func (c *Controller) AlbumBrowseComplete(b sdk.AlbumBrowse) {
	if c.tracker != nil {
		c.tracker.AlbumBrowseComplete(b)
	}
}

func (c *Controller) ToplistBrowseComplete(b sdk.ToplistBrowse) {
	if c.tracker != nil {
		c.tracker.ToplistBrowseComplete(b)
	}
}

func (c *Controller) ImageLoaded(img sdk.Image) {
	if c.tracker != nil {
		c.tracker.ImageLoaded(img)
	}
}

// OfflineStatusUpdated reports sync progress for every list being
// synced: user playlists, then inbox and starred
func (c *Controller) OfflineStatusUpdated() {
	if c.session == nil {
		return
	}

	if container := c.session.PlaylistContainer(); container != nil && container.IsLoaded() {
		for i := 0; i < container.NumPlaylists(); i++ {
			if container.Kind(i) != sdk.KindPlaylist {
				continue
			}
			if pl := container.Playlist(i); pl != nil {
				c.reportOffline(protocol.PlaylistUser, int32(i), pl)
			}
		}
	}

	inbox := c.session.InboxCreate()
	if inbox != nil {
		c.reportOffline(protocol.PlaylistInbox, 0, inbox)
		inbox.Release()
	}

	starred := c.session.StarredCreate()
	if starred != nil {
		c.reportOffline(protocol.PlaylistStarred, 0, starred)
		starred.Release()
	}
}

func (c *Controller) reportOffline(kind protocol.PlaylistType, index int32, pl sdk.Playlist) {
	var progress int32
	switch pl.OfflineStatus() {
	case sdk.OfflineYes:
		progress = 100
	case sdk.OfflineDownloading:
		progress = int32(pl.OfflineDownloadCompleted())
	case sdk.OfflineWaiting:
		progress = 0
	default:
		return
	}
	c.sendSyncProgress(kind, index, progress)
}

func (c *Controller) sendSyncProgress(kind protocol.PlaylistType, index, progress int32) {
	c.send(&protocol.Message{SyncPlaylistProgress: &protocol.SyncPlaylistProgress{
		Request:      &protocol.LoadPlaylistRequest{Type: kind, UserPlaylistIndex: index},
		SyncProgress: progress,
	}})
}

// sendPlaylists lists the user's playlists, skipping folder markers
func (c *Controller) sendPlaylists() {
	if c.session == nil {
		return
	}
	container := c.session.PlaylistContainer()
	if container == nil || !container.IsLoaded() {
		return
	}

	update := &protocol.PlaylistsUpdated{}
	for i := 0; i < container.NumPlaylists(); i++ {
		if container.Kind(i) != sdk.KindPlaylist {
			continue
		}
		pl := container.Playlist(i)
		if pl == nil {
			continue
		}
		owner := pl.Owner()
		update.Playlist = append(update.Playlist, &protocol.Playlist{
			Index:     int32(i),
			Name:      pl.Name(),
			NbTracks:  int32(pl.NumTracks()),
			IsMine:    c.username != "" && owner == c.username,
			Owner:     owner,
			IsOffline: pl.OfflineStatus() != sdk.OfflineNo,
		})
	}
	c.send(&protocol.Message{PlaylistsUpdated: update})
}
