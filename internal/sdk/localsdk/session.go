// ABOUTME: Catalog-backed implementation of the streaming SDK session
// ABOUTME: Queues events for ProcessEvents and simulates network latency with timers
// Package localsdk is an sdk.Session that serves a TOML catalog of
// users, albums, tracks, and playlists from disk. Audio comes from local
// MP3/FLAC files or generated tones; cover art from files or HTTP.
package localsdk

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"

	"github.com/spotblob/spotblob/internal/artwork"
	"github.com/spotblob/spotblob/internal/sdk"
)

const (
	processInterval = time.Second
	credentialsFile = "credentials.toml"
	deviceIDFile    = "device_id"
)

// Options configures the local backend
type Options struct {
	// Catalog is the catalog file; empty serves an empty catalog
	Catalog string
	// LoadDelay is how long logins, metadata, searches, and browses take
	LoadDelay time.Duration
	// ChunkDuration is the audio handed to each MusicDelivery call
	ChunkDuration time.Duration
	// Unpaced delivers audio as fast as it is consumed
	Unpaced bool
	// Watch reloads the catalog when its file changes
	Watch   bool
	Artwork *artwork.Fetcher
	Logger  *zap.Logger
}

// Session serves one user's view of the catalog. Apart from post and
// the player goroutine, all state is owned by the goroutine calling
// ProcessEvents.
type Session struct {
	cfg      sdk.Config
	cb       sdk.Callbacks
	opts     Options
	log      *zap.Logger
	deviceID string

	catalog        *Catalog
	tracks         map[string]*track
	albums         map[string]*album
	sources        map[sdk.ImageID]imageSource
	images         map[sdk.ImageID]*image
	container      *container
	inbox          *playlist
	starred        *playlist
	user           string
	loggedIn       bool
	metadataLoaded bool
	bitrate        sdk.Bitrate
	player         *player
	normalize      atomic.Bool

	mu     sync.Mutex
	queue  []func()
	closed bool

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	watcher *fsnotify.Watcher
}

var _ sdk.Session = (*Session)(nil)

// NewFactory adapts New to the bridge's session constructor
func NewFactory(opts Options) sdk.NewSessionFunc {
	return func(cfg sdk.Config) (sdk.Session, error) {
		s, err := New(cfg, opts)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// New creates a session over opts.Catalog
func New(cfg sdk.Config, opts Options) (*Session, error) {
	if cfg.Callbacks == nil {
		return nil, sdk.ErrMissingCallback
	}
	if cfg.UserAgent == "" {
		return nil, sdk.ErrBadUserAgent
	}
	for _, dir := range []string{cfg.CacheLocation, cfg.SettingsLocation} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: %v", sdk.ErrNoCache, err)
		}
	}

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if opts.ChunkDuration <= 0 {
		opts.ChunkDuration = 100 * time.Millisecond
	}

	catalog := &Catalog{}
	if opts.Catalog != "" {
		c, err := LoadCatalog(opts.Catalog)
		switch {
		case errors.Is(err, os.ErrNotExist):
			log.Warn("catalog not found, serving an empty catalog", zap.String("path", opts.Catalog))
			catalog.Dir = filepath.Dir(opts.Catalog)
		case err != nil:
			return nil, err
		default:
			catalog = c
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		cfg:       cfg,
		cb:        cfg.Callbacks,
		opts:      opts,
		log:       log.Named("localsdk"),
		tracks:    make(map[string]*track),
		albums:    make(map[string]*album),
		images:    make(map[sdk.ImageID]*image),
		container: &container{},
		ctx:       ctx,
		cancel:    cancel,
	}
	s.inbox = &playlist{session: s, name: "Inbox"}
	s.starred = &playlist{session: s, name: "Starred"}

	s.deviceID = cfg.DeviceID
	if s.deviceID == "" {
		s.deviceID = s.loadDeviceID()
	}

	s.applyCatalog(catalog)

	if opts.Watch && opts.Catalog != "" {
		if err := s.watch(opts.Catalog); err != nil {
			s.log.Warn("catalog watch disabled", zap.Error(err))
		}
	}

	s.log.Info("session created",
		zap.String("user_agent", cfg.UserAgent),
		zap.String("device_id", s.deviceID),
		zap.Int("tracks", len(catalog.Tracks)),
		zap.Int("playlists", len(catalog.Playlists)))
	return s, nil
}

// DeviceID is the identifier reported to the service
func (s *Session) DeviceID() string {
	return s.deviceID
}

// loadDeviceID reads the persisted device id, creating one if needed
func (s *Session) loadDeviceID() string {
	if s.cfg.SettingsLocation == "" {
		return uuid.NewString()
	}
	path := filepath.Join(s.cfg.SettingsLocation, deviceIDFile)
	if data, err := os.ReadFile(path); err == nil {
		if id, err := uuid.Parse(strings.TrimSpace(string(data))); err == nil {
			return id.String()
		}
	}
	id := uuid.NewString()
	if err := os.WriteFile(path, []byte(id+"\n"), 0o644); err != nil {
		s.log.Warn("failed to store device id", zap.Error(err))
	}
	return id
}

// applyCatalog swaps in a catalog. Track and album objects survive by
// URI so handles held by callers stay valid.
func (s *Session) applyCatalog(c *Catalog) {
	albums := make(map[string]*album, len(c.Albums))
	for _, e := range c.Albums {
		a := s.albums[e.URI]
		if a != nil {
			a.update(e)
		} else {
			a = newAlbum(e)
			a.loaded = s.metadataLoaded
		}
		albums[e.URI] = a
	}

	tracks := make(map[string]*track, len(c.Tracks))
	var newlyStarred []*track
	for _, e := range c.Tracks {
		t := s.tracks[e.URI]
		if t != nil {
			t.update(e, albums)
		} else {
			t = newTrack(e, albums)
			t.loaded = s.metadataLoaded
			if t.starred {
				newlyStarred = append(newlyStarred, t)
			}
		}
		tracks[e.URI] = t
	}

	s.catalog = c
	s.albums = albums
	s.tracks = tracks
	s.sources = c.imageSources()

	s.starred.tracks = slices.DeleteFunc(s.starred.tracks, func(t *track) bool {
		return tracks[t.entry.URI] != t
	})
	s.starred.tracks = append(s.starred.tracks, newlyStarred...)
	s.inbox.tracks = s.resolve(c.Inbox)

	// playlists keep their identity and offline state by name
	previous := make(map[string][]*playlist)
	for _, p := range s.container.playlists {
		if p.kind == sdk.KindPlaylist {
			previous[p.name] = append(previous[p.name], p)
		}
	}
	playlists := make([]*playlist, 0, len(c.Playlists))
	for _, e := range c.Playlists {
		switch e.Folder {
		case "start":
			playlists = append(playlists, &playlist{session: s, name: e.Name, kind: sdk.KindStartFolder})
			continue
		case "end":
			playlists = append(playlists, &playlist{session: s, kind: sdk.KindEndFolder})
			continue
		}
		var p *playlist
		if same := previous[e.Name]; len(same) > 0 {
			p, previous[e.Name] = same[0], same[1:]
		} else {
			p = &playlist{session: s, name: e.Name, loaded: s.metadataLoaded}
		}
		p.owner = e.Owner
		p.tracks = s.resolve(e.Tracks)
		playlists = append(playlists, p)
	}
	s.container.playlists = playlists
}

// resolve maps URIs to tracks, standing in for unknown ones
func (s *Session) resolve(uris []string) []*track {
	out := make([]*track, 0, len(uris))
	for _, uri := range uris {
		t := s.tracks[uri]
		if t == nil {
			t = missingTrack(uri)
		}
		out = append(out, t)
	}
	return out
}

// post queues fn for the next ProcessEvents and wakes the caller
func (s *Session) post(fn func()) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, fn)
	s.mu.Unlock()
	s.cb.NotifyMainThread()
}

// after posts fn once d has elapsed. It must be called from the
// ProcessEvents goroutine.
func (s *Session) after(d time.Duration, fn func()) {
	if s.ctx.Err() != nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if !sleep(s.ctx, d) {
			return
		}
		s.post(fn)
	}()
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *Session) ProcessEvents() time.Duration {
	s.mu.Lock()
	queue := s.queue
	s.queue = nil
	s.mu.Unlock()

	for _, fn := range queue {
		fn()
	}
	return processInterval
}

func (s *Session) Login(username, password string, remember bool) error {
	if username == "" {
		return sdk.ErrInvalidIndata
	}
	s.after(s.opts.LoadDelay, func() {
		s.finishLogin(username, password, remember)
	})
	return nil
}

func (s *Session) finishLogin(username, password string, remember bool) {
	u, ok := s.catalog.user(username)
	switch {
	case !ok || u.Password != password:
		s.cb.LoggedIn(sdk.ErrBadUsernameOrPassword)
		return
	case u.Banned:
		s.cb.LoggedIn(sdk.ErrUserBanned)
		return
	case u.Free:
		s.cb.LoggedIn(sdk.ErrUserNeedsPremium)
		return
	}

	s.user = username
	s.loggedIn = true
	if remember {
		if err := s.storeCredentials(username, password); err != nil {
			s.log.Warn("failed to store credentials", zap.Error(err))
		}
	}
	s.log.Info("logged in", zap.String("user", username))
	s.cb.LoggedIn(nil)

	if !s.metadataLoaded {
		s.after(s.opts.LoadDelay, s.loadMetadata)
	}
}

// loadMetadata marks everything loaded, as the service does once the
// user's container has synced
func (s *Session) loadMetadata() {
	s.metadataLoaded = true
	for _, a := range s.albums {
		a.loaded = true
	}
	for _, t := range s.tracks {
		t.loaded = true
	}
	s.container.loaded = true
	for _, p := range s.container.playlists {
		p.loaded = true
	}
	s.inbox.loaded = true
	s.starred.loaded = true

	s.cb.ContainerLoaded()
	for _, p := range s.container.playlists {
		if p.kind == sdk.KindPlaylist {
			s.cb.PlaylistStateChanged(p)
		}
	}
	s.cb.PlaylistStateChanged(s.inbox)
	s.cb.PlaylistStateChanged(s.starred)
	s.cb.MetadataUpdated()
}

type credentials struct {
	Username string `toml:"username"`
	Password string `toml:"password"`
}

func (s *Session) credentialsPath() string {
	if s.cfg.SettingsLocation == "" {
		return ""
	}
	return filepath.Join(s.cfg.SettingsLocation, credentialsFile)
}

func (s *Session) storeCredentials(username, password string) error {
	path := s.credentialsPath()
	if path == "" {
		return nil
	}
	data, err := toml.Marshal(credentials{Username: username, Password: password})
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func (s *Session) Relogin() error {
	path := s.credentialsPath()
	if path == "" {
		return sdk.ErrNoCredentials
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return sdk.ErrNoCredentials
	}
	var creds credentials
	if err := toml.Unmarshal(data, &creds); err != nil || creds.Username == "" {
		s.log.Warn("ignoring unreadable credentials", zap.Error(err))
		return sdk.ErrNoCredentials
	}
	return s.Login(creds.Username, creds.Password, false)
}

func (s *Session) Logout() error {
	if !s.loggedIn {
		return nil
	}
	s.log.Info("logged out", zap.String("user", s.user))
	s.PlayerUnload()
	s.loggedIn = false
	s.user = ""
	s.post(s.cb.LoggedOut)
	return nil
}

func (s *Session) UserName() string { return s.user }

func (s *Session) PlaylistContainer() sdk.PlaylistContainer {
	if !s.loggedIn {
		return nil
	}
	return s.container
}

func (s *Session) InboxCreate() sdk.Playlist {
	s.inbox.AddRef()
	return s.inbox
}

func (s *Session) StarredCreate() sdk.Playlist {
	s.starred.AddRef()
	return s.starred
}

func (s *Session) LinkFromString(uri string) sdk.Link {
	id, kind := parseURI(uri)
	switch kind {
	case sdk.LinkInvalid:
		return nil
	case sdk.LinkTrack:
		t := s.tracks[uri]
		if t == nil {
			t = missingTrack(uri)
		}
		return newLink(uri, kind, t, nil)
	case sdk.LinkAlbum:
		a := s.albums[uri]
		if a == nil {
			s.log.Debug("unknown album", zap.String("id", id))
		}
		return newLink(uri, kind, nil, a)
	}
	return newLink(uri, kind, nil, nil)
}

// parseURI classifies a spotify: URI and returns its final id
func parseURI(uri string) (string, sdk.LinkType) {
	parts := strings.Split(uri, ":")
	if len(parts) < 3 || parts[0] != "spotify" {
		return "", sdk.LinkInvalid
	}
	id := parts[len(parts)-1]
	if id == "" {
		return "", sdk.LinkInvalid
	}
	switch {
	case len(parts) == 3 && parts[1] == "track":
		return id, sdk.LinkTrack
	case len(parts) == 3 && parts[1] == "album":
		return id, sdk.LinkAlbum
	case len(parts) == 3 && parts[1] == "artist":
		return id, sdk.LinkArtist
	case len(parts) == 3 && parts[1] == "search":
		return id, sdk.LinkSearch
	case len(parts) == 3 && parts[1] == "image":
		return id, sdk.LinkImage
	case len(parts) == 5 && parts[1] == "user" && parts[3] == "playlist":
		return id, sdk.LinkPlaylist
	}
	return "", sdk.LinkInvalid
}

func (s *Session) SearchCreate(params sdk.SearchParams) sdk.Search {
	srch := &search{refs: refs{n: 1}, params: params}
	s.after(s.opts.LoadDelay, func() {
		s.runSearch(srch)
		if srch.live() {
			s.cb.SearchComplete(srch)
		}
	})
	return srch
}

func (s *Session) AlbumBrowseCreate(a sdk.Album) sdk.AlbumBrowse {
	la, ok := a.(*album)
	if !ok || la == nil {
		return nil
	}
	b := &albumBrowse{refs: refs{n: 1}, album: la}
	s.after(s.opts.LoadDelay, func() {
		s.runAlbumBrowse(b)
		if b.live() {
			s.cb.AlbumBrowseComplete(b)
		}
	})
	return b
}

func (s *Session) ToplistBrowseCreate(kind sdk.ToplistType, region sdk.ToplistRegion, username string) sdk.ToplistBrowse {
	b := &toplistBrowse{refs: refs{n: 1}, kind: kind, region: region, username: username}
	s.after(s.opts.LoadDelay, func() {
		s.runToplist(b)
		if b.live() {
			s.cb.ToplistBrowseComplete(b)
		}
	})
	return b
}

func (s *Session) ImageCreate(id sdk.ImageID) sdk.Image {
	if img := s.images[id]; img != nil {
		img.AddRef()
		return img
	}
	img := &image{refs: refs{n: 1}, id: id, loading: true}
	s.images[id] = img

	src, known := s.sources[id]
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if !sleep(s.ctx, s.opts.LoadDelay) {
			return
		}
		data, err := s.readImage(src, known)
		s.post(func() {
			img.loading = false
			img.loaded = true
			img.data, img.err = data, err
			if img.callbacks > 0 {
				s.cb.ImageLoaded(img)
			}
		})
	}()
	return img
}

// readImage runs off the ProcessEvents goroutine
func (s *Session) readImage(src imageSource, known bool) ([]byte, error) {
	switch {
	case !known:
		return nil, sdk.ErrOtherPermanent
	case src.file != "":
		data, err := os.ReadFile(src.file)
		if err != nil {
			s.log.Warn("image file unreadable", zap.String("path", src.file), zap.Error(err))
			return nil, sdk.ErrOtherPermanent
		}
		return data, nil
	case s.opts.Artwork == nil:
		return nil, sdk.ErrNetworkDisabled
	}
	data, err := s.opts.Artwork.Fetch(s.ctx, src.url)
	if err != nil {
		s.log.Warn("image download failed", zap.String("url", src.url), zap.Error(err))
		return nil, sdk.ErrUnableToContactServer
	}
	return data, nil
}

func (s *Session) SetPreferredBitrate(b sdk.Bitrate) error {
	switch b {
	case sdk.Bitrate96k, sdk.Bitrate160k, sdk.Bitrate320k:
		s.bitrate = b
		return nil
	}
	return sdk.ErrInvalidIndata
}

func (s *Session) SetVolumeNormalization(on bool) {
	s.normalize.Store(on)
}

func (s *Session) SetTracksStarred(tracks []sdk.Track, starred bool) error {
	changed := make([]*track, 0, len(tracks))
	for _, t := range tracks {
		lt, ok := t.(*track)
		if !ok {
			return sdk.ErrInvalidIndata
		}
		if lt.starred != starred {
			changed = append(changed, lt)
		}
	}
	if len(changed) == 0 {
		return nil
	}

	for _, t := range changed {
		t.starred = starred
		if starred {
			s.starred.tracks = append(s.starred.tracks, t)
		} else {
			s.starred.tracks = slices.DeleteFunc(s.starred.tracks, func(x *track) bool { return x == t })
		}
	}
	s.playlistChanged(s.starred)
	s.post(s.cb.MetadataUpdated)
	return nil
}

// playlistChanged reports an edit; container playlists also change the
// container's track counts
func (s *Session) playlistChanged(p *playlist) {
	s.post(func() { s.cb.PlaylistStateChanged(p) })
	if slices.Contains(s.container.playlists, p) {
		s.post(s.cb.ContainerChanged)
	}
}

// Release stops the player and every background goroutine. Further
// events are dropped.
func (s *Session) Release() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.queue = nil
	s.mu.Unlock()

	s.PlayerUnload()
	s.cancel()
	var err error
	if s.watcher != nil {
		err = s.watcher.Close()
	}
	s.wg.Wait()
	s.log.Debug("session released")
	return err
}
