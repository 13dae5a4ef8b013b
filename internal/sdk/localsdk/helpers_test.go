// ABOUTME: Shared fixtures for local session tests
// ABOUTME: A sample catalog, a recording callback table, and an event pump
package localsdk

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/spotblob/spotblob/internal/sdk"
)

const coverHex = "0123456789abcdef0123456789abcdef01234567"

const sampleCatalog = `
inbox = ["spotify:track:t2"]

[[users]]
name = "alice"
password = "secret"

[[users]]
name = "mallory"
password = "x"
banned = true

[[users]]
name = "bob"
password = "pw"
free = true

[[albums]]
uri = "spotify:album:a1"
name = "Blue Train"
artist = "John Coltrane"
year = 1957
cover = "0123456789abcdef0123456789abcdef01234567"

[[tracks]]
uri = "spotify:track:t1"
title = "Moment's Notice"
artists = ["John Coltrane"]
album = "spotify:album:a1"
duration_ms = 200
popularity = 40
disc = 1
index = 2
starred = true

[[tracks]]
uri = "spotify:track:t2"
title = "Blue Train"
artists = ["John Coltrane"]
album = "spotify:album:a1"
duration_ms = 200
popularity = 90
disc = 1
index = 1
tone_hz = 220

[[tracks]]
uri = "spotify:track:t3"
title = "Locomotion"
artists = ["John Coltrane", "Lee Morgan"]
album = "spotify:album:a1"
duration_ms = 200
popularity = 60
disc = 1
index = 3
unplayable = true

[[playlists]]
name = "Jazz"
folder = "start"

[[playlists]]
name = "Morning"
tracks = ["spotify:track:t1", "spotify:track:t2"]

[[playlists]]
folder = "end"

[[playlists]]
name = "Shared"
owner = "carol"
tracks = ["spotify:track:t3"]

[[images]]
id = "0123456789abcdef0123456789abcdef01234567"
file = "cover.jpg"
`

var coverBytes = []byte{0xff, 0xd8, 0xff, 0xe0, 'j', 'p', 'g'}

// recorder is a Callbacks table that remembers what happened
type recorder struct {
	mu        sync.Mutex
	events    []string
	loginErrs []error
	streamErr error
	searches  []sdk.Search
	browses   []sdk.AlbumBrowse
	toplists  []sdk.ToplistBrowse
	images    []sdk.Image
	changed   []sdk.Playlist
	delivered int
	// consume decides how many frames MusicDelivery accepts
	consume func(numFrames int) int
	inspect func(pcm []byte)

	notified atomic.Int32
}

func (r *recorder) record(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) count(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e == event {
			n++
		}
	}
	return n
}

func (r *recorder) has(event string) func() bool {
	return func() bool { return r.count(event) > 0 }
}

func (r *recorder) LoggedIn(err error) {
	r.mu.Lock()
	r.loginErrs = append(r.loginErrs, err)
	r.mu.Unlock()
	r.record("LoggedIn")
}

func (r *recorder) LoggedOut()            { r.record("LoggedOut") }
func (r *recorder) NotifyMainThread()     { r.notified.Add(1) }
func (r *recorder) LogMessage(string)     {}
func (r *recorder) MetadataUpdated()      { r.record("MetadataUpdated") }
func (r *recorder) EndOfTrack()           { r.record("EndOfTrack") }
func (r *recorder) ConnectionError(error) { r.record("ConnectionError") }
func (r *recorder) MessageToUser(string)  {}
func (r *recorder) OfflineStatusUpdated() { r.record("OfflineStatusUpdated") }
func (r *recorder) ContainerLoaded()      { r.record("ContainerLoaded") }
func (r *recorder) ContainerChanged()     { r.record("ContainerChanged") }

func (r *recorder) StreamingError(err error) {
	r.mu.Lock()
	r.streamErr = err
	r.mu.Unlock()
	r.record("StreamingError")
}

func (r *recorder) MusicDelivery(format sdk.AudioFormat, frames []byte, numFrames int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inspect != nil {
		r.inspect(frames)
	}
	n := numFrames
	if r.consume != nil {
		n = r.consume(numFrames)
	}
	r.delivered += n * format.FrameSize()
	return n
}

func (r *recorder) PlaylistStateChanged(p sdk.Playlist) {
	r.mu.Lock()
	r.changed = append(r.changed, p)
	r.mu.Unlock()
	r.record("PlaylistStateChanged")
}

func (r *recorder) SearchComplete(s sdk.Search) {
	r.mu.Lock()
	r.searches = append(r.searches, s)
	r.mu.Unlock()
	r.record("SearchComplete")
}

func (r *recorder) AlbumBrowseComplete(b sdk.AlbumBrowse) {
	r.mu.Lock()
	r.browses = append(r.browses, b)
	r.mu.Unlock()
	r.record("AlbumBrowseComplete")
}

func (r *recorder) ToplistBrowseComplete(b sdk.ToplistBrowse) {
	r.mu.Lock()
	r.toplists = append(r.toplists, b)
	r.mu.Unlock()
	r.record("ToplistBrowseComplete")
}

func (r *recorder) ImageLoaded(img sdk.Image) {
	r.mu.Lock()
	r.images = append(r.images, img)
	r.mu.Unlock()
	r.record("ImageLoaded")
}

func (r *recorder) bytesDelivered() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.delivered
}

func (r *recorder) lastLoginErr() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.loginErrs) == 0 {
		return nil
	}
	return r.loginErrs[len(r.loginErrs)-1]
}

type fixture struct {
	dir      string
	settings string
	catalog  string
	rec      *recorder
	session  *Session
}

// newFixture writes the sample catalog and opens an unpaced session on it
func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		dir:      dir,
		settings: filepath.Join(dir, "settings"),
		catalog:  filepath.Join(dir, "catalog.toml"),
		rec:      &recorder{},
	}
	if err := os.WriteFile(f.catalog, []byte(sampleCatalog), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "cover.jpg"), coverBytes, 0o644); err != nil {
		t.Fatal(err)
	}

	opts.Catalog = f.catalog
	opts.Unpaced = true
	if opts.Logger == nil {
		opts.Logger = zaptest.NewLogger(t)
	}
	f.session = f.open(t, opts)
	return f
}

func (f *fixture) open(t *testing.T, opts Options) *Session {
	t.Helper()
	s, err := New(sdk.Config{
		CacheLocation:    filepath.Join(f.dir, "cache"),
		SettingsLocation: f.settings,
		UserAgent:        "spotifyblob-test",
		Callbacks:        f.rec,
	}, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Release() })
	return s
}

// pump runs ProcessEvents until cond holds
func pump(t *testing.T, s *Session, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for session events")
		}
		s.ProcessEvents()
		time.Sleep(time.Millisecond)
	}
}

// settle runs ProcessEvents for d regardless of what arrives
func settle(s *Session, d time.Duration) {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		s.ProcessEvents()
		time.Sleep(time.Millisecond)
	}
}

// login signs alice in and waits for metadata
func (f *fixture) login(t *testing.T) {
	t.Helper()
	if err := f.session.Login("alice", "secret", true); err != nil {
		t.Fatalf("Login: %v", err)
	}
	pump(t, f.session, f.rec.has("ContainerLoaded"))
	if err := f.rec.lastLoginErr(); err != nil {
		t.Fatalf("login failed: %v", err)
	}
}

func (f *fixture) track(t *testing.T, uri string) sdk.Track {
	t.Helper()
	link := f.session.LinkFromString(uri)
	if link == nil {
		t.Fatalf("no link for %s", uri)
	}
	defer link.Release()
	tr := link.AsTrack()
	if tr == nil {
		t.Fatalf("%s is not a track", uri)
	}
	return tr
}

func trackNames(n int, at func(int) sdk.Track) []string {
	names := make([]string, 0, n)
	for i := range n {
		names = append(names, at(i).Name())
	}
	return names
}
