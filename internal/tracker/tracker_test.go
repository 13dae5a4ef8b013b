// ABOUTME: Tests for the session request tracker
// ABOUTME: Search fan-out, playlist completeness, image refcounts, exactly-once release
package tracker

import (
	"encoding/base64"
	"reflect"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/spotblob/spotblob/internal/sdk"
	"github.com/spotblob/spotblob/internal/sdk/sdktest"
	"github.com/spotblob/spotblob/pkg/protocol"
)

func newTracker(t *testing.T) (*Tracker, *sdktest.Session, *sdktest.Sender) {
	t.Helper()
	session := sdktest.NewSession()
	out := &sdktest.Sender{}
	return New(session, out, zaptest.NewLogger(t)), session, out
}

func titles(tracks []*protocol.Track) []string {
	out := make([]string, 0, len(tracks))
	for _, tr := range tracks {
		out = append(out, tr.Title)
	}
	return out
}

func assertBalanced(t *testing.T, what string, h *sdktest.Handle) {
	t.Helper()
	if h.Refs != 0 {
		t.Errorf("%s: %d references outstanding (acquired %d, addrefs %d, releases %d)",
			what, h.Refs, h.Acquired, h.AddRefs, h.Releases)
	}
}

func TestSearchWaitsForEveryAlbum(t *testing.T) {
	tr, session, out := newTracker(t)

	albumA := session.AddAlbum("spotify:album:a", "Album A", "Artist")
	albumB := session.AddAlbum("spotify:album:b", "Album B", "Artist")
	session.BrowseTracks[albumA] = []*sdktest.Track{{Title: "a1", Loaded: true}, {Title: "a2", Loaded: true}}
	session.BrowseTracks[albumB] = []*sdktest.Track{{Title: "b1", Loaded: true}}
	session.NextSearch = &sdktest.Search{
		Loaded: true,
		Total:  1,
		Tracks: []*sdktest.Track{{Title: "foo fighters", Loaded: true}},
		Albums: []*sdktest.Album{albumA, albumB},
	}

	req := &protocol.SearchRequest{Query: "foo", Limit: 10}
	tr.Search(req)

	if len(session.Searches) != 1 {
		t.Fatalf("expected 1 search dispatched, got %d", len(session.Searches))
	}
	search := session.Searches[0]
	if search.Params.Query != "foo" || search.Params.TrackCount != 10 {
		t.Errorf("search params = %+v", search.Params)
	}

	tr.SearchComplete(search)
	if len(session.AlbumBrowses) != 2 {
		t.Fatalf("expected 2 album browses, got %d", len(session.AlbumBrowses))
	}
	if len(out.Messages()) != 0 {
		t.Fatal("response sent before album browses resolved")
	}

	// resolve out of order
	tr.AlbumBrowseComplete(session.AlbumBrowses[1])
	if len(out.Messages()) != 0 {
		t.Fatal("response sent after only one album browse")
	}

	tr.AlbumBrowseComplete(session.AlbumBrowses[0])
	msgs := out.Messages()
	if len(msgs) != 1 || msgs[0].SearchResponse == nil {
		t.Fatalf("expected exactly one SearchResponse, got %d messages", len(msgs))
	}

	resp := msgs[0].SearchResponse
	if resp.Request != req {
		t.Error("response does not carry the original request")
	}
	if !reflect.DeepEqual(resp.Request, &protocol.SearchRequest{Query: "foo", Limit: 10}) {
		t.Errorf("request modified: %+v", resp.Request)
	}
	if got := titles(resp.Result); !reflect.DeepEqual(got, []string{"foo fighters"}) {
		t.Errorf("result titles = %v", got)
	}
	if len(resp.Album) != 2 {
		t.Fatalf("expected 2 albums, got %d", len(resp.Album))
	}
	if resp.Album[0].Metadata.Album != "Album A" || resp.Album[1].Metadata.Album != "Album B" {
		t.Errorf("album order = %q, %q", resp.Album[0].Metadata.Album, resp.Album[1].Metadata.Album)
	}
	if got := titles(resp.Album[0].Track); !reflect.DeepEqual(got, []string{"a1", "a2"}) {
		t.Errorf("album A tracks = %v", got)
	}
	if got := titles(resp.Album[1].Track); !reflect.DeepEqual(got, []string{"b1"}) {
		t.Errorf("album B tracks = %v", got)
	}

	assertBalanced(t, "search", &search.Handle)
	if search.Releases != 1 {
		t.Errorf("search released %d times", search.Releases)
	}
	for i, b := range session.AlbumBrowses {
		if b.Releases != 1 {
			t.Errorf("album browse %d released %d times", i, b.Releases)
		}
	}

	// late duplicate callbacks are dropped
	tr.AlbumBrowseComplete(session.AlbumBrowses[0])
	tr.SearchComplete(search)
	if len(out.Messages()) != 1 || search.Releases != 1 {
		t.Error("duplicate completion produced output or extra release")
	}
	if tr.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", tr.Pending())
	}
}

func TestSearchError(t *testing.T) {
	tr, session, out := newTracker(t)
	session.NextSearch = &sdktest.Search{Loaded: true, Fail: sdk.ErrUnableToContactServer}

	req := &protocol.SearchRequest{Query: "bar"}
	tr.Search(req)
	tr.SearchComplete(session.Searches[0])

	msgs := out.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	resp := msgs[0].SearchResponse
	if resp.Error != "Unable to contact server" || resp.Request != req {
		t.Errorf("unexpected response %+v", resp)
	}
	if len(session.AlbumBrowses) != 0 {
		t.Error("album browses dispatched for failed search")
	}
	assertBalanced(t, "search", &session.Searches[0].Handle)
}

func TestSearchNullHandle(t *testing.T) {
	tr, session, out := newTracker(t)
	session.FailSearch = true

	tr.Search(&protocol.SearchRequest{Query: "x"})

	msgs := out.Messages()
	if len(msgs) != 1 || msgs[0].SearchResponse.Error == "" {
		t.Fatalf("expected one error response, got %+v", msgs)
	}
	if tr.Pending() != 0 {
		t.Errorf("null handle left %d pending operations", tr.Pending())
	}
}

func TestSearchWithoutAlbumsRespondsImmediately(t *testing.T) {
	tr, session, out := newTracker(t)

	tr.Search(&protocol.SearchRequest{Query: "nothing"})
	tr.SearchComplete(session.Searches[0])

	if len(out.Messages()) != 1 {
		t.Fatalf("expected immediate response, got %d messages", len(out.Messages()))
	}
	assertBalanced(t, "search", &session.Searches[0].Handle)
}

func TestUnknownHandleIsDropped(t *testing.T) {
	tr, _, out := newTracker(t)

	stray := &sdktest.Search{Loaded: true}
	tr.SearchComplete(stray)
	tr.AlbumBrowseComplete(&sdktest.AlbumBrowse{})
	tr.ToplistBrowseComplete(&sdktest.ToplistBrowse{})
	tr.ImageLoaded(&sdktest.Image{Loaded: true})

	if len(out.Messages()) != 0 {
		t.Error("unknown handle produced a response")
	}
	if stray.Releases != 0 {
		t.Error("unknown handle was released")
	}
}

func TestPlaylistWaitsForEveryTrack(t *testing.T) {
	tr, session, out := newTracker(t)

	tracks := []*sdktest.Track{
		{Title: "one", Loaded: true},
		{Title: "two", Loaded: true},
		{Title: "three", Loaded: false},
	}
	pl := &sdktest.Playlist{Title: "Mix", Loaded: true, Tracks: tracks}
	session.Container.Entries = []*sdktest.Playlist{pl}

	tr.LoadPlaylist(&protocol.LoadPlaylistRequest{Type: protocol.PlaylistUser, UserPlaylistIndex: 0})
	for i := 0; i < 3; i++ {
		tr.MetadataUpdated()
	}
	if len(out.Messages()) != 0 {
		t.Fatal("response sent while a track is still loading")
	}

	tracks[2].Loaded = true
	tr.MetadataUpdated()

	msgs := out.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 response, got %d", len(msgs))
	}
	if got := titles(msgs[0].LoadPlaylistResponse.Track); !reflect.DeepEqual(got, []string{"one", "two", "three"}) {
		t.Errorf("track order = %v", got)
	}

	assertBalanced(t, "playlist", &pl.Handle)
	if pl.AddRefs != 1 || pl.Releases != 1 {
		t.Errorf("playlist addrefs=%d releases=%d, want 1/1", pl.AddRefs, pl.Releases)
	}
	for i, trk := range tracks {
		if trk.Releases != 1 {
			t.Errorf("track %d released %d times", i, trk.Releases)
		}
		assertBalanced(t, trk.Title, &trk.Handle)
	}

	tr.MetadataUpdated()
	if len(out.Messages()) != 1 {
		t.Error("finished load responded twice")
	}
}

func TestPlaylistWaitsForPlaylistItself(t *testing.T) {
	tr, session, out := newTracker(t)
	session.Inbox.Loaded = false
	session.Inbox.Tracks = []*sdktest.Track{{Title: "hi", Loaded: true}}

	tr.LoadPlaylist(&protocol.LoadPlaylistRequest{Type: protocol.PlaylistInbox})
	tr.PlaylistStateChanged()
	if len(out.Messages()) != 0 {
		t.Fatal("response sent before playlist loaded")
	}

	session.Inbox.Loaded = true
	tr.PlaylistStateChanged()
	if len(out.Messages()) != 1 {
		t.Fatalf("expected response after playlist loaded, got %d", len(out.Messages()))
	}
	assertBalanced(t, "inbox", &session.Inbox.Handle)
}

func TestStarredPlaylistIsReversed(t *testing.T) {
	tr, session, out := newTracker(t)
	session.Starred.Tracks = []*sdktest.Track{
		{Title: "first", Loaded: true},
		{Title: "second", Loaded: true},
		{Title: "third", Loaded: true},
	}

	tr.LoadPlaylist(&protocol.LoadPlaylistRequest{Type: protocol.PlaylistStarred})

	msgs := out.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 response, got %d", len(msgs))
	}
	want := []string{"third", "second", "first"}
	if got := titles(msgs[0].LoadPlaylistResponse.Track); !reflect.DeepEqual(got, want) {
		t.Errorf("starred order = %v, want %v", got, want)
	}
	assertBalanced(t, "starred", &session.Starred.Handle)
}

func TestInvalidPlaylistRespondsEmpty(t *testing.T) {
	tr, _, out := newTracker(t)

	req := &protocol.LoadPlaylistRequest{Type: protocol.PlaylistUser, UserPlaylistIndex: 7}
	tr.LoadPlaylist(req)

	msgs := out.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 response, got %d", len(msgs))
	}
	resp := msgs[0].LoadPlaylistResponse
	if resp.Request != req || len(resp.Track) != 0 {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestOpenPlaylistSkipsFolders(t *testing.T) {
	_, session, _ := newTracker(t)
	session.Container.Entries = []*sdktest.Playlist{nil, {Title: "inside"}, nil}
	session.Container.Kinds = []sdk.PlaylistKind{sdk.KindStartFolder, sdk.KindPlaylist, sdk.KindEndFolder}

	if _, err := OpenPlaylist(session, protocol.PlaylistUser, 0); err == nil {
		t.Error("opened a folder marker as a playlist")
	}
	pl, err := OpenPlaylist(session, protocol.PlaylistUser, 1)
	if err != nil {
		t.Fatalf("OpenPlaylist failed: %v", err)
	}
	if pl.Name() != "inside" {
		t.Errorf("opened %q", pl.Name())
	}
	pl.Release()
}

func TestImageRequestsShareOneCallback(t *testing.T) {
	tr, session, out := newTracker(t)

	var id sdk.ImageID
	id[0] = 0xab
	encoded := base64.StdEncoding.EncodeToString(id[:])

	tr.LoadImage(&protocol.ImageRequest{ID: encoded})
	tr.LoadImage(&protocol.ImageRequest{ID: encoded})

	img := session.Images[id]
	if img.CallbackAdds != 1 {
		t.Fatalf("load callback registered %d times, want 1", img.CallbackAdds)
	}
	if len(out.Messages()) != 0 {
		t.Fatal("response sent before image loaded")
	}

	img.Loaded = true
	img.Bytes = []byte("jpeg")
	tr.ImageLoaded(img)

	msgs := out.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected one response per request, got %d", len(msgs))
	}
	for _, m := range msgs {
		if m.ImageResponse.ID != encoded || string(m.ImageResponse.Data) != "jpeg" {
			t.Errorf("unexpected response %+v", m.ImageResponse)
		}
	}
	if img.Releases != 2 {
		t.Errorf("image released %d times, want 2", img.Releases)
	}
	assertBalanced(t, "image", &img.Handle)
	if img.Callbacks != 0 {
		t.Errorf("load callback still registered")
	}
}

func TestImageAlreadyCached(t *testing.T) {
	tr, session, out := newTracker(t)

	var id sdk.ImageID
	session.Images[id] = &sdktest.Image{Key: id, Loaded: true, Bytes: []byte("png")}

	tr.LoadImage(&protocol.ImageRequest{ID: base64.StdEncoding.EncodeToString(id[:])})

	if len(out.Messages()) != 1 {
		t.Fatalf("expected immediate response, got %d", len(out.Messages()))
	}
	assertBalanced(t, "image", &session.Images[id].Handle)
}

func TestImageBadID(t *testing.T) {
	tr, session, out := newTracker(t)

	tr.LoadImage(&protocol.ImageRequest{ID: "not base64!"})

	if len(out.Messages()) != 1 {
		t.Fatalf("expected an empty response, got %d", len(out.Messages()))
	}
	if len(session.Images) != 0 {
		t.Error("image created for a bad id")
	}
}

func TestBrowseAlbum(t *testing.T) {
	tr, session, out := newTracker(t)
	album := session.AddAlbum("spotify:album:x", "X", "Y")
	session.BrowseTracks[album] = []*sdktest.Track{{Title: "x1", Loaded: true}}

	tr.BrowseAlbum(&protocol.BrowseAlbumRequest{URI: "spotify:album:x"})
	if len(session.AlbumBrowses) != 1 {
		t.Fatalf("expected 1 album browse, got %d", len(session.AlbumBrowses))
	}
	assertBalanced(t, "album link", &session.Links[0].Handle)

	tr.AlbumBrowseComplete(session.AlbumBrowses[0])

	msgs := out.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 response, got %d", len(msgs))
	}
	resp := msgs[0].BrowseAlbumResponse
	if resp.URI != "spotify:album:x" || !reflect.DeepEqual(titles(resp.Track), []string{"x1"}) {
		t.Errorf("unexpected response %+v", resp)
	}
	assertBalanced(t, "album browse", &session.AlbumBrowses[0].Handle)
}

func TestBrowseAlbumRejectsBadURIs(t *testing.T) {
	tests := []struct {
		name string
		uri  string
	}{
		{"unparseable", "http://example.com"},
		{"not an album", "spotify:artist:abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, session, out := newTracker(t)
			tr.BrowseAlbum(&protocol.BrowseAlbumRequest{URI: tt.uri})

			msgs := out.Messages()
			if len(msgs) != 1 || msgs[0].BrowseAlbumResponse.Error == "" {
				t.Fatalf("expected one error response, got %+v", msgs)
			}
			for _, l := range session.Links {
				assertBalanced(t, "link", &l.Handle)
			}
			if tr.Pending() != 0 {
				t.Error("failed browse left pending state")
			}
		})
	}
}

func TestBrowseToplist(t *testing.T) {
	tr, session, out := newTracker(t)
	session.NextToplist = &sdktest.ToplistBrowse{
		Loaded: true,
		Tracks: []*sdktest.Track{{Title: "hit", Loaded: true}},
		Albums: []*sdktest.Album{{Title: "best of"}},
	}

	req := &protocol.BrowseToplistRequest{Type: protocol.ToplistTracks, Region: protocol.ToplistUser, Username: "bob"}
	tr.BrowseToplist(req)

	b := session.Toplists[0]
	if b.Kind != sdk.ToplistTracks || b.Region != sdk.ToplistUser || b.User != "bob" {
		t.Errorf("toplist params = %v %v %q", b.Kind, b.Region, b.User)
	}

	tr.ToplistBrowseComplete(b)

	msgs := out.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 response, got %d", len(msgs))
	}
	resp := msgs[0].BrowseToplistResponse
	if resp.Request != req || len(resp.Track) != 1 || len(resp.Album) != 1 {
		t.Errorf("unexpected response %+v", resp)
	}
	if resp.Album[0].Metadata.Track != -1 {
		t.Error("toplist album not in sentinel form")
	}
	assertBalanced(t, "toplist", &b.Handle)
}

func TestCloseReleasesEverything(t *testing.T) {
	tr, session, _ := newTracker(t)

	album := session.AddAlbum("spotify:album:a", "A", "")
	session.NextSearch = &sdktest.Search{Loaded: true, Albums: []*sdktest.Album{album}}
	tr.Search(&protocol.SearchRequest{Query: "q"})
	tr.SearchComplete(session.Searches[0])

	tr.BrowseToplist(&protocol.BrowseToplistRequest{})

	session.Starred.Tracks = []*sdktest.Track{{Title: "slow", Loaded: false}}
	tr.LoadPlaylist(&protocol.LoadPlaylistRequest{Type: protocol.PlaylistStarred})

	var id sdk.ImageID
	tr.LoadImage(&protocol.ImageRequest{ID: base64.StdEncoding.EncodeToString(id[:])})
	tr.LoadImage(&protocol.ImageRequest{ID: base64.StdEncoding.EncodeToString(id[:])})

	tr.Close()

	assertBalanced(t, "search", &session.Searches[0].Handle)
	assertBalanced(t, "search album browse", &session.AlbumBrowses[0].Handle)
	assertBalanced(t, "toplist", &session.Toplists[0].Handle)
	assertBalanced(t, "starred", &session.Starred.Handle)
	assertBalanced(t, "starred track", &session.Starred.Tracks[0].Handle)
	assertBalanced(t, "image", &session.Images[id].Handle)
	if session.Images[id].Callbacks != 0 {
		t.Error("image load callback left registered")
	}
	if tr.Pending() != 0 {
		t.Errorf("Pending() = %d after Close", tr.Pending())
	}

	// a completion after close is an unknown handle
	tr.AlbumBrowseComplete(session.AlbumBrowses[0])
	if session.AlbumBrowses[0].Releases != 1 {
		t.Error("album browse released again after Close")
	}
}
