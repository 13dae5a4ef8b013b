// ABOUTME: Search, album browse, and toplist browse handles
// ABOUTME: Results are computed from the catalog when the simulated request completes
package localsdk

import (
	"cmp"
	"slices"
	"strings"

	"github.com/spotblob/spotblob/internal/sdk"
)

const toplistSize = 100

type search struct {
	refs
	params     sdk.SearchParams
	loaded     bool
	err        error
	total      int
	didYouMean string
	tracks     []*track
	albums     []*album
}

func (s *search) IsLoaded() bool        { return s.loaded }
func (s *search) Err() error            { return s.err }
func (s *search) Query() string         { return s.params.Query }
func (s *search) DidYouMean() string    { return s.didYouMean }
func (s *search) TotalTracks() int      { return s.total }
func (s *search) NumTracks() int        { return len(s.tracks) }
func (s *search) Track(i int) sdk.Track { return s.tracks[i] }
func (s *search) NumAlbums() int        { return len(s.albums) }
func (s *search) Album(i int) sdk.Album { return s.albums[i] }

type albumBrowse struct {
	refs
	album  *album
	loaded bool
	err    error
	tracks []*track
}

func (b *albumBrowse) IsLoaded() bool        { return b.loaded }
func (b *albumBrowse) Err() error            { return b.err }
func (b *albumBrowse) Album() sdk.Album      { return b.album }
func (b *albumBrowse) NumTracks() int        { return len(b.tracks) }
func (b *albumBrowse) Track(i int) sdk.Track { return b.tracks[i] }

type toplistBrowse struct {
	refs
	kind     sdk.ToplistType
	region   sdk.ToplistRegion
	username string
	loaded   bool
	err      error
	tracks   []*track
	albums   []*album
}

func (b *toplistBrowse) IsLoaded() bool        { return b.loaded }
func (b *toplistBrowse) Err() error            { return b.err }
func (b *toplistBrowse) NumTracks() int        { return len(b.tracks) }
func (b *toplistBrowse) Track(i int) sdk.Track { return b.tracks[i] }
func (b *toplistBrowse) NumAlbums() int        { return len(b.albums) }
func (b *toplistBrowse) Album(i int) sdk.Album { return b.albums[i] }

// window applies offset and count; a non-positive count means none
func window[T any](items []T, offset, count int) []T {
	if offset < 0 || offset >= len(items) || count <= 0 {
		return nil
	}
	return items[offset:min(offset+count, len(items))]
}

// catalogTracks lists the current catalog's tracks in file order
func (s *Session) catalogTracks() []*track {
	out := make([]*track, 0, len(s.catalog.Tracks))
	for _, e := range s.catalog.Tracks {
		if t := s.tracks[e.URI]; t != nil {
			out = append(out, t)
		}
	}
	return out
}

func (s *Session) catalogAlbums() []*album {
	out := make([]*album, 0, len(s.catalog.Albums))
	for _, e := range s.catalog.Albums {
		if a := s.albums[e.URI]; a != nil {
			out = append(out, a)
		}
	}
	return out
}

func (s *Session) runSearch(srch *search) {
	srch.loaded = true

	terms := strings.Fields(strings.ToLower(srch.params.Query))
	if len(terms) == 0 {
		srch.err = sdk.ErrInvalidIndata
		return
	}

	var tracks []*track
	for _, t := range s.catalogTracks() {
		if t.matches(terms) {
			tracks = append(tracks, t)
		}
	}
	srch.total = len(tracks)
	srch.tracks = window(tracks, srch.params.TrackOffset, srch.params.TrackCount)

	var albums []*album
	for _, a := range s.catalogAlbums() {
		text := strings.ToLower(a.entry.Name + " " + a.entry.Artist)
		if containsAll(text, terms) {
			albums = append(albums, a)
		}
	}
	srch.albums = window(albums, srch.params.AlbumOffset, srch.params.AlbumCount)

	if len(tracks) == 0 && len(albums) == 0 {
		srch.didYouMean = s.suggest(terms[0])
	}
}

func containsAll(text string, terms []string) bool {
	for _, term := range terms {
		if !strings.Contains(text, term) {
			return false
		}
	}
	return true
}

// suggest offers the first title word sharing term's three letter prefix
func (s *Session) suggest(term string) string {
	if len(term) < 3 {
		return ""
	}
	prefix := term[:3]
	for _, t := range s.catalogTracks() {
		for _, word := range strings.Fields(strings.ToLower(t.entry.Title)) {
			if word != term && strings.HasPrefix(word, prefix) {
				return word
			}
		}
	}
	return ""
}

func (s *Session) runAlbumBrowse(b *albumBrowse) {
	b.loaded = true
	for _, t := range s.catalogTracks() {
		if t.album == b.album {
			b.tracks = append(b.tracks, t)
		}
	}
	slices.SortStableFunc(b.tracks, func(x, y *track) int {
		if c := cmp.Compare(x.entry.Disc, y.entry.Disc); c != 0 {
			return c
		}
		return cmp.Compare(x.entry.Index, y.entry.Index)
	})
}

func (s *Session) runToplist(b *toplistBrowse) {
	b.loaded = true
	if b.region == sdk.ToplistUser && b.username != "" {
		if _, ok := s.catalog.user(b.username); !ok {
			b.err = sdk.ErrNoSuchUser
			return
		}
	}

	ranked := s.catalogTracks()
	slices.SortStableFunc(ranked, func(x, y *track) int {
		return cmp.Compare(y.entry.Popularity, x.entry.Popularity)
	})

	switch b.kind {
	case sdk.ToplistTracks:
		b.tracks = ranked[:min(len(ranked), toplistSize)]
	case sdk.ToplistAlbums:
		seen := make(map[*album]bool)
		for _, t := range ranked {
			if t.album != nil && !seen[t.album] && len(b.albums) < toplistSize {
				seen[t.album] = true
				b.albums = append(b.albums, t.album)
			}
		}
	}
}
