// ABOUTME: Search requests with a secondary album browse per result album
// ABOUTME: The response is sent once every album browse has resolved
package tracker

import (
	"go.uber.org/zap"

	"github.com/spotblob/spotblob/internal/convert"
	"github.com/spotblob/spotblob/internal/sdk"
	"github.com/spotblob/spotblob/pkg/protocol"
)

type pendingSearch struct {
	request *protocol.SearchRequest
	search  *sdk.Ref[sdk.Search]

	// albums[i] browses the search's i-th album; nil if it could not start
	albums   []*sdk.Ref[sdk.AlbumBrowse]
	expected int
	resolved int
}

func (p *pendingSearch) release() {
	sdk.ReleaseAll(p.albums)
	p.search.Release()
}

// albumSlot ties a secondary album browse back to its search
type albumSlot struct {
	search *pendingSearch
	index  int
}

// Search dispatches a search request
func (t *Tracker) Search(req *protocol.SearchRequest) {
	s := t.session.SearchCreate(sdk.SearchParams{
		Query:      req.Query,
		TrackCount: int(req.Limit),
		AlbumCount: int(req.LimitAlbum),
	})
	if s == nil {
		t.send(&protocol.Message{SearchResponse: &protocol.SearchResponse{
			Request: req,
			Error:   "Search could not be started",
		}})
		return
	}

	t.log.Debug("search dispatched", zap.String("query", req.Query))
	t.searches.put(s, &pendingSearch{request: req, search: sdk.Own(s)})
}

// SearchComplete handles the primary search result
func (t *Tracker) SearchComplete(s sdk.Search) {
	p, ok := t.searches.get(s)
	if !ok {
		t.unknownHandle("search")
		return
	}

	if p.albums != nil {
		t.log.Warn("duplicate search completion", zap.String("query", p.request.Query))
		return
	}

	if err := s.Err(); err != nil {
		t.searches.take(s)
		t.send(&protocol.Message{SearchResponse: &protocol.SearchResponse{
			Request: p.request,
			Error:   err.Error(),
		}})
		p.release()
		return
	}

	n := s.NumAlbums()
	p.expected = n
	p.albums = make([]*sdk.Ref[sdk.AlbumBrowse], n)
	for i := 0; i < n; i++ {
		b := t.session.AlbumBrowseCreate(s.Album(i))
		if b == nil {
			t.log.Warn("album browse could not be started", zap.Int("album", i))
			p.resolved++
			continue
		}
		p.albums[i] = sdk.Own(b)
		t.searchAlbums.put(b, albumSlot{search: p, index: i})
	}

	t.log.Debug("search loaded",
		zap.String("query", s.Query()),
		zap.Int("tracks", s.NumTracks()),
		zap.Int("albums", n))

	if p.resolved == p.expected {
		t.finishSearch(p)
	}
}

// searchAlbumComplete handles one secondary browse; it reports false
// when b does not belong to a search
func (t *Tracker) searchAlbumComplete(b sdk.AlbumBrowse) bool {
	slot, ok := t.searchAlbums.take(b)
	if !ok {
		return false
	}

	slot.search.resolved++
	if slot.search.resolved == slot.search.expected {
		t.finishSearch(slot.search)
	}
	return true
}

func (t *Tracker) finishSearch(p *pendingSearch) {
	s := p.search.Get()
	t.searches.take(s)

	resp := &protocol.SearchResponse{
		Request:     p.request,
		TotalTracks: int32(s.TotalTracks()),
		DidYouMean:  s.DidYouMean(),
	}
	for i := 0; i < s.NumTracks(); i++ {
		resp.Result = append(resp.Result, convert.Track(s.Track(i)))
	}
	for i, ref := range p.albums {
		album := &protocol.Album{Metadata: convert.Album(s.Album(i))}
		if ref != nil {
			if b := ref.Get(); b.Err() == nil {
				album.Track = browseTracks(b)
			}
		}
		resp.Album = append(resp.Album, album)
	}

	t.send(&protocol.Message{SearchResponse: resp})
	p.release()
}

func browseTracks(b sdk.AlbumBrowse) []*protocol.Track {
	tracks := make([]*protocol.Track, 0, b.NumTracks())
	for i := 0; i < b.NumTracks(); i++ {
		tracks = append(tracks, convert.Track(b.Track(i)))
	}
	return tracks
}
