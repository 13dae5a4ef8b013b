// ABOUTME: Session request tracker for asynchronous SDK operations
// ABOUTME: Keys pending requests by SDK handle and releases every handle exactly once
// Package tracker correlates fire-and-forget SDK operations with their
// completion callbacks and turns fully loaded results into responses.
//
// A Tracker is owned by the bridge's event loop goroutine and is not
// safe for concurrent use.
package tracker

import (
	"go.uber.org/zap"

	"github.com/spotblob/spotblob/internal/sdk"
	"github.com/spotblob/spotblob/pkg/protocol"
)

// table maps an outstanding SDK handle to its pending operation
type table[H comparable, P any] struct {
	kind    string
	pending map[H]P
}

func newTable[H comparable, P any](kind string) *table[H, P] {
	return &table[H, P]{kind: kind, pending: make(map[H]P)}
}

func (t *table[H, P]) put(h H, p P) {
	t.pending[h] = p
}

// take removes and returns the operation for h
func (t *table[H, P]) take(h H) (P, bool) {
	p, ok := t.pending[h]
	if ok {
		delete(t.pending, h)
	}
	return p, ok
}

func (t *table[H, P]) get(h H) (P, bool) {
	p, ok := t.pending[h]
	return p, ok
}

func (t *table[H, P]) len() int {
	return len(t.pending)
}

// drain removes every operation, calling fn on each
func (t *table[H, P]) drain(fn func(H, P)) {
	for h, p := range t.pending {
		delete(t.pending, h)
		fn(h, p)
	}
}

// Tracker holds every in-flight search, browse, playlist load, and image fetch
type Tracker struct {
	session sdk.Session
	out     protocol.Sender
	log     *zap.Logger

	searches      *table[sdk.Search, *pendingSearch]
	searchAlbums  *table[sdk.AlbumBrowse, albumSlot]
	albumBrowses  *table[sdk.AlbumBrowse, *pendingAlbumBrowse]
	toplists      *table[sdk.ToplistBrowse, *pendingToplist]
	images        *table[sdk.Image, *pendingImage]
	playlistLoads []*pendingPlaylist
}

// New creates a tracker for session that sends responses to out
func New(session sdk.Session, out protocol.Sender, log *zap.Logger) *Tracker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Tracker{
		session:      session,
		out:          out,
		log:          log.Named("tracker"),
		searches:     newTable[sdk.Search, *pendingSearch]("search"),
		searchAlbums: newTable[sdk.AlbumBrowse, albumSlot]("search album browse"),
		albumBrowses: newTable[sdk.AlbumBrowse, *pendingAlbumBrowse]("album browse"),
		toplists:     newTable[sdk.ToplistBrowse, *pendingToplist]("toplist browse"),
		images:       newTable[sdk.Image, *pendingImage]("image"),
	}
}

func (t *Tracker) send(m *protocol.Message) {
	if err := t.out.Send(m); err != nil {
		t.log.Error("failed to send response", zap.String("kind", m.Kind()), zap.Error(err))
	}
}

func (t *Tracker) unknownHandle(kind string) {
	t.log.Warn("completion for unknown handle", zap.String("operation", kind))
}

// Pending reports how many operations are outstanding
func (t *Tracker) Pending() int {
	return t.searches.len() + t.albumBrowses.len() + t.toplists.len() +
		t.images.len() + len(t.playlistLoads)
}

// MetadataUpdated re-checks every pending playlist load
func (t *Tracker) MetadataUpdated() {
	t.retryPlaylists()
}

// Close abandons every pending operation, releasing its handles
func (t *Tracker) Close() {
	t.searches.drain(func(_ sdk.Search, p *pendingSearch) { p.release() })
	t.searchAlbums.drain(func(sdk.AlbumBrowse, albumSlot) {})
	t.albumBrowses.drain(func(_ sdk.AlbumBrowse, p *pendingAlbumBrowse) { p.browse.Release() })
	t.toplists.drain(func(_ sdk.ToplistBrowse, p *pendingToplist) { p.browse.Release() })
	t.images.drain(func(img sdk.Image, p *pendingImage) {
		img.RemoveLoadCallback()
		p.release()
	})
	for _, p := range t.playlistLoads {
		p.release()
	}
	t.playlistLoads = nil
}
