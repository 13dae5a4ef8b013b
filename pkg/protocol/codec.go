// ABOUTME: Protobuf wire codec for control protocol messages
// ABOUTME: Hand-written encode/decode on top of protowire; unknown fields are skipped
package protocol

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// ErrMalformed is returned for payloads that are not a valid Message
var ErrMalformed = errors.New("protocol: malformed message")

type marshaler interface {
	appendTo(b []byte) []byte
}

type unmarshaler interface {
	decode(b []byte) error
}

// Marshal encodes m into its protobuf wire form
func Marshal(m *Message) ([]byte, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: nil message", ErrMalformed)
	}
	if n := m.setCount(); n > 1 {
		return nil, fmt.Errorf("%w: %d sub-messages set", ErrMalformed, n)
	}
	return m.appendTo(nil), nil
}

// Unmarshal decodes a protobuf payload into a Message
func Unmarshal(b []byte) (*Message, error) {
	m := new(Message)
	if err := m.decode(b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if n := m.setCount(); n > 1 {
		return nil, fmt.Errorf("%w: %d sub-messages set", ErrMalformed, n)
	}
	return m, nil
}

func (m *Message) setCount() int {
	set := []bool{
		m.LoginRequest != nil, m.LoginResponse != nil, m.PlaylistsUpdated != nil,
		m.LoadPlaylistRequest != nil, m.LoadPlaylistResponse != nil, m.PlaybackRequest != nil,
		m.PlaybackError != nil, m.SearchRequest != nil, m.SearchResponse != nil,
		m.ImageRequest != nil, m.ImageResponse != nil, m.SyncPlaylistRequest != nil,
		m.SyncPlaylistProgress != nil, m.BrowseAlbumRequest != nil, m.BrowseAlbumResponse != nil,
		m.SeekRequest != nil, m.SetPlaybackSettingsRequest != nil, m.BrowseToplistRequest != nil,
		m.BrowseToplistResponse != nil, m.PauseRequest != nil, m.AddTracksToPlaylist != nil,
		m.RemoveTracksFromPlaylist != nil,
	}
	n := 0
	for _, s := range set {
		if s {
			n++
		}
	}
	return n
}

// Encoding helpers. Zero scalars are omitted; sub-messages are always
// written when present so an empty request still selects its slot.

func appendVarintField(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendInt32(b []byte, num protowire.Number, v int32) []byte {
	if v == 0 {
		return b
	}
	return appendVarintField(b, num, uint64(int64(v)))
}

func appendInt64(b []byte, num protowire.Number, v int64) []byte {
	if v == 0 {
		return b
	}
	return appendVarintField(b, num, uint64(v))
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	return appendVarintField(b, num, protowire.EncodeBool(v))
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendMessage(b []byte, num protowire.Number, m marshaler) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, m.appendTo(nil))
}

// field is one tag/value pair being decoded. n records how many value
// bytes were consumed; fields left unconsumed are skipped.
type field struct {
	num protowire.Number
	typ protowire.Type
	val []byte
	n   int
}

func decodeFields(b []byte, fn func(f *field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		f := field{num: num, typ: typ, val: b, n: -1}
		if err := fn(&f); err != nil {
			return fmt.Errorf("field %d: %w", num, err)
		}
		if f.n < 0 {
			if err := f.skip(); err != nil {
				return fmt.Errorf("field %d: %w", num, err)
			}
		}
		b = b[f.n:]
	}
	return nil
}

func (f *field) skip() error {
	n := protowire.ConsumeFieldValue(f.num, f.typ, f.val)
	if n < 0 {
		return protowire.ParseError(n)
	}
	f.n = n
	return nil
}

func (f *field) varint() (uint64, error) {
	if f.typ != protowire.VarintType {
		return 0, fmt.Errorf("wire type %d, want varint", f.typ)
	}
	v, n := protowire.ConsumeVarint(f.val)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	f.n = n
	return v, nil
}

func (f *field) bytes() ([]byte, error) {
	if f.typ != protowire.BytesType {
		return nil, fmt.Errorf("wire type %d, want bytes", f.typ)
	}
	v, n := protowire.ConsumeBytes(f.val)
	if n < 0 {
		return nil, protowire.ParseError(n)
	}
	f.n = n
	return v, nil
}

func (f *field) int32() (int32, error) {
	v, err := f.varint()
	return int32(v), err
}

func (f *field) int64() (int64, error) {
	v, err := f.varint()
	return int64(v), err
}

func (f *field) bool() (bool, error) {
	v, err := f.varint()
	return protowire.DecodeBool(v), err
}

func (f *field) string() (string, error) {
	v, err := f.bytes()
	return string(v), err
}

func (f *field) message(m unmarshaler) error {
	v, err := f.bytes()
	if err != nil {
		return err
	}
	return m.decode(v)
}

// int64s accepts both packed and unpacked repeated varints
func (f *field) int64s(dst []int64) ([]int64, error) {
	if f.typ != protowire.BytesType {
		v, err := f.int64()
		return append(dst, v), err
	}
	b, err := f.bytes()
	if err != nil {
		return dst, err
	}
	for len(b) > 0 {
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return dst, protowire.ParseError(n)
		}
		dst = append(dst, int64(v))
		b = b[n:]
	}
	return dst, nil
}

// Message

func (m *Message) appendTo(b []byte) []byte {
	if m.LoginRequest != nil {
		b = appendMessage(b, 1, m.LoginRequest)
	}
	if m.LoginResponse != nil {
		b = appendMessage(b, 2, m.LoginResponse)
	}
	if m.PlaylistsUpdated != nil {
		b = appendMessage(b, 3, m.PlaylistsUpdated)
	}
	if m.LoadPlaylistRequest != nil {
		b = appendMessage(b, 4, m.LoadPlaylistRequest)
	}
	if m.LoadPlaylistResponse != nil {
		b = appendMessage(b, 5, m.LoadPlaylistResponse)
	}
	if m.PlaybackRequest != nil {
		b = appendMessage(b, 6, m.PlaybackRequest)
	}
	if m.PlaybackError != nil {
		b = appendMessage(b, 7, m.PlaybackError)
	}
	if m.SearchRequest != nil {
		b = appendMessage(b, 8, m.SearchRequest)
	}
	if m.SearchResponse != nil {
		b = appendMessage(b, 9, m.SearchResponse)
	}
	if m.ImageRequest != nil {
		b = appendMessage(b, 10, m.ImageRequest)
	}
	if m.ImageResponse != nil {
		b = appendMessage(b, 11, m.ImageResponse)
	}
	if m.SyncPlaylistRequest != nil {
		b = appendMessage(b, 12, m.SyncPlaylistRequest)
	}
	if m.SyncPlaylistProgress != nil {
		b = appendMessage(b, 13, m.SyncPlaylistProgress)
	}
	if m.BrowseAlbumRequest != nil {
		b = appendMessage(b, 14, m.BrowseAlbumRequest)
	}
	if m.BrowseAlbumResponse != nil {
		b = appendMessage(b, 15, m.BrowseAlbumResponse)
	}
	if m.SeekRequest != nil {
		b = appendMessage(b, 16, m.SeekRequest)
	}
	if m.SetPlaybackSettingsRequest != nil {
		b = appendMessage(b, 17, m.SetPlaybackSettingsRequest)
	}
	if m.BrowseToplistRequest != nil {
		b = appendMessage(b, 18, m.BrowseToplistRequest)
	}
	if m.BrowseToplistResponse != nil {
		b = appendMessage(b, 19, m.BrowseToplistResponse)
	}
	if m.PauseRequest != nil {
		b = appendMessage(b, 20, m.PauseRequest)
	}
	if m.AddTracksToPlaylist != nil {
		b = appendMessage(b, 21, m.AddTracksToPlaylist)
	}
	if m.RemoveTracksFromPlaylist != nil {
		b = appendMessage(b, 22, m.RemoveTracksFromPlaylist)
	}
	return b
}

func (m *Message) decode(b []byte) error {
	return decodeFields(b, func(f *field) error {
		switch f.num {
		case 1:
			m.LoginRequest = new(LoginRequest)
			return f.message(m.LoginRequest)
		case 2:
			m.LoginResponse = new(LoginResponse)
			return f.message(m.LoginResponse)
		case 3:
			m.PlaylistsUpdated = new(PlaylistsUpdated)
			return f.message(m.PlaylistsUpdated)
		case 4:
			m.LoadPlaylistRequest = new(LoadPlaylistRequest)
			return f.message(m.LoadPlaylistRequest)
		case 5:
			m.LoadPlaylistResponse = new(LoadPlaylistResponse)
			return f.message(m.LoadPlaylistResponse)
		case 6:
			m.PlaybackRequest = new(PlaybackRequest)
			return f.message(m.PlaybackRequest)
		case 7:
			m.PlaybackError = new(PlaybackError)
			return f.message(m.PlaybackError)
		case 8:
			m.SearchRequest = new(SearchRequest)
			return f.message(m.SearchRequest)
		case 9:
			m.SearchResponse = new(SearchResponse)
			return f.message(m.SearchResponse)
		case 10:
			m.ImageRequest = new(ImageRequest)
			return f.message(m.ImageRequest)
		case 11:
			m.ImageResponse = new(ImageResponse)
			return f.message(m.ImageResponse)
		case 12:
			m.SyncPlaylistRequest = new(SyncPlaylistRequest)
			return f.message(m.SyncPlaylistRequest)
		case 13:
			m.SyncPlaylistProgress = new(SyncPlaylistProgress)
			return f.message(m.SyncPlaylistProgress)
		case 14:
			m.BrowseAlbumRequest = new(BrowseAlbumRequest)
			return f.message(m.BrowseAlbumRequest)
		case 15:
			m.BrowseAlbumResponse = new(BrowseAlbumResponse)
			return f.message(m.BrowseAlbumResponse)
		case 16:
			m.SeekRequest = new(SeekRequest)
			return f.message(m.SeekRequest)
		case 17:
			m.SetPlaybackSettingsRequest = new(SetPlaybackSettingsRequest)
			return f.message(m.SetPlaybackSettingsRequest)
		case 18:
			m.BrowseToplistRequest = new(BrowseToplistRequest)
			return f.message(m.BrowseToplistRequest)
		case 19:
			m.BrowseToplistResponse = new(BrowseToplistResponse)
			return f.message(m.BrowseToplistResponse)
		case 20:
			m.PauseRequest = new(PauseRequest)
			return f.message(m.PauseRequest)
		case 21:
			m.AddTracksToPlaylist = new(AddTracksToPlaylistRequest)
			return f.message(m.AddTracksToPlaylist)
		case 22:
			m.RemoveTracksFromPlaylist = new(RemoveTracksFromPlaylistRequest)
			return f.message(m.RemoveTracksFromPlaylist)
		}
		return nil
	})
}

// Track

func (t *Track) appendTo(b []byte) []byte {
	b = appendBool(b, 1, t.Starred)
	b = appendString(b, 2, t.Title)
	b = appendString(b, 3, t.Album)
	b = appendInt32(b, 4, t.Year)
	b = appendInt32(b, 5, t.DurationMsec)
	b = appendInt32(b, 6, t.Popularity)
	b = appendInt32(b, 7, t.Disc)
	b = appendInt32(b, 8, t.Track)
	b = appendString(b, 9, t.AlbumArtID)
	for _, a := range t.Artist {
		b = protowire.AppendTag(b, 10, protowire.BytesType)
		b = protowire.AppendString(b, a)
	}
	return appendString(b, 11, t.URI)
}

func (t *Track) decode(b []byte) error {
	return decodeFields(b, func(f *field) (err error) {
		switch f.num {
		case 1:
			t.Starred, err = f.bool()
		case 2:
			t.Title, err = f.string()
		case 3:
			t.Album, err = f.string()
		case 4:
			t.Year, err = f.int32()
		case 5:
			t.DurationMsec, err = f.int32()
		case 6:
			t.Popularity, err = f.int32()
		case 7:
			t.Disc, err = f.int32()
		case 8:
			t.Track, err = f.int32()
		case 9:
			t.AlbumArtID, err = f.string()
		case 10:
			var a string
			a, err = f.string()
			t.Artist = append(t.Artist, a)
		case 11:
			t.URI, err = f.string()
		}
		return err
	})
}

func appendTracks(b []byte, num protowire.Number, tracks []*Track) []byte {
	for _, t := range tracks {
		b = appendMessage(b, num, t)
	}
	return b
}

func (f *field) track() (*Track, error) {
	t := new(Track)
	return t, f.message(t)
}

// Album

func (a *Album) appendTo(b []byte) []byte {
	if a.Metadata != nil {
		b = appendMessage(b, 1, a.Metadata)
	}
	return appendTracks(b, 2, a.Track)
}

func (a *Album) decode(b []byte) error {
	return decodeFields(b, func(f *field) (err error) {
		switch f.num {
		case 1:
			a.Metadata, err = f.track()
		case 2:
			var t *Track
			t, err = f.track()
			a.Track = append(a.Track, t)
		}
		return err
	})
}

func appendAlbums(b []byte, num protowire.Number, albums []*Album) []byte {
	for _, a := range albums {
		b = appendMessage(b, num, a)
	}
	return b
}

func (f *field) album() (*Album, error) {
	a := new(Album)
	return a, f.message(a)
}

// Playlist

func (p *Playlist) appendTo(b []byte) []byte {
	b = appendInt32(b, 1, p.Index)
	b = appendString(b, 2, p.Name)
	b = appendInt32(b, 3, p.NbTracks)
	b = appendBool(b, 4, p.IsMine)
	b = appendString(b, 5, p.Owner)
	return appendBool(b, 6, p.IsOffline)
}

func (p *Playlist) decode(b []byte) error {
	return decodeFields(b, func(f *field) (err error) {
		switch f.num {
		case 1:
			p.Index, err = f.int32()
		case 2:
			p.Name, err = f.string()
		case 3:
			p.NbTracks, err = f.int32()
		case 4:
			p.IsMine, err = f.bool()
		case 5:
			p.Owner, err = f.string()
		case 6:
			p.IsOffline, err = f.bool()
		}
		return err
	})
}

// PlaybackSettings

func (s *PlaybackSettings) appendTo(b []byte) []byte {
	b = appendInt32(b, 1, int32(s.Bitrate))
	return appendBool(b, 2, s.VolumeNormalisation)
}

func (s *PlaybackSettings) decode(b []byte) error {
	return decodeFields(b, func(f *field) (err error) {
		switch f.num {
		case 1:
			var v int32
			v, err = f.int32()
			s.Bitrate = Bitrate(v)
		case 2:
			s.VolumeNormalisation, err = f.bool()
		}
		return err
	})
}

// LoginRequest

func (r *LoginRequest) appendTo(b []byte) []byte {
	b = appendString(b, 1, r.Username)
	b = appendString(b, 2, r.Password)
	if r.PlaybackSettings != nil {
		b = appendMessage(b, 3, r.PlaybackSettings)
	}
	return b
}

func (r *LoginRequest) decode(b []byte) error {
	return decodeFields(b, func(f *field) (err error) {
		switch f.num {
		case 1:
			r.Username, err = f.string()
		case 2:
			r.Password, err = f.string()
		case 3:
			r.PlaybackSettings = new(PlaybackSettings)
			err = f.message(r.PlaybackSettings)
		}
		return err
	})
}

// LoginResponse

func (r *LoginResponse) appendTo(b []byte) []byte {
	b = appendBool(b, 1, r.Success)
	b = appendString(b, 2, r.Error)
	return appendInt32(b, 3, int32(r.ErrorCode))
}

func (r *LoginResponse) decode(b []byte) error {
	return decodeFields(b, func(f *field) (err error) {
		switch f.num {
		case 1:
			r.Success, err = f.bool()
		case 2:
			r.Error, err = f.string()
		case 3:
			var v int32
			v, err = f.int32()
			r.ErrorCode = LoginError(v)
		}
		return err
	})
}

// PlaylistsUpdated

func (u *PlaylistsUpdated) appendTo(b []byte) []byte {
	for _, p := range u.Playlist {
		b = appendMessage(b, 1, p)
	}
	return b
}

func (u *PlaylistsUpdated) decode(b []byte) error {
	return decodeFields(b, func(f *field) error {
		if f.num != 1 {
			return nil
		}
		p := new(Playlist)
		if err := f.message(p); err != nil {
			return err
		}
		u.Playlist = append(u.Playlist, p)
		return nil
	})
}

// LoadPlaylistRequest

func (r *LoadPlaylistRequest) appendTo(b []byte) []byte {
	b = appendInt32(b, 1, int32(r.Type))
	return appendInt32(b, 2, r.UserPlaylistIndex)
}

func (r *LoadPlaylistRequest) decode(b []byte) error {
	return decodeFields(b, func(f *field) (err error) {
		switch f.num {
		case 1:
			var v int32
			v, err = f.int32()
			r.Type = PlaylistType(v)
		case 2:
			r.UserPlaylistIndex, err = f.int32()
		}
		return err
	})
}

// LoadPlaylistResponse

func (r *LoadPlaylistResponse) appendTo(b []byte) []byte {
	if r.Request != nil {
		b = appendMessage(b, 1, r.Request)
	}
	return appendTracks(b, 2, r.Track)
}

func (r *LoadPlaylistResponse) decode(b []byte) error {
	return decodeFields(b, func(f *field) (err error) {
		switch f.num {
		case 1:
			r.Request = new(LoadPlaylistRequest)
			err = f.message(r.Request)
		case 2:
			var t *Track
			t, err = f.track()
			r.Track = append(r.Track, t)
		}
		return err
	})
}

// PlaybackRequest

func (r *PlaybackRequest) appendTo(b []byte) []byte {
	b = appendString(b, 1, r.TrackURI)
	return appendInt32(b, 2, r.MediaPort)
}

func (r *PlaybackRequest) decode(b []byte) error {
	return decodeFields(b, func(f *field) (err error) {
		switch f.num {
		case 1:
			r.TrackURI, err = f.string()
		case 2:
			r.MediaPort, err = f.int32()
		}
		return err
	})
}

// PlaybackError

func (e *PlaybackError) appendTo(b []byte) []byte {
	return appendString(b, 1, e.Error)
}

func (e *PlaybackError) decode(b []byte) error {
	return decodeFields(b, func(f *field) (err error) {
		if f.num == 1 {
			e.Error, err = f.string()
		}
		return err
	})
}

// SearchRequest

func (r *SearchRequest) appendTo(b []byte) []byte {
	b = appendString(b, 1, r.Query)
	b = appendInt32(b, 2, r.Limit)
	return appendInt32(b, 3, r.LimitAlbum)
}

func (r *SearchRequest) decode(b []byte) error {
	return decodeFields(b, func(f *field) (err error) {
		switch f.num {
		case 1:
			r.Query, err = f.string()
		case 2:
			r.Limit, err = f.int32()
		case 3:
			r.LimitAlbum, err = f.int32()
		}
		return err
	})
}

// SearchResponse

func (r *SearchResponse) appendTo(b []byte) []byte {
	if r.Request != nil {
		b = appendMessage(b, 1, r.Request)
	}
	b = appendTracks(b, 2, r.Result)
	b = appendInt32(b, 3, r.TotalTracks)
	b = appendString(b, 4, r.DidYouMean)
	b = appendString(b, 5, r.Error)
	return appendAlbums(b, 6, r.Album)
}

func (r *SearchResponse) decode(b []byte) error {
	return decodeFields(b, func(f *field) (err error) {
		switch f.num {
		case 1:
			r.Request = new(SearchRequest)
			err = f.message(r.Request)
		case 2:
			var t *Track
			t, err = f.track()
			r.Result = append(r.Result, t)
		case 3:
			r.TotalTracks, err = f.int32()
		case 4:
			r.DidYouMean, err = f.string()
		case 5:
			r.Error, err = f.string()
		case 6:
			var a *Album
			a, err = f.album()
			r.Album = append(r.Album, a)
		}
		return err
	})
}

// ImageRequest

func (r *ImageRequest) appendTo(b []byte) []byte {
	return appendString(b, 1, r.ID)
}

func (r *ImageRequest) decode(b []byte) error {
	return decodeFields(b, func(f *field) (err error) {
		if f.num == 1 {
			r.ID, err = f.string()
		}
		return err
	})
}

// ImageResponse

func (r *ImageResponse) appendTo(b []byte) []byte {
	b = appendString(b, 1, r.ID)
	return appendBytes(b, 2, r.Data)
}

func (r *ImageResponse) decode(b []byte) error {
	return decodeFields(b, func(f *field) (err error) {
		switch f.num {
		case 1:
			r.ID, err = f.string()
		case 2:
			var v []byte
			v, err = f.bytes()
			r.Data = append([]byte(nil), v...)
		}
		return err
	})
}

// SyncPlaylistRequest

func (r *SyncPlaylistRequest) appendTo(b []byte) []byte {
	if r.Request != nil {
		b = appendMessage(b, 1, r.Request)
	}
	return appendBool(b, 2, r.OfflineSync)
}

func (r *SyncPlaylistRequest) decode(b []byte) error {
	return decodeFields(b, func(f *field) (err error) {
		switch f.num {
		case 1:
			r.Request = new(LoadPlaylistRequest)
			err = f.message(r.Request)
		case 2:
			r.OfflineSync, err = f.bool()
		}
		return err
	})
}

// SyncPlaylistProgress

func (p *SyncPlaylistProgress) appendTo(b []byte) []byte {
	if p.Request != nil {
		b = appendMessage(b, 1, p.Request)
	}
	return appendInt32(b, 2, p.SyncProgress)
}

func (p *SyncPlaylistProgress) decode(b []byte) error {
	return decodeFields(b, func(f *field) (err error) {
		switch f.num {
		case 1:
			p.Request = new(LoadPlaylistRequest)
			err = f.message(p.Request)
		case 2:
			p.SyncProgress, err = f.int32()
		}
		return err
	})
}

// BrowseAlbumRequest

func (r *BrowseAlbumRequest) appendTo(b []byte) []byte {
	return appendString(b, 1, r.URI)
}

func (r *BrowseAlbumRequest) decode(b []byte) error {
	return decodeFields(b, func(f *field) (err error) {
		if f.num == 1 {
			r.URI, err = f.string()
		}
		return err
	})
}

// BrowseAlbumResponse

func (r *BrowseAlbumResponse) appendTo(b []byte) []byte {
	b = appendString(b, 1, r.URI)
	b = appendTracks(b, 2, r.Track)
	return appendString(b, 3, r.Error)
}

func (r *BrowseAlbumResponse) decode(b []byte) error {
	return decodeFields(b, func(f *field) (err error) {
		switch f.num {
		case 1:
			r.URI, err = f.string()
		case 2:
			var t *Track
			t, err = f.track()
			r.Track = append(r.Track, t)
		case 3:
			r.Error, err = f.string()
		}
		return err
	})
}

// SeekRequest

func (r *SeekRequest) appendTo(b []byte) []byte {
	return appendInt64(b, 1, r.OffsetNsec)
}

func (r *SeekRequest) decode(b []byte) error {
	return decodeFields(b, func(f *field) (err error) {
		if f.num == 1 {
			r.OffsetNsec, err = f.int64()
		}
		return err
	})
}

// SetPlaybackSettingsRequest

func (r *SetPlaybackSettingsRequest) appendTo(b []byte) []byte {
	b = appendInt32(b, 1, int32(r.Bitrate))
	return appendBool(b, 2, r.VolumeNormalisation)
}

func (r *SetPlaybackSettingsRequest) decode(b []byte) error {
	return decodeFields(b, func(f *field) (err error) {
		switch f.num {
		case 1:
			var v int32
			v, err = f.int32()
			r.Bitrate = Bitrate(v)
		case 2:
			r.VolumeNormalisation, err = f.bool()
		}
		return err
	})
}

// BrowseToplistRequest

func (r *BrowseToplistRequest) appendTo(b []byte) []byte {
	b = appendInt32(b, 1, int32(r.Type))
	b = appendInt32(b, 2, int32(r.Region))
	return appendString(b, 3, r.Username)
}

func (r *BrowseToplistRequest) decode(b []byte) error {
	return decodeFields(b, func(f *field) (err error) {
		var v int32
		switch f.num {
		case 1:
			v, err = f.int32()
			r.Type = ToplistType(v)
		case 2:
			v, err = f.int32()
			r.Region = ToplistRegion(v)
		case 3:
			r.Username, err = f.string()
		}
		return err
	})
}

// BrowseToplistResponse

func (r *BrowseToplistResponse) appendTo(b []byte) []byte {
	if r.Request != nil {
		b = appendMessage(b, 1, r.Request)
	}
	b = appendTracks(b, 2, r.Track)
	b = appendAlbums(b, 3, r.Album)
	return appendString(b, 4, r.Error)
}

func (r *BrowseToplistResponse) decode(b []byte) error {
	return decodeFields(b, func(f *field) (err error) {
		switch f.num {
		case 1:
			r.Request = new(BrowseToplistRequest)
			err = f.message(r.Request)
		case 2:
			var t *Track
			t, err = f.track()
			r.Track = append(r.Track, t)
		case 3:
			var a *Album
			a, err = f.album()
			r.Album = append(r.Album, a)
		case 4:
			r.Error, err = f.string()
		}
		return err
	})
}

// PauseRequest

func (r *PauseRequest) appendTo(b []byte) []byte {
	return appendBool(b, 1, r.Paused)
}

func (r *PauseRequest) decode(b []byte) error {
	return decodeFields(b, func(f *field) (err error) {
		if f.num == 1 {
			r.Paused, err = f.bool()
		}
		return err
	})
}

// AddTracksToPlaylistRequest

func (r *AddTracksToPlaylistRequest) appendTo(b []byte) []byte {
	b = appendInt32(b, 1, int32(r.PlaylistType))
	b = appendInt32(b, 2, r.PlaylistIndex)
	for _, uri := range r.TrackURI {
		b = protowire.AppendTag(b, 3, protowire.BytesType)
		b = protowire.AppendString(b, uri)
	}
	return b
}

func (r *AddTracksToPlaylistRequest) decode(b []byte) error {
	return decodeFields(b, func(f *field) (err error) {
		switch f.num {
		case 1:
			var v int32
			v, err = f.int32()
			r.PlaylistType = PlaylistType(v)
		case 2:
			r.PlaylistIndex, err = f.int32()
		case 3:
			var uri string
			uri, err = f.string()
			r.TrackURI = append(r.TrackURI, uri)
		}
		return err
	})
}

// RemoveTracksFromPlaylistRequest

func (r *RemoveTracksFromPlaylistRequest) appendTo(b []byte) []byte {
	b = appendInt32(b, 1, int32(r.PlaylistType))
	b = appendInt32(b, 2, r.PlaylistIndex)
	for _, idx := range r.TrackIndex {
		b = appendVarintField(b, 3, uint64(idx))
	}
	return b
}

func (r *RemoveTracksFromPlaylistRequest) decode(b []byte) error {
	return decodeFields(b, func(f *field) (err error) {
		switch f.num {
		case 1:
			var v int32
			v, err = f.int32()
			r.PlaylistType = PlaylistType(v)
		case 2:
			r.PlaylistIndex, err = f.int32()
		case 3:
			r.TrackIndex, err = f.int64s(r.TrackIndex)
		}
		return err
	})
}
