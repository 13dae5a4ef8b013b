// ABOUTME: TOML catalog served by the local SDK backend
// ABOUTME: Users, albums, tracks, playlists, inbox, and image sources with reference checks
package localsdk

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/spotblob/spotblob/internal/sdk"
)

const (
	trackPrefix = "spotify:track:"
	albumPrefix = "spotify:album:"
)

// Catalog is the parsed catalog file
type Catalog struct {
	Users     []UserEntry     `toml:"users"`
	Albums    []AlbumEntry    `toml:"albums"`
	Tracks    []TrackEntry    `toml:"tracks"`
	Playlists []PlaylistEntry `toml:"playlists"`
	Inbox     []string        `toml:"inbox"`
	Images    []ImageEntry    `toml:"images"`

	// Dir resolves relative audio and image paths
	Dir string `toml:"-"`
}

type UserEntry struct {
	Name     string `toml:"name"`
	Password string `toml:"password"`
	Banned   bool   `toml:"banned"`
	// Free accounts cannot stream
	Free bool `toml:"free"`
}

type AlbumEntry struct {
	URI    string `toml:"uri"`
	Name   string `toml:"name"`
	Artist string `toml:"artist"`
	Year   int    `toml:"year"`
	// Cover is a 40 digit hex image id
	Cover    string `toml:"cover"`
	CoverURL string `toml:"cover_url"`
}

type TrackEntry struct {
	URI        string   `toml:"uri"`
	Title      string   `toml:"title"`
	Artists    []string `toml:"artists"`
	Album      string   `toml:"album"`
	DurationMS int      `toml:"duration_ms"`
	Popularity int      `toml:"popularity"`
	Disc       int      `toml:"disc"`
	Index      int      `toml:"index"`
	Starred    bool     `toml:"starred"`
	File       string   `toml:"file"`
	ToneHz     float64  `toml:"tone_hz"`
	Unplayable bool     `toml:"unplayable"`
}

type PlaylistEntry struct {
	Name   string   `toml:"name"`
	Owner  string   `toml:"owner"`
	Tracks []string `toml:"tracks"`
	// Folder is "start" or "end" for folder markers
	Folder string `toml:"folder"`
}

type ImageEntry struct {
	ID   string `toml:"id"`
	File string `toml:"file"`
	URL  string `toml:"url"`
}

// imageSource is where an image's bytes come from
type imageSource struct {
	file string
	url  string
}

// LoadCatalog reads and validates a catalog file
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data, filepath.Dir(path))
}

// ParseCatalog parses catalog TOML; dir resolves relative paths
func ParseCatalog(data []byte, dir string) (*Catalog, error) {
	var c Catalog
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	c.Dir = dir
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	var errs []error

	albums := make(map[string]bool, len(c.Albums))
	for _, a := range c.Albums {
		if !strings.HasPrefix(a.URI, albumPrefix) {
			errs = append(errs, fmt.Errorf("album %q: uri must start with %s", a.URI, albumPrefix))
		}
		if albums[a.URI] {
			errs = append(errs, fmt.Errorf("album %q: duplicate uri", a.URI))
		}
		albums[a.URI] = true
		if a.Cover != "" {
			if _, err := parseHexID(a.Cover); err != nil {
				errs = append(errs, fmt.Errorf("album %q: %w", a.URI, err))
			}
		}
	}

	tracks := make(map[string]bool, len(c.Tracks))
	for _, t := range c.Tracks {
		if !strings.HasPrefix(t.URI, trackPrefix) {
			errs = append(errs, fmt.Errorf("track %q: uri must start with %s", t.URI, trackPrefix))
		}
		if tracks[t.URI] {
			errs = append(errs, fmt.Errorf("track %q: duplicate uri", t.URI))
		}
		tracks[t.URI] = true
		if t.Album != "" && !albums[t.Album] {
			errs = append(errs, fmt.Errorf("track %q: unknown album %q", t.URI, t.Album))
		}
		if t.File == "" && t.DurationMS <= 0 {
			errs = append(errs, fmt.Errorf("track %q: tone tracks need duration_ms", t.URI))
		}
	}

	for _, p := range c.Playlists {
		switch p.Folder {
		case "", "start", "end":
		default:
			errs = append(errs, fmt.Errorf("playlist %q: folder must be start or end", p.Name))
		}
		for _, uri := range p.Tracks {
			if !tracks[uri] {
				errs = append(errs, fmt.Errorf("playlist %q: unknown track %q", p.Name, uri))
			}
		}
	}
	for _, uri := range c.Inbox {
		if !tracks[uri] {
			errs = append(errs, fmt.Errorf("inbox: unknown track %q", uri))
		}
	}

	for _, img := range c.Images {
		if _, err := parseHexID(img.ID); err != nil {
			errs = append(errs, fmt.Errorf("image %q: %w", img.ID, err))
		}
		if (img.File == "") == (img.URL == "") {
			errs = append(errs, fmt.Errorf("image %q: exactly one of file or url is required", img.ID))
		}
	}

	users := make(map[string]bool, len(c.Users))
	for _, u := range c.Users {
		if u.Name == "" {
			errs = append(errs, errors.New("user with empty name"))
		}
		if users[u.Name] {
			errs = append(errs, fmt.Errorf("user %q: duplicate name", u.Name))
		}
		users[u.Name] = true
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid catalog: %w", errors.Join(errs...))
	}
	return nil
}

func (c *Catalog) user(name string) (UserEntry, bool) {
	for _, u := range c.Users {
		if u.Name == name {
			return u, true
		}
	}
	return UserEntry{}, false
}

// path resolves a catalog-relative path
func (c *Catalog) path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Dir, p)
}

// coverID is an album's cover id; a cover_url without an explicit id
// gets the SHA-1 of the url
func (a AlbumEntry) coverID() (sdk.ImageID, bool) {
	if a.Cover != "" {
		id, err := parseHexID(a.Cover)
		return id, err == nil
	}
	if a.CoverURL != "" {
		return sha1.Sum([]byte(a.CoverURL)), true
	}
	return sdk.ImageID{}, false
}

// imageSources maps every image id to where its bytes live
func (c *Catalog) imageSources() map[sdk.ImageID]imageSource {
	out := make(map[sdk.ImageID]imageSource)
	for _, a := range c.Albums {
		if id, ok := a.coverID(); ok && a.CoverURL != "" {
			out[id] = imageSource{url: a.CoverURL}
		}
	}
	for _, img := range c.Images {
		id, err := parseHexID(img.ID)
		if err != nil {
			continue
		}
		if img.File != "" {
			out[id] = imageSource{file: c.path(img.File)}
		} else {
			out[id] = imageSource{url: img.URL}
		}
	}
	return out
}

func parseHexID(s string) (sdk.ImageID, error) {
	var id sdk.ImageID
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != len(id) {
		return id, fmt.Errorf("image id %q must be %d hex digits", s, 2*len(id))
	}
	copy(id[:], b)
	return id, nil
}
