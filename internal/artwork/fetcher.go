// ABOUTME: Cover art fetcher for catalog images
// ABOUTME: Downloads image bytes over HTTP and keeps them in a disk cache
package artwork

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// MaxImageSize bounds a single download
const MaxImageSize = 16 << 20

// Fetcher downloads artwork into cacheDir. It is safe for concurrent
// use; concurrent fetches of one URL share a single download.
type Fetcher struct {
	cacheDir string
	client   *http.Client
	log      *zap.Logger
	group    singleflight.Group
}

// New creates a fetcher caching under cacheDir
func New(cacheDir string, client *http.Client, log *zap.Logger) (*Fetcher, error) {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Fetcher{
		cacheDir: cacheDir,
		client:   client,
		log:      log.Named("artwork"),
	}, nil
}

// Path is where url is cached
func (f *Fetcher) Path(rawURL string) string {
	hash := sha256.Sum256([]byte(rawURL))
	return filepath.Join(f.cacheDir, fmt.Sprintf("%x%s", hash[:8], getExtension(rawURL)))
}

// Fetch returns the image at url, from cache when present
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if rawURL == "" {
		return nil, errors.New("empty artwork url")
	}

	cached := f.Path(rawURL)
	if data, err := os.ReadFile(cached); err == nil {
		f.log.Debug("artwork cache hit", zap.String("path", cached))
		return data, nil
	}

	v, err, _ := f.group.Do(rawURL, func() (any, error) {
		return f.download(ctx, rawURL, cached)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (f *Fetcher) download(ctx context.Context, rawURL, cached string) ([]byte, error) {
	f.log.Debug("downloading artwork", zap.String("url", rawURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build artwork request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download artwork: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("artwork download failed: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxImageSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read artwork: %w", err)
	}
	if len(data) > MaxImageSize {
		return nil, fmt.Errorf("artwork exceeds %d bytes", MaxImageSize)
	}

	// write then rename so readers never see a partial file
	tmp, err := os.CreateTemp(f.cacheDir, ".artwork-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create cache file: %w", err)
	}
	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if werr == nil && cerr == nil {
		werr = os.Rename(tmp.Name(), cached)
	}
	if werr != nil || cerr != nil {
		os.Remove(tmp.Name())
		f.log.Warn("failed to cache artwork", zap.String("url", rawURL), zap.Error(errors.Join(werr, cerr)))
	} else {
		f.log.Debug("artwork saved", zap.String("path", cached))
	}
	return data, nil
}

// getExtension extracts the file extension from a URL's path
func getExtension(raw string) string {
	ext := ""
	if u, err := url.Parse(raw); err == nil {
		ext = path.Ext(u.Path)
	}
	if ext == "" {
		ext = ".jpg"
	}
	return ext
}

// Cleanup removes cached artwork
func (f *Fetcher) Cleanup() error {
	return os.RemoveAll(f.cacheDir)
}
