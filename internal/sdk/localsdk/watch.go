// ABOUTME: Catalog file watching
// ABOUTME: Reloads the catalog on change and reports the container as changed
package localsdk

import (
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// watch follows the catalog's directory; editors often replace files
// rather than writing them in place
func (s *Session) watch(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	s.watcher = w

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				c, err := LoadCatalog(abs)
				if err != nil {
					// a half-written file is retried on its next write
					s.log.Warn("catalog reload failed", zap.Error(err))
					continue
				}
				s.post(func() { s.reload(c) })
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.log.Warn("catalog watcher error", zap.Error(err))
			case <-s.ctx.Done():
				return
			}
		}
	}()
	return nil
}

func (s *Session) reload(c *Catalog) {
	s.applyCatalog(c)
	s.log.Info("catalog reloaded",
		zap.Int("tracks", len(c.Tracks)),
		zap.Int("playlists", len(c.Playlists)))
	if s.metadataLoaded {
		s.cb.ContainerChanged()
		s.cb.MetadataUpdated()
	}
}
