// ABOUTME: Simulated offline sync for playlists
// ABOUTME: Marking a playlist offline walks it through waiting, downloading, and synced
package localsdk

import "github.com/spotblob/spotblob/internal/sdk"

// offlineSteps is how many progress reports a sync takes
const offlineSteps = 4

func (s *Session) setOffline(p *playlist, on bool) {
	p.syncGen++
	gen := p.syncGen

	if !on {
		if p.offline == sdk.OfflineNo {
			return
		}
		p.offline = sdk.OfflineNo
		p.completed = 0
		s.post(s.cb.OfflineStatusUpdated)
		return
	}
	if p.offline == sdk.OfflineYes {
		return
	}

	p.offline = sdk.OfflineWaiting
	p.completed = 0
	s.post(s.cb.OfflineStatusUpdated)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for step := 1; step <= offlineSteps; step++ {
			if !sleep(s.ctx, s.opts.LoadDelay) {
				return
			}
			s.post(func() {
				if p.syncGen != gen {
					return
				}
				p.completed = step * 100 / offlineSteps
				p.offline = sdk.OfflineDownloading
				if step == offlineSteps {
					p.offline = sdk.OfflineYes
				}
				s.cb.OfflineStatusUpdated()
			})
		}
	}()
}
