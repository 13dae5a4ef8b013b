// ABOUTME: Tests for local audio delivery
// ABOUTME: Load errors, full delivery to end of track, retries, seeking, and unloading
package localsdk

import (
	"errors"
	"testing"
	"time"

	"github.com/spotblob/spotblob/internal/sdk"
	"github.com/spotblob/spotblob/pkg/audio"
)

func TestPlayerLoadErrors(t *testing.T) {
	f := newFixture(t, Options{})

	if err := f.session.PlayerLoad(f.track(t, "spotify:track:t1")); !errors.Is(err, sdk.ErrIsLoading) {
		t.Errorf("before metadata: %v", err)
	}

	f.login(t)
	if err := f.session.PlayerLoad(f.track(t, "spotify:track:t3")); !errors.Is(err, sdk.ErrTrackNotPlayable) {
		t.Errorf("unplayable track: %v", err)
	}
	if err := f.session.PlayerLoad(f.track(t, "spotify:track:gone")); !errors.Is(err, sdk.ErrTrackNotPlayable) {
		t.Errorf("unknown track: %v", err)
	}
	if err := f.session.PlayerLoad(nil); !errors.Is(err, sdk.ErrInvalidIndata) {
		t.Errorf("nil track: %v", err)
	}
}

func TestPlayerDeliversWholeTrack(t *testing.T) {
	f := newFixture(t, Options{})
	f.login(t)

	if err := f.session.PlayerLoad(f.track(t, "spotify:track:t1")); err != nil {
		t.Fatalf("PlayerLoad: %v", err)
	}
	if err := f.session.PlayerPlay(true); err != nil {
		t.Fatal(err)
	}
	pump(t, f.session, f.rec.has("EndOfTrack"))

	want := toneFormat.Bytes(200 * time.Millisecond)
	if got := f.rec.bytesDelivered(); got != want {
		t.Errorf("delivered %d bytes, want %d", got, want)
	}
	f.session.PlayerUnload()
}

func TestPlayerRetriesWhenConsumerIsFull(t *testing.T) {
	f := newFixture(t, Options{})
	f.login(t)

	refusals := 3
	f.rec.mu.Lock()
	f.rec.consume = func(n int) int {
		if refusals > 0 {
			refusals--
			return 0
		}
		// take half of each chunk to exercise partial consumption
		return max(n/2, 1)
	}
	f.rec.mu.Unlock()

	if err := f.session.PlayerLoad(f.track(t, "spotify:track:t2")); err != nil {
		t.Fatal(err)
	}
	f.session.PlayerPlay(true)
	pump(t, f.session, f.rec.has("EndOfTrack"))

	if got, want := f.rec.bytesDelivered(), toneFormat.Bytes(200*time.Millisecond); got != want {
		t.Errorf("delivered %d bytes, want %d", got, want)
	}
}

func TestPlayerSeekBeforePlay(t *testing.T) {
	f := newFixture(t, Options{})
	f.login(t)

	if err := f.session.PlayerSeek(time.Second); !errors.Is(err, sdk.ErrIsLoading) {
		t.Errorf("seek without a track: %v", err)
	}
	if err := f.session.PlayerLoad(f.track(t, "spotify:track:t1")); err != nil {
		t.Fatal(err)
	}
	if err := f.session.PlayerSeek(150 * time.Millisecond); err != nil {
		t.Fatalf("PlayerSeek: %v", err)
	}
	f.session.PlayerPlay(true)
	pump(t, f.session, f.rec.has("EndOfTrack"))

	want := toneFormat.Bytes(200*time.Millisecond) - toneFormat.Bytes(150*time.Millisecond)
	if got := f.rec.bytesDelivered(); got != want {
		t.Errorf("delivered %d bytes after seek, want %d", got, want)
	}
}

func TestPlayerUnloadStopsDelivery(t *testing.T) {
	f := newFixture(t, Options{})
	f.login(t)

	// a consumer that never accepts keeps the player busy until unloaded
	f.rec.mu.Lock()
	f.rec.consume = func(int) int { return 0 }
	f.rec.mu.Unlock()

	if err := f.session.PlayerLoad(f.track(t, "spotify:track:t1")); err != nil {
		t.Fatal(err)
	}
	f.session.PlayerPlay(true)
	settle(f.session, 30*time.Millisecond)

	done := make(chan struct{})
	go func() {
		f.session.PlayerUnload()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("PlayerUnload did not return")
	}

	settle(f.session, 20*time.Millisecond)
	if f.rec.count("EndOfTrack") != 0 {
		t.Error("EndOfTrack after unload")
	}
}

func TestPlayerPauseHoldsDelivery(t *testing.T) {
	f := newFixture(t, Options{})
	f.login(t)

	if err := f.session.PlayerLoad(f.track(t, "spotify:track:t1")); err != nil {
		t.Fatal(err)
	}
	// loaded but never played
	settle(f.session, 30*time.Millisecond)
	if f.rec.bytesDelivered() != 0 {
		t.Fatal("audio delivered before PlayerPlay")
	}

	f.session.PlayerPlay(true)
	f.session.PlayerPlay(false)
	f.session.PlayerPlay(true)
	pump(t, f.session, f.rec.has("EndOfTrack"))
}

func TestPlayerVolumeNormalization(t *testing.T) {
	f := newFixture(t, Options{})
	f.login(t)
	f.session.SetVolumeNormalization(true)

	var peak int16
	f.rec.mu.Lock()
	f.rec.inspect = func(pcm []byte) {
		for i := 0; i < len(pcm)/2; i++ {
			peak = max(peak, audio.Sample(pcm, i))
		}
	}
	f.rec.mu.Unlock()

	if err := f.session.PlayerLoad(f.track(t, "spotify:track:t1")); err != nil {
		t.Fatal(err)
	}
	f.session.PlayerPlay(true)
	pump(t, f.session, f.rec.has("EndOfTrack"))

	f.rec.mu.Lock()
	defer f.rec.mu.Unlock()
	// tones peak at 0.3 of full scale before normalization
	want := 0.3 * normalizationGain * audio.MaxInt16
	if got := float64(peak); got > want+1 || got < want*0.9 {
		t.Errorf("peak %d, expected about %.0f", peak, want)
	}
}
