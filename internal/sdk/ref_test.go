// ABOUTME: Tests for scoped handle ownership and error codes
// ABOUTME: Verifies exactly-once release and error text mapping
package sdk

import (
	"errors"
	"fmt"
	"testing"
)

type counted struct {
	releases int
}

func (c *counted) Release() { c.releases++ }

func TestRefReleasesOnce(t *testing.T) {
	h := &counted{}
	r := Own(h)

	if r.Get() != h {
		t.Fatal("Get returned a different handle")
	}
	for i := 0; i < 3; i++ {
		r.Release()
	}
	if h.releases != 1 {
		t.Errorf("expected 1 release, got %d", h.releases)
	}
	if !r.Released() {
		t.Error("Released() = false after Release")
	}
}

func TestReleaseAllSkipsNil(t *testing.T) {
	a, b := &counted{}, &counted{}
	refs := []*Ref[*counted]{Own(a), nil, Own(b)}

	ReleaseAll(refs)
	ReleaseAll(refs)

	if a.releases != 1 || b.releases != 1 {
		t.Errorf("releases = %d, %d; want 1, 1", a.releases, b.releases)
	}
}

func TestErrorText(t *testing.T) {
	tests := []struct {
		err  Error
		want string
	}{
		{ErrBadUsernameOrPassword, "Incorrect username or password"},
		{ErrTrackNotPlayable, "Track not playable"},
		{Error(999), "Unknown error"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error(%d).Error() = %q, want %q", int(tt.err), got, tt.want)
		}
	}
}

func TestCode(t *testing.T) {
	wrapped := fmt.Errorf("login: %w", ErrUserBanned)

	if got := Code(wrapped); got != ErrUserBanned {
		t.Errorf("Code(wrapped) = %v, want ErrUserBanned", got)
	}
	if got := Code(nil); got != OK {
		t.Errorf("Code(nil) = %v, want OK", got)
	}
	if got := Code(errors.New("other")); got != ErrOtherPermanent {
		t.Errorf("Code(other) = %v, want ErrOtherPermanent", got)
	}
}
