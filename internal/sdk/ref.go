// ABOUTME: Scoped ownership wrapper for reference-counted SDK handles
// ABOUTME: Guarantees one Release per acquired reference
package sdk

// Releaser is any handle the SDK reference counts
type Releaser interface {
	Release()
}

// Ref owns exactly one reference to an SDK handle. Release may be
// called any number of times; the handle is released only once.
// Ref is not safe for concurrent use.
type Ref[T Releaser] struct {
	v        T
	released bool
}

// Own takes ownership of one reference to v
func Own[T Releaser](v T) *Ref[T] {
	return &Ref[T]{v: v}
}

// Get returns the handle. It must not be used after Release.
func (r *Ref[T]) Get() T {
	return r.v
}

// Release drops the owned reference
func (r *Ref[T]) Release() {
	if r == nil || r.released {
		return
	}
	r.released = true
	r.v.Release()
}

// Released reports whether the reference has been dropped
func (r *Ref[T]) Released() bool {
	return r.released
}

// ReleaseAll releases every ref in refs
func ReleaseAll[T Releaser](refs []*Ref[T]) {
	for _, r := range refs {
		r.Release()
	}
}
