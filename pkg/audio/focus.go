package audio

// Focus models the platform's exclusive audio-resource ownership. The
// manager calls through it and never owns the underlying resource; a
// platform binding can revoke focus at any time (e.g. a phone call).
type Focus interface {
	Acquire() error
	Release()
	// OnRevoked registers a callback fired when the platform takes the
	// resource away.
	OnRevoked(func())
}

// noopFocus satisfies Focus where the platform has no audio focus concept.
type noopFocus struct{}

func (noopFocus) Acquire() error   { return nil }
func (noopFocus) Release()         {}
func (noopFocus) OnRevoked(func()) {}
