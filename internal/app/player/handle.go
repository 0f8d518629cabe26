// Package player provides the playback service, the handle registry observers
// read it through, and the launcher that starts it.
package player

import (
	"sync/atomic"

	"github.com/osa030/playsync/internal/domain/audio"
)

// Handle is a non-owning reference to a running playback service.
// A handle may go stale at any time; every method must stay safe to call
// after the service has been destroyed.
type Handle interface {
	ID() string
	Item() *audio.Item
	IsPlaying() bool
	Stop()
	PauseOrResume()
}

// HandleProvider returns the currently running service, or nil.
type HandleProvider interface {
	Current() Handle
}

// CommandSink accepts start commands. Start is fire-and-forget.
type CommandSink interface {
	Start(item audio.Item)
}

type handleBox struct {
	h Handle
}

// Registry holds the current service handle with atomic visibility.
type Registry struct {
	current atomic.Pointer[handleBox]
}

// Verify Registry implements HandleProvider at compile time.
var _ HandleProvider = (*Registry)(nil)

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Current returns the attached handle, or nil.
func (r *Registry) Current() Handle {
	if b := r.current.Load(); b != nil {
		return b.h
	}
	return nil
}

// Attach makes h the current handle, replacing any previous one.
func (r *Registry) Attach(h Handle) {
	if h == nil {
		r.current.Store(nil)
		return
	}
	r.current.Store(&handleBox{h: h})
}

// Detach clears the registry only if h is still the current handle.
// It reports whether h was detached.
func (r *Registry) Detach(h Handle) bool {
	for {
		b := r.current.Load()
		if b == nil || b.h != h {
			return false
		}
		if r.current.CompareAndSwap(b, nil) {
			return true
		}
	}
}
