// Package live provides observable value cells that replay their latest
// value to new subscribers.
package live

import "sync"

// Observable is the read-only view of a Cell.
type Observable[T any] interface {
	// Get returns the latest value.
	Get() T
	// Subscribe registers fn and calls it immediately with the latest value,
	// then again on every Set. The returned func removes the subscription.
	// It may be called from inside another callback of the same cell.
	Subscribe(fn func(T)) (cancel func())
}

// Cell holds the latest value of T.
// Set is meant for a single writer and must not be called from one of the
// cell's own callbacks; Get and Subscribe may be called from anywhere.
type Cell[T any] struct {
	mu      sync.RWMutex
	value   T
	version uint64

	// write serialises Set so every subscriber sees values in Set order.
	write sync.Mutex

	subs   map[uint64]*subscriber[T]
	nextID uint64
}

// subscriber delivers versions in increasing order and skips any value
// older than the last one it handed to fn.
type subscriber[T any] struct {
	fn   func(T)
	mu   sync.Mutex
	seen uint64
}

func (s *subscriber[T]) offer(version uint64, v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if version <= s.seen {
		return
	}
	s.seen = version
	s.fn(v)
}

// Verify Cell implements Observable at compile time.
var _ Observable[int] = (*Cell[int])(nil)

// NewCell creates a cell holding initial.
func NewCell[T any](initial T) *Cell[T] {
	return &Cell[T]{
		value:   initial,
		version: 1,
		subs:    make(map[uint64]*subscriber[T]),
	}
}

// Get returns the latest value.
func (c *Cell[T]) Get() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

// Set stores v and notifies every subscriber, even when v equals the
// previous value.
func (c *Cell[T]) Set(v T) {
	c.write.Lock()
	defer c.write.Unlock()

	c.mu.Lock()
	c.version++
	version := c.version
	c.value = v
	subs := make([]*subscriber[T], 0, len(c.subs))
	for _, s := range c.subs {
		subs = append(subs, s)
	}
	c.mu.Unlock()

	for _, s := range subs {
		s.offer(version, v)
	}
}

// Subscribe registers fn and replays the current value to it. A Set racing
// with the replay wins: fn never sees the replayed value after a newer one.
func (c *Cell[T]) Subscribe(fn func(T)) func() {
	s := &subscriber[T]{fn: fn}

	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = s
	version, current := c.version, c.value
	c.mu.Unlock()

	s.offer(version, current)

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			delete(c.subs, id)
		})
	}
}

// SubscriberCount returns the number of active subscriptions.
func (c *Cell[T]) SubscriberCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.subs)
}

// ReadOnly returns c as an Observable so callers cannot Set it.
func (c *Cell[T]) ReadOnly() Observable[T] {
	return readOnly[T]{c: c}
}

type readOnly[T any] struct {
	c *Cell[T]
}

func (r readOnly[T]) Get() T { return r.c.Get() }

func (r readOnly[T]) Subscribe(fn func(T)) func() { return r.c.Subscribe(fn) }
