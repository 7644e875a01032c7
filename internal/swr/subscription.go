package swr

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Fetcher loads the value for one key.
type Fetcher[T any] func(ctx context.Context) (T, error)

// Options controls how a subscription revalidates.
type Options struct {
	Name              string // metrics/log label; defaults to the key
	RefreshInterval   time.Duration
	DedupingInterval  time.Duration
	RevalidateOnFocus bool
}

// State is the observable state of one subscription. Data keeps the last
// successful value while Err reports the most recent failure. IsLoading is
// only true while the first fetch for the key is in flight.
type State[T any] struct {
	Data      T
	IsLoading bool
	Err       error
}

// Subscription is a live view of one cache key.
type Subscription[T any] struct {
	cache *Cache
	key   string
	opts  Options
	fetch func(context.Context) (any, error)

	id       uint64
	disabled bool
	updates  chan struct{}
	done     chan struct{}

	mu     sync.Mutex
	closed bool
}

// Subscribe registers interest in key, fetching immediately unless the key was
// requested within opts.DedupingInterval. An empty key yields a disabled
// subscription that never fetches and always reports the zero state.
func Subscribe[T any](c *Cache, key string, fetch Fetcher[T], opts Options) *Subscription[T] {
	s := &Subscription[T]{
		cache:   c,
		key:     key,
		opts:    opts,
		updates: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	if s.opts.Name == "" {
		s.opts.Name = key
	}

	if key == "" {
		s.disabled = true
		return s
	}

	s.fetch = func(ctx context.Context) (any, error) {
		return fetch(ctx)
	}
	s.id = c.addListener(key, s.signal)
	if opts.RevalidateOnFocus {
		c.addFocus(s.id, func() { s.Revalidate() })
	}

	s.Revalidate()

	if opts.RefreshInterval > 0 {
		go s.refreshLoop()
	}
	return s
}

// Key returns the cache key, empty when disabled.
func (s *Subscription[T]) Key() string { return s.key }

// Disabled reports whether the subscription was created without a key.
func (s *Subscription[T]) Disabled() bool { return s.disabled }

// State returns the current state for the key.
func (s *Subscription[T]) State() State[T] {
	var st State[T]
	if s.disabled {
		return st
	}
	data, hasData, loading, err := s.cache.snapshot(s.key)
	if hasData {
		if v, ok := data.(T); ok {
			st.Data = v
		}
	}
	st.IsLoading = loading
	st.Err = err
	return st
}

// Wait blocks until the key has a first result (data or error), then returns
// the state. Disabled subscriptions return the zero state immediately.
func (s *Subscription[T]) Wait(ctx context.Context) (State[T], error) {
	if s.disabled {
		return State[T]{}, nil
	}

	changed := make(chan struct{}, 1)
	id := s.cache.addListener(s.key, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer s.cache.removeListener(s.key, id)

	for {
		if s.cache.resolved(s.key) {
			return s.State(), nil
		}
		select {
		case <-changed:
		case <-s.done:
			return s.State(), fmt.Errorf("subscription %s closed", s.key)
		case <-s.cache.ctx.Done():
			return s.State(), s.cache.ctx.Err()
		case <-ctx.Done():
			return s.State(), ctx.Err()
		}
	}
}

// Updates signals after every state change. The channel holds at most one
// pending signal and is never closed; select on Done as well.
func (s *Subscription[T]) Updates() <-chan struct{} { return s.updates }

// Done is closed by Close.
func (s *Subscription[T]) Done() <-chan struct{} { return s.done }

// Revalidate requests a refetch, honouring the dedupe window.
func (s *Subscription[T]) Revalidate() bool {
	if s.disabled || s.isClosed() {
		return false
	}
	return s.cache.revalidate(s.key, s.opts.Name, s.fetch, s.opts.DedupingInterval, false)
}

// Refresh forces a new request regardless of the dedupe window or any call
// already in flight.
func (s *Subscription[T]) Refresh() bool {
	if s.disabled || s.isClosed() {
		return false
	}
	return s.cache.revalidate(s.key, s.opts.Name, s.fetch, s.opts.DedupingInterval, true)
}

// Close stops interval refresh and state delivery. Requests already in flight
// still complete and update the shared cache.
func (s *Subscription[T]) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.done)
	s.mu.Unlock()

	if !s.disabled {
		s.cache.removeListener(s.key, s.id)
	}
}

func (s *Subscription[T]) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Subscription[T]) signal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.updates <- struct{}{}:
	default:
	}
}

func (s *Subscription[T]) refreshLoop() {
	ticker := time.NewTicker(s.opts.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Revalidate()
		case <-s.done:
			return
		case <-s.cache.ctx.Done():
			return
		}
	}
}
