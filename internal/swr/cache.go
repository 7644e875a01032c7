// Package swr implements a stale-while-revalidate cache shared by polling
// subscriptions. Entries are keyed by request path; a failed revalidation
// keeps the last good data next to the error.
package swr

import (
	"context"
	"sync"
	"time"

	mcerrors "github.com/rcourtman/mission-control/internal/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// MetricHooks receives cache instrumentation events. Nil funcs are skipped.
type MetricHooks struct {
	OnFetch          func(name string, err error, duration time.Duration)
	OnStaleDiscarded func(name string)
	OnEntries        func(count int)
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithLogger sets the cache logger.
func WithLogger(logger zerolog.Logger) CacheOption {
	return func(c *Cache) { c.logger = logger }
}

// WithIdleRetention sets how long an entry with no subscribers and no fetch
// in flight is kept before it is evicted. Zero evicts as soon as it goes idle.
func WithIdleRetention(d time.Duration) CacheOption {
	return func(c *Cache) { c.idleRetention = d }
}

// WithClock overrides time.Now for dedupe and retention bookkeeping.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) { c.now = now }
}

type entry struct {
	data    any
	hasData bool
	err     error

	pending    int // revalidations issued and not yet returned
	lastIssued time.Time

	// issued is bumped for every request started for this key; applied is the
	// generation of the newest result stored. Results with gen <= applied are
	// dropped.
	issued  uint64
	applied uint64

	listeners map[uint64]func()
	idleSince time.Time // zero while subscribed or fetching
}

func (e *entry) idle() bool {
	return len(e.listeners) == 0 && e.pending == 0
}

// Cache is the shared state behind every subscription.
type Cache struct {
	ctx    context.Context
	cancel context.CancelFunc
	flight singleflight.Group
	wg     sync.WaitGroup
	now    func() time.Time
	logger zerolog.Logger

	idleRetention time.Duration

	mu      sync.Mutex
	entries map[string]*entry
	focus   map[uint64]func()
	nextID  uint64
	hooks   MetricHooks
	closed  bool
}

// DefaultIdleRetention is how long unsubscribed entries survive by default.
const DefaultIdleRetention = 5 * time.Minute

// NewCache creates a cache whose fetches run on a context derived from ctx.
// Fetches are not aborted when a subscriber goes away, only when the cache
// is closed.
func NewCache(ctx context.Context, opts ...CacheOption) *Cache {
	if ctx == nil {
		ctx = context.Background()
	}
	cctx, cancel := context.WithCancel(ctx)
	c := &Cache{
		ctx:           cctx,
		cancel:        cancel,
		now:           time.Now,
		logger:        zerolog.Nop(),
		idleRetention: DefaultIdleRetention,
		entries:       make(map[string]*entry),
		focus:         make(map[uint64]func()),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetMetricHooks installs instrumentation callbacks.
func (c *Cache) SetMetricHooks(hooks MetricHooks) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks = hooks
}

// Focus revalidates every focus-enabled subscription, subject to each key's
// dedupe window.
func (c *Cache) Focus() {
	c.mu.Lock()
	callbacks := make([]func(), 0, len(c.focus))
	for _, fn := range c.focus {
		callbacks = append(callbacks, fn)
	}
	c.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
}

// Len returns the number of cached keys.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close cancels in-flight fetches and waits for them to return. Results that
// arrive after Close are not applied.
func (c *Cache) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
}

func (c *Cache) nextIDLocked() uint64 {
	c.nextID++
	return c.nextID
}

func (c *Cache) entryLocked(key string) *entry {
	e, ok := c.entries[key]
	if !ok {
		c.sweepLocked()
		e = &entry{listeners: make(map[uint64]func())}
		c.entries[key] = e
		c.reportEntriesLocked()
	}
	return e
}

// markIdleLocked starts the retention clock once e has no subscribers and
// nothing in flight.
func (c *Cache) markIdleLocked(e *entry) {
	if e.idle() && e.idleSince.IsZero() {
		e.idleSince = c.now()
	}
}

// sweepLocked evicts entries idle for longer than the retention window.
func (c *Cache) sweepLocked() {
	now := c.now()
	evicted := 0
	for key, e := range c.entries {
		if e.idle() && !e.idleSince.IsZero() && now.Sub(e.idleSince) >= c.idleRetention {
			delete(c.entries, key)
			evicted++
		}
	}
	if evicted > 0 {
		c.logger.Debug().Int("evicted", evicted).Int("entries", len(c.entries)).Msg("Evicted idle cache entries")
		c.reportEntriesLocked()
	}
}

func (c *Cache) reportEntriesLocked() {
	if c.hooks.OnEntries != nil {
		c.hooks.OnEntries(len(c.entries))
	}
}

func (c *Cache) addListener(key string, fn func()) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextIDLocked()
	e := c.entryLocked(key)
	e.listeners[id] = fn
	e.idleSince = time.Time{}
	return id
}

func (c *Cache) removeListener(key string, id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.focus, id)
	e, ok := c.entries[key]
	if !ok {
		return
	}
	delete(e.listeners, id)
	c.markIdleLocked(e)
	c.sweepLocked()
}

func (c *Cache) addFocus(id uint64, fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.focus[id] = fn
}

func (c *Cache) notify(key string) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		return
	}
	listeners := make([]func(), 0, len(e.listeners))
	for _, fn := range e.listeners {
		listeners = append(listeners, fn)
	}
	c.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

// snapshot returns the raw entry state for key.
func (c *Cache) snapshot(key string) (data any, hasData bool, loading bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false, false, nil
	}
	return e.data, e.hasData, e.pending > 0 && !e.hasData, e.err
}

// resolved reports whether any result, success or failure, has been applied
// for key.
func (c *Cache) resolved(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return ok && e.applied > 0
}

// revalidate starts a fetch for key unless one was issued within dedupe.
// force bypasses the window and detaches any in-flight call so a new request
// goes out. Reports whether a request was started or joined.
func (c *Cache) revalidate(key, name string, fetch func(context.Context) (any, error), dedupe time.Duration, force bool) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	e := c.entryLocked(key)
	now := c.now()
	if !force && !e.lastIssued.IsZero() && now.Sub(e.lastIssued) < dedupe {
		c.mu.Unlock()
		c.logger.Debug().Str("key", key).Msg("Revalidation deduplicated")
		return false
	}
	e.lastIssued = now
	e.pending++
	e.idleSince = time.Time{}
	c.wg.Add(1)
	c.mu.Unlock()
	c.notify(key)

	if force {
		c.flight.Forget(key)
	}

	go func() {
		defer c.wg.Done()
		_, _, _ = c.flight.Do(key, func() (any, error) {
			c.fetch(key, name, fetch)
			return nil, nil
		})

		c.mu.Lock()
		e.pending--
		c.markIdleLocked(e)
		c.mu.Unlock()
		c.notify(key)
	}()
	return true
}

func (c *Cache) fetch(key, name string, fetch func(context.Context) (any, error)) {
	c.mu.Lock()
	e := c.entryLocked(key)
	e.issued++
	gen := e.issued
	hooks := c.hooks
	c.mu.Unlock()

	started := time.Now()
	data, err := fetch(c.ctx)
	elapsed := time.Since(started)

	if hooks.OnFetch != nil {
		hooks.OnFetch(name, err, elapsed)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	stale := gen <= e.applied
	if !stale {
		e.applied = gen
		if err != nil {
			e.err = err
		} else {
			e.data = data
			e.hasData = true
			e.err = nil
		}
	}
	c.mu.Unlock()

	switch {
	case stale:
		if hooks.OnStaleDiscarded != nil {
			hooks.OnStaleDiscarded(name)
		}
		c.logger.Debug().Str("key", key).Uint64("generation", gen).Msg("Discarded stale response")
	case err != nil:
		c.logger.Warn().Err(err).Str("key", key).Bool("retryable", mcerrors.IsRetryableError(err)).Dur("elapsed", elapsed).Msg("Revalidation failed")
	default:
		c.logger.Debug().Str("key", key).Dur("elapsed", elapsed).Msg("Revalidated")
	}

	c.notify(key)
}
