package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultTTL is how long a loaded value is served before it is reloaded.
const DefaultTTL = time.Hour

// DefaultLoadTimeout bounds one shared load.
const DefaultLoadTimeout = 2 * time.Minute

// Observer is told about every lookup.
type Observer interface {
	CacheLookup(hit bool)
}

type entry struct {
	val     any
	expires time.Time
}

// Cache memoizes loader results by key for a fixed TTL. Errors are never
// stored, and concurrent misses on one key share a single load. It is safe
// for concurrent use.
type Cache struct {
	ttl         time.Duration
	loadTimeout time.Duration
	now         func() time.Time
	obs         Observer
	group       singleflight.Group

	mu      sync.RWMutex
	entries map[string]entry
}

// Option configures a Cache.
type Option func(*Cache)

// WithLoadTimeout bounds each shared load. d <= 0 keeps DefaultLoadTimeout.
func WithLoadTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.loadTimeout = d
		}
	}
}

// New creates a cache. ttl <= 0 selects DefaultTTL. obs may be nil.
func New(ttl time.Duration, obs Observer, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		ttl:         ttl,
		loadTimeout: DefaultLoadTimeout,
		now:         time.Now,
		obs:         obs,
		entries:     make(map[string]entry),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Cache) lookup(key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || !c.now().Before(e.expires) {
		return nil, false
	}
	return e.val, true
}

func (c *Cache) store(key string, val any) {
	c.mu.Lock()
	c.entries[key] = entry{val: val, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

func (c *Cache) observe(hit bool) {
	if c.obs != nil {
		c.obs.CacheLookup(hit)
	}
}

// Invalidate drops every entry.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
}

// Get returns the cached value for key or calls load and caches its result.
// Concurrent callers share one load, so it runs detached from the caller's
// cancellation and is bounded by the load timeout instead: a caller that
// goes away does not fail the others.
func Get[T any](ctx context.Context, c *Cache, key string, load func(context.Context) (T, error)) (T, error) {
	if v, ok := c.lookup(key); ok {
		if t, ok := v.(T); ok {
			c.observe(true)
			return t, nil
		}
	}
	c.observe(false)

	v, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := c.lookup(key); ok {
			return v, nil
		}
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.loadTimeout)
		defer cancel()
		t, err := load(lctx)
		if err != nil {
			return nil, err
		}
		c.store(key, t)
		return t, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("cache: key %q holds %T", key, v)
	}
	return t, nil
}
