// Package cache provides the size- and time-bounded caches the answering
// pipeline reads through: text → embedding and (tenant, vector) →
// retrieval result. Caches are injected, never ambient, so tests can swap
// in Nop.
package cache

import (
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// Cache is a bounded TTL cache keyed by string. Entries expire after the
// configured TTL; eviction under size pressure is the backing store's
// frequency-based policy. Staleness window equals the TTL.
type Cache[V any] interface {
	Get(key string) (V, bool)
	Set(key string, value V)
	Close()
}

type ristrettoCache[V any] struct {
	inner *ristretto.Cache[string, V]
	ttl   time.Duration
}

// New builds a ristretto-backed cache holding at most maxEntries values,
// each expiring ttl after write.
func New[V any](maxEntries int64, ttl time.Duration) (Cache[V], error) {
	inner, err := ristretto.NewCache(&ristretto.Config[string, V]{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &ristrettoCache[V]{inner: inner, ttl: ttl}, nil
}

func (c *ristrettoCache[V]) Get(key string) (V, bool) {
	return c.inner.Get(key)
}

func (c *ristrettoCache[V]) Set(key string, value V) {
	c.inner.SetWithTTL(key, value, 1, c.ttl)
}

func (c *ristrettoCache[V]) Close() {
	c.inner.Close()
}

type nopCache[V any] struct{}

// NewNop returns a cache that stores nothing. Used in tests and wherever
// caching must be disabled.
func NewNop[V any]() Cache[V] {
	return nopCache[V]{}
}

func (nopCache[V]) Get(string) (V, bool) {
	var zero V
	return zero, false
}

func (nopCache[V]) Set(string, V) {}

func (nopCache[V]) Close() {}
