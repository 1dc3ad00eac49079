package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	pkgcache "MarketPulse/pkg/cache"
)

type entry struct {
	v   string
	exp time.Time
}

// TTLCache is an in-process string cache with per-key expiry.
// It backs the per-pass price cache when Redis is not configured.
type TTLCache struct {
	mu sync.RWMutex
	m  map[string]entry
}

func NewTTLCache() *TTLCache {
	return &TTLCache{m: make(map[string]entry)}
}

func (c *TTLCache) Get(key string) (string, bool) {
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if !ok {
		return "", false
	}
	if !e.exp.IsZero() && time.Now().After(e.exp) {
		c.mu.Lock()
		delete(c.m, key)
		c.mu.Unlock()
		return "", false
	}
	return e.v, true
}

func (c *TTLCache) Set(key string, v string, ttl time.Duration) {
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	c.mu.Lock()
	c.m[key] = entry{v: v, exp: exp}
	c.mu.Unlock()
}

// Adapter exposes TTLCache through the pkg/cache Service interface so the
// reconciler can swap between in-memory and Redis backends.
type Adapter struct {
	c *TTLCache
}

func NewAdapter() *Adapter { return &Adapter{c: NewTTLCache()} }

func (a *Adapter) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	s, ok := value.(string)
	if !ok {
		b, err := json.Marshal(value)
		if err != nil {
			return err
		}
		s = string(b)
	}
	a.c.Set(key, s, expiration)
	return nil
}

func (a *Adapter) Get(_ context.Context, key string, dest interface{}) error {
	v, ok := a.c.Get(key)
	if !ok {
		return pkgcache.ErrCacheMiss
	}
	if strPtr, ok := dest.(*string); ok {
		*strPtr = v
		return nil
	}
	return json.Unmarshal([]byte(v), dest)
}

func (a *Adapter) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		a.c.mu.Lock()
		delete(a.c.m, k)
		a.c.mu.Unlock()
	}
	return nil
}

func (a *Adapter) Exists(_ context.Context, keys ...string) (bool, error) {
	for _, k := range keys {
		if _, ok := a.c.Get(k); ok {
			return true, nil
		}
	}
	return false, nil
}

func (a *Adapter) Close() error { return nil }
