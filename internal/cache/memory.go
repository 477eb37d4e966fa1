package cache

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rotisserie/eris"
)

// MemoryCache implements Cache with a bounded in-process LRU. Entries carry
// their own expiry so different TTL classes coexist in one cache.
type MemoryCache struct {
	lru *lru.Cache[string, memEntry]
	now func() time.Time
}

type memEntry struct {
	data      []byte
	expiresAt time.Time
}

// DefaultMemoryCacheSize bounds the in-process cache.
const DefaultMemoryCacheSize = 4096

// NewMemory creates an in-process cache holding at most size entries.
func NewMemory(size int) (*MemoryCache, error) {
	if size <= 0 {
		size = DefaultMemoryCacheSize
	}
	l, err := lru.New[string, memEntry](size)
	if err != nil {
		return nil, eris.Wrap(err, "cache: new lru")
	}
	return &MemoryCache{lru: l, now: time.Now}, nil
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	e, ok := c.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	if c.now().After(e.expiresAt) {
		c.lru.Remove(key)
		return nil, false, nil
	}
	return e.data, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	c.lru.Add(key, memEntry{data: val, expiresAt: c.now().Add(ttl)})
	return nil
}

func (c *MemoryCache) Close() error {
	c.lru.Purge()
	return nil
}
