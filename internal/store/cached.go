package store

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru"
)

// Cached keeps recently read shards in memory. Shard keys are immutable once
// written (every compile run gets a fresh namespace), so entries never go
// stale. The published pointer is always read through.
//
// Returned slices are shared between callers and must not be modified.
type Cached struct {
	next  Store
	cache *lru.Cache
}

// NewCached wraps next with an LRU of size entries.
func NewCached(next Store, size int) (*Cached, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("shard cache: %w", err)
	}
	return &Cached{next: next, cache: cache}, nil
}

func (c *Cached) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if !IsShardKey(key) {
		return c.next.Get(ctx, key)
	}
	if v, ok := c.cache.Get(key); ok {
		return v.([]byte), true, nil
	}
	data, ok, err := c.next.Get(ctx, key)
	if err != nil || !ok {
		return data, ok, err
	}
	c.cache.Add(key, data)
	return data, true, nil
}

func (c *Cached) Put(ctx context.Context, key string, value []byte) error {
	c.cache.Remove(key)
	return c.next.Put(ctx, key, value)
}

func (c *Cached) Exists(ctx context.Context, key string) (bool, error) {
	if IsShardKey(key) && c.cache.Contains(key) {
		return true, nil
	}
	return c.next.Exists(ctx, key)
}

func (c *Cached) Delete(ctx context.Context, key string) error {
	c.cache.Remove(key)
	return c.next.Delete(ctx, key)
}

// Purge drops every cached entry.
func (c *Cached) Purge() {
	c.cache.Purge()
}
