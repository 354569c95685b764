// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"errors"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryOption customizes the in-memory stores.
type MemoryOption func(*memoryConfig)

type memoryConfig struct {
	now func() time.Time
}

// WithMemoryClock overrides the time source used to expire entries.
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(config *memoryConfig) { config.now = now }
}

// ErrStoreFull is returned when a store that must not evict live entries
// has no room left.
var ErrStoreFull = errors.New("session: memory store is full")

type deadlineEntry[V any] struct {
	value    V
	deadline time.Time
}

// deadlineLRU is a bounded LRU whose entries each carry their own deadline.
//
// The expirable LRU only supports one TTL for the whole cache, so it is used
// as the size bound and background sweeper (with maxTTL) while deadlines
// are checked on every read.
//
// With retain set, a live entry is never evicted to make room: expired
// entries are swept instead and inserts fail with [ErrStoreFull] when
// nothing could be freed.
type deadlineLRU[V any] struct {
	mu     sync.Mutex
	items  *lru.LRU[string, deadlineEntry[V]]
	size   int
	retain bool
	maxTTL time.Duration
	now    func() time.Time
}

func newDeadlineLRU[V any](size int, maxTTL time.Duration, retain bool, options []MemoryOption) *deadlineLRU[V] {
	config := memoryConfig{now: time.Now}
	for _, option := range options {
		option(&config)
	}

	return &deadlineLRU[V]{
		items:  lru.NewLRU[string, deadlineEntry[V]](size, nil, maxTTL),
		size:   size,
		retain: retain,
		maxTTL: maxTTL,
		now:    config.now,
	}
}

func (c *deadlineLRU[V]) get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.liveLocked(key)
}

func (c *deadlineLRU[V]) liveLocked(key string) (V, bool) {
	var zero V

	entry, ok := c.items.Get(key)
	if !ok {
		return zero, false
	}
	if !c.now().Before(entry.deadline) {
		c.items.Remove(key)
		return zero, false
	}
	return entry.value, true
}

func (c *deadlineLRU[V]) put(key string, value V, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.hasRoomLocked(key) {
		return ErrStoreFull
	}
	c.items.Add(key, c.entry(value, ttl))
	return nil
}

// putIfAbsent stores value unless a live entry exists. It reports whether
// the value was stored.
func (c *deadlineLRU[V]) putIfAbsent(key string, value V, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.liveLocked(key); exists {
		return false, nil
	}
	if !c.hasRoomLocked(key) {
		return false, ErrStoreFull
	}
	c.items.Add(key, c.entry(value, ttl))
	return true, nil
}

// hasRoomLocked reports whether key can be added without evicting a live
// entry. Evicting caches always have room.
func (c *deadlineLRU[V]) hasRoomLocked(key string) bool {
	if !c.retain || c.size <= 0 || c.items.Contains(key) || c.items.Len() < c.size {
		return true
	}

	now := c.now()
	for _, stale := range c.items.Keys() {
		entry, ok := c.items.Peek(stale)
		if !ok || !now.Before(entry.deadline) {
			c.items.Remove(stale)
		}
	}
	return c.items.Len() < c.size
}

func (c *deadlineLRU[V]) remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items.Remove(key)
}

func (c *deadlineLRU[V]) entry(value V, ttl time.Duration) deadlineEntry[V] {
	if ttl <= 0 || (c.maxTTL > 0 && ttl > c.maxTTL) {
		ttl = c.maxTTL
	}
	return deadlineEntry[V]{value: value, deadline: c.now().Add(ttl)}
}
