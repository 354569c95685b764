// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/merchant-admin/internal/platform/constants"
	"github.com/taibuivan/merchant-admin/internal/platform/sec"
)

// PermissionCache holds per-user role and permission snapshots.
//
// Entries are best effort. A miss is reported as found=false with a nil
// error; what to do about it is the caller's decision.
type PermissionCache interface {
	Get(ctx context.Context, userID int64) (*sec.Snapshot, bool, error)
	Put(ctx context.Context, userID int64, snapshot *sec.Snapshot, ttl time.Duration) error
	Invalidate(ctx context.Context, userID int64) error
}

func permissionKey(userID int64) string {
	return constants.RedisPrefixPermissionSnap + strconv.FormatInt(userID, 10)
}

// # Redis

// RedisPermissionCache stores snapshots as JSON values.
type RedisPermissionCache struct {
	client redis.UniversalClient
}

// NewRedisPermissionCache creates a cache on top of an existing client.
func NewRedisPermissionCache(client redis.UniversalClient) *RedisPermissionCache {
	return &RedisPermissionCache{client: client}
}

// Get implements [PermissionCache].
func (c *RedisPermissionCache) Get(ctx context.Context, userID int64) (*sec.Snapshot, bool, error) {
	payload, err := c.client.Get(ctx, permissionKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("session: get permissions: %w", err)
	}

	var snapshot sec.Snapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return nil, false, fmt.Errorf("session: decode permissions of user %d: %w", userID, err)
	}
	return &snapshot, true, nil
}

// Put implements [PermissionCache].
func (c *RedisPermissionCache) Put(ctx context.Context, userID int64, snapshot *sec.Snapshot, ttl time.Duration) error {
	payload, err := json.Marshal(normalize(snapshot))
	if err != nil {
		return fmt.Errorf("session: encode permissions: %w", err)
	}
	if err := c.client.Set(ctx, permissionKey(userID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("session: put permissions: %w", err)
	}
	return nil
}

// Invalidate implements [PermissionCache].
func (c *RedisPermissionCache) Invalidate(ctx context.Context, userID int64) error {
	if err := c.client.Del(ctx, permissionKey(userID)).Err(); err != nil {
		return fmt.Errorf("session: invalidate permissions: %w", err)
	}
	return nil
}

// # Memory

// MemoryPermissionCache is a single-process cache for development and tests.
type MemoryPermissionCache struct {
	snapshots *deadlineLRU[sec.Snapshot]
}

// NewMemoryPermissionCache creates a cache holding at most size snapshots.
// The least recently used snapshot is evicted when full, which the builder
// sees as a miss.
func NewMemoryPermissionCache(size int, maxTTL time.Duration, options ...MemoryOption) *MemoryPermissionCache {
	return &MemoryPermissionCache{snapshots: newDeadlineLRU[sec.Snapshot](size, maxTTL, false, options)}
}

// Get implements [PermissionCache]. The returned snapshot is a copy.
func (c *MemoryPermissionCache) Get(_ context.Context, userID int64) (*sec.Snapshot, bool, error) {
	snapshot, found := c.snapshots.get(permissionKey(userID))
	if !found {
		return nil, false, nil
	}
	copied := normalize(&snapshot)
	return &copied, true, nil
}

// Put implements [PermissionCache].
func (c *MemoryPermissionCache) Put(_ context.Context, userID int64, snapshot *sec.Snapshot, ttl time.Duration) error {
	return c.snapshots.put(permissionKey(userID), normalize(snapshot), ttl)
}

// Invalidate implements [PermissionCache].
func (c *MemoryPermissionCache) Invalidate(_ context.Context, userID int64) error {
	c.snapshots.remove(permissionKey(userID))
	return nil
}

// normalize copies snapshot and replaces nil slices with empty ones so that
// the stored JSON is always `{"roles":[],"permissions":[]}` at minimum.
func normalize(snapshot *sec.Snapshot) sec.Snapshot {
	if snapshot == nil {
		return sec.Snapshot{Roles: []string{}, Permissions: []string{}}
	}
	return sec.Snapshot{
		Roles:       append([]string{}, snapshot.Roles...),
		Permissions: append([]string{}, snapshot.Permissions...),
	}
}
