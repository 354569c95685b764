// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/merchant-admin/internal/platform/constants"
	"github.com/taibuivan/merchant-admin/internal/platform/sec"
)

// RevocationStore records tokens that must no longer be accepted.
//
// The token itself is never stored, only its SHA-256 digest. Absence of a
// marker means "not revoked"; an error means the answer is unknown and must
// not be read as "not revoked".
type RevocationStore interface {
	// MarkRevoked inserts a marker for token that lives for ttl. It reports
	// false, without error, when a live marker already existed.
	MarkRevoked(ctx context.Context, token string, ttl time.Duration) (bool, error)

	// IsRevoked reports whether a live marker exists for token.
	IsRevoked(ctx context.Context, token string) (bool, error)
}

func revocationKey(token string) string {
	return constants.RedisPrefixRevokedToken + sec.HashToken(token)
}

// # Redis

// RedisRevocationStore keeps markers in Redis so that every API instance
// sees a logout as soon as it is recorded.
type RedisRevocationStore struct {
	client redis.UniversalClient
}

// NewRedisRevocationStore creates a store on top of an existing client.
func NewRedisRevocationStore(client redis.UniversalClient) *RedisRevocationStore {
	return &RedisRevocationStore{client: client}
}

// MarkRevoked implements [RevocationStore] with SET NX EX.
func (s *RedisRevocationStore) MarkRevoked(ctx context.Context, token string, ttl time.Duration) (bool, error) {
	inserted, err := s.client.SetNX(ctx, revocationKey(token), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("session: mark revoked: %w", err)
	}
	return inserted, nil
}

// IsRevoked implements [RevocationStore].
func (s *RedisRevocationStore) IsRevoked(ctx context.Context, token string) (bool, error) {
	count, err := s.client.Exists(ctx, revocationKey(token)).Result()
	if err != nil {
		return false, fmt.Errorf("session: check revoked: %w", err)
	}
	return count > 0, nil
}

// # Memory

// MemoryRevocationStore is a single-process store for development and tests.
// Markers are lost on restart and not shared between instances.
type MemoryRevocationStore struct {
	markers *deadlineLRU[struct{}]
}

// NewMemoryRevocationStore creates a store holding at most size live markers.
// A live marker is never evicted: when the store is full, MarkRevoked fails
// with [ErrStoreFull]. maxTTL bounds the lifetime of any marker and must be
// at least the token lifetime.
func NewMemoryRevocationStore(size int, maxTTL time.Duration, options ...MemoryOption) *MemoryRevocationStore {
	return &MemoryRevocationStore{markers: newDeadlineLRU[struct{}](size, maxTTL, true, options)}
}

// MarkRevoked implements [RevocationStore].
func (s *MemoryRevocationStore) MarkRevoked(_ context.Context, token string, ttl time.Duration) (bool, error) {
	inserted, err := s.markers.putIfAbsent(revocationKey(token), struct{}{}, ttl)
	if err != nil {
		return false, fmt.Errorf("session: mark revoked: %w", err)
	}
	return inserted, nil
}

// IsRevoked implements [RevocationStore].
func (s *MemoryRevocationStore) IsRevoked(_ context.Context, token string) (bool, error) {
	_, found := s.markers.get(revocationKey(token))
	return found, nil
}
