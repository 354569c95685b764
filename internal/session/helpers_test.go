// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/merchant-admin/internal/platform/sec"
	"github.com/taibuivan/merchant-admin/internal/session"
)

const (
	testSecret   = "0123456789abcdef0123456789abcdef"
	testLifetime = 7 * 24 * time.Hour
	testStoreCap = 1024
)

type fakeClock struct{ current time.Time }

func (clock *fakeClock) Now() time.Time          { return clock.current }
func (clock *fakeClock) Advance(d time.Duration) { clock.current = clock.current.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{current: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func newSigner(t *testing.T, clock *fakeClock) *sec.TokenSigner {
	t.Helper()
	signer, err := sec.NewTokenSigner(testSecret, "merchant-admin", testLifetime, sec.WithClock(clock.Now))
	require.NoError(t, err)
	return signer
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return server, client
}

// revocationBackend pairs a store with a way to move its notion of time.
type revocationBackend struct {
	name    string
	store   session.RevocationStore
	advance func(time.Duration)
}

func revocationBackends(t *testing.T) []revocationBackend {
	t.Helper()

	server, client := newRedis(t)
	clock := newClock()

	return []revocationBackend{
		{
			name:    "redis",
			store:   session.NewRedisRevocationStore(client),
			advance: server.FastForward,
		},
		{
			name:    "memory",
			store:   session.NewMemoryRevocationStore(testStoreCap, testLifetime, session.WithMemoryClock(clock.Now)),
			advance: clock.Advance,
		},
	}
}

// stubRevocations lets tests inject store failures.
type stubRevocations struct {
	session.RevocationStore
	markErr  error
	checkErr error
}

func (s *stubRevocations) MarkRevoked(ctx context.Context, token string, ttl time.Duration) (bool, error) {
	if s.markErr != nil {
		return false, s.markErr
	}
	return s.RevocationStore.MarkRevoked(ctx, token, ttl)
}

func (s *stubRevocations) IsRevoked(ctx context.Context, token string) (bool, error) {
	if s.checkErr != nil {
		return false, s.checkErr
	}
	return s.RevocationStore.IsRevoked(ctx, token)
}
