// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package access_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/taibuivan/merchant-admin/internal/platform/sec"
	"github.com/taibuivan/merchant-admin/internal/session"
	"github.com/taibuivan/merchant-admin/pkg/pointer"
)

const (
	testSecret   = "0123456789abcdef0123456789abcdef"
	testLifetime = 7 * 24 * time.Hour
)

func identity(userType sec.UserType, merchantID *int64, roles []string, permissions []string) *sec.Identity {
	return sec.NewIdentity(
		sec.Claims{UserID: 10, Username: "tester", UserType: userType, MerchantID: merchantID},
		&sec.Snapshot{Roles: roles, Permissions: permissions},
	)
}

func admin(roles ...string) *sec.Identity {
	return identity(sec.UserTypeAdmin, nil, roles, nil)
}

func merchant(merchantID int64, permissions ...string) *sec.Identity {
	return identity(sec.UserTypeMerchant, pointer.To(merchantID), nil, permissions)
}

// fixture wires a real token service and in-memory stores.
type fixture struct {
	tokens  *session.TokenService
	revoked *session.MemoryRevocationStore
	cache   *session.MemoryPermissionCache
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	signer, err := sec.NewTokenSigner(testSecret, "merchant-admin", testLifetime)
	require.NoError(t, err)

	revoked := session.NewMemoryRevocationStore(64, testLifetime)
	return &fixture{
		tokens:  session.NewTokenService(signer, revoked, 0, nil),
		revoked: revoked,
		cache:   session.NewMemoryPermissionCache(64, testLifetime),
	}
}

func (f *fixture) issue(t *testing.T, claims sec.Claims) string {
	t.Helper()
	issued, err := f.tokens.Issue(claims)
	require.NoError(t, err)
	return issued.Token
}

// stubAuthority counts recomputations.
type stubAuthority struct {
	snapshot *sec.Snapshot
	err      error
	calls    int
}

func (s *stubAuthority) RolesAndPermissionsFor(_ context.Context, _ int64) (*sec.Snapshot, error) {
	s.calls++
	return s.snapshot, s.err
}

// failingCache fails every operation.
type failingCache struct{ err error }

func (c failingCache) Get(context.Context, int64) (*sec.Snapshot, bool, error) {
	return nil, false, c.err
}

func (c failingCache) Put(context.Context, int64, *sec.Snapshot, time.Duration) error {
	return c.err
}

func (c failingCache) Invalidate(context.Context, int64) error { return c.err }

// failingVerifier verifies tokens but cannot reach the revocation store.
type failingVerifier struct {
	*session.TokenService
	err error
}

func (v failingVerifier) IsRevoked(context.Context, string) (bool, error) { return false, v.err }
