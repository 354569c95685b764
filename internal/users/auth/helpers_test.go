// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/taibuivan/merchant-admin/internal/access"
	"github.com/taibuivan/merchant-admin/internal/platform/apperr"
	"github.com/taibuivan/merchant-admin/internal/platform/middleware"
	"github.com/taibuivan/merchant-admin/internal/platform/sec"
	"github.com/taibuivan/merchant-admin/internal/session"
	"github.com/taibuivan/merchant-admin/internal/users/auth"
	"github.com/taibuivan/merchant-admin/pkg/pointer"
)

const (
	testSecret   = "0123456789abcdef0123456789abcdef"
	testLifetime = 7 * 24 * time.Hour
	testPassword = "s3cret-pass"
)

var errStoreDown = errors.New("store down")

var loginTime = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// memoryCredentials is an in-process CredentialStore.
type memoryCredentials struct {
	mu       sync.Mutex
	users    map[int64]*auth.User
	touchErr error
}

func (m *memoryCredentials) add(user *auth.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.users == nil {
		m.users = map[int64]*auth.User{}
	}
	m.users[user.ID] = user
}

func (m *memoryCredentials) FindByLoginIdentifier(_ context.Context, identifier string) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var byEmail *auth.User
	for _, user := range m.users {
		if user.Username == identifier {
			clone := *user
			return &clone, nil
		}
		if user.Email == identifier {
			byEmail = user
		}
	}
	if byEmail == nil {
		return nil, apperr.NotFound("User")
	}
	clone := *byEmail
	return &clone, nil
}

func (m *memoryCredentials) FindByID(_ context.Context, id int64) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return nil, apperr.NotFound("User")
	}
	clone := *user
	return &clone, nil
}

func (m *memoryCredentials) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return apperr.NotFound("User")
	}
	user.PasswordHash = passwordHash
	return nil
}

func (m *memoryCredentials) TouchLastLogin(_ context.Context, id int64, ipAddress string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.touchErr != nil {
		return m.touchErr
	}
	user := m.users[id]
	user.LastLoginAt = &at
	user.LastLoginIP = &ipAddress
	return nil
}

// staticAuthority serves fixed snapshots per user.
type staticAuthority struct {
	snapshots map[int64]*sec.Snapshot
	err       error
}

func (s staticAuthority) RolesAndPermissionsFor(_ context.Context, userID int64) (*sec.Snapshot, error) {
	if s.err != nil {
		return nil, s.err
	}
	if snapshot, ok := s.snapshots[userID]; ok {
		return snapshot, nil
	}
	return &sec.Snapshot{Roles: []string{}, Permissions: []string{}}, nil
}

// failingPermissions wraps a cache and fails Put and/or Invalidate.
type failingPermissions struct {
	session.PermissionCache
	putErr        error
	invalidateErr error
}

func (f failingPermissions) Put(ctx context.Context, userID int64, snapshot *sec.Snapshot, ttl time.Duration) error {
	if f.putErr != nil {
		return f.putErr
	}
	return f.PermissionCache.Put(ctx, userID, snapshot, ttl)
}

func (f failingPermissions) Invalidate(ctx context.Context, userID int64) error {
	if f.invalidateErr != nil {
		return f.invalidateErr
	}
	return f.PermissionCache.Invalidate(ctx, userID)
}

// fixture wires the service over in-memory stores.
type fixture struct {
	credentials *memoryCredentials
	authority   staticAuthority
	tokens      *session.TokenService
	permissions session.PermissionCache
	service     *auth.Service
	builder     *access.Builder
}

type fixtureOption func(*fixture)

func withPermissions(wrap func(session.PermissionCache) session.PermissionCache) fixtureOption {
	return func(f *fixture) { f.permissions = wrap(f.permissions) }
}

func withAuthorityError(err error) fixtureOption {
	return func(f *fixture) { f.authority.err = err }
}

func newFixture(t *testing.T, options ...fixtureOption) *fixture {
	t.Helper()

	signer, err := sec.NewTokenSigner(testSecret, "merchant-admin", testLifetime)
	require.NoError(t, err)

	hash, err := sec.HashPassword(testPassword)
	require.NoError(t, err)

	f := &fixture{
		credentials: &memoryCredentials{},
		authority: staticAuthority{snapshots: map[int64]*sec.Snapshot{
			1: {Roles: []string{sec.RoleSuperAdmin}, Permissions: []string{}},
			2: {Roles: []string{"MERCHANT_OWNER"}, Permissions: []string{"order.read", "order.refund"}},
		}},
		tokens:      session.NewTokenService(signer, session.NewMemoryRevocationStore(64, testLifetime), 0, nil),
		permissions: session.NewMemoryPermissionCache(64, testLifetime),
	}
	for _, option := range options {
		option(f)
	}

	f.credentials.add(&auth.User{
		ID: 1, Username: "root", Email: "root@example.com", PasswordHash: hash,
		UserType: sec.UserTypeAdmin, Status: auth.UserStatusEnabled,
	})
	f.credentials.add(&auth.User{
		ID: 2, Username: "shopkeeper", Email: "owner@shop.example", PasswordHash: hash,
		UserType: sec.UserTypeMerchant, MerchantID: pointer.To[int64](42), Status: auth.UserStatusEnabled,
	})
	f.credentials.add(&auth.User{
		ID: 3, Username: "retired", Email: "retired@example.com", PasswordHash: hash,
		UserType: sec.UserTypeAdmin, Status: auth.UserStatusDisabled,
	})

	f.service = auth.NewService(f.credentials, f.authority, f.tokens, f.permissions, testLifetime,
		auth.WithServiceClock(func() time.Time { return loginTime }))
	f.builder = access.NewBuilder(f.tokens, f.permissions)
	return f
}

func (f *fixture) handler() *auth.Handler {
	return auth.NewHandler(f.service, middleware.NewAuthz(f.builder, nil), nil)
}
