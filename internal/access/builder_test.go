// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package access_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/merchant-admin/internal/access"
	"github.com/taibuivan/merchant-admin/internal/platform/apperr"
	"github.com/taibuivan/merchant-admin/internal/platform/sec"
	"github.com/taibuivan/merchant-admin/pkg/pointer"
)

var ownerClaims = sec.Claims{
	UserID:     1,
	Username:   "shop-owner",
	UserType:   sec.UserTypeMerchant,
	MerchantID: pointer.To(int64(7)),
}

/*
TestBuilder_CacheHit builds an identity with the cached snapshot.
*/
func TestBuilder_CacheHit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	token := f.issue(t, ownerClaims)
	require.NoError(t, f.cache.Put(ctx, 1, &sec.Snapshot{Roles: []string{"OWNER"}, Permissions: []string{"order.read"}}, time.Hour))

	identity, err := access.NewBuilder(f.tokens, f.cache).Build(ctx, token)
	require.NoError(t, err)

	assert.Equal(t, ownerClaims, identity.Claims())
	assert.Equal(t, []string{"OWNER"}, identity.Roles())
	assert.True(t, identity.HasPermission("order.read"))
}

/*
TestBuilder_MissYieldsZeroPrivileges fails closed to an empty identity.
*/
func TestBuilder_MissYieldsZeroPrivileges(t *testing.T) {
	f := newFixture(t)
	token := f.issue(t, sec.Claims{UserID: 2, Username: "root", UserType: sec.UserTypeAdmin})

	builder := access.NewBuilder(f.tokens, f.cache)
	identity, err := builder.Build(context.Background(), token)
	require.NoError(t, err)

	assert.Equal(t, access.MissZero, builder.Policy())
	assert.Empty(t, identity.Roles())
	assert.Empty(t, identity.Permissions())
	assert.False(t, identity.IsSuperAdmin())
}

/*
TestBuilder_MissRecompute loads and caches the snapshot once.
*/
func TestBuilder_MissRecompute(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	token := f.issue(t, ownerClaims)
	authority := &stubAuthority{snapshot: &sec.Snapshot{Permissions: []string{"order.read"}}}

	builder := access.NewBuilder(f.tokens, f.cache, access.WithRecompute(authority, time.Hour))

	for range 2 {
		identity, err := builder.Build(ctx, token)
		require.NoError(t, err)
		assert.True(t, identity.HasPermission("order.read"))
	}
	assert.Equal(t, 1, authority.calls)

	_, found, err := f.cache.Get(ctx, 1)
	require.NoError(t, err)
	assert.True(t, found)
}

/*
TestBuilder_Rejections maps every authentication failure to Unauthorized.
*/
func TestBuilder_Rejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	builder := access.NewBuilder(f.tokens, f.cache)

	revoked := f.issue(t, ownerClaims)
	require.NoError(t, f.tokens.Revoke(ctx, revoked))

	foreignSigner, err := sec.NewTokenSigner("ffffffffffffffffffffffffffffffff", "merchant-admin", time.Hour)
	require.NoError(t, err)
	foreign, _, err := foreignSigner.Sign(ownerClaims)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"missing", ""},
		{"garbage", "not.a.token"},
		{"foreign_key", foreign},
		{"revoked", revoked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			identity, err := builder.Build(ctx, tt.token)
			assert.Nil(t, identity)
			assert.True(t, apperr.HasCode(err, apperr.CodeUnauthorized))
		})
	}
}

/*
TestBuilder_StoreFailuresAreInternal never treats an unreachable store as "not revoked".
*/
func TestBuilder_StoreFailuresAreInternal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	token := f.issue(t, ownerClaims)
	outage := errors.New("dial tcp: connection refused")

	t.Run("revocation_store", func(t *testing.T) {
		builder := access.NewBuilder(failingVerifier{TokenService: f.tokens, err: outage}, f.cache)
		identity, err := builder.Build(ctx, token)
		assert.Nil(t, identity)
		assert.True(t, apperr.HasCode(err, apperr.CodeInternal))
		assert.ErrorIs(t, err, outage)
	})

	t.Run("permission_cache", func(t *testing.T) {
		builder := access.NewBuilder(f.tokens, failingCache{err: outage})
		_, err := builder.Build(ctx, token)
		assert.True(t, apperr.HasCode(err, apperr.CodeInternal))
	})

	t.Run("role_authority", func(t *testing.T) {
		authority := &stubAuthority{err: outage}
		builder := access.NewBuilder(f.tokens, f.cache, access.WithRecompute(authority, time.Hour))
		_, err := builder.Build(ctx, token)
		assert.True(t, apperr.HasCode(err, apperr.CodeInternal))
	})
}
