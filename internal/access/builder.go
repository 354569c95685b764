// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package access decides who the caller is and what they may touch.

It has three parts, each a plain function or type with no HTTP dependency:

  - [Builder] turns a bearer token into a read-only [sec.Identity].
  - RBAC checks ([RequireRoles], [RequirePermissions], ...) with the
    SUPER_ADMIN bypass.
  - Tenant isolation ([ResolveScope], [EnsureCanAccessTenant]) deriving a
    [Scope] that repositories turn into a SQL predicate.

Every rejection is an [*apperr.AppError] of kind Unauthorized, Forbidden or
Internal. A store failure is never read as "allowed".
*/
package access

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/taibuivan/merchant-admin/internal/platform/apperr"
	"github.com/taibuivan/merchant-admin/internal/platform/ctxutil"
	"github.com/taibuivan/merchant-admin/internal/platform/metrics"
	"github.com/taibuivan/merchant-admin/internal/platform/sec"
	"github.com/taibuivan/merchant-admin/internal/session"
)

const (
	msgAuthRequired = "Authentication required"
	msgAuthFailed   = "Authentication failed"
)

// MissPolicy decides what a permission cache miss means.
type MissPolicy string

const (
	// MissZero grants no roles and no permissions until the next login.
	MissZero MissPolicy = "zero"

	// MissRecompute loads the snapshot from the role authority and caches it.
	MissRecompute MissPolicy = "recompute"
)

// TokenVerifier is the part of [session.TokenService] the builder needs.
type TokenVerifier interface {
	Verify(token string) (*sec.Claims, error)
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// RoleAuthority is the authoritative source of role and permission assignments.
type RoleAuthority interface {
	RolesAndPermissionsFor(ctx context.Context, userID int64) (*sec.Snapshot, error)
}

// Builder resolves a bearer token into an identity, once per request.
type Builder struct {
	tokens    TokenVerifier
	cache     session.PermissionCache
	authority RoleAuthority
	policy    MissPolicy
	cacheTTL  time.Duration
	metrics   *metrics.Recorder
}

// BuilderOption customizes a [Builder].
type BuilderOption func(*Builder)

// WithRecompute switches the miss policy to [MissRecompute]. Recomputed
// snapshots are cached for ttl.
func WithRecompute(authority RoleAuthority, ttl time.Duration) BuilderOption {
	return func(builder *Builder) {
		builder.policy = MissRecompute
		builder.authority = authority
		builder.cacheTTL = ttl
	}
}

// WithMetrics records decisions and cache lookups on recorder.
func WithMetrics(recorder *metrics.Recorder) BuilderOption {
	return func(builder *Builder) { builder.metrics = recorder }
}

// NewBuilder creates a builder with the [MissZero] policy unless overridden.
func NewBuilder(tokens TokenVerifier, cache session.PermissionCache, options ...BuilderOption) *Builder {
	builder := &Builder{
		tokens: tokens,
		cache:  cache,
		policy: MissZero,
	}
	for _, option := range options {
		option(builder)
	}
	return builder
}

// Policy returns the configured miss policy.
func (b *Builder) Policy() MissPolicy { return b.policy }

// Build verifies token, checks revocation, loads the permission snapshot and
// returns the caller's identity.
//
// # Errors
//   - Unauthorized: token missing, invalid, expired or revoked.
//   - Internal: the revocation store, the cache or the role authority failed.
func (b *Builder) Build(ctx context.Context, token string) (*sec.Identity, error) {
	logger := ctxutil.GetLogger(ctx)

	if token == "" {
		b.metrics.AuthDecision(metrics.StageAuthenticate, metrics.OutcomeDeny)
		return nil, apperr.Unauthorized(msgAuthRequired)
	}

	claims, err := b.tokens.Verify(token)
	if err != nil {
		reason := "invalid"
		if errors.Is(err, sec.ErrTokenExpired) {
			reason = "expired"
		}
		logger.InfoContext(ctx, "auth_rejected", slog.String("reason", reason), slog.Any("error", err))
		b.metrics.AuthDecision(metrics.StageAuthenticate, metrics.OutcomeDeny)
		return nil, apperr.Unauthorized(msgAuthFailed).WithCause(err)
	}

	// Both lookups are single-key reads with no ordering between them.
	var (
		revoked  bool
		snapshot *sec.Snapshot
		found    bool
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var checkErr error
		if revoked, checkErr = b.tokens.IsRevoked(groupCtx, token); checkErr != nil {
			return fmt.Errorf("revocation check: %w", checkErr)
		}
		return nil
	})
	group.Go(func() error {
		var cacheErr error
		if snapshot, found, cacheErr = b.cache.Get(groupCtx, claims.UserID); cacheErr != nil {
			b.metrics.CacheLookup(metrics.CacheError)
			return fmt.Errorf("permission cache: %w", cacheErr)
		}
		return nil
	})
	if err := group.Wait(); err != nil {
		b.metrics.AuthDecision(metrics.StageAuthenticate, metrics.OutcomeError)
		return nil, apperr.Internal(err)
	}

	if revoked {
		logger.InfoContext(ctx, "auth_rejected",
			slog.String("reason", "revoked"),
			slog.Int64("user_id", claims.UserID),
		)
		b.metrics.AuthDecision(metrics.StageAuthenticate, metrics.OutcomeDeny)
		return nil, apperr.Unauthorized(msgAuthFailed)
	}

	if found {
		b.metrics.CacheLookup(metrics.CacheHit)
	} else {
		b.metrics.CacheLookup(metrics.CacheMiss)
		if snapshot, err = b.onMiss(ctx, claims.UserID); err != nil {
			b.metrics.AuthDecision(metrics.StageAuthenticate, metrics.OutcomeError)
			return nil, err
		}
	}

	b.metrics.AuthDecision(metrics.StageAuthenticate, metrics.OutcomeAllow)
	return sec.NewIdentity(*claims, snapshot), nil
}

func (b *Builder) onMiss(ctx context.Context, userID int64) (*sec.Snapshot, error) {
	if b.policy != MissRecompute || b.authority == nil {
		return nil, nil
	}

	snapshot, err := b.authority.RolesAndPermissionsFor(ctx, userID)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("recompute permissions: %w", err))
	}

	if err := b.cache.Put(ctx, userID, snapshot, b.cacheTTL); err != nil {
		ctxutil.GetLogger(ctx).WarnContext(ctx, "permission_cache_put_failed",
			slog.Int64("user_id", userID),
			slog.Any("error", err),
		)
	}
	return snapshot, nil
}
