// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package session owns the server-side half of authentication: issuing,
refreshing and revoking tokens, and the shared stores that back them.

# Stores

  - [RevocationStore]: markers for logged-out or superseded tokens.
  - [PermissionCache]: per-user role/permission snapshots written at login.

Both come in a Redis flavour (shared between instances) and an in-memory
flavour (single process, used in development and tests).

# Refresh

A refresh is two independent store operations: a revocation check before the
new token is signed, and a conditional insert of the old token's marker
afterwards. When the insert finds an existing marker, a concurrent refresh
already consumed the token and this one is rejected. When the insert fails
outright, the new token is still handed out and the old one stays valid
until it expires on its own; [RefreshResult.PredecessorRevoked] reports it.
*/
package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/taibuivan/merchant-admin/internal/platform/apperr"
	"github.com/taibuivan/merchant-admin/internal/platform/ctxutil"
	"github.com/taibuivan/merchant-admin/internal/platform/metrics"
	"github.com/taibuivan/merchant-admin/internal/platform/sec"
)

// Token operation labels.
const (
	opIssue   = "issue"
	opRefresh = "refresh"
	opRevoke  = "revoke"
)

const msgRefreshFailed = "Failed to refresh token"

// Issued is a freshly signed token.
type Issued struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RefreshResult is the outcome of [TokenService.Refresh].
type RefreshResult struct {
	Issued

	// PredecessorRevoked is false when the old token could not be revoked
	// and therefore remains usable until its natural expiry.
	PredecessorRevoked bool `json:"-"`
}

// TokenService issues, verifies, refreshes and revokes tokens.
type TokenService struct {
	signer      *sec.TokenSigner
	revocations RevocationStore
	fallbackTTL time.Duration
	metrics     *metrics.Recorder
}

// NewTokenService wires a signer to a revocation store.
//
// fallbackTTL sizes markers for tokens whose expiry cannot be read.
func NewTokenService(signer *sec.TokenSigner, revocations RevocationStore, fallbackTTL time.Duration, recorder *metrics.Recorder) *TokenService {
	if fallbackTTL <= 0 {
		fallbackTTL = signer.Lifetime()
	}
	return &TokenService{
		signer:      signer,
		revocations: revocations,
		fallbackTTL: fallbackTTL,
		metrics:     recorder,
	}
}

// Issue signs a token for claims. It performs no I/O.
func (s *TokenService) Issue(claims sec.Claims) (Issued, error) {
	token, expiresAt, err := s.signer.Sign(claims)
	if err != nil {
		s.metrics.TokenOperation(opIssue, metrics.OutcomeError)
		return Issued{}, apperr.Internal(err)
	}

	s.metrics.TokenOperation(opIssue, metrics.OutcomeOK)
	return Issued{Token: token, ExpiresAt: expiresAt}, nil
}

// Verify checks signature and expiry and returns the embedded claims.
//
// The error wraps [sec.ErrTokenExpired] or [sec.ErrTokenInvalid]. Revocation
// is not consulted; see [TokenService.IsRevoked].
func (s *TokenService) Verify(token string) (*sec.Claims, error) {
	parsed, err := s.signer.Parse(token)
	if err != nil {
		return nil, err
	}
	claims := parsed.Claims
	return &claims, nil
}

// IsRevoked reports whether token carries a revocation marker.
// Store failures are returned as-is and never read as "not revoked".
func (s *TokenService) IsRevoked(ctx context.Context, token string) (bool, error) {
	return s.revocations.IsRevoked(ctx, token)
}

// Refresh exchanges a valid, unrevoked token for a new one with identical
// identity claims and revokes the old token.
//
// # Errors
//   - Unauthorized when the old token is invalid, expired, revoked, or was
//     consumed by a concurrent refresh.
//   - Internal when the revocation check itself fails.
func (s *TokenService) Refresh(ctx context.Context, oldToken string) (RefreshResult, error) {
	logger := ctxutil.GetLogger(ctx)

	parsed, err := s.signer.Parse(oldToken)
	if err != nil {
		s.metrics.TokenOperation(opRefresh, metrics.OutcomeDeny)
		return RefreshResult{}, apperr.Unauthorized(msgRefreshFailed).WithCause(err)
	}

	revoked, err := s.revocations.IsRevoked(ctx, oldToken)
	if err != nil {
		s.metrics.TokenOperation(opRefresh, metrics.OutcomeError)
		return RefreshResult{}, apperr.Internal(err)
	}
	if revoked {
		s.metrics.TokenOperation(opRefresh, metrics.OutcomeDeny)
		return RefreshResult{}, apperr.Unauthorized(msgRefreshFailed)
	}

	issued, err := s.Issue(parsed.Claims)
	if err != nil {
		return RefreshResult{}, err
	}

	ttl := parsed.ExpiresAt.Sub(s.signer.Now())
	if ttl <= 0 {
		// Expired between verification and now; nothing left to block.
		s.metrics.TokenOperation(opRefresh, metrics.OutcomeOK)
		return RefreshResult{Issued: issued, PredecessorRevoked: true}, nil
	}

	inserted, err := s.revocations.MarkRevoked(ctx, oldToken, ttl)
	if err != nil {
		s.metrics.TokenOperation(opRefresh, metrics.OutcomeError)
		logger.WarnContext(ctx, "token_refresh_revoke_failed",
			slog.Int64("user_id", parsed.UserID),
			slog.String("jti", parsed.ID),
			slog.Any("error", err),
		)
		return RefreshResult{Issued: issued, PredecessorRevoked: false}, nil
	}
	if !inserted {
		s.metrics.TokenOperation(opRefresh, metrics.OutcomeRace)
		logger.InfoContext(ctx, "token_refresh_lost_race",
			slog.Int64("user_id", parsed.UserID),
			slog.String("jti", parsed.ID),
		)
		return RefreshResult{}, apperr.Unauthorized(msgRefreshFailed)
	}

	s.metrics.TokenOperation(opRefresh, metrics.OutcomeOK)
	return RefreshResult{Issued: issued, PredecessorRevoked: true}, nil
}

// Revoke records a marker that lives as long as the token would have.
//
// Tokens that are already past expiry need no marker. Tokens whose expiry
// cannot be read get the fallback TTL. Revoking twice is not an error.
func (s *TokenService) Revoke(ctx context.Context, token string) error {
	ttl, needed := s.markerTTL(token)
	if !needed {
		return nil
	}

	if _, err := s.revocations.MarkRevoked(ctx, token, ttl); err != nil {
		s.metrics.TokenOperation(opRevoke, metrics.OutcomeError)
		return apperr.Internal(err)
	}

	s.metrics.TokenOperation(opRevoke, metrics.OutcomeOK)
	return nil
}

func (s *TokenService) markerTTL(token string) (time.Duration, bool) {
	expiresAt, readable := s.signer.ExpiryOf(token)
	if !readable {
		return s.fallbackTTL, true
	}

	remaining := expiresAt.Sub(s.signer.Now())
	if remaining <= 0 {
		return 0, false
	}
	return remaining, true
}
