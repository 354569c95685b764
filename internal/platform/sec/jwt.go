// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides cryptographic primitives and token signing.
//
// # Architecture
//
// This package isolates security-sensitive code (Hashing, JWT Signing) from
// the domain logic. It performs no I/O: revocation and caching live in the
// session package, which wraps [TokenSigner].
package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
)

// minSecretLength is the HS256 key size recommended by RFC 7518.
const minSecretLength = 32

var (
	// ErrTokenExpired is returned when a correctly signed token is past its expiry.
	ErrTokenExpired = errors.New("sec: token expired")

	// ErrTokenInvalid is returned for malformed, tampered, or foreign tokens.
	ErrTokenInvalid = errors.New("sec: token invalid")
)

// TokenClaims is the full JWT payload: registered claims plus the identity.
type TokenClaims struct {
	jwt.RegisteredClaims
	Claims
}

// Validate implements [jwt.ClaimsValidator]. A token that verifies but
// carries no usable identity is treated as invalid.
func (c *TokenClaims) Validate() error {
	if c.UserID <= 0 {
		return errors.New("missing user id")
	}
	if !c.UserType.Valid() {
		return fmt.Errorf("unknown user type %q", c.UserType)
	}
	return nil
}

// TokenSigner issues and verifies HS256 tokens carrying [Claims].
type TokenSigner struct {
	secret   []byte
	issuer   string
	lifetime time.Duration
	now      func() time.Time
}

// SignerOption customizes a [TokenSigner].
type SignerOption func(*TokenSigner)

// WithClock overrides the time source. Tests use it to move past expiry.
func WithClock(now func() time.Time) SignerOption {
	return func(signer *TokenSigner) { signer.now = now }
}

// NewTokenSigner creates a signer for the given secret, issuer and token lifetime.
func NewTokenSigner(secret, issuer string, lifetime time.Duration, options ...SignerOption) (*TokenSigner, error) {
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("sec: signing secret must be at least %d bytes", minSecretLength)
	}
	if lifetime <= 0 {
		return nil, fmt.Errorf("sec: token lifetime must be positive, got %s", lifetime)
	}

	signer := &TokenSigner{
		secret:   []byte(secret),
		issuer:   issuer,
		lifetime: lifetime,
		now:      time.Now,
	}
	for _, option := range options {
		option(signer)
	}
	return signer, nil
}

// Lifetime returns the fixed validity window of issued tokens.
func (signer *TokenSigner) Lifetime() time.Duration { return signer.lifetime }

// Now returns the signer's current time.
func (signer *TokenSigner) Now() time.Time { return signer.now() }

// Sign creates a signed token for claims and returns it with its expiry.
func (signer *TokenSigner) Sign(claims Claims) (string, time.Time, error) {
	issuedAt := signer.now()
	expiresAt := issuedAt.Add(signer.lifetime)

	payload := &TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        ulid.Make().String(),
			Subject:   fmt.Sprintf("%d", claims.UserID),
			Issuer:    signer.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Claims: claims.clone(),
	}

	signedToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, payload).SignedString(signer.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sec: failed to sign token: %w", err)
	}

	return signedToken, expiresAt, nil
}

// Parse checks signature, issuer and expiry, and returns the embedded claims.
//
// # Errors
//   - [ErrTokenExpired] when the signature is valid but the token has expired.
//   - [ErrTokenInvalid] for every other failure.
func (signer *TokenSigner) Parse(tokenString string) (*TokenClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(signer.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(signer.now),
	)

	claims := &TokenClaims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return signer.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

// ExpiryOf reads the exp claim without verifying the signature.
//
// It is only used to size revocation markers. The result must never be used
// for an access decision.
func (signer *TokenSigner) ExpiryOf(tokenString string) (time.Time, bool) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
