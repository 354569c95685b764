// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package ctxutil provides helpers for interacting with values stored in [context.Context].
package ctxutil

import (
	"context"
	"log/slog"

	"github.com/taibuivan/merchant-admin/internal/platform/ctxkey"
	"github.com/taibuivan/merchant-admin/internal/platform/sec"
)

// # Request Tracing

// WithRequestID returns a new context with the provided request ID attached.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxkey.KeyRequestID, id)
}

// GetRequestID retrieves the request ID from the context.
// Returns an empty string if not found.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxkey.KeyRequestID).(string)
	return id
}

// # Structured Logging

// WithLogger returns a new context with the provided logger attached.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxkey.KeyLogger, logger)
}

// GetLogger retrieves the logger from the context.
// If no logger is found, it returns the global default logger.
func GetLogger(ctx context.Context) *slog.Logger {
	logger, ok := ctx.Value(ctxkey.KeyLogger).(*slog.Logger)
	if !ok || logger == nil {
		return slog.Default()
	}
	return logger
}

// # Identity & Access

// WithIdentity returns a new context carrying the resolved identity and the
// bearer token it was built from.
func WithIdentity(ctx context.Context, identity *sec.Identity, token string) context.Context {
	ctx = context.WithValue(ctx, ctxkey.KeyIdentity, identity)
	return context.WithValue(ctx, ctxkey.KeyBearerToken, token)
}

// GetIdentity retrieves the [*sec.Identity] from the context, or nil when anonymous.
func GetIdentity(ctx context.Context) *sec.Identity {
	identity, ok := ctx.Value(ctxkey.KeyIdentity).(*sec.Identity)
	if !ok {
		return nil
	}
	return identity
}

// GetBearerToken returns the raw token the identity was built from.
func GetBearerToken(ctx context.Context) string {
	token, _ := ctx.Value(ctxkey.KeyBearerToken).(string)
	return token
}

// # Diagnostics

// WithDiagnostics marks the context as allowed to expose internal error causes.
func WithDiagnostics(ctx context.Context, enabled bool) context.Context {
	return context.WithValue(ctx, ctxkey.KeyDiagnostics, enabled)
}

// DiagnosticsEnabled reports whether internal causes may be shown to the client.
func DiagnosticsEnabled(ctx context.Context) bool {
	enabled, _ := ctx.Value(ctxkey.KeyDiagnostics).(bool)
	return enabled
}
