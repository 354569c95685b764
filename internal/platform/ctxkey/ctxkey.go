// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package ctxkey defines typed context keys used by middleware and handlers.
//
// # Safety
//
// Using a private, unexported key type prevents collisions with third-party
// packages that also store values in the context.
package ctxkey

// key is an unexported type used for context keys to ensure type safety.
type key string

const (
	// KeyRequestID is the context key for the X-Request-ID correlation value.
	KeyRequestID key = "request_id"

	// KeyIdentity is the context key for the per-request [*sec.Identity].
	KeyIdentity key = "identity"

	// KeyBearerToken is the context key for the raw bearer token of the request.
	KeyBearerToken key = "bearer_token"

	// KeyTenantScope is the context key for the resolved tenant scope.
	KeyTenantScope key = "tenant_scope"

	// KeyLogger is the context key for the per-request [*log/slog.Logger].
	KeyLogger key = "logger"

	// KeyDiagnostics marks requests whose 5xx responses may expose the cause.
	KeyDiagnostics key = "diagnostics"
)
