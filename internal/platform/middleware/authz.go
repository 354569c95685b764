// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/taibuivan/merchant-admin/internal/access"
	"github.com/taibuivan/merchant-admin/internal/platform/apperr"
	"github.com/taibuivan/merchant-admin/internal/platform/constants"
	"github.com/taibuivan/merchant-admin/internal/platform/ctxutil"
	"github.com/taibuivan/merchant-admin/internal/platform/metrics"
	requestutil "github.com/taibuivan/merchant-admin/internal/platform/request"
	"github.com/taibuivan/merchant-admin/internal/platform/respond"
	"github.com/taibuivan/merchant-admin/internal/platform/sec"
)

// IdentityBuilder resolves a bearer token into an identity.
// It is satisfied by [*access.Builder].
type IdentityBuilder interface {
	Build(ctx context.Context, token string) (*sec.Identity, error)
}

// Authz mounts authentication, RBAC and tenant isolation on a router.
//
// # Usage
//
//	authz := middleware.NewAuthz(builder, recorder)
//	router.With(authz.Authenticate, authz.RequirePermissions("order.read"), authz.TenantIsolation).
//		Get("/orders", handler.ListOrders)
type Authz struct {
	builder IdentityBuilder
	metrics *metrics.Recorder
}

// NewAuthz creates the middleware set. recorder may be nil.
func NewAuthz(builder IdentityBuilder, recorder *metrics.Recorder) *Authz {
	return &Authz{builder: builder, metrics: recorder}
}

// # Authentication

// Authenticate requires a valid, unrevoked bearer token.
//
// # Flow
//  1. Extract 'Authorization: Bearer <token>'; missing or malformed is 401.
//  2. Build the identity (verify, revocation check, permission snapshot).
//  3. Attach identity and token to the context, tag the request logger.
func (a *Authz) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		token, ok := requestutil.BearerToken(request)
		if !ok {
			a.metrics.AuthDecision(metrics.StageAuthenticate, metrics.OutcomeDeny)
			respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
			return
		}

		identity, err := a.builder.Build(request.Context(), token)
		if err != nil {
			respond.Error(writer, request, err)
			return
		}

		next.ServeHTTP(writer, request.WithContext(attachIdentity(request.Context(), identity, token)))
	})
}

// OptionalAuthenticate attaches an identity when one can be built and
// otherwise lets the request through anonymously, whatever the failure.
func (a *Authz) OptionalAuthenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		token, ok := requestutil.BearerToken(request)
		if !ok {
			next.ServeHTTP(writer, request)
			return
		}

		identity, err := a.builder.Build(request.Context(), token)
		if err != nil {
			ctxutil.GetLogger(request.Context()).DebugContext(request.Context(), "optional_auth_skipped",
				slog.Any("error", err),
			)
			next.ServeHTTP(writer, request)
			return
		}

		next.ServeHTTP(writer, request.WithContext(attachIdentity(request.Context(), identity, token)))
	})
}

func attachIdentity(ctx context.Context, identity *sec.Identity, token string) context.Context {
	logger := ctxutil.GetLogger(ctx).With(
		slog.Int64("user_id", identity.UserID()),
		slog.String("user_type", string(identity.UserType())),
	)
	ctx = ctxutil.WithLogger(ctx, logger)
	return ctxutil.WithIdentity(ctx, identity, token)
}

// # Role-Based Access Control
//
// Every Require* must be mounted after [Authz.Authenticate]. Without an
// identity in the context they answer 401.

// RequireUserType allows only the listed user types.
func (a *Authz) RequireUserType(allowed ...sec.UserType) func(http.Handler) http.Handler {
	return a.guard(metrics.StageRBAC, func(identity *sec.Identity) error {
		return access.RequireUserType(identity, allowed...)
	})
}

// RequireRoles allows identities holding any of roles (SUPER_ADMIN always passes).
func (a *Authz) RequireRoles(roles ...string) func(http.Handler) http.Handler {
	return a.guard(metrics.StageRBAC, func(identity *sec.Identity) error {
		return access.RequireRoles(identity, roles...)
	})
}

// RequirePermissions allows identities holding any of permissions (SUPER_ADMIN always passes).
func (a *Authz) RequirePermissions(permissions ...string) func(http.Handler) http.Handler {
	return a.guard(metrics.StageRBAC, func(identity *sec.Identity) error {
		return access.RequirePermissions(identity, permissions...)
	})
}

// RequireAdmin allows platform administrators only.
func (a *Authz) RequireAdmin(next http.Handler) http.Handler {
	return a.guard(metrics.StageRBAC, access.RequireAdmin)(next)
}

// RequireMerchant allows merchant users that carry a merchant id.
func (a *Authz) RequireMerchant(next http.Handler) http.Handler {
	return a.guard(metrics.StageRBAC, access.RequireMerchant)(next)
}

func (a *Authz) guard(stage string, check func(*sec.Identity) error) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if err := check(ctxutil.GetIdentity(request.Context())); err != nil {
				a.metrics.AuthDecision(stage, metrics.OutcomeDeny)
				ctxutil.GetLogger(request.Context()).InfoContext(request.Context(), "access_denied",
					slog.String("stage", stage),
					slog.String("reason", err.Error()),
				)
				respond.Error(writer, request, err)
				return
			}
			a.metrics.AuthDecision(stage, metrics.OutcomeAllow)
			next.ServeHTTP(writer, request)
		})
	}
}

// # Tenant Isolation

// TenantIsolation resolves the tenant scope once per request and stores it
// for [access.ScopeFrom].
//
// Administrators may narrow their scope with the merchantId query parameter.
// For merchant users the parameter is ignored and their own tenant is used.
func (a *Authz) TenantIsolation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		identity := ctxutil.GetIdentity(request.Context())

		var requested *int64
		if identity != nil && identity.UserType() == sec.UserTypeAdmin {
			var err error
			if requested, err = requestutil.OptionalInt64Query(request, constants.QueryMerchantID); err != nil {
				respond.Error(writer, request, err)
				return
			}
		}

		scope, err := access.ResolveScope(identity, requested)
		if err != nil {
			a.metrics.AuthDecision(metrics.StageTenant, metrics.OutcomeDeny)
			respond.Error(writer, request, err)
			return
		}

		a.metrics.AuthDecision(metrics.StageTenant, metrics.OutcomeAllow)
		next.ServeHTTP(writer, request.WithContext(access.WithScope(request.Context(), scope)))
	})
}

// # Diagnostics

// Diagnostics allows 5xx responses to carry the internal cause. Only mount
// it with enabled=true outside production.
func Diagnostics(enabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			next.ServeHTTP(writer, request.WithContext(ctxutil.WithDiagnostics(request.Context(), true)))
		})
	}
}
