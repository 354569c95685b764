// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package access

import (
	"context"
	"fmt"
	"strconv"

	"github.com/taibuivan/merchant-admin/internal/platform/apperr"
	"github.com/taibuivan/merchant-admin/internal/platform/ctxkey"
	"github.com/taibuivan/merchant-admin/internal/platform/sec"
)

// TenantColumn is the column that carries the owning merchant on tenant tables.
const TenantColumn = "merchant_id"

const msgMerchantMissing = "Insufficient permissions: merchant information missing"

// Scope is the tenant range a request may see. The zero value is unscoped.
type Scope struct {
	tenantID int64
	fixed    bool
}

// Unscoped returns the scope covering every tenant.
func Unscoped() Scope { return Scope{} }

// FixedTenant returns the scope limited to tenant id.
func FixedTenant(id int64) Scope { return Scope{tenantID: id, fixed: true} }

// IsUnscoped reports whether the scope covers every tenant.
func (s Scope) IsUnscoped() bool { return !s.fixed }

// TenantID returns the fixed tenant, if any.
func (s Scope) TenantID() (int64, bool) { return s.tenantID, s.fixed }

func (s Scope) String() string {
	if !s.fixed {
		return "unscoped"
	}
	return "tenant:" + strconv.FormatInt(s.tenantID, 10)
}

// Filter returns a pgx predicate and its arguments restricting column to the
// scope. argPos is the placeholder number to use ($argPos). An unscoped
// Filter returns an empty predicate and no arguments.
//
//	where, args := scope.Filter("o.merchant_id", 1)
func (s Scope) Filter(column string, argPos int) (string, []any) {
	if !s.fixed {
		return "", nil
	}
	if column == "" {
		column = TenantColumn
	}
	return fmt.Sprintf("%s = $%d", column, argPos), []any{s.tenantID}
}

// ResolveScope derives the scope for identity.
//
// Administrators are unscoped unless they ask for a specific tenant.
// Merchant users are always pinned to their own tenant; whatever they ask
// for is ignored. Any other user type has no tenant data access.
func ResolveScope(identity *sec.Identity, requested *int64) (Scope, error) {
	if identity == nil {
		return Scope{}, apperr.Unauthorized(msgAuthRequired)
	}

	switch identity.UserType() {
	case sec.UserTypeAdmin:
		if requested == nil {
			return Unscoped(), nil
		}
		if *requested <= 0 {
			return Scope{}, apperr.Forbidden("Invalid merchant scope")
		}
		return FixedTenant(*requested), nil

	case sec.UserTypeMerchant:
		merchantID, ok := identity.MerchantID()
		if !ok {
			return Scope{}, apperr.Forbidden(msgMerchantMissing)
		}
		return FixedTenant(merchantID), nil

	default:
		return Scope{}, apperr.Forbidden("Insufficient permissions: no access to merchant data")
	}
}

// CanAccessTenant reports whether identity may read or write tenant data.
func CanAccessTenant(identity *sec.Identity, tenantID int64) bool {
	if identity == nil {
		return false
	}

	switch identity.UserType() {
	case sec.UserTypeAdmin:
		return true
	case sec.UserTypeMerchant:
		merchantID, ok := identity.MerchantID()
		return ok && merchantID == tenantID
	default:
		return false
	}
}

// EnsureCanAccessTenant is [CanAccessTenant] as an error.
func EnsureCanAccessTenant(identity *sec.Identity, tenantID int64) error {
	if identity == nil {
		return apperr.Unauthorized(msgAuthRequired)
	}
	if !CanAccessTenant(identity, tenantID) {
		return apperr.Forbidden("No access to this merchant's data")
	}
	return nil
}

// WithScope attaches a resolved scope to ctx.
func WithScope(ctx context.Context, scope Scope) context.Context {
	return context.WithValue(ctx, ctxkey.KeyTenantScope, scope)
}

// ScopeFrom returns the scope resolved for this request, if any.
func ScopeFrom(ctx context.Context) (Scope, bool) {
	scope, ok := ctx.Value(ctxkey.KeyTenantScope).(Scope)
	return scope, ok
}
