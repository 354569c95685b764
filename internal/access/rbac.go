// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package access

import (
	"fmt"
	"slices"
	"strings"

	"github.com/taibuivan/merchant-admin/internal/platform/apperr"
	"github.com/taibuivan/merchant-admin/internal/platform/sec"
)

// # Requirements
//
// Each Require* returns nil when the identity passes, Unauthorized when there
// is no identity at all and Forbidden otherwise. Role and permission checks
// use OR semantics and an empty requirement never passes, except for
// SUPER_ADMIN which passes every role and permission check.

// RequireUserType passes when the identity's user type is one of allowed.
func RequireUserType(identity *sec.Identity, allowed ...sec.UserType) error {
	if identity == nil {
		return apperr.Unauthorized(msgAuthRequired)
	}
	if !slices.Contains(allowed, identity.UserType()) {
		return apperr.Forbidden("Insufficient permissions: user type not allowed")
	}
	return nil
}

// RequireRoles passes when the identity holds at least one of roles.
func RequireRoles(identity *sec.Identity, roles ...string) error {
	if identity == nil {
		return apperr.Unauthorized(msgAuthRequired)
	}
	if !HasAnyRole(identity, roles...) {
		return apperr.Forbidden(fmt.Sprintf("Insufficient permissions: requires role [%s]", strings.Join(roles, ", ")))
	}
	return nil
}

// RequirePermissions passes when the identity holds at least one of permissions.
func RequirePermissions(identity *sec.Identity, permissions ...string) error {
	if identity == nil {
		return apperr.Unauthorized(msgAuthRequired)
	}
	if !HasAnyPermission(identity, permissions...) {
		return apperr.Forbidden(fmt.Sprintf("Insufficient permissions: requires permission [%s]", strings.Join(permissions, ", ")))
	}
	return nil
}

// RequireAdmin passes for platform administrators.
func RequireAdmin(identity *sec.Identity) error {
	if identity == nil {
		return apperr.Unauthorized(msgAuthRequired)
	}
	if identity.UserType() != sec.UserTypeAdmin {
		return apperr.Forbidden("Insufficient permissions: administrator required")
	}
	return nil
}

// RequireMerchant passes for merchant users that carry a merchant id.
// A merchant user without one is rejected, never treated as unscoped.
func RequireMerchant(identity *sec.Identity) error {
	if identity == nil {
		return apperr.Unauthorized(msgAuthRequired)
	}
	if identity.UserType() != sec.UserTypeMerchant {
		return apperr.Forbidden("Insufficient permissions: merchant user required")
	}
	if _, ok := identity.MerchantID(); !ok {
		return apperr.Forbidden(msgMerchantMissing)
	}
	return nil
}

// # Predicates

// HasRole reports whether identity holds role.
func HasRole(identity *sec.Identity, role string) bool {
	return HasAnyRole(identity, role)
}

// HasAnyRole reports whether identity holds at least one of roles.
func HasAnyRole(identity *sec.Identity, roles ...string) bool {
	return anyOf(identity, roles, identity.HasRole)
}

// HasAllRoles reports whether identity holds every one of roles.
func HasAllRoles(identity *sec.Identity, roles ...string) bool {
	return allOf(identity, roles, identity.HasRole)
}

// HasPermission reports whether identity holds permission.
func HasPermission(identity *sec.Identity, permission string) bool {
	return HasAnyPermission(identity, permission)
}

// HasAnyPermission reports whether identity holds at least one of permissions.
func HasAnyPermission(identity *sec.Identity, permissions ...string) bool {
	return anyOf(identity, permissions, identity.HasPermission)
}

// HasAllPermissions reports whether identity holds every one of permissions.
func HasAllPermissions(identity *sec.Identity, permissions ...string) bool {
	return allOf(identity, permissions, identity.HasPermission)
}

func anyOf(identity *sec.Identity, codes []string, holds func(string) bool) bool {
	if identity == nil {
		return false
	}
	if identity.IsSuperAdmin() {
		return true
	}
	return slices.ContainsFunc(codes, holds)
}

func allOf(identity *sec.Identity, codes []string, holds func(string) bool) bool {
	if identity == nil {
		return false
	}
	if identity.IsSuperAdmin() {
		return true
	}
	if len(codes) == 0 {
		return false
	}
	for _, code := range codes {
		if !holds(code) {
			return false
		}
	}
	return true
}
