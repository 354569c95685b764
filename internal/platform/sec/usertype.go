// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

// # User Types

// UserType classifies an account. It decides which tenant scope applies.
type UserType string

const (
	// Platform operator. Sees every merchant's data.
	UserTypeAdmin UserType = "ADMIN"

	// Staff of a single merchant. Always pinned to its own merchant id.
	UserTypeMerchant UserType = "MERCHANT"

	// End-user of the consumer app. Has no tenant-scoped admin access.
	UserTypeApp UserType = "APP"
)

// Valid reports whether t is one of the known user types.
func (t UserType) Valid() bool {
	switch t {
	case UserTypeAdmin, UserTypeMerchant, UserTypeApp:
		return true
	default:
		return false
	}
}

// # Well-known Roles

// RoleSuperAdmin satisfies every role and permission check.
const RoleSuperAdmin = "SUPER_ADMIN"
