// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements the admin console account flows.

It defines the account entity and the use cases built on top of the token
service and the permission cache: login, logout, refresh, profile and
password change.

# Architecture

  - Service: Orchestrates the flows over [CredentialStore], [access.RoleAuthority],
    [session.TokenService] and [session.PermissionCache].
  - Handler: chi routes mounted under /admin/v1/auth.
  - Postgres: [PostgresCredentialStore] and [PostgresRoleAuthority].
*/
package auth

import (
	"time"

	"github.com/taibuivan/merchant-admin/internal/platform/sec"
	"github.com/taibuivan/merchant-admin/pkg/pointer"
)

// # Domain Entities

// UserStatus is the enablement flag of an account.
type UserStatus int16

const (
	UserStatusDisabled UserStatus = 0
	UserStatusEnabled  UserStatus = 1
)

// User represents an admin console account.
type User struct {
	ID           int64        `json:"id"`
	Username     string       `json:"username"`
	Email        string       `json:"email"`
	PasswordHash string       `json:"-"` // Explicitly omitted from JSON for security.
	RealName     *string      `json:"real_name,omitempty"`
	Nickname     *string      `json:"nickname,omitempty"`
	UserType     sec.UserType `json:"user_type"`
	MerchantID   *int64       `json:"merchant_id,omitempty"`
	Status       UserStatus   `json:"status"`
	LastLoginAt  *time.Time   `json:"last_login_at,omitempty"`
	LastLoginIP  *string      `json:"last_login_ip,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// IsDisabled reports whether the account may not log in.
func (u *User) IsDisabled() bool { return u.Status != UserStatusEnabled }

// Claims returns the token claims describing u.
func (u *User) Claims() sec.Claims {
	return sec.Claims{
		UserID:     u.ID,
		Username:   u.Username,
		UserType:   u.UserType,
		MerchantID: pointer.Clone(u.MerchantID),
	}
}

// # Field Identifiers

// Field names used in validation details.
const (
	FieldLogin       = "login"
	FieldPassword    = "password"
	FieldOldPassword = "old_password"
	FieldNewPassword = "new_password"
)
