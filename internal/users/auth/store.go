// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"time"
)

// # Account Data Access

// CredentialStore defines the data access contract for console accounts.
//
// Role assignments are read through [access.RoleAuthority]; this store only
// knows about the account row itself.
type CredentialStore interface {

	/*
		FindByLoginIdentifier returns the account whose username or email
		equals identifier. A username match wins over an email match.

		Parameters:
		  - context: context.Context
		  - identifier: string (already normalized)

		Returns:
		  - *User: Hydrated entity
		  - error: apperr.NotFound when absent, or database errors
	*/
	FindByLoginIdentifier(context context.Context, identifier string) (*User, error)

	/*
		FindByID returns the account with the given ID.

		Parameters:
		  - context: context.Context
		  - id: int64

		Returns:
		  - *User: Hydrated entity
		  - error: apperr.NotFound when absent, or database errors
	*/
	FindByID(context context.Context, id int64) (*User, error)

	/*
		UpdatePassword replaces only the account's password hash.

		Parameters:
		  - context: context.Context
		  - id: int64
		  - passwordHash: string

		Returns:
		  - error: apperr.NotFound when absent, or persistence failures
	*/
	UpdatePassword(context context.Context, id int64, passwordHash string) error

	/*
		TouchLastLogin records the time and client address of a successful login.

		Parameters:
		  - context: context.Context
		  - id: int64
		  - ipAddress: string
		  - at: time.Time

		Returns:
		  - error: Persistence failures
	*/
	TouchLastLogin(context context.Context, id int64, ipAddress string, at time.Time) error
}
