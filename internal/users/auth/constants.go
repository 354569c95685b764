// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

// # Authentication Constraints

const (
	// MaxLoginLength bounds the username-or-email identifier.
	MaxLoginLength = 255

	// MinPasswordLength is the shortest accepted new password.
	MinPasswordLength = 8

	// MaxPasswordLength is bcrypt's input limit in bytes; longer input is rejected
	// rather than silently truncated.
	MaxPasswordLength = 72
)

// Client-facing messages.
const (
	msgInvalidCredentials = "Invalid username or password"
	msgAccountDisabled    = "Account is disabled"
	msgOldPasswordWrong   = "Old password is incorrect"
)
