// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/taibuivan/merchant-admin/internal/access"
	"github.com/taibuivan/merchant-admin/internal/platform/apperr"
	"github.com/taibuivan/merchant-admin/internal/platform/ctxutil"
	"github.com/taibuivan/merchant-admin/internal/platform/sec"
	"github.com/taibuivan/merchant-admin/internal/session"
	"github.com/taibuivan/merchant-admin/pkg/pointer"
)

// # Contracts & Types

// Service implements the console account use cases.
//
// # Review Process
//
// This service is critical for security. Any changes to credential checks,
// token issuance or snapshot invalidation must be reviewed by the security team.
type Service struct {
	credentials   CredentialStore
	authority     access.RoleAuthority
	tokens        *session.TokenService
	permissions   session.PermissionCache
	permissionTTL time.Duration
	now           func() time.Time
}

// ServiceOption customizes a [Service].
type ServiceOption func(*Service)

// WithServiceClock overrides the clock used for login bookkeeping.
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(service *Service) { service.now = now }
}

// NewService constructs a new [Service] with necessary dependencies.
// permissionTTL is how long the snapshot written at login stays cached.
func NewService(
	credentials CredentialStore,
	authority access.RoleAuthority,
	tokens *session.TokenService,
	permissions session.PermissionCache,
	permissionTTL time.Duration,
	options ...ServiceOption,
) *Service {
	service := &Service{
		credentials:   credentials,
		authority:     authority,
		tokens:        tokens,
		permissions:   permissions,
		permissionTTL: permissionTTL,
		now:           time.Now,
	}
	for _, option := range options {
		option(service)
	}
	return service
}

// # Login Flow

// LoginInput holds the credentials submitted to [Service.Login].
type LoginInput struct {
	Login     string
	Password  string
	IPAddress string
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	User        *User     `json:"user"`
	Token       string    `json:"token"`
	ExpiresAt   time.Time `json:"expires_at"`
	Roles       []string  `json:"roles"`
	Permissions []string  `json:"permissions"`
}

/*
Login verifies credentials and issues a token.

Description: Looks the account up by username or email, checks the bcrypt
hash, rejects disabled accounts, loads the effective roles and permissions,
signs a token and caches the permission snapshot for later requests. The
password is checked before the account status so that a wrong password never
reveals whether an account is disabled.

Parameters:
  - context: context.Context
  - input: LoginInput

Returns:
  - *LoginResult: Token, expiry, user and effective privileges
  - err: Unauthorized (bad credentials), Forbidden (disabled) or Internal
*/
func (service *Service) Login(context context.Context, input LoginInput) (*LoginResult, error) {
	logger := ctxutil.GetLogger(context)

	user, err := service.credentials.FindByLoginIdentifier(context, NormalizeLogin(input.Login))
	if err != nil {
		if apperr.HasCode(err, apperr.CodeNotFound) {
			// Burn a bcrypt comparison so unknown accounts cost the same as wrong passwords.
			sec.CheckPasswordHash(input.Password, dummyPasswordHash())
			return nil, apperr.Unauthorized(msgInvalidCredentials)
		}
		return nil, fmt.Errorf("auth_service_login_lookup_failed: %w", err)
	}

	if !sec.CheckPasswordHash(input.Password, user.PasswordHash) {
		return nil, apperr.Unauthorized(msgInvalidCredentials)
	}

	if user.IsDisabled() {
		return nil, apperr.Forbidden(msgAccountDisabled)
	}

	snapshot, err := service.authority.RolesAndPermissionsFor(context, user.ID)
	if err != nil {
		return nil, fmt.Errorf("auth_service_login_roles_failed: %w", asInternal(err))
	}

	issued, err := service.tokens.Issue(user.Claims())
	if err != nil {
		return nil, err
	}

	// A failed cache write leaves the user with whatever the miss policy
	// grants until the next login; the login itself still succeeds.
	if err := service.permissions.Put(context, user.ID, snapshot, service.permissionTTL); err != nil {
		logger.WarnContext(context, "permission_cache_put_failed",
			slog.Int64("user_id", user.ID),
			slog.Any("error", err),
		)
	}

	now := service.now()
	if err := service.credentials.TouchLastLogin(context, user.ID, input.IPAddress, now); err != nil {
		logger.WarnContext(context, "last_login_update_failed",
			slog.Int64("user_id", user.ID),
			slog.Any("error", err),
		)
	} else {
		user.LastLoginAt = pointer.To(now)
		user.LastLoginIP = pointer.To(input.IPAddress)
	}

	logger.InfoContext(context, "user_logged_in",
		slog.Int64("user_id", user.ID),
		slog.String("user_type", string(user.UserType)),
		slog.Int64("merchant_id", pointer.Val(user.MerchantID)),
	)

	return &LoginResult{
		User:        user,
		Token:       issued.Token,
		ExpiresAt:   issued.ExpiresAt,
		Roles:       snapshot.Roles,
		Permissions: snapshot.Permissions,
	}, nil
}

/*
Logout ends the caller's session.

Description: Drops the cached permission snapshot first and then revokes the
presented token. Both steps are idempotent, so a client may retry after any
failure while its token is still valid.

Parameters:
  - context: context.Context
  - identity: *sec.Identity (the caller)
  - token: string (the bearer token of this request)

Returns:
  - err: Unauthorized without identity, Internal on store failures
*/
func (service *Service) Logout(context context.Context, identity *sec.Identity, token string) error {
	if identity == nil {
		return apperr.Unauthorized("Authentication required")
	}

	if err := service.permissions.Invalidate(context, identity.UserID()); err != nil {
		return apperr.Internal(fmt.Errorf("auth_service_logout_invalidate_failed: %w", err))
	}

	if err := service.tokens.Revoke(context, token); err != nil {
		return err
	}

	ctxutil.GetLogger(context).InfoContext(context, "user_logged_out",
		slog.Int64("user_id", identity.UserID()),
	)
	return nil
}

// # Session Management

// Refresh exchanges a valid token for a new one. See [session.TokenService.Refresh].
func (service *Service) Refresh(context context.Context, token string) (session.RefreshResult, error) {
	return service.tokens.Refresh(context, token)
}

// # Profile Management

// Profile is the caller's account with freshly loaded privileges.
type Profile struct {
	User        *User    `json:"user"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}

/*
Profile returns the account of userID with roles and permissions read from
the role authority rather than the cache.

Parameters:
  - context: context.Context
  - userID: int64

Returns:
  - *Profile: Account and privileges
  - err: NotFound or storage failures
*/
func (service *Service) Profile(context context.Context, userID int64) (*Profile, error) {
	user, err := service.credentials.FindByID(context, userID)
	if err != nil {
		return nil, fmt.Errorf("auth_service_profile_lookup_failed: %w", err)
	}

	snapshot, err := service.authority.RolesAndPermissionsFor(context, userID)
	if err != nil {
		return nil, fmt.Errorf("auth_service_profile_roles_failed: %w", asInternal(err))
	}

	return &Profile{User: user, Roles: snapshot.Roles, Permissions: snapshot.Permissions}, nil
}

/*
ChangePassword replaces the password after verifying the current one.

Description: The cached permission snapshot is dropped afterwards. Tokens
already issued stay valid until they expire or are logged out.

Parameters:
  - context: context.Context
  - userID: int64
  - oldPassword: string
  - newPassword: string

Returns:
  - err: ValidationError (wrong old password), NotFound or storage failures
*/
func (service *Service) ChangePassword(context context.Context, userID int64, oldPassword, newPassword string) error {
	user, err := service.credentials.FindByID(context, userID)
	if err != nil {
		return fmt.Errorf("auth_service_change_password_lookup_failed: %w", err)
	}

	if !sec.CheckPasswordHash(oldPassword, user.PasswordHash) {
		return apperr.ValidationError(msgOldPasswordWrong, apperr.FieldError{
			Field:   FieldOldPassword,
			Message: msgOldPasswordWrong,
		})
	}

	hashedPassword, err := sec.HashPassword(newPassword)
	if err != nil {
		return apperr.Internal(fmt.Errorf("auth_service_hash_failed: %w", err))
	}

	if err := service.credentials.UpdatePassword(context, userID, hashedPassword); err != nil {
		return fmt.Errorf("auth_service_change_password_failed: %w", err)
	}

	if err := service.InvalidatePermissions(context, userID); err != nil {
		return err
	}

	ctxutil.GetLogger(context).InfoContext(context, "password_changed",
		slog.Int64("user_id", userID),
	)
	return nil
}

// InvalidatePermissions drops the cached snapshot of userID. Call it after
// any change to the user's role or permission assignments.
func (service *Service) InvalidatePermissions(context context.Context, userID int64) error {
	if err := service.permissions.Invalidate(context, userID); err != nil {
		return apperr.Internal(fmt.Errorf("auth_service_invalidate_permissions_failed: %w", err))
	}
	return nil
}

// # Helpers

// dummyPasswordHash is compared against when the account does not exist.
var dummyPasswordHash = sync.OnceValue(func() string {
	hash, _ := sec.HashPassword("merchant-admin-unknown-account")
	return hash
})

// NormalizeLogin applies NFKC normalization and trims surrounding space so
// visually identical identifiers match the stored username or email.
func NormalizeLogin(login string) string {
	return strings.TrimSpace(norm.NFKC.String(login))
}

// asInternal keeps typed errors and wraps anything else as Internal.
func asInternal(err error) error {
	if apperr.As(err) != nil {
		return err
	}
	return apperr.Internal(err)
}
