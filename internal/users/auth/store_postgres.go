// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/merchant-admin/internal/platform/database/schema"
	"github.com/taibuivan/merchant-admin/internal/platform/dberr"
	"github.com/taibuivan/merchant-admin/internal/platform/sec"
)

// resourceUser names the account in NotFound messages.
const resourceUser = "User"

var (
	users = schema.Users

	selectUser = fmt.Sprintf(`SELECT %s FROM %s`, strings.Join(users.Columns(), ", "), users.Table)

	// A username match wins over an email match.
	findByLoginQuery = fmt.Sprintf(`%s WHERE %s = $1 OR %s = $1 ORDER BY (%s = $1) DESC LIMIT 1`,
		selectUser, users.Username, users.Email, users.Username)

	findByIDQuery = fmt.Sprintf(`%s WHERE %s = $1`, selectUser, users.ID)

	updatePasswordQuery = fmt.Sprintf(`UPDATE %s SET %s = $2, %s = NOW() WHERE %s = $1`,
		users.Table, users.Password, users.UpdatedAt, users.ID)

	touchLastLoginQuery = fmt.Sprintf(`UPDATE %s SET %s = $2, %s = $3 WHERE %s = $1`,
		users.Table, users.LastLoginAt, users.LastLoginIP, users.ID)
)

// # Credential Store

// PostgresCredentialStore implements [CredentialStore] using pgx.
type PostgresCredentialStore struct {
	pool *pgxpool.Pool
}

// NewCredentialStore creates a new PostgreSQL implementation of [CredentialStore].
func NewCredentialStore(pool *pgxpool.Pool) *PostgresCredentialStore {
	return &PostgresCredentialStore{pool: pool}
}

/*
FindByLoginIdentifier retrieves an account by username or email.

Description: Both columns are unique on their own, but one account's email
may equal another's username. The username match is preferred.

Parameters:
  - context: context.Context
  - identifier: string

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or database errors
*/
func (store *PostgresCredentialStore) FindByLoginIdentifier(context context.Context, identifier string) (*User, error) {
	user, err := scanUser(store.pool.QueryRow(context, findByLoginQuery, identifier))
	if err != nil {
		return nil, fmt.Errorf("postgres_credential_store_find_by_login_failed: %w", dberr.Wrap(err, resourceUser))
	}
	return user, nil
}

/*
FindByID retrieves an account by primary key.

Parameters:
  - context: context.Context
  - id: int64

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or database errors
*/
func (store *PostgresCredentialStore) FindByID(context context.Context, id int64) (*User, error) {
	user, err := scanUser(store.pool.QueryRow(context, findByIDQuery, id))
	if err != nil {
		return nil, fmt.Errorf("postgres_credential_store_find_by_id_failed: %w", dberr.Wrap(err, resourceUser))
	}
	return user, nil
}

// UpdatePassword replaces the bcrypt hash and bumps updated_at.
func (store *PostgresCredentialStore) UpdatePassword(context context.Context, id int64, passwordHash string) error {
	tag, err := store.pool.Exec(context, updatePasswordQuery, id, passwordHash)
	if err != nil {
		return fmt.Errorf("postgres_credential_store_update_password_failed: %w", dberr.Wrap(err, resourceUser))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres_credential_store_update_password_failed: %w", dberr.Wrap(pgx.ErrNoRows, resourceUser))
	}
	return nil
}

// TouchLastLogin stores the login bookkeeping columns.
func (store *PostgresCredentialStore) TouchLastLogin(context context.Context, id int64, ipAddress string, at time.Time) error {
	if _, err := store.pool.Exec(context, touchLastLoginQuery, id, at, ipAddress); err != nil {
		return fmt.Errorf("postgres_credential_store_touch_last_login_failed: %w", dberr.Wrap(err, resourceUser))
	}
	return nil
}

func scanUser(row pgx.Row) (*User, error) {
	user := &User{}
	var userType string

	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.RealName,
		&user.Nickname,
		&userType,
		&user.MerchantID,
		&user.Status,
		&user.LastLoginAt,
		&user.LastLoginIP,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	user.UserType = sec.UserType(userType)
	return user, nil
}

// # Role Authority

var (
	rolesQuery = fmt.Sprintf(`
		SELECT r.%[1]s
		FROM %[2]s r
		JOIN %[3]s ur ON ur.%[4]s = r.%[5]s
		WHERE ur.%[6]s = $1 AND r.%[7]s = %[8]d
		ORDER BY r.%[1]s`,
		schema.Roles.Code, schema.Roles.Table,
		schema.UserRoles.Table, schema.UserRoles.RoleID, schema.Roles.ID,
		schema.UserRoles.UserID, schema.Roles.Status, schema.StatusEnabled)

	permissionsQuery = fmt.Sprintf(`
		SELECT DISTINCT p.%[1]s
		FROM %[2]s p
		JOIN %[3]s rp ON rp.%[4]s = p.%[5]s
		JOIN %[6]s r ON r.%[7]s = rp.%[8]s
		JOIN %[9]s ur ON ur.%[10]s = r.%[7]s
		WHERE ur.%[11]s = $1 AND r.%[12]s = %[14]d AND p.%[13]s = %[14]d
		ORDER BY p.%[1]s`,
		schema.Permissions.Code, schema.Permissions.Table,
		schema.RolePermissions.Table, schema.RolePermissions.PermissionID, schema.Permissions.ID,
		schema.Roles.Table, schema.Roles.ID, schema.RolePermissions.RoleID,
		schema.UserRoles.Table, schema.UserRoles.RoleID,
		schema.UserRoles.UserID, schema.Roles.Status, schema.Permissions.Status, schema.StatusEnabled)
)

// PostgresRoleAuthority reads effective roles and permissions from the
// role tables. It satisfies [access.RoleAuthority].
type PostgresRoleAuthority struct {
	pool *pgxpool.Pool
}

// NewRoleAuthority creates a new PostgreSQL role authority.
func NewRoleAuthority(pool *pgxpool.Pool) *PostgresRoleAuthority {
	return &PostgresRoleAuthority{pool: pool}
}

/*
RolesAndPermissionsFor returns the enabled role codes of a user and the
distinct enabled permission codes reachable through those roles.

Parameters:
  - context: context.Context
  - userID: int64

Returns:
  - *sec.Snapshot: Sorted role and permission codes (never nil slices)
  - error: Database errors
*/
func (authority *PostgresRoleAuthority) RolesAndPermissionsFor(context context.Context, userID int64) (*sec.Snapshot, error) {
	roles, err := authority.codes(context, rolesQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres_role_authority_roles_failed: %w", err)
	}

	permissions, err := authority.codes(context, permissionsQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres_role_authority_permissions_failed: %w", err)
	}

	return &sec.Snapshot{Roles: roles, Permissions: permissions}, nil
}

func (authority *PostgresRoleAuthority) codes(context context.Context, query string, userID int64) ([]string, error) {
	rows, err := authority.pool.Query(context, query, userID)
	if err != nil {
		return nil, dberr.Wrap(err, "Role")
	}

	codes, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, dberr.Wrap(err, "Role")
	}
	if codes == nil {
		codes = []string{}
	}
	return codes, nil
}
