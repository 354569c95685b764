// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"sort"

	"github.com/taibuivan/merchant-admin/pkg/pointer"
)

// Claims is the identity payload embedded in every issued token.
//
// It is immutable once issued. A new set of claims only appears through a
// fresh login or a refresh.
type Claims struct {
	UserID     int64    `json:"uid"`
	Username   string   `json:"unm"`
	UserType   UserType `json:"utp"`
	MerchantID *int64   `json:"mid,omitempty"`
}

// clone returns a deep copy so callers never share the MerchantID pointer.
func (c Claims) clone() Claims {
	c.MerchantID = pointer.Clone(c.MerchantID)
	return c
}

// Snapshot is the cached set of a user's effective role and permission codes.
type Snapshot struct {
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}

// Identity is the per-request resolved caller: claims plus effective roles
// and permissions.
//
// # Concurrency
//
// Identity is read-only after construction and safe to read from any
// goroutine serving the same request.
type Identity struct {
	claims      Claims
	roles       map[string]struct{}
	permissions map[string]struct{}
}

// NewIdentity builds an [Identity] from verified claims and a permission snapshot.
// A nil snapshot yields an identity with no roles and no permissions.
func NewIdentity(claims Claims, snapshot *Snapshot) *Identity {
	identity := &Identity{
		claims:      claims.clone(),
		roles:       map[string]struct{}{},
		permissions: map[string]struct{}{},
	}
	if snapshot == nil {
		return identity
	}
	for _, role := range snapshot.Roles {
		identity.roles[role] = struct{}{}
	}
	for _, permission := range snapshot.Permissions {
		identity.permissions[permission] = struct{}{}
	}
	return identity
}

// Claims returns a copy of the token claims.
func (i *Identity) Claims() Claims { return i.claims.clone() }

// UserID returns the authenticated user's id.
func (i *Identity) UserID() int64 { return i.claims.UserID }

// Username returns the authenticated user's login name.
func (i *Identity) Username() string { return i.claims.Username }

// UserType returns the authenticated user's type.
func (i *Identity) UserType() UserType { return i.claims.UserType }

// MerchantID returns the merchant id claim and whether it was present.
func (i *Identity) MerchantID() (int64, bool) {
	if i.claims.MerchantID == nil {
		return 0, false
	}
	return *i.claims.MerchantID, true
}

// HasRole reports an exact role match. It does not apply the super-admin bypass.
func (i *Identity) HasRole(code string) bool {
	_, ok := i.roles[code]
	return ok
}

// HasPermission reports an exact permission match. It does not apply the super-admin bypass.
func (i *Identity) HasPermission(code string) bool {
	_, ok := i.permissions[code]
	return ok
}

// IsSuperAdmin reports whether the identity carries [RoleSuperAdmin].
func (i *Identity) IsSuperAdmin() bool { return i.HasRole(RoleSuperAdmin) }

// Roles returns the role codes in sorted order.
func (i *Identity) Roles() []string { return sortedKeys(i.roles) }

// Permissions returns the permission codes in sorted order.
func (i *Identity) Permissions() []string { return sortedKeys(i.permissions) }

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
