// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

// StatusEnabled is the status value of an active role or permission.
const StatusEnabled = 1

// RolesTable represents the 'roles' table
type RolesTable struct {
	Table      string
	ID         string
	Code       string
	RoleType   string
	MerchantID string
	Status     string
}

// Roles is the schema definition for roles
var Roles = RolesTable{
	Table:      "roles",
	ID:         "id",
	Code:       "code",
	RoleType:   "role_type",
	MerchantID: "merchant_id",
	Status:     "status",
}

// PermissionsTable represents the 'permissions' table
type PermissionsTable struct {
	Table  string
	ID     string
	Code   string
	Status string
}

// Permissions is the schema definition for permissions
var Permissions = PermissionsTable{
	Table:  "permissions",
	ID:     "id",
	Code:   "code",
	Status: "status",
}

// UserRolesTable represents the 'user_roles' join table
type UserRolesTable struct {
	Table  string
	UserID string
	RoleID string
}

// UserRoles is the schema definition for user_roles
var UserRoles = UserRolesTable{
	Table:  "user_roles",
	UserID: "user_id",
	RoleID: "role_id",
}

// RolePermissionsTable represents the 'role_permissions' join table
type RolePermissionsTable struct {
	Table        string
	RoleID       string
	PermissionID string
}

// RolePermissions is the schema definition for role_permissions
var RolePermissions = RolePermissionsTable{
	Table:        "role_permissions",
	RoleID:       "role_id",
	PermissionID: "permission_id",
}
