// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package schema names the tables and columns of the admin database so
// queries are assembled from one definition instead of scattered literals.
//
// It mirrors data/migrations; a renamed column changes in both places.
package schema

// UsersTable represents the 'users' table
type UsersTable struct {
	Table       string
	ID          string
	Username    string
	Email       string
	Password    string
	RealName    string
	Nickname    string
	UserType    string
	MerchantID  string
	Status      string
	LastLoginAt string
	LastLoginIP string
	CreatedAt   string
	UpdatedAt   string
}

// Users is the schema definition for users
var Users = UsersTable{
	Table:       "users",
	ID:          "id",
	Username:    "username",
	Email:       "email",
	Password:    "password",
	RealName:    "real_name",
	Nickname:    "nickname",
	UserType:    "user_type",
	MerchantID:  "merchant_id",
	Status:      "status",
	LastLoginAt: "last_login_at",
	LastLoginIP: "last_login_ip",
	CreatedAt:   "created_at",
	UpdatedAt:   "updated_at",
}

// Columns returns the columns scanned into an account, in scan order.
func (t UsersTable) Columns() []string {
	return []string{
		t.ID, t.Username, t.Email, t.Password, t.RealName, t.Nickname,
		t.UserType, t.MerchantID, t.Status, t.LastLoginAt, t.LastLoginIP,
		t.CreatedAt, t.UpdatedAt,
	}
}
