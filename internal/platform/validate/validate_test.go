// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package validate_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/merchant-admin/internal/platform/apperr"
	"github.com/taibuivan/merchant-admin/internal/platform/validate"
)

/*
TestValidator_Required tests the mandatory field validation logic.
*/
func TestValidator_Required(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		value    string
		hasError bool
	}{
		{"valid_string", "login", "merchant01", false},
		{"empty_string", "login", "", true},
		{"whitespace_only", "login", "   ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &validate.Validator{}
			v.Required(tt.field, tt.value)

			if tt.hasError {
				err := v.Err()
				require.NotNil(t, err)

				ae := apperr.As(err)
				require.NotNil(t, ae)
				assert.Equal(t, apperr.CodeValidation, ae.Code)
				assert.Equal(t, tt.field, ae.Details[0].Field)
			} else {
				assert.Nil(t, v.Err())
			}
		})
	}
}

/*
TestValidator_Chain tests the fluent API (chaining multiple rules).
*/
func TestValidator_Chain(t *testing.T) {
	v := &validate.Validator{}

	err := v.
		Required("new_password", "s3cure-pass").
		MinLen("new_password", "s3cure-pass", 8).
		MaxBytes("new_password", "s3cure-pass", 72).
		Differs("new_password", "s3cure-pass", "old-pass", "Must differ").
		Err()

	assert.NoError(t, err)
}

/*
TestValidator_MaxBytes counts encoded bytes, not characters.
*/
func TestValidator_MaxBytes(t *testing.T) {
	password := strings.Repeat("パ", 30) // 30 characters, 90 bytes

	assert.NoError(t, (&validate.Validator{}).MaxLen("new_password", password, 72).Err())

	err := (&validate.Validator{}).MaxBytes("new_password", password, 72).Err()
	require.Error(t, err)
	assert.Equal(t, "Maximum 72 bytes", apperr.As(err).Details[0].Message)
}

/*
TestValidator_Differs ignores empty values so Required reports them instead.
*/
func TestValidator_Differs(t *testing.T) {
	assert.NoError(t, (&validate.Validator{}).Differs("new_password", "", "", "Must differ").Err())
	assert.Error(t, (&validate.Validator{}).Differs("new_password", "same", "same", "Must differ").Err())
}

/*
TestValidator_Chain_Failure tests error accumulation in the chain.
*/
func TestValidator_Chain_Failure(t *testing.T) {
	v := &validate.Validator{}

	err := v.
		Required("login", "").                       // Fails
		MinLen("new_password", "short", 8).          // Fails
		Custom("new_password", true, "Must differ"). // Fails
		Err()

	require.Error(t, err)
	ae := apperr.As(err)
	require.NotNil(t, ae)

	// Should accumulate all 3 errors
	assert.Len(t, ae.Details, 3)
}
