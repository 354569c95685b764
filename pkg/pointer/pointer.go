// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package pointer holds small generic helpers for optional values such as
// the merchant id of a token or the last-login columns of an account.
package pointer

// To returns a pointer to a copy of v.
func To[T any](v T) *T {
	return &v
}

// Clone returns a pointer to a copy of *p, or nil when p is nil.
// Use it when a struct holding p is copied and must not share the target.
func Clone[T any](p *T) *T {
	if p == nil {
		return nil
	}
	return To(*p)
}

// Val dereferences p, returning the zero value when p is nil.
func Val[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}
