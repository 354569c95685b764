// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package request provides utilities for extracting data from HTTP requests.

It abstracts away the underlying router's parameter extraction and common
body decoding patterns, ensuring consistent error handling and type safety.
*/
package requestutil

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/merchant-admin/internal/platform/apperr"
	"github.com/taibuivan/merchant-admin/internal/platform/constants"
	"github.com/taibuivan/merchant-admin/internal/platform/ctxutil"
	"github.com/taibuivan/merchant-admin/internal/platform/sec"
	"github.com/taibuivan/merchant-admin/internal/platform/validate"
)

/*
DecodeJSON reads the request body and decodes it into the target structure.

Returns:
  - error: validate.ErrInvalidJSON if decoding fails, otherwise nil
*/
func DecodeJSON(request *http.Request, target interface{}) error {
	if err := json.NewDecoder(request.Body).Decode(target); err != nil {
		return validate.ErrInvalidJSON
	}
	return nil
}

/*
Int64Param retrieves a named URL parameter and parses it as a positive integer id.

Returns:
  - int64: The parsed id
  - error: apperr.ValidationError if the parameter is missing or malformed
*/
func Int64Param(request *http.Request, name string) (int64, error) {
	value, err := strconv.ParseInt(chi.URLParam(request, name), 10, 64)
	if err != nil || value <= 0 {
		return 0, validate.RequiredError(name, "Must be a positive integer")
	}
	return value, nil
}

/*
OptionalInt64Query parses an optional positive integer query parameter.

Returns nil when the parameter is absent or empty.
*/
func OptionalInt64Query(request *http.Request, name string) (*int64, error) {
	raw := strings.TrimSpace(request.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value <= 0 {
		return nil, validate.RequiredError(name, "Must be a positive integer")
	}
	return &value, nil
}

/*
BearerToken extracts the token from an 'Authorization: Bearer <token>' header.

Returns:
  - string: The raw token
  - bool: false if the header is missing or not a well-formed bearer credential
*/
func BearerToken(request *http.Request) (string, bool) {
	scheme, token, found := strings.Cut(request.Header.Get(constants.HeaderAuthorization), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}

/*
Identity extracts the resolved identity from the request context.

Returns nil if the request is not authenticated.
*/
func Identity(request *http.Request) *sec.Identity {
	return ctxutil.GetIdentity(request.Context())
}

/*
RequiredIdentity ensures the request is authenticated and returns its identity.

Returns:
  - *sec.Identity: The caller
  - error: apperr.Unauthorized if the request is not authenticated
*/
func RequiredIdentity(request *http.Request) (*sec.Identity, error) {
	identity := ctxutil.GetIdentity(request.Context())
	if identity == nil {
		return nil, apperr.Unauthorized("Authentication required")
	}
	return identity, nil
}
