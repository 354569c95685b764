// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/merchant-admin/internal/platform/apperr"
	"github.com/taibuivan/merchant-admin/internal/platform/middleware"
	"github.com/taibuivan/merchant-admin/internal/users/auth"
)

type envelope struct {
	Data    json.RawMessage     `json:"data"`
	Message string              `json:"message"`
	Error   string              `json:"error"`
	Code    string              `json:"code"`
	Details []apperr.FieldError `json:"details"`
}

func call(t *testing.T, handler http.Handler, method, path, token, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	request := httptest.NewRequest(method, path, strings.NewReader(body))
	request.Header.Set("Content-Type", "application/json")
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	var decoded envelope
	if recorder.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &decoded))
	}
	return recorder, decoded
}

func loginToken(t *testing.T, handler http.Handler, login string) string {
	t.Helper()
	recorder, body := call(t, handler, http.MethodPost, "/login", "", `{"login":"`+login+`","password":"`+testPassword+`"}`)
	require.Equal(t, http.StatusOK, recorder.Code, body.Error)

	var result auth.LoginResult
	require.NoError(t, json.Unmarshal(body.Data, &result))
	return result.Token
}

func TestHandler_SessionLifecycle(t *testing.T) {
	routes := newFixture(t).handler().Routes()

	token := loginToken(t, routes, "shopkeeper")

	recorder, body := call(t, routes, http.MethodGet, "/profile", token, "")
	require.Equal(t, http.StatusOK, recorder.Code)
	var profile auth.Profile
	require.NoError(t, json.Unmarshal(body.Data, &profile))
	assert.Equal(t, "shopkeeper", profile.User.Username)
	assert.NotContains(t, string(body.Data), "password")

	recorder, _ = call(t, routes, http.MethodPost, "/logout", token, "")
	assert.Equal(t, http.StatusNoContent, recorder.Code)

	recorder, body = call(t, routes, http.MethodGet, "/profile", token, "")
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Equal(t, apperr.CodeUnauthorized, body.Code)
}

func TestHandler_Login(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"malformed json", `{"login":`, http.StatusBadRequest, apperr.CodeValidation},
		{"missing fields", `{}`, http.StatusBadRequest, apperr.CodeValidation},
		{"wrong password", `{"login":"root","password":"nope"}`, http.StatusUnauthorized, apperr.CodeUnauthorized},
		{"disabled", `{"login":"retired","password":"` + testPassword + `"}`, http.StatusForbidden, apperr.CodeForbidden},
	}

	routes := newFixture(t).handler().Routes()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recorder, body := call(t, routes, http.MethodPost, "/login", "", tc.body)
			assert.Equal(t, tc.status, recorder.Code)
			assert.Equal(t, tc.code, body.Code)
		})
	}
}

func TestHandler_LoginRateLimited(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	f := newFixture(t)
	limiter := middleware.NewRateLimiter(ctx, 0.001, 1)
	routes := auth.NewHandler(f.service, middleware.NewAuthz(f.builder, nil), limiter).Routes()

	recorder, _ := call(t, routes, http.MethodPost, "/login", "", `{"login":"root","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	recorder, body := call(t, routes, http.MethodPost, "/login", "", `{"login":"root","password":"nope"}`)
	assert.Equal(t, http.StatusTooManyRequests, recorder.Code)
	assert.Equal(t, apperr.CodeRateLimited, body.Code)

	// Other endpoints are not throttled by the login limiter.
	recorder, _ = call(t, routes, http.MethodPost, "/refresh", "", "")
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestHandler_Refresh(t *testing.T) {
	routes := newFixture(t).handler().Routes()
	token := loginToken(t, routes, "root")

	recorder, body := call(t, routes, http.MethodPost, "/refresh", token, "")
	require.Equal(t, http.StatusOK, recorder.Code)

	var issued struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &issued))
	assert.NotEqual(t, token, issued.Token)

	recorder, _ = call(t, routes, http.MethodPost, "/refresh", token, "")
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	recorder, _ = call(t, routes, http.MethodGet, "/profile", issued.Token, "")
	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestHandler_ChangePassword(t *testing.T) {
	routes := newFixture(t).handler().Routes()
	token := loginToken(t, routes, "shopkeeper")

	recorder, body := call(t, routes, http.MethodPost, "/change-password", token, `{"old_password":"x","new_password":"short"}`)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	require.NotEmpty(t, body.Details)
	assert.Equal(t, auth.FieldNewPassword, body.Details[0].Field)

	recorder, body = call(t, routes, http.MethodPost, "/change-password", token,
		`{"old_password":"x","new_password":"`+strings.Repeat("パ", 30)+`"}`)
	assert.Equal(t, http.StatusBadRequest, recorder.Code, "90 bytes exceed the bcrypt budget")
	require.NotEmpty(t, body.Details)
	assert.Equal(t, auth.FieldNewPassword, body.Details[0].Field)

	recorder, body = call(t, routes, http.MethodPost, "/change-password", token, `{"old_password":"wrong-old","new_password":"long-enough-pass"}`)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, auth.FieldOldPassword, body.Details[0].Field)

	recorder, _ = call(t, routes, http.MethodPost, "/change-password", token, `{"old_password":"`+testPassword+`","new_password":"long-enough-pass"}`)
	assert.Equal(t, http.StatusOK, recorder.Code)

	recorder, _ = call(t, routes, http.MethodPost, "/change-password", "", `{}`)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}
