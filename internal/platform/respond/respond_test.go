// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package respond_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/merchant-admin/internal/platform/apperr"
	"github.com/taibuivan/merchant-admin/internal/platform/ctxutil"
	"github.com/taibuivan/merchant-admin/internal/platform/respond"
)

func decode(t *testing.T, recorder *httptest.ResponseRecorder) respond.ErrorEnvelope {
	t.Helper()
	var envelope respond.ErrorEnvelope
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&envelope))
	return envelope
}

/*
TestError_AppError renders the stable code and message of a client error.
*/
func TestError_AppError(t *testing.T) {
	request := httptest.NewRequest(http.MethodGet, "/", nil)
	recorder := httptest.NewRecorder()

	respond.Error(recorder, request, apperr.Forbidden("Insufficient permissions"))

	assert.Equal(t, http.StatusForbidden, recorder.Code)
	envelope := decode(t, recorder)
	assert.Equal(t, apperr.CodeForbidden, envelope.Code)
	assert.Equal(t, "Insufficient permissions", envelope.Error)
}

/*
TestError_HidesCause checks that plain errors become INTERNAL_ERROR without leaking details.
*/
func TestError_HidesCause(t *testing.T) {
	request := httptest.NewRequest(http.MethodGet, "/", nil)
	recorder := httptest.NewRecorder()

	respond.Error(recorder, request, errors.New("dial tcp 10.0.0.5:6379: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	envelope := decode(t, recorder)
	assert.Equal(t, apperr.CodeInternal, envelope.Code)
	assert.Empty(t, envelope.Cause)
	assert.NotContains(t, envelope.Error, "10.0.0.5")
}

/*
TestError_DiagnosticsExposeCause checks that diagnostic mode adds the cause to 5xx bodies.
*/
func TestError_DiagnosticsExposeCause(t *testing.T) {
	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request = request.WithContext(ctxutil.WithDiagnostics(request.Context(), true))
	recorder := httptest.NewRecorder()

	respond.Error(recorder, request, apperr.Internal(errors.New("redis down")))

	envelope := decode(t, recorder)
	assert.Equal(t, "redis down", envelope.Cause)
}
