package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adoptify-web/internal/authclient"
	"adoptify-web/internal/model"
	"adoptify-web/pkg/apierror"
)

func TestWriteErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "api error keeps its status",
			err:        apierror.BadRequest("invalid pet id", "0"),
			wantStatus: http.StatusBadRequest,
			wantCode:   apierror.CodeBadRequest,
		},
		{
			name:       "invalid credentials",
			err:        &authclient.AuthError{Kind: authclient.KindInvalidCredentials, Status: 401, Message: "No active account"},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "INVALID_CREDENTIALS",
		},
		{
			name:       "profile fetch failure",
			err:        &authclient.AuthError{Kind: authclient.KindProfileFetchFailed, Status: 500},
			wantStatus: http.StatusBadGateway,
			wantCode:   "PROFILE_FETCH_FAILED",
		},
		{
			name:       "malformed response",
			err:        fmt.Errorf("GET /api/pets/: %w", model.ErrMalformedResponse),
			wantStatus: http.StatusBadGateway,
			wantCode:   "BAD_UPSTREAM_RESPONSE",
		},
		{
			name:       "transport failure",
			err:        &model.RequestError{Method: "GET", Path: "/api/pets/", Err: errors.New("connection refused")},
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   "UPSTREAM_UNAVAILABLE",
		},
		{
			name:       "upstream 5xx",
			err:        &model.RequestError{Method: "GET", Path: "/api/pets/", Status: http.StatusInternalServerError},
			wantStatus: http.StatusBadGateway,
			wantCode:   "UPSTREAM_ERROR",
		},
		{
			name:       "upstream 4xx passes through",
			err:        fmt.Errorf("wrapped: %w", &model.RequestError{Method: "POST", Path: "/api/favourite/3/", Status: http.StatusForbidden, Body: []byte(`{"detail":"nope"}`)}),
			wantStatus: http.StatusForbidden,
			wantCode:   "UPSTREAM_REJECTED",
		},
		{
			name:       "invalid input",
			err:        fmt.Errorf("register: %w", model.ErrInvalidInput),
			wantStatus: http.StatusBadRequest,
			wantCode:   apierror.CodeBadRequest,
		},
		{
			name:       "unknown",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			writeError(rec, tt.err)

			require.Equal(t, tt.wantStatus, rec.Code)

			var resp model.APIResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}

func TestWriteErrorUpstreamMessage(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	writeError(rec, &model.RequestError{Status: http.StatusBadRequest, Body: []byte(`{"detail":"A user with that username already exists."}`)})

	var resp model.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "A user with that username already exists.", resp.Error.Message)
}

func TestWriteErrorExpiredSessionRedirects(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	writeError(rec, fmt.Errorf("%w: %w", model.ErrSessionExpired, model.ErrRefreshFailed))

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	var resp struct {
		Success bool           `json:"success"`
		Data    model.Redirect `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "/login", resp.Data.RedirectTo)
}

func TestHealth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		db         Pinger
		wantStatus int
	}{
		{name: "memory store", db: nil, wantStatus: http.StatusOK},
		{name: "database up", db: pingerFunc(func() error { return nil }), wantStatus: http.StatusOK},
		{name: "database down", db: pingerFunc(func() error { return errors.New("down") }), wantStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := httptest.NewRecorder()
			NewHealthHandler(tt.db).Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

type pingerFunc func() error

func (f pingerFunc) Ping(context.Context) error {
	return f()
}

func TestDecodeOptionalJSON(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		body    string
		chunked bool
		want    string
		wantErr bool
	}{
		{name: "empty", body: ""},
		{name: "empty chunked", body: "", chunked: true},
		{name: "message", body: `{"message":"hi"}`, want: "hi"},
		{name: "message chunked", body: `{"message":"hi"}`, chunked: true, want: "hi"},
		{name: "malformed", body: `{"message":`, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/pets/1/apply", strings.NewReader(tc.body))
			if tc.chunked {
				req.ContentLength = -1
				req.TransferEncoding = []string{"chunked"}
			}

			var payload model.ApplicationRequest
			err := decodeOptionalJSON(req, &payload)
			if tc.wantErr {
				var apiErr *apierror.APIError
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, apierror.CodeBadRequest, apiErr.Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, payload.Message)
		})
	}
}
