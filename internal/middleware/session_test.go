package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adoptify-web/internal/guard"
	"adoptify-web/internal/model"
	"adoptify-web/internal/session"
)

func TestSessionMiddlewareIssuesCookie(t *testing.T) {
	t.Parallel()
	registry := session.NewMemoryRegistry()
	mw := NewSessionMiddleware(registry, "adoptify_session", true, time.Hour)

	var seenID string
	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = session.IDFromContext(r.Context())
		_, ok := session.FromContext(r.Context())
		assert.True(t, ok)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	cookie := cookies[0]
	assert.Equal(t, "adoptify_session", cookie.Name)
	assert.Equal(t, seenID, cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	_, err := uuid.Parse(cookie.Value)
	assert.NoError(t, err)
}

func TestSessionMiddlewareReusesCookieStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	registry := session.NewMemoryRegistry()
	mw := NewSessionMiddleware(registry, "", false, time.Hour)

	id := uuid.NewString()
	require.NoError(t, registry.Store(id).Set(ctx, session.KeyUsername, "alice"))

	var username string
	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		store, _ := session.FromContext(r.Context())
		username, _ = store.Get(r.Context(), session.KeyUsername)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "adoptify_session", Value: id})
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "alice", username)

	t.Run("malformed cookie gets a fresh session", func(t *testing.T) {
		var got string
		handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = session.IDFromContext(r.Context())
		}))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "adoptify_session", Value: "../../etc/passwd"})
		handler.ServeHTTP(httptest.NewRecorder(), req)

		assert.NotEqual(t, "../../etc/passwd", got)
		_, err := uuid.Parse(got)
		assert.NoError(t, err)
	})
}

func TestRequirePolicy(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	userStore := session.NewMemoryStore()
	require.NoError(t, userStore.Save(ctx, session.Session{AccessToken: "a", RefreshToken: "r", Role: session.RoleUser, Username: "bob"}))
	adminStore := session.NewMemoryStore()
	require.NoError(t, adminStore.Save(ctx, session.Session{AccessToken: "a", RefreshToken: "r", Role: session.RoleAdmin, Username: "alice"}))

	tests := []struct {
		name     string
		store    session.Store
		policy   guard.Policy
		status   int
		location string
	}{
		{"anonymous on public", session.NewMemoryStore(), guard.Public, http.StatusOK, ""},
		{"anonymous on session route", session.NewMemoryStore(), guard.RequiresSession, http.StatusSeeOther, "/login"},
		{"anonymous on admin route", session.NewMemoryStore(), guard.RequiresAdmin, http.StatusSeeOther, "/"},
		{"user on session route", userStore, guard.RequiresSession, http.StatusOK, ""},
		{"user on admin route", userStore, guard.RequiresAdmin, http.StatusSeeOther, "/"},
		{"admin on admin route", adminStore, guard.RequiresAdmin, http.StatusOK, ""},
		{"no store bound", nil, guard.RequiresSession, http.StatusSeeOther, "/login"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := RequirePolicy(tt.policy)(okHandler())

			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			if tt.store != nil {
				req = req.WithContext(session.NewContext(req.Context(), "sid", tt.store))
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.location, rec.Header().Get("Location"))
			if tt.status == http.StatusSeeOther {
				var body struct {
					Success bool           `json:"success"`
					Data    model.Redirect `json:"data"`
				}
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
				assert.True(t, body.Success)
				assert.Equal(t, tt.location, body.Data.RedirectTo)
			}
		})
	}

	t.Run("denial leaves the store untouched", func(t *testing.T) {
		before, err := userStore.Load(ctx)
		require.NoError(t, err)

		handler := RequirePolicy(guard.RequiresAdmin)(okHandler())
		req := httptest.NewRequest(http.MethodGet, "/admin-dashboard", nil)
		handler.ServeHTTP(httptest.NewRecorder(), req.WithContext(session.NewContext(req.Context(), "sid", userStore)))

		after, err := userStore.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})
}

func TestSessionRenewalRotatesCookie(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	registry := session.NewMemoryRegistry()
	mw := NewSessionMiddleware(registry, "adoptify_session", false, time.Hour)

	planted := uuid.NewString()
	require.NoError(t, registry.Store(planted).Set(ctx, session.KeyUsername, "mallory"))

	serve := func(commit bool) (*httptest.ResponseRecorder, string) {
		var freshID string
		handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			renewed, store, done := session.Renew(r.Context())
			freshID = session.IDFromContext(renewed)
			require.NoError(t, store.Save(renewed, session.Session{AccessToken: "a", RefreshToken: "r", Role: session.RoleUser, Username: "bob"}))
			if commit {
				done()
			}
		}))
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.AddCookie(&http.Cookie{Name: "adoptify_session", Value: planted})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec, freshID
	}

	t.Run("uncommitted keeps the old cookie", func(t *testing.T) {
		rec, freshID := serve(false)
		assert.NotEqual(t, planted, freshID)

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, planted, cookies[0].Value)

		username, err := registry.Store(planted).Get(ctx, session.KeyUsername)
		require.NoError(t, err)
		assert.Equal(t, "mallory", username)
	})

	t.Run("commit swaps the cookie and drops the old session", func(t *testing.T) {
		rec, freshID := serve(true)

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, freshID, cookies[0].Value)
		assert.True(t, cookies[0].HttpOnly)

		old, err := registry.Store(planted).Load(ctx)
		require.NoError(t, err)
		assert.True(t, old.IsZero())

		sess, err := registry.Store(freshID).Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "bob", sess.Username)
	})
}

func TestRenewWithoutMiddlewareKeepsBinding(t *testing.T) {
	t.Parallel()
	store := session.NewMemoryStore()
	ctx := session.NewContext(context.Background(), "cli", store)

	renewed, got, commit := session.Renew(ctx)
	commit()

	assert.Equal(t, "cli", session.IDFromContext(renewed))
	assert.Same(t, store, got)
}

func TestRecoveryWritesEnvelope(t *testing.T) {
	t.Parallel()
	handler := Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
}

func TestLoggingSetsRequestID(t *testing.T) {
	t.Parallel()
	handler := Logging(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "fixed-id")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "fixed-id", rec.Header().Get(requestIDHeader))
}
