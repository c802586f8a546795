package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"adoptify-web/internal/guard"
	"adoptify-web/internal/metrics"
	"adoptify-web/internal/model"
	"adoptify-web/internal/navigation"
	"adoptify-web/internal/session"
	"adoptify-web/pkg/apierror"
)

type SessionMiddleware struct {
	registry   session.Registry
	cookieName string
	secure     bool
	maxAge     time.Duration
}

func NewSessionMiddleware(registry session.Registry, cookieName string, secure bool, maxAge time.Duration) *SessionMiddleware {
	if cookieName == "" {
		cookieName = "adoptify_session"
	}
	return &SessionMiddleware{
		registry:   registry,
		cookieName: cookieName,
		secure:     secure,
		maxAge:     maxAge,
	}
}

// Handler binds the request to its browser session. A missing or malformed
// cookie starts a new, empty session. Handlers that sign a user in rotate the
// id through session.Renew.
func (m *SessionMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if cookie, err := r.Cookie(m.cookieName); err == nil {
			if parsed, err := uuid.Parse(cookie.Value); err == nil {
				id = parsed.String()
			}
		}
		if id == "" {
			id = uuid.NewString()
		}

		m.setCookie(w, id)

		ctx := session.NewContext(r.Context(), id, m.registry.Store(id))
		ctx = session.WithRenewer(ctx, func() (string, session.Store, func()) {
			fresh := uuid.NewString()
			return fresh, m.registry.Store(fresh), func() {
				m.setCookie(w, fresh)
				if err := m.registry.Store(id).Clear(context.WithoutCancel(r.Context())); err != nil {
					slog.Error("failed to clear replaced session", "session_id", id, "error", err)
				}
			}
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// setCookie replaces any session cookie already queued on w.
func (m *SessionMiddleware) setCookie(w http.ResponseWriter, id string) {
	prefix := m.cookieName + "="
	var kept []string
	for _, v := range w.Header().Values("Set-Cookie") {
		if !strings.HasPrefix(v, prefix) {
			kept = append(kept, v)
		}
	}
	w.Header()["Set-Cookie"] = kept

	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(m.maxAge.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// RequirePolicy redirects visitors the guard turns away. It only reads the
// store and never calls the API.
func RequirePolicy(policy guard.Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if policy == guard.Public {
				next.ServeHTTP(w, r)
				return
			}

			var sess session.Session
			if store, ok := session.FromContext(r.Context()); ok {
				loaded, err := store.Load(r.Context())
				if err != nil {
					slog.Error("failed to load session", "session_id", session.IDFromContext(r.Context()), "error", err)
					writeJSONError(w, http.StatusInternalServerError, apierror.CodeInternal, "Unexpected server error")
					return
				}
				sess = loaded
			}

			decision := guard.Check(policy, sess)
			target, redirect := navigation.ForDecision(decision)
			if !redirect {
				next.ServeHTTP(w, r)
				return
			}

			metrics.RecordGuardDenial(policy.String(), decision.Reason.String())
			Redirect(w, target)
		})
	}
}

// Redirect answers with 303 See Other and the redirect envelope.
func Redirect(w http.ResponseWriter, target navigation.Target) {
	w.Header().Set("Location", target.String())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusSeeOther)
	_ = jsonEncode(w, model.APIResponse{
		Success: true,
		Data:    model.Redirect{RedirectTo: target.String()},
	})
}
