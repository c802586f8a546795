package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"adoptify-web/internal/apiclient"
	"adoptify-web/internal/authclient"
	"adoptify-web/internal/event"
	"adoptify-web/internal/metrics"
	"adoptify-web/internal/model"
	"adoptify-web/internal/navigation"
	"adoptify-web/internal/session"
	"adoptify-web/pkg/apierror"
)

type SessionService struct {
	auth   *authclient.Client
	api    *apiclient.Client
	bus    event.Bus
	logger *slog.Logger
}

func NewSessionService(auth *authclient.Client, api *apiclient.Client, bus event.Bus, logger *slog.Logger) *SessionService {
	if bus == nil {
		bus = event.Discard{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionService{auth: auth, api: api, bus: bus, logger: logger}
}

// Login authenticates, resolves the role and persists the whole session in
// one Save. Nothing is written unless every step succeeds.
func (s *SessionService) Login(ctx context.Context, store session.Store, username string, password string) (navigation.Target, error) {
	pair, err := s.auth.Login(ctx, username, password)
	if err != nil {
		metrics.RecordLogin(loginOutcome(err), "")
		return "", err
	}

	profile, err := s.auth.FetchProfile(ctx, pair.AccessToken)
	if err != nil {
		metrics.RecordLogin(loginOutcome(err), "")
		return "", err
	}

	role, err := session.ParseRole(profile.Role)
	if err != nil {
		metrics.RecordLogin("profile_fetch_failed", "")
		return "", fmt.Errorf("%w: %w", model.ErrProfileFetchFailed, err)
	}

	sess := session.Session{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		Role:         role,
		Username:     profile.Username,
	}
	if err := store.Save(ctx, sess); err != nil {
		metrics.RecordLogin("error", "")
		return "", fmt.Errorf("save session: %w", err)
	}

	sessionID := session.IDFromContext(ctx)
	metrics.RecordLogin("success", role.String())
	s.bus.Publish(event.New(event.TypeSessionLogin, sessionID, sess.Username, role.String()))

	attrs := []any{"session_id", sessionID, "username", sess.Username, "role", role.String()}
	if exp, ok := accessExpiry(pair.AccessToken); ok {
		attrs = append(attrs, "access_expires_at", exp.Format(time.RFC3339))
	}
	s.logger.Info("user logged in", attrs...)

	return navigation.AfterLogin(role), nil
}

// Logout removes every session key. Logging out twice is harmless.
func (s *SessionService) Logout(ctx context.Context, store session.Store) (navigation.Target, error) {
	username, err := store.Get(ctx, session.KeyUsername)
	if err != nil {
		return "", fmt.Errorf("read session: %w", err)
	}

	if err := store.Clear(ctx); err != nil {
		return "", fmt.Errorf("clear session: %w", err)
	}

	metrics.LogoutsTotal.Inc()
	s.bus.Publish(event.New(event.TypeSessionLogout, session.IDFromContext(ctx), username, ""))
	if username != "" {
		s.logger.Info("user logged out", "session_id", session.IDFromContext(ctx), "username", username)
	}

	return navigation.AfterLogout(), nil
}

// Register creates an account. It never signs the new user in.
func (s *SessionService) Register(ctx context.Context, req model.RegisterRequest) error {
	if err := req.Validate(); err != nil {
		return apierror.BadRequest("username and password are required; phone number must be digits", "")
	}
	return s.auth.Register(ctx, req)
}

// Profile fetches the signed-in user's profile, refreshing when needed.
func (s *SessionService) Profile(ctx context.Context, store session.Store) (model.Profile, error) {
	return apiclient.Fetch[model.Profile](ctx, s.api, store, apiclient.Request{
		Method: http.MethodGet,
		Path:   "/api/user/details/",
		Auth:   true,
	})
}

// Summary reports what pages may show about the session. It makes no network
// call.
func (s *SessionService) Summary(ctx context.Context, store session.Store) (model.SessionSummary, error) {
	if store == nil {
		return Summarize(session.Session{}), nil
	}
	sess, err := store.Load(ctx)
	if err != nil {
		return model.SessionSummary{}, fmt.Errorf("load session: %w", err)
	}
	return Summarize(sess), nil
}

func Summarize(sess session.Session) model.SessionSummary {
	if !sess.Authenticated() {
		return model.SessionSummary{Role: session.RoleAnonymous.String()}
	}
	return model.SessionSummary{
		Authenticated: true,
		Username:      sess.Username,
		Role:          sess.Role.String(),
	}
}

func loginOutcome(err error) string {
	switch authclient.KindOf(err) {
	case authclient.KindInvalidCredentials:
		return "invalid_credentials"
	case authclient.KindProfileFetchFailed:
		return "profile_fetch_failed"
	default:
		return "error"
	}
}

// accessExpiry reads the exp claim without verifying the signature. The
// value is only logged; the API decides whether the token is valid.
func accessExpiry(token string) (time.Time, bool) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
