// Package apiclient sends bearer-authenticated requests to the Adoptify API on
// behalf of one client session, refreshing the access token when it is
// missing or rejected.
package apiclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/sync/singleflight"

	"adoptify-web/internal/event"
	"adoptify-web/internal/metrics"
	"adoptify-web/internal/model"
	"adoptify-web/internal/session"
	"adoptify-web/internal/upstream"
)

// Refresher exchanges a refresh token for a new access token.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (string, error)
}

type Request struct {
	Method string
	Path   string
	Body   any
	// Auth sends the stored access token and enables refresh.
	Auth bool
}

type Client struct {
	api       *upstream.Client
	refresher Refresher
	bus       event.Bus
	logger    *slog.Logger
	refreshes singleflight.Group
}

type Option func(*Client)

func WithEvents(bus event.Bus) Option {
	return func(c *Client) {
		c.bus = bus
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func New(api *upstream.Client, refresher Refresher, opts ...Option) *Client {
	c := &Client{
		api:       api,
		refresher: refresher,
		bus:       event.Discard{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do performs req and returns the body of a 2xx response.
//
// For authenticated requests a missing access token is refreshed first, and a
// 401 is answered with one refresh and one retry. When the session cannot be
// refreshed the store is cleared and the error wraps model.ErrSessionExpired.
// Any other non-2xx status is a *model.RequestError.
func (c *Client) Do(ctx context.Context, store session.Store, req Request) ([]byte, error) {
	if !req.Auth {
		resp, err := c.api.Do(ctx, req.Method, req.Path, "", req.Body)
		if err != nil {
			return nil, err
		}
		return checkStatus(req, resp)
	}

	if store == nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.Path, model.ErrSessionExpired)
	}

	sess, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	refreshToken := sess.RefreshToken
	access := sess.AccessToken
	if access == "" {
		access, err = c.refresh(ctx, store, refreshToken, "")
		if err != nil {
			return nil, err
		}
	}

	resp, err := c.api.Do(ctx, req.Method, req.Path, access, req.Body)
	if err != nil {
		return nil, err
	}
	if resp.Status != http.StatusUnauthorized {
		return checkStatus(req, resp)
	}

	access, err = c.recoverFromUnauthorized(ctx, store, refreshToken, access)
	if err != nil {
		return nil, err
	}

	resp, err = c.api.Do(ctx, req.Method, req.Path, access, req.Body)
	if err != nil {
		return nil, err
	}
	return checkStatus(req, resp)
}

// errSessionReplaced means the session this request started with was logged
// out or replaced by another login while the request was refreshing it.
var errSessionReplaced = errors.New("session replaced during refresh")

// recoverFromUnauthorized returns the token to retry with after a 401. If
// another request already replaced the rejected token, that one is used.
func (c *Client) recoverFromUnauthorized(ctx context.Context, store session.Store, refreshToken string, rejected string) (string, error) {
	sess, err := store.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("reload session: %w", err)
	}

	if sess.RefreshToken != refreshToken {
		return "", fmt.Errorf("%w: %w", model.ErrSessionExpired, errSessionReplaced)
	}
	if sess.AccessToken != "" && sess.AccessToken != rejected {
		return sess.AccessToken, nil
	}

	c.logger.Debug("access token rejected, refreshing", "session_id", session.IDFromContext(ctx))
	return c.refresh(ctx, store, refreshToken, rejected)
}

// refresh obtains a new access token for refreshToken. Concurrent callers
// holding the same refresh token share one API call, detached from the
// caller's context so a cancelled caller does not fail the others. stale is
// the token the caller already knows to be unusable ("" when it had none); a
// different token found in the store means a refresh already landed and is
// reused.
//
// The store is only written, or cleared on failure, while it still holds
// refreshToken. A logout or a new login that happens during the call wins.
func (c *Client) refresh(ctx context.Context, store session.Store, refreshToken string, stale string) (string, error) {
	sessionID := session.IDFromContext(ctx)

	if refreshToken == "" {
		c.expire(context.WithoutCancel(ctx), store, "", sessionID, errors.New("no refresh token"))
		return "", model.ErrSessionExpired
	}

	ch := c.refreshes.DoChan(refreshToken, func() (any, error) {
		detached := context.WithoutCancel(ctx)

		current, err := store.Load(detached)
		if err != nil {
			return "", fmt.Errorf("reload session: %w", err)
		}
		if current.RefreshToken != refreshToken {
			return "", errSessionReplaced
		}
		if current.AccessToken != "" && current.AccessToken != stale {
			return current.AccessToken, nil
		}

		access, err := c.refresher.Refresh(detached, refreshToken)
		metrics.RecordRefresh(err)
		if err != nil {
			if !c.expire(detached, store, refreshToken, sessionID, err) {
				return "", errSessionReplaced
			}
			return "", err
		}

		applied, err := store.SetAccessIf(detached, refreshToken, access)
		if err != nil {
			return "", fmt.Errorf("persist refreshed token: %w", err)
		}
		if !applied {
			c.logger.Info("discarding refreshed token, session changed meanwhile", "session_id", sessionID)
			return "", errSessionReplaced
		}

		c.bus.Publish(event.New(event.TypeSessionRefreshed, sessionID, "", ""))
		return access, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Shared {
			metrics.RefreshWaitersTotal.Inc()
		}
		if res.Err != nil {
			if errors.Is(res.Err, model.ErrRefreshFailed) || errors.Is(res.Err, errSessionReplaced) {
				return "", fmt.Errorf("%w: %w", model.ErrSessionExpired, res.Err)
			}
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// expire clears the session after an unrecoverable refresh failure, unless it
// no longer holds refreshToken. It reports whether the session was cleared.
func (c *Client) expire(ctx context.Context, store session.Store, refreshToken string, sessionID string, cause error) bool {
	cleared, err := store.ClearIf(ctx, refreshToken)
	if err != nil {
		c.logger.Error("failed to clear expired session", "session_id", sessionID, "error", err)
		return false
	}
	if !cleared {
		return false
	}

	metrics.SessionsExpiredTotal.Inc()
	c.bus.Publish(event.New(event.TypeSessionExpired, sessionID, "", ""))
	c.logger.Info("session expired", "session_id", sessionID, "cause", cause)
	return true
}

func checkStatus(req Request, resp *upstream.Response) ([]byte, error) {
	if resp.OK() {
		return resp.Body, nil
	}
	return nil, &model.RequestError{
		Method: req.Method,
		Path:   req.Path,
		Status: resp.Status,
		Body:   resp.Body,
	}
}

// Fetch performs req and decodes the response into T.
func Fetch[T upstream.Validator](ctx context.Context, c *Client, store session.Store, req Request) (T, error) {
	var out T
	body, err := c.Do(ctx, store, req)
	if err != nil {
		return out, err
	}
	if err := upstream.Decode(body, &out); err != nil {
		return out, fmt.Errorf("%s %s: %w", req.Method, req.Path, err)
	}
	return out, nil
}

// FetchList performs req and decodes a JSON array of T.
func FetchList[T upstream.Validator](ctx context.Context, c *Client, store session.Store, req Request) ([]T, error) {
	body, err := c.Do(ctx, store, req)
	if err != nil {
		return nil, err
	}
	items, err := upstream.DecodeList[T](body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.Path, err)
	}
	return items, nil
}
