// Package authclient talks to the identity endpoints of the Adoptify API. It
// never touches a session store; callers decide what to persist.
package authclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"adoptify-web/internal/model"
	"adoptify-web/internal/upstream"
)

const (
	loginPath    = "/api/token/"
	refreshPath  = "/api/token/refresh/"
	profilePath  = "/api/user/details/"
	registerPath = "/api/user/register/"
)

type Kind int

const (
	KindInvalidCredentials Kind = iota + 1
	KindRefreshFailed
	KindProfileFetchFailed
)

func (k Kind) String() string {
	switch k {
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindRefreshFailed:
		return "refresh_failed"
	case KindProfileFetchFailed:
		return "profile_fetch_failed"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindInvalidCredentials:
		return model.ErrInvalidCredentials
	case KindRefreshFailed:
		return model.ErrRefreshFailed
	case KindProfileFetchFailed:
		return model.ErrProfileFetchFailed
	default:
		return nil
	}
}

// AuthError is a failed identity call. Status is the upstream HTTP status, or
// zero when no response was received. Message is the backend's detail text.
type AuthError struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e == nil {
		return ""
	}

	msg := e.Kind.String()
	if sentinel := e.Kind.sentinel(); sentinel != nil {
		msg = sentinel.Error()
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, model.ErrRefreshFailed) and friends work.
func (e *AuthError) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

type Client struct {
	api *upstream.Client
}

func New(api *upstream.Client) *Client {
	return &Client{api: api}
}

// Login exchanges credentials for a token pair.
func (c *Client) Login(ctx context.Context, username string, password string) (model.TokenPair, error) {
	req := model.LoginRequest{Username: username, Password: password}
	if err := req.Validate(); err != nil {
		return model.TokenPair{}, &AuthError{Kind: KindInvalidCredentials, Message: "username and password are required", Err: err}
	}

	resp, err := c.api.Do(ctx, http.MethodPost, loginPath, "", req)
	if err != nil {
		return model.TokenPair{}, err
	}
	if !resp.OK() {
		return model.TokenPair{}, &AuthError{
			Kind:    KindInvalidCredentials,
			Status:  resp.Status,
			Message: upstream.ErrorMessage(resp.Body),
		}
	}

	var pair model.TokenPair
	if err := upstream.Decode(resp.Body, &pair); err != nil {
		return model.TokenPair{}, &AuthError{Kind: KindInvalidCredentials, Status: resp.Status, Err: err}
	}
	return pair, nil
}

// Refresh obtains a new access token. It makes exactly one attempt and every
// failure, transport included, is KindRefreshFailed.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return "", &AuthError{Kind: KindRefreshFailed, Message: "no refresh token"}
	}

	resp, err := c.api.Do(ctx, http.MethodPost, refreshPath, "", model.RefreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return "", &AuthError{Kind: KindRefreshFailed, Err: err}
	}
	if !resp.OK() {
		return "", &AuthError{
			Kind:    KindRefreshFailed,
			Status:  resp.Status,
			Message: upstream.ErrorMessage(resp.Body),
		}
	}

	var token model.AccessToken
	if err := upstream.Decode(resp.Body, &token); err != nil {
		return "", &AuthError{Kind: KindRefreshFailed, Status: resp.Status, Err: err}
	}
	return token.AccessToken, nil
}

// FetchProfile resolves the identity behind access.
func (c *Client) FetchProfile(ctx context.Context, access string) (model.Profile, error) {
	resp, err := c.api.Do(ctx, http.MethodGet, profilePath, access, nil)
	if err != nil {
		return model.Profile{}, err
	}
	if !resp.OK() {
		return model.Profile{}, &AuthError{
			Kind:    KindProfileFetchFailed,
			Status:  resp.Status,
			Message: upstream.ErrorMessage(resp.Body),
		}
	}

	return DecodeProfile(resp.Body)
}

// DecodeProfile parses a /api/user/details/ body. A body that fails the schema
// is a KindProfileFetchFailed error wrapping model.ErrMalformedResponse.
func DecodeProfile(body []byte) (model.Profile, error) {
	var profile model.Profile
	if err := upstream.Decode(body, &profile); err != nil {
		return model.Profile{}, &AuthError{Kind: KindProfileFetchFailed, Status: http.StatusOK, Err: err}
	}
	return profile, nil
}

func (c *Client) Register(ctx context.Context, req model.RegisterRequest) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("register: %w", err)
	}

	resp, err := c.api.Do(ctx, http.MethodPost, registerPath, "", req)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return &model.RequestError{Method: http.MethodPost, Path: registerPath, Status: resp.Status, Body: resp.Body}
	}
	return nil
}

// KindOf returns the Kind of err, or zero when err is not an AuthError.
func KindOf(err error) Kind {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Kind
	}
	return 0
}
