package model

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// Session related errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrRefreshFailed      = errors.New("token refresh failed")
	ErrProfileFetchFailed = errors.New("profile fetch failed")
	ErrSessionExpired     = errors.New("session expired")

	// Upstream related errors
	ErrMalformedResponse = errors.New("malformed response")

	// Generic errors
	ErrInvalidInput = errors.New("invalid input")
)

// RequestError is a failed call to the Adoptify API. Status is zero when the
// request never produced a response.
type RequestError struct {
	Method string
	Path   string
	Status int
	Body   []byte
	Err    error
}

func (e *RequestError) Error() string {
	if e == nil {
		return ""
	}

	if e.Status == 0 {
		return fmt.Sprintf("%s %s: transport failure: %v", e.Method, e.Path, e.Err)
	}

	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.Path, e.Status)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Temporary reports whether the failure happened below HTTP, so the caller
// should show a generic "try again" message.
func (e *RequestError) Temporary() bool {
	return e.Status == 0
}

func (e *RequestError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized
}

// malformed wraps ErrMalformedResponse with the offending field.
func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedResponse, fmt.Sprintf(format, args...))
}
