// Package upstream is the JSON-over-HTTP transport to the Adoptify REST API.
// It knows nothing about sessions; callers pass the bearer token explicitly.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"adoptify-web/internal/metrics"
	"adoptify-web/internal/model"
)

const maxBodyBytes = 4 << 20

type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

func New(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return NewWithHTTPClient(baseURL, &http.Client{Timeout: timeout}, logger)
}

func NewWithHTTPClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		logger:  logger,
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Response is a completed HTTP exchange, whatever its status.
type Response struct {
	Status int
	Body   []byte
}

func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Do sends one request. It only fails for transport problems, returned as a
// *model.RequestError with Status 0; any HTTP status is a Response.
func (c *Client) Do(ctx context.Context, method string, path string, bearer string, body any) (*Response, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RecordUpstream(method, 0, time.Since(started))
		c.logger.Debug("upstream request failed", "method", method, "path", path, "error", err)
		return nil, &model.RequestError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &model.RequestError{Method: method, Path: path, Err: fmt.Errorf("read response: %w", err)}
	}

	metrics.RecordUpstream(method, resp.StatusCode, time.Since(started))
	c.logger.Debug("upstream request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(started).Milliseconds(),
	)

	return &Response{Status: resp.StatusCode, Body: data}, nil
}

// Validator is implemented by every response schema in internal/model.
type Validator interface {
	Validate() error
}

// Decode parses body into out and validates it. Slices are validated element
// by element.
func Decode[T Validator](body []byte, out *T) error {
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", model.ErrMalformedResponse, err)
	}
	return (*out).Validate()
}

func DecodeList[T Validator](body []byte) ([]T, error) {
	var items []T
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrMalformedResponse, err)
	}
	if items == nil {
		items = []T{}
	}
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return nil, err
		}
	}
	return items, nil
}

// ErrorMessage extracts a human readable message from an error body returned
// by the API ({"detail": ...} or {"error": ...}).
func ErrorMessage(body []byte) string {
	var parsed struct {
		Detail  string `json:"detail"`
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ""
	}
	switch {
	case parsed.Detail != "":
		return parsed.Detail
	case parsed.Error != "":
		return parsed.Error
	default:
		return parsed.Message
	}
}
