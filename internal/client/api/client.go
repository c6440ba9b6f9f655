// Package api is the HTTP client every Roll Call frontend talks through.
// Calls never return a Go error: transport failures, HTTP errors and decode
// errors all come back as a failed Result.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"rollcall-service/internal/client/config"
	"rollcall-service/internal/client/storage"

	"go.uber.org/zap"
)

const (
	maxBodyBytes = 10 << 20

	msgNetwork   = "Network error: unable to reach the server"
	msgCancelled = "Request cancelled"
	msgUnknown   = "An unexpected error occurred"
	msgReauth    = "Your session has expired, please log in again"
)

// UnauthorizedHandler performs the re-authentication navigation after a 401.
// It is the only place that decides where the user goes; cause is the
// server's failure so rejected credentials can be told apart from an ended session.
type UnauthorizedHandler func(ctx context.Context, loginURL string, cause *Error)

type Client struct {
	http           *http.Client
	baseURL        string
	loginURL       string
	tokens         storage.Store
	onUnauthorized UnauthorizedHandler
	logger         *zap.Logger
}

// Option customises a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying client; its Timeout is overwritten by the configured one.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithUnauthorizedHandler(h UnauthorizedHandler) Option {
	return func(c *Client) { c.onUnauthorized = h }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New builds a client for cfg. The overall request deadline is fixed here.
func New(cfg *config.Config, tokens storage.Store, opts ...Option) *Client {
	c := &Client{
		http:     &http.Client{},
		baseURL:  cfg.APIURL(),
		loginURL: cfg.LoginURL(),
		tokens:   tokens,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.http.Timeout = cfg.Timeout
	return c
}

func (c *Client) Get(ctx context.Context, path string, opts ...RequestOption) Result {
	return c.Do(ctx, http.MethodGet, path, nil, opts...)
}

func (c *Client) Post(ctx context.Context, path string, body any, opts ...RequestOption) Result {
	return c.Do(ctx, http.MethodPost, path, body, opts...)
}

func (c *Client) Put(ctx context.Context, path string, body any, opts ...RequestOption) Result {
	return c.Do(ctx, http.MethodPut, path, body, opts...)
}

func (c *Client) Patch(ctx context.Context, path string, body any, opts ...RequestOption) Result {
	return c.Do(ctx, http.MethodPatch, path, body, opts...)
}

func (c *Client) Delete(ctx context.Context, path string, opts ...RequestOption) Result {
	return c.Do(ctx, http.MethodDelete, path, nil, opts...)
}

// Do sends one request and normalises whatever happens into a Result.
func (c *Client) Do(ctx context.Context, method, path string, body any, opts ...RequestOption) Result {
	ro := requestOptions{headers: make(http.Header)}
	for _, opt := range opts {
		opt(&ro)
	}

	req, err := c.newRequest(ctx, method, path, body, ro)
	if err != nil {
		c.logger.Warn("api request not built", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return failure(&Error{Message: msgUnknown})
	}

	resp, err := c.http.Do(req)
	if err != nil {
		msg := msgNetwork
		if ctx.Err() != nil {
			msg = msgCancelled
		}
		c.logger.Warn("api request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return failure(&Error{Message: msg})
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		c.logger.Warn("api response unreadable", zap.String("path", path), zap.Error(err))
		return failure(&Error{Message: msgNetwork, Status: resp.StatusCode})
	}

	c.logger.Debug("api request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
	)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return Result{Success: true, Data: data, Status: resp.StatusCode, Headers: resp.Header}

	case resp.StatusCode == http.StatusUnauthorized:
		apiErr := parseError(data, resp.StatusCode, msgReauth)
		c.reauthenticate(ctx, apiErr)
		r := failure(apiErr)
		r.RequiresReauth = true
		return r

	default:
		return failure(parseError(data, resp.StatusCode, fmt.Sprintf("Request failed with status %d", resp.StatusCode)))
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any, ro requestOptions) (*http.Request, error) {
	u, err := url.Parse(c.baseURL + "/" + strings.TrimLeft(path, "/"))
	if err != nil {
		return nil, err
	}
	if len(ro.query) > 0 {
		q := u.Query()
		for k, vs := range ro.query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token, ok := c.tokens.Get(storage.TokenKey); ok && token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	for k, vs := range ro.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	return req, nil
}

// reauthenticate purges the stored token and hands navigation to the top-level handler
func (c *Client) reauthenticate(ctx context.Context, cause *Error) {
	if c.tokens != nil {
		if err := c.tokens.Remove(storage.TokenKey); err != nil {
			c.logger.Warn("failed to purge stored token", zap.Error(err))
		}
	}
	if c.onUnauthorized != nil {
		c.onUnauthorized(ctx, c.loginURL, cause)
	}
}

// errorBody is what the server sends on failure; detail may be a string or a list
type errorBody struct {
	Message string          `json:"message"`
	Detail  json.RawMessage `json:"detail"`
	Code    string          `json:"code"`
	Details json.RawMessage `json:"details"`
}

// parseError picks message, then detail, then fallback
func parseError(data []byte, status int, fallback string) *Error {
	e := &Error{Message: fallback, Status: status}

	var body errorBody
	if err := json.Unmarshal(data, &body); err != nil {
		return e
	}
	e.Code = body.Code
	e.Details = body.Details

	var detail string
	if len(body.Detail) > 0 {
		if err := json.Unmarshal(body.Detail, &detail); err != nil {
			detail = ""
		}
	}

	switch {
	case body.Message != "":
		e.Message = body.Message
	case detail != "":
		e.Message = detail
	}
	return e
}

func failure(e *Error) Result {
	return Result{Success: false, Error: e, Status: e.Status}
}
