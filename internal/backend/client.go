// Vtour - 360° Virtual Tour Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vtour

// Package backend is the HTTP client for the tour REST backend mounted at /api/vtour.
//
// Client Features:
//   - HTTP client with configurable timeout
//   - Outbound request limiter (golang.org/x/time/rate)
//   - Caller Authorization header forwarded from the context
//   - Responses decoded with or without a {"data": ...} envelope
//   - Dual-path hotspot update/delete with fallback on 404
//
// CircuitBreakerClient wraps Client with sony/gobreaker. No request is retried.
package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/vtour/internal/config"
	"github.com/tomtom215/vtour/internal/metrics"
)

// APIPrefix is the path prefix of every backend route.
const APIPrefix = "/api/vtour"

type authKey struct{}

// WithAuthorization returns a context whose backend requests carry the given
// Authorization header value.
func WithAuthorization(ctx context.Context, authorization string) context.Context {
	if authorization == "" {
		return ctx
	}
	return context.WithValue(ctx, authKey{}, authorization)
}

func authorizationFrom(ctx context.Context) string {
	v, _ := ctx.Value(authKey{}).(string)
	return v
}

// Client talks to the tour backend. Safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a client for cfg.URL.
func NewClient(cfg *config.BackendConfig) *Client {
	c := &Client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
	}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return c
}

// BaseURL returns the backend origin without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// request describes one backend call.
type request struct {
	op          string // metrics label
	method      string
	path        string // relative to APIPrefix
	query       url.Values
	rawQuery    string
	body        io.Reader
	contentType string
	header      http.Header
}

// do sends r and returns the raw response whatever its status. The caller closes the body.
func (c *Client) do(ctx context.Context, r request) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("backend rate limiter: %w", err)
		}
	}

	u := c.baseURL + APIPrefix + r.path
	switch {
	case len(r.query) > 0:
		u += "?" + r.query.Encode()
	case r.rawQuery != "":
		u += "?" + r.rawQuery
	}

	body := r.body
	if body == nil {
		body = http.NoBody
	}
	req, err := http.NewRequestWithContext(ctx, r.method, u, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	for k, vs := range r.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if r.header == nil {
		req.Header.Set("Accept", "application/json")
	}
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if auth := authorizationFrom(ctx); auth != "" {
		req.Header.Set("Authorization", auth)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RecordBackendRequest(r.op, 0, time.Since(start))
		return nil, fmt.Errorf("%s %s: %w", r.method, r.path, err)
	}
	metrics.RecordBackendRequest(r.op, resp.StatusCode, time.Since(start))
	return resp, nil
}

// call sends r and decodes a 2xx body into out (which may be nil). Non-2xx responses
// become *StatusError.
func (c *Client) call(ctx context.Context, r request, out any) error {
	resp, err := c.do(ctx, r)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newStatusError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", r.op, err)
	}
	if err := decodeData(raw, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", r.op, err)
	}
	return nil
}

// callJSON is call with in encoded as the JSON request body.
func (c *Client) callJSON(ctx context.Context, r request, in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", r.op, err)
	}
	r.body = bytes.NewReader(b)
	r.contentType = "application/json"
	return c.call(ctx, r, out)
}

// decodeData decodes raw into out. Bodies shaped {"data": ...} are unwrapped; anything
// else is decoded as is. An empty body leaves out untouched.
func decodeData(raw []byte, out any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}
	if raw[0] == '{' {
		var env map[string]json.RawMessage
		if err := json.Unmarshal(raw, &env); err != nil {
			return err
		}
		if data, ok := env["data"]; ok && !isPaginated(env) {
			if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
				return nil
			}
			return json.Unmarshal(data, out)
		}
	}
	return json.Unmarshal(raw, out)
}

// isPaginated reports whether env is a paginator page, whose "data" is one field among
// several and must not be unwrapped.
func isPaginated(env map[string]json.RawMessage) bool {
	_, ok := env["current_page"]
	return ok
}
