// Vtour - 360° Virtual Tour Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vtour

package backend

import (
	"context"
	"io"
	"net/http"
	"strings"
)

// forwardedHeaders are copied from the inbound request by Forward callers.
var forwardedHeaders = []string{
	"Accept",
	"Accept-Language",
	"Authorization",
	"Content-Type",
	"If-None-Match",
	"If-Modified-Since",
	"Range",
	"X-Requested-With",
}

// ForwardHeaders picks the headers a transparent proxy passes on to the backend.
func ForwardHeaders(in http.Header) http.Header {
	out := make(http.Header, len(forwardedHeaders))
	for _, k := range forwardedHeaders {
		if vs := in.Values(k); len(vs) > 0 {
			out[k] = append([]string(nil), vs...)
		}
	}
	return out
}

// Forward sends a request to APIPrefix+path unchanged and returns the backend response
// whatever its status. path must start with "/". The caller closes the body.
func (c *Client) Forward(ctx context.Context, method, path, rawQuery string, header http.Header, body io.Reader) (*http.Response, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.do(ctx, request{
		op:       "proxy_" + strings.ToLower(method),
		method:   method,
		path:     path,
		rawQuery: rawQuery,
		header:   header,
		body:     body,
	})
}
