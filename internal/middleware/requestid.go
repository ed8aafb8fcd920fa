// Vtour - 360° Virtual Tour Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vtour

package middleware

import (
	"context"
	"net/http"

	"github.com/tomtom215/vtour/internal/logging"
)

type contextKey string

const RequestIDKey contextKey = "request_id"

// maxRequestIDLength bounds upstream-supplied IDs before they reach logs and headers.
const maxRequestIDLength = 128

// RequestID middleware generates a unique ID for each request
// and adds it to both the response header and request context.
// It also populates request_id and correlation_id in the logging context.
// A valid X-Correlation-ID from the caller is kept so one studio action can be
// followed across several requests.
func RequestID(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Check if request already has an ID (from upstream proxy)
		requestID := r.Header.Get("X-Request-ID")
		if !validUpstreamID(requestID) {
			requestID = logging.GenerateRequestID()
		}

		correlationID := r.Header.Get("X-Correlation-ID")
		if !validUpstreamID(correlationID) {
			correlationID = logging.GenerateCorrelationID()
		}

		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		ctx = logging.ContextWithRequestID(ctx, requestID)
		ctx = logging.ContextWithCorrelationID(ctx, correlationID)

		w.Header().Set("X-Request-ID", requestID)
		w.Header().Set("X-Correlation-ID", logging.CorrelationIDFromContext(ctx))

		next(w, r.WithContext(ctx))
	}
}

func validUpstreamID(id string) bool {
	return id != "" && len(id) <= maxRequestIDLength && printableASCII(id)
}

// GetRequestID extracts the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

func printableASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x21 || s[i] > 0x7e {
			return false
		}
	}
	return true
}
