// Vtour - 360° Virtual Tour Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vtour

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/tomtom215/vtour/internal/logging"
)

func TestRequestID_GeneratesNewID(t *testing.T) {
	t.Parallel()

	var capturedID, loggingID string
	handler := RequestID(func(w http.ResponseWriter, r *http.Request) {
		capturedID = GetRequestID(r.Context())
		loggingID = logging.RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	responseID := rec.Header().Get("X-Request-ID")
	if _, err := uuid.Parse(responseID); err != nil {
		t.Errorf("Response X-Request-ID is not a valid UUID: %v", err)
	}
	if capturedID != responseID {
		t.Errorf("context ID %q != response ID %q", capturedID, responseID)
	}
	if loggingID != responseID {
		t.Errorf("logging context ID %q != response ID %q", loggingID, responseID)
	}
}

func TestRequestID_UpstreamID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		header   string
		preserve bool
	}{
		{"proxy id kept", "proxy-abc-123", true},
		{"too long", strings.Repeat("a", maxRequestIDLength+1), false},
		{"control characters", "abc\x00def", false},
		{"spaces", "abc def", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var captured string
			handler := RequestID(func(_ http.ResponseWriter, r *http.Request) {
				captured = GetRequestID(r.Context())
			})

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.Header.Set("X-Request-ID", tt.header)
			handler(httptest.NewRecorder(), req)

			if (captured == tt.header) != tt.preserve {
				t.Errorf("captured = %q, preserve = %v", captured, tt.preserve)
			}
		})
	}
}

func TestRequestID_CorrelationID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		header string
		keep   bool
	}{
		{"caller id kept", "studio-save-42", true},
		{"missing", "", false},
		{"control characters", "abc\x01", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var captured string
			handler := RequestID(func(_ http.ResponseWriter, r *http.Request) {
				captured = logging.CorrelationIDFromContext(r.Context())
			})

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.header != "" {
				req.Header.Set("X-Correlation-ID", tt.header)
			}
			rec := httptest.NewRecorder()
			handler(rec, req)

			if captured == "" || rec.Header().Get("X-Correlation-ID") != captured {
				t.Fatalf("correlation id %q, header %q", captured, rec.Header().Get("X-Correlation-ID"))
			}
			if (captured == tt.header) != tt.keep {
				t.Errorf("captured = %q, keep = %v", captured, tt.keep)
			}
		})
	}
}

func TestGetRequestID_WithoutID(t *testing.T) {
	t.Parallel()

	if id := GetRequestID(context.Background()); id != "" {
		t.Errorf("GetRequestID() = %q, want empty", id)
	}
	ctx := context.WithValue(context.Background(), RequestIDKey, 123)
	if id := GetRequestID(ctx); id != "" {
		t.Errorf("GetRequestID(wrong type) = %q, want empty", id)
	}
}

func TestRequestID_ContextIsolation(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)
	handler := RequestID(func(_ http.ResponseWriter, r *http.Request) {
		seen[GetRequestID(r.Context())] = true
	})
	for i := 0; i < 10; i++ {
		handler(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/test", nil))
	}
	if len(seen) != 10 {
		t.Errorf("got %d unique IDs, want 10", len(seen))
	}
}
