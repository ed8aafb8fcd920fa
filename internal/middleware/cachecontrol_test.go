// Vtour - 360° Virtual Tour Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vtour

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCacheHeaders(t *testing.T) {
	t.Parallel()

	ok := func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }

	tests := []struct {
		name       string
		mw         func(http.HandlerFunc) http.HandlerFunc
		wantCache  string
		wantOrigin string
	}{
		{"no store", NoStore, "no-store, no-cache, must-revalidate, private", ""},
		{"public", PublicCache, "public, max-age=86400", "*"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := httptest.NewRecorder()
			tt.mw(ok)(rec, httptest.NewRequest(http.MethodGet, "/img.jpg", nil))
			if got := rec.Header().Get("Cache-Control"); got != tt.wantCache {
				t.Errorf("Cache-Control = %q, want %q", got, tt.wantCache)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
		})
	}
}
