// Vtour - 360° Virtual Tour Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vtour

package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/vtour/internal/config"
)

func newTestBreaker(t *testing.T, h http.Handler) *CircuitBreakerClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	client := NewClient(&config.BackendConfig{URL: srv.URL, Timeout: 5 * time.Second})
	return newCircuitBreakerClient(client, "test-"+t.Name())
}

func TestCircuitBreaker_OpensAfterFailures(t *testing.T) {
	t.Parallel()

	cbc := newTestBreaker(t, http.NotFoundHandler())
	failing := errors.New("backend unavailable")

	// 10 calls with 7 failures: below the minimum request count until the 10th, and
	// ReadyToTrip only runs on a failure.
	for i := 0; i < 10; i++ {
		_, _ = cbc.execute(func() (interface{}, error) {
			if i < 7 {
				return nil, failing
			}
			return "ok", nil
		})
	}
	if cbc.cb.State() != gobreaker.StateClosed {
		t.Fatalf("state after 10 calls = %v, want closed", cbc.cb.State())
	}

	// One more failure: 8/11 is above 60%.
	_, _ = cbc.execute(func() (interface{}, error) { return nil, failing })
	if cbc.cb.State() != gobreaker.StateOpen {
		t.Fatalf("state = %v, want open", cbc.cb.State())
	}
	if got := cbc.State(); got != "open" {
		t.Errorf("State() = %q, want open", got)
	}

	called := false
	_, err := cbc.execute(func() (interface{}, error) {
		called = true
		return "ok", nil
	})
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("error = %v, want ErrOpenState", err)
	}
	if called {
		t.Error("request reached backend while circuit open")
	}
}

func TestCircuitBreaker_ClientErrorsDoNotTrip(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	cbc := newTestBreaker(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		writeJSON(w, http.StatusUnprocessableEntity, `{"message":"invalid"}`)
	}))

	for i := 0; i < 20; i++ {
		_, err := cbc.GetScene(context.Background(), 1)
		if !IsClientError(err) {
			t.Fatalf("call %d: error = %v, want 4xx", i, err)
		}
	}
	if cbc.cb.State() != gobreaker.StateClosed {
		t.Errorf("state = %v, want closed", cbc.cb.State())
	}
	if hits.Load() != 20 {
		t.Errorf("backend hits = %d, want 20", hits.Load())
	}
}

func TestCircuitBreaker_ServerErrorsTrip(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	cbc := newTestBreaker(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		writeJSON(w, http.StatusBadGateway, `{"message":"down"}`)
	}))

	for i := 0; i < 11; i++ {
		_, _ = cbc.ListHotspots(context.Background(), 1)
	}
	if cbc.cb.State() != gobreaker.StateOpen {
		t.Fatalf("state = %v, want open", cbc.cb.State())
	}

	before := hits.Load()
	if _, err := cbc.ListHotspots(context.Background(), 1); !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("error = %v, want ErrOpenState", err)
	}
	if hits.Load() != before {
		t.Error("backend called while circuit open")
	}
}

func TestCircuitBreaker_ForwardReturnsServerErrors(t *testing.T) {
	t.Parallel()

	cbc := newTestBreaker(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusServiceUnavailable, `{"message":"maintenance"}`)
	}))

	resp, err := cbc.Forward(context.Background(), http.MethodGet, "/scenes", "", nil, nil)
	if err != nil {
		t.Fatalf("Forward() error = %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusServiceUnavailable || string(body) != `{"message":"maintenance"}` {
		t.Errorf("resp = %d %q", resp.StatusCode, body)
	}
	if c := cbc.cb.Counts(); c.TotalFailures != 1 {
		t.Errorf("TotalFailures = %d, want 1", c.TotalFailures)
	}
}

func TestIsSuccessful(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, true},
		{"not found", &StatusError{StatusCode: 404}, true},
		{"validation", &StatusError{StatusCode: 422}, true},
		{"server error", &StatusError{StatusCode: 500}, false},
		{"canceled", context.Canceled, true},
		{"deadline", context.DeadlineExceeded, false},
		{"transport", errors.New("connection refused"), false},
		{"request build", fmt.Errorf("%w: bad url", ErrInvalidRequest), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := isSuccessful(tt.err); got != tt.want {
				t.Errorf("isSuccessful(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestStateToString(t *testing.T) {
	t.Parallel()

	if stateToString(gobreaker.StateHalfOpen) != "half-open" || stateToFloat(gobreaker.StateOpen) != 2 {
		t.Error("unexpected state mapping")
	}
}
