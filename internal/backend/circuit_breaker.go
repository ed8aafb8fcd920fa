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
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/vtour/internal/config"
	"github.com/tomtom215/vtour/internal/logging"
	"github.com/tomtom215/vtour/internal/metrics"
	"github.com/tomtom215/vtour/internal/models"
)

// CircuitBreakerClient wraps Client with a circuit breaker so an unavailable backend
// fails fast instead of tying up studio sessions and proxy requests.
//
// 4xx responses and caller cancellations count as successes: they say nothing about
// backend health. Forwarded 5xx responses count as failures but are still handed back
// to the caller unchanged.
type CircuitBreakerClient struct {
	client *Client
	cb     *gobreaker.CircuitBreaker[interface{}]
	name   string
}

// NewCircuitBreakerClient creates a backend client with circuit breaker
// Circuit breaker configuration:
// - Max 3 concurrent requests in half-open state
// - 1 minute measurement window
// - 2 minute timeout before attempting recovery
// - Opens after 60% failure rate with minimum 10 requests
func NewCircuitBreakerClient(cfg *config.BackendConfig) *CircuitBreakerClient {
	return newCircuitBreakerClient(NewClient(cfg), "vtour-backend")
}

func newCircuitBreakerClient(client *Client, cbName string) *CircuitBreakerClient {
	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0) // 0 = closed
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(cbName).Set(0)

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}

			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6

			if shouldTrip {
				l := logging.WithComponent("backend")
				l.Warn().Uint32("failures", counts.TotalFailures).Float64("failure_rate", failureRatio*100).Msg("[CIRCUIT BREAKER] Opening circuit")
			}

			return shouldTrip
		},

		IsSuccessful: isSuccessful,

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)

			l := logging.WithComponent("backend")
			l.Info().Str("breaker", name).Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()

			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},
	})

	return &CircuitBreakerClient{client: client, cb: cb, name: cbName}
}

// isSuccessful decides what the breaker counts as a failure.
func isSuccessful(err error) bool {
	if err == nil || IsClientError(err) || errors.Is(err, ErrInvalidRequest) {
		return true
	}
	return errors.Is(err, context.Canceled)
}

// upstreamFailure carries a forwarded 5xx response through the breaker as an error.
type upstreamFailure struct {
	resp *http.Response
}

func (e *upstreamFailure) Error() string {
	return fmt.Sprintf("backend responded %d", e.resp.StatusCode)
}

// execute wraps a backend call with circuit breaker protection
func (cbc *CircuitBreakerClient) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := cbc.cb.Execute(fn)

	switch {
	case err == nil:
		metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "success").Inc()
		metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(cbc.name).Set(0)
		return result, nil
	case errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "rejected").Inc()
		l := logging.WithComponent("backend")
		l.Warn().Err(err).Msg("[CIRCUIT BREAKER] Request rejected")
	case isSuccessful(err):
		metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "success").Inc()
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "failure").Inc()
		counts := cbc.cb.Counts()
		metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(cbc.name).Set(float64(counts.ConsecutiveFailures))
	}
	return nil, err
}

// castResult safely type-casts the circuit breaker result with error checking
func castResult[T any](result interface{}, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

// stateToFloat converts circuit breaker state to numeric value for metrics
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// stateToString converts circuit breaker state to string for logging
func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// State returns the breaker state name, for health reporting.
func (cbc *CircuitBreakerClient) State() string {
	return stateToString(cbc.cb.State())
}

// BaseURL returns the backend origin.
func (cbc *CircuitBreakerClient) BaseURL() string { return cbc.client.BaseURL() }

// Forward proxies a request through the breaker. 5xx responses trip the breaker's
// counters but are returned, not converted to errors.
func (cbc *CircuitBreakerClient) Forward(ctx context.Context, method, path, rawQuery string, header http.Header, body io.Reader) (*http.Response, error) {
	resp, err := castResult[*http.Response](cbc.execute(func() (interface{}, error) {
		resp, err := cbc.client.Forward(ctx, method, path, rawQuery, header, body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 {
			return nil, &upstreamFailure{resp: resp}
		}
		return resp, nil
	}))

	var uf *upstreamFailure
	if errors.As(err, &uf) {
		return uf.resp, nil
	}
	return resp, err
}

// ListScenes fetches a scene page with circuit breaker protection
func (cbc *CircuitBreakerClient) ListScenes(ctx context.Context, page, perPage int) (*models.ScenePage, error) {
	return castResult[*models.ScenePage](cbc.execute(func() (interface{}, error) {
		return cbc.client.ListScenes(ctx, page, perPage)
	}))
}

// GetScene fetches a scene with circuit breaker protection
func (cbc *CircuitBreakerClient) GetScene(ctx context.Context, id int64) (*models.Scene, error) {
	return castResult[*models.Scene](cbc.execute(func() (interface{}, error) {
		return cbc.client.GetScene(ctx, id)
	}))
}

// GetSettings fetches settings with circuit breaker protection
func (cbc *CircuitBreakerClient) GetSettings(ctx context.Context) (*models.Settings, error) {
	return castResult[*models.Settings](cbc.execute(func() (interface{}, error) {
		return cbc.client.GetSettings(ctx)
	}))
}

// ListHotspots fetches a scene's hotspots with circuit breaker protection
func (cbc *CircuitBreakerClient) ListHotspots(ctx context.Context, sceneID int64) ([]models.HotspotRecord, error) {
	return castResult[[]models.HotspotRecord](cbc.execute(func() (interface{}, error) {
		return cbc.client.ListHotspots(ctx, sceneID)
	}))
}

// CreateHotspot creates a hotspot with circuit breaker protection
func (cbc *CircuitBreakerClient) CreateHotspot(ctx context.Context, sceneID int64, p models.HotspotPayload) (models.HotspotRecord, error) {
	return castResult[models.HotspotRecord](cbc.execute(func() (interface{}, error) {
		return cbc.client.CreateHotspot(ctx, sceneID, p)
	}))
}

// UpdateHotspot updates a hotspot with circuit breaker protection
func (cbc *CircuitBreakerClient) UpdateHotspot(ctx context.Context, sceneID, id int64, p models.HotspotPayload) (models.HotspotRecord, error) {
	return castResult[models.HotspotRecord](cbc.execute(func() (interface{}, error) {
		return cbc.client.UpdateHotspot(ctx, sceneID, id, p)
	}))
}

// DeleteHotspot deletes a hotspot with circuit breaker protection
func (cbc *CircuitBreakerClient) DeleteHotspot(ctx context.Context, sceneID, id int64) error {
	_, err := cbc.execute(func() (interface{}, error) {
		return nil, cbc.client.DeleteHotspot(ctx, sceneID, id)
	})
	return err
}
