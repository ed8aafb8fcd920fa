// Vtour - 360° Virtual Tour Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vtour

package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"

	"github.com/tomtom215/vtour/internal/backend"
	"github.com/tomtom215/vtour/internal/cache"
	"github.com/tomtom215/vtour/internal/logging"
	"github.com/tomtom215/vtour/internal/metrics"
	"github.com/tomtom215/vtour/internal/models"
	"github.com/tomtom215/vtour/internal/validation"
)

const (
	// defaultMaxUploadBytes applies when backend.max_upload_bytes is unset.
	defaultMaxUploadBytes = 32 << 20

	// maxJSONBodyBytes bounds JSON request bodies on the non-upload routes.
	maxJSONBodyBytes = 1 << 20

	// maxCachedBodyBytes bounds a single cached proxy response.
	maxCachedBodyBytes = 4 << 20

	backendService = "tour backend"
)

// responseHeaders are copied from backend responses to the client.
var responseHeaders = []string{
	"Accept-Ranges",
	"Content-Disposition",
	"Content-Language",
	"Content-Length",
	"Content-Range",
	"Content-Type",
	"ETag",
	"Last-Modified",
	"Location",
}

// bodyValidator checks a JSON request body before it is forwarded. A decode error
// is reported as a bad request, field errors as a validation failure.
type bodyValidator func(body []byte) (*validation.RequestValidationError, error)

// ProxyConfig describes one proxied /api/vtour route.
type ProxyConfig struct {
	// CacheName enables the response cache for GET requests (empty = no caching).
	CacheName string

	// Validate runs on POST and PUT bodies before they reach the backend.
	Validate bodyValidator

	// ValidateQuery runs on GET requests before they reach the backend.
	ValidateQuery func(r *http.Request) (*validation.RequestValidationError, error)

	// Upload raises the body size limit to backend.max_upload_bytes for multipart routes.
	Upload bool
}

// cachedResponse is a backend response held in the response cache.
type cachedResponse struct {
	Status int
	Header http.Header
	Body   []byte
}

func (c *cachedResponse) write(w http.ResponseWriter) {
	for k, vs := range c.Header {
		w.Header()[k] = vs
	}
	w.Header().Set("X-Cache", "HIT")
	w.WriteHeader(c.Status)
	_, _ = w.Write(c.Body)
}

// proxy returns a handler that forwards the request to the same path on the backend.
// Method, query, body and the headers in backend.ForwardHeaders are passed through,
// and the backend's status, headers and body come back unchanged.
func (h *Handler) proxy(cfg ProxyConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rw := NewResponseWriter(w, r)

		if cfg.ValidateQuery != nil && r.Method == http.MethodGet {
			verr, err := cfg.ValidateQuery(r)
			if err != nil {
				rw.BadRequest(err.Error())
				return
			}
			if verr != nil {
				apiErr := verr.ToAPIError()
				rw.ValidationError(apiErr.Message, apiErr.Details)
				return
			}
		}

		cacheable := cfg.CacheName != "" && r.Method == http.MethodGet && h.cache.Enabled()
		var cacheKey string
		if cacheable {
			cacheKey = h.cacheKey(cfg.CacheName, r)
			if cached, found := h.cache.Get(cacheKey); found {
				if resp, ok := cached.(*cachedResponse); ok {
					metrics.ResponseCacheHits.WithLabelValues(cfg.CacheName).Inc()
					resp.write(w)
					return
				}
			}
			metrics.ResponseCacheMisses.WithLabelValues(cfg.CacheName).Inc()
		}

		body, ok := h.requestBody(rw, w, r, cfg)
		if !ok {
			return
		}

		resp, err := h.backend.Forward(r.Context(), r.Method, backendPath(r), r.URL.RawQuery, backend.ForwardHeaders(r.Header), body)
		if isMutation(r.Method) {
			h.ClearCache()
		}
		if err != nil {
			h.writeForwardError(rw, err)
			return
		}
		defer func() { _ = resp.Body.Close() }()

		if cacheable && resp.StatusCode == http.StatusOK {
			h.writeAndCache(w, r, resp, cacheKey)
			return
		}
		copyResponse(w, r, resp)
	}
}

// requestBody applies the size limit and body validation. It writes the error
// response itself and returns false when the request must not be forwarded.
func (h *Handler) requestBody(rw *ResponseWriter, w http.ResponseWriter, r *http.Request, cfg ProxyConfig) (io.Reader, bool) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, true
	}

	limit := int64(maxJSONBodyBytes)
	if cfg.Upload {
		limit = h.maxUploadBytes()
	}
	if r.ContentLength > limit {
		rw.PayloadTooLarge(limit)
		return nil, false
	}
	body := http.MaxBytesReader(w, r.Body, limit)

	if cfg.Validate == nil || (r.Method != http.MethodPost && r.Method != http.MethodPut) {
		return body, true
	}

	if !isJSON(r.Header.Get("Content-Type")) {
		rw.BadRequest("Request body must be application/json")
		return nil, false
	}
	buf, err := io.ReadAll(body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			rw.PayloadTooLarge(limit)
			return nil, false
		}
		rw.BadRequest("Failed to read request body")
		return nil, false
	}

	verr, err := cfg.Validate(buf)
	if err != nil {
		rw.BadRequest("Invalid JSON body: " + err.Error())
		return nil, false
	}
	if verr != nil {
		logging.Ctx(r.Context()).Debug().Str("path", r.URL.Path).Err(verr).Msg("Rejected invalid request body")
		apiErr := verr.ToAPIError()
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return nil, false
	}
	return bytes.NewReader(buf), true
}

func (h *Handler) writeForwardError(rw *ResponseWriter, err error) {
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		rw.ServiceUnavailable("The tour backend is temporarily unavailable")
	case errors.As(err, &maxErr):
		rw.PayloadTooLarge(maxErr.Limit)
	case errors.Is(err, backend.ErrInvalidRequest):
		logging.Ctx(rw.r.Context()).Error().Err(err).Msg("Failed to build backend request")
		rw.InternalError("Failed to build the tour backend request")
	case errors.Is(err, context.Canceled):
		logging.Ctx(rw.r.Context()).Debug().Msg("Client went away before the backend answered")
	default:
		rw.ExternalServiceError(backendService, err)
	}
}

// writeAndCache streams a 200 response to the client and keeps a copy when it is
// small enough.
func (h *Handler) writeAndCache(w http.ResponseWriter, r *http.Request, resp *http.Response, key string) {
	buf, err := io.ReadAll(io.LimitReader(resp.Body, maxCachedBodyBytes+1))
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("Failed to read backend response")
		rw := NewResponseWriter(w, r)
		rw.ExternalServiceError(backendService, err)
		return
	}

	header := pickHeaders(resp.Header)
	if len(buf) <= maxCachedBodyBytes {
		h.cache.Set(key, &cachedResponse{Status: resp.StatusCode, Header: header, Body: buf})
	}

	for k, vs := range header {
		w.Header()[k] = vs
	}
	w.Header().Set("X-Cache", "MISS")
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(buf)
	if len(buf) > maxCachedBodyBytes {
		_, _ = io.Copy(w, resp.Body)
	}
}

// cacheKey separates cached responses by query and caller, since the backend may
// answer differently per credential.
func (h *Handler) cacheKey(name string, r *http.Request) string {
	return cache.GenerateKey(name, map[string]string{
		"query":         r.URL.RawQuery,
		"authorization": r.Header.Get("Authorization"),
		"accept":        r.Header.Get("Accept"),
	})
}

// copyResponse writes a backend response to the client unchanged.
func copyResponse(w http.ResponseWriter, r *http.Request, resp *http.Response) {
	for k, vs := range pickHeaders(resp.Header) {
		w.Header()[k] = vs
	}
	w.WriteHeader(resp.StatusCode)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		logging.Ctx(r.Context()).Debug().Err(err).Msg("Proxy response copy interrupted")
	}
}

func pickHeaders(in http.Header) http.Header {
	out := make(http.Header, len(responseHeaders))
	for _, k := range responseHeaders {
		if vs := in.Values(k); len(vs) > 0 {
			out[k] = append([]string(nil), vs...)
		}
	}
	return out
}

// backendPath is the request path relative to backend.APIPrefix.
func backendPath(r *http.Request) string {
	return strings.TrimPrefix(r.URL.Path, backend.APIPrefix)
}

func isMutation(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	default:
		return true
	}
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "application/json"
}

// validateHotspotBody checks a hotspot create or update payload.
func validateHotspotBody(body []byte) (*validation.RequestValidationError, error) {
	var p models.HotspotPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, err
	}
	return validation.ValidateStruct(&p), nil
}

// validateMenuBody checks a menu entry create or update payload.
func validateMenuBody(body []byte) (*validation.RequestValidationError, error) {
	var m models.MenuEntry
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, err
	}
	return validation.ValidateStruct(&m), nil
}

// validateMenuOrderBody checks the bulk reorder payload.
func validateMenuOrderBody(body []byte) (*validation.RequestValidationError, error) {
	var order []models.MenuOrder
	if err := json.Unmarshal(body, &order); err != nil {
		return nil, err
	}
	return validation.ValidateSlice(order), nil
}

// sceneListQuery holds the paging parameters of GET /scenes.
type sceneListQuery struct {
	Page    int `validate:"omitempty,gte=1"`
	PerPage int `validate:"omitempty,gte=1,lte=100"`
}

// validateSceneQuery checks the paging parameters of GET /scenes.
func validateSceneQuery(r *http.Request) (*validation.RequestValidationError, error) {
	var q sceneListQuery
	var err error
	if v := r.URL.Query().Get("page"); v != "" {
		if q.Page, err = strconv.Atoi(v); err != nil {
			return nil, errors.New("page must be an integer")
		}
	}
	if v := r.URL.Query().Get("per_page"); v != "" {
		if q.PerPage, err = strconv.Atoi(v); err != nil {
			return nil, errors.New("per_page must be an integer")
		}
	}
	return validation.ValidateStruct(&q), nil
}
