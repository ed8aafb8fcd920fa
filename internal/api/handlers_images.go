// Vtour - 360° Virtual Tour Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vtour

package api

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/vtour/internal/imagecache"
	"github.com/tomtom215/vtour/internal/logging"
)

// PrivateImage proxies /api/vtour/images/* and /api/vtour/storage/* under the caller's
// credentials. Responses are marked no-store by the route middleware.
func (h *Handler) PrivateImage(w http.ResponseWriter, r *http.Request) {
	h.proxy(ProxyConfig{})(w, r)
}

// PublicImage serves /api/vtour/public/storage/* for the public viewer. Images come
// from the badger cache when present; otherwise they are fetched anonymously from the
// backend and cached when small enough.
func (h *Handler) PublicImage(w http.ResponseWriter, r *http.Request) {
	if chi.URLParam(r, "*") == "" {
		NewResponseWriter(w, r).NotFound("Image not found")
		return
	}
	key := backendPath(r)

	if h.images != nil {
		img, found, err := h.images.Get(key)
		if err != nil {
			logging.Ctx(r.Context()).Warn().Err(err).Str("key", sanitizeLogValue(key)).Msg("Image cache read failed")
		}
		if found {
			w.Header().Set("X-Cache", "HIT")
			serveImage(w, r, img)
			return
		}
	}

	// Credentials are never forwarded: the response is shared by every viewer.
	header := http.Header{}
	header.Set("Accept", "image/*")

	resp, err := h.backend.Forward(r.Context(), http.MethodGet, key, "", header, nil)
	if err != nil {
		h.writeForwardError(NewResponseWriter(w, r), err)
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK || h.images == nil {
		copyResponse(w, r, resp)
		return
	}

	limit := h.images.MaxBytes()
	if limit <= 0 {
		limit = defaultMaxUploadBytes
	}
	buf, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		NewResponseWriter(w, r).ExternalServiceError(backendService, err)
		return
	}
	if int64(len(buf)) > limit {
		// Too large to cache: stream it through.
		for k, vs := range pickHeaders(resp.Header) {
			w.Header()[k] = vs
		}
		w.WriteHeader(resp.StatusCode)
		if r.Method != http.MethodHead {
			_, _ = w.Write(buf)
			_, _ = io.Copy(w, resp.Body)
		}
		return
	}

	img := &imagecache.Image{
		ContentType:  resp.Header.Get("Content-Type"),
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
		Body:         buf,
	}
	if err := h.images.Put(key, img); err != nil && !errors.Is(err, imagecache.ErrTooLarge) {
		logging.Ctx(r.Context()).Warn().Err(err).Str("key", sanitizeLogValue(key)).Msg("Image cache write failed")
	}

	w.Header().Set("X-Cache", "MISS")
	serveImage(w, r, img)
}

// serveImage writes a cached image, answering conditional and range requests.
func serveImage(w http.ResponseWriter, r *http.Request, img *imagecache.Image) {
	if img.ContentType != "" {
		w.Header().Set("Content-Type", img.ContentType)
	}
	if img.ETag != "" {
		w.Header().Set("ETag", img.ETag)
	}

	var modtime time.Time
	if img.LastModified != "" {
		if t, err := http.ParseTime(img.LastModified); err == nil {
			modtime = t
		}
	}
	http.ServeContent(w, r, "", modtime, bytes.NewReader(img.Body))
}
