// Vtour - 360° Virtual Tour Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vtour

package middleware

import (
	"net/http"
	"strconv"
)

// PublicImageMaxAge is the Cache-Control max-age of the public image route.
const PublicImageMaxAge = 86400

// NoStore marks responses as uncacheable. Used for private image routes, which are
// served under the caller's credentials.
func NoStore(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Cache-Control", "no-store, no-cache, must-revalidate, private")
		h.Set("Pragma", "no-cache")
		h.Set("Expires", "0")
		next(w, r)
	}
}

// PublicCache marks responses as cacheable by anyone for a day and open to any
// origin, for the public viewer's panorama images.
func PublicCache(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Cache-Control", "public, max-age="+strconv.Itoa(PublicImageMaxAge))
		h.Set("Access-Control-Allow-Origin", "*")
		next(w, r)
	}
}
