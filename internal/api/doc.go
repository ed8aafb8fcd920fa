// Vtour - 360° Virtual Tour Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vtour

/*
Package api provides the HTTP layer of the tour studio server.

Routes:

 1. REST proxy (/api/vtour/scenes, /hotspots, /menus, /settings):
    Requests are forwarded to the tour backend unchanged and the backend's response
    comes back unchanged. Hotspot and menu bodies are validated before forwarding and
    rejected with VALIDATION_FAILED. GET /scenes and GET /settings responses are cached
    per query string and caller; any mutating request clears the cache.

 2. Images:
    /api/vtour/images/* and /api/vtour/storage/* are proxied under the caller's
    credentials and marked no-store. /api/vtour/public/storage/* is anonymous, open to
    any origin, cacheable for a day and served from the badger image cache when present.

 3. Studio websocket (/api/vtour/studio/ws?scene_id=&kind=):
    One studio.Session per connection. The session drives the browser's panorama
    renderer and hotspot editor; see package studio for the message protocol.

 4. Operations:
    /api/v1/health/live, /api/v1/health/ready and /metrics.

Responses produced by this package (errors, health) use the APIResponse envelope:

	{
	  "success": false,
	  "error": {"code": "VALIDATION_FAILED", "message": "...", "details": [...], "request_id": "..."},
	  "meta": {"timestamp": "...", "request_id": "..."}
	}

Proxied backend responses are never wrapped.

Middleware, outermost first: request ID, real IP, panic recovery, access log, CORS
(open on the public prefix), Prometheus metrics, per-route rate limits and security
headers.
*/
package api
