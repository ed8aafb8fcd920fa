// Vtour - 360° Virtual Tour Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vtour

/*
Package cache provides a thread-safe in-memory response cache with TTL support.

The proxy layer uses it to keep recent backend answers for read-heavy routes:

  - Scene listings, keyed by query string
  - Tour settings

Any mutating proxy call clears the whole cache, so a stale listing is never served
after an edit made through this server.

# Expiration

Entries expire lazily on Get. Cleanup removes expired entries periodically when the
cache is run as a supervised service:

	c := cache.New(30 * time.Second)
	supervisor.AddMessagingService(c) // runs c.Serve(ctx)

# Usage Example

	key := cache.GenerateKey("scenes", r.URL.RawQuery)
	if v, ok := c.Get(key); ok {
	    return v.(*CachedResponse)
	}
	// Cache miss, forward to the backend
	c.Set(key, resp)

# Thread Safety

All methods are safe for concurrent use.
*/
package cache
