// Vtour - 360° Virtual Tour Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vtour

/*
Package supervisor runs the server's long-lived services under a suture v4 tree.

	vtour
	├── cache-layer
	│   ├── response-cache   (expired entry sweep)
	│   └── image-cache-gc   (badger value log GC)
	├── messaging-layer
	│   └── websocket-hub    (studio session fan-out)
	└── api-layer
	    └── http-server

A service that returns an error or panics is restarted by its layer supervisor
with backoff; the other layers keep running. Supervisor events are logged through
sutureslog, which main feeds with the zerolog-backed slog handler from package
logging.

Canceling the context passed to Serve stops every layer. Services that do not
return within TreeConfig.ShutdownTimeout are listed by UnstoppedServiceReport.
*/
package supervisor
