// Package timeouts defines shared timeout constants for daybook processes.
package timeouts

import "time"

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long an HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second

// Startup caps one-off startup work such as migrations and challenge cleanup.
const Startup = 30 * time.Second
