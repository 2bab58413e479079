// Package timeouts holds the timeout constants shared by server entry points.
package timeouts

import "time"

const (
	// ReadHeader bounds how long an HTTP server waits for request headers.
	ReadHeader = 5 * time.Second

	// Shutdown bounds how long graceful shutdown waits for in-flight requests.
	Shutdown = 5 * time.Second
)
