// Package timeouts collects the fixed deadlines used by the server and tools.
package timeouts

import "time"

const (
	// GRPCDial bounds connecting to a peer and waiting for it to report
	// healthy.
	GRPCDial = 2 * time.Second
	// ReadHeader bounds how long the HTTP gateway waits for request headers.
	ReadHeader = 5 * time.Second
	// Shutdown bounds the drain of in-flight requests on stop.
	Shutdown = 5 * time.Second
	// SQLiteBusy is how long a writer waits on a locked event log before
	// the append fails.
	SQLiteBusy = 5 * time.Second
)
