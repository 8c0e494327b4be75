// Package grpc holds client-side helpers shared by the escrow binaries.
package grpc

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// DefaultDialTimeout bounds Dial when DialOptions.Timeout is zero.
const DefaultDialTimeout = 10 * time.Second

// DialStage names the step a Dial attempt failed in.
type DialStage string

const (
	DialStageConnect DialStage = "connect"
	DialStageHealth  DialStage = "health"
)

// DialError reports which stage of Dial failed.
type DialError struct {
	Addr  string
	Stage DialStage
	Err   error
}

func (e *DialError) Error() string {
	return fmt.Sprintf("dial %s: %s: %v", e.Addr, e.Stage, e.Err)
}

func (e *DialError) Unwrap() error { return e.Err }

// DialOptions tunes Dial.
type DialOptions struct {
	// Timeout bounds the health wait. Zero uses DefaultDialTimeout.
	Timeout time.Duration
	// Service is the health service name to wait on; empty means the whole server.
	Service string
	Logger  zerolog.Logger
	// Extra options are appended after the defaults.
	Extra []gogrpc.DialOption
}

// ClientOptions returns the dial options every escrow client uses: plaintext
// transport and OpenTelemetry propagation.
func ClientOptions() []gogrpc.DialOption {
	return []gogrpc.DialOption{
		gogrpc.WithTransportCredentials(insecure.NewCredentials()),
		gogrpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	}
}

// Dial opens a client connection to addr and blocks until the server's health
// service reports SERVING. The connection is closed if the wait fails.
func Dial(ctx context.Context, addr string, opts DialOptions) (*gogrpc.ClientConn, error) {
	conn, err := gogrpc.NewClient(addr, append(ClientOptions(), opts.Extra...)...)
	if err != nil {
		return nil, &DialError{Addr: addr, Stage: DialStageConnect, Err: err}
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := WaitForHealth(waitCtx, conn, opts.Service, opts.Logger); err != nil {
		_ = conn.Close()
		return nil, &DialError{Addr: addr, Stage: DialStageHealth, Err: err}
	}
	return conn, nil
}
