package grpc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	gogrpc "google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	healthCallTimeout = time.Second
	healthMaxBackoff  = time.Second
)

// ErrNotServing is returned by Probe when the server answers but is not ready.
var ErrNotServing = errors.New("health: not serving")

// Probe performs a single health check against conn.
func Probe(ctx context.Context, conn gogrpc.ClientConnInterface, service string) error {
	callCtx, cancel := context.WithTimeout(ctx, healthCallTimeout)
	defer cancel()
	resp, err := healthpb.NewHealthClient(conn).Check(callCtx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("%w: %s", ErrNotServing, resp.GetStatus())
	}
	return nil
}

// WaitForHealth polls Probe with exponential backoff until it succeeds or
// ctx ends.
func WaitForHealth(ctx context.Context, conn gogrpc.ClientConnInterface, service string, logger zerolog.Logger) error {
	if conn == nil {
		return errors.New("health: nil connection")
	}
	backoff := 100 * time.Millisecond
	for attempt := 1; ; attempt++ {
		err := Probe(ctx, conn, service)
		if err == nil {
			logger.Debug().Int("attempt", attempt).Str("service", service).Msg("grpc health serving")
			return nil
		}
		logger.Debug().Err(err).Int("attempt", attempt).Dur("backoff", backoff).Msg("waiting for grpc health")

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("wait for health: %w (last error: %v)", ctx.Err(), err)
		case <-timer.C:
		}
		backoff = min(backoff*2, healthMaxBackoff)
	}
}
