// Package cmd holds startup plumbing shared by the escrow binaries.
package cmd

import (
	"context"
	"errors"
	"flag"
	"time"

	"github.com/rs/zerolog"

	"github.com/taliva/escrow/internal/platform/config"
	"github.com/taliva/escrow/internal/platform/otel"
)

// Service names used for tracing resources and log fields.
const (
	ServiceEscrow      = "escrow"
	ServiceMaintenance = "maintenance"
)

// RunOptions tunes Run.
type RunOptions struct {
	// FlushTimeout bounds the final span flush. Zero means five seconds.
	FlushTimeout time.Duration
	Logger       zerolog.Logger
	// Telemetry overrides the environment-derived tracing config.
	Telemetry *otel.Config
}

// Load fills cfg from the environment, then lets fs override it from args.
// A nil fs skips flag parsing.
func Load[T any](cfg *T, fs *flag.FlagSet, args []string) error {
	if cfg == nil {
		return errors.New("config target is required")
	}
	if err := config.ParseEnv(cfg); err != nil {
		return err
	}
	if fs == nil {
		return nil
	}
	return fs.Parse(args)
}

// Run installs tracing for service, calls run, and flushes spans on the way
// out. A flush failure is logged and never replaces run's error.
func Run(ctx context.Context, service string, opts RunOptions, run func(context.Context) error) error {
	if service == "" {
		return errors.New("service name is required")
	}
	if run == nil {
		return errors.New("run function is required")
	}

	var tel otel.Config
	if opts.Telemetry != nil {
		tel = *opts.Telemetry
	} else {
		loaded, err := otel.LoadConfig()
		if err != nil {
			return err
		}
		tel = loaded
	}

	shutdown, err := otel.Setup(ctx, tel, service)
	if err != nil {
		return err
	}
	defer func() {
		timeout := opts.FlushTimeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		if err := shutdown(flushCtx); err != nil {
			opts.Logger.Warn().Err(err).Str("service", service).Msg("flush traces")
		}
	}()
	return run(ctx)
}
