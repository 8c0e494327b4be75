// Command maintenance audits the escrow event log and rebuilds checkpoints
// while the server is stopped.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	entrypoint "github.com/taliva/escrow/internal/platform/cmd"
	"github.com/taliva/escrow/internal/platform/config"
	"github.com/taliva/escrow/internal/tools/maintenance"
)

func main() {
	cfg, err := maintenance.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("maintenance: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = entrypoint.Run(ctx, entrypoint.ServiceMaintenance, entrypoint.RunOptions{}, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
		return maintenance.Run(ctx, cfg, os.Stdout, os.Stderr)
	})
	if err != nil {
		config.Exitf("maintenance: %v", err)
	}
}
