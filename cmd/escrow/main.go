package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	escrowcmd "github.com/taliva/escrow/internal/cmd/escrow"
	"github.com/taliva/escrow/internal/platform/config"
)

func main() {
	cfg, err := escrowcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := escrowcmd.Run(ctx, cfg); err != nil {
		config.Exitf("escrow: %v", err)
	}
}
