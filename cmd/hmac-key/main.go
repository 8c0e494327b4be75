// Command hmac-key prints a fresh event signing key, or a rotated key set
// when -key-id is given.
package main

import (
	"flag"
	"os"

	"github.com/taliva/escrow/internal/platform/config"
	"github.com/taliva/escrow/internal/tools/hmackey"
)

func main() {
	cfg, err := hmackey.ParseConfig(flag.CommandLine, os.Args[1:])
	if err == nil {
		err = hmackey.Run(cfg, os.Stdout, nil)
	}
	if err != nil {
		config.Exitf("hmac-key: %v", err)
	}
}
