// Package hmackey generates event signing keys for the escrow ledger.
package hmackey

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/taliva/escrow/internal/platform/config"
	"github.com/taliva/escrow/internal/services/escrow/storage/integrity"
)

// Config holds configuration for key generation.
type Config struct {
	Bytes int
	// KeyID names the new key. Empty prints a single unnamed key.
	KeyID string
	// Existing is the current ESCROW_EVENT_HMAC_KEYS value. When set with
	// KeyID, the new key is appended and made active.
	Existing string `env:"ESCROW_EVENT_HMAC_KEYS"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Config{Bytes: 32}
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Bytes, "bytes", cfg.Bytes, "number of random bytes")
	fs.StringVar(&cfg.KeyID, "key-id", "", "id of the new key; prints a rotated key set when set")
	fs.StringVar(&cfg.Existing, "existing", cfg.Existing, "current key set to rotate (id=secret,...)")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run generates the key and writes the environment lines to out.
func Run(cfg Config, out io.Writer, reader io.Reader) error {
	if cfg.Bytes < 16 {
		return errors.New("bytes must be at least 16")
	}
	if out == nil {
		return errors.New("output is required")
	}
	if reader == nil {
		reader = rand.Reader
	}

	buf := make([]byte, cfg.Bytes)
	if _, err := io.ReadFull(reader, buf); err != nil {
		return fmt.Errorf("generate random bytes: %w", err)
	}
	secret := hex.EncodeToString(buf)

	keyID := strings.TrimSpace(cfg.KeyID)
	if keyID == "" {
		_, err := fmt.Fprintf(out, "ESCROW_EVENT_HMAC_KEY=%s\n", secret)
		return err
	}
	if strings.ContainsAny(keyID, "=,") {
		return fmt.Errorf("key id %q must not contain '=' or ','", keyID)
	}

	spec := keyID + "=" + secret
	if existing := strings.TrimSpace(cfg.Existing); existing != "" {
		spec = existing + "," + spec
	}
	// Old keys stay in the set so events signed before the rotation verify.
	ring, err := integrity.ParseKeyring(spec, "", keyID)
	if err != nil {
		return fmt.Errorf("build key set: %w", err)
	}
	_, err = fmt.Fprintf(out, "ESCROW_EVENT_HMAC_KEYS=%s\nESCROW_EVENT_HMAC_KEY_ID=%s\n", spec, ring.ActiveKeyID())
	return err
}
