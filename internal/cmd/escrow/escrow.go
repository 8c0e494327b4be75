// Package escrow parses escrow command configuration and starts the server.
package escrow

import (
	"context"
	"flag"
	"fmt"

	"github.com/shopspring/decimal"

	entrypoint "github.com/taliva/escrow/internal/platform/cmd"
	platformgrpc "github.com/taliva/escrow/internal/platform/grpc"
	"github.com/taliva/escrow/internal/platform/logging"
	"github.com/taliva/escrow/internal/platform/timeouts"
	"github.com/taliva/escrow/internal/services/escrow/api/grpc/escrow"
	server "github.com/taliva/escrow/internal/services/escrow/app"
	"github.com/taliva/escrow/internal/services/escrow/engine"
	"github.com/taliva/escrow/internal/services/escrow/storage/integrity"
)

// Config holds escrow command configuration.
type Config struct {
	Port          int    `env:"ESCROW_PORT" envDefault:"8090"`
	Addr          string `env:"ESCROW_ADDR"`
	HTTPAddr      string `env:"ESCROW_HTTP_ADDR" envDefault:":8091"`
	EventsDBPath  string `env:"ESCROW_EVENTS_DB_PATH" envDefault:"data/escrow-events.db"`
	CheckpointDir string `env:"ESCROW_CHECKPOINT_DIR" envDefault:"data/checkpoints"`

	OverfundCapRatio string `env:"ESCROW_OVERFUND_CAP_RATIO" envDefault:"0"`
	Currency         string `env:"ESCROW_CURRENCY" envDefault:"USDC"`
	AmountScale      int    `env:"ESCROW_AMOUNT_SCALE" envDefault:"6"`

	LogLevel  string `env:"ESCROW_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"ESCROW_LOG_FORMAT" envDefault:"json"`

	HMACKeys  string `env:"ESCROW_EVENT_HMAC_KEYS"`
	HMACKey   string `env:"ESCROW_EVENT_HMAC_KEY"`
	HMACKeyID string `env:"ESCROW_EVENT_HMAC_KEY_ID"`

	// HealthCheck probes a running server instead of starting one.
	HealthCheck bool
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.Load(&cfg, nil, nil); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The escrow gRPC port")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "The escrow gRPC listen address (overrides -port)")
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "The HTTP gateway listen address (empty disables it)")
	fs.StringVar(&cfg.EventsDBPath, "events-db", cfg.EventsDBPath, "Path to the SQLite event log")
	fs.StringVar(&cfg.CheckpointDir, "checkpoint-dir", cfg.CheckpointDir, "Badger checkpoint directory (empty keeps checkpoints in memory)")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level")
	fs.BoolVar(&cfg.HealthCheck, "healthcheck", false, "Probe the local server health and exit")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ListenAddr returns Addr when set and ":Port" otherwise.
func (c Config) ListenAddr() string {
	if c.Addr != "" {
		return c.Addr
	}
	return fmt.Sprintf(":%d", c.Port)
}

// Policy builds the funding policy captured by new campaigns.
func (c Config) Policy() (engine.Policy, error) {
	ratio, err := decimal.NewFromString(c.OverfundCapRatio)
	if err != nil {
		return engine.Policy{}, fmt.Errorf("ESCROW_OVERFUND_CAP_RATIO: %w", err)
	}
	if ratio.IsNegative() {
		return engine.Policy{}, fmt.Errorf("ESCROW_OVERFUND_CAP_RATIO must not be negative, got %s", ratio)
	}
	if c.AmountScale < 0 || c.AmountScale > 18 {
		return engine.Policy{}, fmt.Errorf("ESCROW_AMOUNT_SCALE must be between 0 and 18, got %d", c.AmountScale)
	}
	return engine.Policy{OverfundCapRatio: ratio, Currency: c.Currency, AmountScale: int32(c.AmountScale)}, nil
}

// Keyring returns the event signing keyring, or nil when no key is set.
func (c Config) Keyring() (*integrity.Keyring, error) {
	if c.HMACKeys == "" && c.HMACKey == "" {
		return nil, nil
	}
	return integrity.ParseKeyring(c.HMACKeys, c.HMACKey, c.HMACKeyID)
}

// Run starts the escrow server, or probes one when HealthCheck is set.
func Run(ctx context.Context, cfg Config) error {
	logger := logging.New(cfg.LogLevel, cfg.LogFormat).With().Str("service", entrypoint.ServiceEscrow).Logger()
	if cfg.HealthCheck {
		return probe(ctx, cfg)
	}

	policy, err := cfg.Policy()
	if err != nil {
		return err
	}
	ring, err := cfg.Keyring()
	if err != nil {
		return err
	}
	if ring == nil {
		logger.Warn().Msg("no event HMAC key configured, events are stored unsigned")
	}

	return entrypoint.Run(ctx, entrypoint.ServiceEscrow, entrypoint.RunOptions{Logger: logger}, func(ctx context.Context) error {
		return server.Run(ctx, server.Config{
			GRPCAddr:      cfg.ListenAddr(),
			HTTPAddr:      cfg.HTTPAddr,
			EventsDBPath:  cfg.EventsDBPath,
			CheckpointDir: cfg.CheckpointDir,
			Policy:        policy,
			Keyring:       ring,
			Logger:        logger,
		})
	})
}

func probe(ctx context.Context, cfg Config) error {
	addr := cfg.ListenAddr()
	if addr[0] == ':' {
		addr = "localhost" + addr
	}
	probeCtx, cancel := context.WithTimeout(ctx, timeouts.GRPCDial)
	defer cancel()
	conn, err := platformgrpc.Dial(probeCtx, addr, platformgrpc.DialOptions{
		Timeout: timeouts.GRPCDial,
		Service: escrow.ServiceName,
	})
	if err != nil {
		return err
	}
	return conn.Close()
}

