package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/taliva/escrow/internal/platform/telemetry/metrics"
	"github.com/taliva/escrow/internal/platform/timeouts"
	"github.com/taliva/escrow/internal/services/escrow/api/grpc/escrow"
	"github.com/taliva/escrow/internal/services/escrow/api/grpc/interceptors"
	grpcmeta "github.com/taliva/escrow/internal/services/escrow/api/grpc/metadata"
	gateway "github.com/taliva/escrow/internal/services/escrow/api/http"
	"github.com/taliva/escrow/internal/services/escrow/engine"
	"github.com/taliva/escrow/internal/services/escrow/ledger"
	"github.com/taliva/escrow/internal/services/escrow/query"
	"github.com/taliva/escrow/internal/services/escrow/registry"
	"github.com/taliva/escrow/internal/services/escrow/storage/integrity"
)

// Config describes one escrow server instance.
type Config struct {
	// GRPCAddr is the gRPC listen address, e.g. ":8090".
	GRPCAddr string
	// HTTPAddr is the gateway listen address. Empty disables the gateway.
	HTTPAddr string
	// EventsDBPath is the SQLite event log.
	EventsDBPath string
	// CheckpointDir holds the badger side store. Empty keeps checkpoints
	// and scores in memory.
	CheckpointDir string
	Policy        engine.Policy
	// Keyring signs appended events. Nil stores unsigned events.
	Keyring *integrity.Keyring
	Logger  zerolog.Logger
}

// Server hosts the escrow gRPC API and HTTP gateway.
type Server struct {
	logger       zerolog.Logger
	grpcListener net.Listener
	httpListener net.Listener
	grpcServer   *grpc.Server
	httpServer   *http.Server
	health       *health.Server
	stores       *stores
	registry     *registry.Registry
	ready        atomic.Bool
}

// New opens the stores, restores every campaign from the ledger and binds
// the listeners. Nothing is served until Serve is called.
func New(ctx context.Context, cfg Config) (*Server, error) {
	if strings.TrimSpace(cfg.GRPCAddr) == "" {
		return nil, errors.New("grpc address is required")
	}
	logger := cfg.Logger.With().Str("component", "server").Logger()

	st, err := openStores(ctx, cfg)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	l := ledger.New(st.events, cfg.Keyring)
	reg := registry.New(l, st.checkpoints, cfg.Logger)
	applied, err := reg.Load(ctx)
	if err != nil {
		st.close(logger)
		return nil, fmt.Errorf("load campaigns: %w", err)
	}
	m.TrackCampaigns(reg.Len)
	logger.Info().Int("campaigns", reg.Len()).Int("events_folded", applied).Msg("campaigns restored")

	eng, err := engine.New(l, reg, engine.Options{Policy: cfg.Policy, Logger: cfg.Logger, Metrics: m})
	if err != nil {
		st.close(logger)
		return nil, err
	}
	q, err := query.New(reg, l, st.scores, cfg.Logger)
	if err != nil {
		st.close(logger)
		return nil, err
	}
	api, err := escrow.NewServer(eng, q, l)
	if err != nil {
		st.close(logger)
		return nil, err
	}

	grpcListener, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		st.close(logger)
		return nil, fmt.Errorf("listen on %s: %w", cfg.GRPCAddr, err)
	}

	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			grpcmeta.UnaryServerInterceptor(nil),
			interceptors.Logging(cfg.Logger),
			m.UnaryServerInterceptor(),
			interceptors.Errors(),
			interceptors.Validation(nil),
		),
	)
	escrow.Register(grpcServer, api)
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(escrow.ServiceName, healthpb.HealthCheckResponse_SERVING)

	s := &Server{
		logger:       logger,
		grpcListener: grpcListener,
		grpcServer:   grpcServer,
		health:       healthServer,
		stores:       st,
		registry:     reg,
	}

	if cfg.HTTPAddr != "" {
		httpListener, err := net.Listen("tcp", cfg.HTTPAddr)
		if err != nil {
			_ = grpcListener.Close()
			st.close(logger)
			return nil, fmt.Errorf("listen on %s: %w", cfg.HTTPAddr, err)
		}
		s.httpListener = httpListener
		s.httpServer = &http.Server{
			Handler: gateway.NewRouter(gateway.NewHandler(q, gateway.Options{
				Metrics: m.Handler(),
				Ready:   s.ready.Load,
				Logger:  cfg.Logger,
			})),
			ReadHeaderTimeout: timeouts.ReadHeader,
		}
	}
	s.ready.Store(true)
	return s, nil
}

// Addr returns the gRPC listener address.
func (s *Server) Addr() string {
	if s == nil || s.grpcListener == nil {
		return ""
	}
	return s.grpcListener.Addr().String()
}

// HTTPAddr returns the gateway listener address, or "" when disabled.
func (s *Server) HTTPAddr() string {
	if s == nil || s.httpListener == nil {
		return ""
	}
	return s.httpListener.Addr().String()
}

// Run creates a server from cfg and serves it until ctx ends.
func Run(ctx context.Context, cfg Config) error {
	s, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	return s.Serve(ctx)
}

// Serve runs the gRPC server and the gateway until ctx ends or either of
// them fails, then drains both and closes the stores.
func (s *Server) Serve(ctx context.Context) error {
	defer s.stores.close(s.logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info().Str("addr", s.Addr()).Msg("grpc listening")
		if err := s.grpcServer.Serve(s.grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("serve grpc: %w", err)
		}
		return nil
	})
	if s.httpServer != nil {
		g.Go(func() error {
			s.logger.Info().Str("addr", s.HTTPAddr()).Msg("http gateway listening")
			if err := s.httpServer.Serve(s.httpListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve http: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		s.shutdown()
		return nil
	})
	return g.Wait()
}

func (s *Server) shutdown() {
	s.ready.Store(false)
	s.health.Shutdown()
	if s.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn().Err(err).Msg("http gateway shutdown")
		}
	}
	s.grpcServer.GracefulStop()
	s.logger.Info().Msg("escrow server stopped")
}
