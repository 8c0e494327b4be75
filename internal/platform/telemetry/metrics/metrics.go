package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// Metrics owns a private registry so several instances can coexist in one
// process (tests, maintenance tool). All methods are nil-safe.
type Metrics struct {
	registry *prometheus.Registry

	commands      *prometheus.CounterVec
	commandTime   *prometheus.HistogramVec
	appendLatency prometheus.Histogram
	appendErrors  *prometheus.CounterVec
	rpcs          *prometheus.CounterVec
}

// New registers the escrow collectors plus the Go runtime and process
// collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		commands: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "escrow_commands_total",
			Help: "Commands handled by operation and outcome code",
		}, []string{"operation", "code"}),
		commandTime: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "escrow_command_duration_seconds",
			Help:    "Command handling duration including the ledger append",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14), // 0.1ms to ~800ms
		}, []string{"operation"}),
		appendLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "escrow_ledger_append_duration_seconds",
			Help:    "Durable ledger append latency",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
		}),
		appendErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "escrow_ledger_append_errors_total",
			Help: "Ledger append failures by code",
		}, []string{"code"}),
		rpcs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "escrow_grpc_requests_total",
			Help: "Unary gRPC requests by method and status code",
		}, []string{"method", "code"}),
	}
}

// ObserveCommand records one handled command. code is "OK" on success.
func (m *Metrics) ObserveCommand(operation, code string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(operation, code).Inc()
	m.commandTime.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// ObserveAppend records one ledger append. code is empty on success.
func (m *Metrics) ObserveAppend(elapsed time.Duration, code string) {
	if m == nil {
		return
	}
	m.appendLatency.Observe(elapsed.Seconds())
	if code != "" {
		m.appendErrors.WithLabelValues(code).Inc()
	}
}

// TrackCampaigns exports count as the escrow_campaigns gauge, sampled at
// scrape time.
func (m *Metrics) TrackCampaigns(count func() int) {
	if m == nil || count == nil {
		return
	}
	promauto.With(m.registry).NewGaugeFunc(prometheus.GaugeOpts{
		Name: "escrow_campaigns",
		Help: "Campaigns in the projection",
	}, func() float64 { return float64(count()) })
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// UnaryServerInterceptor counts unary RPCs by method and status code.
func (m *Metrics) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		if m != nil {
			m.rpcs.WithLabelValues(info.FullMethod, status.Code(err).String()).Inc()
		}
		return resp, err
	}
}
