// Package otel installs the process-wide OpenTelemetry tracer provider.
package otel

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/taliva/escrow/internal/platform/config"
)

// Config selects where spans go. An empty Endpoint disables tracing.
type Config struct {
	Endpoint    string  `env:"ESCROW_OTEL_ENDPOINT"`
	Enabled     bool    `env:"ESCROW_OTEL_ENABLED" envDefault:"true"`
	SampleRatio float64 `env:"ESCROW_OTEL_SAMPLE_RATIO" envDefault:"1"`
	Version     string  `env:"ESCROW_VERSION" envDefault:"dev"`
}

// LoadConfig reads Config from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Active reports whether spans will be exported.
func (c Config) Active() bool {
	return c.Enabled && strings.TrimSpace(c.Endpoint) != ""
}

// Sampler samples everything unless SampleRatio is strictly between 0 and 1,
// in which case root spans are sampled at that ratio and children follow
// their parent.
func (c Config) Sampler() sdktrace.Sampler {
	if c.SampleRatio <= 0 || c.SampleRatio >= 1 {
		return sdktrace.AlwaysSample()
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(c.SampleRatio))
}

// Setup registers a batching OTLP/HTTP tracer provider for service. When
// tracing is inactive nothing is registered and the returned shutdown is a
// no-op. Callers defer shutdown to flush buffered spans.
func Setup(ctx context.Context, cfg Config, service string) (func(context.Context) error, error) {
	nop := func(context.Context) error { return nil }
	if !cfg.Active() {
		return nop, nil
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(strings.TrimSpace(cfg.Endpoint)))
	if err != nil {
		return nop, fmt.Errorf("otlp exporter: %w", err)
	}
	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(service),
		semconv.ServiceVersion(cfg.Version),
	))
	if err != nil {
		return nop, fmt.Errorf("otel resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(cfg.Sampler()),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return provider.Shutdown, nil
}
