package otel

import (
	"context"
	"strings"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("ESCROW_OTEL_ENDPOINT", "")
	t.Setenv("ESCROW_OTEL_ENABLED", "")
	t.Setenv("ESCROW_OTEL_SAMPLE_RATIO", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if !cfg.Enabled || cfg.SampleRatio != 1 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.Active() {
		t.Fatal("expected tracing to stay off without an endpoint")
	}
}

func TestSetupInactive(t *testing.T) {
	for name, cfg := range map[string]Config{
		"no endpoint": {Enabled: true},
		"disabled":    {Endpoint: "http://localhost:4318", Enabled: false},
	} {
		shutdown, err := Setup(context.Background(), cfg, "escrow-test")
		if err != nil {
			t.Fatalf("%s: setup: %v", name, err)
		}
		if err := shutdown(context.Background()); err != nil {
			t.Fatalf("%s: shutdown: %v", name, err)
		}
	}
}

func TestSetupActive(t *testing.T) {
	// TEST-NET-1 is never routed, and nothing is exported before shutdown.
	cfg := Config{Endpoint: "http://192.0.2.1:4318", Enabled: true, SampleRatio: 1, Version: "test"}
	shutdown, err := Setup(context.Background(), cfg, "escrow-test")
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestSampler(t *testing.T) {
	for ratio, want := range map[float64]string{
		0:    "AlwaysOnSampler",
		-1:   "AlwaysOnSampler",
		1:    "AlwaysOnSampler",
		0.25: "ParentBased",
	} {
		got := Config{SampleRatio: ratio}.Sampler().Description()
		if !strings.HasPrefix(got, want) {
			t.Fatalf("ratio %v: expected %s, got %s", ratio, want, got)
		}
	}
}
