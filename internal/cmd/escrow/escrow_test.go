package escrow

import (
	"flag"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("escrow", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Port != 8090 || cfg.HTTPAddr != ":8091" {
		t.Fatalf("unexpected listen defaults %+v", cfg)
	}
	if cfg.ListenAddr() != ":8090" {
		t.Fatalf("expected :8090, got %q", cfg.ListenAddr())
	}
	policy, err := cfg.Policy()
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	if !policy.OverfundCapRatio.IsZero() || policy.Currency != "USDC" || policy.AmountScale != 6 {
		t.Fatalf("unexpected default policy %+v", policy)
	}
	ring, err := cfg.Keyring()
	if err != nil || ring != nil {
		t.Fatalf("expected no keyring without keys, got %v, %v", ring, err)
	}
}

func TestParseConfigEnvAndFlags(t *testing.T) {
	t.Setenv("ESCROW_OVERFUND_CAP_RATIO", "0.25")
	t.Setenv("ESCROW_CURRENCY", "BRL")
	t.Setenv("ESCROW_AMOUNT_SCALE", "2")
	t.Setenv("ESCROW_EVENT_HMAC_KEY", "secret")

	fs := flag.NewFlagSet("escrow", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-addr", "127.0.0.1:9999", "-http-addr", "", "-checkpoint-dir", ""})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.ListenAddr() != "127.0.0.1:9999" {
		t.Fatalf("expected addr override, got %q", cfg.ListenAddr())
	}
	if cfg.HTTPAddr != "" || cfg.CheckpointDir != "" {
		t.Fatalf("expected gateway and checkpoints disabled, got %+v", cfg)
	}
	policy, err := cfg.Policy()
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	if !policy.OverfundCapRatio.Equal(decimal.RequireFromString("0.25")) || policy.Currency != "BRL" || policy.AmountScale != 2 {
		t.Fatalf("unexpected policy %+v", policy)
	}
	ring, err := cfg.Keyring()
	if err != nil || ring == nil {
		t.Fatalf("expected keyring, got %v, %v", ring, err)
	}
	if ring.ActiveKeyID() != "v1" {
		t.Fatalf("expected default key id v1, got %q", ring.ActiveKeyID())
	}
}

func TestPolicyRejectsBadRatio(t *testing.T) {
	for _, raw := range []string{"abc", "-0.1"} {
		cfg := Config{OverfundCapRatio: raw, AmountScale: 6}
		if _, err := cfg.Policy(); err == nil {
			t.Fatalf("%q: expected error", raw)
		}
	}
	if _, err := (Config{OverfundCapRatio: "0", AmountScale: 40}).Policy(); err == nil {
		t.Fatal("expected out of range scale to fail")
	}
}
