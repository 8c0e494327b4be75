package hmackey

import (
	"bytes"
	"flag"
	"fmt"
	"strings"
	"testing"
)

func sixteen() *bytes.Reader {
	return bytes.NewReader(bytes.Repeat([]byte{0xab}, 16))
}

func TestParseConfigDefaults(t *testing.T) {
	t.Setenv("ESCROW_EVENT_HMAC_KEYS", "")
	cfg, err := ParseConfig(flag.NewFlagSet("hmackey", flag.ContinueOnError), nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Bytes != 32 || cfg.KeyID != "" || cfg.Existing != "" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestParseConfigReadsExistingFromEnv(t *testing.T) {
	t.Setenv("ESCROW_EVENT_HMAC_KEYS", "v1=old")
	cfg, err := ParseConfig(flag.NewFlagSet("hmackey", flag.ContinueOnError), []string{"-key-id", "v2", "-bytes", "24"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Existing != "v1=old" || cfg.KeyID != "v2" || cfg.Bytes != 24 {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestRunSingleKey(t *testing.T) {
	var buf bytes.Buffer
	if err := Run(Config{Bytes: 16}, &buf, sixteen()); err != nil {
		t.Fatalf("run: %v", err)
	}
	want := "ESCROW_EVENT_HMAC_KEY=" + strings.Repeat("ab", 16)
	if got := strings.TrimSpace(buf.String()); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestRunRotatesKeySet(t *testing.T) {
	var buf bytes.Buffer
	if err := Run(Config{Bytes: 16, KeyID: "v2", Existing: "v1=old"}, &buf, sixteen()); err != nil {
		t.Fatalf("run: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected two lines, got %q", buf.String())
	}
	if lines[0] != "ESCROW_EVENT_HMAC_KEYS=v1=old,v2="+strings.Repeat("ab", 16) {
		t.Fatalf("unexpected key set %q", lines[0])
	}
	if lines[1] != "ESCROW_EVENT_HMAC_KEY_ID=v2" {
		t.Fatalf("unexpected active key %q", lines[1])
	}
}

func TestRunRejectsBadInput(t *testing.T) {
	if err := Run(Config{Bytes: 8}, &bytes.Buffer{}, sixteen()); err == nil {
		t.Fatal("expected short key to fail")
	}
	if err := Run(Config{Bytes: 16}, nil, sixteen()); err == nil {
		t.Fatal("expected nil output to fail")
	}
	if err := Run(Config{Bytes: 16, KeyID: "v=2"}, &bytes.Buffer{}, sixteen()); err == nil {
		t.Fatal("expected bad key id to fail")
	}
	if err := Run(Config{Bytes: 16, KeyID: "v2", Existing: "broken"}, &bytes.Buffer{}, sixteen()); err == nil {
		t.Fatal("expected malformed existing set to fail")
	}
	if err := Run(Config{Bytes: 16, KeyID: "v1", Existing: "v1=old"}, &bytes.Buffer{}, sixteen()); err == nil {
		t.Fatal("expected reused key id to fail")
	}
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, fmt.Errorf("read error") }

func TestRunReaderError(t *testing.T) {
	if err := Run(Config{Bytes: 16}, &bytes.Buffer{}, errReader{}); err == nil {
		t.Fatal("expected error from failing reader")
	}
}
