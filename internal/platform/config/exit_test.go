package config

import (
	"bytes"
	"testing"
)

func captureExit(t *testing.T) (*bytes.Buffer, *int) {
	t.Helper()
	var buf bytes.Buffer
	code := -1
	prevErr, prevExit := stderr, exit
	stderr = &buf
	exit = func(c int) { code = c }
	t.Cleanup(func() { stderr, exit = prevErr, prevExit })
	return &buf, &code
}

func TestExitfWritesAndExits(t *testing.T) {
	buf, code := captureExit(t)

	Exitf("escrow: %s", "listen failed")

	if *code != 1 {
		t.Fatalf("expected exit status 1, got %d", *code)
	}
	if buf.String() != "escrow: listen failed\n" {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestExitfKeepsSingleNewline(t *testing.T) {
	buf, _ := captureExit(t)

	Exitf("already terminated\n")

	if buf.String() != "already terminated\n" {
		t.Fatalf("unexpected output %q", buf.String())
	}
}
