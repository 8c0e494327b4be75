package config

import (
	"fmt"
	"io"
	"os"
)

// Swapped out in tests.
var (
	stderr io.Writer = os.Stderr
	exit             = os.Exit
)

// Exitf reports a startup failure and terminates the process with status 1.
// Entry points call it before a logger has been configured.
func Exitf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if len(msg) == 0 || msg[len(msg)-1] != '\n' {
		msg += "\n"
	}
	_, _ = io.WriteString(stderr, msg)
	exit(1)
}
