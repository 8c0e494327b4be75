// Package config loads process configuration from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// ParseEnv fills target from the process environment using its env tags.
func ParseEnv(target any) error {
	return parse(target, env.Options{})
}

// ParseEnvWithPrefix is ParseEnv for structs whose tags omit a shared prefix.
func ParseEnvWithPrefix(target any, prefix string) error {
	if err := parse(target, env.Options{Prefix: prefix}); err != nil {
		return fmt.Errorf("%s*: %w", prefix, err)
	}
	return nil
}

// ParseEnvFrom reads values from vars instead of the process environment.
func ParseEnvFrom(target any, vars map[string]string) error {
	return parse(target, env.Options{Environment: vars})
}

func parse(target any, opts env.Options) error {
	if err := env.ParseWithOptions(target, opts); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
