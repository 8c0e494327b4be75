// Package id generates identifiers for campaigns, investments and requests.
//
// An identifier is a UUIDv7 written in lowercase base32hex without padding:
// 26 characters, URL safe, and ordered by creation time when compared as
// strings.
package id

import (
	"encoding/base32"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var encoding = base32.HexEncoding.WithPadding(base32.NoPadding)

// NewID returns a new time-ordered identifier.
func NewID() (string, error) {
	u, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return strings.ToLower(encoding.EncodeToString(u[:])), nil
}

// Parse decodes an identifier produced by NewID back to its UUID.
func Parse(value string) (uuid.UUID, error) {
	if len(value) != 26 || value != strings.ToLower(value) {
		return uuid.Nil, fmt.Errorf("id %q: expected 26 lowercase characters", value)
	}
	raw, err := encoding.DecodeString(strings.ToUpper(value))
	if err != nil {
		return uuid.Nil, fmt.Errorf("id %q: %w", value, err)
	}
	u, err := uuid.FromBytes(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("id %q: %w", value, err)
	}
	if u.Version() != 7 {
		return uuid.Nil, fmt.Errorf("id %q: unexpected uuid version %d", value, u.Version())
	}
	return u, nil
}

// Valid reports whether value has the shape produced by NewID.
func Valid(value string) bool {
	_, err := Parse(value)
	return err == nil
}
