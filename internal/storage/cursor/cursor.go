// Package cursor encodes opaque page tokens.
//
// A token remembers where the previous page stopped (a ledger sequence for
// keyset listings, a row offset for listings ranked at read time) and a
// fingerprint of the query that produced it. Decoding against a different
// query fails, so a client cannot resume one listing with another's token.
package cursor

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMalformed    = errors.New("malformed page token")
	ErrScopeChanged = errors.New("page token was issued for a different query")
)

// Cursor is the decoded form of a page token.
type Cursor struct {
	Seq    uint64 `json:"s,omitempty"`
	Offset int    `json:"o,omitempty"`
	Scope  string `json:"q,omitempty"`
}

// Fingerprint hashes the query parts a token is bound to. No parts, or only
// empty ones, give the empty fingerprint.
func Fingerprint(parts ...string) string {
	if strings.Join(parts, "") == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(sum[:8])
}

// AfterSeq resumes a keyset listing after seq.
func AfterSeq(seq uint64, parts ...string) Cursor {
	return Cursor{Seq: seq, Scope: Fingerprint(parts...)}
}

// AtOffset resumes a ranked listing at offset.
func AtOffset(offset int, parts ...string) Cursor {
	return Cursor{Offset: offset, Scope: Fingerprint(parts...)}
}

// Encode returns the opaque token for c.
func (c Cursor) Encode() (string, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode cursor: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// Decode parses token and checks it belongs to the query described by parts.
// The empty token is the start of the listing.
func Decode(token string, parts ...string) (Cursor, error) {
	if token == "" {
		return Cursor{}, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	var c Cursor
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		return Cursor{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if c.Offset < 0 {
		return Cursor{}, fmt.Errorf("%w: negative offset", ErrMalformed)
	}
	if c.Scope != Fingerprint(parts...) {
		return Cursor{}, ErrScopeChanged
	}
	return c, nil
}
