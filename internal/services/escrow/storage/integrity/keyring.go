package integrity

import (
	"crypto/hkdf"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
)

var (
	ErrNoKeyring    = errors.New("event signing is not configured")
	ErrUnknownKey   = errors.New("unknown signing key")
	ErrBadSignature = errors.New("signature mismatch")
)

// Keyring maps key ids to root secrets. New signatures use the active key;
// the others remain so events signed before a rotation keep verifying.
//
// Each campaign signs with its own subkey, derived from the root secret with
// HKDF-SHA256, so a signature cannot be replayed onto another campaign.
type Keyring struct {
	active string
	roots  map[string][]byte

	mu      sync.Mutex
	derived map[subkeyID][]byte
}

type subkeyID struct{ keyID, campaignID string }

// NewKeyring copies keys and selects activeKeyID for signing.
func NewKeyring(keys map[string][]byte, activeKeyID string) (*Keyring, error) {
	if len(keys) == 0 {
		return nil, errors.New("at least one signing key is required")
	}
	activeKeyID = strings.TrimSpace(activeKeyID)
	if activeKeyID == "" {
		return nil, errors.New("active key id is required")
	}
	if len(keys[activeKeyID]) == 0 {
		return nil, fmt.Errorf("active key %q: %w", activeKeyID, ErrUnknownKey)
	}
	return &Keyring{
		active:  activeKeyID,
		roots:   maps.Clone(keys),
		derived: make(map[subkeyID][]byte),
	}, nil
}

// ActiveKeyID returns the id new signatures carry, or "" for a nil ring.
func (k *Keyring) ActiveKeyID() string {
	if k == nil {
		return ""
	}
	return k.active
}

// KeyIDs lists every configured key id in sorted order.
func (k *Keyring) KeyIDs() []string {
	if k == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(k.roots))
}

// Sign signs a campaign's chain hash with the active key.
func (k *Keyring) Sign(campaignID, chainHash string) (signature, keyID string, err error) {
	if k == nil {
		return "", "", ErrNoKeyring
	}
	key, err := k.subkey(k.active, campaignID)
	if err != nil {
		return "", "", err
	}
	return mac(key, chainHash), k.active, nil
}

// Verify checks a signature produced by Sign under keyID.
func (k *Keyring) Verify(campaignID, chainHash, signature, keyID string) error {
	if k == nil {
		return ErrNoKeyring
	}
	key, err := k.subkey(strings.TrimSpace(keyID), campaignID)
	if err != nil {
		return err
	}
	if !hmac.Equal([]byte(mac(key, chainHash)), []byte(signature)) {
		return ErrBadSignature
	}
	return nil
}

func (k *Keyring) subkey(keyID, campaignID string) ([]byte, error) {
	root, ok := k.roots[keyID]
	if !ok {
		return nil, fmt.Errorf("key %q: %w", keyID, ErrUnknownKey)
	}
	campaignID = strings.TrimSpace(campaignID)
	if campaignID == "" {
		return nil, errors.New("campaign id is required")
	}

	id := subkeyID{keyID, campaignID}
	k.mu.Lock()
	defer k.mu.Unlock()
	if key, ok := k.derived[id]; ok {
		return key, nil
	}
	key, err := hkdf.Key(sha256.New, root, nil, "escrow-campaign:"+campaignID, sha256.Size)
	if err != nil {
		return nil, fmt.Errorf("derive campaign key: %w", err)
	}
	k.derived[id] = key
	return key, nil
}

func mac(key []byte, value string) string {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(value))
	return hex.EncodeToString(h.Sum(nil))
}

// ParseKeyring builds a keyring from configuration strings. spec lists keys
// as "id=secret,id=secret"; when it is blank, single is used as the only key.
// activeKeyID defaults to "v1".
func ParseKeyring(spec, single, activeKeyID string) (*Keyring, error) {
	activeKeyID = strings.TrimSpace(activeKeyID)
	if activeKeyID == "" {
		activeKeyID = "v1"
	}
	keys := make(map[string][]byte)
	if strings.TrimSpace(spec) == "" {
		if secret := strings.TrimSpace(single); secret != "" {
			keys[activeKeyID] = []byte(secret)
		}
		return NewKeyring(keys, activeKeyID)
	}
	for entry := range strings.SplitSeq(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		id, secret, _ := strings.Cut(entry, "=")
		id, secret = strings.TrimSpace(id), strings.TrimSpace(secret)
		if id == "" || secret == "" {
			return nil, fmt.Errorf("key entry %q: want id=secret", redact(entry))
		}
		if _, dup := keys[id]; dup {
			return nil, fmt.Errorf("key %q listed twice", id)
		}
		keys[id] = []byte(secret)
	}
	return NewKeyring(keys, activeKeyID)
}

// redact keeps key ids readable in errors without echoing secrets.
func redact(entry string) string {
	id, _, ok := strings.Cut(entry, "=")
	if !ok {
		return "***"
	}
	return id + "=***"
}
