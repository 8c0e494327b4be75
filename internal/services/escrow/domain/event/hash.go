package event

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// canonicalEnvelope fixes the field order hashed for an event. Adding a field
// here changes every hash, so new envelope fields must be appended with
// omitempty.
type canonicalEnvelope struct {
	Seq         uint64          `json:"seq"`
	CampaignID  string          `json:"campaign_id"`
	Type        string          `json:"type"`
	Timestamp   string          `json:"ts"`
	ActorType   string          `json:"actor_type"`
	ActorID     string          `json:"actor_id,omitempty"`
	RequestID   string          `json:"request_id,omitempty"`
	EntityType  string          `json:"entity_type,omitempty"`
	EntityID    string          `json:"entity_id,omitempty"`
	PayloadJSON json.RawMessage `json:"payload"`
}

type canonicalLink struct {
	CampaignID string `json:"campaign_id"`
	Seq        uint64 `json:"seq"`
	EventHash  string `json:"event_hash"`
	PrevHash   string `json:"prev_hash"`
}

// EventHash computes the content hash for a single event.
func EventHash(evt Event) (string, error) {
	if strings.TrimSpace(evt.CampaignID) == "" {
		return "", fmt.Errorf("campaign id is required")
	}
	payload := json.RawMessage(evt.PayloadJSON)
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	data, err := json.Marshal(canonicalEnvelope{
		Seq:         evt.Seq,
		CampaignID:  evt.CampaignID,
		Type:        string(evt.Type),
		Timestamp:   evt.Timestamp.UTC().Format(time.RFC3339Nano),
		ActorType:   string(evt.ActorType),
		ActorID:     evt.ActorID,
		RequestID:   evt.RequestID,
		EntityType:  evt.EntityType,
		EntityID:    evt.EntityID,
		PayloadJSON: payload,
	})
	if err != nil {
		return "", fmt.Errorf("marshal event envelope: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:16]), nil
}

// ChainHash computes the SHA-256 hash that links an event to its campaign predecessor.
func ChainHash(evt Event, prevHash string) (string, error) {
	if strings.TrimSpace(evt.Hash) == "" {
		return "", fmt.Errorf("event hash is required")
	}
	data, err := json.Marshal(canonicalLink{
		CampaignID: evt.CampaignID,
		Seq:        evt.Seq,
		EventHash:  evt.Hash,
		PrevHash:   prevHash,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chain link: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
