package integrity

import (
	"fmt"

	"github.com/taliva/escrow/internal/services/escrow/domain/event"
)

// Seal fills the integrity fields of evt. evt.Seq must already be assigned;
// prevChainHash is the chain hash of the campaign's previous event, empty
// for the first one. A nil keyring leaves the event unsigned.
func Seal(evt event.Event, prevChainHash string, ring *Keyring) (event.Event, error) {
	hash, err := event.EventHash(evt)
	if err != nil {
		return event.Event{}, fmt.Errorf("compute event hash: %w", err)
	}
	evt.Hash = hash
	evt.PrevHash = prevChainHash

	chainHash, err := event.ChainHash(evt, prevChainHash)
	if err != nil {
		return event.Event{}, fmt.Errorf("compute chain hash: %w", err)
	}
	evt.ChainHash = chainHash

	if ring != nil {
		signature, keyID, err := ring.Sign(evt.CampaignID, chainHash)
		if err != nil {
			return event.Event{}, fmt.Errorf("sign chain hash: %w", err)
		}
		evt.Signature = signature
		evt.SignatureKeyID = keyID
	}
	return evt, nil
}

// Verifier checks a campaign's events one at a time in ledger order.
type Verifier struct {
	ring      *Keyring
	prevChain string
	prevSeq   uint64
	checked   int
}

// NewVerifier returns a verifier. With a nil keyring signatures are skipped.
func NewVerifier(ring *Keyring) *Verifier {
	return &Verifier{ring: ring}
}

// Check verifies the next event of the campaign.
func (v *Verifier) Check(evt event.Event) error {
	if evt.Seq <= v.prevSeq {
		return fmt.Errorf("event seq %d does not follow %d", evt.Seq, v.prevSeq)
	}
	hash, err := event.EventHash(evt)
	if err != nil {
		return fmt.Errorf("event seq %d: compute hash: %w", evt.Seq, err)
	}
	if hash != evt.Hash {
		return fmt.Errorf("event seq %d: hash mismatch", evt.Seq)
	}
	if evt.PrevHash != v.prevChain {
		return fmt.Errorf("event seq %d: previous hash does not link to seq %d", evt.Seq, v.prevSeq)
	}
	chainHash, err := event.ChainHash(evt, v.prevChain)
	if err != nil {
		return fmt.Errorf("event seq %d: compute chain hash: %w", evt.Seq, err)
	}
	if chainHash != evt.ChainHash {
		return fmt.Errorf("event seq %d: chain hash mismatch", evt.Seq)
	}
	if v.ring != nil {
		if err := v.ring.Verify(evt.CampaignID, evt.ChainHash, evt.Signature, evt.SignatureKeyID); err != nil {
			return fmt.Errorf("event seq %d: %w", evt.Seq, err)
		}
	}
	v.prevChain = evt.ChainHash
	v.prevSeq = evt.Seq
	v.checked++
	return nil
}

// Checked returns how many events passed verification.
func (v *Verifier) Checked() int {
	return v.checked
}
