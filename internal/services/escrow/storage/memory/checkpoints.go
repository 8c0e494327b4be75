package memory

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/taliva/escrow/internal/services/escrow/domain/campaign"
	"github.com/taliva/escrow/internal/services/escrow/storage"
)

// ErrCampaignIDRequired indicates a missing campaign id.
var ErrCampaignIDRequired = errors.New("campaign id is required")

// Checkpoints stores folded campaign states in memory.
type Checkpoints struct {
	mu     sync.Mutex
	states map[string]campaign.State
}

// NewCheckpoints creates an empty checkpoint store.
func NewCheckpoints() *Checkpoints {
	return &Checkpoints{states: make(map[string]campaign.State)}
}

// GetState implements storage.CheckpointStore.
func (m *Checkpoints) GetState(ctx context.Context, campaignID string) (campaign.State, error) {
	if err := ctx.Err(); err != nil {
		return campaign.State{}, err
	}
	campaignID = strings.TrimSpace(campaignID)
	if campaignID == "" {
		return campaign.State{}, ErrCampaignIDRequired
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.states[campaignID]
	if !ok {
		return campaign.State{}, storage.ErrNotFound
	}
	return state.Clone(), nil
}

// SaveState implements storage.CheckpointStore.
func (m *Checkpoints) SaveState(ctx context.Context, state campaign.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(state.ID) == "" {
		return ErrCampaignIDRequired
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if current, ok := m.states[state.ID]; ok && current.LastSeq >= state.LastSeq {
		return nil
	}
	m.states[state.ID] = state.Clone()
	return nil
}

// Scores stores ranking scores in memory.
type Scores struct {
	mu     sync.RWMutex
	scores map[string]float64
}

// NewScores creates an empty score store.
func NewScores() *Scores {
	return &Scores{scores: make(map[string]float64)}
}

// SetScore implements storage.ScoreStore.
func (m *Scores) SetScore(ctx context.Context, campaignID string, score float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	campaignID = strings.TrimSpace(campaignID)
	if campaignID == "" {
		return ErrCampaignIDRequired
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scores[campaignID] = score
	return nil
}

// Scores implements storage.ScoreStore.
func (m *Scores) Scores(ctx context.Context) (map[string]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]float64, len(m.scores))
	for id, score := range m.scores {
		out[id] = score
	}
	return out, nil
}
