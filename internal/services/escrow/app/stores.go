package server

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/taliva/escrow/internal/services/escrow/storage"
	storagebadger "github.com/taliva/escrow/internal/services/escrow/storage/badger"
	"github.com/taliva/escrow/internal/services/escrow/storage/memory"
	storagesqlite "github.com/taliva/escrow/internal/services/escrow/storage/sqlite"
)

type stores struct {
	events      *storagesqlite.Store
	side        *storagebadger.Store
	checkpoints storage.CheckpointStore
	scores      storage.ScoreStore
}

func openStores(ctx context.Context, cfg Config) (*stores, error) {
	events, err := storagesqlite.Open(ctx, cfg.EventsDBPath, cfg.Keyring)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	if cfg.CheckpointDir == "" {
		return &stores{events: events, checkpoints: memory.NewCheckpoints(), scores: memory.NewScores()}, nil
	}
	side, err := storagebadger.Open(storagebadger.Config{Dir: cfg.CheckpointDir}, cfg.Logger)
	if err != nil {
		_ = events.Close()
		return nil, fmt.Errorf("open checkpoint store: %w", err)
	}
	return &stores{events: events, side: side, checkpoints: side, scores: side}, nil
}

func (s *stores) close(logger zerolog.Logger) {
	if err := s.side.Close(); err != nil {
		logger.Warn().Err(err).Msg("close checkpoint store")
	}
	if err := s.events.Close(); err != nil {
		logger.Warn().Err(err).Msg("close event log")
	}
}
