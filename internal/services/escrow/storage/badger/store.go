// Package badger keeps the rebuildable side stores (campaign checkpoints and
// ranking scores) in an embedded BadgerDB.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"

	"github.com/taliva/escrow/internal/services/escrow/domain/campaign"
	"github.com/taliva/escrow/internal/services/escrow/storage"
)

const (
	checkpointPrefix = "checkpoint/"
	scorePrefix      = "score/"
)

// Config selects where the store lives.
type Config struct {
	// Dir holds the database files. Ignored when InMemory is set.
	Dir string
	// InMemory keeps everything in RAM.
	InMemory bool
	// SyncWrites fsyncs every commit.
	SyncWrites bool
}

// Store implements storage.CheckpointStore and storage.ScoreStore.
type Store struct {
	db *badger.DB
}

// Open opens the database described by cfg.
func Open(cfg Config, logger zerolog.Logger) (*Store, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if strings.TrimSpace(cfg.Dir) == "" {
			return nil, errors.New("checkpoint dir is required")
		}
		if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
			return nil, fmt.Errorf("create checkpoint dir %s: %w", cfg.Dir, err)
		}
		opts = badger.DefaultOptions(cfg.Dir)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(badgerLogger{logger: logger.With().Str("component", "badger").Logger()})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database. Nil-safe.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

type checkpointRecord struct {
	LastSeq uint64         `json:"last_seq"`
	State   campaign.State `json:"state"`
}

// GetState implements storage.CheckpointStore.
func (s *Store) GetState(ctx context.Context, campaignID string) (campaign.State, error) {
	if err := ctx.Err(); err != nil {
		return campaign.State{}, err
	}
	campaignID = strings.TrimSpace(campaignID)
	if campaignID == "" {
		return campaign.State{}, errors.New("campaign id is required")
	}

	var record checkpointRecord
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(checkpointPrefix + campaignID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &record)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return campaign.State{}, storage.ErrNotFound
	}
	if err != nil {
		return campaign.State{}, fmt.Errorf("get checkpoint %s: %w", campaignID, err)
	}
	if record.State.Investments == nil {
		record.State.Investments = map[string]campaign.Investment{}
	}
	return record.State, nil
}

// SaveState implements storage.CheckpointStore.
func (s *Store) SaveState(ctx context.Context, state campaign.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(state.ID) == "" {
		return errors.New("campaign id is required")
	}
	data, err := json.Marshal(checkpointRecord{LastSeq: state.LastSeq, State: state})
	if err != nil {
		return fmt.Errorf("encode checkpoint %s: %w", state.ID, err)
	}
	key := []byte(checkpointPrefix + state.ID)

	err = s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
		case err != nil:
			return err
		default:
			var current struct {
				LastSeq uint64 `json:"last_seq"`
			}
			if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &current) }); err != nil {
				return err
			}
			if current.LastSeq >= state.LastSeq {
				return nil
			}
		}
		return txn.Set(key, data)
	})
	if err != nil {
		return fmt.Errorf("save checkpoint %s: %w", state.ID, err)
	}
	return nil
}

// SetScore implements storage.ScoreStore.
func (s *Store) SetScore(ctx context.Context, campaignID string, score float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	campaignID = strings.TrimSpace(campaignID)
	if campaignID == "" {
		return errors.New("campaign id is required")
	}
	value := strconv.FormatFloat(score, 'g', -1, 64)
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(scorePrefix+campaignID), []byte(value))
	}); err != nil {
		return fmt.Errorf("set score %s: %w", campaignID, err)
	}
	return nil
}

// Scores implements storage.ScoreStore.
func (s *Store) Scores(ctx context.Context) (map[string]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	scores := make(map[string]float64)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(scorePrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			id := strings.TrimPrefix(string(item.Key()), scorePrefix)
			if err := item.Value(func(val []byte) error {
				score, err := strconv.ParseFloat(string(val), 64)
				if err != nil {
					return fmt.Errorf("parse score %s: %w", id, err)
				}
				scores[id] = score
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list scores: %w", err)
	}
	return scores, nil
}

// badgerLogger routes badger's internal logging to zerolog. Info chatter is
// demoted to debug.
type badgerLogger struct {
	logger zerolog.Logger
}

func (l badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error().Msgf(strings.TrimSpace(format), args...)
}

func (l badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn().Msgf(strings.TrimSpace(format), args...)
}

func (l badgerLogger) Infof(format string, args ...any) {
	l.logger.Debug().Msgf(strings.TrimSpace(format), args...)
}

func (l badgerLogger) Debugf(format string, args ...any) {
	l.logger.Trace().Msgf(strings.TrimSpace(format), args...)
}
