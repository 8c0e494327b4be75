// Package memory provides in-process implementations of the storage
// contracts for tests and ephemeral runs.
package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/taliva/escrow/internal/services/escrow/domain/event"
	"github.com/taliva/escrow/internal/services/escrow/storage"
	"github.com/taliva/escrow/internal/services/escrow/storage/eventfilter"
	"github.com/taliva/escrow/internal/services/escrow/storage/integrity"
)

const maxPageSize = 200

// EventStore keeps the ledger in a slice ordered by seq.
type EventStore struct {
	mu      sync.RWMutex
	keyring *integrity.Keyring
	events  []event.Event
	// byCampaign indexes positions in events per campaign.
	byCampaign map[string][]int
	order      []string
	failNext   error
}

// NewEventStore returns an empty store. A nil keyring stores unsigned events.
func NewEventStore(keyring *integrity.Keyring) *EventStore {
	return &EventStore{keyring: keyring, byCampaign: make(map[string][]int)}
}

// FailNextAppend makes the next AppendEvent return err without recording.
func (s *EventStore) FailNextAppend(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = err
}

// AppendEvent implements storage.EventStore.
func (s *EventStore) AppendEvent(ctx context.Context, evt event.Event) (event.Event, error) {
	if err := ctx.Err(); err != nil {
		return event.Event{}, err
	}
	evt, err := event.ValidateForAppend(evt)
	if err != nil {
		return event.Event{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failNext != nil {
		err := s.failNext
		s.failNext = nil
		return event.Event{}, err
	}

	evt.Seq = uint64(len(s.events)) + 1
	prev := ""
	positions := s.byCampaign[evt.CampaignID]
	if n := len(positions); n > 0 {
		prev = s.events[positions[n-1]].ChainHash
	}
	evt, err = integrity.Seal(evt, prev, s.keyring)
	if err != nil {
		return event.Event{}, err
	}
	evt.PayloadJSON = slices.Clone(evt.PayloadJSON)

	if len(positions) == 0 {
		s.order = append(s.order, evt.CampaignID)
	}
	s.byCampaign[evt.CampaignID] = append(positions, len(s.events))
	s.events = append(s.events, evt)
	return evt, nil
}

// ListCampaignEvents implements storage.EventStore.
func (s *EventStore) ListCampaignEvents(ctx context.Context, campaignID string, afterSeq uint64, limit int) ([]event.Event, error) {
	if err := checkRead(ctx, limit); err != nil {
		return nil, err
	}
	if strings.TrimSpace(campaignID) == "" {
		return nil, fmt.Errorf("campaign id is required")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []event.Event
	for _, pos := range s.byCampaign[campaignID] {
		evt := s.events[pos]
		if evt.Seq <= afterSeq {
			continue
		}
		out = append(out, evt)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// ListEvents implements storage.EventStore.
func (s *EventStore) ListEvents(ctx context.Context, afterSeq uint64, limit int) ([]event.Event, error) {
	if err := checkRead(ctx, limit); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if afterSeq >= uint64(len(s.events)) {
		return nil, nil
	}
	end := min(int(afterSeq)+limit, len(s.events))
	return slices.Clone(s.events[afterSeq:end]), nil
}

// ListEventsPage implements storage.EventStore.
func (s *EventStore) ListEventsPage(ctx context.Context, req storage.ListEventsPageRequest) (storage.ListEventsPageResult, error) {
	if err := ctx.Err(); err != nil {
		return storage.ListEventsPageResult{}, err
	}
	if strings.TrimSpace(req.CampaignID) == "" {
		return storage.ListEventsPageResult{}, fmt.Errorf("campaign id is required")
	}
	filter, err := eventfilter.Parse(req.Filter)
	if err != nil {
		return storage.ListEventsPageResult{}, err
	}
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	pageSize = min(pageSize, maxPageSize)

	s.mu.RLock()
	var matched []event.Event
	for _, pos := range s.byCampaign[req.CampaignID] {
		if evt := s.events[pos]; filter.Match(evt) {
			matched = append(matched, evt)
		}
	}
	s.mu.RUnlock()

	result := storage.ListEventsPageResult{TotalCount: len(matched)}
	if req.Descending {
		slices.Reverse(matched)
	}
	var page []event.Event
	for _, evt := range matched {
		if req.CursorSeq > 0 {
			if req.Descending && evt.Seq >= req.CursorSeq {
				continue
			}
			if !req.Descending && evt.Seq <= req.CursorSeq {
				continue
			}
		}
		if len(page) == pageSize {
			result.HasNextPage = true
			break
		}
		page = append(page, evt)
	}
	result.Events = page
	return result, nil
}

// LatestSeq implements storage.EventStore.
func (s *EventStore) LatestSeq(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.events)), nil
}

// CampaignIDs implements storage.EventStore.
func (s *EventStore) CampaignIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.order), nil
}

// Close implements storage.EventStore.
func (s *EventStore) Close() error { return nil }

func checkRead(ctx context.Context, limit int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if limit <= 0 {
		return fmt.Errorf("limit must be greater than zero")
	}
	return nil
}
