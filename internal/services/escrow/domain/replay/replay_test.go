package replay_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/taliva/escrow/internal/services/escrow/domain/campaign/campaigntest"
	"github.com/taliva/escrow/internal/services/escrow/domain/event"
	"github.com/taliva/escrow/internal/services/escrow/domain/replay"
	"github.com/taliva/escrow/internal/services/escrow/storage/memory"
)

func seed(t *testing.T, store *memory.EventStore, events []event.Event) {
	t.Helper()
	for _, evt := range events {
		evt.Seq = 0
		if _, err := store.AppendEvent(context.Background(), evt); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
}

func history(t *testing.T) *campaigntest.Builder {
	return campaigntest.New(t, "camp-1").
		Launch("1000", campaigntest.Grades()...).
		Deposit("inv-1", "alice", "400").
		Deposit("inv-2", "bob", "600").
		Submit("D").
		Release("D").
		Submit("C").
		Reject("C", "video unclear")
}

func TestReplayFullFold(t *testing.T) {
	store := memory.NewEventStore(nil)
	seed(t, store, history(t).Events())

	result, err := replay.Replay(context.Background(), store, nil, "camp-1", replay.Options{PageSize: 2})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if result.Applied != 7 || result.FromCheckpoint != 0 {
		t.Fatalf("unexpected result applied=%d from=%d", result.Applied, result.FromCheckpoint)
	}
	want := history(t).State()
	if !reflect.DeepEqual(result.State, want) {
		t.Fatalf("replayed state differs from builder state")
	}
}

func TestReplayResumesFromCheckpoint(t *testing.T) {
	ctx := context.Background()
	store := memory.NewEventStore(nil)
	checkpoints := memory.NewCheckpoints()
	events := history(t).Events()
	seed(t, store, events[:3])

	first, err := replay.Replay(ctx, store, checkpoints, "camp-1", replay.Options{})
	if err != nil {
		t.Fatalf("first replay: %v", err)
	}
	if first.Applied != 3 {
		t.Fatalf("expected 3 applied, got %d", first.Applied)
	}

	seed(t, store, events[3:])
	second, err := replay.Replay(ctx, store, checkpoints, "camp-1", replay.Options{})
	if err != nil {
		t.Fatalf("second replay: %v", err)
	}
	if second.Applied != 4 || second.FromCheckpoint != 3 {
		t.Fatalf("expected incremental fold of 4 from 3, got %d from %d", second.Applied, second.FromCheckpoint)
	}

	full, err := replay.Replay(ctx, store, checkpoints, "camp-1", replay.Options{IgnoreCheckpoint: true})
	if err != nil {
		t.Fatalf("full replay: %v", err)
	}
	if !reflect.DeepEqual(full.State, second.State) {
		t.Fatal("expected incremental and full replay to agree")
	}
}

func TestReplayUntilSeq(t *testing.T) {
	store := memory.NewEventStore(nil)
	seed(t, store, history(t).Events())

	result, err := replay.Replay(context.Background(), store, nil, "camp-1", replay.Options{UntilSeq: 3, PageSize: 2})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if result.State.LastSeq != 3 || !result.State.Raised.Equal(history(t).State().Raised) {
		t.Fatalf("unexpected state at seq 3: seq=%d raised=%s", result.State.LastSeq, result.State.Raised)
	}
}

type regressingStore struct{}

func (regressingStore) ListCampaignEvents(context.Context, string, uint64, int) ([]event.Event, error) {
	return []event.Event{{Seq: 0, CampaignID: "camp-1"}}, nil
}

func TestReplayRejectsSequenceRegression(t *testing.T) {
	if _, err := replay.Replay(context.Background(), regressingStore{}, nil, "camp-1", replay.Options{}); err == nil {
		t.Fatal("expected sequence regression error")
	}
}

func TestReplayValidatesInput(t *testing.T) {
	if _, err := replay.Replay(context.Background(), nil, nil, "camp-1", replay.Options{}); !errors.Is(err, replay.ErrEventStoreRequired) {
		t.Fatalf("expected store required, got %v", err)
	}
	if _, err := replay.Replay(context.Background(), memory.NewEventStore(nil), nil, " ", replay.Options{}); !errors.Is(err, replay.ErrCampaignIDRequired) {
		t.Fatalf("expected campaign id required, got %v", err)
	}
}
