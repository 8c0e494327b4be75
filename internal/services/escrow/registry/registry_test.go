package registry

import (
	"context"
	"reflect"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	apperrors "github.com/taliva/escrow/internal/platform/errors"
	"github.com/taliva/escrow/internal/services/escrow/domain/campaign"
	"github.com/taliva/escrow/internal/services/escrow/domain/campaign/campaigntest"
	"github.com/taliva/escrow/internal/services/escrow/domain/event"
	"github.com/taliva/escrow/internal/services/escrow/ledger"
	"github.com/taliva/escrow/internal/services/escrow/storage/memory"
)

type fixture struct {
	ledger      *ledger.Ledger
	checkpoints *memory.Checkpoints
	registry    *Registry
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	l := ledger.New(memory.NewEventStore(nil), nil)
	checkpoints := memory.NewCheckpoints()
	return fixture{ledger: l, checkpoints: checkpoints, registry: New(l, checkpoints, zerolog.Nop())}
}

// record appends events to the ledger without touching the registry.
func (f fixture) record(t *testing.T, events []event.Event) []event.Event {
	t.Helper()
	var stored []event.Event
	for _, evt := range events {
		evt.Seq = 0
		got, err := f.ledger.Append(context.Background(), evt)
		if err != nil {
			t.Fatalf("append %s: %v", evt.Type, err)
		}
		stored = append(stored, got)
	}
	return stored
}

func TestApplyFoldsAndCheckpoints(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	stored := f.record(t, campaigntest.New(t, "camp-1").
		Launch("1000", campaigntest.Grades()...).
		Deposit("inv-1", "alice", "400").
		Events())

	for _, evt := range stored {
		if _, err := f.registry.Apply(ctx, evt); err != nil {
			t.Fatalf("apply: %v", err)
		}
	}
	// Re-applying is a no-op.
	state, err := f.registry.Apply(ctx, stored[1])
	if err != nil {
		t.Fatalf("reapply: %v", err)
	}
	if state.Raised.String() != "400" {
		t.Fatalf("expected raised 400, got %s", state.Raised)
	}

	checkpoint, err := f.checkpoints.GetState(ctx, "camp-1")
	if err != nil {
		t.Fatalf("checkpoint: %v", err)
	}
	if checkpoint.LastSeq != stored[1].Seq {
		t.Fatalf("expected checkpoint at seq %d, got %d", stored[1].Seq, checkpoint.LastSeq)
	}
	if got := f.registry.InvestorCampaigns("alice"); len(got) != 1 || got[0] != "camp-1" {
		t.Fatalf("expected investor index, got %v", got)
	}
}

func TestSnapshotUnknownCampaign(t *testing.T) {
	f := newFixture(t)
	_, err := f.registry.Snapshot("nope")
	if !apperrors.IsCode(err, apperrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if f.registry.State("nope").Created {
		t.Fatal("expected zero state")
	}
	if _, err := f.registry.Refresh(context.Background(), "nope"); !apperrors.IsCode(err, apperrors.CodeNotFound) {
		t.Fatalf("expected refresh of unknown campaign to fail with not found, got %v", err)
	}
}

func TestApplyRejectsEventBeforeCreation(t *testing.T) {
	f := newFixture(t)
	deposit := campaigntest.New(t, "camp-1").Launch("10").Deposit("inv-1", "a", "1").Events()[1]
	if _, err := f.registry.Apply(context.Background(), deposit); err == nil {
		t.Fatal("expected fold error")
	}
	if f.registry.Len() != 0 {
		t.Fatal("expected failed apply to leave no campaign behind")
	}
}

func TestIncrementalMatchesRebuild(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.record(t, campaigntest.New(t, "camp-1").
		Launch("1000", campaigntest.Grades()...).
		Deposit("inv-1", "alice", "600").
		Events())
	f.record(t, campaigntest.New(t, "camp-2").Launch("300").Deposit("inv-9", "bob", "300").Events())
	rest := f.record(t, campaigntest.New(t, "camp-1").
		Launch("1000", campaigntest.Grades()...).
		Deposit("inv-1", "alice", "600").
		Deposit("inv-2", "bob", "400").
		Submit("D").
		Release("D").
		Submit("C").
		Reject("C", "footage missing").
		Refund("inv-1", "chargeback").
		Events()[2:])

	for _, evt := range first {
		if _, err := f.registry.Apply(ctx, evt); err != nil {
			t.Fatalf("apply: %v", err)
		}
	}
	if _, err := f.registry.Refresh(ctx, "camp-2"); err != nil {
		t.Fatalf("refresh camp-2: %v", err)
	}
	if _, err := f.registry.Apply(ctx, rest[0]); err != nil {
		t.Fatalf("apply: %v", err)
	}
	incremental, err := f.registry.Refresh(ctx, "camp-1")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}

	rebuilt := New(f.ledger, nil, zerolog.Nop())
	applied, err := rebuilt.Rebuild(ctx)
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if applied != len(first)+2+len(rest) {
		t.Fatalf("expected every event folded, got %d", applied)
	}
	full, err := rebuilt.Snapshot("camp-1")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if !reflect.DeepEqual(incremental, full) {
		t.Fatalf("incremental and full replay disagree:\n%+v\n%+v", incremental, full)
	}
	if got := rebuilt.InvestorCampaigns("bob"); len(got) != 2 {
		t.Fatalf("expected bob in two campaigns, got %v", got)
	}
	if full.Escrow().String() != "300" {
		t.Fatalf("expected escrow 300 after release of 100 and refund of 600, got %s", full.Escrow())
	}
}

func TestLoadResumesFromCheckpoints(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	events := campaigntest.New(t, "camp-1").
		Launch("100").
		Deposit("inv-1", "alice", "40").
		Deposit("inv-2", "bob", "60").
		Events()
	stored := f.record(t, events[:2])
	for _, evt := range stored {
		if _, err := f.registry.Apply(ctx, evt); err != nil {
			t.Fatalf("apply: %v", err)
		}
	}
	f.record(t, events[2:])

	restarted := New(f.ledger, f.checkpoints, zerolog.Nop())
	applied, err := restarted.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if applied != 1 {
		t.Fatalf("expected only the event after the checkpoint folded, got %d", applied)
	}
	state, err := restarted.Snapshot("camp-1")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if state.Status != campaign.StatusFullyFunded {
		t.Fatalf("expected fully funded, got %s", state.Status)
	}
	if got := restarted.InvestorCampaigns("bob"); len(got) != 1 {
		t.Fatalf("expected bob indexed after load, got %v", got)
	}
}

func TestConcurrentReadsDuringApply(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := campaigntest.New(t, "camp-1").Launch("100000")
	for i := range 200 {
		b.Deposit("inv-"+string(rune('a'+i%26))+string(rune('a'+i/26)), "alice", "1")
	}
	stored := f.record(t, b.Events())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for _, evt := range stored {
			if _, err := f.registry.Apply(ctx, evt); err != nil {
				t.Errorf("apply: %v", err)
				return
			}
		}
	}()
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 500 {
				state := f.registry.State("camp-1")
				if state.Created && state.Raised.GreaterThan(state.Goal) {
					t.Errorf("raised %s exceeds goal", state.Raised)
					return
				}
				_ = f.registry.Snapshots()
			}
		}()
	}
	wg.Wait()

	if got := f.registry.State("camp-1").Raised.String(); got != "200" {
		t.Fatalf("expected raised 200, got %s", got)
	}
}
