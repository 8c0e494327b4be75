package maintenance

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/taliva/escrow/internal/services/escrow/domain/campaign/campaigntest"
	"github.com/taliva/escrow/internal/services/escrow/engine"
	"github.com/taliva/escrow/internal/services/escrow/ledger"
	"github.com/taliva/escrow/internal/services/escrow/registry"
	"github.com/taliva/escrow/internal/services/escrow/storage/integrity"
	"github.com/taliva/escrow/internal/services/escrow/storage/memory"
)

type world struct {
	events      *memory.EventStore
	checkpoints *memory.Checkpoints
	ring        *integrity.Keyring
}

func keyring(t *testing.T, secret string) *integrity.Keyring {
	t.Helper()
	ring, err := integrity.NewKeyring(map[string][]byte{"v1": []byte(secret)}, "v1")
	if err != nil {
		t.Fatalf("keyring: %v", err)
	}
	return ring
}

// newWorld records two campaigns through the engine so the checkpoints
// match the log.
func newWorld(t *testing.T) *world {
	t.Helper()
	w := &world{ring: keyring(t, "secret")}
	w.events = memory.NewEventStore(w.ring)
	w.checkpoints = memory.NewCheckpoints()
	l := ledger.New(w.events, w.ring)
	reg := registry.New(l, w.checkpoints, zerolog.Nop())
	eng, err := engine.New(l, reg, engine.Options{
		Logger: zerolog.Nop(),
		Now:    func() time.Time { return campaigntest.Epoch },
	})
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	ctx := context.Background()
	for _, id := range []string{"camp-a", "camp-b"} {
		if _, err := eng.CreateCampaign(ctx, engine.CreateCampaignInput{
			CampaignID: id, AthleteName: "Athlete", Category: "running",
			Goal: decimal.NewFromInt(1000), Milestones: campaigntest.Grades(),
		}); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
		if _, err := eng.Deposit(ctx, engine.DepositInput{
			CampaignID: id, InvestorID: "alice", Amount: decimal.NewFromInt(300),
		}); err != nil {
			t.Fatalf("deposit %s: %v", id, err)
		}
	}
	return w
}

func (w *world) deps(ring *integrity.Keyring) deps {
	return deps{events: w.events, ledger: ledger.New(w.events, ring), checkpoints: w.checkpoints}
}

func decodeResults(t *testing.T, out *bytes.Buffer) []runResult {
	t.Helper()
	var results []runResult
	dec := json.NewDecoder(out)
	for dec.More() {
		var r runResult
		if err := dec.Decode(&r); err != nil {
			t.Fatalf("decode: %v", err)
		}
		results = append(results, r)
	}
	return results
}

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig(flag.NewFlagSet("maintenance", flag.ContinueOnError), []string{"-verify", "-campaign-id", "camp-a"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.EventsDBPath != "data/escrow-events.db" || cfg.Timeout != 10*time.Minute || cfg.WarningsCap != 25 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if !cfg.Verify || cfg.CampaignID != "camp-a" {
		t.Fatalf("expected flags applied, got %+v", cfg)
	}
}

func TestConfigValidate(t *testing.T) {
	base := Config{EventsDBPath: "events.db"}
	for name, cfg := range map[string]Config{
		"verify and compare": {EventsDBPath: "x", Verify: true, Compare: true},
		"dry run verify":     {EventsDBPath: "x", Verify: true, DryRun: true},
		"compare until":      {EventsDBPath: "x", Compare: true, UntilSeq: 4},
		"negative cap":       {EventsDBPath: "x", WarningsCap: -1},
		"no path":            {},
	} {
		if err := cfg.validate(); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	if err := base.validate(); err != nil {
		t.Fatalf("expected base config to validate: %v", err)
	}
}

func TestResolveCampaignIDs(t *testing.T) {
	ids, err := resolveCampaignIDs("", " a, b ,a,, c")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if strings.Join(ids, ",") != "a,b,c" {
		t.Fatalf("unexpected ids %v", ids)
	}
	if _, err := resolveCampaignIDs("a", "b"); err == nil {
		t.Fatal("expected both flags to fail")
	}
	if _, err := resolveCampaignIDs("", ",,"); err == nil {
		t.Fatal("expected empty list to fail")
	}
	if ids, err := resolveCampaignIDs("", ""); err != nil || ids != nil {
		t.Fatalf("expected no ids, got %v, %v", ids, err)
	}
}

func TestVerifyEveryCampaign(t *testing.T) {
	w := newWorld(t)
	var out bytes.Buffer
	if err := runWithDeps(context.Background(), Config{Verify: true, JSONOutput: true}, w.deps(w.ring), &out, nil); err != nil {
		t.Fatalf("verify: %v", err)
	}
	results := decodeResults(t, &out)
	if len(results) != 2 {
		t.Fatalf("expected two campaigns, got %d", len(results))
	}
	for _, r := range results {
		var report verifyReport
		if err := json.Unmarshal(r.Report, &report); err != nil {
			t.Fatalf("report: %v", err)
		}
		if r.Mode != "verify" || report.Events != 2 {
			t.Fatalf("unexpected result %+v", r)
		}
	}
}

func TestVerifyDetectsWrongKey(t *testing.T) {
	w := newWorld(t)
	var out bytes.Buffer
	err := runWithDeps(context.Background(), Config{Verify: true, CampaignID: "camp-a"}, w.deps(keyring(t, "other")), &out, nil)
	if err == nil {
		t.Fatal("expected signature failure")
	}
	if !strings.Contains(out.String(), "verify failed") {
		t.Fatalf("expected failure line, got %q", out.String())
	}
}

func TestCompareMatchesCheckpoints(t *testing.T) {
	w := newWorld(t)
	var out bytes.Buffer
	if err := runWithDeps(context.Background(), Config{Compare: true, CampaignID: "camp-b", JSONOutput: true}, w.deps(w.ring), &out, nil); err != nil {
		t.Fatalf("compare: %v\n%s", err, out.String())
	}
	results := decodeResults(t, &out)
	var report compareReport
	if err := json.Unmarshal(results[0].Report, &report); err != nil {
		t.Fatalf("report: %v", err)
	}
	if !report.Match || report.CheckpointSeq != report.LastSeq || report.TailApplied != 0 {
		t.Fatalf("expected checkpoint at tail, got %+v", report)
	}
}

func TestCompareReportsDrift(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	state, err := w.checkpoints.GetState(ctx, "camp-a")
	if err != nil {
		t.Fatalf("checkpoint: %v", err)
	}
	state.Raised = decimal.NewFromInt(999)
	state.LastSeq++
	if err := w.checkpoints.SaveState(ctx, state); err != nil {
		t.Fatalf("save: %v", err)
	}

	var out bytes.Buffer
	err = runWithDeps(ctx, Config{Compare: true, CampaignID: "camp-a"}, w.deps(w.ring), &out, nil)
	if err == nil {
		t.Fatal("expected drift to fail")
	}
	if !strings.Contains(out.String(), "mismatch: raised: 300 != 999") {
		t.Fatalf("expected raised mismatch, got %q", out.String())
	}
}

func TestReplaySavesCheckpointUnlessDryRun(t *testing.T) {
	w := newWorld(t)
	fresh := memory.NewCheckpoints()
	d := deps{events: w.events, ledger: ledger.New(w.events, w.ring), checkpoints: fresh}
	ctx := context.Background()

	if err := runWithDeps(ctx, Config{CampaignID: "camp-a", DryRun: true}, d, nil, nil); err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if _, err := fresh.GetState(ctx, "camp-a"); err == nil {
		t.Fatal("expected dry run to leave checkpoints empty")
	}

	var out bytes.Buffer
	if err := runWithDeps(ctx, Config{CampaignID: "camp-a", JSONOutput: true}, d, &out, nil); err != nil {
		t.Fatalf("replay: %v", err)
	}
	var report replayReport
	if err := json.Unmarshal(decodeResults(t, &out)[0].Report, &report); err != nil {
		t.Fatalf("report: %v", err)
	}
	if report.Applied != 2 || report.Raised != "300" || !report.Saved {
		t.Fatalf("unexpected replay report %+v", report)
	}
	state, err := fresh.GetState(ctx, "camp-a")
	if err != nil || state.LastSeq != report.LastSeq {
		t.Fatalf("expected saved checkpoint at %d, got %+v, %v", report.LastSeq, state, err)
	}
}

func TestCompareRequiresCheckpoints(t *testing.T) {
	w := newWorld(t)
	d := w.deps(w.ring)
	d.checkpoints = nil
	if err := runWithDeps(context.Background(), Config{Compare: true}, d, nil, nil); err == nil {
		t.Fatal("expected error without checkpoint store")
	}
}

func TestCapWarnings(t *testing.T) {
	got, total := capWarnings([]string{"a", "b", "c"}, 2)
	if len(got) != 2 || total != 3 {
		t.Fatalf("expected 2 of 3, got %v of %d", got, total)
	}
	got, total = capWarnings([]string{"a"}, 0)
	if len(got) != 1 || total != 1 {
		t.Fatalf("expected no cap, got %v of %d", got, total)
	}
}
