// Package maintenance verifies and rebuilds the escrow ledger offline.
package maintenance

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/taliva/escrow/internal/platform/config"
	"github.com/taliva/escrow/internal/services/escrow/domain/campaign"
	"github.com/taliva/escrow/internal/services/escrow/domain/replay"
	"github.com/taliva/escrow/internal/services/escrow/ledger"
	"github.com/taliva/escrow/internal/services/escrow/storage"
	storagebadger "github.com/taliva/escrow/internal/services/escrow/storage/badger"
	"github.com/taliva/escrow/internal/services/escrow/storage/integrity"
	storagesqlite "github.com/taliva/escrow/internal/services/escrow/storage/sqlite"
)

// Config holds maintenance command configuration.
type Config struct {
	CampaignID    string
	CampaignIDs   string
	EventsDBPath  string        `env:"ESCROW_EVENTS_DB_PATH" envDefault:"data/escrow-events.db"`
	CheckpointDir string        `env:"ESCROW_CHECKPOINT_DIR" envDefault:"data/checkpoints"`
	Timeout       time.Duration `env:"ESCROW_MAINTENANCE_TIMEOUT" envDefault:"10m"`
	HMACKeys      string        `env:"ESCROW_EVENT_HMAC_KEYS"`
	HMACKey       string        `env:"ESCROW_EVENT_HMAC_KEY"`
	HMACKeyID     string        `env:"ESCROW_EVENT_HMAC_KEY_ID"`
	UntilSeq      uint64
	Verify        bool
	Compare       bool
	DryRun        bool
	WarningsCap   int
	JSONOutput    bool
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Config{WarningsCap: 25}
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.CampaignID, "campaign-id", "", "campaign ID to process")
	fs.StringVar(&cfg.CampaignIDs, "campaign-ids", "", "comma-separated campaign IDs to process (default: every campaign in the log)")
	fs.StringVar(&cfg.EventsDBPath, "events-db-path", cfg.EventsDBPath, "path to the events sqlite database")
	fs.StringVar(&cfg.CheckpointDir, "checkpoint-dir", cfg.CheckpointDir, "badger checkpoint directory")
	fs.Uint64Var(&cfg.UntilSeq, "until-seq", 0, "replay up to this event sequence (0 = latest)")
	fs.BoolVar(&cfg.Verify, "verify", false, "verify event hashes, chain links and signatures")
	fs.BoolVar(&cfg.Compare, "compare", false, "compare a full replay against the checkpointed incremental state")
	fs.BoolVar(&cfg.DryRun, "dry-run", false, "replay without writing checkpoints")
	fs.IntVar(&cfg.WarningsCap, "warnings-cap", cfg.WarningsCap, "max warnings to print (0 = no limit)")
	fs.BoolVar(&cfg.JSONOutput, "json", false, "output JSON reports")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "overall timeout")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Verify && c.Compare {
		return errors.New("-verify cannot be combined with -compare")
	}
	if (c.Verify || c.Compare) && c.DryRun {
		return errors.New("-dry-run only applies to replay mode")
	}
	if c.Compare && c.UntilSeq > 0 {
		return errors.New("-compare does not support -until-seq; both sides must reach the tail")
	}
	if c.WarningsCap < 0 {
		return errors.New("-warnings-cap must be >= 0")
	}
	if strings.TrimSpace(c.EventsDBPath) == "" {
		return errors.New("-events-db-path is required")
	}
	return nil
}

func (c Config) keyring() (*integrity.Keyring, error) {
	if c.HMACKeys == "" && c.HMACKey == "" {
		return nil, nil
	}
	return integrity.ParseKeyring(c.HMACKeys, c.HMACKey, c.HMACKeyID)
}

// Run executes the maintenance command.
func Run(ctx context.Context, cfg Config, out io.Writer, errOut io.Writer) error {
	if err := cfg.validate(); err != nil {
		return err
	}
	ring, err := cfg.keyring()
	if err != nil {
		return err
	}
	if _, err := resolveCampaignIDs(cfg.CampaignID, cfg.CampaignIDs); err != nil {
		return err
	}

	events, err := storagesqlite.Open(ctx, cfg.EventsDBPath, ring)
	if err != nil {
		return fmt.Errorf("open event log: %w", err)
	}
	deps := deps{events: events, ledger: ledger.New(events, ring)}
	defer func() {
		if err := events.Close(); err != nil {
			fmt.Fprintf(errOut, "Error: close event log: %v\n", err)
		}
	}()

	if cfg.CheckpointDir != "" && !cfg.Verify {
		side, err := storagebadger.Open(storagebadger.Config{Dir: cfg.CheckpointDir}, zerolog.Nop())
		if err != nil {
			return fmt.Errorf("open checkpoint store: %w", err)
		}
		deps.checkpoints = side
		defer func() {
			if err := side.Close(); err != nil {
				fmt.Fprintf(errOut, "Error: close checkpoint store: %v\n", err)
			}
		}()
	}
	return runWithDeps(ctx, cfg, deps, out, errOut)
}

type deps struct {
	events      storage.EventStore
	ledger      *ledger.Ledger
	checkpoints storage.CheckpointStore
}

// runWithDeps runs the selected mode for every campaign and prints one
// result per campaign.
func runWithDeps(ctx context.Context, cfg Config, d deps, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	if cfg.Compare && d.checkpoints == nil {
		return errors.New("-compare requires a checkpoint store")
	}

	ids, err := resolveCampaignIDs(cfg.CampaignID, cfg.CampaignIDs)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		ids, err = d.events.CampaignIDs(ctx)
		if err != nil {
			return fmt.Errorf("list campaigns: %w", err)
		}
	}

	failed := false
	for _, id := range ids {
		result := runCampaign(ctx, cfg, d, id)
		if cfg.JSONOutput {
			outputJSON(out, errOut, result)
		} else {
			prefix := ""
			if len(ids) > 1 {
				prefix = fmt.Sprintf("[%s] ", id)
			}
			printResult(out, result, prefix)
		}
		if result.ExitCode != 0 {
			failed = true
		}
	}
	if failed {
		return errors.New("maintenance failed")
	}
	return nil
}

type verifyReport struct {
	Events int `json:"events"`
}

type compareReport struct {
	LastSeq       uint64 `json:"last_seq"`
	CheckpointSeq uint64 `json:"checkpoint_seq"`
	TailApplied   int    `json:"tail_applied"`
	Match         bool   `json:"match"`
}

type replayReport struct {
	LastSeq uint64 `json:"last_seq"`
	Applied int    `json:"applied"`
	Raised  string `json:"raised"`
	Escrow  string `json:"escrow"`
	Status  string `json:"status"`
	Saved   bool   `json:"checkpoint_saved"`
}

type runResult struct {
	CampaignID    string          `json:"campaign_id"`
	Mode          string          `json:"mode"`
	Report        json.RawMessage `json:"report,omitempty"`
	Warnings      []string        `json:"warnings,omitempty"`
	WarningsTotal int             `json:"warnings_total,omitempty"`
	Error         string          `json:"error,omitempty"`
	ExitCode      int             `json:"-"`
}

func (r *runResult) fail(format string, args ...any) runResult {
	r.Error = fmt.Sprintf(format, args...)
	r.ExitCode = 1
	return *r
}

func (r *runResult) setReport(report any) {
	payload, err := json.Marshal(report)
	if err != nil {
		r.Error = fmt.Sprintf("encode report: %v", err)
		r.ExitCode = 1
		return
	}
	r.Report = payload
}

func runCampaign(ctx context.Context, cfg Config, d deps, campaignID string) runResult {
	result := runResult{CampaignID: campaignID}
	switch {
	case cfg.Verify:
		result.Mode = "verify"
		n, err := d.ledger.VerifyChain(ctx, campaignID)
		if err != nil {
			return result.fail("verify chain after %d events: %v", n, err)
		}
		result.setReport(verifyReport{Events: n})
		return result

	case cfg.Compare:
		result.Mode = "compare"
		full, err := replay.Replay(ctx, d.events, nil, campaignID, replay.Options{})
		if err != nil {
			return result.fail("full replay: %v", err)
		}
		incremental, err := replay.Replay(ctx, d.events, readOnly{d.checkpoints}, campaignID, replay.Options{})
		if err != nil {
			return result.fail("incremental replay: %v", err)
		}
		diff := campaign.Diff(full.State, incremental.State)
		result.Warnings, result.WarningsTotal = capWarnings(diff, cfg.WarningsCap)
		result.setReport(compareReport{
			LastSeq:       full.State.LastSeq,
			CheckpointSeq: incremental.FromCheckpoint,
			TailApplied:   incremental.Applied,
			Match:         len(diff) == 0,
		})
		if len(diff) > 0 {
			result.ExitCode = 1
		}
		return result

	default:
		result.Mode = "replay"
		res, err := replay.Replay(ctx, d.events, nil, campaignID, replay.Options{UntilSeq: cfg.UntilSeq})
		if err != nil {
			return result.fail("replay: %v", err)
		}
		saved := false
		// A partial replay must not overwrite a newer checkpoint.
		if !cfg.DryRun && cfg.UntilSeq == 0 && d.checkpoints != nil && res.State.Created {
			if err := d.checkpoints.SaveState(ctx, res.State); err != nil {
				return result.fail("save checkpoint: %v", err)
			}
			saved = true
		}
		result.setReport(replayReport{
			LastSeq: res.State.LastSeq,
			Applied: res.Applied,
			Raised:  res.State.Raised.String(),
			Escrow:  res.State.Escrow().String(),
			Status:  string(res.State.Status),
			Saved:   saved,
		})
		return result
	}
}

// readOnly hides SaveState so an incremental replay leaves the stored
// checkpoint untouched.
type readOnly struct {
	storage.CheckpointStore
}

func (readOnly) SaveState(context.Context, campaign.State) error { return nil }

func resolveCampaignIDs(single, list string) ([]string, error) {
	single = strings.TrimSpace(single)
	list = strings.TrimSpace(list)
	if single != "" && list != "" {
		return nil, errors.New("use -campaign-id or -campaign-ids, not both")
	}
	if single != "" {
		return []string{single}, nil
	}
	if list == "" {
		return nil, nil
	}
	seen := make(map[string]struct{})
	var ids []string
	for _, part := range strings.Split(list, ",") {
		id := strings.TrimSpace(part)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, errors.New("-campaign-ids did not contain any campaign")
	}
	return ids, nil
}

func capWarnings(warnings []string, limit int) ([]string, int) {
	total := len(warnings)
	if limit > 0 && total > limit {
		return warnings[:limit], total
	}
	return warnings, total
}

func outputJSON(out io.Writer, errOut io.Writer, result runResult) {
	encoder := json.NewEncoder(out)
	if err := encoder.Encode(result); err != nil {
		fmt.Fprintf(errOut, "Error: encode result: %v\n", err)
	}
}

func printResult(out io.Writer, result runResult, prefix string) {
	if result.Error != "" {
		fmt.Fprintf(out, "%s%s failed: %s\n", prefix, result.Mode, result.Error)
		return
	}
	fmt.Fprintf(out, "%s%s: %s\n", prefix, result.Mode, result.Report)
	for _, warning := range result.Warnings {
		fmt.Fprintf(out, "%s  mismatch: %s\n", prefix, warning)
	}
	if result.WarningsTotal > len(result.Warnings) {
		fmt.Fprintf(out, "%s  ... %d more\n", prefix, result.WarningsTotal-len(result.Warnings))
	}
}
