// Package engine executes write commands against campaigns.
//
// Every command runs the same pipeline inside its campaign's exclusive
// section: read the projected state, decide, append the resulting event to
// the ledger, apply the stored event to the projection. A rejected or failed
// command appends nothing and leaves the projection untouched. Commands for
// different campaigns run in parallel.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/taliva/escrow/internal/platform/errors"
	"github.com/taliva/escrow/internal/platform/requestctx"
	"github.com/taliva/escrow/internal/platform/telemetry/metrics"
	"github.com/taliva/escrow/internal/services/escrow/domain/campaign"
	"github.com/taliva/escrow/internal/services/escrow/domain/command"
	"github.com/taliva/escrow/internal/services/escrow/domain/event"
	"github.com/taliva/escrow/internal/services/escrow/ledger"
	"github.com/taliva/escrow/internal/services/escrow/registry"
)

var (
	// ErrLedgerRequired indicates a missing ledger.
	ErrLedgerRequired = errors.New("ledger is required")
	// ErrRegistryRequired indicates a missing registry.
	ErrRegistryRequired = errors.New("registry is required")
)

// Decider is a pure decision function over one campaign's state.
type Decider func(state campaign.State, cmd command.Command, now func() time.Time) command.Decision

// Policy holds the funding parameters captured into each new campaign.
type Policy struct {
	OverfundCapRatio decimal.Decimal
	Currency         string
	AmountScale      int32
}

// DefaultPolicy is a zero overfund cap in USDC at six decimals.
func DefaultPolicy() Policy {
	return Policy{Currency: campaign.DefaultCurrency, AmountScale: campaign.DefaultAmountScale}
}

// Options configures an Engine.
type Options struct {
	Policy  Policy
	Logger  zerolog.Logger
	Metrics *metrics.Metrics
	// Now overrides the clock used for event timestamps.
	Now func() time.Time
	// NewID overrides investment and campaign id generation.
	NewID func() (string, error)
}

// Engine is the only writer of the ledger.
type Engine struct {
	ledger   *ledger.Ledger
	registry *registry.Registry
	policy   Policy
	logger   zerolog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
	now      func() time.Time
	newID    func() (string, error)
	locks    *keyedLocks
}

// New builds an engine over l and reg.
func New(l *ledger.Ledger, reg *registry.Registry, opts Options) (*Engine, error) {
	if l == nil {
		return nil, ErrLedgerRequired
	}
	if reg == nil {
		return nil, ErrRegistryRequired
	}
	policy := opts.Policy
	if policy.Currency == "" {
		policy.Currency = campaign.DefaultCurrency
	}
	if policy.AmountScale <= 0 {
		policy.AmountScale = campaign.DefaultAmountScale
	}
	if policy.OverfundCapRatio.IsNegative() {
		return nil, fmt.Errorf("overfund cap ratio must not be negative, got %s", policy.OverfundCapRatio)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	newID := opts.NewID
	if newID == nil {
		newID = defaultNewID
	}
	return &Engine{
		ledger:   l,
		registry: reg,
		policy:   policy,
		logger:   opts.Logger.With().Str("component", "engine").Logger(),
		metrics:  opts.Metrics,
		tracer:   otel.Tracer("github.com/taliva/escrow/internal/services/escrow/engine"),
		now:      now,
		newID:    newID,
		locks:    newKeyedLocks(),
	}, nil
}

// Policy returns the engine's funding policy.
func (e *Engine) Policy() Policy { return e.policy }

// Result is the outcome of one accepted command.
type Result struct {
	Event event.Event
	State campaign.State
}

// Execute runs cmd through decide inside the campaign's exclusive section.
func (e *Engine) Execute(ctx context.Context, operation string, cmd command.Command, decide Decider) (result Result, err error) {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "escrow."+operation, trace.WithAttributes(
		attribute.String("escrow.campaign_id", cmd.CampaignID),
		attribute.String("escrow.command", string(cmd.Type)),
	))
	defer func() {
		code := "OK"
		if err != nil {
			code = string(apperrors.GetCode(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, code)
		} else {
			span.SetAttributes(attribute.Int64("escrow.seq", int64(result.Event.Seq)))
		}
		span.End()
		e.metrics.ObserveCommand(operation, code, time.Since(start))
	}()

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	cmd = withRequestContext(ctx, cmd)

	unlock := e.locks.lock(cmd.CampaignID)
	defer unlock()

	state := e.registry.State(cmd.CampaignID)
	decision := decide(state, cmd, e.now)
	if decision.Rejected() {
		e.logger.Debug().
			Str("operation", operation).
			Str("campaign_id", cmd.CampaignID).
			Str("code", string(decision.Rejections[0].Code)).
			Msg("command rejected")
		return Result{}, decision.Err()
	}
	if len(decision.Events) != 1 {
		return Result{}, fmt.Errorf("%s produced %d events, want 1", cmd.Type, len(decision.Events))
	}

	appendStart := time.Now()
	stored, err := e.ledger.Append(ctx, decision.Events[0])
	appendCode := ""
	if err != nil {
		appendCode = string(apperrors.GetCode(err))
	}
	e.metrics.ObserveAppend(time.Since(appendStart), appendCode)
	if err != nil {
		e.logger.Error().Err(err).
			Str("operation", operation).
			Str("campaign_id", cmd.CampaignID).
			Msg("ledger append failed")
		return Result{}, err
	}

	next, err := e.registry.Apply(ctx, stored)
	if err != nil {
		// The event is durable; the projection will pick it up on refresh.
		e.logger.Error().Err(err).Uint64("seq", stored.Seq).Msg("apply stored event")
		if next, err = e.registry.Refresh(ctx, cmd.CampaignID); err != nil {
			return Result{}, apperrors.Wrap(apperrors.CodeStorageFailure, "refresh projection", err)
		}
	}

	e.logger.Debug().
		Str("operation", operation).
		Str("campaign_id", cmd.CampaignID).
		Uint64("seq", stored.Seq).
		Str("event_type", string(stored.Type)).
		Str("request_id", stored.RequestID).
		Msg("command accepted")
	return Result{Event: stored, State: next}, nil
}

func withRequestContext(ctx context.Context, cmd command.Command) command.Command {
	if cmd.RequestID == "" {
		cmd = cmd.WithRequestID(requestctx.RequestIDFromContext(ctx))
	}
	if caller, ok := requestctx.CallerFromContext(ctx); ok && cmd.ActorID == "" {
		actorType := event.ActorType(caller.Type)
		if actorType == "" {
			actorType = cmd.ActorType
		}
		cmd = cmd.WithActor(actorType, caller.ID)
	}
	return cmd
}
