package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/taliva/escrow/internal/services/escrow/domain/event"
	"github.com/taliva/escrow/internal/services/escrow/storage"
	"github.com/taliva/escrow/internal/services/escrow/storage/eventfilter"
	"github.com/taliva/escrow/internal/services/escrow/storage/integrity"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const eventColumns = `seq, campaign_id, event_type, ts_ms, actor_type, actor_id, request_id,
	entity_type, entity_id, payload_json, event_hash, prev_chain_hash, chain_hash,
	signature_key_id, signature`

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// AppendEvent assigns the next global seq, links the event to its campaign's
// chain, signs it and commits.
func (s *Store) AppendEvent(ctx context.Context, evt event.Event) (event.Event, error) {
	if err := ctx.Err(); err != nil {
		return event.Event{}, err
	}
	if s == nil || s.sqlDB == nil {
		return event.Event{}, fmt.Errorf("storage is not configured")
	}
	evt, err := event.ValidateForAppend(evt)
	if err != nil {
		return event.Event{}, err
	}

	s.appendMu.Lock()
	defer s.appendMu.Unlock()

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return event.Event{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var lastSeq int64
	if err := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(seq), 0) FROM events").Scan(&lastSeq); err != nil {
		return event.Event{}, fmt.Errorf("read last seq: %w", err)
	}
	evt.Seq = uint64(lastSeq) + 1

	prevChainHash := ""
	err = tx.QueryRowContext(ctx,
		"SELECT chain_hash FROM events WHERE campaign_id = ? ORDER BY seq DESC LIMIT 1",
		evt.CampaignID,
	).Scan(&prevChainHash)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return event.Event{}, fmt.Errorf("load previous event: %w", err)
	}

	evt, err = integrity.Seal(evt, prevChainHash, s.keyring)
	if err != nil {
		return event.Event{}, err
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO events ("+eventColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		int64(evt.Seq),
		evt.CampaignID,
		string(evt.Type),
		toMillis(evt.Timestamp),
		string(evt.ActorType),
		evt.ActorID,
		evt.RequestID,
		evt.EntityType,
		evt.EntityID,
		evt.PayloadJSON,
		evt.Hash,
		evt.PrevHash,
		evt.ChainHash,
		evt.SignatureKeyID,
		evt.Signature,
	); err != nil {
		if isConstraintError(err) {
			return event.Event{}, fmt.Errorf("%w: append event seq=%d: %v", storage.ErrConflict, evt.Seq, err)
		}
		return event.Event{}, fmt.Errorf("append event: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return event.Event{}, fmt.Errorf("commit: %w", err)
	}
	return evt, nil
}

// ListCampaignEvents returns one campaign's events after afterSeq.
func (s *Store) ListCampaignEvents(ctx context.Context, campaignID string, afterSeq uint64, limit int) ([]event.Event, error) {
	if err := s.checkRead(ctx, limit); err != nil {
		return nil, err
	}
	if strings.TrimSpace(campaignID) == "" {
		return nil, fmt.Errorf("campaign id is required")
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		"SELECT "+eventColumns+" FROM events WHERE campaign_id = ? AND seq > ? ORDER BY seq ASC LIMIT ?",
		campaignID, int64(afterSeq), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list campaign events: %w", err)
	}
	return scanEvents(rows)
}

// ListEvents returns events of all campaigns after afterSeq.
func (s *Store) ListEvents(ctx context.Context, afterSeq uint64, limit int) ([]event.Event, error) {
	if err := s.checkRead(ctx, limit); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		"SELECT "+eventColumns+" FROM events WHERE seq > ? ORDER BY seq ASC LIMIT ?",
		int64(afterSeq), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return scanEvents(rows)
}

// ListEventsPage returns a filtered page of one campaign's events.
func (s *Store) ListEventsPage(ctx context.Context, req storage.ListEventsPageRequest) (storage.ListEventsPageResult, error) {
	if err := ctx.Err(); err != nil {
		return storage.ListEventsPageResult{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.ListEventsPageResult{}, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(req.CampaignID) == "" {
		return storage.ListEventsPageResult{}, fmt.Errorf("campaign id is required")
	}
	filter, err := eventfilter.Parse(req.Filter)
	if err != nil {
		return storage.ListEventsPageResult{}, err
	}
	plan := buildListEventsPagePlan(req, filter)

	var total int
	if err := s.sqlDB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM events WHERE "+plan.countWhere, plan.countParams...,
	).Scan(&total); err != nil {
		return storage.ListEventsPageResult{}, fmt.Errorf("count events: %w", err)
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		"SELECT "+eventColumns+" FROM events WHERE "+plan.where+" "+plan.order+" "+plan.limit,
		plan.params...,
	)
	if err != nil {
		return storage.ListEventsPageResult{}, fmt.Errorf("list events page: %w", err)
	}
	events, err := scanEvents(rows)
	if err != nil {
		return storage.ListEventsPageResult{}, err
	}

	result := storage.ListEventsPageResult{TotalCount: total}
	if len(events) > plan.pageSize {
		events = events[:plan.pageSize]
		result.HasNextPage = true
	}
	result.Events = events
	return result, nil
}

type listEventsPagePlan struct {
	where       string
	params      []any
	order       string
	limit       string
	countWhere  string
	countParams []any
	pageSize    int
}

func buildListEventsPagePlan(req storage.ListEventsPageRequest, filter eventfilter.Filter) listEventsPagePlan {
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	countWhere := "campaign_id = ?"
	countParams := []any{req.CampaignID}
	if !filter.IsZero() {
		countWhere += " AND " + filter.Clause()
		countParams = append(countParams, filter.Params()...)
	}

	where := "campaign_id = ?"
	params := []any{req.CampaignID}
	if req.CursorSeq > 0 {
		if req.Descending {
			where += " AND seq < ?"
		} else {
			where += " AND seq > ?"
		}
		params = append(params, int64(req.CursorSeq))
	}
	if !filter.IsZero() {
		where += " AND " + filter.Clause()
		params = append(params, filter.Params()...)
	}

	order := "ORDER BY seq ASC"
	if req.Descending {
		order = "ORDER BY seq DESC"
	}
	return listEventsPagePlan{
		where:       where,
		params:      params,
		order:       order,
		limit:       fmt.Sprintf("LIMIT %d", pageSize+1),
		countWhere:  countWhere,
		countParams: countParams,
		pageSize:    pageSize,
	}
}

// LatestSeq returns the highest seq in the log.
func (s *Store) LatestSeq(ctx context.Context) (uint64, error) {
	if err := s.checkRead(ctx, 1); err != nil {
		return 0, err
	}
	var seq int64
	if err := s.sqlDB.QueryRowContext(ctx, "SELECT COALESCE(MAX(seq), 0) FROM events").Scan(&seq); err != nil {
		return 0, fmt.Errorf("latest seq: %w", err)
	}
	return uint64(seq), nil
}

// CampaignIDs returns campaign ids in launch order.
func (s *Store) CampaignIDs(ctx context.Context) ([]string, error) {
	if err := s.checkRead(ctx, 1); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx, "SELECT campaign_id FROM events GROUP BY campaign_id ORDER BY MIN(seq)")
	if err != nil {
		return nil, fmt.Errorf("list campaign ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan campaign id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate campaign ids: %w", err)
	}
	return ids, nil
}

func (s *Store) checkRead(ctx context.Context, limit int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		return fmt.Errorf("limit must be greater than zero")
	}
	return nil
}

func scanEvents(rows *sql.Rows) ([]event.Event, error) {
	defer rows.Close()
	var events []event.Event
	for rows.Next() {
		var (
			evt       event.Event
			seq, tsMs int64
			eventType string
			actorType string
		)
		if err := rows.Scan(
			&seq,
			&evt.CampaignID,
			&eventType,
			&tsMs,
			&actorType,
			&evt.ActorID,
			&evt.RequestID,
			&evt.EntityType,
			&evt.EntityID,
			&evt.PayloadJSON,
			&evt.Hash,
			&evt.PrevHash,
			&evt.ChainHash,
			&evt.SignatureKeyID,
			&evt.Signature,
		); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		evt.Seq = uint64(seq)
		evt.Type = event.Type(eventType)
		evt.ActorType = event.ActorType(actorType)
		evt.Timestamp = fromMillis(tsMs)
		events = append(events, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

func isConstraintError(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT || code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}
