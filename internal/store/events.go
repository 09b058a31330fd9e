// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftwood Contributors

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/driftwood-mud/driftwood/internal/core"
	"github.com/driftwood-mud/driftwood/internal/value"
)

// PostgresEventLog implements core.EventLog on PostgreSQL. Event IDs
// are stored as their ULID string form, so lexicographic index order
// is emission order.
type PostgresEventLog struct {
	pool poolIface
}

// NewPostgresEventLog creates an event log over the pool.
func NewPostgresEventLog(pool poolIface) *PostgresEventLog {
	return &PostgresEventLog{pool: pool}
}

// Append persists one event on its player's timeline.
func (l *PostgresEventLog) Append(ctx context.Context, event core.Event) error {
	var presentation []byte
	if event.Presentation != nil {
		data, err := json.Marshal(event.Presentation)
		if err != nil {
			return oops.Code("EVENT_ENCODE_FAILED").
				With("event_id", event.ID.String()).
				Wrap(err)
		}
		presentation = data
	}

	_, err := l.pool.Exec(ctx,
		`INSERT INTO events (id, player, kind, message, traceback, presentation, present_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		event.ID.String(),
		int64(event.Player),
		string(event.Kind),
		event.Message,
		event.Traceback,
		presentation,
		event.PresentID,
		event.Timestamp,
	)
	if err != nil {
		return oops.Code("EVENT_APPEND_FAILED").
			With("event_id", event.ID.String()).
			With("player", event.Player.String()).
			Wrap(err)
	}
	return nil
}

// History returns a window of a player's events, oldest first.
func (l *PostgresEventLog) History(ctx context.Context, player value.Obj, q core.HistoryQuery) (core.HistoryPage, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = core.DefaultHistoryLimit
	}
	if limit > core.MaxHistoryLimit {
		limit = core.MaxHistoryLimit
	}

	sql := `SELECT id, kind, message, traceback, presentation, present_id, created_at
	        FROM events WHERE player = $1`
	args := []any{int64(player)}
	if q.UntilEvent.Compare(ulid.ULID{}) != 0 {
		args = append(args, q.UntilEvent.String())
		sql += fmt.Sprintf(" AND id < $%d", len(args))
	}
	if q.SinceSeconds > 0 {
		args = append(args, time.Now().Add(-time.Duration(q.SinceSeconds)*time.Second))
		sql += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	// Fetch one extra row to learn whether older events remain.
	args = append(args, limit+1)
	sql += fmt.Sprintf(" ORDER BY id DESC LIMIT $%d", len(args))

	rows, err := l.pool.Query(ctx, sql, args...)
	if err != nil {
		return core.HistoryPage{}, oops.Code("EVENT_HISTORY_FAILED").
			With("player", player.String()).
			Wrap(err)
	}
	defer rows.Close()

	var events []core.Event
	for rows.Next() {
		event, err := scanEvent(rows, player)
		if err != nil {
			return core.HistoryPage{}, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return core.HistoryPage{}, oops.Code("EVENT_HISTORY_FAILED").
			With("player", player.String()).
			Wrap(err)
	}

	page := core.HistoryPage{}
	if len(events) > limit {
		page.Meta.HasMoreBefore = true
		events = events[:limit]
	}
	// Rows arrived newest first; the page is oldest first.
	page.Events = make([]core.Event, len(events))
	for i, e := range events {
		page.Events[len(events)-1-i] = e
	}
	if len(page.Events) > 0 {
		page.Meta.EarliestEventID = page.Events[0].ID.String()
		page.Meta.LatestEventID = page.Events[len(page.Events)-1].ID.String()
	}
	return page, nil
}

// LastEventID returns the newest event ID for a player.
func (l *PostgresEventLog) LastEventID(ctx context.Context, player value.Obj) (ulid.ULID, error) {
	var idStr string
	err := l.pool.QueryRow(ctx,
		`SELECT id FROM events WHERE player = $1 ORDER BY id DESC LIMIT 1`,
		int64(player)).Scan(&idStr)
	if errors.Is(err, pgx.ErrNoRows) {
		return ulid.ULID{}, core.ErrStreamEmpty
	}
	if err != nil {
		return ulid.ULID{}, oops.Code("EVENT_LAST_ID_FAILED").
			With("player", player.String()).
			Wrap(err)
	}
	return core.ParseULID(idStr)
}

func scanEvent(rows pgx.Rows, player value.Obj) (core.Event, error) {
	var (
		idStr        string
		kind         string
		event        core.Event
		presentation []byte
	)
	if err := rows.Scan(&idStr, &kind, &event.Message, &event.Traceback,
		&presentation, &event.PresentID, &event.Timestamp); err != nil {
		return core.Event{}, oops.Code("EVENT_SCAN_FAILED").
			With("player", player.String()).
			Wrap(err)
	}
	id, err := core.ParseULID(idStr)
	if err != nil {
		return core.Event{}, oops.Code("EVENT_CORRUPT_ID").
			With("player", player.String()).
			With("id", idStr).
			Wrap(err)
	}
	event.ID = id
	event.Player = player
	event.Stream = core.PlayerStream(player)
	event.Kind = core.EventKind(kind)
	if len(presentation) > 0 {
		var p core.Presentation
		if err := json.Unmarshal(presentation, &p); err != nil {
			return core.Event{}, oops.Code("EVENT_CORRUPT_PRESENTATION").
				With("event_id", idStr).
				Wrap(err)
		}
		event.Presentation = &p
	}
	return event, nil
}
