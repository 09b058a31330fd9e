// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftwood Contributors

package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/driftwood-mud/driftwood/internal/value"
)

// ErrStreamEmpty is returned when a player has no events.
var ErrStreamEmpty = errors.New("stream is empty")

// History pagination bounds.
const (
	DefaultHistoryLimit = 100
	MaxHistoryLimit     = 1000
)

// HistoryQuery selects a window of a player's event history. UntilEvent
// pages backward: only events strictly older than it are returned.
// SinceSeconds keeps only events from the trailing wall-clock window.
type HistoryQuery struct {
	Limit        int
	SinceSeconds int64
	UntilEvent   ulid.ULID
}

// HistoryMeta describes the returned window.
type HistoryMeta struct {
	HasMoreBefore   bool   `json:"has_more_before"`
	EarliestEventID string `json:"earliest_event_id,omitempty"`
	LatestEventID   string `json:"latest_event_id,omitempty"`
}

// HistoryPage is a window of events in ascending ID order plus its meta.
type HistoryPage struct {
	Events []Event     `json:"events"`
	Meta   HistoryMeta `json:"meta"`
}

// EventLog persists the per-player narrative timeline.
type EventLog interface {
	// Append stores an event on its player's timeline.
	Append(ctx context.Context, event Event) error

	// History returns a window of a player's events, oldest first.
	History(ctx context.Context, player value.Obj, q HistoryQuery) (HistoryPage, error)

	// LastEventID returns the newest event ID for a player, or
	// ErrStreamEmpty when the timeline is empty.
	LastEventID(ctx context.Context, player value.Obj) (ulid.ULID, error)
}

// MemoryEventLog is an in-memory EventLog for single-node deployments
// and tests.
type MemoryEventLog struct {
	mu      sync.RWMutex
	streams map[value.Obj][]Event
}

// NewMemoryEventLog creates an empty MemoryEventLog.
func NewMemoryEventLog() *MemoryEventLog {
	return &MemoryEventLog{streams: make(map[value.Obj][]Event)}
}

// Append stores an event on its player's timeline.
func (l *MemoryEventLog) Append(_ context.Context, event Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.streams[event.Player] = append(l.streams[event.Player], event)
	return nil
}

// History returns a window of a player's events, oldest first.
func (l *MemoryEventLog) History(_ context.Context, player value.Obj, q HistoryQuery) (HistoryPage, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	events := l.streams[player]

	// Apply the backward-paging bound first.
	if q.UntilEvent.Compare(ulid.ULID{}) != 0 {
		cut := len(events)
		for i, e := range events {
			if e.ID.Compare(q.UntilEvent) >= 0 {
				cut = i
				break
			}
		}
		events = events[:cut]
	}

	// Then the trailing time window.
	if q.SinceSeconds > 0 {
		horizon := time.Now().Add(-time.Duration(q.SinceSeconds) * time.Second)
		start := len(events)
		for i, e := range events {
			if !e.Timestamp.Before(horizon) {
				start = i
				break
			}
		}
		events = events[start:]
	}

	hasMore := false
	if len(events) > limit {
		hasMore = true
		events = events[len(events)-limit:]
	}

	page := HistoryPage{Events: make([]Event, len(events))}
	copy(page.Events, events)
	page.Meta.HasMoreBefore = hasMore
	if len(events) > 0 {
		page.Meta.EarliestEventID = events[0].ID.String()
		page.Meta.LatestEventID = events[len(events)-1].ID.String()
	}
	return page, nil
}

// LastEventID returns the newest event ID for a player.
func (l *MemoryEventLog) LastEventID(_ context.Context, player value.Obj) (ulid.ULID, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	events := l.streams[player]
	if len(events) == 0 {
		return ulid.ULID{}, ErrStreamEmpty
	}
	return events[len(events)-1].ID, nil
}
