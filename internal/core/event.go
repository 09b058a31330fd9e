// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftwood Contributors

// Package core contains the narrative event broker: the event taxonomy,
// the per-player event log, live fan-out, presentations, and the engine
// that executes verb tasks against the world.
package core

import (
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/driftwood-mud/driftwood/internal/value"
)

// EventKind identifies the kind of narrative event.
type EventKind string

const (
	// EventMessage is a line of narrative text for a player.
	EventMessage EventKind = "message"
	// EventSystem is an out-of-band server notice.
	EventSystem EventKind = "system_message"
	// EventPresent shows or replaces a presentation.
	EventPresent EventKind = "present"
	// EventUnpresent dismisses a presentation.
	EventUnpresent EventKind = "unpresent"
	// EventTraceback reports an uncaught verb error.
	EventTraceback EventKind = "traceback"
)

// Presentation is a rich UI element addressed to a client dock or pane.
type Presentation struct {
	ID          string            `json:"id"`
	Content     string            `json:"content"`
	ContentType string            `json:"content_type"`
	Target      string            `json:"target,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}

// Event is one entry in a player's narrative timeline. IDs are ULIDs,
// so lexicographic order is emission order.
type Event struct {
	ID        ulid.ULID
	Stream    string
	Player    value.Obj
	Kind      EventKind
	Timestamp time.Time

	// Message carries the text for message, system_message, and
	// traceback events.
	Message string

	// Traceback lines, outermost frame last.
	Traceback []string

	// Presentation payload for present events.
	Presentation *Presentation

	// PresentID names the presentation dismissed by an unpresent event.
	PresentID string
}

// PlayerStream is the broadcast stream name for a player's events.
func PlayerStream(player value.Obj) string {
	return "player:" + player.String()
}

// wireEvent is the client-facing JSON form.
type wireEvent struct {
	Kind         EventKind     `json:"kind"`
	EventID      string        `json:"event_id"`
	ServerTime   time.Time     `json:"server_time"`
	Player       string        `json:"player"`
	Message      string        `json:"message,omitempty"`
	Traceback    []string      `json:"traceback,omitempty"`
	Presentation *Presentation `json:"presentation,omitempty"`
	PresentID    string        `json:"present_id,omitempty"`
}

// MarshalJSON renders the wire form sent to attached clients.
func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireEvent{
		Kind:         e.Kind,
		EventID:      e.ID.String(),
		ServerTime:   e.Timestamp,
		Player:       e.Player.String(),
		Message:      e.Message,
		Traceback:    e.Traceback,
		Presentation: e.Presentation,
		PresentID:    e.PresentID,
	})
}

// UnmarshalJSON restores an event from its wire form.
func (e *Event) UnmarshalJSON(data []byte) error {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	id, err := ulid.Parse(w.EventID)
	if err != nil {
		return err
	}
	player, err := value.ParseObj(w.Player)
	if err != nil {
		return err
	}
	*e = Event{
		ID:           id,
		Stream:       PlayerStream(player),
		Player:       player,
		Kind:         w.Kind,
		Timestamp:    w.ServerTime,
		Message:      w.Message,
		Traceback:    w.Traceback,
		Presentation: w.Presentation,
		PresentID:    w.PresentID,
	}
	return nil
}
