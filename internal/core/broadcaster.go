// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftwood Contributors

package core

import (
	"log/slog"
	"sync"

	"github.com/gobwas/glob"
	"github.com/samber/oops"
)

// subscriberBuffer is the per-subscriber channel depth. A subscriber
// that falls this far behind starts losing events.
const subscriberBuffer = 100

// Subscription is one live event feed. Events whose stream matches the
// pattern arrive on C until Unsubscribe closes it.
type Subscription struct {
	C       chan Event
	pattern glob.Glob
	raw     string
}

// Broadcaster fans events out to pattern subscribers. Patterns are
// glob-style, so "player:#3" follows one player and "player:*" follows
// everyone.
type Broadcaster struct {
	mu     sync.RWMutex
	subs   []*Subscription
	onDrop func(Event)
}

// NewBroadcaster creates a new broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{}
}

// Subscribe creates a feed for streams matching the glob pattern.
func (b *Broadcaster) Subscribe(pattern string) (*Subscription, error) {
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, oops.Code("BROADCAST_BAD_PATTERN").
			With("pattern", pattern).
			Wrap(err)
	}

	sub := &Subscription{
		C:       make(chan Event, subscriberBuffer),
		pattern: g,
		raw:     pattern,
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, sub)
	return sub, nil
}

// SetDropHook installs fn, called once per subscriber that loses an
// event to a full buffer. Install it before the first Broadcast.
func (b *Broadcaster) SetDropHook(fn func(Event)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onDrop = fn
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Broadcaster) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s == sub {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			close(sub.C)
			return
		}
	}
}

// Broadcast delivers an event to every matching subscriber. Persistence
// happened before broadcast, so a slow subscriber loses only the live
// push and can recover from history.
func (b *Broadcaster) Broadcast(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subs {
		if !sub.pattern.Match(event.Stream) {
			continue
		}
		select {
		case sub.C <- event:
		default:
			slog.Warn("event dropped: subscriber buffer full",
				"stream", event.Stream,
				"pattern", sub.raw,
				"event_id", event.ID.String(),
				"event_kind", event.Kind,
			)
			if b.onDrop != nil {
				b.onDrop(event)
			}
		}
	}
}
