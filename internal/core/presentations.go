// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftwood Contributors

package core

import (
	"sync"

	"github.com/driftwood-mud/driftwood/internal/value"
)

// PresentationRegistry tracks the currently visible presentations per
// player. Presents with the same ID replace each other (last write
// wins); unpresent is idempotent.
type PresentationRegistry struct {
	mu      sync.RWMutex
	byOwner map[value.Obj]map[string]*Presentation
	order   map[value.Obj][]string
}

// NewPresentationRegistry creates an empty registry.
func NewPresentationRegistry() *PresentationRegistry {
	return &PresentationRegistry{
		byOwner: make(map[value.Obj]map[string]*Presentation),
		order:   make(map[value.Obj][]string),
	}
}

// Apply folds a present or unpresent event into the registry. Other
// event kinds are ignored.
func (r *PresentationRegistry) Apply(event Event) {
	switch event.Kind {
	case EventPresent:
		if event.Presentation != nil {
			r.Set(event.Player, event.Presentation)
		}
	case EventUnpresent:
		r.Remove(event.Player, event.PresentID)
	}
}

// Set stores or replaces a presentation for a player.
func (r *PresentationRegistry) Set(player value.Obj, p *Presentation) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.byOwner[player]
	if !ok {
		m = make(map[string]*Presentation)
		r.byOwner[player] = m
	}
	if _, exists := m[p.ID]; !exists {
		r.order[player] = append(r.order[player], p.ID)
	}
	copied := *p
	m[p.ID] = &copied
}

// Remove deletes a presentation. Removing an unknown ID is a no-op.
func (r *PresentationRegistry) Remove(player value.Obj, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.byOwner[player]
	if !ok {
		return
	}
	if _, exists := m[id]; !exists {
		return
	}
	delete(m, id)
	ids := r.order[player]
	for i, existing := range ids {
		if existing == id {
			r.order[player] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
}

// List returns a player's visible presentations in first-present order.
func (r *PresentationRegistry) List(player value.Obj) []Presentation {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.order[player]
	out := make([]Presentation, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.byOwner[player][id]; ok {
			out = append(out, *p)
		}
	}
	return out
}

// Get returns one presentation by ID.
func (r *PresentationRegistry) Get(player value.Obj, id string) (Presentation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byOwner[player][id]
	if !ok {
		return Presentation{}, false
	}
	return *p, true
}
