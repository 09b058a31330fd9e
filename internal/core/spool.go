// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftwood Contributors

package core

import (
	"sync"

	"github.com/samber/oops"

	"github.com/driftwood-mud/driftwood/internal/value"
)

// Spool collects the lines of a verb program being entered interactively.
// A player starts a spool with @program-style input, feeds lines, and
// terminates with "." to install the verb, or "@abort" to discard it.
type Spool struct {
	Object value.Obj
	Verb   string
	Lines  []string
}

// SpoolManager holds at most one open spool per player.
type SpoolManager struct {
	mu     sync.Mutex
	spools map[value.Obj]*Spool
}

// NewSpoolManager creates an empty spool manager.
func NewSpoolManager() *SpoolManager {
	return &SpoolManager{spools: make(map[value.Obj]*Spool)}
}

// Open starts spooling verb source for a player. A player's earlier
// unfinished spool is discarded.
func (sm *SpoolManager) Open(player, object value.Obj, verb string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.spools[player] = &Spool{Object: object, Verb: verb}
}

// Active reports whether the player has an open spool.
func (sm *SpoolManager) Active(player value.Obj) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	_, ok := sm.spools[player]
	return ok
}

// Add appends one source line to the player's open spool.
func (sm *SpoolManager) Add(player value.Obj, line string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	spool, ok := sm.spools[player]
	if !ok {
		return oops.Code("SPOOL_NOT_OPEN").
			With("player", player.String()).
			Errorf("no open spool for %s", player)
	}
	spool.Lines = append(spool.Lines, line)
	return nil
}

// Close ends the player's spool and returns the collected program.
func (sm *SpoolManager) Close(player value.Obj) (*Spool, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	spool, ok := sm.spools[player]
	if !ok {
		return nil, oops.Code("SPOOL_NOT_OPEN").
			With("player", player.String()).
			Errorf("no open spool for %s", player)
	}
	delete(sm.spools, player)
	return spool, nil
}

// Abort discards the player's open spool, if any.
func (sm *SpoolManager) Abort(player value.Obj) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.spools, player)
}
