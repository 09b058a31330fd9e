// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftwood Contributors

package vm

import "github.com/driftwood-mud/driftwood/internal/value"

// EffectKind discriminates buffered side effects.
type EffectKind int

const (
	// EffectNotify delivers a line of narrative text to a player.
	EffectNotify EffectKind = iota
	// EffectPresent shows or replaces a presentation for a player.
	EffectPresent
	// EffectUnpresent dismisses a presentation.
	EffectUnpresent
)

// Effect is one deferred side effect. The transaction's effects are
// discarded wholesale if the transaction aborts, so a failed task never
// leaks partial output.
type Effect struct {
	Kind   EffectKind
	Player value.Obj

	// Notify payload.
	Line string

	// Present payload.
	ID          string
	Content     string
	ContentType string
	Target      string
	Attributes  map[string]string
}

func (in *Interp) emit(e Effect) {
	in.effects = append(in.effects, e)
}
