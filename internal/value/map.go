// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftwood Contributors

package value

import "strings"

// Map is an insertion-ordered association of Var keys to Var values. Keys
// may be any value kind; lookup is by deep equality. The type is not safe
// for concurrent mutation.
type Map struct {
	pairs []Pair
}

// Pair is one map entry.
type Pair struct {
	Key   Var
	Value Var
}

// NewMap returns an empty map.
func NewMap() *Map { return &Map{pairs: []Pair{}} }

// MapOf builds a map from the pairs in order. Later duplicate keys win.
func MapOf(pairs ...Pair) *Map {
	m := NewMap()
	for _, p := range pairs {
		m.Set(p.Key, p.Value)
	}
	return m
}

// Len returns the number of entries.
func (m *Map) Len() int { return len(m.pairs) }

// Pairs returns the entries in insertion order. Callers must not mutate.
func (m *Map) Pairs() []Pair { return m.pairs }

// Get returns the value for key.
func (m *Map) Get(key Var) (Var, bool) {
	for _, p := range m.pairs {
		if p.Key.Equal(key) {
			return p.Value, true
		}
	}
	return None(), false
}

// Set inserts or replaces the entry for key. Replacement preserves the
// original insertion position.
func (m *Map) Set(key, val Var) {
	for i, p := range m.pairs {
		if p.Key.Equal(key) {
			m.pairs[i].Value = val
			return
		}
	}
	m.pairs = append(m.pairs, Pair{Key: key, Value: val})
}

// Delete removes the entry for key, reporting whether it existed.
func (m *Map) Delete(key Var) bool {
	for i, p := range m.pairs {
		if p.Key.Equal(key) {
			m.pairs = append(m.pairs[:i], m.pairs[i+1:]...)
			return true
		}
	}
	return false
}

// Clone returns a shallow copy whose pair slice is independent.
func (m *Map) Clone() *Map {
	pairs := make([]Pair, len(m.pairs))
	copy(pairs, m.pairs)
	return &Map{pairs: pairs}
}

// Equal reports entry-wise equality ignoring insertion order.
func (m *Map) Equal(o *Map) bool {
	if m.Len() != o.Len() {
		return false
	}
	for _, p := range m.pairs {
		ov, ok := o.Get(p.Key)
		if !ok || !ov.Equal(p.Value) {
			return false
		}
	}
	return true
}

// String renders the map as a MOO literal.
func (m *Map) String() string {
	parts := make([]string, len(m.pairs))
	for i, p := range m.pairs {
		parts[i] = p.Key.String() + " -> " + p.Value.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
