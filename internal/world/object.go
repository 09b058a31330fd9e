// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftwood Contributors

// Package world implements the persistent object database: objects with
// inheritance, properties, verbs, permission bits, reference resolution,
// and transactional mutation.
package world

import (
	"strings"
	"time"

	"github.com/driftwood-mud/driftwood/internal/value"
)

// ObjFlag is a bit on an object.
type ObjFlag uint8

const (
	// FlagUser marks the object as a player.
	FlagUser ObjFlag = 1 << iota
	// FlagProgrammer grants the ability to program verbs.
	FlagProgrammer
	// FlagWizard overrides all permission checks.
	FlagWizard
	// FlagRead allows any player to read the object's definition.
	FlagRead
	// FlagWrite allows any player to mutate the object.
	FlagWrite
	// FlagFertile allows any player to create children of the object.
	FlagFertile
)

// Has reports whether all bits in f are set.
func (flags ObjFlag) Has(f ObjFlag) bool { return flags&f == f }

// Object is one row of the object arena. Relations (parent, location,
// owner) are id references into the arena, never pointers, so the cyclic
// object graph carries no ownership cycles.
type Object struct {
	ID        value.Obj
	Name      string
	Owner     value.Obj
	Parent    value.Obj // value.Nothing for roots
	Location  value.Obj // value.Nothing when nowhere
	Flags     ObjFlag
	CreatedAt time.Time
}

// IsPlayer reports whether the object is a player.
func (o *Object) IsPlayer() bool { return o.Flags.Has(FlagUser) }

// IsWizard reports whether the object holds the wizard bit.
func (o *Object) IsWizard() bool { return o.Flags.Has(FlagWizard) }

// Clone returns an independent copy.
func (o *Object) Clone() *Object {
	c := *o
	return &c
}

// PropFlag is a permission bit on a property.
type PropFlag uint8

const (
	// PropRead allows non-owners to read the value.
	PropRead PropFlag = 1 << iota
	// PropWrite allows non-owners to write the value.
	PropWrite
	// PropChown allows non-owners to take ownership.
	PropChown
)

// Has reports whether all bits in f are set.
func (flags PropFlag) Has(f PropFlag) bool { return flags&f == f }

// ParsePropFlags parses a flag string like "rwc".
func ParsePropFlags(s string) PropFlag {
	var f PropFlag
	for _, r := range s {
		switch r {
		case 'r':
			f |= PropRead
		case 'w':
			f |= PropWrite
		case 'c':
			f |= PropChown
		}
	}
	return f
}

// String renders the flags as "rwc" subset.
func (flags PropFlag) String() string {
	var b strings.Builder
	if flags.Has(PropRead) {
		b.WriteByte('r')
	}
	if flags.Has(PropWrite) {
		b.WriteByte('w')
	}
	if flags.Has(PropChown) {
		b.WriteByte('c')
	}
	return b.String()
}

// Property is a named value defined on an object. A descendant overrides
// the value by writing a property of the same name on itself; the definer
// is wherever the lookup chain found it.
type Property struct {
	Name  string
	Value value.Var
	Owner value.Obj
	Flags PropFlag
}

// Clone returns an independent copy.
func (p *Property) Clone() *Property {
	c := *p
	return &c
}

// VerbFlag is a permission bit on a verb.
type VerbFlag uint8

const (
	// VerbRead allows non-owners to read the source.
	VerbRead VerbFlag = 1 << iota
	// VerbWrite allows non-owners to program the verb.
	VerbWrite
	// VerbExec allows the verb to be called.
	VerbExec
)

// Has reports whether all bits in f are set.
func (flags VerbFlag) Has(f VerbFlag) bool { return flags&f == f }

// ParseVerbFlags parses a flag string like "rxd" (d ignored).
func ParseVerbFlags(s string) VerbFlag {
	var f VerbFlag
	for _, r := range s {
		switch r {
		case 'r':
			f |= VerbRead
		case 'w':
			f |= VerbWrite
		case 'x':
			f |= VerbExec
		}
	}
	return f
}

// String renders the flags as "rwx" subset.
func (flags VerbFlag) String() string {
	var b strings.Builder
	if flags.Has(VerbRead) {
		b.WriteByte('r')
	}
	if flags.Has(VerbWrite) {
		b.WriteByte('w')
	}
	if flags.Has(VerbExec) {
		b.WriteByte('x')
	}
	return b.String()
}

// ArgSpec is a verb's direct-object/preposition/indirect-object pattern.
// Each object slot is "this", "none", or "any"; the preposition is a
// literal, "none", or "any".
type ArgSpec struct {
	Dobj string
	Prep string
	Iobj string
}

// DefaultArgSpec is the spec for verbs called only programmatically.
func DefaultArgSpec() ArgSpec {
	return ArgSpec{Dobj: "this", Prep: "none", Iobj: "this"}
}

// Verb is a named method on an object. Names holds the space-separated
// alias list; each alias may end in "*" marking an abbreviation point.
type Verb struct {
	Names    []string
	Owner    value.Obj
	Flags    VerbFlag
	Args     ArgSpec
	Source   []string
	Compiled []byte // JSON-serialized AST; nil when never programmed
}

// NamesString joins the alias list for display.
func (v *Verb) NamesString() string { return strings.Join(v.Names, " ") }

// Matches reports whether name matches any alias, honoring the "*"
// abbreviation marker: "l*ook" matches "l", "lo", ... "look".
func (v *Verb) Matches(name string) bool {
	name = strings.ToLower(name)
	for _, alias := range v.Names {
		if matchVerbAlias(strings.ToLower(alias), name) {
			return true
		}
	}
	return false
}

func matchVerbAlias(alias, name string) bool {
	star := strings.IndexByte(alias, '*')
	if star < 0 {
		return alias == name
	}
	full := alias[:star] + alias[star+1:]
	prefix := alias[:star]
	if len(name) < len(prefix) || len(name) > len(full) {
		return false
	}
	return strings.HasPrefix(full, name) && strings.HasPrefix(name, prefix)
}

// Clone returns an independent copy with its own slices.
func (v *Verb) Clone() *Verb {
	c := *v
	c.Names = append([]string(nil), v.Names...)
	c.Source = append([]string(nil), v.Source...)
	c.Compiled = append([]byte(nil), v.Compiled...)
	return &c
}
