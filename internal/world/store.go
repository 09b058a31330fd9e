// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftwood Contributors

package world

import (
	"context"

	"github.com/driftwood-mud/driftwood/internal/value"
)

// Store opens transactions against the object database. All reads and
// mutations go through a Tx so that an aborted evaluation leaks nothing
// and concurrent writers never produce a torn object.
type Store interface {
	// Begin opens a transaction. Every Tx must be finished with Commit or
	// Rollback; Rollback after Commit is a no-op.
	Begin(ctx context.Context) (Tx, error)

	// Close releases the store's resources.
	Close()
}

// Tx is a transaction over the object arena. Implementations serialize
// conflicting commits; within a transaction, reads observe the snapshot
// plus the transaction's own writes.
type Tx interface {
	// CreateObject inserts a new object and returns its assigned id. The
	// id on the passed object is ignored.
	CreateObject(ctx context.Context, o *Object) (value.Obj, error)

	// GetObject returns the object with the given id. ErrRecycled is
	// returned for ids that existed once; ErrNotFound for ids that never
	// did.
	GetObject(ctx context.Context, id value.Obj) (*Object, error)

	// UpdateObject overwrites the stored object row (name, owner, parent,
	// location, flags). Last writer wins field-by-field at commit.
	UpdateObject(ctx context.Context, o *Object) error

	// RecycleObject deletes the object and all its properties and verbs.
	// The id is remembered so later lookups report ErrRecycled.
	RecycleObject(ctx context.Context, id value.Obj) error

	// MaxObject returns the highest assigned object id, or value.Nothing
	// when the arena is empty.
	MaxObject(ctx context.Context) (value.Obj, error)

	// Children returns ids whose Parent is id, in id order.
	Children(ctx context.Context, id value.Obj) ([]value.Obj, error)

	// Contents returns ids whose Location is id, in id order.
	Contents(ctx context.Context, id value.Obj) ([]value.Obj, error)

	// Players returns the ids of all objects with the user flag set.
	Players(ctx context.Context) ([]value.Obj, error)

	// GetProperty returns the property defined locally on obj (no
	// inheritance walk).
	GetProperty(ctx context.Context, obj value.Obj, name string) (*Property, error)

	// ListProperties returns the properties defined locally on obj, in
	// name order.
	ListProperties(ctx context.Context, obj value.Obj) ([]*Property, error)

	// SetProperty upserts a locally defined property.
	SetProperty(ctx context.Context, obj value.Obj, p *Property) error

	// DeleteProperty removes a locally defined property.
	DeleteProperty(ctx context.Context, obj value.Obj, name string) error

	// GetVerb returns the first verb on obj whose alias list matches name
	// (no inheritance walk).
	GetVerb(ctx context.Context, obj value.Obj, name string) (*Verb, error)

	// ListVerbs returns the verbs defined on obj in definition order.
	ListVerbs(ctx context.Context, obj value.Obj) ([]*Verb, error)

	// PutVerb inserts or replaces the verb whose alias list matches the
	// first name in v.Names.
	PutVerb(ctx context.Context, obj value.Obj, v *Verb) error

	// DeleteVerb removes the verb matching name from obj.
	DeleteVerb(ctx context.Context, obj value.Obj, name string) error

	// Commit atomically applies the transaction's writes.
	Commit(ctx context.Context) error

	// Rollback discards the transaction's writes.
	Rollback(ctx context.Context) error
}
