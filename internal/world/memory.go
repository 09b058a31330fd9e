// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftwood Contributors

package world

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/samber/oops"

	"github.com/driftwood-mud/driftwood/internal/value"
)

// objRecord bundles an object with its locally defined properties and
// verbs. Records are copied on first touch by a transaction and swapped in
// wholesale at commit, so a commit is atomic per object and two concurrent
// writers leave one winner, never an interleaving.
type objRecord struct {
	obj   Object
	props map[string]*Property
	verbs []*Verb
}

func (r *objRecord) clone() *objRecord {
	c := &objRecord{
		obj:   *r.obj.Clone(),
		props: make(map[string]*Property, len(r.props)),
		verbs: make([]*Verb, len(r.verbs)),
	}
	for name, p := range r.props {
		c.props[name] = p.Clone()
	}
	for i, v := range r.verbs {
		c.verbs[i] = v.Clone()
	}
	return c
}

// MemStore is the in-memory Store. It backs tests and the default
// single-node configuration; the Postgres store provides durability.
type MemStore struct {
	mu       sync.RWMutex
	records  map[value.Obj]*objRecord
	recycled map[value.Obj]bool
	nextID   value.Obj
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		records:  make(map[value.Obj]*objRecord),
		recycled: make(map[value.Obj]bool),
	}
}

// Begin opens a copy-on-write transaction.
func (s *MemStore) Begin(_ context.Context) (Tx, error) {
	return &memTx{
		store: s,
		cache: make(map[value.Obj]*objRecord),
		dirty: make(map[value.Obj]bool),
	}, nil
}

// Close implements Store.
func (s *MemStore) Close() {}

type memTx struct {
	store *MemStore
	// cache holds working copies; a nil entry marks an object recycled
	// within this transaction.
	cache map[value.Obj]*objRecord
	dirty map[value.Obj]bool
	done  bool
}

// record returns the working copy for id, loading (and cloning) from the
// store on first touch.
func (t *memTx) record(id value.Obj) (*objRecord, error) {
	if rec, ok := t.cache[id]; ok {
		if rec == nil {
			return nil, oops.With("id", id.String()).Wrap(ErrRecycled)
		}
		return rec, nil
	}
	t.store.mu.RLock()
	rec, ok := t.store.records[id]
	wasRecycled := t.store.recycled[id]
	var cloned *objRecord
	if ok {
		cloned = rec.clone()
	}
	t.store.mu.RUnlock()

	if !ok {
		if wasRecycled {
			return nil, oops.With("id", id.String()).Wrap(ErrRecycled)
		}
		return nil, oops.With("id", id.String()).Wrap(ErrNotFound)
	}
	t.cache[id] = cloned
	return cloned, nil
}

// CreateObject implements Tx. The id is reserved immediately so that
// concurrent transactions never race for the same id; a rolled back create
// leaves a gap, which is harmless under monotonic ids.
func (t *memTx) CreateObject(_ context.Context, o *Object) (value.Obj, error) {
	t.store.mu.Lock()
	id := t.store.nextID
	t.store.nextID++
	t.store.mu.Unlock()

	rec := &objRecord{
		obj:   *o.Clone(),
		props: make(map[string]*Property),
	}
	rec.obj.ID = id
	t.cache[id] = rec
	t.dirty[id] = true
	return id, nil
}

func (t *memTx) GetObject(_ context.Context, id value.Obj) (*Object, error) {
	rec, err := t.record(id)
	if err != nil {
		return nil, err
	}
	return rec.obj.Clone(), nil
}

func (t *memTx) UpdateObject(_ context.Context, o *Object) error {
	rec, err := t.record(o.ID)
	if err != nil {
		return err
	}
	rec.obj = *o.Clone()
	t.dirty[o.ID] = true
	return nil
}

func (t *memTx) RecycleObject(_ context.Context, id value.Obj) error {
	if _, err := t.record(id); err != nil {
		return err
	}
	t.cache[id] = nil
	t.dirty[id] = true
	return nil
}

func (t *memTx) MaxObject(_ context.Context) (value.Obj, error) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	if t.store.nextID == 0 {
		return value.Nothing, nil
	}
	return t.store.nextID - 1, nil
}

// scan visits every live object visible to the transaction.
func (t *memTx) scan(visit func(rec *objRecord)) {
	seen := make(map[value.Obj]bool, len(t.cache))
	for id, rec := range t.cache {
		seen[id] = true
		if rec != nil {
			visit(rec)
		}
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	for id, rec := range t.store.records {
		if !seen[id] {
			visit(rec)
		}
	}
}

func (t *memTx) Children(_ context.Context, id value.Obj) ([]value.Obj, error) {
	var out []value.Obj
	t.scan(func(rec *objRecord) {
		if rec.obj.Parent == id {
			out = append(out, rec.obj.ID)
		}
	})
	sortObjs(out)
	return out, nil
}

func (t *memTx) Contents(_ context.Context, id value.Obj) ([]value.Obj, error) {
	var out []value.Obj
	t.scan(func(rec *objRecord) {
		if rec.obj.Location == id {
			out = append(out, rec.obj.ID)
		}
	})
	sortObjs(out)
	return out, nil
}

func (t *memTx) Players(_ context.Context) ([]value.Obj, error) {
	var out []value.Obj
	t.scan(func(rec *objRecord) {
		if rec.obj.IsPlayer() {
			out = append(out, rec.obj.ID)
		}
	})
	sortObjs(out)
	return out, nil
}

func (t *memTx) GetProperty(_ context.Context, obj value.Obj, name string) (*Property, error) {
	rec, err := t.record(obj)
	if err != nil {
		return nil, err
	}
	p, ok := rec.props[strings.ToLower(name)]
	if !ok {
		return nil, oops.With("object", obj.String()).With("property", name).Wrap(ErrNotFound)
	}
	return p.Clone(), nil
}

func (t *memTx) ListProperties(_ context.Context, obj value.Obj) ([]*Property, error) {
	rec, err := t.record(obj)
	if err != nil {
		return nil, err
	}
	out := make([]*Property, 0, len(rec.props))
	for _, p := range rec.props {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (t *memTx) SetProperty(_ context.Context, obj value.Obj, p *Property) error {
	rec, err := t.record(obj)
	if err != nil {
		return err
	}
	rec.props[strings.ToLower(p.Name)] = p.Clone()
	t.dirty[obj] = true
	return nil
}

func (t *memTx) DeleteProperty(_ context.Context, obj value.Obj, name string) error {
	rec, err := t.record(obj)
	if err != nil {
		return err
	}
	key := strings.ToLower(name)
	if _, ok := rec.props[key]; !ok {
		return oops.With("object", obj.String()).With("property", name).Wrap(ErrNotFound)
	}
	delete(rec.props, key)
	t.dirty[obj] = true
	return nil
}

func (t *memTx) GetVerb(_ context.Context, obj value.Obj, name string) (*Verb, error) {
	rec, err := t.record(obj)
	if err != nil {
		return nil, err
	}
	for _, v := range rec.verbs {
		if v.Matches(name) {
			return v.Clone(), nil
		}
	}
	return nil, oops.With("object", obj.String()).With("verb", name).Wrap(ErrNotFound)
}

func (t *memTx) ListVerbs(_ context.Context, obj value.Obj) ([]*Verb, error) {
	rec, err := t.record(obj)
	if err != nil {
		return nil, err
	}
	out := make([]*Verb, len(rec.verbs))
	for i, v := range rec.verbs {
		out[i] = v.Clone()
	}
	return out, nil
}

func (t *memTx) PutVerb(_ context.Context, obj value.Obj, v *Verb) error {
	if len(v.Names) == 0 {
		return oops.Code("VERB_NO_NAME").Errorf("verb must have at least one name")
	}
	rec, err := t.record(obj)
	if err != nil {
		return err
	}
	for i, existing := range rec.verbs {
		if existing.Matches(v.Names[0]) {
			rec.verbs[i] = v.Clone()
			t.dirty[obj] = true
			return nil
		}
	}
	rec.verbs = append(rec.verbs, v.Clone())
	t.dirty[obj] = true
	return nil
}

func (t *memTx) DeleteVerb(_ context.Context, obj value.Obj, name string) error {
	rec, err := t.record(obj)
	if err != nil {
		return err
	}
	for i, v := range rec.verbs {
		if v.Matches(name) {
			rec.verbs = append(rec.verbs[:i], rec.verbs[i+1:]...)
			t.dirty[obj] = true
			return nil
		}
	}
	return oops.With("object", obj.String()).With("verb", name).Wrap(ErrNotFound)
}

// Commit implements Tx. Dirty records are swapped in under the store lock;
// untouched cache entries are discarded so a concurrent committer of a
// different object is never clobbered.
func (t *memTx) Commit(_ context.Context) error {
	if t.done {
		return oops.Code("TX_FINISHED").Errorf("transaction already finished")
	}
	t.done = true

	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for id := range t.dirty {
		rec := t.cache[id]
		if rec == nil {
			delete(t.store.records, id)
			t.store.recycled[id] = true
			continue
		}
		t.store.records[id] = rec
	}
	return nil
}

// Rollback implements Tx.
func (t *memTx) Rollback(_ context.Context) error {
	t.done = true
	t.cache = nil
	t.dirty = nil
	return nil
}

func sortObjs(objs []value.Obj) {
	sort.Slice(objs, func(i, j int) bool { return objs[i] < objs[j] })
}
