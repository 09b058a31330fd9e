// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftwood Contributors

package world

import (
	"context"
	"errors"
	"time"

	"github.com/samber/oops"

	"github.com/driftwood-mud/driftwood/internal/value"
)

// Service layers permission checks and inheritance over a raw Store. Every
// operation takes the acting player explicitly; there is no ambient
// session state.
type Service struct {
	store Store
}

// NewService creates a Service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Begin opens a transaction on the underlying store.
func (s *Service) Begin(ctx context.Context) (Tx, error) {
	return s.store.Begin(ctx)
}

// actorIsWizard reports whether the acting player holds the wizard bit.
// Sentinel actors (e.g. value.Nothing for system tasks) count as wizards.
func actorIsWizard(ctx context.Context, tx Tx, actor value.Obj) bool {
	if !actor.Valid() {
		return true
	}
	obj, err := tx.GetObject(ctx, actor)
	if err != nil {
		return false
	}
	return obj.IsWizard()
}

func denied(code string, actor value.Obj, target value.Obj) error {
	return oops.Code(code).
		With("actor", actor.String()).
		With("target", target.String()).
		Wrap(ErrPermissionDenied)
}

// CheckObjectRead enforces read access to an object's definition.
func (s *Service) CheckObjectRead(ctx context.Context, tx Tx, actor value.Obj, obj *Object) error {
	if obj.Owner == actor || obj.Flags.Has(FlagRead) || actorIsWizard(ctx, tx, actor) {
		return nil
	}
	return denied("PERM_OBJECT_READ", actor, obj.ID)
}

// CheckObjectWrite enforces write access to an object.
func (s *Service) CheckObjectWrite(ctx context.Context, tx Tx, actor value.Obj, obj *Object) error {
	if obj.Owner == actor || obj.Flags.Has(FlagWrite) || actorIsWizard(ctx, tx, actor) {
		return nil
	}
	return denied("PERM_OBJECT_WRITE", actor, obj.ID)
}

// CreateObject creates a child of parent owned by owner. Non-wizards may
// only use fertile or self-owned parents, and may only create objects for
// themselves.
func (s *Service) CreateObject(ctx context.Context, tx Tx, actor value.Obj, parent, owner value.Obj) (value.Obj, error) {
	wizard := actorIsWizard(ctx, tx, actor)
	if parent.Valid() {
		pobj, err := tx.GetObject(ctx, parent)
		if err != nil {
			return value.Nothing, err
		}
		if !wizard && pobj.Owner != actor && !pobj.Flags.Has(FlagFertile) {
			return value.Nothing, denied("PERM_CREATE_CHILD", actor, parent)
		}
	}
	if !wizard && owner != actor {
		return value.Nothing, denied("PERM_CREATE_OWNER", actor, owner)
	}
	return tx.CreateObject(ctx, &Object{
		Name:      "",
		Owner:     owner,
		Parent:    parent,
		Location:  value.Nothing,
		CreatedAt: time.Now(),
	})
}

// Recycle destroys an object. Children are reparented to the recycled
// object's parent; contents are moved to nowhere. Later references to the
// id fail with ErrRecycled.
func (s *Service) Recycle(ctx context.Context, tx Tx, actor value.Obj, oid value.Obj) error {
	obj, err := tx.GetObject(ctx, oid)
	if err != nil {
		return err
	}
	if err := s.CheckObjectWrite(ctx, tx, actor, obj); err != nil {
		return err
	}

	children, err := tx.Children(ctx, oid)
	if err != nil {
		return err
	}
	for _, cid := range children {
		child, err := tx.GetObject(ctx, cid)
		if err != nil {
			return err
		}
		child.Parent = obj.Parent
		if err := tx.UpdateObject(ctx, child); err != nil {
			return err
		}
	}

	contents, err := tx.Contents(ctx, oid)
	if err != nil {
		return err
	}
	for _, cid := range contents {
		item, err := tx.GetObject(ctx, cid)
		if err != nil {
			return err
		}
		item.Location = value.Nothing
		if err := tx.UpdateObject(ctx, item); err != nil {
			return err
		}
	}

	return tx.RecycleObject(ctx, oid)
}

// Move relocates what into where (or nowhere when where is invalid).
// Moving an object into itself or its own contents chain fails with
// ErrRecursiveMove.
func (s *Service) Move(ctx context.Context, tx Tx, actor value.Obj, what, where value.Obj) error {
	obj, err := tx.GetObject(ctx, what)
	if err != nil {
		return err
	}
	if err := s.CheckObjectWrite(ctx, tx, actor, obj); err != nil {
		return err
	}
	if where.Valid() {
		// Walk up from the destination; hitting what means a cycle.
		cur := where
		for cur.Valid() {
			if cur == what {
				return oops.Code("MOVE_CYCLE").With("what", what.String()).Wrap(ErrRecursiveMove)
			}
			parent, err := tx.GetObject(ctx, cur)
			if err != nil {
				return err
			}
			cur = parent.Location
		}
	}
	obj.Location = where
	return tx.UpdateObject(ctx, obj)
}

// ChParent changes an object's parent, refusing inheritance cycles.
func (s *Service) ChParent(ctx context.Context, tx Tx, actor value.Obj, oid, newParent value.Obj) error {
	obj, err := tx.GetObject(ctx, oid)
	if err != nil {
		return err
	}
	if err := s.CheckObjectWrite(ctx, tx, actor, obj); err != nil {
		return err
	}
	if newParent.Valid() {
		cur := newParent
		for cur.Valid() {
			if cur == oid {
				return oops.Code("CHPARENT_CYCLE").With("object", oid.String()).Wrap(ErrRecursiveMove)
			}
			p, err := tx.GetObject(ctx, cur)
			if err != nil {
				return err
			}
			cur = p.Parent
		}
	}
	obj.Parent = newParent
	return tx.UpdateObject(ctx, obj)
}

// PropertyValue reads a property with inheritance: the lookup walks the
// parent chain from obj and returns the first definition plus the object
// that defined it. Read permission is enforced against the acting player.
func (s *Service) PropertyValue(ctx context.Context, tx Tx, actor, oid value.Obj, name string) (*Property, value.Obj, error) {
	definer := oid
	for definer.Valid() {
		prop, err := tx.GetProperty(ctx, definer, name)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				obj, gerr := tx.GetObject(ctx, definer)
				if gerr != nil {
					return nil, value.Nothing, gerr
				}
				definer = obj.Parent
				continue
			}
			return nil, value.Nothing, err
		}
		if prop.Owner != actor && !prop.Flags.Has(PropRead) && !actorIsWizard(ctx, tx, actor) {
			return nil, value.Nothing, denied("PERM_PROP_READ", actor, definer)
		}
		return prop, definer, nil
	}
	return nil, value.Nothing, oops.Code("PROP_NOT_FOUND").
		With("object", oid.String()).With("property", name).Wrap(ErrNotFound)
}

// SetPropertyValue writes a property's value. If the property is inherited
// the write creates a local override on obj (the ancestor's definition is
// untouched); permission follows the found definition's bits.
func (s *Service) SetPropertyValue(ctx context.Context, tx Tx, actor, oid value.Obj, name string, val value.Var) error {
	prop, definer, err := s.findForWrite(ctx, tx, actor, oid, name)
	if err != nil {
		return err
	}
	updated := prop.Clone()
	updated.Value = val
	if definer != oid {
		// Override on the descendant keeps the actor as owner.
		updated.Owner = actor
	}
	return tx.SetProperty(ctx, oid, updated)
}

func (s *Service) findForWrite(ctx context.Context, tx Tx, actor, oid value.Obj, name string) (*Property, value.Obj, error) {
	definer := oid
	for definer.Valid() {
		prop, err := tx.GetProperty(ctx, definer, name)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				obj, gerr := tx.GetObject(ctx, definer)
				if gerr != nil {
					return nil, value.Nothing, gerr
				}
				definer = obj.Parent
				continue
			}
			return nil, value.Nothing, err
		}
		if prop.Owner != actor && !prop.Flags.Has(PropWrite) && !actorIsWizard(ctx, tx, actor) {
			return nil, value.Nothing, denied("PERM_PROP_WRITE", actor, definer)
		}
		return prop, definer, nil
	}
	return nil, value.Nothing, oops.Code("PROP_NOT_FOUND").
		With("object", oid.String()).With("property", name).Wrap(ErrNotFound)
}

// AddProperty defines a new property directly on obj. Fails if the name is
// already defined anywhere on the inheritance chain.
func (s *Service) AddProperty(ctx context.Context, tx Tx, actor, oid value.Obj, p *Property) error {
	obj, err := tx.GetObject(ctx, oid)
	if err != nil {
		return err
	}
	if err := s.CheckObjectWrite(ctx, tx, actor, obj); err != nil {
		return err
	}
	if _, _, err := s.PropertyValue(ctx, tx, actor, oid, p.Name); err == nil {
		return oops.Code("PROP_EXISTS").
			With("object", oid.String()).With("property", p.Name).
			Errorf("property %q already defined", p.Name)
	} else if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrPermissionDenied) {
		return err
	}
	return tx.SetProperty(ctx, oid, p)
}

// DeleteProperty removes a property defined locally on obj.
func (s *Service) DeleteProperty(ctx context.Context, tx Tx, actor, oid value.Obj, name string) error {
	obj, err := tx.GetObject(ctx, oid)
	if err != nil {
		return err
	}
	if err := s.CheckObjectWrite(ctx, tx, actor, obj); err != nil {
		return err
	}
	return tx.DeleteProperty(ctx, oid, name)
}

// ChownProperty transfers property ownership. Non-owners need the chown
// bit; changing owner never changes the value or other bits.
func (s *Service) ChownProperty(ctx context.Context, tx Tx, actor, oid value.Obj, name string, newOwner value.Obj) error {
	prop, err := tx.GetProperty(ctx, oid, name)
	if err != nil {
		return err
	}
	if prop.Owner != actor && !prop.Flags.Has(PropChown) && !actorIsWizard(ctx, tx, actor) {
		return denied("PERM_PROP_CHOWN", actor, oid)
	}
	updated := prop.Clone()
	updated.Owner = newOwner
	return tx.SetProperty(ctx, oid, updated)
}

// PropertyEntry pairs a property with its defining object, for listings.
type PropertyEntry struct {
	Property *Property
	Definer  value.Obj
}

// ListProperties returns every property visible on obj, walking the
// inheritance chain; a descendant's definition shadows its ancestors'.
// Entries the actor may not read are skipped rather than erroring, so a
// listing is always a permitted view.
func (s *Service) ListProperties(ctx context.Context, tx Tx, actor, oid value.Obj) ([]PropertyEntry, error) {
	obj, err := tx.GetObject(ctx, oid)
	if err != nil {
		return nil, err
	}
	if err := s.CheckObjectRead(ctx, tx, actor, obj); err != nil {
		return nil, err
	}

	wizard := actorIsWizard(ctx, tx, actor)
	seen := make(map[string]bool)
	var out []PropertyEntry
	cur := oid
	for cur.Valid() {
		props, err := tx.ListProperties(ctx, cur)
		if err != nil {
			return nil, err
		}
		for _, p := range props {
			if seen[p.Name] {
				continue
			}
			seen[p.Name] = true
			if p.Owner != actor && !p.Flags.Has(PropRead) && !wizard {
				continue
			}
			out = append(out, PropertyEntry{Property: p, Definer: cur})
		}
		o, err := tx.GetObject(ctx, cur)
		if err != nil {
			return nil, err
		}
		cur = o.Parent
	}
	return out, nil
}

// FindVerb locates a verb by name with inheritance, returning the verb and
// the object that defines it.
func (s *Service) FindVerb(ctx context.Context, tx Tx, actor, oid value.Obj, name string) (*Verb, value.Obj, error) {
	cur := oid
	for cur.Valid() {
		verb, err := tx.GetVerb(ctx, cur, name)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				obj, gerr := tx.GetObject(ctx, cur)
				if gerr != nil {
					return nil, value.Nothing, gerr
				}
				cur = obj.Parent
				continue
			}
			return nil, value.Nothing, err
		}
		return verb, cur, nil
	}
	return nil, value.Nothing, oops.Code("VERB_NOT_FOUND").
		With("object", oid.String()).With("verb", name).Wrap(ErrNotFound)
}

// VerbSource returns a verb's source lines, enforcing the read bit.
func (s *Service) VerbSource(ctx context.Context, tx Tx, actor, oid value.Obj, name string) ([]string, error) {
	verb, _, err := s.FindVerb(ctx, tx, actor, oid, name)
	if err != nil {
		return nil, err
	}
	if verb.Owner != actor && !verb.Flags.Has(VerbRead) && !actorIsWizard(ctx, tx, actor) {
		return nil, denied("PERM_VERB_READ", actor, oid)
	}
	return verb.Source, nil
}

// ListVerbs returns the verbs defined locally on obj that the actor may
// see (read bit, ownership, or wizard).
func (s *Service) ListVerbs(ctx context.Context, tx Tx, actor, oid value.Obj) ([]*Verb, error) {
	obj, err := tx.GetObject(ctx, oid)
	if err != nil {
		return nil, err
	}
	if err := s.CheckObjectRead(ctx, tx, actor, obj); err != nil {
		return nil, err
	}
	verbs, err := tx.ListVerbs(ctx, oid)
	if err != nil {
		return nil, err
	}
	wizard := actorIsWizard(ctx, tx, actor)
	out := verbs[:0]
	for _, v := range verbs {
		if v.Owner == actor || v.Flags.Has(VerbRead) || wizard {
			out = append(out, v)
		}
	}
	return out, nil
}

// ProgramVerb stores a verb's source and compiled form atomically. When
// the verb does not exist yet it is created on obj owned by the actor; the
// caller compiles first, so a failed compile never reaches this point and
// the stored verb is only ever replaced wholesale.
func (s *Service) ProgramVerb(ctx context.Context, tx Tx, actor, oid value.Obj, name string, source []string, compiled []byte) error {
	obj, err := tx.GetObject(ctx, oid)
	if err != nil {
		return err
	}

	verb, definer, err := s.FindVerb(ctx, tx, actor, oid, name)
	switch {
	case err == nil && definer == oid:
		if verb.Owner != actor && !verb.Flags.Has(VerbWrite) && !actorIsWizard(ctx, tx, actor) {
			return denied("PERM_VERB_PROGRAM", actor, oid)
		}
		updated := verb.Clone()
		updated.Source = source
		updated.Compiled = compiled
		return tx.PutVerb(ctx, oid, updated)
	case err == nil || errors.Is(err, ErrNotFound):
		// Defining a new verb (or overriding an inherited one) needs
		// write access to the object and the programmer bit.
		if err := s.CheckObjectWrite(ctx, tx, actor, obj); err != nil {
			return err
		}
		if err := s.checkProgrammer(ctx, tx, actor); err != nil {
			return err
		}
		return tx.PutVerb(ctx, oid, &Verb{
			Names:    []string{name},
			Owner:    actor,
			Flags:    VerbRead | VerbExec,
			Args:     DefaultArgSpec(),
			Source:   source,
			Compiled: compiled,
		})
	default:
		return err
	}
}

// DeleteVerb removes a verb defined locally on obj.
func (s *Service) DeleteVerb(ctx context.Context, tx Tx, actor, oid value.Obj, name string) error {
	verb, err := tx.GetVerb(ctx, oid, name)
	if err != nil {
		return err
	}
	if verb.Owner != actor && !verb.Flags.Has(VerbWrite) && !actorIsWizard(ctx, tx, actor) {
		return denied("PERM_VERB_DELETE", actor, oid)
	}
	return tx.DeleteVerb(ctx, oid, name)
}

func (s *Service) checkProgrammer(ctx context.Context, tx Tx, actor value.Obj) error {
	if !actor.Valid() {
		return nil
	}
	obj, err := tx.GetObject(ctx, actor)
	if err != nil {
		return err
	}
	if !obj.Flags.Has(FlagProgrammer) && !obj.IsWizard() {
		return denied("PERM_NOT_PROGRAMMER", actor, actor)
	}
	return nil
}
