// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftwood Contributors

package vm

import (
	"context"
	"errors"
	"strings"

	"github.com/driftwood-mud/driftwood/internal/moocode"
	"github.com/driftwood-mud/driftwood/internal/value"
	"github.com/driftwood-mud/driftwood/internal/world"
)

// assign stores v into the target expression. Valid targets are a plain
// variable, a property access, or an index chain rooted at either.
func (in *Interp) assign(ctx context.Context, f *frame, target *moocode.Ternary, v value.Var) error {
	post, ok := lvaluePostfix(target)
	if !ok {
		return in.raiseHere(value.EInvArg, "")
	}

	// Plain variable.
	if len(post.Ops) == 0 {
		if post.Primary.Ident == nil {
			return in.raiseHere(value.EInvArg, "")
		}
		f.vars[*post.Primary.Ident] = v
		return nil
	}

	last := post.Ops[len(post.Ops)-1]
	switch {
	case last.Prop != "":
		base, err := in.evalPostfixPrefix(ctx, f, post, len(post.Ops)-1)
		if err != nil {
			return err
		}
		oid, ok := base.AsObj()
		if !ok {
			return in.raiseHere(value.EType, "")
		}
		return in.writeProperty(ctx, f, oid, last.Prop, v)

	case last.Index != nil && last.Index.To == nil:
		return in.assignIndexed(ctx, f, post, v)

	default:
		return in.raiseHere(value.EInvArg, "")
	}
}

// assignIndexed handles `x[i] = v`, `x.p[i] = v`, and deeper chains by
// rebuilding the container from the inside out and storing it back into
// the root variable or property.
func (in *Interp) assignIndexed(ctx context.Context, f *frame, post *moocode.Postfix, v value.Var) error {
	// Locate the start of the trailing index run.
	start := len(post.Ops)
	for start > 0 && post.Ops[start-1].Index != nil && post.Ops[start-1].Index.To == nil {
		start--
	}

	keys := make([]value.Var, 0, len(post.Ops)-start)
	for _, op := range post.Ops[start:] {
		k, err := in.evalExpr(ctx, f, op.Index.From)
		if err != nil {
			return err
		}
		keys = append(keys, k)
	}

	container, err := in.evalPostfixPrefix(ctx, f, post, start)
	if err != nil {
		return err
	}
	updated, err := in.setIn(container, keys, v)
	if err != nil {
		return err
	}

	// Store the rebuilt container back at its root.
	if start == 0 {
		if post.Primary.Ident == nil {
			return in.raiseHere(value.EInvArg, "")
		}
		f.vars[*post.Primary.Ident] = updated
		return nil
	}
	rootOp := post.Ops[start-1]
	if rootOp.Prop == "" {
		return in.raiseHere(value.EInvArg, "")
	}
	base, err := in.evalPostfixPrefix(ctx, f, post, start-1)
	if err != nil {
		return err
	}
	oid, ok := base.AsObj()
	if !ok {
		return in.raiseHere(value.EType, "")
	}
	return in.writeProperty(ctx, f, oid, rootOp.Prop, updated)
}

// setIn returns container with the value at the key path replaced.
func (in *Interp) setIn(container value.Var, keys []value.Var, v value.Var) (value.Var, error) {
	if len(keys) == 0 {
		return v, nil
	}
	key := keys[0]
	switch container.Kind() {
	case value.KindList:
		list, _ := container.AsList()
		i, ok := key.AsInt()
		if !ok {
			return value.None(), in.raiseHere(value.EType, "")
		}
		if i < 1 || i > int64(len(list)) {
			return value.None(), in.raiseHere(value.ERange, "")
		}
		inner, err := in.setIn(list[i-1], keys[1:], v)
		if err != nil {
			return value.None(), err
		}
		out := make([]value.Var, len(list))
		copy(out, list)
		out[i-1] = inner
		return value.List(out...), nil
	case value.KindMap:
		m, _ := container.AsMap()
		var inner value.Var
		if len(keys) > 1 {
			cur, ok := m.Get(key)
			if !ok {
				return value.None(), in.raiseHere(value.ERange, "")
			}
			var err error
			inner, err = in.setIn(cur, keys[1:], v)
			if err != nil {
				return value.None(), err
			}
		} else {
			inner = v
		}
		out := m.Clone()
		out.Set(key, inner)
		return value.MapVar(out), nil
	case value.KindStr:
		s, _ := container.AsStr()
		i, ok := key.AsInt()
		if !ok {
			return value.None(), in.raiseHere(value.EType, "")
		}
		if i < 1 || i > int64(len(s)) {
			return value.None(), in.raiseHere(value.ERange, "")
		}
		repl, ok := v.AsStr()
		if !ok || len(repl) != 1 || len(keys) > 1 {
			return value.None(), in.raiseHere(value.EType, "")
		}
		return value.Str(s[:i-1] + repl + s[i:]), nil
	default:
		return value.None(), in.raiseHere(value.EType, "")
	}
}

// evalPostfixPrefix evaluates the primary plus the first n postfix ops.
func (in *Interp) evalPostfixPrefix(ctx context.Context, f *frame, post *moocode.Postfix, n int) (value.Var, error) {
	v, err := in.evalPrimary(ctx, f, post.Primary)
	if err != nil {
		return value.None(), err
	}
	for _, op := range post.Ops[:n] {
		v, err = in.applyPostfix(ctx, f, v, op)
		if err != nil {
			return value.None(), err
		}
	}
	return v, nil
}

func (in *Interp) writeProperty(ctx context.Context, f *frame, oid value.Obj, name string, v value.Var) error {
	// Intrinsic attributes write through to the object row.
	switch strings.ToLower(name) {
	case "name":
		s, ok := v.AsStr()
		if !ok {
			return in.raiseHere(value.EType, "")
		}
		return in.updateObject(ctx, f, oid, func(o *world.Object) { o.Name = s })
	case "owner":
		who, ok := v.AsObj()
		if !ok {
			return in.raiseHere(value.EType, "")
		}
		return in.updateObject(ctx, f, oid, func(o *world.Object) { o.Owner = who })
	case "parent", "location", "contents", "wizard", "programmer":
		return in.raiseHere(value.EPerm, "")
	}

	err := in.svc.SetPropertyValue(ctx, in.tx, f.programmer, oid, name, v)
	if err != nil {
		if errors.Is(err, world.ErrNotFound) {
			if _, gerr := in.tx.GetObject(ctx, oid); gerr != nil {
				return in.raiseHere(value.EInvInd, "")
			}
			return in.raiseHere(value.EPropNF, "")
		}
		return in.worldErr(err)
	}
	return nil
}

// updateObject mutates the object row; only the owner or a wizard may.
func (in *Interp) updateObject(ctx context.Context, f *frame, oid value.Obj, mut func(*world.Object)) error {
	obj, err := in.tx.GetObject(ctx, oid)
	if err != nil {
		return in.raiseHere(value.EInvInd, "")
	}
	if err := in.svc.CheckObjectWrite(ctx, in.tx, f.programmer, obj); err != nil {
		return in.worldErr(err)
	}
	mut(obj)
	if err := in.tx.UpdateObject(ctx, obj); err != nil {
		return in.worldErr(err)
	}
	return nil
}

// lvaluePostfix unwraps a ternary down to a bare postfix expression.
// Anything with operators in the chain is not assignable.
func lvaluePostfix(t *moocode.Ternary) (*moocode.Postfix, bool) {
	if t.Then != nil {
		return nil, false
	}
	or := t.Cond
	if len(or.Rest) > 0 {
		return nil, false
	}
	and := or.First
	if len(and.Rest) > 0 {
		return nil, false
	}
	cmp := and.First
	if len(cmp.Rest) > 0 {
		return nil, false
	}
	add := cmp.First
	if len(add.Rest) > 0 {
		return nil, false
	}
	mul := add.First
	if len(mul.Rest) > 0 {
		return nil, false
	}
	unary := mul.First
	if unary.Op != "" {
		return nil, false
	}
	return unary.Postfix, true
}
