// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftwood Contributors

package vm

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/driftwood-mud/driftwood/internal/moocode"
	"github.com/driftwood-mud/driftwood/internal/value"
	"github.com/driftwood-mud/driftwood/internal/world"
)

func (in *Interp) evalExpr(ctx context.Context, f *frame, e *moocode.Expr) (value.Var, error) {
	if e.Right == nil {
		return in.evalTernary(ctx, f, e.Left)
	}
	v, err := in.evalExpr(ctx, f, e.Right)
	if err != nil {
		return value.None(), err
	}
	if err := in.assign(ctx, f, e.Left, v); err != nil {
		return value.None(), err
	}
	return v, nil
}

func (in *Interp) evalTernary(ctx context.Context, f *frame, t *moocode.Ternary) (value.Var, error) {
	cond, err := in.evalOr(ctx, f, t.Cond)
	if err != nil {
		return value.None(), err
	}
	if t.Then == nil {
		return cond, nil
	}
	if cond.Truthy() {
		return in.evalExpr(ctx, f, t.Then)
	}
	return in.evalExpr(ctx, f, t.Else)
}

func (in *Interp) evalOr(ctx context.Context, f *frame, e *moocode.OrExpr) (value.Var, error) {
	v, err := in.evalAnd(ctx, f, e.First)
	if err != nil {
		return value.None(), err
	}
	for _, rest := range e.Rest {
		if v.Truthy() {
			return v, nil
		}
		v, err = in.evalAnd(ctx, f, rest)
		if err != nil {
			return value.None(), err
		}
	}
	return v, nil
}

func (in *Interp) evalAnd(ctx context.Context, f *frame, e *moocode.AndExpr) (value.Var, error) {
	v, err := in.evalCmp(ctx, f, e.First)
	if err != nil {
		return value.None(), err
	}
	for _, rest := range e.Rest {
		if !v.Truthy() {
			return v, nil
		}
		v, err = in.evalCmp(ctx, f, rest)
		if err != nil {
			return value.None(), err
		}
	}
	return v, nil
}

func (in *Interp) evalCmp(ctx context.Context, f *frame, e *moocode.CmpExpr) (value.Var, error) {
	v, err := in.evalAdd(ctx, f, e.First)
	if err != nil {
		return value.None(), err
	}
	for _, step := range e.Rest {
		rhs, err := in.evalAdd(ctx, f, step.Operand)
		if err != nil {
			return value.None(), err
		}
		v, err = in.compare(step.Op, v, rhs)
		if err != nil {
			return value.None(), err
		}
	}
	return v, nil
}

func (in *Interp) evalAdd(ctx context.Context, f *frame, e *moocode.AddExpr) (value.Var, error) {
	v, err := in.evalMul(ctx, f, e.First)
	if err != nil {
		return value.None(), err
	}
	for _, step := range e.Rest {
		rhs, err := in.evalMul(ctx, f, step.Operand)
		if err != nil {
			return value.None(), err
		}
		v, err = in.arith(step.Op, v, rhs)
		if err != nil {
			return value.None(), err
		}
	}
	return v, nil
}

func (in *Interp) evalMul(ctx context.Context, f *frame, e *moocode.MulExpr) (value.Var, error) {
	v, err := in.evalUnary(ctx, f, e.First)
	if err != nil {
		return value.None(), err
	}
	for _, step := range e.Rest {
		rhs, err := in.evalUnary(ctx, f, step.Operand)
		if err != nil {
			return value.None(), err
		}
		v, err = in.arith(step.Op, v, rhs)
		if err != nil {
			return value.None(), err
		}
	}
	return v, nil
}

func (in *Interp) evalUnary(ctx context.Context, f *frame, e *moocode.Unary) (value.Var, error) {
	v, err := in.evalPostfix(ctx, f, e.Postfix)
	if err != nil {
		return value.None(), err
	}
	switch e.Op {
	case "":
		return v, nil
	case "!":
		return boolInt(!v.Truthy()), nil
	case "-":
		if i, ok := v.AsInt(); ok {
			return value.Int(-i), nil
		}
		if fl, ok := v.AsFloat(); ok {
			return value.Float(-fl), nil
		}
		return value.None(), in.raiseHere(value.EType, "")
	default:
		return value.None(), in.raiseHere(value.EType, "")
	}
}

func (in *Interp) evalPostfix(ctx context.Context, f *frame, e *moocode.Postfix) (value.Var, error) {
	v, err := in.evalPrimary(ctx, f, e.Primary)
	if err != nil {
		return value.None(), err
	}
	for _, op := range e.Ops {
		v, err = in.applyPostfix(ctx, f, v, op)
		if err != nil {
			return value.None(), err
		}
	}
	return v, nil
}

func (in *Interp) applyPostfix(ctx context.Context, f *frame, base value.Var, op *moocode.PostfixOp) (value.Var, error) {
	switch {
	case op.Prop != "":
		return in.readProperty(ctx, f, base, op.Prop)
	case op.Verb != nil:
		oid, ok := base.AsObj()
		if !ok {
			return value.None(), in.raiseHere(value.EType, "")
		}
		args, err := in.evalArgs(ctx, f, op.Verb.Args)
		if err != nil {
			return value.None(), err
		}
		return in.call(ctx, f.player, oid, op.Verb.Name, args, nil)
	case op.Index != nil:
		return in.applyIndex(ctx, f, base, op.Index)
	default:
		return value.None(), in.raiseHere(value.EType, "")
	}
}

func (in *Interp) readProperty(ctx context.Context, f *frame, base value.Var, name string) (value.Var, error) {
	oid, ok := base.AsObj()
	if !ok {
		return value.None(), in.raiseHere(value.EType, "")
	}
	// Intrinsic attributes read like properties.
	switch strings.ToLower(name) {
	case "name", "owner", "parent", "location", "contents", "wizard", "programmer":
		return in.intrinsic(ctx, f, oid, strings.ToLower(name))
	}
	prop, _, err := in.svc.PropertyValue(ctx, in.tx, f.programmer, oid, name)
	if err != nil {
		if errors.Is(err, world.ErrNotFound) {
			// Distinguish a missing object from a missing property.
			if _, gerr := in.tx.GetObject(ctx, oid); gerr != nil {
				return value.None(), in.raiseHere(value.EInvInd, "")
			}
			return value.None(), in.raiseHere(value.EPropNF, "")
		}
		return value.None(), in.worldErr(err)
	}
	return prop.Value, nil
}

func (in *Interp) intrinsic(ctx context.Context, f *frame, oid value.Obj, name string) (value.Var, error) {
	obj, err := in.tx.GetObject(ctx, oid)
	if err != nil {
		return value.None(), in.raiseHere(value.EInvInd, "")
	}
	switch name {
	case "name":
		return value.Str(obj.Name), nil
	case "owner":
		return value.Object(obj.Owner), nil
	case "parent":
		return value.Object(obj.Parent), nil
	case "location":
		return value.Object(obj.Location), nil
	case "contents":
		ids, err := in.tx.Contents(ctx, oid)
		if err != nil {
			return value.None(), in.worldErr(err)
		}
		return objList(ids), nil
	case "wizard":
		return boolInt(obj.IsWizard()), nil
	case "programmer":
		return boolInt(obj.Flags&world.FlagProgrammer != 0), nil
	default:
		return value.None(), in.raiseHere(value.EPropNF, "")
	}
}

func (in *Interp) applyIndex(ctx context.Context, f *frame, base value.Var, idx *moocode.IndexOp) (value.Var, error) {
	if idx.To != nil {
		return in.applyRange(ctx, f, base, idx)
	}
	key, err := in.evalExpr(ctx, f, idx.From)
	if err != nil {
		return value.None(), err
	}
	return in.indexValue(base, key)
}

func (in *Interp) indexValue(base, key value.Var) (value.Var, error) {
	switch base.Kind() {
	case value.KindList:
		list, _ := base.AsList()
		i, ok := key.AsInt()
		if !ok {
			return value.None(), in.raiseHere(value.EType, "")
		}
		if i < 1 || i > int64(len(list)) {
			return value.None(), in.raiseHere(value.ERange, "")
		}
		return list[i-1], nil
	case value.KindStr:
		s, _ := base.AsStr()
		i, ok := key.AsInt()
		if !ok {
			return value.None(), in.raiseHere(value.EType, "")
		}
		if i < 1 || i > int64(len(s)) {
			return value.None(), in.raiseHere(value.ERange, "")
		}
		return value.Str(string(s[i-1])), nil
	case value.KindMap:
		m, _ := base.AsMap()
		v, ok := m.Get(key)
		if !ok {
			return value.None(), in.raiseHere(value.ERange, "")
		}
		return v, nil
	default:
		return value.None(), in.raiseHere(value.EType, "")
	}
}

func (in *Interp) applyRange(ctx context.Context, f *frame, base value.Var, idx *moocode.IndexOp) (value.Var, error) {
	from, err := in.evalIntExpr(ctx, f, idx.From)
	if err != nil {
		return value.None(), err
	}
	to, err := in.evalIntExpr(ctx, f, idx.To)
	if err != nil {
		return value.None(), err
	}
	switch base.Kind() {
	case value.KindList:
		list, _ := base.AsList()
		if from > to {
			return value.List(), nil
		}
		if from < 1 || to > int64(len(list)) {
			return value.None(), in.raiseHere(value.ERange, "")
		}
		out := make([]value.Var, to-from+1)
		copy(out, list[from-1:to])
		return value.List(out...), nil
	case value.KindStr:
		s, _ := base.AsStr()
		if from > to {
			return value.Str(""), nil
		}
		if from < 1 || to > int64(len(s)) {
			return value.None(), in.raiseHere(value.ERange, "")
		}
		return value.Str(s[from-1 : to]), nil
	default:
		return value.None(), in.raiseHere(value.EType, "")
	}
}

func (in *Interp) evalPrimary(ctx context.Context, f *frame, p *moocode.Primary) (value.Var, error) {
	switch {
	case p.Float != nil:
		return value.Float(*p.Float), nil
	case p.Int != nil:
		return value.Int(*p.Int), nil
	case p.Str != nil:
		return value.Str(*p.Str), nil
	case p.Object != nil:
		oid, err := strconv.ParseInt(strings.TrimPrefix(*p.Object, "#"), 10, 64)
		if err != nil {
			return value.None(), in.raiseHere(value.EInvArg, "")
		}
		return value.Object(value.Obj(oid)), nil
	case p.ErrLit != nil:
		code, ok := value.ParseErrCode(*p.ErrLit)
		if !ok {
			return value.None(), in.raiseHere(value.EInvArg, "")
		}
		return value.Err(code), nil
	case p.SysProp != nil:
		return in.readProperty(ctx, f, value.Object(value.SystemObj), *p.SysProp)
	case p.Call != nil:
		args, err := in.evalArgs(ctx, f, p.Call.Args)
		if err != nil {
			return value.None(), err
		}
		return in.callBuiltin(ctx, f, p.Call.Name, args)
	case p.Ident != nil:
		v, ok := f.vars[*p.Ident]
		if !ok {
			return value.None(), in.raiseHere(value.EVarNF, "")
		}
		return v, nil
	case p.List != nil:
		elems, err := in.evalArgs(ctx, f, p.List.Elems)
		if err != nil {
			return value.None(), err
		}
		return value.List(elems...), nil
	case p.MapLit != nil:
		m := value.NewMap()
		for _, pair := range p.MapLit.Pairs {
			k, err := in.evalExpr(ctx, f, pair.Key)
			if err != nil {
				return value.None(), err
			}
			v, err := in.evalExpr(ctx, f, pair.Value)
			if err != nil {
				return value.None(), err
			}
			m.Set(k, v)
		}
		return value.MapVar(m), nil
	case p.Paren != nil:
		return in.evalExpr(ctx, f, p.Paren)
	default:
		return value.None(), in.raiseHere(value.EInvArg, "")
	}
}

// evalArgs evaluates a call argument list, expanding @splices in place.
func (in *Interp) evalArgs(ctx context.Context, f *frame, args []*moocode.Arg) ([]value.Var, error) {
	out := make([]value.Var, 0, len(args))
	for _, a := range args {
		v, err := in.evalExpr(ctx, f, a.Expr)
		if err != nil {
			return nil, err
		}
		if !a.Splice {
			out = append(out, v)
			continue
		}
		list, ok := v.AsList()
		if !ok {
			return nil, in.raiseHere(value.EType, "")
		}
		out = append(out, list...)
	}
	return out, nil
}

// compare implements ==, !=, <, <=, >, >=, and in. String comparison is
// case-insensitive, matching the membership operator.
func (in *Interp) compare(op string, lhs, rhs value.Var) (value.Var, error) {
	switch op {
	case "==":
		return boolInt(mooEqual(lhs, rhs)), nil
	case "!=":
		return boolInt(!mooEqual(lhs, rhs)), nil
	case "in":
		list, ok := rhs.AsList()
		if !ok {
			return value.None(), in.raiseHere(value.EType, "")
		}
		for i, elem := range list {
			if mooEqual(lhs, elem) {
				return value.Int(int64(i + 1)), nil
			}
		}
		return value.Int(0), nil
	}

	cmp, err := in.order(lhs, rhs)
	if err != nil {
		return value.None(), err
	}
	switch op {
	case "<":
		return boolInt(cmp < 0), nil
	case "<=":
		return boolInt(cmp <= 0), nil
	case ">":
		return boolInt(cmp > 0), nil
	case ">=":
		return boolInt(cmp >= 0), nil
	default:
		return value.None(), in.raiseHere(value.EType, "")
	}
}

func (in *Interp) order(lhs, rhs value.Var) (int, error) {
	if li, ok := lhs.AsInt(); ok {
		if ri, ok := rhs.AsInt(); ok {
			return cmpOrdered(li, ri), nil
		}
	}
	if lf, ok := lhs.AsFloat(); ok {
		if rf, ok := rhs.AsFloat(); ok {
			return cmpOrdered(lf, rf), nil
		}
	}
	if ls, ok := lhs.AsStr(); ok {
		if rs, ok := rhs.AsStr(); ok {
			return cmpOrdered(strings.ToLower(ls), strings.ToLower(rs)), nil
		}
	}
	if lo, ok := lhs.AsObj(); ok {
		if ro, ok := rhs.AsObj(); ok {
			return cmpOrdered(int64(lo), int64(ro)), nil
		}
	}
	return 0, in.raiseHere(value.EType, "")
}

func cmpOrdered[T int64 | float64 | string](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// mooEqual is value equality with case-insensitive strings.
func mooEqual(a, b value.Var) bool {
	if as, ok := a.AsStr(); ok {
		if bs, ok := b.AsStr(); ok {
			return strings.EqualFold(as, bs)
		}
	}
	return a.Equal(b)
}

// arith implements +, -, *, /, %. Operands must share a numeric kind;
// + additionally concatenates strings and appends lists.
func (in *Interp) arith(op string, lhs, rhs value.Var) (value.Var, error) {
	if li, ok := lhs.AsInt(); ok {
		ri, ok := rhs.AsInt()
		if !ok {
			return value.None(), in.raiseHere(value.EType, "")
		}
		return in.intArith(op, li, ri)
	}
	if lf, ok := lhs.AsFloat(); ok {
		rf, ok := rhs.AsFloat()
		if !ok {
			return value.None(), in.raiseHere(value.EType, "")
		}
		return in.floatArith(op, lf, rf)
	}
	if ls, ok := lhs.AsStr(); ok {
		rs, ok := rhs.AsStr()
		if !ok || op != "+" {
			return value.None(), in.raiseHere(value.EType, "")
		}
		return value.Str(ls + rs), nil
	}
	if ll, ok := lhs.AsList(); ok {
		rl, ok := rhs.AsList()
		if !ok || op != "+" {
			return value.None(), in.raiseHere(value.EType, "")
		}
		out := make([]value.Var, 0, len(ll)+len(rl))
		out = append(out, ll...)
		out = append(out, rl...)
		return value.List(out...), nil
	}
	return value.None(), in.raiseHere(value.EType, "")
}

func (in *Interp) intArith(op string, a, b int64) (value.Var, error) {
	switch op {
	case "+":
		return value.Int(a + b), nil
	case "-":
		return value.Int(a - b), nil
	case "*":
		return value.Int(a * b), nil
	case "/":
		if b == 0 {
			return value.None(), in.raiseHere(value.EDiv, "")
		}
		return value.Int(a / b), nil
	case "%":
		if b == 0 {
			return value.None(), in.raiseHere(value.EDiv, "")
		}
		return value.Int(a % b), nil
	default:
		return value.None(), in.raiseHere(value.EType, "")
	}
}

func (in *Interp) floatArith(op string, a, b float64) (value.Var, error) {
	switch op {
	case "+":
		return value.Float(a + b), nil
	case "-":
		return value.Float(a - b), nil
	case "*":
		return value.Float(a * b), nil
	case "/":
		if b == 0 {
			return value.None(), in.raiseHere(value.EDiv, "")
		}
		return value.Float(a / b), nil
	default:
		return value.None(), in.raiseHere(value.EType, "")
	}
}

func boolInt(b bool) value.Var {
	if b {
		return value.Int(1)
	}
	return value.Int(0)
}

func objList(ids []value.Obj) value.Var {
	out := make([]value.Var, len(ids))
	for i, id := range ids {
		out[i] = value.Object(id)
	}
	return value.List(out...)
}
