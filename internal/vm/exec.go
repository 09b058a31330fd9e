// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftwood Contributors

package vm

import (
	"context"

	"github.com/driftwood-mud/driftwood/internal/moocode"
	"github.com/driftwood-mud/driftwood/internal/value"
)

// Control-flow signals travel as errors so they unwind nested statement
// execution. They never escape the frame that interprets them, except
// returnSignal which the verb call catches.
type returnSignal struct{ value value.Var }

func (*returnSignal) Error() string { return "return" }

type breakSignal struct{}

func (*breakSignal) Error() string { return "break" }

type continueSignal struct{}

func (*continueSignal) Error() string { return "continue" }

func (in *Interp) execBody(ctx context.Context, f *frame, stmts []*moocode.Statement) (value.Var, error) {
	last := value.None()
	for _, stmt := range stmts {
		v, err := in.execStmt(ctx, f, stmt)
		if err != nil {
			return value.None(), err
		}
		last = v
	}
	return last, nil
}

func (in *Interp) execStmt(ctx context.Context, f *frame, stmt *moocode.Statement) (value.Var, error) {
	if err := in.tick(ctx); err != nil {
		return value.None(), err
	}
	f.line = stmt.Pos.Line

	switch {
	case stmt.If != nil:
		return in.execIf(ctx, f, stmt.If)
	case stmt.While != nil:
		return value.None(), in.execWhile(ctx, f, stmt.While)
	case stmt.For != nil:
		return value.None(), in.execFor(ctx, f, stmt.For)
	case stmt.Try != nil:
		return in.execTry(ctx, f, stmt.Try)
	case stmt.Return != nil:
		return in.execReturn(ctx, f, stmt.Return)
	case stmt.Break != nil:
		return value.None(), &breakSignal{}
	case stmt.Continue != nil:
		return value.None(), &continueSignal{}
	case stmt.Expr != nil:
		return in.evalExpr(ctx, f, stmt.Expr.Expr)
	default:
		return value.None(), nil
	}
}

func (in *Interp) execIf(ctx context.Context, f *frame, s *moocode.IfStmt) (value.Var, error) {
	cond, err := in.evalExpr(ctx, f, s.Cond)
	if err != nil {
		return value.None(), err
	}
	if cond.Truthy() {
		return in.execBody(ctx, f, s.Then)
	}
	for _, arm := range s.ElseIfs {
		cond, err := in.evalExpr(ctx, f, arm.Cond)
		if err != nil {
			return value.None(), err
		}
		if cond.Truthy() {
			return in.execBody(ctx, f, arm.Then)
		}
	}
	return in.execBody(ctx, f, s.Else)
}

func (in *Interp) execWhile(ctx context.Context, f *frame, s *moocode.WhileStmt) error {
	for {
		// Each iteration burns a tick even when the body is empty, so
		// a spinning loop still hits the budget and sees cancellation.
		if err := in.tick(ctx); err != nil {
			return err
		}
		cond, err := in.evalExpr(ctx, f, s.Cond)
		if err != nil {
			return err
		}
		if !cond.Truthy() {
			return nil
		}
		if _, err := in.execBody(ctx, f, s.Body); err != nil {
			switch err.(type) {
			case *breakSignal:
				return nil
			case *continueSignal:
				continue
			default:
				return err
			}
		}
	}
}

func (in *Interp) execFor(ctx context.Context, f *frame, s *moocode.ForStmt) error {
	// Runs one iteration. done reports a break.
	iteration := func(item value.Var) (done bool, err error) {
		if err := in.tick(ctx); err != nil {
			return false, err
		}
		f.vars[s.Var] = item
		if _, err := in.execBody(ctx, f, s.Body); err != nil {
			switch err.(type) {
			case *breakSignal:
				return true, nil
			case *continueSignal:
				return false, nil
			default:
				return false, err
			}
		}
		return false, nil
	}

	if s.ListExpr != nil {
		v, err := in.evalExpr(ctx, f, s.ListExpr)
		if err != nil {
			return err
		}
		list, ok := v.AsList()
		if !ok {
			return in.raiseHere(value.EType, "")
		}
		for _, item := range list {
			done, err := iteration(item)
			if err != nil || done {
				return err
			}
		}
		return nil
	}

	from, err := in.evalIntExpr(ctx, f, s.RangeFrom)
	if err != nil {
		return err
	}
	to, err := in.evalIntExpr(ctx, f, s.RangeTo)
	if err != nil {
		return err
	}
	// Ranges iterate lazily; [1..2000000000] must cost budget, not
	// memory.
	for i := from; i <= to; i++ {
		done, err := iteration(value.Int(i))
		if err != nil || done {
			return err
		}
	}
	return nil
}

func (in *Interp) execTry(ctx context.Context, f *frame, s *moocode.TryStmt) (value.Var, error) {
	v, err := in.execBody(ctx, f, s.Body)
	if err == nil {
		return v, nil
	}
	caught, ok := err.(*raise)
	if !ok {
		return value.None(), err
	}

	for _, arm := range s.Excepts {
		if !armMatches(arm, caught.err.Code) {
			continue
		}
		if arm.Var != "" {
			f.vars[arm.Var] = value.List(
				value.ErrMsg(caught.err.Code, caught.err.Message),
				value.Str(caught.err.Message),
			)
		}
		return in.execBody(ctx, f, arm.Body)
	}
	return value.None(), caught
}

func armMatches(arm *moocode.ExceptArm, code value.ErrCode) bool {
	if arm.Any || len(arm.Code) == 0 {
		return true
	}
	for _, c := range arm.Code {
		if value.ErrCode(c) == code {
			return true
		}
	}
	return false
}

func (in *Interp) execReturn(ctx context.Context, f *frame, s *moocode.ReturnStmt) (value.Var, error) {
	if s.Value == nil {
		return value.None(), &returnSignal{value: value.Int(0)}
	}
	v, err := in.evalExpr(ctx, f, s.Value)
	if err != nil {
		return value.None(), err
	}
	return value.None(), &returnSignal{value: v}
}

func (in *Interp) evalIntExpr(ctx context.Context, f *frame, e *moocode.Expr) (int64, error) {
	v, err := in.evalExpr(ctx, f, e)
	if err != nil {
		return 0, err
	}
	i, ok := v.AsInt()
	if !ok {
		return 0, in.raiseHere(value.EType, "")
	}
	return i, nil
}
