// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftwood Contributors

// Package vm executes compiled MOO verb programs against the object
// world. Execution happens inside a world transaction; outward side
// effects (notify, present) are buffered as Effects and only delivered
// by the caller after the transaction commits.
package vm

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/oops"

	"github.com/driftwood-mud/driftwood/internal/moocode"
	"github.com/driftwood-mud/driftwood/internal/value"
	"github.com/driftwood-mud/driftwood/internal/world"
)

const (
	// DefaultMaxTicks bounds the number of evaluation steps in one task.
	DefaultMaxTicks = 300_000
	// DefaultMaxDepth bounds the verb call stack.
	DefaultMaxDepth = 50
)

// RaisedError is a MOO-level error that escaped every except arm. It
// carries the human-readable traceback, outermost frame last.
type RaisedError struct {
	Err       *value.Error
	Traceback []string
}

func (e *RaisedError) Error() string {
	return fmt.Sprintf("uncaught %s: %s", e.Err.Code, e.Err.Message)
}

// Option configures an Interp.
type Option func(*Interp)

// WithMaxTicks overrides the tick budget.
func WithMaxTicks(n int) Option { return func(in *Interp) { in.maxTicks = n } }

// WithMaxDepth overrides the call stack limit.
func WithMaxDepth(n int) Option { return func(in *Interp) { in.maxDepth = n } }

// Interp runs MOO programs within a single world transaction. It is not
// safe for concurrent use; each task gets its own Interp.
type Interp struct {
	svc *world.Service
	tx  world.Tx

	maxTicks int
	maxDepth int
	ticks    int

	stack   []*frame
	effects []Effect
}

// New returns an interpreter bound to the given transaction.
func New(svc *world.Service, tx world.Tx, opts ...Option) *Interp {
	in := &Interp{
		svc:      svc,
		tx:       tx,
		maxTicks: DefaultMaxTicks,
		maxDepth: DefaultMaxDepth,
	}
	for _, o := range opts {
		o(in)
	}
	return in
}

// Effects returns the side effects buffered so far, in emission order.
// The caller delivers them only after the transaction commits.
func (in *Interp) Effects() []Effect { return in.effects }

// frame is one verb activation. Variables are verb-local; permissions
// come from the frame's programmer.
type frame struct {
	this       value.Obj
	player     value.Obj
	caller     value.Obj
	programmer value.Obj
	verb       string
	line       int
	vars       map[string]value.Var
}

// Call invokes a verb on an object, resolving through the inheritance
// chain. Command-style environment variables (dobj, argstr, ...) may be
// passed in env and are merged over the standard bindings.
func (in *Interp) Call(ctx context.Context, player, this value.Obj, verbName string, args []value.Var, env map[string]value.Var) (value.Var, error) {
	v, err := in.call(ctx, player, this, verbName, args, env)
	if err != nil {
		if raised, ok := err.(*raise); ok {
			return value.None(), in.uncaught(raised)
		}
		return value.None(), err
	}
	return v, nil
}

// Eval runs an ad-hoc program with the player's own permissions. The
// player must hold the programmer flag; wizards may evaluate anything.
func (in *Interp) Eval(ctx context.Context, player value.Obj, prog *moocode.Program) (value.Var, error) {
	p, err := in.tx.GetObject(ctx, player)
	if err != nil {
		return value.None(), err
	}
	if !p.IsWizard() && p.Flags&world.FlagProgrammer == 0 {
		return value.None(), world.ErrPermissionDenied
	}

	f := &frame{
		this:       player,
		player:     player,
		caller:     player,
		programmer: player,
		verb:       "eval",
		vars:       map[string]value.Var{},
	}
	in.seedVars(f, nil)

	in.stack = append(in.stack, f)
	defer func() { in.stack = in.stack[:len(in.stack)-1] }()

	v, err := in.execBody(ctx, f, prog.Statements)
	if err != nil {
		switch sig := err.(type) {
		case *returnSignal:
			return sig.value, nil
		case *raise:
			return value.None(), in.uncaught(sig)
		default:
			return value.None(), err
		}
	}
	return v, nil
}

func (in *Interp) call(ctx context.Context, player, this value.Obj, verbName string, args []value.Var, env map[string]value.Var) (value.Var, error) {
	if len(in.stack) >= in.maxDepth {
		return value.None(), in.raiseHere(value.EMaxRec, "")
	}

	caller := value.Nothing
	if len(in.stack) > 0 {
		caller = in.top().this
	}

	actor := player
	if len(in.stack) > 0 {
		actor = in.top().programmer
	}
	verb, definer, err := in.svc.FindVerb(ctx, in.tx, actor, this, verbName)
	if err != nil {
		if errors.Is(err, world.ErrNotFound) || errors.Is(err, world.ErrRecycled) {
			return value.None(), in.raiseHere(value.EVerbNF, "")
		}
		return value.None(), in.worldErr(err)
	}
	if verb.Flags&world.VerbExec == 0 {
		return value.None(), in.raiseHere(value.EVerbNF, "")
	}

	prog, err := in.program(verb, definer)
	if err != nil {
		return value.None(), err
	}

	f := &frame{
		this:       this,
		player:     player,
		caller:     caller,
		programmer: verb.Owner,
		verb:       verb.Names[0],
		vars:       map[string]value.Var{},
	}
	in.seedVars(f, args)
	for k, v := range env {
		f.vars[k] = v
	}

	in.stack = append(in.stack, f)
	defer func() { in.stack = in.stack[:len(in.stack)-1] }()

	if _, err := in.execBody(ctx, f, prog.Statements); err != nil {
		if ret, ok := err.(*returnSignal); ok {
			return ret.value, nil
		}
		return value.None(), err
	}
	// Falling off the end of a verb yields 0.
	return value.Int(0), nil
}

// program decodes the stored compiled form, recompiling from source if
// the stored form is missing or stale.
func (in *Interp) program(verb *world.Verb, definer value.Obj) (*moocode.Program, error) {
	if len(verb.Compiled) > 0 {
		if prog, err := moocode.Decode(verb.Compiled); err == nil {
			return prog, nil
		}
	}
	prog, perr, err := moocode.Parse(verb.Source)
	if err != nil {
		return nil, err
	}
	if perr != nil {
		return nil, oops.Code("VERB_NOT_COMPILED").
			With("object", definer.String()).
			With("verb", verb.Names[0]).
			Wrap(perr)
	}
	return prog, nil
}

func (in *Interp) seedVars(f *frame, args []value.Var) {
	if args == nil {
		args = []value.Var{}
	}
	f.vars["this"] = value.Object(f.this)
	f.vars["player"] = value.Object(f.player)
	f.vars["caller"] = value.Object(f.caller)
	f.vars["verb"] = value.Str(f.verb)
	f.vars["args"] = value.List(args...)
}

func (in *Interp) top() *frame { return in.stack[len(in.stack)-1] }

// tick burns one unit of the budget, checking for cancellation.
func (in *Interp) tick(ctx context.Context) error {
	in.ticks++
	if in.ticks > in.maxTicks {
		return in.raiseHere(value.EQuota, "Task ran out of ticks")
	}
	if in.ticks%1024 == 0 {
		if err := ctx.Err(); err != nil {
			return oops.Code("TASK_CANCELLED").Wrap(err)
		}
	}
	return nil
}

// raise is the in-flight form of a MOO error, unwound through statement
// execution until an except arm catches it.
type raise struct {
	err    *value.Error
	frames []string
}

func (r *raise) Error() string { return r.err.Error() }

// raiseHere raises code from the current frame, capturing the stack.
func (in *Interp) raiseHere(code value.ErrCode, msg string) *raise {
	if msg == "" {
		msg = code.Message()
	}
	return &raise{err: &value.Error{Code: code, Message: msg}, frames: in.stackTrace()}
}

func (in *Interp) raiseErr(e *value.Error) *raise {
	return &raise{err: e, frames: in.stackTrace()}
}

func (in *Interp) stackTrace() []string {
	lines := make([]string, 0, len(in.stack))
	for i := len(in.stack) - 1; i >= 0; i-- {
		f := in.stack[i]
		if i == len(in.stack)-1 {
			lines = append(lines, fmt.Sprintf("%s:%s, line %d", f.this, f.verb, f.line))
		} else {
			lines = append(lines, fmt.Sprintf("... called from %s:%s, line %d", f.this, f.verb, f.line))
		}
	}
	return lines
}

func (in *Interp) uncaught(r *raise) *RaisedError {
	tb := make([]string, 0, len(r.frames)+1)
	if len(r.frames) > 0 {
		tb = append(tb, fmt.Sprintf("%s: %s", r.frames[0], r.err.Message))
		tb = append(tb, r.frames[1:]...)
	}
	tb = append(tb, "(End of traceback)")
	return &RaisedError{Err: r.err, Traceback: tb}
}

// worldErr converts a world-layer failure into the equivalent MOO error
// raise. Infrastructure failures pass through untouched and abort the
// task.
func (in *Interp) worldErr(err error) error {
	switch {
	case errors.Is(err, world.ErrPermissionDenied):
		return in.raiseHere(value.EPerm, "")
	case errors.Is(err, world.ErrNotFound), errors.Is(err, world.ErrRecycled):
		return in.raiseHere(value.EInvInd, "")
	case errors.Is(err, world.ErrRecursiveMove):
		return in.raiseHere(value.ERecMov, "")
	case errors.Is(err, world.ErrAmbiguous), errors.Is(err, world.ErrFailedMatch):
		return in.raiseHere(value.EInvArg, "")
	default:
		return err
	}
}
