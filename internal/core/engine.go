// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftwood Contributors

package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/oops"

	"github.com/driftwood-mud/driftwood/internal/moocode"
	"github.com/driftwood-mud/driftwood/internal/value"
	"github.com/driftwood-mud/driftwood/internal/vm"
	"github.com/driftwood-mud/driftwood/internal/world"
)

// CompileError reports verb source that failed to parse.
type CompileError struct {
	Parse *moocode.ParseError
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Parse.Line, e.Parse.Message)
}

// Engine runs verb tasks. Each task executes inside one world
// transaction; narrative output is buffered by the interpreter and
// published only after the transaction commits, so an aborted task
// leaks nothing.
type Engine struct {
	World         *world.Service
	Log           EventLog
	Broadcast     *Broadcaster
	Sessions      *SessionManager
	Presentations *PresentationRegistry
	Spools        *SpoolManager
}

// NewEngine wires an engine over the world service and event log.
func NewEngine(svc *world.Service, log EventLog) *Engine {
	return &Engine{
		World:         svc,
		Log:           log,
		Broadcast:     NewBroadcaster(),
		Sessions:      NewSessionManager(log),
		Presentations: NewPresentationRegistry(),
		Spools:        NewSpoolManager(),
	}
}

// Eval compiles and runs an ad-hoc program with the player's own
// permissions. On success the transaction commits and buffered output
// is delivered; an uncaught error rolls the transaction back and the
// player receives a traceback event instead.
func (e *Engine) Eval(ctx context.Context, player value.Obj, source []string) (value.Var, error) {
	prog, parseErr, err := moocode.Parse(source)
	if err != nil {
		if parseErr != nil {
			return value.None(), &CompileError{Parse: parseErr}
		}
		return value.None(), err
	}
	return e.runTask(ctx, player, func(tx world.Tx, in *vm.Interp) (value.Var, error) {
		return in.Eval(ctx, player, prog)
	})
}

// InvokeVerb runs a named verb on an object as the player. The ref is
// resolved inside the task's own transaction, so an object recycled
// after the client named it surfaces as a plain not-found.
func (e *Engine) InvokeVerb(ctx context.Context, player value.Obj, ref world.ObjectRef, verb string, args []value.Var) (value.Var, error) {
	return e.runTask(ctx, player, func(tx world.Tx, in *vm.Interp) (value.Var, error) {
		object, err := e.World.Resolve(ctx, tx, player, ref)
		if err != nil {
			return value.None(), err
		}
		return in.Call(ctx, player, object, verb, args, nil)
	})
}

func (e *Engine) runTask(ctx context.Context, player value.Obj, run func(world.Tx, *vm.Interp) (value.Var, error)) (value.Var, error) {
	tx, err := e.World.Begin(ctx)
	if err != nil {
		return value.None(), oops.Code("TASK_BEGIN_FAILED").Wrap(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	in := vm.New(e.World, tx)
	result, err := run(tx, in)
	if err != nil {
		if raised, ok := err.(*vm.RaisedError); ok {
			_ = tx.Rollback(ctx)
			e.publishTraceback(ctx, player, raised)
		}
		return value.None(), err
	}

	if err := tx.Commit(ctx); err != nil {
		return value.None(), oops.Code("TASK_COMMIT_FAILED").
			With("player", player.String()).
			Wrap(err)
	}
	e.deliver(ctx, in.Effects())
	return result, nil
}

// ProgramVerb compiles source and installs it on a verb, storing both
// the raw lines and the encoded program. The ref resolves inside the
// same transaction that installs, so the target cannot be recycled out
// from under the write.
func (e *Engine) ProgramVerb(ctx context.Context, player value.Obj, ref world.ObjectRef, verb string, source []string) error {
	prog, parseErr, err := moocode.Parse(source)
	if err != nil {
		if parseErr != nil {
			return &CompileError{Parse: parseErr}
		}
		return err
	}
	compiled, err := moocode.Encode(prog)
	if err != nil {
		return err
	}
	return e.mutate(ctx, player, ref, func(tx world.Tx, object value.Obj) error {
		return e.World.ProgramVerb(ctx, tx, player, object, verb, source, compiled)
	})
}

// RemoveVerb deletes a verb definition.
func (e *Engine) RemoveVerb(ctx context.Context, player value.Obj, ref world.ObjectRef, verb string) error {
	return e.mutate(ctx, player, ref, func(tx world.Tx, object value.Obj) error {
		return e.World.DeleteVerb(ctx, tx, player, object, verb)
	})
}

// SetProperty writes a property value through the permission layer.
func (e *Engine) SetProperty(ctx context.Context, player value.Obj, ref world.ObjectRef, name string, val value.Var) error {
	return e.mutate(ctx, player, ref, func(tx world.Tx, object value.Obj) error {
		return e.World.SetPropertyValue(ctx, tx, player, object, name, val)
	})
}

// RemoveProperty deletes a locally defined property.
func (e *Engine) RemoveProperty(ctx context.Context, player value.Obj, ref world.ObjectRef, name string) error {
	return e.mutate(ctx, player, ref, func(tx world.Tx, object value.Obj) error {
		return e.World.DeleteProperty(ctx, tx, player, object, name)
	})
}

// mutate resolves ref and applies fn inside a single committed
// transaction.
func (e *Engine) mutate(ctx context.Context, player value.Obj, ref world.ObjectRef, fn func(world.Tx, value.Obj) error) error {
	tx, err := e.World.Begin(ctx)
	if err != nil {
		return oops.Code("TASK_BEGIN_FAILED").Wrap(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	object, err := e.World.Resolve(ctx, tx, player, ref)
	if err != nil {
		return err
	}
	if err := fn(tx, object); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Notify publishes a line of narrative text to a player, outside any
// verb task.
func (e *Engine) Notify(ctx context.Context, player value.Obj, message string) error {
	return e.publish(ctx, e.newEvent(player, EventMessage, message))
}

// System publishes an out-of-band server notice to a player.
func (e *Engine) System(ctx context.Context, player value.Obj, message string) error {
	return e.publish(ctx, e.newEvent(player, EventSystem, message))
}

// Welcome returns the login banner from $login.welcome_message. The
// property may be a string or a list of lines; a missing property
// yields no banner.
func (e *Engine) Welcome(ctx context.Context) ([]string, error) {
	tx, err := e.World.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	login, _, err := e.World.PropertyValue(ctx, tx, value.Nothing, value.SystemObj, "login")
	if err != nil {
		return nil, nil
	}
	loginObj, ok := login.Value.AsObj()
	if !ok {
		return nil, nil
	}
	prop, _, err := e.World.PropertyValue(ctx, tx, value.Nothing, loginObj, "welcome_message")
	if err != nil {
		return nil, nil
	}
	if s, ok := prop.Value.AsStr(); ok {
		return []string{s}, nil
	}
	if list, ok := prop.Value.AsList(); ok {
		lines := make([]string, 0, len(list))
		for _, v := range list {
			if s, ok := v.AsStr(); ok {
				lines = append(lines, s)
			}
		}
		return lines, nil
	}
	return nil, nil
}

// Unpresent dismisses a presentation by id. Removing an id that was
// never presented still publishes the event; the registry treats it as
// a no-op.
func (e *Engine) Unpresent(ctx context.Context, player value.Obj, id string) error {
	event := e.newEvent(player, EventUnpresent, "")
	event.PresentID = id
	return e.publish(ctx, event)
}

// Submit handles one line of realtime client input. While a spool is
// open the line accumulates (or "." closes and compiles, "@abort"
// discards); "@program <curie>:<verb>" opens a spool; anything else is
// dispatched to #0:do_command with the raw line as its argument.
func (e *Engine) Submit(ctx context.Context, player value.Obj, line string) error {
	if e.Spools.Active(player) {
		return e.submitSpooled(ctx, player, line)
	}
	if target, ok := strings.CutPrefix(line, "@program "); ok {
		return e.openSpool(ctx, player, strings.TrimSpace(target))
	}

	if !e.hasCommandHook(ctx, player) {
		return e.System(ctx, player, "I didn't understand that.")
	}
	_, err := e.InvokeVerb(ctx, player, world.OidRef(value.SystemObj), "do_command", []value.Var{value.Str(line)})
	if _, ok := err.(*vm.RaisedError); ok {
		// The traceback event already reached the player.
		return nil
	}
	return err
}

// hasCommandHook reports whether #0 defines a do_command verb.
func (e *Engine) hasCommandHook(ctx context.Context, player value.Obj) bool {
	tx, err := e.World.Begin(ctx)
	if err != nil {
		return false
	}
	defer func() { _ = tx.Rollback(ctx) }()
	_, _, err = e.World.FindVerb(ctx, tx, player, value.SystemObj, "do_command")
	return err == nil
}

func (e *Engine) submitSpooled(ctx context.Context, player value.Obj, line string) error {
	switch line {
	case ".":
		spool, err := e.Spools.Close(player)
		if err != nil {
			return err
		}
		err = e.ProgramVerb(ctx, player, world.OidRef(spool.Object), spool.Verb, spool.Lines)
		var compileErr *CompileError
		if errors.As(err, &compileErr) {
			return e.System(ctx, player, "Verb not programmed: "+compileErr.Error())
		}
		if err != nil {
			return err
		}
		return e.System(ctx, player, fmt.Sprintf("Verb %s:%s programmed.", spool.Object, spool.Verb))
	case "@abort":
		e.Spools.Abort(player)
		return e.System(ctx, player, "Spool aborted.")
	default:
		return e.Spools.Add(player, line)
	}
}

func (e *Engine) openSpool(ctx context.Context, player value.Obj, target string) error {
	// The CURIE itself contains a colon; the verb is after the last one.
	sep := strings.LastIndex(target, ":")
	if sep < 1 || sep == len(target)-1 {
		return e.System(ctx, player, "Usage: @program <object>:<verb>")
	}
	curie, verb := target[:sep], target[sep+1:]
	ref, err := world.ParseCurie(curie)
	if err != nil {
		return e.System(ctx, player, "I don't see "+curie+" here.")
	}

	tx, err := e.World.Begin(ctx)
	if err != nil {
		return oops.Code("TASK_BEGIN_FAILED").Wrap(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	oid, err := e.World.Resolve(ctx, tx, player, ref)
	if err != nil {
		return e.System(ctx, player, "I don't see "+curie+" here.")
	}
	e.Spools.Open(player, oid, verb)
	return e.System(ctx, player, fmt.Sprintf("Now programming %s:%s. End with \".\" on a line by itself.", oid, verb))
}

// deliver publishes the interpreter's buffered effects in emission
// order after the task's transaction has committed.
func (e *Engine) deliver(ctx context.Context, effects []vm.Effect) {
	for _, eff := range effects {
		var event Event
		switch eff.Kind {
		case vm.EffectNotify:
			event = e.newEvent(eff.Player, EventMessage, eff.Line)
		case vm.EffectPresent:
			event = e.newEvent(eff.Player, EventPresent, "")
			event.Presentation = &Presentation{
				ID:          eff.ID,
				Content:     eff.Content,
				ContentType: eff.ContentType,
				Target:      eff.Target,
				Attributes:  eff.Attributes,
			}
		case vm.EffectUnpresent:
			event = e.newEvent(eff.Player, EventUnpresent, "")
			event.PresentID = eff.ID
		default:
			continue
		}
		if err := e.publish(ctx, event); err != nil {
			slog.Error("effect delivery failed",
				"player", eff.Player.String(),
				"kind", event.Kind,
				"error", err,
			)
		}
	}
}

func (e *Engine) publishTraceback(ctx context.Context, player value.Obj, raised *vm.RaisedError) {
	event := e.newEvent(player, EventTraceback, raised.Err.Message)
	event.Traceback = raised.Traceback
	if err := e.publish(ctx, event); err != nil {
		slog.Error("traceback delivery failed",
			"player", player.String(),
			"error", err,
		)
	}
}

func (e *Engine) newEvent(player value.Obj, kind EventKind, message string) Event {
	return Event{
		ID:        NewULID(),
		Stream:    PlayerStream(player),
		Player:    player,
		Kind:      kind,
		Timestamp: time.Now().UTC(),
		Message:   message,
	}
}

// publish appends the event to the log, folds it into presentation
// state, and fans it out to live subscribers.
func (e *Engine) publish(ctx context.Context, event Event) error {
	if err := e.Log.Append(ctx, event); err != nil {
		return oops.Code("EVENT_APPEND_FAILED").
			With("stream", event.Stream).
			Wrap(err)
	}
	e.Presentations.Apply(event)
	e.Broadcast.Broadcast(event)
	return nil
}
