// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftwood Contributors

package vm_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftwood-mud/driftwood/internal/moocode"
	"github.com/driftwood-mud/driftwood/internal/value"
	"github.com/driftwood-mud/driftwood/internal/vm"
	"github.com/driftwood-mud/driftwood/internal/world"
	"github.com/driftwood-mud/driftwood/pkg/errutil"
)

const (
	objSystem = value.Obj(0)
	objRoom   = value.Obj(1)
	objWizard = value.Obj(2)
	objPlayer = value.Obj(3)
	objThing  = value.Obj(4)
)

// buildWorld seeds #0 system, #1 room, #2 wizard, #3 programmer player,
// #4 a readable thing owned by the wizard.
func buildWorld(t *testing.T) (*world.Service, *world.MemStore) {
	t.Helper()
	ctx := context.Background()
	store := world.NewMemStore()
	svc := world.NewService(store)

	tx, err := store.Begin(ctx)
	require.NoError(t, err)

	create := func(o *world.Object) value.Obj {
		id, err := tx.CreateObject(ctx, o)
		require.NoError(t, err)
		return id
	}
	system := create(&world.Object{Name: "System Object", Parent: value.Nothing, Location: value.Nothing, Flags: world.FlagRead})
	require.Equal(t, value.SystemObj, system)
	room := create(&world.Object{Name: "The Commons", Parent: value.Nothing, Location: value.Nothing, Flags: world.FlagRead | world.FlagWrite})
	create(&world.Object{Name: "Gandalf", Owner: 2, Parent: value.Nothing, Location: room,
		Flags: world.FlagUser | world.FlagWizard | world.FlagProgrammer})
	create(&world.Object{Name: "Sam", Owner: 3, Parent: value.Nothing, Location: room,
		Flags: world.FlagUser | world.FlagProgrammer})
	create(&world.Object{Name: "thing", Owner: objWizard, Parent: value.Nothing, Location: room, Flags: world.FlagRead})

	require.NoError(t, tx.SetProperty(ctx, objThing, &world.Property{
		Name: "description", Value: value.Str("a small gray thing"),
		Owner: objWizard, Flags: world.PropRead,
	}))
	require.NoError(t, tx.Commit(ctx))
	return svc, store
}

func compile(t *testing.T, source ...string) *moocode.Program {
	t.Helper()
	prog, perr, err := moocode.Parse(source)
	require.NoError(t, err)
	require.Nil(t, perr, "fixture source should parse: %v", perr)
	return prog
}

// evalAs runs source as the given player in a fresh transaction, which
// is rolled back afterwards.
func evalAs(t *testing.T, player value.Obj, source ...string) (value.Var, []vm.Effect, error) {
	t.Helper()
	ctx := context.Background()
	svc, store := buildWorld(t)
	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback(ctx) }()

	in := vm.New(svc, tx)
	v, err := in.Eval(ctx, player, compile(t, source...))
	return v, in.Effects(), err
}

func evalOK(t *testing.T, source ...string) value.Var {
	t.Helper()
	v, _, err := evalAs(t, objWizard, source...)
	require.NoError(t, err)
	return v
}

func TestEval_Expressions(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   value.Var
	}{
		{"arithmetic precedence", "return 1 + 2 * 3;", value.Int(7)},
		{"integer division truncates", "return 7 / 2;", value.Int(3)},
		{"modulo", "return 7 % 3;", value.Int(1)},
		{"float arithmetic", "return 1.5 + 2.25;", value.Float(3.75)},
		{"string concat", `return "foo" + "bar";`, value.Str("foobar")},
		{"list concat", "return {1} + {2, 3};", value.List(value.Int(1), value.Int(2), value.Int(3))},
		{"unary minus", "return -(2 + 3);", value.Int(-5)},
		{"negation", "return !0;", value.Int(1)},
		{"comparison", "return 2 < 3;", value.Int(1)},
		{"string compare is caseless", `return "FOO" == "foo";`, value.Int(1)},
		{"membership index", `return "b" in {"a", "b", "c"};`, value.Int(2)},
		{"membership miss", `return 9 in {1, 2};`, value.Int(0)},
		{"and returns operand", `return 1 && "yes";`, value.Str("yes")},
		{"or short-circuits", `return "first" || missing_var;`, value.Str("first")},
		{"ternary true", `return 1 ? "a" | "b";`, value.Str("a")},
		{"ternary false", `return 0 ? "a" | "b";`, value.Str("b")},
		{"list index", "return {10, 20, 30}[2];", value.Int(20)},
		{"string index", `return "abc"[3];`, value.Str("c")},
		{"list range", "return {1, 2, 3, 4}[2..3];", value.List(value.Int(2), value.Int(3))},
		{"string range", `return "driftwood"[1..5];`, value.Str("drift")},
		{"empty range", "return {1, 2}[2..1];", value.List()},
		{"splice in list", "return {1, @{2, 3}, 4};", value.List(value.Int(1), value.Int(2), value.Int(3), value.Int(4))},
		{"map literal lookup", `return ["a" -> 1, "b" -> 2]["b"];`, value.Int(2)},
		{"object literal", "return #4;", value.Object(objThing)},
		{"error literal", "return E_PERM;", value.Err(value.EPerm)},
		{"bare expression value", "1 + 1;", value.Int(2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := evalOK(t, tt.source)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestEval_Statements(t *testing.T) {
	t.Run("variables and while", func(t *testing.T) {
		got := evalOK(t,
			"total = 0;",
			"i = 1;",
			"while (i <= 5)",
			"total = total + i;",
			"i = i + 1;",
			"endwhile",
			"return total;",
		)
		assert.True(t, value.Int(15).Equal(got))
	})

	t.Run("for over list with break", func(t *testing.T) {
		got := evalOK(t,
			"found = 0;",
			`for x in ({3, 7, 11})`,
			"if (x > 5)",
			"found = x;",
			"break;",
			"endif",
			"endfor",
			"return found;",
		)
		assert.True(t, value.Int(7).Equal(got))
	})

	t.Run("for over range with continue", func(t *testing.T) {
		got := evalOK(t,
			"evens = {};",
			"for i in [1..6]",
			"if (i % 2)",
			"continue;",
			"endif",
			"evens = {@evens, i};",
			"endfor",
			"return evens;",
		)
		assert.True(t, value.List(value.Int(2), value.Int(4), value.Int(6)).Equal(got))
	})

	t.Run("indexed assignment", func(t *testing.T) {
		got := evalOK(t,
			"x = {1, 2, 3};",
			"x[2] = 99;",
			"return x;",
		)
		assert.True(t, value.List(value.Int(1), value.Int(99), value.Int(3)).Equal(got))
	})

	t.Run("nested indexed assignment", func(t *testing.T) {
		got := evalOK(t,
			`m = ["rows" -> {1, 2}];`,
			`m["rows"][2] = 5;`,
			`return m["rows"];`,
		)
		assert.True(t, value.List(value.Int(1), value.Int(5)).Equal(got))
	})
}

func TestEval_Errors(t *testing.T) {
	raises := []struct {
		name   string
		source string
		code   value.ErrCode
	}{
		{"division by zero", "return 1 / 0;", value.EDiv},
		{"modulo by zero", "return 1 % 0;", value.EDiv},
		{"type mismatch add", `return 1 + "one";`, value.EType},
		{"mixed numeric add", "return 1 + 1.5;", value.EType},
		{"unbound variable", "return nonesuch;", value.EVarNF},
		{"index out of range", "return {1}[5];", value.ERange},
		{"missing map key", `return ["a" -> 1]["b"];`, value.ERange},
		{"index non-container", "return 5[1];", value.EType},
		{"property on non-object", `return "str".name;`, value.EType},
		{"missing property", "return #4.nonesuch;", value.EPropNF},
		{"invalid indirection", "return #999.name;", value.EInvInd},
		{"verb on missing object", "return #999:poke();", value.EVerbNF},
		{"explicit raise", "raise(E_NACC);", value.ENAcc},
		{"wrong builtin arity", "return length();", value.EArgs},
	}

	for _, tt := range raises {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := evalAs(t, objWizard, tt.source)
			var raised *vm.RaisedError
			require.ErrorAs(t, err, &raised)
			assert.Equal(t, tt.code, raised.Err.Code)
			assert.NotEmpty(t, raised.Traceback)
			assert.Equal(t, "(End of traceback)", raised.Traceback[len(raised.Traceback)-1])
		})
	}

	t.Run("try catches matching code", func(t *testing.T) {
		got := evalOK(t,
			"try",
			"return 1 / 0;",
			"except e (E_DIV)",
			"return {e[1], e[2]};",
			"endtry",
		)
		list, ok := got.AsList()
		require.True(t, ok)
		require.Len(t, list, 2)
		caught, ok := list[0].AsErr()
		require.True(t, ok)
		assert.Equal(t, value.EDiv, caught.Code)
		msg, _ := list[1].AsStr()
		assert.Equal(t, "Division by zero", msg)
	})

	t.Run("try any catches everything", func(t *testing.T) {
		got := evalOK(t,
			"try",
			"raise(E_QUOTA);",
			"except (ANY)",
			`return "saved";`,
			"endtry",
		)
		assert.True(t, value.Str("saved").Equal(got))
	})

	t.Run("unmatched code propagates", func(t *testing.T) {
		_, _, err := evalAs(t, objWizard,
			"try",
			"return 1 / 0;",
			"except (E_PERM)",
			"return 0;",
			"endtry",
		)
		var raised *vm.RaisedError
		require.ErrorAs(t, err, &raised)
		assert.Equal(t, value.EDiv, raised.Err.Code)
	})
}

func TestEval_TickBudget(t *testing.T) {
	ctx := context.Background()
	svc, store := buildWorld(t)
	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback(ctx) }()

	in := vm.New(svc, tx, vm.WithMaxTicks(500))
	_, err = in.Eval(ctx, objWizard, compile(t, "while (1)", "x = 1;", "endwhile"))
	var raised *vm.RaisedError
	require.ErrorAs(t, err, &raised)
	assert.Equal(t, value.EQuota, raised.Err.Code)
	assert.Equal(t, "Task ran out of ticks", raised.Err.Message)
}

func TestEval_EmptyLoopBodyStillBudgeted(t *testing.T) {
	ctx := context.Background()
	svc, store := buildWorld(t)
	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback(ctx) }()

	// The body contributes no statements; the iteration itself must
	// burn the budget.
	in := vm.New(svc, tx, vm.WithMaxTicks(500))
	_, err = in.Eval(ctx, objWizard, compile(t, "while (1)", "endwhile"))
	var raised *vm.RaisedError
	require.ErrorAs(t, err, &raised)
	assert.Equal(t, value.EQuota, raised.Err.Code)
}

func TestEval_LoopObservesCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc, store := buildWorld(t)
	tx, err := store.Begin(context.Background())
	require.NoError(t, err)
	defer func() { _ = tx.Rollback(context.Background()) }()

	in := vm.New(svc, tx)
	done := make(chan error, 1)
	go func() {
		_, err := in.Eval(ctx, objWizard, compile(t, "while (1)", "endwhile"))
		done <- err
	}()
	select {
	case err := <-done:
		errutil.AssertErrorCode(t, err, "TASK_CANCELLED")
	case <-time.After(2 * time.Second):
		t.Fatal("eval kept spinning after its context was cancelled")
	}
}

func TestEval_HugeRangeHitsBudgetNotMemory(t *testing.T) {
	ctx := context.Background()
	svc, store := buildWorld(t)
	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback(ctx) }()

	// A lazily iterated range costs ticks, never a materialized slice.
	in := vm.New(svc, tx, vm.WithMaxTicks(500))
	_, err = in.Eval(ctx, objWizard, compile(t, "for x in [1..2000000000]", "endfor"))
	var raised *vm.RaisedError
	require.ErrorAs(t, err, &raised)
	assert.Equal(t, value.EQuota, raised.Err.Code)
}

func TestEval_Properties(t *testing.T) {
	t.Run("read inherited description", func(t *testing.T) {
		got := evalOK(t, "return #4.description;")
		assert.True(t, value.Str("a small gray thing").Equal(got))
	})

	t.Run("intrinsics", func(t *testing.T) {
		got := evalOK(t, "return {#4.name, #4.owner, #4.location, #2.wizard};")
		want := value.List(value.Str("thing"), value.Object(objWizard), value.Object(objRoom), value.Int(1))
		assert.True(t, want.Equal(got), "got %s", got)
	})

	t.Run("write then read back", func(t *testing.T) {
		got := evalOK(t,
			`#4.description = "painted red";`,
			"return #4.description;",
		)
		assert.True(t, value.Str("painted red").Equal(got))
	})

	t.Run("non-owner write is E_PERM", func(t *testing.T) {
		_, _, err := evalAs(t, objPlayer, `#4.name = "stolen";`)
		var raised *vm.RaisedError
		require.ErrorAs(t, err, &raised)
		assert.Equal(t, value.EPerm, raised.Err.Code)
	})

	t.Run("sysprop", func(t *testing.T) {
		got := evalOK(t,
			`add_property(#0, "release", "driftwood-1");`,
			"return $release;",
		)
		assert.True(t, value.Str("driftwood-1").Equal(got))
	})
}

func TestEval_Builtins(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   value.Var
	}{
		{"typeof int", "return typeof(1);", value.Int(0)},
		{"typeof obj", "return typeof(#1);", value.Int(1)},
		{"typeof str", `return typeof("x");`, value.Int(2)},
		{"typeof err", "return typeof(E_DIV);", value.Int(3)},
		{"typeof list", "return typeof({});", value.Int(4)},
		{"typeof float", "return typeof(1.5);", value.Int(9)},
		{"tostr mixes kinds", `return tostr("obj ", #3, " n ", 7);`, value.Str("obj #3 n 7")},
		{"toliteral quotes strings", `return toliteral("hi");`, value.Str(`"hi"`)},
		{"toint from float", "return toint(3.9);", value.Int(3)},
		{"toint from string", `return toint("42");`, value.Int(42)},
		{"toobj", "return toobj(4);", value.Object(objThing)},
		{"length of string", `return length("four");`, value.Int(4)},
		{"length of list", "return length({1, 2, 3});", value.Int(3)},
		{"valid true", "return valid(#1);", value.Int(1)},
		{"valid false", "return valid(#999);", value.Int(0)},
		{"valid nothing", "return valid(#-1);", value.Int(0)},
		{"parent", "return parent(#4);", value.Object(value.Nothing)},
		{"max_object", "return max_object();", value.Object(objThing)},
		{"setadd new", "return setadd({1, 2}, 3);", value.List(value.Int(1), value.Int(2), value.Int(3))},
		{"setadd dup", "return setadd({1, 2}, 2);", value.List(value.Int(1), value.Int(2))},
		{"setremove", "return setremove({1, 2, 3}, 2);", value.List(value.Int(1), value.Int(3))},
		{"listappend", "return listappend({1}, 2);", value.List(value.Int(1), value.Int(2))},
		{"listinsert", "return listinsert({2, 3}, 1);", value.List(value.Int(1), value.Int(2), value.Int(3))},
		{"listdelete", "return listdelete({1, 2, 3}, 2);", value.List(value.Int(1), value.Int(3))},
		{"listset", "return listset({1, 2}, 9, 1);", value.List(value.Int(9), value.Int(2))},
		{"is_member", "return is_member(2, {1, 2});", value.Int(2)},
		{"strsub", `return strsub("the Dog and the dog", "dog", "cat");`, value.Str("the cat and the cat")},
		{"index", `return index("foobar", "BAR");`, value.Int(4)},
		{"rindex", `return rindex("aXbXc", "x");`, value.Int(4)},
		{"min", "return min(3, 1, 2);", value.Int(1)},
		{"max", "return max(3, 1, 2);", value.Int(3)},
		{"abs", "return abs(-7);", value.Int(7)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := evalOK(t, tt.source)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}

	t.Run("random in range", func(t *testing.T) {
		got := evalOK(t, "return random(3);")
		n, ok := got.AsInt()
		require.True(t, ok)
		assert.GreaterOrEqual(t, n, int64(1))
		assert.LessOrEqual(t, n, int64(3))
	})

	t.Run("players", func(t *testing.T) {
		got := evalOK(t, "return players();")
		assert.True(t, value.List(value.Object(objWizard), value.Object(objPlayer)).Equal(got))
	})

	t.Run("create and recycle", func(t *testing.T) {
		got := evalOK(t,
			"o = create(#4);",
			"ok = valid(o);",
			"recycle(o);",
			"return {ok, valid(o)};",
		)
		assert.True(t, value.List(value.Int(1), value.Int(0)).Equal(got))
	})

	t.Run("move", func(t *testing.T) {
		got := evalOK(t,
			"move(#4, #2);",
			"return #4.location;",
		)
		assert.True(t, value.Object(objWizard).Equal(got))
	})

	t.Run("unknown builtin", func(t *testing.T) {
		_, _, err := evalAs(t, objWizard, "return frobnicate();")
		var raised *vm.RaisedError
		require.ErrorAs(t, err, &raised)
		assert.Equal(t, value.EVerbNF, raised.Err.Code)
	})
}

func TestEval_Effects(t *testing.T) {
	t.Run("notify buffers in order", func(t *testing.T) {
		_, effects, err := evalAs(t, objWizard,
			`notify(#2, "first");`,
			`notify(#3, "second");`,
		)
		require.NoError(t, err)
		require.Len(t, effects, 2)
		assert.Equal(t, vm.EffectNotify, effects[0].Kind)
		assert.Equal(t, objWizard, effects[0].Player)
		assert.Equal(t, "first", effects[0].Line)
		assert.Equal(t, objPlayer, effects[1].Player)
		assert.Equal(t, "second", effects[1].Line)
	})

	t.Run("present and unpresent", func(t *testing.T) {
		_, effects, err := evalAs(t, objWizard,
			`present(#2, "map", "<svg/>", "image/svg+xml", "right-dock");`,
			`present(#2, "hp", "10/10");`,
			`unpresent(#2, "map");`,
		)
		require.NoError(t, err)
		require.Len(t, effects, 3)
		assert.Equal(t, vm.EffectPresent, effects[0].Kind)
		assert.Equal(t, "map", effects[0].ID)
		assert.Equal(t, "image/svg+xml", effects[0].ContentType)
		assert.Equal(t, "right-dock", effects[0].Target)
		assert.Equal(t, "text/plain", effects[1].ContentType)
		assert.Equal(t, vm.EffectUnpresent, effects[2].Kind)
	})

	t.Run("notify another player as mortal is E_PERM", func(t *testing.T) {
		_, _, err := evalAs(t, objPlayer, `notify(#2, "psst");`)
		var raised *vm.RaisedError
		require.ErrorAs(t, err, &raised)
		assert.Equal(t, value.EPerm, raised.Err.Code)
	})
}

// programVerb installs a verb on #4 owned by the wizard.
func programVerb(t *testing.T, svc *world.Service, store *world.MemStore, name string, source ...string) {
	t.Helper()
	ctx := context.Background()
	prog := compile(t, source...)
	compiled, err := moocode.Encode(prog)
	require.NoError(t, err)

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, svc.ProgramVerb(ctx, tx, objWizard, objThing, name, source, compiled))
	require.NoError(t, tx.Commit(ctx))
}

func TestCall_Verbs(t *testing.T) {
	ctx := context.Background()

	t.Run("call with args", func(t *testing.T) {
		svc, store := buildWorld(t)
		programVerb(t, svc, store, "greet", `return "Hello, " + args[1] + "!";`)

		tx, err := store.Begin(ctx)
		require.NoError(t, err)
		defer func() { _ = tx.Rollback(ctx) }()

		in := vm.New(svc, tx)
		got, err := in.Call(ctx, objPlayer, objThing, "greet", []value.Var{value.Str("Sam")}, nil)
		require.NoError(t, err)
		assert.True(t, value.Str("Hello, Sam!").Equal(got))
	})

	t.Run("this player and caller bindings", func(t *testing.T) {
		svc, store := buildWorld(t)
		programVerb(t, svc, store, "who", "return {this, player, caller, verb};")

		tx, err := store.Begin(ctx)
		require.NoError(t, err)
		defer func() { _ = tx.Rollback(ctx) }()

		in := vm.New(svc, tx)
		got, err := in.Call(ctx, objPlayer, objThing, "who", nil, nil)
		require.NoError(t, err)
		want := value.List(value.Object(objThing), value.Object(objPlayer), value.Object(value.Nothing), value.Str("who"))
		assert.True(t, want.Equal(got), "got %s", got)
	})

	t.Run("nested call sets caller", func(t *testing.T) {
		svc, store := buildWorld(t)
		programVerb(t, svc, store, "outer", "return this:inner();")
		programVerb(t, svc, store, "inner", "return caller;")

		tx, err := store.Begin(ctx)
		require.NoError(t, err)
		defer func() { _ = tx.Rollback(ctx) }()

		in := vm.New(svc, tx)
		got, err := in.Call(ctx, objPlayer, objThing, "outer", nil, nil)
		require.NoError(t, err)
		assert.True(t, value.Object(objThing).Equal(got))
	})

	t.Run("verb not found", func(t *testing.T) {
		svc, store := buildWorld(t)
		tx, err := store.Begin(ctx)
		require.NoError(t, err)
		defer func() { _ = tx.Rollback(ctx) }()

		in := vm.New(svc, tx)
		_, err = in.Call(ctx, objPlayer, objThing, "nonesuch", nil, nil)
		var raised *vm.RaisedError
		require.ErrorAs(t, err, &raised)
		assert.Equal(t, value.EVerbNF, raised.Err.Code)
	})

	t.Run("runaway recursion", func(t *testing.T) {
		svc, store := buildWorld(t)
		programVerb(t, svc, store, "loop", "return this:loop();")

		tx, err := store.Begin(ctx)
		require.NoError(t, err)
		defer func() { _ = tx.Rollback(ctx) }()

		in := vm.New(svc, tx, vm.WithMaxDepth(10))
		_, err = in.Call(ctx, objPlayer, objThing, "loop", nil, nil)
		var raised *vm.RaisedError
		require.ErrorAs(t, err, &raised)
		assert.Equal(t, value.EMaxRec, raised.Err.Code)
		assert.Greater(t, len(raised.Traceback), 5, "traceback should show the recursive frames")
	})

	t.Run("verb runs with owner permissions", func(t *testing.T) {
		svc, store := buildWorld(t)
		// The wizard owns the verb, so a plain player calling it can
		// write a wizard-owned property.
		programVerb(t, svc, store, "stamp", `this.description = "stamped"; return this.description;`)

		tx, err := store.Begin(ctx)
		require.NoError(t, err)
		defer func() { _ = tx.Rollback(ctx) }()

		in := vm.New(svc, tx)
		got, err := in.Call(ctx, objPlayer, objThing, "stamp", nil, nil)
		require.NoError(t, err)
		assert.True(t, value.Str("stamped").Equal(got))
	})

	t.Run("uncaught error carries verb frames", func(t *testing.T) {
		svc, store := buildWorld(t)
		programVerb(t, svc, store, "outer", "return this:inner();")
		programVerb(t, svc, store, "inner", "return 1 / 0;")

		tx, err := store.Begin(ctx)
		require.NoError(t, err)
		defer func() { _ = tx.Rollback(ctx) }()

		in := vm.New(svc, tx)
		_, err = in.Call(ctx, objPlayer, objThing, "outer", nil, nil)
		var raised *vm.RaisedError
		require.ErrorAs(t, err, &raised)
		require.GreaterOrEqual(t, len(raised.Traceback), 3)
		assert.Contains(t, raised.Traceback[0], "inner")
		assert.Contains(t, raised.Traceback[0], "Division by zero")
		assert.Contains(t, raised.Traceback[1], "outer")
	})
}

func TestEval_RequiresProgrammer(t *testing.T) {
	ctx := context.Background()
	svc, store := buildWorld(t)

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	obj, err := tx.GetObject(ctx, objPlayer)
	require.NoError(t, err)
	obj.Flags &^= world.FlagProgrammer
	require.NoError(t, tx.UpdateObject(ctx, obj))
	require.NoError(t, tx.Commit(ctx))

	tx, err = store.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback(ctx) }()

	in := vm.New(svc, tx)
	_, err = in.Eval(ctx, objPlayer, compile(t, "return 1;"))
	assert.ErrorIs(t, err, world.ErrPermissionDenied)
}
