// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftwood Contributors

package moocode_test

import (
	"encoding/json"
	"testing"

	"github.com/driftwood-mud/driftwood/internal/moocode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, source ...string) *moocode.Program {
	t.Helper()
	prog, perr, err := moocode.Parse(source)
	require.NoError(t, err)
	require.Nil(t, perr, "should parse: %v", perr)
	require.NotNil(t, prog)
	return prog
}

func TestParse_CoreVerbs(t *testing.T) {
	verbs := []struct {
		name   string
		source []string
	}{
		{"empty body", []string{}},
		{"bare return", []string{"return;"}},
		{"return value", []string{"return 42;"}},
		{"string concat", []string{`return "Hello, " + args[1] + "!";`}},
		{"property read", []string{"return this.name;"}},
		{"property write", []string{`this.description = "a dusty lantern";`}},
		{"verb call", []string{"player:tell(msg);"}},
		{"chained calls", []string{"this.location:announce(player.name + \" arrives.\");"}},
		{"sysprop", []string{"return $login.welcome_message;"}},
		{"builtin", []string{"notify(player, tostr(this));"}},
		{"object literal", []string{"return #0;"}},
		{"negative object literal", []string{"return #-1;"}},
		{"error literal", []string{"return E_PERM;"}},
		{"list literal", []string{`return {1, "two", #3};`}},
		{"list splice", []string{"return {1, @rest, 9};"}},
		{"map literal", []string{`return ["name" -> this.name, "id" -> this];`}},
		{"index", []string{"return args[1];"}},
		{"range index", []string{"return s[2..4];"}},
		{"if else", []string{"if (x > 0)", "return x;", "else", "return -x;", "endif"}},
		{"elseif chain", []string{
			"if (n < 0)",
			`return "negative";`,
			"elseif (n == 0)",
			`return "zero";`,
			"else",
			`return "positive";`,
			"endif",
		}},
		{"while loop", []string{"while (i < 10)", "i = i + 1;", "endwhile"}},
		{"for in list", []string{"for item in (this:contents())", "player:tell(item.name);", "endfor"}},
		{"for in range", []string{"for i in [1..5]", "total = total + i;", "endfor"}},
		{"break and continue", []string{
			"while (1)",
			"if (done)",
			"break;",
			"endif",
			"continue;",
			"endwhile",
		}},
		{"try except code", []string{
			"try",
			"x = this.missing;",
			"except e (E_PROPNF)",
			"x = 0;",
			"endtry",
		}},
		{"try except any", []string{
			"try",
			"this:risky();",
			"except (ANY)",
			"return 0;",
			"endtry",
		}},
		{"try multiple codes", []string{
			"try",
			"move(thing, dest);",
			"except (E_PERM, E_RECMOVE)",
			`player:tell("You can't put that there.");`,
			"endtry",
		}},
		{"ternary", []string{`return valid(who) ? who.name | "<recycled>";`}},
		{"logic", []string{"return a && b || !c;"}},
		{"comparison and membership", []string{`return x >= 1 && x <= 10 && x in {2, 4, 6};`}},
		{"arithmetic precedence", []string{"return 1 + 2 * 3 - 4 / 2 % 3;"}},
		{"float literals", []string{"return 3.14 + 2.5e10;"}},
		{"nested parens", []string{"return ((a + b) * (c - d));"}},
		{"comment", []string{"// greet the player", "player:tell(greeting);"}},
	}

	for _, tt := range verbs {
		t.Run(tt.name, func(t *testing.T) {
			mustParse(t, tt.source...)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name   string
		source []string
	}{
		{"missing semicolon", []string{"return 42"}},
		{"unterminated if", []string{"if (x)", "return 1;"}},
		{"unterminated while", []string{"while (1)", "x = 1;"}},
		{"stray endif", []string{"endif"}},
		{"bad except code", []string{"try", "x = 1;", "except (banana)", "endtry"}},
		{"dangling operator", []string{"return 1 +;"}},
		{"unclosed list", []string{"return {1, 2;"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog, perr, err := moocode.Parse(tt.source)
			require.NoError(t, err)
			require.NotNil(t, perr, "should not parse")
			assert.Nil(t, prog)
			assert.GreaterOrEqual(t, perr.Line, 1)
			assert.NotEmpty(t, perr.Message)
		})
	}
}

func TestParse_ErrorPosition(t *testing.T) {
	_, perr, err := moocode.Parse([]string{
		"x = 1;",
		"if (x)",
		"return 1",
		"endif",
	})
	require.NoError(t, err)
	require.NotNil(t, perr)
	assert.Equal(t, 4, perr.Line, "error should point past the unterminated statement")
	assert.Equal(t, "endif", perr.Context)
}

func TestParse_StructuralChecks(t *testing.T) {
	t.Run("assignment", func(t *testing.T) {
		prog := mustParse(t, "x = y + 1;")
		require.Len(t, prog.Statements, 1)
		stmt := prog.Statements[0]
		require.NotNil(t, stmt.Expr)
		assert.NotNil(t, stmt.Expr.Expr.Right, "assignment should populate the right side")
	})

	t.Run("verb call args", func(t *testing.T) {
		prog := mustParse(t, `player:tell("hi", @extras);`)
		stmt := prog.Statements[0]
		require.NotNil(t, stmt.Expr)
		post := stmt.Expr.Expr.Left.Cond.First.First.First.First.First.Postfix
		require.Len(t, post.Ops, 1)
		call := post.Ops[0].Verb
		require.NotNil(t, call)
		assert.Equal(t, "tell", call.Name)
		require.Len(t, call.Args, 2)
		assert.False(t, call.Args[0].Splice)
		assert.True(t, call.Args[1].Splice)
	})

	t.Run("string unquoting", func(t *testing.T) {
		prog := mustParse(t, `return "he said \"hi\"";`)
		ret := prog.Statements[0].Return
		require.NotNil(t, ret)
		prim := ret.Value.Left.Cond.First.First.First.First.First.Postfix.Primary
		require.NotNil(t, prim.Str)
		assert.Equal(t, `he said "hi"`, *prim.Str)
	})

	t.Run("except binds variable", func(t *testing.T) {
		prog := mustParse(t,
			"try",
			"x = this.p;",
			"except err (E_PROPNF, E_PERM)",
			"x = err;",
			"endtry",
		)
		try := prog.Statements[0].Try
		require.NotNil(t, try)
		require.Len(t, try.Excepts, 1)
		arm := try.Excepts[0]
		assert.Equal(t, "err", arm.Var)
		assert.Equal(t, []string{"E_PROPNF", "E_PERM"}, arm.Code)
		assert.False(t, arm.Any)
	})

	t.Run("for range form", func(t *testing.T) {
		prog := mustParse(t, "for i in [1..n]", "endfor")
		f := prog.Statements[0].For
		require.NotNil(t, f)
		assert.Equal(t, "i", f.Var)
		assert.Nil(t, f.ListExpr)
		require.NotNil(t, f.RangeFrom)
		require.NotNil(t, f.RangeTo)
	})
}

func TestProgram_JSONRoundTrip(t *testing.T) {
	sources := [][]string{
		{"return this.name;"},
		{"if (x)", "player:tell(x);", "else", "return E_ARGS;", "endif"},
		{"for item in (args)", `total = total + item["count"];`, "endfor"},
		{"try", "x = {1, @rest};", "except e (ANY)", "break;", "endtry"},
	}

	for _, src := range sources {
		prog := mustParse(t, src...)

		data, err := json.Marshal(prog)
		require.NoError(t, err)

		var restored moocode.Program
		require.NoError(t, json.Unmarshal(data, &restored))

		again, err := json.Marshal(&restored)
		require.NoError(t, err)
		assert.JSONEq(t, string(data), string(again))
	}
}

func TestEncodeDecode(t *testing.T) {
	prog := mustParse(t, "return 1 + 2;")

	data, err := moocode.Encode(prog)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"grammar_version":1`)

	restored, err := moocode.Decode(data)
	require.NoError(t, err)
	require.Len(t, restored.Statements, 1)
	assert.NotNil(t, restored.Statements[0].Return)
}

func TestDecode_VersionMismatch(t *testing.T) {
	_, err := moocode.Decode([]byte(`{"grammar_version": 99, "program": {"statements": []}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "grammar version")
}

func TestDecode_Corrupt(t *testing.T) {
	_, err := moocode.Decode([]byte(`{not json`))
	assert.Error(t, err)
}
