// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftwood Contributors

// Package moocode defines the AST for the MOO verb language and provides
// a parser built with participle. AST nodes survive JSON serialization
// round-trips so a compiled verb can be stored alongside its source.
package moocode

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// GrammarVersion is stamped into encoded programs so stored compiled
// forms can be invalidated when the grammar evolves.
const GrammarVersion = 1

// Program is a parsed verb body: a sequence of statements.
type Program struct {
	Pos        lexer.Position `parser:"" json:"-"`
	Statements []*Statement   `parser:"@@*" json:"statements"`
}

// Statement is one MOO statement.
type Statement struct {
	Pos      lexer.Position `parser:"" json:"-"`
	If       *IfStmt        `parser:"  @@" json:"if,omitempty"`
	While    *WhileStmt     `parser:"| @@" json:"while,omitempty"`
	For      *ForStmt       `parser:"| @@" json:"for,omitempty"`
	Try      *TryStmt       `parser:"| @@" json:"try,omitempty"`
	Return   *ReturnStmt    `parser:"| @@" json:"return,omitempty"`
	Break    *BreakStmt     `parser:"| @@" json:"break,omitempty"`
	Continue *ContinueStmt  `parser:"| @@" json:"continue,omitempty"`
	Expr     *ExprStmt      `parser:"| @@" json:"expr,omitempty"`
}

// IfStmt is if/elseif/else/endif.
type IfStmt struct {
	Pos     lexer.Position `parser:"" json:"-"`
	Cond    *Expr          `parser:"'if' '(' @@ ')'" json:"cond"`
	Then    []*Statement   `parser:"@@*" json:"then"`
	ElseIfs []*ElseIf      `parser:"@@*" json:"elseifs,omitempty"`
	Else    []*Statement   `parser:"('else' @@*)?" json:"else,omitempty"`
	End     string         `parser:"'endif'" json:"-"`
}

// ElseIf is one elseif arm.
type ElseIf struct {
	Pos  lexer.Position `parser:"" json:"-"`
	Cond *Expr          `parser:"'elseif' '(' @@ ')'" json:"cond"`
	Then []*Statement   `parser:"@@*" json:"then"`
}

// WhileStmt is while/endwhile.
type WhileStmt struct {
	Pos  lexer.Position `parser:"" json:"-"`
	Cond *Expr          `parser:"'while' '(' @@ ')'" json:"cond"`
	Body []*Statement   `parser:"@@* 'endwhile'" json:"body"`
}

// ForStmt iterates a list (`for x in (expr)`) or an inclusive integer
// range (`for x in [a..b]`).
type ForStmt struct {
	Pos       lexer.Position `parser:"" json:"-"`
	Var       string         `parser:"'for' @Ident 'in'" json:"var"`
	ListExpr  *Expr          `parser:"( '(' @@ ')'" json:"list,omitempty"`
	RangeFrom *Expr          `parser:"| '[' @@" json:"range_from,omitempty"`
	RangeTo   *Expr          `parser:"  Range @@ ']' )" json:"range_to,omitempty"`
	Body      []*Statement   `parser:"@@* 'endfor'" json:"body"`
}

// TryStmt is try/except/endtry.
type TryStmt struct {
	Pos     lexer.Position `parser:"" json:"-"`
	Body    []*Statement   `parser:"'try' @@*" json:"body"`
	Excepts []*ExceptArm   `parser:"@@+ 'endtry'" json:"excepts"`
}

// ExceptArm catches error codes. An empty Codes list (written `(ANY)`)
// catches everything; the optional variable binds the caught error.
type ExceptArm struct {
	Pos  lexer.Position `parser:"" json:"-"`
	Var  string         `parser:"'except' @Ident?" json:"var,omitempty"`
	Any  bool           `parser:"'(' ( @'ANY'" json:"any,omitempty"`
	Code []string       `parser:"| @ErrLit (',' @ErrLit)* ) ')'" json:"codes,omitempty"`
	Body []*Statement   `parser:"@@*" json:"body"`
}

// ReturnStmt returns from the verb, with an optional value.
type ReturnStmt struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Key   string         `parser:"'return'" json:"-"`
	Value *Expr          `parser:"@@? ';'" json:"value,omitempty"`
}

// BreakStmt exits the innermost loop.
type BreakStmt struct {
	Pos lexer.Position `parser:"" json:"-"`
	Key string         `parser:"'break' ';'" json:"-"`
	// Marker keeps the JSON form non-empty so the statement survives
	// round-trips.
	Marker bool `parser:"" json:"break"`
}

// ContinueStmt resumes the innermost loop.
type ContinueStmt struct {
	Pos    lexer.Position `parser:"" json:"-"`
	Key    string         `parser:"'continue' ';'" json:"-"`
	Marker bool           `parser:"" json:"continue"`
}

// ExprStmt is an expression evaluated for effect.
type ExprStmt struct {
	Pos  lexer.Position `parser:"" json:"-"`
	Expr *Expr          `parser:"@@ ';'" json:"expr"`
}

// Expr is the assignment level: `target = value` or a ternary. The parser
// accepts any expression on the left; compile validates assignability.
type Expr struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Left  *Ternary       `parser:"@@" json:"left"`
	Right *Expr          `parser:"('=' @@)?" json:"right,omitempty"`
}

// Ternary is `cond ? then | else` or a plain or-expression.
type Ternary struct {
	Pos  lexer.Position `parser:"" json:"-"`
	Cond *OrExpr        `parser:"@@" json:"cond"`
	Then *Expr          `parser:"('?' @@" json:"then,omitempty"`
	Else *Expr          `parser:"'|' @@)?" json:"else,omitempty"`
}

// OrExpr chains short-circuit ||.
type OrExpr struct {
	Pos   lexer.Position `parser:"" json:"-"`
	First *AndExpr       `parser:"@@" json:"first"`
	Rest  []*AndExpr     `parser:"(OpOr @@)*" json:"rest,omitempty"`
}

// AndExpr chains short-circuit &&.
type AndExpr struct {
	Pos   lexer.Position `parser:"" json:"-"`
	First *CmpExpr       `parser:"@@" json:"first"`
	Rest  []*CmpExpr     `parser:"(OpAnd @@)*" json:"rest,omitempty"`
}

// CmpExpr is comparison and membership, non-associative in MOO but
// parsed left-associatively here.
type CmpExpr struct {
	Pos   lexer.Position `parser:"" json:"-"`
	First *AddExpr       `parser:"@@" json:"first"`
	Rest  []*CmpOp       `parser:"@@*" json:"rest,omitempty"`
}

// CmpOp is one comparison step.
type CmpOp struct {
	Pos     lexer.Position `parser:"" json:"-"`
	Op      string         `parser:"@(OpEq | OpNe | OpLe | OpGe | '<' | '>' | 'in')" json:"op"`
	Operand *AddExpr       `parser:"@@" json:"operand"`
}

// AddExpr is + and -.
type AddExpr struct {
	Pos   lexer.Position `parser:"" json:"-"`
	First *MulExpr       `parser:"@@" json:"first"`
	Rest  []*AddOp       `parser:"@@*" json:"rest,omitempty"`
}

// AddOp is one additive step.
type AddOp struct {
	Pos     lexer.Position `parser:"" json:"-"`
	Op      string         `parser:"@('+' | '-')" json:"op"`
	Operand *MulExpr       `parser:"@@" json:"operand"`
}

// MulExpr is *, /, and %.
type MulExpr struct {
	Pos   lexer.Position `parser:"" json:"-"`
	First *Unary         `parser:"@@" json:"first"`
	Rest  []*MulOp       `parser:"@@*" json:"rest,omitempty"`
}

// MulOp is one multiplicative step.
type MulOp struct {
	Pos     lexer.Position `parser:"" json:"-"`
	Op      string         `parser:"@('*' | '/' | '%')" json:"op"`
	Operand *Unary         `parser:"@@" json:"operand"`
}

// Unary applies prefix - and !.
type Unary struct {
	Pos     lexer.Position `parser:"" json:"-"`
	Op      string         `parser:"@('-' | '!')?" json:"op,omitempty"`
	Postfix *Postfix       `parser:"@@" json:"postfix"`
}

// Postfix is a primary with chained property accesses, verb calls, and
// index or range operations.
type Postfix struct {
	Pos     lexer.Position `parser:"" json:"-"`
	Primary *Primary       `parser:"@@" json:"primary"`
	Ops     []*PostfixOp   `parser:"@@*" json:"ops,omitempty"`
}

// PostfixOp is one postfix step. Exactly one field group is set.
type PostfixOp struct {
	Pos      lexer.Position `parser:"" json:"-"`
	Prop     string         `parser:"  '.' @Ident" json:"prop,omitempty"`
	Verb     *VerbCall      `parser:"| ':' @@" json:"verb,omitempty"`
	Index    *IndexOp       `parser:"| @@" json:"index,omitempty"`
}

// VerbCall is `:name(args)`.
type VerbCall struct {
	Pos  lexer.Position `parser:"" json:"-"`
	Name string         `parser:"@Ident" json:"name"`
	Args []*Arg         `parser:"'(' (@@ (',' @@)*)? ')'" json:"args,omitempty"`
}

// IndexOp is `[expr]` or `[from..to]`.
type IndexOp struct {
	Pos  lexer.Position `parser:"" json:"-"`
	From *Expr          `parser:"'[' @@" json:"from"`
	To   *Expr          `parser:"(Range @@)? ']'" json:"to,omitempty"`
}

// Arg is a call argument, optionally spliced with @.
type Arg struct {
	Pos    lexer.Position `parser:"" json:"-"`
	Splice bool           `parser:"@'@'?" json:"splice,omitempty"`
	Expr   *Expr          `parser:"@@" json:"expr"`
}

// Primary is a leaf expression.
type Primary struct {
	Pos     lexer.Position `parser:"" json:"-"`
	Float   *float64       `parser:"  @Float" json:"float,omitempty"`
	Int     *int64         `parser:"| @Int" json:"int,omitempty"`
	Str     *string        `parser:"| @String" json:"str,omitempty"`
	Object  *string        `parser:"| @ObjLit" json:"object,omitempty"`
	ErrLit  *string        `parser:"| @ErrLit" json:"err,omitempty"`
	SysProp *string        `parser:"| '$' @Ident" json:"sysprop,omitempty"`
	Call    *BuiltinCall   `parser:"| @@" json:"call,omitempty"`
	Ident   *string        `parser:"| @Ident" json:"ident,omitempty"`
	List    *ListExpr      `parser:"| @@" json:"list,omitempty"`
	MapLit  *MapExpr       `parser:"| @@" json:"map,omitempty"`
	Paren   *Expr          `parser:"| '(' @@ ')'" json:"paren,omitempty"`
}

// BuiltinCall is `name(args)`.
type BuiltinCall struct {
	Pos  lexer.Position `parser:"" json:"-"`
	Name string         `parser:"@Ident" json:"name"`
	Args []*Arg         `parser:"'(' (@@ (',' @@)*)? ')'" json:"args,omitempty"`
}

// ListExpr is `{e1, e2, @rest}`.
type ListExpr struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Open  string         `parser:"'{'" json:"-"`
	Elems []*Arg         `parser:"(@@ (',' @@)*)? '}'" json:"elems,omitempty"`
}

// MapExpr is `[k1 -> v1, k2 -> v2]`.
type MapExpr struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Open  string         `parser:"'['" json:"-"`
	Pairs []*MapPair     `parser:"(@@ (',' @@)*)? ']'" json:"pairs,omitempty"`
}

// MapPair is one map entry.
type MapPair struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Key   *Expr          `parser:"@@" json:"key"`
	Value *Expr          `parser:"Arrow @@" json:"value"`
}
