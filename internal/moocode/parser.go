// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftwood Contributors

package moocode

import (
	"encoding/json"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/samber/oops"
)

// mooLexer tokenizes MOO source. Multi-character operators and the range
// marker must come before Punct so they are not split apart; error
// literals must come before Ident.
var mooLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `//[^\n]*`},
	{Name: "Float", Pattern: `\d+\.\d+([eE][-+]?\d+)?|\d+[eE][-+]?\d+`},
	{Name: "Int", Pattern: `\d+`},
	{Name: "ObjLit", Pattern: `#-?\d+`},
	{Name: "String", Pattern: `"(\\.|[^"\\])*"`},
	{Name: "ErrLit", Pattern: `E_[A-Z]+`},
	{Name: "Ident", Pattern: `[a-zA-Z_]\w*`},
	{Name: "OpEq", Pattern: `==`},
	{Name: "OpNe", Pattern: `!=`},
	{Name: "OpLe", Pattern: `<=`},
	{Name: "OpGe", Pattern: `>=`},
	{Name: "OpAnd", Pattern: `&&`},
	{Name: "OpOr", Pattern: `\|\|`},
	{Name: "Range", Pattern: `\.\.`},
	{Name: "Arrow", Pattern: `->`},
	{Name: "Punct", Pattern: `[-+*/%!<>=?|.,:;@(){}\[\]$]`},
	{Name: "whitespace", Pattern: `\s+`},
})

var parser = participle.MustBuild[Program](
	participle.Lexer(mooLexer),
	participle.Elide("Comment"),
	participle.Unquote("String"),
	participle.UseLookahead(2),
)

// ParseError is a positioned compile failure. Compilation is pure: a
// parse error never mutates any stored verb.
type ParseError struct {
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Context string `json:"context"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return oops.Code("MOO_PARSE_ERROR").
		With("line", e.Line).
		With("column", e.Column).
		Errorf("parse error at line %d, column %d: %s", e.Line, e.Column, e.Message).Error()
}

// Parse compiles source lines into a Program. On failure the returned
// *ParseError carries the position and the offending source line as
// context; err is non-nil only for faults other than a parse error.
func Parse(source []string) (*Program, *ParseError, error) {
	text := strings.Join(source, "\n")
	prog, err := parser.ParseString("verb", text)
	if err == nil {
		return prog, nil, nil
	}

	var perr participle.Error
	if ok := asParticipleError(err, &perr); ok {
		pos := perr.Position()
		return nil, &ParseError{
			Line:    pos.Line,
			Column:  pos.Column,
			Context: lineContext(source, pos.Line),
			Message: perr.Message(),
		}, nil
	}
	return nil, nil, oops.Code("MOO_PARSER_FAULT").Wrap(err)
}

func asParticipleError(err error, target *participle.Error) bool {
	if perr, ok := err.(participle.Error); ok { //nolint:errorlint // participle errors are not wrapped
		*target = perr
		return true
	}
	return false
}

func lineContext(source []string, line int) string {
	if line >= 1 && line <= len(source) {
		return strings.TrimSpace(source[line-1])
	}
	return ""
}

// encodedProgram wraps the AST with a grammar version for storage.
type encodedProgram struct {
	GrammarVersion int      `json:"grammar_version"`
	Program        *Program `json:"program"`
}

// Encode serializes a compiled program for storage.
func Encode(p *Program) ([]byte, error) {
	data, err := json.Marshal(encodedProgram{GrammarVersion: GrammarVersion, Program: p})
	if err != nil {
		return nil, oops.Code("MOO_ENCODE_FAILED").Wrap(err)
	}
	return data, nil
}

// Decode restores a stored compiled program. A grammar version mismatch
// returns an error so callers fall back to recompiling the source.
func Decode(data []byte) (*Program, error) {
	var enc encodedProgram
	if err := json.Unmarshal(data, &enc); err != nil {
		return nil, oops.Code("MOO_DECODE_FAILED").Wrap(err)
	}
	if enc.GrammarVersion != GrammarVersion {
		return nil, oops.Code("MOO_GRAMMAR_VERSION").
			With("stored", enc.GrammarVersion).
			With("current", GrammarVersion).
			Errorf("stored program uses grammar version %d, current is %d", enc.GrammarVersion, GrammarVersion)
	}
	if enc.Program == nil {
		return nil, oops.Code("MOO_DECODE_FAILED").Errorf("stored program is empty")
	}
	return enc.Program, nil
}
