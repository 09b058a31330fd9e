// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftwood Contributors

package value

import "strings"

// ErrCode is a named MOO error code. Codes are first-class values: they can
// be stored in properties, raised by the VM, and compared with ==.
type ErrCode string

// The built-in error codes.
const (
	ENone   ErrCode = "E_NONE"
	EType   ErrCode = "E_TYPE"
	EDiv    ErrCode = "E_DIV"
	EPerm   ErrCode = "E_PERM"
	EPropNF ErrCode = "E_PROPNF"
	EVerbNF ErrCode = "E_VERBNF"
	EVarNF  ErrCode = "E_VARNF"
	EInvInd ErrCode = "E_INVIND"
	ERecMov ErrCode = "E_RECMOVE"
	EMaxRec ErrCode = "E_MAXREC"
	ERange  ErrCode = "E_RANGE"
	EArgs   ErrCode = "E_ARGS"
	ENAcc   ErrCode = "E_NACC"
	EInvArg ErrCode = "E_INVARG"
	EQuota  ErrCode = "E_QUOTA"
	EFloat  ErrCode = "E_FLOAT"
)

var builtinCodes = map[ErrCode]string{
	ENone:   "No error",
	EType:   "Type mismatch",
	EDiv:    "Division by zero",
	EPerm:   "Permission denied",
	EPropNF: "Property not found",
	EVerbNF: "Verb not found",
	EVarNF:  "Variable not found",
	EInvInd: "Invalid indirection",
	ERecMov: "Recursive move",
	EMaxRec: "Too many verb calls",
	ERange:  "Range error",
	EArgs:   "Incorrect number of arguments",
	ENAcc:   "Move refused by destination",
	EInvArg: "Invalid argument",
	EQuota:  "Resource limit exceeded",
	EFloat:  "Floating-point arithmetic error",
}

// ParseErrCode recognizes a built-in error code name, case-insensitively.
func ParseErrCode(s string) (ErrCode, bool) {
	code := ErrCode(strings.ToUpper(s))
	_, ok := builtinCodes[code]
	return code, ok
}

// Message returns the default message for the code.
func (c ErrCode) Message() string {
	if msg, ok := builtinCodes[c]; ok {
		return msg
	}
	return "Custom error: " + string(c)
}

// Error is the payload of a KindErr Var.
type Error struct {
	Code    ErrCode
	Message string
}

// Error implements the error interface so VM faults can travel as Go errors.
func (e *Error) Error() string {
	if e.Message == "" || e.Message == e.Code.Message() {
		return string(e.Code) + " (" + e.Code.Message() + ")"
	}
	return string(e.Code) + " (" + e.Message + ")"
}
