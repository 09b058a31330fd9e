// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftwood Contributors

// Package value implements the dynamically typed MOO value system. A Var is
// a tagged union over every type a property, verb argument, or evaluation
// result can carry; all boundary code (wire codecs, VM opcodes) switches
// exhaustively on Kind rather than reflecting.
package value

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind identifies the variant held by a Var.
type Kind uint8

const (
	KindNone Kind = iota
	KindBool
	KindInt
	KindFloat
	KindStr
	KindObj
	KindErr
	KindList
	KindMap
	KindBinary
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindStr:
		return "str"
	case KindObj:
		return "obj"
	case KindErr:
		return "err"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindBinary:
		return "binary"
	default:
		return "unknown"
	}
}

// Obj is a numeric object id. Negative ids are reserved sentinels.
type Obj int64

// Reserved sentinel objects.
const (
	Nothing     Obj = -1
	Ambiguous   Obj = -2
	FailedMatch Obj = -3
	SystemObj   Obj = 0
)

func (o Obj) String() string {
	return "#" + strconv.FormatInt(int64(o), 10)
}

// Valid reports whether the id could name a real object (non-sentinel).
func (o Obj) Valid() bool {
	return o >= 0
}

// ParseObj parses "#N" notation.
func ParseObj(s string) (Obj, error) {
	rest, ok := strings.CutPrefix(s, "#")
	if !ok {
		return Nothing, fmt.Errorf("invalid object literal %q", s)
	}
	n, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return Nothing, fmt.Errorf("invalid object literal %q: %w", s, err)
	}
	return Obj(n), nil
}

// Var is a MOO value. The zero Var is KindNone.
type Var struct {
	kind Kind
	i    int64
	f    float64
	s    string
	o    Obj
	e    *Error
	list []Var
	m    *Map
	bin  []byte
}

// Constructors.

// None returns the none value.
func None() Var { return Var{kind: KindNone} }

// Bool returns a boolean Var.
func Bool(b bool) Var {
	var i int64
	if b {
		i = 1
	}
	return Var{kind: KindBool, i: i}
}

// Int returns an integer Var.
func Int(i int64) Var { return Var{kind: KindInt, i: i} }

// Float returns a float Var.
func Float(f float64) Var { return Var{kind: KindFloat, f: f} }

// Str returns a string Var.
func Str(s string) Var { return Var{kind: KindStr, s: s} }

// Object returns an object reference Var.
func Object(o Obj) Var { return Var{kind: KindObj, o: o} }

// Err returns an error Var with the code's default message.
func Err(code ErrCode) Var {
	return Var{kind: KindErr, e: &Error{Code: code, Message: code.Message()}}
}

// ErrMsg returns an error Var with an explicit message.
func ErrMsg(code ErrCode, msg string) Var {
	return Var{kind: KindErr, e: &Error{Code: code, Message: msg}}
}

// List returns a list Var holding the given elements.
func List(elems ...Var) Var {
	if elems == nil {
		elems = []Var{}
	}
	return Var{kind: KindList, list: elems}
}

// MapVar returns a map Var wrapping m. A nil m yields an empty map.
func MapVar(m *Map) Var {
	if m == nil {
		m = NewMap()
	}
	return Var{kind: KindMap, m: m}
}

// Binary returns a binary Var. The slice is not copied.
func Binary(b []byte) Var {
	if b == nil {
		b = []byte{}
	}
	return Var{kind: KindBinary, bin: b}
}

// Accessors. Each returns the variant's payload and whether the Var holds
// that variant.

// Kind returns the variant tag.
func (v Var) Kind() Kind { return v.kind }

// AsBool returns the boolean payload.
func (v Var) AsBool() (bool, bool) { return v.i != 0, v.kind == KindBool }

// AsInt returns the integer payload.
func (v Var) AsInt() (int64, bool) { return v.i, v.kind == KindInt }

// AsFloat returns the float payload.
func (v Var) AsFloat() (float64, bool) { return v.f, v.kind == KindFloat }

// AsStr returns the string payload.
func (v Var) AsStr() (string, bool) { return v.s, v.kind == KindStr }

// AsObj returns the object payload.
func (v Var) AsObj() (Obj, bool) { return v.o, v.kind == KindObj }

// AsErr returns the error payload.
func (v Var) AsErr() (*Error, bool) { return v.e, v.kind == KindErr }

// AsList returns the list payload. Callers must not mutate it.
func (v Var) AsList() ([]Var, bool) { return v.list, v.kind == KindList }

// AsMap returns the map payload.
func (v Var) AsMap() (*Map, bool) { return v.m, v.kind == KindMap }

// AsBinary returns the binary payload.
func (v Var) AsBinary() ([]byte, bool) { return v.bin, v.kind == KindBinary }

// IsNone reports whether the Var is the none value.
func (v Var) IsNone() bool { return v.kind == KindNone }

// Truthy reports MOO truth: nonzero numbers, nonempty strings, lists and
// maps, valid objects. Errors and none are false.
func (v Var) Truthy() bool {
	switch v.kind {
	case KindBool, KindInt:
		return v.i != 0
	case KindFloat:
		return v.f != 0
	case KindStr:
		return v.s != ""
	case KindObj:
		return true
	case KindList:
		return len(v.list) > 0
	case KindMap:
		return v.m.Len() > 0
	case KindBinary:
		return len(v.bin) > 0
	default:
		return false
	}
}

// Equal reports deep value equality. Ints and floats compare across kinds
// when numerically equal; string comparison is case sensitive.
func (v Var) Equal(o Var) bool {
	if v.kind != o.kind {
		// Numeric cross-kind comparison.
		if v.isNumber() && o.isNumber() {
			return v.toFloat() == o.toFloat()
		}
		return false
	}
	switch v.kind {
	case KindNone:
		return true
	case KindBool, KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindStr:
		return v.s == o.s
	case KindObj:
		return v.o == o.o
	case KindErr:
		return v.e.Code == o.e.Code
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		return v.m.Equal(o.m)
	case KindBinary:
		if len(v.bin) != len(o.bin) {
			return false
		}
		for i := range v.bin {
			if v.bin[i] != o.bin[i] {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func (v Var) isNumber() bool {
	return v.kind == KindInt || v.kind == KindFloat || v.kind == KindBool
}

func (v Var) toFloat() float64 {
	if v.kind == KindFloat {
		return v.f
	}
	return float64(v.i)
}

// String renders the value as a MOO literal.
func (v Var) String() string {
	switch v.kind {
	case KindNone:
		return "0"
	case KindBool:
		if v.i != 0 {
			return "true"
		}
		return "false"
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		if v.f == math.Trunc(v.f) && !math.IsInf(v.f, 0) {
			return strconv.FormatFloat(v.f, 'f', 1, 64)
		}
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindStr:
		return strconv.Quote(v.s)
	case KindObj:
		return v.o.String()
	case KindErr:
		return string(v.e.Code)
	case KindList:
		parts := make([]string, len(v.list))
		for i, e := range v.list {
			parts[i] = e.String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case KindMap:
		return v.m.String()
	case KindBinary:
		return fmt.Sprintf("b\"%x\"", v.bin)
	default:
		return "?"
	}
}
