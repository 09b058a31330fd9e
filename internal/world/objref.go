// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftwood Contributors

package world

import (
	"strconv"
	"strings"

	"github.com/samber/oops"

	"github.com/driftwood-mud/driftwood/internal/value"
)

// RefKind discriminates ObjectRef variants.
type RefKind uint8

const (
	// RefOid is an absolute numeric reference (#1234).
	RefOid RefKind = iota
	// RefSysObj is a dotted system path rooted at #0 ($login.welcome).
	RefSysObj
	// RefMatch is a free-text match in an acting player's environment.
	RefMatch
)

// ObjectRef is a client-supplied object reference. Exactly one variant is
// populated, as selected by Kind.
//
// The CURIE string encoding used in REST paths:
//
//	oid:1234          -> #1234
//	sysobj:login.foo  -> $login.foo
//	match("lantern")  -> environment match on "lantern"
type ObjectRef struct {
	Kind  RefKind
	Oid   value.Obj
	Path  []string
	Match string
}

// OidRef builds a numeric reference.
func OidRef(o value.Obj) ObjectRef { return ObjectRef{Kind: RefOid, Oid: o} }

// SysObjRef builds a system-path reference.
func SysObjRef(path ...string) ObjectRef { return ObjectRef{Kind: RefSysObj, Path: path} }

// MatchRef builds an environment-match reference.
func MatchRef(phrase string) ObjectRef { return ObjectRef{Kind: RefMatch, Match: phrase} }

// Curie encodes the reference as a CURIE.
func (r ObjectRef) Curie() string {
	switch r.Kind {
	case RefOid:
		return "oid:" + strconv.FormatInt(int64(r.Oid), 10)
	case RefSysObj:
		return "sysobj:" + strings.Join(r.Path, ".")
	case RefMatch:
		return `match("` + r.Match + `")`
	default:
		return ""
	}
}

// String renders the MOO-facing notation (#N, $a.b, or the match phrase).
func (r ObjectRef) String() string {
	switch r.Kind {
	case RefOid:
		return r.Oid.String()
	case RefSysObj:
		return "$" + strings.Join(r.Path, ".")
	case RefMatch:
		return r.Match
	default:
		return ""
	}
}

// Equal reports structural equality.
func (r ObjectRef) Equal(o ObjectRef) bool {
	if r.Kind != o.Kind {
		return false
	}
	switch r.Kind {
	case RefOid:
		return r.Oid == o.Oid
	case RefSysObj:
		if len(r.Path) != len(o.Path) {
			return false
		}
		for i := range r.Path {
			if r.Path[i] != o.Path[i] {
				return false
			}
		}
		return true
	case RefMatch:
		return r.Match == o.Match
	default:
		return false
	}
}

// ParseCurie decodes a CURIE produced by Curie.
func ParseCurie(s string) (ObjectRef, error) {
	switch {
	case strings.HasPrefix(s, "oid:"):
		n, err := strconv.ParseInt(s[len("oid:"):], 10, 64)
		if err != nil {
			return ObjectRef{}, oops.Code("REF_BAD_CURIE").With("curie", s).Wrap(ErrInvalidRef)
		}
		return OidRef(value.Obj(n)), nil
	case strings.HasPrefix(s, "sysobj:"):
		raw := strings.TrimSuffix(s[len("sysobj:"):], ".")
		if raw == "" {
			return ObjectRef{}, oops.Code("REF_BAD_CURIE").With("curie", s).Wrap(ErrInvalidRef)
		}
		path := strings.Split(raw, ".")
		for _, seg := range path {
			if seg == "" {
				return ObjectRef{}, oops.Code("REF_BAD_CURIE").With("curie", s).Wrap(ErrInvalidRef)
			}
		}
		return SysObjRef(path...), nil
	case strings.HasPrefix(s, `match("`) && strings.HasSuffix(s, `")`):
		phrase := s[len(`match("`) : len(s)-len(`")`)]
		return MatchRef(phrase), nil
	case strings.HasPrefix(s, "match:"):
		// Lenient form used by clients that cannot quote.
		return MatchRef(s[len("match:"):]), nil
	default:
		return ObjectRef{}, oops.Code("REF_BAD_CURIE").With("curie", s).Wrap(ErrInvalidRef)
	}
}
