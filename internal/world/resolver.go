// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftwood Contributors

package world

import (
	"context"
	"errors"
	"strings"

	"github.com/samber/oops"

	"github.com/driftwood-mud/driftwood/internal/value"
)

// Resolve turns a client-supplied ObjectRef into a concrete object id.
// Resolution is always relative to the acting player: sysobj paths carry
// the player's read permissions into each property hop, and environment
// matches search only the player's surroundings.
func (s *Service) Resolve(ctx context.Context, tx Tx, actor value.Obj, ref ObjectRef) (value.Obj, error) {
	switch ref.Kind {
	case RefOid:
		obj, err := tx.GetObject(ctx, ref.Oid)
		if err != nil {
			return value.Nothing, err
		}
		return obj.ID, nil
	case RefSysObj:
		return s.resolveSysObj(ctx, tx, actor, ref.Path)
	case RefMatch:
		return s.resolveMatch(ctx, tx, actor, ref.Match)
	default:
		return value.Nothing, oops.Code("REF_BAD_KIND").Wrap(ErrInvalidRef)
	}
}

// resolveSysObj walks a dotted path rooted at #0, following object-valued
// properties for each segment.
func (s *Service) resolveSysObj(ctx context.Context, tx Tx, actor value.Obj, path []string) (value.Obj, error) {
	if len(path) == 0 {
		return value.Nothing, oops.Code("REF_EMPTY_PATH").Wrap(ErrInvalidRef)
	}
	cur := value.SystemObj
	for _, seg := range path {
		prop, _, err := s.PropertyValue(ctx, tx, actor, cur, seg)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return value.Nothing, oops.Code("REF_BROKEN_PATH").
					With("segment", seg).Wrap(ErrInvalidRef)
			}
			return value.Nothing, err
		}
		next, ok := prop.Value.AsObj()
		if !ok {
			return value.Nothing, oops.Code("REF_SEGMENT_NOT_OBJECT").
				With("segment", seg).With("kind", prop.Value.Kind().String()).Wrap(ErrInvalidRef)
		}
		cur = next
	}
	return cur, nil
}

// matchState tracks the running best candidates during an environment
// match: one exact winner and one partial (prefix) winner.
type matchState struct {
	exact   value.Obj
	partial value.Obj
}

// resolveMatch performs the environment-scoped name match. Policy (see
// DESIGN.md): names and aliases compare case-insensitively; an exact match
// beats any partial; two exacts or two partials on distinct objects are
// ambiguous; no candidates is a failed match.
func (s *Service) resolveMatch(ctx context.Context, tx Tx, actor value.Obj, phrase string) (value.Obj, error) {
	phrase = strings.TrimSpace(phrase)
	if phrase == "" {
		return value.Nothing, oops.Code("MATCH_EMPTY").Wrap(ErrFailedMatch)
	}

	player, err := tx.GetObject(ctx, actor)
	if err != nil {
		return value.Nothing, err
	}

	// Literal and pronoun shortcuts before any scanning.
	if strings.HasPrefix(phrase, "#") {
		oid, perr := value.ParseObj(phrase)
		if perr != nil {
			return value.Nothing, oops.Code("MATCH_BAD_LITERAL").With("phrase", phrase).Wrap(ErrFailedMatch)
		}
		if _, err := tx.GetObject(ctx, oid); err != nil {
			return value.Nothing, err
		}
		return oid, nil
	}
	switch strings.ToLower(phrase) {
	case "me":
		return player.ID, nil
	case "here":
		if !player.Location.Valid() {
			return value.Nothing, oops.Code("MATCH_NOWHERE").Wrap(ErrFailedMatch)
		}
		return player.Location, nil
	}

	surroundings, err := s.surroundings(ctx, tx, player)
	if err != nil {
		return value.Nothing, err
	}

	state := matchState{exact: value.Nothing, partial: value.FailedMatch}
	want := strings.ToLower(phrase)
	for _, oid := range surroundings {
		names, err := s.objectNames(ctx, tx, oid)
		if err != nil {
			if errors.Is(err, ErrNotFound) || errors.Is(err, ErrRecycled) {
				continue
			}
			return value.Nothing, err
		}
		if res := matchNames(oid, names, want, &state); res == value.Ambiguous {
			return value.Nothing, oops.Code("MATCH_AMBIGUOUS").With("phrase", phrase).Wrap(ErrAmbiguous)
		}
	}

	switch {
	case state.exact.Valid():
		return state.exact, nil
	case state.partial == value.Ambiguous:
		return value.Nothing, oops.Code("MATCH_AMBIGUOUS").With("phrase", phrase).Wrap(ErrAmbiguous)
	case state.partial.Valid():
		return state.partial, nil
	default:
		return value.Nothing, oops.Code("MATCH_FAILED").With("phrase", phrase).Wrap(ErrFailedMatch)
	}
}

// matchNames folds one object's name list into the match state, returning
// value.Ambiguous as soon as two distinct objects match exactly.
func matchNames(oid value.Obj, names []string, want string, state *matchState) value.Obj {
	for _, name := range names {
		name = strings.ToLower(name)
		if !strings.HasPrefix(name, want) {
			continue
		}
		if name == want {
			if state.exact == value.Nothing || state.exact == oid {
				state.exact = oid
			} else {
				return value.Ambiguous
			}
		} else {
			if state.partial == value.FailedMatch || state.partial == oid {
				state.partial = oid
			} else {
				state.partial = value.Ambiguous
			}
		}
	}
	return value.Nothing
}

// surroundings returns the player, the player's location, and the contents
// of both, deduplicated, preserving search order.
func (s *Service) surroundings(ctx context.Context, tx Tx, player *Object) ([]value.Obj, error) {
	out := []value.Obj{player.ID}
	if player.Location.Valid() {
		out = append(out, player.Location)
		contents, err := tx.Contents(ctx, player.Location)
		if err != nil {
			return nil, err
		}
		out = append(out, contents...)
	}
	inventory, err := tx.Contents(ctx, player.ID)
	if err != nil {
		return nil, err
	}
	out = append(out, inventory...)

	seen := make(map[value.Obj]bool, len(out))
	dedup := out[:0]
	for _, oid := range out {
		if !seen[oid] {
			seen[oid] = true
			dedup = append(dedup, oid)
		}
	}
	return dedup, nil
}

// objectNames returns the object's name plus its "aliases" property when
// that holds a list of strings.
func (s *Service) objectNames(ctx context.Context, tx Tx, oid value.Obj) ([]string, error) {
	obj, err := tx.GetObject(ctx, oid)
	if err != nil {
		return nil, err
	}
	names := []string{obj.Name}
	prop, err := tx.GetProperty(ctx, oid, "aliases")
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return names, nil
		}
		return nil, err
	}
	if aliases, ok := prop.Value.AsList(); ok {
		for _, a := range aliases {
			if s, ok := a.AsStr(); ok {
				names = append(names, s)
			}
		}
	}
	return names, nil
}
