// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftwood Contributors

package value

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
)

// The wire encoding keeps non-scalar variants distinguishable from plain
// JSON scalars:
//
//	none            -> null
//	bool/int/float  -> JSON number / bool
//	str             -> JSON string
//	obj             -> {"oid": N}
//	err             -> {"error": "E_TYPE", "message": "..."}
//	list            -> JSON array
//	map             -> {"map": [[key, value], ...]}
//	binary          -> {"binary": "<base64>"}

// MarshalJSON implements json.Marshaler.
func (v Var) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.jsonValue())
}

func (v Var) jsonValue() any {
	switch v.kind {
	case KindNone:
		return nil
	case KindBool:
		return v.i != 0
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindStr:
		return v.s
	case KindObj:
		return map[string]any{"oid": int64(v.o)}
	case KindErr:
		return map[string]any{"error": string(v.e.Code), "message": v.e.Message}
	case KindList:
		out := make([]any, len(v.list))
		for i, e := range v.list {
			out[i] = e.jsonValue()
		}
		return out
	case KindMap:
		pairs := make([][2]any, v.m.Len())
		for i, p := range v.m.Pairs() {
			pairs[i] = [2]any{p.Key.jsonValue(), p.Value.jsonValue()}
		}
		return map[string]any{"map": pairs}
	case KindBinary:
		return map[string]any{"binary": base64.StdEncoding.EncodeToString(v.bin)}
	default:
		return nil
	}
}

// UnmarshalJSON implements json.Unmarshaler via FromJSON.
func (v *Var) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := FromJSON(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// FromJSON converts a decoded JSON value (as produced by encoding/json into
// any) to a Var, inverting the wire encoding above. Unrecognized
// single-key objects fall back to maps with string keys.
func FromJSON(j any) (Var, error) {
	switch t := j.(type) {
	case nil:
		return None(), nil
	case bool:
		return Bool(t), nil
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1<<53 {
			return Int(int64(t)), nil
		}
		return Float(t), nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := t.Float64()
		if err != nil {
			return None(), fmt.Errorf("invalid number %q: %w", t.String(), err)
		}
		return Float(f), nil
	case string:
		return Str(t), nil
	case []any:
		elems := make([]Var, len(t))
		for i, e := range t {
			v, err := FromJSON(e)
			if err != nil {
				return None(), err
			}
			elems[i] = v
		}
		return List(elems...), nil
	case map[string]any:
		return fromJSONObject(t)
	default:
		return None(), fmt.Errorf("unsupported JSON value of type %T", j)
	}
}

func fromJSONObject(obj map[string]any) (Var, error) {
	if oid, ok := obj["oid"]; ok && len(obj) == 1 {
		n, ok := oid.(float64)
		if !ok {
			return None(), fmt.Errorf("oid must be a number, got %T", oid)
		}
		return Object(Obj(int64(n))), nil
	}
	if code, ok := obj["error"]; ok && len(obj) <= 2 {
		name, ok := code.(string)
		if !ok {
			return None(), fmt.Errorf("error code must be a string, got %T", code)
		}
		msg, _ := obj["message"].(string)
		if msg == "" {
			return Err(ErrCode(name)), nil
		}
		return ErrMsg(ErrCode(name), msg), nil
	}
	if raw, ok := obj["map"]; ok && len(obj) == 1 {
		pairs, ok := raw.([]any)
		if !ok {
			return None(), fmt.Errorf("map payload must be an array, got %T", raw)
		}
		m := NewMap()
		for _, rp := range pairs {
			pair, ok := rp.([]any)
			if !ok || len(pair) != 2 {
				return None(), fmt.Errorf("map entry must be a [key, value] pair")
			}
			k, err := FromJSON(pair[0])
			if err != nil {
				return None(), err
			}
			v, err := FromJSON(pair[1])
			if err != nil {
				return None(), err
			}
			m.Set(k, v)
		}
		return MapVar(m), nil
	}
	if raw, ok := obj["binary"]; ok && len(obj) == 1 {
		enc, ok := raw.(string)
		if !ok {
			return None(), fmt.Errorf("binary payload must be a string, got %T", raw)
		}
		b, err := base64.StdEncoding.DecodeString(enc)
		if err != nil {
			return None(), fmt.Errorf("invalid base64 binary payload: %w", err)
		}
		return Binary(b), nil
	}

	// Plain JSON object: a string-keyed map.
	m := NewMap()
	for k, e := range obj {
		v, err := FromJSON(e)
		if err != nil {
			return None(), err
		}
		m.Set(Str(k), v)
	}
	return MapVar(m), nil
}
