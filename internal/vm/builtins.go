// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftwood Contributors

package vm

import (
	"context"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/driftwood-mud/driftwood/internal/value"
	"github.com/driftwood-mud/driftwood/internal/world"
)

// Type codes returned by typeof. The numbering is part of the language
// surface and matches what stored verbs expect.
const (
	typeInt    = 0
	typeObj    = 1
	typeStr    = 2
	typeErr    = 3
	typeList   = 4
	typeNone   = 6
	typeFloat  = 9
	typeMap    = 10
	typeBool   = 14
	typeBinary = 15
)

type builtinFunc func(in *Interp, ctx context.Context, f *frame, args []value.Var) (value.Var, error)

var builtins map[string]builtinFunc

func init() {
	builtins = map[string]builtinFunc{
		"typeof":          bfTypeof,
		"tostr":           bfTostr,
		"toliteral":       bfToliteral,
		"toint":           bfToint,
		"tofloat":         bfTofloat,
		"toobj":           bfToobj,
		"length":          bfLength,
		"valid":           bfValid,
		"notify":          bfNotify,
		"present":         bfPresent,
		"unpresent":       bfUnpresent,
		"move":            bfMove,
		"create":          bfCreate,
		"recycle":         bfRecycle,
		"chparent":        bfChparent,
		"parent":          bfParent,
		"children":        bfChildren,
		"max_object":      bfMaxObject,
		"players":         bfPlayers,
		"properties":      bfProperties,
		"verbs":           bfVerbs,
		"add_property":    bfAddProperty,
		"delete_property": bfDeleteProperty,
		"raise":           bfRaise,
		"random":          bfRandom,
		"time":            bfTime,
		"ctime":           bfCtime,
		"strsub":          bfStrsub,
		"index":           bfIndex,
		"rindex":          bfRindex,
		"setadd":          bfSetadd,
		"setremove":       bfSetremove,
		"listappend":      bfListappend,
		"listinsert":      bfListinsert,
		"listdelete":      bfListdelete,
		"listset":         bfListset,
		"is_member":       bfIsMember,
		"min":             bfMin,
		"max":             bfMax,
		"abs":             bfAbs,
	}
}

func (in *Interp) callBuiltin(ctx context.Context, f *frame, name string, args []value.Var) (value.Var, error) {
	fn, ok := builtins[strings.ToLower(name)]
	if !ok {
		return value.None(), in.raiseHere(value.EVerbNF, "Unknown built-in function: "+name)
	}
	return fn(in, ctx, f, args)
}

// nargs raises E_ARGS unless min <= len(args) <= max. A max of -1 means
// unlimited.
func (in *Interp) nargs(args []value.Var, min, max int) error {
	if len(args) < min || (max >= 0 && len(args) > max) {
		return in.raiseHere(value.EArgs, "")
	}
	return nil
}

func (in *Interp) argObj(args []value.Var, i int) (value.Obj, error) {
	o, ok := args[i].AsObj()
	if !ok {
		return value.Nothing, in.raiseHere(value.EType, "")
	}
	return o, nil
}

func (in *Interp) argStr(args []value.Var, i int) (string, error) {
	s, ok := args[i].AsStr()
	if !ok {
		return "", in.raiseHere(value.EType, "")
	}
	return s, nil
}

func bfTypeof(in *Interp, _ context.Context, _ *frame, args []value.Var) (value.Var, error) {
	if err := in.nargs(args, 1, 1); err != nil {
		return value.None(), err
	}
	var code int64
	switch args[0].Kind() {
	case value.KindInt:
		code = typeInt
	case value.KindObj:
		code = typeObj
	case value.KindStr:
		code = typeStr
	case value.KindErr:
		code = typeErr
	case value.KindList:
		code = typeList
	case value.KindFloat:
		code = typeFloat
	case value.KindMap:
		code = typeMap
	case value.KindBool:
		code = typeBool
	case value.KindBinary:
		code = typeBinary
	default:
		code = typeNone
	}
	return value.Int(code), nil
}

// display renders v the way tostr does: strings bare, everything else
// as its literal form.
func display(v value.Var) string {
	if s, ok := v.AsStr(); ok {
		return s
	}
	return v.String()
}

func bfTostr(_ *Interp, _ context.Context, _ *frame, args []value.Var) (value.Var, error) {
	var b strings.Builder
	for _, a := range args {
		b.WriteString(display(a))
	}
	return value.Str(b.String()), nil
}

func bfToliteral(in *Interp, _ context.Context, _ *frame, args []value.Var) (value.Var, error) {
	if err := in.nargs(args, 1, 1); err != nil {
		return value.None(), err
	}
	return value.Str(args[0].String()), nil
}

func bfToint(in *Interp, _ context.Context, _ *frame, args []value.Var) (value.Var, error) {
	if err := in.nargs(args, 1, 1); err != nil {
		return value.None(), err
	}
	switch args[0].Kind() {
	case value.KindInt:
		return args[0], nil
	case value.KindFloat:
		fl, _ := args[0].AsFloat()
		return value.Int(int64(fl)), nil
	case value.KindObj:
		o, _ := args[0].AsObj()
		return value.Int(int64(o)), nil
	case value.KindStr:
		s, _ := args[0].AsStr()
		var i int64
		var neg bool
		s = strings.TrimSpace(s)
		if strings.HasPrefix(s, "-") {
			neg = true
			s = s[1:]
		}
		for _, r := range s {
			if r < '0' || r > '9' {
				return value.Int(0), nil
			}
			i = i*10 + int64(r-'0')
		}
		if neg {
			i = -i
		}
		return value.Int(i), nil
	default:
		return value.None(), in.raiseHere(value.EType, "")
	}
}

func bfTofloat(in *Interp, _ context.Context, _ *frame, args []value.Var) (value.Var, error) {
	if err := in.nargs(args, 1, 1); err != nil {
		return value.None(), err
	}
	switch args[0].Kind() {
	case value.KindFloat:
		return args[0], nil
	case value.KindInt:
		i, _ := args[0].AsInt()
		return value.Float(float64(i)), nil
	default:
		return value.None(), in.raiseHere(value.EType, "")
	}
}

func bfToobj(in *Interp, _ context.Context, _ *frame, args []value.Var) (value.Var, error) {
	if err := in.nargs(args, 1, 1); err != nil {
		return value.None(), err
	}
	switch args[0].Kind() {
	case value.KindObj:
		return args[0], nil
	case value.KindInt:
		i, _ := args[0].AsInt()
		return value.Object(value.Obj(i)), nil
	case value.KindStr:
		s, _ := args[0].AsStr()
		o, err := value.ParseObj(strings.TrimSpace(s))
		if err != nil {
			return value.Object(value.Nothing), nil
		}
		return value.Object(o), nil
	default:
		return value.None(), in.raiseHere(value.EType, "")
	}
}

func bfLength(in *Interp, _ context.Context, _ *frame, args []value.Var) (value.Var, error) {
	if err := in.nargs(args, 1, 1); err != nil {
		return value.None(), err
	}
	switch args[0].Kind() {
	case value.KindStr:
		s, _ := args[0].AsStr()
		return value.Int(int64(len(s))), nil
	case value.KindList:
		l, _ := args[0].AsList()
		return value.Int(int64(len(l))), nil
	case value.KindMap:
		m, _ := args[0].AsMap()
		return value.Int(int64(m.Len())), nil
	case value.KindBinary:
		b, _ := args[0].AsBinary()
		return value.Int(int64(len(b))), nil
	default:
		return value.None(), in.raiseHere(value.EType, "")
	}
}

func bfValid(in *Interp, ctx context.Context, _ *frame, args []value.Var) (value.Var, error) {
	if err := in.nargs(args, 1, 1); err != nil {
		return value.None(), err
	}
	o, err := in.argObj(args, 0)
	if err != nil {
		return value.None(), err
	}
	if !o.Valid() {
		return boolInt(false), nil
	}
	_, gerr := in.tx.GetObject(ctx, o)
	return boolInt(gerr == nil), nil
}

func bfNotify(in *Interp, ctx context.Context, f *frame, args []value.Var) (value.Var, error) {
	if err := in.nargs(args, 2, 2); err != nil {
		return value.None(), err
	}
	who, err := in.argObj(args, 0)
	if err != nil {
		return value.None(), err
	}
	if who != f.programmer && !in.isWizard(ctx, f.programmer) && who != f.player {
		return value.None(), in.raiseHere(value.EPerm, "")
	}
	in.emit(Effect{Kind: EffectNotify, Player: who, Line: display(args[1])})
	return value.Int(1), nil
}

func bfPresent(in *Interp, ctx context.Context, f *frame, args []value.Var) (value.Var, error) {
	if err := in.nargs(args, 3, 5); err != nil {
		return value.None(), err
	}
	who, err := in.argObj(args, 0)
	if err != nil {
		return value.None(), err
	}
	id, err := in.argStr(args, 1)
	if err != nil {
		return value.None(), err
	}
	content, err := in.argStr(args, 2)
	if err != nil {
		return value.None(), err
	}
	e := Effect{Kind: EffectPresent, Player: who, ID: id, Content: content, ContentType: "text/plain"}
	if len(args) > 3 {
		if e.ContentType, err = in.argStr(args, 3); err != nil {
			return value.None(), err
		}
	}
	if len(args) > 4 {
		if e.Target, err = in.argStr(args, 4); err != nil {
			return value.None(), err
		}
	}
	if who != f.player && !in.isWizard(ctx, f.programmer) {
		return value.None(), in.raiseHere(value.EPerm, "")
	}
	in.emit(e)
	return value.Int(1), nil
}

func bfUnpresent(in *Interp, ctx context.Context, f *frame, args []value.Var) (value.Var, error) {
	if err := in.nargs(args, 2, 2); err != nil {
		return value.None(), err
	}
	who, err := in.argObj(args, 0)
	if err != nil {
		return value.None(), err
	}
	id, err := in.argStr(args, 1)
	if err != nil {
		return value.None(), err
	}
	if who != f.player && !in.isWizard(ctx, f.programmer) {
		return value.None(), in.raiseHere(value.EPerm, "")
	}
	in.emit(Effect{Kind: EffectUnpresent, Player: who, ID: id})
	return value.Int(1), nil
}

func bfMove(in *Interp, ctx context.Context, f *frame, args []value.Var) (value.Var, error) {
	if err := in.nargs(args, 2, 2); err != nil {
		return value.None(), err
	}
	what, err := in.argObj(args, 0)
	if err != nil {
		return value.None(), err
	}
	where, err := in.argObj(args, 1)
	if err != nil {
		return value.None(), err
	}
	if err := in.svc.Move(ctx, in.tx, f.programmer, what, where); err != nil {
		return value.None(), in.worldErr(err)
	}
	return value.Int(0), nil
}

func bfCreate(in *Interp, ctx context.Context, f *frame, args []value.Var) (value.Var, error) {
	if err := in.nargs(args, 1, 2); err != nil {
		return value.None(), err
	}
	parent, err := in.argObj(args, 0)
	if err != nil {
		return value.None(), err
	}
	owner := f.programmer
	if len(args) == 2 {
		if owner, err = in.argObj(args, 1); err != nil {
			return value.None(), err
		}
	}
	oid, err := in.svc.CreateObject(ctx, in.tx, f.programmer, parent, owner)
	if err != nil {
		return value.None(), in.worldErr(err)
	}
	return value.Object(oid), nil
}

func bfRecycle(in *Interp, ctx context.Context, f *frame, args []value.Var) (value.Var, error) {
	if err := in.nargs(args, 1, 1); err != nil {
		return value.None(), err
	}
	o, err := in.argObj(args, 0)
	if err != nil {
		return value.None(), err
	}
	if err := in.svc.Recycle(ctx, in.tx, f.programmer, o); err != nil {
		return value.None(), in.worldErr(err)
	}
	return value.Int(0), nil
}

func bfChparent(in *Interp, ctx context.Context, f *frame, args []value.Var) (value.Var, error) {
	if err := in.nargs(args, 2, 2); err != nil {
		return value.None(), err
	}
	o, err := in.argObj(args, 0)
	if err != nil {
		return value.None(), err
	}
	parent, err := in.argObj(args, 1)
	if err != nil {
		return value.None(), err
	}
	if err := in.svc.ChParent(ctx, in.tx, f.programmer, o, parent); err != nil {
		return value.None(), in.worldErr(err)
	}
	return value.Int(0), nil
}

func bfParent(in *Interp, ctx context.Context, _ *frame, args []value.Var) (value.Var, error) {
	if err := in.nargs(args, 1, 1); err != nil {
		return value.None(), err
	}
	o, err := in.argObj(args, 0)
	if err != nil {
		return value.None(), err
	}
	obj, gerr := in.tx.GetObject(ctx, o)
	if gerr != nil {
		return value.None(), in.raiseHere(value.EInvArg, "")
	}
	return value.Object(obj.Parent), nil
}

func bfChildren(in *Interp, ctx context.Context, _ *frame, args []value.Var) (value.Var, error) {
	if err := in.nargs(args, 1, 1); err != nil {
		return value.None(), err
	}
	o, err := in.argObj(args, 0)
	if err != nil {
		return value.None(), err
	}
	ids, gerr := in.tx.Children(ctx, o)
	if gerr != nil {
		return value.None(), in.worldErr(gerr)
	}
	return objList(ids), nil
}

func bfMaxObject(in *Interp, ctx context.Context, _ *frame, args []value.Var) (value.Var, error) {
	if err := in.nargs(args, 0, 0); err != nil {
		return value.None(), err
	}
	max, err := in.tx.MaxObject(ctx)
	if err != nil {
		return value.None(), in.worldErr(err)
	}
	return value.Object(max), nil
}

func bfPlayers(in *Interp, ctx context.Context, _ *frame, args []value.Var) (value.Var, error) {
	if err := in.nargs(args, 0, 0); err != nil {
		return value.None(), err
	}
	ids, err := in.tx.Players(ctx)
	if err != nil {
		return value.None(), in.worldErr(err)
	}
	return objList(ids), nil
}

func bfProperties(in *Interp, ctx context.Context, f *frame, args []value.Var) (value.Var, error) {
	if err := in.nargs(args, 1, 1); err != nil {
		return value.None(), err
	}
	o, err := in.argObj(args, 0)
	if err != nil {
		return value.None(), err
	}
	entries, gerr := in.svc.ListProperties(ctx, in.tx, f.programmer, o)
	if gerr != nil {
		return value.None(), in.worldErr(gerr)
	}
	out := make([]value.Var, len(entries))
	for i, e := range entries {
		out[i] = value.Str(e.Property.Name)
	}
	return value.List(out...), nil
}

func bfVerbs(in *Interp, ctx context.Context, f *frame, args []value.Var) (value.Var, error) {
	if err := in.nargs(args, 1, 1); err != nil {
		return value.None(), err
	}
	o, err := in.argObj(args, 0)
	if err != nil {
		return value.None(), err
	}
	verbs, gerr := in.svc.ListVerbs(ctx, in.tx, f.programmer, o)
	if gerr != nil {
		return value.None(), in.worldErr(gerr)
	}
	out := make([]value.Var, len(verbs))
	for i, v := range verbs {
		out[i] = value.Str(strings.Join(v.Names, " "))
	}
	return value.List(out...), nil
}

func bfAddProperty(in *Interp, ctx context.Context, f *frame, args []value.Var) (value.Var, error) {
	if err := in.nargs(args, 3, 4); err != nil {
		return value.None(), err
	}
	o, err := in.argObj(args, 0)
	if err != nil {
		return value.None(), err
	}
	name, err := in.argStr(args, 1)
	if err != nil {
		return value.None(), err
	}
	flags := world.PropRead | world.PropWrite
	if len(args) == 4 {
		spec, serr := in.argStr(args, 3)
		if serr != nil {
			return value.None(), serr
		}
		flags = world.ParsePropFlags(spec)
	}
	p := &world.Property{Name: name, Value: args[2], Owner: f.programmer, Flags: flags}
	if err := in.svc.AddProperty(ctx, in.tx, f.programmer, o, p); err != nil {
		return value.None(), in.worldErr(err)
	}
	return value.Int(0), nil
}

func bfDeleteProperty(in *Interp, ctx context.Context, f *frame, args []value.Var) (value.Var, error) {
	if err := in.nargs(args, 2, 2); err != nil {
		return value.None(), err
	}
	o, err := in.argObj(args, 0)
	if err != nil {
		return value.None(), err
	}
	name, err := in.argStr(args, 1)
	if err != nil {
		return value.None(), err
	}
	if err := in.svc.DeleteProperty(ctx, in.tx, f.programmer, o, name); err != nil {
		return value.None(), in.worldErr(err)
	}
	return value.Int(0), nil
}

func bfRaise(in *Interp, _ context.Context, _ *frame, args []value.Var) (value.Var, error) {
	if err := in.nargs(args, 1, 2); err != nil {
		return value.None(), err
	}
	e, ok := args[0].AsErr()
	if !ok {
		return value.None(), in.raiseHere(value.EType, "")
	}
	msg := e.Message
	if len(args) == 2 {
		s, serr := in.argStr(args, 1)
		if serr != nil {
			return value.None(), serr
		}
		msg = s
	}
	return value.None(), in.raiseErr(&value.Error{Code: e.Code, Message: msg})
}

func bfRandom(in *Interp, _ context.Context, _ *frame, args []value.Var) (value.Var, error) {
	if err := in.nargs(args, 0, 1); err != nil {
		return value.None(), err
	}
	limit := int64(1 << 31)
	if len(args) == 1 {
		i, ok := args[0].AsInt()
		if !ok {
			return value.None(), in.raiseHere(value.EType, "")
		}
		if i < 1 {
			return value.None(), in.raiseHere(value.EInvArg, "")
		}
		limit = i
	}
	return value.Int(rand.Int64N(limit) + 1), nil
}

func bfTime(in *Interp, _ context.Context, _ *frame, args []value.Var) (value.Var, error) {
	if err := in.nargs(args, 0, 0); err != nil {
		return value.None(), err
	}
	return value.Int(time.Now().Unix()), nil
}

func bfCtime(in *Interp, _ context.Context, _ *frame, args []value.Var) (value.Var, error) {
	if err := in.nargs(args, 0, 1); err != nil {
		return value.None(), err
	}
	t := time.Now()
	if len(args) == 1 {
		secs, ok := args[0].AsInt()
		if !ok {
			return value.None(), in.raiseHere(value.EType, "")
		}
		t = time.Unix(secs, 0)
	}
	return value.Str(t.Format("Mon Jan _2 15:04:05 2006 MST")), nil
}

func bfStrsub(in *Interp, _ context.Context, _ *frame, args []value.Var) (value.Var, error) {
	if err := in.nargs(args, 3, 4); err != nil {
		return value.None(), err
	}
	subject, err := in.argStr(args, 0)
	if err != nil {
		return value.None(), err
	}
	what, err := in.argStr(args, 1)
	if err != nil {
		return value.None(), err
	}
	with, err := in.argStr(args, 2)
	if err != nil {
		return value.None(), err
	}
	if what == "" {
		return value.Str(subject), nil
	}
	caseMatters := false
	if len(args) == 4 {
		caseMatters = args[3].Truthy()
	}
	if caseMatters {
		return value.Str(strings.ReplaceAll(subject, what, with)), nil
	}
	var b strings.Builder
	lower, lwhat := strings.ToLower(subject), strings.ToLower(what)
	for {
		i := strings.Index(lower, lwhat)
		if i < 0 {
			b.WriteString(subject)
			return value.Str(b.String()), nil
		}
		b.WriteString(subject[:i])
		b.WriteString(with)
		subject, lower = subject[i+len(what):], lower[i+len(lwhat):]
	}
}

func bfIndex(in *Interp, _ context.Context, _ *frame, args []value.Var) (value.Var, error) {
	return in.strIndex(args, strings.Index)
}

func bfRindex(in *Interp, _ context.Context, _ *frame, args []value.Var) (value.Var, error) {
	return in.strIndex(args, strings.LastIndex)
}

func (in *Interp) strIndex(args []value.Var, find func(string, string) int) (value.Var, error) {
	if err := in.nargs(args, 2, 3); err != nil {
		return value.None(), err
	}
	s, err := in.argStr(args, 0)
	if err != nil {
		return value.None(), err
	}
	sub, err := in.argStr(args, 1)
	if err != nil {
		return value.None(), err
	}
	caseMatters := len(args) == 3 && args[2].Truthy()
	if !caseMatters {
		s, sub = strings.ToLower(s), strings.ToLower(sub)
	}
	return value.Int(int64(find(s, sub) + 1)), nil
}

func bfSetadd(in *Interp, _ context.Context, _ *frame, args []value.Var) (value.Var, error) {
	if err := in.nargs(args, 2, 2); err != nil {
		return value.None(), err
	}
	list, ok := args[0].AsList()
	if !ok {
		return value.None(), in.raiseHere(value.EType, "")
	}
	for _, elem := range list {
		if mooEqual(elem, args[1]) {
			return args[0], nil
		}
	}
	out := make([]value.Var, 0, len(list)+1)
	out = append(out, list...)
	out = append(out, args[1])
	return value.List(out...), nil
}

func bfSetremove(in *Interp, _ context.Context, _ *frame, args []value.Var) (value.Var, error) {
	if err := in.nargs(args, 2, 2); err != nil {
		return value.None(), err
	}
	list, ok := args[0].AsList()
	if !ok {
		return value.None(), in.raiseHere(value.EType, "")
	}
	out := make([]value.Var, 0, len(list))
	removed := false
	for _, elem := range list {
		if !removed && mooEqual(elem, args[1]) {
			removed = true
			continue
		}
		out = append(out, elem)
	}
	return value.List(out...), nil
}

func bfListappend(in *Interp, _ context.Context, _ *frame, args []value.Var) (value.Var, error) {
	if err := in.nargs(args, 2, 3); err != nil {
		return value.None(), err
	}
	list, ok := args[0].AsList()
	if !ok {
		return value.None(), in.raiseHere(value.EType, "")
	}
	at := int64(len(list))
	if len(args) == 3 {
		i, ok := args[2].AsInt()
		if !ok {
			return value.None(), in.raiseHere(value.EType, "")
		}
		at = i
	}
	return in.spliceAt(list, args[1], at)
}

func bfListinsert(in *Interp, _ context.Context, _ *frame, args []value.Var) (value.Var, error) {
	if err := in.nargs(args, 2, 3); err != nil {
		return value.None(), err
	}
	list, ok := args[0].AsList()
	if !ok {
		return value.None(), in.raiseHere(value.EType, "")
	}
	at := int64(0)
	if len(args) == 3 {
		i, ok := args[2].AsInt()
		if !ok {
			return value.None(), in.raiseHere(value.EType, "")
		}
		at = i - 1
	}
	return in.spliceAt(list, args[1], at)
}

func (in *Interp) spliceAt(list []value.Var, v value.Var, at int64) (value.Var, error) {
	if at < 0 {
		at = 0
	}
	if at > int64(len(list)) {
		at = int64(len(list))
	}
	out := make([]value.Var, 0, len(list)+1)
	out = append(out, list[:at]...)
	out = append(out, v)
	out = append(out, list[at:]...)
	return value.List(out...), nil
}

func bfListdelete(in *Interp, _ context.Context, _ *frame, args []value.Var) (value.Var, error) {
	if err := in.nargs(args, 2, 2); err != nil {
		return value.None(), err
	}
	list, ok := args[0].AsList()
	if !ok {
		return value.None(), in.raiseHere(value.EType, "")
	}
	i, ok := args[1].AsInt()
	if !ok {
		return value.None(), in.raiseHere(value.EType, "")
	}
	if i < 1 || i > int64(len(list)) {
		return value.None(), in.raiseHere(value.ERange, "")
	}
	out := make([]value.Var, 0, len(list)-1)
	out = append(out, list[:i-1]...)
	out = append(out, list[i:]...)
	return value.List(out...), nil
}

func bfListset(in *Interp, _ context.Context, _ *frame, args []value.Var) (value.Var, error) {
	if err := in.nargs(args, 3, 3); err != nil {
		return value.None(), err
	}
	list, ok := args[0].AsList()
	if !ok {
		return value.None(), in.raiseHere(value.EType, "")
	}
	i, ok := args[2].AsInt()
	if !ok {
		return value.None(), in.raiseHere(value.EType, "")
	}
	if i < 1 || i > int64(len(list)) {
		return value.None(), in.raiseHere(value.ERange, "")
	}
	out := make([]value.Var, len(list))
	copy(out, list)
	out[i-1] = args[1]
	return value.List(out...), nil
}

func bfIsMember(in *Interp, _ context.Context, _ *frame, args []value.Var) (value.Var, error) {
	if err := in.nargs(args, 2, 2); err != nil {
		return value.None(), err
	}
	list, ok := args[1].AsList()
	if !ok {
		return value.None(), in.raiseHere(value.EType, "")
	}
	for i, elem := range list {
		if args[0].Equal(elem) {
			return value.Int(int64(i + 1)), nil
		}
	}
	return value.Int(0), nil
}

func bfMin(in *Interp, _ context.Context, _ *frame, args []value.Var) (value.Var, error) {
	return in.extreme(args, -1)
}

func bfMax(in *Interp, _ context.Context, _ *frame, args []value.Var) (value.Var, error) {
	return in.extreme(args, 1)
}

func (in *Interp) extreme(args []value.Var, want int) (value.Var, error) {
	if err := in.nargs(args, 1, -1); err != nil {
		return value.None(), err
	}
	best := args[0]
	for _, a := range args[1:] {
		cmp, err := in.order(a, best)
		if err != nil {
			return value.None(), err
		}
		if cmp == want {
			best = a
		}
	}
	return best, nil
}

func bfAbs(in *Interp, _ context.Context, _ *frame, args []value.Var) (value.Var, error) {
	if err := in.nargs(args, 1, 1); err != nil {
		return value.None(), err
	}
	if i, ok := args[0].AsInt(); ok {
		if i < 0 {
			i = -i
		}
		return value.Int(i), nil
	}
	if fl, ok := args[0].AsFloat(); ok {
		if fl < 0 {
			fl = -fl
		}
		return value.Float(fl), nil
	}
	return value.None(), in.raiseHere(value.EType, "")
}

func (in *Interp) isWizard(ctx context.Context, who value.Obj) bool {
	if !who.Valid() {
		return true
	}
	obj, err := in.tx.GetObject(ctx, who)
	if err != nil {
		return false
	}
	return obj.IsWizard()
}
