// Package access implements the access-view engine: the shared read/write
// path behind attribute, index, and slice chains like `a.b[2:4][0].c`, and
// the two-phase method-dispatch fallback (missing attribute + call site ->
// a BoundProcedure over a builtin).
package access

import (
	"errors"

	"yqlang/value"
)

// ErrTypeMismatch is raised when a step is applied to a Value kind that
// cannot support it (e.g. indexing a Boolean).
var ErrTypeMismatch = errors.New("type mismatch")

// ErrIndexOutOfRange is raised by a plain (non-slice) index step whose
// normalized index falls outside the target's bounds.
var ErrIndexOutOfRange = errors.New("index out of range")

// ErrNoSuchMethod is raised when an AttrKey step used as a call-site callee
// cannot be resolved to a stored value or a builtin.
var ErrNoSuchMethod = errors.New("no such method")

// StepKind distinguishes the two access-chain step shapes the grammar
// produces: `.name` and `[...]`.
type StepKind int

const (
	AttrKey StepKind = iota
	Subscript
)

// Step is one link of an access chain. AttrKey steps only use Attr.
// Subscript steps with Extended=false are a plain index (Begin only);
// Extended=true is a slice, with End present only when the grammar supplied
// an upper bound (`a[2:]` has HasEnd=false, meaning "to length").
type Step struct {
	Kind     StepKind
	Attr     string
	Begin    int64
	End      int64
	HasEnd   bool
	Extended bool
}

func AttrStep(name string) Step { return Step{Kind: AttrKey, Attr: name} }

func IndexStep(i int64) Step { return Step{Kind: Subscript, Begin: i} }

func SliceStep(begin int64, end int64, hasEnd bool) Step {
	return Step{Kind: Subscript, Begin: begin, End: end, HasEnd: hasEnd, Extended: true}
}

// normalizeIndex adds length to a negative index, per the spec's bounds
// rule: negative indices count from the end. The result is not clamped;
// callers bounds-check it.
func normalizeIndex(i int64, length int) int64 {
	if i < 0 {
		i += int64(length)
	}
	return i
}

// normalizeSlice turns a raw (begin, end, hasEnd) into in-bounds [begin, end)
// with begin >= end collapsing to an empty selection and end capped at
// length.
func normalizeSlice(begin, end int64, hasEnd bool, length int) (int64, int64) {
	b := normalizeIndex(begin, length)
	if b < 0 {
		b = 0
	}
	if b > int64(length) {
		b = int64(length)
	}
	var e int64
	if hasEnd {
		e = normalizeIndex(end, length)
	} else {
		e = int64(length)
	}
	if e > int64(length) {
		e = int64(length)
	}
	if e < b {
		e = b
	}
	return b, e
}

// Get reads the value reached by applying every step of chain in order to
// root. asCallable controls AttrKey's missing-binding behavior: when true
// (the chain is a call expression's callee), a receiver without the named
// value falls back to a builtin bound as `this` instead of erroring/nulling.
func Get(mem *value.Memory, root value.Value, chain []Step, asCallable bool) (value.Value, error) {
	cur := root
	for i, step := range chain {
		last := i == len(chain)-1
		next, err := getStep(mem, cur, step, asCallable && last)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

func getStep(mem *value.Memory, cur value.Value, step Step, asCallable bool) (value.Value, error) {
	switch step.Kind {
	case AttrKey:
		return getAttr(mem, cur, step.Attr, asCallable)
	case Subscript:
		return getSubscript(mem, cur, step)
	default:
		return nil, ErrTypeMismatch
	}
}

func getAttr(mem *value.Memory, cur value.Value, name string, asCallable bool) (value.Value, error) {
	if obj, ok := cur.(value.Obj); ok {
		cell := mem.ObjectCellAt(obj.Ptr)
		if v, found := cell.Get(name); found {
			return v, nil
		}
		if asCallable {
			return value.BoundProcedure{Callee: value.Builtin{Name: name}, Receiver: cur}, nil
		}
		return value.Null{}, nil
	}
	// Every other receiver kind dispatches `.name` to a builtin bound as
	// `this`; primitives have no stored fields of their own.
	return value.BoundProcedure{Callee: value.Builtin{Name: name}, Receiver: cur}, nil
}

func getSubscript(mem *value.Memory, cur value.Value, step Step) (value.Value, error) {
	switch t := cur.(type) {
	case value.Str:
		cell := mem.StringCellAt(t.Ptr)
		length := len(cell.Runes)
		if step.Extended {
			b, e := normalizeSlice(step.Begin, step.End, step.HasEnd, length)
			return mem.NewString(string(cell.Runes[b:e])), nil
		}
		idx := normalizeIndex(step.Begin, length)
		if idx < 0 || idx >= int64(length) {
			return nil, ErrIndexOutOfRange
		}
		return mem.NewString(string(cell.Runes[idx : idx+1])), nil

	case value.List:
		cell := mem.ListCellAt(t.Ptr)
		length := len(cell.Elements)
		if step.Extended {
			b, e := normalizeSlice(step.Begin, step.End, step.HasEnd, length)
			out := make([]value.Value, e-b)
			copy(out, cell.Elements[b:e])
			return mem.NewList(out), nil
		}
		idx := normalizeIndex(step.Begin, length)
		if idx < 0 || idx >= int64(length) {
			return nil, ErrIndexOutOfRange
		}
		return cell.Elements[idx], nil

	case value.Range:
		length := rangeLen(t)
		if step.Extended {
			b, e := normalizeSlice(step.Begin, step.End, step.HasEnd, length)
			return value.Range{Begin: t.Begin + b, End: t.Begin + e, Inclusive: false, Char: t.Char}, nil
		}
		idx := normalizeIndex(step.Begin, length)
		if idx < 0 || idx >= int64(length) {
			return nil, ErrIndexOutOfRange
		}
		if t.Char {
			return mem.NewString(string(rune(t.Begin + idx))), nil
		}
		return value.Integer(t.Begin + idx), nil

	default:
		return nil, ErrTypeMismatch
	}
}

func rangeLen(r value.Range) int {
	n := r.End - r.Begin
	if r.Inclusive {
		n++
	}
	if n < 0 {
		return 0
	}
	return int(n)
}

// Set applies newValue at the location reached by chain, mutating the
// innermost container in place. chain must be non-empty; a bare variable
// assignment never goes through the access view.
func Set(mem *value.Memory, root value.Value, chain []Step, newValue value.Value) error {
	container := root
	for i := 0; i < len(chain)-1; i++ {
		next, err := getStep(mem, container, chain[i], false)
		if err != nil {
			return err
		}
		container = next
	}
	return setStep(mem, container, chain[len(chain)-1], newValue)
}

func setStep(mem *value.Memory, container value.Value, step Step, newValue value.Value) error {
	switch step.Kind {
	case AttrKey:
		obj, ok := container.(value.Obj)
		if !ok {
			return ErrTypeMismatch
		}
		mem.ObjectCellAt(obj.Ptr).Set(step.Attr, newValue)
		return nil
	case Subscript:
		return setSubscript(mem, container, step, newValue)
	default:
		return ErrTypeMismatch
	}
}

func setSubscript(mem *value.Memory, container value.Value, step Step, newValue value.Value) error {
	switch t := container.(type) {
	case value.Str:
		cell := mem.StringCellAt(t.Ptr)
		length := len(cell.Runes)
		replacement := []rune(value.Stringify(mem, newValue))
		if step.Extended {
			b, e := normalizeSlice(step.Begin, step.End, step.HasEnd, length)
			cell.Runes = spliceRunes(cell.Runes, int(b), int(e), replacement)
			return nil
		}
		idx := normalizeIndex(step.Begin, length)
		if idx < 0 || idx >= int64(length) {
			return ErrIndexOutOfRange
		}
		cell.Runes = spliceRunes(cell.Runes, int(idx), int(idx)+1, replacement)
		return nil

	case value.List:
		cell := mem.ListCellAt(t.Ptr)
		length := len(cell.Elements)
		if step.Extended {
			b, e := normalizeSlice(step.Begin, step.End, step.HasEnd, length)
			var replacement []value.Value
			if rl, ok := newValue.(value.List); ok {
				replacement = mem.ListCellAt(rl.Ptr).Elements
			} else {
				replacement = []value.Value{newValue}
			}
			cell.Elements = spliceValues(cell.Elements, int(b), int(e), replacement)
			return nil
		}
		idx := normalizeIndex(step.Begin, length)
		if idx < 0 || idx >= int64(length) {
			return ErrIndexOutOfRange
		}
		cell.Elements[idx] = newValue
		return nil

	default:
		return ErrTypeMismatch
	}
}

func spliceRunes(orig []rune, begin, end int, replacement []rune) []rune {
	out := make([]rune, 0, len(orig)-(end-begin)+len(replacement))
	out = append(out, orig[:begin]...)
	out = append(out, replacement...)
	out = append(out, orig[end:]...)
	return out
}

func spliceValues(orig []value.Value, begin, end int, replacement []value.Value) []value.Value {
	out := make([]value.Value, 0, len(orig)-(end-begin)+len(replacement))
	out = append(out, orig[:begin]...)
	out = append(out, replacement...)
	out = append(out, orig[end:]...)
	return out
}
