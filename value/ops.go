package value

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrTypeMismatch is returned by the arithmetic/comparison helpers below
// when operand kinds are incompatible; callers (the VM) wrap it with the
// instruction index to produce a typed RuntimeError.
var ErrTypeMismatch = errors.New("type mismatch")

// ErrDivideByZero is returned by Div/Mod on an integer division by zero.
var ErrDivideByZero = errors.New("division by zero")

func numeric(v Value) (f float64, i int64, isFloat bool, ok bool) {
	switch t := v.(type) {
	case Boolean:
		if t {
			return 0, 1, false, true
		}
		return 0, 0, false, true
	case Integer:
		return 0, int64(t), false, true
	case Float:
		return float64(t), 0, true, true
	default:
		return 0, 0, false, false
	}
}

func toFloat(f float64, i int64, isFloat bool) float64 {
	if isFloat {
		return f
	}
	return float64(i)
}

// Add implements `+`: numeric addition with bool->int->float promotion,
// string concatenation (stringifying a non-string RHS), and list
// concatenation/append.
func Add(m *Memory, a, b Value) (Value, error) {
	if sa, ok := a.(Str); ok {
		cell := m.StringCellAt(sa.Ptr)
		return m.NewString(string(cell.Runes) + Stringify(m, b)), nil
	}
	if la, ok := a.(List); ok {
		cellA := m.ListCellAt(la.Ptr)
		elems := make([]Value, len(cellA.Elements))
		copy(elems, cellA.Elements)
		if lb, ok := b.(List); ok {
			elems = append(elems, m.ListCellAt(lb.Ptr).Elements...)
		} else {
			elems = append(elems, b)
		}
		return m.NewList(elems), nil
	}
	return numericBinOp(a, b, func(x, y int64) int64 { return x + y }, func(x, y float64) float64 { return x + y })
}

// Sub implements `-`: numeric subtraction only.
func Sub(a, b Value) (Value, error) {
	return numericBinOp(a, b, func(x, y int64) int64 { return x - y }, func(x, y float64) float64 { return x - y })
}

// Mult implements `*`: numeric multiplication, string repetition
// (String × Integer), and list repetition (List × Integer).
func Mult(m *Memory, a, b Value) (Value, error) {
	if s, n, ok := stringAndCount(a, b); ok {
		cell := m.StringCellAt(s.Ptr)
		return m.NewString(strings.Repeat(string(cell.Runes), n)), nil
	}
	if l, n, ok := listAndCount(a, b); ok {
		cell := m.ListCellAt(l.Ptr)
		out := make([]Value, 0, len(cell.Elements)*max0(n))
		for i := 0; i < n; i++ {
			out = append(out, cell.Elements...)
		}
		return m.NewList(out), nil
	}
	return numericBinOp(a, b, func(x, y int64) int64 { return x * y }, func(x, y float64) float64 { return x * y })
}

func max0(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

func stringAndCount(a, b Value) (Str, int, bool) {
	if s, ok := a.(Str); ok {
		if n, ok := integerCount(b); ok {
			return s, n, true
		}
	}
	if s, ok := b.(Str); ok {
		if n, ok := integerCount(a); ok {
			return s, n, true
		}
	}
	return Str{}, 0, false
}

func listAndCount(a, b Value) (List, int, bool) {
	if l, ok := a.(List); ok {
		if n, ok := integerCount(b); ok {
			return l, n, true
		}
	}
	if l, ok := b.(List); ok {
		if n, ok := integerCount(a); ok {
			return l, n, true
		}
	}
	return List{}, 0, false
}

func integerCount(v Value) (int, bool) {
	if i, ok := v.(Integer); ok {
		return int(i), true
	}
	return 0, false
}

// Div implements `/`: integer division truncates toward zero and raises
// ErrDivideByZero on a zero divisor; if either operand is a Float the
// result follows IEEE-754 float division semantics.
func Div(a, b Value) (Value, error) {
	fa, ia, isFloatA, okA := numeric(a)
	fb, ib, isFloatB, okB := numeric(b)
	if !okA || !okB {
		return nil, ErrTypeMismatch
	}
	if !isFloatA && !isFloatB {
		if ib == 0 {
			return nil, ErrDivideByZero
		}
		return Integer(ia / ib), nil
	}
	return Float(toFloat(fa, ia, isFloatA) / toFloat(fb, ib, isFloatB)), nil
}

// Mod implements `%`, with the same integer/float split as Div.
func Mod(a, b Value) (Value, error) {
	fa, ia, isFloatA, okA := numeric(a)
	fb, ib, isFloatB, okB := numeric(b)
	if !okA || !okB {
		return nil, ErrTypeMismatch
	}
	if !isFloatA && !isFloatB {
		if ib == 0 {
			return nil, ErrDivideByZero
		}
		return Integer(ia % ib), nil
	}
	af := toFloat(fa, ia, isFloatA)
	bf := toFloat(fb, ib, isFloatB)
	return Float(af - bf*float64(int64(af/bf))), nil
}

func numericBinOp(a, b Value, intOp func(int64, int64) int64, floatOp func(float64, float64) float64) (Value, error) {
	fa, ia, isFloatA, okA := numeric(a)
	fb, ib, isFloatB, okB := numeric(b)
	if !okA || !okB {
		return nil, ErrTypeMismatch
	}
	if !isFloatA && !isFloatB {
		return Integer(intOp(ia, ib)), nil
	}
	return Float(floatOp(toFloat(fa, ia, isFloatA), toFloat(fb, ib, isFloatB))), nil
}

// Negate implements unary `-`.
func Negate(v Value) (Value, error) {
	f, i, isFloat, ok := numeric(v)
	if !ok {
		return nil, ErrTypeMismatch
	}
	if isFloat {
		return Float(-f), nil
	}
	return Integer(-i), nil
}

// Compare implements `< <= > >=`: numeric ordering (with bool promotion) and
// lexicographic string ordering. Ordering is undefined for any other pairing
// of kinds.
func Compare(m *Memory, a, b Value) (int, error) {
	if sa, ok := a.(Str); ok {
		if sb, ok := b.(Str); ok {
			as := string(m.StringCellAt(sa.Ptr).Runes)
			bs := string(m.StringCellAt(sb.Ptr).Runes)
			return strings.Compare(as, bs), nil
		}
		return 0, ErrTypeMismatch
	}
	fa, ia, isFloatA, okA := numeric(a)
	fb, ib, isFloatB, okB := numeric(b)
	if !okA || !okB {
		return 0, ErrTypeMismatch
	}
	if !isFloatA && !isFloatB {
		switch {
		case ia < ib:
			return -1, nil
		case ia > ib:
			return 1, nil
		default:
			return 0, nil
		}
	}
	af := toFloat(fa, ia, isFloatA)
	bf := toFloat(fb, ib, isFloatB)
	switch {
	case af < bf:
		return -1, nil
	case af > bf:
		return 1, nil
	default:
		return 0, nil
	}
}

// Equals implements structural equality, recursing into List/Object
// contents.
func Equals(m *Memory, a, b Value) bool {
	switch av := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case Boolean:
		bv, ok := b.(Boolean)
		return ok && av == bv
	case Integer:
		switch bv := b.(type) {
		case Integer:
			return av == bv
		case Float:
			return float64(av) == float64(bv)
		}
		return false
	case Float:
		switch bv := b.(type) {
		case Integer:
			return float64(av) == float64(bv)
		case Float:
			return av == bv
		}
		return false
	case Str:
		bv, ok := b.(Str)
		if !ok {
			return false
		}
		return string(m.StringCellAt(av.Ptr).Runes) == string(m.StringCellAt(bv.Ptr).Runes)
	case List:
		bv, ok := b.(List)
		if !ok {
			return false
		}
		ca, cb := m.ListCellAt(av.Ptr), m.ListCellAt(bv.Ptr)
		if len(ca.Elements) != len(cb.Elements) {
			return false
		}
		for i := range ca.Elements {
			if !Equals(m, ca.Elements[i], cb.Elements[i]) {
				return false
			}
		}
		return true
	case Obj:
		bv, ok := b.(Obj)
		if !ok {
			return false
		}
		ca, cb := m.ObjectCellAt(av.Ptr), m.ObjectCellAt(bv.Ptr)
		if len(ca.Keys) != len(cb.Keys) {
			return false
		}
		for _, k := range ca.Keys {
			bval, ok := cb.Get(k)
			if !ok {
				return false
			}
			aval, _ := ca.Get(k)
			if !Equals(m, aval, bval) {
				return false
			}
		}
		return true
	case Range:
		bv, ok := b.(Range)
		return ok && av == bv
	case Regex:
		bv, ok := b.(Regex)
		return ok && av.Pattern == bv.Pattern && av.Flags == bv.Flags
	default:
		return false
	}
}

// Stringify renders a Value the way `say`/`str()` and list/object
// formatting show it.
func Stringify(m *Memory, v Value) string {
	switch t := v.(type) {
	case Null:
		return "null"
	case Boolean:
		if t {
			return "true"
		}
		return "false"
	case Integer:
		return strconv.FormatInt(int64(t), 10)
	case Float:
		return strconv.FormatFloat(float64(t), 'g', -1, 64)
	case Str:
		return string(m.StringCellAt(t.Ptr).Runes)
	case List:
		cell := m.ListCellAt(t.Ptr)
		parts := make([]string, len(cell.Elements))
		for i, e := range cell.Elements {
			parts[i] = quoteIfString(m, e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case Obj:
		cell := m.ObjectCellAt(t.Ptr)
		parts := make([]string, 0, len(cell.Keys))
		for _, k := range cell.Keys {
			v, _ := cell.Get(k)
			parts = append(parts, fmt.Sprintf("%s: %s", k, quoteIfString(m, v)))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case Range:
		op := ".."
		if t.Inclusive {
			op = "..="
		}
		if t.Char {
			return fmt.Sprintf("%q%s%q", string(rune(t.Begin)), op, string(rune(t.End)))
		}
		return fmt.Sprintf("%d%s%d", t.Begin, op, t.End)
	case Regex:
		return "/" + t.Pattern + "/" + t.Flags
	case Closure:
		return fmt.Sprintf("<func %s>", t.Name)
	case BoundProcedure:
		return "<bound method>"
	case Builtin:
		return fmt.Sprintf("<builtin %s>", t.Name)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func quoteIfString(m *Memory, v Value) string {
	if s, ok := v.(Str); ok {
		return strconv.Quote(string(m.StringCellAt(s.Ptr).Runes))
	}
	return Stringify(m, v)
}
