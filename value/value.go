// Package value implements the tagged Value union and heap Memory described
// by the language's data model: Null, Boolean, Integer, Float, String, List,
// Object, Range, RegEx, Closure, and BoundProcedure.
package value

import "regexp"

// Value is the sum type every expression evaluates to. Each concrete type
// below is one of the variants; String, List, and Object carry a Pointer
// into a Memory's heap rather than their data, which is what gives them
// reference semantics (copying the Value copies the pointer, not the
// underlying container).
type Value interface {
	Kind() Kind
}

type Kind int

const (
	KindNull Kind = iota
	KindBoolean
	KindInteger
	KindFloat
	KindString
	KindList
	KindObject
	KindRange
	KindRegex
	KindClosure
	KindBoundProcedure
	KindBuiltin
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBoolean:
		return "boolean"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindObject:
		return "object"
	case KindRange:
		return "range"
	case KindRegex:
		return "regex"
	case KindClosure:
		return "closure"
	case KindBoundProcedure:
		return "bound_procedure"
	case KindBuiltin:
		return "builtin"
	default:
		return "unknown"
	}
}

// Null is the `null` value.
type Null struct{}

func (Null) Kind() Kind { return KindNull }

// Boolean is `true`/`false`.
type Boolean bool

func (Boolean) Kind() Kind { return KindBoolean }

// Integer is a 64-bit signed integer.
type Integer int64

func (Integer) Kind() Kind { return KindInteger }

// Float is an IEEE-754 double.
type Float float64

func (Float) Kind() Kind { return KindFloat }

// Str is a reference to a heap-allocated StringCell.
type Str struct{ Ptr Pointer }

func (Str) Kind() Kind { return KindString }

// List is a reference to a heap-allocated ListCell.
type List struct{ Ptr Pointer }

func (List) Kind() Kind { return KindList }

// Obj is a reference to a heap-allocated ObjectCell.
type Obj struct{ Ptr Pointer }

func (Obj) Kind() Kind { return KindObject }

// Range is an integer or character range; value semantics (copied, not
// shared). Char marks a range built from single-character strings
// (`range("a", "z")`), so iteration/indexing yields code points rendered
// back as one-rune strings instead of Integers, matching the spec's
// "numeric or character ranges".
type Range struct {
	Begin     int64
	End       int64
	Inclusive bool
	Char      bool
}

func (Range) Kind() Kind { return KindRange }

// Regex is a compiled pattern plus its original flags string.
type Regex struct {
	Re      *regexp.Regexp
	Pattern string
	Flags   string
}

func (Regex) Kind() Kind { return KindRegex }

// Closure is `(entry-address, captures)`; captures are shared pointers into
// the enclosing frame's promoted-to-heap cells, so mutating a captured
// variable through one closure is visible through every other reference to
// the same capture.
type Closure struct {
	Entry    int
	Captures []Pointer
	Name     string
	Arity    int
}

func (Closure) Kind() Kind { return KindClosure }

// BoundProcedure packages a callable (Closure or builtin name) together with
// a receiver, so that inside the body `this` refers to Receiver.
type BoundProcedure struct {
	Callee   Value // Closure, or Builtin
	Receiver Value
}

func (BoundProcedure) Kind() Kind { return KindBoundProcedure }

// Builtin identifies a host-independent builtin procedure by name.
type Builtin struct{ Name string }

func (Builtin) Kind() Kind { return KindBuiltin }

// Truthy implements the heap-free part of yqlang's truthiness rule: null,
// false and numeric zero are falsy; every other value, containers included,
// is reported truthy here. Memory.Truthy adds the emptiness check for
// String/List/Object and defers to this function for the rest.
func Truthy(v Value) bool {
	switch t := v.(type) {
	case Null:
		return false
	case Boolean:
		return bool(t)
	case Integer:
		return t != 0
	case Float:
		return t != 0
	default:
		return true
	}
}
