// Package builtin implements the host-independent procedure table every
// compiled program calls into via a value.Builtin callee: string/list/object
// methods (split, join, length, sorted, filter, map, reduce, ...), numeric
// conversions, regex helpers, and the handful of host-delegated procedures
// (time, sleep, random, getNickname) a driver wires a Host for.
package builtin

import (
	"fmt"
	"math"
	"math/rand"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"yqlang/value"
)

// Invoker lets a builtin call back into a first-class Value (Closure,
// Builtin, or BoundProcedure) without this package depending on the vm
// package's frame/opcode machinery. *vm.VM satisfies this interface.
type Invoker interface {
	Invoke(callee value.Value, args []value.Value) (value.Value, error)
}

// Host resolves the builtins that reach outside the running script: the
// surrounding chat platform (getNickname) and wall-clock/entropy sources
// (time, sleep, random) a driver may want to account against its allowance.
type Host interface {
	Nickname(id int64) (string, error)
	NowMillis() int64
	Sleep(ms int64)
	Random() float64 // uniform [0,1)
}

// Table is the concrete Builtins implementation the vm package dispatches
// OP_CALL against when the callee is a value.Builtin.
type Table struct {
	invoker Invoker
	host    Host
}

// New builds a Table. invoker is required for filter/map/reduce/sorted's
// callback argument; host is required for time/sleep/random/getNickname.
// Both may be nil for programs that never reach those builtins (tests).
func New(invoker Invoker, host Host) *Table {
	return &Table{invoker: invoker, host: host}
}

type handler func(t *Table, mem *value.Memory, receiver value.Value, bound bool, args []value.Value) (value.Value, error)

var dispatch = map[string]handler{
	"split":          biSplit,
	"join":           biJoin,
	"find":           biFind,
	"findAll":        biFindAll,
	"contains":       biContains,
	"length":         biLength,
	"reversed":       biReversed,
	"sorted":         biSorted,
	"enumerated":     biEnumerated,
	"sum":            biSum,
	"filter":         biFilter,
	"map":            biMap,
	"reduce":         biReduce,
	"max":            biMax,
	"min":            biMin,
	"range":          biRange,
	"rangeInclusive": biRangeInclusive,
	"number":         biNumber,
	"num":            biNumber,
	"string":         biString,
	"str":            biString,
	"integer":        biInteger,
	"float":          biFloat,
	"boolean":        biBoolean,
	"bool":           biBoolean,
	"object":         biObject,
	"abs":            biAbs,
	"ord":            biOrd,
	"chr":            biChr,
	"char":           biChr,
	"pow":            biPow,
	"re":             biRe,
	"match":          biMatch,
	"matchAll":       biMatchAll,
	"matchEntire":    biMatchEntire,
	"replace":        biReplace,
	"time":           biTime,
	"sleep":          biSleep,
	"random":         biRandom,
	"getNickname":    biGetNickname,
}

// Call implements vm.Builtins. Every builtin is reachable free (`length(x)`)
// or bound (`x.length()`); handlers receive the raw receiver/bound/args
// triple and fold the two calling conventions down themselves via target().
func (t *Table) Call(mem *value.Memory, name string, receiver value.Value, bound bool, args []value.Value) (value.Value, error) {
	h, ok := dispatch[name]
	if !ok {
		return nil, fmt.Errorf("no such builtin %q", name)
	}
	return h(t, mem, receiver, bound, args)
}

// target folds a receiver-style builtin's two calling conventions
// (`x.length()` vs free `length(x)`) down to a single (subject, rest) pair.
func target(receiver value.Value, bound bool, args []value.Value) (value.Value, []value.Value, error) {
	if bound {
		return receiver, args, nil
	}
	if len(args) == 0 {
		return nil, nil, fmt.Errorf("expected a receiver argument")
	}
	return args[0], args[1:], nil
}

func asStr(mem *value.Memory, v value.Value) (string, bool) {
	s, ok := v.(value.Str)
	if !ok {
		return "", false
	}
	return string(mem.StringCellAt(s.Ptr).Runes), true
}

func asList(mem *value.Memory, v value.Value) ([]value.Value, bool) {
	l, ok := v.(value.List)
	if !ok {
		return nil, false
	}
	return mem.ListCellAt(l.Ptr).Elements, true
}

func asFloat(v value.Value) (float64, bool) {
	switch t := v.(type) {
	case value.Integer:
		return float64(t), true
	case value.Float:
		return float64(t), true
	case value.Boolean:
		if t {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func asInt(v value.Value) (int64, bool) {
	switch t := v.(type) {
	case value.Integer:
		return int64(t), true
	case value.Float:
		return int64(t), true
	case value.Boolean:
		if t {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// toRegex accepts either a literal Str (compiled fresh, case-sensitive) or a
// Regex value, matching the spec's "string-argument overloads accept a
// literal string or a RegEx" rule for match/matchAll/matchEntire/replace.
func toRegex(mem *value.Memory, v value.Value) (*regexp.Regexp, error) {
	switch t := v.(type) {
	case value.Regex:
		return t.Re, nil
	case value.Str:
		pat := string(mem.StringCellAt(t.Ptr).Runes)
		re, err := regexp.Compile(pat)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pat, err)
		}
		return re, nil
	default:
		return nil, fmt.Errorf("expected a string or regex, got %s", v.Kind())
	}
}

func compileFlags(pattern, flags string) (*regexp.Regexp, error) {
	var inline strings.Builder
	for _, f := range flags {
		switch f {
		case 'i':
			inline.WriteByte('i')
		case 's':
			inline.WriteByte('s')
		case 'm':
			inline.WriteByte('m')
		default:
			return nil, fmt.Errorf("unknown regex flag %q", string(f))
		}
	}
	pat := pattern
	if inline.Len() > 0 {
		pat = "(?" + inline.String() + ")" + pattern
	}
	return regexp.Compile(pat)
}

// --- string/list methods -----------------------------------------------

func biSplit(t *Table, mem *value.Memory, receiver value.Value, bound bool, args []value.Value) (value.Value, error) {
	subj, rest, err := target(receiver, bound, args)
	if err != nil {
		return nil, err
	}
	s, ok := asStr(mem, subj)
	if !ok {
		return nil, fmt.Errorf("split() expects a string receiver, got %s", subj.Kind())
	}
	var parts []string
	if len(rest) == 0 {
		parts = strings.Fields(s)
	} else if sep, ok := asStr(mem, rest[0]); ok {
		parts = strings.Split(s, sep)
	} else if re, err := toRegex(mem, rest[0]); err == nil {
		parts = re.Split(s, -1)
	} else {
		return nil, fmt.Errorf("split() expects a string or regex separator")
	}
	out := make([]value.Value, len(parts))
	for i, p := range parts {
		out[i] = mem.NewString(p)
	}
	return mem.NewList(out), nil
}

func biJoin(t *Table, mem *value.Memory, receiver value.Value, bound bool, args []value.Value) (value.Value, error) {
	subj, rest, err := target(receiver, bound, args)
	if err != nil {
		return nil, err
	}
	elems, ok := asList(mem, subj)
	if !ok {
		return nil, fmt.Errorf("join() expects a list receiver, got %s", subj.Kind())
	}
	sep := ""
	if len(rest) > 0 {
		sep, _ = asStr(mem, rest[0])
	}
	parts := make([]string, len(elems))
	for i, e := range elems {
		parts[i] = value.Stringify(mem, e)
	}
	return mem.NewString(strings.Join(parts, sep)), nil
}

func biFind(t *Table, mem *value.Memory, receiver value.Value, bound bool, args []value.Value) (value.Value, error) {
	subj, rest, err := target(receiver, bound, args)
	if err != nil {
		return nil, err
	}
	if len(rest) == 0 {
		return nil, fmt.Errorf("find() expects a needle argument")
	}
	if s, ok := asStr(mem, subj); ok {
		needle, ok := asStr(mem, rest[0])
		if !ok {
			return nil, fmt.Errorf("find() on a string expects a string needle")
		}
		idx := strings.Index(s, needle)
		return value.Integer(idx), nil
	}
	if elems, ok := asList(mem, subj); ok {
		for i, e := range elems {
			if value.Equals(mem, e, rest[0]) {
				return value.Integer(i), nil
			}
		}
		return value.Integer(-1), nil
	}
	return nil, fmt.Errorf("find() expects a string or list receiver, got %s", subj.Kind())
}

func biFindAll(t *Table, mem *value.Memory, receiver value.Value, bound bool, args []value.Value) (value.Value, error) {
	subj, rest, err := target(receiver, bound, args)
	if err != nil {
		return nil, err
	}
	if len(rest) == 0 {
		return nil, fmt.Errorf("findAll() expects a needle argument")
	}
	var indices []value.Value
	if s, ok := asStr(mem, subj); ok {
		needle, ok := asStr(mem, rest[0])
		if !ok || needle == "" {
			return mem.NewList(nil), nil
		}
		for i := 0; ; {
			j := strings.Index(s[i:], needle)
			if j < 0 {
				break
			}
			indices = append(indices, value.Integer(i+j))
			i += j + len(needle)
		}
		return mem.NewList(indices), nil
	}
	if elems, ok := asList(mem, subj); ok {
		for i, e := range elems {
			if value.Equals(mem, e, rest[0]) {
				indices = append(indices, value.Integer(i))
			}
		}
		return mem.NewList(indices), nil
	}
	return nil, fmt.Errorf("findAll() expects a string or list receiver, got %s", subj.Kind())
}

func biContains(t *Table, mem *value.Memory, receiver value.Value, bound bool, args []value.Value) (value.Value, error) {
	subj, rest, err := target(receiver, bound, args)
	if err != nil {
		return nil, err
	}
	if len(rest) == 0 {
		return nil, fmt.Errorf("contains() expects a needle argument")
	}
	if s, ok := asStr(mem, subj); ok {
		needle, ok := asStr(mem, rest[0])
		if !ok {
			return value.Boolean(false), nil
		}
		return value.Boolean(strings.Contains(s, needle)), nil
	}
	if elems, ok := asList(mem, subj); ok {
		for _, e := range elems {
			if value.Equals(mem, e, rest[0]) {
				return value.Boolean(true), nil
			}
		}
		return value.Boolean(false), nil
	}
	if obj, ok := subj.(value.Obj); ok {
		key, ok := asStr(mem, rest[0])
		if !ok {
			return value.Boolean(false), nil
		}
		_, found := mem.ObjectCellAt(obj.Ptr).Get(key)
		return value.Boolean(found), nil
	}
	return nil, fmt.Errorf("contains() expects a string, list, or object receiver, got %s", subj.Kind())
}

func biLength(t *Table, mem *value.Memory, receiver value.Value, bound bool, args []value.Value) (value.Value, error) {
	subj, _, err := target(receiver, bound, args)
	if err != nil {
		return nil, err
	}
	switch v := subj.(type) {
	case value.Str:
		return value.Integer(len(mem.StringCellAt(v.Ptr).Runes)), nil
	case value.List:
		return value.Integer(len(mem.ListCellAt(v.Ptr).Elements)), nil
	case value.Obj:
		return value.Integer(len(mem.ObjectCellAt(v.Ptr).Keys)), nil
	default:
		return nil, fmt.Errorf("length() expects a string, list, or object, got %s", subj.Kind())
	}
}

func biReversed(t *Table, mem *value.Memory, receiver value.Value, bound bool, args []value.Value) (value.Value, error) {
	subj, _, err := target(receiver, bound, args)
	if err != nil {
		return nil, err
	}
	if s, ok := asStr(mem, subj); ok {
		r := []rune(s)
		for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
			r[i], r[j] = r[j], r[i]
		}
		return mem.NewString(string(r)), nil
	}
	if elems, ok := asList(mem, subj); ok {
		out := make([]value.Value, len(elems))
		for i, e := range elems {
			out[len(elems)-1-i] = e
		}
		return mem.NewList(out), nil
	}
	return nil, fmt.Errorf("reversed() expects a string or list, got %s", subj.Kind())
}

// biSorted supports an optional comparator closure whose convention is
// "truthy iff its first argument should come after its second" — a
// swap-needed predicate, not a three-way comparator.
func biSorted(t *Table, mem *value.Memory, receiver value.Value, bound bool, args []value.Value) (value.Value, error) {
	subj, rest, err := target(receiver, bound, args)
	if err != nil {
		return nil, err
	}
	elems, ok := asList(mem, subj)
	if !ok {
		return nil, fmt.Errorf("sorted() expects a list, got %s", subj.Kind())
	}
	out := make([]value.Value, len(elems))
	copy(out, elems)

	if len(rest) > 0 {
		if t.invoker == nil {
			return nil, fmt.Errorf("sorted() with a comparator is unavailable outside a running VM")
		}
		cmp := rest[0]
		var sortErr error
		sort.SliceStable(out, func(i, j int) bool {
			if sortErr != nil {
				return false
			}
			r, err := t.invoker.Invoke(cmp, []value.Value{out[i], out[j]})
			if err != nil {
				sortErr = err
				return false
			}
			return !mem.Truthy(r)
		})
		if sortErr != nil {
			return nil, sortErr
		}
		return mem.NewList(out), nil
	}

	var cmpErr error
	sort.SliceStable(out, func(i, j int) bool {
		if cmpErr != nil {
			return false
		}
		c, err := value.Compare(mem, out[i], out[j])
		if err != nil {
			cmpErr = err
			return false
		}
		return c < 0
	})
	if cmpErr != nil {
		return nil, cmpErr
	}
	return mem.NewList(out), nil
}

func biEnumerated(t *Table, mem *value.Memory, receiver value.Value, bound bool, args []value.Value) (value.Value, error) {
	subj, _, err := target(receiver, bound, args)
	if err != nil {
		return nil, err
	}
	elems, ok := asList(mem, subj)
	if !ok {
		return nil, fmt.Errorf("enumerated() expects a list, got %s", subj.Kind())
	}
	out := make([]value.Value, len(elems))
	for i, e := range elems {
		out[i] = mem.NewList([]value.Value{value.Integer(i), e})
	}
	return mem.NewList(out), nil
}

func biSum(t *Table, mem *value.Memory, receiver value.Value, bound bool, args []value.Value) (value.Value, error) {
	subj, _, err := target(receiver, bound, args)
	if err != nil {
		return nil, err
	}
	elems, ok := asList(mem, subj)
	if !ok {
		return nil, fmt.Errorf("sum() expects a list, got %s", subj.Kind())
	}
	var acc value.Value = value.Integer(0)
	for _, e := range elems {
		acc, err = value.Add(mem, acc, e)
		if err != nil {
			return nil, err
		}
	}
	return acc, nil
}

func biFilter(t *Table, mem *value.Memory, receiver value.Value, bound bool, args []value.Value) (value.Value, error) {
	subj, rest, err := target(receiver, bound, args)
	if err != nil {
		return nil, err
	}
	if len(rest) == 0 {
		return nil, fmt.Errorf("filter() expects a predicate argument")
	}
	elems, ok := asList(mem, subj)
	if !ok {
		return nil, fmt.Errorf("filter() expects a list, got %s", subj.Kind())
	}
	if t.invoker == nil {
		return nil, fmt.Errorf("filter() is unavailable outside a running VM")
	}
	var out []value.Value
	for _, e := range elems {
		r, err := t.invoker.Invoke(rest[0], []value.Value{e})
		if err != nil {
			return nil, err
		}
		if mem.Truthy(r) {
			out = append(out, e)
		}
	}
	return mem.NewList(out), nil
}

func biMap(t *Table, mem *value.Memory, receiver value.Value, bound bool, args []value.Value) (value.Value, error) {
	subj, rest, err := target(receiver, bound, args)
	if err != nil {
		return nil, err
	}
	if len(rest) == 0 {
		return nil, fmt.Errorf("map() expects a function argument")
	}
	elems, ok := asList(mem, subj)
	if !ok {
		return nil, fmt.Errorf("map() expects a list, got %s", subj.Kind())
	}
	if t.invoker == nil {
		return nil, fmt.Errorf("map() is unavailable outside a running VM")
	}
	out := make([]value.Value, len(elems))
	for i, e := range elems {
		r, err := t.invoker.Invoke(rest[0], []value.Value{e})
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return mem.NewList(out), nil
}

func biReduce(t *Table, mem *value.Memory, receiver value.Value, bound bool, args []value.Value) (value.Value, error) {
	subj, rest, err := target(receiver, bound, args)
	if err != nil {
		return nil, err
	}
	if len(rest) < 2 {
		return nil, fmt.Errorf("reduce() expects an initial value and a function argument")
	}
	elems, ok := asList(mem, subj)
	if !ok {
		return nil, fmt.Errorf("reduce() expects a list, got %s", subj.Kind())
	}
	if t.invoker == nil {
		return nil, fmt.Errorf("reduce() is unavailable outside a running VM")
	}
	acc := rest[0]
	fn := rest[1]
	for _, e := range elems {
		r, err := t.invoker.Invoke(fn, []value.Value{acc, e})
		if err != nil {
			return nil, err
		}
		acc = r
	}
	return acc, nil
}

func biMax(t *Table, mem *value.Memory, receiver value.Value, bound bool, args []value.Value) (value.Value, error) {
	subj, _, err := target(receiver, bound, args)
	if err != nil {
		return nil, err
	}
	elems, ok := asList(mem, subj)
	if !ok || len(elems) == 0 {
		return nil, fmt.Errorf("max() expects a non-empty list")
	}
	best := elems[0]
	for _, e := range elems[1:] {
		c, err := value.Compare(mem, e, best)
		if err != nil {
			return nil, err
		}
		if c > 0 {
			best = e
		}
	}
	return best, nil
}

func biMin(t *Table, mem *value.Memory, receiver value.Value, bound bool, args []value.Value) (value.Value, error) {
	subj, _, err := target(receiver, bound, args)
	if err != nil {
		return nil, err
	}
	elems, ok := asList(mem, subj)
	if !ok || len(elems) == 0 {
		return nil, fmt.Errorf("min() expects a non-empty list")
	}
	best := elems[0]
	for _, e := range elems[1:] {
		c, err := value.Compare(mem, e, best)
		if err != nil {
			return nil, err
		}
		if c < 0 {
			best = e
		}
	}
	return best, nil
}

// --- constructors/conversions --------------------------------------------

func biRange(t *Table, mem *value.Memory, receiver value.Value, bound bool, args []value.Value) (value.Value, error) {
	return makeRange(mem, receiver, bound, args, false)
}

func biRangeInclusive(t *Table, mem *value.Memory, receiver value.Value, bound bool, args []value.Value) (value.Value, error) {
	return makeRange(mem, receiver, bound, args, true)
}

// asChar returns v's single code point when v is a one-rune Str, so
// range("a", "z") can build a character range the same way range(1, 26)
// builds a numeric one.
func asChar(mem *value.Memory, v value.Value) (int64, bool) {
	s, ok := v.(value.Str)
	if !ok {
		return 0, false
	}
	runes := mem.StringCellAt(s.Ptr).Runes
	if len(runes) != 1 {
		return 0, false
	}
	return int64(runes[0]), true
}

func makeRange(mem *value.Memory, receiver value.Value, bound bool, args []value.Value, inclusive bool) (value.Value, error) {
	all := args
	if bound {
		all = append([]value.Value{receiver}, args...)
	}
	var begin, end int64
	var char bool
	switch len(all) {
	case 1:
		if n, ok := asInt(all[0]); ok {
			begin, end = 0, n
			break
		}
		return nil, fmt.Errorf("range() expects a numeric or character argument")
	case 2:
		if a, ok := asChar(mem, all[0]); ok {
			b, ok := asChar(mem, all[1])
			if !ok {
				return nil, fmt.Errorf("range() cannot mix a character and a non-character argument")
			}
			begin, end, char = a, b, true
			break
		}
		a, ok1 := asInt(all[0])
		b, ok2 := asInt(all[1])
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("range() expects numeric or character arguments")
		}
		begin, end = a, b
	default:
		return nil, fmt.Errorf("range() expects 1 or 2 arguments, got %d", len(all))
	}
	return value.Range{Begin: begin, End: end, Inclusive: inclusive, Char: char}, nil
}

func biNumber(t *Table, mem *value.Memory, receiver value.Value, bound bool, args []value.Value) (value.Value, error) {
	subj, _, err := target(receiver, bound, args)
	if err != nil {
		return nil, err
	}
	switch v := subj.(type) {
	case value.Integer, value.Float:
		return v, nil
	case value.Boolean:
		if v {
			return value.Integer(1), nil
		}
		return value.Integer(0), nil
	case value.Str:
		s := string(mem.StringCellAt(v.Ptr).Runes)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return value.Integer(i), nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("number(): %q is not a number", s)
		}
		return value.Float(f), nil
	default:
		return nil, fmt.Errorf("number() expects a string, integer, float, or boolean, got %s", subj.Kind())
	}
}

func biString(t *Table, mem *value.Memory, receiver value.Value, bound bool, args []value.Value) (value.Value, error) {
	subj, _, err := target(receiver, bound, args)
	if err != nil {
		return nil, err
	}
	return mem.NewString(value.Stringify(mem, subj)), nil
}

func biInteger(t *Table, mem *value.Memory, receiver value.Value, bound bool, args []value.Value) (value.Value, error) {
	subj, _, err := target(receiver, bound, args)
	if err != nil {
		return nil, err
	}
	if s, ok := asStr(mem, subj); ok {
		i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			f, ferr := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if ferr != nil {
				return nil, fmt.Errorf("integer(): %q is not an integer", s)
			}
			return value.Integer(int64(f)), nil
		}
		return value.Integer(i), nil
	}
	i, ok := asInt(subj)
	if !ok {
		return nil, fmt.Errorf("integer() expects a string, integer, float, or boolean, got %s", subj.Kind())
	}
	return value.Integer(i), nil
}

func biFloat(t *Table, mem *value.Memory, receiver value.Value, bound bool, args []value.Value) (value.Value, error) {
	subj, _, err := target(receiver, bound, args)
	if err != nil {
		return nil, err
	}
	if s, ok := asStr(mem, subj); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, fmt.Errorf("float(): %q is not a float", s)
		}
		return value.Float(f), nil
	}
	f, ok := asFloat(subj)
	if !ok {
		return nil, fmt.Errorf("float() expects a string, integer, float, or boolean, got %s", subj.Kind())
	}
	return value.Float(f), nil
}

func biBoolean(t *Table, mem *value.Memory, receiver value.Value, bound bool, args []value.Value) (value.Value, error) {
	subj, _, err := target(receiver, bound, args)
	if err != nil {
		return nil, err
	}
	return value.Boolean(mem.Truthy(subj)), nil
}

func biObject(t *Table, mem *value.Memory, receiver value.Value, bound bool, args []value.Value) (value.Value, error) {
	all := args
	if bound {
		all = append([]value.Value{receiver}, args...)
	}
	if len(all) != 1 {
		return nil, fmt.Errorf("object() expects a single list-of-pairs argument")
	}
	pairs, ok := asList(mem, all[0])
	if !ok {
		return nil, fmt.Errorf("object() expects a list of [key, value] pairs")
	}
	obj := mem.NewObject()
	cell := mem.ObjectCellAt(obj.Ptr)
	for _, p := range pairs {
		pe, ok := asList(mem, p)
		if !ok || len(pe) != 2 {
			return nil, fmt.Errorf("object() expects every element to be a [key, value] pair")
		}
		key, ok := asStr(mem, pe[0])
		if !ok {
			return nil, fmt.Errorf("object() expects string keys")
		}
		cell.Set(key, pe[1])
	}
	return obj, nil
}

func biAbs(t *Table, mem *value.Memory, receiver value.Value, bound bool, args []value.Value) (value.Value, error) {
	subj, _, err := target(receiver, bound, args)
	if err != nil {
		return nil, err
	}
	switch v := subj.(type) {
	case value.Integer:
		if v < 0 {
			return -v, nil
		}
		return v, nil
	case value.Float:
		return value.Float(math.Abs(float64(v))), nil
	default:
		return nil, fmt.Errorf("abs() expects an integer or float, got %s", subj.Kind())
	}
}

func biOrd(t *Table, mem *value.Memory, receiver value.Value, bound bool, args []value.Value) (value.Value, error) {
	subj, _, err := target(receiver, bound, args)
	if err != nil {
		return nil, err
	}
	s, ok := asStr(mem, subj)
	if !ok || len(s) == 0 {
		return nil, fmt.Errorf("ord() expects a non-empty string")
	}
	r := []rune(s)
	return value.Integer(r[0]), nil
}

func biChr(t *Table, mem *value.Memory, receiver value.Value, bound bool, args []value.Value) (value.Value, error) {
	subj, _, err := target(receiver, bound, args)
	if err != nil {
		return nil, err
	}
	n, ok := asInt(subj)
	if !ok {
		return nil, fmt.Errorf("chr() expects an integer code point")
	}
	return mem.NewString(string(rune(n))), nil
}

func biPow(t *Table, mem *value.Memory, receiver value.Value, bound bool, args []value.Value) (value.Value, error) {
	subj, rest, err := target(receiver, bound, args)
	if err != nil {
		return nil, err
	}
	if len(rest) == 0 {
		return nil, fmt.Errorf("pow() expects an exponent argument")
	}
	base, ok1 := asFloat(subj)
	exp, ok2 := asFloat(rest[0])
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("pow() expects numeric arguments")
	}
	r := math.Pow(base, exp)
	if _, isFloat := subj.(value.Float); !isFloat {
		if _, isFloat := rest[0].(value.Float); !isFloat && r == math.Trunc(r) {
			return value.Integer(int64(r)), nil
		}
	}
	return value.Float(r), nil
}

// --- regex -----------------------------------------------------------------

func biRe(t *Table, mem *value.Memory, receiver value.Value, bound bool, args []value.Value) (value.Value, error) {
	all := args
	if bound {
		all = append([]value.Value{receiver}, args...)
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("re() expects a pattern argument")
	}
	pattern, ok := asStr(mem, all[0])
	if !ok {
		return nil, fmt.Errorf("re() expects a string pattern")
	}
	flags := ""
	if len(all) > 1 {
		flags, _ = asStr(mem, all[1])
	}
	re, err := compileFlags(pattern, flags)
	if err != nil {
		return nil, fmt.Errorf("re(): %w", err)
	}
	return value.Regex{Re: re, Pattern: pattern, Flags: flags}, nil
}

func biMatch(t *Table, mem *value.Memory, receiver value.Value, bound bool, args []value.Value) (value.Value, error) {
	subj, rest, err := target(receiver, bound, args)
	if err != nil {
		return nil, err
	}
	s, ok := asStr(mem, subj)
	if !ok || len(rest) == 0 {
		return nil, fmt.Errorf("match() expects a string receiver and a pattern argument")
	}
	re, err := toRegex(mem, rest[0])
	if err != nil {
		return nil, err
	}
	m := re.FindString(s)
	if m == "" && !re.MatchString(s) {
		return value.Null{}, nil
	}
	return mem.NewString(m), nil
}

func biMatchAll(t *Table, mem *value.Memory, receiver value.Value, bound bool, args []value.Value) (value.Value, error) {
	subj, rest, err := target(receiver, bound, args)
	if err != nil {
		return nil, err
	}
	s, ok := asStr(mem, subj)
	if !ok || len(rest) == 0 {
		return nil, fmt.Errorf("matchAll() expects a string receiver and a pattern argument")
	}
	re, err := toRegex(mem, rest[0])
	if err != nil {
		return nil, err
	}
	matches := re.FindAllString(s, -1)
	out := make([]value.Value, len(matches))
	for i, m := range matches {
		out[i] = mem.NewString(m)
	}
	return mem.NewList(out), nil
}

func biMatchEntire(t *Table, mem *value.Memory, receiver value.Value, bound bool, args []value.Value) (value.Value, error) {
	subj, rest, err := target(receiver, bound, args)
	if err != nil {
		return nil, err
	}
	s, ok := asStr(mem, subj)
	if !ok || len(rest) == 0 {
		return nil, fmt.Errorf("matchEntire() expects a string receiver and a pattern argument")
	}
	re, err := toRegex(mem, rest[0])
	if err != nil {
		return nil, err
	}
	loc := re.FindStringIndex(s)
	return value.Boolean(loc != nil && loc[0] == 0 && loc[1] == len(s)), nil
}

func biReplace(t *Table, mem *value.Memory, receiver value.Value, bound bool, args []value.Value) (value.Value, error) {
	subj, rest, err := target(receiver, bound, args)
	if err != nil {
		return nil, err
	}
	s, ok := asStr(mem, subj)
	if !ok || len(rest) < 2 {
		return nil, fmt.Errorf("replace() expects a string receiver, a pattern, and a replacement")
	}
	replacement, ok := asStr(mem, rest[1])
	if !ok {
		return nil, fmt.Errorf("replace() expects a string replacement")
	}
	if lit, ok := asStr(mem, rest[0]); ok {
		return mem.NewString(strings.ReplaceAll(s, lit, replacement)), nil
	}
	re, err := toRegex(mem, rest[0])
	if err != nil {
		return nil, err
	}
	return mem.NewString(re.ReplaceAllString(s, replacement)), nil
}

// --- host-delegated ----------------------------------------------------

func biTime(t *Table, mem *value.Memory, receiver value.Value, bound bool, args []value.Value) (value.Value, error) {
	if t.host == nil {
		return nil, fmt.Errorf("time() is unavailable outside a running driver")
	}
	return value.Integer(t.host.NowMillis()), nil
}

func biSleep(t *Table, mem *value.Memory, receiver value.Value, bound bool, args []value.Value) (value.Value, error) {
	all := args
	if bound {
		all = append([]value.Value{receiver}, args...)
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("sleep() expects a millisecond duration")
	}
	ms, ok := asInt(all[0])
	if !ok {
		return nil, fmt.Errorf("sleep() expects an integer millisecond duration")
	}
	if t.host == nil {
		return nil, fmt.Errorf("sleep() is unavailable outside a running driver")
	}
	t.host.Sleep(ms)
	return value.Null{}, nil
}

func biRandom(t *Table, mem *value.Memory, receiver value.Value, bound bool, args []value.Value) (value.Value, error) {
	all := args
	if bound {
		all = append([]value.Value{receiver}, args...)
	}
	r := rand.Float64()
	if t.host != nil {
		r = t.host.Random()
	}
	switch len(all) {
	case 0:
		return value.Float(r), nil
	case 2:
		a, ok1 := asFloat(all[0])
		b, ok2 := asFloat(all[1])
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("random() expects numeric bounds")
		}
		_, aInt := all[0].(value.Integer)
		_, bInt := all[1].(value.Integer)
		v := a + r*(b-a)
		if aInt && bInt {
			return value.Integer(int64(a) + int64(r*float64(int64(b)-int64(a)))), nil
		}
		return value.Float(v), nil
	default:
		return nil, fmt.Errorf("random() expects 0 or 2 arguments, got %d", len(all))
	}
}

func biGetNickname(t *Table, mem *value.Memory, receiver value.Value, bound bool, args []value.Value) (value.Value, error) {
	all := args
	if bound {
		all = append([]value.Value{receiver}, args...)
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("getNickname() expects an id argument")
	}
	id, ok := asInt(all[0])
	if !ok {
		return nil, fmt.Errorf("getNickname() expects an integer id")
	}
	if t.host == nil {
		return nil, fmt.Errorf("getNickname() is unavailable outside a running driver")
	}
	name, err := t.host.Nickname(id)
	if err != nil {
		return nil, err
	}
	return mem.NewString(name), nil
}
