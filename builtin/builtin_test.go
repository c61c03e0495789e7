package builtin

import (
	"testing"

	"yqlang/value"
)

func ints(vs ...int64) []value.Value {
	out := make([]value.Value, len(vs))
	for i, v := range vs {
		out[i] = value.Integer(v)
	}
	return out
}

func TestSplitJoinRoundTrip(t *testing.T) {
	mem := value.NewMemory()
	tbl := New(nil, nil)

	s := mem.NewString("a,b,c")
	sep := mem.NewString(",")
	parts, err := tbl.Call(mem, "split", s, true, []value.Value{sep})
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	elems, _ := asList(mem, parts)
	if len(elems) != 3 {
		t.Fatalf("got %d parts, want 3", len(elems))
	}

	joined, err := tbl.Call(mem, "join", parts, true, []value.Value{mem.NewString("-")})
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	got, _ := asStr(mem, joined)
	if got != "a-b-c" {
		t.Fatalf("got %q, want a-b-c", got)
	}
}

func TestLengthBoundAndFree(t *testing.T) {
	mem := value.NewMemory()
	tbl := New(nil, nil)
	s := mem.NewString("hello")

	bound, err := tbl.Call(mem, "length", s, true, nil)
	if err != nil {
		t.Fatalf("bound length: %v", err)
	}
	if bound != value.Integer(5) {
		t.Fatalf("got %v, want 5", bound)
	}

	free, err := tbl.Call(mem, "length", nil, false, []value.Value{s})
	if err != nil {
		t.Fatalf("free length: %v", err)
	}
	if free != value.Integer(5) {
		t.Fatalf("got %v, want 5", free)
	}
}

func TestContainsAndFind(t *testing.T) {
	mem := value.NewMemory()
	tbl := New(nil, nil)
	list := mem.NewList(ints(10, 20, 30))

	found, err := tbl.Call(mem, "contains", list, true, []value.Value{value.Integer(20)})
	if err != nil {
		t.Fatalf("contains: %v", err)
	}
	if found != value.Boolean(true) {
		t.Fatalf("expected contains to find 20")
	}

	idx, err := tbl.Call(mem, "find", list, true, []value.Value{value.Integer(30)})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if idx != value.Integer(2) {
		t.Fatalf("got %v, want index 2", idx)
	}
}

func TestReversedStringAndList(t *testing.T) {
	mem := value.NewMemory()
	tbl := New(nil, nil)

	rs, err := tbl.Call(mem, "reversed", mem.NewString("abc"), true, nil)
	if err != nil {
		t.Fatalf("reversed string: %v", err)
	}
	got, _ := asStr(mem, rs)
	if got != "cba" {
		t.Fatalf("got %q, want cba", got)
	}

	rl, err := tbl.Call(mem, "reversed", mem.NewList(ints(1, 2, 3)), true, nil)
	if err != nil {
		t.Fatalf("reversed list: %v", err)
	}
	elems, _ := asList(mem, rl)
	if elems[0] != value.Integer(3) || elems[2] != value.Integer(1) {
		t.Fatalf("got %v, want reversed [3,2,1]", elems)
	}
}

// stubInvoker lets filter/map/reduce/sorted be exercised without a real VM.
type stubInvoker struct {
	fn func(callee value.Value, args []value.Value) (value.Value, error)
}

func (s stubInvoker) Invoke(callee value.Value, args []value.Value) (value.Value, error) {
	return s.fn(callee, args)
}

func TestFilterMapReduceViaInvoker(t *testing.T) {
	mem := value.NewMemory()
	list := mem.NewList(ints(1, 2, 3, 4, 5))

	isEven := stubInvoker{fn: func(_ value.Value, args []value.Value) (value.Value, error) {
		n := int64(args[0].(value.Integer))
		return value.Boolean(n%2 == 0), nil
	}}
	tbl := New(isEven, nil)
	filtered, err := tbl.Call(mem, "filter", list, true, []value.Value{value.Builtin{Name: "isEven"}})
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	fe, _ := asList(mem, filtered)
	if len(fe) != 2 || fe[0] != value.Integer(2) || fe[1] != value.Integer(4) {
		t.Fatalf("got %v, want [2, 4]", fe)
	}

	double := stubInvoker{fn: func(_ value.Value, args []value.Value) (value.Value, error) {
		n := int64(args[0].(value.Integer))
		return value.Integer(n * 2), nil
	}}
	tbl2 := New(double, nil)
	mapped, err := tbl2.Call(mem, "map", list, true, []value.Value{value.Builtin{Name: "double"}})
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	me, _ := asList(mem, mapped)
	if me[0] != value.Integer(2) || me[4] != value.Integer(10) {
		t.Fatalf("got %v, want doubled list", me)
	}

	sumFn := stubInvoker{fn: func(_ value.Value, args []value.Value) (value.Value, error) {
		acc := int64(args[0].(value.Integer))
		n := int64(args[1].(value.Integer))
		return value.Integer(acc + n), nil
	}}
	tbl3 := New(sumFn, nil)
	reduced, err := tbl3.Call(mem, "reduce", list, true, []value.Value{value.Integer(0), value.Builtin{Name: "sum"}})
	if err != nil {
		t.Fatalf("reduce: %v", err)
	}
	if reduced != value.Integer(15) {
		t.Fatalf("got %v, want 15", reduced)
	}
}

func TestSortedWithAndWithoutComparator(t *testing.T) {
	mem := value.NewMemory()
	tbl := New(nil, nil)
	list := mem.NewList(ints(3, 1, 2))

	sorted, err := tbl.Call(mem, "sorted", list, true, nil)
	if err != nil {
		t.Fatalf("sorted: %v", err)
	}
	se, _ := asList(mem, sorted)
	if se[0] != value.Integer(1) || se[1] != value.Integer(2) || se[2] != value.Integer(3) {
		t.Fatalf("got %v, want ascending", se)
	}

	// comparator: truthy iff a should come after b -> descending sort
	descending := stubInvoker{fn: func(_ value.Value, args []value.Value) (value.Value, error) {
		a := int64(args[0].(value.Integer))
		b := int64(args[1].(value.Integer))
		return value.Boolean(a < b), nil
	}}
	tbl2 := New(descending, nil)
	sortedDesc, err := tbl2.Call(mem, "sorted", list, true, []value.Value{value.Builtin{Name: "cmp"}})
	if err != nil {
		t.Fatalf("sorted with comparator: %v", err)
	}
	sde, _ := asList(mem, sortedDesc)
	if sde[0] != value.Integer(3) || sde[2] != value.Integer(1) {
		t.Fatalf("got %v, want descending", sde)
	}
}

func TestEnumeratedAndSum(t *testing.T) {
	mem := value.NewMemory()
	tbl := New(nil, nil)
	list := mem.NewList(ints(10, 20))

	enum, err := tbl.Call(mem, "enumerated", list, true, nil)
	if err != nil {
		t.Fatalf("enumerated: %v", err)
	}
	ee, _ := asList(mem, enum)
	pair0, _ := asList(mem, ee[0])
	if pair0[0] != value.Integer(0) || pair0[1] != value.Integer(10) {
		t.Fatalf("got %v, want [0, 10]", pair0)
	}

	sum, err := tbl.Call(mem, "sum", list, true, nil)
	if err != nil {
		t.Fatalf("sum: %v", err)
	}
	if sum != value.Integer(30) {
		t.Fatalf("got %v, want 30", sum)
	}
}

func TestRangeAndRangeInclusive(t *testing.T) {
	mem := value.NewMemory()
	tbl := New(nil, nil)

	r, err := tbl.Call(mem, "range", nil, false, []value.Value{value.Integer(1), value.Integer(4)})
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	rv, ok := r.(value.Range)
	if !ok || rv.Begin != 1 || rv.End != 4 || rv.Inclusive {
		t.Fatalf("got %v, want Range{1,4,false}", r)
	}

	ri, err := tbl.Call(mem, "rangeInclusive", nil, false, []value.Value{value.Integer(1), value.Integer(4)})
	if err != nil {
		t.Fatalf("rangeInclusive: %v", err)
	}
	riv, ok := ri.(value.Range)
	if !ok || !riv.Inclusive {
		t.Fatalf("got %v, want inclusive range", ri)
	}
}

func TestRangeAcceptsCharacterArguments(t *testing.T) {
	mem := value.NewMemory()
	tbl := New(nil, nil)

	r, err := tbl.Call(mem, "range", nil, false, []value.Value{mem.NewString("a"), mem.NewString("z")})
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	rv, ok := r.(value.Range)
	if !ok || !rv.Char || rv.Begin != int64('a') || rv.End != int64('z') || rv.Inclusive {
		t.Fatalf("got %v, want Range{'a','z',false,Char}", r)
	}

	ri, err := tbl.Call(mem, "rangeInclusive", nil, false, []value.Value{mem.NewString("a"), mem.NewString("z")})
	if err != nil {
		t.Fatalf("rangeInclusive: %v", err)
	}
	riv, ok := ri.(value.Range)
	if !ok || !riv.Char || !riv.Inclusive {
		t.Fatalf("got %v, want inclusive character range", ri)
	}

	if _, err := tbl.Call(mem, "range", nil, false, []value.Value{mem.NewString("a"), value.Integer(5)}); err == nil {
		t.Fatalf("expected an error mixing a character and a non-character argument")
	}
}

func TestNumberStringConversions(t *testing.T) {
	mem := value.NewMemory()
	tbl := New(nil, nil)

	n, err := tbl.Call(mem, "number", nil, false, []value.Value{mem.NewString("42")})
	if err != nil {
		t.Fatalf("number: %v", err)
	}
	if n != value.Integer(42) {
		t.Fatalf("got %v, want Integer(42)", n)
	}

	f, err := tbl.Call(mem, "number", nil, false, []value.Value{mem.NewString("3.5")})
	if err != nil {
		t.Fatalf("number(float): %v", err)
	}
	if f != value.Float(3.5) {
		t.Fatalf("got %v, want Float(3.5)", f)
	}

	s, err := tbl.Call(mem, "string", nil, false, []value.Value{value.Integer(7)})
	if err != nil {
		t.Fatalf("string: %v", err)
	}
	got, _ := asStr(mem, s)
	if got != "7" {
		t.Fatalf("got %q, want 7", got)
	}
}

func TestAbsOrdChrPow(t *testing.T) {
	mem := value.NewMemory()
	tbl := New(nil, nil)

	a, _ := tbl.Call(mem, "abs", nil, false, []value.Value{value.Integer(-5)})
	if a != value.Integer(5) {
		t.Fatalf("got %v, want 5", a)
	}

	o, _ := tbl.Call(mem, "ord", nil, false, []value.Value{mem.NewString("A")})
	if o != value.Integer(65) {
		t.Fatalf("got %v, want 65", o)
	}

	c, _ := tbl.Call(mem, "chr", nil, false, []value.Value{value.Integer(65)})
	cs, _ := asStr(mem, c)
	if cs != "A" {
		t.Fatalf("got %q, want A", cs)
	}

	p, err := tbl.Call(mem, "pow", nil, false, []value.Value{value.Integer(2), value.Integer(10)})
	if err != nil {
		t.Fatalf("pow: %v", err)
	}
	if p != value.Integer(1024) {
		t.Fatalf("got %v, want 1024", p)
	}
}

func TestRegexMatchAndReplace(t *testing.T) {
	mem := value.NewMemory()
	tbl := New(nil, nil)

	re, err := tbl.Call(mem, "re", nil, false, []value.Value{mem.NewString(`\d+`)})
	if err != nil {
		t.Fatalf("re: %v", err)
	}

	s := mem.NewString("abc123def")
	m, err := tbl.Call(mem, "match", s, true, []value.Value{re})
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	ms, _ := asStr(mem, m)
	if ms != "123" {
		t.Fatalf("got %q, want 123", ms)
	}

	replaced, err := tbl.Call(mem, "replace", s, true, []value.Value{re, mem.NewString("X")})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	rs, _ := asStr(mem, replaced)
	if rs != "abcXdef" {
		t.Fatalf("got %q, want abcXdef", rs)
	}
}

func TestUnknownBuiltinIsError(t *testing.T) {
	mem := value.NewMemory()
	tbl := New(nil, nil)
	_, err := tbl.Call(mem, "doesNotExist", nil, false, nil)
	if err == nil {
		t.Fatal("expected an error for an unknown builtin")
	}
}
