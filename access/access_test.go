package access

import (
	"testing"

	"yqlang/value"
)

func TestGetIndexAndSliceOnList(t *testing.T) {
	mem := value.NewMemory()
	list := mem.NewList([]value.Value{value.Integer(1), value.Integer(2), value.Integer(3), value.Integer(4), value.Integer(5)})

	got, err := Get(mem, list, []Step{IndexStep(-1)}, false)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.(value.Integer) != 5 {
		t.Fatalf("expected last element 5, got %v", got)
	}

	sliced, err := Get(mem, list, []Step{SliceStep(1, 3, true)}, false)
	if err != nil {
		t.Fatalf("Get() slice error: %v", err)
	}
	cell := mem.ListCellAt(sliced.(value.List).Ptr)
	if len(cell.Elements) != 2 || cell.Elements[0].(value.Integer) != 2 || cell.Elements[1].(value.Integer) != 3 {
		t.Fatalf("unexpected slice result: %+v", cell.Elements)
	}
}

func TestSliceBeginGreaterEqualEndIsEmpty(t *testing.T) {
	mem := value.NewMemory()
	list := mem.NewList([]value.Value{value.Integer(1), value.Integer(2), value.Integer(3)})
	sliced, err := Get(mem, list, []Step{SliceStep(2, 1, true)}, false)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if len(mem.ListCellAt(sliced.(value.List).Ptr).Elements) != 0 {
		t.Fatalf("expected empty slice when begin >= end")
	}
}

func TestStringSliceAssign(t *testing.T) {
	mem := value.NewMemory()
	s := mem.NewString("apple")
	if err := Set(mem, s, []Step{SliceStep(3, 4, true)}, mem.NewString("rov")); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	got := string(mem.StringCellAt(s.Ptr).Runes)
	if got != "approve" {
		t.Fatalf("expected 'approve', got %q", got)
	}
}

func TestIndexAssignIdempotentIdentity(t *testing.T) {
	mem := value.NewMemory()
	list := mem.NewList([]value.Value{value.Integer(10), value.Integer(20)})
	got, err := Get(mem, list, []Step{IndexStep(1)}, false)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if err := Set(mem, list, []Step{IndexStep(1)}, got); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	after, _ := Get(mem, list, []Step{IndexStep(1)}, false)
	if after.(value.Integer) != 20 {
		t.Fatalf("identity re-assign changed the value: %v", after)
	}
}

func TestNestedDestructuredSliceAssign(t *testing.T) {
	mem := value.NewMemory()
	inner := mem.NewList([]value.Value{value.Integer(1), value.Integer(2), value.Integer(3)})
	outer := mem.NewObject()
	mem.ObjectCellAt(outer.Ptr).Set("nums", inner)

	if err := Set(mem, outer, []Step{AttrStep("nums"), SliceStep(0, 2, true)}, mem.NewList([]value.Value{value.Integer(9)})); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	got, _ := Get(mem, outer, []Step{AttrStep("nums")}, false)
	elems := mem.ListCellAt(got.(value.List).Ptr).Elements
	if len(elems) != 2 || elems[0].(value.Integer) != 9 || elems[1].(value.Integer) != 3 {
		t.Fatalf("unexpected list after nested slice assign: %+v", elems)
	}
}

func TestMissingObjectKeyGetYieldsNull(t *testing.T) {
	mem := value.NewMemory()
	obj := mem.NewObject()
	got, err := Get(mem, obj, []Step{AttrStep("missing")}, false)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if _, ok := got.(value.Null); !ok {
		t.Fatalf("expected Null for a missing object key, got %v", got)
	}
}

func TestAttrOnPrimitiveCallSiteFallsBackToBuiltin(t *testing.T) {
	mem := value.NewMemory()
	s := mem.NewString("hello")
	got, err := Get(mem, s, []Step{AttrStep("length")}, true)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	bp, ok := got.(value.BoundProcedure)
	if !ok {
		t.Fatalf("expected a BoundProcedure, got %T", got)
	}
	if bp.Callee.(value.Builtin).Name != "length" {
		t.Fatalf("unexpected builtin name: %+v", bp.Callee)
	}
}

func TestIndexOutOfRangeErrors(t *testing.T) {
	mem := value.NewMemory()
	list := mem.NewList([]value.Value{value.Integer(1)})
	_, err := Get(mem, list, []Step{IndexStep(5)}, false)
	if err != ErrIndexOutOfRange {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
}

func TestIndexAndSliceOnCharacterRange(t *testing.T) {
	mem := value.NewMemory()
	r := value.Range{Begin: int64('a'), End: int64('d'), Inclusive: false, Char: true}

	got, err := Get(mem, r, []Step{IndexStep(2)}, false)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	s, ok := got.(value.Str)
	if !ok || string(mem.StringCellAt(s.Ptr).Runes) != "c" {
		t.Fatalf("expected character \"c\", got %v", got)
	}

	sliced, err := Get(mem, r, []Step{SliceStep(1, 3, true)}, false)
	if err != nil {
		t.Fatalf("Get() slice error: %v", err)
	}
	rv, ok := sliced.(value.Range)
	if !ok || !rv.Char || rv.Begin != int64('b') || rv.End != int64('d') {
		t.Fatalf("expected a character sub-range, got %v", sliced)
	}
}
