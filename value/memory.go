package value

// Location names the address space a Pointer resolves into.
type Location int

const (
	// LocConst addresses the read-only constant pool: literals, procedure
	// entry addresses, and pre-built closures wrapping builtins.
	LocConst Location = iota
	// LocGlobal addresses a persisted global slot (spec's "StaticPointer").
	LocGlobal
	// LocHeap addresses a mutable heap cell (container storage).
	LocHeap
	// LocBuiltin addresses the host-provided builtin procedure table.
	LocBuiltin
	// LocLocal addresses a frame-relative slot (local or capture). The VM
	// further distinguishes local vs. capture via distinct opcodes; this
	// tag exists mostly for disassembly/debugging.
	LocLocal
)

// Pointer is `(Location, Index)`, the address-based reference every
// container and global binding is passed around as.
type Pointer struct {
	Loc   Location
	Index int
}

// StringCell is the mutable backing store for a String value. Runes (not
// bytes) are the unit of storage so indexing/slicing operate on code points,
// matching the iteration contract (`for c in s` visits code points).
type StringCell struct {
	Runes []rune
}

// ListCell is the mutable backing store for a List value.
type ListCell struct {
	Elements []Value
}

// ObjectCell is the mutable backing store for an Object value: a
// string-keyed map that preserves insertion order.
type ObjectCell struct {
	Keys   []string
	Values map[string]Value
}

func NewObjectCell() *ObjectCell {
	return &ObjectCell{Values: make(map[string]Value)}
}

// Get returns the value at key and whether it was present.
func (o *ObjectCell) Get(key string) (Value, bool) {
	v, ok := o.Values[key]
	return v, ok
}

// Set inserts or updates key, appending to Keys only on first insertion so
// insertion order is preserved for `for [k,v] in obj` iteration.
func (o *ObjectCell) Set(key string, v Value) {
	if _, exists := o.Values[key]; !exists {
		o.Keys = append(o.Keys, key)
	}
	o.Values[key] = v
}

// Memory holds every runtime storage region a compiled program addresses:
// the constant pool, the persisted globals, and the mutable heap.
type Memory struct {
	ConstPool   []Value
	Globals     []Value
	GlobalNames []string
	GlobalIndex map[string]int
	Heap        []any
}

// NewMemory builds an empty Memory ready to have constants/globals loaded
// into it by the compiler/driver.
func NewMemory() *Memory {
	return &Memory{GlobalIndex: make(map[string]int)}
}

// DefineGlobal reserves (or returns the existing) slot for a global name,
// initializing it to Null on first reference, per the spec's global
// lifecycle ("created on first reference").
func (m *Memory) DefineGlobal(name string) int {
	if idx, ok := m.GlobalIndex[name]; ok {
		return idx
	}
	idx := len(m.Globals)
	m.GlobalIndex[name] = idx
	m.GlobalNames = append(m.GlobalNames, name)
	m.Globals = append(m.Globals, Null{})
	return idx
}

// Allocate stores cell in a fresh heap slot and returns a Pointer to it.
// cell is already a storage cell type (*StringCell, *ListCell, *ObjectCell)
// and is stored as given, not copied.
func (m *Memory) Allocate(cell any) Pointer {
	m.Heap = append(m.Heap, cell)
	return Pointer{Loc: LocHeap, Index: len(m.Heap) - 1}
}

// Copy allocates a new heap cell holding a shallow duplicate of the cell at
// p: a List/Object copy clones its slice/map of element Values (so the new
// container is independently mutable) but does not recursively clone
// element containers, preserving structural sharing of referred-to
// sub-containers.
func (m *Memory) Copy(p Pointer) Pointer {
	switch cell := m.Heap[p.Index].(type) {
	case *StringCell:
		runes := make([]rune, len(cell.Runes))
		copy(runes, cell.Runes)
		return m.Allocate(&StringCell{Runes: runes})
	case *ListCell:
		elems := make([]Value, len(cell.Elements))
		copy(elems, cell.Elements)
		return m.Allocate(&ListCell{Elements: elems})
	case *ObjectCell:
		keys := make([]string, len(cell.Keys))
		copy(keys, cell.Keys)
		values := make(map[string]Value, len(cell.Values))
		for k, v := range cell.Values {
			values[k] = v
		}
		return m.Allocate(&ObjectCell{Keys: keys, Values: values})
	default:
		return m.Allocate(cell)
	}
}

func (m *Memory) StringCellAt(p Pointer) *StringCell { return m.Heap[p.Index].(*StringCell) }
func (m *Memory) ListCellAt(p Pointer) *ListCell     { return m.Heap[p.Index].(*ListCell) }
func (m *Memory) ObjectCellAt(p Pointer) *ObjectCell { return m.Heap[p.Index].(*ObjectCell) }

// NewString allocates a fresh String value from a Go string.
func (m *Memory) NewString(s string) Str {
	return Str{Ptr: m.Allocate(&StringCell{Runes: []rune(s)})}
}

// NewList allocates a fresh List value from a slice of elements.
func (m *Memory) NewList(elements []Value) List {
	return List{Ptr: m.Allocate(&ListCell{Elements: elements})}
}

// NewObject allocates a fresh, empty Object value.
func (m *Memory) NewObject() Obj {
	return Obj{Ptr: m.Allocate(NewObjectCell())}
}

// Truthy implements truthiness for values that may require a container
// emptiness check (String/List/Object report false when empty).
func (m *Memory) Truthy(v Value) bool {
	switch t := v.(type) {
	case Str:
		return len(m.StringCellAt(t.Ptr).Runes) > 0
	case List:
		return len(m.ListCellAt(t.Ptr).Elements) > 0
	case Obj:
		return len(m.ObjectCellAt(t.Ptr).Keys) > 0
	default:
		return Truthy(v)
	}
}
