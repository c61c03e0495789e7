package driver

import (
	"yqlang/compiler"
	"yqlang/value"
)

// Template is a compiled script's immutable, shareable shape: its bytecode
// plus the constant pool / global symbol table the resolver and compiler
// built while compiling it. Every Run against a Template gets its own fresh
// Memory (own Globals, own Heap) cloned from the template's compile-time
// snapshot, so concurrent runs of the same script never alias each other's
// mutable state — only the read-only constant pool and the symbol table
// layout are shared.
type Template struct {
	Bytecode    *compiler.Bytecode
	constPool   []value.Value
	globalNames []string
	globalIndex map[string]int
	heapAtBuild []any
}

// NewTemplate captures mem's layout right after a successful
// compiler.Compile call, before any run has executed against it. mem must
// not be reused or mutated by the caller afterwards.
func NewTemplate(bc *compiler.Bytecode, mem *value.Memory) *Template {
	return &Template{
		Bytecode:    bc,
		constPool:   mem.ConstPool,
		globalNames: mem.GlobalNames,
		globalIndex: mem.GlobalIndex,
		heapAtBuild: mem.Heap,
	}
}

// newMemory builds a fresh Memory for one run: the constant pool and symbol
// table are shared by reference (immutable after compile), Globals start
// fresh (sized to the symbol table, Null-filled), and the heap is deep
// copied cell-for-cell at matching indices so every Pointer baked into the
// shared constant pool still resolves correctly against the new Memory's
// own heap.
func (t *Template) newMemory() *value.Memory {
	mem := &value.Memory{
		ConstPool:   t.constPool,
		GlobalNames: t.globalNames,
		GlobalIndex: t.globalIndex,
		Globals:     make([]value.Value, len(t.globalNames)),
		Heap:        make([]any, len(t.heapAtBuild)),
	}
	for i := range mem.Globals {
		mem.Globals[i] = value.Null{}
	}
	for i, cell := range t.heapAtBuild {
		switch c := cell.(type) {
		case *value.StringCell:
			runes := make([]rune, len(c.Runes))
			copy(runes, c.Runes)
			mem.Heap[i] = &value.StringCell{Runes: runes}
		case *value.ListCell:
			elems := make([]value.Value, len(c.Elements))
			copy(elems, c.Elements)
			mem.Heap[i] = &value.ListCell{Elements: elems}
		case *value.ObjectCell:
			keys := make([]string, len(c.Keys))
			copy(keys, c.Keys)
			values := make(map[string]value.Value, len(c.Values))
			for k, v := range c.Values {
				values[k] = v
			}
			mem.Heap[i] = &value.ObjectCell{Keys: keys, Values: values}
		default:
			mem.Heap[i] = cell
		}
	}
	return mem
}
