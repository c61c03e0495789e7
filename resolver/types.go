package resolver

import "yqlang/ast"

// NameType is the compile-time classification attached to every resolved
// identifier: which address space the compiler should emit a load/store
// against.
type NameType int

const (
	// GLOBAL addresses a persisted slot in Memory.Globals, created on first
	// reference and shared by every frame regardless of call depth.
	GLOBAL NameType = iota
	// LOCAL addresses a slot in the current frame's param/local segment.
	LOCAL
	// CAPTURE addresses a slot in the current frame's captured-variable
	// segment, populated from the enclosing frame at MAKE_CLOSURE time.
	CAPTURE
)

func (n NameType) String() string {
	switch n {
	case GLOBAL:
		return "GLOBAL"
	case LOCAL:
		return "LOCAL"
	case CAPTURE:
		return "CAPTURE"
	default:
		return "UNKNOWN"
	}
}

// Binding is what the resolver attaches to every identifier reference: the
// address space and slot/index within it.
type Binding struct {
	Type  NameType
	Index int
}

// CaptureSource tells the code generator where a closure's Nth capture slot
// pulls its Pointer from in the *immediately enclosing* frame at
// MAKE_CLOSURE time: either an outer local that got promoted to a heap cell,
// or an outer capture being threaded one level further out.
type CaptureSource struct {
	FromType NameType // LOCAL or CAPTURE; never GLOBAL (globals don't need capturing)
	FromIndex int
}

// FrameInfo is the per-function-frame summary the resolver produces for the
// code generator: how many local slots to reserve, which of those need
// heap-boxing because a nested function captures them, and how to populate
// this frame's own capture segment when a closure over it is created.
type FrameInfo struct {
	ParamCount int
	NumLocals  int
	CellLocals []int
	Captures   []CaptureSource
}

func (f *FrameInfo) isCell(index int) bool {
	for _, i := range f.CellLocals {
		if i == index {
			return true
		}
	}
	return false
}

// Result is the complete output of a successful Resolve call.
type Result struct {
	// Bindings maps every ordinary-identifier Variable reference (read or
	// assignment target) to its resolved address. Reserved forms (`this`,
	// `$`, `$0`, `$1`, ...) are never present here — the compiler special-
	// cases them directly off the token.
	Bindings map[*ast.Variable]Binding

	// Top is the frame info for the top-level program (its NumLocals is
	// always 0 and Captures always empty; only ParamCount/CellLocals go
	// unused — it exists mainly for symmetry and disassembly).
	Top *FrameInfo

	FuncFrames   map[*ast.FuncStmt]*FrameInfo
	LambdaFrames map[*ast.Lambda]*FrameInfo

	// FuncNames holds the binding for a FuncStmt's own declared name (the
	// "NAME = ..." half of its assignment sugar).
	FuncNames map[*ast.FuncStmt]Binding
}
