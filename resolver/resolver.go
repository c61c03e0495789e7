// Package resolver implements the scope/frame analyzer: it walks a parsed
// program and annotates every ordinary identifier with the address space
// (global, local, or captured) and slot the code generator should target,
// threading capture chains through every intermediate function frame a
// closure's free variable passes through.
package resolver

import (
	"strings"

	"yqlang/ast"
	"yqlang/token"
	"yqlang/value"
)

type blockScope struct {
	names map[string]Binding
}

func newBlockScope() *blockScope { return &blockScope{names: make(map[string]Binding)} }

// frameScope is one function activation's worth of compile-time scope state:
// a stack of lexical blocks sharing one flat local-slot counter, plus the
// capture segment the code generator will populate at MAKE_CLOSURE time.
type frameScope struct {
	isTop    bool
	blocks   []*blockScope
	numLocal int
	info     *FrameInfo
}

func newFrame(isTop bool) *frameScope {
	f := &frameScope{isTop: isTop, info: &FrameInfo{}}
	f.blocks = []*blockScope{newBlockScope()}
	return f
}

func (f *frameScope) pushBlock() { f.blocks = append(f.blocks, newBlockScope()) }
func (f *frameScope) popBlock()  { f.blocks = f.blocks[:len(f.blocks)-1] }
func (f *frameScope) top() *blockScope { return f.blocks[len(f.blocks)-1] }

func (f *frameScope) find(name string) (Binding, bool) {
	for i := len(f.blocks) - 1; i >= 0; i-- {
		if b, ok := f.blocks[i].names[name]; ok {
			return b, true
		}
	}
	return Binding{}, false
}

func (f *frameScope) declareIn(block *blockScope, name string, b Binding) {
	block.names[name] = b
}

func (f *frameScope) markCell(index int) {
	if !f.info.isCell(index) {
		f.info.CellLocals = append(f.info.CellLocals, index)
	}
}

func (f *frameScope) captureIndexFor(src CaptureSource) (int, bool) {
	for i, c := range f.info.Captures {
		if c == src {
			return i, true
		}
	}
	return -1, false
}

type resolver struct {
	memory *value.Memory
	frames []*frameScope
	result *Result
}

// Resolve walks program's top-level statements and produces a Result, or the
// first ResolutionError encountered.
func Resolve(program []ast.Stmt, memory *value.Memory) (*Result, error) {
	top := newFrame(true)
	r := &resolver{
		memory: memory,
		frames: []*frameScope{top},
		result: &Result{
			Bindings:     make(map[*ast.Variable]Binding),
			Top:          top.info,
			FuncFrames:   make(map[*ast.FuncStmt]*FrameInfo),
			LambdaFrames: make(map[*ast.Lambda]*FrameInfo),
			FuncNames:    make(map[*ast.FuncStmt]Binding),
		},
	}
	for _, s := range program {
		if err := r.stmt(s); err != nil {
			return nil, err
		}
	}
	return r.result, nil
}

func (r *resolver) current() *frameScope { return r.frames[len(r.frames)-1] }

func isReserved(name string) bool {
	return name == "this" || strings.HasPrefix(name, "$")
}

// declareNew binds a brand-new name in the innermost block of the current
// frame, erroring if it collides with something already declared in that
// exact block (parameter lists and for-loop patterns use this; ordinary
// assignment does not).
func (r *resolver) declareNew(tok token.Token) (Binding, error) {
	name := tok.Lexeme
	if isReserved(name) || tok.TokenType == token.THIS {
		return Binding{}, newReservedNameError(name, tok.Line, tok.Column)
	}
	frame := r.current()
	if _, exists := frame.top().names[name]; exists {
		return Binding{}, newRedeclarationError(name, tok.Line, tok.Column)
	}
	b := r.allocate(frame, name)
	frame.declareIn(frame.top(), name, b)
	return b, nil
}

func (r *resolver) allocate(frame *frameScope, name string) Binding {
	if frame.isTop {
		idx := r.memory.DefineGlobal(name)
		return Binding{Type: GLOBAL, Index: idx}
	}
	idx := frame.numLocal
	frame.numLocal++
	frame.info.NumLocals = frame.numLocal
	return Binding{Type: LOCAL, Index: idx}
}

// resolveRead looks a name up through the current frame, then enclosing
// frames (threading a capture chain as needed), and finally the persisted
// globals. An unresolved name is a NameError.
func (r *resolver) resolveRead(name string, line int32, col int) (Binding, error) {
	return r.resolveName(name, line, col, false)
}

// resolveWrite behaves like resolveRead but allocates a fresh binding in the
// current frame instead of erroring when the name is not found anywhere.
func (r *resolver) resolveWrite(name string, line int32, col int) (Binding, error) {
	return r.resolveName(name, line, col, true)
}

func (r *resolver) resolveName(name string, line int32, col int, allocateIfMissing bool) (Binding, error) {
	cur := len(r.frames) - 1
	if b, ok := r.frames[cur].find(name); ok {
		return b, nil
	}
	for j := cur - 1; j >= 0; j-- {
		b, ok := r.frames[j].find(name)
		if !ok {
			continue
		}
		if j == 0 {
			// Found in the top-level/global frame: globals are addressable
			// directly from any depth, no capture chain required.
			r.frames[cur].declareIn(r.frames[cur].top(), name, b)
			return b, nil
		}
		return r.threadCapture(name, j, b, cur), nil
	}
	if allocateIfMissing {
		b := r.allocate(r.frames[cur], name)
		r.frames[cur].declareIn(r.frames[cur].top(), name, b)
		return b, nil
	}
	return Binding{}, newNameError(name, line, col)
}

// threadCapture promotes the local binding found in frames[foundFrame] to a
// heap cell and registers a chained capture in every frame strictly between
// foundFrame and useFrame (inclusive of useFrame), returning the binding as
// useFrame should reference it.
func (r *resolver) threadCapture(name string, foundFrame int, local Binding, useFrame int) Binding {
	r.frames[foundFrame].markCell(local.Index)
	prev := local
	for f := foundFrame + 1; f <= useFrame; f++ {
		frame := r.frames[f]
		src := CaptureSource{FromType: prev.Type, FromIndex: prev.Index}
		idx, ok := frame.captureIndexFor(src)
		if !ok {
			idx = len(frame.info.Captures)
			frame.info.Captures = append(frame.info.Captures, src)
		}
		prev = Binding{Type: CAPTURE, Index: idx}
		// Cache in the frame's root block so repeated lookups (including
		// from functions nested even deeper) resolve without re-deriving
		// the chain, and so `f`'s own later uses see the same capture slot.
		frame.declareIn(frame.blocks[0], name, prev)
	}
	return prev
}

func (r *resolver) pushFunction() *frameScope {
	f := newFrame(false)
	r.frames = append(r.frames, f)
	return f
}

func (r *resolver) popFunction() {
	r.frames = r.frames[:len(r.frames)-1]
}
