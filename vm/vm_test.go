package vm

import (
	"testing"

	"yqlang/compiler"
	"yqlang/resolver"
	"yqlang/value"
)

func mkInstr(ops ...[]byte) compiler.Instructions {
	var out compiler.Instructions
	for _, op := range ops {
		out = append(out, op...)
	}
	return out
}

func TestRunArithmeticAndRegister(t *testing.T) {
	mem := value.NewMemory()
	mem.ConstPool = []value.Value{value.Integer(5), value.Integer(1)}

	bc := &compiler.Bytecode{
		Instructions: mkInstr(
			compiler.MakeInstruction(compiler.OP_CONSTANT, 0),
			compiler.MakeInstruction(compiler.OP_CONSTANT, 1),
			compiler.MakeInstruction(compiler.OP_ADD),
			compiler.MakeInstruction(compiler.OP_SET_REG),
			compiler.MakeInstruction(compiler.OP_POP),
			compiler.MakeInstruction(compiler.OP_EXIT),
		),
	}

	m := New(mem, nil, nil)
	result, err := m.Run(bc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != value.Integer(6) {
		t.Fatalf("got %v, want Integer(6)", result)
	}
}

func TestRunStringConstantsCloneOnLoad(t *testing.T) {
	mem := value.NewMemory()
	mem.ConstPool = []value.Value{mem.NewString("hi")}

	bc := &compiler.Bytecode{
		Instructions: mkInstr(
			compiler.MakeInstruction(compiler.OP_CONSTANT, 0),
			compiler.MakeInstruction(compiler.OP_SET_REG),
			compiler.MakeInstruction(compiler.OP_POP),
			compiler.MakeInstruction(compiler.OP_CONSTANT, 0),
			compiler.MakeInstruction(compiler.OP_SET_REG),
			compiler.MakeInstruction(compiler.OP_EXIT),
		),
	}

	m := New(mem, nil, nil)
	result, err := m.Run(bc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s, ok := result.(value.Str)
	if !ok {
		t.Fatalf("got %T, want value.Str", result)
	}
	if s.Ptr == mem.ConstPool[0].(value.Str).Ptr {
		t.Fatalf("expected a cloned pointer distinct from the constant pool template")
	}
}

func TestRunGlobalGetSet(t *testing.T) {
	mem := value.NewMemory()
	idx := mem.DefineGlobal("counter")
	mem.ConstPool = []value.Value{value.Integer(41), value.Integer(1)}

	bc := &compiler.Bytecode{
		Instructions: mkInstr(
			compiler.MakeInstruction(compiler.OP_CONSTANT, 0),
			compiler.MakeInstruction(compiler.OP_GLOBAL_SET, idx),
			compiler.MakeInstruction(compiler.OP_GLOBAL_GET, idx),
			compiler.MakeInstruction(compiler.OP_CONSTANT, 1),
			compiler.MakeInstruction(compiler.OP_ADD),
			compiler.MakeInstruction(compiler.OP_GLOBAL_SET, idx),
			compiler.MakeInstruction(compiler.OP_GLOBAL_GET, idx),
			compiler.MakeInstruction(compiler.OP_SET_REG),
			compiler.MakeInstruction(compiler.OP_EXIT),
		),
	}

	m := New(mem, nil, nil)
	result, err := m.Run(bc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != value.Integer(42) {
		t.Fatalf("got %v, want Integer(42)", result)
	}
	if mem.Globals[idx] != value.Integer(42) {
		t.Fatalf("global not persisted: got %v", mem.Globals[idx])
	}
}

// TestRunCallClosure exercises OP_CALL/OP_RETURN for a two-arg function with
// no captures: `fn(a, b) { return a + b }` called as fn(3, 4).
func TestRunCallClosure(t *testing.T) {
	mem := value.NewMemory()
	fnInfo := &resolver.FrameInfo{ParamCount: 2, NumLocals: 2}

	fnChunk := mkInstr(
		compiler.MakeInstruction(compiler.OP_LOCAL_GET, 0),
		compiler.MakeInstruction(compiler.OP_LOCAL_GET, 1),
		compiler.MakeInstruction(compiler.OP_ADD),
		compiler.MakeInstruction(compiler.OP_RETURN),
	)

	mem.ConstPool = []value.Value{
		value.Closure{Entry: 0, Arity: 2},
		value.Integer(3),
		value.Integer(4),
	}

	bc := &compiler.Bytecode{
		Instructions: mkInstr(
			compiler.MakeInstruction(compiler.OP_CONSTANT, 0),
			compiler.MakeInstruction(compiler.OP_CONSTANT, 1),
			compiler.MakeInstruction(compiler.OP_CONSTANT, 2),
			compiler.MakeInstruction(compiler.OP_CALL, 2),
			compiler.MakeInstruction(compiler.OP_SET_REG),
			compiler.MakeInstruction(compiler.OP_EXIT),
		),
		Functions:  []compiler.Instructions{fnChunk},
		FrameInfos: []*resolver.FrameInfo{fnInfo},
	}

	m := New(mem, nil, nil)
	result, err := m.Run(bc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != value.Integer(7) {
		t.Fatalf("got %v, want Integer(7)", result)
	}
}

func TestRunListLiteralAndIndex(t *testing.T) {
	mem := value.NewMemory()
	mem.ConstPool = []value.Value{value.Integer(10), value.Integer(20), value.Integer(30), value.Integer(1)}

	bc := &compiler.Bytecode{
		Instructions: mkInstr(
			compiler.MakeInstruction(compiler.OP_CONSTANT, 0),
			compiler.MakeInstruction(compiler.OP_CONSTANT, 1),
			compiler.MakeInstruction(compiler.OP_CONSTANT, 2),
			compiler.MakeInstruction(compiler.OP_MAKE_LIST, 3),
			compiler.MakeInstruction(compiler.OP_CONSTANT, 3),
			compiler.MakeInstruction(compiler.OP_GET_INDEX),
			compiler.MakeInstruction(compiler.OP_SET_REG),
			compiler.MakeInstruction(compiler.OP_EXIT),
		),
	}

	m := New(mem, nil, nil)
	result, err := m.Run(bc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != value.Integer(20) {
		t.Fatalf("got %v, want Integer(20) (list[1])", result)
	}
}

func TestRunForLoopOverRange(t *testing.T) {
	mem := value.NewMemory()
	sumIdx := mem.DefineGlobal("sum")
	mem.ConstPool = []value.Value{value.Integer(0)}

	// sum = 0
	// for x in 1..3 { sum += 1 }   (x never referenced; just drained)
	iterPush := compiler.MakeInstruction(compiler.OP_ITER_PUSH)

	var b compiler.Instructions
	b = append(b, compiler.MakeInstruction(compiler.OP_CONSTANT, 0)...)
	b = append(b, compiler.MakeInstruction(compiler.OP_GLOBAL_SET, sumIdx)...)

	rangeConstIdx := len(mem.ConstPool)
	mem.ConstPool = append(mem.ConstPool, value.Range{Begin: 1, End: 3, Inclusive: true})
	b = append(b, compiler.MakeInstruction(compiler.OP_CONSTANT, rangeConstIdx)...)
	b = append(b, iterPush...)

	nextPos := len(b)
	jdPos := len(b)
	b = append(b, compiler.MakeInstruction(compiler.OP_ITER_NEXT_OR_JUMP, 0)...)

	// sum += 1: discard the iterated value and add a constant 1 each lap,
	// proving the jump/loop mechanics rather than the value itself.
	b = append(b, compiler.MakeInstruction(compiler.OP_POP)...) // drop iterVal
	b = append(b, compiler.MakeInstruction(compiler.OP_GLOBAL_GET, sumIdx)...)
	onePos := len(mem.ConstPool)
	mem.ConstPool = append(mem.ConstPool, value.Integer(1))
	b = append(b, compiler.MakeInstruction(compiler.OP_CONSTANT, onePos)...)
	b = append(b, compiler.MakeInstruction(compiler.OP_ADD)...)
	b = append(b, compiler.MakeInstruction(compiler.OP_GLOBAL_SET, sumIdx)...)
	b = append(b, compiler.MakeInstruction(compiler.OP_JUMP, nextPos)...)

	end := len(b)
	b[jdPos+1] = byte(end >> 8)
	b[jdPos+2] = byte(end)

	b = append(b, compiler.MakeInstruction(compiler.OP_GLOBAL_GET, sumIdx)...)
	b = append(b, compiler.MakeInstruction(compiler.OP_SET_REG)...)
	b = append(b, compiler.MakeInstruction(compiler.OP_EXIT)...)

	bc := &compiler.Bytecode{Instructions: b}

	m := New(mem, nil, nil)
	result, err := m.Run(bc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// range 1..3 inclusive has 3 elements, so sum increments by 1 three times.
	if result != value.Integer(3) {
		t.Fatalf("got %v, want Integer(3)", result)
	}
}

func TestRunDivideByZeroIsRuntimeError(t *testing.T) {
	mem := value.NewMemory()
	mem.ConstPool = []value.Value{value.Integer(1), value.Integer(0)}

	bc := &compiler.Bytecode{
		Instructions: mkInstr(
			compiler.MakeInstruction(compiler.OP_CONSTANT, 0),
			compiler.MakeInstruction(compiler.OP_CONSTANT, 1),
			compiler.MakeInstruction(compiler.OP_DIV),
			compiler.MakeInstruction(compiler.OP_EXIT),
		),
	}

	m := New(mem, nil, nil)
	_, err := m.Run(bc)
	if err == nil {
		t.Fatalf("expected a RuntimeError, got nil")
	}
	if _, ok := err.(RuntimeError); !ok {
		t.Fatalf("got %T, want RuntimeError", err)
	}
}

// stubBuiltins lets tests exercise OP_CALL against a value.Builtin callee
// without a full builtin/ package.
type stubBuiltins struct{}

func (stubBuiltins) Call(mem *value.Memory, name string, receiver value.Value, bound bool, args []value.Value) (value.Value, error) {
	if name == "double" {
		return value.Integer(2 * int64(args[0].(value.Integer))), nil
	}
	return value.Null{}, nil
}

// TestInvokeReentersForClosureCallback exercises the Invoke path a builtin
// like filter/map/reduce/sorted uses to call a user closure mid-dispatch.
func TestInvokeReentersForClosureCallback(t *testing.T) {
	mem := value.NewMemory()
	fnInfo := &resolver.FrameInfo{ParamCount: 1, NumLocals: 1}
	fnChunk := mkInstr(
		compiler.MakeInstruction(compiler.OP_LOCAL_GET, 0),
		compiler.MakeInstruction(compiler.OP_CONSTANT, 0),
		compiler.MakeInstruction(compiler.OP_ADD),
		compiler.MakeInstruction(compiler.OP_RETURN),
	)
	mem.ConstPool = []value.Value{value.Integer(10)}

	bc := &compiler.Bytecode{
		Instructions: mkInstr(compiler.MakeInstruction(compiler.OP_EXIT)),
		Functions:    []compiler.Instructions{fnChunk},
		FrameInfos:   []*resolver.FrameInfo{fnInfo},
	}

	m := New(mem, nil, nil)
	// Prime the VM's frame stack by running the trivial top-level program
	// (a lone OP_EXIT), which leaves its frame in place for Invoke.
	if _, err := m.Run(bc); err != nil {
		t.Fatalf("unexpected error priming VM: %v", err)
	}

	closure := value.Closure{Entry: 0, Arity: 1}
	result, err := m.Invoke(closure, []value.Value{value.Integer(5)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != value.Integer(15) {
		t.Fatalf("got %v, want Integer(15)", result)
	}
}

func TestRunCallBuiltin(t *testing.T) {
	mem := value.NewMemory()
	mem.ConstPool = []value.Value{value.Builtin{Name: "double"}, value.Integer(21)}

	bc := &compiler.Bytecode{
		Instructions: mkInstr(
			compiler.MakeInstruction(compiler.OP_CONSTANT, 0),
			compiler.MakeInstruction(compiler.OP_CONSTANT, 1),
			compiler.MakeInstruction(compiler.OP_CALL, 1),
			compiler.MakeInstruction(compiler.OP_SET_REG),
			compiler.MakeInstruction(compiler.OP_EXIT),
		),
	}

	m := New(mem, stubBuiltins{}, nil)
	result, err := m.Run(bc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != value.Integer(42) {
		t.Fatalf("got %v, want Integer(42)", result)
	}
}
