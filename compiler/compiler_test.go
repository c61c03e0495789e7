package compiler

import (
	"testing"

	"yqlang/lexer"
	"yqlang/parser"
	"yqlang/resolver"
	"yqlang/value"
)

func compileSource(t *testing.T, src string) (*Bytecode, *value.Memory) {
	t.Helper()

	toks, err := lexer.New(src).Scan()
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	program, errs := parser.Make(toks).Parse()
	if len(errs) > 0 {
		t.Fatalf("parse errors: %v", errs)
	}

	mem := value.NewMemory()
	res, err := resolver.Resolve(program, mem)
	if err != nil {
		t.Fatalf("resolve error: %v", err)
	}

	bc, err := Compile(program, res, mem)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	return bc, mem
}

func TestCompileArithmeticEndsInExit(t *testing.T) {
	bc, _ := compileSource(t, "1 + 2 * 3;")
	if len(bc.Instructions) == 0 {
		t.Fatal("expected non-empty instructions")
	}
	last := bc.Instructions[len(bc.Instructions)-1]
	if Opcode(last) != OP_EXIT {
		t.Errorf("last opcode = %d, want OP_EXIT", last)
	}
}

func TestCompileGlobalAssignment(t *testing.T) {
	bc, mem := compileSource(t, "x = 5; y = x + 1;")
	if len(mem.Globals) != 2 {
		t.Fatalf("expected 2 globals, got %d", len(mem.Globals))
	}
	found := false
	for i := 0; i+2 < len(bc.Instructions); i++ {
		if Opcode(bc.Instructions[i]) == OP_GLOBAL_SET {
			found = true
		}
	}
	if !found {
		t.Error("expected at least one OP_GLOBAL_SET in the compiled program")
	}
}

func TestCompileFunctionWithoutCapturesIsConstantClosure(t *testing.T) {
	bc, mem := compileSource(t, "func add(a, b) { return a + b; }")
	if len(bc.Functions) != 1 {
		t.Fatalf("expected exactly one compiled function chunk, got %d", len(bc.Functions))
	}
	if len(bc.FrameInfos) != 1 {
		t.Fatalf("expected a FrameInfos entry alongside Functions, got %d", len(bc.FrameInfos))
	}

	sawConstantClosure := false
	for _, c := range mem.ConstPool {
		if cl, ok := c.(value.Closure); ok && cl.Arity == 2 {
			sawConstantClosure = true
		}
	}
	if !sawConstantClosure {
		t.Error("expected a capture-less function to compile to a constant-pooled Closure value")
	}
}

func TestCompileClosureWithCaptureUsesMakeClosure(t *testing.T) {
	bc, _ := compileSource(t, `
		func outer() {
			n = 0;
			make_adder = {
				n += 1;
				return n;
			};
			return make_adder;
		}
	`)

	sawMakeClosure := false
	for _, ins := range append([]Instructions{bc.Instructions}, bc.Functions...) {
		for i := 0; i < len(ins); {
			op := Opcode(ins[i])
			def, err := Get(op)
			if err != nil {
				t.Fatalf("unknown opcode %d at %d", op, i)
			}
			if op == OP_MAKE_CLOSURE {
				sawMakeClosure = true
			}
			width := 1
			for _, w := range def.OperandWidths {
				width += w
			}
			i += width
		}
	}
	if !sawMakeClosure {
		t.Error("expected a capturing lambda to compile via OP_MAKE_CLOSURE")
	}
}

func TestCompileForLoopUsesIteratorOpcodes(t *testing.T) {
	bc, _ := compileSource(t, `
		for x in [1, 2, 3] {
			y = x;
		}
	`)
	seen := map[Opcode]bool{}
	ins := bc.Instructions
	for i := 0; i < len(ins); {
		op := Opcode(ins[i])
		def, err := Get(op)
		if err != nil {
			t.Fatalf("unknown opcode %d at %d", op, i)
		}
		seen[op] = true
		width := 1
		for _, w := range def.OperandWidths {
			width += w
		}
		i += width
	}
	for _, want := range []Opcode{OP_ITER_PUSH, OP_ITER_NEXT_OR_JUMP} {
		if !seen[want] {
			t.Errorf("expected a for-loop to emit %v", want)
		}
	}
}

func TestCompileBreakOutsideLoopIsSemanticError(t *testing.T) {
	toks, err := lexer.New("break;").Scan()
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	program, errs := parser.Make(toks).Parse()
	if len(errs) > 0 {
		t.Fatalf("parse errors: %v", errs)
	}
	mem := value.NewMemory()
	res, err := resolver.Resolve(program, mem)
	if err != nil {
		t.Fatalf("resolve error: %v", err)
	}
	_, err = Compile(program, res, mem)
	if err == nil {
		t.Fatal("expected a SemanticError for break outside a loop")
	}
	if _, ok := err.(SemanticError); !ok {
		t.Errorf("got %T, want SemanticError", err)
	}
}
