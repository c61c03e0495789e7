package compiler

import "testing"

func TestMakeInstruction(t *testing.T) {
	operand := 65000
	tests := []struct {
		op       Opcode
		operands []int
		expected []byte
	}{
		{OP_CONSTANT, []int{operand}, []byte{byte(OP_CONSTANT), 253, 232}},
		{OP_EXIT, []int{}, []byte{byte(OP_EXIT)}},
		{OP_ADD, []int{}, []byte{byte(OP_ADD)}},
		{OP_MUL, []int{}, []byte{byte(OP_MUL)}},
		{OP_DIV, []int{}, []byte{byte(OP_DIV)}},
		{OP_SUB, []int{}, []byte{byte(OP_SUB)}},
		{OP_NEG, []int{}, []byte{byte(OP_NEG)}},
		{OP_NOT, []int{}, []byte{byte(OP_NOT)}},
		{OP_EQUAL, []int{}, []byte{byte(OP_EQUAL)}},
		{OP_NOT_EQUAL, []int{}, []byte{byte(OP_NOT_EQUAL)}},
		{OP_GREATER, []int{}, []byte{byte(OP_GREATER)}},
		{OP_LESS, []int{}, []byte{byte(OP_LESS)}},
		{OP_GREATER_EQUAL, []int{}, []byte{byte(OP_GREATER_EQUAL)}},
		{OP_LESS_EQUAL, []int{}, []byte{byte(OP_LESS_EQUAL)}},
		{OP_GLOBAL_SET, []int{operand}, []byte{byte(OP_GLOBAL_SET), 253, 232}},
		{OP_GLOBAL_GET, []int{operand}, []byte{byte(OP_GLOBAL_GET), 253, 232}},
		{OP_LOCAL_SET, []int{operand}, []byte{byte(OP_LOCAL_SET), 253, 232}},
		{OP_LOCAL_GET, []int{operand}, []byte{byte(OP_LOCAL_GET), 253, 232}},
		{OP_JUMP, []int{operand}, []byte{byte(OP_JUMP), 253, 232}},
		{OP_JUMP_IF_FALSE_POP, []int{operand}, []byte{byte(OP_JUMP_IF_FALSE_POP), 253, 232}},
		{OP_POP, []int{}, []byte{byte(OP_POP)}},
		{OP_MAKE_CLOSURE, []int{1, 2, 3}, []byte{byte(OP_MAKE_CLOSURE), 0, 1, 0, 2, 0, 3}},
	}

	for _, tt := range tests {
		instruction := MakeInstruction(tt.op, tt.operands...)
		if len(instruction) != len(tt.expected) {
			t.Errorf("%d: wrong length - got: %d, want: %d", tt.op, len(instruction), len(tt.expected))
			continue
		}
		for i, b := range tt.expected {
			if instruction[i] != b {
				t.Errorf("%d: wrong byte at %d - got: %v, want: %v", tt.op, i, instruction[i], b)
			}
		}
	}
}

func TestReadUint16RoundTrips(t *testing.T) {
	ins := MakeInstruction(OP_CONSTANT, 65000)
	got := ReadUint16(ins, 1)
	if got != 65000 {
		t.Errorf("got %d, want 65000", got)
	}
}

func TestGetUndefinedOpcode(t *testing.T) {
	if _, err := Get(Opcode(255)); err == nil {
		t.Error("expected an error for an undefined opcode")
	}
}
