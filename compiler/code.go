package compiler

import (
	"encoding/binary"
	"fmt"

	"yqlang/resolver"
)

// Instructions is a flat, BigEndian-encoded byte stream holding one chunk of
// compiled code: either the top-level program or a single function/lambda
// body. Jump operands are always relative to the start of their own chunk.
type Instructions []byte

// Bytecode is the output of a successful Compile call. Instructions is the
// top-level program, executed starting at offset 0 until OP_EXIT. Functions
// holds one compiled chunk per function/lambda body in the program;
// value.Closure.Entry indexes into this slice. FrameInfos is a same-length,
// same-indexed side table of each chunk's local/capture layout, so the VM
// knows how many local slots to reserve and which ones to pre-box as cells
// before running a chunk — it carries no bytecode of its own.
type Bytecode struct {
	Instructions Instructions
	Functions    []Instructions
	FrameInfos   []*resolver.FrameInfo
}

type Opcode byte

const (
	// Stack / constants
	OP_CONSTANT  Opcode = iota // push ConstPool[operand] (Str constants are cloned on load, see vm)
	OP_POP                     // discard top of stack
	OP_DUP                     // duplicate top of stack
	OP_STASH                   // pop TOS into the VM's single-slot scratch register
	OP_UNSTASH                 // push the scratch register's value back onto the stack
	OP_SET_REG                 // copy (without popping) TOS into the VM's last-value register
	OP_CLEAR_REG                // clear the last-value register to Null

	// Bindings
	OP_GLOBAL_GET
	OP_GLOBAL_SET
	OP_LOCAL_GET
	OP_LOCAL_SET
	OP_CELL_GET        // read through a heap-boxed (captured-by-someone) local
	OP_CELL_SET        // write through a heap-boxed local
	OP_CELL_BOX_GET    // push the raw box itself (for handing to MAKE_CLOSURE)
	OP_CAPTURE_GET     // read through the current closure's Nth capture
	OP_CAPTURE_SET     // write through the current closure's Nth capture
	OP_CAPTURE_BOX_GET // push a capture's raw box, for re-threading into a nested closure
	OP_THIS_GET
	OP_ARGS_GET // push the whole args-list value (reserved `$`)
	OP_ARG_GET  // push args-list[N], or Null if N is out of range (reserved `$N`)

	// Arithmetic / comparison / logic
	OP_ADD
	OP_SUB
	OP_MUL
	OP_DIV
	OP_MOD
	OP_NEG
	OP_NOT
	OP_EQUAL
	OP_NOT_EQUAL
	OP_LESS
	OP_LESS_EQUAL
	OP_GREATER
	OP_GREATER_EQUAL
	OP_IN

	// Control flow
	OP_JUMP
	OP_JUMP_IF_FALSE_POP     // pop; jump if falsy
	OP_JUMP_IF_FALSE_NOPOP   // jump (keeping TOS) if falsy, else pop and fall through — for `&&`
	OP_JUMP_IF_TRUE_NOPOP    // jump (keeping TOS) if truthy, else pop and fall through — for `||`
	OP_JUMP_IF_NOT_FIRST_RUN // skip an `init` block on every run after the first

	// Containers
	OP_MAKE_LIST    // pop operand values, push a new List
	OP_MAKE_OBJECT  // pop operand (key, value) pairs, push a new Object
	OP_MAKE_CLOSURE // pop operand[2] capture boxes, push a new Closure(entry=op0, arity=op1)

	// Access-view steps (each applies one postfix `.name`/`[i]`/`[b:e]` link).
	// Stack order is always deepest-pushed-first: GET steps push `target`
	// then any index operands on top, in source order. SET steps expect the
	// new value pushed *before* the target/index operands, so the operands
	// end up on top (popped first) and the value is popped last.
	OP_GET_ATTR          // pop target; push target.name (Null if absent)
	OP_GET_ATTR_CALLABLE // like OP_GET_ATTR, but a missing name binds a builtin method instead
	OP_GET_INDEX         // pop index, then target; push target[index]
	OP_GET_SLICE_OPEN    // pop begin, then target; push target[begin:]
	OP_GET_SLICE_CLOSED  // pop end, begin, then target; push target[begin:end]
	OP_SET_ATTR          // pop target, then value; target.name = value
	OP_SET_INDEX         // pop index, target, then value; target[index] = value
	OP_SET_SLICE_OPEN    // pop begin, target, then value; target[begin:] = value
	OP_SET_SLICE_CLOSED  // pop end, begin, target, then value; target[begin:end] = value
	OP_PATTERN_INDEX     // pop index, target; push target[index], or Null if index is out of range (list-pattern destructuring only)

	// Calls
	OP_CALL       // pop operand args + callee, push the call's result
	OP_RETURN     // pop value, return it to the caller
	OP_RETURN_REG // return the frame's last-expression register to the caller (bare `return;`, or falling off the end of a body)

	// Iteration
	OP_ITER_PUSH         // pop an iterable, push a new iterator frame
	OP_ITER_NEXT_OR_JUMP // if exhausted: pop the iterator frame, jump; else push the next element
	OP_ITER_POP          // discard the top iterator frame (early loop exit via break)

	// Actions
	OP_ACTION // pop value, dispatch to the host as say/nudge/picsave/picsend (operand selects which)

	OP_EXIT
)

// Action kinds for OP_ACTION's operand.
const (
	ActionSay = iota
	ActionNudge
	ActionPicSave
	ActionPicSend
)

type OpCodeDefinition struct {
	Name          string
	OperandWidths []int
}

var definitions = map[Opcode]*OpCodeDefinition{
	OP_CONSTANT:  {"OP_CONSTANT", []int{2}},
	OP_POP:       {"OP_POP", []int{}},
	OP_DUP:       {"OP_DUP", []int{}},
	OP_STASH:     {"OP_STASH", []int{}},
	OP_UNSTASH:   {"OP_UNSTASH", []int{}},
	OP_SET_REG:   {"OP_SET_REG", []int{}},
	OP_CLEAR_REG: {"OP_CLEAR_REG", []int{}},

	OP_GLOBAL_GET:      {"OP_GLOBAL_GET", []int{2}},
	OP_GLOBAL_SET:      {"OP_GLOBAL_SET", []int{2}},
	OP_LOCAL_GET:       {"OP_LOCAL_GET", []int{2}},
	OP_LOCAL_SET:       {"OP_LOCAL_SET", []int{2}},
	OP_CELL_GET:        {"OP_CELL_GET", []int{2}},
	OP_CELL_SET:        {"OP_CELL_SET", []int{2}},
	OP_CELL_BOX_GET:    {"OP_CELL_BOX_GET", []int{2}},
	OP_CAPTURE_GET:     {"OP_CAPTURE_GET", []int{2}},
	OP_CAPTURE_SET:     {"OP_CAPTURE_SET", []int{2}},
	OP_CAPTURE_BOX_GET: {"OP_CAPTURE_BOX_GET", []int{2}},
	OP_THIS_GET:        {"OP_THIS_GET", []int{}},
	OP_ARGS_GET:        {"OP_ARGS_GET", []int{}},
	OP_ARG_GET:         {"OP_ARG_GET", []int{2}},

	OP_ADD:           {"OP_ADD", []int{}},
	OP_SUB:           {"OP_SUB", []int{}},
	OP_MUL:           {"OP_MUL", []int{}},
	OP_DIV:           {"OP_DIV", []int{}},
	OP_MOD:           {"OP_MOD", []int{}},
	OP_NEG:           {"OP_NEG", []int{}},
	OP_NOT:           {"OP_NOT", []int{}},
	OP_EQUAL:         {"OP_EQUAL", []int{}},
	OP_NOT_EQUAL:     {"OP_NOT_EQUAL", []int{}},
	OP_LESS:          {"OP_LESS", []int{}},
	OP_LESS_EQUAL:    {"OP_LESS_EQUAL", []int{}},
	OP_GREATER:       {"OP_GREATER", []int{}},
	OP_GREATER_EQUAL: {"OP_GREATER_EQUAL", []int{}},
	OP_IN:            {"OP_IN", []int{}},

	OP_JUMP:                  {"OP_JUMP", []int{2}},
	OP_JUMP_IF_FALSE_POP:     {"OP_JUMP_IF_FALSE_POP", []int{2}},
	OP_JUMP_IF_FALSE_NOPOP:   {"OP_JUMP_IF_FALSE_NOPOP", []int{2}},
	OP_JUMP_IF_TRUE_NOPOP:    {"OP_JUMP_IF_TRUE_NOPOP", []int{2}},
	OP_JUMP_IF_NOT_FIRST_RUN: {"OP_JUMP_IF_NOT_FIRST_RUN", []int{2}},

	OP_MAKE_LIST:    {"OP_MAKE_LIST", []int{2}},
	OP_MAKE_OBJECT:  {"OP_MAKE_OBJECT", []int{2}},
	OP_MAKE_CLOSURE: {"OP_MAKE_CLOSURE", []int{2, 2, 2}},

	OP_GET_ATTR:          {"OP_GET_ATTR", []int{2}},
	OP_GET_ATTR_CALLABLE: {"OP_GET_ATTR_CALLABLE", []int{2}},
	OP_GET_INDEX:         {"OP_GET_INDEX", []int{}},
	OP_GET_SLICE_OPEN:    {"OP_GET_SLICE_OPEN", []int{}},
	OP_GET_SLICE_CLOSED:  {"OP_GET_SLICE_CLOSED", []int{}},
	OP_SET_ATTR:          {"OP_SET_ATTR", []int{2}},
	OP_SET_INDEX:         {"OP_SET_INDEX", []int{}},
	OP_SET_SLICE_OPEN:    {"OP_SET_SLICE_OPEN", []int{}},
	OP_SET_SLICE_CLOSED:  {"OP_SET_SLICE_CLOSED", []int{}},
	OP_PATTERN_INDEX:     {"OP_PATTERN_INDEX", []int{}},

	OP_CALL:       {"OP_CALL", []int{2}},
	OP_RETURN:     {"OP_RETURN", []int{}},
	OP_RETURN_REG: {"OP_RETURN_REG", []int{}},

	OP_ITER_PUSH:         {"OP_ITER_PUSH", []int{}},
	OP_ITER_NEXT_OR_JUMP: {"OP_ITER_NEXT_OR_JUMP", []int{2}},
	OP_ITER_POP:          {"OP_ITER_POP", []int{}},

	OP_ACTION: {"OP_ACTION", []int{2}},

	OP_EXIT: {"OP_EXIT", []int{}},
}

func Get(op Opcode) (*OpCodeDefinition, error) {
	def, ok := definitions[op]
	if !ok {
		return nil, fmt.Errorf("opcode %d undefined", op)
	}
	return def, nil
}

// MakeInstruction encodes op and its operands (each BigEndian, widths taken
// from the opcode's definition) into a single instruction.
func MakeInstruction(op Opcode, operands ...int) []byte {
	def, err := Get(op)
	if err != nil {
		return []byte{}
	}

	instructionLength := 1
	for _, w := range def.OperandWidths {
		instructionLength += w
	}
	instruction := make([]byte, instructionLength)
	instruction[0] = byte(op)

	offset := 1
	for i, o := range operands {
		width := def.OperandWidths[i]
		switch width {
		case 2:
			binary.BigEndian.PutUint16(instruction[offset:], uint16(o))
		case 1:
			instruction[offset] = byte(o)
		}
		offset += width
	}
	return instruction
}

// ReadUint16 decodes a BigEndian uint16 operand at ins[offset:].
func ReadUint16(ins Instructions, offset int) uint16 {
	return binary.BigEndian.Uint16(ins[offset:])
}
