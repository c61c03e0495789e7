// Package vm implements the stack machine that executes compiler.Bytecode:
// fetch-decode-dispatch over a shared operand Stack, a call stack of frames
// carrying their own locals/captures/this/args, the iterator protocol behind
// `for`, and delegation to value's arithmetic/comparison helpers and
// access's attribute/index/slice engine.
package vm

import (
	"fmt"
	"strings"

	"yqlang/access"
	"yqlang/compiler"
	"yqlang/resolver"
	"yqlang/value"
)

// DefaultMaxDepth is the recursion ceiling applied unless a driver overrides
// it via SetMaxDepth.
const DefaultMaxDepth = 300

// Builtins is the host-independent procedure table (split/join/range/... )
// the VM dispatches a value.Builtin callee to. bound reports whether the
// call came through a receiver (`x.length()`) as opposed to a free-standing
// global (`length(x)`).
type Builtins interface {
	Call(mem *value.Memory, name string, receiver value.Value, bound bool, args []value.Value) (value.Value, error)
}

// ActionSink receives the side-effecting `say`/`nudge`/`picsave`/`picsend`
// statements as they execute. kind is one of compiler.ActionSay and friends.
type ActionSink interface {
	Action(kind int, mem *value.Memory, v value.Value) error
}

// frame is one call activation: either the top-level program or a single
// Closure invocation.
type frame struct {
	ins      compiler.Instructions
	ip       int
	this     value.Value
	args     value.List
	captures []value.Pointer
	locals   []value.Value
	lastReg  value.Value
}

// VM is a stack-based virtual machine executing compiled yqlang bytecode.
type VM struct {
	stack    Stack
	frames   []*frame
	iters    []*iterFrame
	scratch  value.Value
	mem      *value.Memory
	bc       *compiler.Bytecode
	builtins Builtins
	host     ActionSink
	maxDepth int
	firstRun bool
	cancel   <-chan struct{}
}

// New creates a VM bound to mem (its constant pool and globals), a builtin
// table, and an action sink. builtins/host may be nil for bytecode that
// never calls a builtin or executes an action statement (tests, mostly).
func New(mem *value.Memory, builtins Builtins, host ActionSink) *VM {
	return &VM{
		mem:      mem,
		builtins: builtins,
		host:     host,
		maxDepth: DefaultMaxDepth,
		firstRun: true,
	}
}

// SetMaxDepth overrides the recursion ceiling (spec default 300).
func (vm *VM) SetMaxDepth(n int) { vm.maxDepth = n }

// SetBuiltins wires the builtin table after construction, letting a driver
// build the table with a reference back to this VM (for callback-taking
// builtins like filter/map/reduce/sorted) before the two are linked.
func (vm *VM) SetBuiltins(b Builtins) { vm.builtins = b }

// SetFirstRun tells the VM whether this is the first execution against its
// Memory's persisted globals, gating `init` blocks via
// OP_JUMP_IF_NOT_FIRST_RUN.
func (vm *VM) SetFirstRun(first bool) { vm.firstRun = first }

// SetCancel wires a cooperative cancellation channel; Run returns Cancelled
// promptly after the channel closes.
func (vm *VM) SetCancel(ch <-chan struct{}) { vm.cancel = ch }

func (vm *VM) cur() *frame { return vm.frames[len(vm.frames)-1] }

// Run executes bc from the top of its top-level chunk until OP_EXIT,
// returning the program's last-expression value.
func (vm *VM) Run(bc *compiler.Bytecode) (value.Value, error) {
	vm.bc = bc
	vm.frames = []*frame{{
		ins:     bc.Instructions,
		this:    value.Null{},
		args:    vm.mem.NewList(nil),
		lastReg: value.Null{},
	}}

	return vm.execute(0)
}

// Invoke calls a first-class Value (Closure, Builtin, or BoundProcedure) from
// outside the normal fetch-decode loop, re-entering the dispatch loop until
// the pushed activation returns. This is how the builtin table calls user
// callbacks (filter/map/reduce predicates, sorted comparators) without the
// builtin package needing to know anything about frames or opcodes.
func (vm *VM) Invoke(callee value.Value, args []value.Value) (value.Value, error) {
	depth := len(vm.frames)
	caller := vm.cur()
	vm.push(callee)
	for _, a := range args {
		vm.push(a)
	}
	if err := vm.call(caller, len(args)); err != nil {
		return value.Null{}, err
	}
	if len(vm.frames) == depth {
		// vm.call dispatched straight to a Builtin and already pushed its
		// result onto the stack without growing the frame stack.
		return vm.pop(), nil
	}
	return vm.execute(depth)
}

// execute runs the fetch-decode loop until the frame stack shrinks back down
// to targetDepth (a nested Invoke) or the top-level chunk hits OP_EXIT
// (targetDepth 0, the only case OP_EXIT can be reached in).
func (vm *VM) execute(targetDepth int) (value.Value, error) {
	for {
		if vm.cancel != nil {
			select {
			case <-vm.cancel:
				return value.Null{}, Cancelled{}
			default:
			}
		}

		f := vm.cur()
		if f.ip >= len(f.ins) {
			return value.Null{}, vm.errf(f, "instruction pointer ran past the end of its chunk")
		}
		op := compiler.Opcode(f.ins[f.ip])

		switch op {
		case compiler.OP_EXIT:
			return f.lastReg, nil

		case compiler.OP_CONSTANT:
			idx := int(compiler.ReadUint16(f.ins, f.ip+1))
			f.ip += 3
			vm.push(vm.loadConstant(idx))

		case compiler.OP_POP:
			f.ip++
			vm.pop()

		case compiler.OP_DUP:
			f.ip++
			v, _ := vm.stack.Peek()
			vm.push(v)

		case compiler.OP_STASH:
			f.ip++
			vm.scratch = vm.pop()

		case compiler.OP_UNSTASH:
			f.ip++
			vm.push(vm.scratch)

		case compiler.OP_SET_REG:
			f.ip++
			v, _ := vm.stack.Peek()
			f.lastReg = v

		case compiler.OP_CLEAR_REG:
			f.ip++
			f.lastReg = value.Null{}

		case compiler.OP_GLOBAL_GET:
			idx := int(compiler.ReadUint16(f.ins, f.ip+1))
			f.ip += 3
			vm.push(vm.mem.Globals[idx])

		case compiler.OP_GLOBAL_SET:
			idx := int(compiler.ReadUint16(f.ins, f.ip+1))
			f.ip += 3
			vm.mem.Globals[idx] = vm.pop()

		case compiler.OP_LOCAL_GET:
			idx := int(compiler.ReadUint16(f.ins, f.ip+1))
			f.ip += 3
			vm.push(f.locals[idx])

		case compiler.OP_LOCAL_SET:
			idx := int(compiler.ReadUint16(f.ins, f.ip+1))
			f.ip += 3
			f.locals[idx] = vm.pop()

		case compiler.OP_CELL_GET:
			idx := int(compiler.ReadUint16(f.ins, f.ip+1))
			f.ip += 3
			box := f.locals[idx].(value.List)
			vm.push(vm.mem.ListCellAt(box.Ptr).Elements[0])

		case compiler.OP_CELL_SET:
			idx := int(compiler.ReadUint16(f.ins, f.ip+1))
			f.ip += 3
			box := f.locals[idx].(value.List)
			vm.mem.ListCellAt(box.Ptr).Elements[0] = vm.pop()

		case compiler.OP_CELL_BOX_GET:
			idx := int(compiler.ReadUint16(f.ins, f.ip+1))
			f.ip += 3
			vm.push(f.locals[idx])

		case compiler.OP_CAPTURE_GET:
			idx := int(compiler.ReadUint16(f.ins, f.ip+1))
			f.ip += 3
			vm.push(vm.mem.ListCellAt(f.captures[idx]).Elements[0])

		case compiler.OP_CAPTURE_SET:
			idx := int(compiler.ReadUint16(f.ins, f.ip+1))
			f.ip += 3
			vm.mem.ListCellAt(f.captures[idx]).Elements[0] = vm.pop()

		case compiler.OP_CAPTURE_BOX_GET:
			idx := int(compiler.ReadUint16(f.ins, f.ip+1))
			f.ip += 3
			vm.push(value.List{Ptr: f.captures[idx]})

		case compiler.OP_THIS_GET:
			f.ip++
			vm.push(f.this)

		case compiler.OP_ARGS_GET:
			f.ip++
			vm.push(f.args)

		case compiler.OP_ARG_GET:
			n := int(compiler.ReadUint16(f.ins, f.ip+1))
			f.ip += 3
			elems := vm.mem.ListCellAt(f.args.Ptr).Elements
			if n >= 0 && n < len(elems) {
				vm.push(elems[n])
			} else {
				vm.push(value.Null{})
			}

		case compiler.OP_ADD:
			f.ip++
			b, a := vm.pop(), vm.pop()
			r, err := value.Add(vm.mem, a, b)
			if err != nil {
				return value.Null{}, vm.errf(f, err.Error())
			}
			vm.push(r)

		case compiler.OP_SUB:
			f.ip++
			b, a := vm.pop(), vm.pop()
			r, err := value.Sub(a, b)
			if err != nil {
				return value.Null{}, vm.errf(f, err.Error())
			}
			vm.push(r)

		case compiler.OP_MUL:
			f.ip++
			b, a := vm.pop(), vm.pop()
			r, err := value.Mult(vm.mem, a, b)
			if err != nil {
				return value.Null{}, vm.errf(f, err.Error())
			}
			vm.push(r)

		case compiler.OP_DIV:
			f.ip++
			b, a := vm.pop(), vm.pop()
			r, err := value.Div(a, b)
			if err != nil {
				return value.Null{}, vm.errf(f, err.Error())
			}
			vm.push(r)

		case compiler.OP_MOD:
			f.ip++
			b, a := vm.pop(), vm.pop()
			r, err := value.Mod(a, b)
			if err != nil {
				return value.Null{}, vm.errf(f, err.Error())
			}
			vm.push(r)

		case compiler.OP_NEG:
			f.ip++
			r, err := value.Negate(vm.pop())
			if err != nil {
				return value.Null{}, vm.errf(f, err.Error())
			}
			vm.push(r)

		case compiler.OP_NOT:
			f.ip++
			vm.push(value.Boolean(!vm.mem.Truthy(vm.pop())))

		case compiler.OP_EQUAL:
			f.ip++
			b, a := vm.pop(), vm.pop()
			vm.push(value.Boolean(value.Equals(vm.mem, a, b)))

		case compiler.OP_NOT_EQUAL:
			f.ip++
			b, a := vm.pop(), vm.pop()
			vm.push(value.Boolean(!value.Equals(vm.mem, a, b)))

		case compiler.OP_LESS, compiler.OP_LESS_EQUAL, compiler.OP_GREATER, compiler.OP_GREATER_EQUAL:
			f.ip++
			b, a := vm.pop(), vm.pop()
			cmp, err := value.Compare(vm.mem, a, b)
			if err != nil {
				return value.Null{}, vm.errf(f, err.Error())
			}
			vm.push(value.Boolean(compareHolds(op, cmp)))

		case compiler.OP_IN:
			f.ip++
			b, a := vm.pop(), vm.pop()
			r, err := vm.inOp(a, b)
			if err != nil {
				return value.Null{}, vm.errf(f, err.Error())
			}
			vm.push(r)

		case compiler.OP_JUMP:
			target := int(compiler.ReadUint16(f.ins, f.ip+1))
			f.ip = target

		case compiler.OP_JUMP_IF_FALSE_POP:
			target := int(compiler.ReadUint16(f.ins, f.ip+1))
			v := vm.pop()
			if !vm.mem.Truthy(v) {
				f.ip = target
			} else {
				f.ip += 3
			}

		case compiler.OP_JUMP_IF_FALSE_NOPOP:
			target := int(compiler.ReadUint16(f.ins, f.ip+1))
			v, _ := vm.stack.Peek()
			if !vm.mem.Truthy(v) {
				f.ip = target
			} else {
				vm.pop()
				f.ip += 3
			}

		case compiler.OP_JUMP_IF_TRUE_NOPOP:
			target := int(compiler.ReadUint16(f.ins, f.ip+1))
			v, _ := vm.stack.Peek()
			if vm.mem.Truthy(v) {
				f.ip = target
			} else {
				vm.pop()
				f.ip += 3
			}

		case compiler.OP_JUMP_IF_NOT_FIRST_RUN:
			target := int(compiler.ReadUint16(f.ins, f.ip+1))
			if !vm.firstRun {
				f.ip = target
			} else {
				f.ip += 3
			}

		case compiler.OP_MAKE_LIST:
			n := int(compiler.ReadUint16(f.ins, f.ip+1))
			f.ip += 3
			vm.push(vm.mem.NewList(vm.stack.PopN(n)))

		case compiler.OP_MAKE_OBJECT:
			n := int(compiler.ReadUint16(f.ins, f.ip+1))
			f.ip += 3
			pairs := vm.stack.PopN(2 * n)
			obj := vm.mem.NewObject()
			cell := vm.mem.ObjectCellAt(obj.Ptr)
			for i := 0; i < n; i++ {
				key := pairs[2*i].(value.Str)
				cell.Set(string(vm.mem.StringCellAt(key.Ptr).Runes), pairs[2*i+1])
			}
			vm.push(obj)

		case compiler.OP_MAKE_CLOSURE:
			entry := int(compiler.ReadUint16(f.ins, f.ip+1))
			arity := int(compiler.ReadUint16(f.ins, f.ip+3))
			capCount := int(compiler.ReadUint16(f.ins, f.ip+5))
			f.ip += 7
			boxes := vm.stack.PopN(capCount)
			captures := make([]value.Pointer, capCount)
			for i, b := range boxes {
				captures[i] = b.(value.List).Ptr
			}
			vm.push(value.Closure{Entry: entry, Captures: captures, Arity: arity})

		case compiler.OP_GET_ATTR:
			idx := int(compiler.ReadUint16(f.ins, f.ip+1))
			f.ip += 3
			target := vm.pop()
			v, err := access.Get(vm.mem, target, []access.Step{access.AttrStep(vm.constName(idx))}, false)
			if err != nil {
				return value.Null{}, vm.errf(f, err.Error())
			}
			vm.push(v)

		case compiler.OP_GET_ATTR_CALLABLE:
			idx := int(compiler.ReadUint16(f.ins, f.ip+1))
			f.ip += 3
			target := vm.pop()
			v, err := access.Get(vm.mem, target, []access.Step{access.AttrStep(vm.constName(idx))}, true)
			if err != nil {
				return value.Null{}, vm.errf(f, err.Error())
			}
			vm.push(v)

		case compiler.OP_GET_INDEX:
			f.ip++
			idxv := vm.pop()
			target := vm.pop()
			i, err := asIndex(idxv)
			if err != nil {
				return value.Null{}, vm.errf(f, err.Error())
			}
			v, err := access.Get(vm.mem, target, []access.Step{access.IndexStep(i)}, false)
			if err != nil {
				return value.Null{}, vm.errf(f, err.Error())
			}
			vm.push(v)

		case compiler.OP_GET_SLICE_OPEN:
			f.ip++
			beginv := vm.pop()
			target := vm.pop()
			b, err := asIndex(beginv)
			if err != nil {
				return value.Null{}, vm.errf(f, err.Error())
			}
			v, err := access.Get(vm.mem, target, []access.Step{access.SliceStep(b, 0, false)}, false)
			if err != nil {
				return value.Null{}, vm.errf(f, err.Error())
			}
			vm.push(v)

		case compiler.OP_GET_SLICE_CLOSED:
			f.ip++
			endv := vm.pop()
			beginv := vm.pop()
			target := vm.pop()
			e, err := asIndex(endv)
			if err != nil {
				return value.Null{}, vm.errf(f, err.Error())
			}
			b, err := asIndex(beginv)
			if err != nil {
				return value.Null{}, vm.errf(f, err.Error())
			}
			v, err := access.Get(vm.mem, target, []access.Step{access.SliceStep(b, e, true)}, false)
			if err != nil {
				return value.Null{}, vm.errf(f, err.Error())
			}
			vm.push(v)

		case compiler.OP_SET_ATTR:
			idx := int(compiler.ReadUint16(f.ins, f.ip+1))
			f.ip += 3
			target := vm.pop()
			newv := vm.pop()
			if err := access.Set(vm.mem, target, []access.Step{access.AttrStep(vm.constName(idx))}, newv); err != nil {
				return value.Null{}, vm.errf(f, err.Error())
			}

		case compiler.OP_SET_INDEX:
			f.ip++
			idxv := vm.pop()
			target := vm.pop()
			newv := vm.pop()
			i, err := asIndex(idxv)
			if err != nil {
				return value.Null{}, vm.errf(f, err.Error())
			}
			if err := access.Set(vm.mem, target, []access.Step{access.IndexStep(i)}, newv); err != nil {
				return value.Null{}, vm.errf(f, err.Error())
			}

		case compiler.OP_SET_SLICE_OPEN:
			f.ip++
			beginv := vm.pop()
			target := vm.pop()
			newv := vm.pop()
			b, err := asIndex(beginv)
			if err != nil {
				return value.Null{}, vm.errf(f, err.Error())
			}
			if err := access.Set(vm.mem, target, []access.Step{access.SliceStep(b, 0, false)}, newv); err != nil {
				return value.Null{}, vm.errf(f, err.Error())
			}

		case compiler.OP_SET_SLICE_CLOSED:
			f.ip++
			endv := vm.pop()
			beginv := vm.pop()
			target := vm.pop()
			newv := vm.pop()
			e, err := asIndex(endv)
			if err != nil {
				return value.Null{}, vm.errf(f, err.Error())
			}
			b, err := asIndex(beginv)
			if err != nil {
				return value.Null{}, vm.errf(f, err.Error())
			}
			if err := access.Set(vm.mem, target, []access.Step{access.SliceStep(b, e, true)}, newv); err != nil {
				return value.Null{}, vm.errf(f, err.Error())
			}

		case compiler.OP_PATTERN_INDEX:
			f.ip++
			idxv := vm.pop()
			target := vm.pop()
			i, err := asIndex(idxv)
			if err != nil {
				return value.Null{}, vm.errf(f, err.Error())
			}
			v, err := access.Get(vm.mem, target, []access.Step{access.IndexStep(i)}, false)
			if err == access.ErrIndexOutOfRange {
				vm.push(value.Null{})
			} else if err != nil {
				return value.Null{}, vm.errf(f, err.Error())
			} else {
				vm.push(v)
			}

		case compiler.OP_CALL:
			argCount := int(compiler.ReadUint16(f.ins, f.ip+1))
			f.ip += 3
			if err := vm.call(f, argCount); err != nil {
				return value.Null{}, err
			}

		case compiler.OP_RETURN:
			result := vm.pop()
			vm.frames = vm.frames[:len(vm.frames)-1]
			if len(vm.frames) == targetDepth {
				return result, nil
			}
			vm.push(result)

		case compiler.OP_RETURN_REG:
			result := f.lastReg
			vm.frames = vm.frames[:len(vm.frames)-1]
			if len(vm.frames) == targetDepth {
				return result, nil
			}
			vm.push(result)

		case compiler.OP_ITER_PUSH:
			f.ip++
			v := vm.pop()
			it, err := newIterFrame(vm.mem, v)
			if err != nil {
				return value.Null{}, vm.errf(f, err.Error())
			}
			vm.iters = append(vm.iters, it)

		case compiler.OP_ITER_NEXT_OR_JUMP:
			target := int(compiler.ReadUint16(f.ins, f.ip+1))
			it := vm.iters[len(vm.iters)-1]
			v, ok := it.next(vm.mem)
			if !ok {
				vm.iters = vm.iters[:len(vm.iters)-1]
				f.ip = target
			} else {
				vm.push(v)
				f.ip += 3
			}

		case compiler.OP_ITER_POP:
			f.ip++
			vm.iters = vm.iters[:len(vm.iters)-1]

		case compiler.OP_ACTION:
			kind := int(compiler.ReadUint16(f.ins, f.ip+1))
			f.ip += 3
			v := vm.pop()
			if vm.host != nil {
				if err := vm.host.Action(kind, vm.mem, v); err != nil {
					return value.Null{}, vm.errf(f, err.Error())
				}
			}

		default:
			return value.Null{}, vm.errf(f, fmt.Sprintf("unknown opcode %d", op))
		}
	}
}

func (vm *VM) push(v value.Value)        { vm.stack.Push(v) }
func (vm *VM) pop() value.Value          { v, _ := vm.stack.Pop(); return v }

func (vm *VM) errf(f *frame, msg string) error {
	return RuntimeError{Message: msg, InstructionIndex: f.ip}
}

// loadConstant loads ConstPool[idx], cloning a Str's backing cell so two
// evaluations of the same string literal never alias.
func (vm *VM) loadConstant(idx int) value.Value {
	v := vm.mem.ConstPool[idx]
	if s, ok := v.(value.Str); ok {
		return value.Str{Ptr: vm.mem.Copy(s.Ptr)}
	}
	return v
}

func (vm *VM) constName(idx int) string {
	s := vm.mem.ConstPool[idx].(value.Str)
	return string(vm.mem.StringCellAt(s.Ptr).Runes)
}

func compareHolds(op compiler.Opcode, cmp int) bool {
	switch op {
	case compiler.OP_LESS:
		return cmp < 0
	case compiler.OP_LESS_EQUAL:
		return cmp <= 0
	case compiler.OP_GREATER:
		return cmp > 0
	case compiler.OP_GREATER_EQUAL:
		return cmp >= 0
	default:
		return false
	}
}

func asIndex(v value.Value) (int64, error) {
	i, ok := v.(value.Integer)
	if !ok {
		return 0, access.ErrTypeMismatch
	}
	return int64(i), nil
}

func (vm *VM) inOp(needle, container value.Value) (value.Value, error) {
	switch t := container.(type) {
	case value.List:
		for _, e := range vm.mem.ListCellAt(t.Ptr).Elements {
			if value.Equals(vm.mem, needle, e) {
				return value.Boolean(true), nil
			}
		}
		return value.Boolean(false), nil
	case value.Str:
		n, ok := needle.(value.Str)
		if !ok {
			return nil, access.ErrTypeMismatch
		}
		hay := string(vm.mem.StringCellAt(t.Ptr).Runes)
		sub := string(vm.mem.StringCellAt(n.Ptr).Runes)
		return value.Boolean(strings.Contains(hay, sub)), nil
	case value.Range:
		var i int64
		switch n := needle.(type) {
		case value.Integer:
			i = int64(n)
		case value.Str:
			runes := vm.mem.StringCellAt(n.Ptr).Runes
			if !t.Char || len(runes) != 1 {
				return value.Boolean(false), nil
			}
			i = int64(runes[0])
		default:
			return value.Boolean(false), nil
		}
		if t.Inclusive {
			return value.Boolean(i >= t.Begin && i <= t.End), nil
		}
		return value.Boolean(i >= t.Begin && i < t.End), nil
	case value.Obj:
		key, ok := needle.(value.Str)
		if !ok {
			return value.Boolean(false), nil
		}
		_, found := vm.mem.ObjectCellAt(t.Ptr).Get(string(vm.mem.StringCellAt(key.Ptr).Runes))
		return value.Boolean(found), nil
	default:
		return nil, access.ErrTypeMismatch
	}
}

// call dispatches OP_CALL: resolves a BoundProcedure's receiver, inherits
// the caller's `this` for a free (unbound) call, and either pushes a new
// frame (Closure) or invokes the builtin table directly (Builtin) without
// growing the call stack.
func (vm *VM) call(caller *frame, argCount int) error {
	args := vm.stack.PopN(argCount)
	calleeVal := vm.pop()

	bound := false
	var receiver value.Value
	actual := calleeVal
	if bp, ok := calleeVal.(value.BoundProcedure); ok {
		actual = bp.Callee
		receiver = bp.Receiver
		bound = true
	}

	switch callee := actual.(type) {
	case value.Closure:
		thisVal := caller.this
		if bound {
			thisVal = receiver
		}
		if len(vm.frames) >= vm.maxDepth {
			return vm.errf(caller, "maximum recursion depth exceeded")
		}
		vm.frames = append(vm.frames, vm.buildFrame(callee, thisVal, args))
		return nil

	case value.Builtin:
		if vm.builtins == nil {
			return vm.errf(caller, fmt.Sprintf("no such method %q", callee.Name))
		}
		rv := receiver
		if rv == nil {
			rv = value.Null{}
		}
		result, err := vm.builtins.Call(vm.mem, callee.Name, rv, bound, args)
		if err != nil {
			return vm.errf(caller, err.Error())
		}
		vm.push(result)
		return nil

	default:
		return vm.errf(caller, fmt.Sprintf("value of kind %s is not callable", actual.Kind()))
	}
}

func (vm *VM) buildFrame(closure value.Closure, this value.Value, args []value.Value) *frame {
	info := vm.bc.FrameInfos[closure.Entry]

	locals := make([]value.Value, info.NumLocals)
	for i := range locals {
		locals[i] = value.Null{}
	}
	for _, idx := range info.CellLocals {
		locals[idx] = vm.mem.NewList([]value.Value{value.Null{}})
	}
	for i := 0; i < info.ParamCount; i++ {
		var av value.Value = value.Null{}
		if i < len(args) {
			av = args[i]
		}
		if isCellLocal(info, i) {
			box := locals[i].(value.List)
			vm.mem.ListCellAt(box.Ptr).Elements[0] = av
		} else {
			locals[i] = av
		}
	}

	captures := make([]value.Pointer, len(closure.Captures))
	copy(captures, closure.Captures)

	argsCopy := make([]value.Value, len(args))
	copy(argsCopy, args)

	return &frame{
		ins:      vm.bc.Functions[closure.Entry],
		this:     this,
		args:     vm.mem.NewList(argsCopy),
		captures: captures,
		locals:   locals,
		lastReg:  value.Null{},
	}
}

func isCellLocal(info *resolver.FrameInfo, index int) bool {
	for _, i := range info.CellLocals {
		if i == index {
			return true
		}
	}
	return false
}

