package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"yqlang/ast"
	"yqlang/resolver"
	"yqlang/token"
	"yqlang/value"
)

// chunk is one instruction buffer under construction: either the top-level
// program or a single function/lambda body. Jump operands patched via here/
// patch are always relative to this chunk's own start.
type chunk struct {
	ins Instructions
}

func (c *chunk) emit(op Opcode, operands ...int) int {
	pos := len(c.ins)
	c.ins = append(c.ins, MakeInstruction(op, operands...)...)
	return pos
}

func (c *chunk) here() int { return len(c.ins) }

// patch overwrites a previously emitted jump's 2-byte operand with target.
func (c *chunk) patch(pos int, target int) {
	c.ins[pos+1] = byte(target >> 8)
	c.ins[pos+2] = byte(target)
}

// loopCtx tracks the innermost enclosing loop's continue target and the
// break jumps still waiting to be patched to the loop's exit. isForLoop
// marks whether `break` must pop an iterator frame before jumping out.
type loopCtx struct {
	continueTarget int
	breakPatches   []int
	isForLoop      bool
}

// Compiler walks a resolved program and emits Bytecode. It implements
// ast.ExpressionVisitor and ast.StmtVisitor the same way the teacher's
// ASTCompiler did, recovering panic'd SemanticError/DeveloperError values at
// the top-level Compile entry point instead of threading error returns
// through every Visit method.
type Compiler struct {
	mem   *value.Memory
	res   *resolver.Result
	names map[string]int // attribute/key name -> ConstPool index, deduplicated

	chunks     []*chunk
	frames     []*resolver.FrameInfo
	functions  []Instructions
	frameInfos []*resolver.FrameInfo
	loops      []*loopCtx
}

// Compile compiles program into Bytecode against res (the program's resolved
// bindings) and mem (whose ConstPool/Globals the emitted code addresses).
func Compile(program []ast.Stmt, res *resolver.Result, mem *value.Memory) (bc *Bytecode, err error) {
	defer func() {
		if r := recover(); r != nil {
			switch v := r.(type) {
			case SemanticError:
				err = v
			case DeveloperError:
				err = v
			default:
				panic(r)
			}
		}
	}()

	c := &Compiler{
		mem:   mem,
		res:   res,
		names: make(map[string]int),
	}
	top := &chunk{}
	c.chunks = []*chunk{top}
	c.frames = []*resolver.FrameInfo{res.Top}

	c.compileSequence(program)
	top.emit(OP_EXIT)

	return &Bytecode{Instructions: top.ins, Functions: c.functions, FrameInfos: c.frameInfos}, nil
}

func (c *Compiler) cur() *chunk                   { return c.chunks[len(c.chunks)-1] }
func (c *Compiler) curFrame() *resolver.FrameInfo { return c.frames[len(c.frames)-1] }

func isCellLocal(f *resolver.FrameInfo, index int) bool {
	for _, i := range f.CellLocals {
		if i == index {
			return true
		}
	}
	return false
}

func isReservedName(name string) bool {
	return name == "this" || strings.HasPrefix(name, "$")
}

// compileSequence compiles a run of statements, clearing the last-expression
// register ahead of each one so OP_RETURN_REG (falling off the end of a
// body, or a bare `return;`) reports Null unless the most recently executed
// construct was itself an expression statement.
func (c *Compiler) compileSequence(stmts []ast.Stmt) {
	for _, s := range stmts {
		c.cur().emit(OP_CLEAR_REG)
		c.compileStmt(s)
	}
}

func (c *Compiler) compileStmt(s ast.Stmt)        { s.Accept(c) }
func (c *Compiler) compileExpr(e ast.Expression)  { e.Accept(c) }

// emitConst appends v to the constant pool and emits OP_CONSTANT loading it.
// Str constants are loaded by the VM via a fresh clone of their backing
// StringCell on every OP_CONSTANT, since yqlang strings are mutable in place
// and two evaluations of one literal must not alias; every other kind is
// safe to share directly.
func (c *Compiler) emitConst(v value.Value) int {
	idx := len(c.mem.ConstPool)
	c.mem.ConstPool = append(c.mem.ConstPool, v)
	c.cur().emit(OP_CONSTANT, idx)
	return idx
}

// addNameConst interns name as a Str constant (for the access-view opcodes,
// whose operand is a ConstPool index the VM reads the name out of directly
// rather than pushing onto the stack).
func (c *Compiler) addNameConst(name string) int {
	if idx, ok := c.names[name]; ok {
		return idx
	}
	idx := len(c.mem.ConstPool)
	c.mem.ConstPool = append(c.mem.ConstPool, c.mem.NewString(name))
	c.names[name] = idx
	return idx
}

func (c *Compiler) emitBindingGet(b resolver.Binding) {
	switch b.Type {
	case resolver.GLOBAL:
		c.cur().emit(OP_GLOBAL_GET, b.Index)
	case resolver.LOCAL:
		if isCellLocal(c.curFrame(), b.Index) {
			c.cur().emit(OP_CELL_GET, b.Index)
		} else {
			c.cur().emit(OP_LOCAL_GET, b.Index)
		}
	case resolver.CAPTURE:
		c.cur().emit(OP_CAPTURE_GET, b.Index)
	}
}

func (c *Compiler) emitBindingSet(b resolver.Binding) {
	switch b.Type {
	case resolver.GLOBAL:
		c.cur().emit(OP_GLOBAL_SET, b.Index)
	case resolver.LOCAL:
		if isCellLocal(c.curFrame(), b.Index) {
			c.cur().emit(OP_CELL_SET, b.Index)
		} else {
			c.cur().emit(OP_LOCAL_SET, b.Index)
		}
	case resolver.CAPTURE:
		c.cur().emit(OP_CAPTURE_SET, b.Index)
	}
}

func binaryOp(tt token.TokenType) Opcode {
	switch tt {
	case token.ADD:
		return OP_ADD
	case token.SUB:
		return OP_SUB
	case token.MULT:
		return OP_MUL
	case token.DIV:
		return OP_DIV
	case token.MOD:
		return OP_MOD
	case token.EQUAL_EQUAL:
		return OP_EQUAL
	case token.NOT_EQUAL:
		return OP_NOT_EQUAL
	case token.LESS:
		return OP_LESS
	case token.LESS_EQUAL:
		return OP_LESS_EQUAL
	case token.LARGER:
		return OP_GREATER
	case token.LARGER_EQUAL:
		return OP_GREATER_EQUAL
	case token.IN:
		return OP_IN
	default:
		panic(DeveloperError{fmt.Sprintf("unknown binary operator %s", tt)})
	}
}

func compoundOp(tt token.TokenType) Opcode {
	switch tt {
	case token.PLUS_ASSIGN:
		return OP_ADD
	case token.MINUS_ASSIGN:
		return OP_SUB
	case token.MULT_ASSIGN:
		return OP_MUL
	case token.DIV_ASSIGN:
		return OP_DIV
	case token.MOD_ASSIGN:
		return OP_MOD
	default:
		panic(DeveloperError{fmt.Sprintf("unknown compound assignment operator %s", tt)})
	}
}

func actionKind(tt token.TokenType) int {
	switch tt {
	case token.SAY:
		return ActionSay
	case token.NUDGE:
		return ActionNudge
	case token.PICSAVE:
		return ActionPicSave
	case token.PICSEND:
		return ActionPicSend
	default:
		panic(DeveloperError{fmt.Sprintf("unknown action keyword %s", tt)})
	}
}

// --- ast.ExpressionVisitor ---

func (c *Compiler) VisitBinary(e *ast.Binary) any {
	c.compileExpr(e.Left)
	c.compileExpr(e.Right)
	c.cur().emit(binaryOp(e.Operator.TokenType))
	return nil
}

func (c *Compiler) VisitLogical(e *ast.Logical) any {
	c.compileExpr(e.Left)
	switch e.Operator.TokenType {
	case token.AND:
		jpos := c.cur().emit(OP_JUMP_IF_FALSE_NOPOP, 0)
		c.cur().emit(OP_POP)
		c.compileExpr(e.Right)
		c.cur().patch(jpos, c.cur().here())
	case token.OR:
		jpos := c.cur().emit(OP_JUMP_IF_TRUE_NOPOP, 0)
		c.cur().emit(OP_POP)
		c.compileExpr(e.Right)
		c.cur().patch(jpos, c.cur().here())
	default:
		panic(DeveloperError{fmt.Sprintf("unknown logical operator %s", e.Operator.TokenType)})
	}
	return nil
}

func (c *Compiler) VisitUnary(e *ast.Unary) any {
	c.compileExpr(e.Right)
	switch e.Operator.TokenType {
	case token.BANG:
		c.cur().emit(OP_NOT)
	case token.SUB:
		c.cur().emit(OP_NEG)
	default:
		panic(DeveloperError{fmt.Sprintf("unknown unary operator %s", e.Operator.TokenType)})
	}
	return nil
}

func (c *Compiler) VisitLiteral(e *ast.Literal) any {
	switch v := e.Value.(type) {
	case nil:
		c.emitConst(value.Null{})
	case bool:
		c.emitConst(value.Boolean(v))
	case int64:
		c.emitConst(value.Integer(v))
	case float64:
		c.emitConst(value.Float(v))
	case string:
		c.emitConst(c.mem.NewString(v))
	default:
		panic(DeveloperError{fmt.Sprintf("unsupported literal type %T", e.Value)})
	}
	return nil
}

func (c *Compiler) VisitGrouping(e *ast.Grouping) any {
	c.compileExpr(e.Expression)
	return nil
}

func (c *Compiler) VisitVariable(e *ast.Variable) any {
	name := e.Name.Lexeme
	if e.Name.TokenType == token.THIS {
		c.cur().emit(OP_THIS_GET)
		return nil
	}
	if name == "$" {
		c.cur().emit(OP_ARGS_GET)
		return nil
	}
	if strings.HasPrefix(name, "$") {
		n, err := strconv.Atoi(name[1:])
		if err != nil {
			panic(DeveloperError{fmt.Sprintf("malformed argument reference %q", name)})
		}
		c.cur().emit(OP_ARG_GET, n)
		return nil
	}
	b, ok := c.res.Bindings[e]
	if !ok {
		panic(DeveloperError{fmt.Sprintf("unresolved variable %q", name)})
	}
	c.emitBindingGet(b)
	return nil
}

func (c *Compiler) VisitCall(e *ast.Call) any {
	if attr, ok := e.Callee.(*ast.Attribute); ok {
		c.compileExpr(attr.Target)
		idx := c.addNameConst(attr.Name.Lexeme)
		c.cur().emit(OP_GET_ATTR_CALLABLE, idx)
	} else {
		c.compileExpr(e.Callee)
	}
	for _, a := range e.Args {
		c.compileExpr(a)
	}
	c.cur().emit(OP_CALL, len(e.Args))
	return nil
}

func (c *Compiler) VisitIndex(e *ast.Index) any {
	c.compileExpr(e.Target)
	if e.IsSlice {
		if e.Begin != nil {
			c.compileExpr(e.Begin)
		} else {
			c.emitConst(value.Integer(0))
		}
		if e.End != nil {
			c.compileExpr(e.End)
			c.cur().emit(OP_GET_SLICE_CLOSED)
		} else {
			c.cur().emit(OP_GET_SLICE_OPEN)
		}
		return nil
	}
	c.compileExpr(e.Begin)
	c.cur().emit(OP_GET_INDEX)
	return nil
}

func (c *Compiler) VisitAttribute(e *ast.Attribute) any {
	c.compileExpr(e.Target)
	idx := c.addNameConst(e.Name.Lexeme)
	c.cur().emit(OP_GET_ATTR, idx)
	return nil
}

func (c *Compiler) VisitListLiteral(e *ast.ListLiteral) any {
	for _, el := range e.Elements {
		c.compileExpr(el)
	}
	c.cur().emit(OP_MAKE_LIST, len(e.Elements))
	return nil
}

// VisitObjectLiteral pushes each (key, value) pair in source order — key
// first, then value — before emitting OP_MAKE_OBJECT; the VM pops Values
// pairs off the top in reverse and reassembles them in original order so
// key insertion order (and therefore iteration order) matches the literal.
func (c *Compiler) VisitObjectLiteral(e *ast.ObjectLiteral) any {
	for i, v := range e.Values {
		c.emitConst(c.mem.NewString(e.Keys[i].Lexeme))
		c.compileExpr(v)
	}
	c.cur().emit(OP_MAKE_OBJECT, len(e.Values))
	return nil
}

func (c *Compiler) VisitLambda(e *ast.Lambda) any {
	info := c.res.LambdaFrames[e]
	c.compileClosureValue(info, e.Body, "")
	return nil
}

func (c *Compiler) VisitListPattern(e *ast.ListPattern) any {
	panic(DeveloperError{"list pattern used outside of an assignment/for-loop target"})
}

// --- ast.StmtVisitor ---

func (c *Compiler) VisitExpressionStmt(s *ast.ExpressionStmt) any {
	c.compileExpr(s.Expression)
	c.cur().emit(OP_SET_REG)
	c.cur().emit(OP_POP)
	return nil
}

func (c *Compiler) VisitActionStmt(s *ast.ActionStmt) any {
	if s.Value != nil {
		c.compileExpr(s.Value)
	} else {
		c.emitConst(value.Null{})
	}
	c.cur().emit(OP_ACTION, actionKind(s.Kind))
	return nil
}

func (c *Compiler) VisitBlockStmt(s *ast.BlockStmt) any {
	c.compileSequence(s.Statements)
	return nil
}

func (c *Compiler) VisitIfStmt(s *ast.IfStmt) any {
	c.compileExpr(s.Condition)
	jfPos := c.cur().emit(OP_JUMP_IF_FALSE_POP, 0)
	c.compileStmt(s.Then)
	if s.Else != nil {
		jEndPos := c.cur().emit(OP_JUMP, 0)
		c.cur().patch(jfPos, c.cur().here())
		c.compileStmt(s.Else)
		c.cur().patch(jEndPos, c.cur().here())
	} else {
		c.cur().patch(jfPos, c.cur().here())
	}
	return nil
}

func (c *Compiler) VisitWhileStmt(s *ast.WhileStmt) any {
	loopStart := c.cur().here()
	c.compileExpr(s.Condition)
	jfPos := c.cur().emit(OP_JUMP_IF_FALSE_POP, 0)
	c.pushLoop(loopStart, false)
	c.compileStmt(s.Body)
	c.cur().emit(OP_JUMP, loopStart)
	end := c.cur().here()
	c.cur().patch(jfPos, end)
	c.popLoop(end)
	return nil
}

func (c *Compiler) VisitForStmt(s *ast.ForStmt) any {
	c.compileExpr(s.Iterable)
	c.cur().emit(OP_ITER_PUSH)
	nextPos := c.cur().here()
	jdPos := c.cur().emit(OP_ITER_NEXT_OR_JUMP, 0)
	c.compileAssignTarget(s.Pattern)
	c.pushLoop(nextPos, true)
	c.compileStmt(s.Body)
	c.cur().emit(OP_JUMP, nextPos)
	end := c.cur().here()
	c.cur().patch(jdPos, end)
	c.popLoop(end)
	return nil
}

func (c *Compiler) pushLoop(continueTarget int, isForLoop bool) {
	c.loops = append(c.loops, &loopCtx{continueTarget: continueTarget, isForLoop: isForLoop})
}

func (c *Compiler) popLoop(breakTarget int) {
	l := c.loops[len(c.loops)-1]
	c.loops = c.loops[:len(c.loops)-1]
	for _, pos := range l.breakPatches {
		c.cur().patch(pos, breakTarget)
	}
}

func (c *Compiler) VisitFuncStmt(s *ast.FuncStmt) any {
	info := c.res.FuncFrames[s]
	c.compileClosureValue(info, s.Body, s.Name.Lexeme)
	b := c.res.FuncNames[s]
	c.emitBindingSet(b)
	return nil
}

// compileClosureValue emits the code that leaves a Closure value on the
// stack: a fully pre-built constant when the function/lambda captures
// nothing (always true for anything declared directly at the top level,
// since the resolver never threads a capture chain through frame 0), or a
// runtime OP_MAKE_CLOSURE sequence when it captures outer locals.
func (c *Compiler) compileClosureValue(info *resolver.FrameInfo, body ast.Stmt, name string) {
	for _, src := range info.Captures {
		switch src.FromType {
		case resolver.LOCAL:
			c.cur().emit(OP_CELL_BOX_GET, src.FromIndex)
		case resolver.CAPTURE:
			c.cur().emit(OP_CAPTURE_BOX_GET, src.FromIndex)
		}
	}

	entry := c.compileFunctionChunk(info, body)

	if len(info.Captures) == 0 {
		c.emitConst(value.Closure{Entry: entry, Captures: nil, Name: name, Arity: info.ParamCount})
		return
	}
	c.cur().emit(OP_MAKE_CLOSURE, entry, info.ParamCount, len(info.Captures))
}

func (c *Compiler) compileFunctionChunk(info *resolver.FrameInfo, body ast.Stmt) int {
	c.chunks = append(c.chunks, &chunk{})
	c.frames = append(c.frames, info)

	c.cur().emit(OP_CLEAR_REG)
	c.compileStmt(body)
	c.cur().emit(OP_RETURN_REG)

	fn := c.cur().ins
	c.chunks = c.chunks[:len(c.chunks)-1]
	c.frames = c.frames[:len(c.frames)-1]
	c.functions = append(c.functions, fn)
	c.frameInfos = append(c.frameInfos, info)
	return len(c.functions) - 1
}

func (c *Compiler) VisitReturnStmt(s *ast.ReturnStmt) any {
	if s.Value != nil {
		c.compileExpr(s.Value)
		c.cur().emit(OP_RETURN)
		return nil
	}
	c.cur().emit(OP_CLEAR_REG)
	c.cur().emit(OP_RETURN_REG)
	return nil
}

func (c *Compiler) VisitBreakStmt(s *ast.BreakStmt) any {
	if len(c.loops) == 0 {
		panic(SemanticError{"break used outside of a loop"})
	}
	l := c.loops[len(c.loops)-1]
	if l.isForLoop {
		c.cur().emit(OP_ITER_POP)
	}
	pos := c.cur().emit(OP_JUMP, 0)
	l.breakPatches = append(l.breakPatches, pos)
	return nil
}

func (c *Compiler) VisitContinueStmt(s *ast.ContinueStmt) any {
	if len(c.loops) == 0 {
		panic(SemanticError{"continue used outside of a loop"})
	}
	l := c.loops[len(c.loops)-1]
	c.cur().emit(OP_JUMP, l.continueTarget)
	return nil
}

func (c *Compiler) VisitAssignStmt(s *ast.AssignStmt) any {
	if s.Operator.TokenType == token.ASSIGN {
		c.compileExpr(s.Value)
		c.compileAssignTarget(s.Target)
		return nil
	}
	c.compileCompoundAssign(s)
	return nil
}

// compileAssignTarget consumes the value currently on top of the stack by
// storing it into target. For a Variable this is a single binding-set
// opcode; for an Index/Attribute the container/index sub-expressions are
// compiled *after* the value (per the access opcodes' deepest-pushed-first
// convention) so they end up on top, popped first, leaving the value popped
// last. A ListPattern destructures: the value is assumed to be a List, and
// each element is read out (leniently — a short list leaves the tail
// elements unbound, i.e. Null) via OP_DUP + OP_PATTERN_INDEX before
// recursing.
func (c *Compiler) compileAssignTarget(target ast.Expression) {
	switch t := target.(type) {
	case *ast.Variable:
		if t.Name.TokenType == token.THIS || isReservedName(t.Name.Lexeme) {
			panic(SemanticError{fmt.Sprintf("cannot assign to reserved name %q", t.Name.Lexeme)})
		}
		b, ok := c.res.Bindings[t]
		if !ok {
			panic(DeveloperError{fmt.Sprintf("unresolved assignment target %q", t.Name.Lexeme)})
		}
		c.emitBindingSet(b)

	case *ast.Index:
		c.compileExpr(t.Target)
		if t.IsSlice {
			if t.Begin != nil {
				c.compileExpr(t.Begin)
			} else {
				c.emitConst(value.Integer(0))
			}
			if t.End != nil {
				c.compileExpr(t.End)
				c.cur().emit(OP_SET_SLICE_CLOSED)
			} else {
				c.cur().emit(OP_SET_SLICE_OPEN)
			}
			return
		}
		c.compileExpr(t.Begin)
		c.cur().emit(OP_SET_INDEX)

	case *ast.Attribute:
		c.compileExpr(t.Target)
		idx := c.addNameConst(t.Name.Lexeme)
		c.cur().emit(OP_SET_ATTR, idx)

	case *ast.ListPattern:
		for i, el := range t.Elements {
			c.cur().emit(OP_DUP)
			c.emitConst(value.Integer(int64(i)))
			c.cur().emit(OP_PATTERN_INDEX)
			c.compileAssignTarget(el)
		}
		c.cur().emit(OP_POP)

	default:
		panic(DeveloperError{fmt.Sprintf("unsupported assignment target %T", target)})
	}
}

// compileCompoundAssign implements `+=`/`-=`/`*=`/`/=`/`%=`: the target's
// current value is read, combined with the RHS, and written back. For an
// Index/Attribute target this means the addressing sub-expressions
// (container, and any index/begin/end) are compiled twice — once by the
// ordinary GET path to read the current value, once more by
// compileAssignTarget to write the combined result — rather than building a
// stack-rotation scheme to share one evaluation. Unobservable unless the
// index expression itself has side effects, which nothing in the grammar
// encourages.
func (c *Compiler) compileCompoundAssign(s *ast.AssignStmt) {
	op := compoundOp(s.Operator.TokenType)
	switch t := s.Target.(type) {
	case *ast.Variable:
		if t.Name.TokenType == token.THIS || isReservedName(t.Name.Lexeme) {
			panic(SemanticError{fmt.Sprintf("cannot assign to reserved name %q", t.Name.Lexeme)})
		}
		b, ok := c.res.Bindings[t]
		if !ok {
			panic(DeveloperError{fmt.Sprintf("unresolved assignment target %q", t.Name.Lexeme)})
		}
		c.emitBindingGet(b)
		c.compileExpr(s.Value)
		c.cur().emit(op)
		c.emitBindingSet(b)

	case *ast.Index:
		c.compileExpr(t)
		c.compileExpr(s.Value)
		c.cur().emit(op)
		c.compileAssignTarget(t)

	case *ast.Attribute:
		c.compileExpr(t)
		c.compileExpr(s.Value)
		c.cur().emit(op)
		c.compileAssignTarget(t)

	default:
		panic(SemanticError{"compound assignment requires a variable, index, or attribute target"})
	}
}

func (c *Compiler) VisitInitStmt(s *ast.InitStmt) any {
	jpos := c.cur().emit(OP_JUMP_IF_NOT_FIRST_RUN, 0)
	c.compileStmt(s.Body)
	c.cur().patch(jpos, c.cur().here())
	return nil
}
