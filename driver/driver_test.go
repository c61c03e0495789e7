package driver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yqlang/compiler"
	"yqlang/parser"
	"yqlang/value"
)

func mkInstr(ops ...[]byte) compiler.Instructions {
	var out compiler.Instructions
	for _, op := range ops {
		out = append(out, op...)
	}
	return out
}

// fakeHost records every action it's asked to perform and answers a fixed
// nickname for every id.
type fakeHost struct {
	said     []string
	nudged   []int64
	saved    []string
	sent     []string
	nickname string
}

func (f *fakeHost) Say(text string) error    { f.said = append(f.said, text); return nil }
func (f *fakeHost) Nudge(target int64) error { f.nudged = append(f.nudged, target); return nil }
func (f *fakeHost) PicSave(id string) error  { f.saved = append(f.saved, id); return nil }
func (f *fakeHost) PicSend(id string) error  { f.sent = append(f.sent, id); return nil }
func (f *fakeHost) Nickname(id int64) (string, error) {
	return f.nickname, nil
}

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	mem := value.NewMemory()
	mem.DefineGlobal("counter")
	mem.DefineGlobal("name")
	mem.DefineGlobal("items")
	mem.DefineGlobal("closureVal")

	mem.Globals[mem.GlobalIndex["counter"]] = value.Integer(42)
	mem.Globals[mem.GlobalIndex["name"]] = mem.NewString("ivy")
	mem.Globals[mem.GlobalIndex["items"]] = mem.NewList([]value.Value{value.Integer(1), value.Integer(2)})
	mem.Globals[mem.GlobalIndex["closureVal"]] = value.Closure{Entry: 0, Arity: 0}

	data, serErr := Serialize(mem)
	require.NotNil(t, serErr, "closures should be reported as dropped")
	assert.Contains(t, serErr.Dropped, "closureVal")

	fresh := value.NewMemory()
	fresh.DefineGlobal("counter")
	fresh.DefineGlobal("name")
	fresh.DefineGlobal("items")
	fresh.DefineGlobal("closureVal")

	require.NoError(t, Deserialize(data, fresh))

	assert.Equal(t, value.Integer(42), fresh.Globals[fresh.GlobalIndex["counter"]])

	nameVal := fresh.Globals[fresh.GlobalIndex["name"]].(value.Str)
	assert.Equal(t, "ivy", string(fresh.StringCellAt(nameVal.Ptr).Runes))

	itemsVal := fresh.Globals[fresh.GlobalIndex["items"]].(value.List)
	elems := fresh.ListCellAt(itemsVal.Ptr).Elements
	assert.Equal(t, []value.Value{value.Integer(1), value.Integer(2)}, elems)

	// closureVal was dropped at serialize time, so it stays at its Null default.
	assert.Equal(t, value.Null{}, fresh.Globals[fresh.GlobalIndex["closureVal"]])
}

func TestSerializeRangeRoundTrip(t *testing.T) {
	mem := value.NewMemory()
	mem.DefineGlobal("r")
	mem.Globals[mem.GlobalIndex["r"]] = value.Range{Begin: 1, End: 10, Inclusive: true}

	data, serErr := Serialize(mem)
	require.Nil(t, serErr)

	fresh := value.NewMemory()
	fresh.DefineGlobal("r")
	require.NoError(t, Deserialize(data, fresh))

	got := fresh.Globals[fresh.GlobalIndex["r"]].(value.Range)
	assert.Equal(t, value.Range{Begin: 1, End: 10, Inclusive: true}, got)
}

func TestDeserializeEmptyStateIsNoop(t *testing.T) {
	mem := value.NewMemory()
	mem.DefineGlobal("x")
	require.NoError(t, Deserialize(nil, mem))
	require.NoError(t, Deserialize([]byte{}, mem))
	assert.Equal(t, value.Null{}, mem.Globals[mem.GlobalIndex["x"]])
}

func TestTemplateNewMemoryClonesHeapIndependently(t *testing.T) {
	buildMem := value.NewMemory()
	s := buildMem.NewString("constant")
	buildMem.ConstPool = []value.Value{s}
	buildMem.DefineGlobal("greeting")

	tmpl := NewTemplate(&compiler.Bytecode{}, buildMem)

	memA := tmpl.newMemory()
	memB := tmpl.newMemory()

	constA := memA.ConstPool[0].(value.Str)
	cellA := memA.StringCellAt(constA.Ptr)
	cellA.Runes[0] = 'C'

	constB := memB.ConstPool[0].(value.Str)
	cellB := memB.StringCellAt(constB.Ptr)
	assert.Equal(t, "constant", string(cellB.Runes), "mutating one run's heap must not affect another's")
	assert.Equal(t, "Constant", string(cellA.Runes))
}

func TestPoolRunSayActionsDeliveredInOrder(t *testing.T) {
	mem := value.NewMemory()
	mem.ConstPool = []value.Value{mem.NewString("hello"), mem.NewString("world")}

	bc := &compiler.Bytecode{
		Instructions: mkInstr(
			compiler.MakeInstruction(compiler.OP_CONSTANT, 0),
			compiler.MakeInstruction(compiler.OP_ACTION, compiler.ActionSay),
			compiler.MakeInstruction(compiler.OP_CONSTANT, 1),
			compiler.MakeInstruction(compiler.OP_ACTION, compiler.ActionSay),
			compiler.MakeInstruction(compiler.OP_EXIT),
		),
	}

	tmpl := NewTemplate(bc, mem)
	host := &fakeHost{}
	pool := NewPool(tmpl, host, NewOptions())

	res := pool.Run(context.Background(), nil, nil)
	require.NoError(t, res.Err)
	require.Len(t, res.Output, 2)
	assert.Equal(t, []string{"hello", "world"}, host.said)
}

func TestPoolRunCancelsRunawayLoop(t *testing.T) {
	mem := value.NewMemory()
	bc := &compiler.Bytecode{
		Instructions: mkInstr(
			compiler.MakeInstruction(compiler.OP_JUMP, 0),
		),
	}

	tmpl := NewTemplate(bc, mem)
	opts := NewOptions(WithAllowance(20), WithQuantum(5))
	pool := NewPool(tmpl, &fakeHost{}, opts)

	start := time.Now()
	res := pool.Run(context.Background(), nil, nil)
	elapsed := time.Since(start)

	require.Error(t, res.Err)
	_, isBudget := res.Err.(*BudgetError)
	assert.True(t, isBudget, "expected a *BudgetError, got %T: %v", res.Err, res.Err)
	assert.Less(t, elapsed, 2*time.Second, "cancellation should happen promptly")
}

func TestPoolRunRejectsOverCapacity(t *testing.T) {
	mem := value.NewMemory()
	bc := &compiler.Bytecode{
		Instructions: mkInstr(
			compiler.MakeInstruction(compiler.OP_JUMP, 0),
		),
	}
	tmpl := NewTemplate(bc, mem)
	opts := NewOptions(WithMaxInstances(1), WithAllowance(5000), WithQuantum(5))
	pool := NewPool(tmpl, &fakeHost{}, opts)

	done := make(chan struct{})
	go func() {
		pool.Run(context.Background(), nil, nil)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond) // let the first run acquire the slot

	res := pool.Run(context.Background(), nil, nil)
	require.Error(t, res.Err)
	_, isTooMany := res.Err.(*TooManyInstances)
	assert.True(t, isTooMany, "expected *TooManyInstances, got %T: %v", res.Err, res.Err)

	<-done
}

func TestPoolRunRuntimeErrorIsBoundaryError(t *testing.T) {
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

	tmpl := NewTemplate(bc, mem)
	pool := NewPool(tmpl, &fakeHost{}, NewOptions())

	res := pool.Run(context.Background(), nil, nil)
	require.Error(t, res.Err)
	be, ok := res.Err.(*BoundaryError)
	require.True(t, ok, "expected a *BoundaryError, got %T: %v", res.Err, res.Err)
	assert.Equal(t, KindRuntime, be.Kind)
}

func TestClassifyCompileErrorExtractsSourceLocation(t *testing.T) {
	synErr := parser.SyntaxError{Line: 3, Column: 7, Message: "unexpected token"}
	be := ClassifyCompileError(synErr)
	require.NotNil(t, be)
	assert.Equal(t, KindCompile, be.Kind)
	assert.Equal(t, 3, be.Line)
	assert.Equal(t, 7, be.Column)
	assert.Equal(t, "unexpected token", be.Message)
}

func TestClassifyCompileErrorNilIsNil(t *testing.T) {
	assert.Nil(t, ClassifyCompileError(nil))
}

func TestBindEventsSetsGlobals(t *testing.T) {
	mem := value.NewMemory()
	mem.DefineGlobal("text")
	mem.DefineGlobal("sender")

	bindEvents(mem, Event{"text": "hi", "sender": int64(7), "unused": "ignored"})

	textVal := mem.Globals[mem.GlobalIndex["text"]].(value.Str)
	assert.Equal(t, "hi", string(mem.StringCellAt(textVal.Ptr).Runes))
	assert.Equal(t, value.Integer(7), mem.Globals[mem.GlobalIndex["sender"]])
}
