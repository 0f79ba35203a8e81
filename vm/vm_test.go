package vm

import (
	"errors"
	"math"
	"testing"

	"github.com/ndouglas/longtable/store"
	"github.com/ndouglas/longtable/value"
)

func newTestContext(t *testing.T, failOnNaN bool) *Context {
	t.Helper()
	interner := value.NewInterner()
	registry := store.NewRegistry(interner)
	world := store.NewWorld(registry, 1)
	ctx := NewContext(world, EffectModeBuffered, NewRand(1), discardWriter{}, store.NewEffectLog(),
		store.EffectSource{Kind: store.SourceExternal}, 0)
	ctx.FailOnNaN = failOnNaN
	return ctx
}

type discardWriter struct{}

func (discardWriter) WriteString(string) {}

func TestVMArithmetic(t *testing.T) {
	cases := []struct {
		name string
		op   Op
		a, b int64
		want value.Value
	}{
		{"add", OpAdd, 2, 3, value.Int(5)},
		{"sub", OpSub, 5, 3, value.Int(2)},
		{"mul", OpMul, 4, 3, value.Int(12)},
		{"div", OpDiv, 10, 2, value.Float(5)},
		{"mod", OpMod, 10, 3, value.Int(1)},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			chunk := &Chunk{
				Code:      []Instr{{Op: OpConst, A: 0}, {Op: OpConst, A: 1}, {Op: c.op}, {Op: OpReturn}},
				Constants: []value.Value{value.Int(c.a), value.Int(c.b)},
			}
			m := New(&Program{})
			got, err := m.Run(chunk, nil, nil, nil, newTestContext(t, false))
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if !got.Equal(c.want) {
				t.Errorf("got %v, want %v", got, c.want)
			}
		})
	}
}

func TestVMModByZeroIsTypeError(t *testing.T) {
	chunk := &Chunk{
		Code:      []Instr{{Op: OpConst, A: 0}, {Op: OpConst, A: 1}, {Op: OpMod}, {Op: OpReturn}},
		Constants: []value.Value{value.Int(10), value.Int(0)},
	}
	m := New(&Program{})
	_, err := m.Run(chunk, nil, nil, nil, newTestContext(t, false))
	if err == nil {
		t.Fatalf("expected an error for mod-by-zero")
	}
	var typeErr TypeError
	if !errors.As(err, &typeErr) {
		t.Errorf("got %v, want TypeError", err)
	}
}

func TestVMIntDivisionByZeroProducesInfWithoutFailOnNaN(t *testing.T) {
	chunk := &Chunk{
		Code:      []Instr{{Op: OpConst, A: 0}, {Op: OpConst, A: 1}, {Op: OpDiv}, {Op: OpReturn}},
		Constants: []value.Value{value.Int(1), value.Int(0)},
	}
	m := New(&Program{})
	got, err := m.Run(chunk, nil, nil, nil, newTestContext(t, false))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !math.IsInf(got.Float(), 1) {
		t.Errorf("got %v, want +Inf (int division lowers to float division, 1/0 is not NaN)", got.Float())
	}
}

func TestVMFailOnNaN(t *testing.T) {
	chunk := &Chunk{
		Code:      []Instr{{Op: OpConst, A: 0}, {Op: OpConst, A: 1}, {Op: OpDiv}, {Op: OpReturn}},
		Constants: []value.Value{value.Float(0), value.Float(0)},
	}
	m := New(&Program{})
	_, err := m.Run(chunk, nil, nil, nil, newTestContext(t, true))
	if err == nil {
		t.Fatalf("expected a NaN error with FailOnNaN set")
	}
	var nanErr NaNError
	if !errors.As(err, &nanErr) {
		t.Errorf("got %v, want NaNError", err)
	}
}

func TestVMMakeClosureCapturesEnclosingValue(t *testing.T) {
	// callee(arg) = capture[0] + arg
	callee := &Chunk{
		NumLocals: 1,
		Code: []Instr{
			{Op: OpLoadCapture, A: 0},
			{Op: OpLoadLocal, A: 0},
			{Op: OpAdd},
			{Op: OpReturn},
		},
	}
	// main: push arg (5), push capture value (100), make a 1-capture
	// closure over callee, call it with argc 1.
	main := &Chunk{
		Code: []Instr{
			{Op: OpConst, A: 1},
			{Op: OpConst, A: 0},
			{Op: OpMakeClosure, A: 1, Offset: 1},
			{Op: OpCall, A: 1},
			{Op: OpReturn},
		},
		Constants: []value.Value{value.Int(100), value.Int(5)},
	}
	program := &Program{Chunks: []*Chunk{main, callee}}
	m := New(program)
	got, err := m.Run(main, nil, nil, nil, newTestContext(t, false))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got.Int() != 105 {
		t.Errorf("got %d, want 105 (captured 100 + arg 5)", got.Int())
	}
}

func TestVMStoreCapturePersistsAcrossCalls(t *testing.T) {
	// callee() increments its own capture slot and returns the new value.
	callee := &Chunk{
		Code: []Instr{
			{Op: OpLoadCapture, A: 0},
			{Op: OpConst, A: 0},
			{Op: OpAdd},
			{Op: OpDup},
			{Op: OpStoreCapture, A: 0},
			{Op: OpReturn},
		},
		Constants: []value.Value{value.Int(1)},
	}
	// main: build the closure once (capture starts at 0), stash it in a
	// local, then call it twice — the second call should observe the
	// first call's write to its shared capture cell.
	main := &Chunk{
		NumLocals: 1,
		Code: []Instr{
			{Op: OpConst, A: 0},
			{Op: OpMakeClosure, A: 1, Offset: 1},
			{Op: OpStoreLocal, A: 0},
			{Op: OpLoadLocal, A: 0},
			{Op: OpCall, A: 0},
			{Op: OpPop},
			{Op: OpLoadLocal, A: 0},
			{Op: OpCall, A: 0},
			{Op: OpReturn},
		},
		Constants: []value.Value{value.Int(0)},
	}
	program := &Program{Chunks: []*Chunk{main, callee}}
	m := New(program)
	got, err := m.Run(main, nil, nil, nil, newTestContext(t, false))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got.Int() != 2 {
		t.Errorf("got %d, want 2 (capture incremented by both calls)", got.Int())
	}
}

func TestVMCallNativePureOnlyRejectsImpureNative(t *testing.T) {
	natives := NewNativeTable()
	idx := natives.Register(Native{
		Name:          "side-effecting",
		Arity:         Exact(0),
		Pure:          false,
		Deterministic: true,
		Impl: func(ctx *Context, args []value.Value) (value.Value, error) {
			return value.Nil, nil
		},
	})
	chunk := &Chunk{
		Code: []Instr{{Op: OpCallNative, A: uint16(idx)}, {Op: OpReturn}},
	}
	program := &Program{Chunks: []*Chunk{chunk}, Natives: natives}
	m := New(program)
	ctx := newTestContext(t, false)
	ctx.PureOnly = true
	_, err := m.Run(chunk, nil, nil, nil, ctx)
	if err == nil {
		t.Fatalf("expected a PurityViolationError")
	}
	var pve PurityViolationError
	if !errors.As(err, &pve) {
		t.Errorf("got %v, want PurityViolationError", err)
	}
}

func TestVMCallNativeAllowsImpureNativeOutsidePureOnly(t *testing.T) {
	natives := NewNativeTable()
	idx := natives.Register(Native{
		Name:          "side-effecting",
		Arity:         Exact(0),
		Pure:          false,
		Deterministic: true,
		Impl: func(ctx *Context, args []value.Value) (value.Value, error) {
			return value.Int(7), nil
		},
	})
	chunk := &Chunk{
		Code: []Instr{{Op: OpConst, A: 0}, {Op: OpCallNative, A: uint16(idx)}, {Op: OpReturn}},
		Constants: []value.Value{value.Int(0)},
	}
	program := &Program{Chunks: []*Chunk{chunk}, Natives: natives}
	m := New(program)
	ctx := newTestContext(t, false)
	got, err := m.Run(chunk, nil, nil, nil, ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got.Int() != 7 {
		t.Errorf("got %d, want 7", got.Int())
	}
}

func TestVMBindingsAndComparison(t *testing.T) {
	chunk := &Chunk{
		Code: []Instr{
			{Op: OpLoadBinding, A: 0},
			{Op: OpConst, A: 0},
			{Op: OpGreaterEq},
			{Op: OpReturn},
		},
		Constants: []value.Value{value.Int(5)},
	}
	m := New(&Program{})
	got, err := m.Run(chunk, nil, nil, []value.Value{value.Int(10)}, newTestContext(t, false))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !got.Truthy() {
		t.Errorf("got %v, want truthy (10 >= 5)", got)
	}
}
