package longtable

import (
	"github.com/ndouglas/longtable/derived"
	"github.com/ndouglas/longtable/rule"
	"github.com/ndouglas/longtable/store"
	"github.com/ndouglas/longtable/vm"
)

// CompiledProgram is everything a compiler produces for one program: the
// bytecode/native pool (C7), the component/relationship schema registry
// (C3-C5), the rule set (C9), and the derived-component definitions and
// constraints (C10). A Runtime runs one CompiledProgram against any number
// of worlds.
type CompiledProgram struct {
	VM          *vm.Program
	Registry    *store.Registry
	Rules       []*rule.CompiledRule
	Derived     []*derived.Def
	Constraints []*derived.Constraint
}

// NewCompiledProgram returns an empty program bound to registry, ready for
// a compiler (or a test) to append rules, derived defs, and constraints to,
// and to register natives through RegisterNative.
func NewCompiledProgram(registry *store.Registry) *CompiledProgram {
	return &CompiledProgram{
		VM:       &vm.Program{Natives: vm.NewNativeTable()},
		Registry: registry,
	}
}

// RegisterNative adds n to the program's native-function table (spec.md §6
// "Native-function ABI"), returning the dispatch index bytecode's
// OpCallNative operand refers to.
func (p *CompiledProgram) RegisterNative(n vm.Native) int {
	if p.VM.Natives == nil {
		p.VM.Natives = vm.NewNativeTable()
	}
	return p.VM.Natives.Register(n)
}

// AddChunk appends chunk to the program's chunk pool, returning its
// address (for OpCall/OpMakeClosure operands a compiler emits elsewhere).
func (p *CompiledProgram) AddChunk(chunk *vm.Chunk) int {
	idx := len(p.VM.Chunks)
	p.VM.Chunks = append(p.VM.Chunks, chunk)
	return idx
}
