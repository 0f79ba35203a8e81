package derived

import (
	"errors"
	"testing"

	"github.com/ndouglas/longtable/match"
	"github.com/ndouglas/longtable/store"
	"github.com/ndouglas/longtable/value"
	"github.com/ndouglas/longtable/vm"
)

func newTestWorld(t *testing.T) (*store.World, value.Symbol) {
	t.Helper()
	interner := value.NewInterner()
	registry := store.NewRegistry(interner)
	hp := interner.InternSymbol("", "hp")
	if err := registry.RegisterComponent(store.ComponentSchema{Name: hp, ValueType: store.FieldInt}); err != nil {
		t.Fatalf("RegisterComponent: %v", err)
	}
	world := store.NewWorld(registry, 1)
	return world, hp
}

// constDef builds a Def with an empty pattern plan (self-only) and an
// Expr that always returns n, ignoring any bindings.
func constDef(name value.Symbol, self match.Var, n int64) *Def {
	return &Def{
		Name:    name,
		SelfVar: self,
		Plan:    &match.Plan{EntryVar: self},
		Expr: &vm.Chunk{
			Code:      []vm.Instr{{Op: vm.OpConst, A: 0}, {Op: vm.OpReturn}},
			Constants: []value.Value{value.Int(n)},
		},
	}
}

func TestEvaluatorCachesUntilMutation(t *testing.T) {
	world, hp := newTestWorld(t)
	world, entity, err := world.Spawn(map[value.Symbol]value.Value{hp: value.Int(10)})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}

	interner := world.Registry.Interner
	self := match.Var(interner.Intern("self"))
	name := interner.InternSymbol("", "doubled")

	program := &vm.Program{}
	ev := NewEvaluator(program, []*Def{constDef(name, self, 42)}, 0)

	v, err := ev.Get(world, entity, name)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v.Int() != 42 {
		t.Errorf("got %d, want 42", v.Int())
	}

	genBefore := ev.gen.generation
	if _, err := ev.Get(world, entity, name); err != nil {
		t.Fatalf("Get (cached): %v", err)
	}
	if ev.gen.generation != genBefore {
		t.Errorf("generation advanced on a repeat call against the same world")
	}

	world2, err := world.Set(entity, hp, value.Int(20))
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, err := ev.Get(world2, entity, name); err != nil {
		t.Fatalf("Get (post-mutation): %v", err)
	}
	if ev.gen.generation == genBefore {
		t.Errorf("generation did not advance after a mutation produced a new *World")
	}
}

func TestEvaluatorDetectsCycle(t *testing.T) {
	world, _ := newTestWorld(t)
	world, entity, err := world.Spawn(nil)
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}

	interner := world.Registry.Interner
	self := match.Var(interner.Intern("self"))
	a := interner.InternSymbol("", "a")
	b := interner.InternSymbol("", "b")

	defA := &Def{Name: a, SelfVar: self, Plan: &match.Plan{EntryVar: self}, Expr: &vm.Chunk{
		Code: []vm.Instr{{Op: vm.OpReturn}},
	}}
	defB := &Def{Name: b, SelfVar: self, Plan: &match.Plan{EntryVar: self}, Expr: &vm.Chunk{
		Code: []vm.Instr{{Op: vm.OpReturn}},
	}}

	program := &vm.Program{}
	ev := NewEvaluator(program, []*Def{defA, defB}, 0)
	ev.stack = append(ev.stack, guardEntry{entity: entity, name: a})
	_, err = ev.eval(world, entity, a)
	var loopErr InfiniteLoopError
	if !errors.As(err, &loopErr) {
		t.Errorf("got %v, want InfiniteLoopError", err)
	}
}

func TestEvaluatorUnknownDerived(t *testing.T) {
	world, _ := newTestWorld(t)
	world, entity, err := world.Spawn(nil)
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	program := &vm.Program{}
	ev := NewEvaluator(program, nil, 0)
	missing := world.Registry.Interner.InternSymbol("", "missing")
	if _, err := ev.Get(world, entity, missing); err == nil {
		t.Errorf("expected NotFoundError for an unregistered derived name")
	}
}
