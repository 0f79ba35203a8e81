package derived

import (
	"testing"

	"github.com/ndouglas/longtable/match"
	"github.com/ndouglas/longtable/value"
	"github.com/ndouglas/longtable/vm"
)

// hpCheck compiles `hp >= 0` as a chunk that reads hp off binding slot 0.
func hpCheck() *vm.Chunk {
	return &vm.Chunk{
		Code: []vm.Instr{
			{Op: vm.OpLoadBinding, A: 0},
			{Op: vm.OpConst, A: 0},
			{Op: vm.OpGreaterEq},
			{Op: vm.OpReturn},
		},
		Constants: []value.Value{value.Int(0)},
	}
}

func TestCheckAllReportsRollbackViolation(t *testing.T) {
	world, hp := newTestWorld(t)
	world, entity, err := world.Spawn(map[value.Symbol]value.Value{hp: value.Int(-5)})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}

	interner := world.Registry.Interner
	self := match.Var(interner.Intern("self"))
	hpVal := match.Var(interner.Intern("hp-val"))

	constraint := &Constraint{
		Name:    interner.InternSymbol("", "hp-non-negative"),
		NameStr: "hp-non-negative",
		Plan: &match.Plan{
			Steps: []match.Step{{Clause: &match.Clause{
				Entity: self, Component: hp, Binding: match.BindingVar(hpVal),
			}}},
		},
		Checks:       []Check{{Message: "hp must be >= 0", Chunk: hpCheck()}},
		OnViolation:  ViolationRollback,
		BindingOrder: []match.Var{hpVal},
	}

	program := &vm.Program{}
	violations, err := CheckAll(world, program, []*Constraint{constraint})
	if err != nil {
		t.Fatalf("CheckAll: %v", err)
	}
	if len(violations) != 1 {
		t.Fatalf("got %d violations, want 1", len(violations))
	}
	if violations[0].Policy != ViolationRollback {
		t.Errorf("got policy %v, want ViolationRollback", violations[0].Policy)
	}
	if violations[0].Bindings[self].Entity() != entity {
		t.Errorf("violation bound to wrong entity")
	}
}

func TestCheckAllPassesWhenNoViolation(t *testing.T) {
	world, hp := newTestWorld(t)
	world, _, err := world.Spawn(map[value.Symbol]value.Value{hp: value.Int(10)})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}

	interner := world.Registry.Interner
	self := match.Var(interner.Intern("self"))
	hpVal := match.Var(interner.Intern("hp-val"))

	constraint := &Constraint{
		Name:    interner.InternSymbol("", "hp-non-negative"),
		NameStr: "hp-non-negative",
		Plan: &match.Plan{
			Steps: []match.Step{{Clause: &match.Clause{
				Entity: self, Component: hp, Binding: match.BindingVar(hpVal),
			}}},
		},
		Checks:       []Check{{Message: "hp must be >= 0", Chunk: hpCheck()}},
		OnViolation:  ViolationRollback,
		BindingOrder: []match.Var{hpVal},
	}

	program := &vm.Program{}
	violations, err := CheckAll(world, program, []*Constraint{constraint})
	if err != nil {
		t.Fatalf("CheckAll: %v", err)
	}
	if len(violations) != 0 {
		t.Errorf("got %d violations, want 0", len(violations))
	}
}
