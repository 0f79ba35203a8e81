package rule

import (
	"testing"

	"github.com/ndouglas/longtable/match"
	"github.com/ndouglas/longtable/store"
	"github.com/ndouglas/longtable/value"
	"github.com/ndouglas/longtable/vm"
)

func newEngineTestWorld(t *testing.T) (*store.World, value.Symbol) {
	t.Helper()
	interner := value.NewInterner()
	registry := store.NewRegistry(interner)
	hp := interner.InternSymbol("", "hp")
	if err := registry.RegisterComponent(store.ComponentSchema{Name: hp, ValueType: store.FieldInt}); err != nil {
		t.Fatalf("RegisterComponent: %v", err)
	}
	return store.NewWorld(registry, 1), hp
}

// TestApplyLetsExtendsBindings checks that a let-binding's computed value is
// visible to a guard evaluated afterward (spec.md §4.9 "let... available to
// later guards/order-by/:then").
func TestApplyLetsExtendsBindings(t *testing.T) {
	world, hp := newEngineTestWorld(t)
	interner := world.Registry.Interner
	self := match.Var(interner.Intern("self"))
	hpVal := match.Var(interner.Intern("hp-val"))
	doubled := match.Var(interner.Intern("doubled"))

	r := &CompiledRule{
		NameStr: "double-hp",
		Enabled: true,
		Lets: []LetBinding{{
			Name: doubled,
			Chunk: &vm.Chunk{
				Code:      []vm.Instr{{Op: vm.OpLoadBinding, A: 0}, {Op: vm.OpConst, A: 0}, {Op: vm.OpMul}, {Op: vm.OpReturn}},
				Constants: []value.Value{value.Int(2)},
			},
		}},
		Guards: []Guard{{Chunk: &vm.Chunk{
			Code:      []vm.Instr{{Op: vm.OpLoadBinding, A: 1}, {Op: vm.OpConst, A: 0}, {Op: vm.OpGreater}, {Op: vm.OpReturn}},
			Constants: []value.Value{value.Int(15)},
		}}},
		BindingOrder: []match.Var{hpVal, doubled},
	}

	program := &vm.Program{}
	b := match.Bindings{hpVal: value.Int(10)}

	extended, err := applyLets(r, b, world, program, 1, 0)
	if err != nil {
		t.Fatalf("applyLets: %v", err)
	}
	if got := extended[doubled].Int(); got != 20 {
		t.Fatalf("got doubled=%d, want 20", got)
	}

	ok, err := passesGuards(r, extended, world, program, 1, 0)
	if err != nil {
		t.Fatalf("passesGuards: %v", err)
	}
	if !ok {
		t.Errorf("guard on doubled > 15 should pass when doubled=20")
	}
}

// TestPassesGuardsShortCircuits checks a failing guard rejects the
// candidate even when a later guard would have passed.
func TestPassesGuardsShortCircuits(t *testing.T) {
	world, _ := newEngineTestWorld(t)
	hpVal := match.Var(world.Registry.Interner.Intern("hp-val"))

	alwaysFalse := &vm.Chunk{Code: []vm.Instr{{Op: vm.OpConst, A: 0}, {Op: vm.OpReturn}}, Constants: []value.Value{value.Bool(false)}}
	alwaysTrue := &vm.Chunk{Code: []vm.Instr{{Op: vm.OpConst, A: 0}, {Op: vm.OpReturn}}, Constants: []value.Value{value.Bool(true)}}
	r := &CompiledRule{
		NameStr:      "never-fires",
		Enabled:      true,
		Guards:       []Guard{{Chunk: alwaysFalse}, {Chunk: alwaysTrue}},
		BindingOrder: []match.Var{hpVal},
	}

	program := &vm.Program{}
	ok, err := passesGuards(r, match.Bindings{hpVal: value.Int(1)}, world, program, 1, 0)
	if err != nil {
		t.Fatalf("passesGuards: %v", err)
	}
	if ok {
		t.Errorf("expected a false-valued guard to reject the candidate")
	}
}

// TestSortByOrderByAscendingAndDescending checks candidates are reordered
// by the order-by key, honoring Descending.
func TestSortByOrderByAscendingAndDescending(t *testing.T) {
	world, _ := newEngineTestWorld(t)
	hpVal := match.Var(world.Registry.Interner.Intern("hp-val"))

	keyChunk := &vm.Chunk{Code: []vm.Instr{{Op: vm.OpLoadBinding, A: 0}, {Op: vm.OpReturn}}}
	r := &CompiledRule{
		NameStr:      "order-by-hp",
		Enabled:      true,
		OrderBy:      &OrderBy{Chunk: keyChunk},
		BindingOrder: []match.Var{hpVal},
	}
	program := &vm.Program{}

	candidates := []match.Bindings{
		{hpVal: value.Int(30)},
		{hpVal: value.Int(10)},
		{hpVal: value.Int(20)},
	}
	if err := sortByOrderBy(r, candidates, world, program, 1, 0); err != nil {
		t.Fatalf("sortByOrderBy: %v", err)
	}
	want := []int64{10, 20, 30}
	for i, w := range want {
		if got := candidates[i][hpVal].Int(); got != w {
			t.Errorf("ascending: position %d = %d, want %d", i, got, w)
		}
	}

	r.OrderBy.Descending = true
	candidates = []match.Bindings{
		{hpVal: value.Int(30)},
		{hpVal: value.Int(10)},
		{hpVal: value.Int(20)},
	}
	if err := sortByOrderBy(r, candidates, world, program, 1, 0); err != nil {
		t.Fatalf("sortByOrderBy (desc): %v", err)
	}
	wantDesc := []int64{30, 20, 10}
	for i, w := range wantDesc {
		if got := candidates[i][hpVal].Int(); got != w {
			t.Errorf("descending: position %d = %d, want %d", i, got, w)
		}
	}
}

// TestCollectCandidatesAppliesLimit checks Limit truncates a rule's own
// candidate set after ordering, independent of other rules in play.
func TestCollectCandidatesAppliesLimit(t *testing.T) {
	world, hp := newEngineTestWorld(t)
	interner := world.Registry.Interner

	var entities []value.EntityID
	for _, v := range []int64{5, 1, 9} {
		var e value.EntityID
		var err error
		world, e, err = world.Spawn(map[value.Symbol]value.Value{hp: value.Int(v)})
		if err != nil {
			t.Fatalf("Spawn: %v", err)
		}
		entities = append(entities, e)
	}
	_ = entities

	self := match.Var(interner.Intern("self"))
	hpVal := match.Var(interner.Intern("hp-val"))
	plan := &match.Plan{Steps: []match.Step{{Clause: &match.Clause{Entity: self, Component: hp, Binding: match.BindingVar(hpVal)}}}}

	r := &CompiledRule{
		NameStr:      "top-one-hp",
		Enabled:      true,
		Plan:         plan,
		OrderBy:      &OrderBy{Chunk: &vm.Chunk{Code: []vm.Instr{{Op: vm.OpLoadBinding, A: 1}, {Op: vm.OpReturn}}}, Descending: true},
		Limit:        1,
		BindingOrder: []match.Var{self, hpVal},
	}

	program := &vm.Program{}
	out, err := collectCandidates(world, []*CompiledRule{r}, map[string]bool{}, map[string]bool{}, program, 1, 0)
	if err != nil {
		t.Fatalf("collectCandidates: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("got %d candidates, want 1 (Limit)", len(out))
	}
	if got := out[0].Bindings[hpVal].Int(); got != 9 {
		t.Errorf("got top candidate hp=%d, want 9 (highest, Descending order-by)", got)
	}
}
