package match

import (
	"errors"
	"testing"

	"github.com/ndouglas/longtable/store"
	"github.com/ndouglas/longtable/value"
)

func newMatchTestWorld(t *testing.T) (*store.World, *store.Registry, *value.Interner, value.Symbol, value.Symbol) {
	t.Helper()
	interner := value.NewInterner()
	registry := store.NewRegistry(interner)
	hp := interner.InternSymbol("", "hp")
	team := interner.InternSymbol("", "team")
	if err := registry.RegisterComponent(store.ComponentSchema{Name: hp, ValueType: store.FieldInt}); err != nil {
		t.Fatalf("RegisterComponent hp: %v", err)
	}
	if err := registry.RegisterComponent(store.ComponentSchema{Name: team, ValueType: store.FieldKeyword}); err != nil {
		t.Fatalf("RegisterComponent team: %v", err)
	}
	world := store.NewWorld(registry, 1)
	return world, registry, interner, hp, team
}

func TestCompileRejectsUnsafeNegation(t *testing.T) {
	registry := store.NewRegistry(value.NewInterner())
	e := Var(1)
	_, err := Compile(registry, []Step{
		{Negation: &Negation{Clauses: []Clause{{Entity: e, Component: value.Symbol{Name: 2}, Binding: BindingWildcard()}}}},
	})
	if err == nil {
		t.Fatalf("expected a negation safety error for an unbound variable")
	}
	var nse NegationSafetyError
	if !errors.As(err, &nse) {
		t.Errorf("got %v, want NegationSafetyError", err)
	}
}

func TestCompileAcceptsSafeNegation(t *testing.T) {
	registry := store.NewRegistry(value.NewInterner())
	e := Var(1)
	plan, err := Compile(registry, []Step{
		{Clause: &Clause{Entity: e, Component: value.Symbol{Name: 10}, Binding: BindingWildcard()}},
		{Negation: &Negation{Clauses: []Clause{{Entity: e, Component: value.Symbol{Name: 11}, Binding: BindingWildcard()}}}},
	})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(plan.Steps) != 2 {
		t.Errorf("got %d steps, want 2", len(plan.Steps))
	}
}

func TestRunYieldsOneBindingSetPerMatchingEntity(t *testing.T) {
	world, registry, interner, hp, _ := newMatchTestWorld(t)
	var entities []value.EntityID
	for _, v := range []int64{10, 20, 30} {
		var e value.EntityID
		var err error
		world, e, err = world.Spawn(map[value.Symbol]value.Value{hp: value.Int(v)})
		if err != nil {
			t.Fatalf("Spawn: %v", err)
		}
		entities = append(entities, e)
	}

	self := Var(interner.Intern("self"))
	hpVar := Var(interner.Intern("hp-val"))
	plan, err := Compile(registry, []Step{
		{Clause: &Clause{Entity: self, Component: hp, Binding: BindingVar(hpVar)}},
	})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	var got []int64
	err = Run(world, plan, 0, func(b Bindings) bool {
		got = append(got, b[hpVar].Int())
		return true
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d matches, want 3", len(got))
	}
}

func TestRunAppliesNegationExclusion(t *testing.T) {
	world, registry, interner, hp, team := newMatchTestWorld(t)
	world, withTeam, err := world.Spawn(map[value.Symbol]value.Value{hp: value.Int(10), team: value.Keyword(team)})
	if err != nil {
		t.Fatalf("Spawn withTeam: %v", err)
	}
	world, noTeam, err := world.Spawn(map[value.Symbol]value.Value{hp: value.Int(20)})
	if err != nil {
		t.Fatalf("Spawn noTeam: %v", err)
	}
	_ = withTeam

	self := Var(interner.Intern("self"))
	plan, err := Compile(registry, []Step{
		{Clause: &Clause{Entity: self, Component: hp, Binding: BindingWildcard()}},
		{Negation: &Negation{Clauses: []Clause{{Entity: self, Component: team, Binding: BindingWildcard()}}}},
	})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	var got []value.EntityID
	err = Run(world, plan, 0, func(b Bindings) bool {
		got = append(got, b[self].Entity())
		return true
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(got) != 1 || got[0] != noTeam {
		t.Errorf("got %v, want only the entity without team (%v)", got, noTeam)
	}
}

func TestRunRespectsQueryResultSizeLimit(t *testing.T) {
	world, registry, interner, hp, _ := newMatchTestWorld(t)
	for _, v := range []int64{1, 2, 3} {
		var err error
		world, _, err = world.Spawn(map[value.Symbol]value.Value{hp: value.Int(v)})
		if err != nil {
			t.Fatalf("Spawn: %v", err)
		}
	}
	self := Var(interner.Intern("self"))
	plan, err := Compile(registry, []Step{{Clause: &Clause{Entity: self, Component: hp, Binding: BindingWildcard()}}})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	count := 0
	err = Run(world, plan, 2, func(b Bindings) bool {
		count++
		return true
	})
	if err == nil {
		t.Fatalf("expected a QueryResultSizeError")
	}
	var qse QueryResultSizeError
	if !errors.As(err, &qse) {
		t.Errorf("got %v, want QueryResultSizeError", err)
	}
}

func TestRunLiteralBindingUnifiesOnlyMatchingValue(t *testing.T) {
	world, registry, interner, hp, team := newMatchTestWorld(t)
	// aligned: its team value is the keyword for the hp component, which
	// the literal below matches; the second entity's team value does not.
	world, aligned, err := world.Spawn(map[value.Symbol]value.Value{hp: value.Int(5), team: value.Keyword(hp)})
	if err != nil {
		t.Fatalf("Spawn aligned: %v", err)
	}
	world, _, err = world.Spawn(map[value.Symbol]value.Value{hp: value.Int(5), team: value.Keyword(team)})
	if err != nil {
		t.Fatalf("Spawn misaligned: %v", err)
	}

	self := Var(interner.Intern("self"))

	// A literal binding only unifies against the entity whose team value
	// equals it (unifyBinding's BindLiteral path), not every entity with a
	// team component.
	literalPlan, err := Compile(registry, []Step{
		{Clause: &Clause{Entity: self, Component: team, Binding: BindingLiteral(value.Keyword(hp))}},
	})
	if err != nil {
		t.Fatalf("Compile literal plan: %v", err)
	}
	var got []value.EntityID
	err = Run(world, literalPlan, 0, func(b Bindings) bool {
		got = append(got, b[self].Entity())
		return true
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(got) != 1 || got[0] != aligned {
		t.Errorf("got %v, want only the aligned entity (%v)", got, aligned)
	}
}

func TestExplainReportsLookupAfterEntityBound(t *testing.T) {
	world, registry, interner, hp, team := newMatchTestWorld(t)
	_, _, err := world.Spawn(map[value.Symbol]value.Value{hp: value.Int(1), team: value.Keyword(team)})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	self := Var(interner.Intern("self"))
	plan, err := Compile(registry, []Step{
		{Clause: &Clause{Entity: self, Component: hp, Binding: BindingWildcard()}},
		{Clause: &Clause{Entity: self, Component: team, Binding: BindingWildcard()}},
	})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	steps := Explain(world, registry, plan)
	if len(steps) != 2 {
		t.Fatalf("got %d explain steps, want 2", len(steps))
	}
	if steps[0].Kind != "scan" {
		t.Errorf("first step got kind %q, want scan", steps[0].Kind)
	}
	if steps[1].Kind != "lookup" {
		t.Errorf("second step got kind %q, want lookup (self already bound)", steps[1].Kind)
	}
}
