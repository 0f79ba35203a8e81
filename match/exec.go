package match

import (
	"github.com/ndouglas/longtable/store"
	"github.com/ndouglas/longtable/value"
)

// Bindings is one partial or complete binding set produced while executing
// a Plan: Var -> bound Value (entity-vars bind to value.Entity(...)).
type Bindings map[Var]value.Value

func (b Bindings) clone() Bindings {
	nb := make(Bindings, len(b)+1)
	for k, v := range b {
		nb[k] = v
	}
	return nb
}

// Clone returns a shallow copy, for callers outside this package that need
// to adapt one binding set into another (aggregation, provenance).
func (b Bindings) Clone() Bindings { return b.clone() }

// ToValueMap reprojects a binding set as a component-value map keyed by
// plain (unnamespaced) Symbols, the shape store.EffectSource.Bindings and
// provenance records use.
func (b Bindings) ToValueMap() map[value.Symbol]value.Value {
	out := make(map[value.Symbol]value.Value, len(b))
	for v, val := range b {
		out[value.Symbol{Name: value.Handle(v)}] = val
	}
	return out
}

// Run executes plan against world, yielding every matching binding set via
// fn in deterministic order (spec.md §4.8 "Determinism"): clause order,
// then archetype ascending id, then row ascending within each archetype.
// fn returning false stops enumeration early. limit, if > 0, aborts with
// QueryResultSizeError once that many results have been emitted (the
// query-result-size kill switch).
func Run(world *store.World, plan *Plan, limit int, fn func(Bindings) bool) error {
	initial := Bindings{}
	if !plan.EntryVar.IsWildcard() {
		initial[plan.EntryVar] = plan.EntryValue
	}
	count := 0
	stop := false
	var walkErr error
	var walk func(steps []Step, b Bindings)
	walk = func(steps []Step, b Bindings) {
		if stop {
			return
		}
		if len(steps) == 0 {
			count++
			if limit > 0 && count > limit {
				stop = true
				walkErr = QueryResultSizeError{Limit: limit}
				return
			}
			if !fn(b) {
				stop = true
			}
			return
		}
		step := steps[0]
		rest := steps[1:]
		if step.Clause != nil {
			execClause(world, *step.Clause, b, func(nb Bindings) bool {
				walk(rest, nb)
				return !stop
			})
			return
		}
		if evalNegation(world, step.Negation, b) {
			walk(rest, b)
		}
	}
	walk(plan.Steps, initial)
	return walkErr
}

// execClause extends b by every candidate satisfying clause, calling emit
// for each — the left-deep join step (spec.md §4.8 "Plan execution").
func execClause(world *store.World, clause Clause, b Bindings, emit func(Bindings) bool) {
	if entityVal, bound := resolveVar(b, clause.Entity); bound {
		// Direct lookup: entity already fixed by a preceding clause.
		entity := entityVal.Entity()
		if !world.Has(entity, clause.Component) {
			return
		}
		val := world.Get(entity, clause.Component)
		nb, ok := unifyBinding(b, clause.Binding, val)
		if ok {
			emit(nb)
		}
		return
	}

	// Fresh entity-var: archetype-indexed entry point, enumerated in
	// ascending (archetype id, row) order by EachWithComponent.
	var candidates []value.EntityID
	world.EachWithComponent(clause.Component, func(e value.EntityID) bool {
		candidates = append(candidates, e)
		return true
	})
	for _, e := range candidates {
		val := world.Get(e, clause.Component)
		withEntity := b.clone()
		if !clause.Entity.IsWildcard() {
			withEntity[clause.Entity] = value.Entity(e)
		}
		nb, ok := unifyBinding(withEntity, clause.Binding, val)
		if !ok {
			continue
		}
		if !emit(nb) {
			return
		}
	}
}

func resolveVar(b Bindings, v Var) (value.Value, bool) {
	if v.IsWildcard() {
		return value.Nil, false
	}
	val, ok := b[v]
	return val, ok
}

// unifyBinding attempts to extend b with clause's third slot against val.
func unifyBinding(b Bindings, binding Binding, val value.Value) (Bindings, bool) {
	switch binding.Kind {
	case BindWildcard:
		return b, true
	case BindLiteral:
		if !binding.Literal.Equal(val) {
			return nil, false
		}
		return b, true
	case BindVar:
		if binding.Var.IsWildcard() {
			return b, true
		}
		if existing, ok := b[binding.Var]; ok {
			return b, existing.Equal(val)
		}
		nb := b.clone()
		nb[binding.Var] = val
		return nb, true
	}
	return b, true
}

// evalNegation reports whether negation succeeds under b: true iff no
// extension of b satisfies every clause in the group (spec.md §4.8).
func evalNegation(world *store.World, neg *Negation, b Bindings) bool {
	found := false
	var walk func(clauses []Clause, cur Bindings)
	walk = func(clauses []Clause, cur Bindings) {
		if found {
			return
		}
		if len(clauses) == 0 {
			found = true
			return
		}
		execClause(world, clauses[0], cur, func(nb Bindings) bool {
			walk(clauses[1:], nb)
			return !found
		})
	}
	walk(neg.Clauses, b)
	return !found
}

