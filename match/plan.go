package match

import (
	"github.com/ndouglas/longtable/store"
	"github.com/ndouglas/longtable/value"
)

// Var is a pattern variable's interned name, e.g. `?e`. The wildcard `_`
// is represented by the zero Var (NoHandle), which never unifies into a
// binding.
type Var value.Handle

const Wildcard Var = Var(value.NoHandle)

func (v Var) IsWildcard() bool { return v == Wildcard }

// BindingKind distinguishes the three shapes a clause's third slot can
// take (spec.md §4.8: "binding is a variable, literal, or wildcard").
type BindingKind uint8

const (
	BindVar BindingKind = iota
	BindLiteral
	BindWildcard
)

// Binding is one clause slot: either a pattern variable, a literal Value to
// match exactly, or the wildcard.
type Binding struct {
	Kind    BindingKind
	Var     Var
	Literal value.Value
}

func BindingVar(v Var) Binding          { return Binding{Kind: BindVar, Var: v} }
func BindingLiteral(v value.Value) Binding { return Binding{Kind: BindLiteral, Literal: v} }
func BindingWildcard() Binding          { return Binding{Kind: BindWildcard} }

// Clause is a positive component clause `[entity-var, component, binding]`
// (spec.md §4.8). Component is always a known schema keyword at compile
// time (never itself a variable).
type Clause struct {
	Entity    Var
	Component value.Symbol
	Binding   Binding
}

// Negation is a non-empty group of positive clauses excluded from the
// match: a candidate binding set is rejected iff some extension of it would
// satisfy every inner clause (spec.md §4.8).
type Negation struct {
	Clauses []Clause
}

// Step is one plan step: either a positive clause or a negation group,
// preserving declaration order (plan execution is a left-deep join over
// this sequence).
type Step struct {
	Clause   *Clause
	Negation *Negation
}

// Plan is a compiled, negation-safety-checked sequence of steps scoped to
// the set of variables that appear in it.
type Plan struct {
	Steps []Step
	// EntryVar, if non-wildcard, scopes the whole plan to one fixed
	// entity (derived definitions bind ?self this way; spec.md §4.10).
	EntryVar   Var
	EntryValue value.Value
}

// Compile expands every relationship-typed clause into its three
// rel-entity clauses (spec.md §4.8; see ExpandRelationships), validates
// negation safety over the expanded steps ("all variables inside a
// negation must be bound by preceding positive clauses"), and returns a
// Plan.
func Compile(registry *store.Registry, steps []Step) (*Plan, error) {
	steps = ExpandRelationships(registry, steps, 0)
	bound := map[Var]bool{}
	for _, s := range steps {
		if s.Clause != nil {
			if !s.Clause.Entity.IsWildcard() {
				bound[s.Clause.Entity] = true
			}
			if s.Clause.Binding.Kind == BindVar && !s.Clause.Binding.Var.IsWildcard() {
				bound[s.Clause.Binding.Var] = true
			}
			continue
		}
		for _, c := range s.Negation.Clauses {
			if !c.Entity.IsWildcard() && !bound[c.Entity] {
				return nil, NegationSafetyError{Var: c.Entity}
			}
			if c.Binding.Kind == BindVar && !c.Binding.Var.IsWildcard() && !bound[c.Binding.Var] {
				return nil, NegationSafetyError{Var: c.Binding.Var}
			}
		}
	}
	return &Plan{Steps: steps}, nil
}

// Specificity is positive-clause count + negation count (guard count is
// added by the rule compiler, which knows about guards; match only counts
// what it can see — spec.md GLOSSARY "Specificity").
func (p *Plan) Specificity() int {
	n := 0
	for _, s := range p.Steps {
		if s.Clause != nil {
			n++
		} else {
			n++
		}
	}
	return n
}
