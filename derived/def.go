package derived

import (
	"github.com/ndouglas/longtable/match"
	"github.com/ndouglas/longtable/value"
	"github.com/ndouglas/longtable/vm"
)

// Def is one `:for ?self` derived component declaration: a pattern plan
// scoped to the entity being evaluated, an optional aggregate collapsing
// the plan's binding sets into one row, and a bytecode expression producing
// the derived value (spec.md §4.10 "Derived").
type Def struct {
	Name value.Symbol

	// SelfVar is the plan variable the evaluated entity is bound to before
	// Plan runs (the `?self` of `:for ?self`).
	SelfVar match.Var

	Plan      *match.Plan
	Aggregate *Aggregate

	// Expr computes the derived value from the (possibly aggregated)
	// binding set, read positionally off BindingOrder the same way a rule's
	// :then body reads OpLoadBinding.
	Expr         *vm.Chunk
	BindingOrder []match.Var
}

// Aggregate mirrors rule.Aggregate's shape for a derived definition's
// pattern results: every binding set collapses into one row with the
// reduced value bound under As. GroupBy and Combine are not consulted; the
// reduction sums int values onto an int accumulator and otherwise counts
// rows.
type Aggregate struct {
	GroupBy []match.Var
	Value   match.Var
	Combine *vm.Chunk
	Init    value.Value
	As      match.Var
}

// ViolationPolicy selects what a failing Constraint check does to the tick
// (spec.md §4.10 "Constraints").
type ViolationPolicy uint8

const (
	ViolationRollback ViolationPolicy = iota
	ViolationWarn
)

// Check is one boolean bytecode expression evaluated, in declaration order,
// against a Constraint's matched bindings; the first Check to fail produces
// the violation for that activation.
type Check struct {
	Message string
	Chunk   *vm.Chunk
}

// Constraint declares a pattern plan and a list of boolean checks evaluated
// against every matching binding set once the rule engine reaches
// quiescence (spec.md §4.10 "Constraints").
type Constraint struct {
	Name         value.Symbol
	NameStr      string
	Salience     int32
	Declaration  int
	Plan         *match.Plan
	Checks       []Check
	OnViolation  ViolationPolicy
	BindingOrder []match.Var
}
