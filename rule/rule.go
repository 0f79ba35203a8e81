package rule

import (
	"github.com/ndouglas/longtable/match"
	"github.com/ndouglas/longtable/value"
	"github.com/ndouglas/longtable/vm"
)

// Guard is a boolean bytecode check evaluated against a candidate's
// bindings; a candidate surviving to :then must pass every guard.
type Guard struct {
	Chunk *vm.Chunk
}

// LetBinding evaluates an expression against the current bindings and adds
// its result under Name, available to later guards/order-by/:then.
type LetBinding struct {
	Name  match.Var
	Chunk *vm.Chunk
}

// OrderBy sorts a rule's own candidate activations by a bytecode key
// expression before the engine-wide salience/specificity sort is applied
// within this rule's slice of candidates.
type OrderBy struct {
	Chunk      *vm.Chunk
	Descending bool
}

// CompiledRule is one `:where ... :then ...` declaration fully compiled
// against a program's constant pool and chunk table (spec.md §4.9).
type CompiledRule struct {
	Name        value.Symbol
	NameStr     string // resolved display name, set at compile time
	Salience    int32
	Enabled     bool
	Once        bool
	Plan        *match.Plan
	Lets        []LetBinding
	Guards      []Guard
	Aggregate   *Aggregate
	OrderBy     *OrderBy
	Limit       int // 0 means unlimited
	Then        *vm.Chunk
	Declaration int // declaration order, used as the final sort tie-break

	// BindingOrder lists every pattern variable the plan can bind, in
	// first-appearance order, so a match's Bindings map can be flattened
	// into the positional slice OpLoadBinding indexes into.
	BindingOrder []match.Var
}

// SlotFor returns v's index in BindingOrder, or -1 if v never appears.
func (r *CompiledRule) SlotFor(v match.Var) int {
	for i, o := range r.BindingOrder {
		if o == v {
			return i
		}
	}
	return -1
}

// Aggregate collapses every matching binding set sharing the GroupBy
// variables into one row carrying a computed summary value. The engine
// does not evaluate Combine: starting from Init, each group's Value column
// is summed when accumulator and value are both ints, and otherwise each
// row adds one to the accumulator (a count).
type Aggregate struct {
	GroupBy []match.Var
	Value   match.Var // the variable column being aggregated
	Combine *vm.Chunk // binary reduction: (acc, next) -> acc
	Init    value.Value
	As      match.Var // name the aggregate result is bound to
}

// Specificity is positive-clause count + guard count + negation count
// (spec.md GLOSSARY). Let-bindings do not count.
func (r *CompiledRule) Specificity() int {
	return r.Plan.Specificity() + len(r.Guards)
}
