package match

import (
	"fmt"
	"strings"

	"github.com/ndouglas/longtable/store"
	"github.com/ndouglas/longtable/value"
)

// ExplainStep describes one compiled step's operation kind and an
// estimated row count, so callers can see why a query plan is slow
// (spec.md §4.8 "Query plan explanation").
type ExplainStep struct {
	Index         int
	Kind          string // "scan", "lookup", "negation"
	Component     string
	EstimatedRows int
}

// Explain walks plan against world and reports, per step, whether it was
// executed as an archetype scan or a direct lookup, and how many
// candidate rows that step considered — a diagnostic surface, not part of
// plan execution itself.
func Explain(world *store.World, registry *store.Registry, plan *Plan) []ExplainStep {
	out := make([]ExplainStep, 0, len(plan.Steps))
	bound := map[Var]bool{}
	if !plan.EntryVar.IsWildcard() {
		bound[plan.EntryVar] = true
	}
	for i, step := range plan.Steps {
		if step.Clause != nil {
			c := step.Clause
			kind := "scan"
			rows := 0
			if bound[c.Entity] {
				kind = "lookup"
				rows = 1
			} else {
				world.EachWithComponent(c.Component, func(_ value.EntityID) bool {
					rows++
					return true
				})
			}
			if !c.Entity.IsWildcard() {
				bound[c.Entity] = true
			}
			if c.Binding.Kind == BindVar && !c.Binding.Var.IsWildcard() {
				bound[c.Binding.Var] = true
			}
			out = append(out, ExplainStep{Index: i, Kind: kind, Component: registry.Interner.String(c.Component), EstimatedRows: rows})
			continue
		}
		out = append(out, ExplainStep{Index: i, Kind: "negation", Component: negationLabel(registry, step.Negation)})
	}
	return out
}

func negationLabel(registry *store.Registry, neg *Negation) string {
	names := make([]string, 0, len(neg.Clauses))
	for _, c := range neg.Clauses {
		names = append(names, registry.Interner.String(c.Component))
	}
	return strings.Join(names, ",")
}

func (s ExplainStep) String() string {
	return fmt.Sprintf("[%d] %s %s (~%d rows)", s.Index, s.Kind, s.Component, s.EstimatedRows)
}
