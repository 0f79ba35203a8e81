package match

import (
	"fmt"

	"github.com/ndouglas/longtable/store"
	"github.com/ndouglas/longtable/value"
)

// ExpandRelationships rewrites every clause whose Component names a
// registered relationship type into three clauses over a freshly minted
// rel-entity variable (spec.md §4.8): `[?r rel/type =COMP] [?r rel/source
// =entity-var] [?r rel/target =binding]`. Clauses inside negation groups
// are expanded the same way, recursively. freshBase seeds the fresh
// variable names so repeated calls within one compiled plan don't collide.
func ExpandRelationships(registry *store.Registry, steps []Step, freshBase int) []Step {
	out := make([]Step, 0, len(steps))
	next := freshBase
	for _, s := range steps {
		if s.Clause != nil {
			expanded, used := expandClause(registry, *s.Clause, next)
			next += used
			out = append(out, expanded...)
			continue
		}
		innerOut := make([]Clause, 0, len(s.Negation.Clauses))
		for _, c := range s.Negation.Clauses {
			expanded, used := expandClause(registry, c, next)
			next += used
			for _, e := range expanded {
				innerOut = append(innerOut, *e.Clause)
			}
		}
		out = append(out, Step{Negation: &Negation{Clauses: innerOut}})
	}
	return out
}

func expandClause(registry *store.Registry, c Clause, freshBase int) ([]Step, int) {
	if !registry.IsRelationship(c.Component) {
		return []Step{{Clause: &c}}, 0
	}
	relVar := Var(registry.Interner.Intern(fmt.Sprintf("__rel%d", freshBase)))
	sys := registry.Sys
	typeClause := Clause{Entity: relVar, Component: sys.RelType, Binding: BindingLiteral(value.Keyword(c.Component))}
	sourceClause := Clause{Entity: relVar, Component: sys.RelSource, Binding: BindingVar(c.Entity)}
	targetClause := Clause{Entity: relVar, Component: sys.RelTarget, Binding: c.Binding}
	return []Step{
		{Clause: &typeClause},
		{Clause: &sourceClause},
		{Clause: &targetClause},
	}, 1
}
