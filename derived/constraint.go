package derived

import (
	"sort"

	"github.com/ndouglas/longtable/match"
	"github.com/ndouglas/longtable/store"
	"github.com/ndouglas/longtable/value"
	"github.com/ndouglas/longtable/vm"
)

// Violation is one failing Check, reported for one matched activation of a
// Constraint (spec.md §4.10 "Constraints").
type Violation struct {
	Constraint  string
	Declaration int
	Salience    int32
	Bindings    match.Bindings
	Policy      ViolationPolicy
	Message     string
}

// CheckAll evaluates every constraint against world in (salience DESC,
// declaration order ASC), returning every violation found. For each
// activation, checks run in declaration order and only the first failing
// check is recorded: the first failing check produces the violation
// record (spec.md §4.10).
func CheckAll(world *store.World, program *vm.Program, constraints []*Constraint) ([]Violation, error) {
	ordered := append([]*Constraint(nil), constraints...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Salience != ordered[j].Salience {
			return ordered[i].Salience > ordered[j].Salience
		}
		return ordered[i].Declaration < ordered[j].Declaration
	})

	var violations []Violation
	machine := vm.New(program)
	for _, c := range ordered {
		var matches []match.Bindings
		err := match.Run(world, c.Plan, 0, func(b match.Bindings) bool {
			matches = append(matches, b)
			return true
		})
		if err != nil {
			return violations, err
		}
		for _, b := range matches {
			v, err := runChecks(machine, world, c, b)
			if err != nil {
				return violations, err
			}
			if v != nil {
				logEntry.WithField("constraint", v.Constraint).Warn("constraint violated: " + v.Message)
				violations = append(violations, *v)
			}
		}
	}
	return violations, nil
}

func runChecks(machine *vm.VM, world *store.World, c *Constraint, b match.Bindings) (*Violation, error) {
	bindingsSlice := make([]value.Value, len(c.BindingOrder))
	for i, v := range c.BindingOrder {
		bindingsSlice[i] = b[v]
	}
	ctx := vm.NewContext(world, vm.EffectModeBuffered, vm.NewRand(0), nullWriter{}, store.NewEffectLog(),
		store.EffectSource{Kind: store.SourceConstraint, Name: c.Name}, world.Tick)
	ctx.PureOnly = true
	for _, check := range c.Checks {
		result, err := machine.Run(check.Chunk, nil, nil, bindingsSlice, ctx)
		ctx.DiscardIntents()
		if err != nil {
			return nil, err
		}
		if !result.Truthy() {
			return &Violation{
				Constraint:  c.NameStr,
				Declaration: c.Declaration,
				Salience:    c.Salience,
				Bindings:    b,
				Policy:      c.OnViolation,
				Message:     check.Message,
			}, nil
		}
	}
	return nil, nil
}
