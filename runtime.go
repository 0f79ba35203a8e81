package longtable

import (
	"github.com/TheBitDrifter/bark"

	"github.com/ndouglas/longtable/derived"
	"github.com/ndouglas/longtable/store"
	"github.com/ndouglas/longtable/tick"
	"github.com/ndouglas/longtable/value"
)

// Runtime binds a CompiledProgram to a tick Executor and (if the program
// declares any) a derived-component Evaluator — the seam an external
// parser/REPL/debugger plugs a compiled program into (spec.md §6).
type Runtime struct {
	Program   *CompiledProgram
	Config    tick.Config
	Executor  *tick.Executor
	Evaluator *derived.Evaluator
}

// New builds a Runtime from a compiled program and tick configuration
// (spec.md §6 kill-switch defaults, fail_on_nan, history retention).
func New(program *CompiledProgram, cfg tick.Config) *Runtime {
	var ev *derived.Evaluator
	if len(program.Derived) > 0 {
		ev = derived.NewEvaluator(program.VM, program.Derived, cfg.DerivedMaxDepth)
	}
	ex := tick.NewExecutor(program.VM, program.Rules, program.Constraints, ev, cfg)
	return &Runtime{Program: program, Config: cfg, Executor: ex, Evaluator: ev}
}

// NewWorld returns tick-0 of a fresh world bound to the runtime's program
// registry and the given world seed (spec.md §6 "world_seed (u64) at world
// creation").
func (rt *Runtime) NewWorld(seed uint64) *store.World {
	return store.NewWorld(rt.Program.Registry, seed)
}

// Tick advances world by one tick against the runtime's rule set,
// constraints, and config (spec.md §4.11).
func (rt *Runtime) Tick(world *store.World, inputs []tick.Input) (*store.World, tick.TickResult, error) {
	return rt.Executor.Tick(world, inputs)
}

// Derived evaluates the derived component name on entity within world
// (spec.md §4.10). Returns NoDerivedEvaluatorError if the program declares
// no derived components.
func (rt *Runtime) Derived(world *store.World, entity value.EntityID, name value.Symbol) (value.Value, error) {
	if rt.Evaluator == nil {
		return value.Nil, bark.AddTrace(NoDerivedEvaluatorError{})
	}
	return rt.Evaluator.Get(world, entity, name)
}

// Fork returns the next committed-tick snapshot derived from world under
// nextSeed, chaining world onto the new snapshot's Previous pointer,
// exposed directly for a host that wants to branch a speculative or save-game fork without running a
// full tick (spec.md §4.6, §4.9).
func (rt *Runtime) Fork(world *store.World, nextSeed uint64) *store.World {
	return world.Fork(nextSeed)
}
