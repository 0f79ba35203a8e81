package tick

import (
	"time"

	"github.com/TheBitDrifter/bark"

	"github.com/ndouglas/longtable/derived"
	"github.com/ndouglas/longtable/rule"
	"github.com/ndouglas/longtable/store"
	"github.com/ndouglas/longtable/value"
	"github.com/ndouglas/longtable/vm"
)

// Executor advances a World one tick at a time against a fixed compiled
// program, rule set, constraint set, and derived-component evaluator
// (spec.md §4.11). One Executor may drive any number of worlds and forks —
// it holds no per-world state itself.
type Executor struct {
	Program     *vm.Program
	Rules       []*rule.CompiledRule
	Constraints []*derived.Constraint
	Evaluator   *derived.Evaluator
	Config      Config
}

// NewExecutor builds an Executor. evaluator may be nil if the program
// declares no derived components.
func NewExecutor(program *vm.Program, rules []*rule.CompiledRule, constraints []*derived.Constraint, evaluator *derived.Evaluator, cfg Config) *Executor {
	return &Executor{Program: program, Rules: rules, Constraints: constraints, Evaluator: evaluator, Config: cfg}
}

// Tick runs the five-step algorithm of spec.md §4.11 against world: input
// injection, the rule loop to quiescence, the constraint phase, and
// commit-or-rollback. On any error or rollback violation, the returned
// world is exactly the input world (pre_tick), per spec.md §9 "the world
// returned to the caller is the pre-tick world".
func (ex *Executor) Tick(world *store.World, inputs []Input) (*store.World, TickResult, error) {
	start := time.Now()
	preTick := world
	working := world
	entry := log.WithField("tick", preTick.Tick)
	entry.Debug("tick start")

	effectLog := store.NewEffectLog()
	output := NewOutputBuffer()

	for _, in := range inputs {
		nw, id, err := working.Spawn(in.Values)
		if err != nil {
			return preTick, ex.rollbackResult(preTick, effectLog, output, start), bark.AddTrace(RollbackError{Tick: preTick.Tick, Cause: err})
		}
		working = nw
		effectLog.Append(store.EffectRecord{
			Tick: preTick.Tick, Entity: id, Kind: store.EffectSpawn,
			New: value.Entity(id), Source: store.EffectSource{Kind: store.SourceExternal},
		})
	}

	seedChain := vm.NewSeedChain(preTick.Seed)

	working, fired, err := rule.RunToQuiescence(working, ex.Rules, ex.Program, seedChain, preTick.Tick, effectLog, output, ex.Config.Limits)
	if err != nil {
		entry.WithError(err).Warn("rule loop failed, rolling back")
		return preTick, ex.rollbackResult(preTick, effectLog, output, start), bark.AddTrace(RollbackError{Tick: preTick.Tick, Cause: err})
	}

	var warnings []derived.Violation
	if len(ex.Constraints) > 0 {
		violations, err := derived.CheckAll(working, ex.Program, ex.Constraints)
		if err != nil {
			return preTick, ex.rollbackResult(preTick, effectLog, output, start), bark.AddTrace(RollbackError{Tick: preTick.Tick, Cause: err})
		}
		var rollbackViolations []derived.Violation
		for _, v := range violations {
			if v.Policy == derived.ViolationRollback {
				rollbackViolations = append(rollbackViolations, v)
			} else {
				warnings = append(warnings, v)
			}
		}
		if len(rollbackViolations) > 0 {
			entry.WithField("violations", len(rollbackViolations)).Warn("constraint violation, rolling back")
			return preTick, ex.rollbackResult(preTick, effectLog, output, start), bark.AddTrace(RollbackError{Tick: preTick.Tick, Violations: rollbackViolations})
		}
	}

	committed := working.Fork(preTick.Seed)
	committed.Previous = preTick
	if ex.Config.HistoryRetention >= 0 {
		committed = committed.TruncateHistory(ex.Config.HistoryRetention)
	}

	entry.WithField("rules_fired", len(fired)).Debug("tick committed")
	return committed, TickResult{
		Tick:            committed.Tick,
		RulesFired:      fired,
		EntitiesChanged: entitiesChanged(effectLog),
		Log:             effectLog,
		Warnings:        warnings,
		Output:          output.String(),
		Elapsed:         time.Since(start),
	}, nil
}

func (ex *Executor) rollbackResult(preTick *store.World, log *store.EffectLog, output *OutputBuffer, start time.Time) TickResult {
	return TickResult{
		Tick:    preTick.Tick,
		Log:     log,
		Output:  output.String(),
		Elapsed: time.Since(start),
	}
}
