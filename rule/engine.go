package rule

import (
	"sort"

	"github.com/TheBitDrifter/bark"
	"github.com/ndouglas/longtable/match"
	"github.com/ndouglas/longtable/store"
	"github.com/ndouglas/longtable/value"
	"github.com/ndouglas/longtable/vm"
)

// Limits mirrors the tick executor's kill-switch configuration (spec.md
// §6 "Kill-switch defaults") — the subset the rule engine itself enforces.
type Limits struct {
	MaxActivations     int
	MaxEffects         int
	MaxRefiresPerRule  int
	MaxQueryResultSize int

	// FailOnNaN turns a NaN-producing arithmetic op in a rule's :then body
	// into a runtime error (spec.md §6 "fail_on_nan flag").
	FailOnNaN bool
}

// DefaultLimits returns the kill-switch defaults from spec.md §6.
func DefaultLimits() Limits {
	return Limits{
		MaxActivations:     10000,
		MaxEffects:         100000,
		MaxRefiresPerRule:  1000,
		MaxQueryResultSize: 100000,
	}
}

// FireRecord documents one activation that fired, for TickResult.
type FireRecord struct {
	RuleName string
	Bindings match.Bindings
}

// RunToQuiescence drives world through the activation/refraction cycle
// (spec.md §4.9) until no eligible activation remains or a kill switch
// trips. Effects from a firing rule's :then body are applied directly to
// the working world (spec.md §9 "direct mutation... initial correct
// implementation"); tick-level rollback is the caller's responsibility.
func RunToQuiescence(
	world *store.World,
	rules []*CompiledRule,
	program *vm.Program,
	seedChain vm.SeedChain,
	tick uint64,
	log *store.EffectLog,
	output vm.OutputWriter,
	limits Limits,
) (*store.World, []FireRecord, error) {
	refracted := map[string]bool{}
	onceFired := map[string]bool{}
	refireCount := map[string]int{}
	var fired []FireRecord

	tickSeed := seedChain.TickSeed(tick)
	machine := vm.New(program)

	activationIndex := uint64(0)
	for {
		candidates, err := collectCandidates(world, rules, refracted, onceFired, program, tickSeed, tick)
		if err != nil {
			return world, fired, err
		}
		if len(candidates) == 0 {
			return world, fired, nil
		}
		if len(fired)+1 > limits.MaxActivations {
			logEntry.WithField("tick", tick).Warn("kill switch tripped: max_activations")
			return world, fired, bark.AddTrace(KillSwitchError{Switch: "max_activations", Limit: limits.MaxActivations})
		}

		sortActivations(candidates)
		chosen := candidates[0]

		if refireCount[chosen.Rule.NameStr]+1 > limits.MaxRefiresPerRule {
			logEntry.WithField("rule", chosen.Rule.NameStr).Warn("kill switch tripped: max_refires")
			return world, fired, bark.AddTrace(KillSwitchError{Switch: "max_refires", Limit: limits.MaxRefiresPerRule, Rule: chosen.Rule.NameStr})
		}
		refireCount[chosen.Rule.NameStr]++

		ruleSeed := vm.RuleSeed(tickSeed, chosen.Rule.NameStr)
		actSeed := vm.ActivationSeed(ruleSeed, activationIndex)
		activationIndex++

		bindingsSlice := flattenBindings(chosen.Rule.BindingOrder, chosen.Bindings)

		ctx := vm.NewContext(world, vm.EffectModeDirect, vm.NewRand(actSeed), output, log,
			store.EffectSource{Kind: store.SourceRule, Name: chosen.Rule.Name, Bindings: chosen.Bindings.ToValueMap()}, tick)
		ctx.FailOnNaN = limits.FailOnNaN

		if chosen.Rule.Then != nil {
			if _, err := machine.Run(chosen.Rule.Then, nil, nil, bindingsSlice, ctx); err != nil {
				return world, fired, err
			}
		}
		world = ctx.World

		if log.Len() > limits.MaxEffects {
			return world, fired, bark.AddTrace(KillSwitchError{Switch: "max_effects", Limit: limits.MaxEffects})
		}

		refracted[chosen.Key] = true
		if chosen.Rule.Once {
			onceFired[chosen.Rule.NameStr] = true
		}
		fired = append(fired, FireRecord{RuleName: chosen.Rule.NameStr, Bindings: chosen.Bindings})
	}
}

// nullWriter discards output; guard, let, and order-by expressions evaluate
// as pure reads and never need a real OutputWriter.
type nullWriter struct{}

func (nullWriter) WriteString(string) {}

// evalExpr runs chunk against bindingsSlice with no world-mutation effects
// visible to the caller — any buffered intents it raises are discarded, so
// guard/let/order-by expressions stay read-only regardless of what a
// compiler happens to emit into them (spec.md §4.9).
func evalExpr(program *vm.Program, world *store.World, chunk *vm.Chunk, bindingsSlice []value.Value, seed uint64, tick uint64) (value.Value, error) {
	machine := vm.New(program)
	ctx := vm.NewContext(world, vm.EffectModeBuffered, vm.NewRand(seed), nullWriter{}, store.NewEffectLog(),
		store.EffectSource{Kind: store.SourceExternal}, tick)
	ctx.PureOnly = true
	result, err := machine.Run(chunk, nil, nil, bindingsSlice, ctx)
	ctx.DiscardIntents()
	return result, err
}

// flattenBindings projects b onto order's slot layout, zero-valued for any
// variable order names that b has not yet bound (a let-binding introduces a
// new slot later steps of the same candidate's pipeline haven't filled yet).
func flattenBindings(order []match.Var, b match.Bindings) []value.Value {
	out := make([]value.Value, len(order))
	for i, v := range order {
		out[i] = b[v]
	}
	return out
}

// collectCandidates matches every enabled, not-once-fired rule against
// world, applies lets/guards/aggregate/order-by/limit, and filters out
// refracted keys (spec.md §4.9 "let/aggregate/group-by/guard/order-by/limit
// pipeline").
func collectCandidates(
	world *store.World,
	rules []*CompiledRule,
	refracted, onceFired map[string]bool,
	program *vm.Program,
	tickSeed uint64,
	tick uint64,
) ([]Activation, error) {
	var out []Activation
	for _, r := range rules {
		if !r.Enabled || onceFired[r.NameStr] {
			continue
		}
		var raw []match.Bindings
		err := match.Run(world, r.Plan, 0, func(b match.Bindings) bool {
			raw = append(raw, b)
			return true
		})
		if err != nil {
			return nil, err
		}
		raw = applyAggregate(r, raw)

		ruleSeed := vm.RuleSeed(tickSeed, r.NameStr)

		var candidates []match.Bindings
		for _, b := range raw {
			b, err := applyLets(r, b, world, program, ruleSeed, tick)
			if err != nil {
				return nil, err
			}
			ok, err := passesGuards(r, b, world, program, ruleSeed, tick)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			candidates = append(candidates, b)
		}

		if r.OrderBy != nil {
			if err := sortByOrderBy(r, candidates, world, program, ruleSeed, tick); err != nil {
				return nil, err
			}
		}
		if r.Limit > 0 && len(candidates) > r.Limit {
			candidates = candidates[:r.Limit]
		}

		for _, b := range candidates {
			act := newActivation(r, b)
			if refracted[act.Key] {
				continue
			}
			out = append(out, act)
		}
	}
	return out, nil
}

// applyLets evaluates each of r's let-bindings in declaration order against
// the bindings accumulated so far, extending b with each result before the
// next let (or a guard referencing it) runs.
func applyLets(r *CompiledRule, b match.Bindings, world *store.World, program *vm.Program, seed uint64, tick uint64) (match.Bindings, error) {
	if len(r.Lets) == 0 {
		return b, nil
	}
	b = b.Clone()
	for _, let := range r.Lets {
		result, err := evalExpr(program, world, let.Chunk, flattenBindings(r.BindingOrder, b), seed, tick)
		if err != nil {
			return nil, err
		}
		b[let.Name] = result
	}
	return b, nil
}

// passesGuards evaluates every guard's chunk against b, short-circuiting on
// the first guard whose result is not truthy. A rule with no guards always
// passes.
func passesGuards(r *CompiledRule, b match.Bindings, world *store.World, program *vm.Program, seed uint64, tick uint64) (bool, error) {
	if len(r.Guards) == 0 {
		return true, nil
	}
	bindingsSlice := flattenBindings(r.BindingOrder, b)
	for _, g := range r.Guards {
		if g.Chunk == nil {
			continue
		}
		result, err := evalExpr(program, world, g.Chunk, bindingsSlice, seed, tick)
		if err != nil {
			return false, err
		}
		if !result.Truthy() {
			return false, nil
		}
	}
	return true, nil
}

// sortByOrderBy sorts candidates in place by r.OrderBy's bytecode key,
// evaluated once per candidate against its own bindings.
func sortByOrderBy(r *CompiledRule, candidates []match.Bindings, world *store.World, program *vm.Program, seed uint64, tick uint64) error {
	if r.OrderBy.Chunk == nil || len(candidates) < 2 {
		return nil
	}
	keys := make([]value.Value, len(candidates))
	for i, b := range candidates {
		k, err := evalExpr(program, world, r.OrderBy.Chunk, flattenBindings(r.BindingOrder, b), seed, tick)
		if err != nil {
			return err
		}
		keys[i] = k
	}
	idx := make([]int, len(candidates))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		if r.OrderBy.Descending {
			return orderByLess(keys[idx[j]], keys[idx[i]])
		}
		return orderByLess(keys[idx[i]], keys[idx[j]])
	})
	sorted := make([]match.Bindings, len(candidates))
	for i, j := range idx {
		sorted[i] = candidates[j]
	}
	copy(candidates, sorted)
	return nil
}

// orderByLess compares two order-by keys numerically when both are numeric,
// falling back to hash comparison for any other value kind so sorting stays
// total and deterministic regardless of the key's type.
func orderByLess(a, b value.Value) bool {
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if aok && bok {
		return af < bf
	}
	return a.Hash() < b.Hash()
}

func asFloat(v value.Value) (float64, bool) {
	switch v.Kind() {
	case value.KindInt:
		return float64(v.Int()), true
	case value.KindFloat:
		return v.Float(), true
	default:
		return 0, false
	}
}

// applyAggregate groups raw binding sets by the aggregate's GroupBy
// variables and reduces each group's Value column with combineValues,
// producing one binding set per group with As bound to the result. The
// Aggregate's Combine chunk is not evaluated. A rule with no Aggregate
// passes raw through unchanged.
func applyAggregate(r *CompiledRule, raw []match.Bindings) []match.Bindings {
	if r.Aggregate == nil {
		return raw
	}
	groups := map[string][]match.Bindings{}
	var order []string
	for _, b := range raw {
		key := bindingKey("", subsetBindings(b, r.Aggregate.GroupBy))
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], b)
	}
	out := make([]match.Bindings, 0, len(order))
	for _, key := range order {
		members := groups[key]
		acc := r.Aggregate.Init
		for _, m := range members {
			acc = combineValues(acc, m[r.Aggregate.Value])
		}
		result := members[0].Clone()
		result[r.Aggregate.As] = acc
		out = append(out, result)
	}
	return out
}

// combineValues is the only reducer applyAggregate uses, whether or not
// the Aggregate carries a Combine chunk: int plus int sums, any other pair
// adds one to the accumulator (a count).
func combineValues(acc, next value.Value) value.Value {
	if acc.Kind() == value.KindInt && next.Kind() == value.KindInt {
		return value.Int(acc.Int() + next.Int())
	}
	return value.Int(acc.Int() + 1)
}

func subsetBindings(b match.Bindings, vars []match.Var) match.Bindings {
	out := match.Bindings{}
	for _, v := range vars {
		out[v] = b[v]
	}
	return out
}

// sortActivations sorts by (salience DESC, specificity DESC, declaration
// order ASC), then by key as a final deterministic tie-break (spec.md
// §4.9).
func sortActivations(acts []Activation) {
	sort.SliceStable(acts, func(i, j int) bool {
		a, b := acts[i], acts[j]
		if a.Rule.Salience != b.Rule.Salience {
			return a.Rule.Salience > b.Rule.Salience
		}
		as, bs := a.Rule.Specificity(), b.Rule.Specificity()
		if as != bs {
			return as > bs
		}
		if a.Rule.Declaration != b.Rule.Declaration {
			return a.Rule.Declaration < b.Rule.Declaration
		}
		return a.Key < b.Key
	})
}
