package derived

import (
	"encoding/binary"

	"github.com/TheBitDrifter/bark"
	"github.com/cespare/xxhash/v2"

	"github.com/ndouglas/longtable/match"
	"github.com/ndouglas/longtable/store"
	"github.com/ndouglas/longtable/value"
	"github.com/ndouglas/longtable/vm"
)

// DefaultMaxDepth is the kill-switch default for derived evaluation
// recursion (spec.md §6 "max derived evaluation depth = 100").
const DefaultMaxDepth = 100

// DefaultCacheSize bounds the per-Evaluator LRU so a long-running world's
// cache doesn't grow without limit.
const DefaultCacheSize = 4096

type guardEntry struct {
	entity value.EntityID
	name   value.Symbol
}

// nullWriter discards output; derived expressions evaluate as pure reads
// and never need a real OutputWriter.
type nullWriter struct{}

func (nullWriter) WriteString(string) {}

// Evaluator caches and evaluates Defs against a World (spec.md §4.10
// "Derived"). Its program and definitions are fixed at construction;
// evaluating against a different program takes a fresh Evaluator.
type Evaluator struct {
	program  *vm.Program
	defs     map[value.Symbol]*Def
	cache    *cache
	gen      *generationTracker
	maxDepth int
	stack    []guardEntry
}

// NewEvaluator builds an Evaluator over defs, compiled against program.
func NewEvaluator(program *vm.Program, defs []*Def, maxDepth int) *Evaluator {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	byName := make(map[value.Symbol]*Def, len(defs))
	for _, d := range defs {
		byName[d.Name] = d
	}
	return &Evaluator{
		program:  program,
		defs:     byName,
		cache:    newCache(DefaultCacheSize),
		gen:      &generationTracker{},
		maxDepth: maxDepth,
	}
}

// Get evaluates (or returns the cached result of evaluating) the derived
// component name on entity within world.
func (e *Evaluator) Get(world *store.World, entity value.EntityID, name value.Symbol) (value.Value, error) {
	generation := e.gen.observe(world)
	if v, ok := e.cache.get(entity, name, generation); ok {
		return v, nil
	}
	v, err := e.eval(world, entity, name)
	if err != nil {
		return value.Nil, err
	}
	e.cache.put(entity, name, generation, v)
	return v, nil
}

// eval runs def's pattern plan bound to ?self = entity, aggregates if
// configured, and executes Expr — maintaining the guard stack that detects
// runtime cycles (spec.md §4.10 "A guard stack... detects runtime cycles").
// A Get made on the same Evaluator while eval is running (for example from
// a host-registered native) pushes onto the same stack; this package
// defines no such native itself.
func (e *Evaluator) eval(world *store.World, entity value.EntityID, name value.Symbol) (value.Value, error) {
	def, ok := e.defs[name]
	if !ok {
		return value.Nil, bark.AddTrace(NotFoundError{Name: symbolName(world, name)})
	}

	entry := guardEntry{entity: entity, name: name}
	for _, g := range e.stack {
		if g == entry {
			return value.Nil, bark.AddTrace(InfiniteLoopError{Name: symbolName(world, name), Depth: len(e.stack)})
		}
	}
	if len(e.stack) >= e.maxDepth {
		return value.Nil, bark.AddTrace(MaxDepthError{Name: symbolName(world, name), Limit: e.maxDepth})
	}
	e.stack = append(e.stack, entry)
	defer func() { e.stack = e.stack[:len(e.stack)-1] }()

	var raw []match.Bindings
	err := match.Run(world, withEntrySelf(def.Plan, def.SelfVar, entity), 0, func(b match.Bindings) bool {
		raw = append(raw, b)
		return true
	})
	if err != nil {
		return value.Nil, err
	}
	raw = applyDerivedAggregate(def.Aggregate, raw)

	bindingsSlice := make([]value.Value, len(def.BindingOrder))
	if len(raw) > 0 {
		for i, v := range def.BindingOrder {
			bindingsSlice[i] = raw[0][v]
		}
	}

	seed64 := derivedSeed(world.Seed, entity, name)
	machine := vm.New(e.program)
	ctx := vm.NewContext(world, vm.EffectModeBuffered, vm.NewRand(seed64), nullWriter{}, store.NewEffectLog(),
		store.EffectSource{Kind: store.SourceExternal}, world.Tick)
	ctx.PureOnly = true
	result, err := machine.Run(def.Expr, nil, nil, bindingsSlice, ctx)
	ctx.DiscardIntents()
	if err != nil {
		return value.Nil, err
	}
	return result, nil
}

// withEntrySelf rewires plan's entry point to the already-known entity, so
// the pattern plan runs scoped to ?self instead of scanning every entity
// carrying the plan's first component.
func withEntrySelf(plan *match.Plan, self match.Var, entity value.EntityID) *match.Plan {
	clone := *plan
	clone.EntryVar = self
	clone.EntryValue = value.Entity(entity)
	return &clone
}

func applyDerivedAggregate(agg *Aggregate, raw []match.Bindings) []match.Bindings {
	if agg == nil {
		return raw
	}
	if len(raw) == 0 {
		return raw
	}
	acc := agg.Init
	for _, b := range raw {
		next := b[agg.Value]
		if acc.Kind() == value.KindInt && next.Kind() == value.KindInt {
			acc = value.Int(acc.Int() + next.Int())
		} else {
			acc = value.Int(acc.Int() + 1)
		}
	}
	result := raw[0].Clone()
	result[agg.As] = acc
	return []match.Bindings{result}
}

func derivedSeed(worldSeed uint64, entity value.EntityID, name value.Symbol) uint64 {
	h := xxhash.New()
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[0:8], worldSeed)
	binary.LittleEndian.PutUint32(buf[8:12], entity.Index)
	binary.LittleEndian.PutUint32(buf[12:16], uint32(name.Name))
	h.Write(buf[:])
	return h.Sum64()
}

func symbolName(world *store.World, s value.Symbol) string {
	return world.Registry.Interner.String(s)
}
