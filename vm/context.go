package vm

import (
	"github.com/ndouglas/longtable/store"
	"github.com/ndouglas/longtable/value"
)

// EffectMode selects how the effect choke-point applies a mutation opcode
// (spec.md §4.7 "Effect choke-point"): Direct writes straight through to
// the working world; Buffered appends an intent to Intents instead. The
// rule engine runs a rule's :then body in Direct mode, and uses Buffered
// for pure evaluations (guards, lets, order-by, derived values,
// constraint checks), whose intents it then discards.
type EffectMode uint8

const (
	EffectModeDirect EffectMode = iota
	EffectModeBuffered
)

// EffectIntent is a not-yet-applied mutation recorded by the choke-point
// while running in EffectModeBuffered.
type EffectIntent struct {
	Kind      store.EffectKind
	Entity    value.EntityID
	Component value.Symbol
	Field     value.Symbol
	Values    map[value.Symbol]value.Value // spawn payload
	Value     value.Value                  // set/set-field payload
	Rel       value.Symbol
	Target    value.EntityID
}

// OutputWriter is the narrow interface a VM writes `print!`-style native
// output through. tick.OutputBuffer implements it; natives never see the
// concrete type, only this seam (spec.md §9 Open Question 2 decision:
// per-working-world buffering, flushed on commit).
type OutputWriter interface {
	WriteString(s string)
}

// Context is the mutable handle a running VM and its natives see: the
// working world (read or read/write per the active native's purity), the
// RNG seed chain, an output writer, and the effect log — plus the single
// choke-point every effect opcode and every effectful native routes
// through (spec.md §6 "Native-function ABI").
type Context struct {
	World  *store.World
	Mode   EffectMode
	Rand   *Rand
	Output OutputWriter
	Log    *store.EffectLog
	Source store.EffectSource

	Tick uint64

	// Intents accumulates buffered effects in EffectModeBuffered; the rule
	// engine and the derived/constraint evaluators drop them with
	// DiscardIntents after each pure evaluation.
	Intents []EffectIntent

	// FailOnNaN turns a NaN-producing arithmetic op into a runtime error
	// instead of letting NaN propagate (spec.md §6 "fail_on_nan flag"). Off
	// by default; the tick executor sets it from its Config.
	FailOnNaN bool

	// PureOnly marks a context as the purity sandbox (spec.md §4.7 "guard,
	// let, order-by, and derived-component expressions may only call pure,
	// deterministic natives"): callNative rejects any native that isn't
	// both Pure and Deterministic while this is set. It is independent of
	// Mode — Mode picks direct-vs-buffered effect application, PureOnly
	// picks whether effectful natives are allowed at all. Off by default;
	// evalExpr (rule/engine.go) and the derived/constraint evaluators set
	// it explicitly. A rule's :then body runs with PureOnly false even
	// though nothing else does, since it is the one place spec.md allows
	// effectful natives.
	PureOnly bool
}

func NewContext(world *store.World, mode EffectMode, rnd *Rand, output OutputWriter, log *store.EffectLog, source store.EffectSource, tick uint64) *Context {
	return &Context{World: world, Mode: mode, Rand: rnd, Output: output, Log: log, Source: source, Tick: tick}
}

// applyEffect is the single choke-point (spec.md §4.7): every mutation —
// whether issued by an opcode handler or an effectful native — passes
// through here, so direct-vs-buffered and the effect log never need a
// second implementation.
func (c *Context) applyEffect(intent EffectIntent) (value.Value, error) {
	if c.Mode == EffectModeBuffered {
		c.Intents = append(c.Intents, intent)
		return value.Nil, nil
	}
	return c.applyDirect(intent)
}

func (c *Context) applyDirect(intent EffectIntent) (value.Value, error) {
	switch intent.Kind {
	case store.EffectSpawn:
		nw, id, err := c.World.Spawn(intent.Values)
		if err != nil {
			return value.Nil, err
		}
		c.World = nw
		c.Log.Append(store.EffectRecord{Tick: c.Tick, Entity: id, Kind: store.EffectSpawn, New: value.Entity(id), Source: c.Source})
		return value.Entity(id), nil

	case store.EffectDestroy:
		nw, err := c.World.Destroy(intent.Entity)
		if err != nil {
			return value.Nil, err
		}
		c.World = nw
		c.Log.Append(store.EffectRecord{Tick: c.Tick, Entity: intent.Entity, Kind: store.EffectDestroy, Source: c.Source})
		return value.Nil, nil

	case store.EffectSet:
		old := c.World.Get(intent.Entity, intent.Component)
		nw, err := c.World.Set(intent.Entity, intent.Component, intent.Value)
		if err != nil {
			return value.Nil, err
		}
		c.World = nw
		c.Log.Append(store.EffectRecord{Tick: c.Tick, Entity: intent.Entity, Kind: store.EffectSet, Component: intent.Component, Old: old, New: intent.Value, Source: c.Source})
		return intent.Value, nil

	case store.EffectSetField:
		old := c.World.GetField(intent.Entity, intent.Component, intent.Field)
		nw, err := c.World.SetField(intent.Entity, intent.Component, intent.Field, intent.Value)
		if err != nil {
			return value.Nil, err
		}
		c.World = nw
		c.Log.Append(store.EffectRecord{Tick: c.Tick, Entity: intent.Entity, Kind: store.EffectSetField, Component: intent.Component, Field: intent.Field, Old: old, New: intent.Value, Source: c.Source})
		return intent.Value, nil

	case store.EffectLink:
		nw, relEntity, err := c.World.Link(intent.Rel, intent.Entity, intent.Target)
		if err != nil {
			return value.Nil, err
		}
		c.World = nw
		c.Log.Append(store.EffectRecord{Tick: c.Tick, Entity: relEntity, Kind: store.EffectLink, Component: intent.Rel, New: value.Entity(intent.Target), Source: c.Source})
		return value.Entity(relEntity), nil

	case store.EffectUnlink:
		nw, err := c.World.Unlink(intent.Rel, intent.Entity, intent.Target)
		if err != nil {
			return value.Nil, err
		}
		c.World = nw
		c.Log.Append(store.EffectRecord{Tick: c.Tick, Entity: intent.Entity, Kind: store.EffectUnlink, Component: intent.Rel, Old: value.Entity(intent.Target), Source: c.Source})
		return value.Nil, nil
	}
	return value.Nil, nil
}

// FlushIntents applies every buffered intent, in order, switching briefly
// to direct mode so nested applyEffect calls don't re-buffer. Nothing in
// this module calls it; the rule engine applies :then effects directly.
func (c *Context) FlushIntents() error {
	pending := c.Intents
	c.Intents = nil
	saved := c.Mode
	c.Mode = EffectModeDirect
	defer func() { c.Mode = saved }()
	for _, intent := range pending {
		if _, err := c.applyDirect(intent); err != nil {
			return err
		}
	}
	return nil
}

// DiscardIntents drops every buffered intent without applying them, used
// after every pure (buffered-mode) evaluation.
func (c *Context) DiscardIntents() {
	c.Intents = nil
}
