package store

import "github.com/ndouglas/longtable/value"

// EffectKind enumerates the mutation shapes an EffectRecord can describe
// (spec.md §3 "Effect records").
type EffectKind uint8

const (
	EffectSpawn EffectKind = iota
	EffectDestroy
	EffectSet
	EffectSetField
	EffectLink
	EffectUnlink
)

func (k EffectKind) String() string {
	names := [...]string{"spawn", "destroy", "set", "set-field", "link", "unlink"}
	if int(k) < len(names) {
		return names[k]
	}
	return "?"
}

// SourceKind distinguishes who caused an effect.
type SourceKind uint8

const (
	SourceExternal SourceKind = iota
	SourceRule
	SourceConstraint
)

// EffectSource names the origin of a mutation: an external input, a firing
// rule (optionally with its binding tuple, for provenance), or a
// constraint (on rollback-adjacent bookkeeping).
type EffectSource struct {
	Kind     SourceKind
	Name     value.Symbol
	Bindings map[value.Symbol]value.Value
}

// EffectRecord is the append-only unit of the tick's effect log — the
// exclusive channel external debuggers/tracers use to observe mutations
// (spec.md §3, §6).
type EffectRecord struct {
	Tick      uint64
	Entity    value.EntityID
	Kind      EffectKind
	Component value.Symbol
	Field     value.Symbol
	Old       value.Value
	New       value.Value
	Source    EffectSource
}

// EffectLog accumulates EffectRecords for one tick in program order, plus a
// "last writer per (entity, component[, field])" index maintained
// incrementally as records are appended (spec.md §3: "minimal index is
// always maintained").
type EffectLog struct {
	records    []EffectRecord
	lastWriter map[lastWriterKey]int // index into records
}

type lastWriterKey struct {
	entity    value.EntityID
	component value.Symbol
	field     value.Symbol
}

func NewEffectLog() *EffectLog {
	return &EffectLog{lastWriter: make(map[lastWriterKey]int)}
}

// Append records rec and updates the last-writer index for set/set-field
// effects.
func (l *EffectLog) Append(rec EffectRecord) {
	idx := len(l.records)
	l.records = append(l.records, rec)
	if rec.Kind == EffectSet || rec.Kind == EffectSetField {
		l.lastWriter[lastWriterKey{rec.Entity, rec.Component, rec.Field}] = idx
	}
}

// Records returns the full ordered log.
func (l *EffectLog) Records() []EffectRecord {
	return l.records
}

// Len reports how many effects have been logged, used against the
// max-effects-per-tick kill switch.
func (l *EffectLog) Len() int {
	return len(l.records)
}

// LastWriter returns the EffectRecord that last wrote (entity, component,
// field) within this log, used by `why(...)` provenance queries (spec.md
// §4.9 "write-conflict policy").
func (l *EffectLog) LastWriter(entity value.EntityID, component, field value.Symbol) (EffectRecord, bool) {
	idx, ok := l.lastWriter[lastWriterKey{entity, component, field}]
	if !ok {
		return EffectRecord{}, false
	}
	return l.records[idx], true
}
