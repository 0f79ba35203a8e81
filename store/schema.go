package store

import "github.com/ndouglas/longtable/value"

// FieldType names the expected type of a component field. It mirrors
// value.Kind but is declared separately because a schema also needs "any"
// (no type constraint) which value.Kind doesn't represent.
type FieldType uint8

const (
	FieldAny FieldType = iota
	FieldBool
	FieldInt
	FieldFloat
	FieldString
	FieldSymbol
	FieldKeyword
	FieldEntity
	FieldVector
	FieldSet
	FieldMap
)

func (t FieldType) accepts(k value.Kind) bool {
	if t == FieldAny {
		return true
	}
	want := map[FieldType]value.Kind{
		FieldBool: value.KindBool, FieldInt: value.KindInt, FieldFloat: value.KindFloat,
		FieldString: value.KindString, FieldSymbol: value.KindSymbol, FieldKeyword: value.KindKeyword,
		FieldEntity: value.KindEntity, FieldVector: value.KindVector, FieldSet: value.KindSet, FieldMap: value.KindMap,
	}[t]
	return want == k
}

func (t FieldType) String() string {
	names := [...]string{"any", "bool", "int", "float", "string", "symbol", "keyword", "entity", "vector", "set", "map"}
	if int(t) < len(names) {
		return names[t]
	}
	return "?"
}

// FieldSpec declares one field of a ComponentSchema.
type FieldSpec struct {
	Name     value.Symbol
	Type     FieldType
	Default  value.Value
	HasDefault bool
	Required bool
}

// ComponentSchema names a component (spec.md §3). Three shapes:
//
//   - Tag=true: a single-boolean shorthand — presence on the archetype *is*
//     the value, there is no per-entity payload beyond that.
//   - len(Fields) > 0: a structured component whose stored Value is always
//     a value.Map keyed by field-name Symbol, e.g. `:health {:current 100
//     :max 100}`; set_field/get_field index into that map.
//   - otherwise: a scalar component whose stored Value is used directly
//     (no wrapping), type-checked against ValueType, e.g. `:counter 0`.
type ComponentSchema struct {
	Name      value.Symbol
	Fields    []FieldSpec
	Tag       bool
	ValueType FieldType
}

func (s ComponentSchema) field(name value.Symbol) (FieldSpec, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// Cardinality constrains how many outgoing/incoming edges of a relationship
// type a single entity may have (spec.md §3, §4.5).
type Cardinality uint8

const (
	OneToOne Cardinality = iota
	OneToMany
	ManyToOne
	ManyToMany
)

// OnTargetDelete is the policy applied to a relationship instance when one
// of its endpoints is destroyed.
type OnTargetDelete uint8

const (
	DeleteRemove OnTargetDelete = iota
	DeleteCascade
	DeleteNullify
)

// OnViolation is the policy applied when a link() call would break the
// relationship's declared cardinality.
type OnViolation uint8

const (
	ViolationError OnViolation = iota
	ViolationReplace
)

// RelationshipSchema names a relationship and its structural constraints
// (spec.md §3).
type RelationshipSchema struct {
	Name           value.Symbol
	Cardinality    Cardinality
	OnTargetDelete OnTargetDelete
	OnViolation    OnViolation
	Optional       bool // required for OnTargetDelete=DeleteNullify, per spec.md §4.5
	Attributes     []FieldSpec
}

// SystemSymbols holds the interned handles for the three system
// components every rel-entity carries (spec.md §3: `rel/type`,
// `rel/source`, `rel/target`), resolved once against a World's Interner.
type SystemSymbols struct {
	RelType   value.Symbol
	RelSource value.Symbol
	RelTarget value.Symbol
}

// NewSystemSymbols interns the reserved rel/* names against in.
func NewSystemSymbols(in *value.Interner) SystemSymbols {
	return SystemSymbols{
		RelType:   in.InternSymbol("rel", "type"),
		RelSource: in.InternSymbol("rel", "source"),
		RelTarget: in.InternSymbol("rel", "target"),
	}
}
