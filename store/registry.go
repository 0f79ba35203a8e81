package store

import (
	"sort"

	"github.com/TheBitDrifter/bark"
	"github.com/ndouglas/longtable/value"
)

// Registry holds the component and relationship schemas declared at program
// load (spec.md §3: "Schemas are registered once at program load and never
// mutated during ticks"). It is built once via RegisterComponent/
// RegisterRelationship and then shared, read-only, by every World snapshot
// that descends from the load — the same role the teacher's package-level
// Config plays for table events, generalized to per-program state instead
// of per-process state.
type Registry struct {
	Interner      *value.Interner
	Sys           SystemSymbols
	components    map[value.Symbol]ComponentSchema
	relationships map[value.Symbol]RelationshipSchema
	bits          map[value.Symbol]uint32
	nextBit       uint32
}

// NewRegistry returns a Registry bound to interner, with the three reserved
// rel/* system components pre-registered (every rel-entity archetype needs
// a stable bit for them regardless of which relationship types the caller
// goes on to declare).
func NewRegistry(interner *value.Interner) *Registry {
	r := &Registry{
		Interner:      interner,
		Sys:           NewSystemSymbols(interner),
		components:    make(map[value.Symbol]ComponentSchema),
		relationships: make(map[value.Symbol]RelationshipSchema),
		bits:          make(map[value.Symbol]uint32),
	}
	r.installSystemComponent(ComponentSchema{Name: r.Sys.RelType, ValueType: FieldKeyword})
	r.installSystemComponent(ComponentSchema{Name: r.Sys.RelSource, ValueType: FieldEntity})
	r.installSystemComponent(ComponentSchema{Name: r.Sys.RelTarget, ValueType: FieldEntity})
	return r
}

func (r *Registry) installSystemComponent(schema ComponentSchema) {
	r.components[schema.Name] = schema
	r.bits[schema.Name] = r.nextBit
	r.nextBit++
}

func isReserved(interner *value.Interner, sym value.Symbol) bool {
	if sym.NS == value.NoHandle {
		return false
	}
	return value.ReservedNamespaces[interner.Resolve(sym.NS)]
}

// RegisterComponent validates and installs a ComponentSchema. Fails on a
// duplicate name, a reserved namespace, or a field default whose type
// doesn't match the field's declared type (spec.md §4.4).
func (r *Registry) RegisterComponent(schema ComponentSchema) error {
	if isReserved(r.Interner, schema.Name) {
		return bark.AddTrace(ReservedNamespaceError{Namespace: r.Interner.Resolve(schema.Name.NS)})
	}
	if _, exists := r.components[schema.Name]; exists {
		return bark.AddTrace(DuplicateSchemaError{Name: schema.Name})
	}
	for _, f := range schema.Fields {
		if f.HasDefault && !f.Type.accepts(f.Default.Kind()) {
			return bark.AddTrace(SchemaViolationError{
				Component: schema.Name, Field: f.Name, Expected: f.Type, Actual: f.Default.Kind(),
			})
		}
	}
	r.components[schema.Name] = schema
	r.bits[schema.Name] = r.nextBit
	r.nextBit++
	return nil
}

// RegisterRelationship validates and installs a RelationshipSchema. The
// three rel/* components it needs are already installed by NewRegistry, so
// no additional component bit is consumed per relationship type.
func (r *Registry) RegisterRelationship(schema RelationshipSchema) error {
	if isReserved(r.Interner, schema.Name) {
		return bark.AddTrace(ReservedNamespaceError{Namespace: r.Interner.Resolve(schema.Name.NS)})
	}
	if schema.OnTargetDelete == DeleteNullify && !schema.Optional {
		return bark.AddTrace(SchemaViolationError{Component: schema.Name})
	}
	if _, exists := r.relationships[schema.Name]; exists {
		return bark.AddTrace(DuplicateSchemaError{Name: schema.Name})
	}
	r.relationships[schema.Name] = schema
	return nil
}

func (r *Registry) Component(name value.Symbol) (ComponentSchema, bool) {
	s, ok := r.components[name]
	return s, ok
}

func (r *Registry) Relationship(name value.Symbol) (RelationshipSchema, bool) {
	s, ok := r.relationships[name]
	return s, ok
}

// IsRelationship reports whether name is a registered relationship type —
// used by the pattern matcher (spec.md §4.8) to decide whether a clause's
// component position should be expanded into a three-clause rel-entity
// pattern.
func (r *Registry) IsRelationship(name value.Symbol) bool {
	_, ok := r.relationships[name]
	return ok
}

// BitFor returns the archetype-signature bit assigned to component at
// registration time, mirroring the teacher's schema.RowIndexFor.
func (r *Registry) BitFor(component value.Symbol) (uint32, bool) {
	b, ok := r.bits[component]
	return b, ok
}

// sortedComponents returns every registered component keyword in a stable,
// deterministic order; World.ContentHash walks components in this order
// (spec.md §4.4, §4.8).
func (r *Registry) sortedComponents() []value.Symbol {
	out := make([]value.Symbol, 0, len(r.components))
	for k := range r.components {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].NS != out[j].NS {
			return out[i].NS < out[j].NS
		}
		return out[i].Name < out[j].Name
	})
	return out
}
