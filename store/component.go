package store

import (
	"github.com/TheBitDrifter/bark"
	"github.com/TheBitDrifter/mask"
	"github.com/benbjohnson/immutable"
	"github.com/ndouglas/longtable/value"
)

type rowLocation struct {
	archetype archetypeID
	row       int
}

type entityIDHasher struct{}

func (entityIDHasher) Hash(e value.EntityID) uint32 {
	return e.Index*2654435761 ^ e.Generation
}
func (entityIDHasher) Equal(a, b value.EntityID) bool { return a == b }

// ComponentStore is the archetype table (C4): a registry-bound collection
// of ArchetypeData shapes plus the entity->(archetype,row) side table. The
// whole store is persistent — every method returns a new *ComponentStore
// (the teacher's `storage` struct generalized from "the one mutable
// storage" to "a value embedded in World").
type ComponentStore struct {
	registry  *Registry
	byKey     *immutable.Map[mask.Mask, archetypeID]
	shapes    *immutable.List[archetypeShape]
	data      *immutable.Map[archetypeID, *ArchetypeData]
	locations *immutable.Map[value.EntityID, rowLocation]
}

func NewComponentStore(registry *Registry) *ComponentStore {
	return &ComponentStore{
		registry:  registry,
		byKey:     immutable.NewMap[mask.Mask, archetypeID](maskHasher{}),
		shapes:    immutable.NewList[archetypeShape](),
		data:      immutable.NewMap[archetypeID, *ArchetypeData](archetypeIDHasher{}),
		locations: immutable.NewMap[value.EntityID, rowLocation](entityIDHasher{}),
	}
}

func (cs *ComponentStore) clone() *ComponentStore {
	c := *cs
	return &c
}

// archetypeFor returns the shape for components, registering a new
// archetype (and its empty ArchetypeData) the first time this exact
// signature is seen.
func (cs *ComponentStore) archetypeFor(components []value.Symbol) (*ComponentStore, archetypeShape, error) {
	key, err := maskFor(cs.registry, components)
	if err != nil {
		return cs, archetypeShape{}, bark.AddTrace(err)
	}
	if id, ok := cs.byKey.Get(key); ok {
		return cs, cs.shapes.Get(int(id) - 1), nil
	}
	shape := archetypeShape{
		id:         archetypeID(cs.shapes.Len() + 1),
		components: sortedCopy(components),
		key:        key,
	}
	nc := cs.clone()
	nc.shapes = cs.shapes.Append(shape)
	nc.byKey = cs.byKey.Set(key, shape.id)
	nc.data = cs.data.Set(shape.id, newArchetypeData(shape.components))
	return nc, shape, nil
}

// Spawn places a freshly-allocated entity into the archetype matching the
// supplied initial component values (spec.md §4.4, analogous to the
// teacher's Storage.NewEntities).
func (cs *ComponentStore) Spawn(entity value.EntityID, values map[value.Symbol]value.Value) (*ComponentStore, error) {
	components := make([]value.Symbol, 0, len(values))
	for c := range values {
		components = append(components, c)
	}
	nc, shape, err := cs.archetypeFor(components)
	if err != nil {
		return cs, err
	}
	nc = nc.clone()
	ad := nc.data.Get(shape.id)
	row := ad.Len()
	nc.data = nc.data.Set(shape.id, ad.AppendRow(entity, values))
	nc.locations = nc.locations.Set(entity, rowLocation{archetype: shape.id, row: row})
	return nc, nil
}

// componentsOf returns the shape's component list for an already-located entity.
func (cs *ComponentStore) componentsOf(loc rowLocation) []value.Symbol {
	return cs.shapes.Get(int(loc.archetype) - 1).components
}

// Set installs value for (entity, component), migrating the entity to the
// archetype that includes component if it doesn't already have it
// (spec.md §4.4). Type-checks scalar schemas only; tag schemas accept any
// value unchecked, and structured (Fields>0)
// schemas are set via SetField instead and expect a value.Map payload here
// only when replacing the whole component at once.
func (cs *ComponentStore) Set(entity value.EntityID, component value.Symbol, val value.Value) (*ComponentStore, error) {
	schema, ok := cs.registry.Component(component)
	if !ok {
		return cs, bark.AddTrace(ComponentNotFoundError{Entity: entity, Component: component})
	}
	if !schema.Tag && len(schema.Fields) == 0 && !schema.ValueType.accepts(val.Kind()) {
		return cs, bark.AddTrace(SchemaViolationError{Component: component, Expected: schema.ValueType, Actual: val.Kind()})
	}

	loc, has := cs.locations.Get(entity)
	if has {
		for _, c := range cs.componentsOf(loc) {
			if c == component {
				ad := cs.data.Get(loc.archetype)
				nc := cs.clone()
				nc.data = cs.data.Set(loc.archetype, ad.Set(loc.row, component, val))
				return nc, nil
			}
		}
	}

	// New component for this entity: migrate to a bigger archetype.
	oldComponents := []value.Symbol{}
	oldValues := map[value.Symbol]value.Value{}
	if has {
		oldComponents = cs.componentsOf(loc)
		ad := cs.data.Get(loc.archetype)
		for _, c := range oldComponents {
			oldValues[c] = ad.Get(loc.row, c)
		}
	}
	newComponents := append(append([]value.Symbol(nil), oldComponents...), component)
	oldValues[component] = val

	nc, shape, err := cs.archetypeFor(newComponents)
	if err != nil {
		return cs, err
	}
	nc = nc.clone()
	destData := nc.data.Get(shape.id)
	row := destData.Len()
	nc.data = nc.data.Set(shape.id, destData.AppendRow(entity, oldValues))
	nc.locations = nc.locations.Set(entity, rowLocation{archetype: shape.id, row: row})

	if has {
		nc = nc.removeFromArchetype(loc)
	}
	return nc, nil
}

// SetField updates one field of a structured component's map value
// (spec.md §4.4). The component must already exist on entity (add it with
// Set first, using an empty value.NewMap() payload, to create it).
func (cs *ComponentStore) SetField(entity value.EntityID, component, field value.Symbol, val value.Value) (*ComponentStore, error) {
	schema, ok := cs.registry.Component(component)
	if !ok {
		return cs, bark.AddTrace(ComponentNotFoundError{Entity: entity, Component: component})
	}
	fieldSpec, ok := schema.field(field)
	if !ok {
		return cs, bark.AddTrace(SchemaViolationError{Component: component, Field: field})
	}
	if !fieldSpec.Type.accepts(val.Kind()) {
		return cs, bark.AddTrace(SchemaViolationError{Component: component, Field: field, Expected: fieldSpec.Type, Actual: val.Kind()})
	}
	loc, has := cs.locations.Get(entity)
	if !has {
		return cs, bark.AddTrace(ComponentNotFoundError{Entity: entity, Component: component})
	}
	found := false
	for _, c := range cs.componentsOf(loc) {
		if c == component {
			found = true
			break
		}
	}
	if !found {
		return cs, bark.AddTrace(ComponentNotFoundError{Entity: entity, Component: component})
	}
	ad := cs.data.Get(loc.archetype)
	current := ad.Get(loc.row, component)
	m := current.Map()
	if m == nil {
		m = value.NewMap()
	}
	m = m.Set(value.Keyword(field), val)
	nc := cs.clone()
	nc.data = cs.data.Set(loc.archetype, ad.Set(loc.row, component, value.FromMap(m)))
	return nc, nil
}

// Get reads a whole component value, returning value.Nil if absent.
func (cs *ComponentStore) Get(entity value.EntityID, component value.Symbol) value.Value {
	loc, has := cs.locations.Get(entity)
	if !has {
		return value.Nil
	}
	for _, c := range cs.componentsOf(loc) {
		if c == component {
			return cs.data.Get(loc.archetype).Get(loc.row, component)
		}
	}
	return value.Nil
}

// GetField reads one field of a structured component's map value, returning
// value.Nil (or the field's schema default, if one was declared) if absent.
func (cs *ComponentStore) GetField(entity value.EntityID, component, field value.Symbol) value.Value {
	whole := cs.Get(entity, component)
	m := whole.Map()
	fallback := func() value.Value {
		if schema, ok := cs.registry.Component(component); ok {
			if fs, ok := schema.field(field); ok && fs.HasDefault {
				return fs.Default
			}
		}
		return value.Nil
	}
	if m == nil {
		return fallback()
	}
	v, ok := m.Get(value.Keyword(field))
	if !ok {
		return fallback()
	}
	return v
}

// Has reports whether entity currently carries component.
func (cs *ComponentStore) Has(entity value.EntityID, component value.Symbol) bool {
	loc, has := cs.locations.Get(entity)
	if !has {
		return false
	}
	for _, c := range cs.componentsOf(loc) {
		if c == component {
			return true
		}
	}
	return false
}

// Remove migrates entity to the archetype without component, returning the
// component's old value (spec.md §4.4).
func (cs *ComponentStore) Remove(entity value.EntityID, component value.Symbol) (*ComponentStore, value.Value, error) {
	loc, has := cs.locations.Get(entity)
	if !has {
		return cs, value.Nil, bark.AddTrace(ComponentNotFoundError{Entity: entity, Component: component})
	}
	oldComponents := cs.componentsOf(loc)
	ad := cs.data.Get(loc.archetype)
	oldVal := ad.Get(loc.row, component)
	found := false
	newComponents := make([]value.Symbol, 0, len(oldComponents))
	values := map[value.Symbol]value.Value{}
	for _, c := range oldComponents {
		if c == component {
			found = true
			continue
		}
		newComponents = append(newComponents, c)
		values[c] = ad.Get(loc.row, c)
	}
	if !found {
		return cs, value.Nil, bark.AddTrace(ComponentNotFoundError{Entity: entity, Component: component})
	}

	nc, shape, err := cs.archetypeFor(newComponents)
	if err != nil {
		return cs, value.Nil, err
	}
	nc = nc.clone()
	destData := nc.data.Get(shape.id)
	row := destData.Len()
	nc.data = nc.data.Set(shape.id, destData.AppendRow(entity, values))
	nc.locations = nc.locations.Set(entity, rowLocation{archetype: shape.id, row: row})
	nc = nc.removeFromArchetype(loc)
	return nc, oldVal, nil
}

// Destroy removes entity's row entirely (no replacement archetype) — used
// when the entity itself is being destroyed.
func (cs *ComponentStore) Destroy(entity value.EntityID) *ComponentStore {
	loc, has := cs.locations.Get(entity)
	if !has {
		nc := cs.clone()
		nc.locations = cs.locations.Delete(entity)
		return nc
	}
	nc := cs.removeFromArchetype(loc)
	nc.locations = nc.locations.Delete(entity)
	return nc
}

// removeFromArchetype swap-removes loc's row and repoints whichever entity
// got swapped into the vacated slot (spec.md §4.4 migration tie-break).
func (cs *ComponentStore) removeFromArchetype(loc rowLocation) *ComponentStore {
	ad := cs.data.Get(loc.archetype)
	newAd, movedEntity, moved := ad.RemoveRow(loc.row)
	nc := cs.clone()
	nc.data = cs.data.Set(loc.archetype, newAd)
	if moved {
		nc.locations = nc.locations.Set(movedEntity, rowLocation{archetype: loc.archetype, row: loc.row})
	}
	return nc
}

// EachWithComponent yields every live entity carrying component, in
// ascending-archetype-id then ascending-row order (spec.md §4.8
// determinism requirement).
func (cs *ComponentStore) EachWithComponent(component value.Symbol, fn func(value.EntityID) bool) {
	bit, ok := cs.registry.BitFor(component)
	if !ok {
		return
	}
	var want mask.Mask
	want.Mark(bit)
	cs.eachArchetypeContaining(want, func(ad *ArchetypeData) bool {
		for row := 0; row < ad.Len(); row++ {
			if !fn(ad.EntityAt(row)) {
				return false
			}
		}
		return true
	})
}

// EachArchetypeWith yields the ArchetypeData of every archetype whose
// signature is a superset of components, ascending by archetype id.
func (cs *ComponentStore) EachArchetypeWith(components []value.Symbol, fn func(*ArchetypeData) bool) {
	want, err := maskFor(cs.registry, components)
	if err != nil {
		return
	}
	cs.eachArchetypeContaining(want, fn)
}

func (cs *ComponentStore) eachArchetypeContaining(want mask.Mask, fn func(*ArchetypeData) bool) {
	n := cs.shapes.Len()
	for i := 0; i < n; i++ {
		shape := cs.shapes.Get(i)
		if !shape.key.ContainsAll(want) {
			continue
		}
		if !fn(cs.data.Get(shape.id)) {
			return
		}
	}
}
