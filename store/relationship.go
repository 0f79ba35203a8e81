package store

import (
	"sort"

	"github.com/TheBitDrifter/bark"
	"github.com/benbjohnson/immutable"
	"github.com/ndouglas/longtable/value"
)

// edgeSet is the persistent set of rel-entities indexed under one (entity,
// relationship) key.
type edgeSet = *immutable.Map[value.EntityID, struct{}]

func newEdgeSet() edgeSet {
	return immutable.NewMap[value.EntityID, struct{}](entityIDHasher{})
}

// indexKey pairs an endpoint entity with a relationship type for the
// source/target secondary indices.
type indexKey struct {
	entity value.EntityID
	rel    value.Symbol
}

type indexKeyHasher struct{}

func (indexKeyHasher) Hash(k indexKey) uint32 {
	return entityIDHasher{}.Hash(k.entity)*31 + uint32(symbolHash(k.rel))
}
func (indexKeyHasher) Equal(a, b indexKey) bool { return a == b }

func symbolHash(s value.Symbol) uint32 {
	return uint32(s.NS)*2654435761 ^ uint32(s.Name)
}

// RelationshipStore owns the three secondary indices mirroring the
// component store's rel/* columns (spec.md §4.5): by-source, by-target,
// and by-type. It never touches entity/component data directly — callers
// are expected to keep ComponentStore in sync (World.Link/Unlink does
// both in the same mutation).
type RelationshipStore struct {
	registry *Registry
	bySource *immutable.Map[indexKey, edgeSet]
	byTarget *immutable.Map[indexKey, edgeSet]
	byType   *immutable.Map[value.Symbol, edgeSet]
}

func NewRelationshipStore(registry *Registry) *RelationshipStore {
	return &RelationshipStore{
		registry: registry,
		bySource: immutable.NewMap[indexKey, edgeSet](indexKeyHasher{}),
		byTarget: immutable.NewMap[indexKey, edgeSet](indexKeyHasher{}),
		byType:   immutable.NewMap[value.Symbol, edgeSet](symbolHasher{}),
	}
}

type symbolHasher struct{}

func (symbolHasher) Hash(s value.Symbol) uint32  { return symbolHash(s) }
func (symbolHasher) Equal(a, b value.Symbol) bool { return a == b }

func (rs *RelationshipStore) clone() *RelationshipStore {
	c := *rs
	return &c
}

func addToSet(m *immutable.Map[indexKey, edgeSet], key indexKey, rel value.EntityID) *immutable.Map[indexKey, edgeSet] {
	set, ok := m.Get(key)
	if !ok {
		set = newEdgeSet()
	}
	set = set.Set(rel, struct{}{})
	return m.Set(key, set)
}

func removeFromSet(m *immutable.Map[indexKey, edgeSet], key indexKey, rel value.EntityID) *immutable.Map[indexKey, edgeSet] {
	set, ok := m.Get(key)
	if !ok {
		return m
	}
	set = set.Delete(rel)
	return m.Set(key, set)
}

// Outgoing returns every rel-entity with source == entity and type rel.
func (rs *RelationshipStore) Outgoing(entity value.EntityID, rel value.Symbol) []value.EntityID {
	return setSlice(rs.bySource, indexKey{entity, rel})
}

// Incoming returns every rel-entity with target == entity and type rel.
func (rs *RelationshipStore) Incoming(entity value.EntityID, rel value.Symbol) []value.EntityID {
	return setSlice(rs.byTarget, indexKey{entity, rel})
}

// AllOfType returns every rel-entity of the given relationship type.
func (rs *RelationshipStore) AllOfType(rel value.Symbol) []value.EntityID {
	set, ok := rs.byType.Get(rel)
	if !ok {
		return nil
	}
	return edgeSlice(set)
}

func setSlice(m *immutable.Map[indexKey, edgeSet], key indexKey) []value.EntityID {
	set, ok := m.Get(key)
	if !ok {
		return nil
	}
	return edgeSlice(set)
}

// edgeSlice materializes set in ascending (index, generation) order — the
// rel-entity indices are persistent hash maps internally, so callers that feed this into
// the pattern matcher need a stable order (spec.md §4.8).
func edgeSlice(set edgeSet) []value.EntityID {
	out := make([]value.EntityID, 0, set.Len())
	itr := set.Iterator()
	for !itr.Done() {
		e, _, _ := itr.Next()
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Index != out[j].Index {
			return out[i].Index < out[j].Index
		}
		return out[i].Generation < out[j].Generation
	})
	return out
}

// checkCardinality validates a prospective create(rel, source, target)
// against schema's declared cardinality, returning the edges that must be
// removed first under an on-violation=replace policy (spec.md §4.5).
func (rs *RelationshipStore) checkCardinality(schema RelationshipSchema, source, target value.EntityID) (toReplace []value.EntityID, err error) {
	var conflicting []value.EntityID
	switch schema.Cardinality {
	case OneToOne:
		conflicting = append(conflicting, rs.Outgoing(source, schema.Name)...)
		conflicting = append(conflicting, rs.Incoming(target, schema.Name)...)
	case ManyToOne:
		conflicting = append(conflicting, rs.Outgoing(source, schema.Name)...)
	case OneToMany:
		conflicting = append(conflicting, rs.Incoming(target, schema.Name)...)
	case ManyToMany:
		// no constraint
	}
	if len(conflicting) == 0 {
		return nil, nil
	}
	if schema.OnViolation == ViolationReplace {
		return conflicting, nil
	}
	return nil, bark.AddTrace(ConstraintViolationError{
		Relationship: schema.Name, Source: source, Target: target,
		Message: "cardinality constraint violated",
	})
}

// Index records rel as a (source, rel/type, target) edge in all three
// secondary indices. Callers are responsible for having already created the
// rel-entity and its rel/* components in the ComponentStore.
func (rs *RelationshipStore) Index(rel value.Symbol, relEntity, source, target value.EntityID) *RelationshipStore {
	nrs := rs.clone()
	nrs.bySource = addToSet(rs.bySource, indexKey{source, rel}, relEntity)
	nrs.byTarget = addToSet(rs.byTarget, indexKey{target, rel}, relEntity)
	set, ok := rs.byType.Get(rel)
	if !ok {
		set = newEdgeSet()
	}
	nrs.byType = rs.byType.Set(rel, set.Set(relEntity, struct{}{}))
	return nrs
}

// Unindex removes rel-entity relEntity (of type rel, endpoints source and
// target) from all three secondary indices.
func (rs *RelationshipStore) Unindex(rel value.Symbol, relEntity, source, target value.EntityID) *RelationshipStore {
	nrs := rs.clone()
	nrs.bySource = removeFromSet(rs.bySource, indexKey{source, rel}, relEntity)
	nrs.byTarget = removeFromSet(rs.byTarget, indexKey{target, rel}, relEntity)
	if set, ok := rs.byType.Get(rel); ok {
		nrs.byType = rs.byType.Set(rel, set.Delete(relEntity))
	}
	return nrs
}

// EdgesTouching returns every rel-entity with source == entity OR target ==
// entity, across every registered relationship type — used by
// on_entity_destroyed (spec.md §4.5).
func (rs *RelationshipStore) EdgesTouching(entity value.EntityID) []value.EntityID {
	seen := map[value.EntityID]bool{}
	var out []value.EntityID
	add := func(ids []value.EntityID) {
		for _, id := range ids {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	for rel := range rs.registry.relationships {
		add(rs.Outgoing(entity, rel))
		add(rs.Incoming(entity, rel))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Index != out[j].Index {
			return out[i].Index < out[j].Index
		}
		return out[i].Generation < out[j].Generation
	})
	return out
}
