package store

import (
	"fmt"

	"github.com/TheBitDrifter/bark"
	"github.com/cespare/xxhash/v2"
	"github.com/ndouglas/longtable/value"
)

// World is the compositional immutable snapshot (C6, spec.md §4.6): entity
// store, component store, relationship store, the schema registries, and
// the tick/seed/previous bookkeeping a running simulation needs. Every
// mutating method returns a new *World sharing all unchanged structure with
// the receiver — the generalization of the teacher's single mutable
// Storage/EntityManager pair into a persistent value.
type World struct {
	Registry *Registry

	entities      EntityStore
	components    *ComponentStore
	relationships *RelationshipStore

	Tick     uint64
	Seed     uint64
	Previous *World
}

// NewWorld returns tick-0 of a freshly loaded program: an empty entity/
// component/relationship store bound to registry, with the given world
// seed (spec.md §4.6, §4.9 seed chain root).
func NewWorld(registry *Registry, seed uint64) *World {
	return &World{
		Registry:      registry,
		entities:      NewEntityStore(),
		components:    NewComponentStore(registry),
		relationships: NewRelationshipStore(registry),
		Tick:          0,
		Seed:          seed,
	}
}

func (w *World) clone() *World {
	c := *w
	return &c
}

// Exists reports whether entity is live in this snapshot.
func (w *World) Exists(entity value.EntityID) bool {
	return w.entities.Exists(entity)
}

// Validate fails with StaleEntityError if entity is not live.
func (w *World) Validate(entity value.EntityID) error {
	return w.entities.Validate(entity)
}

// Each iterates every live entity in ascending index order.
func (w *World) Each(fn func(value.EntityID) bool) {
	w.entities.Each(fn)
}

// Spawn allocates a new entity and installs it with the given initial
// component values in one step (spec.md §4.3, §4.4).
func (w *World) Spawn(values map[value.Symbol]value.Value) (*World, value.EntityID, error) {
	newEntities, id := w.entities.Spawn()
	newComponents, err := w.components.Spawn(id, values)
	if err != nil {
		return w, value.NilEntity, err
	}
	nw := w.clone()
	nw.entities = newEntities
	nw.components = newComponents
	return nw, id, nil
}

// Destroy removes entity and processes every relationship edge touching it
// per the owning schema's on-target-delete policy (spec.md §3, §4.5).
// Destruction is idempotent.
func (w *World) Destroy(entity value.EntityID) (*World, error) {
	if !w.Exists(entity) {
		return w, nil
	}
	nw := w.clone()
	return nw.destroyFixpoint(entity)
}

// destroyFixpoint implements on_entity_destroyed, running cascades to
// fixpoint in a single wave with a visited set to stay cycle-safe (spec.md
// §4.5).
func (w *World) destroyFixpoint(start value.EntityID) (*World, error) {
	nw := w
	visited := map[value.EntityID]bool{}
	queue := []value.EntityID{start}
	for len(queue) > 0 {
		entity := queue[0]
		queue = queue[1:]
		if visited[entity] || !nw.Exists(entity) {
			continue
		}
		visited[entity] = true

		edges := nw.relationships.EdgesTouching(entity)
		for _, rel := range edges {
			if !nw.Exists(rel) {
				continue
			}
			relType := nw.components.Get(rel, nw.Registry.Sys.RelType).Symbol()
			source := nw.components.Get(rel, nw.Registry.Sys.RelSource).Entity()
			target := nw.components.Get(rel, nw.Registry.Sys.RelTarget).Entity()
			schema, ok := nw.Registry.Relationship(relType)
			if !ok {
				continue
			}

			nw = nw.unindexEdge(relType, rel, source, target)

			switch schema.OnTargetDelete {
			case DeleteRemove:
				nw = nw.destroyEntityRow(rel)
			case DeleteCascade:
				nw = nw.destroyEntityRow(rel)
				other := source
				if source == entity {
					other = target
				}
				if !visited[other] {
					queue = append(queue, other)
				}
			case DeleteNullify:
				nw = nw.nullifyEdgeEndpoint(rel, entity, source, target)
			}
		}
		nw = nw.destroyEntityRow(entity)
	}
	return nw, nil
}

func (w *World) unindexEdge(rel value.Symbol, relEntity, source, target value.EntityID) *World {
	nw := w.clone()
	nw.relationships = w.relationships.Unindex(rel, relEntity, source, target)
	return nw
}

func (w *World) destroyEntityRow(entity value.EntityID) *World {
	if !w.Exists(entity) {
		return w
	}
	nw := w.clone()
	newEntities, err := w.entities.Destroy(entity)
	if err != nil {
		return w
	}
	nw.entities = newEntities
	nw.components = w.components.Destroy(entity)
	return nw
}

// nullifyEdgeEndpoint replaces whichever endpoint of rel equals the
// just-destroyed entity with nil (spec.md §4.5: only valid when the
// relationship is declared optional).
func (w *World) nullifyEdgeEndpoint(rel value.EntityID, destroyed, source, target value.EntityID) *World {
	nw := w.clone()
	field := w.Registry.Sys.RelSource
	if destroyed == target {
		field = w.Registry.Sys.RelTarget
	}
	newComponents, err := nw.components.Set(rel, field, value.Entity(value.NilEntity))
	if err != nil {
		return w
	}
	nw.components = newComponents
	return nw
}

// Set installs/replaces a whole component value (spec.md §4.4).
func (w *World) Set(entity value.EntityID, component value.Symbol, val value.Value) (*World, error) {
	if err := w.Validate(entity); err != nil {
		return w, err
	}
	nc, err := w.components.Set(entity, component, val)
	if err != nil {
		return w, err
	}
	nw := w.clone()
	nw.components = nc
	return nw, nil
}

// SetField updates one field of a structured component (spec.md §4.4).
func (w *World) SetField(entity value.EntityID, component, field value.Symbol, val value.Value) (*World, error) {
	if err := w.Validate(entity); err != nil {
		return w, err
	}
	nc, err := w.components.SetField(entity, component, field, val)
	if err != nil {
		return w, err
	}
	nw := w.clone()
	nw.components = nc
	return nw, nil
}

// Get, GetField, Has, Remove delegate straight to the component store after
// an entity-liveness check.
func (w *World) Get(entity value.EntityID, component value.Symbol) value.Value {
	if !w.Exists(entity) {
		return value.Nil
	}
	return w.components.Get(entity, component)
}

func (w *World) GetField(entity value.EntityID, component, field value.Symbol) value.Value {
	if !w.Exists(entity) {
		return value.Nil
	}
	return w.components.GetField(entity, component, field)
}

func (w *World) Has(entity value.EntityID, component value.Symbol) bool {
	return w.Exists(entity) && w.components.Has(entity, component)
}

func (w *World) Remove(entity value.EntityID, component value.Symbol) (*World, value.Value, error) {
	if err := w.Validate(entity); err != nil {
		return w, value.Nil, err
	}
	nc, old, err := w.components.Remove(entity, component)
	if err != nil {
		return w, value.Nil, err
	}
	nw := w.clone()
	nw.components = nc
	return nw, old, nil
}

// Link creates a relationship instance between source and target, enforcing
// cardinality and the schema's on-violation policy (spec.md §4.5). Creating
// an identical edge that already exists is a no-op.
func (w *World) Link(rel value.Symbol, source, target value.EntityID) (*World, value.EntityID, error) {
	if err := w.Validate(source); err != nil {
		return w, value.NilEntity, err
	}
	if err := w.Validate(target); err != nil {
		return w, value.NilEntity, err
	}
	schema, ok := w.Registry.Relationship(rel)
	if !ok {
		return w, value.NilEntity, bark.AddTrace(fmt.Errorf("unregistered relationship: %v", rel))
	}

	for _, existing := range w.relationships.Outgoing(source, rel) {
		if w.components.Get(existing, w.Registry.Sys.RelTarget).Entity() == target {
			return w, existing, nil // idempotent re-link
		}
	}

	toReplace, err := w.relationships.checkCardinality(schema, source, target)
	if err != nil {
		return w, value.NilEntity, err
	}

	nw := w
	for _, edge := range toReplace {
		nw, err = nw.unlinkEdge(edge)
		if err != nil {
			return w, value.NilEntity, err
		}
	}

	values := map[value.Symbol]value.Value{
		nw.Registry.Sys.RelType:   value.Keyword(rel),
		nw.Registry.Sys.RelSource: value.Entity(source),
		nw.Registry.Sys.RelTarget: value.Entity(target),
	}
	nw2, relEntity, err := nw.Spawn(values)
	if err != nil {
		return w, value.NilEntity, err
	}
	nw2 = nw2.clone()
	nw2.relationships = nw2.relationships.Index(rel, relEntity, source, target)
	return nw2, relEntity, nil
}

// Unlink destroys the rel-entity linking source and target under rel, if
// one exists.
func (w *World) Unlink(rel value.Symbol, source, target value.EntityID) (*World, error) {
	for _, edge := range w.relationships.Outgoing(source, rel) {
		if w.components.Get(edge, w.Registry.Sys.RelTarget).Entity() == target {
			return w.unlinkEdge(edge)
		}
	}
	return w, nil
}

func (w *World) unlinkEdge(relEntity value.EntityID) (*World, error) {
	relType := w.components.Get(relEntity, w.Registry.Sys.RelType).Symbol()
	source := w.components.Get(relEntity, w.Registry.Sys.RelSource).Entity()
	target := w.components.Get(relEntity, w.Registry.Sys.RelTarget).Entity()
	nw := w.unindexEdge(relType, relEntity, source, target)
	nw, err := nw.Destroy(relEntity)
	if err != nil {
		return w, err
	}
	return nw, nil
}

// Targets returns the target recorded on each rel edge leaving entity
// (spec.md §4.5, "targets" accessor); targets are not checked for liveness.
func (w *World) Targets(entity value.EntityID, rel value.Symbol) []value.EntityID {
	out := make([]value.EntityID, 0)
	for _, edge := range w.relationships.Outgoing(entity, rel) {
		out = append(out, w.components.Get(edge, w.Registry.Sys.RelTarget).Entity())
	}
	return out
}

// Sources returns the source recorded on each rel edge entering entity;
// sources are not checked for liveness.
func (w *World) Sources(entity value.EntityID, rel value.Symbol) []value.EntityID {
	out := make([]value.EntityID, 0)
	for _, edge := range w.relationships.Incoming(entity, rel) {
		out = append(out, w.components.Get(edge, w.Registry.Sys.RelSource).Entity())
	}
	return out
}

// HasEdge reports whether an edge of type rel links source to target.
func (w *World) HasEdge(source value.EntityID, rel value.Symbol, target value.EntityID) bool {
	for _, edge := range w.relationships.Outgoing(source, rel) {
		if w.components.Get(edge, w.Registry.Sys.RelTarget).Entity() == target {
			return true
		}
	}
	return false
}

// EachWithComponent and EachArchetypeWith expose the component store's
// archetype-indexed iteration to the pattern matcher (spec.md §4.8).
func (w *World) EachWithComponent(component value.Symbol, fn func(value.EntityID) bool) {
	w.components.EachWithComponent(component, fn)
}

func (w *World) EachArchetypeWith(components []value.Symbol, fn func(*ArchetypeData) bool) {
	w.components.EachArchetypeWith(components, fn)
}

// Fork returns a committed-tick snapshot for the next tick: same data,
// previous pointer set to the receiver, tick incremented, seed replaced by
// nextSeed as given (no derivation happens here; spec.md §4.9).
func (w *World) Fork(nextSeed uint64) *World {
	nw := w.clone()
	nw.Tick = w.Tick + 1
	nw.Seed = nextSeed
	nw.Previous = w
	return nw
}

// TruncateHistory elides the previous-chain beyond retention links deep,
// per spec.md §4.6 ("previous... bounded by history retention policy").
// Every node on the path back to the cut point is cloned before its
// Previous pointer is touched, so no already-committed *World a caller may
// still be holding is ever mutated in place.
func (w *World) TruncateHistory(retention int) *World {
	if retention < 0 {
		return w
	}
	nw := w.clone()
	cursor := nw
	for i := 0; i < retention && cursor.Previous != nil; i++ {
		cursor.Previous = cursor.Previous.clone()
		cursor = cursor.Previous
	}
	cursor.Previous = nil
	return nw
}

// ContentHash computes a deterministic hash over the materialized state:
// every live entity's sorted components hashed in archetype order, folded
// with tick and seed (spec.md §4.6). Used to memoize speculative ticks.
func (w *World) ContentHash() uint64 {
	h := xxhash.New()
	writeUint64(h, w.Tick)
	writeUint64(h, w.Seed)
	for _, name := range w.Registry.sortedComponents() {
		w.EachWithComponent(name, func(e value.EntityID) bool {
			writeUint64(h, uint64(e.Index))
			writeUint64(h, uint64(e.Generation))
			writeUint64(h, w.components.Get(e, name).Hash())
			return true
		})
	}
	return h.Sum64()
}

func writeUint64(h *xxhash.Digest, u uint64) {
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(u >> (8 * i))
	}
	h.Write(buf[:])
}
